package bytebuf

import "golang.org/x/sys/unix"

// scratchSize is large enough to ingest a full TCP window in one readv even
// when the buffer itself is undersized.
const scratchSize = 64 * 1024

// ReadFD performs one scatter read from fd into [tail space, stack scratch].
// When the read spills into the scratch area the backing store grows exactly
// once to absorb the overflow. Returns the byte count from readv; the error
// is unix.EAGAIN when the socket is drained in edge-triggered mode.
func (b *Buffer) ReadFD(fd int) (int, error) {
	var scratch [scratchSize]byte
	writable := b.Writable()
	iov := [2][]byte{b.buf[b.writePos:], scratch[:]}

	n, err := unix.Readv(fd, iov[:])
	if n < 0 {
		return n, err
	}
	if n <= writable {
		b.writePos += n
	} else {
		b.writePos = len(b.buf)
		b.Append(scratch[:n-writable])
	}
	return n, err
}

// WriteFD drains the readable window into fd with a single write.
func (b *Buffer) WriteFD(fd int) (int, error) {
	if b.Readable() == 0 {
		return 0, nil
	}
	n, err := unix.Write(fd, b.Peek())
	if n > 0 {
		b.Retrieve(n)
	}
	return n, err
}
