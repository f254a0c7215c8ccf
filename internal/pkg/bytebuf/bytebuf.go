// Package bytebuf implements the growable read/write buffer used on every
// connection. Two monotonic cursors divide the backing array into a consumed
// prefix, a readable window and writable tail space; appends compact or grow
// the array as needed so the readable window stays contiguous.
package bytebuf

const defaultSize = 1024

type Buffer struct {
	buf      []byte
	readPos  int
	writePos int
}

func New(size int) *Buffer {
	if size <= 0 {
		size = defaultSize
	}
	return &Buffer{buf: make([]byte, size)}
}

// Readable reports the number of bytes available to consume.
func (b *Buffer) Readable() int { return b.writePos - b.readPos }

// Writable reports the tail space available without growing.
func (b *Buffer) Writable() int { return len(b.buf) - b.writePos }

// Prependable is the space already consumed at the front; compaction reclaims it.
func (b *Buffer) Prependable() int { return b.readPos }

// Peek returns the readable window without consuming it. The slice aliases
// the backing array and is invalidated by the next Append or ReadFD.
func (b *Buffer) Peek() []byte { return b.buf[b.readPos:b.writePos] }

// Retrieve advances the read cursor by n bytes.
func (b *Buffer) Retrieve(n int) {
	if n > b.Readable() {
		n = b.Readable()
	}
	b.readPos += n
	if b.readPos == b.writePos {
		// Window emptied, cursors can rewind for free.
		b.readPos = 0
		b.writePos = 0
	}
}

func (b *Buffer) RetrieveAll() {
	b.readPos = 0
	b.writePos = 0
}

// RetrieveAllString drains the buffer into a string.
func (b *Buffer) RetrieveAllString() string {
	s := string(b.Peek())
	b.RetrieveAll()
	return s
}

func (b *Buffer) Append(p []byte) {
	b.ensureWritable(len(p))
	copy(b.buf[b.writePos:], p)
	b.writePos += len(p)
}

func (b *Buffer) AppendString(s string) {
	b.ensureWritable(len(s))
	copy(b.buf[b.writePos:], s)
	b.writePos += len(s)
}

func (b *Buffer) AppendByte(c byte) {
	b.ensureWritable(1)
	b.buf[b.writePos] = c
	b.writePos++
}

func (b *Buffer) ensureWritable(n int) {
	if b.Writable() < n {
		b.makeSpace(n)
	}
}

// makeSpace either compacts the readable window to offset 0 or resizes the
// backing array to writePos+n+1, mirroring the original compaction policy.
func (b *Buffer) makeSpace(n int) {
	if b.Writable()+b.Prependable() < n {
		grown := make([]byte, b.writePos+n+1)
		copy(grown, b.buf[:b.writePos])
		b.buf = grown
		return
	}
	readable := b.Readable()
	copy(b.buf, b.buf[b.readPos:b.writePos])
	b.readPos = 0
	b.writePos = readable
}
