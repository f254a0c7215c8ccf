package httpx

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// mapFile maps the file read-only. The mapping stays valid until unmapFile;
// the descriptor can be closed right away.
func mapFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if st.IsDir() {
		return nil, fmt.Errorf("httpx: %s is a directory", path)
	}
	if st.Size() == 0 {
		return []byte{}, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(st.Size()), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("httpx: mmap %s: %w", path, err)
	}
	return data, nil
}

func unmapFile(data []byte) {
	if len(data) > 0 {
		unix.Munmap(data)
	}
}
