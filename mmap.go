package mapr

import (
	"io"

	"github.com/xinaxu/mapr/internal/region"
)

// Mmap is a handle to an immutable memory-mapped buffer, backed either by a
// file or by anonymous memory. A file-backed Mmap remains valid after the
// *os.File used to create it is closed.
//
// The bytes may be read concurrently from multiple goroutines; this is safe
// because no MmapMut can reference the same region while the Mmap lives.
type Mmap struct {
	r *region.Region
}

// Data returns the mapped bytes. The slice is valid until the handle is
// closed or consumed by a transition; after that Data returns nil.
// Accessing the slice may page-fault as the OS swaps mapped pages in.
func (m *Mmap) Data() []byte {
	if m.r == nil {
		return nil
	}
	return m.r.Bytes()
}

// Len returns the length of the mapped buffer in bytes.
func (m *Mmap) Len() int {
	if m.r == nil {
		return 0
	}
	return m.r.Len()
}

// ReadAt implements io.ReaderAt over the mapped bytes.
func (m *Mmap) ReadAt(p []byte, off int64) (int, error) {
	if m.r == nil {
		return 0, ErrClosed
	}
	data := m.r.Bytes()
	if off < 0 || off > int64(len(data)) {
		return 0, ErrInvalidRange
	}
	n := copy(p, data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// MakeMut transitions the mapping to be writable and returns a new handle
// owning the same region. The receiver is consumed either way: on success
// its region has moved to the returned MmapMut, and on failure the region
// has been unmapped. A file-backed mapping needs the file to have been
// opened with write permission.
func (m *Mmap) MakeMut() (*MmapMut, error) {
	r, err := m.take()
	if err != nil {
		return nil, err
	}
	if err := r.MakeMut(); err != nil {
		r.Release()
		return nil, err
	}
	return &MmapMut{r: r}, nil
}

// MakeExec transitions the mapping to be readable and executable and
// returns a new handle owning the same region. The receiver is consumed
// either way, as with MakeMut.
func (m *Mmap) MakeExec() (*Mmap, error) {
	r, err := m.take()
	if err != nil {
		return nil, err
	}
	if err := r.MakeExec(); err != nil {
		r.Release()
		return nil, err
	}
	return &Mmap{r: r}, nil
}

// Lock pins the mapped pages into physical memory so they cannot be swapped
// out. Requires privileged access on most platforms; an insufficient
// privilege surfaces as the platform's permission error.
func (m *Mmap) Lock() error {
	if m.r == nil {
		return ErrClosed
	}
	return m.r.Lock()
}

// Unlock releases the pin taken by Lock.
func (m *Mmap) Unlock() error {
	if m.r == nil {
		return ErrClosed
	}
	return m.r.Unlock()
}

// Close unmaps the region. Closing an already-closed or consumed handle is
// a no-op. A failed unmap aborts the process: the address space cannot be
// reclaimed or the call retried, so no error is returned.
func (m *Mmap) Close() {
	if m.r == nil {
		return
	}
	m.r.Release()
	m.r = nil
}

// take detaches the region for a transition, leaving the handle consumed.
func (m *Mmap) take() (*region.Region, error) {
	if m.r == nil {
		return nil, ErrClosed
	}
	r := m.r
	m.r = nil
	return r, nil
}
