package mapr

import (
	"io"

	"github.com/xinaxu/mapr/internal/region"
)

// MmapMut is a handle to a mutable memory-mapped buffer. A file-backed
// MmapMut reads from and writes to the file; an anonymous MmapMut serves
// wherever an in-memory byte buffer would. Like Mmap, a file-backed handle
// remains valid after the *os.File used to create it is closed.
//
// An MmapMut is exclusively owned: it must not be shared between
// goroutines.
type MmapMut struct {
	r *region.Region
}

// Data returns the mapped bytes for reading and writing. The slice is valid
// until the handle is closed or consumed by a transition; after that Data
// returns nil.
func (m *MmapMut) Data() []byte {
	if m.r == nil {
		return nil
	}
	return m.r.Bytes()
}

// Len returns the length of the mapped buffer in bytes.
func (m *MmapMut) Len() int {
	if m.r == nil {
		return 0
	}
	return m.r.Len()
}

// ReadAt implements io.ReaderAt over the mapped bytes.
func (m *MmapMut) ReadAt(p []byte, off int64) (int, error) {
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

// WriteAt implements io.WriterAt over the mapped bytes. The write is only
// in memory until a flush.
func (m *MmapMut) WriteAt(p []byte, off int64) (int, error) {
	if m.r == nil {
		return 0, ErrClosed
	}
	data := m.r.Bytes()
	if off < 0 || off > int64(len(data)) {
		return 0, ErrInvalidRange
	}
	n := copy(data[off:], p)
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

// Flush writes outstanding modifications back to the file and returns once
// they are durable. The file's metadata (including its modification
// timestamp) may not be updated. On an anonymous mapping the call is
// advisory and succeeds without effect.
func (m *MmapMut) Flush() error {
	if m.r == nil {
		return ErrClosed
	}
	return m.r.Flush(0, m.r.Len())
}

// FlushAsync initiates write-back of outstanding modifications and returns
// without waiting for it to complete; the data is not guaranteed durable on
// return.
func (m *MmapMut) FlushAsync() error {
	if m.r == nil {
		return ErrClosed
	}
	return m.r.FlushAsync(0, m.r.Len())
}

// FlushRange is Flush restricted to the given range, which must lie within
// the mapping. The OS may write back more than the requested range: the
// synced span is the page-aligned cover of the range, so other dirty pages
// in the same envelope can be flushed with it.
func (m *MmapMut) FlushRange(offset, length int) error {
	if err := m.checkRange(offset, length); err != nil {
		return err
	}
	return m.r.Flush(offset, length)
}

// FlushAsyncRange is FlushAsync restricted to the given range, which must
// lie within the mapping.
func (m *MmapMut) FlushAsyncRange(offset, length int) error {
	if err := m.checkRange(offset, length); err != nil {
		return err
	}
	return m.r.FlushAsync(offset, length)
}

func (m *MmapMut) checkRange(offset, length int) error {
	if m.r == nil {
		return ErrClosed
	}
	// Bounds are checked by subtraction so offset+length cannot overflow.
	if offset < 0 || offset > m.r.Len() || length < 0 || length > m.r.Len()-offset {
		return ErrInvalidRange
	}
	return nil
}

// MakeReadOnly transitions the mapping to be read-only and returns a new
// handle owning the same region. The receiver is consumed either way: on
// success its region has moved to the returned Mmap, and on failure the
// region has been unmapped.
func (m *MmapMut) MakeReadOnly() (*Mmap, error) {
	r, err := m.take()
	if err != nil {
		return nil, err
	}
	if err := r.MakeReadOnly(); err != nil {
		r.Release()
		return nil, err
	}
	return &Mmap{r: r}, nil
}

// MakeExec transitions the mapping to be readable and executable and
// returns a new handle owning the same region. The receiver is consumed
// either way, as with MakeReadOnly.
func (m *MmapMut) MakeExec() (*Mmap, error) {
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
// out. Requires privileged access on most platforms.
func (m *MmapMut) Lock() error {
	if m.r == nil {
		return ErrClosed
	}
	return m.r.Lock()
}

// Unlock releases the pin taken by Lock.
func (m *MmapMut) Unlock() error {
	if m.r == nil {
		return ErrClosed
	}
	return m.r.Unlock()
}

// Close unmaps the region. Closing an already-closed or consumed handle is
// a no-op. A failed unmap aborts the process.
func (m *MmapMut) Close() {
	if m.r == nil {
		return
	}
	m.r.Release()
	m.r = nil
}

func (m *MmapMut) take() (*region.Region, error) {
	if m.r == nil {
		return nil, ErrClosed
	}
	r := m.r
	m.r = nil
	return r, nil
}
