//go:build windows

package region

import (
	"os"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

// On Windows the mapping granularity is the allocation granularity (64 KB on
// every shipping system), not the page size, so the alignment correction is
// derived from it. Stack, Huge and NoReserve have no mapping-flag equivalent
// and degrade to no-ops; Locked is approximated by VirtualLock at creation.
//
// A file mapping object's protection fixes the strongest access the view can
// ever be transitioned to, so the mapping is created with the strongest
// protection the file handle permits and the view is then normalized down to
// the requested initial state with VirtualProtect. Later transitions fail
// with the OS's access error when they exceed what the handle permitted.

// Map creates a read-only mapping of f starting at offset.
//
// The file handle is duplicated so the region's validity is independent of
// the caller's handle.
func Map(f *os.File, offset int64, length int, cfg Config) (*Region, error) {
	return mapFile(f, offset, length, ReadOnly, cfg, cfg.Private)
}

// MapExec creates a readable and executable mapping of f starting at offset.
func MapExec(f *os.File, offset int64, length int, cfg Config) (*Region, error) {
	return mapFile(f, offset, length, ReadExecute, cfg, cfg.Private)
}

// MapMut creates a readable and writable mapping of f starting at offset.
// Writes are carried through to the file unless cfg.Private is set.
func MapMut(f *os.File, offset int64, length int, cfg Config) (*Region, error) {
	return mapFile(f, offset, length, ReadWrite, cfg, cfg.Private)
}

// MapCopy creates a copy-on-write mapping of f starting at offset. Writes
// stay private to this region regardless of cfg.Private.
func MapCopy(f *os.File, offset int64, length int, cfg Config) (*Region, error) {
	return mapFile(f, offset, length, ReadWrite, cfg, true)
}

// MapAnon creates a readable and writable mapping backed by the pagefile.
// cfg.Private is a no-op here: a pagefile-backed view is never shared with
// another mapping object, so shared and private are indistinguishable.
func MapAnon(length int, cfg Config) (*Region, error) {
	return mapHandle(windows.InvalidHandle, 0, length, ReadWrite, true, false, cfg)
}

func mapFile(f *os.File, offset int64, length int, state Protection, cfg Config, private bool) (*Region, error) {
	return mapHandle(windows.Handle(f.Fd()), offset, length, state, false, private, cfg)
}

func mapHandle(src windows.Handle, offset int64, length int, state Protection, anon, private bool, cfg Config) (*Region, error) {
	if offset < 0 {
		return nil, ErrNegativeOffset
	}
	align := int(offset % allocationGranularity())
	if length < 0 || length+align == 0 {
		return nil, ErrZeroLength
	}

	file := windows.InvalidHandle
	if !anon {
		proc := windows.CurrentProcess()
		if err := windows.DuplicateHandle(proc, src, proc, &file, 0, false, windows.DUPLICATE_SAME_ACCESS); err != nil {
			return nil, &Error{Op: "DuplicateHandle", Err: err}
		}
	}

	maxSize := uint64(offset) + uint64(length)
	mapping, writeCapable, execCapable, err := createMapping(file, maxSize, private && !anon)
	if err != nil {
		closeIfValid(file)
		return nil, err
	}

	access := viewAccess(private && !anon, writeCapable, execCapable)
	alignedOff := uint64(offset) - uint64(align)
	addr, err := windows.MapViewOfFile(mapping, access, uint32(alignedOff>>32), uint32(alignedOff), uintptr(length+align))
	if err != nil {
		windows.CloseHandle(mapping)
		closeIfValid(file)
		return nil, &Error{Op: "MapViewOfFile", Err: err}
	}

	r := &Region{
		data:    unsafe.Slice((*byte)(unsafe.Pointer(addr+uintptr(align))), length),
		off:     align,
		length:  length,
		prot:    state,
		anon:    anon,
		private: private,
		addr:    addr,
		file:    uintptr(file),
		mapping: uintptr(mapping),
	}

	// The view comes up with whatever protection its access flags imply;
	// normalize to the requested initial state.
	if err := r.protectState(state); err != nil {
		r.released.Store(true)
		r.unmap()
		return nil, err
	}

	if cfg.Locked {
		if err := r.Lock(); err != nil {
			r.released.Store(true)
			r.unmap()
			return nil, err
		}
	}

	return retain(r), nil
}

// createMapping creates the file mapping object with the strongest
// protection the handle permits, falling back until one is accepted. It
// reports whether the chosen protection allows writable and executable
// views.
func createMapping(file windows.Handle, maxSize uint64, cow bool) (windows.Handle, bool, bool, error) {
	type attempt struct {
		prot        uint32
		write, exec bool
	}
	attempts := []attempt{
		{windows.PAGE_EXECUTE_READWRITE, true, true},
		{windows.PAGE_READWRITE, true, false},
		{windows.PAGE_EXECUTE_READ, false, true},
		{windows.PAGE_READONLY, false, false},
	}
	if cow {
		attempts = []attempt{
			{windows.PAGE_EXECUTE_WRITECOPY, true, true},
			{windows.PAGE_WRITECOPY, true, false},
		}
	}

	var lastErr error
	for _, a := range attempts {
		h, err := windows.CreateFileMapping(file, nil, a.prot, uint32(maxSize>>32), uint32(maxSize), nil)
		if err == nil {
			return h, a.write, a.exec, nil
		}
		lastErr = err
	}
	return 0, false, false, &Error{Op: "CreateFileMapping", Err: lastErr}
}

func viewAccess(cow, writeCapable, execCapable bool) uint32 {
	access := uint32(windows.FILE_MAP_READ)
	if cow {
		access = windows.FILE_MAP_COPY
	} else if writeCapable {
		access |= windows.FILE_MAP_WRITE
	}
	if execCapable {
		access |= windows.FILE_MAP_EXECUTE
	}
	return access
}

// Flush writes the given range of the view back to the file and then forces
// the file's dirty buffers to disk, so the data is durable on return. The
// range must have been validated by the caller.
func (r *Region) Flush(offset, length int) error {
	if err := r.flushView(offset, length); err != nil {
		return err
	}
	if r.anon {
		return nil
	}
	if err := windows.FlushFileBuffers(windows.Handle(r.file)); err != nil {
		return &Error{Op: "FlushFileBuffers", Err: err}
	}
	return nil
}

// FlushAsync initiates write-back of the given range and returns without
// waiting for the disk write to complete.
func (r *Region) FlushAsync(offset, length int) error {
	return r.flushView(offset, length)
}

func (r *Region) flushView(offset, length int) error {
	if err := windows.FlushViewOfFile(r.addr+uintptr(r.off+offset), uintptr(length)); err != nil {
		return &Error{Op: "FlushViewOfFile", Err: err}
	}
	return nil
}

// MakeReadOnly transitions the region to ReadOnly.
func (r *Region) MakeReadOnly() error {
	return r.protectState(ReadOnly)
}

// MakeMut transitions the region to ReadWrite.
func (r *Region) MakeMut() error {
	return r.protectState(ReadWrite)
}

// MakeExec transitions the region to ReadExecute.
func (r *Region) MakeExec() error {
	return r.protectState(ReadExecute)
}

func (r *Region) protectState(state Protection) error {
	var prot uint32
	switch state {
	case ReadOnly:
		prot = windows.PAGE_READONLY
	case ReadWrite:
		prot = windows.PAGE_READWRITE
		if r.private && !r.anon {
			prot = windows.PAGE_WRITECOPY
		}
	case ReadExecute:
		prot = windows.PAGE_EXECUTE_READ
	}
	var old uint32
	if err := windows.VirtualProtect(r.addr, uintptr(r.off+r.length), prot, &old); err != nil {
		return &Error{Op: "VirtualProtect", Err: err}
	}
	r.prot = state
	return nil
}

// Lock pins the caller-visible range into physical memory. Requires the
// working-set quota to cover the range; the platform's error is surfaced
// unchanged.
func (r *Region) Lock() error {
	if err := windows.VirtualLock(r.addr+uintptr(r.off), uintptr(r.length)); err != nil {
		return &Error{Op: "VirtualLock", Err: err}
	}
	return nil
}

// Unlock releases the pin taken by Lock.
func (r *Region) Unlock() error {
	if err := windows.VirtualUnlock(r.addr+uintptr(r.off), uintptr(r.length)); err != nil {
		return &Error{Op: "VirtualUnlock", Err: err}
	}
	return nil
}

func (r *Region) unmap() {
	if err := windows.UnmapViewOfFile(r.addr); err != nil {
		panic(&Error{Op: "UnmapViewOfFile", Err: err})
	}
	_ = windows.CloseHandle(windows.Handle(r.mapping))
	closeIfValid(windows.Handle(r.file))
}

func closeIfValid(h windows.Handle) {
	if h != windows.InvalidHandle && h != 0 {
		_ = windows.CloseHandle(h)
	}
}

var (
	procGetSystemInfo = windows.NewLazySystemDLL("kernel32.dll").NewProc("GetSystemInfo")

	granularityOnce sync.Once
	granularity     int64
)

type systemInfo struct {
	ProcessorArchitecture     uint16
	Reserved                  uint16
	PageSize                  uint32
	MinimumApplicationAddress uintptr
	MaximumApplicationAddress uintptr
	ActiveProcessorMask       uintptr
	NumberOfProcessors        uint32
	ProcessorType             uint32
	AllocationGranularity     uint32
	ProcessorLevel            uint16
	ProcessorRevision         uint16
}

func allocationGranularity() int64 {
	granularityOnce.Do(func() {
		var si systemInfo
		procGetSystemInfo.Call(uintptr(unsafe.Pointer(&si)))
		granularity = int64(si.AllocationGranularity)
	})
	return granularity
}
