//go:build linux || darwin

package region

import (
	"os"

	"golang.org/x/sys/unix"
)

// Map creates a read-only mapping of f starting at offset.
//
// The kernel keeps the pages valid after the descriptor is closed, so the
// region's validity is independent of f without duplicating it.
func Map(f *os.File, offset int64, length int, cfg Config) (*Region, error) {
	return mapFile(f, offset, length, unix.PROT_READ, ReadOnly, cfg, cfg.Private)
}

// MapExec creates a readable and executable mapping of f starting at offset.
func MapExec(f *os.File, offset int64, length int, cfg Config) (*Region, error) {
	return mapFile(f, offset, length, unix.PROT_READ|unix.PROT_EXEC, ReadExecute, cfg, cfg.Private)
}

// MapMut creates a readable and writable mapping of f starting at offset.
// Writes are carried through to the file unless cfg.Private is set.
func MapMut(f *os.File, offset int64, length int, cfg Config) (*Region, error) {
	return mapFile(f, offset, length, unix.PROT_READ|unix.PROT_WRITE, ReadWrite, cfg, cfg.Private)
}

// MapCopy creates a copy-on-write mapping of f starting at offset. Writes
// stay private to this region regardless of cfg.Private.
func MapCopy(f *os.File, offset int64, length int, cfg Config) (*Region, error) {
	return mapFile(f, offset, length, unix.PROT_READ|unix.PROT_WRITE, ReadWrite, cfg, true)
}

// MapAnon creates a readable and writable mapping backed by volatile memory.
func MapAnon(length int, cfg Config) (*Region, error) {
	flags := unix.MAP_ANON | platformFlags(cfg, true)
	if cfg.Private {
		flags |= unix.MAP_PRIVATE
	} else {
		flags |= unix.MAP_SHARED
	}
	return mapRegion(-1, 0, length, unix.PROT_READ|unix.PROT_WRITE, flags, ReadWrite, true, cfg.Private)
}

func mapFile(f *os.File, offset int64, length int, prot int, state Protection, cfg Config, private bool) (*Region, error) {
	flags := platformFlags(cfg, false)
	if private {
		flags |= unix.MAP_PRIVATE
	} else {
		flags |= unix.MAP_SHARED
	}
	return mapRegion(int(f.Fd()), offset, length, prot, flags, state, false, private)
}

// mapRegion issues the mmap call with the alignment correction folded in:
// the envelope of length+align bytes is mapped at offset-align, and the
// caller-visible window starts align bytes into it.
func mapRegion(fd int, offset int64, length int, prot, flags int, state Protection, anon, private bool) (*Region, error) {
	if offset < 0 {
		return nil, ErrNegativeOffset
	}
	align := int(offset % int64(os.Getpagesize()))
	if length < 0 || length+align == 0 {
		return nil, ErrZeroLength
	}

	full, err := unix.Mmap(fd, offset-int64(align), length+align, prot, flags)
	if err != nil {
		return nil, &Error{Op: "mmap", Err: err}
	}

	return retain(&Region{
		data:    full[align : align+length],
		full:    full,
		off:     align,
		length:  length,
		prot:    state,
		anon:    anon,
		private: private,
	}), nil
}

// Flush writes the given range of the mapping back to the file and returns
// once the data is durable. The synced span is the page-aligned cover of the
// range, so neighbouring dirty pages within the same envelope may be written
// back as well. The range must have been validated by the caller.
func (r *Region) Flush(offset, length int) error {
	return r.msync(offset, length, unix.MS_SYNC)
}

// FlushAsync initiates write-back of the given range and returns without
// waiting for it to complete.
func (r *Region) FlushAsync(offset, length int) error {
	return r.msync(offset, length, unix.MS_ASYNC)
}

func (r *Region) msync(offset, length, flags int) error {
	start := r.off + offset
	align := start % os.Getpagesize()
	sub := r.full[start-align : start+length]
	if err := unix.Msync(sub, flags); err != nil {
		return &Error{Op: "msync", Err: err}
	}
	return nil
}

// MakeReadOnly transitions the region to ReadOnly.
func (r *Region) MakeReadOnly() error {
	return r.protect(unix.PROT_READ, ReadOnly)
}

// MakeMut transitions the region to ReadWrite.
func (r *Region) MakeMut() error {
	return r.protect(unix.PROT_READ|unix.PROT_WRITE, ReadWrite)
}

// MakeExec transitions the region to ReadExecute.
func (r *Region) MakeExec() error {
	return r.protect(unix.PROT_READ|unix.PROT_EXEC, ReadExecute)
}

// protect changes the protection of the full aligned envelope. The recorded
// state is updated only when the syscall succeeds.
func (r *Region) protect(prot int, state Protection) error {
	if err := unix.Mprotect(r.full, prot); err != nil {
		return &Error{Op: "mprotect", Err: err}
	}
	r.prot = state
	return nil
}

// Lock pins the caller-visible range into physical memory. mlock accepts
// arbitrary sub-page ranges, so no alignment correction is needed. Requires
// privilege; the platform's error is surfaced unchanged.
func (r *Region) Lock() error {
	if err := unix.Mlock(r.data); err != nil {
		return &Error{Op: "mlock", Err: err}
	}
	return nil
}

// Unlock releases the pin taken by Lock.
func (r *Region) Unlock() error {
	if err := unix.Munlock(r.data); err != nil {
		return &Error{Op: "munlock", Err: err}
	}
	return nil
}

func (r *Region) unmap() {
	if err := unix.Munmap(r.full); err != nil {
		panic(&Error{Op: "munmap", Err: err})
	}
}
