// Package region implements the platform memory-mapping backend.
//
// A Region is a live virtual-memory mapping together with the alignment
// correction that was applied to satisfy the OS mapping granularity. The
// caller-visible window starts at an arbitrary byte offset; the OS only maps
// at page (or, on Windows, allocation-granularity) boundaries, so every
// syscall issued against an existing Region re-derives the aligned envelope
// from the correction recorded at construction time.
//
// There is exactly one Region implementation per OS family, selected at
// build time. The method set, not the selection mechanism, is the contract:
// map variants, Flush/FlushAsync, MakeReadOnly/MakeMut/MakeExec, Lock/Unlock
// and Release behave identically everywhere, modulo the per-flag degradation
// documented on Config.
package region

import (
	"runtime"
	"sync/atomic"
)

// Protection is the current protection state of a mapped region. It is
// mutated in place by the successful MakeReadOnly/MakeMut/MakeExec
// transitions; all six directed transitions between the three states are
// legal.
type Protection int

const (
	// ReadOnly pages can be read but not written or executed.
	ReadOnly Protection = iota
	// ReadWrite pages can be read and written.
	ReadWrite
	// ReadExecute pages can be read and executed.
	ReadExecute
)

// Huge page size classes for Config.Huge.
const (
	HugeNone uint8 = 0 // normal pages
	Huge2MB  uint8 = 1 // 2 MB pages (Linux MAP_HUGETLB)
	Huge1GB  uint8 = 2 // 1 GB pages (Linux MAP_HUGETLB)
)

// Config carries the independently settable mapping flags. Flags a platform
// cannot honour degrade to no-ops rather than errors:
//
//   - Stack: anonymous mappings only; Linux MAP_STACK, no-op elsewhere.
//   - Locked: Linux MAP_LOCKED (privileged); approximated with VirtualLock
//     on Windows, no-op on macOS.
//   - Private: copy-on-write instead of shared writes; for anonymous
//     mappings, honoured on unix and a no-op on Windows, where pagefile
//     views are always private to the mapping object.
//   - Huge: Linux MAP_HUGETLB size class, no-op elsewhere.
//   - NoReserve: suppress backing-store reservation; Linux and macOS
//     MAP_NORESERVE, no-op on Windows.
type Config struct {
	Stack     bool
	Locked    bool
	Private   bool
	NoReserve bool
	Huge      uint8
}

// Region is a mapped virtual-memory region. It is owned by exactly one
// capability handle at a time and is unmapped exactly once, either through
// an explicit Release or through the finalizer installed at construction.
type Region struct {
	data     []byte // Caller-visible window
	full     []byte // Aligned envelope as returned by the OS (unix only)
	off      int    // Alignment correction: data starts off bytes into the envelope
	length   int    // Caller-visible length
	prot     Protection
	anon     bool // No backing file
	private  bool // Copy-on-write
	released atomic.Bool
	// Windows-specific handles (zero on unix)
	addr    uintptr // Envelope base address
	file    uintptr // Duplicated backing file handle
	mapping uintptr // File-mapping object handle
}

// Bytes returns the caller-visible window. The slice is valid until Release.
func (r *Region) Bytes() []byte {
	return r.data
}

// Len returns the caller-visible length in bytes.
func (r *Region) Len() int {
	return r.length
}

// Anonymous reports whether the region has no backing file.
func (r *Region) Anonymous() bool {
	return r.anon
}

// Protection returns the current protection state.
func (r *Region) Protection() Protection {
	return r.prot
}

// Released reports whether the region has been unmapped.
func (r *Region) Released() bool {
	return r.released.Load()
}

// Release unmaps the full aligned envelope. It is safe to call more than
// once; only the first call unmaps. An unmap failure is an unrecoverable
// invariant violation: the address space cannot be reclaimed or the call
// retried, so Release panics with the OS error instead of returning it.
func (r *Region) Release() {
	if r.released.Swap(true) {
		return
	}
	runtime.SetFinalizer(r, nil)
	r.unmap()
	r.data = nil
	r.full = nil
}

// retain installs the finalizer that releases regions whose handles are
// garbage collected without an explicit Close.
func retain(r *Region) *Region {
	runtime.SetFinalizer(r, (*Region).Release)
	return r
}
