// Package mapr provides cross-platform memory-mapped buffers backed by a
// file or by anonymous memory.
//
// # Overview
//
// A mapping gives direct access to file contents through the page cache
// without copying data through read/write syscalls. Mappings are exposed as
// two capability handles: Mmap is an immutable byte view and MmapMut is a
// mutable one. A third protection state, read-execute, is reachable from
// either handle via MakeExec and exposes the mapped bytes as runnable code.
//
// # Usage
//
//	f, err := os.Open("data.bin")
//	if err != nil { ... }
//	m, err := mapr.Map(f)
//	if err != nil { ... }
//	defer m.Close()
//
//	// Zero-copy access to the file contents.
//	data := m.Data()
//
// Non-default mappings are built through Options:
//
//	m, err := mapr.NewOptions().Offset(4096).Length(1 << 20).MapMut(f)
//
// # Capability transitions
//
// MakeMut, MakeReadOnly and MakeExec change the protection of the live
// region and move ownership to a new handle; the source handle is consumed
// and every later operation on it returns ErrClosed. When a transition
// fails the mapping is torn down, not left in its previous state.
//
// # Lifecycle
//
// Close unmaps the region. A handle that becomes unreachable without Close
// is unmapped by a finalizer, so the region is released exactly once either
// way. An unmap failure cannot be recovered from (the address space cannot
// be reclaimed or the call retried) and aborts the process.
//
// # Thread Safety
//
// An Mmap's bytes may be read from any number of goroutines because no live
// MmapMut can reference the same region. An MmapMut must not be shared.
// Nothing protects against the underlying file being modified by another
// process or another mapping of the same file; callers must prevent that
// operationally (file permissions, unlinked files, process isolation).
//
// # Platform Support
//
//   - Linux, macOS: mmap(2), mprotect(2), msync(2), mlock(2)
//   - Windows: CreateFileMapping/MapViewOfFile, VirtualProtect,
//     FlushViewOfFile, VirtualLock
//
// Option flags a platform cannot honour degrade to no-ops; see Options.
package mapr
