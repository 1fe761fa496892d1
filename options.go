package mapr

import (
	"math"
	"os"

	"github.com/xinaxu/mapr/internal/region"
)

// Huge page size classes for Options.Huge.
const (
	HugeNone = region.HugeNone // normal pages
	Huge2MB  = region.Huge2MB  // 2 MB pages, Linux only
	Huge1GB  = region.Huge1GB  // 1 GB pages, Linux only
)

// Options collects mapping configuration before one of the terminal Map*
// calls constructs the backend region. The zero value maps a whole file
// from offset 0 with default flags.
//
// All file-backed constructors carry the same hazard: if the underlying
// file is modified while mapped, in or out of process, the contents of the
// buffer change underneath the handle with no notice. Callers must prevent
// that operationally.
type Options struct {
	offset    int64
	length    int
	hasLength bool
	stack     bool
	locked    bool
	private   bool
	noReserve bool
	huge      uint8
}

// NewOptions returns a new, default set of mapping options.
func NewOptions() *Options {
	return &Options{}
}

// Offset sets the byte offset into the backing file at which the mapping
// begins. It need not be page-aligned; the alignment correction is applied
// internally. A negative offset fails with ErrNegativeOffset. Ignored for
// anonymous mappings. Defaults to 0.
func (o *Options) Offset(offset int64) *Options {
	o.offset = offset
	return o
}

// Length sets the caller-visible mapping length in bytes. Mandatory for
// anonymous mappings; for file-backed mappings it defaults to the file
// length minus the offset.
func (o *Options) Length(length int) *Options {
	o.length = length
	o.hasLength = true
	return o
}

// Stack hints that the mapping backs a thread or process stack. Anonymous
// mappings only; Linux MAP_STACK, no-op elsewhere.
func (o *Options) Stack() *Options {
	o.stack = true
	return o
}

// Locked requests the mapping be page-locked at creation. Privileged on
// most platforms; a no-op on macOS.
func (o *Options) Locked() *Options {
	o.locked = true
	return o
}

// Private requests copy-on-write semantics: writes are visible neither to
// the backing file nor to other mappings of the same file region.
func (o *Options) Private() *Options {
	o.private = true
	return o
}

// Huge selects a huge-page size class (Huge2MB or Huge1GB). Linux only;
// a no-op elsewhere.
func (o *Options) Huge(class uint8) *Options {
	o.huge = class
	return o
}

// NoReserve suppresses backing-store reservation for the mapping. No-op on
// Windows.
func (o *Options) NoReserve() *Options {
	o.noReserve = true
	return o
}

// Map creates a read-only mapping of f.
func (o *Options) Map(f *os.File) (*Mmap, error) {
	length, err := o.fileLength(f)
	if err != nil {
		return nil, err
	}
	r, err := region.Map(f, o.offset, length, o.config())
	if err != nil {
		return nil, err
	}
	return &Mmap{r: r}, nil
}

// MapExec creates a readable and executable mapping of f.
func (o *Options) MapExec(f *os.File) (*Mmap, error) {
	length, err := o.fileLength(f)
	if err != nil {
		return nil, err
	}
	r, err := region.MapExec(f, o.offset, length, o.config())
	if err != nil {
		return nil, err
	}
	return &Mmap{r: r}, nil
}

// MapMut creates a readable and writable mapping of f. The file must be
// open for reading and writing; a mismatch surfaces as the OS's permission
// error.
func (o *Options) MapMut(f *os.File) (*MmapMut, error) {
	length, err := o.fileLength(f)
	if err != nil {
		return nil, err
	}
	r, err := region.MapMut(f, o.offset, length, o.config())
	if err != nil {
		return nil, err
	}
	return &MmapMut{r: r}, nil
}

// MapCopy creates a copy-on-write mapping of f. Writes are visible neither
// to the file nor to other mappings of it.
func (o *Options) MapCopy(f *os.File) (*MmapMut, error) {
	length, err := o.fileLength(f)
	if err != nil {
		return nil, err
	}
	r, err := region.MapCopy(f, o.offset, length, o.config())
	if err != nil {
		return nil, err
	}
	return &MmapMut{r: r}, nil
}

// MapAnon creates an anonymous mapping backed by volatile memory. The
// length must have been configured with Length; the offset is ignored.
func (o *Options) MapAnon() (*MmapMut, error) {
	r, err := region.MapAnon(o.length, o.config())
	if err != nil {
		return nil, err
	}
	return &MmapMut{r: r}, nil
}

// fileLength returns the configured length, or the file length minus the
// offset.
func (o *Options) fileLength(f *os.File) (int, error) {
	if o.hasLength {
		return o.length, nil
	}
	fi, err := f.Stat()
	if err != nil {
		return 0, err
	}
	size := fi.Size()
	if size < o.offset || size-o.offset > math.MaxInt {
		return 0, ErrLengthOverflow
	}
	return int(size - o.offset), nil
}

func (o *Options) config() region.Config {
	return region.Config{
		Stack:     o.stack,
		Locked:    o.locked,
		Private:   o.private,
		NoReserve: o.noReserve,
		Huge:      o.huge,
	}
}

// Map creates a read-only mapping of the whole of f. Equivalent to
// NewOptions().Map(f).
func Map(f *os.File) (*Mmap, error) {
	return NewOptions().Map(f)
}

// MapMut creates a writable mapping of the whole of f. Equivalent to
// NewOptions().MapMut(f).
func MapMut(f *os.File) (*MmapMut, error) {
	return NewOptions().MapMut(f)
}

// MapAnon creates an anonymous mapping of the given length. Equivalent to
// NewOptions().Length(length).MapAnon().
func MapAnon(length int) (*MmapMut, error) {
	return NewOptions().Length(length).MapAnon()
}
