package region

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func tempFile(t *testing.T, size int64) *os.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "region.dat")
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { f.Close() })
	if err := f.Truncate(size); err != nil {
		t.Fatal(err)
	}
	return f
}

func TestMapUnaligned(t *testing.T) {
	page := os.Getpagesize()
	f := tempFile(t, int64(3*page))

	// Recognizable bytes spanning the second page boundary.
	want := []byte("0123456789")
	offset := int64(page + 2)
	if _, err := f.WriteAt(want, offset); err != nil {
		t.Fatal(err)
	}

	r, err := Map(f, offset, len(want), Config{})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Release()

	if !bytes.Equal(r.Bytes(), want) {
		t.Errorf("visible bytes: got %q, want %q", r.Bytes(), want)
	}
	if r.Len() != len(want) {
		t.Errorf("length: got %d, want %d", r.Len(), len(want))
	}
}

func TestZeroLength(t *testing.T) {
	f := tempFile(t, 0)

	if _, err := Map(f, 0, 0, Config{}); err != ErrZeroLength {
		t.Errorf("file-backed zero length: got %v, want %v", err, ErrZeroLength)
	}
	if _, err := MapAnon(0, Config{}); err != ErrZeroLength {
		t.Errorf("anonymous zero length: got %v, want %v", err, ErrZeroLength)
	}
	if _, err := MapAnon(-1, Config{}); err != ErrZeroLength {
		t.Errorf("negative length: got %v, want %v", err, ErrZeroLength)
	}
}

func TestNegativeOffset(t *testing.T) {
	f := tempFile(t, 64)

	if _, err := Map(f, -1, 16, Config{}); err != ErrNegativeOffset {
		t.Errorf("read-only: got %v, want %v", err, ErrNegativeOffset)
	}
	if _, err := MapMut(f, -1, 16, Config{}); err != ErrNegativeOffset {
		t.Errorf("writable: got %v, want %v", err, ErrNegativeOffset)
	}
}

func TestReleaseIdempotent(t *testing.T) {
	r, err := MapAnon(128, Config{})
	if err != nil {
		t.Fatal(err)
	}

	r.Release()
	if !r.Released() {
		t.Fatal("region not marked released")
	}
	// The second call must not reach the OS again.
	r.Release()
}

func TestProtectTransitions(t *testing.T) {
	r, err := MapAnon(256, Config{})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Release()

	if r.Protection() != ReadWrite {
		t.Fatalf("initial protection: got %v, want %v", r.Protection(), ReadWrite)
	}
	copy(r.Bytes(), []byte("persists"))

	if err := r.MakeReadOnly(); err != nil {
		t.Fatal(err)
	}
	if r.Protection() != ReadOnly {
		t.Fatalf("after MakeReadOnly: got %v", r.Protection())
	}
	if !bytes.HasPrefix(r.Bytes(), []byte("persists")) {
		t.Error("bytes lost across transition")
	}

	if err := r.MakeMut(); err != nil {
		t.Fatal(err)
	}
	r.Bytes()[0] = 'P'

	if err := r.MakeExec(); err != nil {
		t.Fatal(err)
	}
	if r.Protection() != ReadExecute {
		t.Fatalf("after MakeExec: got %v", r.Protection())
	}
}

func TestFlushUnalignedRange(t *testing.T) {
	page := os.Getpagesize()
	f := tempFile(t, int64(4*page))

	offset := int64(page + 130)
	r, err := MapMut(f, offset, 2*page, Config{})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Release()

	copy(r.Bytes()[page-4:], []byte("spanning"))

	// A range crossing a page boundary at an unaligned start.
	if err := r.Flush(page-4, 8); err != nil {
		t.Fatal(err)
	}
	if err := r.FlushAsync(0, r.Len()); err != nil {
		t.Fatal(err)
	}

	got := make([]byte, 8)
	if _, err := f.ReadAt(got, offset+int64(page-4)); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte("spanning")) {
		t.Errorf("file after flush: got %q", got)
	}
}

func TestAnonymousFlushAdvisory(t *testing.T) {
	r, err := MapAnon(512, Config{})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Release()

	if !r.Anonymous() {
		t.Fatal("region not anonymous")
	}
	copy(r.Bytes(), []byte("volatile"))
	if err := r.Flush(0, r.Len()); err != nil {
		t.Errorf("flush on anonymous region: %v", err)
	}
}
