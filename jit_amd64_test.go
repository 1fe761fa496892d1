package mapr

import (
	"os"
	"path/filepath"
	"testing"
	"unsafe"
)

// mov eax, 0xAB; ret
var retAB = []byte{0xB8, 0xAB, 0x00, 0x00, 0x00, 0xC3}

func jitCall(t *testing.T, mut *MmapMut) {
	t.Helper()

	copy(mut.Data(), retAB)

	m, err := mut.MakeExec()
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	data := m.Data()
	if got := callByte(uintptr(unsafe.Pointer(&data[0]))); got != 0xAB {
		t.Fatalf("executed code returned %#x, want 0xab", got)
	}
}

func TestExecAnon(t *testing.T) {
	mut, err := MapAnon(4096)
	if err != nil {
		t.Fatal(err)
	}
	jitCall(t, mut)
}

func TestExecFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jit.bin")
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0755)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := f.Truncate(4096); err != nil {
		t.Fatal(err)
	}

	mut, err := MapMut(f)
	if err != nil {
		t.Fatal(err)
	}

	copy(mut.Data(), retAB)
	m, err := mut.MakeExec()
	if err != nil {
		// Temp directories can sit on a filesystem mounted noexec.
		t.Skipf("executable file mapping rejected: %v", err)
	}
	defer m.Close()

	data := m.Data()
	if got := callByte(uintptr(unsafe.Pointer(&data[0]))); got != 0xAB {
		t.Fatalf("executed code returned %#x, want 0xab", got)
	}
}
