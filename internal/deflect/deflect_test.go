package deflect

import (
	"bytes"
	"testing"
	"unsafe"

	"github.com/xyproto/inproc/internal/procfs"
	"golang.org/x/sys/unix"
)

func TestWithinDistance(t *testing.T) {
	if !withinDistance(100, 100, 10) {
		t.Fatal("addr == near should always be within distance")
	}
	if !withinDistance(105, 100, 10) {
		t.Fatal("addr within [near-10, near+10] should be within distance")
	}
	if withinDistance(111, 100, 10) {
		t.Fatal("addr past near+maxDistance should not be within distance")
	}
}

func TestAllZero(t *testing.T) {
	if !allZero([]byte{0, 0, 0}) {
		t.Fatal("all-zero slice should report true")
	}
	if allZero([]byte{0, 0, 1}) {
		t.Fatal("slice with a nonzero byte should report false")
	}
	if !allZero(nil) {
		t.Fatal("empty slice should vacuously report true")
	}
}

// fakeCave mmaps one anonymous RWX page and writes an ELF-magic-plus-zero
// pattern at its start, mimicking what FindCave looks for in a real
// /proc/self/maps scan without depending on this test binary's own layout
// happening to contain one.
func fakeCave(t *testing.T) (Cave, []byte) {
	t.Helper()
	size := unix.Getpagesize()
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		t.Fatalf("mmap: %v", err)
	}
	copy(data, elfMagic)
	for i := 4; i < 4+caveProbeSize; i++ {
		data[i] = 0
	}
	addr := uintptr(unsafe.Pointer(&data[0]))
	cave := Cave{Address: addr + 4, mapping: procfs.Mapping{Start: uint64(addr), End: uint64(addr) + uint64(size), Perms: "r-xp"}}
	return cave, data
}

func TestInstallAddDeflectorLookupDestroy(t *testing.T) {
	if !Supported() {
		t.Skip("no trampoline encoder for this architecture")
	}

	cave, page := fakeCave(t)
	defer unix.Munmap(page)

	d, err := Install(cave)
	if err != nil {
		t.Fatalf("Install: %v", err)
	}

	if !d.AddDeflector(0x1234, 0x5678) {
		t.Fatal("AddDeflector should succeed on a fresh dispatcher")
	}
	target, ok := d.Lookup(0x1234)
	if !ok || target != 0x5678 {
		t.Fatalf("Lookup(0x1234) = %#x, %v; want 0x5678, true", target, ok)
	}
	if _, ok := d.Lookup(0x9999); ok {
		t.Fatal("Lookup of an unregistered return address should miss")
	}

	patched, err := readMem(cave.Address-4, caveProbeSize+4)
	if err != nil {
		t.Fatalf("readMem after Install: %v", err)
	}
	if bytes.Equal(patched[4:4+caveProbeSize], make([]byte, caveProbeSize)) {
		t.Fatal("cave bytes should no longer be all-zero after Install patches in the trampoline jump")
	}

	if err := d.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}

	restored, err := readMem(cave.Address, caveProbeSize)
	if err != nil {
		t.Fatalf("readMem after Destroy: %v", err)
	}
	if !allZero(restored) {
		t.Fatalf("Destroy should restore the original all-zero probe bytes, got %x", restored)
	}
}

func TestInstallRejectsUnsupportedArch(t *testing.T) {
	if Supported() {
		t.Skip("this architecture has an encoder; unsupported-arch path not reachable")
	}
	if _, err := Install(Cave{}); err == nil {
		t.Fatal("Install should fail without a trampoline encoder")
	}
}
