package deflect

import "testing"

func TestCallerTableAddLookup(t *testing.T) {
	tbl, err := newCallerTable(4)
	if err != nil {
		t.Fatalf("newCallerTable: %v", err)
	}
	defer tbl.close()

	if !tbl.add(0x1000, 0x2000) {
		t.Fatal("add should succeed within capacity")
	}
	if !tbl.add(0x1100, 0x2100) {
		t.Fatal("add should succeed within capacity")
	}

	if v, ok := tbl.lookup(0x1000); !ok || v != 0x2000 {
		t.Fatalf("lookup(0x1000) = %#x, %v; want 0x2000, true", v, ok)
	}
	if v, ok := tbl.lookup(0x1100); !ok || v != 0x2100 {
		t.Fatalf("lookup(0x1100) = %#x, %v; want 0x2100, true", v, ok)
	}
	if _, ok := tbl.lookup(0x9999); ok {
		t.Fatal("lookup of unregistered return address should miss")
	}
}

func TestCallerTableCapacity(t *testing.T) {
	tbl, err := newCallerTable(2)
	if err != nil {
		t.Fatalf("newCallerTable: %v", err)
	}
	defer tbl.close()

	if !tbl.add(1, 1) || !tbl.add(2, 2) {
		t.Fatal("expected first two adds to succeed")
	}
	if tbl.add(3, 3) {
		t.Fatal("expected add beyond capacity to fail")
	}
}

func TestInstallNotSupportedArch(t *testing.T) {
	if !Supported() {
		if _, err := Install(Cave{}); err == nil {
			t.Fatal("expected Install to reject unsupported architectures")
		}
	}
}
