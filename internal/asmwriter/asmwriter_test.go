package asmwriter

import "testing"

func TestBufferWrite8LEIsLittleEndian(t *testing.T) {
	b := &Buffer{}
	b.Write8LE(0x0102030405060708)
	want := []byte{0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01}
	got := b.Bytes()
	if len(got) != len(want) {
		t.Fatalf("Write8LE produced %d bytes, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d = %#x, want %#x", i, got[i], want[i])
		}
	}
}

func TestBufferWriteAppends(t *testing.T) {
	b := &Buffer{}
	b.Write(0xAA)
	b.WriteBytes([]byte{0xBB, 0xCC})
	if b.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", b.Len())
	}
	assertBytes(t, b.Bytes(), []byte{0xAA, 0xBB, 0xCC})
}

func assertBytes(t *testing.T, got, want []byte) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d bytes %x, want %d bytes %x", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d = %#x, want %#x (got %x, want %x)", i, got[i], want[i], got, want)
		}
	}
}
