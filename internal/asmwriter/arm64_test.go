//go:build arm64

package asmwriter

import "testing"

func TestEmitLoadReturnAddressARM64(t *testing.T) {
	b := &Buffer{}
	EmitLoadReturnAddress(b)
	assertBytes(t, b.Bytes(), []byte{0xE1, 0x03, 0x1E, 0xAA})
}

func TestEmitJumpResultARM64(t *testing.T) {
	b := &Buffer{}
	EmitJumpResult(b)
	assertBytes(t, b.Bytes(), []byte{0x00, 0x00, 0x1F, 0xD6})
}

func TestEmitLoadImmediate64ARM64(t *testing.T) {
	b := &Buffer{}
	EmitLoadImmediate64(b, 0x1122334455667788)
	// MOVZ x0, #0x7788; MOVK x0, #0x5566, LSL #16; MOVK x0, #0x3344, LSL #32; MOVK x0, #0x1122, LSL #48
	want := []byte{
		0x00, 0xF1, 0x8E, 0xD2,
		0xC0, 0xAC, 0xAA, 0xF2,
		0x80, 0x68, 0xC6, 0xF2,
		0x40, 0x24, 0xE2, 0xF2,
	}
	assertBytes(t, b.Bytes(), want)
}

func TestEmitAbsoluteJumpARM64(t *testing.T) {
	b := &Buffer{}
	EmitAbsoluteJump(b, 0x1)
	if b.Len() != 20 {
		t.Fatalf("EmitAbsoluteJump produced %d bytes, want 20 (4 mov + 1 branch words)", b.Len())
	}
	// Last word is BR x16.
	assertBytes(t, b.Bytes()[16:], []byte{0x00, 0x02, 0x1F, 0xD6})
}

func TestEmitAbsoluteCallARM64(t *testing.T) {
	b := &Buffer{}
	EmitAbsoluteCall(b, 0x1)
	if b.Len() != 20 {
		t.Fatalf("EmitAbsoluteCall produced %d bytes, want 20 (4 mov + 1 branch words)", b.Len())
	}
	// Last word is BLR x16.
	assertBytes(t, b.Bytes()[16:], []byte{0x00, 0x02, 0x3F, 0xD6})
}
