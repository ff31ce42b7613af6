//go:build amd64

package asmwriter

import "testing"

func TestEmitLoadReturnAddress(t *testing.T) {
	b := &Buffer{}
	EmitLoadReturnAddress(b)
	want := []byte{0x48, 0x8B, 0x34, 0x24}
	assertBytes(t, b.Bytes(), want)
}

func TestEmitLoadImmediate64(t *testing.T) {
	b := &Buffer{}
	EmitLoadImmediate64(b, 0x1122334455667788)
	want := []byte{0x48, 0xBF, 0x88, 0x77, 0x66, 0x55, 0x44, 0x33, 0x22, 0x11}
	assertBytes(t, b.Bytes(), want)
}

func TestEmitAbsoluteCall(t *testing.T) {
	b := &Buffer{}
	EmitAbsoluteCall(b, 0xAABBCCDDEEFF0011)
	want := []byte{
		0x49, 0xBB, 0x11, 0x00, 0xFF, 0xEE, 0xDD, 0xCC, 0xBB, 0xAA,
		0x41, 0xFF, 0xD3,
	}
	assertBytes(t, b.Bytes(), want)
}

func TestEmitAbsoluteJump(t *testing.T) {
	b := &Buffer{}
	EmitAbsoluteJump(b, 0x1)
	want := []byte{
		0x49, 0xBB, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x41, 0xFF, 0xE3,
	}
	assertBytes(t, b.Bytes(), want)
}

func TestEmitJumpResult(t *testing.T) {
	b := &Buffer{}
	EmitJumpResult(b)
	assertBytes(t, b.Bytes(), []byte{0xFF, 0xE0})
}
