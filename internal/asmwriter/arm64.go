//go:build arm64

package asmwriter

// x16 (IP0) is the AArch64 PCS's designated intra-procedure-call scratch
// register — the architecturally sanctioned register for exactly this
// "veneer" use.

// EmitLoadReturnAddress writes "mov x1, x30": the thunk is reached by a
// branch (not BL), so LR (x30) still holds the return address of the
// original call the cave intercepted.
func EmitLoadReturnAddress(b *Buffer) {
	// MOV x1, x30 == ORR x1, xzr, x30
	emitWord(b, 0xAA1E03E1)
}

// EmitLoadImmediate64 builds imm into x0 via a MOVZ/MOVK ladder — the
// lookup function's first argument.
func EmitLoadImmediate64(b *Buffer, imm uint64) {
	emitMovImm64(b, 0, imm)
}

// EmitAbsoluteCall builds target into x16 then BLR x16. BLR writes the
// address of the following instruction into LR (x30), replacing whatever
// LR held before.
func EmitAbsoluteCall(b *Buffer, target uint64) {
	emitMovImm64(b, 16, target)
	// BLR x16: 1101011 0 0 01 11111 000000 10000 00000
	emitWord(b, 0xD63F0200)
}

// EmitJumpResult writes "br x0": branches to whatever the lookup function
// just returned (AAPCS64 return register).
func EmitJumpResult(b *Buffer) {
	// BR x0
	emitWord(b, 0xD61F0000)
}

// EmitAbsoluteJump builds target into x16 then BR x16 — used to patch the
// cave itself.
func EmitAbsoluteJump(b *Buffer, target uint64) {
	emitMovImm64(b, 16, target)
	// BR x16
	emitWord(b, 0xD61F0200)
}

func emitWord(b *Buffer, w uint32) {
	b.Write(byte(w))
	b.Write(byte(w >> 8))
	b.Write(byte(w >> 16))
	b.Write(byte(w >> 24))
}

// emitMovImm64 emits MOVZ + up to three MOVK instructions loading imm into
// register rd, 16 bits at a time (the standard AArch64 64-bit immediate
// idiom; there is no single-instruction 64-bit immediate load).
func emitMovImm64(b *Buffer, rd uint32, imm uint64) {
	for shift := uint(0); shift < 64; shift += 16 {
		chunk := uint32((imm >> shift) & 0xFFFF)
		var word uint32
		if shift == 0 {
			word = 0xD2800000 | (chunk << 5) | rd // MOVZ rd, #chunk
		} else {
			hw := uint32(shift / 16)
			word = 0xF2800000 | (hw << 21) | (chunk << 5) | rd // MOVK rd, #chunk, LSL #shift
		}
		emitWord(b, word)
	}
}
