//go:build amd64

package asmwriter

// r11 is used as scratch throughout: caller-saved and not an
// argument-passing register in the System V ABI, so clobbering it cannot
// corrupt a live argument register at the cave or thunk site.

// EmitLoadReturnAddress writes "mov rsi, [rsp]": the thunk is reached by an
// absolute jump (not a call), so the top of stack still holds the return
// address of the original call the cave intercepted.
func EmitLoadReturnAddress(b *Buffer) {
	b.Write(0x48) // REX.W
	b.Write(0x8B) // MOV rsi, [rsp]
	b.Write(0x34)
	b.Write(0x24)
}

// EmitLoadImmediate64 writes "mov rdi, imm64" — the lookup function's first
// argument, the dispatcher's table pointer.
func EmitLoadImmediate64(b *Buffer, imm uint64) {
	b.Write(0x48) // REX.W
	b.Write(0xBF) // MOV rdi, imm64
	b.Write8LE(imm)
}

// EmitAbsoluteCall writes "movabs r11, target; call r11": calling (not
// jumping) preserves the original return address already on the stack,
// since call+ret is balanced around it.
func EmitAbsoluteCall(b *Buffer, target uint64) {
	b.Write(0x49) // REX.W | REX.B
	b.Write(0xBB) // MOV r11, imm64
	b.Write8LE(target)
	b.Write(0x41) // REX.B
	b.Write(0xFF) // CALL /2
	b.Write(0xD3)
}

// EmitJumpResult writes "jmp rax": branches to whatever the lookup
// function just returned, leaving the original return address untouched
// on the stack.
func EmitJumpResult(b *Buffer) {
	b.Write(0xFF) // JMP /4
	b.Write(0xE0)
}

// EmitAbsoluteJump writes "movabs r11, target; jmp r11" — used to patch the
// cave itself, branching unconditionally to the thunk.
func EmitAbsoluteJump(b *Buffer, target uint64) {
	b.Write(0x49)
	b.Write(0xBB)
	b.Write8LE(target)
	b.Write(0x41)
	b.Write(0xFF)
	b.Write(0xE3)
}
