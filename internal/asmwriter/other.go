//go:build !amd64 && !arm64

package asmwriter

// No encoder exists on architectures outside this module's target set.
// Callers must check deflect.Supported() before attempting cave
// installation on such builds; these are never invoked there.
func EmitLoadReturnAddress(b *Buffer)           {}
func EmitLoadImmediate64(b *Buffer, imm uint64) {}
func EmitAbsoluteCall(b *Buffer, target uint64) {}
func EmitAbsoluteJump(b *Buffer, target uint64) {}
func EmitJumpResult(b *Buffer)                  {}
