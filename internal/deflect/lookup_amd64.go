//go:build amd64

package deflect

// lookupScanEntry is a raw System V AMD64 ABI function (table pointer in
// RDI, return-address in RSI, result in RAX), implemented in
// lookup_amd64.s. It takes no Go-visible arguments and is NOSPLIT: nothing
// ever calls it through Go's calling convention, only via the thunk bytes
// asmwriter emits into a cave's trampoline (EmitAbsoluteCall), so it needs
// no g/stack-guard setup — the same "funcPC of a no-arg NOSPLIT function is
// a safe raw entry point" trick the runtime itself uses for low-level
// trampolines.
func lookupScanEntry()

func lookupScanEntryAddr() uint64 {
	return uint64(funcEntryPC(lookupScanEntry))
}
