//go:build arm64

package deflect

// lookupScanEntry is a raw AAPCS64 function (table pointer in x0,
// return-address in x1, result in x0), implemented in lookup_arm64.s. See
// lookup_amd64.go's doc comment for why a no-arg NOSPLIT Go function is a
// safe way to obtain a raw entry point here.
func lookupScanEntry()

func lookupScanEntryAddr() uint64 {
	return uint64(funcEntryPC(lookupScanEntry))
}
