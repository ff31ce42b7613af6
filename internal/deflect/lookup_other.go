//go:build !amd64 && !arm64

package deflect

// No raw scan entry exists outside this module's target architectures;
// Install() checks Supported() before ever needing this.
func lookupScanEntryAddr() uint64 { return 0 }
