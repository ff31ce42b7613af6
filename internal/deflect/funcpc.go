package deflect

import "reflect"

// funcEntryPC returns the entry address of a package-level, no-argument
// function — used only to obtain raw machine-code entry points for the
// NOSPLIT assembly stubs in lookup_amd64.s / lookup_arm64.s, never to call
// through Go's calling convention.
func funcEntryPC(fn func()) uintptr {
	return reflect.ValueOf(fn).Pointer()
}
