package threads

import "testing"

func TestContextPCSPRoundTrip(t *testing.T) {
	ctx := nativeContext()
	ctx.SetPC(0xdeadbeef)
	ctx.SetSP(0xcafef00d)

	if got := ctx.PC(); got != 0xdeadbeef {
		t.Fatalf("PC() = %#x, want 0xdeadbeef", got)
	}
	if got := ctx.SP(); got != 0xcafef00d {
		t.Fatalf("SP() = %#x, want 0xcafef00d", got)
	}
}

func TestContextCloneDoesNotAlias(t *testing.T) {
	ctx := nativeContext()
	ctx.SetPC(1)

	cp := ctx.clone()
	cp.SetPC(2)

	if ctx.PC() != 1 {
		t.Fatalf("original PC changed after mutating clone: got %#x, want 1", ctx.PC())
	}
	if cp.PC() != 2 {
		t.Fatalf("clone PC() = %#x, want 2", cp.PC())
	}
}

func TestContextRegUnknownNameFails(t *testing.T) {
	ctx := nativeContext()
	if _, ok := ctx.Reg("not-a-real-register"); ok {
		t.Fatal("Reg on an unknown name should report false")
	}
	if ctx.SetReg("not-a-real-register", 1) {
		t.Fatal("SetReg on an unknown name should report false")
	}
}

func TestStateFromStatChar(t *testing.T) {
	cases := map[byte]ThreadState{
		'R': StateRunning,
		'S': StateWaiting,
		'D': StateUninterruptible,
		'Z': StateUninterruptible,
		'T': StateStopped,
		't': StateStopped,
		'X': StateHalted,
		'x': StateHalted,
		'?': StateUnknown,
	}
	for c, want := range cases {
		if got := stateFromStatChar(c); got != want {
			t.Errorf("stateFromStatChar(%q) = %v, want %v", c, got, want)
		}
	}
}
