package modules

import (
	"testing"

	"github.com/xyproto/inproc/internal/procfs"
)

func TestBaseName(t *testing.T) {
	if got := baseName("/lib/x86_64-linux-gnu/libc.so.6"); got != "libc.so.6" {
		t.Fatalf("baseName = %q", got)
	}
	if got := baseName(""); got != "" {
		t.Fatalf("baseName(\"\") = %q, want empty", got)
	}
}

func TestLooksLikeModulePath(t *testing.T) {
	cases := map[string]bool{
		"/lib/libc.so.6": true,
		"[vdso]":         true,
		"/dev/zero":      false,
		"relative.so":    false,
		"":               false,
	}
	for path, want := range cases {
		if got := looksLikeModulePath(path); got != want {
			t.Fatalf("looksLikeModulePath(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestInternReusesDescriptor(t *testing.T) {
	a := intern("libfoo.so", "/lib/libfoo.so", procfs.Range{Base: 0x1000, Size: 0x2000})
	b := intern("libfoo.so", "/lib/libfoo.so", procfs.Range{Base: 0x9999, Size: 1})
	if a != b {
		t.Fatalf("intern() returned different descriptors for the same path")
	}
	if a.Range.Base != 0x1000 {
		t.Fatalf("second intern() call mutated the cached descriptor")
	}
}

func TestMatchesModuleName(t *testing.T) {
	m := &Module{Name: "libc.so.6", Path: "/lib/x86_64-linux-gnu/libc.so.6"}
	if !matchesModuleName(m, "libc.so.6") {
		t.Fatalf("expected basename match")
	}
	if !matchesModuleName(m, "linux-gnu/libc.so.6") {
		t.Fatalf("expected path-suffix match")
	}
	if matchesModuleName(m, "libssl.so") {
		t.Fatalf("unexpected match")
	}
}
