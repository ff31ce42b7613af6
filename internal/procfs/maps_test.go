package procfs

import (
	"bytes"
	"testing"
)

func TestParseMapping(t *testing.T) {
	cases := []struct {
		line string
		want Mapping
	}{
		{
			line: "00400000-00452000 r-xp 00000000 08:02 173521      /usr/bin/dbus-daemon",
			want: Mapping{Start: 0x400000, End: 0x452000, Perms: "r-xp", Offset: 0, Dev: "08:02", Inode: 173521, Path: "/usr/bin/dbus-daemon"},
		},
		{
			line: "7ffff7ff9000-7ffff7ffb000 r-xp 00000000 00:00 0                  [vdso]",
			want: Mapping{Start: 0x7ffff7ff9000, End: 0x7ffff7ffb000, Perms: "r-xp", Dev: "00:00", Path: "[vdso]"},
		},
		{
			line: "7ffff7dd1000-7ffff7dd3000 rw-p 00000000 00:00 0",
			want: Mapping{Start: 0x7ffff7dd1000, End: 0x7ffff7dd3000, Perms: "rw-p", Dev: "00:00", Path: ""},
		},
	}

	for _, tc := range cases {
		got, ok := ParseMapping([]byte(tc.line))
		if !ok {
			t.Fatalf("ParseMapping(%q) failed to parse", tc.line)
		}
		if got != tc.want {
			t.Fatalf("ParseMapping(%q) = %+v, want %+v", tc.line, got, tc.want)
		}
	}
}

func TestMapsIteratorBufferedLines(t *testing.T) {
	// Exercise line splitting and the clean-EOF path without a real file,
	// by feeding the iterator's internal buffer by hand.
	it := &MapsIterator{buf: make([]byte, 8)}
	it.filled = copy(it.buf, []byte("ab\ncd\n"))

	line, ok := it.Next()
	if !ok || string(line) != "ab" {
		t.Fatalf("first line = %q, %v", line, ok)
	}
	line, ok = it.Next()
	if !ok || string(line) != "cd" {
		t.Fatalf("second line = %q, %v", line, ok)
	}
	it.eof = true
	_, ok = it.Next()
	if ok {
		t.Fatalf("expected clean EOF after consuming both lines")
	}
}

func TestMapsPermHelpers(t *testing.T) {
	m := Mapping{Perms: "r-xp"}
	if !m.Readable() || m.Writable() || !m.Executable() || !m.Private() || m.Shared() {
		t.Fatalf("perm helpers mismatched for %+v", m)
	}
}

func TestParseAuxvWords(t *testing.T) {
	var buf bytes.Buffer
	writeWord := func(v uint64) {
		b := make([]byte, 8)
		for i := 0; i < 8; i++ {
			b[i] = byte(v >> (8 * i))
		}
		buf.Write(b)
	}
	writeWord(AT_PHENT)
	writeWord(56)
	writeWord(AT_PHNUM)
	writeWord(9)
	writeWord(AT_NULL)
	writeWord(0)

	av := parseAuxvWords(buf.Bytes())
	if v, ok := av.Lookup(AT_PHENT); !ok || v != 56 {
		t.Fatalf("AT_PHENT = %v, %v", v, ok)
	}
	if v, ok := av.Lookup(AT_PHNUM); !ok || v != 9 {
		t.Fatalf("AT_PHNUM = %v, %v", v, ok)
	}
}
