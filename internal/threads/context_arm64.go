//go:build arm64

package threads

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Arm64Context is the AArch64 tagged-union member of CPUContext.
type Arm64Context struct {
	regs unix.PtraceRegs
}

var _ CPUContext = (*Arm64Context)(nil)

func (c *Arm64Context) PC() uint64     { return c.regs.Pc }
func (c *Arm64Context) SetPC(v uint64) { c.regs.Pc = v }
func (c *Arm64Context) SP() uint64     { return c.regs.Sp }
func (c *Arm64Context) SetSP(v uint64) { c.regs.Sp = v }

func (c *Arm64Context) clone() CPUContext {
	cp := *c
	return &cp
}

// Reg accepts "x0".."x30", "sp", "pc", "pstate".
func (c *Arm64Context) Reg(name string) (uint64, bool) {
	if idx, ok := xRegIndex(name); ok {
		return c.regs.Regs[idx], true
	}
	switch name {
	case "sp", "pc":
		if name == "sp" {
			return c.regs.Sp, true
		}
		return c.regs.Pc, true
	case "pstate", "flags":
		return c.regs.Pstate, true
	}
	return 0, false
}

func (c *Arm64Context) SetReg(name string, v uint64) bool {
	if idx, ok := xRegIndex(name); ok {
		c.regs.Regs[idx] = v
		return true
	}
	switch name {
	case "sp":
		c.regs.Sp = v
	case "pc":
		c.regs.Pc = v
	case "pstate", "flags":
		c.regs.Pstate = v
	default:
		return false
	}
	return true
}

func xRegIndex(name string) (int, bool) {
	if len(name) < 2 || name[0] != 'x' {
		return 0, false
	}
	n := 0
	for _, c := range name[1:] {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	if n < 0 || n > 30 {
		return 0, false
	}
	return n, true
}

func nativeContext() CPUContext { return &Arm64Context{} }

func (c *Arm64Context) ptraceRegsPtr() unsafe.Pointer { return unsafe.Pointer(&c.regs) }
func (c *Arm64Context) ptraceRegsSize() int           { return int(unsafe.Sizeof(c.regs)) }
