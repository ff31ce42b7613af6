//go:build amd64

package threads

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Amd64Context is the x86-64 tagged-union member of CPUContext.
type Amd64Context struct {
	regs unix.PtraceRegs
}

var _ CPUContext = (*Amd64Context)(nil)

func (c *Amd64Context) PC() uint64      { return c.regs.Rip }
func (c *Amd64Context) SetPC(v uint64)  { c.regs.Rip = v }
func (c *Amd64Context) SP() uint64      { return c.regs.Rsp }
func (c *Amd64Context) SetSP(v uint64)  { c.regs.Rsp = v }
func (c *Amd64Context) Flags() uint64   { return c.regs.Eflags }

func (c *Amd64Context) clone() CPUContext {
	cp := *c
	return &cp
}

func (c *Amd64Context) Reg(name string) (uint64, bool) {
	switch name {
	case "rax":
		return c.regs.Rax, true
	case "rbx":
		return c.regs.Rbx, true
	case "rcx":
		return c.regs.Rcx, true
	case "rdx":
		return c.regs.Rdx, true
	case "rsi":
		return c.regs.Rsi, true
	case "rdi":
		return c.regs.Rdi, true
	case "rbp":
		return c.regs.Rbp, true
	case "r8":
		return c.regs.R8, true
	case "r9":
		return c.regs.R9, true
	case "r10":
		return c.regs.R10, true
	case "r11":
		return c.regs.R11, true
	case "r12":
		return c.regs.R12, true
	case "r13":
		return c.regs.R13, true
	case "r14":
		return c.regs.R14, true
	case "r15":
		return c.regs.R15, true
	case "rip", "pc":
		return c.regs.Rip, true
	case "rsp", "sp":
		return c.regs.Rsp, true
	case "eflags", "flags":
		return c.regs.Eflags, true
	}
	return 0, false
}

func (c *Amd64Context) SetReg(name string, v uint64) bool {
	switch name {
	case "rax":
		c.regs.Rax = v
	case "rbx":
		c.regs.Rbx = v
	case "rcx":
		c.regs.Rcx = v
	case "rdx":
		c.regs.Rdx = v
	case "rsi":
		c.regs.Rsi = v
	case "rdi":
		c.regs.Rdi = v
	case "rbp":
		c.regs.Rbp = v
	case "r8":
		c.regs.R8 = v
	case "r9":
		c.regs.R9 = v
	case "r10":
		c.regs.R10 = v
	case "r11":
		c.regs.R11 = v
	case "r12":
		c.regs.R12 = v
	case "r13":
		c.regs.R13 = v
	case "r14":
		c.regs.R14 = v
	case "r15":
		c.regs.R15 = v
	case "rip", "pc":
		c.regs.Rip = v
	case "rsp", "sp":
		c.regs.Rsp = v
	case "eflags", "flags":
		c.regs.Eflags = v
	default:
		return false
	}
	return true
}

// nativeContext constructs the zero-valued ISA-tagged context for this
// build target.
func nativeContext() CPUContext { return &Amd64Context{} }

func (c *Amd64Context) ptraceRegsPtr() unsafe.Pointer { return unsafe.Pointer(&c.regs) }
func (c *Amd64Context) ptraceRegsSize() int           { return int(unsafe.Sizeof(c.regs)) }
