//go:build linux && amd64

package thread

import (
	"golang.org/x/sys/unix"
)

func syscallNum(regs *unix.PtraceRegs) uint64 {
	return regs.Orig_rax
}

func syscallArgs(regs *unix.PtraceRegs) [6]uint64 {
	return [6]uint64{regs.Rdi, regs.Rsi, regs.Rdx, regs.R10, regs.R8, regs.R9}
}

func syscallRet(regs *unix.PtraceRegs) uint64 {
	return regs.Rax
}
