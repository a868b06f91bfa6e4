//go:build linux && arm64

package thread

import (
	"golang.org/x/sys/unix"
)

func syscallNum(regs *unix.PtraceRegs) uint64 {
	return regs.Regs[8]
}

func syscallArgs(regs *unix.PtraceRegs) [6]uint64 {
	return [6]uint64{regs.Regs[0], regs.Regs[1], regs.Regs[2], regs.Regs[3], regs.Regs[4], regs.Regs[5]}
}

func syscallRet(regs *unix.PtraceRegs) uint64 {
	return regs.Regs[0]
}
