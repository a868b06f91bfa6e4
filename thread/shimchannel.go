//go:build linux

package thread

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"github.com/dustin/go-humanize"
	"github.com/thanhpk/randstr"
	"golang.org/x/sys/unix"

	db "github.com/chrisjcox79/shadow/debug"
	"github.com/chrisjcox79/shadow/params"
)

// The shim channel is a shared-memory mailbox pair between the
// supervisor and the preloaded library in the guest: one mailbox per
// direction, each a futex word plus a fixed-layout event. The guest
// spins on the futex word up to Shim.SPIN_MAX before sleeping; the
// layout below is shared with the shim and must not change.

type ShimEventKind uint32

const (
	ShimEventStart ShimEventKind = iota + 1
	ShimEventSyscall
	ShimEventSyscallComplete
	ShimEventBlock
	ShimEventResume
	ShimEventExit
)

type ShimEvent struct {
	Kind ShimEventKind
	Tid  uint32
	Num  uint64
	Args [6]uint64
	Ret  uint64
}

const (
	mailboxStateEmpty uint32 = 0
	mailboxStateFull  uint32 = 1

	// futex word (4) + pad (4) + kind (4) + tid (4) + num (8) +
	// args (48) + ret (8)
	mailboxSize = 80
	eventOff    = 8

	// two mailboxes: guest->supervisor at 0, supervisor->guest at one
	// mailboxSize offset
	channelSize = 2 * mailboxSize
)

type mailbox struct {
	mem []byte
}

func (mb *mailbox) state() *uint32 {
	return (*uint32)(unsafe.Pointer(&mb.mem[0]))
}

func (mb *mailbox) encode(ev *ShimEvent) {
	b := mb.mem[eventOff:]
	binary.LittleEndian.PutUint32(b[0:], uint32(ev.Kind))
	binary.LittleEndian.PutUint32(b[4:], ev.Tid)
	binary.LittleEndian.PutUint64(b[8:], ev.Num)
	for i, a := range ev.Args {
		binary.LittleEndian.PutUint64(b[16+8*i:], a)
	}
	binary.LittleEndian.PutUint64(b[64:], ev.Ret)
}

func (mb *mailbox) decode(ev *ShimEvent) {
	b := mb.mem[eventOff:]
	ev.Kind = ShimEventKind(binary.LittleEndian.Uint32(b[0:]))
	ev.Tid = binary.LittleEndian.Uint32(b[4:])
	ev.Num = binary.LittleEndian.Uint64(b[8:])
	for i := range ev.Args {
		ev.Args[i] = binary.LittleEndian.Uint64(b[16+8*i:])
	}
	ev.Ret = binary.LittleEndian.Uint64(b[64:])
}

// Linux futex operation codes (linux/futex.h); not exported by x/sys/unix.
const (
	futexOpWait = 0
	futexOpWake = 1
)

// futexWait sleeps with a bounded timeout so a racing Close cannot
// strand a waiter whose wakeup fired before it slept.
func futexWait(addr *uint32, val uint32) {
	ts := unix.Timespec{Sec: 0, Nsec: 10 * 1000 * 1000}
	unix.Syscall6(unix.SYS_FUTEX, uintptr(unsafe.Pointer(addr)),
		uintptr(futexOpWait), uintptr(val), uintptr(unsafe.Pointer(&ts)), 0, 0)
}

func futexWake(addr *uint32) {
	unix.Syscall6(unix.SYS_FUTEX, uintptr(unsafe.Pointer(addr)),
		uintptr(futexOpWake), 1, 0, 0, 0)
}

// await spins up to spinMax on the futex word, then sleeps.
func await(addr *uint32, want uint32, closed *uint32) bool {
	spinMax := params.Conf.Shim.SPIN_MAX
	spins := 0
	for {
		if atomic.LoadUint32(closed) != 0 {
			return false
		}
		cur := atomic.LoadUint32(addr)
		if cur == want {
			return true
		}
		spins++
		if spinMax >= 0 && spins > spinMax {
			futexWait(addr, cur)
			spins = 0
		}
	}
}

// ShimChannel is the supervisor's end of the channel.
type ShimChannel struct {
	name   string
	file   *os.File
	mem    []byte
	toSup  mailbox // guest -> supervisor
	toGst  mailbox // supervisor -> guest
	closed uint32
}

func NewShimChannel() (*ShimChannel, error) {
	name := "shadow-shim-" + randstr.Hex(8)
	fd, err := unix.MemfdCreate(name, unix.MFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("memfd_create %v: %v", name, err)
	}
	if err := unix.Ftruncate(fd, channelSize); err != nil {
		unix.Close(fd)
		return nil, err
	}
	mem, err := unix.Mmap(fd, 0, channelSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	ch := &ShimChannel{
		name:  name,
		file:  os.NewFile(uintptr(fd), name),
		mem:   mem,
		toSup: mailbox{mem: mem[0:mailboxSize]},
		toGst: mailbox{mem: mem[mailboxSize:channelSize]},
	}
	db.DPrintf(db.SHIM, "channel %v mapped (%v)", name, humanize.Bytes(uint64(channelSize)))
	return ch, nil
}

func (ch *ShimChannel) Name() string {
	return ch.name
}

// File is the memfd handed to the guest (inherited fd).
func (ch *ShimChannel) File() *os.File {
	return ch.file
}

// Send posts an event to the guest.
func (ch *ShimChannel) Send(ev *ShimEvent) bool {
	st := ch.toGst.state()
	if !await(st, mailboxStateEmpty, &ch.closed) {
		return false
	}
	ch.toGst.encode(ev)
	atomic.StoreUint32(st, mailboxStateFull)
	futexWake(st)
	return true
}

// Recv blocks for the guest's next event.
func (ch *ShimChannel) Recv(ev *ShimEvent) bool {
	st := ch.toSup.state()
	if !await(st, mailboxStateFull, &ch.closed) {
		return false
	}
	ch.toSup.decode(ev)
	atomic.StoreUint32(st, mailboxStateEmpty)
	futexWake(st)
	return true
}

// GuestSend and GuestRecv are the guest-side halves, used by loopback
// tests in place of the shim.
func (ch *ShimChannel) GuestSend(ev *ShimEvent) bool {
	st := ch.toSup.state()
	if !await(st, mailboxStateEmpty, &ch.closed) {
		return false
	}
	ch.toSup.encode(ev)
	atomic.StoreUint32(st, mailboxStateFull)
	futexWake(st)
	return true
}

func (ch *ShimChannel) GuestRecv(ev *ShimEvent) bool {
	st := ch.toGst.state()
	if !await(st, mailboxStateFull, &ch.closed) {
		return false
	}
	ch.toGst.decode(ev)
	atomic.StoreUint32(st, mailboxStateEmpty)
	futexWake(st)
	return true
}

// Close tears down the channel and unblocks any waiter.
func (ch *ShimChannel) Close() {
	atomic.StoreUint32(&ch.closed, 1)
	futexWake(ch.toSup.state())
	futexWake(ch.toGst.state())
	unix.Munmap(ch.mem)
	ch.file.Close()
}
