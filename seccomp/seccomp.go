// Package seccomp builds the syscall filter installed in a guest
// before exec: syscalls the supervisor emulates are marked for trace,
// everything else passes through natively.
package seccomp

import (
	"fmt"
	"os"
	"strings"

	seccomp "github.com/seccomp/libseccomp-golang"
	"gopkg.in/yaml.v3"

	db "github.com/chrisjcox79/shadow/debug"
)

// Table lists the syscalls trapped for emulation. Anything not listed
// runs natively in the guest.
type Table struct {
	Interposed []string `yaml:"interposed"`
}

func (tbl *Table) String() string {
	return fmt.Sprintf("{ Interposed:%v }", tbl.Interposed)
}

// Default interposition table: time, sleep, and the socket surface.
var defaultTable = `
interposed:
  - nanosleep
  - clock_nanosleep
  - clock_gettime
  - gettimeofday
  - time
  - epoll_wait
  - epoll_pwait
  - poll
  - ppoll
  - select
  - pselect6
  - socket
  - bind
  - connect
  - listen
  - accept
  - accept4
  - sendto
  - recvfrom
  - sendmsg
  - recvmsg
  - read
  - write
`

func DefaultTable() *Table {
	tbl := &Table{}
	d := yaml.NewDecoder(strings.NewReader(defaultTable))
	if err := d.Decode(tbl); err != nil {
		db.DFatalf("decode default interposition table: %v", err)
	}
	return tbl
}

// ReadTable loads an interposition table from a YAML file.
func ReadTable(pn string) (*Table, error) {
	b, err := os.ReadFile(pn)
	if err != nil {
		return nil, err
	}
	tbl := &Table{}
	if err := yaml.Unmarshal(b, tbl); err != nil {
		return nil, err
	}
	return tbl, nil
}

// BuildFilter constructs a filter that allows all syscalls except the
// interposed ones, which are marked for the tracer. (Note: NewFilter
// enables TSync so all threads receive the filter.)
func BuildFilter(tbl *Table) (*seccomp.ScmpFilter, error) {
	filter, err := seccomp.NewFilter(seccomp.ActAllow)
	if err != nil {
		return nil, err
	}
	for _, name := range tbl.Interposed {
		syscallID, err := seccomp.GetSyscallFromName(name)
		if err != nil {
			filter.Release()
			return nil, fmt.Errorf("unknown syscall %q: %v", name, err)
		}
		if err := filter.AddRule(syscallID, seccomp.ActTrace); err != nil {
			filter.Release()
			return nil, err
		}
	}
	return filter, nil
}

// LoadFilter installs the interposition filter in the calling process.
// The guest trampoline calls this immediately before exec.
func LoadFilter(tbl *Table) error {
	filter, err := BuildFilter(tbl)
	if err != nil {
		return err
	}
	defer filter.Release()
	db.DPrintf(db.SECCOMP, "load filter %v", tbl)
	return filter.Load()
}
