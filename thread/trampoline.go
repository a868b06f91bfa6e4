//go:build linux

package thread

import (
	"os"

	"golang.org/x/sys/unix"

	db "github.com/chrisjcox79/shadow/debug"
	"github.com/chrisjcox79/shadow/seccomp"
)

// TrampolineMain is the guest-side bootstrap. A binary embedding this
// package dispatches here early in main when it was re-executed as a
// spawn trampoline (argv[0] is the trampoline, argv[1] the plugin).
// It applies the seccomp interposition filter for ptrace guests, then
// execs the plugin in place. It does not return on success.
func TrampolineMain() {
	if len(os.Args) < 2 {
		db.DFatalf("trampoline: no plugin path")
	}
	exePath := os.Args[1]
	argv := os.Args[1:]

	if os.Getenv("SHADOW_INTERPOSE") == "PTRACE" {
		tbl := seccomp.DefaultTable()
		if pn := os.Getenv("SHADOW_INTERPOSE_TABLE"); pn != "" {
			t, err := seccomp.ReadTable(pn)
			if err != nil {
				db.DFatalf("trampoline: read table %v: %v", pn, err)
			}
			tbl = t
		}
		if err := seccomp.LoadFilter(tbl); err != nil {
			db.DFatalf("trampoline: load filter: %v", err)
		}
	}

	if err := unix.Exec(exePath, argv, os.Environ()); err != nil {
		db.DFatalf("trampoline: exec %v: %v", exePath, err)
	}
}
