package seccomp_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chrisjcox79/shadow/seccomp"
)

func TestCompile(t *testing.T) {
}

func TestDefaultTable(t *testing.T) {
	tbl := seccomp.DefaultTable()
	assert.Contains(t, tbl.Interposed, "nanosleep")
	assert.Contains(t, tbl.Interposed, "connect")
}

func TestReadTable(t *testing.T) {
	pn := filepath.Join(t.TempDir(), "table.yml")
	err := os.WriteFile(pn, []byte("interposed:\n  - read\n  - write\n"), 0644)
	assert.Nil(t, err)
	tbl, err := seccomp.ReadTable(pn)
	assert.Nil(t, err)
	assert.Equal(t, []string{"read", "write"}, tbl.Interposed)
}

func TestReadTableMissing(t *testing.T) {
	_, err := seccomp.ReadTable(filepath.Join(t.TempDir(), "nope.yml"))
	assert.NotNil(t, err)
}
