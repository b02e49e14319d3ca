package tempfiles

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestSetRemoveAll(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	b := filepath.Join(dir, "b.docx")
	touch(t, a)
	touch(t, b)

	var s Set
	s.Add(a)
	s.Add(b)
	s.Add(filepath.Join(dir, "never-created.pdf"))
	s.RemoveAll()

	assert.NoFileExists(t, a)
	assert.NoFileExists(t, b)
}

func TestSweepDirRespectsPrefixAndAge(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "conv-stale.png")
	fresh := filepath.Join(dir, "conv-fresh.png")
	other := filepath.Join(dir, "keep.txt")
	touch(t, stale)
	touch(t, fresh)
	touch(t, other)

	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))
	require.NoError(t, os.Chtimes(other, old, old))

	SweepDir(dir, []string{"conv-"}, time.Hour)

	assert.NoFileExists(t, stale)
	assert.FileExists(t, fresh, "recent files survive the sweep")
	assert.FileExists(t, other, "unrelated files survive the sweep")
}
