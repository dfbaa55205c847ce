package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "src.bin", "some bytes\x00\x01")
	dst := filepath.Join(dir, "dst.bin")

	require.NoError(t, CopyFile(src, dst))
	b, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "some bytes\x00\x01", string(b))

	assert.Error(t, CopyFile(filepath.Join(dir, "missing"), dst))
	assert.Error(t, CopyFile(src, filepath.Join(dir, "no-such-dir", "dst.bin")))
}

func TestPersist(t *testing.T) {
	staging, files := t.TempDir(), t.TempDir()
	staged := writeFile(t, staging, "report.pdf", "first")

	path, err := Persist(staged, files, "report.pdf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(files, "report.pdf"), path)

	// same name silently overwrites
	staged = writeFile(t, staging, "report.pdf", "second")
	_, err = Persist(staged, files, "report.pdf")
	require.NoError(t, err)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(b))

	_, err = Persist(staged, files, "../escape.pdf")
	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(filepath.Dir(files), "escape.pdf"))
}

func TestRemoveStaged(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "a.png", "x")
	RemoveStaged(p)
	assert.NoFileExists(t, p)
	// removing twice or an empty path must be harmless
	RemoveStaged(p)
	RemoveStaged("")
}

func TestSweepStale(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().Add(-2 * time.Hour)
	var stale []string
	for _, name := range []string{"a.png", "b.pdf", "c"} {
		p := writeFile(t, dir, name, name)
		require.NoError(t, os.Chtimes(p, old, old))
		stale = append(stale, p)
	}
	fresh := writeFile(t, dir, "fresh.jpg", "new")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o750))

	n, err := SweepStale(t.Context(), dir, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	for _, p := range stale {
		assert.NoFileExists(t, p)
	}
	assert.FileExists(t, fresh)
	assert.DirExists(t, filepath.Join(dir, "sub"))

	_, err = SweepStale(t.Context(), filepath.Join(dir, "missing"), time.Hour)
	assert.Error(t, err)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}
