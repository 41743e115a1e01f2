package fetcher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

// T-RESUME: a full last bundle resumes right after it.
func TestDiscoverStartIndexFullBundle(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "000", "0000000000-0000001023.json.gz"))

	got, err := DiscoverStartIndex(root, 1024, 1024)
	require.NoError(t, err)
	require.EqualValues(t, 1024, got)
}

// T-RESUME: a partial last bundle is discarded and refetched from its start.
func TestDiscoverStartIndexPartialBundle(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "000", "0000000000-0000000511.json.gz"))

	got, err := DiscoverStartIndex(root, 1024, 1024)
	require.NoError(t, err)
	require.EqualValues(t, 0, got)
}

// An empty last package directory resumes from its own start.
func TestDiscoverStartIndexEmptyPackageDir(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "001"), 0o755))

	got, err := DiscoverStartIndex(root, 1024, 1024)
	require.NoError(t, err)
	require.EqualValues(t, 1*1024*1024, got)
}

func TestDiscoverStartIndexNoPackages(t *testing.T) {
	got, err := DiscoverStartIndex(t.TempDir(), 1024, 1024)
	require.NoError(t, err)
	require.EqualValues(t, 0, got)
}

func TestEffectiveStart(t *testing.T) {
	override := uint64(500)
	got := EffectiveStart(1024, &override, 256)
	require.EqualValues(t, 256, got) // min(1024, 500) rounded down to multiple of 256

	got = EffectiveStart(1024, nil, 256)
	require.EqualValues(t, 1024, got)
}

func TestBundleSizeMustBePowerOfTwo(t *testing.T) {
	_, err := Fetch(nil, Params{BundleSize: 3})
	require.ErrorIs(t, err, ErrBundleSizeInvalid)
}
