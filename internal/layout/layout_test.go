package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildBundleFilename(t *testing.T) {
	for _, tc := range []struct {
		start, end uint64
		want       string
	}{
		{0, 1023, "0000000000-0000001023.json.gz"},
		{1024, 1026, "0000001024-0000001026.json.gz"},
	} {
		assert.Equal(t, tc.want, BuildBundleFilename(tc.start, tc.end))
	}
}

func TestBuildPackageName(t *testing.T) {
	for _, tc := range []struct {
		n    uint64
		want string
	}{
		{0, "000"},
		{7, "007"},
		{999, "999"},
		{1000, "1000"},
	} {
		assert.Equal(t, tc.want, BuildPackageName(tc.n))
	}
}

func TestBuildSTHName(t *testing.T) {
	assert.Equal(t, "sth-0000000000.json", BuildSTHName(0))
	assert.Equal(t, "sth-0001048576.json", BuildSTHName(1048576))
}

func TestBuildInfoFileName(t *testing.T) {
	assert.Equal(t, "000-0001048576.info", BuildInfoFileName(0, 1048576))
}

func TestLogName(t *testing.T) {
	assert.Equal(t, "ct.example.com_logs_test2024", LogName("ct.example.com", []string{"logs", "test2024"}))
}

func TestCanonicalBundles(t *testing.T) {
	names := []string{
		"0000000000-0000000511.json.gz", // stale partial, superseded below
		"0000000000-0000001023.json.gz", // canonical: full bundle
		"0000001024-0000001279.json.gz", // canonical: partial tail
		"not-a-bundle.txt",
		"0000002048-0000003071.json.gz", // excluded: beyond tree_size
	}
	got := CanonicalBundles(names, 1280)
	want := []BundleRef{
		{Start: 0, End: 1023, Name: "0000000000-0000001023.json.gz"},
		{Start: 1024, End: 1279, Name: "0000001024-0000001279.json.gz"},
	}
	assert.Equal(t, want, got)
	assert.True(t, got[0].Full(1024))
	assert.False(t, got[1].Full(1024))
}

func TestCanonicalInfoFiles(t *testing.T) {
	names := []string{
		"000-0000001024.info",
		"000-0000002048.info", // excluded: beyond tree_size=1500
		"001-0000002048.info",
	}
	got := CanonicalInfoFiles(names, 1500)
	assert.Equal(t, InfoRef{Package: 0, TreeSize: 1024, Name: "000-0000001024.info"}, got[0])
	_, ok := got[1]
	assert.False(t, ok, "package 1's only info file exceeds tree_size and must be excluded")
}

func TestPackageNumberForEntry(t *testing.T) {
	assert.Equal(t, uint64(0), PackageNumberForEntry(0, 1024, 1024))
	assert.Equal(t, uint64(0), PackageNumberForEntry(1048575, 1024, 1024))
	assert.Equal(t, uint64(1), PackageNumberForEntry(1048576, 1024, 1024))
}
