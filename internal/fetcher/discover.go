package fetcher

import (
	"fmt"
	"os"
	"sort"

	"github.com/ctarchive/ctarchiver/internal/layout"
)

// DiscoverStartIndex implements §4.2's resume discovery algorithm: find
// the earliest entry index a subsequent run must refetch from, given
// whatever packages and bundles a previous (possibly killed) run left on
// disk.
func DiscoverStartIndex(pkgRootDir string, packageSize, bundleSize uint64) (uint64, error) {
	dirents, err := os.ReadDir(pkgRootDir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("listing %q: %w", pkgRootDir, err)
	}

	var pkgNums []uint64
	for _, d := range dirents {
		if !d.IsDir() || !layout.IsPackageDir(d.Name()) {
			continue
		}
		n, err := layout.ParsePackageNumber(d.Name())
		if err != nil {
			continue
		}
		pkgNums = append(pkgNums, n)
	}
	if len(pkgNums) == 0 {
		return 0, nil
	}
	sort.Slice(pkgNums, func(i, j int) bool { return pkgNums[i] < pkgNums[j] })
	lastPkg := pkgNums[len(pkgNums)-1]

	pkgDir := pkgRootDir + "/" + layout.BuildPackageName(lastPkg)
	names, err := readNames(pkgDir)
	if err != nil {
		return 0, fmt.Errorf("listing %q: %w", pkgDir, err)
	}

	// Canonicalization needs a tree_size bound; use one large enough to
	// admit every bundle physically present, since only resume discovery
	// (not hashing) runs at this point and no STH has been fetched yet.
	bundles := layout.CanonicalBundles(names, ^uint64(0))
	if len(bundles) == 0 {
		return lastPkg * packageSize * bundleSize, nil
	}

	last := bundles[len(bundles)-1]
	if last.Full(bundleSize) {
		return last.End + 1, nil
	}
	return last.Start, nil
}

func readNames(dir string) ([]string, error) {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(dirents))
	for _, d := range dirents {
		if !d.IsDir() {
			names = append(names, d.Name())
		}
	}
	return names, nil
}

// EffectiveStart applies the "caller may also pass start_index" rule: if
// override is non-nil, the effective start is the smaller of the
// discovered resume point and the override, rounded down to a multiple
// of bundleSize. With no override, the discovered resume point is used
// unchanged (it is already bundle-aligned by construction).
func EffectiveStart(resume uint64, override *uint64, bundleSize uint64) uint64 {
	start := resume
	if override != nil && *override < start {
		start = *override
	}
	return (start / bundleSize) * bundleSize
}
