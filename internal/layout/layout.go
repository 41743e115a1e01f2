// Package layout implements the pure name and path derivations shared by
// every other component: bundle/package/STH/info-file names, and the
// canonicalization rules that pick the single authoritative file out of
// a directory listing that may contain stale or partial siblings.
//
// Nothing in this package performs I/O beyond the directory listings its
// callers hand it; it never opens a file for reading or writing.
package layout

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	bundleNameRE = regexp.MustCompile(`^(\d{10})-(\d{10})\.json\.gz$`)
	packageDirRE = regexp.MustCompile(`^\d{3,}$`)
	infoNameRE   = regexp.MustCompile(`^(\d{3,})-(\d{10})\.info$`)
)

// BuildBundleFilename implements build_bundle_filename(start, end).
func BuildBundleFilename(start, end uint64) string {
	return fmt.Sprintf("%010d-%010d.json.gz", start, end)
}

// BuildPackageName implements build_package_name(n). Widens beyond three
// digits once n no longer fits, per (P1)'s widening allowance.
func BuildPackageName(n uint64) string {
	if n < 1000 {
		return fmt.Sprintf("%03d", n)
	}
	return strconv.FormatUint(n, 10)
}

// BuildSTHName implements build_sth_name(tree_size).
func BuildSTHName(treeSize uint64) string {
	return fmt.Sprintf("sth-%010d.json", treeSize)
}

// BuildInfoFileName implements build_info_file_name(pkg, tree_size).
func BuildInfoFileName(pkg, treeSize uint64) string {
	return fmt.Sprintf("%s-%010d.info", BuildPackageName(pkg), treeSize)
}

// LogName implements log_name(host, path_segments).
func LogName(host string, pathSegments []string) string {
	parts := append([]string{host}, pathSegments...)
	return strings.Join(parts, "_")
}

// PackageRootDir implements package_root_dir(root, host, path).
func PackageRootDir(root, host string, pathSegments []string) string {
	return root + "/" + LogName(host, pathSegments)
}

// PackageNumberForEntry returns entry_index // (P*B), the package number
// that owns a given global entry index.
func PackageNumberForEntry(entryIndex, packageSize, bundleSize uint64) uint64 {
	return entryIndex / (packageSize * bundleSize)
}

// PackageDirForEntry implements package_dir_for_entry.
func PackageDirForEntry(pkgRootDir string, entryIndex, packageSize, bundleSize uint64) string {
	n := PackageNumberForEntry(entryIndex, packageSize, bundleSize)
	return pkgRootDir + "/" + BuildPackageName(n)
}

// BundleRef is a canonical bundle selected out of a directory listing.
type BundleRef struct {
	Start, End uint64
	Name       string
}

// Full reports whether the bundle holds exactly bundleSize entries.
func (b BundleRef) Full(bundleSize uint64) bool {
	return b.End-b.Start+1 == bundleSize
}

// CanonicalBundles implements the (B2) selection rule: filter names
// matching the bundle pattern, group by start index, keep the entry with
// the largest end index not exceeding treeSize-1, sorted by start index.
//
// names need not be pre-sorted; this function sorts lexicographically
// itself, which coincides with numeric order for the fixed-width fields.
func CanonicalBundles(names []string, treeSize uint64) []BundleRef {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	best := map[uint64]BundleRef{}
	for _, name := range sorted {
		m := bundleNameRE.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		start, _ := strconv.ParseUint(m[1], 10, 64)
		end, _ := strconv.ParseUint(m[2], 10, 64)
		if treeSize > 0 && end > treeSize-1 {
			continue
		}
		if cur, ok := best[start]; !ok || end > cur.End {
			best[start] = BundleRef{Start: start, End: end, Name: name}
		}
	}

	out := make([]BundleRef, 0, len(best))
	for _, b := range best {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// InfoRef is a canonical info file selected for a package at a tree size.
type InfoRef struct {
	Package  uint64
	TreeSize uint64
	Name     string
}

// CanonicalInfoFiles implements the info-file selection rule of §4.1: for
// each package number, the most recent tree_size <= the current tree_size
// is the one that contributes to hashing at that tree size.
func CanonicalInfoFiles(names []string, treeSize uint64) map[uint64]InfoRef {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	best := map[uint64]InfoRef{}
	for _, name := range sorted {
		m := infoNameRE.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		pkg, _ := strconv.ParseUint(m[1], 10, 64)
		ts, _ := strconv.ParseUint(m[2], 10, 64)
		if ts > treeSize {
			continue
		}
		if cur, ok := best[pkg]; !ok || ts > cur.TreeSize {
			best[pkg] = InfoRef{Package: pkg, TreeSize: ts, Name: name}
		}
	}
	return best
}

// IsPackageDir reports whether a directory entry name is a package
// directory per (P1).
func IsPackageDir(name string) bool {
	return packageDirRE.MatchString(name)
}

// ParsePackageNumber parses a package directory name back into its
// numeric value.
func ParsePackageNumber(name string) (uint64, error) {
	n, err := strconv.ParseUint(name, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("not a package directory name %q: %w", name, err)
	}
	return n, nil
}
