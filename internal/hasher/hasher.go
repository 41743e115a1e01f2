// Package hasher implements H: it reduces bundles to package hashes in
// parallel, then reduces package hashes to a global root and per-package
// audit paths, persisting both passes via internal/pkginfo.
package hasher

import (
	"context"
	"fmt"
	"os"
	"sort"

	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/ctarchive/ctarchiver/internal/bundle"
	"github.com/ctarchive/ctarchiver/internal/layout"
	"github.com/ctarchive/ctarchiver/internal/merkle"
	"github.com/ctarchive/ctarchiver/internal/pkginfo"
)

// HashPackages computes and persists the package hash of every package
// in [startPkg, lastPkg] at treeSize, running up to workers packages in
// parallel. This is §4.3's "Per-package hashing" step.
func HashPackages(ctx context.Context, pkgRootDir string, startPkg, lastPkg uint64, treeSize uint64, workers int) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for pkg := startPkg; pkg <= lastPkg; pkg++ {
		pkg := pkg
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			return hashPackage(pkgRootDir, pkg, treeSize)
		})
	}
	return g.Wait()
}

func hashPackage(pkgRootDir string, pkg, treeSize uint64) error {
	dir := pkgRootDir + "/" + layout.BuildPackageName(pkg)
	names, err := listFiles(dir)
	if err != nil {
		return fmt.Errorf("listing package %q: %w", dir, err)
	}

	bundles := layout.CanonicalBundles(names, treeSize)
	bundleHashes := make([][]byte, 0, len(bundles))
	for _, b := range bundles {
		entries, err := bundle.Read(dir + "/" + b.Name)
		if err != nil {
			return fmt.Errorf("reading bundle %q: %w", b.Name, err)
		}
		leafHashes := make([][]byte, len(entries))
		for i, e := range entries {
			leafHashes[i] = merkle.LeafHash(e.LeafInput)
		}
		bundleHashes = append(bundleHashes, merkle.Root(leafHashes))
	}

	pkgHash := merkle.Root(bundleHashes)
	klog.V(1).Infof("hashed package %d at tree_size %d: %d bundles", pkg, treeSize, len(bundles))
	return pkginfo.WriteHash(pkgRootDir, pkg, treeSize, pkgHash)
}

// ComputeProofs loads every package's current pkg_hash at treeSize,
// reduces them to the global root, and rewrites the info file of every
// package in [startPkg, lastPkg] with its audit path. This is §4.3's
// "Global root and proofs" step; the audit-path algorithm is the true
// RFC 6962 split-point construction (Open Question 1, option (i)), not
// the naive pairwise/odd-carry shortcut.
func ComputeProofs(ctx context.Context, pkgRootDir string, treeSize, startPkg, lastPkg uint64) ([]byte, error) {
	names, err := listFiles(pkgRootDir)
	if err != nil {
		return nil, fmt.Errorf("listing %q: %w", pkgRootDir, err)
	}
	infos := layout.CanonicalInfoFiles(names, treeSize)

	var pkgNums []uint64
	for pkg := range infos {
		pkgNums = append(pkgNums, pkg)
	}
	sort.Slice(pkgNums, func(i, j int) bool { return pkgNums[i] < pkgNums[j] })

	hashes := make([][]byte, len(pkgNums))
	index := make(map[uint64]int, len(pkgNums))
	for i, pkg := range pkgNums {
		info, err := pkginfo.Read(pkgRootDir, infos[pkg].Name)
		if err != nil {
			return nil, fmt.Errorf("reading info for package %d: %w", pkg, err)
		}
		hashes[i] = info.PkgHash
		index[pkg] = i
	}

	var targets []int
	for pkg := startPkg; pkg <= lastPkg; pkg++ {
		idx, ok := index[pkg]
		if !ok {
			return nil, fmt.Errorf("no hashed info file for package %d at tree_size %d", pkg, treeSize)
		}
		targets = append(targets, idx)
	}

	root, paths := merkle.AuditPaths(hashes, targets)

	for _, pkg := range pkgNums {
		if pkg < startPkg || pkg > lastPkg {
			continue
		}
		idx := index[pkg]
		if err := pkginfo.WriteProof(pkgRootDir, pkg, treeSize, hashes[idx], paths[idx]); err != nil {
			return nil, fmt.Errorf("writing proof for package %d: %w", pkg, err)
		}
	}

	klog.Infof("computed global root over %d packages at tree_size %d", len(pkgNums), treeSize)
	return root, nil
}

func listFiles(dir string) ([]string, error) {
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
