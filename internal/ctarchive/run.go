package ctarchive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	ct "github.com/google/certificate-transparency-go"
	"k8s.io/klog/v2"

	"github.com/ctarchive/ctarchiver/internal/ctlog"
	"github.com/ctarchive/ctarchiver/internal/fetcher"
	"github.com/ctarchive/ctarchiver/internal/hasher"
	"github.com/ctarchive/ctarchiver/internal/layout"
	"github.com/ctarchive/ctarchiver/internal/packager"
)

// LogTarget names one log to archive: its URL plus an optional name
// override, the supplemented "suggested name" feature from §4.5.
type LogTarget struct {
	URL           string
	SuggestedName string
	StartIndex    *uint64
}

// pkgRootDir and logName are derived from cfg and t by each stage that
// needs them, replacing the original's module-level globals per
// spec.md §9's re-architecture notes.
func pkgRootDirAndName(cfg Config, t LogTarget) (pkgRootDir, logName string) {
	host, path := ctlog.ParseLogURL(t.URL)
	logName = layout.LogName(host, path)
	if t.SuggestedName != "" {
		logName = t.SuggestedName
	}
	return cfg.RootDir + "/" + logName, logName
}

// Run drives F, H, and P in sequence for one log: the `run` / original
// `auto` mode.
func Run(ctx context.Context, cfg Config, t LogTarget) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	sth, err := RunFetch(ctx, cfg, t)
	if err != nil {
		if errors.Is(err, fetcher.ErrNothingToFetch) {
			klog.Infof("log %s already fully archived at tree_size %d", t.URL, sth.TreeSize)
			return nil
		}
		return err
	}

	if err := RunHash(ctx, cfg, t, sth.TreeSize); err != nil {
		return err
	}

	return RunPackage(ctx, cfg, t, sth.TreeSize)
}

// RunFetch drives only F: the `fetch` / original `expert_getct` mode.
func RunFetch(ctx context.Context, cfg Config, t LogTarget) (*ct.SignedTreeHead, error) {
	logList, err := ctlog.LoadLogList(cfg.LogListFile)
	if err != nil {
		return nil, err
	}
	pkgRootDir, _ := pkgRootDirAndName(cfg, t)

	sth, err := fetcher.Fetch(ctx, fetcher.Params{
		PkgRootDir:  pkgRootDir,
		LogURL:      t.URL,
		LogList:     logList,
		StartIndex:  t.StartIndex,
		DesiredStep: cfg.StepSize,
		PackageSize: cfg.PackageSize,
		BundleSize:  cfg.BundleSize,
	})
	if err != nil && !errors.Is(err, fetcher.ErrNothingToFetch) {
		return nil, err
	}
	return sth, err
}

// RunHash drives only H over every package covering [0, treeSize): the
// `hash` / original `expert_hash` mode. It also performs §4.3's
// acceptance check against the sha256_root_hash of the persisted
// sth-*.json file for treeSize.
func RunHash(ctx context.Context, cfg Config, t LogTarget, treeSize uint64) error {
	pkgRootDir, _ := pkgRootDirAndName(cfg, t)
	if treeSize == 0 {
		return nil
	}

	lastPkg := layout.PackageNumberForEntry(treeSize-1, cfg.PackageSize, cfg.BundleSize)
	if err := hasher.HashPackages(ctx, pkgRootDir, 0, lastPkg, treeSize, cfg.Workers); err != nil {
		return fmt.Errorf("hashing packages: %w", err)
	}

	root, err := hasher.ComputeProofs(ctx, pkgRootDir, treeSize, 0, lastPkg)
	if err != nil {
		return fmt.Errorf("computing proofs: %w", err)
	}

	expected, err := expectedRoot(pkgRootDir, treeSize)
	if err != nil {
		return err
	}
	if !bytes.Equal(root, expected) {
		return fmt.Errorf("%w: entries [0,%d)", ErrRootMismatch, treeSize)
	}
	return nil
}

// RunPackage drives only P over every package covering [0, treeSize):
// the `package` / original `expert_bt` mode.
func RunPackage(ctx context.Context, cfg Config, t LogTarget, treeSize uint64) error {
	pkgRootDir, logName := pkgRootDirAndName(cfg, t)
	if treeSize == 0 {
		klog.Infof("tree_size is 0 for %s, nothing to package", t.URL)
		return nil
	}
	lastPkg := layout.PackageNumberForEntry(treeSize-1, cfg.PackageSize, cfg.BundleSize)

	return packager.CreateTorrents(ctx, packager.Params{
		PkgRootDir:   pkgRootDir,
		TorrentDir:   cfg.TorrentDir,
		LogName:      logName,
		TreeSize:     treeSize,
		StartPackage: 0,
		LastPackage:  lastPkg,
		Trackers:     cfg.Trackers,
		Peers:        cfg.Peers,
		ASN:          cfg.ASN,
		DownloadURL:  cfg.DownloadURL,
		Workers:      cfg.Workers,
	})
}

// PkgRootDir returns the on-disk directory a log target archives into,
// for callers (the CLI) that need to locate it without driving a stage.
func PkgRootDir(cfg Config, t LogTarget) string {
	dir, _ := pkgRootDirAndName(cfg, t)
	return dir
}

// LatestTreeSize scans pkg_root_dir for sth-*.json files and returns the
// largest tree_size among them, for `hash`/`package` subcommands invoked
// without an explicit --tree-size after a prior `fetch` run.
func LatestTreeSize(pkgRootDir string) (uint64, error) {
	dirents, err := os.ReadDir(pkgRootDir)
	if err != nil {
		return 0, fmt.Errorf("listing %q: %w", pkgRootDir, err)
	}

	var sizes []uint64
	for _, d := range dirents {
		if d.IsDir() {
			continue
		}
		name := d.Name()
		if !strings.HasPrefix(name, "sth-") || !strings.HasSuffix(name, ".json") {
			continue
		}
		digits := strings.TrimSuffix(strings.TrimPrefix(name, "sth-"), ".json")
		ts, err := strconv.ParseUint(digits, 10, 64)
		if err != nil {
			continue
		}
		sizes = append(sizes, ts)
	}
	if len(sizes) == 0 {
		return 0, fmt.Errorf("no sth-*.json file found under %q", pkgRootDir)
	}
	sort.Slice(sizes, func(i, j int) bool { return sizes[i] < sizes[j] })
	return sizes[len(sizes)-1], nil
}

// expectedRoot reads back the sth file's sha256_root_hash for the
// acceptance check, rather than threading the in-memory STH through
// every expert subcommand boundary.
func expectedRoot(pkgRootDir string, treeSize uint64) ([]byte, error) {
	sth, _, _, err := ctlog.ReadSTHFile(pkgRootDir, treeSize)
	if err != nil {
		return nil, err
	}
	return sth.SHA256RootHash[:], nil
}
