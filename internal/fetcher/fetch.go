// Package fetcher implements F: it talks to a CT log, obtains and
// verifies the STH, discovers the server's effective batch size, streams
// entries from the resume point to the STH's tree_size, and writes
// bundles via internal/layout and internal/bundle.
package fetcher

import (
	"context"
	"fmt"
	"math/bits"
	"time"

	"github.com/avast/retry-go"
	ct "github.com/google/certificate-transparency-go"
	"k8s.io/klog/v2"

	"github.com/ctarchive/ctarchiver/internal/atomicfile"
	"github.com/ctarchive/ctarchiver/internal/bundle"
	"github.com/ctarchive/ctarchiver/internal/ctlog"
	"github.com/ctarchive/ctarchiver/internal/layout"
)

// Params is the F public contract's parameter tuple: fetch(pkg_root_dir,
// url, log_list_file, start_index, desired_step, P, B) -> STH.
type Params struct {
	PkgRootDir   string
	LogURL       string
	LogList      *ctlog.LogList
	StartIndex   *uint64 // nil means "no override", use resume discovery alone
	DesiredStep  uint64
	PackageSize  uint64
	BundleSize   uint64
}

// retryDelay is the fixed backoff §4.2 and §5 specify for transient HTTP
// failures: CT logs throttle aggressively, so retry is unbounded rather
// than capped.
const retryDelay = 2 * time.Second

// Fetch runs F to completion: it returns the verified STH and leaves a
// complete canonical bundle set for [0, tree_size) on disk. It returns
// ErrNothingToFetch (not a failure) when the resume point is already at
// or beyond tree_size.
func Fetch(ctx context.Context, p Params) (*ct.SignedTreeHead, error) {
	if bits.OnesCount64(p.BundleSize) != 1 {
		return nil, ErrBundleSizeInvalid
	}
	if err := atomicfile.MkdirAll(p.PkgRootDir); err != nil {
		return nil, fmt.Errorf("creating %q: %w", p.PkgRootDir, err)
	}

	client := ctlog.NewClient()

	var sth *ct.SignedTreeHead
	var rawSig, rawBody []byte
	err := retry.Do(
		func() (err error) {
			sth, rawSig, rawBody, err = client.GetSTH(ctx, p.LogURL)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(0),
		retry.Delay(retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.OnRetry(func(n uint, err error) {
			klog.Warningf("get-sth attempt %d failed, retrying in %s: %v", n, retryDelay, err)
		}),
	)
	if err != nil {
		return nil, err
	}
	pubKey, err := p.LogList.Lookup(p.LogURL)
	if err != nil {
		return nil, err
	}
	if err := ctlog.VerifySTH(sth, rawSig, pubKey); err != nil {
		return nil, err
	}

	sthPath := p.PkgRootDir + "/" + layout.BuildSTHName(sth.TreeSize)
	if err := atomicfile.Write(sthPath, rawBody, 0o644); err != nil {
		return nil, fmt.Errorf("writing sth file: %w", err)
	}
	klog.Infof("verified and wrote sth for tree_size=%d", sth.TreeSize)

	resume, err := DiscoverStartIndex(p.PkgRootDir, p.PackageSize, p.BundleSize)
	if err != nil {
		return nil, err
	}
	start := EffectiveStart(resume, p.StartIndex, p.BundleSize)

	if start >= sth.TreeSize {
		klog.Infof("resume index %d already at or beyond tree_size %d", start, sth.TreeSize)
		return sth, ErrNothingToFetch
	}

	step, err := detectStepSizeRetrying(ctx, client, p.LogURL, p.DesiredStep)
	if err != nil {
		return nil, err
	}

	return sth, stream(ctx, client, p, start, step, sth.TreeSize)
}

// stream implements §4.2's "Streaming fetch": buffer get-entries
// responses and flush full bundles as soon as they're available, then
// flush a final partial tail.
func stream(ctx context.Context, client *ctlog.Client, p Params, start, step, treeSize uint64) error {
	var buf []ct.LeafEntry
	bundleStart := start

	for i := start; i < treeSize; i += step {
		end := i + step - 1
		if end > treeSize-1 {
			end = treeSize - 1
		}

		entries, err := getEntriesRetrying(ctx, client, p.LogURL, i, end)
		if err != nil {
			return err
		}
		buf = append(buf, entries...)

		for uint64(len(buf)) >= p.BundleSize {
			if err := writeBundle(p, bundleStart, buf[:p.BundleSize]); err != nil {
				return err
			}
			buf = buf[p.BundleSize:]
			bundleStart += p.BundleSize
		}
	}

	if len(buf) > 0 {
		if err := writeBundle(p, bundleStart, buf); err != nil {
			return err
		}
	}
	return nil
}

func writeBundle(p Params, start uint64, entries []ct.LeafEntry) error {
	end := start + uint64(len(entries)) - 1
	dir := layout.PackageDirForEntry(p.PkgRootDir, start, p.PackageSize, p.BundleSize)
	if err := atomicfile.MkdirAll(dir); err != nil {
		return fmt.Errorf("creating package directory %q: %w", dir, err)
	}
	path := dir + "/" + layout.BuildBundleFilename(start, end)
	klog.V(1).Infof("writing bundle %s (%d entries)", path, len(entries))
	return bundle.Write(path, entries)
}

// detectStepSizeRetrying wraps Client.DetectStepSize in the same
// unbounded retry policy as getEntriesRetrying: the probe issues a
// get-entries call like any other, and CT logs throttle aggressively
// enough that a transient failure on this first request shouldn't
// hard-fail the whole run.
func detectStepSizeRetrying(ctx context.Context, client *ctlog.Client, logURL string, desiredStep uint64) (uint64, error) {
	var step uint64
	err := retry.Do(
		func() error {
			s, err := client.DetectStepSize(ctx, logURL, desiredStep)
			if err != nil {
				return err
			}
			step = s
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(0),
		retry.Delay(retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.OnRetry(func(n uint, err error) {
			klog.Warningf("detect-step-size attempt %d failed, retrying in %s: %v", n, retryDelay, err)
		}),
	)
	return step, err
}

// getEntriesRetrying wraps Client.GetEntries in §4.2's unbounded retry
// policy: on any HTTP transient error, sleep 2s and retry the same
// request forever. Attempts(0) is avast/retry-go's documented spelling
// of "no attempt limit"; the context still lets a caller abort.
func getEntriesRetrying(ctx context.Context, client *ctlog.Client, logURL string, start, end uint64) ([]ct.LeafEntry, error) {
	var entries []ct.LeafEntry
	err := retry.Do(
		func() error {
			e, err := client.GetEntries(ctx, logURL, start, end)
			if err != nil {
				return err
			}
			entries = e
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(0),
		retry.Delay(retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.OnRetry(func(n uint, err error) {
			klog.Warningf("get-entries(%d,%d) attempt %d failed, retrying in %s: %v", start, end, n, retryDelay, err)
		}),
	)
	return entries, err
}
