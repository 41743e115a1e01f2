// Package packager implements P: it assembles a BitTorrent v1 metainfo,
// magnet link, and RSS/aggregate feed for each completed package, keyed
// to the exact on-disk bytes F and H produced.
package packager

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/ctarchive/ctarchiver/internal/atomicfile"
	"github.com/ctarchive/ctarchiver/internal/layout"
)

// Params configures a packaging run over [StartPackage, LastPackage].
type Params struct {
	PkgRootDir   string
	TorrentDir   string
	LogName      string
	TreeSize     uint64
	StartPackage uint64
	LastPackage  uint64
	Trackers     []string
	Peers        []Peer
	ASN          string
	DownloadURL  string
	Workers      int
	CreationTime int64
}

type packageResult struct {
	pkg       uint64
	btih      [20]byte
	totalSize int64
	magnet    string
}

// CreateTorrents runs P to completion: one torrent+magnet per package in
// [StartPackage, LastPackage], built by up to Workers goroutines, then a
// single-threaded aggregate (magnets file + RSS feed) pass once every
// worker has joined, per §4.4's "Parallelism".
func CreateTorrents(ctx context.Context, p Params) error {
	if err := atomicfile.MkdirAll(p.TorrentDir); err != nil {
		return fmt.Errorf("creating torrent directory %q: %w", p.TorrentDir, err)
	}

	n := int(p.LastPackage-p.StartPackage) + 1
	results := make([]packageResult, n)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Workers)

	for i := 0; i < n; i++ {
		i := i
		pkg := p.StartPackage + uint64(i)
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			r, err := createOne(p, pkg)
			if err != nil {
				return fmt.Errorf("packaging %d: %w", pkg, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return writeAggregates(p, results)
}

func createOne(p Params, pkg uint64) (packageResult, error) {
	files, err := PackageFiles(p.PkgRootDir, pkg, p.TreeSize)
	if err != nil {
		return packageResult{}, err
	}

	name := fmt.Sprintf("%s_%s", p.LogName, layout.BuildPackageName(pkg))
	built, err := BuildTorrent(TorrentParams{
		Name:         name,
		Files:        files,
		Trackers:     p.Trackers,
		Peers:        p.Peers,
		ASN:          p.ASN,
		CreationTime: p.CreationTime,
	})
	if err != nil {
		return packageResult{}, err
	}

	torrentPath := p.TorrentDir + "/" + BuildTorrentName(p.LogName, pkg, p.TreeSize)
	if err := atomicfile.Write(torrentPath, built.Bytes, 0o644); err != nil {
		return packageResult{}, fmt.Errorf("writing torrent file: %w", err)
	}

	magnet := BuildMagnet(built.BTIH, name, p.Peers, p.Trackers)
	magnetPath := p.TorrentDir + "/" + BuildMagnetName(p.LogName, pkg, p.TreeSize)
	if err := atomicfile.Write(magnetPath, []byte(magnet+"\n"), 0o644); err != nil {
		return packageResult{}, fmt.Errorf("writing magnet file: %w", err)
	}

	klog.Infof("packaged %s: btih=%s size=%d", name, Infohash(built.BTIH), built.TotalSize)
	return packageResult{pkg: pkg, btih: built.BTIH, totalSize: built.TotalSize, magnet: magnet}, nil
}

func writeAggregates(p Params, results []packageResult) error {
	magnets := make([]string, len(results))
	items := make([]RSSItemParams, len(results))
	for i, r := range results {
		magnets[i] = r.magnet
		name := fmt.Sprintf("%s_%s", p.LogName, layout.BuildPackageName(r.pkg))
		items[i] = RSSItemParams{
			Title:       name,
			Description: name,
			BTIH:        r.btih,
			DownloadURL: p.DownloadURL,
			TorrentName: BuildTorrentName(p.LogName, r.pkg, p.TreeSize),
			TotalSize:   r.totalSize,
		}
	}

	magnetsPath := p.TorrentDir + "/" + BuildMagnetsAggregateName(p.LogName)
	if err := atomicfile.Write(magnetsPath, []byte(MergeMagnets(magnets)), 0o644); err != nil {
		return fmt.Errorf("writing magnets aggregate: %w", err)
	}

	rssPath := p.TorrentDir + "/" + BuildRSSName(p.LogName)
	if err := UpdateRSSFeed(rssPath, p.LogName, fmt.Sprintf("BitTorrent archive of %s", p.LogName), items); err != nil {
		return fmt.Errorf("updating rss feed: %w", err)
	}

	klog.Infof("wrote aggregates for %d packages", len(results))
	return nil
}
