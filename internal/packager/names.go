package packager

import (
	"fmt"

	"github.com/ctarchive/ctarchiver/internal/layout"
)

// BuildTorrentName and BuildMagnetName name the artifacts P emits under
// torrent_dir, per §6's "Emitted artifacts" layout.
func BuildTorrentName(logName string, pkg, treeSize uint64) string {
	return fmt.Sprintf("%s_%s-%010d.torrent", logName, layout.BuildPackageName(pkg), treeSize)
}

func BuildMagnetName(logName string, pkg, treeSize uint64) string {
	return fmt.Sprintf("%s_%s-%010d.magnet", logName, layout.BuildPackageName(pkg), treeSize)
}

func BuildMagnetsAggregateName(logName string) string {
	return logName + ".magnets"
}

func BuildRSSName(logName string) string {
	return logName + ".rss"
}
