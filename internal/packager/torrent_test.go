package packager

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/anacrolix/torrent/bencode"
	"github.com/stretchr/testify/require"
)

// Scenario 6: bencode golden test.
func TestBencodeGolden(t *testing.T) {
	type inner struct {
		A int   `bencode:"a"`
		B []any `bencode:"b"`
	}
	got, err := bencode.Marshal(inner{A: 1, B: []any{2, "x"}})
	require.NoError(t, err)
	require.Equal(t, "d1:ai1e1:bli2e1:xee", string(got))
}

func writeFile(t *testing.T, path string, contents []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, contents, 0o644))
}

// T-INFOHASH-STABILITY: rebuilding from the same on-disk inputs yields
// the same BTIH.
func TestBuildTorrentInfohashStability(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "000", "0000000000-0000001023.json.gz"), []byte("bundle-bytes"))
	writeFile(t, filepath.Join(dir, "sth-0000001024.json"), []byte("sth-bytes"))
	writeFile(t, filepath.Join(dir, "000-0000001024.info"), []byte("info-bytes"))

	files, err := PackageFiles(dir, 0, 1024)
	require.NoError(t, err)
	require.Len(t, files, 3)

	params := TorrentParams{
		Name:         "example.com_000",
		Files:        files,
		Trackers:     []string{"https://tracker.example/announce"},
		ASN:          "64500",
		CreationTime: 1700000000,
	}

	b1, err := BuildTorrent(params)
	require.NoError(t, err)
	b2, err := BuildTorrent(params)
	require.NoError(t, err)
	require.Equal(t, b1.BTIH, b2.BTIH)
	require.Equal(t, b1.Bytes, b2.Bytes)
}

func TestBuildMagnetOrder(t *testing.T) {
	btih := [20]byte{1, 2, 3}
	got := BuildMagnet(btih, "name", []Peer{{Host: "1.2.3.4", Port: 6881}}, []string{"udp://tr.example:80"})
	want := "magnet:?xt=urn:btih:" + Infohash(btih) + "&dn=name&x.pe=1.2.3.4:6881&tr=udp://tr.example:80"
	require.Equal(t, want, got)
}
