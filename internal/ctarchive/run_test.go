package ctarchive

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	ct "github.com/google/certificate-transparency-go"
	ctls "github.com/google/certificate-transparency-go/tls"
	"github.com/stretchr/testify/require"

	"github.com/ctarchive/ctarchiver/internal/merkle"
	"github.com/ctarchive/ctarchiver/internal/pkginfo"
)

// testLog is a minimal in-process RFC 6962 server for a fixed leaf list, signed
// with a freshly generated ECDSA-P256 key, exercising T-ROUND end to end:
// Run() must reproduce the STH's sha256_root_hash exactly.
type testLog struct {
	server *httptest.Server
	key    *ecdsa.PrivateKey
	leaves [][]byte
}

func newTestLog(t *testing.T, leaves [][]byte) *testLog {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tl := &testLog{key: key, leaves: leaves}
	mux := http.NewServeMux()
	mux.HandleFunc("/ct/v1/get-sth", tl.handleSTH)
	mux.HandleFunc("/ct/v1/get-entries", tl.handleEntries)
	tl.server = httptest.NewServer(mux)
	return tl
}

func (tl *testLog) rootHash() []byte {
	hashes := make([][]byte, len(tl.leaves))
	for i, l := range tl.leaves {
		hashes[i] = merkle.LeafHash(l)
	}
	return merkle.Root(hashes)
}

func (tl *testLog) handleSTH(w http.ResponseWriter, r *http.Request) {
	treeSize := uint64(len(tl.leaves))
	root := tl.rootHash()

	sth := ct.SignedTreeHead{
		Version:  ct.V1,
		TreeSize: treeSize,
		SHA256RootHash: func() (a ct.SHA256Hash) {
			copy(a[:], root)
			return
		}(),
	}
	payload, err := ct.SerializeSTHSignatureInput(sth)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	digest := sha256.Sum256(payload)
	sig, err := ecdsa.SignASN1(rand.Reader, tl.key, digest[:])
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	ds := ctls.DigitallySigned{
		Algorithm: ctls.SignatureAndHashAlgorithm{Hash: ctls.SHA256, Signature: ctls.ECDSA},
		Signature: sig,
	}
	sigBytes, err := ctls.Marshal(ds)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	resp := map[string]interface{}{
		"tree_size":           treeSize,
		"timestamp":           uint64(0),
		"sha256_root_hash":    base64.StdEncoding.EncodeToString(root),
		"tree_head_signature": base64.StdEncoding.EncodeToString(sigBytes),
	}
	json.NewEncoder(w).Encode(resp)
}

func (tl *testLog) handleEntries(w http.ResponseWriter, r *http.Request) {
	var start, end int
	fmt.Sscanf(r.URL.Query().Get("start"), "%d", &start)
	fmt.Sscanf(r.URL.Query().Get("end"), "%d", &end)
	if end >= len(tl.leaves) {
		end = len(tl.leaves) - 1
	}

	var entries []ct.LeafEntry
	for i := start; i <= end && i < len(tl.leaves); i++ {
		entries = append(entries, ct.LeafEntry{LeafInput: tl.leaves[i]})
	}
	json.NewEncoder(w).Encode(ct.GetEntriesResponse{Entries: entries})
}

func writeLogList(t *testing.T, dir string, url string, key *ecdsa.PrivateKey) string {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)

	body := map[string]interface{}{
		"logs": []map[string]string{
			{"url": url, "key": base64.StdEncoding.EncodeToString(der)},
		},
	}
	b, err := json.Marshal(body)
	require.NoError(t, err)
	path := filepath.Join(dir, "log_list.json")
	require.NoError(t, os.WriteFile(path, b, 0o644))
	return path
}

// T-ROUND, end to end: Run() fetches, hashes, and packages a tiny log,
// and the recomputed root matches what the "server" signed.
func TestRunEndToEndTwoEntries(t *testing.T) {
	leaves := [][]byte{{0x00}, {0xFF}}
	tl := newTestLog(t, leaves)
	defer tl.server.Close()

	tmp := t.TempDir()
	logListPath := writeLogList(t, tmp, tl.server.URL, tl.key)

	cfg := Config{
		LogListFile: logListPath,
		DownloadURL: "https://example.com/dl",
		RootDir:     filepath.Join(tmp, "root"),
		TorrentDir:  filepath.Join(tmp, "torrents"),
		ASN:         "64500",
		Workers:     2,
		PackageSize: 2,
		BundleSize:  2,
		StepSize:    2,
	}
	target := LogTarget{URL: tl.server.URL}

	err := Run(context.Background(), cfg, target)
	require.NoError(t, err)

	pkgRootDir, _ := pkgRootDirAndName(cfg, target)
	info, err := pkginfo.Read(pkgRootDir, "000-0000000002.info")
	require.NoError(t, err)
	require.Equal(t, tl.rootHash(), info.PkgHash)
	require.Empty(t, info.MerkleProof)

	torrentPath := filepath.Join(cfg.TorrentDir, fmt.Sprintf("%s_000-0000000002.torrent", logNameFor(t, cfg, target)))
	require.FileExists(t, torrentPath)
}

func logNameFor(t *testing.T, cfg Config, target LogTarget) string {
	_, name := pkgRootDirAndName(cfg, target)
	return name
}

// Scenario 1: empty tree. F writes the STH file and exits; H and P are
// not invoked.
func TestRunEmptyTree(t *testing.T) {
	tl := newTestLog(t, nil)
	defer tl.server.Close()

	tmp := t.TempDir()
	logListPath := writeLogList(t, tmp, tl.server.URL, tl.key)

	cfg := Config{
		LogListFile: logListPath,
		DownloadURL: "https://example.com/dl",
		RootDir:     filepath.Join(tmp, "root"),
		TorrentDir:  filepath.Join(tmp, "torrents"),
	}
	target := LogTarget{URL: tl.server.URL}

	require.NoError(t, Run(context.Background(), cfg, target))

	pkgRootDir, _ := pkgRootDirAndName(cfg, target)
	entries, err := os.ReadDir(pkgRootDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "sth-0000000000.json", entries[0].Name())
}
