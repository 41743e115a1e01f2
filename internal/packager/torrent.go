package packager

import (
	"crypto/sha1"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"

	"github.com/anacrolix/torrent/bencode"
	"github.com/anacrolix/torrent/metainfo"

	"github.com/ctarchive/ctarchiver/internal/layout"
)

// toolID names this archiver in the "created by" field, the Go
// equivalent of the original's tool identifier string.
const toolID = "ctarchiver"

// rawBencode carries already-bencoded bytes through verbatim. It's the
// Go counterpart of the Raw bencode variant spec.md §9's re-architecture
// notes call for: the info dict is encoded exactly once (in BuildTorrent)
// and reused unmodified here to satisfy (a) of §4.4's bencode
// requirements.
type rawBencode []byte

func (r rawBencode) MarshalBencode() ([]byte, error) { return []byte(r), nil }

// outerTorrent is the top-level metainfo dict. Fields are declared in
// their BEP-3 lexicographic key order so bencode.Marshal's
// struct-field-order encoding already satisfies the "keys sorted as raw
// byte strings" requirement.
type outerTorrent struct {
	Announce     string     `bencode:"announce,omitempty"`
	AnnounceList [][]string `bencode:"announce-list,omitempty"`
	Comment      string     `bencode:"comment"`
	CreatedBy    string     `bencode:"created by"`
	CreationDate int64      `bencode:"creation date"`
	Info         rawBencode `bencode:"info"`
	Peers        []peerPair `bencode:"peers,omitempty"`
}

type peerPair struct {
	Host string
	Port int
}

func (p peerPair) MarshalBencode() ([]byte, error) {
	return bencode.Marshal([]interface{}{p.Host, p.Port})
}

// FileRef is one file contributed to a package's torrent, with its path
// already resolved relative to pkg_root_dir.
type FileRef struct {
	AbsPath      string
	RelativePath []string
	Length       int64
}

// PackageFiles builds, in (T1) order, the file list for a package: every
// canonical bundle, then the STH file, then the package info file.
func PackageFiles(pkgRootDir string, pkg, treeSize uint64) ([]FileRef, error) {
	pkgDir := filepath.Join(pkgRootDir, layout.BuildPackageName(pkg))
	entries, err := os.ReadDir(pkgDir)
	if err != nil {
		return nil, fmt.Errorf("listing package directory %q: %w", pkgDir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	bundles := layout.CanonicalBundles(names, treeSize)

	var files []FileRef
	for _, b := range bundles {
		fi, err := os.Stat(filepath.Join(pkgDir, b.Name))
		if err != nil {
			return nil, fmt.Errorf("stat bundle %q: %w", b.Name, err)
		}
		files = append(files, FileRef{
			AbsPath:      filepath.Join(pkgDir, b.Name),
			RelativePath: []string{layout.BuildPackageName(pkg), b.Name},
			Length:       fi.Size(),
		})
	}

	sthName := layout.BuildSTHName(treeSize)
	sthFI, err := os.Stat(filepath.Join(pkgRootDir, sthName))
	if err != nil {
		return nil, fmt.Errorf("stat sth file %q: %w", sthName, err)
	}
	files = append(files, FileRef{AbsPath: filepath.Join(pkgRootDir, sthName), RelativePath: []string{sthName}, Length: sthFI.Size()})

	infoName := layout.BuildInfoFileName(pkg, treeSize)
	infoFI, err := os.Stat(filepath.Join(pkgRootDir, infoName))
	if err != nil {
		return nil, fmt.Errorf("stat info file %q: %w", infoName, err)
	}
	files = append(files, FileRef{AbsPath: filepath.Join(pkgRootDir, infoName), RelativePath: []string{infoName}, Length: infoFI.Size()})

	return files, nil
}

// Built is the result of BuildTorrent: the bencoded outer dict, its
// 20-byte BTIH, and the total content size (used for the RSS enclosure
// length).
type Built struct {
	Bytes     []byte
	BTIH      [20]byte
	TotalSize int64
}

// TorrentParams configures BuildTorrent's optional announce/peers and
// attribution fields.
type TorrentParams struct {
	Name         string
	Files        []FileRef
	Trackers     []string
	Peers        []Peer
	ASN          string
	CreationTime int64
}

// Peer is a BEP-9-less bootstrap peer, host/port.
type Peer struct {
	Host string
	Port int
}

// BuildTorrent assembles a BitTorrent v1 metainfo per §4.4: bencodes the
// info dict exactly once, hashes piece-by-piece across the concatenated
// file bytes, and wraps it in the outer dict with either an
// announce/announce-list or a peers list.
func BuildTorrent(p TorrentParams) (*Built, error) {
	var total int64
	for _, f := range p.Files {
		total += f.Length
	}
	pieceLength := PieceLength(total)

	pieces, err := hashPieces(p.Files, pieceLength)
	if err != nil {
		return nil, err
	}

	info := metainfo.Info{
		Name:        p.Name,
		PieceLength: pieceLength,
		Pieces:      pieces,
		Files:       make([]metainfo.FileInfo, len(p.Files)),
	}
	for i, f := range p.Files {
		info.Files[i] = metainfo.FileInfo{Length: f.Length, Path: f.RelativePath}
	}

	infoBytes, err := bencode.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("bencoding info dict: %w", err)
	}
	btih := sha1.Sum(infoBytes)

	outer := outerTorrent{
		Comment:      fmt.Sprintf("Downloaded from AS%s", p.ASN),
		CreatedBy:    toolID,
		CreationDate: p.CreationTime,
		Info:         rawBencode(infoBytes),
	}
	if len(p.Trackers) > 0 {
		outer.Announce = p.Trackers[0]
		outer.AnnounceList = [][]string{append([]string(nil), p.Trackers...)}
	} else if len(p.Peers) > 0 {
		outer.Peers = make([]peerPair, len(p.Peers))
		for i, peer := range p.Peers {
			outer.Peers[i] = peerPair{Host: peer.Host, Port: peer.Port}
		}
	}

	out, err := bencode.Marshal(outer)
	if err != nil {
		return nil, fmt.Errorf("bencoding outer torrent dict: %w", err)
	}
	return &Built{Bytes: out, BTIH: btih, TotalSize: total}, nil
}

// hashPieces implements §4.4's "Pieces": concatenate every file's bytes
// in file-list order with no padding, split into pieceLength chunks, and
// SHA-1 each (the final short tail hashed as-is).
func hashPieces(files []FileRef, pieceLength int64) ([]byte, error) {
	var out []byte
	h := sha1.New()
	var buffered int64

	flush := func() {
		out = append(out, h.Sum(nil)...)
		h.Reset()
		buffered = 0
	}

	for _, f := range files {
		file, err := os.Open(f.AbsPath)
		if err != nil {
			return nil, fmt.Errorf("opening %q: %w", f.AbsPath, err)
		}
		if err := copyInPieces(file, h, &buffered, pieceLength, flush); err != nil {
			file.Close()
			return nil, err
		}
		file.Close()
	}
	if buffered > 0 {
		flush()
	}
	return out, nil
}

func copyInPieces(r io.Reader, h hash.Hash, buffered *int64, pieceLength int64, flush func()) error {
	buf := make([]byte, 1<<16)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			off := 0
			for off < n {
				room := pieceLength - *buffered
				take := int64(n - off)
				if take > room {
					take = room
				}
				h.Write(buf[off : int64(off)+take])
				*buffered += take
				off += int(take)
				if *buffered == pieceLength {
					flush()
				}
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

// Infohash is kept as a helper for callers that want just the hex form.
func Infohash(btih [20]byte) string {
	return fmt.Sprintf("%x", btih[:])
}
