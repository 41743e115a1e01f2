// Package pkginfo reads and writes the per-(package, tree_size) info
// files H produces: the package's Merkle root and, once the global pass
// runs, its audit path to the STH.
package pkginfo

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ctarchive/ctarchiver/internal/atomicfile"
	"github.com/ctarchive/ctarchiver/internal/layout"
)

// Info is the (H1)/(H2) PackageInfo entity. Go's encoding/json
// base64-encodes []byte and [][]byte fields automatically, which already
// matches the wire format §6 describes.
type Info struct {
	PkgHash     []byte   `json:"pkg_hash"`
	MerkleProof [][]byte `json:"merkle_proof"`
}

// WriteHash writes the freshly computed package hash with an empty
// proof, per step 5 of §4.3's per-package hashing algorithm. The proof
// is populated by a later WriteProof call once the global pass runs.
func WriteHash(pkgRootDir string, pkg, treeSize uint64, pkgHash []byte) error {
	return write(pkgRootDir, pkg, treeSize, Info{PkgHash: pkgHash, MerkleProof: [][]byte{}})
}

// WriteProof rewrites a package's info file with its audit path filled
// in, leaving pkg_hash unchanged.
func WriteProof(pkgRootDir string, pkg, treeSize uint64, pkgHash []byte, proof [][]byte) error {
	return write(pkgRootDir, pkg, treeSize, Info{PkgHash: pkgHash, MerkleProof: proof})
}

func write(pkgRootDir string, pkg, treeSize uint64, info Info) error {
	body, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("marshaling info for package %d: %w", pkg, err)
	}
	path := pkgRootDir + "/" + layout.BuildInfoFileName(pkg, treeSize)
	return atomicfile.Write(path, body, 0o644)
}

// Read loads a single info file.
func Read(pkgRootDir, name string) (Info, error) {
	body, err := os.ReadFile(pkgRootDir + "/" + name)
	if err != nil {
		return Info{}, fmt.Errorf("reading info file %q: %w", name, err)
	}
	var info Info
	if err := json.Unmarshal(body, &info); err != nil {
		return Info{}, fmt.Errorf("decoding info file %q: %w", name, err)
	}
	return info, nil
}
