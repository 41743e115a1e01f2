package hasher

import (
	"context"
	"path/filepath"
	"testing"

	ct "github.com/google/certificate-transparency-go"
	"github.com/stretchr/testify/require"
	"github.com/transparency-dev/merkle/proof"

	"github.com/ctarchive/ctarchiver/internal/bundle"
	"github.com/ctarchive/ctarchiver/internal/layout"
	"github.com/ctarchive/ctarchiver/internal/merkle"
	"github.com/ctarchive/ctarchiver/internal/pkginfo"
)

func writeTestBundle(t *testing.T, root string, pkg uint64, start, end uint64, leaves [][]byte) {
	t.Helper()
	dir := filepath.Join(root, layout.BuildPackageName(pkg))
	entries := make([]ct.LeafEntry, len(leaves))
	for i, l := range leaves {
		entries[i] = ct.LeafEntry{LeafInput: l}
	}
	name := layout.BuildBundleFilename(start, end)
	require.NoError(t, bundle.Write(filepath.Join(dir, name), entries))
}

// Scenario 4: B=4, three entries in the tail bundle of package 0.
func TestHashPackageThreeOfFourEntries(t *testing.T) {
	root := t.TempDir()
	leaves := [][]byte{{0x00}, {0x01}, {0x02}}
	writeTestBundle(t, root, 0, 0, 2, leaves)

	require.NoError(t, HashPackages(context.Background(), root, 0, 0, 3, 1))

	info, err := pkginfo.Read(root, "000-0000000003.info")
	require.NoError(t, err)

	l0 := merkle.LeafHash(leaves[0])
	l1 := merkle.LeafHash(leaves[1])
	l2 := merkle.LeafHash(leaves[2])
	want := merkle.Hasher.HashChildren(merkle.Hasher.HashChildren(l0, l1), l2)
	require.Equal(t, want, info.PkgHash)
}

// Scenario 5: B=4 P=2, five entries across two packages (4 + 1).
func TestComputeProofsTwoPackages(t *testing.T) {
	root := t.TempDir()
	leaves0 := [][]byte{{0x00}, {0x01}, {0x02}, {0x03}}
	leaves1 := [][]byte{{0x04}}
	writeTestBundle(t, root, 0, 0, 3, leaves0)
	writeTestBundle(t, root, 1, 4, 4, leaves1)

	const treeSize = 5
	require.NoError(t, HashPackages(context.Background(), root, 0, 1, treeSize, 2))

	rootHash, err := ComputeProofs(context.Background(), root, treeSize, 0, 1)
	require.NoError(t, err)

	info0, err := pkginfo.Read(root, "000-0000000005.info")
	require.NoError(t, err)
	info1, err := pkginfo.Read(root, "001-0000000005.info")
	require.NoError(t, err)

	wantRoot := merkle.Hasher.HashChildren(info0.PkgHash, info1.PkgHash)
	require.Equal(t, wantRoot, rootHash)
	require.Equal(t, [][]byte{info1.PkgHash}, info0.MerkleProof)
	require.Equal(t, [][]byte{info0.PkgHash}, info1.MerkleProof)

	// T-AUDIT via the real verifier.
	require.NoError(t, proof.VerifyInclusion(merkle.Hasher, 0, 2, info0.PkgHash, info0.MerkleProof, rootHash))
	require.NoError(t, proof.VerifyInclusion(merkle.Hasher, 1, 2, info1.PkgHash, info1.MerkleProof, rootHash))
}

// Scenario 2: single entry, package 0, empty proof.
func TestSingleEntry(t *testing.T) {
	root := t.TempDir()
	leaves := [][]byte{{0x01, 0x02, 0x03}}
	writeTestBundle(t, root, 0, 0, 0, leaves)

	const treeSize = 1
	require.NoError(t, HashPackages(context.Background(), root, 0, 0, treeSize, 1))
	rootHash, err := ComputeProofs(context.Background(), root, treeSize, 0, 0)
	require.NoError(t, err)

	info, err := pkginfo.Read(root, "000-0000000001.info")
	require.NoError(t, err)
	require.Equal(t, merkle.LeafHash(leaves[0]), info.PkgHash)
	require.Empty(t, info.MerkleProof)
	require.Equal(t, info.PkgHash, rootHash)
}
