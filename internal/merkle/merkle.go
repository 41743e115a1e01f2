// Package merkle implements the RFC 6962 §2.1 Merkle Tree Hash over
// arbitrary leaf lists: bundle leaves, package-hash lists, and anything
// else the archiver needs to reduce to a single root plus audit paths.
//
// Unlike the naive pair-wise-with-odd-carry shortcut (which only agrees
// with RFC 6962 when the input length is a power of two), the functions
// here always split at the largest power of two strictly less than the
// input length, per the recurrence in RFC 6962 §2.1:
//
//	MTH(D[n]) = HashChildren(MTH(D[0:k]), MTH(D[k:n]))
//
// where k is the largest power of two < n.
package merkle

import (
	"github.com/transparency-dev/merkle"
	"github.com/transparency-dev/merkle/rfc6962"
)

// Hasher is the RFC 6962 leaf/node hasher shared by every reduction in
// this package.
var Hasher merkle.LogHasher = rfc6962.DefaultHasher

// LeafHash returns the RFC 6962 leaf hash SHA256(0x00 || leaf).
func LeafHash(leaf []byte) []byte {
	return Hasher.HashLeaf(leaf)
}

// splitPoint returns the largest power of two strictly less than n.
// Precondition: n >= 2.
func splitPoint(n int) int {
	k := 1
	for k*2 < n {
		k *= 2
	}
	return k
}

// Root computes the RFC 6962 Merkle Tree Hash of already-leaf-hashed (or
// already-node-hashed, for reductions over a level of hashes) values.
// Root of zero hashes is the hasher's empty root; root of one hash is
// that hash unchanged.
func Root(hashes [][]byte) []byte {
	n := len(hashes)
	switch {
	case n == 0:
		return Hasher.EmptyRoot()
	case n == 1:
		return hashes[0]
	default:
		k := splitPoint(n)
		return Hasher.HashChildren(Root(hashes[:k]), Root(hashes[k:]))
	}
}

// AuditPaths computes, in one pass, the RFC 6962 root of hashes together
// with the audit path of every index named in targets. Each returned
// path is ordered from the leaf level up to the root, matching the
// chaining order expected by github.com/transparency-dev/merkle/proof's
// VerifyInclusion.
func AuditPaths(hashes [][]byte, targets []int) (root []byte, paths map[int][][]byte) {
	root, paths = auditRec(hashes, targets)
	return root, paths
}

func auditRec(hashes [][]byte, targets []int) ([]byte, map[int][][]byte) {
	n := len(hashes)
	if n == 0 {
		return Hasher.EmptyRoot(), map[int][][]byte{}
	}
	if n == 1 {
		return hashes[0], map[int][][]byte{}
	}
	k := splitPoint(n)

	var leftTargets, rightTargets []int
	for _, t := range targets {
		if t < k {
			leftTargets = append(leftTargets, t)
		} else {
			rightTargets = append(rightTargets, t-k)
		}
	}

	leftRoot, leftPaths := auditRec(hashes[:k], leftTargets)
	rightRoot, rightPaths := auditRec(hashes[k:], rightTargets)

	out := make(map[int][][]byte, len(targets))
	for _, t := range targets {
		if t < k {
			p := append([][]byte{}, leftPaths[t]...)
			out[t] = append(p, rightRoot)
		} else {
			p := append([][]byte{}, rightPaths[t-k]...)
			out[t] = append(p, leftRoot)
		}
	}
	return Hasher.HashChildren(leftRoot, rightRoot), out
}
