package packager

// minPieceLength is the 32 KiB floor §4.4 mandates regardless of T.
const minPieceLength int64 = 1 << 15

// PieceLength implements §4.4's formula: for total content size T bytes,
// piece length = max(2^15, ((T/1500) >> 13) << 13) — at least 32 KiB,
// otherwise the largest multiple of 8 KiB that yields roughly 1500
// pieces (the >>13<<13 pair rounds down to a multiple of 8192, which the
// worked examples in spec.md §8 confirm: scaling to ~196_608 for
// T=300_000_000).
func PieceLength(totalSize int64) int64 {
	v := (totalSize / 1500) >> 13 << 13
	if v < minPieceLength {
		return minPieceLength
	}
	return v
}
