package packager

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Scenario 7.
func TestPieceLength(t *testing.T) {
	assert.EqualValues(t, 32768, PieceLength(3_000_000))
	assert.EqualValues(t, 32768, PieceLength(30_000_000))
	assert.EqualValues(t, 196608, PieceLength(300_000_000))
}
