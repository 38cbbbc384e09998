package wallet

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashID(t *testing.T) {
	// sha256 of "swap1", stable across releases since correlation keys persist
	assert.Equal(t, "81b233b6c383adee1544f1af842b1e5a2dae753a7361edb65096ca933cb25486", HashID("swap1"))
	assert.Len(t, HashID(""), 64)
	assert.NotEqual(t, HashID("a"), HashID("b"))
}
