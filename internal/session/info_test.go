package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveInfoComputesLayout(t *testing.T) {
	info, err := deriveInfo(320, 240, 4, 2, 4)
	require.NoError(t, err)
	assert.Equal(t, uint32(77), info.ButtonSize)
	assert.Equal(t, uint32(78), info.StatusBarHeight)
}

func TestDeriveInfoRejectsZeroGrid(t *testing.T) {
	_, err := deriveInfo(320, 240, 0, 2, 4)
	assert.ErrorIs(t, err, ErrProtocol)

	_, err = deriveInfo(320, 240, 4, 0, 4)
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestDeriveInfoRejectsWidthTooSmallForGaps(t *testing.T) {
	_, err := deriveInfo(10, 240, 4, 2, 4)
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestDeriveInfoRejectsUnevenGrid(t *testing.T) {
	_, err := deriveInfo(321, 240, 4, 2, 4)
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestDeriveInfoRejectsHeightTooSmallForRows(t *testing.T) {
	_, err := deriveInfo(320, 50, 4, 2, 4)
	assert.ErrorIs(t, err, ErrProtocol)
}
