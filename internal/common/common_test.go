package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirection(t *testing.T) {
	t.Parallel()

	assert.False(t, DirDown.Oblique())
	for _, d := range []Direction{DirNorth, DirEast, DirSouth, DirWest} {
		assert.True(t, d.Oblique())
	}

	assert.Equal(t, 0, DirNorth.Degrees())
	assert.Equal(t, 90, DirEast.Degrees())
	assert.Equal(t, 180, DirSouth.Degrees())
	assert.Equal(t, 270, DirWest.Degrees())

	assert.Equal(t, "down", DirDown.String())
	assert.Equal(t, "west", DirWest.String())
}

func TestParseDirection(t *testing.T) {
	t.Parallel()

	for input, want := range map[string]Direction{
		"":      DirDown,
		"down":  DirDown,
		"north": DirNorth,
		"east":  DirEast,
		"south": DirSouth,
		"west":  DirWest,
	} {
		got, err := ParseDirection(input)
		require.NoError(t, err, "input %q", input)
		assert.Equal(t, want, got, "input %q", input)
	}

	_, err := ParseDirection("sideways")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "904", Version(904).String())
	assert.True(t, Version(0).Valid())
	assert.True(t, Version(904).Valid())
	assert.False(t, Version(-1).Valid())
}
