package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "volunteerhub/pkg/domain-errors"
)

var venue = Point{Lat: 51.5007, Lon: -0.1246}

func TestDistance(t *testing.T) {
	t.Run("same point is zero", func(t *testing.T) {
		assert.Zero(t, Distance(venue, venue))
	})

	t.Run("symmetric", func(t *testing.T) {
		other := Point{Lat: 48.8584, Lon: 2.2945}
		assert.InDelta(t, Distance(venue, other), Distance(other, venue), 1e-6)
	})

	t.Run("london to paris is about 340km", func(t *testing.T) {
		paris := Point{Lat: 48.8584, Lon: 2.2945}
		assert.InDelta(t, 340_000, Distance(venue, paris), 5_000)
	})

	t.Run("meridian offset matches requested distance", func(t *testing.T) {
		for _, m := range []float64{1, 199, 200, 201, 5000} {
			assert.InDelta(t, m, Distance(venue, OffsetNorth(venue, m)), 1e-6)
		}
	})
}

func TestFence(t *testing.T) {
	fence := DefaultFence()

	t.Run("boundary is inclusive", func(t *testing.T) {
		_, ok := fence.Check(venue, OffsetNorth(venue, 200))
		assert.True(t, ok)
	})

	t.Run("inside and outside", func(t *testing.T) {
		_, inside := fence.Check(venue, OffsetNorth(venue, 199))
		_, outside := fence.Check(venue, OffsetNorth(venue, 201))
		assert.True(t, inside)
		assert.False(t, outside)
	})

	t.Run("exclusive fence rejects the boundary", func(t *testing.T) {
		exclusive := Fence{RadiusMeters: 200}
		assert.False(t, exclusive.Admits(200))
		assert.True(t, exclusive.Admits(199.9))
	})
}

func TestPointValidate(t *testing.T) {
	require.NoError(t, venue.Validate())

	for _, p := range []Point{{Lat: 91}, {Lat: -91}, {Lon: 181}, {Lon: -181}, {Lat: math.NaN()}} {
		err := p.Validate()
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	}
}
