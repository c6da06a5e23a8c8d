package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestParseWaypoints(t *testing.T) {
	points, err := ParseWaypoints("[[0,0,0],[100,0,50],[0,25,100]]")
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, r3.Vec{X: 100, Z: 50}, points[1])
}

func TestParseWaypoints_Errors(t *testing.T) {
	_, err := ParseWaypoints("not json")
	assert.Error(t, err)

	_, err = ParseWaypoints("[[1,2]]")
	assert.ErrorContains(t, err, "insufficient values")
}

func TestFlightPathWKT(t *testing.T) {
	points := []r3.Vec{{}, {X: 3, Y: 4}, {X: 3, Y: 4, Z: 12}}

	wkt, length, err := FlightPathWKT(points)
	require.NoError(t, err)
	assert.Contains(t, wkt, "LINESTRING Z")
	assert.InDelta(t, 17, length, 1e-9)

	back, err := ParseFlightPathWKT(wkt)
	require.NoError(t, err)
	assert.Equal(t, points, back)
}

func TestFlightPathLineString_TooShort(t *testing.T) {
	_, err := FlightPathLineString([]r3.Vec{{X: 1}})
	assert.ErrorContains(t, err, "at least 2 points")
}

func TestFlightPathWKT_StraightAlongZ(t *testing.T) {
	points := []r3.Vec{{Z: 600}, {Z: 700}, {Z: 800}}

	wkt, length, err := FlightPathWKT(points)
	require.NoError(t, err)
	assert.InDelta(t, 200, length, 1e-9)

	back, err := ParseFlightPathWKT(wkt)
	require.NoError(t, err)
	assert.Equal(t, points, back)
}

func TestFlightPathLineString_NotFinite(t *testing.T) {
	_, err := FlightPathLineString([]r3.Vec{{}, {X: math.NaN()}})
	assert.ErrorContains(t, err, "not finite")

	_, err = FlightPathLineString([]r3.Vec{{Z: math.Inf(1)}, {}})
	assert.ErrorContains(t, err, "not finite")
}

func TestParseFlightPathWKT_WrongType(t *testing.T) {
	_, err := ParseFlightPathWKT("POINT (1 2)")
	assert.Error(t, err)
}
