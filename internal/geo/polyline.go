package geo

import (
	"encoding/json"
	"fmt"
	"math"

	geom "github.com/peterstace/simplefeatures/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// ParseWaypoints parses a JSON array of coordinates into points.
// Input format: "[[x1,y1,z1],[x2,y2,z2],...]"
func ParseWaypoints(input string) ([]r3.Vec, error) {
	var coords [][]float64
	if err := json.Unmarshal([]byte(input), &coords); err != nil {
		return nil, fmt.Errorf("failed to parse waypoint JSON: %w", err)
	}

	points := make([]r3.Vec, len(coords))
	for i, coord := range coords {
		if len(coord) < 3 {
			return nil, fmt.Errorf("coordinate %d has insufficient values", i)
		}
		points[i] = r3.Vec{X: coord[0], Y: coord[1], Z: coord[2]}
	}
	return points, nil
}

// FlightPathLineString builds a 3D LineString from sampled positions.
//
// The library's planar validation wants two distinct XY values, which a
// straight climb along Z does not have, so it is skipped. Paths are only
// serialized, never used in planar calculations.
func FlightPathLineString(points []r3.Vec) (geom.LineString, error) {
	if len(points) < 2 {
		return geom.LineString{}, fmt.Errorf("flight path must have at least 2 points, got %d", len(points))
	}

	flatCoords := make([]float64, 0, len(points)*3)
	for i, p := range points {
		if !finite(p) {
			return geom.LineString{}, fmt.Errorf("flight path point %d is not finite: %v", i, p)
		}
		flatCoords = append(flatCoords, p.X, p.Y, p.Z)
	}

	seq := geom.NewSequence(flatCoords, geom.DimXYZ)
	return geom.NewLineString(seq, geom.DisableAllValidations)
}

func finite(p r3.Vec) bool {
	for _, v := range [3]float64{p.X, p.Y, p.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// FlightPathWKT returns the WKT text of the path and its 3D length.
func FlightPathWKT(points []r3.Vec) (string, float64, error) {
	ls, err := FlightPathLineString(points)
	if err != nil {
		return "", 0, err
	}
	return ls.AsText(), PathLength(points), nil
}

// ParseFlightPathWKT is the inverse of FlightPathWKT.
func ParseFlightPathWKT(wkt string) ([]r3.Vec, error) {
	g, err := geom.UnmarshalWKT(wkt, geom.DisableAllValidations)
	if err != nil {
		return nil, fmt.Errorf("failed to parse flight path WKT: %w", err)
	}
	if g.Type() != geom.TypeLineString {
		return nil, fmt.Errorf("flight path WKT is %s, want LineString", g.Type())
	}

	seq := g.DumpCoordinates()
	points := make([]r3.Vec, seq.Length())
	for i := range points {
		c := seq.Get(i)
		points[i] = r3.Vec{X: c.XY.X, Y: c.XY.Y, Z: c.Z}
	}
	return points, nil
}

// PathLength sums the 3D segment lengths of points.
func PathLength(points []r3.Vec) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += Distance(points[i-1], points[i])
	}
	return total
}
