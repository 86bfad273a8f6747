package grid

import (
	"slices"
)

// Direction tells Locate which end of an axis is index 0.
type Direction int

const (
	// Ascending numbers clusters from the lowest coordinate, e.g. columns left to right.
	Ascending Direction = iota
	// Descending numbers clusters from the highest coordinate, e.g. rows top to
	// bottom in a Y-up coordinate space.
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "descending"
	}
	return "ascending"
}

// AxisClusters holds the representative coordinate of every line found along
// one axis. Coordinates are strictly increasing and pairwise further apart
// than Tolerance.
type AxisClusters struct {
	Coordinates []float64
	Tolerance   float64
}

// ClusterAxis groups 1D coordinates into lines.
//
// Coordinates are sorted and scanned once. A coordinate opens a new cluster
// when it lies more than tolerance above the previous cluster's seed;
// otherwise it joins that cluster. Seeds are never re-centered, so a cluster
// spans [seed, seed+tolerance] rather than a band around its centroid. That
// is good enough for evenly spaced tiles.
func ClusterAxis(coords []float64, tolerance float64) AxisClusters {
	clusters := AxisClusters{Tolerance: tolerance}
	if len(coords) == 0 {
		return clusters
	}

	sorted := slices.Clone(coords)
	slices.Sort(sorted)

	prev := sorted[0]
	clusters.Coordinates = append(clusters.Coordinates, prev)
	for _, c := range sorted[1:] {
		if prev+tolerance < c {
			clusters.Coordinates = append(clusters.Coordinates, c)
			prev = c
		}
	}

	return clusters
}

// Len returns the number of lines
func (a AxisClusters) Len() int {
	return len(a.Coordinates)
}

// Locate returns the index, counted in the given direction, of the first
// cluster whose representative lies strictly within Tolerance of c.
func (a AxisClusters) Locate(c float64, dir Direction) (int, bool) {
	n := len(a.Coordinates)
	for rank := 0; rank < n; rank++ {
		i := rank
		if dir == Descending {
			i = n - 1 - rank
		}
		rep := a.Coordinates[i]
		if rep+a.Tolerance > c && rep-a.Tolerance < c {
			return rank, true
		}
	}
	return -1, false
}

func centers(letters []ObservedLetter, center func(BoundingBox) float64) []float64 {
	coords := make([]float64, len(letters))
	for i, letter := range letters {
		coords[i] = center(letter.BoundingBox)
	}
	return coords
}
