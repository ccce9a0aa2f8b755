package geo

import (
	"math"
	"sort"
	"sync"
)

// DefaultCellDegrees is the bucket edge of a grid index, roughly 1.1 km of latitude
const DefaultCellDegrees = 0.01

// Match is an indexed id together with its distance from the query point
type Match struct {
	ID             string
	DistanceMeters float64
}

// SpatialIndex answers radius queries over point data
type SpatialIndex interface {
	Insert(id string, p Point)
	Remove(id string)
	QueryWithinRadius(p Point, radiusMeters float64) []Match
}

type cell struct {
	row, col int
}

// GridIndex buckets points into fixed-size lat/lng cells and scans only the
// cells a query circle can touch. Safe for concurrent use.
type GridIndex struct {
	mu          sync.RWMutex
	cellDegrees float64
	points      map[string]Point
	cells       map[cell]map[string]struct{}
}

// NewGridIndex creates a grid index. Non-positive cell sizes use DefaultCellDegrees.
func NewGridIndex(cellDegrees float64) *GridIndex {
	if cellDegrees <= 0 {
		cellDegrees = DefaultCellDegrees
	}
	return &GridIndex{
		cellDegrees: cellDegrees,
		points:      make(map[string]Point),
		cells:       make(map[cell]map[string]struct{}),
	}
}

var _ SpatialIndex = (*GridIndex)(nil)

func (g *GridIndex) cellOf(p Point) cell {
	return cell{
		row: int(math.Floor(p.Lat / g.cellDegrees)),
		col: int(math.Floor(p.Lng / g.cellDegrees)),
	}
}

// Insert adds or moves a point
func (g *GridIndex) Insert(id string, p Point) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.removeLocked(id)
	g.points[id] = p
	c := g.cellOf(p)
	bucket, ok := g.cells[c]
	if !ok {
		bucket = make(map[string]struct{})
		g.cells[c] = bucket
	}
	bucket[id] = struct{}{}
}

// Remove deletes a point; unknown ids are ignored
func (g *GridIndex) Remove(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.removeLocked(id)
}

func (g *GridIndex) removeLocked(id string) {
	p, ok := g.points[id]
	if !ok {
		return
	}
	c := g.cellOf(p)
	if bucket, ok := g.cells[c]; ok {
		delete(bucket, id)
		if len(bucket) == 0 {
			delete(g.cells, c)
		}
	}
	delete(g.points, id)
}

// Len returns the number of indexed points
func (g *GridIndex) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.points)
}

// QueryWithinRadius returns every point within radiusMeters of p, ordered by
// ascending distance and then id.
func (g *GridIndex) QueryWithinRadius(p Point, radiusMeters float64) []Match {
	if radiusMeters < 0 || math.IsNaN(radiusMeters) {
		return []Match{}
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	matches := []Match{}
	collect := func(id string, q Point) {
		if d := DistanceMeters(p, q); d <= radiusMeters {
			matches = append(matches, Match{ID: id, DistanceMeters: d})
		}
	}

	// Bounding box of the query circle: the widest longitude offset of a
	// spherical cap is asin(sin(d)/cos(lat)).
	angular := radiusMeters / EarthRadiusMeters
	latSpan := angular*180/math.Pi + 1e-9
	lngSpan := math.Inf(1)
	if ratio := math.Sin(angular) / math.Cos(p.Lat*math.Pi/180); angular < math.Pi/2 && ratio >= 0 && ratio < 1 {
		lngSpan = math.Asin(ratio)*180/math.Pi + 1e-9
	}

	// Near the poles, across the antimeridian, or when the window covers more
	// cells than there are points, a full scan is cheaper.
	minCell := g.cellOf(Point{Lat: p.Lat - latSpan, Lng: p.Lng - lngSpan})
	maxCell := g.cellOf(Point{Lat: p.Lat + latSpan, Lng: p.Lng + lngSpan})
	fullScan := math.IsInf(lngSpan, 1) ||
		math.Abs(p.Lat)+latSpan >= 90 ||
		p.Lng-lngSpan < -180 || p.Lng+lngSpan > 180 ||
		float64(maxCell.row-minCell.row+1)*float64(maxCell.col-minCell.col+1) > float64(len(g.points))

	if fullScan {
		for id, q := range g.points {
			collect(id, q)
		}
	} else {
		for row := minCell.row; row <= maxCell.row; row++ {
			for col := minCell.col; col <= maxCell.col; col++ {
				for id := range g.cells[cell{row: row, col: col}] {
					collect(id, g.points[id])
				}
			}
		}
	}

	sortMatches(matches)
	return matches
}

func sortMatches(matches []Match) {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].DistanceMeters != matches[j].DistanceMeters {
			return matches[i].DistanceMeters < matches[j].DistanceMeters
		}
		return matches[i].ID < matches[j].ID
	})
}
