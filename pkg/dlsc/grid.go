package dlsc

import (
	"math"

	"github.com/df07/go-progressive-raytracer/pkg/core"
)

// cellKey identifies one bucket of the uniform spatial grid.
type cellKey struct{ x, y, z int64 }

// grid is a uniform spatial hash over Entry positions, used both during
// the build pipeline (merging new visibility particles into existing
// entries, then merging entries with their neighbors) and at runtime
// (nearest-entry lookup). spec.md describes an octree for the merge pass
// and a BVH for the final query structure; a single uniform grid plays
// both roles here; it is simpler to get right than a tree and, because
// every query radius this package uses is bounded by the grid's cell
// size, a 3x3x3 neighborhood scan around the query cell is guaranteed to
// see every candidate within range.
type grid struct {
	cellSize float64
	buckets  map[cellKey][]*Entry
}

// newGrid creates a grid whose cell size is at least as large as the
// largest radius that will ever be queried against it.
func newGrid(cellSize float64) *grid {
	if cellSize <= 0 {
		cellSize = 1
	}
	return &grid{cellSize: cellSize, buckets: make(map[cellKey][]*Entry)}
}

func (g *grid) keyFor(p core.Vec3) cellKey {
	return cellKey{
		x: int64(math.Floor(p.X / g.cellSize)),
		y: int64(math.Floor(p.Y / g.cellSize)),
		z: int64(math.Floor(p.Z / g.cellSize)),
	}
}

// insert adds an entry to its bucket.
func (g *grid) insert(e *Entry) {
	k := g.keyFor(e.Point)
	g.buckets[k] = append(g.buckets[k], e)
}

// remove deletes an entry from its bucket (used when an entry's position
// doesn't change across build steps, so the lookup is by identity).
func (g *grid) remove(e *Entry) {
	k := g.keyFor(e.Point)
	bucket := g.buckets[k]
	for i, cand := range bucket {
		if cand == e {
			g.buckets[k] = append(bucket[:i], bucket[i+1:]...)
			return
		}
	}
}

// normalOK reports whether e's landing normal is compatible with a query
// normal/isVolume pair: volume queries accept any orientation (no surface
// normal to cone against), surface queries require cos(angle) >= normalCos.
func normalOK(eNormal, queryNormal core.Vec3, eIsVolume, queryIsVolume bool, normalCos float64) bool {
	if eIsVolume != queryIsVolume {
		return false
	}
	if eIsVolume {
		return true
	}
	return eNormal.Dot(queryNormal) >= normalCos
}

// forEachNearby invokes fn for every entry in buckets within one cell of
// point's bucket (a 3x3x3 neighborhood), which covers every candidate
// within radius as long as radius <= g.cellSize.
func (g *grid) forEachNearby(point core.Vec3, fn func(e *Entry)) {
	center := g.keyFor(point)
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for dz := int64(-1); dz <= 1; dz++ {
				k := cellKey{center.x + dx, center.y + dy, center.z + dz}
				for _, e := range g.buckets[k] {
					fn(e)
				}
			}
		}
	}
}

// nearest returns the closest entry to point within radius whose normal
// cone and volume flag match the query, or nil if none qualifies.
func (g *grid) nearest(point, normal core.Vec3, isVolume bool, radius, normalCos float64) *Entry {
	var best *Entry
	bestDistSq := radius * radius
	g.forEachNearby(point, func(e *Entry) {
		if !normalOK(e.Normal, normal, e.IsVolume, isVolume, normalCos) {
			return
		}
		d := e.Point.Subtract(point).LengthSquared()
		if d <= bestDistSq {
			bestDistSq = d
			best = e
		}
	})
	return best
}

// neighbors returns every entry within radius of point meeting the normal
// cone/volume constraint, point itself excluded via the self parameter.
func (g *grid) neighbors(point, normal core.Vec3, isVolume bool, radius, normalCos float64, self *Entry) []*Entry {
	radiusSq := radius * radius
	var out []*Entry
	g.forEachNearby(point, func(e *Entry) {
		if e == self {
			return
		}
		if !normalOK(e.Normal, normal, e.IsVolume, isVolume, normalCos) {
			return
		}
		if e.Point.Subtract(point).LengthSquared() <= radiusSq {
			out = append(out, e)
		}
	})
	return out
}
