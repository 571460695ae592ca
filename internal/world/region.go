package world

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/udisondev/horde/internal/model"
)

// Collider is a static axis-aligned obstacle.
// Triggers never block spawns.
type Collider struct {
	Center      model.Vec3
	HalfExtents model.Vec3
	Trigger     bool
}

// Bounds returns the collider's box.
func (c Collider) Bounds() model.Bounds {
	return model.Bounds{Min: c.Center.Sub(c.HalfExtents), Max: c.Center.Add(c.HalfExtents)}
}

// OverlapsSphere reports whether the box intersects a sphere.
func (c Collider) OverlapsSphere(center model.Vec3, radius float64) bool {
	b := c.Bounds()
	dx := axisGap(center.X, b.Min.X, b.Max.X)
	dy := axisGap(center.Y, b.Min.Y, b.Max.Y)
	dz := axisGap(center.Z, b.Min.Z, b.Max.Z)
	return dx*dx+dy*dy+dz*dz <= radius*radius
}

func axisGap(v, lo, hi float64) float64 {
	if v < lo {
		return lo - v
	}
	if v > hi {
		return v - hi
	}
	return 0
}

// Geometry is the static collision layer bucketed into a uniform X/Z grid.
// Colliders are added at load time; queries are safe for concurrent use.
type Geometry struct {
	cellSize float64

	mu    sync.RWMutex
	cells map[cellKey][]int
	all   []Collider

	count atomic.Int32 // cached collider count (O(1) access)
}

// NewGeometry creates an empty geometry layer.
func NewGeometry(cellSize float64) *Geometry {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	return &Geometry{
		cellSize: cellSize,
		cells:    make(map[cellKey][]int),
	}
}

// Add registers a collider in every cell its box covers.
func (g *Geometry) Add(c Collider) {
	g.mu.Lock()
	defer g.mu.Unlock()

	idx := len(g.all)
	g.all = append(g.all, c)

	minX, minZ, maxX, maxZ := cellRange(c.Bounds(), g.cellSize)
	for cx := minX; cx <= maxX; cx++ {
		for cz := minZ; cz <= maxZ; cz++ {
			k := cellKey{cx, cz}
			g.cells[k] = append(g.cells[k], idx)
		}
	}
	g.count.Add(1)
}

// Count returns number of colliders
func (g *Geometry) Count() int {
	return int(g.count.Load())
}

// OverlapSphere reports whether any non-trigger collider intersects the sphere.
func (g *Geometry) OverlapSphere(center model.Vec3, radius float64) bool {
	if g == nil || g.Count() == 0 {
		return false
	}
	radius = math.Abs(radius)

	g.mu.RLock()
	defer g.mu.RUnlock()

	minX, minZ, maxX, maxZ := cellRange(model.BoundsAround(center, radius), g.cellSize)
	for cx := minX; cx <= maxX; cx++ {
		for cz := minZ; cz <= maxZ; cz++ {
			for _, idx := range g.cells[cellKey{cx, cz}] {
				c := g.all[idx]
				if c.Trigger {
					continue
				}
				if c.OverlapsSphere(center, radius) {
					return true
				}
			}
		}
	}
	return false
}
