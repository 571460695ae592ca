package world

import (
	"math"

	"github.com/udisondev/horde/internal/model"
)

// DefaultCellSize is the grid cell edge in world units.
const DefaultCellSize = 16.0

// cellKey is a grid cell index on the X/Z plane.
type cellKey struct {
	cx, cz int32
}

// CoordToCell converts a world coordinate to a cell index.
// Formula: floor(coord / cellSize)
func CoordToCell(x, z, cellSize float64) (cx, cz int32) {
	return int32(math.Floor(x / cellSize)), int32(math.Floor(z / cellSize))
}

// CellToCoord returns the world coordinate of a cell's min corner.
func CellToCoord(cx, cz int32, cellSize float64) (x, z float64) {
	return float64(cx) * cellSize, float64(cz) * cellSize
}

// cellRange returns the inclusive cell index range covered by bounds.
func cellRange(b model.Bounds, cellSize float64) (minX, minZ, maxX, maxZ int32) {
	minX, minZ = CoordToCell(b.Min.X, b.Min.Z, cellSize)
	maxX, maxZ = CoordToCell(b.Max.X, b.Max.Z, cellSize)
	return minX, minZ, maxX, maxZ
}
