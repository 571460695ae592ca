package model

import "math"

// Vec3 is a world-space position. Y is up; spawning works on the X/Z ground plane.
// Value type, passed by value (immutable).
type Vec3 struct {
	X float64
	Y float64
	Z float64
}

// NewVec3 creates a Vec3 with the given coordinates.
func NewVec3(x, y, z float64) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// Scale returns v * s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Negate returns -v.
func (v Vec3) Negate() Vec3 {
	return Vec3{X: -v.X, Y: -v.Y, Z: -v.Z}
}

// DistanceSquared returns squared distance to other point (no sqrt).
func (v Vec3) DistanceSquared(o Vec3) float64 {
	dx := v.X - o.X
	dy := v.Y - o.Y
	dz := v.Z - o.Z
	return dx*dx + dy*dy + dz*dz
}

// IsFinite reports whether every coordinate is a finite number.
func (v Vec3) IsFinite() bool {
	return IsFinite(v.X, v.Y, v.Z)
}

// IsFinite reports whether none of the values is NaN or infinite.
func IsFinite(values ...float64) bool {
	for _, f := range values {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// Distance returns Euclidean distance to other point.
func (v Vec3) Distance(o Vec3) float64 {
	return math.Sqrt(v.DistanceSquared(o))
}

// Centroid returns the mean of points. Returns zero Vec3 for an empty slice.
func Centroid(points []Vec3) Vec3 {
	if len(points) == 0 {
		return Vec3{}
	}
	var sum Vec3
	for _, p := range points {
		sum = sum.Add(p)
	}
	return sum.Scale(1 / float64(len(points)))
}

// Bounds is an axis-aligned box.
type Bounds struct {
	Min Vec3
	Max Vec3
}

// BoundsAround returns a cube of half-size r centered on c.
func BoundsAround(c Vec3, r float64) Bounds {
	return Bounds{
		Min: Vec3{X: c.X - r, Y: c.Y - r, Z: c.Z - r},
		Max: Vec3{X: c.X + r, Y: c.Y + r, Z: c.Z + r},
	}
}

// Intersects reports whether two boxes overlap (touching counts).
func (b Bounds) Intersects(o Bounds) bool {
	return b.Min.X <= o.Max.X && b.Max.X >= o.Min.X &&
		b.Min.Y <= o.Max.Y && b.Max.Y >= o.Min.Y &&
		b.Min.Z <= o.Max.Z && b.Max.Z >= o.Min.Z
}
