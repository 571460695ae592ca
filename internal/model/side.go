package model

import "math"

// Side is one of the four cardinal spawn sides relative to the players' center.
type Side uint8

const (
	SideLeft   Side = iota // -X
	SideRight              // +X
	SideTop                // +Z
	SideBottom             // -Z
)

// Sides lists all sides in declaration order.
var Sides = [4]Side{SideLeft, SideRight, SideTop, SideBottom}

func (s Side) String() string {
	switch s {
	case SideLeft:
		return "left"
	case SideRight:
		return "right"
	case SideTop:
		return "top"
	case SideBottom:
		return "bottom"
	default:
		return "unknown"
	}
}

// Opposite returns the side across the center.
func (s Side) Opposite() Side {
	switch s {
	case SideLeft:
		return SideRight
	case SideRight:
		return SideLeft
	case SideTop:
		return SideBottom
	default:
		return SideTop
	}
}

// Horizontal reports whether the side lies on the X axis.
func (s Side) Horizontal() bool {
	return s == SideLeft || s == SideRight
}

// ClassifyOffset maps an X/Z offset from the center to a side.
// The larger absolute component picks the axis, its sign picks the side.
// Ties go to the X axis.
func ClassifyOffset(dx, dz float64) Side {
	if math.Abs(dx) >= math.Abs(dz) {
		if dx < 0 {
			return SideLeft
		}
		return SideRight
	}
	if dz < 0 {
		return SideBottom
	}
	return SideTop
}

// SpawnCandidate is a computed spawn point together with the side it was derived from.
type SpawnCandidate struct {
	Point Vec3
	Side  Side
}
