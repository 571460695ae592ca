package world

import (
	"sync"

	"github.com/udisondev/horde/internal/model"
)

// ViewRect is a top-down view area around one player's camera.
// Height is ignored: cameras look down on the X/Z plane.
type ViewRect struct {
	Center    model.Vec3
	HalfWidth float64 // along X
	HalfDepth float64 // along Z
}

// Intersects reports whether any part of b lies inside the view.
func (v ViewRect) Intersects(b model.Bounds) bool {
	return b.Max.X >= v.Center.X-v.HalfWidth && b.Min.X <= v.Center.X+v.HalfWidth &&
		b.Max.Z >= v.Center.Z-v.HalfDepth && b.Min.Z <= v.Center.Z+v.HalfDepth
}

// ViewsFor builds one view rectangle per player position.
func ViewsFor(positions []model.Vec3, halfWidth, halfDepth float64) []ViewRect {
	views := make([]ViewRect, len(positions))
	for i, p := range positions {
		views[i] = ViewRect{Center: p, HalfWidth: halfWidth, HalfDepth: halfDepth}
	}
	return views
}

// VisibleToAny reports whether b intersects at least one view.
func VisibleToAny(views []ViewRect, b model.Bounds) bool {
	for _, v := range views {
		if v.Intersects(b) {
			return true
		}
	}
	return false
}

// CameraViewport projects viewport edges of a single local camera.
// Used when no player positions are known.
type CameraViewport struct {
	mu     sync.RWMutex
	view   ViewRect
	margin float64
	valid  bool
}

// NewCameraViewport creates a viewport; edges are pushed out by margin.
func NewCameraViewport(halfWidth, halfDepth, margin float64) *CameraViewport {
	return &CameraViewport{
		view:   ViewRect{HalfWidth: halfWidth, HalfDepth: halfDepth},
		margin: margin,
	}
}

// SetCenter moves the camera.
func (c *CameraViewport) SetCenter(p model.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view.Center = p
	c.valid = true
}

// ViewportEdge returns a point just outside the given edge.
// t in [0,1] selects the position along the edge.
// Returns false until the camera has been placed.
func (c *CameraViewport) ViewportEdge(side model.Side, t float64) (model.Vec3, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.valid {
		return model.Vec3{}, false
	}

	v := c.view
	alongX := v.Center.X - v.HalfWidth + t*2*v.HalfWidth
	alongZ := v.Center.Z - v.HalfDepth + t*2*v.HalfDepth

	p := model.Vec3{Y: v.Center.Y}
	switch side {
	case model.SideLeft:
		p.X, p.Z = v.Center.X-v.HalfWidth-c.margin, alongZ
	case model.SideRight:
		p.X, p.Z = v.Center.X+v.HalfWidth+c.margin, alongZ
	case model.SideTop:
		p.X, p.Z = alongX, v.Center.Z+v.HalfDepth+c.margin
	default:
		p.X, p.Z = alongX, v.Center.Z-v.HalfDepth-c.margin
	}
	return p, true
}
