package world

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/udisondev/horde/internal/model"
)

func TestGeometryOverlapSphere(t *testing.T) {
	g := NewGeometry(8)
	g.Add(Collider{Center: model.NewVec3(10, 0, 10), HalfExtents: model.NewVec3(2, 2, 2)})
	g.Add(Collider{Center: model.NewVec3(-30, 0, 0), HalfExtents: model.NewVec3(5, 5, 5), Trigger: true})

	assert.Equal(t, 2, g.Count())

	tests := []struct {
		name   string
		center model.Vec3
		radius float64
		want   bool
	}{
		{"inside box", model.NewVec3(10, 0, 10), 0.5, true},
		{"touching edge", model.NewVec3(13, 0, 10), 1, true},
		{"just outside", model.NewVec3(13.5, 0, 10), 1, false},
		{"far away", model.NewVec3(100, 0, 100), 1, false},
		{"inside trigger", model.NewVec3(-30, 0, 0), 1, false},
		{"corner gap", model.NewVec3(13, 0, 13), 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.OverlapSphere(tt.center, tt.radius))
		})
	}
}

func TestGeometrySpansCells(t *testing.T) {
	g := NewGeometry(4)
	// Wall crossing many cells along X
	g.Add(Collider{Center: model.NewVec3(0, 0, 0), HalfExtents: model.NewVec3(50, 1, 1)})

	assert.True(t, g.OverlapSphere(model.NewVec3(-45, 0, 0), 0.5))
	assert.True(t, g.OverlapSphere(model.NewVec3(45, 0, 1.5), 0.6))
	assert.False(t, g.OverlapSphere(model.NewVec3(45, 0, 5), 0.6))
}

func TestGeometryEmpty(t *testing.T) {
	var g *Geometry
	assert.False(t, g.OverlapSphere(model.Vec3{}, 10))
	assert.False(t, NewGeometry(0).OverlapSphere(model.Vec3{}, 10))
}
