package spawn

import (
	"math/rand/v2"
	"sync"

	"github.com/udisondev/horde/internal/model"
)

// BalancerConfig configures side selection.
type BalancerConfig struct {
	// ImbalanceThreshold is the vertical/horizontal count difference that forces the emptier axis
	ImbalanceThreshold int
}

// DefaultBalancerConfig returns stock balancing parameters.
func DefaultBalancerConfig() BalancerConfig {
	return BalancerConfig{ImbalanceThreshold: 3}
}

// SideCounts holds the number of live enemies per side.
type SideCounts [4]int

// Horizontal returns left+right
func (c SideCounts) Horizontal() int {
	return c[model.SideLeft] + c[model.SideRight]
}

// Vertical returns top+bottom
func (c SideCounts) Vertical() int {
	return c[model.SideTop] + c[model.SideBottom]
}

// Total returns all counted enemies
func (c SideCounts) Total() int {
	return c.Horizontal() + c.Vertical()
}

// CountSides classifies enemies by side relative to center.
func CountSides(enemies []model.Vec3, center model.Vec3) SideCounts {
	var counts SideCounts
	for _, e := range enemies {
		d := e.Sub(center)
		counts[model.ClassifyOffset(d.X, d.Z)]++
	}
	return counts
}

// Balancer picks spawn sides so enemies surround the players evenly.
type Balancer struct {
	cfg BalancerConfig

	mu  sync.Mutex
	rng *rand.Rand
}

// NewBalancer creates a balancer
func NewBalancer(cfg BalancerConfig, rng *rand.Rand) *Balancer {
	if rng == nil {
		rng = newRand(0)
	}
	return &Balancer{cfg: cfg, rng: rng}
}

// ChooseSide picks the next spawn side from live enemy positions around the players' centroid.
func (b *Balancer) ChooseSide(enemies, players []model.Vec3) model.Side {
	b.mu.Lock()
	defer b.mu.Unlock()

	counts := CountSides(enemies, model.Centroid(players))
	if counts.Total() == 0 {
		return model.Sides[b.rng.IntN(len(model.Sides))]
	}

	h, v := counts.Horizontal(), counts.Vertical()
	if diff := v - h; diff > b.cfg.ImbalanceThreshold || -diff > b.cfg.ImbalanceThreshold {
		if v > h {
			return lesser(counts, model.SideLeft, model.SideRight)
		}
		return lesser(counts, model.SideTop, model.SideBottom)
	}

	maxCount := 0
	for _, c := range counts {
		maxCount = max(maxCount, c)
	}

	var weights [4]int
	total := 0
	for i, c := range counts {
		w := maxCount - c + 1
		weights[i] = w * w
		total += weights[i]
	}

	r := b.rng.IntN(total)
	for i, w := range weights {
		if r < w {
			return model.Side(i)
		}
		r -= w
	}
	return model.SideLeft
}

// OppositeSide returns the side across the players' centroid from lastPosition.
func (b *Balancer) OppositeSide(lastPosition model.Vec3, players []model.Vec3) model.Side {
	d := lastPosition.Sub(model.Centroid(players)).Negate()
	return model.ClassifyOffset(d.X, d.Z)
}

func lesser(counts SideCounts, a, b model.Side) model.Side {
	if counts[b] < counts[a] {
		return b
	}
	return a
}
