package pso

import "math/rand"

// particle is one candidate gain vector with its velocity and memory.
// bestPos is always an independent copy of a past position: the live
// position keeps evolving after a best is recorded, so aliasing it would
// silently corrupt the memory.
type particle struct {
	pos []float64
	vel []float64

	bestPos  []float64
	bestCost float64

	cost float64
}

// newSwarm samples positions uniformly inside the search box and
// velocities uniformly in +-(hi-lo) per dimension. All draws come from
// the tuner's single sequential source.
func newSwarm(cfg Config, rng *rand.Rand) []*particle {
	dims := len(cfg.Bounds)
	swarm := make([]*particle, cfg.Particles)
	for i := range swarm {
		p := &particle{
			pos:     make([]float64, dims),
			vel:     make([]float64, dims),
			bestPos: make([]float64, dims),
		}
		for d, b := range cfg.Bounds {
			span := b[1] - b[0]
			p.pos[d] = b[0] + rng.Float64()*span
			p.vel[d] = (2*rng.Float64() - 1) * span
		}
		swarm[i] = p
	}
	return swarm
}

// recordBest copies the current position into the personal best.
func (p *particle) recordBest() {
	copy(p.bestPos, p.pos)
	p.bestCost = p.cost
}

// advance applies the constriction velocity update toward the personal
// and global bests, then moves and clips the position to the bounds.
func (p *particle) advance(cfg Config, gbest []float64, rng *rand.Rand) {
	for d, b := range cfg.Bounds {
		r1 := rng.Float64()
		r2 := rng.Float64()
		p.vel[d] = cfg.Chi * (p.vel[d] +
			cfg.Phi1*r1*(p.bestPos[d]-p.pos[d]) +
			cfg.Phi2*r2*(gbest[d]-p.pos[d]))
		p.pos[d] += p.vel[d]
		if p.pos[d] < b[0] {
			p.pos[d] = b[0]
		} else if p.pos[d] > b[1] {
			p.pos[d] = b[1]
		}
	}
}
