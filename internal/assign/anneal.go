package assign

import (
	"math"
	"math/rand"
)

// temperatureFloor keeps the acceptance exponent finite once geometric
// cooling has driven the temperature to effectively zero.
const temperatureFloor = 1e-9

// anneal refines an initial assignment with simulated annealing and
// returns the best assignment ever visited, which may be the initial
// one. It runs exactly cfg.LocalSearchIterations steps; each step
// proposes either a single reassignment or a pairwise swap (uniform
// choice), accepts improvements outright and worsenings with
// probability exp(delta/temperature), then cools the temperature
// geometrically.
//
// The initial assignment is mutated in place as the walking state;
// callers must not reuse it afterwards.
func (p *Problem) anneal(a *Assignment, rng *rand.Rand) ScoredAssignment {
	n := p.NumStudents()
	m := p.NumSeminars()
	counts := p.occupancy(a)

	current := p.Score(a)
	best := ScoredAssignment{Assignment: a.Clone(), Score: current}

	temp := p.cfg.InitialTemperature
	for step := 0; step < p.cfg.LocalSearchIterations; step++ {
		var delta float64
		var apply func()

		if rng.Intn(2) == 0 && m >= 2 {
			i := rng.Intn(n)
			to := rng.Intn(m - 1)
			if to >= a.Seminars[i] {
				to++
			}
			delta = p.moveDelta(a, counts, i, to)
			apply = func() {
				counts[a.Seminars[i]]--
				a.Seminars[i] = to
				counts[to]++
			}
		} else if n >= 2 {
			i := rng.Intn(n)
			k := rng.Intn(n - 1)
			if k >= i {
				k++
			}
			delta = p.swapDelta(a, i, k)
			apply = func() {
				a.Seminars[i], a.Seminars[k] = a.Seminars[k], a.Seminars[i]
			}
		}

		if apply != nil && (delta >= 0 || rng.Float64() < math.Exp(delta/temp)) {
			apply()
			current += delta
			if current > best.Score {
				best = ScoredAssignment{Assignment: a.Clone(), Score: current}
			}
		}

		temp *= p.cfg.CoolingRate
		if temp < temperatureFloor {
			temp = temperatureFloor
		}
	}
	return best
}
