package assign

import "math/rand"

// construct builds one randomized initial assignment. Boost flags are
// rolled first, one q-boost draw per student, then students are
// visited in a shuffled order and placed greedily:
//
//	1. first preferred seminar (rank order) with a free seat,
//	2. otherwise any seminar below max size, lowest occupancy first,
//	3. otherwise the seminar with the smallest overflow.
//
// A final rebalance pass pulls students into below-minimum seminars,
// preferring donors for whom the move does not cost preference score.
func (p *Problem) construct(rng *rand.Rand) *Assignment {
	n := p.NumStudents()
	a := &Assignment{
		Seminars: make([]int, n),
		Boosted:  make([]bool, n),
	}
	for i := 0; i < n; i++ {
		a.Boosted[i] = rng.Float64() < p.cfg.QBoostProbability
	}

	counts := make([]int, p.NumSeminars())
	for _, i := range rng.Perm(n) {
		j := p.place(i, counts)
		a.Seminars[i] = j
		counts[j]++
	}

	p.rebalance(a, counts, rng)
	return a
}

func (p *Problem) place(i int, counts []int) int {
	for _, id := range p.students[i].Preferences {
		j := p.semIndex[id]
		if counts[j] < p.maxSize[j] {
			return j
		}
	}
	// All preferences full (or none listed): pick the emptiest seminar
	// with room, falling back to least overflow.
	best, bestCount := -1, 0
	for j := range counts {
		if counts[j] >= p.maxSize[j] {
			continue
		}
		if best == -1 || counts[j] < bestCount {
			best, bestCount = j, counts[j]
		}
	}
	if best >= 0 {
		return best
	}
	overflow := 0
	for j := range counts {
		o := counts[j] - p.maxSize[j]
		if best == -1 || o < overflow {
			best, overflow = j, o
		}
	}
	return best
}

// rebalance fills seminars still below min size by moving students out
// of seminars that can spare them, favoring donors whose contribution
// does not drop.
func (p *Problem) rebalance(a *Assignment, counts []int, rng *rand.Rand) {
	for j := range counts {
		for counts[j] < p.minSize[j] {
			donor := p.pickDonor(a, counts, j, rng)
			if donor < 0 {
				return
			}
			counts[a.Seminars[donor]]--
			a.Seminars[donor] = j
			counts[j]++
		}
	}
}

// pickDonor chooses a student to move into seminar j from a seminar
// that stays at or above min size after losing them. Among eligible
// donors it prefers the best (least negative) contribution delta,
// breaking ties by visit order of a fresh shuffle. Students who
// ranked their current seminar lose score by leaving it, so the delta
// preference drains unattached students first and disturbs a
// preference-holding placement only when no one else can move.
func (p *Problem) pickDonor(a *Assignment, counts []int, j int, rng *rand.Rand) int {
	best := -1
	bestDelta := 0.0
	for _, i := range rng.Perm(len(a.Seminars)) {
		from := a.Seminars[i]
		if from == j || counts[from] <= p.minSize[from] {
			continue
		}
		d := p.contribution(i, j, a.Boosted[i]) - p.contribution(i, from, a.Boosted[i])
		if best == -1 || d > bestDelta {
			best, bestDelta = i, d
			if d >= 0 {
				return best
			}
		}
	}
	return best
}
