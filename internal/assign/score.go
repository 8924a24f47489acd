package assign

// contribution is student i's score term when placed in seminar j.
// Boost only applies when j is outside i's preference list.
func (p *Problem) contribution(i, j int, boosted bool) float64 {
	if boosted {
		return p.alt[i][j]
	}
	return p.base[i][j]
}

// violation is the number of penalized seats for occupancy c in
// seminar j: seats above MaxSize or the shortfall below MinSize.
func (p *Problem) violation(j, c int) int {
	if c > p.maxSize[j] {
		return c - p.maxSize[j]
	}
	if c < p.minSize[j] {
		return p.minSize[j] - c
	}
	return 0
}

// Score evaluates an assignment from scratch: the sum of student
// contributions minus the capacity penalty per violating seat. It is
// a pure function of (problem, assignment) and safe to call
// concurrently.
func (p *Problem) Score(a *Assignment) float64 {
	total := 0.0
	for i, j := range a.Seminars {
		total += p.contribution(i, j, a.Boosted[i])
	}
	for j, c := range p.occupancy(a) {
		total -= p.penalty * float64(p.violation(j, c))
	}
	return total
}

// moveDelta is the score change from reassigning student i from its
// current seminar to seminar `to`, given the current occupancy counts.
// Identical to rescoring the mutated assignment, at O(1) cost.
func (p *Problem) moveDelta(a *Assignment, counts []int, i, to int) float64 {
	from := a.Seminars[i]
	if from == to {
		return 0
	}
	d := p.contribution(i, to, a.Boosted[i]) - p.contribution(i, from, a.Boosted[i])
	d -= p.penalty * float64(p.violation(from, counts[from]-1)-p.violation(from, counts[from]))
	d -= p.penalty * float64(p.violation(to, counts[to]+1)-p.violation(to, counts[to]))
	return d
}

// swapDelta is the score change from exchanging the seminars of
// students i and k. Occupancies are unchanged by a swap, so only the
// contribution terms move.
func (p *Problem) swapDelta(a *Assignment, i, k int) float64 {
	ji, jk := a.Seminars[i], a.Seminars[k]
	if ji == jk {
		return 0
	}
	return p.contribution(i, jk, a.Boosted[i]) - p.contribution(i, ji, a.Boosted[i]) +
		p.contribution(k, ji, a.Boosted[k]) - p.contribution(k, jk, a.Boosted[k])
}
