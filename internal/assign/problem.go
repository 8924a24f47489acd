package assign

import "fmt"

// Problem is the immutable, compiled view of one assignment problem:
// the domain model plus the per-(student,seminar) contribution tables
// the scorer and annealer consume. It is shared read-only across all
// trials.
type Problem struct {
	students []Student
	seminars []Seminar
	cfg      Config

	semIndex map[string]int

	// base[i][j] is student i's contribution when assigned seminar j
	// and not boosted; zero when j is not among i's preferences.
	base [][]float64
	// alt[i][j] is the contribution when boosted: equal to base for
	// preferred seminars, BoostWeight*magnification otherwise.
	alt [][]float64
	// rank[i][j] is 1..3 for preferred seminars, 0 otherwise.
	rank [][]int8

	minSize []int
	maxSize []int

	// penalty is the score subtracted per seat of capacity violation.
	// It exceeds the largest possible single-student contribution, so
	// fixing one violating seat always pays more than any preference
	// gain and a feasible assignment of equal satisfaction strictly
	// outscores an infeasible one.
	penalty float64
}

// NewProblem validates the inputs and compiles them. It fails fast
// with a ConfigError (matching ErrConfigInvalid) on any malformed
// config, seminar, or student record. Capacity infeasibility is NOT
// an error here; see CapacityDiagnostic.
func NewProblem(seminars []Seminar, students []Student, cfg Config) (*Problem, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if err := validateDomain(seminars, students); err != nil {
		return nil, err
	}
	if cfg.SnapshotInterval <= 0 {
		cfg.SnapshotInterval = DefaultSnapshotInterval
	}

	p := &Problem{
		students: students,
		seminars: seminars,
		cfg:      cfg,
		semIndex: make(map[string]int, len(seminars)),
		minSize:  make([]int, len(seminars)),
		maxSize:  make([]int, len(seminars)),
	}
	for j, s := range seminars {
		p.semIndex[s.ID] = j
		p.minSize[j] = s.MinSize
		p.maxSize[j] = s.MaxSize
	}

	weights := [MaxPreferences]float64{cfg.Weights.First, cfg.Weights.Second, cfg.Weights.Third}
	maxContribution := 0.0

	p.base = make([][]float64, len(students))
	p.alt = make([][]float64, len(students))
	p.rank = make([][]int8, len(students))
	for i, st := range students {
		p.base[i] = make([]float64, len(seminars))
		p.alt[i] = make([]float64, len(seminars))
		p.rank[i] = make([]int8, len(seminars))
		for j, sem := range seminars {
			p.alt[i][j] = cfg.BoostWeight * magnification(sem)
		}
		for r, id := range st.Preferences {
			j, ok := p.semIndex[id]
			if !ok {
				return nil, configErrorf("students", "student %d prefers unknown seminar %q", st.ID, id)
			}
			if p.rank[i][j] != 0 {
				// A seminar listed twice keeps its first, best rank.
				continue
			}
			c := weights[r] * magnification(seminars[j])
			p.base[i][j] = c
			p.alt[i][j] = c
			p.rank[i][j] = int8(r + 1)
			if c > maxContribution {
				maxContribution = c
			}
		}
	}

	p.penalty = maxContribution + 1
	return p, nil
}

func magnification(s Seminar) float64 {
	if s.Magnification == 0 {
		return 1.0
	}
	return s.Magnification
}

// Config returns the compiled tunables (with defaults applied).
func (p *Problem) Config() Config { return p.cfg }

// NumStudents returns the size of the student population.
func (p *Problem) NumStudents() int { return len(p.students) }

// NumSeminars returns the number of seminars.
func (p *Problem) NumSeminars() int { return len(p.seminars) }

// StudentID maps a student index back to its external id.
func (p *Problem) StudentID(i int) int { return p.students[i].ID }

// SeminarID maps a seminar index back to its external identifier.
func (p *Problem) SeminarID(j int) string { return p.seminars[j].ID }

// Seminars returns the seminar records in declaration order. Callers
// must not mutate the returned slice.
func (p *Problem) Seminars() []Seminar { return p.seminars }

// CapacityDiagnostic reports whether the seminar capacity totals can
// cover the student population. An infeasible problem is still
// searchable; the scorer's penalty steers toward the least-violating
// assignments.
func (p *Problem) CapacityDiagnostic() (infeasible bool, reason string) {
	totalMin, totalMax := 0, 0
	for j := range p.seminars {
		totalMin += p.minSize[j]
		totalMax += p.maxSize[j]
	}
	n := len(p.students)
	switch {
	case totalMax < n:
		return true, fmt.Sprintf("total max capacity %d is below %d students", totalMax, n)
	case totalMin > n:
		return true, fmt.Sprintf("total min capacity %d exceeds %d students", totalMin, n)
	}
	return false, ""
}

// Occupancy counts assigned students per seminar index.
func (p *Problem) occupancy(a *Assignment) []int {
	counts := make([]int, len(p.seminars))
	for _, j := range a.Seminars {
		counts[j]++
	}
	return counts
}

// Occupancy returns per-seminar head counts keyed by seminar ID.
func (p *Problem) Occupancy(a *Assignment) map[string]int {
	counts := p.occupancy(a)
	out := make(map[string]int, len(counts))
	for j, c := range counts {
		out[p.seminars[j].ID] = c
	}
	return out
}

// Feasible reports whether every seminar's occupancy lies within its
// [MinSize, MaxSize] bounds.
func (p *Problem) Feasible(a *Assignment) bool {
	for j, c := range p.occupancy(a) {
		if c < p.minSize[j] || c > p.maxSize[j] {
			return false
		}
	}
	return true
}

// ByStudentID renders an assignment as the external student→seminar
// mapping consumed by reporters and stores.
func (p *Problem) ByStudentID(a *Assignment) map[int]string {
	out := make(map[int]string, len(a.Seminars))
	for i, j := range a.Seminars {
		out[p.students[i].ID] = p.seminars[j].ID
	}
	return out
}

// Breakdown produces the per-student rank/score report for a final
// assignment, in student order.
func (p *Problem) Breakdown(a *Assignment) []StudentOutcome {
	out := make([]StudentOutcome, len(p.students))
	for i, j := range a.Seminars {
		out[i] = StudentOutcome{
			StudentID:    p.students[i].ID,
			SeminarID:    p.seminars[j].ID,
			Rank:         int(p.rank[i][j]),
			Boosted:      a.Boosted[i] && p.rank[i][j] == 0,
			Contribution: p.contribution(i, j, a.Boosted[i]),
		}
	}
	return out
}

