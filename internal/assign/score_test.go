package assign

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallSeminars(ids []string, min, max int) []Seminar {
	out := make([]Seminar, len(ids))
	for j, id := range ids {
		out[j] = Seminar{ID: id, MinSize: min, MaxSize: max}
	}
	return out
}

func mustProblem(t *testing.T, seminars []Seminar, students []Student, cfg Config) *Problem {
	t.Helper()
	p, err := NewProblem(seminars, students, cfg)
	require.NoError(t, err)
	return p
}

// assignmentOf builds an Assignment from seminar IDs, no boosts.
func assignmentOf(t *testing.T, p *Problem, ids ...string) *Assignment {
	t.Helper()
	a := &Assignment{
		Seminars: make([]int, len(ids)),
		Boosted:  make([]bool, len(ids)),
	}
	for i, id := range ids {
		j, ok := p.semIndex[id]
		require.True(t, ok, "unknown seminar %q", id)
		a.Seminars[i] = j
	}
	return a
}

func TestScoreAllFirstChoices(t *testing.T) {
	seminars := smallSeminars([]string{"a", "b", "c", "d", "e", "f", "g", "k"}, 1, 2)
	students := []Student{
		{ID: 1, Preferences: []string{"a", "c", "e"}},
		{ID: 2, Preferences: []string{"b", "d", "f"}},
		{ID: 3, Preferences: []string{"a", "g", "k"}},
		{ID: 4, Preferences: []string{"c", "a", "b"}},
	}
	p := mustProblem(t, seminars, students, DefaultConfig())

	a := assignmentOf(t, p, "a", "b", "g", "c")

	// 1→a, 2→b, 4→c are first choices (5 each); 3→g is a second
	// choice (2). No magnification anywhere.
	breakdown := p.Breakdown(a)
	total := 0.0
	for _, o := range breakdown {
		total += o.Contribution
	}
	assert.InDelta(t, 17.0, total, 1e-12)
	assert.Equal(t, 1, breakdown[0].Rank)
	assert.Equal(t, 2, breakdown[2].Rank)

	// Four of the eight seminars sit below min_size, so the full
	// score carries four penalty seats.
	assert.InDelta(t, 17.0-4*p.penalty, p.Score(a), 1e-12)
}

func TestScoreWorkedExample(t *testing.T) {
	// Trimmed to a feasible seminar set: every first choice is
	// available and every seminar meets its minimum.
	seminars := smallSeminars([]string{"a", "b", "c", "g"}, 1, 2)
	students := []Student{
		{ID: 1, Preferences: []string{"a", "c"}},
		{ID: 2, Preferences: []string{"b"}},
		{ID: 3, Preferences: []string{"g", "a"}},
		{ID: 4, Preferences: []string{"c", "a", "b"}},
	}
	p := mustProblem(t, seminars, students, DefaultConfig())

	a := assignmentOf(t, p, "a", "b", "g", "c")
	require.True(t, p.Feasible(a))
	assert.InDelta(t, 20.0, p.Score(a), 1e-12)
}

func TestScoreDuplicatePreferenceKeepsFirstRank(t *testing.T) {
	// A seminar listed at multiple ranks scores at the best one.
	seminars := smallSeminars([]string{"a", "b"}, 1, 2)
	students := []Student{
		{ID: 1, Preferences: []string{"a", "a"}},
		{ID: 2, Preferences: []string{"b"}},
	}
	p := mustProblem(t, seminars, students, DefaultConfig())

	a := assignmentOf(t, p, "a", "b")
	breakdown := p.Breakdown(a)
	assert.Equal(t, 1, breakdown[0].Rank)
	assert.InDelta(t, 5.0, breakdown[0].Contribution, 1e-12)
	assert.InDelta(t, 10.0, p.Score(a), 1e-12)
}

func TestScoreMagnification(t *testing.T) {
	seminars := []Seminar{
		{ID: "x", MinSize: 1, MaxSize: 2, Magnification: 2.0},
		{ID: "y", MinSize: 1, MaxSize: 2},
	}
	students := []Student{
		{ID: 1, Preferences: []string{"x"}},
		{ID: 2, Preferences: []string{"y"}},
	}
	p := mustProblem(t, seminars, students, DefaultConfig())

	a := assignmentOf(t, p, "x", "y")
	assert.InDelta(t, 5.0*2.0+5.0, p.Score(a), 1e-12)
}

func TestScoreFeasibleBeatsInfeasible(t *testing.T) {
	// Two assignments with identical preference satisfaction: the
	// one violating a capacity bound must score strictly lower.
	seminars := smallSeminars([]string{"a", "b"}, 1, 2)
	students := []Student{
		{ID: 1},
		{ID: 2},
		{ID: 3},
	}
	p := mustProblem(t, seminars, students, DefaultConfig())

	feasible := assignmentOf(t, p, "a", "a", "b")
	crowded := assignmentOf(t, p, "a", "a", "a")

	require.True(t, p.Feasible(feasible))
	require.False(t, p.Feasible(crowded))
	assert.Greater(t, p.Score(feasible), p.Score(crowded))
}

func TestScoreIdempotent(t *testing.T) {
	seminars, students, err := Generate(DefaultGenerateOptions())
	require.NoError(t, err)
	p := mustProblem(t, seminars, students, DefaultConfig())

	rng := rand.New(rand.NewSource(7))
	a := p.construct(rng)
	first := p.Score(a)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, p.Score(a))
	}
}

func TestScoreBoostAppliesOnlyOffPreference(t *testing.T) {
	seminars := smallSeminars([]string{"a", "b"}, 1, 2)
	students := []Student{
		{ID: 1, Preferences: []string{"a"}},
	}
	cfg := DefaultConfig()
	p := mustProblem(t, seminars, []Student{students[0], {ID: 2}}, cfg)

	boosted := assignmentOf(t, p, "b", "a")
	boosted.Boosted[0] = true
	plain := assignmentOf(t, p, "b", "a")

	// Student 1 sits outside their preference list: boost lifts the
	// contribution from 0 to BoostWeight.
	assert.InDelta(t, cfg.BoostWeight, p.Score(boosted)-p.Score(plain), 1e-12)

	// On a preferred seminar the boost flag changes nothing.
	onPref := assignmentOf(t, p, "a", "b")
	onPrefBoosted := assignmentOf(t, p, "a", "b")
	onPrefBoosted.Boosted[0] = true
	assert.Equal(t, p.Score(onPref), p.Score(onPrefBoosted))
}

func TestDeltasMatchFullRescore(t *testing.T) {
	seminars, students, err := Generate(GenerateOptions{
		NumStudents:    60,
		NumSeminars:    6,
		MinSize:        3,
		MaxSize:        15,
		PreferenceRate: 0.8,
		Seed:           11,
	})
	require.NoError(t, err)
	p := mustProblem(t, seminars, students, DefaultConfig())

	rng := rand.New(rand.NewSource(11))
	a := p.construct(rng)
	counts := p.occupancy(a)

	for step := 0; step < 200; step++ {
		i := rng.Intn(p.NumStudents())
		if rng.Intn(2) == 0 {
			to := rng.Intn(p.NumSeminars())
			want := func() float64 {
				before := p.Score(a)
				from := a.Seminars[i]
				a.Seminars[i] = to
				after := p.Score(a)
				a.Seminars[i] = from
				return after - before
			}()
			assert.InDelta(t, want, p.moveDelta(a, counts, i, to), 1e-9)
		} else {
			k := rng.Intn(p.NumStudents())
			want := func() float64 {
				before := p.Score(a)
				a.Seminars[i], a.Seminars[k] = a.Seminars[k], a.Seminars[i]
				after := p.Score(a)
				a.Seminars[i], a.Seminars[k] = a.Seminars[k], a.Seminars[i]
				return after - before
			}()
			assert.InDelta(t, want, p.swapDelta(a, i, k), 1e-9)
		}
	}
}
