package assign

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProblemValidation(t *testing.T) {
	okSeminars := smallSeminars([]string{"a", "b"}, 1, 3)
	okStudents := []Student{{ID: 1, Preferences: []string{"a"}}, {ID: 2}}

	tests := []struct {
		name     string
		seminars []Seminar
		students []Student
		mutate   func(*Config)
		field    string
	}{
		{
			name:     "non-positive first weight",
			seminars: okSeminars,
			students: okStudents,
			mutate:   func(c *Config) { c.Weights.First = 0 },
			field:    "weights.first",
		},
		{
			name:     "negative boost weight",
			seminars: okSeminars,
			students: okStudents,
			mutate:   func(c *Config) { c.BoostWeight = -1 },
			field:    "boost_weight",
		},
		{
			name:     "boost probability above one",
			seminars: okSeminars,
			students: okStudents,
			mutate:   func(c *Config) { c.QBoostProbability = 1.5 },
			field:    "q_boost_probability",
		},
		{
			name:     "zero patterns",
			seminars: okSeminars,
			students: okStudents,
			mutate:   func(c *Config) { c.NumPatterns = 0 },
			field:    "num_patterns",
		},
		{
			name:     "zero workers",
			seminars: okSeminars,
			students: okStudents,
			mutate:   func(c *Config) { c.MaxWorkers = 0 },
			field:    "max_workers",
		},
		{
			name:     "negative iterations",
			seminars: okSeminars,
			students: okStudents,
			mutate:   func(c *Config) { c.LocalSearchIterations = -1 },
			field:    "local_search_iterations",
		},
		{
			name:     "zero temperature",
			seminars: okSeminars,
			students: okStudents,
			mutate:   func(c *Config) { c.InitialTemperature = 0 },
			field:    "initial_temperature",
		},
		{
			name:     "cooling rate of one",
			seminars: okSeminars,
			students: okStudents,
			mutate:   func(c *Config) { c.CoolingRate = 1 },
			field:    "cooling_rate",
		},
		{
			name:     "min above max",
			seminars: []Seminar{{ID: "a", MinSize: 5, MaxSize: 2}},
			students: []Student{{ID: 1}},
			field:    "seminars",
		},
		{
			name:     "zero min size",
			seminars: []Seminar{{ID: "a", MinSize: 0, MaxSize: 2}},
			students: []Student{{ID: 1}},
			field:    "seminars",
		},
		{
			name:     "duplicate seminar id",
			seminars: smallSeminars([]string{"a", "a"}, 1, 2),
			students: []Student{{ID: 1}},
			field:    "seminars",
		},
		{
			name:     "no seminars",
			seminars: nil,
			students: okStudents,
			field:    "seminars",
		},
		{
			name:     "no students",
			seminars: okSeminars,
			students: nil,
			field:    "students",
		},
		{
			name:     "duplicate student id",
			seminars: okSeminars,
			students: []Student{{ID: 1}, {ID: 1}},
			field:    "students",
		},
		{
			name:     "unknown preference",
			seminars: okSeminars,
			students: []Student{{ID: 1, Preferences: []string{"zzz"}}},
			field:    "students",
		},
		{
			name:     "too many preferences",
			seminars: smallSeminars([]string{"a", "b", "c", "d"}, 1, 2),
			students: []Student{{ID: 1, Preferences: []string{"a", "b", "c", "d"}}},
			field:    "students",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}
			_, err := NewProblem(tt.seminars, tt.students, cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfigInvalid)

			var cerr *ConfigError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.field, cerr.Field)
		})
	}
}

func TestNewProblemDefaults(t *testing.T) {
	seminars := []Seminar{{ID: "a", MinSize: 1, MaxSize: 4}}
	students := []Student{{ID: 1, Preferences: []string{"a"}}}

	cfg := DefaultConfig()
	cfg.SnapshotInterval = 0
	p := mustProblem(t, seminars, students, cfg)
	assert.Equal(t, DefaultSnapshotInterval, p.Config().SnapshotInterval)

	// Magnification zero value means 1.0.
	a := assignmentOf(t, p, "a")
	assert.InDelta(t, cfg.Weights.First, p.Score(a), 1e-12)
}

func TestCapacityDiagnostic(t *testing.T) {
	students := []Student{{ID: 1}, {ID: 2}, {ID: 3}}

	p := mustProblem(t, smallSeminars([]string{"a"}, 1, 2), students, DefaultConfig())
	infeasible, reason := p.CapacityDiagnostic()
	assert.True(t, infeasible)
	assert.Contains(t, reason, "max capacity")

	p = mustProblem(t, smallSeminars([]string{"a", "b"}, 2, 4), students, DefaultConfig())
	infeasible, reason = p.CapacityDiagnostic()
	assert.True(t, infeasible)
	assert.Contains(t, reason, "min capacity")

	p = mustProblem(t, smallSeminars([]string{"a", "b"}, 1, 2), students, DefaultConfig())
	infeasible, _ = p.CapacityDiagnostic()
	assert.False(t, infeasible)
}

func TestBreakdownAndOccupancy(t *testing.T) {
	seminars := smallSeminars([]string{"a", "b"}, 1, 2)
	students := []Student{
		{ID: 10, Preferences: []string{"a", "b"}},
		{ID: 20, Preferences: []string{"b"}},
		{ID: 30},
	}
	p := mustProblem(t, seminars, students, DefaultConfig())

	a := assignmentOf(t, p, "b", "b", "a")
	a.Boosted[2] = true

	breakdown := p.Breakdown(a)
	require.Len(t, breakdown, 3)

	assert.Equal(t, StudentOutcome{StudentID: 10, SeminarID: "b", Rank: 2, Contribution: 2}, breakdown[0])
	assert.Equal(t, StudentOutcome{StudentID: 20, SeminarID: "b", Rank: 1, Contribution: 5}, breakdown[1])
	assert.Equal(t, StudentOutcome{StudentID: 30, SeminarID: "a", Boosted: true, Contribution: 0.5}, breakdown[2])

	assert.Equal(t, map[string]int{"a": 1, "b": 2}, p.Occupancy(a))
	assert.Equal(t, map[int]string{10: "b", 20: "b", 30: "a"}, p.ByStudentID(a))
}
