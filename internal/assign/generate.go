package assign

import (
	"fmt"
	"math/rand"
)

// GenerateOptions shapes a synthetic dataset for benchmarks and demos.
type GenerateOptions struct {
	NumStudents int
	NumSeminars int
	MinSize     int
	MaxSize     int
	// PreferenceRate is the probability that a student lists any
	// preferences at all; listed students always rank MaxPreferences
	// distinct seminars.
	PreferenceRate float64
	Seed           int64
}

// DefaultGenerateOptions sizes a dataset that exercises capacity
// pressure without being trivially feasible.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		NumStudents:    200,
		NumSeminars:    10,
		MinSize:        5,
		MaxSize:        25,
		PreferenceRate: 0.9,
	}
}

// GenerateStudents draws random ranked preferences for numStudents
// students over the given seminar IDs. Roughly one student in ten
// lists no preferences at all, mirroring real intake data.
func GenerateStudents(numStudents int, seminarIDs []string, rng *rand.Rand) []Student {
	students := make([]Student, numStudents)
	for i := range students {
		students[i] = Student{ID: i + 1}
		if rng.Float64() < 0.1 {
			continue
		}
		k := MaxPreferences
		if len(seminarIDs) < k {
			k = len(seminarIDs)
		}
		perm := rng.Perm(len(seminarIDs))
		prefs := make([]string, k)
		for r := 0; r < k; r++ {
			prefs[r] = seminarIDs[perm[r]]
		}
		students[i].Preferences = prefs
	}
	return students
}

// Generate produces a reproducible random problem instance.
func Generate(opts GenerateOptions) ([]Seminar, []Student, error) {
	if opts.NumSeminars < MaxPreferences {
		return nil, nil, configErrorf("generate", "need at least %d seminars, got %d", MaxPreferences, opts.NumSeminars)
	}
	if opts.MinSize <= 0 || opts.MinSize > opts.MaxSize {
		return nil, nil, configErrorf("generate", "invalid size bounds [%d, %d]", opts.MinSize, opts.MaxSize)
	}
	rng := rand.New(rand.NewSource(opts.Seed))

	seminars := make([]Seminar, opts.NumSeminars)
	for j := range seminars {
		seminars[j] = Seminar{
			ID:      fmt.Sprintf("S%03d", j+1),
			MinSize: opts.MinSize,
			MaxSize: opts.MaxSize,
		}
		// A few seminars carry extra weight to make preference order
		// matter in the score.
		if rng.Float64() < 0.2 {
			seminars[j].Magnification = 1.0 + rng.Float64()
		}
	}

	students := make([]Student, opts.NumStudents)
	for i := range students {
		students[i] = Student{ID: i + 1}
		if rng.Float64() >= opts.PreferenceRate {
			continue
		}
		perm := rng.Perm(opts.NumSeminars)
		prefs := make([]string, MaxPreferences)
		for r := 0; r < MaxPreferences; r++ {
			prefs[r] = seminars[perm[r]].ID
		}
		students[i].Preferences = prefs
	}
	return seminars, students, nil
}
