package assign

// MaxPreferences is the number of ranked choices a student may state.
const MaxPreferences = 3

// DefaultSnapshotInterval is how many completed trials pass between
// progress snapshots when Config.SnapshotInterval is zero.
const DefaultSnapshotInterval = 5000

// Student is one participant with an ordered preference list.
// Preferences holds seminar IDs, most preferred first, at most
// MaxPreferences entries. Fewer entries (or none) are allowed.
type Student struct {
	ID          int
	Preferences []string
}

// Seminar describes one seminar and its capacity bounds.
// A Magnification of zero is treated as 1.0.
type Seminar struct {
	ID            string
	MinSize       int
	MaxSize       int
	Magnification float64
}

// Weights maps preference ranks to base scores.
type Weights struct {
	First  float64
	Second float64
	Third  float64
}

// Config contains the tunables for the search. All randomized
// decisions derive from Seed; two runs with the same Seed, the same
// inputs and MaxWorkers=1 produce identical results.
type Config struct {
	// Weights are the per-rank base scores, multiplied by the
	// assigned seminar's magnification.
	Weights Weights

	// BoostWeight is the reduced base score a boosted student earns
	// when assigned a seminar outside their preference list.
	BoostWeight float64

	// QBoostProbability is the chance, rolled once per student per
	// trial, that an unlisted assignment scores BoostWeight instead
	// of zero.
	QBoostProbability float64

	// NumPatterns is the number of independent trials to run.
	NumPatterns int

	// MaxWorkers bounds trial parallelism.
	MaxWorkers int

	// LocalSearchIterations is the number of annealing steps per
	// trial. Zero means the constructor's output is scored as-is.
	LocalSearchIterations int

	InitialTemperature float64
	CoolingRate        float64

	// Seed is the base seed per-trial RNG streams derive from.
	Seed int64

	// SnapshotInterval is the number of completed trials between
	// progress snapshots. Zero selects DefaultSnapshotInterval.
	SnapshotInterval int
}

// DefaultConfig returns production-tested tunables.
func DefaultConfig() Config {
	return Config{
		Weights:               Weights{First: 5.0, Second: 2.0, Third: 1.0},
		BoostWeight:           0.5,
		QBoostProbability:     0.2,
		NumPatterns:           200000,
		MaxWorkers:            8,
		LocalSearchIterations: 500,
		InitialTemperature:    1.0,
		CoolingRate:           0.995,
		SnapshotInterval:      DefaultSnapshotInterval,
	}
}

// Assignment maps every student (by index into the problem's student
// list) to exactly one seminar (by index into the seminar list).
// Boosted records the per-trial boost roll for each student; it is
// fixed when the assignment is constructed and never re-rolled, so
// scoring the same Assignment twice yields the same result.
type Assignment struct {
	Seminars []int
	Boosted  []bool
}

// Clone returns a deep copy.
func (a *Assignment) Clone() *Assignment {
	c := &Assignment{
		Seminars: make([]int, len(a.Seminars)),
		Boosted:  make([]bool, len(a.Boosted)),
	}
	copy(c.Seminars, a.Seminars)
	copy(c.Boosted, a.Boosted)
	return c
}

// ScoredAssignment pairs an Assignment with its score. It is treated
// as immutable once produced.
type ScoredAssignment struct {
	Assignment *Assignment
	Score      float64
}

// ProgressPoint is one sample of the running best score.
type ProgressPoint struct {
	Trials    int
	BestScore float64
}

// Snapshot is an immutable progress report handed to an Observer.
// Each snapshot is a fresh value; the driver never mutates one after
// emitting it, so it is safe to hand to a concurrent reporter.
type Snapshot struct {
	Trials  int
	Best    *ScoredAssignment
	History []ProgressPoint
}

// Diagnostics accounts for everything that went sideways during a
// search without aborting it.
type Diagnostics struct {
	// Failures is the number of trials dropped after their retry
	// also failed.
	Failures int
	// Retries is the number of trials that failed once and were
	// re-run with a fresh seed.
	Retries int
	// Infeasible is set when the capacity totals cannot cover the
	// student population (or vice versa). The search still returns a
	// best-effort, penalized assignment.
	Infeasible       bool
	InfeasibleReason string
	// Cancelled is set when the context expired before all trials
	// were submitted. In-flight trials were allowed to finish.
	Cancelled bool
}

// SearchResult is the outcome of a full multi-trial search.
type SearchResult struct {
	Best        *ScoredAssignment
	History     []ProgressPoint
	Trials      int
	Diagnostics Diagnostics
}

// StudentOutcome is the per-student breakdown of a final assignment,
// ready for external reporting.
type StudentOutcome struct {
	StudentID    int
	SeminarID    string
	Rank         int // 1..3, 0 when the seminar is not among the student's preferences
	Boosted      bool
	Contribution float64
}
