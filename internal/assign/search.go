package assign

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/rand"
	"sync"

	"github.com/zeebo/xxh3"
)

// Logger is the subset of the logging interface the searcher needs.
// A nil logger is replaced by a no-op.
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...map[string]interface{}) {}
func (nopLogger) Info(string, ...map[string]interface{})  {}
func (nopLogger) Warn(string, ...map[string]interface{})  {}
func (nopLogger) Error(string, ...map[string]interface{}) {}

// Searcher runs the full multi-trial search for one problem: each
// trial builds a randomized greedy assignment and anneals it, and the
// best result across trials wins. Trials are independent and run on a
// fixed-size worker pool.
type Searcher struct {
	problem  *Problem
	best     *BestCell
	observer func(Snapshot)
	log      Logger
}

// SearcherOption customizes a Searcher.
type SearcherOption func(*Searcher)

// WithObserver registers a callback invoked from the aggregator
// whenever a progress snapshot is cut. The callback must not block
// for long; it runs on the result-collection path.
func WithObserver(fn func(Snapshot)) SearcherOption {
	return func(s *Searcher) { s.observer = fn }
}

// WithBestCell shares an externally owned best cell, letting callers
// read the incumbent while the search is still running.
func WithBestCell(cell *BestCell) SearcherOption {
	return func(s *Searcher) { s.best = cell }
}

// WithLogger attaches a logger for trial-level diagnostics.
func WithLogger(log Logger) SearcherOption {
	return func(s *Searcher) { s.log = log }
}

// NewSearcher builds a searcher over a compiled problem.
func NewSearcher(p *Problem, opts ...SearcherOption) *Searcher {
	s := &Searcher{problem: p, log: nopLogger{}}
	for _, opt := range opts {
		opt(s)
	}
	if s.best == nil {
		s.best = &BestCell{}
	}
	if s.log == nil {
		s.log = nopLogger{}
	}
	return s
}

// seedFor derives the RNG seed for one trial attempt from the base
// seed. Hashing (base, trial, attempt) gives every attempt an
// independent stream while keeping the whole run reproducible from
// the base seed alone.
func seedFor(base int64, trial, attempt int) int64 {
	var buf [24]byte
	binary.LittleEndian.PutUint64(buf[0:], uint64(base))
	binary.LittleEndian.PutUint64(buf[8:], uint64(trial))
	binary.LittleEndian.PutUint64(buf[16:], uint64(attempt))
	return int64(xxh3.Hash(buf[:]))
}

// runTrial executes a single construct+anneal trial, converting a
// panic into an error so one bad trial cannot take the search down.
func (s *Searcher) runTrial(trial, attempt int) (result ScoredAssignment, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &TrialError{Trial: trial, Attempt: attempt, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	rng := rand.New(rand.NewSource(seedFor(s.problem.cfg.Seed, trial, attempt)))
	a := s.problem.construct(rng)
	return s.problem.anneal(a, rng), nil
}

type trialOutcome struct {
	result  ScoredAssignment
	retried bool
	failed  bool
}

// Run executes cfg.NumPatterns trials on cfg.MaxWorkers workers and
// returns the best assignment found. A trial that fails is retried
// once with a fresh seed; a second failure is recorded in Diagnostics
// and the trial is skipped. Cancelling the context stops the search
// early: in-flight trials finish, the partial result is returned with
// Diagnostics.Cancelled set, and no error is reported for the
// cancellation itself. Run fails only on an invalid problem state or
// when every single trial failed.
func (s *Searcher) Run(ctx context.Context) (*SearchResult, error) {
	cfg := s.problem.cfg
	res := &SearchResult{}
	res.Diagnostics.Infeasible, res.Diagnostics.InfeasibleReason = s.problem.CapacityDiagnostic()
	if res.Diagnostics.Infeasible {
		s.log.Warn("capacity infeasible, searching for least-violating assignment", map[string]interface{}{
			"reason": res.Diagnostics.InfeasibleReason,
		})
	}

	jobs := make(chan int)
	outcomes := make(chan trialOutcome)

	var wg sync.WaitGroup
	for w := 0; w < cfg.MaxWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for trial := range jobs {
				outcomes <- s.runOne(trial)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for trial := 0; trial < cfg.NumPatterns; trial++ {
			select {
			case jobs <- trial:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	interval := cfg.SnapshotInterval
	for out := range outcomes {
		res.Trials++
		if out.retried {
			res.Diagnostics.Retries++
		}
		if out.failed {
			res.Diagnostics.Failures++
		} else {
			s.best.Offer(out.result)
		}
		if res.Trials%interval == 0 {
			s.snapshot(res)
		}
	}

	if ctx.Err() != nil {
		res.Diagnostics.Cancelled = true
	}
	s.snapshot(res)

	res.Best = s.best.Load()
	if res.Best == nil && !res.Diagnostics.Cancelled {
		return nil, ErrAllTrialsFailed
	}
	return res, nil
}

// runOne runs a trial with a single retry on failure.
func (s *Searcher) runOne(trial int) trialOutcome {
	result, err := s.runTrial(trial, 0)
	if err == nil {
		return trialOutcome{result: result}
	}
	s.log.Warn("trial failed, retrying", map[string]interface{}{
		"trial": trial,
		"error": err.Error(),
	})
	result, err = s.runTrial(trial, 1)
	if err != nil {
		s.log.Error("trial failed after retry", map[string]interface{}{
			"trial": trial,
			"error": err.Error(),
		})
		return trialOutcome{retried: true, failed: true}
	}
	return trialOutcome{result: result, retried: true}
}

// snapshot appends the current best to the progress history and
// notifies the observer. Called on the aggregator goroutine only.
func (s *Searcher) snapshot(res *SearchResult) {
	score := 0.0
	if cur := s.best.Load(); cur != nil {
		score = cur.Score
	}
	if n := len(res.History); n > 0 && res.History[n-1].Trials == res.Trials {
		return
	}
	res.History = append(res.History, ProgressPoint{Trials: res.Trials, BestScore: score})
	snap := Snapshot{Trials: res.Trials, Best: s.best.Load(), History: res.History}
	s.log.Debug("progress snapshot", map[string]interface{}{
		"trials": res.Trials,
		"best":   score,
	})
	if s.observer != nil {
		s.observer(snap)
	}
}
