// Command annealloc runs one seminar assignment search from data
// files and writes the result tables, without going through the HTTP
// service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"

	"github.com/copyleftdev/annealloc/internal/assign"
	"github.com/copyleftdev/annealloc/internal/config"
	"github.com/copyleftdev/annealloc/internal/loader"
	"github.com/copyleftdev/annealloc/internal/logging"
	"github.com/copyleftdev/annealloc/internal/report"
	"github.com/copyleftdev/annealloc/internal/store"
)

func main() {
	var (
		studentsPath = flag.String("students", "", "students file (.csv/.json/.yaml)")
		seminarsPath = flag.String("seminars", "", "seminars file (.csv/.json/.yaml)")
		configPath   = flag.String("config", "", "optional search config file (.json/.yaml)")
		outDir       = flag.String("out", ".", "directory for result tables")
		dbDSN        = flag.String("db", "", "optional SQLite DSN to record the result")
		logLevel     = flag.String("log-level", "info", "log level")
	)
	flag.Parse()

	logger := logging.New(logging.ParseLevel(*logLevel), os.Stderr)

	if *seminarsPath == "" || *studentsPath == "" {
		logger.Fatal("both -students and -seminars are required")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("loading configuration", map[string]interface{}{"error": err.Error()})
	}

	if err := run(*studentsPath, *seminarsPath, *configPath, *outDir, *dbDSN, cfg, logger); err != nil {
		logger.Fatal("search failed", map[string]interface{}{"error": err.Error()})
	}
}

func run(studentsPath, seminarsPath, configPath, outDir, dbDSN string, cfg *config.Config, logger *logging.Logger) error {
	seminars, err := loader.LoadSeminars(seminarsPath)
	if err != nil {
		return err
	}
	students, err := loader.LoadStudents(studentsPath)
	if err != nil {
		return err
	}
	if err := loader.Validate(seminars, students); err != nil {
		return err
	}

	searchCfg := cfg.SearchDefaults()
	if configPath != "" {
		if searchCfg, err = loader.LoadConfig(configPath, searchCfg); err != nil {
			return err
		}
	}

	problem, err := assign.NewProblem(seminars, students, searchCfg)
	if err != nil {
		return err
	}

	logger.Info("Starting search", map[string]interface{}{
		"students":     len(students),
		"seminars":     len(seminars),
		"num_patterns": searchCfg.NumPatterns,
		"max_workers":  searchCfg.MaxWorkers,
	})

	// Ctrl-C stops submitting trials and reports the best found so far.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	searcher := assign.NewSearcher(problem,
		assign.WithLogger(logger),
		assign.WithObserver(func(snap assign.Snapshot) {
			fields := map[string]interface{}{"trials": snap.Trials}
			if snap.Best != nil {
				fields["best_score"] = snap.Best.Score
			}
			logger.Info("Progress", fields)
		}))

	result, err := searcher.Run(ctx)
	if err != nil {
		return err
	}
	if result.Diagnostics.Infeasible {
		logger.Warn("Capacity infeasible", map[string]interface{}{
			"reason": result.Diagnostics.InfeasibleReason,
		})
	}
	if result.Best == nil {
		return fmt.Errorf("no assignment produced in %d trials", result.Trials)
	}

	breakdown := problem.Breakdown(result.Best.Assignment)
	summary := report.Summarize(breakdown)
	logger.Info("Search finished", map[string]interface{}{
		"trials":     result.Trials,
		"best_score": result.Best.Score,
		"mean_score": summary.MeanScore,
		"first":      summary.RankCounts[1],
		"second":     summary.RankCounts[2],
		"third":      summary.RankCounts[3],
		"unmatched":  summary.RankCounts[0],
		"feasible":   problem.Feasible(result.Best.Assignment),
		"cancelled":  result.Diagnostics.Cancelled,
	})

	if err := writeTables(outDir, problem, result, breakdown); err != nil {
		return err
	}
	if dbDSN != "" {
		if err := record(dbDSN, problem, result); err != nil {
			return err
		}
	}
	return nil
}

func writeTables(outDir string, problem *assign.Problem, result *assign.SearchResult, breakdown []assign.StudentOutcome) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	writers := []struct {
		name  string
		write func(f *os.File) error
	}{
		{"breakdown.csv", func(f *os.File) error {
			return report.WriteBreakdownCSV(f, breakdown)
		}},
		{"occupancy.csv", func(f *os.File) error {
			return report.WriteOccupancyCSV(f, problem.Seminars(), problem.Occupancy(result.Best.Assignment))
		}},
		{"history.csv", func(f *os.File) error {
			return report.WriteHistoryCSV(f, result.History)
		}},
	}
	for _, w := range writers {
		f, err := os.Create(filepath.Join(outDir, w.name))
		if err != nil {
			return err
		}
		if err := w.write(f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}

func record(dsn string, problem *assign.Problem, result *assign.SearchResult) error {
	st, err := store.Open(dsn)
	if err != nil {
		return err
	}
	defer st.Close()
	return st.Save(context.Background(), store.Record{
		ID:         uuid.NewString(),
		Score:      result.Best.Score,
		Trials:     result.Trials,
		Assignment: problem.ByStudentID(result.Best.Assignment),
		History:    result.History,
	})
}
