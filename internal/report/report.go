// Package report renders search results into tabular form: the
// per-student breakdown, seminar occupancy, the best-score history,
// and a statistical summary of satisfaction. The optimization core
// never writes output itself; everything funnels through here.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"

	"github.com/copyleftdev/annealloc/internal/assign"
	"github.com/copyleftdev/annealloc/internal/errors"
)

// Summary aggregates per-student satisfaction statistics for one
// final assignment.
type Summary struct {
	Students     int     `json:"students"`
	TotalScore   float64 `json:"total_score"`
	MeanScore    float64 `json:"mean_score"`
	StdDevScore  float64 `json:"stddev_score"`
	MedianScore  float64 `json:"median_score"`
	RankCounts   [4]int  `json:"rank_counts"` // index 0 = unmatched, 1..3 = preference rank
	BoostedCount int     `json:"boosted_count"`
}

// Summarize computes satisfaction statistics over a breakdown.
func Summarize(outcomes []assign.StudentOutcome) Summary {
	s := Summary{Students: len(outcomes)}
	if len(outcomes) == 0 {
		return s
	}

	contributions := lo.Map(outcomes, func(o assign.StudentOutcome, _ int) float64 {
		return o.Contribution
	})
	sort.Float64s(contributions)

	s.TotalScore = lo.Sum(contributions)
	s.MeanScore = stat.Mean(contributions, nil)
	s.MedianScore = stat.Quantile(0.5, stat.Empirical, contributions, nil)
	if len(contributions) > 1 {
		s.StdDevScore = stat.StdDev(contributions, nil)
	}

	for _, o := range outcomes {
		s.RankCounts[o.Rank]++
		if o.Boosted {
			s.BoostedCount++
		}
	}
	return s
}

// WriteBreakdownCSV renders the per-student outcome table.
func WriteBreakdownCSV(w io.Writer, outcomes []assign.StudentOutcome) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"student_id", "seminar_id", "rank", "boosted", "score"}); err != nil {
		return errors.Wrap(err, "writing breakdown header").WithComponent("report")
	}
	for _, o := range outcomes {
		row := []string{
			fmt.Sprintf("%d", o.StudentID),
			o.SeminarID,
			fmt.Sprintf("%d", o.Rank),
			fmt.Sprintf("%t", o.Boosted),
			fmt.Sprintf("%g", o.Contribution),
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrap(err, "writing breakdown row").WithComponent("report")
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteOccupancyCSV renders seminar fill levels against their bounds,
// in seminar declaration order.
func WriteOccupancyCSV(w io.Writer, seminars []assign.Seminar, occupancy map[string]int) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"seminar_id", "assigned", "min_size", "max_size", "within_bounds"}); err != nil {
		return errors.Wrap(err, "writing occupancy header").WithComponent("report")
	}
	for _, s := range seminars {
		n := occupancy[s.ID]
		row := []string{
			s.ID,
			fmt.Sprintf("%d", n),
			fmt.Sprintf("%d", s.MinSize),
			fmt.Sprintf("%d", s.MaxSize),
			fmt.Sprintf("%t", n >= s.MinSize && n <= s.MaxSize),
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrap(err, "writing occupancy row").WithComponent("report")
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteHistoryCSV renders the best-score progress trace.
func WriteHistoryCSV(w io.Writer, history []assign.ProgressPoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"trials", "best_score"}); err != nil {
		return errors.Wrap(err, "writing history header").WithComponent("report")
	}
	for _, pt := range history {
		if err := cw.Write([]string{
			fmt.Sprintf("%d", pt.Trials),
			fmt.Sprintf("%g", pt.BestScore),
		}); err != nil {
			return errors.Wrap(err, "writing history row").WithComponent("report")
		}
	}
	cw.Flush()
	return cw.Error()
}
