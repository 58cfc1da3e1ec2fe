// Package stats computes KPI summaries, day-bucketed trend series, and
// flag distributions over trailing windows of a tenant's evaluation
// records. All aggregates are computed on read; nothing is cached.
package stats

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/tjfontaine/evalgate/internal/domain"
	"github.com/tjfontaine/evalgate/internal/storage"
)

// Success thresholds, one named constant per surface. The dashboard KPI
// and the evaluation table intentionally disagree; each constant has
// exactly one call site.
const (
	DashboardSuccessThreshold = 0.7
	TableSuccessThreshold     = 0.8
)

const (
	shortWindowDays = 7
	longWindowDays  = 30
)

// Engine computes aggregates from the record store.
type Engine struct {
	records storage.RecordStore
}

// New creates an aggregation engine over the given record store.
func New(records storage.RecordStore) *Engine {
	return &Engine{records: records}
}

// Dashboard computes the 30-day KPI summary ending at now. An empty
// window yields zero KPIs and empty trend series, not an error. Trend
// series are sparse: only days with at least one record appear.
func (e *Engine) Dashboard(ctx context.Context, tenantID string, now time.Time) (*domain.DashboardStats, error) {
	records, err := e.fetchWindow(ctx, tenantID, longWindowDays, now)
	if err != nil {
		return nil, err
	}

	out := &domain.DashboardStats{
		ScoresTrend:  []domain.TrendPoint{},
		LatencyTrend: []domain.TrendPoint{},
	}
	if len(records) == 0 {
		return out, nil
	}

	var scoreSum, latencySum float64
	redacted, succeeded := 0, 0
	for _, rec := range records {
		scoreSum += rec.Score
		latencySum += float64(rec.LatencyMs)
		if rec.PIITokensRedacted > 0 {
			redacted++
		}
		if rec.Score >= DashboardSuccessThreshold {
			succeeded++
		}
	}

	n := float64(len(records))
	out.AvgScore = scoreSum / n
	out.AvgLatency = int(math.Round(latencySum / n))
	out.RedactionRate = float64(redacted) / n
	out.SuccessRate = float64(succeeded) / n
	out.ScoresTrend = trend(records, func(r *domain.EvaluationRecord) float64 { return r.Score })
	out.LatencyTrend = trend(records, func(r *domain.EvaluationRecord) float64 { return float64(r.LatencyMs) })

	return out, nil
}

// Analytics computes 7-day and 30-day trend series plus the 30-day flag
// distribution ending at now. Series are sparse; callers that render a
// continuous date axis join them against EnumerateDays via Dense.
func (e *Engine) Analytics(ctx context.Context, tenantID string, now time.Time) (*domain.Analytics, error) {
	recent, err := e.fetchWindow(ctx, tenantID, longWindowDays, now)
	if err != nil {
		return nil, err
	}

	// The 7-day set is a prefix of the 30-day window, no second query.
	shortCutoff := now.AddDate(0, 0, -shortWindowDays)
	var short []*domain.EvaluationRecord
	for _, rec := range recent {
		if !rec.CreatedAt.Before(shortCutoff) {
			short = append(short, rec)
		}
	}

	return &domain.Analytics{
		ScoresTrend7d:     trend(short, func(r *domain.EvaluationRecord) float64 { return r.Score }),
		ScoresTrend30d:    trend(recent, func(r *domain.EvaluationRecord) float64 { return r.Score }),
		LatencyTrend7d:    trend(short, func(r *domain.EvaluationRecord) float64 { return float64(r.LatencyMs) }),
		LatencyTrend30d:   trend(recent, func(r *domain.EvaluationRecord) float64 { return float64(r.LatencyMs) }),
		FlagsDistribution: flagDistribution(recent),
	}, nil
}

func (e *Engine) fetchWindow(ctx context.Context, tenantID string, windowDays int, now time.Time) ([]*domain.EvaluationRecord, error) {
	records, err := e.records.Query(ctx, tenantID, storage.QueryOptions{
		Since: now.AddDate(0, 0, -windowDays),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: querying %d-day window: %v", domain.ErrStoreUnavailable, windowDays, err)
	}
	return records, nil
}

// trend groups records by UTC calendar day and returns per-day means,
// oldest day first. Days without records do not appear.
func trend(records []*domain.EvaluationRecord, metric func(*domain.EvaluationRecord) float64) []domain.TrendPoint {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, rec := range records {
		day := DayKey(rec.CreatedAt)
		sums[day] += metric(rec)
		counts[day]++
	}

	points := make([]domain.TrendPoint, 0, len(sums))
	for day, sum := range sums {
		points = append(points, domain.TrendPoint{Date: day, Value: sum / float64(counts[day])})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })

	return points
}

// flagDistribution counts flag occurrences across all records, with
// duplicates within one record counted individually. Output is sorted
// by count descending; ties keep the order flags were first observed.
func flagDistribution(records []*domain.EvaluationRecord) []domain.FlagCount {
	counts := make(map[string]int)
	var order []string
	for _, rec := range records {
		for _, flag := range rec.Flags {
			if _, seen := counts[flag]; !seen {
				order = append(order, flag)
			}
			counts[flag]++
		}
	}

	dist := make([]domain.FlagCount, 0, len(order))
	for _, flag := range order {
		dist = append(dist, domain.FlagCount{Name: flag, Count: counts[flag]})
	}
	sort.SliceStable(dist, func(i, j int) bool { return dist[i].Count > dist[j].Count })

	return dist
}
