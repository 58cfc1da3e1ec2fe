package stats

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/tjfontaine/evalgate/internal/domain"
	"github.com/tjfontaine/evalgate/internal/storage/memory"
)

func insert(t *testing.T, store *memory.Store, rec *domain.EvaluationRecord) {
	t.Helper()
	rec.TenantID = "tenant-1"
	if rec.InteractionID == "" {
		rec.InteractionID = "int"
	}
	if rec.Prompt == "" {
		rec.Prompt = "p"
	}
	if rec.Response == "" {
		rec.Response = "r"
	}
	if _, err := store.Insert(context.Background(), rec); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestDashboard_EmptyWindow(t *testing.T) {
	engine := New(memory.New())

	got, err := engine.Dashboard(context.Background(), "tenant-1", time.Now())
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}

	if got.AvgScore != 0 || got.AvgLatency != 0 || got.RedactionRate != 0 || got.SuccessRate != 0 {
		t.Errorf("empty window KPIs = %+v, want zeros", got)
	}
	if got.ScoresTrend == nil || len(got.ScoresTrend) != 0 {
		t.Errorf("ScoresTrend = %v, want empty slice", got.ScoresTrend)
	}
	if got.LatencyTrend == nil || len(got.LatencyTrend) != 0 {
		t.Errorf("LatencyTrend = %v, want empty slice", got.LatencyTrend)
	}
}

func TestDashboard_KPIs(t *testing.T) {
	store := memory.New()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	// Three same-day records with scores 0.9, 0.5, 0.7.
	scores := []float64{0.9, 0.5, 0.7}
	redactions := []int{3, 0, 0}
	latencies := []int{100, 150, 125}
	for i := range scores {
		insert(t, store, &domain.EvaluationRecord{
			Score:             scores[i],
			LatencyMs:         latencies[i],
			PIITokensRedacted: redactions[i],
			CreatedAt:         now.Add(-time.Duration(i) * time.Hour),
		})
	}

	got, err := New(store).Dashboard(context.Background(), "tenant-1", now)
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}

	if !almostEqual(got.AvgScore, 0.7) {
		t.Errorf("AvgScore = %v, want 0.7", got.AvgScore)
	}
	if got.AvgLatency != 125 {
		t.Errorf("AvgLatency = %d, want 125", got.AvgLatency)
	}
	// Success at threshold 0.7 counts 0.9 and 0.7 but not 0.5.
	if !almostEqual(got.SuccessRate, 2.0/3.0) {
		t.Errorf("SuccessRate = %v, want 2/3", got.SuccessRate)
	}
	if !almostEqual(got.RedactionRate, 1.0/3.0) {
		t.Errorf("RedactionRate = %v, want 1/3", got.RedactionRate)
	}
}

func TestDashboard_AvgLatencyRounded(t *testing.T) {
	store := memory.New()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	for _, latency := range []int{100, 101} {
		insert(t, store, &domain.EvaluationRecord{Score: 0.5, LatencyMs: latency, CreatedAt: now})
	}

	got, err := New(store).Dashboard(context.Background(), "tenant-1", now)
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if got.AvgLatency != 101 {
		t.Errorf("AvgLatency = %d, want 101 (100.5 rounded)", got.AvgLatency)
	}
}

func TestDashboard_SparseTrend(t *testing.T) {
	store := memory.New()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	// Two records on the 13th, one on the 15th, nothing on the 14th.
	insert(t, store, &domain.EvaluationRecord{Score: 0.8, LatencyMs: 100, CreatedAt: now.AddDate(0, 0, -2)})
	insert(t, store, &domain.EvaluationRecord{Score: 0.6, LatencyMs: 200, CreatedAt: now.AddDate(0, 0, -2).Add(time.Hour)})
	insert(t, store, &domain.EvaluationRecord{Score: 0.4, LatencyMs: 300, CreatedAt: now})

	got, err := New(store).Dashboard(context.Background(), "tenant-1", now)
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}

	if len(got.ScoresTrend) != 2 {
		t.Fatalf("ScoresTrend len = %d, want 2 (sparse, no synthesized days)", len(got.ScoresTrend))
	}
	if got.ScoresTrend[0].Date != "2026-03-13" || !almostEqual(got.ScoresTrend[0].Value, 0.7) {
		t.Errorf("ScoresTrend[0] = %+v, want {2026-03-13 0.7}", got.ScoresTrend[0])
	}
	if got.ScoresTrend[1].Date != "2026-03-15" || !almostEqual(got.ScoresTrend[1].Value, 0.4) {
		t.Errorf("ScoresTrend[1] = %+v, want {2026-03-15 0.4}", got.ScoresTrend[1])
	}
	if !almostEqual(got.LatencyTrend[0].Value, 150) {
		t.Errorf("LatencyTrend[0].Value = %v, want 150", got.LatencyTrend[0].Value)
	}
}

func TestDashboard_ExcludesRecordsOutsideWindow(t *testing.T) {
	store := memory.New()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	insert(t, store, &domain.EvaluationRecord{Score: 1.0, LatencyMs: 10, CreatedAt: now.AddDate(0, 0, -31)})
	insert(t, store, &domain.EvaluationRecord{Score: 0.5, LatencyMs: 100, CreatedAt: now})

	got, err := New(store).Dashboard(context.Background(), "tenant-1", now)
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if !almostEqual(got.AvgScore, 0.5) {
		t.Errorf("AvgScore = %v, want 0.5 (old record excluded)", got.AvgScore)
	}
}

func TestAnalytics_Windows(t *testing.T) {
	store := memory.New()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	// One record 10 days back (30d window only), one 2 days back (both).
	insert(t, store, &domain.EvaluationRecord{Score: 0.9, LatencyMs: 50, CreatedAt: now.AddDate(0, 0, -10)})
	insert(t, store, &domain.EvaluationRecord{Score: 0.3, LatencyMs: 250, CreatedAt: now.AddDate(0, 0, -2)})

	got, err := New(store).Analytics(context.Background(), "tenant-1", now)
	if err != nil {
		t.Fatalf("Analytics() error = %v", err)
	}

	if len(got.ScoresTrend30d) != 2 {
		t.Errorf("ScoresTrend30d len = %d, want 2", len(got.ScoresTrend30d))
	}
	if len(got.ScoresTrend7d) != 1 {
		t.Fatalf("ScoresTrend7d len = %d, want 1", len(got.ScoresTrend7d))
	}
	if !almostEqual(got.ScoresTrend7d[0].Value, 0.3) {
		t.Errorf("ScoresTrend7d[0].Value = %v, want 0.3", got.ScoresTrend7d[0].Value)
	}
	if len(got.LatencyTrend7d) != 1 || !almostEqual(got.LatencyTrend7d[0].Value, 250) {
		t.Errorf("LatencyTrend7d = %v, want one point of 250", got.LatencyTrend7d)
	}
}

func TestAnalytics_FlagsDistribution(t *testing.T) {
	store := memory.New()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	flagSets := [][]string{
		{"error", "warning"},
		{"error"},
		{},
	}
	for _, flags := range flagSets {
		insert(t, store, &domain.EvaluationRecord{Score: 0.5, LatencyMs: 100, Flags: flags, CreatedAt: now})
	}

	got, err := New(store).Analytics(context.Background(), "tenant-1", now)
	if err != nil {
		t.Fatalf("Analytics() error = %v", err)
	}

	want := []domain.FlagCount{{Name: "error", Count: 2}, {Name: "warning", Count: 1}}
	if len(got.FlagsDistribution) != len(want) {
		t.Fatalf("FlagsDistribution = %v, want %v", got.FlagsDistribution, want)
	}
	for i := range want {
		if got.FlagsDistribution[i] != want[i] {
			t.Errorf("FlagsDistribution[%d] = %+v, want %+v", i, got.FlagsDistribution[i], want[i])
		}
	}
}

func TestAnalytics_FlagDuplicatesWithinRecordCounted(t *testing.T) {
	store := memory.New()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	insert(t, store, &domain.EvaluationRecord{Score: 0.5, LatencyMs: 100, Flags: []string{"error", "error"}, CreatedAt: now})

	got, err := New(store).Analytics(context.Background(), "tenant-1", now)
	if err != nil {
		t.Fatalf("Analytics() error = %v", err)
	}
	if len(got.FlagsDistribution) != 1 || got.FlagsDistribution[0].Count != 2 {
		t.Errorf("FlagsDistribution = %v, want [{error 2}]", got.FlagsDistribution)
	}
}

func TestAnalytics_FlagTiesKeepFirstSeenOrder(t *testing.T) {
	store := memory.New()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	// Both flags end at count 1. "timeout" is on the newer record, so it
	// is observed first in the newest-first stream.
	insert(t, store, &domain.EvaluationRecord{Score: 0.5, LatencyMs: 100, Flags: []string{"refusal"}, CreatedAt: now.Add(-time.Hour)})
	insert(t, store, &domain.EvaluationRecord{Score: 0.5, LatencyMs: 100, Flags: []string{"timeout"}, CreatedAt: now})

	got, err := New(store).Analytics(context.Background(), "tenant-1", now)
	if err != nil {
		t.Fatalf("Analytics() error = %v", err)
	}
	if len(got.FlagsDistribution) != 2 {
		t.Fatalf("FlagsDistribution len = %d, want 2", len(got.FlagsDistribution))
	}
	if got.FlagsDistribution[0].Name != "timeout" || got.FlagsDistribution[1].Name != "refusal" {
		t.Errorf("tie order = [%s %s], want [timeout refusal]",
			got.FlagsDistribution[0].Name, got.FlagsDistribution[1].Name)
	}
}

func TestAnalytics_EmptyWindow(t *testing.T) {
	got, err := New(memory.New()).Analytics(context.Background(), "tenant-1", time.Now())
	if err != nil {
		t.Fatalf("Analytics() error = %v", err)
	}
	if len(got.ScoresTrend7d) != 0 || len(got.ScoresTrend30d) != 0 ||
		len(got.LatencyTrend7d) != 0 || len(got.LatencyTrend30d) != 0 ||
		len(got.FlagsDistribution) != 0 {
		t.Errorf("empty window analytics = %+v, want all empty", got)
	}
}
