package domain

import (
	"time"
)

// EvaluationRecord is a single quality evaluation reported for one agent
// interaction. Records are immutable once admitted: the engine never
// updates or deletes them, and prompt/response text is stored opaquely.
type EvaluationRecord struct {
	// ID uniquely identifies the record. Assigned at persistence time.
	ID string `json:"id"`

	// TenantID identifies the owning tenant. Every query and aggregate
	// is scoped to exactly one tenant.
	TenantID string `json:"tenant_id"`

	// InteractionID is the caller-supplied identifier of the original
	// agent interaction. Not unique, used for lookup and search only.
	InteractionID string `json:"interaction_id"`

	// Prompt is the text sent to the agent. Opaque to the engine.
	Prompt string `json:"prompt"`

	// Response is the text produced by the agent. Opaque to the engine.
	Response string `json:"response"`

	// Score is the evaluation score in [0, 1].
	Score float64 `json:"score"`

	// LatencyMs is the interaction latency in milliseconds.
	LatencyMs int `json:"latency_ms"`

	// Flags are short labels attached by the evaluator. Duplicates are
	// permitted and counted individually in aggregation.
	Flags []string `json:"flags"`

	// PIITokensRedacted counts tokens removed by the upstream redaction
	// step. Zero means no redaction occurred.
	PIITokensRedacted int `json:"pii_tokens_redacted"`

	// CreatedAt is caller-supplied for back-dated ingestion, or set to
	// the ingestion time when zero.
	CreatedAt time.Time `json:"created_at"`
}

// AdmissionOutcome is the decision of the admission engine for one
// candidate record. SampledOut and QuotaExceeded are expected outcomes,
// not errors; callers must distinguish them from failures.
type AdmissionOutcome string

const (
	OutcomeAccepted      AdmissionOutcome = "accepted"
	OutcomeSampledOut    AdmissionOutcome = "sampled_out"
	OutcomeQuotaExceeded AdmissionOutcome = "quota_exceeded"
)

// AdmissionResult carries the outcome of an admission call. Record is
// populated only when Outcome is OutcomeAccepted, holding the persisted
// record with its assigned ID.
type AdmissionResult struct {
	Outcome AdmissionOutcome  `json:"outcome"`
	Record  *EvaluationRecord `json:"record,omitempty"`
}

// TrendPoint is one calendar day of a trend series. Value is the mean of
// the underlying metric across that day's records.
type TrendPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// FlagCount is one entry of a flag-frequency distribution.
type FlagCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// DashboardStats is the 30-day KPI summary served to the dashboard.
// Trend series are sparse: only days with at least one record appear.
type DashboardStats struct {
	AvgScore      float64      `json:"avg_score"`
	AvgLatency    int          `json:"avg_latency"`
	RedactionRate float64      `json:"redaction_rate"`
	SuccessRate   float64      `json:"success_rate"`
	ScoresTrend   []TrendPoint `json:"scores_trend"`
	LatencyTrend  []TrendPoint `json:"latency_trend"`
}

// Analytics is the multi-window trend and distribution payload for the
// analytics surface.
type Analytics struct {
	ScoresTrend7d     []TrendPoint `json:"scores_trend_7d"`
	ScoresTrend30d    []TrendPoint `json:"scores_trend_30d"`
	LatencyTrend7d    []TrendPoint `json:"latency_trend_7d"`
	LatencyTrend30d   []TrendPoint `json:"latency_trend_30d"`
	FlagsDistribution []FlagCount  `json:"flags_distribution"`
}
