// Package api exposes the evaluation service over HTTP: ingestion,
// settings, record listing, and the dashboard/analytics aggregates.
// Transport concerns live here; decisions live in admission and stats.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tjfontaine/evalgate/internal/admission"
	"github.com/tjfontaine/evalgate/internal/domain"
	"github.com/tjfontaine/evalgate/internal/server"
	"github.com/tjfontaine/evalgate/internal/stats"
	"github.com/tjfontaine/evalgate/internal/storage"
)

const defaultPageSize = 20

// Handler serves the evaluation API for authenticated tenants.
type Handler struct {
	admission *admission.Engine
	stats     *stats.Engine
	records   storage.RecordStore
	logger    *slog.Logger

	// now is injected in tests to pin aggregation windows.
	now func() time.Time
}

// NewHandler creates the API handler.
func NewHandler(adm *admission.Engine, agg *stats.Engine, records storage.RecordStore, logger *slog.Logger) *Handler {
	return &Handler{
		admission: adm,
		stats:     agg,
		records:   records,
		logger:    logger,
		now:       time.Now,
	}
}

// Register mounts all API routes on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/evals/ingest", h.HandleIngest)
	r.Get("/api/settings", h.HandleGetSettings)
	r.Put("/api/settings", h.HandleUpdateSettings)
	r.Get("/api/evals", h.HandleListEvals)
	r.Get("/api/evals/{id}", h.HandleGetEval)
	r.Get("/api/stats/dashboard", h.HandleDashboard)
	r.Get("/api/analytics", h.HandleAnalytics)
}

// ingestPayload is the wire format accepted by the ingest endpoint.
// created_at is optional and accepts RFC 3339 for back-dated ingestion.
type ingestPayload struct {
	InteractionID     string   `json:"interaction_id"`
	Prompt            string   `json:"prompt"`
	Response          string   `json:"response"`
	Score             float64  `json:"score"`
	LatencyMs         int      `json:"latency_ms"`
	Flags             []string `json:"flags"`
	PIITokensRedacted int      `json:"pii_tokens_redacted"`
	CreatedAt         string   `json:"created_at"`
}

// HandleIngest admits one evaluation record. Outcomes map to statuses:
// 201 accepted, 202 sampled out, 429 quota exceeded. Sampled-out and
// quota-exceeded are expected outcomes, reported with a JSON body so
// callers can tell them apart from failures.
func (h *Handler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	t := server.GetTenant(r.Context())
	if t == nil {
		writeError(w, http.StatusUnauthorized, "tenant required")
		return
	}

	var payload ingestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	rec := &domain.EvaluationRecord{
		InteractionID:     payload.InteractionID,
		Prompt:            payload.Prompt,
		Response:          payload.Response,
		Score:             payload.Score,
		LatencyMs:         payload.LatencyMs,
		Flags:             payload.Flags,
		PIITokensRedacted: payload.PIITokensRedacted,
	}
	if payload.CreatedAt != "" {
		created, err := time.Parse(time.RFC3339, payload.CreatedAt)
		if err != nil {
			writeValidationError(w, &domain.ValidationError{Fields: []string{"created_at"}})
			return
		}
		rec.CreatedAt = created
	}

	result, err := h.admission.Admit(r.Context(), t.ID, rec)
	if err != nil {
		h.writeAdmissionError(w, r, err)
		return
	}

	switch result.Outcome {
	case domain.OutcomeAccepted:
		writeJSON(w, http.StatusCreated, result.Record)
	case domain.OutcomeSampledOut:
		writeJSON(w, http.StatusAccepted, map[string]string{"outcome": string(result.Outcome)})
	case domain.OutcomeQuotaExceeded:
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"outcome": string(result.Outcome)})
	}
}

func (h *Handler) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	t := server.GetTenant(r.Context())
	if t == nil {
		writeError(w, http.StatusUnauthorized, "tenant required")
		return
	}

	policy, err := h.admission.Policy(r.Context(), t.ID)
	if err != nil {
		h.writeAdmissionError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, policy)
}

// settingsPayload is the wire format for policy updates.
type settingsPayload struct {
	RunPolicy     string `json:"run_policy"`
	SampleRatePct int    `json:"sample_rate_pct"`
	MaxEvalPerDay int    `json:"max_eval_per_day"`
	ObfuscatePII  bool   `json:"obfuscate_pii"`
}

func (h *Handler) HandleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	t := server.GetTenant(r.Context())
	if t == nil {
		writeError(w, http.StatusUnauthorized, "tenant required")
		return
	}

	var payload settingsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	policy := &domain.TenantPolicy{
		TenantID:      t.ID,
		RunPolicy:     domain.RunPolicy(payload.RunPolicy),
		SampleRatePct: payload.SampleRatePct,
		MaxEvalPerDay: payload.MaxEvalPerDay,
		ObfuscatePII:  payload.ObfuscatePII,
	}

	if err := h.admission.UpdatePolicy(r.Context(), policy); err != nil {
		h.writeAdmissionError(w, r, err)
		return
	}

	stored, err := h.admission.Policy(r.Context(), t.ID)
	if err != nil {
		h.writeAdmissionError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, stored)
}

// listItem is one row of the evaluation table. Success is computed at
// the table threshold, which is intentionally stricter than the
// dashboard KPI threshold.
type listItem struct {
	*domain.EvaluationRecord
	Success bool `json:"success"`
}

func (h *Handler) HandleListEvals(w http.ResponseWriter, r *http.Request) {
	t := server.GetTenant(r.Context())
	if t == nil {
		writeError(w, http.StatusUnauthorized, "tenant required")
		return
	}

	page := queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	pageSize := queryInt(r, "pageSize", defaultPageSize)
	if pageSize < 1 {
		pageSize = defaultPageSize
	}

	flag := r.URL.Query().Get("flag")
	if flag == "all" {
		flag = ""
	}

	records, err := h.records.Query(r.Context(), t.ID, storage.QueryOptions{
		Search: r.URL.Query().Get("search"),
		Flag:   flag,
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	})
	if err != nil {
		server.AddError(r.Context(), err)
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}

	items := make([]listItem, 0, len(records))
	for _, rec := range records {
		items = append(items, listItem{
			EvaluationRecord: rec,
			Success:          rec.Score >= stats.TableSuccessThreshold,
		})
	}

	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) HandleGetEval(w http.ResponseWriter, r *http.Request) {
	t := server.GetTenant(r.Context())
	if t == nil {
		writeError(w, http.StatusUnauthorized, "tenant required")
		return
	}

	rec, err := h.records.Get(r.Context(), t.ID, chi.URLParam(r, "id"))
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "evaluation not found")
		return
	}
	if err != nil {
		server.AddError(r.Context(), err)
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	t := server.GetTenant(r.Context())
	if t == nil {
		writeError(w, http.StatusUnauthorized, "tenant required")
		return
	}

	dashboard, err := h.stats.Dashboard(r.Context(), t.ID, h.now())
	if err != nil {
		server.AddError(r.Context(), err)
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}

	writeJSON(w, http.StatusOK, dashboard)
}

// HandleAnalytics serves the multi-window trends. With dense=1 the
// sparse series are joined onto the full day grid with zero fill, for
// clients that render a continuous date axis.
func (h *Handler) HandleAnalytics(w http.ResponseWriter, r *http.Request) {
	t := server.GetTenant(r.Context())
	if t == nil {
		writeError(w, http.StatusUnauthorized, "tenant required")
		return
	}

	now := h.now()
	analytics, err := h.stats.Analytics(r.Context(), t.ID, now)
	if err != nil {
		server.AddError(r.Context(), err)
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}

	if r.URL.Query().Get("dense") == "1" {
		week := stats.EnumerateDays(7, now)
		month := stats.EnumerateDays(30, now)
		analytics.ScoresTrend7d = stats.Dense(analytics.ScoresTrend7d, week)
		analytics.ScoresTrend30d = stats.Dense(analytics.ScoresTrend30d, month)
		analytics.LatencyTrend7d = stats.Dense(analytics.LatencyTrend7d, week)
		analytics.LatencyTrend30d = stats.Dense(analytics.LatencyTrend30d, month)
	}

	writeJSON(w, http.StatusOK, analytics)
}

// writeAdmissionError maps engine errors onto the HTTP taxonomy:
// validation problems name their fields, store and policy outages are
// reported generically and logged with detail for operators.
func (h *Handler) writeAdmissionError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeValidationError(w, verr)
	case errors.Is(err, domain.ErrPolicyUnavailable):
		server.AddError(r.Context(), err)
		writeError(w, http.StatusServiceUnavailable, "policy unavailable")
	case errors.Is(err, domain.ErrStoreUnavailable):
		server.AddError(r.Context(), err)
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
	default:
		server.AddError(r.Context(), err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeValidationError(w http.ResponseWriter, verr *domain.ValidationError) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"error":  "validation failed",
		"fields": verr.Fields,
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
