// Package admission decides whether incoming evaluation records are
// persisted. A record is validated, then checked against the tenant's
// run policy (sampling) and daily quota, in that order. Sampled-out
// records never count toward the quota.
package admission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/tjfontaine/evalgate/internal/domain"
	"github.com/tjfontaine/evalgate/internal/stats"
	"github.com/tjfontaine/evalgate/internal/storage"
)

// Engine applies the per-tenant admission policy. It holds no mutable
// state beyond its store handles, so calls may run concurrently.
type Engine struct {
	policies storage.PolicyStore
	records  storage.RecordStore
	logger   *slog.Logger

	// draw returns a uniform value in [0, 100). Injected in tests.
	draw func() float64

	// now supplies the quota day boundary. Injected in tests.
	now func() time.Time
}

// New creates an admission engine backed by the given stores.
func New(policies storage.PolicyStore, records storage.RecordStore, logger *slog.Logger) *Engine {
	return &Engine{
		policies: policies,
		records:  records,
		logger:   logger,
		draw:     func() float64 { return rand.Float64() * 100 },
		now:      time.Now,
	}
}

// Evaluate returns the admission decision for a candidate record without
// persisting anything. The decision order is fixed: validation, policy
// load (defaulting when absent), sampling, daily quota.
//
// Policy-read failures abort admission (fail closed) and are returned as
// domain.ErrPolicyUnavailable; quota-count failures as
// domain.ErrStoreUnavailable. SampledOut and QuotaExceeded are outcomes,
// not errors.
func (e *Engine) Evaluate(ctx context.Context, tenantID string, rec *domain.EvaluationRecord) (domain.AdmissionOutcome, error) {
	if err := domain.ValidateRecord(rec); err != nil {
		return "", err
	}

	policy, err := e.loadPolicy(ctx, tenantID)
	if err != nil {
		return "", err
	}

	if policy.RunPolicy == domain.RunPolicySampled {
		// A draw of exactly the rate is rejected, so rate 0 samples out
		// every record and rate 100 none.
		if e.draw() >= float64(policy.SampleRatePct) {
			return domain.OutcomeSampledOut, nil
		}
	}

	// Quota counts accepted records in the current UTC day. This is
	// read-then-decide: concurrent admissions for one tenant can
	// overshoot the cap by the number of in-flight callers.
	count, err := e.records.CountSince(ctx, tenantID, stats.StartOfDay(e.now()))
	if err != nil {
		e.logger.Error("quota count failed",
			slog.String("tenant_id", tenantID),
			slog.String("error", err.Error()))
		return "", fmt.Errorf("%w: counting daily evaluations: %v", domain.ErrStoreUnavailable, err)
	}
	if count >= policy.MaxEvalPerDay {
		return domain.OutcomeQuotaExceeded, nil
	}

	return domain.OutcomeAccepted, nil
}

// Admit runs Evaluate and persists the record on acceptance. A zero
// CreatedAt is defaulted to the admission time; back-dated timestamps
// are kept as supplied. The returned result carries the persisted record
// only for accepted admissions.
func (e *Engine) Admit(ctx context.Context, tenantID string, rec *domain.EvaluationRecord) (*domain.AdmissionResult, error) {
	outcome, err := e.Evaluate(ctx, tenantID, rec)
	if err != nil {
		return nil, err
	}
	if outcome != domain.OutcomeAccepted {
		return &domain.AdmissionResult{Outcome: outcome}, nil
	}

	candidate := *rec
	candidate.TenantID = tenantID
	if candidate.CreatedAt.IsZero() {
		candidate.CreatedAt = e.now().UTC()
	}

	persisted, err := e.records.Insert(ctx, &candidate)
	if err != nil {
		e.logger.Error("evaluation insert failed",
			slog.String("tenant_id", tenantID),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: inserting evaluation: %v", domain.ErrStoreUnavailable, err)
	}

	return &domain.AdmissionResult{Outcome: domain.OutcomeAccepted, Record: persisted}, nil
}

// Policy returns the tenant's stored policy, or the default when none
// exists. Defaulting is not a failure and does not write.
func (e *Engine) Policy(ctx context.Context, tenantID string) (*domain.TenantPolicy, error) {
	return e.loadPolicy(ctx, tenantID)
}

// UpdatePolicy validates and stores a policy for the tenant.
func (e *Engine) UpdatePolicy(ctx context.Context, policy *domain.TenantPolicy) error {
	if err := policy.Validate(); err != nil {
		return err
	}
	if err := e.policies.PutPolicy(ctx, policy); err != nil {
		e.logger.Error("policy update failed",
			slog.String("tenant_id", policy.TenantID),
			slog.String("error", err.Error()))
		return fmt.Errorf("%w: storing policy: %v", domain.ErrPolicyUnavailable, err)
	}
	return nil
}

func (e *Engine) loadPolicy(ctx context.Context, tenantID string) (*domain.TenantPolicy, error) {
	policy, err := e.policies.GetPolicy(ctx, tenantID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.DefaultPolicy(tenantID), nil
	}
	if err != nil {
		e.logger.Error("policy read failed",
			slog.String("tenant_id", tenantID),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: reading policy: %v", domain.ErrPolicyUnavailable, err)
	}
	return policy, nil
}
