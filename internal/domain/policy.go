package domain

import "time"

// RunPolicy controls whether a tenant evaluates every interaction or a
// sampled fraction of them.
type RunPolicy string

const (
	RunPolicyAlways  RunPolicy = "always"
	RunPolicySampled RunPolicy = "sampled"
)

// TenantPolicy is the per-tenant admission policy. One policy exists per
// tenant; when none is stored, DefaultPolicy applies.
type TenantPolicy struct {
	TenantID string `json:"tenant_id"`

	// RunPolicy selects between evaluating always or sampled.
	RunPolicy RunPolicy `json:"run_policy"`

	// SampleRatePct is the admitted percentage in [0, 100]. Meaningful
	// only when RunPolicy is RunPolicySampled.
	SampleRatePct int `json:"sample_rate_pct"`

	// MaxEvalPerDay caps accepted records per tenant per UTC calendar
	// day. Zero rejects every record.
	MaxEvalPerDay int `json:"max_eval_per_day"`

	// ObfuscatePII is advisory for the upstream redaction step. The
	// engine itself never redacts.
	ObfuscatePII bool `json:"obfuscate_pii"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultPolicy returns the policy applied to tenants that have never
// stored one: evaluate everything, 10000 records per day, no PII
// obfuscation.
func DefaultPolicy(tenantID string) *TenantPolicy {
	return &TenantPolicy{
		TenantID:      tenantID,
		RunPolicy:     RunPolicyAlways,
		SampleRatePct: 100,
		MaxEvalPerDay: 10000,
		ObfuscatePII:  false,
	}
}

// Validate checks policy bounds before an update is stored.
func (p *TenantPolicy) Validate() error {
	var fields []string
	if p.RunPolicy != RunPolicyAlways && p.RunPolicy != RunPolicySampled {
		fields = append(fields, "run_policy")
	}
	if p.SampleRatePct < 0 || p.SampleRatePct > 100 {
		fields = append(fields, "sample_rate_pct")
	}
	if p.MaxEvalPerDay <= 0 {
		fields = append(fields, "max_eval_per_day")
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
