package domain

import (
	"errors"
	"testing"
)

func TestValidateRecord_Valid(t *testing.T) {
	rec := &EvaluationRecord{
		InteractionID: "int-1",
		Prompt:        "What is the capital of France?",
		Response:      "Paris",
		Score:         0.95,
		LatencyMs:     120,
	}

	if err := ValidateRecord(rec); err != nil {
		t.Fatalf("ValidateRecord() error = %v, want nil", err)
	}
}

func TestValidateRecord_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		rec    EvaluationRecord
		fields []string
	}{
		{
			name:   "missing interaction id",
			rec:    EvaluationRecord{Prompt: "p", Response: "r", Score: 0.5},
			fields: []string{"interaction_id"},
		},
		{
			name:   "score above one",
			rec:    EvaluationRecord{InteractionID: "i", Prompt: "p", Response: "r", Score: 1.2},
			fields: []string{"score"},
		},
		{
			name:   "score below zero",
			rec:    EvaluationRecord{InteractionID: "i", Prompt: "p", Response: "r", Score: -0.1},
			fields: []string{"score"},
		},
		{
			name:   "negative latency",
			rec:    EvaluationRecord{InteractionID: "i", Prompt: "p", Response: "r", Score: 0.5, LatencyMs: -1},
			fields: []string{"latency_ms"},
		},
		{
			name:   "multiple fields",
			rec:    EvaluationRecord{Score: 2, LatencyMs: -5},
			fields: []string{"interaction_id", "prompt", "response", "score", "latency_ms"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRecord(&tt.rec)
			if err == nil {
				t.Fatal("ValidateRecord() error = nil, want ValidationError")
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error type = %T, want *ValidationError", err)
			}

			if len(verr.Fields) != len(tt.fields) {
				t.Fatalf("Fields = %v, want %v", verr.Fields, tt.fields)
			}
			for i, f := range tt.fields {
				if verr.Fields[i] != f {
					t.Errorf("Fields[%d] = %q, want %q", i, verr.Fields[i], f)
				}
			}
		})
	}
}

func TestTenantPolicy_Validate(t *testing.T) {
	p := DefaultPolicy("tenant-1")
	if err := p.Validate(); err != nil {
		t.Fatalf("default policy Validate() error = %v", err)
	}

	bad := &TenantPolicy{RunPolicy: "weekly", SampleRatePct: 150, MaxEvalPerDay: 0}
	err := bad.Validate()
	if err == nil {
		t.Fatal("Validate() error = nil, want ValidationError")
	}

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
	want := []string{"run_policy", "sample_rate_pct", "max_eval_per_day"}
	if len(verr.Fields) != len(want) {
		t.Fatalf("Fields = %v, want %v", verr.Fields, want)
	}
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy("tenant-1")

	if p.RunPolicy != RunPolicyAlways {
		t.Errorf("RunPolicy = %v, want %v", p.RunPolicy, RunPolicyAlways)
	}
	if p.SampleRatePct != 100 {
		t.Errorf("SampleRatePct = %d, want 100", p.SampleRatePct)
	}
	if p.MaxEvalPerDay != 10000 {
		t.Errorf("MaxEvalPerDay = %d, want 10000", p.MaxEvalPerDay)
	}
	if p.ObfuscatePII {
		t.Error("ObfuscatePII = true, want false")
	}
}
