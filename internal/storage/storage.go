package storage

import (
	"context"
	"time"

	"github.com/tjfontaine/evalgate/internal/domain"
)

// QueryOptions narrows a record query. Zero values mean "no filter";
// Limit of zero returns everything from Offset onward.
type QueryOptions struct {
	// Since restricts results to records with CreatedAt >= Since.
	Since time.Time

	// Search is a case-insensitive substring match on InteractionID.
	Search string

	// Flag restricts results to records carrying the given flag.
	Flag string

	Limit  int
	Offset int
}

// RecordStore is the append-only evaluation record store. Records are
// never updated or deleted through this interface.
type RecordStore interface {
	// Insert persists a record and returns it with its assigned ID.
	Insert(ctx context.Context, rec *domain.EvaluationRecord) (*domain.EvaluationRecord, error)

	// CountSince returns the number of records for the tenant with
	// CreatedAt >= since. Used for the daily admission quota.
	CountSince(ctx context.Context, tenantID string, since time.Time) (int, error)

	// Query returns the tenant's records newest first, filtered by opts.
	Query(ctx context.Context, tenantID string, opts QueryOptions) ([]*domain.EvaluationRecord, error)

	// Get returns one record by ID, scoped to the tenant. Returns
	// domain.ErrNotFound when absent or owned by another tenant.
	Get(ctx context.Context, tenantID, id string) (*domain.EvaluationRecord, error)
}

// PolicyStore holds one admission policy per tenant.
type PolicyStore interface {
	// GetPolicy returns the tenant's stored policy, or domain.ErrNotFound
	// when none has been stored yet. Absence is not a failure; callers
	// apply domain.DefaultPolicy.
	GetPolicy(ctx context.Context, tenantID string) (*domain.TenantPolicy, error)

	// PutPolicy creates or replaces the tenant's policy.
	PutPolicy(ctx context.Context, policy *domain.TenantPolicy) error
}

// Store combines both stores behind one connection.
type Store interface {
	RecordStore
	PolicyStore
	Close() error
}
