package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tjfontaine/evalgate/internal/domain"
	"github.com/tjfontaine/evalgate/internal/storage"
)

// Store is an in-memory implementation of the record and policy stores,
// used in tests and for storage.type "memory" deployments.
type Store struct {
	mu       sync.RWMutex
	records  []*domain.EvaluationRecord
	policies map[string]*domain.TenantPolicy
}

var _ storage.Store = (*Store)(nil)

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		policies: make(map[string]*domain.TenantPolicy),
	}
}

func (s *Store) Insert(ctx context.Context, rec *domain.EvaluationRecord) (*domain.EvaluationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	persisted := *rec
	if persisted.ID == "" {
		persisted.ID = uuid.New().String()
	}
	if persisted.CreatedAt.IsZero() {
		persisted.CreatedAt = time.Now().UTC()
	}
	persisted.Flags = append([]string(nil), rec.Flags...)

	s.records = append(s.records, &persisted)

	out := persisted
	return &out, nil
}

func (s *Store) CountSince(ctx context.Context, tenantID string, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, rec := range s.records {
		if rec.TenantID == tenantID && !rec.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *Store) Query(ctx context.Context, tenantID string, opts storage.QueryOptions) ([]*domain.EvaluationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.EvaluationRecord
	for _, rec := range s.records {
		if rec.TenantID != tenantID {
			continue
		}
		if !opts.Since.IsZero() && rec.CreatedAt.Before(opts.Since) {
			continue
		}
		if opts.Search != "" && !strings.Contains(strings.ToLower(rec.InteractionID), strings.ToLower(opts.Search)) {
			continue
		}
		if opts.Flag != "" && !hasFlag(rec.Flags, opts.Flag) {
			continue
		}
		copied := *rec
		result = append(result, &copied)
	}

	// Newest first, matching the SQL store's ordering.
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	start := opts.Offset
	if start >= len(result) {
		return nil, nil
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(result) {
		end = len(result)
	}

	return result[start:end], nil
}

func (s *Store) Get(ctx context.Context, tenantID, id string) (*domain.EvaluationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.records {
		if rec.ID == id && rec.TenantID == tenantID {
			copied := *rec
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) GetPolicy(ctx context.Context, tenantID string) (*domain.TenantPolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	policy, ok := s.policies[tenantID]
	if !ok {
		return nil, domain.ErrNotFound
	}

	copied := *policy
	return &copied, nil
}

func (s *Store) PutPolicy(ctx context.Context, policy *domain.TenantPolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *policy
	now := time.Now().UTC()
	if existing, ok := s.policies[policy.TenantID]; ok {
		copied.CreatedAt = existing.CreatedAt
	} else {
		copied.CreatedAt = now
	}
	copied.UpdatedAt = now

	s.policies[policy.TenantID] = &copied
	return nil
}

func (s *Store) Close() error {
	return nil
}

func hasFlag(flags []string, flag string) bool {
	for _, f := range flags {
		if f == flag {
			return true
		}
	}
	return false
}
