package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/tjfontaine/evalgate/internal/domain"
	"github.com/tjfontaine/evalgate/internal/storage"
)

// Store is a SQLite implementation of the record and policy stores.
type Store struct {
	db *sqlx.DB
}

var _ storage.Store = (*Store)(nil)

// New opens a SQLite database at dbPath and initializes the schema.
func New(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS eval_settings (
			tenant_id TEXT PRIMARY KEY,
			run_policy TEXT NOT NULL,
			sample_rate_pct INTEGER NOT NULL,
			max_eval_per_day INTEGER NOT NULL,
			obfuscate_pii INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS evals (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			interaction_id TEXT NOT NULL,
			prompt TEXT NOT NULL,
			response TEXT NOT NULL,
			score REAL NOT NULL,
			latency_ms INTEGER NOT NULL,
			flags TEXT NOT NULL DEFAULT '[]',
			pii_tokens_redacted INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_evals_tenant ON evals(tenant_id)`,
		`CREATE INDEX IF NOT EXISTS idx_evals_tenant_created ON evals(tenant_id, created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}

func (s *Store) Insert(ctx context.Context, rec *domain.EvaluationRecord) (*domain.EvaluationRecord, error) {
	persisted := *rec
	if persisted.ID == "" {
		persisted.ID = uuid.New().String()
	}
	if persisted.CreatedAt.IsZero() {
		persisted.CreatedAt = time.Now().UTC()
	}

	flags, err := json.Marshal(persisted.Flags)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal flags: %w", err)
	}

	query := `INSERT INTO evals (
		id, tenant_id, interaction_id, prompt, response,
		score, latency_ms, flags, pii_tokens_redacted, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		persisted.ID, persisted.TenantID, persisted.InteractionID,
		persisted.Prompt, persisted.Response, persisted.Score,
		persisted.LatencyMs, string(flags), persisted.PIITokensRedacted,
		persisted.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert evaluation: %w", err)
	}

	return &persisted, nil
}

func (s *Store) CountSince(ctx context.Context, tenantID string, since time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM evals WHERE tenant_id = ? AND created_at >= ?`
	if err := s.db.QueryRowContext(ctx, query, tenantID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count evaluations: %w", err)
	}
	return count, nil
}

func (s *Store) Query(ctx context.Context, tenantID string, opts storage.QueryOptions) ([]*domain.EvaluationRecord, error) {
	query := `SELECT id, tenant_id, interaction_id, prompt, response,
		score, latency_ms, flags, pii_tokens_redacted, created_at
		FROM evals WHERE tenant_id = ?`
	args := []any{tenantID}

	if !opts.Since.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, opts.Since)
	}
	if opts.Search != "" {
		query += ` AND interaction_id LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(opts.Search)+"%")
	}
	if opts.Flag != "" {
		// Flags are stored as a JSON array of strings, so a flag is
		// always present as a quoted token.
		query += ` AND instr(flags, ?) > 0`
		args = append(args, `"`+opts.Flag+`"`)
	}

	query += ` ORDER BY created_at DESC`

	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
		if opts.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, opts.Offset)
		}
	} else if opts.Offset > 0 {
		query += ` LIMIT -1 OFFSET ?`
		args = append(args, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query evaluations: %w", err)
	}
	defer rows.Close()

	var records []*domain.EvaluationRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate evaluations: %w", err)
	}

	return records, nil
}

func (s *Store) Get(ctx context.Context, tenantID, id string) (*domain.EvaluationRecord, error) {
	query := `SELECT id, tenant_id, interaction_id, prompt, response,
		score, latency_ms, flags, pii_tokens_redacted, created_at
		FROM evals WHERE id = ? AND tenant_id = ?`

	row := s.db.QueryRowContext(ctx, query, id, tenantID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Store) GetPolicy(ctx context.Context, tenantID string) (*domain.TenantPolicy, error) {
	query := `SELECT tenant_id, run_policy, sample_rate_pct, max_eval_per_day,
		obfuscate_pii, created_at, updated_at
		FROM eval_settings WHERE tenant_id = ?`

	var p domain.TenantPolicy
	var runPolicy string
	var obfuscate int

	err := s.db.QueryRowContext(ctx, query, tenantID).Scan(
		&p.TenantID, &runPolicy, &p.SampleRatePct, &p.MaxEvalPerDay,
		&obfuscate, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get policy: %w", err)
	}

	p.RunPolicy = domain.RunPolicy(runPolicy)
	p.ObfuscatePII = obfuscate != 0

	return &p, nil
}

func (s *Store) PutPolicy(ctx context.Context, policy *domain.TenantPolicy) error {
	now := time.Now().UTC()
	obfuscate := 0
	if policy.ObfuscatePII {
		obfuscate = 1
	}

	query := `INSERT INTO eval_settings (
		tenant_id, run_policy, sample_rate_pct, max_eval_per_day,
		obfuscate_pii, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(tenant_id) DO UPDATE SET
		run_policy = excluded.run_policy,
		sample_rate_pct = excluded.sample_rate_pct,
		max_eval_per_day = excluded.max_eval_per_day,
		obfuscate_pii = excluded.obfuscate_pii,
		updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, query,
		policy.TenantID, string(policy.RunPolicy), policy.SampleRatePct,
		policy.MaxEvalPerDay, obfuscate, now, now)
	if err != nil {
		return fmt.Errorf("failed to put policy: %w", err)
	}

	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*domain.EvaluationRecord, error) {
	var rec domain.EvaluationRecord
	var flagsJSON string

	err := row.Scan(
		&rec.ID, &rec.TenantID, &rec.InteractionID, &rec.Prompt,
		&rec.Response, &rec.Score, &rec.LatencyMs, &flagsJSON,
		&rec.PIITokensRedacted, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan evaluation: %w", err)
	}

	if err := json.Unmarshal([]byte(flagsJSON), &rec.Flags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal flags: %w", err)
	}

	return &rec, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
