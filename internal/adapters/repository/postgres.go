package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/cpboard/internal/domain/model"
	"github.com/okian/cpboard/internal/domain/scoring"
	"github.com/okian/cpboard/pkg/metrics"
)

const (
	defaultTable          = "students"
	defaultMaxConns       = 4
	defaultConnectTimeout = 5 * time.Second
)

// PostgresStore keeps cohorts in one table, one JSONB document per student.
type PostgresStore struct {
	db             *pgxpool.Pool
	table          string
	maxConns       int32
	connectTimeout time.Duration
}

// NewPostgresStore connects to dsn, verifies the connection and ensures the
// schema exists.
func NewPostgresStore(ctx context.Context, dsn string, opts ...PostgresOption) (*PostgresStore, error) {
	p := &PostgresStore{
		table:          defaultTable,
		maxConns:       defaultMaxConns,
		connectTimeout: defaultConnectTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = p.maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, p.connectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	p.db = pool
	if err := p.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *PostgresStore) ident() string {
	return pgx.Identifier{p.table}.Sanitize()
}

// EnsureSchema creates the table when it does not exist.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			cohort         TEXT NOT NULL,
			hall_ticket_no TEXT NOT NULL,
			percentile     DOUBLE PRECISION NOT NULL DEFAULT 0,
			doc            JSONB NOT NULL,
			seq            BIGSERIAL,
			updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (cohort, hall_ticket_no)
		)`, p.ident())
	if _, err := p.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

// Close releases the pool.
func (p *PostgresStore) Close() error {
	p.db.Close()
	return nil
}

func observe(op string, start time.Time, err error) {
	metrics.RecordStoreCall(op, float64(time.Since(start).Milliseconds()), err)
}

// GetAllUsers returns the cohort in insertion order.
func (p *PostgresStore) GetAllUsers(ctx context.Context, cohort string) (_ []model.StudentRecord, err error) {
	defer func(start time.Time) { observe("get_all", start, err) }(time.Now())

	query := fmt.Sprintf(`SELECT doc FROM %s WHERE cohort = $1 ORDER BY seq ASC`, p.ident())
	rows, err := p.db.Query(ctx, query, cohort)
	if err != nil {
		return nil, fmt.Errorf("query students: %w", err)
	}
	defer rows.Close()

	out := []model.StudentRecord{}
	for rows.Next() {
		var rec model.StudentRecord
		if err := rows.Scan(&rec); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		rec.Rank = 0
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}

// Upload merges records into the cohort inside one transaction.
func (p *PostgresStore) Upload(ctx context.Context, cohort string, records []model.StudentRecord) (err error) {
	defer func(start time.Time) { observe("upload", start, err) }(time.Now())

	ids := make([]string, 0, len(records))
	prepared := make([]model.StudentRecord, 0, len(records))
	for _, rec := range records {
		rec.Canonicalize()
		if model.IsMissingID(rec.HallTicketNo) {
			return fmt.Errorf("%w: empty hall ticket number", ErrInvalidRecord)
		}
		ids = append(ids, rec.HallTicketNo)
		prepared = append(prepared, rec)
	}
	if len(prepared) == 0 {
		return nil
	}

	tx, err := p.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	existing := make(map[string]model.StudentRecord, len(ids))
	query := fmt.Sprintf(`SELECT doc FROM %s WHERE cohort = $1 AND hall_ticket_no = ANY($2) FOR UPDATE`, p.ident())
	rows, err := tx.Query(ctx, query, cohort, ids)
	if err != nil {
		return fmt.Errorf("query existing: %w", err)
	}
	for rows.Next() {
		var rec model.StudentRecord
		if err := rows.Scan(&rec); err != nil {
			rows.Close()
			return fmt.Errorf("scan existing: %w", err)
		}
		existing[rec.HallTicketNo] = rec
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows error: %w", err)
	}

	// Known students keep their seq; new ones are inserted in batch order.
	order := make([]string, 0, len(prepared))
	seen := make(map[string]struct{}, len(prepared))
	for _, rec := range prepared {
		existing[rec.HallTicketNo] = mergeRecord(existing[rec.HallTicketNo], rec)
		if _, ok := seen[rec.HallTicketNo]; !ok {
			seen[rec.HallTicketNo] = struct{}{}
			order = append(order, rec.HallTicketNo)
		}
	}

	upsert := fmt.Sprintf(`
		INSERT INTO %s (cohort, hall_ticket_no, percentile, doc, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (cohort, hall_ticket_no)
		DO UPDATE SET percentile = EXCLUDED.percentile, doc = EXCLUDED.doc, updated_at = now()`, p.ident())

	batch := &pgx.Batch{}
	for _, id := range order {
		rec := existing[id]
		doc, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode student %s: %w", id, err)
		}
		batch.Queue(upsert, cohort, id, scoring.Quantize(rec.Percentile), doc)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert students: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// TopN returns the first n students with dense ranks.
func (p *PostgresStore) TopN(ctx context.Context, cohort string, n int) (_ []model.StudentRecord, err error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	defer func(start time.Time) { observe("top_n", start, err) }(time.Now())

	query := fmt.Sprintf(`
		SELECT doc, DENSE_RANK() OVER (ORDER BY percentile DESC) AS rnk
		FROM %s
		WHERE cohort = $1
		ORDER BY percentile DESC, hall_ticket_no ASC
		LIMIT $2`, p.ident())
	rows, err := p.db.Query(ctx, query, cohort, n)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	out := make([]model.StudentRecord, 0, n)
	for rows.Next() {
		var (
			rec  model.StudentRecord
			rank int64
		)
		if err := rows.Scan(&rec, &rank); err != nil {
			return nil, fmt.Errorf("scan leaderboard: %w", err)
		}
		rec.Rank = int(rank)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}

// Rank returns one student with its dense rank.
func (p *PostgresStore) Rank(ctx context.Context, cohort, id string) (_ model.StudentRecord, err error) {
	defer func(start time.Time) { observe("rank", start, err) }(time.Now())

	query := fmt.Sprintf(`
		WITH ranked AS (
			SELECT hall_ticket_no, doc, DENSE_RANK() OVER (ORDER BY percentile DESC) AS rnk
			FROM %s
			WHERE cohort = $1
		)
		SELECT doc, rnk FROM ranked WHERE hall_ticket_no = $2`, p.ident())

	var (
		rec  model.StudentRecord
		rank int64
	)
	err = p.db.QueryRow(ctx, query, cohort, model.CanonicalID(id)).Scan(&rec, &rank)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.StudentRecord{}, ErrNotFound
	}
	if err != nil {
		return model.StudentRecord{}, fmt.Errorf("query rank: %w", err)
	}
	rec.Rank = int(rank)
	return rec, nil
}

// Count returns the number of students in the cohort.
func (p *PostgresStore) Count(ctx context.Context, cohort string) (int, error) {
	var n int64
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE cohort = $1`, p.ident())
	if err := p.db.QueryRow(ctx, query, cohort).Scan(&n); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return int(n), nil
}

// Cohorts lists cohorts with at least one student.
func (p *PostgresStore) Cohorts(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf(`SELECT DISTINCT cohort FROM %s ORDER BY cohort`, p.ident())
	rows, err := p.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query cohorts: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan cohort: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return names, nil
}
