package repository

import (
	"context"
	"time"

	"github.com/okian/cpboard/internal/domain/model"
)

// Option applies a configuration option to the TreapStore.
type Option func(*TreapStore)

// withWriteHook runs fn with the cohort's full roster-ordered state before an
// upload is published. A hook error aborts the publish; the file store uses
// it to persist documents.
func withWriteHook(fn func(ctx context.Context, cohort string, records []model.StudentRecord) error) Option {
	return func(s *TreapStore) {
		s.onWrite = fn
	}
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithTable sets the table name.
func WithTable(table string) PostgresOption {
	return func(p *PostgresStore) {
		if table != "" {
			p.table = table
		}
	}
}

// WithMaxConns caps the pool size.
func WithMaxConns(n int32) PostgresOption {
	return func(p *PostgresStore) {
		if n > 0 {
			p.maxConns = n
		}
	}
}

// WithConnectTimeout bounds the initial ping.
func WithConnectTimeout(d time.Duration) PostgresOption {
	return func(p *PostgresStore) {
		if d > 0 {
			p.connectTimeout = d
		}
	}
}
