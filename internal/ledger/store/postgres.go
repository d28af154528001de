package store

import (
	"context"
	"database/sql"
	"time"

	dErrors "parrainage/pkg/domain-errors"
	txcontext "parrainage/pkg/platform/tx"
)

const defaultTxTimeout = 5 * time.Second

// Advisory lock keys. Each names one serialized ledger operation.
const (
	lockPeriodTransitions int64 = 727_200_001
	lockImportPromotion   int64 = 727_200_002
)

// Postgres is the ledger store over PostgreSQL. Every method runs on the
// transaction carried by ctx when there is one, otherwise directly on the pool.
type Postgres struct {
	db      *sql.DB
	timeout time.Duration
}

type PostgresOption func(*Postgres)

// WithTxTimeout bounds transactions whose context carries no deadline.
func WithTxTimeout(d time.Duration) PostgresOption {
	return func(p *Postgres) {
		p.timeout = d
	}
}

// NewPostgres constructs a PostgreSQL-backed ledger store.
func NewPostgres(db *sql.DB, opts ...PostgresOption) *Postgres {
	p := &Postgres{db: db, timeout: defaultTxTimeout}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (s *Postgres) exec(ctx context.Context) txcontext.Executor {
	return txcontext.Or(ctx, s.db)
}

// RunInTx runs fn in a READ COMMITTED transaction. The context handed to fn
// carries the transaction; store calls must use it.
func (s *Postgres) RunInTx(ctx context.Context, fn func(ctx context.Context, l Ledger) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline && s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx), s); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	return nil
}

// Health pings the pool.
func (s *Postgres) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
