package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// Manager owns the session token tables and hands out stores by key
type Manager struct {
	db *bun.DB
}

func NewManager(db *bun.DB) *Manager {
	return &Manager{db: db}
}

func (m *Manager) Validate() error {
	if m.db == nil {
		return errors.New("repository db should be initialized")
	}
	return nil
}

func (m *Manager) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

// Migrate creates the tables the stores need
func (m *Manager) Migrate(ctx context.Context) error {
	return m.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewCreateTable().
			Model((*SessionTokenModel)(nil)).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "unable to create session_tokens table")
		}
		return nil
	})
}

func (m *Manager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

// Tokens returns the store of the session named key
func (m *Manager) Tokens(key string) *BunTokenStore {
	return NewBunTokenStore(m.db, key)
}

// Purge removes tokens not written since before. It returns the number
// of rows removed.
func (m *Manager) Purge(ctx context.Context, before time.Time) (int64, error) {
	res, err := m.db.NewDelete().
		Model((*SessionTokenModel)(nil)).
		Where("updated_at < ?", before).
		Exec(ctx)
	if err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "unable to purge session tokens")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "unable to count purged session tokens")
	}
	return n, nil
}

func (m *Manager) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}
