package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-portal"
	"github.com/uptrace/bun"
)

// DefaultSessionKey names the session row used by single user clients
const DefaultSessionKey = "default"

// SessionTokenModel is the Bun model for stored session tokens.
type SessionTokenModel struct {
	bun.BaseModel `bun:"table:session_tokens"`

	SessionKey string    `bun:"session_key,pk"`
	Token      string    `bun:"token,notnull"`
	UpdatedAt  time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

var _ portal.TokenStore = &BunTokenStore{}

// BunTokenStore keeps one session token per key in the session_tokens table.
type BunTokenStore struct {
	db  *bun.DB
	key string
	now func() time.Time
}

// NewBunTokenStore creates a store bound to key
func NewBunTokenStore(db *bun.DB, key string) *BunTokenStore {
	if key == "" {
		key = DefaultSessionKey
	}
	return &BunTokenStore{db: db, key: key, now: time.Now}
}

// WithKey returns a store reading the row of another session
func (s *BunTokenStore) WithKey(key string) *BunTokenStore {
	clone := *s
	if key != "" {
		clone.key = key
	}
	return &clone
}

func (s *BunTokenStore) Token(ctx context.Context) (string, error) {
	var model SessionTokenModel
	err := s.db.NewSelect().
		Model(&model).
		Where("session_key = ?", s.key).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read session token")
	}
	return model.Token, nil
}

func (s *BunTokenStore) SetToken(ctx context.Context, token string) error {
	if token == "" {
		return s.ClearToken(ctx)
	}

	model := &SessionTokenModel{
		SessionKey: s.key,
		Token:      token,
		UpdatedAt:  s.now().UTC(),
	}

	_, err := s.db.NewInsert().
		Model(model).
		On("CONFLICT (session_key) DO UPDATE").
		Set("token = EXCLUDED.token").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store session token")
	}
	return nil
}

func (s *BunTokenStore) ClearToken(ctx context.Context) error {
	_, err := s.db.NewDelete().
		Model((*SessionTokenModel)(nil)).
		Where("session_key = ?", s.key).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to clear session token")
	}
	return nil
}
