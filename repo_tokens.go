package pinauth

import (
	"context"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AccessTokens stores the persisted half of issued bearer tokens.
type AccessTokens interface {
	repository.Repository[*AccessToken]

	// Exists reports whether the token row is still live. A missing row
	// means the token was revoked.
	Exists(ctx context.Context, id uuid.UUID) (bool, error)

	// Revoke deletes exactly one token row, leaving the user's other
	// tokens valid.
	Revoke(ctx context.Context, id uuid.UUID) error
	RevokeTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error

	// Touch records when a token was last used. Failures are advisory.
	Touch(ctx context.Context, id uuid.UUID, at time.Time) error
}

type accessTokens struct {
	repository.Repository[*AccessToken]
	db *bun.DB
}

var (
	_ AccessTokens                        = (*accessTokens)(nil)
	_ repository.Repository[*AccessToken] = (*accessTokens)(nil)
)

// NewAccessTokensRepository builds the bun-backed token store.
func NewAccessTokensRepository(db *bun.DB) AccessTokens {
	repo := repository.NewRepository[*AccessToken](db, repository.ModelHandlers[*AccessToken]{
		NewRecord: func() *AccessToken { return &AccessToken{} },
		GetID: func(t *AccessToken) uuid.UUID {
			if t == nil {
				return uuid.Nil
			}
			return t.ID
		},
		SetID: func(t *AccessToken, id uuid.UUID) {
			if t != nil {
				t.ID = id
			}
		},
	})

	return &accessTokens{
		Repository: repo,
		db:         db,
	}
}

func (r *accessTokens) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.db.NewSelect().
		Model((*AccessToken)(nil)).
		Where("?TableAlias.id = ?", id).
		Exists(ctx)
}

func (r *accessTokens) Revoke(ctx context.Context, id uuid.UUID) error {
	return r.RevokeTx(ctx, r.db, id)
}

func (r *accessTokens) RevokeTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	res, err := tx.NewDelete().
		Model((*AccessToken)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": id.String()})
	}

	return nil
}

func (r *accessTokens) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.db.NewUpdate().
		Model((*AccessToken)(nil)).
		Set("last_used_at = ?", at).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	return err
}
