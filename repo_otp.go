package pinauth

import (
	"context"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// OtpRegistrations stores the transient registration records, keyed by
// email with at most one row per email.
type OtpRegistrations interface {
	repository.Repository[*OtpRegistration]

	GetByEmail(ctx context.Context, email string) (*OtpRegistration, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*OtpRegistration, error)

	// UpsertByEmail replaces any prior record for the email, restarting the
	// flow: verification state, name, code, and expiry are all reset from
	// the given record.
	UpsertByEmail(ctx context.Context, record *OtpRegistration) (*OtpRegistration, error)
	UpsertByEmailTx(ctx context.Context, tx bun.IDB, record *OtpRegistration) (*OtpRegistration, error)

	DeleteByEmailTx(ctx context.Context, tx bun.IDB, email string) error
}

type otpRegistrations struct {
	repository.Repository[*OtpRegistration]
	db *bun.DB
}

var (
	_ OtpRegistrations                        = (*otpRegistrations)(nil)
	_ repository.Repository[*OtpRegistration] = (*otpRegistrations)(nil)
)

// NewOtpRegistrationsRepository builds the bun-backed OTP store.
func NewOtpRegistrationsRepository(db *bun.DB) OtpRegistrations {
	repo := repository.NewRepository[*OtpRegistration](db, repository.ModelHandlers[*OtpRegistration]{
		NewRecord: func() *OtpRegistration { return &OtpRegistration{} },
		GetID: func(o *OtpRegistration) uuid.UUID {
			if o == nil {
				return uuid.Nil
			}
			return o.ID
		},
		SetID: func(o *OtpRegistration, id uuid.UUID) {
			if o != nil {
				o.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &otpRegistrations{
		Repository: repo,
		db:         db,
	}
}

func (r *otpRegistrations) GetByEmail(ctx context.Context, email string) (*OtpRegistration, error) {
	return r.GetByEmailTx(ctx, r.db, email)
}

func (r *otpRegistrations) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*OtpRegistration, error) {
	record := &OtpRegistration{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", normalizeEmail(email)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"email": email})
		}
		return nil, err
	}

	return record, nil
}

func (r *otpRegistrations) UpsertByEmail(ctx context.Context, record *OtpRegistration) (*OtpRegistration, error) {
	return r.UpsertByEmailTx(ctx, r.db, record)
}

func (r *otpRegistrations) UpsertByEmailTx(ctx context.Context, tx bun.IDB, record *OtpRegistration) (*OtpRegistration, error) {
	record.Email = normalizeEmail(record.Email)
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	_, err := tx.NewInsert().
		Model(record).
		On("CONFLICT (email) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("otp_hash = EXCLUDED.otp_hash").
		Set("expires_at = EXCLUDED.expires_at").
		Set("is_verified = EXCLUDED.is_verified").
		Set("updated_at = CURRENT_TIMESTAMP").
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	return r.GetByEmailTx(ctx, tx, record.Email)
}

func (r *otpRegistrations) DeleteByEmailTx(ctx context.Context, tx bun.IDB, email string) error {
	_, err := tx.NewDelete().
		Model((*OtpRegistration)(nil)).
		Where("?TableAlias.email = ?", normalizeEmail(email)).
		Exec(ctx)
	return err
}
