package pinauth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TokenIssuer mints, validates, and revokes bearer tokens. Each token is a
// signed JWT whose jti references an AccessToken row; the signature proves
// provenance and the row keeps the token revocable per device.
type TokenIssuer interface {
	Issue(ctx context.Context, user *User, deviceName string) (string, error)
	IssueTx(ctx context.Context, tx bun.IDB, user *User, deviceName string) (string, error)
	Validate(ctx context.Context, raw string) (*JWTClaims, error)
	Revoke(ctx context.Context, raw string) error
}

// TokenIssuerImpl implements the TokenIssuer interface.
type TokenIssuerImpl struct {
	signingKey      []byte
	tokenExpiration int
	issuer          string
	audience        jwt.ClaimStrings
	tokens          AccessTokens
	logger          Logger
	now             func() time.Time
}

// NewTokenIssuer creates a new TokenIssuer instance.
func NewTokenIssuer(tokens AccessTokens, opts Config) *TokenIssuerImpl {
	return &TokenIssuerImpl{
		signingKey:      []byte(opts.GetSigningKey()),
		tokenExpiration: opts.GetTokenExpiration(),
		issuer:          opts.GetIssuer(),
		audience:        jwt.ClaimStrings(opts.GetAudience()),
		tokens:          tokens,
		logger:          defLogger{},
		now:             time.Now,
	}
}

// WithLogger overrides the logger used by the issuer.
func (ts *TokenIssuerImpl) WithLogger(logger Logger) *TokenIssuerImpl {
	if logger != nil {
		ts.logger = logger
	}
	return ts
}

// WithClock injects a custom clock (useful for tests).
func (ts *TokenIssuerImpl) WithClock(clock func() time.Time) *TokenIssuerImpl {
	if clock != nil {
		ts.now = clock
	}
	return ts
}

// Issue persists an AccessToken row and returns the signed JWT for it.
func (ts *TokenIssuerImpl) Issue(ctx context.Context, user *User, deviceName string) (string, error) {
	return ts.issue(ctx, nil, user, deviceName)
}

// IssueTx issues inside an existing transaction so the row write shares
// the caller's atomicity, as the final registration step requires.
func (ts *TokenIssuerImpl) IssueTx(ctx context.Context, tx bun.IDB, user *User, deviceName string) (string, error) {
	return ts.issue(ctx, tx, user, deviceName)
}

func (ts *TokenIssuerImpl) issue(ctx context.Context, tx bun.IDB, user *User, deviceName string) (string, error) {
	if user == nil || user.ID == uuid.Nil {
		return "", goerrors.New("user is required to issue a token", goerrors.CategoryBadInput)
	}

	now := ts.now()
	expiresAt := now.Add(time.Duration(ts.tokenExpiration) * time.Hour)

	record := &AccessToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		Name:      deviceName,
		ExpiresAt: &expiresAt,
	}

	var err error
	if tx != nil {
		_, err = ts.tokens.CreateTx(ctx, tx, record)
	} else {
		_, err = ts.tokens.Create(ctx, record)
	}
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist access token")
	}

	claims := ts.newClaims(user, record.ID, now, expiresAt)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}

	return signed, nil
}

// Validate parses the token, checks the signature and expiry, and requires
// the backing row to still exist. Any failure reads as unauthenticated.
func (ts *TokenIssuerImpl) Validate(ctx context.Context, raw string) (*JWTClaims, error) {
	claims, err := ts.parse(raw)
	if err != nil {
		return nil, err
	}

	tokenID, err := claims.TokenID()
	if err != nil {
		ts.logger.Error("token validate could not parse jti", "error", err)
		return nil, ErrUnauthenticated
	}

	alive, err := ts.tokens.Exists(ctx, tokenID)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up access token")
	}

	if !alive {
		return nil, ErrUnauthenticated
	}

	if err := ts.tokens.Touch(ctx, tokenID, ts.now()); err != nil {
		ts.logger.Warn("failed to touch access token", "error", err)
	}

	return claims, nil
}

// Revoke deletes the row behind the presented token. Other tokens for the
// same user stay valid.
func (ts *TokenIssuerImpl) Revoke(ctx context.Context, raw string) error {
	claims, err := ts.parse(raw)
	if err != nil {
		return err
	}

	tokenID, err := claims.TokenID()
	if err != nil {
		return ErrUnauthenticated
	}

	if err := ts.tokens.Revoke(ctx, tokenID); err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrUnauthenticated
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to revoke access token")
	}

	return nil
}

func (ts *TokenIssuerImpl) parse(raw string) (*JWTClaims, error) {
	// exp and nbf must be checked against the same clock issuance used
	parserOptions := make([]jwt.ParserOption, 0, 3)
	parserOptions = append(parserOptions, jwt.WithTimeFunc(ts.now))
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(raw, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("token validate encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		ts.logger.Debug("token parse failed", "error", err)
		return nil, ErrUnauthenticated
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		ts.logger.Error("token validate could not decode or validate claims")
		return nil, ErrUnauthenticated
	}

	return claims, nil
}

func (ts *TokenIssuerImpl) newClaims(user *User, tokenID uuid.UUID, issuedAt, expiresAt time.Time) *JWTClaims {
	var aud jwt.ClaimStrings
	if len(ts.audience) > 0 {
		aud = make(jwt.ClaimStrings, len(ts.audience))
		copy(aud, ts.audience)
	}

	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID.String(),
			Issuer:    ts.issuer,
			Subject:   user.ID.String(),
			Audience:  aud,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UID:   user.ID.String(),
		Email: user.Email,
	}

	ensureTokenID(&claims.RegisteredClaims)

	return claims
}
