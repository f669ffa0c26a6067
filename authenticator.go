package pinauth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
)

// dummy bcrypt digest compared against when the email has no account,
// so a missing user costs the same as a wrong PIN
const dummyPinHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Authenticator is the login side of the service: it resolves emails to
// accounts, exchanges a PIN for a bearer token, and tears sessions down.
type Authenticator interface {
	CheckEmail(ctx context.Context, email string) (*User, error)
	Login(ctx context.Context, email, pin, deviceName string) (string, *User, error)
	Logout(ctx context.Context, rawToken string) error
	UserFromToken(ctx context.Context, rawToken string) (*User, error)
}

// PinAuthenticator implements Authenticator on top of the repository
// manager and the token issuer.
type PinAuthenticator struct {
	repo         RepositoryManager
	issuer       TokenIssuer
	logger       Logger
	activitySink ActivitySink
	now          func() time.Time
}

// NewPinAuthenticator creates an Authenticator.
func NewPinAuthenticator(repo RepositoryManager, issuer TokenIssuer) *PinAuthenticator {
	return &PinAuthenticator{
		repo:         repo,
		issuer:       issuer,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
		now:          time.Now,
	}
}

// WithLogger overrides the logger.
func (s *PinAuthenticator) WithLogger(logger Logger) *PinAuthenticator {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *PinAuthenticator) WithActivitySink(sink ActivitySink) *PinAuthenticator {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithClock injects a custom clock (useful for tests).
func (s *PinAuthenticator) WithClock(clock func() time.Time) *PinAuthenticator {
	if clock != nil {
		s.now = clock
	}
	return s
}

// CheckEmail reports whether the email belongs to a registered account.
// Returns the user when it does and ErrEmailNotFound when it does not.
func (s *PinAuthenticator) CheckEmail(ctx context.Context, email string) (*User, error) {
	user, err := s.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrEmailNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up user by email")
	}
	return user, nil
}

// Login exchanges an email and PIN for a bearer token. Every failure mode
// reads as invalid credentials so callers cannot tell a wrong PIN from an
// unknown email.
func (s *PinAuthenticator) Login(ctx context.Context, email, pin, deviceName string) (string, *User, error) {
	user, err := s.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			// burn a compare so response timing matches the found case
			_ = CompareSecretAndHash(pin, dummyPinHash)
			s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{ID: normalizeEmail(email), Type: "email"}, "", map[string]any{
				"reason": "unknown_email",
			})
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up user for login")
	}

	if err := CompareSecretAndHash(pin, user.PinHash); err != nil {
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{ID: user.ID.String(), Type: "user"}, user.ID.String(), map[string]any{
			"reason": "pin_mismatch",
		})
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.issuer.Issue(ctx, user, deviceName)
	if err != nil {
		s.logger.Error("Login token issue error", "error", err)
		return "", nil, err
	}

	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, ActorRef{ID: user.ID.String(), Type: "user"}, user.ID.String(), map[string]any{
		"device": deviceName,
	})

	return token, user, nil
}

// Logout revokes the presented token. Tokens the user holds on other
// devices are untouched.
func (s *PinAuthenticator) Logout(ctx context.Context, rawToken string) error {
	claims, err := s.issuer.Validate(ctx, rawToken)
	if err != nil {
		return err
	}

	if err := s.issuer.Revoke(ctx, rawToken); err != nil {
		return err
	}

	s.emitAuthEvent(ctx, ActivityEventLogout, ActorRef{ID: claims.UserID(), Type: "user"}, claims.UserID(), nil)

	return nil
}

// UserFromToken validates the token and loads the account behind it.
func (s *PinAuthenticator) UserFromToken(ctx context.Context, rawToken string) (*User, error) {
	claims, err := s.issuer.Validate(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.Users().GetByID(ctx, claims.UserID())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrUnauthenticated
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user for token")
	}

	return user, nil
}

func (s *PinAuthenticator) emitAuthEvent(ctx context.Context, eventType ActivityEventType, actor ActorRef, userID string, metadata map[string]any) {
	if err := s.activitySink.Record(ctx, ActivityEvent{
		EventType:  eventType,
		Actor:      actor,
		UserID:     userID,
		Metadata:   metadata,
		OccurredAt: s.now(),
	}); err != nil {
		s.logger.Warn("activity sink error", "error", err)
	}
}
