package pinauth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// SetPinMessage finishes a registration: it turns the verified OTP record
// into a real user account protected by the given PIN.
type SetPinMessage struct {
	Email      string `json:"email"`
	Pin        string `json:"pin"`
	DeviceName string `json:"device_name"`
	OnResponse func(resp *SetPinResponse)
}

func (m SetPinMessage) Type() string { return "auth.registration.set_pin" }

func (m SetPinMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Email, validation.Required, is.Email),
		validation.Field(&m.Pin, validation.Required, validation.Length(6, 6), is.Digit),
	)
}

type SetPinResponse struct {
	User    *User
	Token   string
	Success bool
}

// SetPinHandler creates the account, deletes the consumed registration,
// and issues the first access token, all in one transaction. The unique
// index on users.email is the arbiter when two requests race: the loser
// gets a conflict instead of a duplicate account.
type SetPinHandler struct {
	repo     RepositoryManager
	issuer   TokenIssuer
	logger   Logger
	activity ActivitySink
	now      func() time.Time
}

func NewSetPinHandler(repo RepositoryManager, issuer TokenIssuer) *SetPinHandler {
	return &SetPinHandler{
		repo:     repo,
		issuer:   issuer,
		logger:   defLogger{},
		activity: noopActivitySink{},
		now:      time.Now,
	}
}

func (h *SetPinHandler) WithLogger(logger Logger) *SetPinHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *SetPinHandler) WithActivitySink(sink ActivitySink) *SetPinHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

func (h *SetPinHandler) WithClock(clock func() time.Time) *SetPinHandler {
	if clock != nil {
		h.now = clock
	}
	return h
}

func (h *SetPinHandler) Execute(ctx context.Context, event SetPinMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled while completing registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *SetPinHandler) execute(ctx context.Context, event SetPinMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	email := normalizeEmail(event.Email)
	now := h.now()

	record, err := h.repo.OtpRegistrations().GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrIncompleteRegistration
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve OTP registration")
	}

	if StateOf(record, now) != RegistrationStateNameSet {
		return ErrIncompleteRegistration
	}

	pinHash, err := HashSecret(event.Pin)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash PIN")
	}

	resp := &SetPinResponse{}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user := &User{
			Name:            record.Name,
			Email:           email,
			PinHash:         pinHash,
			EmailVerifiedAt: &now,
		}

		created, err := h.repo.Users().RegisterTx(ctx, tx, user)
		if err != nil {
			if IsUniqueViolation(err) {
				return ErrEmailAlreadyUsed
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create user account")
		}

		if err := h.repo.OtpRegistrations().DeleteByEmailTx(ctx, tx, email); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete consumed OTP registration")
		}

		token, err := h.issuer.IssueTx(ctx, tx, created, event.DeviceName)
		if err != nil {
			return err
		}

		resp.User = created
		resp.Token = token
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		h.logger.Error("registration transaction failed", "email", email, "error", err)
		return ErrRegistrationFailed
	}

	if err := h.activity.Record(ctx, ActivityEvent{
		EventType:  ActivityEventRegistrationCompleted,
		Actor:      ActorRef{ID: resp.User.ID.String(), Type: "user"},
		UserID:     resp.User.ID.String(),
		OccurredAt: now,
	}); err != nil {
		h.logger.Warn("activity sink error", "error", err)
	}

	resp.Success = true

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
