package pinauth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// RequestOtpMessage starts or restarts a registration for the given email.
type RequestOtpMessage struct {
	Email      string `json:"email"`
	OnResponse func(resp *RequestOtpResponse)
}

func (m RequestOtpMessage) Type() string { return "auth.otp.request" }

func (m RequestOtpMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Email, validation.Required, is.Email),
	)
}

type RequestOtpResponse struct {
	Email     string
	ExpiresIn int
	Success   bool
}

// RequestOtpHandler generates a one time code, stores its hash, and mails
// the code to the address. A repeated request for the same email replaces
// the previous code and restarts the expiry window.
type RequestOtpHandler struct {
	repo     RepositoryManager
	mailer   Mailer
	logger   Logger
	activity ActivitySink
	now      func() time.Time
	generate func() (string, error)
}

func NewRequestOtpHandler(repo RepositoryManager, mailer Mailer) *RequestOtpHandler {
	return &RequestOtpHandler{
		repo:     repo,
		mailer:   mailer,
		logger:   defLogger{},
		activity: noopActivitySink{},
		now:      time.Now,
		generate: GenerateOtpCode,
	}
}

func (h *RequestOtpHandler) WithLogger(logger Logger) *RequestOtpHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RequestOtpHandler) WithActivitySink(sink ActivitySink) *RequestOtpHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

func (h *RequestOtpHandler) WithClock(clock func() time.Time) *RequestOtpHandler {
	if clock != nil {
		h.now = clock
	}
	return h
}

func (h *RequestOtpHandler) WithGenerator(generate func() (string, error)) *RequestOtpHandler {
	if generate != nil {
		h.generate = generate
	}
	return h
}

func (h *RequestOtpHandler) Execute(ctx context.Context, event RequestOtpMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during OTP request",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RequestOtpHandler) execute(ctx context.Context, event RequestOtpMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	email := normalizeEmail(event.Email)
	resp := &RequestOtpResponse{Email: email}

	taken, err := h.repo.Users().ExistsByEmail(ctx, email)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email availability")
	}

	if taken {
		return ErrEmailAlreadyUsed
	}

	code, err := h.generate()
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate OTP code")
	}

	hash, err := HashSecret(code)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash OTP code")
	}

	now := h.now()

	// delivery happens inside the transaction so a failed send rolls the
	// record back and the client can retry cleanly
	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record := &OtpRegistration{
			Email:     email,
			OtpHash:   hash,
			ExpiresAt: now.Add(OtpTTL),
		}

		if _, err := h.repo.OtpRegistrations().UpsertByEmailTx(ctx, tx, record); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store OTP registration")
		}

		if err := h.mailer.Send(ctx, NewOtpMail(email, code, OtpTTL)); err != nil {
			h.logger.Error("OTP mail delivery failed", "email", email, "error", err)
			return ErrOtpDeliveryFailed
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "OTP request transaction failed")
	}

	if err := h.activity.Record(ctx, ActivityEvent{
		EventType:  ActivityEventOtpRequested,
		Actor:      ActorRef{ID: email, Type: "email"},
		Metadata:   map[string]any{"expires_in": int(OtpTTL.Minutes())},
		OccurredAt: now,
	}); err != nil {
		h.logger.Warn("activity sink error", "error", err)
	}

	resp.ExpiresIn = int(OtpTTL.Minutes())
	resp.Success = true

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
