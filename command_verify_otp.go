package pinauth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
)

// VerifyOtpMessage checks the code the user received by mail.
type VerifyOtpMessage struct {
	Email      string `json:"email"`
	Otp        string `json:"otp"`
	OnResponse func(resp *VerifyOtpResponse)
}

func (m VerifyOtpMessage) Type() string { return "auth.otp.verify" }

func (m VerifyOtpMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Email, validation.Required, is.Email),
		validation.Field(&m.Otp, validation.Required, validation.Length(6, 6), is.Digit),
	)
}

type VerifyOtpResponse struct {
	Email   string
	Success bool
}

// VerifyOtpHandler marks a registration verified when the submitted code
// matches the stored hash. A wrong code, a missing record, and an expired
// record all produce the same error so nothing about the registration state
// leaks to a caller probing addresses.
type VerifyOtpHandler struct {
	repo     RepositoryManager
	logger   Logger
	activity ActivitySink
	now      func() time.Time
}

func NewVerifyOtpHandler(repo RepositoryManager) *VerifyOtpHandler {
	return &VerifyOtpHandler{
		repo:     repo,
		logger:   defLogger{},
		activity: noopActivitySink{},
		now:      time.Now,
	}
}

func (h *VerifyOtpHandler) WithLogger(logger Logger) *VerifyOtpHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *VerifyOtpHandler) WithActivitySink(sink ActivitySink) *VerifyOtpHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

func (h *VerifyOtpHandler) WithClock(clock func() time.Time) *VerifyOtpHandler {
	if clock != nil {
		h.now = clock
	}
	return h
}

func (h *VerifyOtpHandler) Execute(ctx context.Context, event VerifyOtpMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during OTP verification",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *VerifyOtpHandler) execute(ctx context.Context, event VerifyOtpMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	email := normalizeEmail(event.Email)
	now := h.now()

	record, err := h.repo.OtpRegistrations().GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrInvalidOrExpiredOtp
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve OTP registration")
	}

	if record.Expired(now) {
		return ErrInvalidOrExpiredOtp
	}

	if err := record.VerifyCode(event.Otp); err != nil {
		return ErrInvalidOrExpiredOtp
	}

	// the grace window gives the user time to finish name and PIN entry
	record.IsVerified = true
	record.ExpiresAt = now.Add(OtpGraceTTL)

	if _, err := h.repo.OtpRegistrations().UpsertByEmail(ctx, record); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update OTP registration")
	}

	if err := h.activity.Record(ctx, ActivityEvent{
		EventType:  ActivityEventOtpVerified,
		Actor:      ActorRef{ID: email, Type: "email"},
		OccurredAt: now,
	}); err != nil {
		h.logger.Warn("activity sink error", "error", err)
	}

	if event.OnResponse != nil {
		event.OnResponse(&VerifyOtpResponse{Email: email, Success: true})
	}

	return nil
}
