package pinauth

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
)

// SetNameMessage records the display name for a verified registration.
type SetNameMessage struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	OnResponse func(resp *SetNameResponse)
}

func (m SetNameMessage) Type() string { return "auth.registration.set_name" }

func (m SetNameMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Email, validation.Required, is.Email),
		validation.Field(&m.Name, validation.Required, validation.Length(2, 255)),
	)
}

type SetNameResponse struct {
	Email   string
	Name    string
	Success bool
}

// SetNameHandler stores the name on the pending registration. The
// registration must have passed OTP verification; once is_verified is
// set the expiry timestamp no longer gates this step.
type SetNameHandler struct {
	repo   RepositoryManager
	logger Logger
}

func NewSetNameHandler(repo RepositoryManager) *SetNameHandler {
	return &SetNameHandler{
		repo:   repo,
		logger: defLogger{},
	}
}

func (h *SetNameHandler) WithLogger(logger Logger) *SetNameHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *SetNameHandler) Execute(ctx context.Context, event SetNameMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled while saving registration name",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *SetNameHandler) execute(ctx context.Context, event SetNameMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	email := normalizeEmail(event.Email)

	record, err := h.repo.OtpRegistrations().GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrOtpNotVerified
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve OTP registration")
	}

	switch StateOf(record, time.Now()) {
	case RegistrationStateOtpVerified, RegistrationStateNameSet:
	default:
		return ErrOtpNotVerified
	}

	record.Name = strings.TrimSpace(event.Name)

	if _, err := h.repo.OtpRegistrations().UpsertByEmail(ctx, record); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to save registration name")
	}

	if event.OnResponse != nil {
		event.OnResponse(&SetNameResponse{Email: email, Name: record.Name, Success: true})
	}

	return nil
}
