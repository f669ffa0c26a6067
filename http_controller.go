package pinauth

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-router"
)

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// ControllerDeps collects everything the HTTP controller needs.
type ControllerDeps struct {
	Repo     RepositoryManager
	Auth     Authenticator
	Issuer   TokenIssuer
	Mailer   Mailer
	Logger   Logger
	Activity ActivitySink
}

// AuthController exposes the registration and login flows over JSON.
type AuthController struct {
	auth       Authenticator
	issuer     TokenIssuer
	requestOtp *RequestOtpHandler
	verifyOtp  *VerifyOtpHandler
	setName    *SetNameHandler
	setPin     *SetPinHandler
	logger     Logger
}

// NewAuthController wires the command handlers behind the HTTP surface.
func NewAuthController(deps ControllerDeps) *AuthController {
	logger := deps.Logger
	if logger == nil {
		logger = defLogger{}
	}

	sink := normalizeActivitySink(deps.Activity)

	return &AuthController{
		auth:   deps.Auth,
		issuer: deps.Issuer,
		logger: logger,
		requestOtp: NewRequestOtpHandler(deps.Repo, deps.Mailer).
			WithLogger(logger).
			WithActivitySink(sink),
		verifyOtp: NewVerifyOtpHandler(deps.Repo).
			WithLogger(logger).
			WithActivitySink(sink),
		setName: NewSetNameHandler(deps.Repo).
			WithLogger(logger),
		setPin: NewSetPinHandler(deps.Repo, deps.Issuer).
			WithLogger(logger).
			WithActivitySink(sink),
	}
}

// RegisterRoutes mounts the auth endpoints on the given group. Mount the
// group at /v1/auth to get the documented paths.
func (c *AuthController) RegisterRoutes(group RouteRegistrar) {
	guard := TokenGuard(c.issuer)

	group.Post("/check-email-login", c.CheckEmailLogin)
	group.Post("/login-pin", c.LoginPin)
	group.Post("/check-email-register", c.CheckEmailRegister)
	group.Post("/verify-otp", c.VerifyOtp)
	group.Post("/set-name", c.SetName)
	group.Post("/set-pin", c.SetPin)
	group.Post("/logout", c.Logout, guard)
	group.Get("/me", c.Me, guard)
}

// EmailPayload is shared by the endpoints that only take an email.
type EmailPayload struct {
	Email string `json:"email"`
}

func (p EmailPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Email, validation.Required, is.Email),
	)
}

// CheckEmailLogin reports whether an account exists for the email.
func (c *AuthController) CheckEmailLogin(ctx router.Context) error {
	payload := &EmailPayload{}
	if err := ctx.Bind(payload); err != nil {
		return c.badPayload(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return RespondWithError(ctx, err)
	}

	// the profile stays server side: this endpoint answers an
	// unauthenticated caller, so only the yes/no leaves
	if _, err := c.auth.CheckEmail(ctx.Context(), payload.Email); err != nil {
		return RespondWithError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"status":  "registered",
		"message": "Account found. Enter your PIN to sign in.",
	})
}

// LoginPayload carries the credentials for PIN login.
type LoginPayload struct {
	Email      string `json:"email"`
	Pin        string `json:"pin_code"`
	DeviceName string `json:"device_name"`
}

func (p LoginPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Email, validation.Required, is.Email),
		validation.Field(&p.Pin, validation.Required, validation.Length(6, 6), is.Digit),
	)
}

// LoginPin exchanges email and PIN for a bearer token.
func (c *AuthController) LoginPin(ctx router.Context) error {
	payload := &LoginPayload{}
	if err := ctx.Bind(payload); err != nil {
		return c.badPayload(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return RespondWithError(ctx, err)
	}

	token, user, err := c.auth.Login(ctx.Context(), payload.Email, payload.Pin, payload.DeviceName)
	if err != nil {
		return RespondWithError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"status":  "success",
		"message": "Signed in.",
		"token":   token,
		"user":    user.Profile(),
	})
}

// CheckEmailRegister starts a registration by mailing a one time code.
func (c *AuthController) CheckEmailRegister(ctx router.Context) error {
	payload := &EmailPayload{}
	if err := ctx.Bind(payload); err != nil {
		return c.badPayload(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return RespondWithError(ctx, err)
	}

	msg := RequestOtpMessage{Email: payload.Email}

	var res *RequestOtpResponse
	msg.OnResponse = func(resp *RequestOtpResponse) {
		res = resp
	}

	if err := c.requestOtp.Execute(ctx.Context(), msg); err != nil {
		c.logger.Error("request OTP error", "error", err)
		return RespondWithError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"status":     "otp_sent",
		"message":    "We sent a verification code to your email.",
		"expires_in": res.ExpiresIn,
	})
}

// VerifyOtpPayload carries the code submitted by the user.
type VerifyOtpPayload struct {
	Email string `json:"email"`
	Otp   string `json:"otp_code"`
}

func (p VerifyOtpPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Email, validation.Required, is.Email),
		validation.Field(&p.Otp, validation.Required, validation.Length(6, 6), is.Digit),
	)
}

// VerifyOtp checks the submitted code against the pending registration.
func (c *AuthController) VerifyOtp(ctx router.Context) error {
	payload := &VerifyOtpPayload{}
	if err := ctx.Bind(payload); err != nil {
		return c.badPayload(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return RespondWithError(ctx, err)
	}

	msg := VerifyOtpMessage{Email: payload.Email, Otp: payload.Otp}
	if err := c.verifyOtp.Execute(ctx.Context(), msg); err != nil {
		return RespondWithError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"status":  "verified",
		"message": "Email verified.",
	})
}

// SetNamePayload carries the display name for a pending registration.
type SetNamePayload struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (p SetNamePayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Email, validation.Required, is.Email),
		validation.Field(&p.Name, validation.Required, validation.Length(2, 255)),
	)
}

// SetName stores the display name on a verified registration.
func (c *AuthController) SetName(ctx router.Context) error {
	payload := &SetNamePayload{}
	if err := ctx.Bind(payload); err != nil {
		return c.badPayload(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return RespondWithError(ctx, err)
	}

	msg := SetNameMessage{Email: payload.Email, Name: payload.Name}
	if err := c.setName.Execute(ctx.Context(), msg); err != nil {
		return RespondWithError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"status":  "name_saved",
		"message": "Name saved.",
	})
}

// SetPinPayload finishes a registration with the chosen PIN.
type SetPinPayload struct {
	Email      string `json:"email"`
	Pin        string `json:"pin_code"`
	DeviceName string `json:"device_name"`
}

func (p SetPinPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Email, validation.Required, is.Email),
		validation.Field(&p.Pin, validation.Required, validation.Length(6, 6), is.Digit),
	)
}

// SetPin creates the account and returns the first bearer token.
func (c *AuthController) SetPin(ctx router.Context) error {
	payload := &SetPinPayload{}
	if err := ctx.Bind(payload); err != nil {
		return c.badPayload(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return RespondWithError(ctx, err)
	}

	msg := SetPinMessage{
		Email:      payload.Email,
		Pin:        payload.Pin,
		DeviceName: payload.DeviceName,
	}

	var res *SetPinResponse
	msg.OnResponse = func(resp *SetPinResponse) {
		res = resp
	}

	if err := c.setPin.Execute(ctx.Context(), msg); err != nil {
		c.logger.Error("set PIN error", "error", err)
		return RespondWithError(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, map[string]any{
		"status":  "registered",
		"message": "Account created.",
		"token":   res.Token,
		"user":    res.User.Profile(),
	})
}

// Logout revokes the presented token.
func (c *AuthController) Logout(ctx router.Context) error {
	raw, err := TokenFromContext(ctx)
	if err != nil {
		return RespondWithError(ctx, err)
	}

	if err := c.auth.Logout(ctx.Context(), raw); err != nil {
		return RespondWithError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"status":  "success",
		"message": "Signed out.",
	})
}

// Me returns the profile behind the presented token.
func (c *AuthController) Me(ctx router.Context) error {
	raw, err := TokenFromContext(ctx)
	if err != nil {
		return RespondWithError(ctx, err)
	}

	user, err := c.auth.UserFromToken(ctx.Context(), raw)
	if err != nil {
		return RespondWithError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"status": "success",
		"data":   user.Profile(),
	})
}

func (c *AuthController) badPayload(ctx router.Context, err error) error {
	c.logger.Error("payload bind error", "error", err)
	return ctx.JSON(router.StatusBadRequest, map[string]any{
		"status":  "error",
		"message": "Malformed request payload.",
	})
}
