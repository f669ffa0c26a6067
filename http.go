package pinauth

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// ClaimsContextKey is the locals key the token guard stores claims under.
const ClaimsContextKey = "auth_claims"

// TokenFromContext extracts the bearer token from the Authorization header.
func TokenFromContext(ctx router.Context) (string, error) {
	header := ctx.GetString(router.HeaderAuthorization, "")
	if header == "" {
		return "", ErrUnauthenticated
	}

	scheme := "Bearer"
	if len(header) > len(scheme)+1 && strings.EqualFold(header[:len(scheme)], scheme) {
		return strings.TrimSpace(header[len(scheme):]), nil
	}

	return "", ErrUnauthenticated
}

// TokenGuard validates the bearer token on every request and stores the
// claims in locals under ClaimsContextKey. Requests without a live token
// get the unauthorized envelope.
func TokenGuard(issuer TokenIssuer) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			raw, err := TokenFromContext(ctx)
			if err != nil {
				return RespondWithError(ctx, err)
			}

			claims, err := issuer.Validate(ctx.Context(), raw)
			if err != nil {
				return RespondWithError(ctx, err)
			}

			ctx.Locals(ClaimsContextKey, claims)

			return hf(ctx)
		}
	}
}

// ClaimsFromContext returns the claims the TokenGuard stored, or nil.
func ClaimsFromContext(ctx router.Context) *JWTClaims {
	claims, _ := ctx.Locals(ClaimsContextKey).(*JWTClaims)
	return claims
}

// RespondWithError renders the JSON error envelope for err. Domain errors
// map through their text code; everything else is a 500.
func RespondWithError(ctx router.Context, err error) error {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		return ctx.JSON(router.StatusUnprocessableEntity, map[string]any{
			"status":  "validation_error",
			"message": "The given data was invalid.",
			"errors":  FormatValidationErrorToMap(verrs),
		})
	}

	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return ctx.JSON(router.StatusInternalServerError, map[string]any{
			"status":  "error",
			"message": "Something went wrong. Please try again.",
		})
	}

	status, envelope, message := mapTextCode(richErr.TextCode)

	return ctx.JSON(status, map[string]any{
		"status":  envelope,
		"message": message,
	})
}

func mapTextCode(textCode string) (int, string, string) {
	switch textCode {
	case TextCodeEmailNotFound:
		return router.StatusNotFound, "not_found", "No account found for this email."
	case TextCodeInvalidCredentials:
		return router.StatusUnauthorized, "unauthorized", "Invalid email or PIN."
	case TextCodeEmailAlreadyUsed:
		return router.StatusUnprocessableEntity, "used", "This email is already registered."
	case TextCodeInvalidOrExpiredOtp:
		return router.StatusUnprocessableEntity, "invalid", "The code is invalid or has expired."
	case TextCodeOtpNotVerified:
		return router.StatusUnprocessableEntity, "otp_required", "Verify the code sent to your email first."
	case TextCodeIncompleteRegistration:
		return router.StatusUnprocessableEntity, "incomplete_data", "Complete the previous registration steps first."
	case TextCodeOtpDeliveryFailed:
		return router.StatusInternalServerError, "error", "Could not send the verification code. Please try again."
	case TextCodeRegistrationFailed:
		return router.StatusInternalServerError, "error", "Could not complete the registration. Please try again."
	case TextCodeUnauthenticated:
		return router.StatusUnauthorized, "unauthorized", "Authentication required."
	default:
		return router.StatusInternalServerError, "error", "Something went wrong. Please try again."
	}
}

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field to message map for JSON responses.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}

	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		if err != nil {
			out["_"] = err.Error()
		}
		return out
	}

	for field, ferr := range verrs {
		if ferr != nil {
			out[field] = ferr.Error()
		}
	}

	return out
}
