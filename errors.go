package pinauth

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes give API consumers a stable machine-readable error identity.
const (
	TextCodeEmailNotFound          = "EMAIL_NOT_FOUND"
	TextCodeEmailAlreadyUsed       = "EMAIL_ALREADY_USED"
	TextCodeInvalidCredentials     = "INVALID_CREDENTIALS"
	TextCodeInvalidOrExpiredOtp    = "INVALID_OR_EXPIRED_OTP"
	TextCodeOtpNotVerified         = "OTP_NOT_VERIFIED"
	TextCodeIncompleteRegistration = "INCOMPLETE_REGISTRATION_DATA"
	TextCodeOtpDeliveryFailed      = "OTP_DELIVERY_FAILED"
	TextCodeRegistrationFailed     = "REGISTRATION_FAILED"
	TextCodeUnauthenticated        = "UNAUTHENTICATED"
	TextCodeEmptySecret            = "EMPTY_SECRET"
	TextCodeHashMismatch           = "HASH_MISMATCH"
)

// ErrEmailNotFound is returned by the login email check for unknown emails.
var ErrEmailNotFound = goerrors.New("email is not registered", goerrors.CategoryNotFound).
	WithTextCode(TextCodeEmailNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrEmailAlreadyUsed is returned when registration is attempted for an
// email that already belongs to a user.
var ErrEmailAlreadyUsed = goerrors.New("email is already in use", goerrors.CategoryConflict).
	WithTextCode(TextCodeEmailAlreadyUsed).
	WithCode(goerrors.CodeConflict)

// ErrInvalidCredentials is the uniform login failure. Unknown email and PIN
// mismatch are deliberately indistinguishable to the caller.
var ErrInvalidCredentials = goerrors.New("invalid email or PIN", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidOrExpiredOtp covers a missing record, an expired record, and a
// code mismatch during OTP verification.
var ErrInvalidOrExpiredOtp = goerrors.New("OTP is invalid or has expired", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidOrExpiredOtp).
	WithCode(goerrors.CodeBadRequest)

// ErrOtpNotVerified gates the name step on a verified OTP.
var ErrOtpNotVerified = goerrors.New("OTP has not been verified", goerrors.CategoryValidation).
	WithTextCode(TextCodeOtpNotVerified).
	WithCode(goerrors.CodeBadRequest)

// ErrIncompleteRegistration gates the PIN step on a verified OTP with a name.
var ErrIncompleteRegistration = goerrors.New("registration data is incomplete", goerrors.CategoryValidation).
	WithTextCode(TextCodeIncompleteRegistration).
	WithCode(goerrors.CodeBadRequest)

// ErrOtpDeliveryFailed is returned when the OTP record write or the email
// dispatch fails. Callers retry by re-running the request step.
var ErrOtpDeliveryFailed = goerrors.New("unable to deliver OTP", goerrors.CategoryInternal).
	WithTextCode(TextCodeOtpDeliveryFailed)

// ErrRegistrationFailed is returned when the final registration transaction
// aborts. No partial state survives.
var ErrRegistrationFailed = goerrors.New("registration could not be completed", goerrors.CategoryInternal).
	WithTextCode(TextCodeRegistrationFailed)

// ErrUnauthenticated is returned for missing, malformed, expired, or
// revoked bearer tokens.
var ErrUnauthenticated = goerrors.New("request is not authenticated", goerrors.CategoryAuth).
	WithTextCode(TextCodeUnauthenticated).
	WithCode(goerrors.CodeUnauthorized)

// ErrNoEmptyString rejects empty secrets before hashing.
var ErrNoEmptyString = goerrors.New("secret must not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptySecret)

// ErrMismatchedHashAndPassword is the bcrypt mismatch sentinel.
var ErrMismatchedHashAndPassword = goerrors.New("secret does not match hash", goerrors.CategoryAuth).
	WithTextCode(TextCodeHashMismatch).
	WithCode(goerrors.CodeUnauthorized)

// IsUniqueViolation reports whether err is a unique-constraint violation
// from the underlying driver. The users.email constraint is the final
// arbiter for concurrent registrations, so callers map this to
// ErrEmailAlreadyUsed.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
