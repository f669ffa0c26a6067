// Package pinauth implements email+PIN authentication with an OTP-based
// registration flow: check whether an email is registered, log in with a
// 6-digit PIN, or register by verifying a one-time passcode sent by email,
// then setting a name and a PIN.
//
// The package exposes the registration flow as a set of command handlers
// driven over a transient OtpRegistration record, a PinAuthenticator for
// the login path, and a TokenIssuer that mints revocable per-device bearer
// tokens. HTTP wiring lives in AuthController; persistence is bun-backed
// through RepositoryManager.
package pinauth
