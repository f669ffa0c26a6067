package pinauth

import (
	"time"
)

// RegistrationState is where an email currently sits in the
// registration flow.
type RegistrationState string

const (
	// RegistrationStateNone means no usable record exists: there never was
	// one, or an unverified record expired and is now inert.
	RegistrationStateNone RegistrationState = "none"
	// RegistrationStateOtpSent means a live unverified code is waiting for
	// verification.
	RegistrationStateOtpSent RegistrationState = "otp_sent"
	// RegistrationStateOtpVerified means the code was verified but the name
	// step is still pending.
	RegistrationStateOtpVerified RegistrationState = "otp_verified"
	// RegistrationStateNameSet means only the PIN step remains.
	RegistrationStateNameSet RegistrationState = "name_set"
	// RegistrationStateRegistered is terminal: the User exists and the
	// transient record has been deleted.
	RegistrationStateRegistered RegistrationState = "registered"
)

// registrationTransitions lists the legal forward moves. Re-requesting an
// OTP restarts the flow from any non-terminal state, so every non-terminal
// state can also move back to otp_sent.
var registrationTransitions = map[RegistrationState]map[RegistrationState]struct{}{
	RegistrationStateNone: {
		RegistrationStateOtpSent: {},
	},
	RegistrationStateOtpSent: {
		RegistrationStateOtpVerified: {},
		RegistrationStateOtpSent:     {},
		RegistrationStateNone:        {},
	},
	RegistrationStateOtpVerified: {
		RegistrationStateNameSet: {},
		RegistrationStateOtpSent: {},
	},
	RegistrationStateNameSet: {
		RegistrationStateRegistered: {},
		RegistrationStateOtpSent:    {},
	},
}

// CanTransition reports whether moving from one registration state to
// another is legal.
func CanTransition(from, to RegistrationState) bool {
	if allowed, ok := registrationTransitions[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}

// StateOf derives the registration state from a transient record. A nil
// record and an expired unverified record both read as none; once the
// record is verified its expiry no longer matters here, the name/PIN steps
// gate on the flag and the name only.
func StateOf(rec *OtpRegistration, now time.Time) RegistrationState {
	if rec == nil {
		return RegistrationStateNone
	}

	if !rec.IsVerified {
		if rec.Expired(now) {
			return RegistrationStateNone
		}
		return RegistrationStateOtpSent
	}

	if rec.HasName() {
		return RegistrationStateNameSet
	}

	return RegistrationStateOtpVerified
}
