package pinauth_test

import (
	"testing"
	"time"

	pinauth "github.com/goliatone/go-pinauth"
	"github.com/stretchr/testify/assert"
)

func TestStateOf(t *testing.T) {
	now := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	live := now.Add(5 * time.Minute)
	past := now.Add(-5 * time.Minute)

	tests := []struct {
		name string
		rec  *pinauth.OtpRegistration
		want pinauth.RegistrationState
	}{
		{
			name: "No record",
			rec:  nil,
			want: pinauth.RegistrationStateNone,
		},
		{
			name: "Unverified and live",
			rec:  &pinauth.OtpRegistration{ExpiresAt: live},
			want: pinauth.RegistrationStateOtpSent,
		},
		{
			name: "Unverified and expired",
			rec:  &pinauth.OtpRegistration{ExpiresAt: past},
			want: pinauth.RegistrationStateNone,
		},
		{
			name: "Verified without name",
			rec:  &pinauth.OtpRegistration{ExpiresAt: live, IsVerified: true},
			want: pinauth.RegistrationStateOtpVerified,
		},
		{
			name: "Verified with name",
			rec:  &pinauth.OtpRegistration{ExpiresAt: live, IsVerified: true, Name: "Pepe Rone"},
			want: pinauth.RegistrationStateNameSet,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pinauth.StateOf(tt.rec, now))
		})
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from pinauth.RegistrationState
		to   pinauth.RegistrationState
		want bool
	}{
		{"Start flow", pinauth.RegistrationStateNone, pinauth.RegistrationStateOtpSent, true},
		{"Verify code", pinauth.RegistrationStateOtpSent, pinauth.RegistrationStateOtpVerified, true},
		{"Resend code", pinauth.RegistrationStateOtpSent, pinauth.RegistrationStateOtpSent, true},
		{"Save name", pinauth.RegistrationStateOtpVerified, pinauth.RegistrationStateNameSet, true},
		{"Finish", pinauth.RegistrationStateNameSet, pinauth.RegistrationStateRegistered, true},
		{"Restart after verify", pinauth.RegistrationStateOtpVerified, pinauth.RegistrationStateOtpSent, true},
		{"Skip verification", pinauth.RegistrationStateOtpSent, pinauth.RegistrationStateNameSet, false},
		{"Skip name", pinauth.RegistrationStateOtpVerified, pinauth.RegistrationStateRegistered, false},
		{"Straight to registered", pinauth.RegistrationStateNone, pinauth.RegistrationStateRegistered, false},
		{"Registered is terminal", pinauth.RegistrationStateRegistered, pinauth.RegistrationStateOtpSent, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pinauth.CanTransition(tt.from, tt.to))
		})
	}
}
