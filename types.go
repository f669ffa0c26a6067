package pinauth

import (
	"context"
	"fmt"
	"strings"
)

// Logger is the minimal logging surface the package needs: a message
// followed by slog style key-value pairs. glog loggers satisfy it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds token issuance options.
type Config interface {
	GetSigningKey() string
	GetTokenExpiration() int
	GetIssuer() string
	GetAudience() []string
}

// SimpleConfig is a plain-struct Config for wiring and tests.
type SimpleConfig struct {
	SigningKey      string
	TokenExpiration int
	Issuer          string
	Audience        []string
}

func (c SimpleConfig) GetSigningKey() string { return c.SigningKey }

// GetTokenExpiration returns the token lifetime in hours.
func (c SimpleConfig) GetTokenExpiration() int { return c.TokenExpiration }

func (c SimpleConfig) GetIssuer() string { return c.Issuer }

func (c SimpleConfig) GetAudience() []string { return c.Audience }

// Mailer dispatches outbound mail. Implementations must not persist or log
// message bodies carrying one-time codes outside of the delivery itself.
type Mailer interface {
	Send(ctx context.Context, msg MailMessage) error
}

// MailMessage is a single outbound email.
type MailMessage struct {
	To      string
	Subject string
	Body    string
}

type defLogger struct{}

func (d defLogger) Error(msg string, args ...any) {
	fmt.Println("[ERR] PINAUTH " + formatLogLine(msg, args...))
}

func (d defLogger) Warn(msg string, args ...any) {
	fmt.Println("[WRN] PINAUTH " + formatLogLine(msg, args...))
}

func (d defLogger) Info(msg string, args ...any) {
	fmt.Println("[INF] PINAUTH " + formatLogLine(msg, args...))
}

func (d defLogger) Debug(msg string, args ...any) {
	fmt.Println("[DBG] PINAUTH " + formatLogLine(msg, args...))
}

// formatLogLine renders the message plus key=value pairs. A trailing key
// without a value is rendered with a bang so it stands out.
func formatLogLine(msg string, args ...any) string {
	var sb strings.Builder
	sb.WriteString(msg)

	for i := 0; i < len(args); i += 2 {
		if i+1 >= len(args) {
			fmt.Fprintf(&sb, " %v=!MISSING", args[i])
			break
		}
		fmt.Fprintf(&sb, " %v=%v", args[i], args[i+1])
	}

	return sb.String()
}
