package pinauth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// OtpTTL is how long a freshly issued code stays valid.
var OtpTTL = 10 * time.Minute

// OtpGraceTTL is the window granted after a successful verification to
// finish the name and PIN steps.
var OtpGraceTTL = 15 * time.Minute

var otpCeiling = big.NewInt(1_000_000)

// GenerateOtpCode returns a 6-digit zero-padded code drawn uniformly from
// 000000-999999 using a cryptographically secure source.
func GenerateOtpCode() (string, error) {
	n, err := rand.Int(rand.Reader, otpCeiling)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate OTP code")
	}

	return fmt.Sprintf("%06d", n.Int64()), nil
}
