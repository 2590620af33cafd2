package iam

import (
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/forbearing/surrealkv-core/types"
)

// totpIssuer labels every enrolled secret's otpauth:// URI, so an
// authenticator app groups entries from this engine together regardless of
// which root user enrolled them.
const totpIssuer = "surrealkv"

// EnrollTotp generates a fresh TOTP secret for a root user, per
// config.App.Auth.TotpEnabled's optional second factor. The returned secret
// is what UserDefinition.TotpSecret stores; the URI is what a caller hands to
// an authenticator app (as a QR code or otherwise) during enrollment.
func EnrollTotp(accountName string) (secret, uri string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{Issuer: totpIssuer, AccountName: accountName})
	if err != nil {
		return "", "", types.ErrTotpEnrollFailed
	}
	return key.Secret(), key.URL(), nil
}

// VerifyTotp checks a presented passcode against an enrolled secret,
// accepting the previous/current/next 30s window (totp.Validate's default
// skew), per §4.7's step-up auth.
func VerifyTotp(secret, passcode string) bool {
	if secret == "" {
		return false
	}
	ok, err := totp.ValidateCustom(passcode, secret, time.Now(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}
