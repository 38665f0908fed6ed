package domain

import "time"

// OTPState is the one-time passcode state embedded in a user record.
// It is written as a unit: issuance and verification replace all four fields together.
type OTPState struct {
	Secret     *string
	ExpiresAt  *time.Time
	VerifiedAt *time.Time
	Attempts   int
}

// Active reports whether a code may still be redeemed at now.
func (s OTPState) Active(now time.Time) bool {
	return s.Secret != nil && s.ExpiresAt != nil && !now.After(*s.ExpiresAt)
}
