package entity

import "time"

// OTPChallenge is the live one-time passcode for an email address.
// At most one challenge exists per email; issuing a new one replaces the old.
type OTPChallenge struct {
	Email     string
	Code      string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Attempts  int
}

// IsExpired reports whether the challenge can no longer be redeemed at now.
func (c *OTPChallenge) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
