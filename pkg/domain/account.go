package domain

import "time"

// Account is a signed-in identity as issued by the auth service.
type Account struct {
	UserID       string    `json:"user_id" yaml:"user_id"`
	Email        string    `json:"email" yaml:"email,omitempty"`
	IDToken      string    `json:"id_token" yaml:"id_token,omitempty"`
	RefreshToken string    `json:"refresh_token" yaml:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at" yaml:"expires_at,omitempty"`
}

// Expired reports whether the ID token is past its expiry at now, with a
// one minute margin. A zero ExpiresAt never expires.
func (a Account) Expired(now time.Time) bool {
	if a.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(time.Minute).Before(a.ExpiresAt)
}
