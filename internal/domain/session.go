package domain

import "time"

// AccessToken is a bearer credential minted after a successful OTP verification.
// Only the SHA-256 of the bearer string is stored.
type AccessToken struct {
	TokenID   string     `json:"id" dynamodbav:"token_id"`
	UserID    string     `json:"user_id" dynamodbav:"user_id"`
	Name      string     `json:"name" dynamodbav:"name"`
	Abilities []string   `json:"abilities" dynamodbav:"abilities"`
	TokenHash string     `json:"-" dynamodbav:"token_hash"`
	ExpiresAt *time.Time `json:"expires_at,omitempty" dynamodbav:"expires_at"`
	CreatedAt time.Time  `json:"created_at" dynamodbav:"created_at"`
}

// Can reports whether the token grants ability.
func (t *AccessToken) Can(ability string) bool {
	return TokenCan(t.Abilities, ability)
}

// Principal is the authenticated caller: the account and the token it presented.
type Principal struct {
	User  *User
	Token *AccessToken
}
