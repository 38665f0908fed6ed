package domain

import (
	"strings"
	"time"
)

// User is an account able to sign in with a one-time passcode.
type User struct {
	UserID          string     `json:"id" dynamodbav:"user_id"`
	Name            string     `json:"name" dynamodbav:"name"`
	Email           string     `json:"email" dynamodbav:"email"`
	Phone           *string    `json:"phone_number" dynamodbav:"phone_number,omitempty"`
	Role            string     `json:"role" dynamodbav:"role"`
	PasswordHash    string     `json:"-" dynamodbav:"password_hash"`
	EmailVerifiedAt *time.Time `json:"email_verified_at" dynamodbav:"email_verified_at"`
	OTPSecret       *string    `json:"-" dynamodbav:"otp_secret"`
	OTPExpiresAt    *time.Time `json:"-" dynamodbav:"otp_expires_at"`
	OTPVerifiedAt   *time.Time `json:"otp_verified_at" dynamodbav:"otp_verified_at"`
	OTPAttempts     int        `json:"-" dynamodbav:"otp_attempts"`
	Version         int64      `json:"-" dynamodbav:"version"`
	CreatedAt       time.Time  `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" dynamodbav:"updated_at"`
}

// OTP returns the passcode state held by u.
func (u *User) OTP() OTPState {
	return OTPState{
		Secret:     u.OTPSecret,
		ExpiresAt:  u.OTPExpiresAt,
		VerifiedAt: u.OTPVerifiedAt,
		Attempts:   u.OTPAttempts,
	}
}

// ApplyOTP copies st onto u and bumps the version, mirroring a successful conditional write.
func (u *User) ApplyOTP(st OTPState) {
	u.OTPSecret = st.Secret
	u.OTPExpiresAt = st.ExpiresAt
	u.OTPVerifiedAt = st.VerifiedAt
	u.OTPAttempts = st.Attempts
	u.Version++
}

// Status is "active" once the email address has been verified, "invited" before.
func (u *User) Status() string {
	if u.EmailVerifiedAt != nil {
		return "active"
	}
	return "invited"
}

// UserChanges is the explicit set of profile fields an update may touch.
// OTP state is deliberately absent; it is written only through SaveOTPState.
type UserChanges struct {
	Name         *string
	Email        *string
	Phone        *string
	Role         *string
	PasswordHash *string
}

// Empty reports whether no field is set.
func (c UserChanges) Empty() bool {
	return c.Name == nil && c.Email == nil && c.Phone == nil && c.Role == nil && c.PasswordHash == nil
}

// Apply copies the set fields onto u.
func (c UserChanges) Apply(u *User) {
	if c.Name != nil {
		u.Name = *c.Name
	}
	if c.Email != nil {
		u.Email = *c.Email
	}
	if c.Phone != nil {
		u.Phone = c.Phone
	}
	if c.Role != nil {
		u.Role = *c.Role
	}
	if c.PasswordHash != nil {
		u.PasswordHash = *c.PasswordHash
	}
}

// UserQuery filters and pages the user listing.
type UserQuery struct {
	Search string
	Offset int
	Limit  int
}

// Matches reports whether u satisfies the search filter (case-insensitive on name and email).
func (q UserQuery) Matches(u *User) bool {
	if q.Search == "" {
		return true
	}
	needle := strings.ToLower(q.Search)
	return strings.Contains(strings.ToLower(u.Name), needle) ||
		strings.Contains(strings.ToLower(u.Email), needle)
}

type CreateUserRequest struct {
	Name     string  `json:"name" validate:"required,max=255"`
	Email    string  `json:"email" validate:"required,email,max=255"`
	Phone    *string `json:"phone_number" validate:"omitempty,max=20"`
	Role     string  `json:"role" validate:"required,oneof=owner admin family viewer"`
	Password *string `json:"password" validate:"omitempty,min=8"`
}

type UpdateUserRequest struct {
	Name     *string `json:"name" validate:"omitempty,max=255"`
	Email    *string `json:"email" validate:"omitempty,email,max=255"`
	Phone    *string `json:"phone_number" validate:"omitempty,max=20"`
	Role     *string `json:"role" validate:"omitempty,oneof=owner admin family viewer"`
	Password *string `json:"password" validate:"omitempty,min=8"`
}

// NormalizeEmail lowercases and trims an address for lookups and rate-limit keys.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
