package entity

import "time"

// User is a row of the users table. OTP columns hold bcrypt digests; an
// empty digest means no code is pending and the expiry is the epoch.
type User struct {
	ID                 string    `db:"id"`
	Name               string    `db:"name"`
	Email              string    `db:"email"`
	PasswordHash       string    `db:"password_hash"`
	IsVerified         bool      `db:"is_verified"`
	ResetOTPHash       string    `db:"reset_otp_hash"`
	ResetOTPExpiresAt  time.Time `db:"reset_otp_expires_at"`
	VerifyOTPHash      string    `db:"verify_otp_hash"`
	VerifyOTPExpiresAt time.Time `db:"verify_otp_expires_at"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

// PublicView is the projection that may leave the service.
type PublicView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	IsVerified bool   `json:"isAccountVerified"`
}

func (u *User) Public() *PublicView {
	return &PublicView{ID: u.ID, Name: u.Name, Email: u.Email, IsVerified: u.IsVerified}
}
