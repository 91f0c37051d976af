package user

import "github.com/ovaphlow/pitchfork/service-todo-go/internal/apperr"

var (
	ErrMissingFields   = apperr.Validationf("All fields are required.")
	ErrEmailRequired   = apperr.Validationf("Email is required.")
	ErrOTPRequired     = apperr.Validationf("OTP is required.")
	ErrNameTooLong     = apperr.Validationf("Name cannot be more than 100 characters.")
	ErrPasswordLength  = apperr.Validationf("Password cannot be of less than 6 characters and more than 25 characters.")
	ErrInvalidEmail    = apperr.Validationf("Please provide a valid email address.")
	ErrUserExists      = apperr.New(apperr.Conflict, "User already exists.")
	ErrAlreadyVerified = apperr.New(apperr.Conflict, "Email already verified.")
	ErrUserNotFound    = apperr.New(apperr.NotFound, "User not found.")
	ErrBadCredentials  = apperr.New(apperr.Auth, "Invalid credentials.")
	ErrNoToken         = apperr.New(apperr.Auth, "No token provided.")
	ErrAuthFailed      = apperr.New(apperr.Auth, "Authentication failed.")
	ErrResetMailFailed = apperr.New(apperr.Transport, "Failed to send reset OTP to email.")
)
