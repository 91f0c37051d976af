package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ovaphlow/pitchfork/service-todo-go/internal/user/entity"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrOTPNotPending means the code being consumed was already used or
	// replaced by a newer one.
	ErrOTPNotPending = errors.New("otp not pending")
)

const uniqueViolation = "23505"

const userColumns = `id, name, email, password_hash, is_verified,
	reset_otp_hash, reset_otp_expires_at, verify_otp_hash, verify_otp_expires_at,
	created_at, updated_at`

// UserRepo provides data access for the users table using sqlx. Every
// mutation is a single statement so concurrent requests never observe a
// half-applied change.
type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts u and fills the store-maintained timestamps.
func (r *UserRepo) Create(ctx context.Context, u *entity.User) error {
	const q = `INSERT INTO users (id, name, email, password_hash)
		VALUES (:id, :name, :email, :password_hash)
		RETURNING created_at, updated_at`
	rows, err := r.db.NamedQueryContext(ctx, q, u)
	if err != nil {
		return mapErr(err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return mapErr(err)
		}
		return errors.New("insert user: no row returned")
	}
	return rows.Scan(&u.CreatedAt, &u.UpdatedAt)
}

// GetByEmail expects an already normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	var u entity.User
	if err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE email = $1`, email); err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	var u entity.User
	if err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id = $1`, id); err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

// SetResetOTP overwrites any pending reset code.
func (r *UserRepo) SetResetOTP(ctx context.Context, id, digest string, expiresAt time.Time) error {
	const q = `UPDATE users SET reset_otp_hash = $2, reset_otp_expires_at = $3, updated_at = NOW() WHERE id = $1`
	return r.exec(ctx, q, id, digest, expiresAt)
}

// SetVerifyOTP overwrites any pending verification code.
func (r *UserRepo) SetVerifyOTP(ctx context.Context, id, digest string, expiresAt time.Time) error {
	const q = `UPDATE users SET verify_otp_hash = $2, verify_otp_expires_at = $3, updated_at = NOW() WHERE id = $1`
	return r.exec(ctx, q, id, digest, expiresAt)
}

// ConsumeResetOTP clears the reset code and installs the new password hash,
// but only while digest is still the pending reset code. Otherwise it
// returns ErrOTPNotPending and changes nothing.
func (r *UserRepo) ConsumeResetOTP(ctx context.Context, id, digest, passwordHash string) error {
	const q = `UPDATE users SET password_hash = $3, reset_otp_hash = '', reset_otp_expires_at = 'epoch',
		updated_at = NOW() WHERE id = $1 AND reset_otp_hash = $2 AND reset_otp_hash <> ''`
	return r.consume(ctx, q, id, digest, passwordHash)
}

// ConsumeVerifyOTP clears the verification code and marks the account
// verified, under the same condition as ConsumeResetOTP.
func (r *UserRepo) ConsumeVerifyOTP(ctx context.Context, id, digest string) error {
	const q = `UPDATE users SET is_verified = true, verify_otp_hash = '', verify_otp_expires_at = 'epoch',
		updated_at = NOW() WHERE id = $1 AND verify_otp_hash = $2 AND verify_otp_hash <> ''`
	return r.consume(ctx, q, id, digest)
}

func (r *UserRepo) consume(ctx context.Context, q string, args ...any) error {
	if err := r.exec(ctx, q, args...); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrOTPNotPending
		}
		return err
	}
	return nil
}

func (r *UserRepo) exec(ctx context.Context, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func mapErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return ErrDuplicateEmail
	}
	return fmt.Errorf("users: %w", err)
}
