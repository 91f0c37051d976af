package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// RevocationRepo stores revoked token ids in the revoked_tokens table.
type RevocationRepo struct {
	db *sqlx.DB
}

func NewRevocationRepo(db *sqlx.DB) *RevocationRepo {
	return &RevocationRepo{db: db}
}

// Revoke inserts jti and drops rows that have already expired in the same
// statement, which keeps the table bounded without a sweeper.
func (r *RevocationRepo) Revoke(ctx context.Context, jti, subject string, expiresAt time.Time) error {
	const q = `WITH purged AS (DELETE FROM revoked_tokens WHERE expires_at <= NOW())
INSERT INTO revoked_tokens (jti, subject, expires_at) VALUES ($1, $2, $3)
ON CONFLICT (jti) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, q, jti, subject, expiresAt); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (r *RevocationRepo) IsRevoked(ctx context.Context, jti string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE jti = $1 AND expires_at > NOW())`
	var revoked bool
	if err := r.db.GetContext(ctx, &revoked, q, jti); err != nil {
		return false, fmt.Errorf("lookup revoked token: %w", err)
	}
	return revoked, nil
}
