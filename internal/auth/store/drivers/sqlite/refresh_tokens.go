package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/rollcall/internal/auth/domain"
	"github.com/aussiebroadwan/rollcall/internal/auth/store"
)

type refreshTokensRepo struct {
	q dbtx
}

const refreshTokenColumns = `token_hash, owner_username, expires_at, created_at`

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO refresh_tokens (`+refreshTokenColumns+`) VALUES (?, ?, ?, ?)`,
		t.TokenHash, t.OwnerUsername, toMillis(t.ExpiresAt), toMillis(t.CreatedAt))
	return mapConstraint(err)
}

func (r *refreshTokensRepo) GetRefreshToken(ctx context.Context, hash string) (domain.RefreshToken, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+refreshTokenColumns+` FROM refresh_tokens WHERE token_hash = ?`, hash)
	return scanRefreshToken(row)
}

func (r *refreshTokensRepo) DeleteRefreshToken(ctx context.Context, hash string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE token_hash = ?`, hash)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ConsumeRefreshToken is a single DELETE ... RETURNING so the read and the
// delete cannot be split by another writer.
func (r *refreshTokensRepo) ConsumeRefreshToken(ctx context.Context, hash string) (domain.RefreshToken, error) {
	row := r.q.QueryRowContext(ctx,
		`DELETE FROM refresh_tokens WHERE token_hash = ? RETURNING `+refreshTokenColumns, hash)
	return scanRefreshToken(row)
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= ?`, toMillis(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanRefreshToken(row *sql.Row) (domain.RefreshToken, error) {
	var t domain.RefreshToken
	var expires, created int64
	if err := row.Scan(&t.TokenHash, &t.OwnerUsername, &expires, &created); err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}
	t.ExpiresAt = fromMillis(expires)
	t.CreatedAt = fromMillis(created)
	return t, nil
}
