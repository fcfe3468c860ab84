package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/quokkahq/tokenforge/internal/domain"
)

type tokensRepo struct {
	db dbtx
}

const tokenColumns = `id, token_id, token_value, refresh_token, user_id, client_id, scopes, expires_at, created_at, revoked`

func (r *tokensRepo) Save(ctx context.Context, t domain.AccessToken) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO access_tokens (token_id, token_value, refresh_token, user_id, client_id, scopes, expires_at, revoked)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TokenID, t.TokenValue, t.RefreshToken, mapOptionalInt64(t.UserID),
		t.ClientID, joinScopes(t.Scopes), t.ExpiresAt.UTC(), t.Revoked,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *tokensRepo) GetByTokenID(ctx context.Context, tokenID string) (domain.AccessToken, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+tokenColumns+`
		FROM access_tokens
		WHERE token_id = ? AND revoked = 0`,
		tokenID,
	)
	return scanToken(row)
}

func (r *tokensRepo) GetByRefreshToken(ctx context.Context, refreshToken string) (domain.AccessToken, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+tokenColumns+`
		FROM access_tokens
		WHERE refresh_token = ? AND revoked = 0`,
		refreshToken,
	)
	return scanToken(row)
}

func (r *tokensRepo) ListByUserID(ctx context.Context, userID int64) ([]domain.AccessToken, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+tokenColumns+`
		FROM access_tokens
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	return collectTokens(rows)
}

func (r *tokensRepo) ListByClientID(ctx context.Context, clientID string) ([]domain.AccessToken, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+tokenColumns+`
		FROM access_tokens
		WHERE client_id = ?
		ORDER BY created_at DESC, id DESC`,
		clientID,
	)
	if err != nil {
		return nil, err
	}
	return collectTokens(rows)
}

func (r *tokensRepo) Revoke(ctx context.Context, tokenID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE access_tokens SET revoked = 1 WHERE token_id = ?`,
		tokenID,
	)
	return err
}

func (r *tokensRepo) RevokeAllForUser(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE access_tokens SET revoked = 1 WHERE user_id = ? AND revoked = 0`,
		userID,
	)
	return err
}

func (r *tokensRepo) ExistsActive(ctx context.Context, tokenID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM access_tokens
			WHERE token_id = ? AND revoked = 0 AND expires_at > ?
		)`,
		tokenID, time.Now().UTC(),
	).Scan(&exists)
	return exists, err
}

func (r *tokensRepo) DeleteExpiredOrRevoked(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM access_tokens WHERE expires_at < ? OR revoked = 1`,
		time.Now().UTC(),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanToken(row *sql.Row) (domain.AccessToken, error) {
	var (
		t      domain.AccessToken
		userID sql.NullInt64
		scopes string
	)
	err := row.Scan(
		&t.ID, &t.TokenID, &t.TokenValue, &t.RefreshToken, &userID,
		&t.ClientID, &scopes, &t.ExpiresAt, &t.CreatedAt, &t.Revoked,
	)
	if err != nil {
		return domain.AccessToken{}, mapNotFound(err)
	}
	t.UserID = mapNullInt64Ptr(userID)
	t.Scopes = splitScopes(scopes)
	return t, nil
}

func collectTokens(rows *sql.Rows) ([]domain.AccessToken, error) {
	defer rows.Close()

	var out []domain.AccessToken
	for rows.Next() {
		var (
			t      domain.AccessToken
			userID sql.NullInt64
			scopes string
		)
		err := rows.Scan(
			&t.ID, &t.TokenID, &t.TokenValue, &t.RefreshToken, &userID,
			&t.ClientID, &scopes, &t.ExpiresAt, &t.CreatedAt, &t.Revoked,
		)
		if err != nil {
			return nil, err
		}
		t.UserID = mapNullInt64Ptr(userID)
		t.Scopes = splitScopes(scopes)
		out = append(out, t)
	}
	return out, rows.Err()
}
