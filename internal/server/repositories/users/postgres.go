package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/willtrail/willtrail/internal/common"
	"github.com/willtrail/willtrail/internal/dbx"
	"github.com/willtrail/willtrail/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, name, email, password_hash, role, is_active, is_verified,
	last_login_at, login_count, emergency_card_token, emergency_card_token_expiry,
	profile_score, created_at`

func scanUser(row *sql.Row) (*models.User, error) {
	u := &models.User{}
	var lastLogin, tokenExpiry sql.NullTime
	var token sql.NullString

	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.IsVerified,
		&lastLogin, &u.LoginCount, &token, &tokenExpiry, &u.ProfileScore, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if lastLogin.Valid {
		u.LastLoginAt = &lastLogin.Time
	}
	if token.Valid {
		u.EmergencyCardToken = token.String
	}
	if tokenExpiry.Valid {
		u.EmergencyCardTokenExpiry = &tokenExpiry.Time
	}
	return u, nil
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (name, email, password_hash, role)
         VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.Name, user.Email, user.PasswordHash, user.Role).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		// 23505 = unique_violation (duplicate email)
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	user.IsActive = true
	return user, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) RecordLogin(ctx context.Context, id string) error {
	query :=
		`UPDATE users SET last_login_at = now(), login_count = login_count + 1
		 WHERE id = $1
		 `

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UpdateProfileScore(ctx context.Context, id string, score int) error {
	query :=
		`UPDATE users SET profile_score = $2
		 WHERE id = $1
		 `

	if _, err := r.db.ExecContext(ctx, query, id, score); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SetCardToken(ctx context.Context, id, token string, expiry time.Time) error {
	query :=
		`UPDATE users SET emergency_card_token = $2, emergency_card_token_expiry = $3
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, id, token, expiry)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) GetByCardToken(ctx context.Context, token string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE emergency_card_token = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, token))
}
