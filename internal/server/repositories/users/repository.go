package users

import (
	"context"
	"time"

	"github.com/willtrail/willtrail/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)

	// RecordLogin stamps last_login_at and increments login_count.
	RecordLogin(ctx context.Context, id string) error

	// UpdateProfileScore persists the recomputed directive-completeness
	// percentage (0-100).
	UpdateProfileScore(ctx context.Context, id string, score int) error

	// SetCardToken overwrites the emergency-card token and its expiry in one
	// statement; any previous token value becomes unresolvable.
	SetCardToken(ctx context.Context, id, token string, expiry time.Time) error

	// GetByCardToken resolves a user by exact token value regardless of
	// expiry; the caller decides whether the token is still live.
	GetByCardToken(ctx context.Context, token string) (*models.User, error)
}
