package directives

import (
	"context"

	"github.com/willtrail/willtrail/internal/server/models"
)

type Repository interface {
	// GetByUserID returns the user's directive or common.ErrorNotFound.
	// It never creates one; lazy creation is a service-level decision.
	GetByUserID(ctx context.Context, userID string) (*models.Directive, error)

	Create(ctx context.Context, d *models.Directive) (*models.Directive, error)

	// Update persists the full record keyed by user_id.
	Update(ctx context.Context, d *models.Directive) (*models.Directive, error)
}
