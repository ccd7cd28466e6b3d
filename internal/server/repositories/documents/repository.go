package documents

import (
	"context"

	"github.com/willtrail/willtrail/internal/server/models"
)

// Repository is the owner-scoped document store. Every read and delete takes
// the owner's user ID; a document that exists but belongs to someone else is
// reported as common.ErrorNotFound, indistinguishable from one that never
// existed.
type Repository interface {
	Create(ctx context.Context, doc *models.Document) (*models.Document, error)

	// ListByOwner returns metadata rows newest-first, optionally filtered by
	// category. The sealed blob is never selected.
	ListByOwner(ctx context.Context, userID, category string) ([]*models.Document, error)

	// GetOwned returns the full row including the sealed blob / storage key.
	GetOwned(ctx context.Context, userID, docID string) (*models.Document, error)

	// DeleteOwned hard-deletes and returns the storage key of the deleted
	// row ("" when the blob was inline) so the caller can clean up object
	// storage.
	DeleteOwned(ctx context.Context, userID, docID string) (string, error)
}
