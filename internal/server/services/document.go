package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/willtrail/willtrail/internal/common"
	"github.com/willtrail/willtrail/internal/cryptox"
	"github.com/willtrail/willtrail/internal/logging"
	"github.com/willtrail/willtrail/internal/server/blobstore"
	"github.com/willtrail/willtrail/internal/server/models"
	"github.com/willtrail/willtrail/internal/server/repositories/repomanager"
)

// MaxDocumentSize is the upload cap, checked before sealing.
const MaxDocumentSize = 10 << 20 // 10 MiB

// AllowedMimeTypes is the upload allow-list: PDF, JPEG, PNG, WEBP, DOC, DOCX.
var AllowedMimeTypes = []string{
	"application/pdf",
	"image/jpeg",
	"image/png",
	"image/webp",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// Download bundles an opened document for the transport layer.
type Download struct {
	Data         []byte
	MimeType     string
	OriginalName string
}

// DocumentService seals uploads, stores them owner-scoped, and opens them on
// download. When a blob store is configured, envelopes live as objects and
// the row only keeps the storage key; otherwise the envelope sits inline in
// the row.
type DocumentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	envelope    *cryptox.Envelope
	blobs       blobstore.Store // nil means inline storage
	logger      logging.Logger
}

func NewDocumentService(db *sql.DB, m repomanager.RepositoryManager, envelope *cryptox.Envelope, blobs blobstore.Store, logger logging.Logger) *DocumentService {
	return &DocumentService{
		db:          db,
		repomanager: m,
		envelope:    envelope,
		blobs:       blobs,
		logger:      logger.With("module", "documents"),
	}
}

// Upload validates, seals, and persists a new document, returning metadata
// only. Validation happens before any cipher work.
func (s *DocumentService) Upload(ctx context.Context, userID string, raw []byte, originalName, mimeType, category, notes string, tags []string) (*models.DocumentMeta, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: no file provided", common.ErrorValidation)
	}
	if len(raw) > MaxDocumentSize {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", common.ErrorValidation, MaxDocumentSize)
	}
	if !slices.Contains(AllowedMimeTypes, mimeType) {
		return nil, fmt.Errorf("%w: file type not allowed, accepted: PDF, JPEG, PNG, WEBP, DOC, DOCX", common.ErrorValidation)
	}
	if category == "" {
		category = models.CategoryOther
	}
	if !slices.Contains(models.DocumentCategories, category) {
		return nil, fmt.Errorf("%w: unknown category %q", common.ErrorValidation, category)
	}
	if len(notes) > 500 {
		return nil, fmt.Errorf("%w: notes exceed 500 characters", common.ErrorValidation)
	}

	sealed, err := s.envelope.Seal(raw)
	if err != nil {
		return nil, fmt.Errorf("error sealing document: %w", err)
	}

	doc := &models.Document{
		ID:           uuid.NewString(),
		UserID:       userID,
		OriginalName: originalName,
		MimeType:     mimeType,
		SizeBytes:    int64(len(raw)),
		Category:     category,
		Notes:        notes,
		Tags:         tags,
	}

	if s.blobs != nil {
		key := storageKey(userID, doc.ID)
		if err := s.blobs.Put(ctx, key, sealed); err != nil {
			return nil, fmt.Errorf("error storing sealed blob: %w", err)
		}
		doc.StorageKey = key
	} else {
		doc.Envelope = sealed
	}

	doc, err = s.repomanager.Documents(s.db).Create(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("error creating document: %w", err)
	}

	meta := doc.Meta()
	return &meta, nil
}

// List returns the owner's document metadata, newest first, optionally
// filtered by category.
func (s *DocumentService) List(ctx context.Context, userID, category string) ([]models.DocumentMeta, error) {
	docs, err := s.repomanager.Documents(s.db).ListByOwner(ctx, userID, category)
	if err != nil {
		return nil, fmt.Errorf("error listing documents: %w", err)
	}

	metas := make([]models.DocumentMeta, 0, len(docs))
	for _, doc := range docs {
		metas = append(metas, doc.Meta())
	}
	return metas, nil
}

// Download opens the sealed blob and returns the original bytes. A document
// that does not exist or belongs to another user is the same ErrorNotFound.
func (s *DocumentService) Download(ctx context.Context, userID, docID string) (*Download, error) {
	if _, err := uuid.Parse(docID); err != nil {
		return nil, common.ErrorNotFound
	}

	doc, err := s.repomanager.Documents(s.db).GetOwned(ctx, userID, docID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error reading document: %w", err)
	}

	sealed := doc.Envelope
	if doc.StorageKey != "" {
		if s.blobs == nil {
			return nil, fmt.Errorf("document %s lives in object storage but no blob store is configured", doc.ID)
		}
		sealed, err = s.blobs.Get(ctx, doc.StorageKey)
		if err != nil {
			return nil, fmt.Errorf("error fetching sealed blob: %w", err)
		}
	}

	raw, err := s.envelope.Open(sealed)
	if err != nil {
		// ErrDecryptionFailed propagates typed; nothing partial leaves here.
		return nil, err
	}

	return &Download{Data: raw, MimeType: doc.MimeType, OriginalName: doc.OriginalName}, nil
}

// Delete hard-deletes the document. The object-storage cleanup is best
// effort: the row is already gone, so a failed blob delete only leaks an
// unreadable ciphertext object.
func (s *DocumentService) Delete(ctx context.Context, userID, docID string) error {
	if _, err := uuid.Parse(docID); err != nil {
		return common.ErrorNotFound
	}

	storageKey, err := s.repomanager.Documents(s.db).DeleteOwned(ctx, userID, docID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("error deleting document: %w", err)
	}

	if storageKey != "" && s.blobs != nil {
		if err := s.blobs.Delete(ctx, storageKey); err != nil {
			s.logger.Warn(ctx, "sealed blob cleanup failed", "key", storageKey, "error", err.Error())
		}
	}
	return nil
}

func storageKey(userID, docID string) string {
	return fmt.Sprintf("documents/%s/%s", userID, docID)
}
