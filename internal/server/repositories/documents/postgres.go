package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

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

func (r *PostgresRepository) Create(ctx context.Context, doc *models.Document) (*models.Document, error) {
	tags := doc.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("tags encode error: %w", err)
	}

	query :=
		`INSERT INTO documents (id, user_id, original_name, mime_type, size_bytes,
		     envelope, storage_key, category, notes, tags)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING created_at
		 `

	err = r.db.QueryRowContext(ctx, query,
		doc.ID, doc.UserID, doc.OriginalName, doc.MimeType, doc.SizeBytes,
		doc.Envelope, doc.StorageKey, doc.Category, doc.Notes, tagsJSON).
		Scan(&doc.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return doc, nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, userID, category string) ([]*models.Document, error) {

	// The sealed blob stays out of list queries by construction.
	query :=
		`SELECT id, user_id, original_name, mime_type, size_bytes, category, notes, tags, created_at
		 FROM documents
		 WHERE user_id = $1 AND ($2 = '' OR category = $2)
		 ORDER BY created_at DESC
		 `

	rows, err := r.db.QueryContext(ctx, query, userID, category)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc := &models.Document{}
		var tagsJSON []byte
		if err := rows.Scan(&doc.ID, &doc.UserID, &doc.OriginalName, &doc.MimeType,
			&doc.SizeBytes, &doc.Category, &doc.Notes, &tagsJSON, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if err := json.Unmarshal(tagsJSON, &doc.Tags); err != nil {
			return nil, fmt.Errorf("tags decode error: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return docs, nil
}

func (r *PostgresRepository) GetOwned(ctx context.Context, userID, docID string) (*models.Document, error) {

	query :=
		`SELECT id, user_id, original_name, mime_type, size_bytes, envelope, storage_key,
		        category, notes, tags, created_at
		 FROM documents
		 WHERE id = $1 AND user_id = $2
		 `

	doc := &models.Document{}
	var tagsJSON []byte
	err := r.db.QueryRowContext(ctx, query, docID, userID).
		Scan(&doc.ID, &doc.UserID, &doc.OriginalName, &doc.MimeType, &doc.SizeBytes,
			&doc.Envelope, &doc.StorageKey, &doc.Category, &doc.Notes, &tagsJSON, &doc.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if err := json.Unmarshal(tagsJSON, &doc.Tags); err != nil {
		return nil, fmt.Errorf("tags decode error: %w", err)
	}
	return doc, nil
}

func (r *PostgresRepository) DeleteOwned(ctx context.Context, userID, docID string) (string, error) {

	query :=
		`DELETE FROM documents
		 WHERE id = $1 AND user_id = $2
		 RETURNING storage_key
		 `

	var storageKey string
	err := r.db.QueryRowContext(ctx, query, docID, userID).Scan(&storageKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return storageKey, nil
}
