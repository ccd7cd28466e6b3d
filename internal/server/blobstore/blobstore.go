// Package blobstore stores sealed document envelopes outside the database
// row. The default deployment keeps envelopes inline in the documents table
// and uses no Store at all; configuring an S3-compatible backend moves the
// ciphertext into object storage while metadata stays in Postgres.
package blobstore

import "context"

// Store persists sealed envelopes by key. Implementations only ever see
// ciphertext; sealing and opening happen in the service layer.
type Store interface {
	Put(ctx context.Context, key, envelope string) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}
