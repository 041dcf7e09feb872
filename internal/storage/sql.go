package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// SQLBlobStore keeps model blobs in the model_blobs table of the relational store.
type SQLBlobStore struct {
	db *sqlx.DB
}

// NewSQLBlobStore creates a store over db. The table is created by database.Migrate.
func NewSQLBlobStore(db *sqlx.DB) *SQLBlobStore {
	return &SQLBlobStore{db: db}
}

// Save stores data under key, replacing any previous blob.
func (s *SQLBlobStore) Save(ctx context.Context, key string, data []byte) error {
	query := s.db.Rebind(`
		INSERT INTO model_blobs (blob_key, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (blob_key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`)
	if _, err := s.db.ExecContext(ctx, query, key, data, time.Now().UTC()); err != nil {
		return fmt.Errorf("save blob %q: %w", key, err)
	}
	return nil
}

// Load returns the blob under key.
func (s *SQLBlobStore) Load(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	query := s.db.Rebind(`SELECT data FROM model_blobs WHERE blob_key = ?`)

	err := s.db.GetContext(ctx, &data, query, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("blob %q: %w", key, ErrBlobNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load blob %q: %w", key, err)
	}
	return data, nil
}

// Delete removes the blob under key. Deleting a missing key is not an error.
func (s *SQLBlobStore) Delete(ctx context.Context, key string) error {
	query := s.db.Rebind(`DELETE FROM model_blobs WHERE blob_key = ?`)
	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("delete blob %q: %w", key, err)
	}
	return nil
}

// Ping checks the database connection.
func (s *SQLBlobStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
