// Package credentials persists the last successful login on the local device
// so the client can restore the session on the next start.
//
// Exactly one credential is kept. It is sealed with a key derived from a
// per-device secret before it touches disk.
package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/client/models"
	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
)

// Store is the CredentialStore capability.
//
// Get returns (nil, nil) when nothing is stored.
type Store interface {
	Get(ctx context.Context) (*models.StoredCredential, error)
	Set(ctx context.Context, cred *models.StoredCredential) error
	Clear(ctx context.Context) error
}

const (
	slotUserCredentials = "userCredentials"
	sealPurpose         = "gophauth/stored-credential/v1"
)

var ErrInvalidCredential = errors.New("credential must be either email/password or facebook marker")

// SQLiteStore keeps the sealed credential in the local credentials table.
type SQLiteStore struct {
	db  dbx.DBTX
	key []byte
}

// NewSQLiteStore derives the sealing key from deviceSecret.
func NewSQLiteStore(db dbx.DBTX, deviceSecret []byte) (*SQLiteStore, error) {
	key, err := cryptox.DeriveKey(deviceSecret, sealPurpose)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db, key: key}, nil
}

func (s *SQLiteStore) Get(ctx context.Context) (*models.StoredCredential, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT blob FROM credentials WHERE slot = ?`, slotUserCredentials).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credentials: %w", err)
	}

	var cred models.StoredCredential
	if err := cryptox.Open(blob, s.key, &cred); err != nil {
		return nil, fmt.Errorf("failed to open credentials: %w", err)
	}
	if !cred.Valid() {
		return nil, fmt.Errorf("failed to open credentials: %w", ErrInvalidCredential)
	}
	return &cred, nil
}

func (s *SQLiteStore) Set(ctx context.Context, cred *models.StoredCredential) error {
	if !cred.Valid() {
		return ErrInvalidCredential
	}

	blob, err := cryptox.Seal(cred, s.key)
	if err != nil {
		return fmt.Errorf("failed to seal credentials: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO credentials (slot, blob, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(slot) DO UPDATE SET blob = excluded.blob, updated_at = excluded.updated_at
	`, slotUserCredentials, blob)
	if err != nil {
		return fmt.Errorf("failed to set credentials: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE slot = ?`, slotUserCredentials)
	if err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}
