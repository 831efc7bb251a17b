package tokens

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spotterapp/spotter-go/internal/common"
	"github.com/spotterapp/spotter-go/internal/cryptox"
	"github.com/spotterapp/spotter-go/internal/dbx"
)

// SQLiteStore keeps tokens in the local client database, sealed with the
// device key so a copied database file does not leak credentials.
type SQLiteStore struct {
	db  dbx.DBTX
	key []byte
}

// NewSQLiteStore binds the store to a DB handle and a 32-byte device key
// (see cryptox.DeriveDeviceKey).
func NewSQLiteStore(db dbx.DBTX, deviceKey []byte) *SQLiteStore {
	return &SQLiteStore{db: db, key: deviceKey}
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var sealed []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM tokens WHERE key = ?`, key).Scan(&sealed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token[%s]: %w", key, err)
	}

	value, err := cryptox.Open(sealed, s.key)
	if err != nil {
		// A value sealed under a different device key is unusable.
		return nil, fmt.Errorf("failed to unseal token[%s]: %w", key, common.ErrInvalidToken)
	}
	return value, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte) error {
	sealed, err := cryptox.Seal(value, s.key)
	if err != nil {
		return fmt.Errorf("failed to seal token[%s]: %w", key, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tokens (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, sealed)
	if err != nil {
		return fmt.Errorf("failed to set token[%s]: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tokens WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete token[%s]: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tokens`)
	if err != nil {
		return fmt.Errorf("failed to clear tokens: %w", err)
	}
	return nil
}
