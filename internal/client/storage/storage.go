package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/spotterapp/spotter-go/internal/client/migrations"
	"github.com/spotterapp/spotter-go/internal/client/repositories/snapshots"
	"github.com/spotterapp/spotter-go/internal/client/repositories/tokens"
	"github.com/spotterapp/spotter-go/internal/common"
	"github.com/spotterapp/spotter-go/internal/cryptox"
)

// Repositories bundles the local persistence layer handed to the services.
type Repositories struct {
	Tokens    tokens.Store
	Snapshots snapshots.Cache
	DB        *sql.DB
}

// Close releases the underlying database handle.
func (r *Repositories) Close() error {
	if r.DB == nil {
		return nil
	}
	return r.DB.Close()
}

// RunMigrations applies the embedded goose migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens (creating if needed) the SQLite database at dsn, applies
// migrations, and wires the repositories. deviceKey seals token values at
// rest (see cryptox.DeriveDeviceKey).
func InitDatabase(ctx context.Context, dsn string, deviceKey []byte) (*Repositories, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repositories{
		Tokens:    tokens.NewSQLiteStore(db, deviceKey),
		Snapshots: snapshots.NewSQLiteCache(db),
		DB:        db,
	}, nil
}

// secretFileName holds the per-install random secret next to the database.
const secretFileName = ".device_secret"

// DeviceKey loads the per-install secret stored alongside dbPath, creating it
// on first run, and derives the 32-byte sealing key from it. The salt is the
// database path, so moving the database invalidates sealed values.
func DeviceKey(dbPath string) ([]byte, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}

	path := filepath.Join(dir, secretFileName)
	secret, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		// Hex keeps the secret file printable for support tooling.
		s, rerr := common.MakeRandHexString(32)
		if rerr != nil {
			return nil, fmt.Errorf("generate device secret: %w", rerr)
		}
		secret = []byte(s)
		if werr := os.WriteFile(path, secret, 0o600); werr != nil {
			return nil, fmt.Errorf("write device secret: %w", werr)
		}
	} else if err != nil {
		return nil, fmt.Errorf("read device secret: %w", err)
	}

	return cryptox.DeriveDeviceKey(secret, []byte(dbPath)), nil
}
