// Package persistence implements the local store: peers, messages, and
// file-transfer records in a SQLite database opened with a SQLCipher
// `PRAGMA key` (not acted on by the bundled SQLite; see Open), plus the
// AES-256-GCM-encrypted settings blob.
package persistence

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/bluebeam/bluebeam/internal/errs"
)

const currentSchemaVersion = 1

// Store wraps the SQLite database holding devices, messages,
// files, and the schema_version table. All writes happen synchronously
// from the event loop's single worker; the database is single-writer
// by construction.
type Store struct {
	db *gorm.DB
}

// Open opens the database at path, issuing `PRAGMA key` with the
// hex-encoded key as the first statement on the raw connection before
// any GORM call runs, then applies forward-only migrations. The SQLite
// bundled with github.com/mattn/go-sqlite3 is not SQLCipher: it ignores
// the pragma, so the database file is written unencrypted. A migration
// failure makes the store unusable and is returned as a fatal error to
// the caller, per the persistence component's error contract.
func Open(path string, key [32]byte) (*Store, error) {
	sqlDB, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errs.Database(errs.CodeConnectionFailed, fmt.Errorf("open %s: %w", path, err))
	}

	keyHex := hex.EncodeToString(key[:])
	if _, err := sqlDB.Exec(fmt.Sprintf("PRAGMA key = \"x'%s'\";", keyHex)); err != nil {
		_ = sqlDB.Close()
		return nil, errs.Database(errs.CodeConnectionFailed, fmt.Errorf("set encryption key: %w", err))
	}

	gdb, err := gorm.Open(sqlite.Dialector{Conn: sqlDB}, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		_ = sqlDB.Close()
		return nil, errs.Database(errs.CodeConnectionFailed, fmt.Errorf("gorm open: %w", err))
	}

	store := &Store{db: gdb}
	if err := store.migrate(); err != nil {
		return nil, err
	}
	return store, nil
}

// migrate applies forward-only schema migrations. Which versions have
// run is tracked in the schema_version table; the tables themselves
// are created by GORM's AutoMigrate inside each numbered migration.
func (s *Store) migrate() error {
	if err := s.db.AutoMigrate(&schemaVersion{}); err != nil {
		return errs.Database(errs.CodeMigrationFailed, fmt.Errorf("schema_version table: %w", err))
	}

	var applied []schemaVersion
	if err := s.db.Find(&applied).Error; err != nil {
		return errs.Database(errs.CodeMigrationFailed, fmt.Errorf("read schema_version: %w", err))
	}

	have := 0
	for _, v := range applied {
		if v.Version > have {
			have = v.Version
		}
	}

	for version := have + 1; version <= currentSchemaVersion; version++ {
		if err := s.applyMigration(version); err != nil {
			return errs.Database(errs.CodeMigrationFailed, fmt.Errorf("migration %d: %w", version, err))
		}
		if err := s.db.Create(&schemaVersion{Version: version}).Error; err != nil {
			return errs.Database(errs.CodeMigrationFailed, fmt.Errorf("record migration %d: %w", version, err))
		}
	}
	return nil
}

func (s *Store) applyMigration(version int) error {
	switch version {
	case 1:
		if err := s.db.AutoMigrate(&Peer{}, &Message{}, &FileTransfer{}); err != nil {
			return err
		}
		if err := s.db.Exec("CREATE INDEX IF NOT EXISTS idx_devices_address ON devices(address)").Error; err != nil {
			return err
		}
		return s.db.Exec("CREATE INDEX IF NOT EXISTS idx_messages_conversation_id ON messages(conversation_id)").Error
	default:
		return fmt.Errorf("no migration defined for version %d", version)
	}
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
