package models

import (
	"os"
	"path/filepath"

	sqliteEncrypt "github.com/Daskott/gorm-sqlite-cipher"
)

const TEST_DB_PASSPHRASE = "test-passphrase"

// InitializeTestDb points the package at a fresh encrypted sqlite db in a temp dir.
// Meant for tests only; it panics if the db can't be created.
func InitializeTestDb() {
	dir, err := os.MkdirTemp("", "safetrip-test-")
	if err != nil {
		logg.Panic(err)
	}

	dsn := sqliteDSNForFile(filepath.Join(dir, DB_NAME), TEST_DB_PASSPHRASE)
	if err := migrate(sqliteEncrypt.Open(dsn)); err != nil {
		logg.Panic(err)
	}
}
