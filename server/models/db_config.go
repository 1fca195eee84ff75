package models

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	sqliteEncrypt "github.com/Daskott/gorm-sqlite-cipher"
	"github.com/idowu-gb/MAD-Project/server/logger"
	"github.com/idowu-gb/MAD-Project/shared"
	"github.com/idowu-gb/MAD-Project/utils"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

const DB_NAME = "safetrip.db"

var logg = logger.NewLogger()
var db *gorm.DB

// AutoMigrate opens the configured database, auto-migrates the schema and inserts seed data.
// For sqlite, the db file is created in '<dbRootDir>/db'.
func AutoMigrate(dbConfig shared.DatabaseConfig, passPhrase string, dbRootDir string) error {
	dialector, err := dialectorFor(dbConfig, passPhrase, dbRootDir)
	if err != nil {
		return err
	}

	return migrate(dialector)
}

// CheckpointSqlite flushes the sqlite write-ahead log into the main db file,
// so the file can be copied as a consistent backup.
func CheckpointSqlite() error {
	if db.Dialector.Name() != "sqlite" {
		return nil
	}
	return db.Exec("PRAGMA wal_checkpoint(TRUNCATE)").Error
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

func migrate(dialector gorm.Dialector) error {
	err := openDB(dialector)
	if err != nil {
		return err
	}

	err = db.AutoMigrate(
		&JobStatus{}, &Job{},
		&User{}, &Trip{}, &Contact{}, &PanicAlert{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate schema: %v", err)
	}

	return populateDBWithSeedData()
}

func openDB(dialector gorm.Dialector) error {
	var err error

	db, err = gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			gormLogger.Config{
				LogLevel:                  gormLogger.Silent,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		),
	})
	if err != nil {
		return fmt.Errorf("failed to connect database: %v", err)
	}

	return registerChangeCallbacks(db)
}

func dialectorFor(dbConfig shared.DatabaseConfig, passPhrase string, dbRootDir string) (gorm.Dialector, error) {
	switch dbConfig.Driver {
	case shared.POSTGRES_DRIVER:
		return postgres.Open(dbConfig.DSN), nil
	case shared.SQLITE_DRIVER, "":
		dsn, err := sqliteDSN(passPhrase, dbRootDir)
		if err != nil {
			return nil, fmt.Errorf("failed to set sqlite DSN: %v", err)
		}
		return sqliteEncrypt.Open(dsn), nil
	}

	return nil, fmt.Errorf("unsupported database driver '%v'", dbConfig.Driver)
}

func populateDBWithSeedData() error {
	if err := db.First(&JobStatus{}).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		logg.Info("Inserting seed data into 'JobStatus'")
		return db.Create(&[]JobStatus{
			{Name: ENQUEUED_JOB}, {Name: IN_PROGRESS_JOB}, {Name: SUCCESSFUL_JOB}, {Name: DEAD_JOB},
		}).Error
	}

	return nil
}

func sqliteDSN(passPhrase string, dbRootDir string) (string, error) {
	dbDir, err := DbDirectory(dbRootDir)
	if err != nil {
		return "", err
	}

	return sqliteDSNForFile(filepath.Join(dbDir, DB_NAME), passPhrase), nil
}

func sqliteDSNForFile(dbFilePath, passPhrase string) string {
	return fmt.Sprintf(
		"file:%v?_pragma_key=%s&_pragma_cipher_page_size=4096&_journal_mode=WAL&_busy_timeout=5000",
		dbFilePath,
		passPhrase,
	)
}

func DbDirectory(dbRootDir string) (string, error) {
	dbDir := filepath.Join(dbRootDir, "db")

	err := utils.CreateDirIfNotExist(dbDir)
	if err != nil {
		return "", err
	}

	return dbDir, nil
}

// DbFilePath is the location of the sqlite db file for 'dbRootDir'
func DbFilePath(dbRootDir string) string {
	return filepath.Join(dbRootDir, "db", DB_NAME)
}
