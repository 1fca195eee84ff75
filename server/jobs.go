package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/idowu-gb/MAD-Project/server/gstorage"
	"github.com/idowu-gb/MAD-Project/server/models"
	"github.com/idowu-gb/MAD-Project/server/work"
	"github.com/idowu-gb/MAD-Project/shared"
	"github.com/idowu-gb/MAD-Project/utils"
)

const BACKUP_SQLITE_DB_HANDLER = "backup_sqlite_db"

// sqliteBackup copies the sqlite db file to & from a google storage bucket
type sqliteBackup struct {
	storage   *gstorage.GStorage
	config    shared.StorageConfig
	configDir string
	dbPath    string
}

func newSqliteBackup(storage *gstorage.GStorage, config shared.StorageConfig, configDir string) *sqliteBackup {
	return &sqliteBackup{
		storage:   storage,
		config:    config,
		configDir: configDir,
		dbPath:    models.DbFilePath(configDir),
	}
}

func (backup *sqliteBackup) objectName() string {
	return gstorage.ObjectName(backup.config.Prefix, models.DB_NAME)
}

// sync pulls the last backup into place when there's no local db yet
func (backup *sqliteBackup) sync(ctx context.Context) error {
	if utils.FileExist(backup.dbPath) {
		return nil
	}

	if _, err := models.DbDirectory(backup.configDir); err != nil {
		return err
	}

	logg.Infof("Pulling '%v' from bucket '%v'", backup.objectName(), backup.config.Bucket)
	err := backup.storage.DownloadFile(ctx, backup.config.Bucket, backup.objectName(), backup.dbPath)
	if errors.Is(err, gstorage.ErrObjectNotExist) {
		logg.Info("No db backup found, starting with a new db")
		return nil
	}

	return err
}

// run uploads the db. It's the BACKUP_SQLITE_DB_HANDLER job handler.
func (backup *sqliteBackup) run(map[string]interface{}) error {
	if err := models.CheckpointSqlite(); err != nil {
		return fmt.Errorf("failed to checkpoint db before backup: %v", err)
	}

	err := backup.storage.UploadFile(context.Background(), backup.config.Bucket, backup.objectName(), backup.dbPath)
	if err != nil {
		return fmt.Errorf("failed to backup db: %v", err)
	}

	logg.Infof("Backed up db to '%v/%v'", backup.config.Bucket, backup.objectName())
	return nil
}

func (backup *sqliteBackup) schedule(wpa *work.WorkerPoolAdapter) error {
	if err := wpa.Register(BACKUP_SQLITE_DB_HANDLER, backup.run); err != nil {
		return err
	}

	return wpa.PeriodicallyPerform(backup.config.SqliteBackupSchedule, work.JobParams{
		Name:    BACKUP_SQLITE_DB_HANDLER,
		Handler: BACKUP_SQLITE_DB_HANDLER,
		Args:    map[string]interface{}{},
	})
}
