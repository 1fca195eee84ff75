package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator"
	"github.com/gorilla/mux"
	"github.com/idowu-gb/MAD-Project/server/session"
	"github.com/idowu-gb/MAD-Project/server/work"
	"github.com/idowu-gb/MAD-Project/shared"
	"github.com/idowu-gb/MAD-Project/utils"
	"github.com/spf13/viper"
)

// ---------------------------------------------------------------------------------//
// Handler Helper functions
// --------------------------------------------------------------------------------//

func writeResponse(rw http.ResponseWriter, payLoad ResponsePayload, statusCode int) {
	if statusCode >= http.StatusInternalServerError {
		logg.Error(payLoad.Errors)
	} else if statusCode >= http.StatusBadRequest {
		logg.Info(payLoad.Errors)
	}

	rw.WriteHeader(statusCode)
	json.NewEncoder(rw).Encode(payLoad)
}

// writeSessionError renders a session.Error with the status code for its kind
func writeSessionError(rw http.ResponseWriter, err error) {
	var sessionErr *session.Error
	if !errors.As(err, &sessionErr) {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	errs := append([]string{sessionErr.Message}, sessionErr.Details...)
	writeResponse(rw, ResponsePayload{Errors: errs, ErrorKind: sessionErr.Kind}, statusForKind(sessionErr.Kind))
}

func statusForKind(kind session.Kind) int {
	switch kind {
	case session.Validation:
		return http.StatusBadRequest
	case session.NotFound:
		return http.StatusNotFound
	case session.AlreadyExists:
		return http.StatusConflict
	case session.InvalidCredentials, session.NotLoggedIn:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

func decodeAndValidate(rw http.ResponseWriter, r *http.Request, data interface{}) bool {
	err := json.NewDecoder(r.Body).Decode(data)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{"invalid request body: " + err.Error()}}, http.StatusBadRequest)
		return false
	}

	errs := validate.Struct(data)
	if errs != nil {
		writeResponse(rw, ResponsePayload{Errors: strings.Split(errs.Error(), "\n")}, http.StatusBadRequest)
		return false
	}

	return true
}

func idFromPath(rw http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)[name], 10, 64)
	if err != nil || id == 0 {
		writeResponse(rw, ResponsePayload{Errors: []string{fmt.Sprintf("invalid %v", name)}}, http.StatusBadRequest)
		return 0, false
	}

	return uint(id), true
}

func RegisterValidators(validate *validator.Validate) error {
	return validate.RegisterValidation("phone_number", func(fl validator.FieldLevel) bool {
		return isValidPhoneNumber(fl.Field().String())
	})
}

// isValidPhoneNumber accepts 7 to 15 digits, once formatting characters are removed
func isValidPhoneNumber(phoneNumber string) bool {
	for _, r := range phoneNumber {
		if !strings.ContainsRune("0123456789+-(). ", r) {
			return false
		}
	}

	digits := strings.TrimPrefix(utils.NormalizePhoneNumber(phoneNumber), "+")
	return len(digits) >= 7 && len(digits) <= 15
}

// ---------------------------------------------------------------------------------//
// Server Helper functions
// --------------------------------------------------------------------------------//

func validateConfig(config *shared.ServerConfig) error {
	if err := validate.Struct(config); err != nil {
		return err
	}

	if config.Database.Driver == shared.POSTGRES_DRIVER && config.Database.DSN == "" {
		return fmt.Errorf("'database.dsn' is required for the postgres driver")
	}

	if config.Database.Driver == shared.SQLITE_DRIVER && config.Sqlite.PassPhrase == "" {
		return fmt.Errorf("'sqlite.passPhrase' is required for the sqlite driver")
	}

	storage := config.Google.Storage
	if storage.EnableSqliteBackupAndSync && config.Database.Driver != shared.SQLITE_DRIVER {
		return fmt.Errorf("'google.storage.enableSqliteBackupAndSync' only works with the sqlite driver")
	}

	if storage.EnableSqliteBackupAndSync && (storage.Bucket == "" || storage.SqliteBackupSchedule == "") {
		return fmt.Errorf("'google.storage.bucket' & 'google.storage.sqliteBackupSchedule' are required for sqlite backups")
	}

	if config.Images.Backend == shared.GCS_IMAGE_BACKEND && config.Images.Bucket == "" {
		return fmt.Errorf("'images.bucket' is required for the gcs image backend")
	}

	return nil
}

func serve(server *http.Server) {
	logg.Infof("Safetrip server is listening on port%v", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Fatal(err)
	}
}

func cleanup(workerPool *work.WorkerPoolAdapter, server *http.Server, backupDb func() error) {
	// Stop all jobs i.e. panic alert notifications & regular server jobs
	workerPool.Stop()

	if backupDb != nil {
		if err := backupDb(); err != nil {
			logg.Error(err)
		}
	}

	// Shutdown server gracefully
	ctxShutDown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutDown); err != nil {
		logg.Fatalf("Safetrip server shutdown failed:%+s", err)
	}

	logg.Infof("Safetrip server stopped properly")
}

// ConfigDirectory returns the directory to store safetrip data in, creating it if needed.
// That's '~/safetrip', or './dev' in dev mode.
func ConfigDirectory(devMode bool) (string, error) {
	configFolderName := "safetrip"
	rootDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	if devMode {
		configFolderName = "dev"
		rootDir, err = os.Getwd()
		if err != nil {
			return "", err
		}
	}

	configDir := filepath.Join(rootDir, configFolderName)
	if err := utils.CreateDirIfNotExist(configDir); err != nil {
		return "", err
	}

	return configDir, nil
}

// LoadConfig decodes & validates the server config
func LoadConfig(configValues *viper.Viper) (*shared.ServerConfig, error) {
	config := &shared.ServerConfig{}
	if err := configValues.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode server config: %v", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid server config: %v", err)
	}

	return config, nil
}

func fatalOnError(err error) {
	if err != nil {
		logg.Fatal(err)
	}
}
