package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/idowu-gb/MAD-Project/server/alerts"
	"github.com/idowu-gb/MAD-Project/server/auth/key"
	"github.com/idowu-gb/MAD-Project/server/gstorage"
	"github.com/idowu-gb/MAD-Project/server/imagestore"
	"github.com/idowu-gb/MAD-Project/server/logger"
	"github.com/idowu-gb/MAD-Project/server/models"
	"github.com/idowu-gb/MAD-Project/server/session"
	"github.com/idowu-gb/MAD-Project/server/twilio"
	"github.com/idowu-gb/MAD-Project/server/work"
	"github.com/idowu-gb/MAD-Project/shared"
	"github.com/spf13/viper"
)

var logg = logger.NewLogger()

// App holds what the http handlers share
type App struct {
	sessions      *sessionRegistry
	keyPair       *key.KeyPair
	store         session.Store
	notifier      session.AlertNotifier
	images        imagestore.Store
	metrics       *metrics
	allowedOrigin string
	now           func() time.Time
}

func newApp(keyPair *key.KeyPair, store session.Store, notifier session.AlertNotifier, images imagestore.Store, allowedOrigin string) *App {
	app := &App{
		sessions:      newSessionRegistry(),
		keyPair:       keyPair,
		store:         store,
		notifier:      notifier,
		images:        images,
		allowedOrigin: allowedOrigin,
		now:           time.Now,
	}

	app.metrics = newMetrics(func() float64 { return float64(app.sessions.count()) })

	return app
}

func (app *App) newRouter() *mux.Router {
	router := mux.NewRouter()
	router.Use(loggingMiddleware, app.metrics.middleware)

	router.HandleFunc("/health", health).Methods("GET")
	router.Handle("/metrics", app.metrics.handler()).Methods("GET")
	router.HandleFunc("/.well-known/jwks.json", app.jwks).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(app.initialContextMiddleware)

	api.HandleFunc("/signup", app.signUp).Methods("POST")
	api.HandleFunc("/login", app.logIn).Methods("POST")
	api.HandleFunc("/contact-login", app.contactLogIn).Methods("POST")

	protected := api.NewRoute().Subrouter()
	protected.Use(app.protectedRouteMiddleware)

	protected.HandleFunc("/logout", app.logOut).Methods("POST")
	protected.HandleFunc("/session", app.getSession).Methods("GET")
	protected.HandleFunc("/session/live", app.liveSession).Methods("GET")

	protected.HandleFunc("/trips", app.createTrip).Methods("POST")
	protected.HandleFunc("/trips/{id:[0-9]+}", app.deleteTrip).Methods("DELETE")
	protected.HandleFunc("/trips/{id:[0-9]+}/status", app.updateTripStatus).Methods("PUT")
	protected.HandleFunc("/trips/{id:[0-9]+}/image", app.uploadTripImage).Methods("PUT")
	protected.HandleFunc("/trips/{id:[0-9]+}/panic", app.triggerPanicAlert).Methods("POST")

	protected.HandleFunc("/contacts", app.createContact).Methods("POST")
	protected.HandleFunc("/contacts/linked", app.linkedContacts).Methods("GET")
	protected.HandleFunc("/contacts/address-book", app.previewAddressBook).Methods("POST")
	protected.HandleFunc("/contacts/{id:[0-9]+}", app.deleteContact).Methods("DELETE")
	protected.HandleFunc("/contacts/{id:[0-9]+}/link", app.linkContact).Methods("PUT")

	protected.HandleFunc("/contact-view/trips", app.contactViewTrips).Methods("GET")
	protected.HandleFunc("/contact-view/alerts", app.contactViewAlerts).Methods("GET")
	protected.HandleFunc("/contact-view/live", app.liveContactView).Methods("GET")

	return router
}

// Start runs the safetrip server until it receives an interrupt
func Start(configValues *viper.Viper, devMode bool) {
	config, err := LoadConfig(configValues)
	fatalOnError(err)

	configDir, err := ConfigDirectory(devMode)
	fatalOnError(err)

	ctx := context.Background()

	var storage *gstorage.GStorage
	if config.Google.Storage.EnableSqliteBackupAndSync || config.Images.Backend == shared.GCS_IMAGE_BACKEND {
		storage, err = gstorage.NewGStorage(ctx, config.Google.ApplicationCredentials)
		fatalOnError(err)
		defer storage.Close()
	}

	var backup *sqliteBackup
	if config.Google.Storage.EnableSqliteBackupAndSync {
		backup = newSqliteBackup(storage, config.Google.Storage, configDir)
		fatalOnError(backup.sync(ctx))
	}

	fatalOnError(models.AutoMigrate(config.Database, config.Sqlite.PassPhrase, configDir))

	keyPair, err := key.NewKeyPairFromRSAPrivateKeyPem(config.Safetrip.PrivateKeyPem)
	fatalOnError(err)

	workerPool, err := work.NewWorkerAdapter(config.Safetrip.Cron.TimeZone)
	fatalOnError(err)

	notifier, err := alerts.NewNotifier(workerPool, models.Store{}, twilio.NewClient(config.Twilio))
	fatalOnError(err)

	var backupDb func() error
	if backup != nil {
		fatalOnError(backup.schedule(workerPool))
		backupDb = func() error { return backup.run(nil) }
	}

	images, err := newImageStore(config.Images, storage, configDir)
	fatalOnError(err)

	app := newApp(keyPair, models.Store{}, notifier, images, config.Safetrip.AppUrl)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%v", config.Safetrip.Listener.Port),
		Handler: app.newRouter(),
	}

	workerPool.Start()
	go serve(server)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	cleanup(workerPool, server, backupDb)
}

func newImageStore(config shared.ImagesConfig, storage *gstorage.GStorage, configDir string) (imagestore.Store, error) {
	if config.Backend == shared.GCS_IMAGE_BACKEND {
		return imagestore.NewGCSStore(storage, config.Bucket, config.Prefix), nil
	}

	dir := config.Dir
	if dir == "" {
		dir = filepath.Join(configDir, "images")
	}

	return imagestore.NewDiskStore(dir)
}
