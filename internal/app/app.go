package app

import (
	"fmt"
	"os"
	"time"

	"copydeck/internal/config"
	"copydeck/internal/database"
	"copydeck/internal/figma"
	"copydeck/internal/imagestore"
	"copydeck/internal/secrets"
	"copydeck/internal/tracker"
)

// App is the application layer between the CLI (or HTTP server) and the
// tracker service. It constructs all dependencies from config and
// manages their lifecycle on Close.
type App struct {
	cfg     *config.Config
	store   tracker.Store
	service *tracker.Service
	logFile *os.File
}

// NewApp creates a fully wired App from the given config. Database
// migrations are applied on startup; a failed migration aborts.
// The caller must call Close when done.
func NewApp(cfg *config.Config) (*App, error) {
	store, err := database.NewStoreFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	if migrator, ok := store.(interface{ Migrate() error }); ok {
		if err := migrator.Migrate(); err != nil {
			store.Close()
			return nil, fmt.Errorf("migrating database: %w", err)
		}
	}

	images, err := imagestore.NewStoreFromConfig(cfg.Images)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating image store: %w", err)
	}

	tokens, err := secrets.NewCipherFromConfig(cfg.Secrets)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating token cipher: %w", err)
	}

	runID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, runID)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	adapter := &slogAdapter{l: logger}
	provider := figma.NewClient(cfg.Provider, adapter)

	svc := tracker.NewService(store, provider, images, tokens, adapter, tracker.RealClock{}, tracker.UUIDGenerator{})

	return &App{
		cfg:     cfg,
		store:   store,
		service: svc,
		logFile: logFile,
	}, nil
}

// Service returns the wired tracker service.
func (a *App) Service() *tracker.Service { return a.service }

// Config returns the loaded configuration.
func (a *App) Config() *config.Config { return a.cfg }

// Close closes the database and the log file.
func (a *App) Close() error {
	var firstErr error

	if err := a.store.Close(); err != nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
