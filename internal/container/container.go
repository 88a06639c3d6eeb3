// Package container builds the dependency injection container.
package container

import (
	"pvz-sync/internal/app"
	"pvz-sync/internal/config"
	"pvz-sync/internal/db"
	"pvz-sync/internal/handler"
	"pvz-sync/internal/router"
	"pvz-sync/internal/sheets"
	"pvz-sync/internal/store"
	"pvz-sync/internal/syncer"

	"go.uber.org/dig"
)

// BuildContainer registers all constructors and returns the container.
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	providers := []any{
		config.NewManager,
		db.NewDB,
		newStore,
		config.NewSystemSettingsManager,
		sheets.NewReader,
		newSourceReader,
		syncer.NewSyncService,
		syncer.NewScheduler,
		handler.NewServer,
		router.NewRouter,
		app.NewApp,
	}

	for _, provider := range providers {
		if err := container.Provide(provider); err != nil {
			return nil, err
		}
	}

	return container, nil
}

func newStore() store.Store {
	return store.NewMemoryStore()
}

// newSourceReader adapts the concrete sheets reader to the engine interface.
func newSourceReader(reader *sheets.Reader) syncer.SourceReader {
	return reader
}
