package syncer

import (
	"context"
	"testing"

	"pvz-sync/internal/config"
	"pvz-sync/internal/models"
	"pvz-sync/internal/sheets"
	"pvz-sync/internal/store"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.SystemSetting{},
		&models.Organization{},
		&models.Site{},
		&models.SyncLog{},
	)
	require.NoError(t, err)

	return db
}

// setupTestSettings creates a settings manager over the test database with
// all defaults seeded.
func setupTestSettings(t *testing.T, db *gorm.DB) *config.SystemSettingsManager {
	memStore := store.NewMemoryStore()
	t.Cleanup(func() { memStore.Close() })

	manager := config.NewSystemSettingsManager(db, memStore)
	require.NoError(t, manager.EnsureSettingsInitialized())
	return manager
}

// fakeReader is a SourceReader returning canned rows or a canned error.
type fakeReader struct {
	rows  []sheets.Row
	err   error
	calls int
}

func (f *fakeReader) FetchRows(_ context.Context, _, _ string) ([]sheets.Row, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}
