package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pvz-sync/internal/config"
	"pvz-sync/internal/models"
	"pvz-sync/internal/sheets"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestSyncService(t *testing.T, reader SourceReader) (*SyncService, *gorm.DB, *config.SystemSettingsManager) {
	db := setupTestDB(t)
	settings := setupTestSettings(t, db)
	require.NoError(t, settings.SetValue(config.SettingKeyTableID, "sheet-test-id"))
	require.NoError(t, settings.SetValue(config.SettingKeySheetName, "Sites"))
	return NewSyncService(db, settings, reader), db, settings
}

func TestRunOnce_FullRun(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{rows: []sheets.Row{
		{"PVZ ID": "A1", "Region": "North", "Organization": "Acme LLC"},
		{"PVZ ID": "A1", "Region": "Duplicate"},
		{"PVZ ID": "B2", "Region": "South"},
	}}
	service, db, _ := setupTestSyncService(t, reader)

	summary, err := service.RunOnce(context.Background(), models.RunTypeManual)
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusSuccess, summary.Status)
	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 2, summary.Created)
	assert.Equal(t, 0, summary.Updated)
	assert.Equal(t, 1, summary.Skipped)
	require.Len(t, summary.Skips, 1)
	assert.Equal(t, SkippedRow{Key: "A1", Reason: SkipReasonDuplicateInBatch}, summary.Skips[0])

	// The organization-bearing site points at the created organization; the
	// organization-less site stays unbound.
	var withOrg models.Site
	require.NoError(t, db.Where("external_id = ?", "A1").First(&withOrg).Error)
	require.NotNil(t, withOrg.OrganizationID)
	assert.Equal(t, "000001", *withOrg.OrganizationID)

	var withoutOrg models.Site
	require.NoError(t, db.Where("external_id = ?", "B2").First(&withoutOrg).Error)
	assert.Nil(t, withoutOrg.OrganizationID)

	var logs []models.SyncLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, models.RunStatusSuccess, logs[0].Status)
	assert.Equal(t, models.RunTypeManual, logs[0].RunType)
}

func TestRunOnce_SecondRunCountsUpdates(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{rows: []sheets.Row{
		{"PVZ ID": "A1", "Region": "North"},
	}}
	service, db, _ := setupTestSyncService(t, reader)

	_, err := service.RunOnce(context.Background(), models.RunTypeManual)
	require.NoError(t, err)

	summary, err := service.RunOnce(context.Background(), models.RunTypeScheduled)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Created)
	assert.Equal(t, 1, summary.Updated)

	var logCount int64
	require.NoError(t, db.Model(&models.SyncLog{}).Count(&logCount).Error)
	assert.EqualValues(t, 2, logCount, "every run writes its own log entry")
}

func TestRunOnce_FetchFailureStillLogged(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{err: sheets.ErrSourceUnavailable}
	service, db, _ := setupTestSyncService(t, reader)

	summary, err := service.RunOnce(context.Background(), models.RunTypeScheduled)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sheets.ErrSourceUnavailable))
	assert.Equal(t, models.RunStatusError, summary.Status)

	var logs []models.SyncLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, models.RunStatusError, logs[0].Status)
	assert.Contains(t, logs[0].Message, "unavailable")
}

func TestRunOnce_EmptySourceIsSuccess(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{}
	service, db, settings := setupTestSyncService(t, reader)

	summary, err := service.RunOnce(context.Background(), models.RunTypeManual)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSuccess, summary.Status)
	assert.Zero(t, summary.Processed)
	assert.Equal(t, "source returned no data rows", summary.Message)

	settings.InvalidateCache(config.SettingKeyLastUpdate)
	lastUpdate, err := settings.GetValue(config.SettingKeyLastUpdate)
	require.NoError(t, err)
	assert.NotEmpty(t, lastUpdate, "a successful empty run still records its completion")

	var logCount int64
	require.NoError(t, db.Model(&models.SyncLog{}).Count(&logCount).Error)
	assert.EqualValues(t, 1, logCount)
}

func TestRunOnce_UnconfiguredSourceFailsAndLogs(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	settings := setupTestSettings(t, db)
	reader := &fakeReader{}
	service := NewSyncService(db, settings, reader)

	summary, err := service.RunOnce(context.Background(), models.RunTypeManual)
	require.Error(t, err)
	assert.Equal(t, models.RunStatusError, summary.Status)
	assert.Zero(t, reader.calls, "no fetch is attempted without a table id")

	var logCount int64
	require.NoError(t, db.Model(&models.SyncLog{}).Count(&logCount).Error)
	assert.EqualValues(t, 1, logCount)
}

func TestRunOnce_SkipAccounting(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{rows: []sheets.Row{
		{"PVZ ID": "A1"},
		{"Region": "no key"},
		{"PVZ ID": "A1"},
		{"PVZ ID": "B2"},
	}}
	service, _, _ := setupTestSyncService(t, reader)

	summary, err := service.RunOnce(context.Background(), models.RunTypeManual)
	require.NoError(t, err)

	// processed = created + updated + skipped
	assert.Equal(t, summary.Processed, summary.Created+summary.Updated+summary.Skipped)
	assert.Equal(t, 4, summary.Processed)
	assert.Equal(t, 2, summary.Created)
	assert.Equal(t, 2, summary.Skipped)
	assert.Len(t, summary.Skips, summary.Skipped)
}

// blockingReader parks FetchRows until released, to hold a run in flight.
type blockingReader struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingReader() *blockingReader {
	return &blockingReader{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (b *blockingReader) FetchRows(_ context.Context, _, _ string) ([]sheets.Row, error) {
	b.once.Do(func() { close(b.started) })
	<-b.release
	return nil, nil
}

func TestTryRunOnce_RejectsOverlappingManualRuns(t *testing.T) {
	t.Parallel()

	reader := newBlockingReader()
	service, _, _ := setupTestSyncService(t, reader)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = service.RunOnce(context.Background(), models.RunTypeManual)
	}()

	select {
	case <-reader.started:
	case <-time.After(5 * time.Second):
		t.Fatal("run never started")
	}

	assert.True(t, service.InFlight())
	_, err := service.TryRunOnce(context.Background(), models.RunTypeManual)
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(reader.release)
	<-done
	assert.False(t, service.InFlight())
}
