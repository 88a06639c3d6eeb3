package syncer

import (
	"context"
	"testing"
	"time"

	"pvz-sync/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestScheduler(t *testing.T) (*Scheduler, *config.SystemSettingsManager, *gorm.DB) {
	db := setupTestDB(t)
	settings := setupTestSettings(t, db)
	service := NewSyncService(db, settings, &fakeReader{})
	scheduler := NewScheduler(settings, service)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		scheduler.Shutdown(ctx)
	})
	return scheduler, settings, db
}

func TestScheduler_StartPersistsRunningFlag(t *testing.T) {
	t.Parallel()
	scheduler, settings, _ := setupTestScheduler(t)

	assert.False(t, scheduler.Status().Running)
	require.NoError(t, scheduler.Start())

	status := scheduler.Status()
	assert.True(t, status.Running)
	assert.Equal(t, config.DefaultUpdateFrequencyMinutes, status.CadenceMinutes)
	assert.True(t, settings.SchedulerRunning())

	// Starting again is a no-op.
	require.NoError(t, scheduler.Start())
	assert.True(t, scheduler.Status().Running)
}

func TestScheduler_StopPersistsStoppedFlag(t *testing.T) {
	t.Parallel()
	scheduler, settings, _ := setupTestScheduler(t)

	require.NoError(t, scheduler.Start())
	require.NoError(t, scheduler.Stop())

	assert.False(t, scheduler.Status().Running)
	assert.False(t, settings.SchedulerRunning())

	// Stopping a stopped scheduler is a no-op.
	require.NoError(t, scheduler.Stop())
}

func TestScheduler_RestoreRehydratesRunningState(t *testing.T) {
	t.Parallel()
	scheduler, settings, _ := setupTestScheduler(t)

	// The previous process persisted the flag before it exited.
	require.NoError(t, settings.SetSchedulerRunning(true))

	scheduler.Restore()
	assert.True(t, scheduler.Status().Running)
}

func TestScheduler_RestoreStaysStoppedWhenFlagIsOff(t *testing.T) {
	t.Parallel()
	scheduler, _, _ := setupTestScheduler(t)

	scheduler.Restore()
	assert.False(t, scheduler.Status().Running)
}

func TestScheduler_ShutdownKeepsPersistedFlag(t *testing.T) {
	t.Parallel()
	scheduler, settings, _ := setupTestScheduler(t)

	require.NoError(t, scheduler.Start())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	scheduler.Shutdown(ctx)

	assert.False(t, scheduler.Status().Running)
	assert.True(t, settings.SchedulerRunning(), "process exit must not look like an operator stop")
}

func TestScheduler_ReconfigureRecordsCadence(t *testing.T) {
	t.Parallel()
	scheduler, settings, _ := setupTestScheduler(t)

	require.NoError(t, scheduler.Reconfigure(15))
	assert.Equal(t, 15, settings.GetUpdateFrequency())
	assert.Equal(t, 15, scheduler.Status().CadenceMinutes)
	assert.False(t, scheduler.Status().Running, "reconfiguring a stopped scheduler does not start it")
}

func TestScheduler_ReconfigureRestartsRunningTimer(t *testing.T) {
	t.Parallel()
	scheduler, settings, _ := setupTestScheduler(t)

	require.NoError(t, scheduler.Start())
	require.NoError(t, scheduler.Reconfigure(15))

	status := scheduler.Status()
	assert.True(t, status.Running)
	assert.Equal(t, 15, status.CadenceMinutes)
	assert.Equal(t, 15, settings.GetUpdateFrequency())
}

func TestScheduler_ReconfigureRejectsInvalidCadence(t *testing.T) {
	t.Parallel()
	scheduler, settings, _ := setupTestScheduler(t)

	require.Error(t, scheduler.Reconfigure(0))
	require.Error(t, scheduler.Reconfigure(-5))
	assert.Equal(t, config.DefaultUpdateFrequencyMinutes, settings.GetUpdateFrequency())
}
