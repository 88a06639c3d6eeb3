package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pvz-sync/internal/config"
	"pvz-sync/internal/models"
	"pvz-sync/internal/utils"

	"github.com/sirupsen/logrus"
)

// Scheduler owns the recurring synchronization timer. It is an explicit
// state machine with two states, Stopped and Running; the running flag is
// persisted in the settings table so the operator-visible toggle survives
// process restarts.
//
// The scheduler itself enforces no mutual exclusion between runs: a tick
// that fires while a slow run is still in flight starts a second run.
// Overlapping runs converge because every site write is an idempotent
// replace keyed by the external identifier.
type Scheduler struct {
	settingsManager *config.SystemSettingsManager
	syncService     *SyncService

	mu       sync.Mutex
	running  bool
	cadence  time.Duration
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// SchedulerStatus is the operator-visible scheduler state.
type SchedulerStatus struct {
	Running        bool   `json:"running"`
	CadenceMinutes int    `json:"cadence_minutes"`
	RunInFlight    bool   `json:"run_in_flight"`
	LastUpdate     string `json:"last_update"`
}

// NewScheduler creates a scheduler in the Stopped state.
func NewScheduler(settingsManager *config.SystemSettingsManager, syncService *SyncService) *Scheduler {
	return &Scheduler{
		settingsManager: settingsManager,
		syncService:     syncService,
	}
}

// Restore re-enters the Running state if the persisted flag says the
// scheduler was running before the process stopped. Called once at startup;
// the timer is re-armed immediately rather than waiting out a full cadence
// interval somewhere an operator can't see.
func (s *Scheduler) Restore() {
	if !s.settingsManager.SchedulerRunning() {
		logrus.Debug("Scheduler was stopped before restart, staying stopped")
		return
	}
	if err := s.Start(); err != nil {
		logrus.WithError(err).Error("Failed to restore scheduler to running state")
	}
}

// Start arms the recurring timer at the configured cadence and persists the
// running flag. Starting a running scheduler is a no-op.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	minutes := s.settingsManager.GetUpdateFrequency()
	s.cadence = time.Duration(minutes) * time.Minute

	s.startLocked()

	if err := s.settingsManager.SetSchedulerRunning(true); err != nil {
		return fmt.Errorf("failed to persist scheduler flag: %w", err)
	}

	logrus.WithField("cadence_minutes", minutes).Info("Sync scheduler started")
	return nil
}

// Stop cancels the timer, enters the Stopped state and persists the flag.
// Runs already in flight are not interrupted; stop only prevents future
// fires.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	if err := s.settingsManager.SetSchedulerRunning(false); err != nil {
		return fmt.Errorf("failed to persist scheduler flag: %w", err)
	}

	logrus.Info("Sync scheduler stopped")
	return nil
}

// Reconfigure applies a new cadence. The value is recorded in settings; if
// the scheduler is running the timer is rebuilt so the next fire happens
// within the new interval, not the remainder of the old one.
func (s *Scheduler) Reconfigure(minutes int) error {
	if minutes <= 0 {
		return fmt.Errorf("invalid cadence: %d minutes", minutes)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.settingsManager.SetValue(config.SettingKeyUpdateFrequency, fmt.Sprint(minutes)); err != nil {
		return fmt.Errorf("failed to record cadence: %w", err)
	}
	s.cadence = time.Duration(minutes) * time.Minute

	if s.running {
		s.stopLocked()
		s.startLocked()
		logrus.WithField("cadence_minutes", minutes).Info("Sync scheduler reconfigured")
	}
	return nil
}

// Status reports the current scheduler state.
func (s *Scheduler) Status() SchedulerStatus {
	s.mu.Lock()
	running := s.running
	cadence := s.cadence
	s.mu.Unlock()

	if cadence == 0 {
		cadence = time.Duration(s.settingsManager.GetUpdateFrequency()) * time.Minute
	}

	settings := s.settingsManager.GetSyncSettings()
	return SchedulerStatus{
		Running:        running,
		CadenceMinutes: int(cadence / time.Minute),
		RunInFlight:    s.syncService.InFlight(),
		LastUpdate:     settings.LastUpdate,
	}
}

// Shutdown halts the timer loop for process exit without touching the
// persisted flag, so a restart rehydrates the previous state.
func (s *Scheduler) Shutdown(ctx context.Context) {
	s.mu.Lock()
	s.stopLocked()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logrus.Info("Scheduler stopped gracefully.")
	case <-ctx.Done():
		logrus.Warn("Scheduler stop timed out.")
	}
}

// startLocked arms the timer. Caller holds s.mu.
func (s *Scheduler) startLocked() {
	s.stopChan = make(chan struct{})
	s.running = true
	s.wg.Add(1)
	go s.runLoop(s.cadence, s.stopChan)
}

// stopLocked cancels any armed timer. Caller holds s.mu.
func (s *Scheduler) stopLocked() {
	if !s.running {
		return
	}
	close(s.stopChan)
	s.stopChan = nil
	s.running = false
}

func (s *Scheduler) runLoop(interval time.Duration, stop chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// Fire-and-forget: the tick must not block on a slow source.
			go func() {
				if _, err := s.syncService.RunOnce(context.Background(), models.RunTypeScheduled); err != nil {
					if utils.IsTransientDBError(err) {
						// The next tick is the retry.
						logrus.WithError(err).Warn("Scheduled synchronization run hit transient store contention")
					} else {
						logrus.WithError(err).Error("Scheduled synchronization run failed")
					}
				}
			}()
		case <-stop:
			return
		}
	}
}
