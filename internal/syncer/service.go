package syncer

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"pvz-sync/internal/config"
	"pvz-sync/internal/models"
	"pvz-sync/internal/sheets"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SourceReader abstracts the external source for the engine. The production
// implementation is sheets.Reader.
type SourceReader interface {
	FetchRows(ctx context.Context, spreadsheetID, sheetName string) ([]sheets.Row, error)
}

// SyncService orchestrates one full synchronization run: fetch, normalize,
// resolve, merge, log. Per-run state (the organization name cache) is
// created fresh for every run; overlapping runs never share it.
type SyncService struct {
	db              *gorm.DB
	settingsManager *config.SystemSettingsManager
	reader          SourceReader
	executor        *UpsertExecutor
	runLogger       *RunLogger
	inFlight        atomic.Int32
}

// NewSyncService creates the run orchestrator.
func NewSyncService(db *gorm.DB, settingsManager *config.SystemSettingsManager, reader SourceReader) *SyncService {
	return &SyncService{
		db:              db,
		settingsManager: settingsManager,
		reader:          reader,
		executor:        NewUpsertExecutor(db),
		runLogger:       NewRunLogger(db),
	}
}

// InFlight reports whether a run is currently executing.
func (s *SyncService) InFlight() bool {
	return s.inFlight.Load() > 0
}

// TryRunOnce starts a run unless one is already in flight. This is the
// guard for the manual trigger surface; scheduled ticks call RunOnce
// directly and are allowed to overlap, since every write is an idempotent
// replace keyed by the natural identifier.
func (s *SyncService) TryRunOnce(ctx context.Context, runType string) (RunSummary, error) {
	if s.InFlight() {
		return RunSummary{}, ErrRunInProgress
	}
	return s.RunOnce(ctx, runType)
}

// RunOnce executes one complete synchronization run. Whatever happens,
// exactly one sync log entry is written before it returns.
func (s *SyncService) RunOnce(ctx context.Context, runType string) (RunSummary, error) {
	s.inFlight.Add(1)
	defer s.inFlight.Add(-1)

	start := time.Now()
	summary := RunSummary{
		RunType:   runType,
		Status:    models.RunStatusError,
		Timestamp: start,
	}

	// The log write is the run's finally block: it happens on every exit
	// path, including early returns and panics.
	defer func() {
		summary.Duration = time.Since(start)
		s.runLogger.Log(summary)
	}()

	settings := s.settingsManager.GetSyncSettings()
	if settings.TableID == "" {
		summary.Message = "source table is not configured"
		return summary, fmt.Errorf("source table is not configured")
	}

	rows, err := s.reader.FetchRows(ctx, settings.TableID, settings.SheetName)
	if err != nil {
		summary.Message = err.Error()
		return summary, fmt.Errorf("source fetch: %w", err)
	}
	summary.Processed = len(rows)

	if len(rows) == 0 {
		summary.Status = models.RunStatusSuccess
		summary.Message = "source returned no data rows"
		s.recordLastUpdate()
		return summary, nil
	}

	normalized := NormalizeRows(rows)
	summary.Skips = normalized.Skipped

	// Fresh resolver per run: the name cache must not leak across runs.
	resolver := NewOrganizationResolver(s.db)
	resolved := make([]ValidatedRow, 0, len(normalized.Valid))
	for _, row := range normalized.Valid {
		orgID, err := resolver.Resolve(row.OrganizationName, row.OrganizationPhone)
		if err != nil {
			// Resolution failure isolates to this row, not the run.
			summary.Skips = append(summary.Skips, SkippedRow{
				Key:    row.ExternalID,
				Reason: SkipReasonResolutionFailed + ": " + err.Error(),
			})
			logrus.WithError(err).WithField("external_id", row.ExternalID).Error("Organization resolution failed for row")
			continue
		}
		row.OrganizationID = orgID
		resolved = append(resolved, row)
	}

	outcomes, err := s.executor.Merge(resolved)
	if err != nil {
		summary.Skipped = len(summary.Skips)
		summary.Message = err.Error()
		return summary, fmt.Errorf("merge: %w", err)
	}

	for _, outcome := range outcomes {
		switch outcome.Kind {
		case OutcomeCreated:
			summary.Created++
		case OutcomeUpdated:
			summary.Updated++
		case OutcomeSkipped:
			summary.Skips = append(summary.Skips, SkippedRow{
				Key:    outcome.ExternalID,
				Reason: SkipReasonWriteFailed + ": " + outcome.Error,
			})
		}
	}
	summary.Skipped = len(summary.Skips)

	summary.Status = models.RunStatusSuccess
	summary.Message = fmt.Sprintf("synchronized %d rows: %d created, %d updated, %d skipped",
		summary.Processed, summary.Created, summary.Updated, summary.Skipped)

	s.recordLastUpdate()
	return summary, nil
}

func (s *SyncService) recordLastUpdate() {
	if err := s.settingsManager.SetLastUpdate(time.Now()); err != nil {
		logrus.WithError(err).Warn("Failed to record last update timestamp")
	}
}
