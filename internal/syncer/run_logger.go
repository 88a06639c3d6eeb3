package syncer

import (
	"encoding/json"

	"pvz-sync/internal/models"
	"pvz-sync/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// maxLogMessageLength bounds the stored message; source errors can embed
// whole API responses.
const maxLogMessageLength = 2000

// RunLogger persists one audit record per synchronization run.
type RunLogger struct {
	db *gorm.DB
}

// NewRunLogger creates a run logger bound to the primary store.
func NewRunLogger(db *gorm.DB) *RunLogger {
	return &RunLogger{db: db}
}

// Log writes the sync log entry for a completed run. It never returns an
// error: a run's outcome must not depend on whether its own audit record
// could be written. Failures go to the process log instead.
func (l *RunLogger) Log(summary RunSummary) {
	entry := models.SyncLog{
		ID:        uuid.NewString(),
		Timestamp: summary.Timestamp,
		RunType:   summary.RunType,
		Status:    summary.Status,
		Message:   utils.TruncateString(summary.Message, maxLogMessageLength),
		Processed: summary.Processed,
		Created:   summary.Created,
		Updated:   summary.Updated,
		Skipped:   summary.Skipped,
		Duration:  summary.Duration.Milliseconds(),
	}

	if len(summary.Skips) > 0 {
		if detail, err := json.Marshal(summary.Skips); err == nil {
			entry.SkipDetails = detail
		} else {
			logrus.WithError(err).Warn("Failed to marshal skip details for sync log")
		}
	}

	if err := l.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&entry).Error; err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"run_type": summary.RunType,
			"status":   summary.Status,
		}).Error("Failed to write sync log entry")
		return
	}

	logrus.WithFields(logrus.Fields{
		"run_type":  summary.RunType,
		"status":    summary.Status,
		"processed": summary.Processed,
		"created":   summary.Created,
		"updated":   summary.Updated,
		"skipped":   summary.Skipped,
		"duration":  summary.Duration,
	}).Info("Synchronization run logged")
}
