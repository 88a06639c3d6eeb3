package syncer

import (
	"fmt"
	"time"

	"pvz-sync/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// siteSyncColumns are the columns owned by the sync engine and replaced on
// conflict. Problems is deliberately absent: it belongs to the UI.
var siteSyncColumns = []string{
	"region",
	"address",
	"service_name",
	"status_name",
	"status_date",
	"transaction_date",
	"transaction_amount",
	"organization_id",
	"postal_code",
	"fitting_room",
	"synced_at",
	"updated_at",
}

// UpsertExecutor merges validated, organization-resolved rows into the sites
// table with insert-or-replace semantics keyed on the external identifier.
type UpsertExecutor struct {
	db *gorm.DB
}

// NewUpsertExecutor creates an executor bound to the primary store.
func NewUpsertExecutor(db *gorm.DB) *UpsertExecutor {
	return &UpsertExecutor{db: db}
}

// Merge writes the batch in a single transaction. If the transaction fails,
// each record is retried with its own commit so one malformed record cannot
// block the rest; records that still fail in isolation come back as Skipped
// outcomes with the error captured.
//
// Re-running Merge with identical input yields identical stored state: the
// write is an unconditional replace of the synchronized columns.
func (e *UpsertExecutor) Merge(rows []ValidatedRow) ([]RowOutcome, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	// The created/updated distinction is purely for reporting: a record that
	// already carried a sync timestamp counts as updated, everything else as
	// created. The write itself does not branch on it.
	previouslySynced, err := e.previouslySyncedKeys(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: pre-existence query: %v", ErrUpsertFailed, err)
	}

	now := time.Now()
	sites := make([]models.Site, len(rows))
	for i, row := range rows {
		sites[i] = siteFromRow(row, now)
	}

	batchErr := e.db.Transaction(func(tx *gorm.DB) error {
		for i := range sites {
			if err := upsertSite(tx, &sites[i]); err != nil {
				return err
			}
		}
		return nil
	})

	outcomes := make([]RowOutcome, 0, len(rows))
	if batchErr == nil {
		for _, row := range rows {
			outcomes = append(outcomes, RowOutcome{
				ExternalID: row.ExternalID,
				Kind:       outcomeKind(previouslySynced, row.ExternalID),
			})
		}
		return outcomes, nil
	}

	logrus.WithError(batchErr).Warn("Batch upsert failed, falling back to row-by-row mode")

	for i, row := range rows {
		site := siteFromRow(row, now)
		if err := upsertSite(e.db, &site); err != nil {
			outcomes = append(outcomes, RowOutcome{
				ExternalID: row.ExternalID,
				Kind:       OutcomeSkipped,
				Error:      err.Error(),
			})
			logrus.WithError(err).WithField("external_id", row.ExternalID).Error("Row upsert failed in isolation")
			continue
		}
		outcomes = append(outcomes, RowOutcome{
			ExternalID: row.ExternalID,
			Kind:       outcomeKind(previouslySynced, rows[i].ExternalID),
		})
	}

	return outcomes, nil
}

// previouslySyncedKeys returns the set of external ids that already carry a
// synchronization timestamp.
func (e *UpsertExecutor) previouslySyncedKeys(rows []ValidatedRow) (map[string]struct{}, error) {
	keys := make([]string, len(rows))
	for i, row := range rows {
		keys[i] = row.ExternalID
	}

	var existing []string
	err := e.db.Model(&models.Site{}).
		Where("external_id IN ? AND synced_at IS NOT NULL", keys).
		Pluck("external_id", &existing).Error
	if err != nil {
		return nil, err
	}

	set := make(map[string]struct{}, len(existing))
	for _, key := range existing {
		set[key] = struct{}{}
	}
	return set, nil
}

func outcomeKind(previouslySynced map[string]struct{}, externalID string) OutcomeKind {
	if _, ok := previouslySynced[externalID]; ok {
		return OutcomeUpdated
	}
	return OutcomeCreated
}

func upsertSite(tx *gorm.DB, site *models.Site) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns(siteSyncColumns),
	}).Create(site).Error
}

func siteFromRow(row ValidatedRow, syncedAt time.Time) models.Site {
	t := syncedAt
	return models.Site{
		ExternalID:        row.ExternalID,
		Region:            row.Region,
		Address:           row.Address,
		ServiceName:       row.ServiceName,
		StatusName:        row.StatusName,
		StatusDate:        row.StatusDate,
		TransactionDate:   row.TransactionDate,
		TransactionAmount: row.TransactionAmount,
		OrganizationID:    row.OrganizationID,
		PostalCode:        row.PostalCode,
		FittingRoom:       row.FittingRoom,
		SyncedAt:          &t,
	}
}
