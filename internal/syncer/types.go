// Package syncer implements the dataset synchronization engine: scheduled
// ingestion of the external site registry, organization resolution,
// idempotent merge into the sites table and per-run audit logging.
package syncer

import (
	"errors"
	"time"
)

// Engine error taxonomy. Source unavailability lives in the sheets package;
// these cover the store-side failure modes.
var (
	// ErrResolutionFailed wraps store errors during organization lookup or
	// creation. Isolated to the affected row in row-by-row mode.
	ErrResolutionFailed = errors.New("organization resolution failed")

	// ErrUpsertFailed marks a batch transaction failure that triggered the
	// row-by-row fallback.
	ErrUpsertFailed = errors.New("site upsert failed")

	// ErrRunInProgress is returned by TryRunOnce when a run is in flight.
	ErrRunInProgress = errors.New("synchronization run already in progress")
)

// Row skip reasons recorded in the sync log.
const (
	SkipReasonMissingKey       = "missing_key"
	SkipReasonDuplicateInBatch = "duplicate_in_batch"
	SkipReasonResolutionFailed = "resolution_failed"
	SkipReasonWriteFailed      = "write_failed"
)

// ValidatedRow is a normalized source row that passed key validation.
// All fields are plain strings; transaction amounts stay verbatim.
type ValidatedRow struct {
	ExternalID        string
	Region            string
	Address           string
	ServiceName       string
	StatusName        string
	StatusDate        string
	TransactionDate   string
	TransactionAmount string
	PostalCode        string
	FittingRoom       string

	OrganizationName  string
	OrganizationPhone string

	// OrganizationID is filled in by the resolver; nil for organization-less
	// sites.
	OrganizationID *string
}

// SkippedRow records why a source row was excluded from the merge.
type SkippedRow struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

// OutcomeKind tags the merge result of a single record.
type OutcomeKind string

const (
	OutcomeCreated OutcomeKind = "created"
	OutcomeUpdated OutcomeKind = "updated"
	OutcomeSkipped OutcomeKind = "skipped"
)

// RowOutcome is the tagged per-record merge result.
type RowOutcome struct {
	ExternalID string
	Kind       OutcomeKind
	Error      string // set when Kind == OutcomeSkipped
}

// RunSummary aggregates the outcome of one synchronization run. Exactly one
// sync log entry is written from it, whatever happened.
type RunSummary struct {
	RunType   string
	Status    string
	Message   string
	Processed int
	Created   int
	Updated   int
	Skipped   int
	Duration  time.Duration
	Timestamp time.Time
	Skips     []SkippedRow
}
