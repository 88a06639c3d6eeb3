package models

import (
	"time"

	"gorm.io/datatypes"
)

// Sync run type constants
const (
	RunTypeManual    = "manual"
	RunTypeScheduled = "scheduled"
)

// Sync run status constants
const (
	RunStatusSuccess = "success"
	RunStatusError   = "error"
)

// SystemSetting corresponds to the system_settings table.
type SystemSetting struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	SettingKey   string    `gorm:"type:varchar(255);not null;unique" json:"setting_key"`
	SettingValue string    `gorm:"type:text;not null" json:"setting_value"`
	Description  string    `gorm:"type:varchar(512)" json:"description"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Site corresponds to the sites table: one physical service point, keyed by
// the identifier assigned in the external spreadsheet.
//
// All synchronized columns are owned by the sync engine and overwritten on
// every run that re-supplies the key. Problems is the one exception: it is
// written by operators through the UI and must survive resynchronization.
type Site struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`

	ExternalID string `gorm:"type:varchar(64);not null;unique" json:"external_id"`

	Region      string `gorm:"type:varchar(255);not null;default:''" json:"region"`
	Address     string `gorm:"type:varchar(512);not null;default:''" json:"address"`
	ServiceName string `gorm:"type:varchar(255);not null;default:''" json:"service_name"`
	StatusName  string `gorm:"type:varchar(255);not null;default:''" json:"status_name"`
	StatusDate  string `gorm:"type:varchar(64);not null;default:''" json:"status_date"`

	// TransactionAmount is kept verbatim as the source renders it.
	// Parsing it as currency would lose locale-specific precision.
	TransactionDate   string `gorm:"type:varchar(64);not null;default:''" json:"transaction_date"`
	TransactionAmount string `gorm:"type:varchar(64);not null;default:''" json:"transaction_amount"`

	OrganizationID *string `gorm:"type:varchar(16);index" json:"organization_id"`

	PostalCode  string `gorm:"type:varchar(32);not null;default:''" json:"postal_code"`
	FittingRoom string `gorm:"type:varchar(64);not null;default:''" json:"fitting_room"`

	// Problems is a free-text annotation maintained by UI features outside
	// the sync engine. Never touched by the upsert path.
	Problems string `gorm:"type:text;not null;default:''" json:"problems"`

	SyncedAt  *time.Time `gorm:"index" json:"synced_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Organization corresponds to the organizations table. The primary key is a
// zero-padded sequential identifier generated by the resolver ("000001",
// "000002", ...). Name is unique in whitespace-normalized form.
type Organization struct {
	ID    string `gorm:"type:varchar(16);primaryKey" json:"id"`
	Name  string `gorm:"type:varchar(255);not null;unique" json:"name"`
	Phone string `gorm:"type:varchar(64);not null;default:''" json:"phone"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SyncLog is the append-only audit record of a synchronization run.
// Exactly one row is written per run, whatever its outcome.
type SyncLog struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Timestamp time.Time `gorm:"not null;index:idx_sync_logs_status_timestamp,priority:2" json:"timestamp"`

	RunType string `gorm:"type:varchar(20);not null" json:"run_type"`
	Status  string `gorm:"type:varchar(20);not null;index:idx_sync_logs_status_timestamp,priority:1" json:"status"`
	Message string `gorm:"type:text;not null;default:''" json:"message"`

	Processed int `gorm:"not null;default:0" json:"processed"`
	Created   int `gorm:"not null;default:0" json:"created"`
	Updated   int `gorm:"not null;default:0" json:"updated"`
	Skipped   int `gorm:"not null;default:0" json:"skipped"`

	Duration int64 `gorm:"not null;default:0" json:"duration_ms"`

	// SkipDetails holds the per-row skip reasons as a JSON array of
	// {key, reason} objects, for observability tooling.
	SkipDetails datatypes.JSON `gorm:"type:json" json:"skip_details"`
}
