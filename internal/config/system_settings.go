package config

import (
	"fmt"
	"strconv"
	"time"

	"pvz-sync/internal/models"
	"pvz-sync/internal/store"
	"pvz-sync/internal/types"
	"pvz-sync/internal/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Setting keys stored in the system_settings table.
const (
	SettingKeyTableID          = "pvzTableId"
	SettingKeySheetName        = "pvzSheetName"
	SettingKeyUpdateFrequency  = "updateFrequency"
	SettingKeySchedulerRunning = "scheduler_running"
	SettingKeyLastUpdate       = "lastUpdate"
)

// settingsCacheTTL bounds how long a settings read may be served from cache.
// A burst of reads during one run hits the store once per key at most.
const settingsCacheTTL = 15 * time.Second

const settingsCachePrefix = "system_setting:"

// DefaultUpdateFrequencyMinutes is the cadence used when the stored value is
// missing or unparseable.
const DefaultUpdateFrequencyMinutes = 60

// settingDefault describes the seed row for a setting key.
type settingDefault struct {
	Value       string
	Description string
}

var settingDefaults = map[string]settingDefault{
	SettingKeyTableID:          {Value: "", Description: "Google Sheets spreadsheet ID of the site registry source"},
	SettingKeySheetName:        {Value: "Sheet1", Description: "Sheet (tab) name to read site rows from"},
	SettingKeyUpdateFrequency:  {Value: strconv.Itoa(DefaultUpdateFrequencyMinutes), Description: "Scheduler cadence in minutes"},
	SettingKeySchedulerRunning: {Value: "false", Description: "Persisted scheduler on/off flag, survives restarts"},
	SettingKeyLastUpdate:       {Value: "", Description: "Timestamp of the last completed synchronization run"},
}

// SystemSettingsManager reads and writes the key/value settings table with a
// short-lived cache in front of it.
type SystemSettingsManager struct {
	db    *gorm.DB
	cache store.Store
}

// NewSystemSettingsManager creates a settings manager.
func NewSystemSettingsManager(db *gorm.DB, cache store.Store) *SystemSettingsManager {
	return &SystemSettingsManager{
		db:    db,
		cache: cache,
	}
}

// EnsureSettingsInitialized seeds missing setting rows with their defaults.
// Existing values are never overwritten.
func (m *SystemSettingsManager) EnsureSettingsInitialized() error {
	for key, def := range settingDefaults {
		setting := models.SystemSetting{
			SettingKey:   key,
			SettingValue: def.Value,
			Description:  def.Description,
		}
		if err := m.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "setting_key"}},
			DoNothing: true,
		}).Create(&setting).Error; err != nil {
			return fmt.Errorf("failed to seed setting %q: %w", key, err)
		}
	}
	return nil
}

// GetValue returns the value for a setting key, consulting the cache first.
func (m *SystemSettingsManager) GetValue(key string) (string, error) {
	cacheKey := settingsCachePrefix + key
	if cached, err := m.cache.Get(cacheKey); err == nil {
		return string(cached), nil
	}

	var setting models.SystemSetting
	if err := m.db.Where("setting_key = ?", key).First(&setting).Error; err != nil {
		return "", fmt.Errorf("failed to read setting %q: %w", key, err)
	}

	if err := m.cache.Set(cacheKey, []byte(setting.SettingValue), settingsCacheTTL); err != nil {
		logrus.WithError(err).WithField("key", key).Warn("Failed to cache setting value")
	}
	return setting.SettingValue, nil
}

// SetValue writes a setting value through to the store and refreshes the cache.
func (m *SystemSettingsManager) SetValue(key, value string) error {
	setting := models.SystemSetting{
		SettingKey:   key,
		SettingValue: value,
	}
	if err := m.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "setting_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"setting_value", "updated_at"}),
	}).Create(&setting).Error; err != nil {
		return fmt.Errorf("failed to write setting %q: %w", key, err)
	}

	if err := m.cache.Set(settingsCachePrefix+key, []byte(value), settingsCacheTTL); err != nil {
		logrus.WithError(err).WithField("key", key).Warn("Failed to cache setting value")
	}
	return nil
}

// InvalidateCache drops any cached value for a key. Used by tests and by
// callers that need a guaranteed fresh read.
func (m *SystemSettingsManager) InvalidateCache(key string) {
	if err := m.cache.Delete(settingsCachePrefix + key); err != nil {
		logrus.WithError(err).WithField("key", key).Warn("Failed to invalidate setting cache")
	}
}

// GetSyncSettings returns the full set of synchronization settings.
// Missing keys fall back to defaults rather than failing the caller.
func (m *SystemSettingsManager) GetSyncSettings() types.SyncSettings {
	settings := types.SyncSettings{
		UpdateFrequencyMinutes: DefaultUpdateFrequencyMinutes,
	}

	if v, err := m.GetValue(SettingKeyTableID); err == nil {
		settings.TableID = v
	}
	if v, err := m.GetValue(SettingKeySheetName); err == nil {
		settings.SheetName = v
	}
	if v, err := m.GetValue(SettingKeyUpdateFrequency); err == nil {
		settings.UpdateFrequencyMinutes = utils.ParseInteger(v, DefaultUpdateFrequencyMinutes)
	}
	if v, err := m.GetValue(SettingKeySchedulerRunning); err == nil {
		settings.SchedulerRunning = utils.ParseBoolean(v, false)
	}
	if v, err := m.GetValue(SettingKeyLastUpdate); err == nil {
		settings.LastUpdate = v
	}

	return settings
}

// GetUpdateFrequency returns the scheduler cadence in minutes.
func (m *SystemSettingsManager) GetUpdateFrequency() int {
	v, err := m.GetValue(SettingKeyUpdateFrequency)
	if err != nil {
		return DefaultUpdateFrequencyMinutes
	}
	minutes := utils.ParseInteger(v, DefaultUpdateFrequencyMinutes)
	if minutes <= 0 {
		return DefaultUpdateFrequencyMinutes
	}
	return minutes
}

// SchedulerRunning returns the persisted scheduler flag.
func (m *SystemSettingsManager) SchedulerRunning() bool {
	v, err := m.GetValue(SettingKeySchedulerRunning)
	if err != nil {
		return false
	}
	return utils.ParseBoolean(v, false)
}

// SetSchedulerRunning persists the scheduler flag.
func (m *SystemSettingsManager) SetSchedulerRunning(running bool) error {
	return m.SetValue(SettingKeySchedulerRunning, strconv.FormatBool(running))
}

// SetLastUpdate records the completion timestamp of a synchronization run.
func (m *SystemSettingsManager) SetLastUpdate(t time.Time) error {
	return m.SetValue(SettingKeyLastUpdate, t.UTC().Format(time.RFC3339))
}
