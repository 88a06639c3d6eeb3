package syncer

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"pvz-sync/internal/models"
	"pvz-sync/internal/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// orgCreateMu serializes organization creation process-wide. The insert-or-
// ignore plus re-read below already guarantees at-most-one row per name when
// the store enforces the unique index, but SQLite deployments run with a
// single writer connection and concurrent creation attempts would otherwise
// contend on busy timeouts.
var orgCreateMu sync.Mutex

// organizationIDWidth is the zero-padded width of generated identifiers.
const organizationIDWidth = 6

// OrganizationResolver maps free-text organization names to stable
// identifiers, creating missing organizations exactly once per distinct
// normalized name.
//
// The name cache is scoped to a single run. Resolver instances must not be
// shared across concurrent runs.
type OrganizationResolver struct {
	db    *gorm.DB
	cache map[string]string
}

// NewOrganizationResolver creates a resolver with a fresh per-run cache.
func NewOrganizationResolver(db *gorm.DB) *OrganizationResolver {
	return &OrganizationResolver{
		db:    db,
		cache: make(map[string]string),
	}
}

// Resolve returns the identifier of the organization with the given name,
// creating the record when none exists. An empty (or whitespace-only) name
// returns nil without error: sites may be organization-less.
func (r *OrganizationResolver) Resolve(name, phone string) (*string, error) {
	normalized := utils.NormalizeWhitespace(name)
	if normalized == "" {
		return nil, nil
	}

	if id, ok := r.cache[normalized]; ok {
		return &id, nil
	}

	var org models.Organization
	err := r.db.Where("name = ?", normalized).First(&org).Error
	if err == nil {
		r.cache[normalized] = org.ID
		id := org.ID
		return &id, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: lookup of %q: %v", ErrResolutionFailed, normalized, err)
	}

	id, err := r.create(normalized, phone)
	if err != nil {
		return nil, err
	}
	r.cache[normalized] = id
	return &id, nil
}

// create inserts the organization under the creation lock. The insert uses
// ON CONFLICT DO NOTHING on the unique name, then re-reads by name, so a
// concurrent resolver that won the race supplies the authoritative id.
func (r *OrganizationResolver) create(name, phone string) (string, error) {
	orgCreateMu.Lock()
	defer orgCreateMu.Unlock()

	var id string
	err := r.db.Transaction(func(tx *gorm.DB) error {
		nextID, err := nextOrganizationID(tx)
		if err != nil {
			return err
		}

		org := models.Organization{
			ID:    nextID,
			Name:  name,
			Phone: phone,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(&org).Error; err != nil {
			return fmt.Errorf("insert of %q: %w", name, err)
		}

		// Re-read by name: if a concurrent insert won, this picks up its id
		// instead of the one we generated.
		var existing models.Organization
		if err := tx.Where("name = ?", name).First(&existing).Error; err != nil {
			return fmt.Errorf("re-read of %q: %w", name, err)
		}
		id = existing.ID
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrResolutionFailed, err)
	}
	return id, nil
}

// nextOrganizationID computes the next sequential identifier: max of the
// existing purely-numeric ids plus one, zero-padded. Scanning ids in Go
// keeps this portable across all three engines; the table stays small.
func nextOrganizationID(tx *gorm.DB) (string, error) {
	var ids []string
	if err := tx.Model(&models.Organization{}).Pluck("id", &ids).Error; err != nil {
		return "", fmt.Errorf("id scan: %w", err)
	}

	maxID := int64(0)
	for _, raw := range ids {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue // non-numeric legacy ids don't participate in the sequence
		}
		if n > maxID {
			maxID = n
		}
	}

	return fmt.Sprintf("%0*d", organizationIDWidth, maxID+1), nil
}
