package syncer

import (
	"sync"
	"testing"

	"pvz-sync/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_EmptyNameYieldsNoOrganization(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	resolver := NewOrganizationResolver(db)

	for _, name := range []string{"", "   ", "\t\n"} {
		id, err := resolver.Resolve(name, "")
		require.NoError(t, err)
		assert.Nil(t, id)
	}

	var count int64
	require.NoError(t, db.Model(&models.Organization{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestResolve_CreatesSequentialPaddedIDs(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	resolver := NewOrganizationResolver(db)

	first, err := resolver.Resolve("Acme LLC", "+7 900")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "000001", *first)

	second, err := resolver.Resolve("Beta Corp", "")
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, "000002", *second)

	var org models.Organization
	require.NoError(t, db.Where("name = ?", "Acme LLC").First(&org).Error)
	assert.Equal(t, "000001", org.ID)
	assert.Equal(t, "+7 900", org.Phone)
}

func TestResolve_WhitespaceVariantsShareOneOrganization(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	resolver := NewOrganizationResolver(db)

	variants := []string{"Acme LLC", "  Acme LLC ", "Acme  LLC", "Acme\tLLC"}
	ids := make([]string, 0, len(variants))
	for _, name := range variants {
		id, err := resolver.Resolve(name, "")
		require.NoError(t, err)
		require.NotNil(t, id)
		ids = append(ids, *id)
	}

	for _, id := range ids[1:] {
		assert.Equal(t, ids[0], id)
	}

	var count int64
	require.NoError(t, db.Model(&models.Organization{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestResolve_ReusesExistingOrganization(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)

	require.NoError(t, db.Create(&models.Organization{
		ID:   "000042",
		Name: "Existing Org",
	}).Error)

	resolver := NewOrganizationResolver(db)
	id, err := resolver.Resolve("Existing Org", "ignored-phone")
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, "000042", *id)

	// The next generated id continues past the existing maximum.
	next, err := resolver.Resolve("New Org", "")
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "000043", *next)
}

func TestResolve_NonNumericLegacyIDsIgnoredInSequence(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)

	require.NoError(t, db.Create(&models.Organization{ID: "LEGACY-7", Name: "Old One"}).Error)
	require.NoError(t, db.Create(&models.Organization{ID: "000003", Name: "Numbered"}).Error)

	resolver := NewOrganizationResolver(db)
	id, err := resolver.Resolve("Fresh Org", "")
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, "000004", *id)
}

func TestResolve_ConcurrentResolversCreateOneOrganization(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)

	const workers = 8
	ids := make([]string, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(n int) {
			defer wg.Done()
			// Each worker simulates a separate overlapping run with its own
			// per-run cache.
			resolver := NewOrganizationResolver(db)
			id, err := resolver.Resolve("Contended Org", "")
			if err != nil {
				errs[n] = err
				return
			}
			ids[n] = *id
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}

	var count int64
	require.NoError(t, db.Model(&models.Organization{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
