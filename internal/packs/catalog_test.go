package packs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCatalog(t *testing.T) {
	catalog, err := Load()
	require.NoError(t, err)

	all := catalog.All()
	require.NotEmpty(t, all)

	for _, pack := range all {
		assert.NotEmpty(t, pack.ID)
		assert.NotEmpty(t, pack.Title)
		require.NotEmpty(t, pack.Locations, "pack %s has no locations", pack.ID)

		for _, loc := range pack.Locations {
			en, ok := loc.Translations[LocaleEN]
			require.True(t, ok, "location %s is missing the default locale", loc.ID)
			require.NotEmpty(t, en.Roles)

			// Civilian roles are dealt as indices, so every locale must
			// carry the same number of roles.
			for locale, tr := range loc.Translations {
				assert.Len(t, tr.Roles, len(en.Roles),
					"location %s locale %s role count mismatch", loc.ID, locale)
			}
		}
	}
}

func TestCatalogGet(t *testing.T) {
	catalog, err := Load()
	require.NoError(t, err)

	first := catalog.All()[0]
	got, ok := catalog.Get(first.ID)
	require.True(t, ok)
	assert.Same(t, first, got)

	_, ok = catalog.Get("missing_pack")
	assert.False(t, ok)
}

func TestLocationLookup(t *testing.T) {
	catalog, err := Load()
	require.NoError(t, err)
	pack := catalog.All()[0]

	loc, ok := pack.Location(pack.Locations[0].ID)
	require.True(t, ok)
	assert.Equal(t, pack.Locations[0].ID, loc.ID)

	_, ok = pack.Location("missing_location")
	assert.False(t, ok)
}

func TestPickLocation(t *testing.T) {
	catalog, err := Load()
	require.NoError(t, err)

	for _, pack := range catalog.All() {
		loc := pack.PickLocation()
		require.NotNil(t, loc)
		_, ok := pack.Location(loc.ID)
		assert.True(t, ok)
	}
}

func TestRolesFallBackToDefaultLocale(t *testing.T) {
	catalog, err := Load()
	require.NoError(t, err)
	loc := catalog.All()[0].Locations[0]

	assert.Equal(t, loc.Translations[LocaleEN].Roles, loc.Roles("fr"))
	assert.Equal(t, loc.Translations[LocaleSV].Roles, loc.Roles(LocaleSV))
}
