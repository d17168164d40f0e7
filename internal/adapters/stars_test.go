package adapters

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probeworks/toolhost/internal/infrastructure"
)

func newTestStarsAdapter(t *testing.T) *DefaultStarsAdapter {
	t.Helper()
	db, err := infrastructure.OpenDatabase(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStarsAdapter(db)
}

func TestGetStar(t *testing.T) {
	adapter := newTestStarsAdapter(t)

	tests := []struct {
		name    string
		query   string
		want    string
		wantErr string
	}{
		{name: "exact match", query: "Sirius", want: "Sirius"},
		{name: "case insensitive", query: "sirius", want: "Sirius"},
		{name: "mixed case", query: "BETELGEUSE", want: "Betelgeuse"},
		{name: "not found", query: "Krypton", wantErr: "star not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			star, err := adapter.GetStar(tt.query)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, star.Name)
		})
	}
}

func TestGetConstellation(t *testing.T) {
	adapter := newTestStarsAdapter(t)

	constellation, err := adapter.GetConstellation("orion")
	require.NoError(t, err)
	assert.Equal(t, "Orion", constellation.Name)
	assert.Equal(t, "January", constellation.BestViewingMonth)

	_, err = adapter.GetConstellation("Nonexistent")
	assert.ErrorContains(t, err, "constellation not found")
}

func TestGetAllData(t *testing.T) {
	adapter := newTestStarsAdapter(t)

	catalog, err := adapter.GetAllData()
	require.NoError(t, err)
	assert.NotEmpty(t, catalog.Stars)
	assert.NotEmpty(t, catalog.Constellations)
}

func TestSearchStars(t *testing.T) {
	adapter := newTestStarsAdapter(t)

	tests := []struct {
		name     string
		criteria string
		value    string
		check    func(t *testing.T, stars []infrastructure.Star)
		wantErr  string
	}{
		{
			name:     "by constellation",
			criteria: "constellation",
			value:    "orion",
			check: func(t *testing.T, stars []infrastructure.Star) {
				require.NotEmpty(t, stars)
				for _, s := range stars {
					assert.Equal(t, "Orion", s.Constellation)
				}
			},
		},
		{
			name:     "brighter than zero",
			criteria: "magnitude_less_than",
			value:    "0",
			check: func(t *testing.T, stars []infrastructure.Star) {
				require.NotEmpty(t, stars)
				for _, s := range stars {
					assert.Less(t, s.Magnitude, 0.0)
				}
			},
		},
		{
			name:     "dimmer than 1.5",
			criteria: "magnitude_greater_than",
			value:    "1.5",
			check: func(t *testing.T, stars []infrastructure.Star) {
				require.NotEmpty(t, stars)
				for _, s := range stars {
					assert.Greater(t, s.Magnitude, 1.5)
				}
			},
		},
		{
			name:     "invalid criteria",
			criteria: "spectral_type",
			value:    "A1V",
			wantErr:  "invalid search criteria",
		},
		{
			name:     "invalid magnitude",
			criteria: "magnitude_less_than",
			value:    "bright",
			wantErr:  "invalid magnitude value",
		},
		{
			name:     "no matches",
			criteria: "constellation",
			value:    "Atlantis",
			wantErr:  "no matches found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stars, err := adapter.SearchStars(tt.criteria, tt.value)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, stars)
		})
	}
}
