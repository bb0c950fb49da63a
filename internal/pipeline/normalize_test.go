package pipeline

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Networkcaretaker/real-estate-backend/internal/features"
	"github.com/Networkcaretaker/real-estate-backend/internal/model"
)

func TestNormalizeDefaults(t *testing.T) {
	prop, err := Normalize(model.CRMRecord{ID: "P1"})
	require.NoError(t, err)

	assert.Equal(t, "P1", prop.ID)
	assert.Equal(t, 0.0, prop.Price)
	assert.Equal(t, model.StatusDisabled, prop.WebsiteStatus)
	assert.Equal(t, model.Location{}, prop.Location)
	assert.Equal(t, model.Details{}, prop.Details)
	assert.Equal(t, model.Rooms{}, prop.Rooms)
	assert.False(t, prop.Flags.Sold)
	assert.False(t, prop.Flags.Reduced)
	assert.Nil(t, prop.Media.FeatureImageID)
	assert.NotNil(t, prop.Media.InteriorImageIDs)
	assert.Empty(t, prop.Media.InteriorImageIDs)
	assert.NotNil(t, prop.Media.ExteriorImageIDs)
	require.Len(t, prop.Features, len(features.Precedence))
	for _, cat := range features.Precedence {
		assert.NotNil(t, prop.Features[cat], cat)
		assert.Empty(t, prop.Features[cat], cat)
	}

	raw, err := json.Marshal(prop)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"feature_image_id":null`)
	assert.Contains(t, string(raw), `"interior_image_ids":[]`)
	assert.NotContains(t, string(raw), "ai_meta")
}

func TestNormalizeFullRecord(t *testing.T) {
	var rec model.CRMRecord
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": 1042,
		"title": " Villa Azul ",
		"price": "450,000",
		"type": "Villa",
		"town": "Altea",
		"bedrooms": 4,
		"bathrooms": null,
		"features": "Private Pool|##|WiFi|##|Private Pool"
	}`), &rec))

	prop, err := Normalize(rec)
	require.NoError(t, err)
	assert.Equal(t, "1042", prop.ID)
	assert.Equal(t, "Villa Azul", prop.Title)
	assert.Equal(t, 450000.0, prop.Price)
	assert.Equal(t, "Villa", prop.Details.PropertyType)
	assert.Equal(t, "Altea", prop.Location.Town)
	assert.Equal(t, "4", prop.Rooms.Bedrooms)
	assert.Equal(t, "", prop.Rooms.Bathrooms)
	assert.Equal(t, []string{"private pool"}, prop.Features[features.Exterior])
	assert.Equal(t, []string{"wifi"}, prop.Features[features.Amenities])
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{in: "", want: 0},
		{in: "  ", want: 0},
		{in: "250000", want: 250000},
		{in: "1,250,000.50", want: 1250000.5},
		{in: "POA", wantErr: true},
		{in: "NaN", wantErr: true},
		{in: "Inf", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parsePrice(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, model.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeInvalidPrice(t *testing.T) {
	prop, err := Normalize(model.CRMRecord{ID: "P1", Price: "not-a-price"})
	assert.Nil(t, prop)
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestCRMRecordFromRow(t *testing.T) {
	rec := model.CRMRecordFromRow(map[string]string{
		"crm reference": "CRM-7",
		"type":          "Apartment",
		"price":         "",
		"features":      "Lift",
	})
	prop, err := Normalize(rec)
	require.NoError(t, err)
	assert.Equal(t, "CRM-7", prop.ID)
	assert.Equal(t, "Apartment", prop.Details.PropertyType)
	assert.Equal(t, 0.0, prop.Price)
	assert.Equal(t, []string{"lift"}, prop.Features[features.Interior])
}
