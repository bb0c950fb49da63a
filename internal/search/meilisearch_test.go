package search

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Networkcaretaker/real-estate-backend/internal/model"
)

func TestNewDocument(t *testing.T) {
	p := &model.Property{
		ID:            "P1",
		Title:         "Villa Azul",
		Price:         450000,
		WebsiteStatus: model.StatusEnabled,
		Details:       model.Details{PropertyType: "Villa"},
		Location:      model.Location{Country: "Spain", Town: "Altea"},
		Features: map[string][]string{
			"exterior":  {"private pool"},
			"interior":  {"lift"},
			"amenities": {"wifi"},
		},
		Flags:     model.Flags{Sold: true},
		UpdatedAt: time.Unix(1700000000, 0),
	}

	doc := NewDocument(p)
	assert.Equal(t, "villa", doc.PropertyType)
	assert.Equal(t, []string{"lift", "private pool", "wifi"}, doc.Features)
	assert.True(t, doc.Sold)
	assert.Equal(t, int64(1700000000), doc.UpdatedAt)

	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"website_status":"enabled"`)
}

func TestNewDocumentNoFeatures(t *testing.T) {
	doc := NewDocument(&model.Property{ID: "P2"})
	assert.NotNil(t, doc.Features)
	assert.Empty(t, doc.Features)
}
