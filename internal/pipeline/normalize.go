// Package pipeline maps CRM listing payloads onto the canonical property
// schema and persists them.
package pipeline

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Networkcaretaker/real-estate-backend/internal/features"
	"github.com/Networkcaretaker/real-estate-backend/internal/model"
)

// Normalize builds a canonical property from a CRM record. It has no side
// effects. Status, flags and media are always the defaults; the stores keep
// existing values for those on update.
func Normalize(rec model.CRMRecord) (*model.Property, error) {
	price, err := parsePrice(rec.Price.String())
	if err != nil {
		return nil, err
	}

	feats := features.Categorize(rec.Features.String())
	if !features.Validate(feats) {
		return nil, fmt.Errorf("%w: invalid feature structure", model.ErrValidation)
	}

	return &model.Property{
		ID:            rec.ID.String(),
		Title:         rec.Title.String(),
		Description:   rec.Description.String(),
		Excerpt:       rec.Excerpt.String(),
		Price:         price,
		WebsiteStatus: model.StatusDisabled,
		Location: model.Location{
			Country:      rec.Country.String(),
			Region:       rec.Region.String(),
			Municipality: rec.Municipality.String(),
			Town:         rec.Town.String(),
			Postcode:     rec.Postcode.String(),
		},
		Details: model.Details{
			PropertyType: rec.PropertyType.String(),
			AreaPlot:     rec.AreaPlot.String(),
			AreaProperty: rec.AreaProperty.String(),
		},
		Rooms: model.Rooms{
			Bedrooms:  rec.Bedrooms.String(),
			Bathrooms: rec.Bathrooms.String(),
		},
		Features: feats,
		Flags:    model.DefaultFlags(),
		Media:    model.DefaultMedia(),
	}, nil
}

// parsePrice treats a blank price as 0. Thousands separators such as
// "250,000" are accepted.
func parsePrice(raw string) (float64, error) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if raw == "" {
		return 0, nil
	}
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, fmt.Errorf("%w: invalid price %q", model.ErrValidation, raw)
	}
	return price, nil
}
