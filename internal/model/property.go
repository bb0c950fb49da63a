// Package model contains the struct definitions shared across packages: the
// canonical property, the CRM payload it is built from, and image records.
package model

import "time"

// WebsiteStatus controls whether a listing is published.
type WebsiteStatus string

const (
	StatusDisabled WebsiteStatus = "disabled"
	StatusEnabled  WebsiteStatus = "enabled"
)

// Property is the canonical, storage-ready listing. JSON tags match the
// document layout persisted by the stores.
type Property struct {
	ID            string              `json:"id"`
	Title         string              `json:"title"`
	Description   string              `json:"description"`
	Excerpt       string              `json:"excerpt"`
	Price         float64             `json:"price"`
	WebsiteStatus WebsiteStatus       `json:"website_status"`
	Location      Location            `json:"location"`
	Details       Details             `json:"details"`
	Rooms         Rooms               `json:"rooms"`
	Features      map[string][]string `json:"features"`
	Flags         Flags               `json:"flags"`
	Media         Media               `json:"media"`
	AIMeta        []CopyVersion       `json:"ai_meta,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

type Location struct {
	Country      string `json:"country"`
	Region       string `json:"region"`
	Municipality string `json:"municipality"`
	Town         string `json:"town"`
	Postcode     string `json:"postcode"`
}

type Details struct {
	PropertyType string `json:"property_type"`
	AreaPlot     string `json:"area_plot"`
	AreaProperty string `json:"area_property"`
}

type Rooms struct {
	Bedrooms  string `json:"bedrooms"`
	Bathrooms string `json:"bathrooms"`
}

// Flags and Media are agency-managed. The normalizer only initializes them;
// stores keep the existing values when a property is upserted again.
type Flags struct {
	Sold    bool `json:"sold"`
	Reduced bool `json:"reduced"`
}

type Media struct {
	FeatureImageID   *string  `json:"feature_image_id"`
	InteriorImageIDs []string `json:"interior_image_ids"`
	ExteriorImageIDs []string `json:"exterior_image_ids"`
}

// DefaultFlags returns the flags every new property starts with.
func DefaultFlags() Flags {
	return Flags{}
}

// DefaultMedia returns an empty media selection. Slices are non-nil so they
// encode as [] rather than null.
func DefaultMedia() Media {
	return Media{
		FeatureImageID:   nil,
		InteriorImageIDs: []string{},
		ExteriorImageIDs: []string{},
	}
}

// MergeInto copies the CRM-sourced fields of p onto existing, keeping the
// agency-managed state (status, flags, media, AI copy, creation time).
func (p *Property) MergeInto(existing *Property) *Property {
	merged := *existing
	merged.Title = p.Title
	merged.Description = p.Description
	merged.Excerpt = p.Excerpt
	merged.Price = p.Price
	merged.Location = p.Location
	merged.Details = p.Details
	merged.Rooms = p.Rooms
	merged.Features = p.Features
	merged.UpdatedAt = p.UpdatedAt
	return &merged
}
