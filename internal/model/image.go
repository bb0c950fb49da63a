package model

import "time"

// Variant names one fixed-size rendition of an uploaded image.
type Variant string

const (
	VariantThumbnail Variant = "thumbnail"
	VariantMedium    Variant = "medium"
	VariantLarge     Variant = "large"
)

// Image is the metadata record stored for every uploaded photo. Ordinal and
// Filename never change after creation; Title and Description are edited by
// the agency or filled from generated copy.
type Image struct {
	ID          string             `json:"id"`
	PropertyID  string             `json:"property_id"`
	URLs        map[Variant]string `json:"urls"`
	Filename    string             `json:"filename"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Ordinal     int                `json:"order"`
	AIMeta      []CopyVersion      `json:"ai_meta,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// ImageUpdate carries the mutable image fields. Nil means "leave unchanged".
type ImageUpdate struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u ImageUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil
}

// CopyVersion is one tone of generated marketing copy. Image copy fills
// ImageTitle/ImageDescription; listing copy fills Title/Description/Excerpt.
type CopyVersion struct {
	Version          string `json:"version"`
	ImageTitle       string `json:"image_title,omitempty"`
	ImageDescription string `json:"image_description,omitempty"`
	Title            string `json:"title,omitempty"`
	Description      string `json:"description,omitempty"`
	Excerpt          string `json:"excerpt,omitempty"`
}
