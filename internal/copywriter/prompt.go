package copywriter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Networkcaretaker/real-estate-backend/internal/features"
	"github.com/Networkcaretaker/real-estate-backend/internal/model"
)

func imagePrompt(title, description string, versions []string) string {
	return fmt.Sprintf(`As a high-end real estate image specialist, analyze this property image and provide a professional, SEO-optimized title and description. Highlight key selling points visible in the image, use real estate industry terminology, incorporate relevant keywords naturally and focus on unique, visible features.

Provide a response using the selected tone for each of the following versions: %s.

For additional reference here is the:
Property Title: %s
Property Description: %s

Respond in JSON format with an array of objects containing:
"version": "version type",
"image_title": "Brief, compelling title (max 80 chars)",
"image_description": "Detailed, SEO-optimized description (max 300 chars)"
`, strings.Join(versions, ", "), title, description)
}

func listingPrompt(p *model.Property, versions []string, withImage bool) string {
	var feats []string
	for _, cat := range features.Precedence {
		feats = append(feats, p.Features[cat]...)
	}
	imageNote := ""
	if withImage {
		imageNote = " Use the attached feature photo to describe the property's character."
	}
	return fmt.Sprintf(`As a high-end real estate copywriter, write marketing copy for this property listing.%s

Provide a response using the selected tone for each of the following versions: %s.

Property Title: %s
Property Type: %s
Location: %s
Bedrooms: %s
Bathrooms: %s
Price: %.0f
Features: %s
Current Description: %s

Respond in JSON format with an array of objects containing:
"version": "version type",
"title": "Listing title (max 80 chars)",
"description": "Full listing description (max 1200 chars)",
"excerpt": "Short teaser (max 160 chars)"
`, imageNote, strings.Join(versions, ", "), p.Title, p.Details.PropertyType,
		location(p.Location), p.Rooms.Bedrooms, p.Rooms.Bathrooms, p.Price,
		strings.Join(feats, ", "), p.Description)
}

func location(l model.Location) string {
	var parts []string
	for _, s := range []string{l.Town, l.Municipality, l.Region, l.Country} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

// parseVersions decodes a model reply into copy versions. Every item must
// carry all required keys.
func parseVersions(reply string, required ...string) ([]model.CopyVersion, error) {
	cleaned := strings.TrimSpace(reply)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty response from generative model", model.ErrProcessing)
	}

	var items []map[string]any
	if err := json.Unmarshal([]byte(cleaned), &items); err != nil {
		return nil, fmt.Errorf("%w: parse generated copy: %v", model.ErrProcessing, err)
	}
	out := make([]model.CopyVersion, 0, len(items))
	for i, item := range items {
		for _, key := range required {
			if _, ok := item[key]; !ok {
				return nil, fmt.Errorf("%w: generated item %d missing %q", model.ErrProcessing, i, key)
			}
		}
		out = append(out, model.CopyVersion{
			Version:          text(item["version"]),
			ImageTitle:       text(item["image_title"]),
			ImageDescription: text(item["image_description"]),
			Title:            text(item["title"]),
			Description:      text(item["description"]),
			Excerpt:          text(item["excerpt"]),
		})
	}
	return out, nil
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
