// Package storage contains the in-memory property and image stores used by
// the development server and tests. They follow the same merge rules as the
// PostgreSQL repositories.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Networkcaretaker/real-estate-backend/internal/model"
)

// MemoryStore keeps properties and their images in maps guarded by a RWMutex.
type MemoryStore struct {
	mu         sync.RWMutex
	properties map[string]*model.Property
	// images is keyed by property id, then image id.
	images map[string]map[string]*model.Image
}

// NewMemoryStore constructs a MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		properties: make(map[string]*model.Property),
		images:     make(map[string]map[string]*model.Image),
	}
}

// UpsertProperty inserts p, or merges its CRM fields into the existing record.
func (m *MemoryStore) UpsertProperty(_ context.Context, p *model.Property) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}
	existing, ok := m.properties[p.ID]
	if !ok {
		rec := cloneProperty(p)
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		m.properties[p.ID] = rec
		return true, nil
	}
	m.properties[p.ID] = cloneProperty(p.MergeInto(existing))
	return false, nil
}

// GetProperty returns a copy of the stored property.
func (m *MemoryStore) GetProperty(_ context.Context, id string) (*model.Property, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.properties[id]
	if !ok {
		return nil, fmt.Errorf("property %s: %w", id, model.ErrNotFound)
	}
	return cloneProperty(p), nil
}

// UpdatePropertyAIMeta replaces the generated listing copy.
func (m *MemoryStore) UpdatePropertyAIMeta(_ context.Context, id string, meta []model.CopyVersion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.properties[id]
	if !ok {
		return fmt.Errorf("property %s: %w", id, model.ErrNotFound)
	}
	p.AIMeta = append([]model.CopyVersion(nil), meta...)
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// ImageFilenames lists the filenames of all images stored for a property.
func (m *MemoryStore) ImageFilenames(_ context.Context, propertyID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.images[propertyID]))
	for _, img := range m.images[propertyID] {
		names = append(names, img.Filename)
	}
	return names, nil
}

// CreateImage stores a new image record. Ordinals are unique per property.
func (m *MemoryStore) CreateImage(_ context.Context, img *model.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byID, ok := m.images[img.PropertyID]
	if !ok {
		byID = make(map[string]*model.Image)
		m.images[img.PropertyID] = byID
	}
	for _, other := range byID {
		if other.Ordinal == img.Ordinal {
			return fmt.Errorf("%w: image ordinal %d already used for property %s", model.ErrConflict, img.Ordinal, img.PropertyID)
		}
	}
	now := time.Now().UTC()
	if img.CreatedAt.IsZero() {
		img.CreatedAt = now
	}
	if img.UpdatedAt.IsZero() {
		img.UpdatedAt = now
	}
	byID[img.ID] = cloneImage(img)
	return nil
}

// DeleteImage removes one image record.
func (m *MemoryStore) DeleteImage(_ context.Context, propertyID, imageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.images[propertyID][imageID]; !ok {
		return fmt.Errorf("image %s: %w", imageID, model.ErrNotFound)
	}
	delete(m.images[propertyID], imageID)
	return nil
}

// GetImage returns a copy of one image record.
func (m *MemoryStore) GetImage(_ context.Context, propertyID, imageID string) (*model.Image, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	img, ok := m.images[propertyID][imageID]
	if !ok {
		return nil, fmt.Errorf("image %s: %w", imageID, model.ErrNotFound)
	}
	return cloneImage(img), nil
}

// ListImages returns the property's images ordered by ordinal.
func (m *MemoryStore) ListImages(_ context.Context, propertyID string) ([]*model.Image, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.Image, 0, len(m.images[propertyID]))
	for _, img := range m.images[propertyID] {
		out = append(out, cloneImage(img))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ordinal < out[j].Ordinal })
	return out, nil
}

// UpdateImage applies the mutable fields of upd and returns the new record.
func (m *MemoryStore) UpdateImage(_ context.Context, propertyID, imageID string, upd model.ImageUpdate) (*model.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	img, ok := m.images[propertyID][imageID]
	if !ok {
		return nil, fmt.Errorf("image %s: %w", imageID, model.ErrNotFound)
	}
	if upd.Title != nil {
		img.Title = *upd.Title
	}
	if upd.Description != nil {
		img.Description = *upd.Description
	}
	img.UpdatedAt = time.Now().UTC()
	return cloneImage(img), nil
}

// UpdateImageAIMeta replaces the generated copy stored on an image.
func (m *MemoryStore) UpdateImageAIMeta(_ context.Context, propertyID, imageID string, meta []model.CopyVersion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	img, ok := m.images[propertyID][imageID]
	if !ok {
		return fmt.Errorf("image %s: %w", imageID, model.ErrNotFound)
	}
	img.AIMeta = append([]model.CopyVersion(nil), meta...)
	img.UpdatedAt = time.Now().UTC()
	return nil
}

// Copies keep callers from mutating the maps' contents.
func cloneProperty(p *model.Property) *model.Property {
	c := *p
	c.Features = make(map[string][]string, len(p.Features))
	for k, v := range p.Features {
		c.Features[k] = append([]string{}, v...)
	}
	c.Media.InteriorImageIDs = append([]string{}, p.Media.InteriorImageIDs...)
	c.Media.ExteriorImageIDs = append([]string{}, p.Media.ExteriorImageIDs...)
	if p.Media.FeatureImageID != nil {
		id := *p.Media.FeatureImageID
		c.Media.FeatureImageID = &id
	}
	if p.AIMeta != nil {
		c.AIMeta = append([]model.CopyVersion(nil), p.AIMeta...)
	}
	return &c
}

func cloneImage(img *model.Image) *model.Image {
	c := *img
	c.URLs = make(map[model.Variant]string, len(img.URLs))
	for k, v := range img.URLs {
		c.URLs[k] = v
	}
	if img.AIMeta != nil {
		c.AIMeta = append([]model.CopyVersion(nil), img.AIMeta...)
	}
	return &c
}
