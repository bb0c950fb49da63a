// Package search mirrors stored properties into a Meilisearch index.
package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/meilisearch/meilisearch-go"

	"github.com/Networkcaretaker/real-estate-backend/internal/features"
	"github.com/Networkcaretaker/real-estate-backend/internal/model"
)

// Document is the flattened form of a property sent to the index.
type Document struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Excerpt       string   `json:"excerpt"`
	Description   string   `json:"description"`
	Price         float64  `json:"price"`
	WebsiteStatus string   `json:"website_status"`
	PropertyType  string   `json:"property_type"`
	Country       string   `json:"country"`
	Region        string   `json:"region"`
	Town          string   `json:"town"`
	Bedrooms      string   `json:"bedrooms"`
	Bathrooms     string   `json:"bathrooms"`
	Features      []string `json:"features"`
	Sold          bool     `json:"sold"`
	UpdatedAt     int64    `json:"updated_at"`
}

// NewDocument flattens p for indexing.
func NewDocument(p *model.Property) Document {
	feats := []string{}
	for _, cat := range features.Precedence {
		feats = append(feats, p.Features[cat]...)
	}
	return Document{
		ID:            p.ID,
		Title:         p.Title,
		Excerpt:       p.Excerpt,
		Description:   p.Description,
		Price:         p.Price,
		WebsiteStatus: string(p.WebsiteStatus),
		PropertyType:  strings.ToLower(p.Details.PropertyType),
		Country:       p.Location.Country,
		Region:        p.Location.Region,
		Town:          p.Location.Town,
		Bedrooms:      p.Rooms.Bedrooms,
		Bathrooms:     p.Rooms.Bathrooms,
		Features:      feats,
		Sold:          p.Flags.Sold,
		UpdatedAt:     p.UpdatedAt.Unix(),
	}
}

// Indexer writes property documents to one Meilisearch index.
type Indexer struct {
	client *meilisearch.Client
	index  string
}

// NewIndexer builds an Indexer for host and index uid.
func NewIndexer(host, apiKey, index string) *Indexer {
	client := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:   host,
		APIKey: apiKey,
	})
	return &Indexer{client: client, index: index}
}

// EnsureIndex creates the index and configures its attributes.
func (s *Indexer) EnsureIndex(ctx context.Context) error {
	if _, err := s.client.GetIndex(s.index); err != nil {
		if _, err := s.client.CreateIndex(&meilisearch.IndexConfig{Uid: s.index, PrimaryKey: "id"}); err != nil {
			return fmt.Errorf("create index %s: %w", s.index, err)
		}
	}
	idx := s.client.Index(s.index)
	if _, err := idx.UpdateSearchableAttributes(&[]string{
		"title", "excerpt", "description", "town", "region", "features",
	}); err != nil {
		return fmt.Errorf("update searchable attributes: %w", err)
	}
	if _, err := idx.UpdateFilterableAttributes(&[]string{
		"website_status", "property_type", "country", "region", "town", "bedrooms", "features", "sold", "price",
	}); err != nil {
		return fmt.Errorf("update filterable attributes: %w", err)
	}
	if _, err := idx.UpdateSortableAttributes(&[]string{"price", "updated_at"}); err != nil {
		return fmt.Errorf("update sortable attributes: %w", err)
	}
	return ctx.Err()
}

// IndexProperty adds or replaces the document of p. Meilisearch applies the
// write asynchronously.
func (s *Indexer) IndexProperty(_ context.Context, p *model.Property) error {
	if _, err := s.client.Index(s.index).AddDocuments([]Document{NewDocument(p)}, "id"); err != nil {
		return fmt.Errorf("index property %s: %w", p.ID, err)
	}
	return nil
}
