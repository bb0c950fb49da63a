package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Networkcaretaker/real-estate-backend/internal/events"
	"github.com/Networkcaretaker/real-estate-backend/internal/model"
)

// PropertyStore persists canonical properties. UpsertProperty must merge into
// an existing record (see model.Property.MergeInto) rather than replace it.
type PropertyStore interface {
	UpsertProperty(ctx context.Context, p *model.Property) (created bool, err error)
	GetProperty(ctx context.Context, id string) (*model.Property, error)
}

// Indexer receives every stored property, e.g. a search index.
type Indexer interface {
	IndexProperty(ctx context.Context, p *model.Property) error
}

// CopyQueue schedules listing copy generation for a property.
type CopyQueue interface {
	EnqueueListingCopy(ctx context.Context, propertyID string, versions []string) error
}

// Publisher receives a property.updated event per stored property.
type Publisher interface {
	Publish(ev events.Event)
}

// Result reports what Process did.
type Result struct {
	PropertyID string `json:"property_id"`
	Created    bool   `json:"created"`
	Indexed    bool   `json:"indexed"`
}

// Pipeline normalizes CRM records and stores them.
type Pipeline struct {
	store        PropertyStore
	indexer      Indexer
	copyQueue    CopyQueue
	copyVersions []string
	publisher    Publisher
	log          logrus.FieldLogger
	now          func() time.Time
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithIndexer indexes each stored property after the upsert.
func WithIndexer(ix Indexer) Option {
	return func(p *Pipeline) { p.indexer = ix }
}

// WithCopyQueue enqueues listing copy generation for new properties.
func WithCopyQueue(q CopyQueue, versions []string) Option {
	return func(p *Pipeline) {
		p.copyQueue = q
		p.copyVersions = versions
	}
}

// WithPublisher announces stored properties.
func WithPublisher(pub Publisher) Option {
	return func(p *Pipeline) { p.publisher = pub }
}

// New constructs a Pipeline.
func New(store PropertyStore, log logrus.FieldLogger, opts ...Option) *Pipeline {
	p := &Pipeline{
		store: store,
		log:   log.WithField("service", "data_pipeline"),
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process normalizes rec and upserts it keyed by its external id. Nothing is
// written when normalization fails.
func (p *Pipeline) Process(ctx context.Context, rec model.CRMRecord) (*Result, error) {
	id := rec.ID.String()
	log := p.log.WithField("property_id", id)
	log.Info("processing_property_data")

	if id == "" {
		return nil, fmt.Errorf("%w: missing property id", model.ErrValidation)
	}
	prop, err := Normalize(rec)
	if err != nil {
		log.WithError(err).Error("property_data_processing_error")
		return nil, err
	}
	now := p.now()
	prop.CreatedAt = now
	prop.UpdatedAt = now

	created, err := p.store.UpsertProperty(ctx, prop)
	if err != nil {
		log.WithError(err).Error("property_update_failed")
		return nil, fmt.Errorf("upsert property %s: %w", id, err)
	}

	// The stored property is the source of truth; a stale search document is
	// repaired by the next update of the property.
	indexed := false
	if p.indexer != nil {
		if err := p.index(ctx, id); err != nil {
			log.WithError(err).Error("property_index_failed")
		} else {
			indexed = true
		}
	}

	if created && p.copyQueue != nil && len(p.copyVersions) > 0 {
		if err := p.copyQueue.EnqueueListingCopy(ctx, id, p.copyVersions); err != nil {
			log.WithError(err).Error("listing_copy_enqueue_failed")
			return nil, fmt.Errorf("enqueue listing copy %s: %w", id, err)
		}
	}

	if p.publisher != nil {
		p.publisher.Publish(events.Event{Type: events.PropertyUpdated, PropertyID: id})
	}
	log.WithField("created", created).Info("property_data_processed")
	return &Result{PropertyID: id, Created: created, Indexed: indexed}, nil
}

func (p *Pipeline) index(ctx context.Context, id string) error {
	stored, err := p.store.GetProperty(ctx, id)
	if err != nil {
		return fmt.Errorf("reload property %s: %w", id, err)
	}
	if err := p.indexer.IndexProperty(ctx, stored); err != nil {
		return fmt.Errorf("index property %s: %w", id, err)
	}
	return nil
}
