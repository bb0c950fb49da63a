package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Networkcaretaker/real-estate-backend/internal/events"
	"github.com/Networkcaretaker/real-estate-backend/internal/model"
	"github.com/Networkcaretaker/real-estate-backend/internal/storage"
)

type recordingIndexer struct {
	indexed []*model.Property
	err     error
}

func (r *recordingIndexer) IndexProperty(_ context.Context, p *model.Property) error {
	r.indexed = append(r.indexed, p)
	return r.err
}

type recordingQueue struct {
	ids []string
}

func (r *recordingQueue) EnqueueListingCopy(_ context.Context, id string, _ []string) error {
	r.ids = append(r.ids, id)
	return nil
}

func newLogger() logrus.FieldLogger {
	log, _ := test.NewNullLogger()
	return log
}

func TestProcessCreatesAndMerges(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	ix := &recordingIndexer{}
	q := &recordingQueue{}
	p := New(store, newLogger(), WithIndexer(ix), WithCopyQueue(q, []string{"professional"}))

	res, err := p.Process(ctx, model.CRMRecord{ID: "P1", Title: "First", Price: "100"})
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, "P1", res.PropertyID)
	assert.Equal(t, []string{"P1"}, q.ids)

	// Agency edits that a CRM resend must not clobber.
	stored, err := store.GetProperty(ctx, "P1")
	require.NoError(t, err)
	created := stored.CreatedAt
	require.NoError(t, store.UpdatePropertyAIMeta(ctx, "P1", []model.CopyVersion{{Version: "concise", Title: "t"}}))

	p.now = func() time.Time { return created.Add(time.Hour) }
	res, err = p.Process(ctx, model.CRMRecord{ID: "P1", Title: "Second", Price: "200"})
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Len(t, q.ids, 1, "copy is only queued for new properties")

	stored, err = store.GetProperty(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, "Second", stored.Title)
	assert.Equal(t, 200.0, stored.Price)
	assert.Equal(t, created, stored.CreatedAt)
	assert.True(t, stored.UpdatedAt.After(created))
	require.Len(t, stored.AIMeta, 1)
	assert.Equal(t, "concise", stored.AIMeta[0].Version)
	assert.Len(t, ix.indexed, 2)
}

func TestProcessMissingID(t *testing.T) {
	store := storage.NewMemoryStore()
	p := New(store, newLogger())

	_, err := p.Process(context.Background(), model.CRMRecord{Title: "no id"})
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestProcessInvalidPriceWritesNothing(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	p := New(store, newLogger())

	_, err := p.Process(ctx, model.CRMRecord{ID: "P9", Price: "abc"})
	require.ErrorIs(t, err, model.ErrValidation)

	_, err = store.GetProperty(ctx, "P9")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestProcessIndexFailure(t *testing.T) {
	boom := errors.New("index unavailable")
	store := storage.NewMemoryStore()
	ix := &recordingIndexer{err: boom}
	p := New(store, newLogger(), WithIndexer(ix))

	res, err := p.Process(context.Background(), model.CRMRecord{ID: "P2"})
	require.NoError(t, err, "a saved property is reported as processed")
	assert.True(t, res.Created)
	assert.False(t, res.Indexed)
	assert.Len(t, ix.indexed, 1)

	_, err = store.GetProperty(context.Background(), "P2")
	assert.NoError(t, err)

	ix.err = nil
	res, err = p.Process(context.Background(), model.CRMRecord{ID: "P2"})
	require.NoError(t, err)
	assert.True(t, res.Indexed)
}

type recordingPublisher struct {
	events []events.Event
}

func (r *recordingPublisher) Publish(ev events.Event) {
	r.events = append(r.events, ev)
}

func TestProcessPublishesOnlyStoredProperties(t *testing.T) {
	pub := &recordingPublisher{}
	p := New(storage.NewMemoryStore(), newLogger(), WithPublisher(pub))

	_, err := p.Process(context.Background(), model.CRMRecord{ID: "P1"})
	require.NoError(t, err)
	_, err = p.Process(context.Background(), model.CRMRecord{ID: "P2", Price: "call us"})
	require.Error(t, err)

	require.Len(t, pub.events, 1)
	assert.Equal(t, events.PropertyUpdated, pub.events[0].Type)
	assert.Equal(t, "P1", pub.events[0].PropertyID)
}
