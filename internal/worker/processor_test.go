package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Networkcaretaker/real-estate-backend/internal/model"
	"github.com/Networkcaretaker/real-estate-backend/internal/queue"
)

type fakeWriter struct {
	err      error
	property string
	versions []string
}

func (f *fakeWriter) ListingCopy(_ context.Context, pid string, versions []string) ([]model.CopyVersion, error) {
	f.property = pid
	f.versions = versions
	if f.err != nil {
		return nil, f.err
	}
	return []model.CopyVersion{{Version: versions[0]}}, nil
}

func newTask(t *testing.T) *asynq.Task {
	t.Helper()
	task, err := queue.NewListingCopyTask(queue.ListingCopyPayload{PropertyID: "P1", Versions: []string{"concise"}})
	require.NoError(t, err)
	return task
}

func TestHandleListingCopy(t *testing.T) {
	log, _ := test.NewNullLogger()
	w := &fakeWriter{}
	p := NewProcessor(w, log)

	require.NoError(t, p.Handler().ProcessTask(context.Background(), newTask(t)))
	assert.Equal(t, "P1", w.property)
	assert.Equal(t, []string{"concise"}, w.versions)
}

func TestHandleListingCopyRetryPolicy(t *testing.T) {
	log, _ := test.NewNullLogger()

	permanent := &fakeWriter{err: fmt.Errorf("%w: property P1", model.ErrNotFound)}
	err := NewProcessor(permanent, log).Handler().ProcessTask(context.Background(), newTask(t))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	transient := &fakeWriter{err: errors.New("gemini: generate content: 503")}
	err = NewProcessor(transient, log).Handler().ProcessTask(context.Background(), newTask(t))
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)

	bad := asynq.NewTask(queue.ListingCopyTask, []byte("{"))
	err = NewProcessor(&fakeWriter{}, log).Handler().ProcessTask(context.Background(), bad)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
