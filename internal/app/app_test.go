package app

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Networkcaretaker/real-estate-backend/internal/config"
	"github.com/Networkcaretaker/real-estate-backend/internal/storage"
)

func TestOpenFallsBackToMemory(t *testing.T) {
	log, _ := test.NewNullLogger()
	cfg := &config.Config{MediaBaseURL: "http://localhost:8080/media", SigningSecret: "s"}
	a, err := Open(context.Background(), cfg, log)
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &storage.MemoryStore{}, a.Properties)
	assert.Same(t, a.Properties, a.Images)
	require.NotNil(t, a.Media)
	assert.Same(t, a.Media, a.Blobs)
	assert.Nil(t, a.Indexer)
	assert.Empty(t, a.PipelineOptions())

	w, err := a.Writer(context.Background())
	require.NoError(t, err)
	assert.Nil(t, w)
}
