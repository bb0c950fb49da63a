package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Networkcaretaker/real-estate-backend/internal/model"
	"github.com/Networkcaretaker/real-estate-backend/internal/pipeline"
	"github.com/Networkcaretaker/real-estate-backend/internal/storage"
)

const header = "id,title,description,type,price,country,region,municipality,town,postcode,features\n"

func newLogger() logrus.FieldLogger {
	log, _ := test.NewNullLogger()
	return log
}

func tenRowCSV() string {
	var sb strings.Builder
	sb.WriteString(header)
	for i := 1; i <= 10; i++ {
		price := fmt.Sprintf("%d000", 100+i)
		if i == 5 {
			price = "call us"
		}
		fmt.Fprintf(&sb, "P%d,Home %d,Nice,Villa,%s,Spain,Alicante,Altea,Altea,03590,Private Pool|##|WiFi\n", i, i, price)
	}
	return sb.String()
}

func TestImportRecordsFailedRow(t *testing.T) {
	store := storage.NewMemoryStore()
	im := NewImporter(pipeline.New(store, newLogger()), 4, newLogger())

	summary, err := im.Import(context.Background(), strings.NewReader(tenRowCSV()))
	require.NoError(t, err)
	assert.Equal(t, 10, summary.Total)
	assert.Equal(t, 9, summary.Successful)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, "P5", summary.Errors[0].PropertyID)
	assert.Contains(t, summary.Errors[0].Error, "invalid price")
	assert.NotContains(t, summary.ProcessedIDs, "P5")
	assert.Len(t, summary.ProcessedIDs, 9)

	p, err := store.GetProperty(context.Background(), "P7")
	require.NoError(t, err)
	assert.Equal(t, 107000.0, p.Price)
	assert.Equal(t, "Villa", p.Details.PropertyType)
	assert.Equal(t, []string{"private pool"}, p.Features["exterior"])

	_, err = store.GetProperty(context.Background(), "P5")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestImportRowIdentity(t *testing.T) {
	csv := "CRM Reference,Title,Price\n" +
		"CRM-1,One,bad\n" +
		",Two,also bad\n"
	im := NewImporter(pipeline.New(storage.NewMemoryStore(), newLogger()), 2, newLogger())

	summary, err := im.Import(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, summary.Errors, 2)
	assert.Equal(t, "CRM-1", summary.Errors[0].PropertyID)
	assert.Equal(t, "row 2", summary.Errors[1].PropertyID)
	assert.Contains(t, summary.Errors[1].Error, "missing property id")
}

func TestImportEmptyFile(t *testing.T) {
	im := NewImporter(pipeline.New(storage.NewMemoryStore(), newLogger()), 2, newLogger())
	_, err := im.Import(context.Background(), strings.NewReader(""))
	assert.Error(t, err)

	summary, err := im.Import(context.Background(), strings.NewReader(header))
	require.NoError(t, err)
	assert.Zero(t, summary.Total)
	assert.NotNil(t, summary.Errors)
}

func TestValidateCSV(t *testing.T) {
	im := NewImporter(nil, 1, newLogger())

	missing, err := im.ValidateCSV(strings.NewReader(header))
	require.NoError(t, err)
	assert.Empty(t, missing)

	missing, err = im.ValidateCSV(strings.NewReader("ID,Title,Price,Features\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"description", "type", "country", "region", "municipality", "town", "postcode"}, missing)
}

func TestSchedulerRunNow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.csv")
	require.NoError(t, os.WriteFile(path, []byte(tenRowCSV()), 0o600))

	im := NewImporter(pipeline.New(storage.NewMemoryStore(), newLogger()), 4, newLogger())
	s := NewScheduler(im, path, newLogger())
	summary, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 9, summary.Successful)

	assert.Error(t, s.Start("not a cron spec"))
	require.NoError(t, s.Start("@every 1h"))
	s.Stop()
}

func TestSchedulerRejectsMissingColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,title\nP1,One\n"), 0o600))

	s := NewScheduler(NewImporter(nil, 1, newLogger()), path, newLogger())
	_, err := s.RunNow(context.Background())
	assert.ErrorContains(t, err, "missing columns")
}
