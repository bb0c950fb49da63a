// Package worker runs queued copy generation tasks.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/Networkcaretaker/real-estate-backend/internal/model"
	"github.com/Networkcaretaker/real-estate-backend/internal/queue"
)

// ListingWriter generates and stores listing copy.
type ListingWriter interface {
	ListingCopy(ctx context.Context, propertyID string, versions []string) ([]model.CopyVersion, error)
}

// Processor is plugged into the asynq worker loop.
type Processor struct {
	writer ListingWriter
	log    logrus.FieldLogger
}

// NewProcessor constructs a worker processor.
func NewProcessor(writer ListingWriter, log logrus.FieldLogger) *Processor {
	return &Processor{writer: writer, log: log.WithField("service", "copy_worker")}
}

// Handler registers the task handlers.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.ListingCopyTask, p.handleListingCopy)
	return mux
}

// Validation and missing-property failures are not retried; anything else
// goes back to asynq's retry schedule.
func (p *Processor) handleListingCopy(ctx context.Context, task *asynq.Task) error {
	var payload queue.ListingCopyPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	log := p.log.WithField("property_id", payload.PropertyID)

	versions, err := p.writer.ListingCopy(ctx, payload.PropertyID, payload.Versions)
	if err != nil {
		log.WithError(err).Error("listing_copy_failed")
		if errors.Is(err, model.ErrValidation) || errors.Is(err, model.ErrNotFound) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}
	log.WithField("versions", len(versions)).Info("listing_copy_stored")
	return nil
}
