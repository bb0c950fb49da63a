// Package images handles property photo uploads and their metadata.
package images

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Networkcaretaker/real-estate-backend/internal/derive"
	"github.com/Networkcaretaker/real-estate-backend/internal/events"
	"github.com/Networkcaretaker/real-estate-backend/internal/model"
	"github.com/Networkcaretaker/real-estate-backend/internal/processing"
	"github.com/Networkcaretaker/real-estate-backend/internal/sequence"
)

// PropertyGetter loads canonical properties.
type PropertyGetter interface {
	GetProperty(ctx context.Context, id string) (*model.Property, error)
}

// ImageStore persists image records.
type ImageStore interface {
	ImageFilenames(ctx context.Context, propertyID string) ([]string, error)
	CreateImage(ctx context.Context, img *model.Image) error
	GetImage(ctx context.Context, propertyID, imageID string) (*model.Image, error)
	ListImages(ctx context.Context, propertyID string) ([]*model.Image, error)
	UpdateImage(ctx context.Context, propertyID, imageID string, upd model.ImageUpdate) (*model.Image, error)
	DeleteImage(ctx context.Context, propertyID, imageID string) error
}

// BlobStore stores rendition bytes. Put returns the object's URL, which URL
// also computes without writing.
type BlobStore interface {
	URL(key string) string
	Put(ctx context.Context, key string, data []byte, contentType, cacheControl string) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Deriver renders the stored variants of one upload.
type Deriver interface {
	Derive(raw []byte) (map[model.Variant][]byte, error)
}

// Publisher receives upload notifications.
type Publisher interface {
	Publish(ev events.Event)
}

// Upload is one file of an upload request. Size is the size declared by the
// client, or 0 when unknown.
type Upload struct {
	Filename string
	Size     int64
	Data     []byte
}

// Failure describes a file that passed the acceptance check but was not stored.
type Failure struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// UploadReport lists the stored images in request order and the failures.
type UploadReport struct {
	Images   []*model.Image `json:"images"`
	Failures []Failure      `json:"failures"`
}

const contentType = "image/jpeg"

// ObjectKey is the blob key of one rendition.
func ObjectKey(propertyID, folder, filename string) string {
	return fmt.Sprintf("properties/%s/%s/%s", propertyID, folder, filename)
}

// Service implements image uploads and metadata edits.
type Service struct {
	props     PropertyGetter
	store     ImageStore
	blobs     BlobStore
	deriver   Deriver
	seq       *sequence.Sequencer
	pool      *processing.Pool
	publisher Publisher
	log       logrus.FieldLogger
}

// NewService constructs a Service. publisher may be nil.
func NewService(props PropertyGetter, store ImageStore, blobs BlobStore, deriver Deriver, pool *processing.Pool, publisher Publisher, log logrus.FieldLogger) *Service {
	return &Service{
		props:     props,
		store:     store,
		blobs:     blobs,
		deriver:   deriver,
		seq:       sequence.New(store),
		pool:      pool,
		publisher: publisher,
		log:       log.WithField("service", "image_service"),
	}
}

// Upload stores every file of the request for propertyID. All files are
// checked before any work starts; a single rejected file rejects the batch.
// After that, files are handled independently and failures are reported per
// file without undoing the files already stored.
func (s *Service) Upload(ctx context.Context, propertyID string, files []Upload) (*UploadReport, error) {
	log := s.log.WithField("property_id", propertyID)
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files provided", model.ErrValidation)
	}
	if _, err := s.props.GetProperty(ctx, propertyID); err != nil {
		return nil, err
	}
	for _, f := range files {
		if err := derive.Accept(f.Filename, f.Size); err != nil {
			log.WithError(err).Warn("image_upload_rejected")
			return nil, err
		}
	}

	rendered := make([]map[model.Variant][]byte, len(files))
	errs := make([]error, len(files))
	s.pool.Run(ctx, len(files), func(ctx context.Context, i int) {
		if err := ctx.Err(); err != nil {
			errs[i] = err
			return
		}
		rendered[i], errs[i] = s.deriver.Derive(files[i].Data)
	})

	unlock := s.seq.Lock(propertyID)
	defer unlock()
	next, err := s.seq.NextOrdinal(ctx, propertyID)
	if err != nil {
		return nil, err
	}

	report := &UploadReport{Images: []*model.Image{}, Failures: []Failure{}}
	for i, f := range files {
		if errs[i] == nil && rendered[i] == nil {
			errs[i] = fmt.Errorf("%w: not processed", model.ErrProcessing)
			if ctxErr := ctx.Err(); ctxErr != nil {
				errs[i] = ctxErr
			}
		}
		if errs[i] != nil {
			log.WithError(errs[i]).WithField("filename", f.Filename).Error("image_processing_failed")
			report.Failures = append(report.Failures, Failure{Filename: f.Filename, Error: errs[i].Error()})
			continue
		}
		img, err := s.storeOne(ctx, propertyID, &next, rendered[i])
		if err != nil {
			log.WithError(err).WithField("filename", f.Filename).Error("image_upload_failed")
			report.Failures = append(report.Failures, Failure{Filename: f.Filename, Error: err.Error()})
			continue
		}
		report.Images = append(report.Images, img)
	}

	log.WithFields(logrus.Fields{
		"stored": len(report.Images),
		"failed": len(report.Failures),
	}).Info("images_uploaded")

	if s.publisher != nil && len(report.Images) > 0 {
		ids := make([]string, 0, len(report.Images))
		for _, img := range report.Images {
			ids = append(ids, img.ID)
		}
		s.publisher.Publish(events.Event{
			Type:       events.ImagesUploaded,
			PropertyID: propertyID,
			ImageIDs:   ids,
			Failed:     len(report.Failures),
		})
	}
	return report, nil
}

// maxOrdinalAttempts bounds how often storeOne moves past a taken ordinal.
const maxOrdinalAttempts = 5

// storeOne reserves an ordinal by creating the image record, then writes the
// renditions under it. Renditions are therefore only ever written for an
// ordinal this call owns. When a write fails the record is removed again, so
// only stored files consume an ordinal. On success *next is the ordinal after
// the one used.
func (s *Service) storeOne(ctx context.Context, propertyID string, next *int, rendered map[model.Variant][]byte) (*model.Image, error) {
	for _, spec := range derive.Specs {
		if _, ok := rendered[spec.Variant]; !ok {
			return nil, fmt.Errorf("%w: missing %s rendition", model.ErrProcessing, spec.Variant)
		}
	}

	var img *model.Image
	for attempt := 1; ; attempt++ {
		img = s.newImage(propertyID, *next)
		err := s.store.CreateImage(ctx, img)
		if err == nil {
			break
		}
		if !errors.Is(err, model.ErrConflict) || attempt >= maxOrdinalAttempts {
			return nil, fmt.Errorf("create image record: %w", err)
		}
		s.log.WithFields(logrus.Fields{"property_id": propertyID, "ordinal": *next}).Warn("image_ordinal_taken")
		fresh, err := s.seq.NextOrdinal(ctx, propertyID)
		if err != nil {
			return nil, err
		}
		if fresh <= *next {
			fresh = *next + 1
		}
		*next = fresh
	}

	for _, spec := range derive.Specs {
		key := ObjectKey(propertyID, spec.Folder, img.Filename)
		if _, err := s.blobs.Put(ctx, key, rendered[spec.Variant], contentType, spec.CacheControl); err != nil {
			if derr := s.store.DeleteImage(context.WithoutCancel(ctx), propertyID, img.ID); derr != nil {
				s.log.WithError(derr).WithField("image_id", img.ID).Error("image_record_cleanup_failed")
			}
			return nil, fmt.Errorf("store %s rendition: %w", spec.Variant, err)
		}
	}
	*next++
	return img, nil
}

func (s *Service) newImage(propertyID string, ordinal int) *model.Image {
	filename := sequence.Filename(propertyID, ordinal)
	urls := make(map[model.Variant]string, len(derive.Specs))
	for _, spec := range derive.Specs {
		urls[spec.Variant] = s.blobs.URL(ObjectKey(propertyID, spec.Folder, filename))
	}
	now := time.Now().UTC()
	return &model.Image{
		ID:         uuid.NewString(),
		PropertyID: propertyID,
		URLs:       urls,
		Filename:   filename,
		Ordinal:    ordinal,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// UpdateMetadata edits an image's title and description.
func (s *Service) UpdateMetadata(ctx context.Context, propertyID, imageID string, upd model.ImageUpdate) (*model.Image, error) {
	if upd.Empty() {
		return nil, fmt.Errorf("%w: nothing to update, only title and description are editable", model.ErrValidation)
	}
	img, err := s.store.UpdateImage(ctx, propertyID, imageID, upd)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"property_id": propertyID, "image_id": imageID}).Info("image_metadata_updated")
	return img, nil
}

// SignedURL returns a time-limited URL for one rendition of an image.
func (s *Service) SignedURL(ctx context.Context, propertyID, imageID string, variant model.Variant, ttl time.Duration) (string, error) {
	spec, ok := derive.SpecFor(variant)
	if !ok {
		return "", fmt.Errorf("%w: unknown variant %q", model.ErrValidation, variant)
	}
	img, err := s.store.GetImage(ctx, propertyID, imageID)
	if err != nil {
		return "", err
	}
	u, err := s.blobs.SignedURL(ctx, ObjectKey(propertyID, spec.Folder, img.Filename), ttl)
	if err != nil {
		return "", fmt.Errorf("sign url: %w", err)
	}
	return u, nil
}

// List returns the images of a property ordered by ordinal.
func (s *Service) List(ctx context.Context, propertyID string) ([]*model.Image, error) {
	if _, err := s.props.GetProperty(ctx, propertyID); err != nil {
		return nil, err
	}
	return s.store.ListImages(ctx, propertyID)
}
