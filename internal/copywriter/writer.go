// Package copywriter generates marketing copy for property photos and
// listings with a generative model.
package copywriter

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Networkcaretaker/real-estate-backend/internal/derive"
	"github.com/Networkcaretaker/real-estate-backend/internal/images"
	"github.com/Networkcaretaker/real-estate-backend/internal/model"
)

// Generator produces text for a prompt and an optional image.
type Generator interface {
	Generate(ctx context.Context, prompt string, image []byte) (string, error)
}

// ValidVersions are the tones a caller may request.
var ValidVersions = []string{"professional", "luxury", "concise", "funny", "call to action"}

// PropertyStore loads properties and stores their generated listing copy.
type PropertyStore interface {
	GetProperty(ctx context.Context, id string) (*model.Property, error)
	UpdatePropertyAIMeta(ctx context.Context, id string, meta []model.CopyVersion) error
}

// ImageStore loads images and stores their generated copy.
type ImageStore interface {
	GetImage(ctx context.Context, propertyID, imageID string) (*model.Image, error)
	ListImages(ctx context.Context, propertyID string) ([]*model.Image, error)
	UpdateImageAIMeta(ctx context.Context, propertyID, imageID string, meta []model.CopyVersion) error
}

// BlobReader reads stored renditions.
type BlobReader interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// Writer builds prompts, calls the Generator and stores the parsed copy.
type Writer struct {
	gen    Generator
	props  PropertyStore
	images ImageStore
	blobs  BlobReader
	log    logrus.FieldLogger
}

// NewWriter constructs a Writer.
func NewWriter(gen Generator, props PropertyStore, imgs ImageStore, blobs BlobReader, log logrus.FieldLogger) *Writer {
	return &Writer{
		gen:    gen,
		props:  props,
		images: imgs,
		blobs:  blobs,
		log:    log.WithField("service", "ai_service"),
	}
}

// ValidateVersions rejects empty lists and unknown tones.
func ValidateVersions(versions []string) error {
	if len(versions) == 0 {
		return fmt.Errorf("%w: at least one version is required", model.ErrValidation)
	}
	for _, v := range versions {
		ok := false
		for _, valid := range ValidVersions {
			if v == valid {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("%w: invalid version %q, must be one of: %s",
				model.ErrValidation, v, strings.Join(ValidVersions, ", "))
		}
	}
	return nil
}

// ImageCopy generates a title and description per version for one image and
// stores them as the image's AI metadata.
func (w *Writer) ImageCopy(ctx context.Context, propertyID, imageID string, versions []string) ([]model.CopyVersion, error) {
	log := w.log.WithFields(logrus.Fields{"property_id": propertyID, "image_id": imageID})
	if err := ValidateVersions(versions); err != nil {
		return nil, err
	}
	prop, err := w.props.GetProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	img, err := w.images.GetImage(ctx, propertyID, imageID)
	if err != nil {
		return nil, err
	}
	data, err := w.readLarge(ctx, img)
	if err != nil {
		log.WithError(err).Error("image_fetch_error")
		return nil, err
	}

	log.Info("generating_ai_content")
	reply, err := w.gen.Generate(ctx, imagePrompt(prop.Title, prop.Description, versions), data)
	if err != nil {
		log.WithError(err).Error("ai_request_error")
		return nil, err
	}
	result, err := parseVersions(reply, "version", "image_title", "image_description")
	if err != nil {
		log.WithError(err).Error("response_parse_error")
		return nil, err
	}
	if err := w.images.UpdateImageAIMeta(ctx, propertyID, imageID, result); err != nil {
		return nil, fmt.Errorf("store image copy: %w", err)
	}
	log.WithField("versions", len(result)).Info("ai_content_generated_successfully")
	return result, nil
}

// ListingCopy generates a title, description and excerpt per version for a
// property. The feature image, or else the first image, is sent along when
// the property has one.
func (w *Writer) ListingCopy(ctx context.Context, propertyID string, versions []string) ([]model.CopyVersion, error) {
	log := w.log.WithField("property_id", propertyID)
	if err := ValidateVersions(versions); err != nil {
		return nil, err
	}
	prop, err := w.props.GetProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	img, err := w.coverImage(ctx, prop)
	if err != nil {
		return nil, err
	}
	var data []byte
	if img != nil {
		if data, err = w.readLarge(ctx, img); err != nil {
			log.WithError(err).Error("image_fetch_error")
			return nil, err
		}
	}

	log.Info("generating_listing_copy")
	reply, err := w.gen.Generate(ctx, listingPrompt(prop, versions, img != nil), data)
	if err != nil {
		log.WithError(err).Error("ai_request_error")
		return nil, err
	}
	result, err := parseVersions(reply, "version", "title", "description", "excerpt")
	if err != nil {
		log.WithError(err).Error("response_parse_error")
		return nil, err
	}
	if err := w.props.UpdatePropertyAIMeta(ctx, propertyID, result); err != nil {
		return nil, fmt.Errorf("store listing copy: %w", err)
	}
	log.WithField("versions", len(result)).Info("listing_copy_generated")
	return result, nil
}

func (w *Writer) coverImage(ctx context.Context, prop *model.Property) (*model.Image, error) {
	if id := prop.Media.FeatureImageID; id != nil && *id != "" {
		img, err := w.images.GetImage(ctx, prop.ID, *id)
		if err == nil {
			return img, nil
		}
		w.log.WithError(err).WithField("property_id", prop.ID).Warn("feature_image_missing")
	}
	list, err := w.images.ListImages(ctx, prop.ID)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (w *Writer) readLarge(ctx context.Context, img *model.Image) ([]byte, error) {
	spec, _ := derive.SpecFor(model.VariantLarge)
	data, err := w.blobs.Get(ctx, images.ObjectKey(img.PropertyID, spec.Folder, img.Filename))
	if err != nil {
		return nil, fmt.Errorf("read image %s: %w", img.ID, err)
	}
	return data, nil
}
