// Package api exposes the HTTP interface: the CRM webhook, image management,
// copy generation, signed media downloads and the event stream.
package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/Networkcaretaker/real-estate-backend/internal/config"
	"github.com/Networkcaretaker/real-estate-backend/internal/events"
	"github.com/Networkcaretaker/real-estate-backend/internal/images"
	"github.com/Networkcaretaker/real-estate-backend/internal/model"
	"github.com/Networkcaretaker/real-estate-backend/internal/pipeline"
	"github.com/Networkcaretaker/real-estate-backend/internal/queue"
	"github.com/Networkcaretaker/real-estate-backend/internal/storage"
)

// PropertyProcessor runs CRM records through the pipeline.
type PropertyProcessor interface {
	Process(ctx context.Context, rec model.CRMRecord) (*pipeline.Result, error)
}

// PropertyReader loads canonical properties.
type PropertyReader interface {
	GetProperty(ctx context.Context, id string) (*model.Property, error)
}

// ImageService manages property images.
type ImageService interface {
	Upload(ctx context.Context, propertyID string, files []images.Upload) (*images.UploadReport, error)
	UpdateMetadata(ctx context.Context, propertyID, imageID string, upd model.ImageUpdate) (*model.Image, error)
	SignedURL(ctx context.Context, propertyID, imageID string, variant model.Variant, ttl time.Duration) (string, error)
	List(ctx context.Context, propertyID string) ([]*model.Image, error)
}

// ImageCopywriter generates image copy synchronously.
type ImageCopywriter interface {
	ImageCopy(ctx context.Context, propertyID, imageID string, versions []string) ([]model.CopyVersion, error)
}

// CopyEnqueuer schedules listing copy generation.
type CopyEnqueuer interface {
	Enqueue(ctx context.Context, payload queue.ListingCopyPayload) (string, error)
}

// MediaStore serves objects of the local blob store behind signed URLs.
type MediaStore interface {
	Object(key string) (storage.Object, bool)
	Verify(key, expires, signature string) bool
}

// Publisher receives copy generation events.
type Publisher interface {
	Publish(ev events.Event)
}

// Options carries the Server's collaborators. Copywriter, Queue, Media,
// Events and Publisher are optional; their routes answer 503 or are not
// mounted when nil.
type Options struct {
	Config     *config.Config
	Pipeline   PropertyProcessor
	Properties PropertyReader
	Images     ImageService
	Copywriter ImageCopywriter
	Queue      CopyEnqueuer
	Media      MediaStore
	Events     http.Handler
	Publisher  Publisher
	Log        logrus.FieldLogger
}

// Server exposes HTTP endpoints for the content backend.
type Server struct {
	opts   Options
	log    logrus.FieldLogger
	server *http.Server
	once   sync.Once
}

// New constructs a Server.
func New(opts Options) *Server {
	return &Server{opts: opts, log: opts.Log.WithField("service", "api")}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.loggingMiddleware)
	r.Use(corsMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/health", s.handleHealth)

	if s.opts.Media != nil {
		r.Get("/media/*", s.handleMedia)
	}
	if s.opts.Events != nil {
		r.Handle("/ws", s.opts.Events)
	}

	r.Group(func(r chi.Router) {
		r.Use(s.basicAuth)
		r.Post("/webhook/property", s.handleWebhook)

		r.Route("/api", func(r chi.Router) {
			r.Route("/properties/{pid}", func(r chi.Router) {
				r.Get("/", s.handleGetProperty)
				r.Post("/images", s.handleUploadImages)
				r.Get("/images", s.handleListImages)
				r.Put("/images/{iid}", s.handleUpdateImage)
				r.Get("/images/{iid}/signed-url", s.handleSignedURL)
			})
			r.Post("/ai/analyze-image", s.handleAnalyzeImage)
			r.Post("/ai/listing-copy", s.handleListingCopy)
		})
	})
	return r
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.once.Do(func() {
		s.server = &http.Server{
			Addr:              s.opts.Config.Address,
			Handler:           s.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
	})
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()
	s.log.WithField("address", s.opts.Config.Address).Info("api_listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
