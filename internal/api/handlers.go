package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Networkcaretaker/real-estate-backend/internal/copywriter"
	"github.com/Networkcaretaker/real-estate-backend/internal/events"
	"github.com/Networkcaretaker/real-estate-backend/internal/images"
	"github.com/Networkcaretaker/real-estate-backend/internal/model"
	"github.com/Networkcaretaker/real-estate-backend/internal/queue"
)

const (
	maxFilesPerRequest = 20
	maxJSONBody        = 1 << 20
	multipartMemory    = 32 << 20
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	s.log.WithField("content_length", r.ContentLength).Info("property_webhook_received")
	var rec model.CRMRecord
	if !s.decodeJSON(w, r, &rec) {
		return
	}
	result, err := s.opts.Pipeline.Process(r.Context(), rec)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status":      "success",
		"message":     "Property data processed successfully",
		"property_id": result.PropertyID,
	})
}

func (s *Server) handleGetProperty(w http.ResponseWriter, r *http.Request) {
	prop, err := s.opts.Properties.GetProperty(r.Context(), chi.URLParam(r, "pid"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, prop)
}

func (s *Server) handleUploadImages(w http.ResponseWriter, r *http.Request) {
	pid := chi.URLParam(r, "pid")
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.Config.MaxFileSize*maxFilesPerRequest+(1<<20))
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		respondError(w, http.StatusBadRequest, "expecting multipart form with files")
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		headers = r.MultipartForm.File["file"]
	}
	if len(headers) == 0 {
		respondError(w, http.StatusBadRequest, "No files provided")
		return
	}
	if len(headers) > maxFilesPerRequest {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("at most %d files per request", maxFilesPerRequest))
		return
	}

	uploads := make([]images.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			respondError(w, http.StatusBadRequest, "failed to read upload")
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			respondError(w, http.StatusBadRequest, "failed to read upload")
			return
		}
		uploads = append(uploads, images.Upload{Filename: fh.Filename, Size: fh.Size, Data: data})
	}

	report, err := s.opts.Images.Upload(r.Context(), pid, uploads)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	status := http.StatusCreated
	switch {
	case len(report.Images) == 0:
		status = http.StatusUnprocessableEntity
	case len(report.Failures) > 0:
		status = http.StatusMultiStatus
	}
	respondJSON(w, status, report)
}

func (s *Server) handleListImages(w http.ResponseWriter, r *http.Request) {
	list, err := s.opts.Images.List(r.Context(), chi.URLParam(r, "pid"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"images": list})
}

func (s *Server) handleUpdateImage(w http.ResponseWriter, r *http.Request) {
	var upd model.ImageUpdate
	if !s.decodeJSON(w, r, &upd) {
		return
	}
	img, err := s.opts.Images.UpdateMetadata(r.Context(), chi.URLParam(r, "pid"), chi.URLParam(r, "iid"), upd)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, img)
}

func (s *Server) handleSignedURL(w http.ResponseWriter, r *http.Request) {
	variant := model.Variant(r.URL.Query().Get("variant"))
	if variant == "" {
		variant = model.VariantLarge
	}
	ttl := s.opts.Config.SignedURLTTL
	u, err := s.opts.Images.SignedURL(r.Context(), chi.URLParam(r, "pid"), chi.URLParam(r, "iid"), variant, ttl)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"url":        u,
		"variant":    variant,
		"expires_at": time.Now().Add(ttl).UTC(),
	})
}

type analyzeImageRequest struct {
	PropertyID string   `json:"property_id"`
	ImageID    string   `json:"image_id"`
	Versions   []string `json:"versions"`
}

func (s *Server) handleAnalyzeImage(w http.ResponseWriter, r *http.Request) {
	if s.opts.Copywriter == nil {
		respondError(w, http.StatusServiceUnavailable, "copy generation is not configured")
		return
	}
	var req analyzeImageRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.PropertyID == "" || req.ImageID == "" || req.Versions == nil {
		respondError(w, http.StatusBadRequest, "Missing required fields: property_id, image_id, versions")
		return
	}
	versions, err := s.opts.Copywriter.ImageCopy(r.Context(), req.PropertyID, req.ImageID, req.Versions)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.publish(events.Event{Type: events.ImageCopyGenerated, PropertyID: req.PropertyID, ImageIDs: []string{req.ImageID}})
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"data":   map[string]any{"versions": versions},
	})
}

type listingCopyRequest struct {
	PropertyID string   `json:"property_id"`
	Versions   []string `json:"versions"`
}

func (s *Server) handleListingCopy(w http.ResponseWriter, r *http.Request) {
	if s.opts.Queue == nil {
		respondError(w, http.StatusServiceUnavailable, "copy generation queue is not configured")
		return
	}
	var req listingCopyRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.PropertyID == "" {
		respondError(w, http.StatusBadRequest, "Missing required fields: property_id, versions")
		return
	}
	if err := copywriter.ValidateVersions(req.Versions); err != nil {
		s.respondErr(w, err)
		return
	}
	if _, err := s.opts.Properties.GetProperty(r.Context(), req.PropertyID); err != nil {
		s.respondErr(w, err)
		return
	}
	taskID, err := s.opts.Queue.Enqueue(r.Context(), queue.ListingCopyPayload{PropertyID: req.PropertyID, Versions: req.Versions})
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.publish(events.Event{Type: events.ListingCopyQueued, PropertyID: req.PropertyID})
	respondJSON(w, http.StatusAccepted, map[string]string{
		"status":  "queued",
		"task_id": taskID,
	})
}

func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	q := r.URL.Query()
	if !s.opts.Media.Verify(key, q.Get("expires"), q.Get("signature")) {
		respondError(w, http.StatusForbidden, "invalid or expired signature")
		return
	}
	obj, ok := s.opts.Media.Object(key)
	if !ok {
		respondError(w, http.StatusNotFound, "not found")
		return
	}
	w.Header().Set("Content-Type", obj.ContentType)
	if obj.CacheControl != "" {
		w.Header().Set("Cache-Control", obj.CacheControl)
	}
	w.WriteHeader(http.StatusOK)
	w.Write(obj.Data)
}

func (s *Server) publish(ev events.Event) {
	if s.opts.Publisher != nil {
		s.opts.Publisher.Publish(ev)
	}
}

// decodeJSON reads a JSON body into dst, answering 400 itself on failure.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt != "application/json" {
		respondError(w, http.StatusBadRequest, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			respondError(w, http.StatusBadRequest, "No data provided")
			return false
		}
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// respondErr maps error kinds to status codes. Unexpected errors are logged
// and reported without detail.
func (s *Server) respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrValidation):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrProcessing):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, model.ErrConflict):
		respondError(w, http.StatusConflict, err.Error())
	default:
		s.log.WithError(err).Error("unexpected_error")
		respondError(w, http.StatusInternalServerError, "An unexpected error occurred")
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"status": "error", "message": msg})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
