package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"paythru/internal/ocr/models"
	ratelimitmodels "paythru/internal/ratelimit/models"
	dErrors "paythru/pkg/domain-errors"
	"paythru/pkg/platform/httputil"
	"paythru/pkg/platform/middleware/metadata"
	"paythru/pkg/requestcontext"
)

// FileField is the multipart field carrying the document.
const FileField = "file"

// multipartMemory is how much of an upload is buffered in memory before
// spilling to a temporary file.
const multipartMemory = 8 << 20

// Service defines the extraction operations exposed over HTTP.
type Service interface {
	ExtractPersonFromID(ctx context.Context, doc *models.RawDocument) models.ExtractionResult[models.PersonDocument]
	ExtractFromTaxCertificate(ctx context.Context, doc *models.RawDocument, moral bool) models.ExtractionResult[any]
}

// UsageLimiter is consulted once per accepted upload.
type UsageLimiter interface {
	CheckAndIncrement(ctx context.Context, identity string) (*ratelimitmodels.UsageResult, error)
}

// Handler wires the OCR endpoints to the extraction service.
type Handler struct {
	service        Service
	limiter        UsageLimiter
	maxUploadBytes int64
	location       *time.Location
	logger         *slog.Logger
}

type Option func(*Handler)

// WithLimiter enables per-caller usage limiting.
func WithLimiter(l UsageLimiter) Option {
	return func(h *Handler) {
		h.limiter = l
	}
}

// WithLocation sets the zone reset times are shown in.
func WithLocation(loc *time.Location) Option {
	return func(h *Handler) {
		h.location = loc
	}
}

// New constructs an OCR handler with its dependencies.
func New(service Service, maxUploadBytes int64, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		service:        service,
		maxUploadBytes: maxUploadBytes,
		location:       time.Local,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the OCR endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/ocr/id-document", h.HandleIDDocument)
	r.Post("/ocr/tax-certificate", h.HandleTaxCertificate)
}

// HandleIDDocument handles POST /ocr/id-document.
func (h *Handler) HandleIDDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.prepare(w, r)
	if !ok {
		return
	}
	result := h.service.ExtractPersonFromID(r.Context(), doc)
	h.logOutcome(r.Context(), "id-document", result.Success)
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleTaxCertificate handles POST /ocr/tax-certificate?moral=true|false.
func (h *Handler) HandleTaxCertificate(w http.ResponseWriter, r *http.Request) {
	moral := false
	if raw := r.URL.Query().Get("moral"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "moral must be true or false"))
			return
		}
		moral = v
	}

	doc, ok := h.prepare(w, r)
	if !ok {
		return
	}
	result := h.service.ExtractFromTaxCertificate(r.Context(), doc, moral)
	h.logOutcome(r.Context(), "tax-certificate", result.Success)
	httputil.WriteJSON(w, http.StatusOK, result)
}

// prepare reads the upload and consumes one unit of the caller's allowance.
// It writes the response itself when the request cannot proceed.
func (h *Handler) prepare(w http.ResponseWriter, r *http.Request) (*models.RawDocument, bool) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	doc, err := h.readDocument(w, r)
	if err != nil {
		h.logger.WarnContext(ctx, "rejected document upload",
			"request_id", requestID,
			"client_ip", metadata.ClientIP(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return nil, false
	}

	if h.limiter == nil {
		return doc, true
	}
	usage, err := h.limiter.CheckAndIncrement(ctx, requestcontext.Identity(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to check ocr usage",
			"request_id", requestID,
			"error", err,
		)
		return doc, true
	}
	addUsageHeaders(w, usage)
	if !usage.Allowed {
		h.logger.InfoContext(ctx, "ocr usage exceeded",
			"request_id", requestID,
			"client_ip", metadata.ClientIP(ctx),
			"retry_after", usage.RetryAfter,
		)
		writeUsageExceeded(w, usage, h.location)
		return nil, false
	}
	return doc, true
}

func (h *Handler) readDocument(w http.ResponseWriter, r *http.Request) (*models.RawDocument, error) {
	if r.ContentLength > h.maxUploadBytes {
		return nil, dErrors.New(dErrors.CodePayloadTooLarge, "document exceeds "+strconv.FormatInt(h.maxUploadBytes, 10)+" bytes")
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, uploadError(err, "expected multipart/form-data with a file field")
	}
	file, header, err := r.FormFile(FileField)
	if err != nil {
		return nil, uploadError(err, "missing file field")
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, uploadError(err, "could not read uploaded file")
	}

	mediaType := header.Header.Get("Content-Type")
	if mediaType == "" || mediaType == "application/octet-stream" {
		mediaType = http.DetectContentType(content)
	}
	return models.NewRawDocument(content, mediaType, header.Filename)
}

func uploadError(err error, msg string) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return dErrors.Wrap(err, dErrors.CodePayloadTooLarge, "document exceeds "+strconv.FormatInt(tooLarge.Limit, 10)+" bytes")
	}
	return dErrors.Wrap(err, dErrors.CodeBadRequest, msg)
}

func (h *Handler) logOutcome(ctx context.Context, endpoint string, success bool) {
	h.logger.InfoContext(ctx, "ocr request completed",
		"request_id", requestcontext.RequestID(ctx),
		"endpoint", endpoint,
		"success", success,
		"duration_ms", time.Since(requestcontext.Now(ctx)).Milliseconds(),
	)
}

func addUsageHeaders(w http.ResponseWriter, r *ratelimitmodels.UsageResult) {
	if r.Limit < 0 {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(r.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(r.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(r.ResetAt.Unix(), 10))
	if r.Degraded {
		w.Header().Set("X-RateLimit-Status", "degraded")
	}
}

func writeUsageExceeded(w http.ResponseWriter, r *ratelimitmodels.UsageResult, loc *time.Location) {
	w.Header().Set("Retry-After", strconv.Itoa(r.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &ratelimitmodels.UsageExceededResponse{
		Success:    false,
		Error:      ratelimitmodels.DeniedMessage(r, loc),
		RetryAfter: r.RetryAfter,
	})
}
