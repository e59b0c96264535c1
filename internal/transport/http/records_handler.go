package http

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"sensorcli/internal/config"
	apierrors "sensorcli/internal/errors"
	"sensorcli/internal/exporter"
	custommw "sensorcli/internal/middleware"
	"sensorcli/pkg/contracts/domain"
)

// multipartMemory is the part of a multipart upload kept in memory before
// spilling to temp files.
const multipartMemory = 8 << 20

// RecordsHandler serves uploads, records, series and exports
type RecordsHandler struct {
	service       MetricsServiceInterface
	validator     *custommw.Validator
	logger        *slog.Logger
	errorHandler  *apierrors.ErrorHandler
	maxUploadSize int64
}

// NewRecordsHandler creates a records handler. maxUploadSize <= 0 disables
// the body limit.
func NewRecordsHandler(service MetricsServiceInterface, maxUploadSize int64, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *RecordsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordsHandler{
		service:       service,
		validator:     custommw.NewValidator(logger),
		logger:        logger.With(slog.String("component", "records_handler")),
		errorHandler:  errorHandler,
		maxUploadSize: maxUploadSize,
	}
}

type seriesRequest struct {
	Metric string `query:"metric" validate:"required,metric"`
}

type exportRequest struct {
	Format string `query:"format" validate:"omitempty,export_format"`
}

type recordRequest struct {
	Filename string `json:"filename" validate:"required,filename"`
}

// RecordList is the response of GET /records
type RecordList struct {
	Records []domain.MetricsRecord `json:"records"`
	Count   int                    `json:"count"`
}

// SeriesResponse is the response of GET /series
type SeriesResponse struct {
	Metric string               `json:"metric"`
	Points []domain.SeriesPoint `json:"points"`
}

// Routes returns the record routes, to be mounted under the API base path
func (h *RecordsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Route("/records", func(r chi.Router) {
		r.With(custommw.ContentTypeValidator(h.errorHandler, "multipart/form-data")).Post("/", h.Upload)
		r.Get("/", h.List)
		r.Get("/latest", h.Latest)
		r.Route("/{filename}", func(r chi.Router) {
			r.Use(h.FilenameCtx)
			r.Get("/", h.Get)
			r.Delete("/", h.Delete)
		})
	})
	r.Get("/series", h.Series)
	r.With(custommw.ContentTypeValidator(h.errorHandler, "multipart/form-data")).Post("/classify", h.Classify)
	r.Get("/export", h.Export)

	return r
}

// FilenameCtx validates the {filename} path parameter
func (h *RecordsHandler) FilenameCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := recordRequest{Filename: chi.URLParam(r, "filename")}
		if err := h.validator.ValidateStruct(req); err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Upload handles POST /records
func (h *RecordsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	file, filename, err := h.formFile(w, r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	defer file.Close()

	strict, err := parseStrict(r.FormValue(config.UploadStrictField))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "processing upload",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("filename", filename),
	)

	result, err := h.service.ProcessUpload(r.Context(), filename, file, strict)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, result)
}

// Classify handles POST /classify
func (h *RecordsHandler) Classify(w http.ResponseWriter, r *http.Request) {
	file, filename, err := h.formFile(w, r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	defer file.Close()

	report, err := h.service.Classify(r.Context(), filename, file)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, report)
}

// List handles GET /records
func (h *RecordsHandler) List(w http.ResponseWriter, r *http.Request) {
	records := h.service.List(r.Context())
	if records == nil {
		records = []domain.MetricsRecord{}
	}
	render.JSON(w, r, RecordList{Records: records, Count: len(records)})
}

// Latest handles GET /records/latest
func (h *RecordsHandler) Latest(w http.ResponseWriter, r *http.Request) {
	result, ok := h.service.LastUpload()
	if !ok {
		h.errorHandler.HandleError(w, r, apierrors.NewNotFoundError("upload"))
		return
	}
	render.JSON(w, r, result)
}

// Get handles GET /records/{filename}
func (h *RecordsHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.Get(r.Context(), chi.URLParam(r, "filename"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, rec)
}

// Delete handles DELETE /records/{filename}
func (h *RecordsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "filename")); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Series handles GET /series?metric=
func (h *RecordsHandler) Series(w http.ResponseWriter, r *http.Request) {
	req := seriesRequest{Metric: r.URL.Query().Get("metric")}
	if err := h.validator.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	points, err := h.service.Series(r.Context(), req.Metric)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if points == nil {
		points = []domain.SeriesPoint{}
	}
	render.JSON(w, r, SeriesResponse{Metric: req.Metric, Points: points})
}

// Export handles GET /export?format=csv|xlsx
func (h *RecordsHandler) Export(w http.ResponseWriter, r *http.Request) {
	req := exportRequest{Format: r.URL.Query().Get("format")}
	if err := h.validator.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	format, err := exporter.ParseFormat(req.Format)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	// Buffered so a failed export still gets a problem response.
	var buf bytes.Buffer
	if err := h.service.Export(r.Context(), &buf, format); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, config.SummaryBaseName, format))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.WarnContext(r.Context(), "export write failed", slog.String("error", err.Error()))
	}
}

// formFile returns the uploaded export under the "file" field, bounded by
// the configured upload size.
func (h *RecordsHandler) formFile(w http.ResponseWriter, r *http.Request) (multipart.File, string, error) {
	if h.maxUploadSize > 0 {
		if r.ContentLength > h.maxUploadSize {
			return nil, "", apierrors.PayloadTooLarge(h.maxUploadSize)
		}
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", apierrors.PayloadTooLarge(tooLarge.Limit)
		}
		return nil, "", apierrors.InvalidRequestWithError(err)
	}
	file, header, err := r.FormFile(config.UploadFileField)
	if err != nil {
		return nil, "", apierrors.ErrMissingParameter.
			WithMessage(fmt.Sprintf("multipart field %q is required", config.UploadFileField)).
			WithDetails(map[string]string{"field": config.UploadFileField})
	}
	return file, header.Filename, nil
}

// parseStrict reads the optional strict form field. Empty means the
// configured mode.
func parseStrict(v string) (*bool, error) {
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, apierrors.ErrValidation(config.UploadStrictField, "strict must be true or false")
	}
	return &b, nil
}
