package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"sensorcli/internal/dataprocessing"
)

// Common error types following RFC 7807
const (
	TypeValidation      = "/errors/validation"
	TypeNotFound        = "/errors/not-found"
	TypeRateLimit       = "/errors/rate-limit"
	TypeInternal        = "/errors/internal"
	TypeServiceDown     = "/errors/service-unavailable"
	TypeTimeout         = "/errors/timeout"
	TypePayloadTooLarge = "/errors/payload-too-large"
	TypeMethodNotAllow  = "/errors/method-not-allowed"
)

// Domain-specific error types
const (
	TypeMissingChannel    = "/errors/data/missing-channel"
	TypeFallbackRejected  = "/errors/data/fallback-rejected"
	TypeDuplicateFile     = "/errors/data/duplicate-file"
	TypeUnreadableExport  = "/errors/data/unreadable"
	TypeUnsupportedFormat = "/errors/data/unsupported-format"
	TypeUnknownMetric     = "/errors/data/unknown-metric"
	TypeStorage           = "/errors/storage"
	TypeWebSocketUpgrade  = "/errors/websocket/upgrade-failed"
)

// ErrorHandler provides centralized error handling
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// HandleError converts any error to RFC 7807 format and responds
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	reqID := middleware.GetReqID(r.Context())
	problem := h.ErrorToProblem(err, r)

	level := slog.LevelWarn
	if problem.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "request failed",
		slog.String("error", err.Error()),
		slog.Int("status", problem.Status),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	problem.WithExtension("trace_id", reqID)
	if h.includeStack {
		problem.WithExtension("stack", getStackTrace())
	}

	_ = render.Render(w, r, problem)
}

// ErrorToProblem converts an error to RFC 7807 Problem Details
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	instance := r.URL.Path

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewProblemDetails(
			http.StatusGatewayTimeout,
			TypeTimeout,
			"Request Timeout",
			"The request took too long to process and was cancelled",
			instance,
		)
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return ProblemFromAPIError(apiErr, instance)
	}

	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return ProblemFromAPIError(PayloadTooLarge(maxBytes.Limit), instance)
	}

	if problem := domainProblem(err, instance); problem != nil {
		return problem
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErrorToProblem(appErr, instance)
	}

	return NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred while processing your request",
		instance,
	)
}

// domainProblem maps the processing sentinels. It returns nil for errors
// outside the processing domain.
func domainProblem(err error, instance string) *ProblemDetails {
	var fallbackErr *dataprocessing.FallbackError
	var missingErr *dataprocessing.MissingChannelError

	switch {
	case errors.As(err, &fallbackErr):
		return NewProblemDetails(
			http.StatusUnprocessableEntity,
			TypeFallbackRejected,
			"Fallback Rejected",
			err.Error(),
			instance,
		).WithExtension("filename", fallbackErr.Filename).
			WithExtension("stage", fallbackErr.Stage)

	case errors.As(err, &missingErr):
		return NewProblemDetails(
			http.StatusUnprocessableEntity,
			TypeMissingChannel,
			"Missing Sensor Channel",
			err.Error(),
			instance,
		).WithExtension("filename", missingErr.Filename).
			WithExtension("columns", missingErr.Columns)

	case errors.Is(err, dataprocessing.ErrMissingChannel):
		return NewProblemDetails(http.StatusUnprocessableEntity, TypeMissingChannel, "Missing Sensor Channel", err.Error(), instance)

	case errors.Is(err, dataprocessing.ErrFallbackRejected):
		return NewProblemDetails(http.StatusUnprocessableEntity, TypeFallbackRejected, "Fallback Rejected", err.Error(), instance)

	case errors.Is(err, dataprocessing.ErrDuplicateFile):
		return NewProblemDetails(http.StatusConflict, TypeDuplicateFile, "Duplicate File", err.Error(), instance)

	case errors.Is(err, dataprocessing.ErrUnsupportedFormat):
		return NewProblemDetails(http.StatusBadRequest, TypeUnsupportedFormat, "Unsupported Format", err.Error(), instance)

	case errors.Is(err, dataprocessing.ErrNoData):
		return NewProblemDetails(http.StatusBadRequest, TypeUnreadableExport, "Unreadable Export", err.Error(), instance)

	case errors.Is(err, dataprocessing.ErrUnknownMetric):
		return NewProblemDetails(http.StatusBadRequest, TypeUnknownMetric, "Unknown Metric", err.Error(), instance)
	}
	return nil
}

func appErrorToProblem(appErr *AppError, instance string) *ProblemDetails {
	var problem *ProblemDetails
	switch appErr.Type {
	case ErrTypeNotFound:
		problem = NewProblemDetails(http.StatusNotFound, TypeNotFound, "Resource Not Found", appErr.Message, instance)
	case ErrTypeValidation:
		problem = NewProblemDetails(http.StatusBadRequest, TypeValidation, "Validation Failed", appErr.Message, instance)
	case ErrTypeParsing:
		problem = NewProblemDetails(http.StatusBadRequest, TypeUnreadableExport, "Unreadable Export", appErr.Error(), instance)
	case ErrTypeCalibration:
		problem = NewProblemDetails(http.StatusUnprocessableEntity, TypeValidation, "Calibration Failed", appErr.Error(), instance)
	case ErrTypeStorage:
		problem = NewProblemDetails(http.StatusInternalServerError, TypeStorage, "Storage Error", appErr.Message, instance)
	default:
		problem = NewProblemDetails(http.StatusInternalServerError, TypeInternal, "Internal Server Error", appErr.Message, instance)
	}
	for k, v := range appErr.Context {
		problem.WithExtension(k, v)
	}
	return problem
}

// ProblemFromAPIError converts an APIError to ProblemDetails. It is also
// used by middleware that answers before a handler runs.
func ProblemFromAPIError(apiErr *APIError, instance string) *ProblemDetails {
	problemType := TypeInternal
	switch apiErr.ErrorCode {
	case ErrValidationFailed.ErrorCode, ErrInvalidRequest.ErrorCode, ErrMissingParameter.ErrorCode:
		problemType = TypeValidation
	case ErrPayloadTooLarge.ErrorCode:
		problemType = TypePayloadTooLarge
	case ErrRateLimitExceeded.ErrorCode:
		problemType = TypeRateLimit
	case ErrServiceUnavailable.ErrorCode:
		problemType = TypeServiceDown
	case ErrWebSocketUpgrade.ErrorCode:
		problemType = TypeWebSocketUpgrade
	}

	problem := NewProblemDetails(
		apiErr.StatusCode,
		problemType,
		http.StatusText(apiErr.StatusCode),
		apiErr.Message,
		instance,
	).WithExtension("error_code", apiErr.ErrorCode)

	if apiErr.Details != nil {
		problem.WithExtension("details", apiErr.Details)
	}
	return problem
}

// HandlePanic recovers from panics and returns RFC 7807 error
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.ErrorContext(r.Context(), "panic recovered",
		slog.Any("panic", recovered),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("stack", string(debug.Stack())),
	)

	problem := NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred",
		r.URL.Path,
	).WithExtension("trace_id", reqID)

	if h.includeStack {
		problem.WithExtension("panic", fmt.Sprintf("%v", recovered))
		problem.WithExtension("stack", getStackTrace())
	}

	_ = render.Render(w, r, problem)
}

// NotFound returns a standard 404 error
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusNotFound,
		TypeNotFound,
		"Not Found",
		"The requested resource was not found",
		r.URL.Path,
	).WithExtension("trace_id", middleware.GetReqID(r.Context()))

	_ = render.Render(w, r, problem)
}

// MethodNotAllowed returns a standard 405 error
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusMethodNotAllowed,
		TypeMethodNotAllow,
		"Method Not Allowed",
		fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method),
		r.URL.Path,
	).WithExtension("trace_id", middleware.GetReqID(r.Context()))

	_ = render.Render(w, r, problem)
}

func getStackTrace() string {
	buf := make([]byte, 1024*8)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
