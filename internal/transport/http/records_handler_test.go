package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"sensorcli/internal/dataprocessing"
	apierrors "sensorcli/internal/errors"
	"sensorcli/internal/exporter"
	"sensorcli/internal/services"
	"sensorcli/internal/shared/testutil"
	"sensorcli/pkg/contracts/domain"
)

// MockMetricsService is a mock implementation of MetricsServiceInterface
type MockMetricsService struct {
	mock.Mock
}

func (m *MockMetricsService) ProcessUpload(ctx context.Context, filename string, r io.Reader, strict *bool) (*services.UploadResult, error) {
	body, _ := io.ReadAll(r)
	args := m.Called(filename, string(body), strict)
	result, _ := args.Get(0).(*services.UploadResult)
	return result, args.Error(1)
}

func (m *MockMetricsService) Classify(ctx context.Context, filename string, r io.Reader) (*services.ClassificationReport, error) {
	args := m.Called(filename)
	report, _ := args.Get(0).(*services.ClassificationReport)
	return report, args.Error(1)
}

func (m *MockMetricsService) LastUpload() (*services.UploadResult, bool) {
	args := m.Called()
	result, _ := args.Get(0).(*services.UploadResult)
	return result, args.Bool(1)
}

func (m *MockMetricsService) List(ctx context.Context) []domain.MetricsRecord {
	args := m.Called()
	records, _ := args.Get(0).([]domain.MetricsRecord)
	return records
}

func (m *MockMetricsService) Get(ctx context.Context, filename string) (domain.MetricsRecord, error) {
	args := m.Called(filename)
	return args.Get(0).(domain.MetricsRecord), args.Error(1)
}

func (m *MockMetricsService) Delete(ctx context.Context, filename string) error {
	return m.Called(filename).Error(0)
}

func (m *MockMetricsService) Series(ctx context.Context, metric string) ([]domain.SeriesPoint, error) {
	args := m.Called(metric)
	points, _ := args.Get(0).([]domain.SeriesPoint)
	return points, args.Error(1)
}

func (m *MockMetricsService) Export(ctx context.Context, w io.Writer, format exporter.Format) error {
	args := m.Called(format)
	if args.Error(0) == nil {
		_, _ = io.WriteString(w, "date,filename\n")
	}
	return args.Error(0)
}

func newTestRouter(t *testing.T, svc *MockMetricsService, maxUpload int64) http.Handler {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	h := NewRecordsHandler(svc, maxUpload, logger, apierrors.NewErrorHandler(logger, false))
	r := chi.NewRouter()
	r.Mount("/api", h.Routes())
	return r
}

func multipartBody(t *testing.T, filename, content string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = io.WriteString(fw, content)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestRecordsHandler_Upload(t *testing.T) {
	strictTrue := true
	record := testutil.NewRecord("2024-03-05", "2024-03-05-Data.xlsx")

	tests := []struct {
		name       string
		filename   string
		fields     map[string]string
		strict     *bool
		serviceErr error
		wantStatus int
		wantType   string
	}{
		{
			name:       "accepted",
			filename:   "2024-03-05-Data.xlsx",
			wantStatus: http.StatusCreated,
		},
		{
			name:       "strict override",
			filename:   "2024-03-05-Data.xlsx",
			fields:     map[string]string{"strict": "true"},
			strict:     &strictTrue,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "duplicate",
			filename:   "2024-03-05-Data.xlsx",
			serviceErr: fmt.Errorf("2024-03-05-Data.xlsx: %w", dataprocessing.ErrDuplicateFile),
			wantStatus: http.StatusConflict,
			wantType:   apierrors.TypeDuplicateFile,
		},
		{
			name:     "missing channel",
			filename: "2024-03-05-Data.xlsx",
			serviceErr: &dataprocessing.MissingChannelError{
				Filename: "2024-03-05-Data.xlsx",
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   apierrors.TypeMissingChannel,
		},
		{
			name:     "fallback rejected",
			filename: "2024-03-05-Data.xlsx",
			fields:   map[string]string{"strict": "true"},
			strict:   &strictTrue,
			serviceErr: &dataprocessing.FallbackError{
				Filename: "2024-03-05-Data.xlsx",
				Stage:    dataprocessing.StageHumidityPadding,
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   apierrors.TypeFallbackRejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockMetricsService)
			if tt.serviceErr != nil {
				svc.On("ProcessUpload", tt.filename, "payload", tt.strict).Return(nil, tt.serviceErr)
			} else {
				svc.On("ProcessUpload", tt.filename, "payload", tt.strict).Return(&services.UploadResult{
					Record:   record,
					Mode:     dataprocessing.ModeLenient,
					Duration: time.Millisecond,
				}, nil)
			}

			body, contentType := multipartBody(t, tt.filename, "payload", tt.fields)
			req := httptest.NewRequest(http.MethodPost, "/api/records", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()
			newTestRouter(t, svc, 1<<20).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			resp := decode(t, rec)
			if tt.wantType != "" {
				assert.Equal(t, tt.wantType, resp["type"])
			} else {
				assert.Equal(t, record.Filename, resp["record"].(map[string]interface{})["filename"])
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestRecordsHandler_UploadRejectedBeforeService(t *testing.T) {
	tests := []struct {
		name       string
		build      func(t *testing.T) (io.Reader, string)
		maxUpload  int64
		wantStatus int
		wantType   string
		wantCode   string
	}{
		{
			name: "missing file field",
			build: func(t *testing.T) (io.Reader, string) {
				return multipartBody(t, "", "", map[string]string{"strict": "false"})
			},
			maxUpload:  1 << 20,
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
			wantCode:   apierrors.ErrMissingParameter.ErrorCode,
		},
		{
			name: "bad strict value",
			build: func(t *testing.T) (io.Reader, string) {
				return multipartBody(t, "a.xlsx", "payload", map[string]string{"strict": "maybe"})
			},
			maxUpload:  1 << 20,
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
		{
			name: "too large",
			build: func(t *testing.T) (io.Reader, string) {
				return multipartBody(t, "a.xlsx", string(bytes.Repeat([]byte("x"), 4096)), nil)
			},
			maxUpload:  512,
			wantStatus: http.StatusRequestEntityTooLarge,
			wantType:   apierrors.TypePayloadTooLarge,
			wantCode:   apierrors.ErrPayloadTooLarge.ErrorCode,
		},
		{
			name: "json body",
			build: func(t *testing.T) (io.Reader, string) {
				return bytes.NewBufferString(`{}`), "application/json"
			},
			maxUpload:  1 << 20,
			wantStatus: http.StatusUnsupportedMediaType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockMetricsService)
			body, contentType := tt.build(t)
			req := httptest.NewRequest(http.MethodPost, "/api/records", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()
			newTestRouter(t, svc, tt.maxUpload).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantType != "" {
				body := decode(t, rec)
				assert.Equal(t, tt.wantType, body["type"])
				if tt.wantCode != "" {
					assert.Equal(t, tt.wantCode, body["error_code"])
				}
			}
			svc.AssertNotCalled(t, "ProcessUpload", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestRecordsHandler_List(t *testing.T) {
	svc := new(MockMetricsService)
	svc.On("List").Return([]domain.MetricsRecord{
		testutil.NewRecord("2024-03-05", "a.xlsx"),
		testutil.NewRecord("2024-03-06", "b.xlsx"),
	})

	rec := httptest.NewRecorder()
	newTestRouter(t, svc, 0).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/records", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.EqualValues(t, 2, body["count"])
	require.Len(t, body["records"], 2)

	first := body["records"].([]interface{})[0].(map[string]interface{})
	assert.NotContains(t, first, "humidity_calibrated")
	assert.EqualValues(t, 10, first["humidity_calibrated_0"])
	assert.EqualValues(t, 50, first["humidity_calibrated_4"])
	assert.Equal(t, true, first["humidity_measured_1"])
	assert.Equal(t, false, first["humidity_measured_2"])
}

func TestRecordsHandler_ListEmpty(t *testing.T) {
	svc := new(MockMetricsService)
	svc.On("List").Return(nil)

	rec := httptest.NewRecorder()
	newTestRouter(t, svc, 0).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/records", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"records":[],"count":0}`, rec.Body.String())
}

func TestRecordsHandler_Latest(t *testing.T) {
	t.Run("none yet", func(t *testing.T) {
		svc := new(MockMetricsService)
		svc.On("LastUpload").Return(nil, false)

		rec := httptest.NewRecorder()
		newTestRouter(t, svc, 0).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/records/latest", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("present", func(t *testing.T) {
		svc := new(MockMetricsService)
		svc.On("LastUpload").Return(&services.UploadResult{Record: testutil.NewRecord("2024-03-05", "a.xlsx")}, true)

		rec := httptest.NewRecorder()
		newTestRouter(t, svc, 0).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/records/latest", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "a.xlsx", decode(t, rec)["record"].(map[string]interface{})["filename"])
	})
}

func TestRecordsHandler_GetAndDelete(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		setup      func(svc *MockMetricsService)
		wantStatus int
	}{
		{
			name:   "get found",
			method: http.MethodGet,
			path:   "/api/records/a.xlsx",
			setup: func(svc *MockMetricsService) {
				svc.On("Get", "a.xlsx").Return(testutil.NewRecord("2024-03-05", "a.xlsx"), nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "get missing",
			method: http.MethodGet,
			path:   "/api/records/b.xlsx",
			setup: func(svc *MockMetricsService) {
				svc.On("Get", "b.xlsx").Return(domain.MetricsRecord{}, apierrors.NewNotFoundError("record"))
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "invalid filename",
			method:     http.MethodGet,
			path:       "/api/records/notes.txt",
			setup:      func(svc *MockMetricsService) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:   "delete",
			method: http.MethodDelete,
			path:   "/api/records/a.xlsx",
			setup: func(svc *MockMetricsService) {
				svc.On("Delete", "a.xlsx").Return(nil)
			},
			wantStatus: http.StatusNoContent,
		},
		{
			name:   "delete storage failure",
			method: http.MethodDelete,
			path:   "/api/records/a.xlsx",
			setup: func(svc *MockMetricsService) {
				svc.On("Delete", "a.xlsx").Return(apierrors.NewStorageError("failed to delete record", fmt.Errorf("disk I/O error")))
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockMetricsService)
			tt.setup(svc)

			rec := httptest.NewRecorder()
			newTestRouter(t, svc, 0).ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			svc.AssertExpectations(t)
		})
	}
}

func TestRecordsHandler_Series(t *testing.T) {
	date := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	t.Run("valid metric", func(t *testing.T) {
		svc := new(MockMetricsService)
		svc.On("Series", domain.MetricTemperatureAverage).Return([]domain.SeriesPoint{
			{Date: date, Filename: "a.xlsx", Value: 21},
		}, nil)

		rec := httptest.NewRecorder()
		newTestRouter(t, svc, 0).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/series?metric=temperature_average", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, domain.MetricTemperatureAverage, body["metric"])
		assert.Len(t, body["points"], 1)
	})

	t.Run("unknown metric", func(t *testing.T) {
		svc := new(MockMetricsService)

		rec := httptest.NewRecorder()
		newTestRouter(t, svc, 0).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/series?metric=pressure", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, apierrors.TypeValidation, decode(t, rec)["type"])
		svc.AssertNotCalled(t, "Series", mock.Anything)
	})
}

func TestRecordsHandler_Classify(t *testing.T) {
	svc := new(MockMetricsService)
	svc.On("Classify", "probe.csv").Return(&services.ClassificationReport{
		Filename: "probe.csv",
		Method:   services.MethodName,
		Rows:     3,
	}, nil)

	body, contentType := multipartBody(t, "probe.csv", "Timestamp,DEF_1\n", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/classify", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	newTestRouter(t, svc, 1<<20).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, services.MethodName, decode(t, rec)["method"])
}

func TestRecordsHandler_Export(t *testing.T) {
	tests := []struct {
		name        string
		query       string
		format      exporter.Format
		wantStatus  int
		wantType    string
		wantFile    string
	}{
		{name: "default csv", query: "", format: exporter.FormatCSV, wantStatus: http.StatusOK, wantType: "text/csv", wantFile: "sensor_summary.csv"},
		{name: "xlsx", query: "?format=xlsx", format: exporter.FormatXLSX, wantStatus: http.StatusOK, wantType: "spreadsheetml", wantFile: "sensor_summary.xlsx"},
		{name: "bad format", query: "?format=pdf", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockMetricsService)
			if tt.format != "" {
				svc.On("Export", tt.format).Return(nil)
			}

			rec := httptest.NewRecorder()
			newTestRouter(t, svc, 0).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/export"+tt.query, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Contains(t, rec.Header().Get("Content-Type"), tt.wantType)
				assert.Contains(t, rec.Header().Get("Content-Disposition"), tt.wantFile)
				assert.NotEmpty(t, rec.Body.String())
			}
			svc.AssertExpectations(t)
		})
	}
}
