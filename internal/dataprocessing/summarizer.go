package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"sensorcli/pkg/contracts/domain"
)

// AppendListener is called after a record has been accumulated.
type AppendListener func(ctx context.Context, record domain.MetricsRecord)

// Summarizer accumulates one MetricsRecord per file, in arrival order, and
// serves them for export and time-series display. It is safe for concurrent use.
type Summarizer struct {
	logger *slog.Logger

	mu        sync.RWMutex
	records   []domain.MetricsRecord
	index     map[string]int
	listeners []AppendListener
}

// NewSummarizer creates an empty accumulator. A nil logger uses slog.Default().
func NewSummarizer(logger *slog.Logger) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{
		logger: logger.With(slog.String("component", "summarizer")),
		index:  make(map[string]int),
	}
}

// OnAppend registers fn to be notified after every successful Add.
// Listeners run synchronously, in registration order, outside the lock.
func (s *Summarizer) OnAppend(fn AppendListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Has reports whether a record for filename was already accumulated.
func (s *Summarizer) Has(filename string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[filename]
	return ok
}

// Add appends record. A filename that is already present is rejected with
// ErrDuplicateFile.
func (s *Summarizer) Add(ctx context.Context, record domain.MetricsRecord) error {
	s.mu.Lock()
	if _, ok := s.index[record.Filename]; ok {
		s.mu.Unlock()
		return fmt.Errorf("%s: %w", record.Filename, ErrDuplicateFile)
	}
	s.index[record.Filename] = len(s.records)
	s.records = append(s.records, record)
	listeners := append([]AppendListener(nil), s.listeners...)
	total := len(s.records)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "record accumulated",
		slog.String("filename", record.Filename),
		slog.String("date", record.Date),
		slog.Int("total_records", total))

	for _, fn := range listeners {
		fn(ctx, record)
	}
	return nil
}

// Restore loads previously persisted records without notifying listeners.
// Records whose filename is already present are skipped.
func (s *Summarizer) Restore(records []domain.MetricsRecord) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range records {
		if _, ok := s.index[r.Filename]; ok {
			continue
		}
		s.index[r.Filename] = len(s.records)
		s.records = append(s.records, r)
		n++
	}
	return n
}

// Get returns the record accumulated for filename.
func (s *Summarizer) Get(filename string) (domain.MetricsRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[filename]
	if !ok {
		return domain.MetricsRecord{}, false
	}
	return s.records[i], true
}

// Remove drops the record for filename and reports whether it existed.
func (s *Summarizer) Remove(filename string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[filename]
	if !ok {
		return false
	}
	s.records = append(s.records[:i], s.records[i+1:]...)
	delete(s.index, filename)
	for j := i; j < len(s.records); j++ {
		s.index[s.records[j].Filename] = j
	}
	return true
}

// Records returns a copy of the accumulated records in arrival order.
func (s *Summarizer) Records() []domain.MetricsRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.MetricsRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Len returns the number of accumulated records.
func (s *Summarizer) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Series returns metric across all dated records, oldest first. Records with
// an unknown date are left out; records sharing a date keep arrival order.
func (s *Summarizer) Series(metric string) ([]domain.SeriesPoint, error) {
	if _, ok := (domain.MetricsRecord{}).Value(metric); !ok {
		return nil, fmt.Errorf("%q: %w", metric, ErrUnknownMetric)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	padded := -1
	for i := 0; i < domain.HumiditySensorCount; i++ {
		if metric == domain.HumidityMetric(i) {
			padded = i
		}
	}

	points := make([]domain.SeriesPoint, 0, len(s.records))
	for _, r := range s.records {
		v, _ := r.Value(metric)
		t, ok := r.Time()
		if !ok {
			continue
		}
		point := domain.SeriesPoint{Date: t, Filename: r.Filename, Value: v}
		if padded >= 0 {
			_, measured := r.Calibrated(padded)
			point.Padded = !measured
		}
		points = append(points, point)
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})
	return points, nil
}
