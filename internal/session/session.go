// Package session holds the dashboard's loaded dataset and answers selection
// requests against it. The dataset is read once at startup, cleaned and kept
// immutable; every request re-runs the full pipeline over it.
package session

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/go-ports/poimap/internal/config"
	"github.com/go-ports/poimap/internal/dashboard"
	"github.com/go-ports/poimap/internal/export"
	"github.com/go-ports/poimap/internal/models"
	"github.com/go-ports/poimap/internal/notify"
	"github.com/go-ports/poimap/internal/pipeline"
	"github.com/go-ports/poimap/internal/warehouse"
)

// snapshot is one loaded dataset. It is never mutated after construction.
type snapshot struct {
	cleaned      models.RecordSet
	extraColumns []string
	rawRows      int
	byCategory   models.AggregateCount
	byState      models.AggregateCount
	loadedAt     time.Time
	generation   uint64
}

// Stats summarises the loaded dataset.
type Stats struct {
	Source     string    `json:"source"`
	RawRows    int       `json:"raw_rows"`
	Rows       int       `json:"rows"`
	Dropped    int       `json:"dropped"`
	Categories int       `json:"categories"`
	States     int       `json:"states"`
	LoadedAt   time.Time `json:"loaded_at"`
	Generation uint64    `json:"generation"`
}

// Session orchestrates warehouse loading, selection and export.
type Session struct {
	Config *config.Config

	source   warehouse.Source
	notifier *notify.Notifier
	settings dashboard.Settings

	mu        sync.RWMutex
	snap      *snapshot
	refreshMu sync.Mutex

	pubMu     sync.Mutex
	publisher *export.Publisher
}

// Option customises a Session.
type Option func(*Session)

// WithPublisher sets the export publisher instead of building one from Config.Export.
func WithPublisher(p *export.Publisher) Option {
	return func(s *Session) { s.publisher = p }
}

// WithNotifier sets the export notifier instead of building one from Config.Notify.
func WithNotifier(n *notify.Notifier) Option {
	return func(s *Session) { s.notifier = n }
}

// New opens the warehouse configured in cfg and loads the dataset.
// A connectivity or authentication failure is returned as an error.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Session, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	src, err := warehouse.Open(cfg.Warehouse)
	if err != nil {
		return nil, fmt.Errorf("session.New: %w", err)
	}
	return NewWithSource(ctx, cfg, src, opts...)
}

// NewWithSource loads the dataset from src.
func NewWithSource(ctx context.Context, cfg *config.Config, src warehouse.Source, opts ...Option) (*Session, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	s := &Session{
		Config: cfg,
		source: src,
		settings: dashboard.Settings{
			Zoom:  cfg.Dashboard.Zoom,
			Pitch: cfg.Dashboard.Pitch,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = notify.New(cfg.Notify)
	}

	snap, err := s.load(ctx, 1)
	if err != nil {
		return nil, fmt.Errorf("session.New: %w", err)
	}
	s.snap = snap
	return s, nil
}

// Close releases the notifier.
func (s *Session) Close() error {
	return s.notifier.Close()
}

func (s *Session) load(ctx context.Context, generation uint64) (*snapshot, error) {
	start := time.Now()
	tbl, err := s.source.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	cleaned := pipeline.Clean(tbl.Records)
	snap := &snapshot{
		cleaned:      cleaned,
		extraColumns: tbl.ExtraColumns,
		rawRows:      len(tbl.Records),
		byCategory:   pipeline.AggregateCounts(cleaned, models.AttrCategory),
		byState:      pipeline.AggregateCounts(cleaned, models.AttrState),
		loadedAt:     time.Now().UTC(),
		generation:   generation,
	}
	slog.Info("dataset loaded",
		"source", s.source.Describe(),
		"rows", len(cleaned),
		"dropped", snap.rawRows-len(cleaned),
		"generation", generation,
		"elapsed", time.Since(start).Round(time.Millisecond))
	return snap, nil
}

func (s *Session) current() *snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Refresh re-reads the warehouse. On failure the previously loaded dataset
// stays in place and the error is returned.
func (s *Session) Refresh(ctx context.Context) (Stats, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	next, err := s.load(ctx, s.current().generation+1)
	if err != nil {
		slog.Warn("refresh failed, keeping loaded dataset", "err", err)
		return s.Stats(), fmt.Errorf("session.Refresh: %w", err)
	}
	s.mu.Lock()
	s.snap = next
	s.mu.Unlock()
	return s.Stats(), nil
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// Records returns the cleaned dataset. Callers must not modify it.
func (s *Session) Records() models.RecordSet {
	return s.current().cleaned
}

// ExtraColumns returns the pass-through column names of the loaded table.
func (s *Session) ExtraColumns() []string {
	return s.current().extraColumns
}

// Generation identifies the loaded dataset; it increases on every successful Refresh.
func (s *Session) Generation() uint64 {
	return s.current().generation
}

// Stats summarises the loaded dataset.
func (s *Session) Stats() Stats {
	snap := s.current()
	return Stats{
		Source:     s.source.Describe(),
		RawRows:    snap.rawRows,
		Rows:       len(snap.cleaned),
		Dropped:    snap.rawRows - len(snap.cleaned),
		Categories: len(snap.byCategory),
		States:     len(snap.byState),
		LoadedAt:   snap.loadedAt,
		Generation: snap.generation,
	}
}

// CategoryCounts returns the dataset-wide counts by category.
func (s *Session) CategoryCounts() models.AggregateCount {
	return s.current().byCategory
}

// StateCounts returns the dataset-wide counts by state.
func (s *Session) StateCounts() models.AggregateCount {
	return s.current().byState
}

// Counts returns the dataset-wide counts for attr. They never depend on the
// active selection.
func (s *Session) Counts(attr models.Attribute) models.AggregateCount {
	snap := s.current()
	switch attr {
	case models.AttrCategory:
		return snap.byCategory
	case models.AttrState:
		return snap.byState
	}
	return pipeline.AggregateCounts(snap.cleaned, attr)
}

// Select runs the pipeline for sel over the loaded dataset. A non-positive
// sel.Rows uses the configured default row count.
func (s *Session) Select(sel models.FilterSelection) *dashboard.View {
	snap := s.current()
	if sel.Rows <= 0 {
		sel.Rows = s.Config.Dashboard.DefaultRows
	}
	res := pipeline.Run(snap.cleaned, sel)
	return dashboard.Build(res, snap.byCategory, snap.byState, s.settings)
}

// ---------------------------------------------------------------------------
// Export
// ---------------------------------------------------------------------------

// WriteCSV writes the full selection for sel (not only the displayed rows)
// to w. includeExtra appends the table's pass-through columns. It returns the
// number of records written.
func (s *Session) WriteCSV(w io.Writer, sel models.FilterSelection, includeExtra bool) (int, error) {
	v := s.Select(sel)
	if err := export.WriteCSV(w, v.Records, s.csvOptions(includeExtra)); err != nil {
		return 0, fmt.Errorf("session.WriteCSV: %w", err)
	}
	return len(v.Records), nil
}

func (s *Session) csvOptions(includeExtra bool) export.Options {
	if !includeExtra {
		return export.Options{}
	}
	return export.Options{ExtraColumns: s.ExtraColumns()}
}

func (s *Session) exportPublisher() (*export.Publisher, error) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	if s.publisher != nil {
		return s.publisher, nil
	}
	p, err := export.NewPublisher(s.Config.Export)
	if err != nil {
		return nil, err
	}
	s.publisher = p
	return p, nil
}

// Publish uploads the CSV for sel to object storage and announces it. A failed
// announcement is logged but does not fail the publish.
func (s *Session) Publish(ctx context.Context, sel models.FilterSelection, includeExtra bool) (export.Receipt, error) {
	p, err := s.exportPublisher()
	if err != nil {
		return export.Receipt{}, fmt.Errorf("session.Publish: %w", err)
	}

	v := s.Select(sel)
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, v.Records, s.csvOptions(includeExtra)); err != nil {
		return export.Receipt{}, fmt.Errorf("session.Publish: %w", err)
	}

	rcpt, err := p.Publish(ctx, buf.Bytes(), len(v.Records))
	if err != nil {
		return export.Receipt{}, fmt.Errorf("session.Publish: %w", err)
	}

	if err := s.notifier.ExportPublished(ctx, notify.ExportEvent{
		Bucket:      rcpt.Bucket,
		Key:         rcpt.Key,
		Records:     rcpt.Records,
		Selection:   v.Selection,
		PublishedAt: rcpt.PublishedAt,
	}); err != nil {
		slog.Warn("export notification failed", "key", rcpt.Key, "err", err)
	}
	return rcpt, nil
}
