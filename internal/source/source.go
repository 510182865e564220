package source

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/roach88/vizq/internal/engine"
	"github.com/roach88/vizq/internal/ir"
	"github.com/roach88/vizq/internal/store"
)

// Default extraction expressions applied to loaded payloads.
const (
	DefaultExtractData   = "raw_data"
	DefaultExtractFields = "fields"
)

// DefaultMemoSize bounds the request memo of a Source.
const DefaultMemoSize = 1024

// firstAttempt is the attempt of requests not issued by a refresh.
const firstAttempt = "0"

// Config describes a sandboxed datasource.
type Config struct {
	// ID names the backing table. Empty generates one.
	ID string `json:"id,omitempty" yaml:"id,omitempty"`

	// Fields lists the datasource fields. Source fields become table
	// columns; computed fields are only queried.
	Fields ir.Fields `json:"datasource" yaml:"-"`

	// Data is an inline payload. When set, URL is not fetched.
	Data any `json:"data,omitempty" yaml:"data,omitempty"`

	URL        string         `json:"url,omitempty" yaml:"url,omitempty"`
	HTTPConfig map[string]any `json:"httpConfiguration,omitempty" yaml:"httpConfiguration,omitempty"`

	// RefreshInterval re-fetches URL periodically when positive.
	RefreshInterval time.Duration `json:"refreshInterval,omitempty" yaml:"refreshInterval,omitempty"`

	// Extraction expressions. Empty selects the defaults.
	ExtractData   string `json:"extractData,omitempty" yaml:"extractData,omitempty"`
	ExtractFields string `json:"extractFields,omitempty" yaml:"extractFields,omitempty"`
}

// Source owns one table fed by inline data or a fetched URL.
//
// Thread-safety: all methods are safe for concurrent use. Loads are
// serialized.
type Source struct {
	mu sync.Mutex

	store   *store.Store
	fetcher Fetcher
	cfg     Config
	memo    *lru.Cache[string, any]
	logger  *slog.Logger
	now     func() time.Time

	timer      *time.Timer
	closed     bool
	lastUpdate string
}

// Option configures a Source.
type Option func(*Source)

// WithLogger sets the logger. Nil keeps slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Source) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the clock that stamps loads. Default: time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Source) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMemoSize bounds the request memo. Values below 1 select
// DefaultMemoSize.
func WithMemoSize(n int) Option {
	return func(s *Source) {
		if n > 0 {
			memo, err := lru.New[string, any](n)
			if err == nil {
				s.memo = memo
			}
		}
	}
}

// New creates a source. fetcher may be nil when the source never fetches.
func New(st *store.Store, fetcher Fetcher, cfg Config, opts ...Option) (*Source, error) {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if cfg.ExtractData == "" {
		cfg.ExtractData = DefaultExtractData
	}
	if cfg.ExtractFields == "" {
		cfg.ExtractFields = DefaultExtractFields
	}

	memo, err := lru.New[string, any](DefaultMemoSize)
	if err != nil {
		return nil, fmt.Errorf("create request memo: %w", err)
	}
	s := &Source{
		store:   st,
		fetcher: fetcher,
		cfg:     cfg,
		memo:    memo,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ID returns the table id of the source.
func (s *Source) ID() string {
	return s.cfg.ID
}

// LastUpdate returns the RFC 3339 time of the last successful fetch, empty
// before the first one.
func (s *Source) LastUpdate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUpdate
}

func (s *Source) extractOptions() store.ExtractOptions {
	return store.ExtractOptions{ExtractData: s.cfg.ExtractData, ExtractFields: s.cfg.ExtractFields}
}

// Update recreates the table and loads it. A source without fields is left
// untouched. Inline data is written directly; otherwise URL is retrieved.
func (s *Source) Update(ctx context.Context) error {
	if len(s.cfg.Fields) == 0 {
		return nil
	}

	fields := s.cfg.Fields.SourceFields()
	if err := s.store.DropOrCreateTable(ctx, s.cfg.ID, fields); err != nil {
		return fmt.Errorf("update %s: %w", s.cfg.ID, err)
	}

	if s.cfg.URL != "" && s.cfg.Data == nil {
		return s.Retrieve(ctx)
	}
	if err := s.store.AddData(ctx, s.cfg.ID, fields, s.cfg.Data, true, s.extractOptions()); err != nil {
		return fmt.Errorf("update %s: %w", s.cfg.ID, err)
	}
	return nil
}

// Retrieve fetches URL, overwrites the table with the payload and schedules
// the next refresh. Repeated retrievals of the same URL and configuration
// are served from the memo; refreshes bypass it.
func (s *Source) Retrieve(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retrieve(ctx, firstAttempt)
}

func (s *Source) refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	attempt := s.lastUpdate
	if err := s.retrieve(context.Background(), attempt); err != nil {
		s.logger.Error("refresh failed", "source", s.cfg.ID, "error", err)
	}
}

// retrieve must be called with s.mu held.
func (s *Source) retrieve(ctx context.Context, attempt string) error {
	s.stopTimer()
	if s.closed {
		return nil
	}

	payload, err := s.request(ctx, attempt)
	if err != nil {
		s.logger.Error("retrieve failed", "source", s.cfg.ID, "url", s.cfg.URL, "error", err)
		return err
	}

	fields := s.cfg.Fields.SourceFields()
	if err := s.store.AddData(ctx, s.cfg.ID, fields, payload, true, s.extractOptions()); err != nil {
		return fmt.Errorf("retrieve %s: %w", s.cfg.ID, err)
	}

	if s.cfg.RefreshInterval > 0 {
		s.timer = time.AfterFunc(s.cfg.RefreshInterval, s.refresh)
	}
	s.lastUpdate = s.now().UTC().Format(time.RFC3339Nano)
	return nil
}

func (s *Source) request(ctx context.Context, attempt string) (any, error) {
	key, err := ir.RequestHash(s.cfg.URL, attempt, s.cfg.HTTPConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, s.cfg.URL, err)
	}
	if payload, ok := s.memo.Get(key); ok {
		return payload, nil
	}
	if s.fetcher == nil {
		return nil, fmt.Errorf("%w: %s: no fetcher configured", ErrFetch, s.cfg.URL)
	}

	payload, err := s.fetcher.Fetch(ctx, s.cfg.URL, s.cfg.HTTPConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, s.cfg.URL, err)
	}
	s.memo.Add(key, payload)
	return payload, nil
}

func (s *Source) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Close cancels the pending refresh. A refresh that fires afterwards does
// nothing. Close is idempotent.
func (s *Source) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.stopTimer()
}

// Descriptor returns the descriptor that reads the source: every source
// field as a computed field over its name, followed by the computed fields.
func (s *Source) Descriptor() ir.QueryDescriptor {
	refs := make([]ir.FieldRef, 0, len(s.cfg.Fields))
	for _, f := range s.cfg.Fields.SourceFields() {
		refs = append(refs, ir.FieldRef{Raw: f.FieldName})
	}
	for _, f := range s.cfg.Fields.ComputedFields() {
		refs = append(refs, ir.FieldRef{Field: f.Field, Raw: f.Raw, Fn: f.Fn, Alias: f.Alias})
	}
	return ir.QueryDescriptor{Table: s.cfg.ID, Fields: refs}
}

// Query builds the query that reads the source.
func (s *Source) Query(ctx context.Context, f *engine.Factory) (*engine.Query, error) {
	return f.Build(ctx, s.Descriptor())
}
