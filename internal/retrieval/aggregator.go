package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/cloo-solutions/campusguide/internal/cache"
	"github.com/cloo-solutions/campusguide/internal/domain"
	"github.com/cloo-solutions/campusguide/internal/observability"
	"github.com/cloo-solutions/campusguide/internal/telemetry"
)

// Config tunes one aggregation cycle.
type Config struct {
	// Deadline bounds the whole strategy fan-out.
	Deadline time.Duration
	// ResultLimit is the maximum number of results returned.
	ResultLimit int
	// MinResults below which the static fallback is consulted.
	MinResults int
	CacheTTL   time.Duration
	// Institution is appended to every enhanced term list.
	Institution string
	Scoring     ScoringConfig
}

// DefaultConfig returns the production aggregation settings.
func DefaultConfig() Config {
	return Config{
		Deadline:    8 * time.Second,
		ResultLimit: 10,
		MinResults:  3,
		CacheTTL:    10 * time.Minute,
		Institution: "RMIT",
		Scoring:     DefaultScoringConfig(),
	}
}

// Option customises an Aggregator.
type Option func(*Aggregator)

// WithCache sets the result cache.
func WithCache(c cache.Cache) Option {
	return func(a *Aggregator) { a.cache = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Aggregator) { a.logger = l }
}

// WithMetrics sets the Prometheus metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(a *Aggregator) { a.metrics = m }
}

// WithClock overrides time.Now for elapsed-time reporting.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// Aggregator runs the strategies concurrently and merges their results.
type Aggregator struct {
	strategies []Strategy
	fallback   Strategy
	scorer     *Scorer
	cfg        Config
	scope      string

	cache   cache.Cache
	logger  *zap.Logger
	metrics *observability.Metrics
	now     func() time.Time

	flight singleflight.Group
}

// NewAggregator creates an Aggregator over strategies. fallback may be nil.
func NewAggregator(cfg Config, strategies []Strategy, fallback Strategy, opts ...Option) *Aggregator {
	defaults := DefaultConfig()
	if cfg.Deadline <= 0 {
		cfg.Deadline = defaults.Deadline
	}
	if cfg.ResultLimit <= 0 {
		cfg.ResultLimit = defaults.ResultLimit
	}
	if cfg.MinResults < 0 {
		cfg.MinResults = 0
	}

	names := make([]string, 0, len(strategies))
	for _, s := range strategies {
		names = append(names, s.Name())
	}
	sort.Strings(names)

	a := &Aggregator{
		strategies: strategies,
		fallback:   fallback,
		scorer:     NewScorer(cfg.Scoring),
		cfg:        cfg,
		scope:      strings.Join(names, "+"),
		cache:      cache.Noop{},
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Retrieve returns ranked results for a classified query. It never fails:
// strategy errors and timeouts reduce the result set, and when too little
// survives the static fallback fills in.
func (a *Aggregator) Retrieve(ctx context.Context, query string, cls domain.QueryClassification) *domain.SearchResponse {
	start := a.now()
	in := NewInput(query, cls, a.cfg.Institution)
	key := cache.Key(in.SearchQuery, a.scope)

	ctx, span := telemetry.StartSpan(ctx, "retrieval.aggregate", telemetry.SpanAttributes{
		Category:  string(cls.PrimaryCategory),
		Operation: "aggregate",
	})
	defer span.End()

	if cached, ok := a.cache.Get(key); ok {
		a.metrics.ObserveCache(true)
		span.SetData("cached", true)
		return &domain.SearchResponse{
			Results:         cached,
			Query:           query,
			TotalCandidates: len(cached),
			ElapsedMs:       a.now().Sub(start).Milliseconds(),
			SourceCounts:    domain.CountSources(cached),
			Cached:          true,
		}
	}
	a.metrics.ObserveCache(false)

	v, _, shared := a.flight.Do(key, func() (any, error) {
		out := a.collect(context.WithoutCancel(ctx), in)
		if !out.degraded && len(out.results) > 0 {
			a.cache.Put(key, out.results, a.cfg.CacheTTL)
		}
		return out, nil
	})
	out := v.(collected)

	results := make([]domain.SearchResult, len(out.results))
	copy(results, out.results)

	elapsed := a.now().Sub(start)
	a.metrics.ObserveRetrieval(elapsed)
	span.SetData("results", len(results))
	span.SetData("shared", shared)

	a.logger.Debug("retrieval complete",
		zap.String("query", query),
		zap.Int("results", len(results)),
		zap.Int("candidates", out.candidates),
		zap.Bool("degraded", out.degraded),
		zap.Bool("shared", shared),
		zap.Duration("elapsed", elapsed))

	return &domain.SearchResponse{
		Results:         results,
		Query:           query,
		TotalCandidates: out.candidates,
		ElapsedMs:       elapsed.Milliseconds(),
		SourceCounts:    domain.CountSources(results),
		Degraded:        out.degraded,
	}
}

type collected struct {
	results    []domain.SearchResult
	candidates int
	degraded   bool
}

func (a *Aggregator) collect(parent context.Context, in Input) collected {
	ctx, cancel := context.WithTimeout(parent, a.cfg.Deadline)
	defer cancel()

	var (
		mu       sync.Mutex
		sealed   bool
		finished = make([]bool, len(a.strategies))
		slots    = make([][]domain.SearchResult, len(a.strategies))
	)

	var g errgroup.Group
	for i, s := range a.strategies {
		g.Go(func() error {
			res := a.run(ctx, s, in)
			mu.Lock()
			defer mu.Unlock()
			if !sealed {
				slots[i] = res
				finished[i] = true
			}
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}

	mu.Lock()
	sealed = true
	var merged []domain.SearchResult
	for i, s := range a.strategies {
		if !finished[i] {
			a.logger.Warn("strategy exceeded retrieval deadline",
				zap.String("strategy", s.Name()),
				zap.Duration("deadline", a.cfg.Deadline))
			continue
		}
		merged = append(merged, slots[i]...)
	}
	mu.Unlock()

	candidates := len(merged)
	ranked := Filter(a.scorer.ScoreAll(Dedup(merged), in), in, a.cfg.Scoring.MinRelevance)

	degraded := false
	if len(ranked) < a.cfg.MinResults && a.fallback != nil {
		a.metrics.ObserveFallback()
		degraded = len(ranked) == 0
		extra := a.scorer.ScoreFallback(a.run(parent, a.fallback, in), in)
		candidates += len(extra)
		ranked = Dedup(append(ranked, extra...))
	}

	return collected{
		results:    Rank(ranked, in, a.cfg.ResultLimit),
		candidates: candidates,
		degraded:   degraded,
	}
}

// run invokes one strategy behind a guard that turns errors and panics into
// an empty list and drops malformed results.
func (a *Aggregator) run(ctx context.Context, s Strategy, in Input) (results []domain.SearchResult) {
	start := time.Now()
	outcome := observability.OutcomeOK
	name := s.Name()

	ctx, span := telemetry.StartSpan(ctx, "retrieval.strategy."+name, telemetry.SpanAttributes{
		Strategy:  name,
		Operation: "search",
	})

	defer func() {
		if p := recover(); p != nil {
			outcome = observability.OutcomePanic
			results = nil
			a.logger.Error("strategy panicked", zap.String("strategy", name), zap.Any("panic", p))
			span.SetError(fmt.Errorf("strategy %s panicked: %v", name, p))
		}
		if outcome == observability.OutcomeOK && len(results) == 0 {
			outcome = observability.OutcomeEmpty
		}
		span.SetData("results", len(results))
		span.End()
		a.metrics.ObserveStrategy(name, outcome, time.Since(start), len(results))
	}()

	raw, err := s.Search(ctx, in)
	if err != nil {
		outcome = observability.OutcomeError
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			outcome = observability.OutcomeTimeout
		}
		a.logger.Warn("strategy failed",
			zap.String("strategy", name),
			zap.String("outcome", outcome),
			zap.Error(err))
		return nil
	}

	results = make([]domain.SearchResult, 0, len(raw))
	for _, r := range raw {
		if err := domain.ValidateSearchResult(r); err != nil {
			a.logger.Debug("dropping invalid result", zap.String("strategy", name), zap.Error(err))
			continue
		}
		results = append(results, r)
	}
	return results
}

// Scope names the strategy set that cache keys are scoped to.
func (a *Aggregator) Scope() string {
	return a.scope
}
