package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/cloo-solutions/campusguide/internal/domain"
	"github.com/cloo-solutions/campusguide/internal/httputil"
	"github.com/cloo-solutions/campusguide/internal/observability"
	"github.com/cloo-solutions/campusguide/internal/service"
	"github.com/cloo-solutions/campusguide/internal/telemetry"
)

// Page outcomes reported to metrics
const (
	PageStored    = "stored"
	PageUnchanged = "unchanged"
	PageDuplicate = "duplicate"
	PageSkipped   = "skipped"
	PageError     = "error"
)

const maxPageBytes = 4 << 20

// Config tunes a crawl.
type Config struct {
	BaseURL string
	// Domain limits the crawl to this host and its subdomains.
	Domain  string
	Sitemap string
	// FallbackURLs seed the crawl when the sitemap cannot be read.
	FallbackURLs []string
	// ExtraURLs are always seeded.
	ExtraURLs []string

	Workers   int
	RateLimit time.Duration
	MaxDepth  int
	MaxPages  int
	MaxQueue  int
	// MaxItems stops the crawl once this many items were stored.
	MaxItems  int
	UserAgent string
	Timeout   time.Duration
	Retries   int
}

// DefaultConfig returns the production crawl settings.
func DefaultConfig() Config {
	return Config{
		BaseURL: "https://www.rmit.edu.au",
		Domain:  "rmit.edu.au",
		Sitemap: "/sitemap.xml",
		FallbackURLs: []string{
			"https://www.rmit.edu.au",
			"https://www.rmit.edu.au/study-with-us",
			"https://www.rmit.edu.au/students",
			"https://www.rmit.edu.au/courses",
		},
		ExtraURLs: []string{
			"https://www.rmit.edu.au/about/governance-and-management/policies",
			"https://policies.rmit.edu.au/browse",
			"https://www.rmit.edu.au/students/support-and-facilities",
			"https://www.rmit.edu.au/students/contact-and-help",
		},
		Workers:   5,
		RateLimit: 300 * time.Millisecond,
		MaxDepth:  5,
		MaxPages:  15000,
		MaxQueue:  15000,
		MaxItems:  8000,
		UserAgent: "campusguide-crawler/1.0 (course information knowledge base)",
		Timeout:   30 * time.Second,
		Retries:   3,
	}
}

// Sink persists crawled items.
type Sink interface {
	Ingest(ctx context.Context, item *domain.KnowledgeItem) (service.IngestOutcome, error)
}

// Record is one stored item as written to a snapshot.
type Record struct {
	Title          string         `json:"title"`
	Content        string         `json:"content"`
	Category       string         `json:"category"`
	SourceURL      string         `json:"sourceUrl"`
	Tags           []string       `json:"tags"`
	EntityCodes    []string       `json:"entityCodes,omitempty"`
	Priority       int            `json:"priority"`
	IsActive       bool           `json:"isActive"`
	StructuredData map[string]any `json:"structuredData,omitempty"`
}

// Report summarises a crawl.
type Report struct {
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Seeds      int            `json:"seeds"`
	Visited    int            `json:"visited"`
	Stored     int            `json:"stored"`
	Unchanged  int            `json:"unchanged"`
	Duplicates int            `json:"duplicates"`
	Skipped    int            `json:"skipped"`
	Failed     int            `json:"failed"`
	ByCategory map[string]int `json:"by_category"`
	Records    []Record       `json:"-"`
}

// Crawler walks the site breadth-first with a fixed worker pool sharing one
// rate limiter.
type Crawler struct {
	cfg     Config
	policy  URLPolicy
	sink    Sink
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// NewCrawler creates a Crawler. client, logger and metrics may be nil.
func NewCrawler(cfg Config, sink Sink, client *http.Client, logger *zap.Logger, metrics *observability.Metrics) *Crawler {
	defaults := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = defaults.Workers
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = defaults.MaxDepth
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = defaults.MaxPages
	}
	if cfg.MaxQueue <= 0 {
		cfg.MaxQueue = defaults.MaxQueue
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaults.UserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.Sitemap == "" {
		cfg.Sitemap = defaults.Sitemap
	}
	if cfg.Domain == "" {
		if u, err := url.Parse(cfg.BaseURL); err == nil {
			cfg.Domain = strings.TrimPrefix(u.Hostname(), "www.")
		}
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Every(cfg.RateLimit)
	}

	return &Crawler{
		cfg:     cfg,
		policy:  URLPolicy{Domain: cfg.Domain},
		sink:    sink,
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

type task struct {
	url   string
	depth int
}

// crawlState is shared by the workers of one Run.
type crawlState struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	hashes  map[string]struct{}
	report  *Report
	stopped bool
}

// Run crawls from the sitemap (or fallback URLs) until the frontier is
// exhausted, a limit is reached or ctx is cancelled. Partial results are
// returned with ctx.Err() on cancellation.
func (c *Crawler) Run(ctx context.Context) (*Report, error) {
	if c.sink == nil {
		return nil, errors.New("crawler has no sink")
	}

	ctx, span := telemetry.StartSpan(ctx, "ingest.crawl", telemetry.SpanAttributes{Operation: "crawl"})
	defer span.End()

	state := &crawlState{
		seen:   make(map[string]struct{}),
		hashes: make(map[string]struct{}),
		report: &Report{StartedAt: c.now(), ByCategory: make(map[string]int)},
	}

	seeds := c.seeds(ctx)
	state.report.Seeds = len(seeds)
	c.logger.Info("crawl starting",
		zap.Int("seeds", len(seeds)),
		zap.Int("workers", c.cfg.Workers),
		zap.Duration("rate_limit", c.cfg.RateLimit))

	queue := make(chan task, c.cfg.MaxQueue)
	var pending sync.WaitGroup

	enqueue := func(rawURL string, depth int) {
		if depth > c.cfg.MaxDepth || !c.policy.Allow(rawURL) {
			return
		}
		key := normalize(rawURL)
		state.mu.Lock()
		defer state.mu.Unlock()
		if state.stopped {
			return
		}
		if _, ok := state.seen[key]; ok {
			return
		}
		pending.Add(1)
		select {
		case queue <- task{url: rawURL, depth: depth}:
			state.seen[key] = struct{}{}
		default:
			pending.Done()
		}
	}

	for _, s := range seeds {
		enqueue(s, 0)
	}

	go func() {
		pending.Wait()
		close(queue)
	}()

	g, gctx := errgroup.WithContext(ctx)
	for range c.cfg.Workers {
		g.Go(func() error {
			for t := range queue {
				c.visit(gctx, t, state, enqueue)
				pending.Done()
			}
			return nil
		})
	}
	_ = g.Wait()

	report := state.report
	report.FinishedAt = c.now()
	span.SetData("visited", report.Visited)
	span.SetData("stored", report.Stored)

	c.logger.Info("crawl finished",
		zap.Int("visited", report.Visited),
		zap.Int("stored", report.Stored),
		zap.Int("unchanged", report.Unchanged),
		zap.Int("duplicates", report.Duplicates),
		zap.Int("failed", report.Failed),
		zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)))

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// seeds returns the prioritised start URLs.
func (c *Crawler) seeds(ctx context.Context) []string {
	var start []string
	if c.cfg.BaseURL != "" {
		sitemapURL := c.cfg.Sitemap
		if !strings.HasPrefix(sitemapURL, "http://") && !strings.HasPrefix(sitemapURL, "https://") {
			sitemapURL = strings.TrimSuffix(c.cfg.BaseURL, "/") + "/" + strings.TrimPrefix(sitemapURL, "/")
		}
		urls, err := c.sitemapURLs(ctx, sitemapURL)
		if err != nil {
			c.logger.Warn("sitemap unavailable, using fallback start URLs", zap.String("sitemap", sitemapURL), zap.Error(err))
		}
		for _, u := range urls {
			if c.policy.Allow(u) {
				start = append(start, u)
			}
		}
		c.logger.Info("sitemap read", zap.Int("urls", len(urls)), zap.Int("accepted", len(start)))
	}
	if len(start) == 0 {
		start = append(start, c.cfg.FallbackURLs...)
	}
	start = append(start, c.cfg.ExtraURLs...)
	return PrioritizeURLs(start)
}

func (c *Crawler) visit(ctx context.Context, t task, state *crawlState, enqueue func(string, int)) {
	if ctx.Err() != nil {
		return
	}

	state.mu.Lock()
	if state.stopped || state.report.Visited >= c.cfg.MaxPages {
		state.stopped = true
		state.mu.Unlock()
		return
	}
	state.report.Visited++
	state.mu.Unlock()

	page, err := c.fetchPage(ctx, t.url)
	if err != nil {
		outcome := PageError
		if errors.Is(err, ErrThinContent) || errors.Is(err, errNotHTML) {
			outcome = PageSkipped
		}
		c.record(state, outcome, "", nil)
		c.logger.Debug("page not stored", zap.String("url", t.url), zap.String("outcome", outcome), zap.Error(err))
		return
	}

	item := BuildItem(page, c.now())

	state.mu.Lock()
	if _, dup := state.hashes[item.ContentHash]; dup {
		state.mu.Unlock()
		c.record(state, PageDuplicate, "", nil)
		return
	}
	state.hashes[item.ContentHash] = struct{}{}
	state.mu.Unlock()

	for _, link := range page.Links {
		enqueue(link, t.depth+1)
	}

	outcome, err := c.sink.Ingest(ctx, item)
	if err != nil {
		c.record(state, PageError, "", nil)
		c.logger.Warn("storing page failed", zap.String("url", t.url), zap.Error(err))
		return
	}

	result := PageStored
	if outcome == service.IngestUnchanged {
		result = PageUnchanged
	}
	c.record(state, result, string(item.Category), item)
}

func (c *Crawler) record(state *crawlState, outcome, category string, item *domain.KnowledgeItem) {
	c.metrics.ObservePage(outcome)

	state.mu.Lock()
	defer state.mu.Unlock()
	r := state.report
	switch outcome {
	case PageStored:
		r.Stored++
	case PageUnchanged:
		r.Unchanged++
	case PageDuplicate:
		r.Duplicates++
	case PageSkipped:
		r.Skipped++
	default:
		r.Failed++
	}
	if item == nil {
		return
	}
	r.ByCategory[category]++
	r.Records = append(r.Records, recordOf(item))

	kept := r.Stored + r.Unchanged
	if kept%50 == 0 {
		c.logger.Info("crawl progress", zap.Int("items", kept), zap.Int("visited", r.Visited))
	}
	if c.cfg.MaxItems > 0 && kept >= c.cfg.MaxItems {
		state.stopped = true
	}
}

var errNotHTML = errors.New("not an HTML page")

func (c *Crawler) fetchPage(ctx context.Context, pageURL string) (*Page, error) {
	body, err := c.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return Extract(pageURL, io.LimitReader(body, maxPageBytes))
}

// get waits for the rate limiter and issues a GET, returning the body of a
// 200 response.
func (c *Crawler) get(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := httputil.DoWithRetry(ctx, c.client, req, c.cfg.Retries)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: HTTP %d", rawURL, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		mt, _, _ := mime.ParseMediaType(ct)
		if mt != "" && !strings.Contains(mt, "html") && !strings.Contains(mt, "xml") {
			resp.Body.Close()
			return nil, fmt.Errorf("%w: %s", errNotHTML, mt)
		}
	}
	return resp.Body, nil
}

// BuildItem turns an extracted page into a knowledge item ready for ingest.
// The ID is left empty for the knowledge service to assign.
func BuildItem(page *Page, now time.Time) *domain.KnowledgeItem {
	title := page.Title
	if title == "" {
		title = titleFromURL(page.URL)
	}
	category := Categorize(page.URL, title, page.Content)
	codes := ExtractCodes(page.Content)
	tags := Tags(category, page.Content, codes)

	item := domain.NewKnowledgeItem("", title, page.Content, category, tags, 0, page.URL, now, now)
	item.Priority = Priority(category, item.Tags, item.Content)

	entity := ExtractCodes(title)
	if code := CodeFromURL(page.URL); code != "" {
		entity = append(entity, code)
	}
	if category == domain.KnowledgeCategoryCourseInfo || category == domain.KnowledgeCategorySubjectInfo {
		entity = append(entity, codes...)
	}
	item.EntityCodes = dedupe(entity)
	item.StructuredData = StructuredData(category, item.Content, codes, page.Canonical)
	item.ContentHash = ContentHash(item.Content)
	return item
}

// ContentHash is the hex SHA-256 of content.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func recordOf(item *domain.KnowledgeItem) Record {
	return Record{
		Title:          item.Title,
		Content:        item.Content,
		Category:       string(item.Category),
		SourceURL:      item.SourceURL,
		Tags:           item.Tags,
		EntityCodes:    item.EntityCodes,
		Priority:       item.Priority,
		IsActive:       item.IsActive,
		StructuredData: item.StructuredData,
	}
}

func titleFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	slug := path.Base(strings.TrimSuffix(u.Path, "/"))
	if slug == "" || slug == "." || slug == "/" {
		return u.Hostname()
	}
	words := strings.Fields(strings.NewReplacer("-", " ", "_", " ").Replace(slug))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func dedupe(in []string) []string {
	set := make(map[string]struct{}, len(in))
	for _, s := range in {
		set[s] = struct{}{}
	}
	return sortedKeys(set)
}
