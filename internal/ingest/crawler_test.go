package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/campusguide/internal/domain"
	"github.com/cloo-solutions/campusguide/internal/observability"
	"github.com/cloo-solutions/campusguide/internal/service"
)

type memorySink struct {
	mu    sync.Mutex
	items map[string]*domain.KnowledgeItem
	fail  string
}

func newMemorySink() *memorySink {
	return &memorySink{items: make(map[string]*domain.KnowledgeItem)}
}

func (s *memorySink) Ingest(_ context.Context, item *domain.KnowledgeItem) (service.IngestOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != "" && strings.Contains(item.SourceURL, s.fail) {
		return "", fmt.Errorf("store down")
	}
	if prev, ok := s.items[item.SourceURL]; ok && prev.ContentHash == item.ContentHash {
		return service.IngestUnchanged, nil
	}
	s.items[item.SourceURL] = item
	return service.IngestCreated, nil
}

func (s *memorySink) get(url string) *domain.KnowledgeItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[url]
}

func htmlPage(title, body string, links ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<html><head><title>%s</title></head><body><main><p>%s</p>", title, body)
	for _, l := range links {
		fmt.Fprintf(&b, `<a href="%s"></a>`, l)
	}
	b.WriteString("</main></body></html>")
	return b.String()
}

const filler = " This page explains what enrolled students need to know about the topic in detail."

// newSite serves a small site on 127.0.0.1 and returns its base URL.
func newSite(t *testing.T, sitemap bool) (*httptest.Server, *sync.Map) {
	t.Helper()
	hits := &sync.Map{}
	mux := http.NewServeMux()
	count := func(r *http.Request) {
		v, _ := hits.LoadOrStore(r.URL.Path, new(int))
		*(v.(*int))++
	}

	var srv *httptest.Server
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		if !sitemap {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>%[1]s/students/support</loc></url>
  <url><loc>%[1]s/news/unrelated-story</loc></url>
  <url><loc>%[1]s/study-with-us/bachelor-of-computer-science-bp094</loc></url>
</urlset>`, srv.URL)
	})
	mux.HandleFunc("/students/support", func(w http.ResponseWriter, r *http.Request) {
		count(r)
		fmt.Fprint(w, htmlPage("Student support", "Counselling and wellbeing support services."+filler,
			"/students/fees-and-scholarships", "/students/copy", "/students/handbook.pdf", "https://example.com/students"))
	})
	mux.HandleFunc("/students/fees-and-scholarships", func(w http.ResponseWriter, r *http.Request) {
		count(r)
		fmt.Fprint(w, htmlPage("Fees and scholarships", "Scholarship payment of $5,000 per year."+filler, "/students/support"))
	})
	mux.HandleFunc("/students/copy", func(w http.ResponseWriter, r *http.Request) {
		count(r)
		fmt.Fprint(w, htmlPage("Student support", "Counselling and wellbeing support services."+filler))
	})
	mux.HandleFunc("/study-with-us/bachelor-of-computer-science-bp094", func(w http.ResponseWriter, r *http.Request) {
		count(r)
		fmt.Fprint(w, htmlPage("Bachelor of Computer Science", "The BP094 degree includes COSC2123 Algorithms."+filler))
	})
	mux.HandleFunc("/students", func(w http.ResponseWriter, r *http.Request) {
		count(r)
		fmt.Fprint(w, htmlPage("Students", "Everything for current students."+filler, "/students/support"))
	})
	mux.HandleFunc("/students/broken", func(w http.ResponseWriter, r *http.Request) {
		count(r)
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, hits
}

func testCrawlConfig(base string) Config {
	return Config{
		BaseURL:   base,
		Domain:    "127.0.0.1",
		Sitemap:   "/sitemap.xml",
		Workers:   3,
		RateLimit: time.Millisecond,
		MaxDepth:  3,
		MaxPages:  100,
		MaxQueue:  100,
		Timeout:   5 * time.Second,
		Retries:   1,
	}
}

func TestCrawler_RunFromSitemap(t *testing.T) {
	srv, hits := newSite(t, true)
	sink := newMemorySink()
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)

	c := NewCrawler(testCrawlConfig(srv.URL), sink, srv.Client(), nil, metrics)
	report, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Seeds)
	assert.Equal(t, 3, report.Stored)
	assert.Equal(t, 1, report.Duplicates)
	assert.Equal(t, 4, report.Visited)
	assert.Len(t, report.Records, 3)

	program := sink.get(srv.URL + "/study-with-us/bachelor-of-computer-science-bp094")
	require.NotNil(t, program)
	assert.Equal(t, domain.KnowledgeCategoryCourseInfo, program.Category)
	assert.Contains(t, program.EntityCodes, "BP094")
	assert.Contains(t, program.EntityCodes, "COSC2123")
	assert.Equal(t, 10, program.Priority)
	assert.NotEmpty(t, program.ContentHash)

	fees := sink.get(srv.URL + "/students/fees-and-scholarships")
	require.NotNil(t, fees)
	assert.Equal(t, domain.KnowledgeCategoryFees, fees.Category)
	assert.Equal(t, []string{"5,000"}, fees.StructuredData["amounts"])

	// every page fetched once even though support is linked from two pages
	v, ok := hits.Load("/students/support")
	require.True(t, ok)
	assert.Equal(t, 1, *(v.(*int)))
	_, newsFetched := hits.Load("/news/unrelated-story")
	assert.False(t, newsFetched)

	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.CrawledPages.WithLabelValues(PageStored)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CrawledPages.WithLabelValues(PageDuplicate)))
}

func TestCrawler_SecondRunIsUnchanged(t *testing.T) {
	srv, _ := newSite(t, true)
	sink := newMemorySink()

	_, err := NewCrawler(testCrawlConfig(srv.URL), sink, srv.Client(), nil, nil).Run(context.Background())
	require.NoError(t, err)
	report, err := NewCrawler(testCrawlConfig(srv.URL), sink, srv.Client(), nil, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, report.Stored)
	assert.Equal(t, 3, report.Unchanged)
}

func TestCrawler_FallbackSeedsWhenSitemapMissing(t *testing.T) {
	srv, _ := newSite(t, false)
	sink := newMemorySink()

	cfg := testCrawlConfig(srv.URL)
	cfg.FallbackURLs = []string{srv.URL + "/students"}
	cfg.ExtraURLs = []string{srv.URL + "/students/broken"}

	report, err := NewCrawler(cfg, sink, srv.Client(), nil, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Seeds)
	assert.Equal(t, 1, report.Failed)
	assert.NotNil(t, sink.get(srv.URL+"/students"))
	assert.NotNil(t, sink.get(srv.URL+"/students/support"))
}

func TestCrawler_MaxDepthAndSinkErrors(t *testing.T) {
	srv, hits := newSite(t, false)
	sink := newMemorySink()
	sink.fail = "/students/support"

	cfg := testCrawlConfig(srv.URL)
	cfg.FallbackURLs = []string{srv.URL + "/students"}
	cfg.MaxDepth = 1

	report, err := NewCrawler(cfg, sink, srv.Client(), nil, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Stored)
	_, deep := hits.Load("/students/fees-and-scholarships")
	assert.False(t, deep)
}

func TestCrawler_CancelledContext(t *testing.T) {
	srv, _ := newSite(t, true)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := NewCrawler(testCrawlConfig(srv.URL), newMemorySink(), srv.Client(), nil, nil).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Zero(t, report.Stored)
}

func TestCrawler_RequiresSink(t *testing.T) {
	_, err := NewCrawler(DefaultConfig(), nil, nil, nil, nil).Run(context.Background())
	assert.Error(t, err)
}

func TestBuildItem_TitleFromURL(t *testing.T) {
	item := BuildItem(&Page{
		URL:     "https://www.rmit.edu.au/students/special-consideration",
		Content: "Apply for special consideration if illness affects an assessment.",
	}, time.Now())

	assert.Equal(t, "Special Consideration", item.Title)
	assert.Empty(t, item.ID)
	assert.NoError(t, domain.ValidateKnowledgeItem(withID(item)))
	assert.Equal(t, ContentHash(item.Content), item.ContentHash)
}

func withID(k *domain.KnowledgeItem) *domain.KnowledgeItem {
	c := *k
	c.ID = "test-id"
	return &c
}
