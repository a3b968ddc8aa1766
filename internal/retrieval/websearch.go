package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cloo-solutions/campusguide/internal/domain"
	"github.com/cloo-solutions/campusguide/internal/httputil"
)

// DefaultWebSearchURL is the Serper-compatible search endpoint.
const DefaultWebSearchURL = "https://google.serper.dev/search"

const maxWebResponseBytes = 2 << 20

// WebSearchConfig configures the web search API strategy.
type WebSearchConfig struct {
	APIKey  string
	URL     string
	Domain  string
	Locale  string
	Num     int
	Timeout time.Duration
	Retries int
}

// WebSearch queries an external web search API restricted to the
// institution's domain.
type WebSearch struct {
	cfg    WebSearchConfig
	client *http.Client
	now    func() time.Time
}

// NewWebSearch creates the web strategy. A nil client uses a default one.
func NewWebSearch(cfg WebSearchConfig, client *http.Client) *WebSearch {
	if cfg.URL == "" {
		cfg.URL = DefaultWebSearchURL
	}
	if cfg.Num <= 0 {
		cfg.Num = 10
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	if client == nil {
		client = &http.Client{}
	}
	return &WebSearch{cfg: cfg, client: client, now: time.Now}
}

func (w *WebSearch) Name() string            { return "web" }
func (w *WebSearch) Kind() domain.SourceKind { return domain.SourceWeb }

// Enabled reports whether a credential is configured.
func (w *WebSearch) Enabled() bool {
	return w.cfg.APIKey != ""
}

type webSearchRequest struct {
	Q   string `json:"q"`
	Num int    `json:"num"`
	GL  string `json:"gl,omitempty"`
}

type webSearchResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

// Search returns nothing without a credential.
func (w *WebSearch) Search(ctx context.Context, in Input) ([]domain.SearchResult, error) {
	if !w.Enabled() {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, w.cfg.Timeout)
	defer cancel()

	q := in.SearchQuery
	if w.cfg.Domain != "" {
		q = "site:" + w.cfg.Domain + " " + q
	}
	payload, err := json.Marshal(webSearchRequest{Q: q, Num: w.cfg.Num, GL: w.cfg.Locale})
	if err != nil {
		return nil, fmt.Errorf("encoding web search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating web search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", w.cfg.APIKey)

	resp, err := httputil.DoWithRetry(ctx, w.client, req, w.cfg.Retries)
	if err != nil {
		return nil, fmt.Errorf("web search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("web search returned HTTP %d", resp.StatusCode)
	}

	var body webSearchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxWebResponseBytes)).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding web search response: %w", err)
	}

	now := w.now()
	results := make([]domain.SearchResult, 0, len(body.Organic))
	for rank, item := range body.Organic {
		link := strings.TrimSpace(item.Link)
		if link == "" {
			continue
		}
		score := 0.95 - 0.05*float64(rank)
		if score < 0.3 {
			score = 0.3
		}
		r := domain.NewSearchResult("web-"+strconv.Itoa(rank), item.Title, item.Snippet, link,
			domain.SourceWeb, score, in.Query, now)
		for _, code := range in.Codes() {
			if containsToken(strings.ToUpper(item.Title+" "+link), code) {
				r = r.WithEntityCode(code)
				break
			}
		}
		results = append(results, r)
	}
	return results, nil
}
