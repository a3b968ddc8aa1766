package retrieval

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"

	"github.com/cloo-solutions/campusguide/internal/domain"
)

// ScrapeConfig configures the direct site scraping strategy.
type ScrapeConfig struct {
	BaseURL    string
	Pages      []string
	Sitemap    string
	MaxResults int
	UserAgent  string
}

// DefaultScrapePages are the listing pages scraped for program links.
var DefaultScrapePages = []string{
	"/study-with-us",
	"/study-with-us/levels-of-study/undergraduate-study/bachelor-degrees",
	"/study-with-us/levels-of-study/postgraduate-study/masters-by-coursework",
	"/study-with-us/levels-of-study/vocational-study/diplomas",
}

var programLinkPatterns = []string{"/bachelor-", "/master-", "/courses/", "/study-with-us/", "/diploma-", "/certificate-"}

const maxScrapeBodyBytes = 8 << 20

// SiteScraper reads program links straight off the institution's listing
// pages and sitemap.
type SiteScraper struct {
	cfg    ScrapeConfig
	client *http.Client
	logger *zap.Logger
	now    func() time.Time
}

// NewSiteScraper creates the scraping strategy.
func NewSiteScraper(cfg ScrapeConfig, client *http.Client, logger *zap.Logger) *SiteScraper {
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if cfg.Pages == nil {
		cfg.Pages = DefaultScrapePages
	}
	if cfg.Sitemap == "" {
		cfg.Sitemap = "/sitemap.xml"
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 10
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "campusguide/1.0"
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SiteScraper{cfg: cfg, client: client, logger: logger, now: time.Now}
}

func (s *SiteScraper) Name() string            { return "scrape" }
func (s *SiteScraper) Kind() domain.SourceKind { return domain.SourceWeb }

// link is one candidate program page.
type link struct {
	href string
	text string
}

// Search fetches every configured page and the sitemap concurrently and
// keeps the program links that share terms with the query.
func (s *SiteScraper) Search(ctx context.Context, in Input) ([]domain.SearchResult, error) {
	if s.cfg.BaseURL == "" {
		return nil, nil
	}

	var (
		mu    sync.Mutex
		links []link
		fails int
	)
	collect := func(found []link, err error, src string) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			fails++
			s.logger.Debug("scrape source failed", zap.String("source", src), zap.Error(err))
			return
		}
		links = append(links, found...)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, p := range s.cfg.Pages {
		pageURL := s.resolve(p)
		g.Go(func() error {
			found, err := s.pageLinks(gctx, pageURL)
			collect(found, err, pageURL)
			return nil
		})
	}
	sitemapURL := s.resolve(s.cfg.Sitemap)
	g.Go(func() error {
		found, err := s.sitemapLinks(gctx, sitemapURL)
		collect(found, err, sitemapURL)
		return nil
	})
	_ = g.Wait()

	if fails == len(s.cfg.Pages)+1 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("all %d scrape sources failed", fails)
	}
	return s.rank(links, in), nil
}

func (s *SiteScraper) resolve(p string) string {
	if strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
		return p
	}
	return s.cfg.BaseURL + "/" + strings.TrimPrefix(p, "/")
}

func (s *SiteScraper) get(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: HTTP %d", rawURL, resp.StatusCode)
	}
	return resp.Body, nil
}

func (s *SiteScraper) pageLinks(ctx context.Context, pageURL string) ([]link, error) {
	body, err := s.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := html.Parse(io.LimitReader(body, maxScrapeBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", pageURL, err)
	}
	base, _ := url.Parse(pageURL)

	var out []link
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, a := range n.Attr {
				if a.Key != "href" {
					continue
				}
				abs := absolute(base, a.Val)
				if abs != "" && isProgramLink(abs) {
					out = append(out, link{href: abs, text: collapse(nodeText(n))})
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out, nil
}

type urlSet struct {
	URLs []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

func (s *SiteScraper) sitemapLinks(ctx context.Context, sitemapURL string) ([]link, error) {
	body, err := s.get(ctx, sitemapURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var set urlSet
	if err := xml.NewDecoder(io.LimitReader(body, maxScrapeBodyBytes)).Decode(&set); err != nil {
		return nil, fmt.Errorf("decoding sitemap: %w", err)
	}
	out := make([]link, 0, len(set.URLs))
	for _, u := range set.URLs {
		loc := strings.TrimSpace(u.Loc)
		if loc != "" && isProgramLink(loc) {
			out = append(out, link{href: loc})
		}
	}
	return out, nil
}

func (s *SiteScraper) rank(links []link, in Input) []domain.SearchResult {
	if len(in.Terms) == 0 {
		return nil
	}
	type scored struct {
		link
		title string
		score float64
	}

	seen := make(map[string]int)
	var cands []scored
	for _, l := range links {
		title := l.text
		if title == "" {
			title = slugTitle(l.href)
		}
		haystack := strings.ToLower(title + " " + strings.ReplaceAll(path.Base(l.href), "-", " "))
		hits := 0
		for _, t := range in.Terms {
			if matchesTerm(haystack, t) {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		sc := float64(hits) / float64(len(in.Terms))
		key := NormalizeURL(l.href)
		if i, ok := seen[key]; ok {
			if sc > cands[i].score || (cands[i].link.text == "" && l.text != "") {
				cands[i] = scored{link: l, title: title, score: max(sc, cands[i].score)}
			}
			continue
		}
		seen[key] = len(cands)
		cands = append(cands, scored{link: l, title: title, score: sc})
	}

	sort.SliceStable(cands, func(i, j int) bool { return cands[i].score > cands[j].score })
	if len(cands) > s.cfg.MaxResults {
		cands = cands[:s.cfg.MaxResults]
	}

	now := s.now()
	out := make([]domain.SearchResult, 0, len(cands))
	for i, c := range cands {
		r := domain.NewSearchResult("scrape-"+strconv.Itoa(i), c.title, c.title, c.href,
			domain.SourceWeb, c.score, in.Query, now)
		for _, code := range in.Codes() {
			if containsToken(strings.ToUpper(c.href+" "+c.title), code) {
				r = r.WithEntityCode(code)
				break
			}
		}
		out = append(out, r)
	}
	return out
}

func isProgramLink(u string) bool {
	lower := strings.ToLower(u)
	for _, p := range programLinkPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func absolute(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "javascript:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	ref.Fragment = ""
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return ""
	}
	return ref.String()
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// slugTitle turns ".../bachelor-of-computer-science-bp094" into a readable title.
func slugTitle(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	slug := path.Base(strings.TrimSuffix(u.Path, "/"))
	words := strings.Fields(strings.ReplaceAll(slug, "-", " "))
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
