package ingest

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

const (
	maxSitemapBytes  = 32 << 20
	maxChildSitemaps = 20
)

type sitemapLoc struct {
	Loc string `xml:"loc"`
}

// sitemapDoc matches both <urlset> and <sitemapindex> roots in any namespace.
type sitemapDoc struct {
	URLs     []sitemapLoc `xml:"url"`
	Sitemaps []sitemapLoc `xml:"sitemap"`
}

func parseSitemap(r io.Reader) (sitemapDoc, error) {
	var doc sitemapDoc
	if err := xml.NewDecoder(io.LimitReader(r, maxSitemapBytes)).Decode(&doc); err != nil {
		return sitemapDoc{}, fmt.Errorf("decoding sitemap: %w", err)
	}
	return doc, nil
}

// sitemapURLs returns the page URLs listed in the sitemap at sitemapURL,
// following one level of sitemap index.
func (c *Crawler) sitemapURLs(ctx context.Context, sitemapURL string) ([]string, error) {
	doc, err := c.fetchSitemap(ctx, sitemapURL)
	if err != nil {
		return nil, err
	}

	urls := locs(doc.URLs)
	for i, child := range doc.Sitemaps {
		if i >= maxChildSitemaps {
			break
		}
		loc := strings.TrimSpace(child.Loc)
		if loc == "" {
			continue
		}
		sub, err := c.fetchSitemap(ctx, loc)
		if err != nil {
			c.logger.Warn("child sitemap failed", zap.String("url", loc), zap.Error(err))
			continue
		}
		urls = append(urls, locs(sub.URLs)...)
	}
	return urls, nil
}

func (c *Crawler) fetchSitemap(ctx context.Context, sitemapURL string) (sitemapDoc, error) {
	body, err := c.get(ctx, sitemapURL)
	if err != nil {
		return sitemapDoc{}, err
	}
	defer body.Close()
	return parseSitemap(body)
}

func locs(entries []sitemapLoc) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if loc := strings.TrimSpace(e.Loc); loc != "" {
			out = append(out, loc)
		}
	}
	return out
}
