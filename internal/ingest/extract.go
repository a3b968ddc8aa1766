package ingest

import (
	"errors"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// MinContentLength is the shortest page text worth storing.
const MinContentLength = 50

// ErrThinContent is returned for pages with less than MinContentLength
// characters of text.
var ErrThinContent = errors.New("page has too little content")

// Page is the text extracted from one HTML document.
type Page struct {
	URL       string
	Title     string
	Content   string
	Canonical string
	Links     []string
}

var boilerplate = []string{
	"Skip to main content",
	"Skip to content",
	"Skip to navigation",
	"Back to top",
	"Acknowledgement of Country",
}

var contentClasses = []string{"content", "main-content", "text-content", "page-content", "entry-content"}

var droppedElements = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true, "svg": true, "iframe": true,
}

// Extract parses an HTML document and returns its title, main text and the
// absolute links it contains.
func Extract(pageURL string, r io.Reader) (*Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	base, _ := url.Parse(pageURL)

	page := &Page{URL: pageURL}
	page.Title = collapse(textOf(findFirst(doc, func(n *html.Node) bool { return isElement(n, "title") })))
	if page.Title == "" {
		page.Title = collapse(textOf(findFirst(doc, func(n *html.Node) bool { return isElement(n, "h1") })))
	}

	if link := findFirst(doc, func(n *html.Node) bool {
		return isElement(n, "link") && strings.EqualFold(attr(n, "rel"), "canonical")
	}); link != nil {
		page.Canonical = resolve(base, attr(link, "href"))
	}

	page.Content = mainContent(doc)
	if len([]rune(page.Content)) < MinContentLength {
		return nil, ErrThinContent
	}

	seen := make(map[string]struct{})
	walk(doc, func(n *html.Node) {
		if !isElement(n, "a") {
			return
		}
		abs := resolve(base, attr(n, "href"))
		if abs == "" {
			return
		}
		if _, ok := seen[abs]; ok {
			return
		}
		seen[abs] = struct{}{}
		page.Links = append(page.Links, abs)
	})
	return page, nil
}

// mainContent prefers the first main/article/content container with more
// than 100 characters, falling back to the body text.
func mainContent(doc *html.Node) string {
	var found string
	walk(doc, func(n *html.Node) {
		if found != "" || n.Type != html.ElementNode {
			return
		}
		if !isContentContainer(n) {
			return
		}
		if text := stripBoilerplate(collapse(textOf(n))); len([]rune(text)) > 100 {
			found = text
		}
	})
	if found != "" {
		return found
	}
	body := findFirst(doc, func(n *html.Node) bool { return isElement(n, "body") })
	if body == nil {
		body = doc
	}
	return stripBoilerplate(collapse(textOf(body)))
}

func isContentContainer(n *html.Node) bool {
	switch n.Data {
	case "main", "article":
		return true
	}
	if attr(n, "id") == "content" {
		return true
	}
	for _, cls := range strings.Fields(attr(n, "class")) {
		for _, want := range contentClasses {
			if cls == want {
				return true
			}
		}
	}
	return false
}

func stripBoilerplate(s string) string {
	for _, b := range boilerplate {
		s = strings.ReplaceAll(s, b, "")
	}
	return collapse(s)
}

func walk(n *html.Node, fn func(*html.Node)) {
	if n == nil {
		return
	}
	if n.Type == html.ElementNode && droppedElements[n.Data] {
		return
	}
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	var found *html.Node
	walk(n, func(c *html.Node) {
		if found == nil && match(c) {
			found = c
		}
	})
	return found
}

func textOf(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	walk(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
			b.WriteByte(' ')
		}
	})
	return b.String()
}

func isElement(n *html.Node, tag string) bool {
	return n.Type == html.ElementNode && n.Data == tag
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") || strings.HasPrefix(href, "javascript:") {
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

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
