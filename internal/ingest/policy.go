// Package ingest crawls the institution's public site and turns pages into
// categorized knowledge items for the knowledge store.
package ingest

import (
	"net/url"
	"strings"
)

var skipExtensions = []string{
	".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
	".jpg", ".jpeg", ".png", ".gif", ".zip", ".rar", ".mp4", ".mov",
}

var skipPatterns = []string{
	"/login", "/logout", "/search?", "/print/", "#", "javascript:",
	"/news/", "/events/", "/staff/", "/media/",
	"/give/", "/alumni/", "/employers/", "/commercial/", "/venues/", "/tours/",
}

var relevantKeywords = []string{
	"student", "course", "program", "policy", "support", "help", "service",
	"bachelor", "master", "diploma", "certificate", "degree", "subject",
	"enrol", "admission", "apply", "fees", "scholarship", "academic",
	"undergraduate", "postgraduate", "vocational", "contact", "faq",
	"unit", "elective", "core", "prerequisite", "curriculum", "study",
	"assessment", "exam", "timetable", "semester", "campus", "facility",
	"library", "research", "handbook", "guide", "information", "detail",
	"overview", "description", "requirement", "outcome", "graduate",
}

var programPagePatterns = []string{"/bachelor-", "/master-", "/diploma-", "/certificate-"}

// Start URLs matching these are queued ahead of the rest.
var priorityPatterns = []string{"courses", "policies", "students", "support"}

// URLPolicy decides which links the crawler follows.
type URLPolicy struct {
	Domain string
}

// InDomain reports whether rawURL is an http(s) URL on the policy domain or
// one of its subdomains.
func (p URLPolicy) InDomain(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	host := strings.ToLower(u.Hostname())
	domain := strings.ToLower(p.Domain)
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// Allow reports whether rawURL should be crawled: in domain, not a binary
// file, not an excluded section, and either mentioning a relevant keyword or
// shaped like a program page.
func (p URLPolicy) Allow(rawURL string) bool {
	if !p.InDomain(rawURL) {
		return false
	}
	lower := strings.ToLower(rawURL)
	if hasAnySuffix(lower, skipExtensions) || containsAny(lower, skipPatterns) {
		return false
	}
	return containsAny(lower, relevantKeywords) || containsAny(lower, programPagePatterns)
}

// PrioritizeURLs returns urls with the high-value sections first, keeping the
// relative order within each group and dropping duplicates.
func PrioritizeURLs(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	var first, rest []string
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		if containsAny(strings.ToLower(u), priorityPatterns) {
			first = append(first, u)
		} else {
			rest = append(rest, u)
		}
	}
	return append(first, rest...)
}

// normalize strips fragments and trailing slashes so the visited set treats
// trivially different links as one page.
func normalize(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return rawURL
	}
	u.Fragment = ""
	u.Host = strings.ToLower(u.Host)
	if u.Path != "/" {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}
	return u.String()
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}
