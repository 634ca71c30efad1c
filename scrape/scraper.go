// Package scrape collects German court decisions from a case-law portal
// into the corpus the assistant answers statute questions over. It keeps
// to the site's robots.txt, waits between requests and only follows
// full-text links to official publication hosts.
package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"gesagent/dataset"
)

const (
	DefaultUserAgent = "gesagent-dejurescrape/1.0"
	DefaultDelay     = 2 * time.Second

	fetchAttempts  = 3
	requestTimeout = 20 * time.Second
)

// Options configures a Scraper. An empty UserAgent gets the default;
// Delay 0 disables the politeness wait; MaxPages 0 means unlimited.
type Options struct {
	BaseURL     string
	StartPath   string
	Delay       time.Duration
	UserAgent   string
	CourtFilter string
	MaxPages    int
}

type Scraper struct {
	baseURL     string
	startPath   string
	delay       time.Duration
	userAgent   string
	courtFilter string
	maxPages    int

	client       *http.Client
	robots       *robotsRules
	pagesVisited int
}

func New(opts Options) *Scraper {
	baseURL := strings.TrimSuffix(opts.BaseURL, "/")
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	delay := opts.Delay
	if delay < 0 {
		delay = 0
	}

	client := &http.Client{Timeout: requestTimeout}
	return &Scraper{
		baseURL:     baseURL,
		startPath:   opts.StartPath,
		delay:       delay,
		userAgent:   userAgent,
		courtFilter: strings.ToLower(opts.CourtFilter),
		maxPages:    opts.MaxPages,
		client:      client,
		robots:      fetchRobots(client, baseURL, userAgent),
	}
}

func (s *Scraper) allowed(path string) bool {
	return s.robots.Allowed(s.userAgent, path)
}

func (s *Scraper) absolute(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return s.baseURL + href
}

func (s *Scraper) sleep(ctx context.Context) error {
	if s.delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// get fetches a URL, retrying server errors with exponential backoff.
func (s *Scraper) get(ctx context.Context, url string) (*http.Response, error) {
	backoff := time.Second
	var lastErr error
	for attempt := 0; attempt < fetchAttempts; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
			backoff *= 2
			if backoff > 8*time.Second {
				backoff = 8 * time.Second
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", s.userAgent)
		resp, err := s.client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error %d for %s", resp.StatusCode, url)
			continue
		}
		return resp, nil
	}
	return nil, lastErr
}

// getDoc fetches and parses an HTML page.
func (s *Scraper) getDoc(ctx context.Context, url string) (*html.Node, error) {
	resp, err := s.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	doc, err := html.Parse(io.LimitReader(resp.Body, 8*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", url, err)
	}
	return doc, nil
}

func (s *Scraper) budgetExhausted() bool {
	return s.maxPages > 0 && s.pagesVisited >= s.maxPages
}

// Run crawls the courts index and emits one record per decision found.
// emit returning an error aborts the crawl.
func (s *Scraper) Run(ctx context.Context, emit func(dataset.CaseRecord) error) error {
	if !s.allowed(s.startPath) {
		return nil
	}
	if err := s.sleep(ctx); err != nil {
		return err
	}
	index, err := s.getDoc(ctx, s.baseURL+s.startPath)
	if err != nil {
		return fmt.Errorf("failed to fetch courts index: %w", err)
	}

	// Decisions listed prominently on the index itself.
	for _, path := range caseLinks(index) {
		if s.budgetExhausted() {
			return nil
		}
		if err := s.visitCase(ctx, path, emit); err != nil {
			return err
		}
	}

	// Court pages linked from the index, each listing further decisions.
	for _, path := range s.courtLinks(index) {
		if s.budgetExhausted() {
			return nil
		}
		if !s.allowed(path) {
			continue
		}
		if err := s.sleep(ctx); err != nil {
			return err
		}
		doc, err := s.getDoc(ctx, s.absolute(path))
		if err != nil {
			continue
		}
		s.pagesVisited++
		for _, cpath := range caseLinks(doc) {
			if s.budgetExhausted() {
				return nil
			}
			if err := s.visitCase(ctx, cpath, emit); err != nil {
				return err
			}
		}
	}
	return nil
}

// courtLinks filters the index anchors down to court overview pages.
func (s *Scraper) courtLinks(index *html.Node) []string {
	excluded := []string{"/gesetze", "/corona", "/benutzer", "/stellenmarkt", "/dienste/vernetzung/rechtsprechung"}
	var paths []string
	seen := make(map[string]bool)
	for _, a := range findAll(index, "a") {
		href := attr(a, "href")
		if href == "" || !strings.HasPrefix(href, "/") {
			continue
		}
		if s.courtFilter != "" && !strings.Contains(strings.ToLower(nodeText(a)), s.courtFilter) {
			continue
		}
		skip := false
		for _, seg := range excluded {
			if strings.Contains(href, seg) {
				skip = true
				break
			}
		}
		if skip || seen[href] {
			continue
		}
		seen[href] = true
		paths = append(paths, href)
	}
	return paths
}

// visitCase fetches one decision page, hops to its canonical short URL
// when present, and emits the extracted record. Pages opting out via a
// robots meta tag are skipped silently.
func (s *Scraper) visitCase(ctx context.Context, path string, emit func(dataset.CaseRecord) error) error {
	if !s.allowed(path) {
		return nil
	}
	if err := s.sleep(ctx); err != nil {
		return err
	}
	doc, err := s.getDoc(ctx, s.absolute(path))
	if err != nil {
		return nil
	}
	s.pagesVisited++
	if metaDisallowed(doc) {
		return nil
	}

	url := path
	// Hop to the canonical short page for consistent parsing, unless
	// the page budget is already spent.
	if short := shortURL(doc); short != "" && s.allowed(short) && !s.budgetExhausted() {
		if err := s.sleep(ctx); err != nil {
			return err
		}
		shortDoc, err := s.getDoc(ctx, s.absolute(short))
		if err == nil {
			s.pagesVisited++
			if metaDisallowed(shortDoc) {
				return nil
			}
			doc = shortDoc
			url = short
		}
	}

	rec := s.extractRecord(doc, s.absolute(url))

	// Full text lives on official publication sites, not on the portal.
	if text := s.fetchFullText(ctx, doc); text != "" {
		rec.FullText = text
	}

	return emit(rec)
}

func (s *Scraper) extractRecord(doc *html.Node, url string) dataset.CaseRecord {
	rec := dataset.CaseRecord{URL: url}

	if title := findFirst(doc, "h1", "title"); title != nil {
		rec.Title = nodeText(title)
	}

	header := headerText(doc)
	if header == "" {
		header = rec.Title
	}
	rec.Date = extractDate(header)
	rec.FileNumber = extractFileNumber(header)
	rec.Court = extractCourt(doc, header)
	rec.Leitsatz = extractSection(doc, "Leitsatz")
	rec.Tenor = extractSection(doc, "Tenor")
	rec.References = extractReferences(doc, s.absolute)

	return rec
}

// fetchFullText tries the page's outbound publication links until one
// yields text that reads like a complete judgment.
func (s *Scraper) fetchFullText(ctx context.Context, doc *html.Node) string {
	for _, url := range fullTextLinks(doc, s.absolute) {
		if err := s.sleep(ctx); err != nil {
			return ""
		}
		resp, err := s.get(ctx, url)
		if err != nil {
			continue
		}
		contentType := strings.ToLower(resp.Header.Get("Content-Type"))
		if !strings.HasPrefix(contentType, "text/html") {
			resp.Body.Close()
			continue
		}
		sub, err := html.Parse(io.LimitReader(resp.Body, 8*1024*1024))
		resp.Body.Close()
		if err != nil {
			continue
		}
		if text := mainText(sub); looksLikeJudgment(text) {
			return text
		}
	}
	return ""
}
