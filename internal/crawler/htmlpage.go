package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"casemap/internal/config"
	"casemap/internal/logger"
	"casemap/internal/models"
	"casemap/internal/normalizer"
)

// ErrAllPagesFailed is returned when no page of an HTML source could be read.
var ErrAllPagesFailed = errors.New("all pages failed")

// HTMLSource extracts candidates from listing pages with CSS selectors.
type HTMLSource struct {
	cfg     config.SourceConfig
	scraper *Scraper
	logger  *logger.Logger
	now     func() time.Time
}

// NewHTMLSource creates an HTML page source.
func NewHTMLSource(cfg config.SourceConfig, scraper *Scraper, log *logger.Logger) *HTMLSource {
	return &HTMLSource{
		cfg:     cfg,
		scraper: scraper,
		logger:  log.With("source", cfg.Name),
		now:     time.Now,
	}
}

// Name returns the configured source name.
func (h *HTMLSource) Name() string {
	return h.cfg.Name
}

// Fetch reads every page of the source. With tags, a failing page is logged
// and skipped; the fetch fails only when every page fails.
func (h *HTMLSource) Fetch(ctx context.Context) ([]models.Candidate, error) {
	var (
		out    []models.Candidate
		errs   []error
		pages  = h.cfg.PageURLs()
		tagged = len(h.cfg.Tags) > 0 && strings.Contains(h.cfg.URL, "{tag}")
	)

	for i, pageURL := range pages {
		tag := ""
		if tagged {
			tag = h.cfg.Tags[i]
		}

		resp, err := h.scraper.Get(ctx, pageURL, nil)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", pageURL, err))
			h.logger.Warn("page fetch failed", "url", pageURL, "error", err)

			if ctx.Err() != nil {
				break
			}

			continue
		}

		items, err := h.Parse(resp.Body, pageURL, tag)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", pageURL, err))
			continue
		}

		h.logger.Debug("page parsed", "url", pageURL, "items", len(items))
		out = append(out, items...)
	}

	if len(errs) == len(pages) {
		return nil, fmt.Errorf("%w: %w", ErrAllPagesFailed, errors.Join(errs...))
	}

	return out, nil
}

// Parse extracts candidates from one page body. Items without a title or
// link are skipped, as are items whose title misses every keyword when
// keywords are configured.
func (h *HTMLSource) Parse(body []byte, pageURL, tag string) ([]models.Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	base := h.baseURL(pageURL)
	label := h.label(tag)
	date := h.now().Format("2006-01-02")
	sel := h.cfg.Selectors

	var out []models.Candidate

	doc.Find(sel.Item).Each(func(_ int, item *goquery.Selection) {
		title := normalizer.NormalizeText(item.Find(sel.Title).Text())
		if title == "" || !h.matchesKeywords(title) {
			return
		}

		var summary string
		if sel.Summary != "" {
			summary = normalizer.NormalizeText(item.Find(sel.Summary).First().Text())
		}

		linkSel := sel.Link
		if linkSel == "" {
			linkSel = "a"
		}

		href, _ := item.Find(linkSel).First().Attr("href")

		link := resolveLink(base, href)
		if link == "" {
			return
		}

		out = append(out, models.Candidate{
			Title:   title,
			Summary: summary,
			URL:     link,
			Date:    date,
			Source:  label,
			Path:    models.PathScraped,
		})
	})

	return out, nil
}

func (h *HTMLSource) matchesKeywords(title string) bool {
	if len(h.cfg.Keywords) == 0 {
		return true
	}

	lower := strings.ToLower(title)
	for _, kw := range h.cfg.Keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}

	return false
}

func (h *HTMLSource) label(tag string) string {
	label := h.cfg.Label
	if label == "" {
		label = h.cfg.Name
	}

	return strings.ReplaceAll(label, "{tag}", tag)
}

func (h *HTMLSource) baseURL(pageURL string) *url.URL {
	raw := h.cfg.BaseURL
	if raw == "" {
		raw = pageURL
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil
	}

	return u
}

// resolveLink makes href absolute against base. Absolute links pass through.
func resolveLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}

	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}

	ref, err := url.Parse(href)
	if err != nil || base == nil {
		return href
	}

	return base.ResolveReference(ref).String()
}
