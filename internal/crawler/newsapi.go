package crawler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"casemap/internal/config"
	"casemap/internal/logger"
	"casemap/internal/models"
)

// NewsAPI errors.
var (
	ErrNoAPIKey       = errors.New("no api key configured")
	ErrAllKeysFailed  = errors.New("every api key failed")
	ErrNewsAPIPayload = errors.New("newsapi returned an error payload")
)

const (
	defaultNewsSource = "Notícia Online"
	defaultNewsTitle  = "Sem título"
	newsStatus        = "Publicado"
)

type newsAPIResponse struct {
	Status   string           `json:"status"`
	Code     string           `json:"code"`
	Message  string           `json:"message"`
	Articles []newsAPIArticle `json:"articles"`
}

type newsAPIArticle struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
}

// NewsAPISource queries the NewsAPI /v2/everything endpoint. Keys are tried
// in order until one returns articles.
type NewsAPISource struct {
	cfg     config.SourceConfig
	scraper *Scraper
	logger  *logger.Logger
	now     func() time.Time
}

// NewNewsAPISource creates a NewsAPI source.
func NewNewsAPISource(cfg config.SourceConfig, scraper *Scraper, log *logger.Logger) *NewsAPISource {
	return &NewsAPISource{
		cfg:     cfg,
		scraper: scraper,
		logger:  log.With("source", cfg.Name),
		now:     time.Now,
	}
}

// Name returns the configured source name.
func (n *NewsAPISource) Name() string {
	return n.cfg.Name
}

// Fetch returns the articles of the first key that yields any. A key that
// answers with zero articles is not an error; the fetch fails only when
// every key fails.
func (n *NewsAPISource) Fetch(ctx context.Context) ([]models.Candidate, error) {
	keys := n.keys()
	if len(keys) == 0 {
		return nil, ErrNoAPIKey
	}

	var errs []error

	for i, key := range keys {
		articles, err := n.fetchWithKey(ctx, key)
		if err != nil {
			n.logger.Warn("newsapi key failed", "key", maskKey(key), "error", err)
			errs = append(errs, fmt.Errorf("key %d: %w", i+1, err))

			if ctx.Err() != nil {
				break
			}

			continue
		}

		if len(articles) == 0 {
			n.logger.Warn("newsapi key returned no articles", "key", maskKey(key))
			continue
		}

		n.logger.Info("newsapi articles fetched", "key", maskKey(key), "articles", len(articles))

		return n.toCandidates(articles), nil
	}

	if len(errs) == len(keys) {
		return nil, fmt.Errorf("%w: %w", ErrAllKeysFailed, errors.Join(errs...))
	}

	return nil, nil
}

func (n *NewsAPISource) keys() []string {
	var keys []string

	for _, k := range n.cfg.APIKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}

	if k := strings.TrimSpace(n.cfg.APIKey); k != "" && len(keys) == 0 {
		keys = append(keys, k)
	}

	return keys
}

func (n *NewsAPISource) requestURL() string {
	q := url.Values{}
	q.Set("q", n.cfg.Query)
	q.Set("language", n.cfg.Language)
	q.Set("sortBy", "publishedAt")
	q.Set("pageSize", strconv.Itoa(n.cfg.PageSize))

	sep := "?"
	if strings.Contains(n.cfg.URL, "?") {
		sep = "&"
	}

	return n.cfg.URL + sep + q.Encode()
}

func (n *NewsAPISource) fetchWithKey(ctx context.Context, key string) ([]newsAPIArticle, error) {
	header := http.Header{}
	header.Set("X-Api-Key", key)

	resp, err := n.scraper.Get(ctx, n.requestURL(), header)
	if err != nil {
		return nil, err
	}

	var payload newsAPIResponse
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode newsapi response: %w", err)
	}

	if payload.Status == "error" {
		return nil, fmt.Errorf("%w: %s: %s", ErrNewsAPIPayload, payload.Code, payload.Message)
	}

	return payload.Articles, nil
}

func (n *NewsAPISource) toCandidates(articles []newsAPIArticle) []models.Candidate {
	out := make([]models.Candidate, 0, len(articles))

	for _, a := range articles {
		c := models.Candidate{
			Title:   firstNonEmpty(a.Title, defaultNewsTitle),
			Summary: firstNonEmpty(a.Description, a.Content),
			Date:    firstNonEmpty(a.PublishedAt, n.now().UTC().Format(time.RFC3339)),
			Source:  firstNonEmpty(a.Source.Name, defaultNewsSource),
			Status:  newsStatus,
			URL:     strings.TrimSpace(a.URL),
			Path:    models.PathScraped,
		}

		out = append(out, c)
	}

	return out
}

// maskKey keeps the first six characters of a key for logs.
func maskKey(key string) string {
	if len(key) <= 6 {
		return "***"
	}

	return key[:6] + "..."
}

// firstNonEmpty returns the first value that is not blank.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}

	return ""
}
