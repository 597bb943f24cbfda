package crawler

import (
	"errors"
	"fmt"

	"casemap/internal/config"
	"casemap/internal/ingest"
	"casemap/internal/logger"
)

// ErrUnknownSourceType is returned for a source type without an adapter.
var ErrUnknownSourceType = errors.New("unknown source type")

// NewSource builds the adapter for one configured source.
func NewSource(cfg config.SourceConfig, scraper *Scraper, log *logger.Logger) (ingest.Source, error) {
	switch cfg.Type {
	case config.SourceHTML:
		return NewHTMLSource(cfg, scraper, log), nil
	case config.SourceNewsAPI:
		return NewNewsAPISource(cfg, scraper, log), nil
	case config.SourceTransparencia:
		return NewTransparenciaSource(cfg, scraper, log), nil
	default:
		return nil, fmt.Errorf("%w: %q (source %s)", ErrUnknownSourceType, cfg.Type, cfg.Name)
	}
}

// BuildSources builds adapters for cfgs in order, sharing one scraper.
func BuildSources(cfgs []config.SourceConfig, retry config.RetryPolicy, log *logger.Logger) ([]ingest.Source, error) {
	scraper := NewScraperWithConfig(retry, defaultBufferKb)
	sources := make([]ingest.Source, 0, len(cfgs))

	for _, c := range cfgs {
		src, err := NewSource(c, scraper, log)
		if err != nil {
			return nil, err
		}

		sources = append(sources, src)
	}

	return sources, nil
}
