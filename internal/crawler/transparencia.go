package crawler

import (
	"context"
	"encoding/json"
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

const (
	sanctionsSource       = "Portal da Transparência"
	sanctionsStatus       = "Sancionado"
	defaultSanctionTitle  = "Registro Público"
	defaultSanctionText   = "Sanção registrada no Portal da Transparência"
	defaultSanctionOrgan  = "Órgão não informado"
	sanctionsProfileURL   = "https://portaldatransparencia.gov.br/pessoa-juridica/"
	sanctionsHeaderAPIKey = "chave-api-dados"
)

type sanction struct {
	OrgaoSancionador struct {
		Nome string `json:"nome"`
	} `json:"orgaoSancionador"`
	Nome             string `json:"nome"`
	RazaoSocial      string `json:"razaoSocial"`
	Motivo           string `json:"motivo"`
	Descricao        string `json:"descricao"`
	UF               string `json:"uf"`
	DataPublicacao   string `json:"dataPublicacao"`
	DataInicioSancao string `json:"dataInicioSancao"`
	Link             string `json:"link"`
	CPFCNPJ          string `json:"cpfCnpj"`
}

// TransparenciaSource pages through the Portal da Transparência sanctions
// API until an empty page or max_pages.
type TransparenciaSource struct {
	cfg     config.SourceConfig
	scraper *Scraper
	logger  *logger.Logger
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewTransparenciaSource creates a sanctions API source.
func NewTransparenciaSource(cfg config.SourceConfig, scraper *Scraper, log *logger.Logger) *TransparenciaSource {
	return &TransparenciaSource{
		cfg:     cfg,
		scraper: scraper,
		logger:  log.With("source", cfg.Name),
		now:     time.Now,
		sleep:   sleepCtx,
	}
}

// Name returns the configured source name.
func (t *TransparenciaSource) Name() string {
	return t.cfg.Name
}

// Fetch requests pages 1, 2, ... pausing pacing_ms between requests. A
// failure on the first page fails the fetch; a later failure ends
// pagination and keeps what was read.
func (t *TransparenciaSource) Fetch(ctx context.Context) ([]models.Candidate, error) {
	if strings.TrimSpace(t.cfg.APIKey) == "" {
		return nil, ErrNoAPIKey
	}

	var out []models.Candidate

	for page := 1; t.cfg.MaxPages == 0 || page <= t.cfg.MaxPages; page++ {
		if page > 1 {
			if err := t.sleep(ctx, t.cfg.Pacing()); err != nil {
				return out, err
			}
		}

		records, err := t.fetchPage(ctx, page)
		if err != nil {
			if page == 1 {
				return nil, err
			}

			t.logger.Warn("stopping pagination after page error", "page", page, "error", err)

			break
		}

		if len(records) == 0 {
			break
		}

		t.logger.Debug("sanctions page fetched", "page", page, "records", len(records))

		for i := range records {
			out = append(out, t.toCandidate(&records[i]))
		}
	}

	return out, nil
}

func (t *TransparenciaSource) pageURL(page int) string {
	sep := "?"
	if strings.Contains(t.cfg.URL, "?") {
		sep = "&"
	}

	return t.cfg.URL + sep + url.Values{"pagina": {strconv.Itoa(page)}}.Encode()
}

func (t *TransparenciaSource) fetchPage(ctx context.Context, page int) ([]sanction, error) {
	header := http.Header{}
	header.Set(sanctionsHeaderAPIKey, t.cfg.APIKey)
	header.Set("Accept", "application/json")

	resp, err := t.scraper.Get(ctx, t.pageURL(page), header)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", page, err)
	}

	var records []sanction
	if err := json.Unmarshal(resp.Body, &records); err != nil {
		return nil, fmt.Errorf("page %d: failed to decode sanctions: %w", page, err)
	}

	return records, nil
}

// toCandidate applies the field fallbacks. A missing uf stays empty so the
// classifier can infer the state.
func (t *TransparenciaSource) toCandidate(r *sanction) models.Candidate {
	link := strings.TrimSpace(r.Link)
	if link == "" && strings.TrimSpace(r.CPFCNPJ) != "" {
		link = sanctionsProfileURL + strings.TrimSpace(r.CPFCNPJ)
	}

	return models.Candidate{
		Title:        firstNonEmpty(r.Nome, r.RazaoSocial, defaultSanctionTitle),
		Summary:      firstNonEmpty(r.Motivo, r.Descricao, defaultSanctionText),
		State:        strings.TrimSpace(r.UF),
		Organization: firstNonEmpty(r.OrgaoSancionador.Nome, defaultSanctionOrgan),
		Date:         firstNonEmpty(r.DataPublicacao, r.DataInicioSancao, t.now().UTC().Format(time.RFC3339)),
		Status:       sanctionsStatus,
		Source:       sanctionsSource,
		URL:          link,
		Path:         models.PathScraped,
	}
}
