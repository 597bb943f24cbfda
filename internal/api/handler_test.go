package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casemap/internal/ingest"
	"casemap/internal/logger"
	"casemap/internal/metrics"
	"casemap/internal/models"
	"casemap/internal/store"
)

var errDown = errors.New("database down")

// MockReader fails every read.
type MockReader struct {
	Err error
}

func (m *MockReader) ListAll(context.Context) ([]models.CaseRecord, error) {
	return nil, m.Err
}

func (m *MockReader) ListByState(context.Context, string) ([]models.CaseRecord, error) {
	return nil, m.Err
}

// MockIngester returns a fixed outcome.
type MockIngester struct {
	Outcome models.IngestOutcome
}

func (m *MockIngester) Ingest(context.Context, *models.Candidate) models.IngestOutcome {
	return m.Outcome
}

func newTestServer(t *testing.T) (*httptest.Server, *store.MemoryStore) {
	t.Helper()

	reg := prometheus.NewRegistry()
	s := store.NewMemoryStore()
	engine := ingest.NewEngine(s, logger.Discard(), metrics.New(reg))
	srv := httptest.NewServer(New(s, engine, reg, logger.Discard()).Router())
	t.Cleanup(srv.Close)

	return srv, s
}

func postCase(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()

	resp, err := http.Post(url+"/api/add-case", "application/json", strings.NewReader(body))
	require.NoError(t, err)

	defer resp.Body.Close()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))

	return resp, decoded
}

func getCases(t *testing.T, url string) (int, []models.CaseRecord) {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)

	defer resp.Body.Close()

	var records []models.CaseRecord
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&records))
	}

	return resp.StatusCode, records
}

func TestAddCase(t *testing.T) {
	srv, s := newTestServer(t)

	resp, body := postCase(t, srv.URL, `{
		"title": "Fraude em licitação",
		"state": "pi",
		"region": "Sul",
		"value_estimated": 250000,
		"url": "https://h.io/1"
	}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 1, body["id"])

	records, err := s.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Piauí", records[0].StateName())
	assert.Equal(t, "Nordeste", records[0].RegionName())
	assert.Equal(t, "250000", records[0].ValueEstimated)
}

func TestAddCaseDuplicate(t *testing.T) {
	srv, _ := newTestServer(t)

	first, _ := postCase(t, srv.URL, `{"title":"Desvio em Goiás","state":"GO","url":"https://h.io/4"}`)
	require.Equal(t, http.StatusOK, first.StatusCode)

	resp, body := postCase(t, srv.URL, `{"title":"Outro título","state":"GO","url":"https://h.io/4"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "duplicate case", body["error"])
}

func TestAddCaseMissingFields(t *testing.T) {
	srv, s := newTestServer(t)

	tests := []struct {
		name        string
		body        string
		wantMissing []any
	}{
		{
			name:        "everything",
			body:        `{}`,
			wantMissing: []any{"title", "state", "url"},
		},
		{
			name:        "blank url",
			body:        `{"title":"Caso","state":"SP","url":"   "}`,
			wantMissing: []any{"url"},
		},
		{
			name:        "sentinel state",
			body:        `{"title":"Caso","state":"Nacional","url":"https://h.io/n"}`,
			wantMissing: []any{"state"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := postCase(t, srv.URL, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tt.wantMissing, body["missing"])
			assert.NotEmpty(t, body["error"])
		})
	}

	assert.Equal(t, 0, s.Len())
}

func TestAddCaseInvalidJSON(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := postCase(t, srv.URL, `{"title":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid JSON body", body["error"])
}

func TestAddCaseStorageFault(t *testing.T) {
	h := New(&MockReader{}, &MockIngester{Outcome: models.IngestOutcome{
		Kind: models.OutcomeFailed,
		Err:  errDown,
	}}, nil, logger.Discard())

	req := httptest.NewRequest(http.MethodPost, "/api/add-case", strings.NewReader(`{"title":"x","state":"SP","url":"u"}`))
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}

func TestListCases(t *testing.T) {
	srv, _ := newTestServer(t)

	status, records := getCases(t, srv.URL+"/api/cases")
	assert.Equal(t, http.StatusOK, status)
	assert.NotNil(t, records)
	assert.Empty(t, records)

	postCase(t, srv.URL, `{"title":"Esquema de propina","state":"Bahia","url":"https://h.io/3"}`)
	postCase(t, srv.URL, `{"title":"Desvio em Goiás","state":"GO","url":"https://h.io/4"}`)

	status, records = getCases(t, srv.URL+"/api/cases")
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, records, 2)
}

func TestCasesByState(t *testing.T) {
	srv, _ := newTestServer(t)

	postCase(t, srv.URL, `{"title":"Esquema de propina","state":"BA","url":"https://h.io/3"}`)
	postCase(t, srv.URL, `{"title":"Desvio em Goiás","state":"GO","url":"https://h.io/4"}`)

	tests := []struct {
		name      string
		query     string
		wantCode  int
		wantCount int
	}{
		{name: "canonical name", query: "Bahia", wantCode: http.StatusOK, wantCount: 1},
		{name: "postal code", query: "go", wantCode: http.StatusOK, wantCount: 1},
		{name: "no match", query: "Acre", wantCode: http.StatusOK, wantCount: 0},
		{name: "missing", query: "", wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, records := getCases(t, srv.URL+"/api/cases/by-state?state="+tt.query)
			assert.Equal(t, tt.wantCode, status)
			assert.Len(t, records, tt.wantCount)
		})
	}
}

func TestReadFailure(t *testing.T) {
	h := New(&MockReader{Err: errDown}, &MockIngester{}, nil, logger.Discard())

	for _, path := range []string{"/api/cases", "/api/cases/by-state?state=SP"} {
		rec := httptest.NewRecorder()
		h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code, path)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	postCase(t, srv.URL, `{"title":"Desvio em Goiás","state":"GO","url":"https://h.io/4"}`)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "casemap_ingest_outcomes_total")
}

func TestMetricsDisabledWithoutGatherer(t *testing.T) {
	h := New(&MockReader{}, &MockIngester{}, nil, logger.Discard())

	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
