package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casemap/internal/logger"
	"casemap/internal/metrics"
	"casemap/internal/models"
	"casemap/internal/normalizer"
	"casemap/internal/store"
)

var errDiskFull = errors.New("disk full")

// MockStore wraps a memory store; set a func field to override one method.
type MockStore struct {
	*store.MemoryStore
	FindFunc   func(ctx context.Context, title, url string) (*models.CaseRecord, error)
	InsertFunc func(ctx context.Context, rec *models.CaseRecord) (int64, error)
}

func newMockStore() *MockStore {
	return &MockStore{MemoryStore: store.NewMemoryStore()}
}

func (m *MockStore) FindByTitleOrURL(ctx context.Context, title, url string) (*models.CaseRecord, error) {
	if m.FindFunc != nil {
		return m.FindFunc(ctx, title, url)
	}

	return m.MemoryStore.FindByTitleOrURL(ctx, title, url)
}

func (m *MockStore) Insert(ctx context.Context, rec *models.CaseRecord) (int64, error) {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, rec)
	}

	return m.MemoryStore.Insert(ctx, rec)
}

func newTestEngine(s store.Store) *Engine {
	return NewEngine(s, logger.Discard(), nil)
}

func TestEngine_Ingest_InsertsClassifiedRecord(t *testing.T) {
	ctx := context.Background()
	s := newMockStore()
	e := newTestEngine(s)

	out := e.Ingest(ctx, &models.Candidate{
		Title:   "Fraude em licitação no Piauí",
		Summary: "Auditoria aponta superfaturamento.",
		URL:     "https://h.io/1",
	})

	require.Equal(t, models.OutcomeInserted, out.Kind, "err: %v", out.Err)
	assert.Equal(t, int64(1), out.ID)

	rows, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Piauí", rows[0].StateName())
	assert.Equal(t, "Nordeste", rows[0].RegionName())
}

func TestEngine_Ingest_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := newMockStore()
	e := newTestEngine(s)

	c := models.Candidate{Title: "Esquema de propina na Bahia", URL: "https://h.io/3"}

	first := e.Ingest(ctx, &c)
	require.Equal(t, models.OutcomeInserted, first.Kind)

	second := e.Ingest(ctx, &c)
	assert.Equal(t, models.OutcomeSkippedDuplicate, second.Kind)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, s.Len())
}

func TestEngine_Ingest_DuplicateByTitleOrURL(t *testing.T) {
	ctx := context.Background()
	s := newMockStore()
	e := newTestEngine(s)

	require.Equal(t, models.OutcomeInserted,
		e.Ingest(ctx, &models.Candidate{Title: "Desvio em Goiás", URL: "https://h.io/4"}).Kind)

	tests := []struct {
		name string
		c    models.Candidate
	}{
		{"same title new url", models.Candidate{Title: "Desvio em Goiás", URL: "https://h.io/other"}},
		{"same url new title", models.Candidate{Title: "Outro título", URL: "https://h.io/4"}},
		{"same title padded", models.Candidate{Title: "  Desvio   em Goiás ", URL: ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := e.Ingest(ctx, &tt.c)
			assert.Equal(t, models.OutcomeSkippedDuplicate, out.Kind)
		})
	}

	assert.Equal(t, 1, s.Len())
}

func TestEngine_Ingest_ExplicitState(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		state      string
		wantState  string
		wantRegion string
		wantNil    bool
	}{
		{"canonical name", "Paraná", "Paraná", "Sul", false},
		{"postal code", "SP", "São Paulo", "Sudeste", false},
		{"unaccented", "ceara", "Ceará", "Nordeste", false},
		{"unknown state keeps value", "Atlântida", "Atlântida", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(newMockStore())

			// The text mentions Bahia; an explicit state must win.
			out := e.Ingest(ctx, &models.Candidate{
				Title: "Esquema de propina na Bahia",
				State: tt.state,
				URL:   "https://h.io/3",
				Path:  models.PathImport,
			})
			require.Equal(t, models.OutcomeInserted, out.Kind)
			assert.Equal(t, tt.wantState, out.Geo.StateName())
			assert.Equal(t, tt.wantRegion, out.Geo.RegionName())
			assert.Equal(t, tt.wantNil, out.Geo.Region == nil)
		})
	}
}

func TestEngine_Ingest_SentinelStateIsClassified(t *testing.T) {
	e := newTestEngine(newMockStore())

	out := e.Ingest(context.Background(), &models.Candidate{
		Title:   "Empresa Beta Ltda",
		Summary: "Fraude em licitação no Maranhão",
		State:   "Brasil",
		URL:     "https://h.io/9",
	})

	require.Equal(t, models.OutcomeInserted, out.Kind)
	assert.Equal(t, "Maranhão", out.Geo.StateName())
}

func TestEngine_Ingest_NoMatchLeavesGeographyEmpty(t *testing.T) {
	s := newMockStore()
	e := newTestEngine(s)

	out := e.Ingest(context.Background(), &models.Candidate{Title: "Título A", URL: "https://h.io/a"})
	require.Equal(t, models.OutcomeInserted, out.Kind)

	rows, _ := s.ListAll(context.Background())
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].State)
	assert.Nil(t, rows[0].Region)
}

func TestEngine_Ingest_InvalidManual(t *testing.T) {
	s := newMockStore()
	e := newTestEngine(s)

	out := e.Ingest(context.Background(), &models.Candidate{
		Title: "Caso manual",
		State: "Bahia",
		URL:   "   ",
		Path:  models.PathManual,
	})

	assert.Equal(t, models.OutcomeInvalid, out.Kind)
	assert.ErrorIs(t, out.Err, normalizer.ErrValidation)
	assert.ErrorIs(t, out.Err, normalizer.ErrMissingURL)
	assert.Equal(t, 0, s.Len())
}

func TestEngine_Ingest_StorageFault(t *testing.T) {
	s := newMockStore()
	s.InsertFunc = func(context.Context, *models.CaseRecord) (int64, error) {
		return 0, errDiskFull
	}

	out := newTestEngine(s).Ingest(context.Background(), &models.Candidate{Title: "Título A"})

	assert.Equal(t, models.OutcomeFailed, out.Kind)
	assert.ErrorIs(t, out.Err, errDiskFull)
}

func TestEngine_IngestBatch(t *testing.T) {
	ctx := context.Background()
	s := newMockStore()
	reg := prometheus.NewRegistry()
	e := NewEngine(s, logger.Discard(), metrics.New(reg))

	_, err := s.Insert(ctx, &models.CaseRecord{Title: "Já existe", URL: "https://h.io/old"})
	require.NoError(t, err)

	batch := []models.Candidate{
		{Title: "Fraude em licitação no Piauí", URL: "https://h.io/1"},
		{Title: "Mesma URL, outro título", URL: "https://h.io/1"},
		{Title: "Já existe", URL: "https://h.io/new"},
		{Title: "   ", URL: "https://h.io/blank"},
		{Title: "Sem link A"},
		{Title: "Sem link B"},
	}

	report := e.IngestBatch(ctx, "g1", batch)

	assert.Equal(t, "g1", report.Source)
	assert.Equal(t, 6, report.Received)
	assert.Equal(t, 5, report.Unique)
	assert.Equal(t, 3, report.Inserted)
	assert.Equal(t, 1, report.Duplicates)
	assert.Equal(t, 1, report.Invalid)
	assert.Equal(t, 0, report.Failed)
	assert.Len(t, report.Errors, 1)

	assert.Equal(t, 3.0, testutil.ToFloat64(e.metrics.IngestOutcomes.WithLabelValues("g1", "inserted")))
}

func TestEngine_IngestBatch_StorageFaultDoesNotAbort(t *testing.T) {
	s := newMockStore()
	s.InsertFunc = func(ctx context.Context, rec *models.CaseRecord) (int64, error) {
		if rec.Title == "Título B" {
			return 0, errDiskFull
		}

		return s.MemoryStore.Insert(ctx, rec)
	}

	report := newTestEngine(s).IngestBatch(context.Background(), "portal", []models.Candidate{
		{Title: "Título A", URL: "https://h.io/a"},
		{Title: "Título B", URL: "https://h.io/b"},
		{Title: "Desvio em Goiás", URL: "https://h.io/4"},
	})

	assert.Equal(t, 2, report.Inserted)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Errors, 1)
	assert.ErrorIs(t, report.Errors[0], errDiskFull)
	assert.Equal(t, 2, s.Len())
}

func TestEngine_IngestBatch_FindFault(t *testing.T) {
	s := newMockStore()
	s.FindFunc = func(context.Context, string, string) (*models.CaseRecord, error) {
		return nil, store.ErrStorage
	}

	report := newTestEngine(s).IngestBatch(context.Background(), "x", []models.Candidate{{Title: "Título A"}})

	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 0, s.Len())
}

func TestUniqueByURL(t *testing.T) {
	in := []models.Candidate{
		{Title: "1", URL: "https://a"},
		{Title: "2", URL: ""},
		{Title: "3", URL: " https://a "},
		{Title: "4", URL: ""},
		{Title: "5", URL: "https://b"},
	}

	out := UniqueByURL(in)

	titles := make([]string, 0, len(out))
	for _, c := range out {
		titles = append(titles, c.Title)
	}

	assert.Equal(t, []string{"1", "2", "4", "5"}, titles)
}
