package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casemap/internal/logger"
	"casemap/internal/models"
)

var errUpstream = errors.New("upstream returned 503")

// MockSource implements Source for testing.
type MockSource struct {
	FetchFunc func(ctx context.Context) ([]models.Candidate, error)
	name      string
	calls     int
}

func (m *MockSource) Name() string {
	return m.name
}

func (m *MockSource) Fetch(ctx context.Context) ([]models.Candidate, error) {
	m.calls++
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx)
	}

	return nil, nil
}

func staticSource(name string, candidates ...models.Candidate) *MockSource {
	return &MockSource{
		name: name,
		FetchFunc: func(context.Context) ([]models.Candidate, error) {
			return candidates, nil
		},
	}
}

func TestRunner_Run_IsolatesFetchFailures(t *testing.T) {
	s := newMockStore()
	r := NewRunner(newTestEngine(s), logger.Discard(), nil)

	broken := &MockSource{
		name: "broken",
		FetchFunc: func(context.Context) ([]models.Candidate, error) {
			return nil, errUpstream
		},
	}
	first := staticSource("first", models.Candidate{Title: "Título A", URL: "https://h.io/a"})
	last := staticSource("last",
		models.Candidate{Title: "Título B", URL: "https://h.io/b"},
		models.Candidate{Title: "Título A", URL: "https://h.io/a"},
	)

	report := r.Run(context.Background(), []Source{first, broken, last})

	require.Len(t, report.Sources, 3)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, []string{"broken"}, report.FailedSources())

	assert.ErrorIs(t, report.Sources[1].FetchErr, ErrSourceFetch)
	assert.ErrorIs(t, report.Sources[1].FetchErr, errUpstream)

	assert.Equal(t, 1, report.Sources[0].Batch.Inserted)
	assert.Equal(t, 1, report.Sources[2].Batch.Inserted)
	assert.Equal(t, 1, report.Sources[2].Batch.Duplicates)

	totals := report.Totals()
	assert.Equal(t, 2, totals.Inserted)
	assert.Equal(t, 2, s.Len())
}

func TestRunner_Run_SequentialOrder(t *testing.T) {
	s := newMockStore()
	r := NewRunner(newTestEngine(s), logger.Discard(), nil)

	// The same case from two sources lands under the first source.
	a := staticSource("a", models.Candidate{Title: "Desvio em Goiás", URL: "https://h.io/4", Source: "A"})
	b := staticSource("b", models.Candidate{Title: "Desvio em Goiás", URL: "https://h.io/4", Source: "B"})

	r.Run(context.Background(), []Source{a, b})

	rows, err := s.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "A", rows[0].Source)
}

func TestRunner_Run_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := staticSource("a", models.Candidate{Title: "Título A"})
	report := NewRunner(newTestEngine(newMockStore()), logger.Discard(), nil).Run(ctx, []Source{src})

	assert.Empty(t, report.Sources)
	assert.Equal(t, 0, src.calls)
}
