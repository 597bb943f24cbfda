package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Record(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncrementOutcome("g1", "inserted")
	m.IncrementOutcome("g1", "inserted")
	m.IncrementOutcome("g1", "skipped_duplicate")
	m.ObserveFetch("g1", 20*time.Millisecond, nil)
	m.ObserveFetch("g1", time.Second, errors.New("boom"))
	m.AddCorrections("cleaned", 3)
	m.AddCorrections("reclassified", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.IngestOutcomes.WithLabelValues("g1", "inserted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IngestOutcomes.WithLabelValues("g1", "skipped_duplicate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchResults.WithLabelValues("g1", "error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.CorrectionActions.WithLabelValues("cleaned")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.CorrectionActions))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.IncrementOutcome("x", "inserted")
		m.ObserveFetch("x", time.Second, nil)
		m.AddCorrections("cleaned", 1)
		m.ObserveRun(time.Second)
	})
}
