package service

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsServiceCountsGenerationsAndImportRows(t *testing.T) {
	m := NewMetricsService()

	m.ObserveGeneration("pdf", OutcomeSuccess, 120*time.Millisecond)
	m.ObserveGeneration("pdf", OutcomeSuccess, 80*time.Millisecond)
	m.ObserveGeneration("excel", OutcomeEmptyClass, time.Millisecond)
	m.ObserveImportRow("students", "skipped")
	m.ObserveCacheLookup(true)
	m.ObserveCacheLookup(false)
	m.ObserveCacheLookup(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.generationTotal.WithLabelValues("pdf", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.generationTotal.WithLabelValues("excel", OutcomeEmptyClass)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.importRows.WithLabelValues("students", "skipped")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.generationDuration))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("miss")))
}

func TestMetricsServiceNilIsSafe(t *testing.T) {
	var m *MetricsService
	assert.NotPanics(t, func() {
		m.ObserveGeneration("pdf", OutcomeFailure, time.Second)
		m.ObserveImportRow("classes", "failed")
		m.ObserveCacheLookup(true)
		m.ObserveHTTPRequest("GET", "/health", 200, time.Millisecond)
	})
}
