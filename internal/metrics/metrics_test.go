package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ramonehamilton/swu-binder/internal/events"
)

func TestHistogram_Summary(t *testing.T) {
	h := NewHistogram(10)
	assert.Equal(t, LatencyStats{}, h.Summary())

	for i := 1; i <= 5; i++ {
		h.Record(time.Duration(i) * time.Millisecond)
	}
	s := h.Summary()
	assert.Equal(t, 5, s.Count)
	assert.InDelta(t, 3.0, s.Mean, 0.001)
	assert.InDelta(t, 3.0, s.P50, 0.001)
	assert.InDelta(t, 1.0, s.Min, 0.001)
	assert.InDelta(t, 5.0, s.Max, 0.001)
	assert.InDelta(t, 4.8, s.P95, 0.001)
}

func TestHistogram_WindowWraps(t *testing.T) {
	h := NewHistogram(3)
	for i := 1; i <= 5; i++ {
		h.Record(time.Duration(i) * time.Millisecond)
	}
	s := h.Summary()
	assert.Equal(t, 3, s.Count)
	assert.InDelta(t, 3.0, s.Min, 0.001)
	assert.InDelta(t, 5.0, s.Max, 0.001)

	h.Reset()
	assert.Equal(t, 0, h.Count())
}

func TestCollector_Events(t *testing.T) {
	c := NewCollector()
	d := events.NewDispatcher()
	d.Register(c)

	ctx := context.Background()
	d.Dispatch(events.New(ctx, events.CatalogLoaded, events.CatalogLoadedEvent{SetKey: "SOR", Elapsed: 20 * time.Millisecond}))
	d.Dispatch(events.New(ctx, events.CatalogFailed, events.CatalogFailedEvent{SetKey: "XXX", Error: "boom"}))
	d.Dispatch(events.New(ctx, events.LedgerUpdated, events.LedgerUpdatedEvent{SetKey: "SOR", Quantities: map[int]int{3: 1, 10: 1}}))
	d.Dispatch(events.New(ctx, events.LedgerImported, events.LedgerImportedEvent{Applied: 12}))
	d.Dispatch(events.New(ctx, events.LedgerReset, events.LedgerResetEvent{SetKey: "SOR"}))

	s := c.Stats()
	assert.Equal(t, uint64(1), s.CatalogsLoaded)
	assert.Equal(t, uint64(1), s.CatalogFailures)
	assert.Equal(t, 1, s.CatalogBuild.Count)
	assert.Equal(t, uint64(1), s.LedgerUpdates)
	assert.Equal(t, uint64(2), s.CardsChanged)
	assert.Equal(t, uint64(1), s.Imports)
	assert.Equal(t, uint64(12), s.ImportedRows)
	assert.Equal(t, uint64(1), s.Resets)

	c.Reset()
	assert.Equal(t, uint64(0), c.Stats().CatalogsLoaded)
}

func TestCollector_Middleware(t *testing.T) {
	c := NewCollector()
	h := c.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))

	for _, path := range []string{"/ok", "/ok", "/ok", "/fail"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	s := c.Stats()
	assert.Equal(t, uint64(4), s.RequestCount)
	assert.Equal(t, uint64(1), s.ServerErrors)
	assert.InDelta(t, 25.0, s.ErrorRate, 0.001)
	assert.Equal(t, 4, s.Requests.Count)
}
