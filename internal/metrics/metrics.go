package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/ramonehamilton/swu-binder/internal/events"
)

// Collector tracks catalog build latency, ledger activity and API traffic.
// It observes the session's event dispatcher and wraps the HTTP router.
type Collector struct {
	CatalogBuild *Histogram
	Requests     *Histogram

	catalogsLoaded  atomic.Uint64
	catalogFailures atomic.Uint64
	ledgerUpdates   atomic.Uint64
	cardsChanged    atomic.Uint64
	imports         atomic.Uint64
	importedRows    atomic.Uint64
	resets          atomic.Uint64
	requestCount    atomic.Uint64
	serverErrors    atomic.Uint64

	start time.Time
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{
		CatalogBuild: NewHistogram(256),
		Requests:     NewHistogram(0),
		start:        time.Now(),
	}
}

// Stats is a point-in-time view of a Collector.
type Stats struct {
	CatalogBuild    LatencyStats `json:"catalogBuild"`
	Requests        LatencyStats `json:"requests"`
	CatalogsLoaded  uint64       `json:"catalogsLoaded"`
	CatalogFailures uint64       `json:"catalogFailures"`
	LedgerUpdates   uint64       `json:"ledgerUpdates"`
	CardsChanged    uint64       `json:"cardsChanged"`
	Imports         uint64       `json:"imports"`
	ImportedRows    uint64       `json:"importedRows"`
	Resets          uint64       `json:"resets"`
	RequestCount    uint64       `json:"requestCount"`
	ServerErrors    uint64       `json:"serverErrors"`
	ErrorRate       float64      `json:"errorRate"` // percentage of requests answered with 5xx
	Uptime          string       `json:"uptime"`
}

// LatencyStats summarizes a histogram in milliseconds.
type LatencyStats struct {
	Mean  float64 `json:"mean"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

// Stats returns the current counters and latency summaries.
func (c *Collector) Stats() Stats {
	requests := c.requestCount.Load()
	errs := c.serverErrors.Load()

	rate := 0.0
	if requests > 0 {
		rate = float64(errs) / float64(requests) * 100
	}

	return Stats{
		CatalogBuild:    c.CatalogBuild.Summary(),
		Requests:        c.Requests.Summary(),
		CatalogsLoaded:  c.catalogsLoaded.Load(),
		CatalogFailures: c.catalogFailures.Load(),
		LedgerUpdates:   c.ledgerUpdates.Load(),
		CardsChanged:    c.cardsChanged.Load(),
		Imports:         c.imports.Load(),
		ImportedRows:    c.importedRows.Load(),
		Resets:          c.resets.Load(),
		RequestCount:    requests,
		ServerErrors:    errs,
		ErrorRate:       rate,
		Uptime:          time.Since(c.start).Round(time.Second).String(),
	}
}

// OnEvent updates counters from ledger and catalog events.
func (c *Collector) OnEvent(event events.Event) error {
	switch data := event.Data.(type) {
	case events.CatalogLoadedEvent:
		c.catalogsLoaded.Add(1)
		if data.Elapsed > 0 {
			c.CatalogBuild.Record(data.Elapsed)
		}
	case events.CatalogFailedEvent:
		c.catalogFailures.Add(1)
	case events.LedgerUpdatedEvent:
		c.ledgerUpdates.Add(1)
		c.cardsChanged.Add(uint64(len(data.Quantities)))
	case events.LedgerImportedEvent:
		c.imports.Add(1)
		c.importedRows.Add(uint64(data.Applied))
	case events.LedgerResetEvent:
		c.resets.Add(1)
	}
	return nil
}

// Name returns the observer name.
func (c *Collector) Name() string { return "MetricsCollector" }

// ShouldHandle accepts every event; unknown payloads are ignored.
func (c *Collector) ShouldHandle(string) bool { return true }

// Middleware times every request and counts 5xx responses.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			c.Requests.Record(time.Since(start))
			c.requestCount.Add(1)
			if ww.Status() >= http.StatusInternalServerError {
				c.serverErrors.Add(1)
			}
		}()
		next.ServeHTTP(ww, r)
	})
}

// Reset clears every counter and histogram.
func (c *Collector) Reset() {
	c.CatalogBuild.Reset()
	c.Requests.Reset()
	for _, n := range []*atomic.Uint64{
		&c.catalogsLoaded, &c.catalogFailures, &c.ledgerUpdates, &c.cardsChanged,
		&c.imports, &c.importedRows, &c.resets, &c.requestCount, &c.serverErrors,
	} {
		n.Store(0)
	}
	c.start = time.Now()
}
