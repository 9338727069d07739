// Package metrics exports pool and player counters to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go-pattern/debug"
	"go-pattern/pattern"
	"go-pattern/player"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gopattern"

// Collector reads counters on every scrape; nothing is cached between
// scrapes and the audio goroutine is never touched.
type Collector struct {
	pool   *pattern.Pool
	player *player.Player

	patterns      *prometheus.Desc
	holders       *prometheus.Desc
	operations    *prometheus.Desc
	patchFailures *prometheus.Desc
	clears        *prometheus.Desc
	overflows     *prometheus.Desc
	switches      *prometheus.Desc
	refreshes     *prometheus.Desc
}

// NewCollector builds a collector for pool and, if non-nil, player.
func NewCollector(pool *pattern.Pool, pl *player.Player) *Collector {
	return &Collector{
		pool:   pool,
		player: pl,
		patterns: prometheus.NewDesc(namespace+"_patterns",
			"Patterns currently in the pool.", nil, nil),
		holders: prometheus.NewDesc(namespace+"_snapshot_holders",
			"Snapshots handed out and not yet released.", nil, nil),
		operations: prometheus.NewDesc(namespace+"_pool_operations_total",
			"Successful pool operations by kind.", []string{"op"}, nil),
		patchFailures: prometheus.NewDesc(namespace+"_patch_failures_total",
			"Patches refused by their mutator or by validation.", nil, nil),
		clears: prometheus.NewDesc(namespace+"_pool_clears_total",
			"Times the pool was cleared.", nil, nil),
		overflows: prometheus.NewDesc(namespace+"_player_overflows_total",
			"Events the player dropped because a buffer was full.", nil, nil),
		switches: prometheus.NewDesc(namespace+"_player_switches_total",
			"Slot launches and stops applied at bar boundaries.", nil, nil),
		refreshes: prometheus.NewDesc(namespace+"_player_refreshes_total",
			"Stale snapshots the player replaced at bar boundaries.", nil, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.patterns
	ch <- c.holders
	ch <- c.operations
	ch <- c.patchFailures
	ch <- c.clears
	if c.player != nil {
		ch <- c.overflows
		ch <- c.switches
		ch <- c.refreshes
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	st := c.pool.Stats()
	ch <- prometheus.MustNewConstMetric(c.patterns, prometheus.GaugeValue, float64(st.Patterns))
	ch <- prometheus.MustNewConstMetric(c.holders, prometheus.GaugeValue, float64(st.Holders))
	ch <- prometheus.MustNewConstMetric(c.operations, prometheus.CounterValue, float64(st.Created), "create")
	ch <- prometheus.MustNewConstMetric(c.operations, prometheus.CounterValue, float64(st.Cloned), "clone")
	ch <- prometheus.MustNewConstMetric(c.operations, prometheus.CounterValue, float64(st.Removed), "remove")
	ch <- prometheus.MustNewConstMetric(c.operations, prometheus.CounterValue, float64(st.Patched), "patch")
	ch <- prometheus.MustNewConstMetric(c.patchFailures, prometheus.CounterValue, float64(st.PatchFailures))
	ch <- prometheus.MustNewConstMetric(c.clears, prometheus.CounterValue, float64(st.Clears))

	if c.player != nil {
		ps := c.player.Stats()
		ch <- prometheus.MustNewConstMetric(c.overflows, prometheus.CounterValue, float64(ps.Overflows))
		ch <- prometheus.MustNewConstMetric(c.switches, prometheus.CounterValue, float64(ps.Switches))
		ch <- prometheus.MustNewConstMetric(c.refreshes, prometheus.CounterValue, float64(ps.Refreshes))
	}
}

// Handler returns an HTTP handler serving c plus the Go runtime collectors
// from a private registry.
func Handler(c *Collector) (http.Handler, error) {
	reg := prometheus.NewRegistry()
	for _, col := range []prometheus.Collector{
		c,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), nil
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string, c *Collector) error {
	h, err := Handler(c)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		debug.Log("metrics", "listening on %s", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
