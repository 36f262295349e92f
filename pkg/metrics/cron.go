// Package metrics holds the Prometheus collectors each binary registers.
// Every recorder is nil-safe so callers can skip metrics in tests.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	CronOutcomeOK     = "ok"
	CronOutcomeFailed = "failed"
	CronOutcomeLocked = "locked"
)

// CronMetrics tracks scheduled job runs and whole cycles.
type CronMetrics struct {
	runs        *prometheus.CounterVec
	seconds     *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
	cycles      *prometheus.CounterVec
}

func NewCronMetrics(reg prometheus.Registerer) *CronMetrics {
	if reg == nil {
		return &CronMetrics{}
	}
	m := &CronMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "housebook_cron_job_runs_total",
			Help: "Cron job runs by job and outcome.",
		}, []string{"job", "outcome"}),
		seconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "housebook_cron_job_duration_seconds",
			Help:    "Cron job wall time.",
			Buckets: []float64{.01, .05, .25, 1, 5, 30, 120},
		}, []string{"job"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "housebook_cron_job_last_success_timestamp_seconds",
			Help: "Unix time of each job's last successful run.",
		}, []string{"job"}),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "housebook_cron_cycles_total",
			Help: "Cron cycles by outcome; locked means another instance held the lock.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.runs, m.seconds, m.lastSuccess, m.cycles)
	return m
}

// ObserveJob records one run; a nil err counts as success.
func (c *CronMetrics) ObserveJob(job string, elapsed time.Duration, err error) {
	if c == nil || c.runs == nil {
		return
	}
	job = normalizeLabel(job)
	c.seconds.WithLabelValues(job).Observe(elapsed.Seconds())
	if err != nil {
		c.runs.WithLabelValues(job, CronOutcomeFailed).Inc()
		return
	}
	c.runs.WithLabelValues(job, CronOutcomeOK).Inc()
	c.lastSuccess.WithLabelValues(job).SetToCurrentTime()
}

func (c *CronMetrics) ObserveCycle(outcome string) {
	if c == nil || c.cycles == nil {
		return
	}
	c.cycles.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
