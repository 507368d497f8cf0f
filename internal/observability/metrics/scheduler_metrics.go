package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	SchedulerStatusSuccess = "success"
	SchedulerStatusFailed  = "failed"
	SchedulerStatusSkipped = "skipped"
)

// SchedulerMetrics captures background job health.
type SchedulerMetrics struct {
	jobRuns       *prometheus.CounterVec
	jobDuration   *prometheus.HistogramVec
	invoicesSwept *prometheus.CounterVec
}

var (
	schedulerMetricsOnce sync.Once
	schedulerMetrics     *SchedulerMetrics
)

func NewSchedulerMetrics() *SchedulerMetrics {
	schedulerMetricsOnce.Do(func() {
		jobRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledgercraft_scheduler_job_runs_total",
			Help: "Scheduler job runs by job and outcome.",
		}, []string{"job", "status"})
		jobDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ledgercraft_scheduler_job_duration_seconds",
			Help:    "Scheduler job duration by job.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"})
		invoicesSwept := prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledgercraft_scheduler_invoices_swept_total",
			Help: "Invoices re-reconciled by the overdue sweep, by resulting status.",
		}, []string{"payment_status"})
		prometheus.MustRegister(jobRuns, jobDuration, invoicesSwept)
		schedulerMetrics = &SchedulerMetrics{
			jobRuns:       jobRuns,
			jobDuration:   jobDuration,
			invoicesSwept: invoicesSwept,
		}
	})
	return schedulerMetrics
}

func (m *SchedulerMetrics) ObserveJob(job, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job, status).Inc()
	m.jobDuration.WithLabelValues(job).Observe(elapsed.Seconds())
}

func (m *SchedulerMetrics) ObserveSwept(paymentStatus string) {
	if m == nil {
		return
	}
	m.invoicesSwept.WithLabelValues(paymentStatus).Inc()
}
