package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	ChallengesIssued  prometheus.Counter
	Submissions       *prometheus.CounterVec
	LockoutsTriggered prometheus.Counter
	AffordancesPruned prometheus.Counter
	CaptchaRenderTime prometheus.Histogram
	RequestLatency    *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		ChallengesIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "warden_challenges_issued_total",
			Help: "Total number of captcha challenges issued",
		}),
		Submissions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_submissions_total",
			Help: "Total number of captcha submissions by outcome",
		}, []string{"outcome"}),
		LockoutsTriggered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "warden_lockouts_triggered_total",
			Help: "Total number of subjects locked out after exhausting attempts",
		}),
		AffordancesPruned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "warden_affordances_pruned_total",
			Help: "Total number of stale verify buttons removed during reconciliation",
		}),
		CaptchaRenderTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "warden_captcha_render_seconds",
			Help:    "Time spent generating captcha images",
			Buckets: prometheus.DefBuckets,
		}),
		RequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "warden_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

// ObserveSubmission records a submission outcome.
func (m *Metrics) ObserveSubmission(outcome string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(outcome).Inc()
}

// ObserveCaptchaRender records how long one captcha render took.
func (m *Metrics) ObserveCaptchaRender(d time.Duration) {
	if m == nil {
		return
	}
	m.CaptchaRenderTime.Observe(d.Seconds())
}
