package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clinica",
			Name:      "http_requests_total",
			Help:      "Count of API requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	appointmentCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clinica",
			Name:      "appointment_created_total",
			Help:      "Count of appointments created by status.",
		},
		[]string{"status"},
	)

	appointmentCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clinica",
			Name:      "appointment_cancelled_total",
			Help:      "Count of appointments cancelled.",
		},
	)

	premiumChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clinica",
			Name:      "premium_check_total",
			Help:      "Count of premium entitlement checks by result.",
		},
		[]string{"result"},
	)

	providerErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clinica",
			Name:      "subscription_provider_errors_total",
			Help:      "Count of failed calls to the subscription provider.",
		},
	)

	ebookDownloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clinica",
			Name:      "ebook_downloads_total",
			Help:      "Count of ebook downloads by tier.",
		},
		[]string{"tier"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			appointmentCreated,
			appointmentCancelled,
			premiumChecks,
			providerErrors,
			ebookDownloads,
		)
	})
}

func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncAppointmentCreated(status string) {
	appointmentCreated.WithLabelValues(status).Inc()
}

func IncAppointmentCancelled() {
	appointmentCancelled.Inc()
}

func IncPremiumCheck(result string) {
	premiumChecks.WithLabelValues(result).Inc()
}

func IncProviderError() {
	providerErrors.Inc()
}

func IncEbookDownload(tier string) {
	ebookDownloads.WithLabelValues(tier).Inc()
}
