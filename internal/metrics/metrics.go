package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	uploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "certify_uploads_total",
			Help: "Participant uploads by outcome",
		},
		[]string{"status"},
	)

	participantsImported = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "certify_participants_imported_total",
			Help: "Participants inserted from uploaded spreadsheets",
		},
	)

	qrFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "certify_qr_fetch_total",
			Help: "QR image fetches by result",
		},
		[]string{"result"},
	)

	verifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "certify_verifications_total",
			Help: "Certificate verification lookups by result",
		},
		[]string{"result"},
	)

	uploadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "certify_upload_duration_seconds",
			Help:    "Time spent building a QR archive for an upload",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
	)
)

func TrackUpload(status string, started time.Time) {
	uploads.WithLabelValues(status).Inc()
	uploadDuration.Observe(time.Since(started).Seconds())
}

func TrackImported(n int) {
	participantsImported.Add(float64(n))
}

func TrackQRFetch(ok bool) {
	if ok {
		qrFetches.WithLabelValues("ok").Inc()
		return
	}
	qrFetches.WithLabelValues("error").Inc()
}

func TrackVerification(result string) {
	verifications.WithLabelValues(result).Inc()
}
