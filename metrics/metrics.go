package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	UploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "thumbnail_uploads_total",
		Help: "Uploads processed, by tier and result (created, rejected, failed).",
	}, []string{"tier", "result"})

	ThumbnailsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "thumbnails_created_total",
		Help: "Thumbnail rows committed, by tier and variant (original or resized).",
	}, []string{"tier", "variant"})

	ResizeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "thumbnail_resize_duration_seconds",
		Help:    "Time spent decoding, resizing and encoding one variant.",
		Buckets: prometheus.DefBuckets,
	})
)

// Handler exposes the default registry for scraping.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
