package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the booking counters exported on /metrics.
type Metrics struct {
	BookingsCreated    *prometheus.CounterVec
	BookingConflicts   prometheus.Counter
	BookingUnavailable prometheus.Counter
	BookingsCancelled  prometheus.Counter
	BookingDuration    prometheus.Histogram
}

// New registers the booking collectors with the given registerer. Tests pass
// a private registry so repeated construction does not collide.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		BookingsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "parkspot_bookings_created_total",
			Help: "Total number of bookings created",
		}, []string{"area"}),
		BookingConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "parkspot_booking_conflicts_total",
			Help: "Total number of bookings lost to a concurrent reservation",
		}),
		BookingUnavailable: factory.NewCounter(prometheus.CounterOpts{
			Name: "parkspot_booking_unavailable_total",
			Help: "Total number of booking requests with no free slot",
		}),
		BookingsCancelled: factory.NewCounter(prometheus.CounterOpts{
			Name: "parkspot_bookings_cancelled_total",
			Help: "Total number of bookings cancelled",
		}),
		BookingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "parkspot_booking_duration_seconds",
			Help:    "Time spent reserving a slot",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
