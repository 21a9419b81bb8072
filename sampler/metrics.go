package sampler

import "github.com/prometheus/client_golang/prometheus"

// metrics holds the sampler's Prometheus collectors. With a nil registerer
// the collectors still work, they are just never scraped.
type metrics struct {
	samplesAdded    prometheus.Counter
	samplesReplaced prometheus.Counter
	rateAdjusted    prometheus.Counter
	currentRate     prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		samplesAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sampler_samples_added_total",
			Help: "Traffic records accepted into endpoint buffers.",
		}),
		samplesReplaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sampler_samples_replaced_total",
			Help: "Buffer slots overwritten by reservoir replacement.",
		}),
		rateAdjusted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sampler_rate_adjustments_total",
			Help: "Adaptive sample-rate adjustments performed.",
		}),
		currentRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sampler_current_rate",
			Help: "Current adaptive sampling rate.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.samplesAdded, m.samplesReplaced, m.rateAdjusted, m.currentRate)
	}
	return m
}
