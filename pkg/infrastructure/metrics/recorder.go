package metrics

import (
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder collects backend call metrics on a private registry
type Recorder struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewRecorder creates a recorder with its own registry
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
	}

	r.requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "requisition",
			Subsystem: "backend",
			Name:      "requests_total",
			Help:      "Backend calls by endpoint and outcome (ok or an error kind)",
		},
		[]string{"endpoint", "outcome"},
	)

	r.duration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "requisition",
			Subsystem: "backend",
			Name:      "request_duration_seconds",
			Help:      "Backend call latency including retries",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"endpoint"},
	)

	r.registry.MustRegister(r.requests, r.duration)
	return r
}

// Observe records one completed call
func (r *Recorder) Observe(endpoint, outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.requests.WithLabelValues(endpoint, outcome).Inc()
	r.duration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// Registry exposes the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// CallCount is the number of calls for one endpoint and outcome
type CallCount struct {
	Endpoint string  `json:"endpoint"`
	Outcome  string  `json:"outcome"`
	Count    float64 `json:"count"`
}

// Counts gathers the request counter, sorted by endpoint then outcome
func (r *Recorder) Counts() ([]CallCount, error) {
	families, err := r.registry.Gather()
	if err != nil {
		return nil, err
	}

	counts := make([]CallCount, 0)
	for _, family := range families {
		if family.GetName() != "requisition_backend_requests_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			count := CallCount{Count: metric.GetCounter().GetValue()}
			for _, label := range metric.GetLabel() {
				switch label.GetName() {
				case "endpoint":
					count.Endpoint = label.GetValue()
				case "outcome":
					count.Outcome = label.GetValue()
				}
			}
			counts = append(counts, count)
		}
	}

	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Endpoint != counts[j].Endpoint {
			return counts[i].Endpoint < counts[j].Endpoint
		}
		return counts[i].Outcome < counts[j].Outcome
	})
	return counts, nil
}
