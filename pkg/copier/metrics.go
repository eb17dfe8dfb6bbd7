package copier

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Chunks    metrics.Counter // label: path
	Bytes     metrics.Counter
	Transfers metrics.Counter // label: result
}

func NopMetrics() *Metrics {
	return &Metrics{
		Chunks:    discard.NewCounter(),
		Bytes:     discard.NewCounter(),
		Transfers: discard.NewCounter(),
	}
}

// NewMetrics registers the copier counters with reg.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	chunks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "copier",
		Name:      "chunks_total",
		Help:      "Chunks completed, by the path that consumed them.",
	}, []string{"path"})
	bytes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "copier",
		Name:      "bytes_total",
		Help:      "Payload bytes completed.",
	}, []string{})
	transfers := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "copier",
		Name:      "transfers_total",
		Help:      "Finished transfers, by result.",
	}, []string{"result"})

	reg.MustRegister(chunks, bytes, transfers)

	return &Metrics{
		Chunks:    kitprometheus.NewCounter(chunks),
		Bytes:     kitprometheus.NewCounter(bytes),
		Transfers: kitprometheus.NewCounter(transfers),
	}
}

func (m *Metrics) chunk(path string, n int) {
	m.Chunks.With("path", path).Add(1)
	m.Bytes.Add(float64(n))
}

func (m *Metrics) transfer(result string) {
	m.Transfers.With("result", result).Add(1)
}
