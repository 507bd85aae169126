// Package metrics собирает счётчики загрузок для Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Результаты записи чанка — значения метки result.
const (
	ResultWritten   = "written"
	ResultDuplicate = "duplicate"
	ResultConflict  = "conflict"
	ResultTransient = "transient"
	ResultFatal     = "fatal"
	ResultRejected  = "rejected"
)

// Metrics хранит коллекторы сервиса. Нулевой указатель допустим: все методы становятся no-op.
type Metrics struct {
	chunks        *prometheus.CounterVec
	bytes         prometheus.Counter
	flushes       *prometheus.CounterVec
	activeUploads prometheus.Gauge
}

// New регистрирует коллекторы в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		chunks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "uploads",
			Name:      "chunk_writes_total",
			Help:      "Chunk write attempts by outcome.",
		}, []string{"result"}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "uploads",
			Name:      "chunk_bytes_written_total",
			Help:      "Bytes written into destination files.",
		}),
		flushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "uploads",
			Name:      "snapshot_flushes_total",
			Help:      "Snapshot writes by outcome.",
		}, []string{"result"}),
		activeUploads: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "uploads",
			Name:      "active",
			Help:      "Uploads held in the in-memory registry.",
		}),
	}
	reg.MustRegister(m.chunks, m.bytes, m.flushes, m.activeUploads)

	return m
}

// ChunkWrite учитывает исход записи чанка.
func (m *Metrics) ChunkWrite(result string, n int64) {
	if m == nil {
		return
	}
	m.chunks.WithLabelValues(result).Inc()
	if n > 0 {
		m.bytes.Add(float64(n))
	}
}

// Flush учитывает запись одного снапшота.
func (m *Metrics) Flush(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.flushes.WithLabelValues("error").Inc()
		return
	}
	m.flushes.WithLabelValues("ok").Inc()
}

// SetActive выставляет число загрузок в реестре.
func (m *Metrics) SetActive(n int) {
	if m == nil {
		return
	}
	m.activeUploads.Set(float64(n))
}
