package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ChunkWrite(ResultWritten, 64)
	m.ChunkWrite(ResultWritten, 22)
	m.ChunkWrite(ResultConflict, 0)
	m.Flush(nil)
	m.Flush(errors.New("disk gone"))
	m.SetActive(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.chunks.WithLabelValues(ResultWritten)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.chunks.WithLabelValues(ResultConflict)))
	assert.Equal(t, 86.0, testutil.ToFloat64(m.bytes))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.flushes.WithLabelValues("error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.activeUploads))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	m.ChunkWrite(ResultWritten, 10)
	m.Flush(nil)
	m.SetActive(1)
}
