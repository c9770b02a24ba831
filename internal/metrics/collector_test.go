package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorCounts(t *testing.T) {
	c := NewCollector("fsbench")

	c.RecordOpen()
	c.RecordRead(256 * 1024)
	c.RecordRead(128)
	c.RecordError("read")

	s := c.Snapshot()
	assert.Equal(t, int64(1), s.Opens)
	assert.Equal(t, int64(2), s.Reads)
	assert.Equal(t, int64(256*1024+128), s.BytesRead)
	assert.Equal(t, int64(1), s.Errors)
}

func TestCollectorPrometheusCounters(t *testing.T) {
	c := NewCollector("fsbench")

	c.RecordOpen()
	c.RecordRead(512)

	assert.Equal(t, float64(1), testutil.ToFloat64(c.opens))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.reads))
	assert.Equal(t, float64(512), testutil.ToFloat64(c.bytesRead))
}

func TestCollectorsAreIndependent(t *testing.T) {
	// Each mount gets its own collector; registering a second one must not
	// panic on duplicate metric names.
	a := NewCollector("fsbench")
	var b *Collector
	require.NotPanics(t, func() { b = NewCollector("fsbench") })

	a.RecordOpen()
	assert.Equal(t, int64(0), b.Snapshot().Opens)
}
