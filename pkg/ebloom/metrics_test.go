package ebloom

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestCollector_ReportsCurrentStats(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{ms: 1_000_000}
	f := mustCreate(t, DefaultConfig(), clock)
	require.NoError(t, f.Insert([]byte("a")))
	require.NoError(t, f.Insert([]byte("b")))

	c := NewCollector(f, "orders")

	ch := make(chan prometheus.Metric, 8)
	go func() {
		c.Collect(ch)
		close(ch)
	}()

	// Collect's send order is fixed: totalInserts, activeLevel, numLevels,
	// capacity, targetFPR.
	var values []float64
	for m := range ch {
		var pb dto.Metric
		require.NoError(t, m.Write(&pb))
		switch {
		case pb.Counter != nil:
			values = append(values, pb.Counter.GetValue())
		case pb.Gauge != nil:
			values = append(values, pb.Gauge.GetValue())
		}
	}

	require.Len(t, values, 5)
	require.Equal(t, float64(2), values[0], "total_inserts")
	require.Equal(t, float64(0), values[1], "active_level")
	require.Equal(t, float64(3), values[2], "num_levels")
}

func TestCollector_Describe(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{ms: 1_000_000}
	f := mustCreate(t, DefaultConfig(), clock)
	c := NewCollector(f, "orders")

	ch := make(chan *prometheus.Desc, 8)
	go func() {
		c.Describe(ch)
		close(ch)
	}()

	var n int
	for range ch {
		n++
	}
	require.Equal(t, 5, n)
}
