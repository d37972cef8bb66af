package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, c.Write(m))
	return m.GetCounter().GetValue()
}

// TestTrackEmail tests the outcome label
func TestTrackEmail(t *testing.T) {
	failures := EmailsSentTotal.WithLabelValues("test", "failure")
	successes := EmailsSentTotal.WithLabelValues("test", "success")
	beforeFail := counterValue(t, failures)
	beforeOK := counterValue(t, successes)

	TrackEmail("test", errors.New("boom"))
	TrackEmail("test", nil)

	assert.Equal(t, beforeFail+1, counterValue(t, failures))
	assert.Equal(t, beforeOK+1, counterValue(t, successes))
}
