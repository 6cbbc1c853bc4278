package observability

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := NewMetrics()
	m.Fetched("sales", 3)
	m.Deduped("sales")
	m.Skipped("listings", "metadata")
	m.Delivery("sales", "webhook", true)
	m.Delivery("sales", "webhook", false)
	m.Recorded("sales")

	assert.Equal(t, 3.0, testutil.ToFloat64(m.EventsFetched.WithLabelValues("sales")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsDeduped.WithLabelValues("sales")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsSkipped.WithLabelValues("listings", "metadata")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Deliveries.WithLabelValues("sales", "webhook", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LedgerWrites.WithLabelValues("sales")))
}

func TestFinish(t *testing.T) {
	m := NewMetrics()
	m.Finish(time.Now().Add(-time.Second), errors.New("boom"))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.LastSuccess))
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.RunDuration), 1.0)

	m.Finish(time.Now(), nil)
	assert.Greater(t, testutil.ToFloat64(m.LastSuccess), 0.0)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Fetched("sales", 1)
	m.Delivery("sales", "webhook", true)
	m.Finish(time.Now(), nil)
	assert.Nil(t, m.Registry())
	assert.NoError(t, m.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")))
}

func TestWriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.Recorded("listings")
	path := filepath.Join(t.TempDir(), "textfile", "nftbot.prom")
	require.NoError(t, m.WriteTextfile(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(b), `nftbot_ledger_writes_total{kind="listings"} 1`))
}
