package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg))
}

func TestObserveStageNormalizesOutcome(t *testing.T) {
	before := testutil.ToFloat64(stageRunsTotal.WithLabelValues("normalize", OutcomeSuccess))
	ObserveStage("normalize", 10*time.Millisecond, "whatever")
	ObserveStage("normalize", -time.Second, OutcomeSuccess)
	assert.Equal(t, before+2, testutil.ToFloat64(stageRunsTotal.WithLabelValues("normalize", OutcomeSuccess)))

	errBefore := testutil.ToFloat64(stageRunsTotal.WithLabelValues("normalize", OutcomeError))
	ObserveStage("normalize", time.Millisecond, OutcomeError)
	assert.Equal(t, errBefore+1, testutil.ToFloat64(stageRunsTotal.WithLabelValues("normalize", OutcomeError)))
}

func TestSetIngestAndCounters(t *testing.T) {
	missing := testutil.ToFloat64(skippedCellsTotal.WithLabelValues("missing"))
	SetIngest(4, 96, 2, 0)
	assert.Equal(t, 4.0, testutil.ToFloat64(productsGauge))
	assert.Equal(t, 96.0, testutil.ToFloat64(recordsGauge))
	assert.Equal(t, missing+2, testutil.ToFloat64(skippedCellsTotal.WithLabelValues("missing")))

	up := testutil.ToFloat64(anomaliesTotal.WithLabelValues("up"))
	AddAnomalies(3, 1)
	assert.Equal(t, up+3, testutil.ToFloat64(anomaliesTotal.WithLabelValues("up")))

	yoy := testutil.ToFloat64(alertsTotal.WithLabelValues("yoy"))
	AddAlert("yoy", "delta")
	assert.Equal(t, yoy+1, testutil.ToFloat64(alertsTotal.WithLabelValues("yoy")))
}

func TestWriteTextfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	ObserveStage("rolling", time.Millisecond, OutcomeSuccess)

	path := filepath.Join(t.TempDir(), "yearlens.prom")
	require.NoError(t, WriteTextfile(path, reg))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "yearlens_stage_runs_total")
	assert.Contains(t, string(b), `stage="rolling"`)
}
