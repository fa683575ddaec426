package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caffeineduck/coderunner/runner"
)

func family(t *testing.T, r *Recorder, name string) *dto.MetricFamily {
	t.Helper()
	families, err := r.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	t.Fatalf("metric %s not gathered", name)
	return nil
}

func labels(m *dto.Metric) map[string]string {
	out := map[string]string{}
	for _, l := range m.GetLabel() {
		out[l.GetName()] = l.GetValue()
	}
	return out
}

func TestReportCountsRuns(t *testing.T) {
	r := New()
	r.Report(runner.Report{Backend: runner.BackendLocal, State: runner.StateOutput, Duration: 200 * time.Millisecond})
	r.Report(runner.Report{Backend: runner.BackendLocal, State: runner.StateOutput, Duration: time.Second})
	r.Report(runner.Report{Backend: runner.BackendNone, State: runner.StateError})

	runs := family(t, r, "coderunner_runs_total")
	got := map[string]float64{}
	for _, m := range runs.GetMetric() {
		l := labels(m)
		got[l["backend"]+"/"+l["state"]] = m.GetCounter().GetValue()
	}
	assert.Equal(t, map[string]float64{"local/output": 2, "none/error": 1}, got)

	hist := family(t, r, "coderunner_run_duration_seconds")
	for _, m := range hist.GetMetric() {
		if labels(m)["backend"] == "local" {
			assert.EqualValues(t, 2, m.GetHistogram().GetSampleCount())
			assert.InDelta(t, 1.2, m.GetHistogram().GetSampleSum(), 1e-9)
		}
	}
}

func TestWidgetGauge(t *testing.T) {
	r := New()
	r.WidgetOpened()
	r.WidgetOpened()
	r.WidgetClosed()

	g := family(t, r, "coderunner_widgets_active")
	require.Len(t, g.GetMetric(), 1)
	assert.EqualValues(t, 1, g.GetMetric()[0].GetGauge().GetValue())
}

func TestHandler(t *testing.T) {
	r := New()
	r.Report(runner.Report{Backend: runner.BackendRemote, State: runner.StateOutput})

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), `coderunner_runs_total{backend="remote",state="output"} 1`)
}
