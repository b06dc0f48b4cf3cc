package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coderun-dev/fleet/internal/config"
	"github.com/coderun-dev/fleet/internal/eventbus"
	"github.com/coderun-dev/fleet/internal/model"
	"github.com/coderun-dev/fleet/internal/planner"
	"github.com/coderun-dev/fleet/internal/runmgr"
	"github.com/coderun-dev/fleet/internal/store"
	"github.com/coderun-dev/fleet/internal/worker"
)

func startTestServer(t *testing.T) (*Server, string, context.CancelFunc) {
	t.Helper()
	cfg, err := config.New()
	require.NoError(t, err)
	cfg.Server.Port = 0

	st, err := store.New(t.TempDir())
	require.NoError(t, err)
	mgr := runmgr.New(planner.NewMockAdapter(), worker.NewMockAdapter(), eventbus.New(), st, cfg)
	bus := eventbus.New()

	srv := New(cfg, mgr, bus)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = srv.Start(ctx) }()

	require.Eventually(t, func() bool { return srv.Address() != "" }, time.Second, 5*time.Millisecond)
	return srv, "http://" + srv.Address(), cancel
}

func TestHealthEndpoint(t *testing.T) {
	_, base, cancel := startTestServer(t)
	defer cancel()

	resp, err := http.Get(base + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var report runmgr.HealthReport
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	assert.Equal(t, 0, report.ActiveRuns)
}

func TestCreateAndGetRun(t *testing.T) {
	_, base, cancel := startTestServer(t)
	defer cancel()

	body, _ := json.Marshal(createRunRequest{Goal: "ship it", TargetDir: t.TempDir(), MaxWorkers: 2})
	resp, err := http.Post(base+"/runs", contentTypeJSON, bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var run model.Run
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&run))
	assert.Equal(t, "ship it", run.Goal)
	assert.Equal(t, model.RunIdle, run.Status)

	getResp, err := http.Get(fmt.Sprintf("%s/runs/%s", base, run.ID))
	require.NoError(t, err)
	defer getResp.Body.Close()
	assert.Equal(t, http.StatusOK, getResp.StatusCode)
}

func TestCreateRunRejectsMissingFields(t *testing.T) {
	_, base, cancel := startTestServer(t)
	defer cancel()

	body, _ := json.Marshal(createRunRequest{Goal: "", TargetDir: ""})
	resp, err := http.Post(base+"/runs", contentTypeJSON, bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetUnknownRunReturns404(t *testing.T) {
	_, base, cancel := startTestServer(t)
	defer cancel()

	resp, err := http.Get(base + "/runs/does-not-exist")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStartPauseLifecycle(t *testing.T) {
	_, base, cancel := startTestServer(t)
	defer cancel()

	body, _ := json.Marshal(createRunRequest{Goal: "goal", TargetDir: t.TempDir(), MaxWorkers: 1})
	resp, err := http.Post(base+"/runs", contentTypeJSON, bytes.NewReader(body))
	require.NoError(t, err)
	var run model.Run
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&run))
	resp.Body.Close()

	startResp, err := http.Post(fmt.Sprintf("%s/runs/%s/start", base, run.ID), contentTypeJSON, nil)
	require.NoError(t, err)
	startResp.Body.Close()
	assert.Equal(t, http.StatusOK, startResp.StatusCode)

	pauseResp, err := http.Post(fmt.Sprintf("%s/runs/%s/pause", base, run.ID), contentTypeJSON, nil)
	require.NoError(t, err)
	pauseResp.Body.Close()
	assert.Equal(t, http.StatusOK, pauseResp.StatusCode)
}

func TestMetricsEndpointServesPrometheusFormat(t *testing.T) {
	_, base, cancel := startTestServer(t)
	defer cancel()

	resp, err := http.Get(base + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
