package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coderun-dev/fleet/internal/model"
)

func TestListCommandPrintsRunTable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]*model.Run{
			{ID: "run-1", Status: model.RunExecuting, Goal: "ship it", MaxWorkers: 2},
		})
	}))
	defer srv.Close()

	cmd := newListCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--addr", srv.URL})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "run-1")
	assert.Contains(t, out.String(), "ship it")
}

func TestStatusCommandPrintsRunDetails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(&model.Run{ID: "run-1", Status: model.RunPaused, Goal: "ship it"})
	}))
	defer srv.Close()

	cmd := newStatusCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"run-1", "--addr", srv.URL})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "status:      paused")
}
