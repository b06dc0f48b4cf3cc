package cli

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coderun-dev/fleet/internal/model"
)

func TestTransitionCommandsPostToExpectedPath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(&model.Run{ID: "run-1", Status: model.RunPaused})
	}))
	defer srv.Close()

	cmd := newPauseCommand()
	cmd.SetArgs([]string{"run-1", "--addr", srv.URL})
	require.NoError(t, cmd.Execute())
	require.Equal(t, "/runs/run-1/pause", gotPath)

	cmd = newResumeCommand()
	cmd.SetArgs([]string{"run-1", "--addr", srv.URL})
	require.NoError(t, cmd.Execute())
	require.Equal(t, "/runs/run-1/resume", gotPath)

	cmd = newStopCommand()
	cmd.SetArgs([]string{"run-1", "--addr", srv.URL})
	require.NoError(t, cmd.Execute())
	require.Equal(t, "/runs/run-1/stop", gotPath)
}
