package cli

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIClientGetDecodesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"hello": "world"})
	}))
	defer srv.Close()

	var out map[string]string
	require.NoError(t, newAPIClient(srv.URL).get("/anything", &out))
	assert.Equal(t, "world", out["hello"])
}

func TestAPIClientGetSurfacesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "run not found"})
	}))
	defer srv.Close()

	var out map[string]string
	err := newAPIClient(srv.URL).get("/runs/missing", &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
}

func TestAPIClientGetUnreachableServer(t *testing.T) {
	err := newAPIClient("http://127.0.0.1:1").get("/health", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fleetctl serve")
}

func TestAPIClientPostSendsBodyAndDecodesResponse(t *testing.T) {
	var received map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"id": "run-1"})
	}))
	defer srv.Close()

	var out map[string]string
	require.NoError(t, newAPIClient(srv.URL).post("/runs", map[string]string{"goal": "ship"}, &out))
	assert.Equal(t, "run-1", out["id"])
	assert.Equal(t, "ship", received["goal"])
}
