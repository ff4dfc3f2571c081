package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApp_RouterHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	a, err := New(context.Background(), testConfig(t), nil, Options{Runner: &tesseractOnly{}})
	require.NoError(t, err)
	defer a.Close(context.Background())

	r := a.Router()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["handwriting_engine"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestApp_ServeRequiresAddress(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.GRPCAddr = ""
	cfg.Server.HTTPAddr = ""
	a, err := New(context.Background(), cfg, nil, Options{NoStore: true, Runner: &tesseractOnly{}})
	require.NoError(t, err)
	defer a.Close(context.Background())

	assert.Error(t, a.Serve(context.Background()))
}

func TestApp_ServeStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.GRPCAddr = "127.0.0.1:0"
	cfg.Server.HTTPAddr = "127.0.0.1:0"
	a, err := New(context.Background(), cfg, nil, Options{NoStore: true, Runner: &tesseractOnly{}})
	require.NoError(t, err)
	defer a.Close(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, a.Serve(ctx))
}
