package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bertel/migration-tool/internal/agent"
	"github.com/bertel/migration-tool/internal/classify"
	"github.com/bertel/migration-tool/internal/coordinator"
	"github.com/bertel/migration-tool/internal/model"
	"github.com/bertel/migration-tool/internal/store"
	"github.com/bertel/migration-tool/internal/telemetry"
)

func newTestEnv(t *testing.T) *appEnv {
	t.Helper()
	backend := store.NewDisabled("test")
	rules := classify.NewRuleBased()
	metrics := telemetry.NewMetrics()
	env := &appEnv{
		Backend: backend,
		Metrics: metrics,
		Coordinator: coordinator.New(coordinator.Options{
			Backend:  backend,
			Service:  rules,
			Registry: agent.NewRegistry(agent.Deps{Backend: backend, Service: rules}),
			Metrics:  metrics,
		}),
	}
	t.Cleanup(env.Close)
	return env
}

func serve(t *testing.T, h http.Handler, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoint(t *testing.T) {
	router := buildRouter(newTestEnv(t), nil)

	rr := serve(t, router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestIngestEndpoint_Mapping(t *testing.T) {
	router := buildRouter(newTestEnv(t), nil)

	rr := serve(t, router, http.MethodPost, "/ingest",
		`{"name": "Hotel Le Lagon", "telephone": "0262 24 50 00", "couleur": "bleu"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp model.IngestionResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "Hotel Le Lagon", resp.EntityName)
	require.NotEmpty(t, resp.RoutedFragments)
	assert.Equal(t, model.AgentIdentity, resp.RoutedFragments[0].Agent)
	assert.Contains(t, resp.UnresolvedFragments, "couleur")
}

func TestIngestEndpoint_NameFallback(t *testing.T) {
	router := buildRouter(newTestEnv(t), nil)

	rr := serve(t, router, http.MethodPost, "/ingest?name=Gite+des+Hauts", "ville: Cilaos\n")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp model.IngestionResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "Gite des Hauts", resp.EntityName)
}

func TestIngestEndpoint_EmptyBody(t *testing.T) {
	router := buildRouter(newTestEnv(t), nil)

	rr := serve(t, router, http.MethodPost, "/ingest", "   ")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "empty payload")
}

func TestAgentsEndpoint(t *testing.T) {
	router := buildRouter(newTestEnv(t), nil)

	rr := serve(t, router, http.MethodGet, "/agents", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var descriptors []model.AgentDescriptor
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &descriptors))
	require.Len(t, descriptors, 11)
	assert.Equal(t, model.AgentIdentity, descriptors[0].Name)
}

func TestEventsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	router := buildRouter(env, nil)

	rr := serve(t, router, http.MethodPost, "/ingest", `{"name": "Camping", "telephone": "0262 00 00 00"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = serve(t, router, http.MethodGet, "/events?limit=1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var events []telemetry.Event
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, "coordinator.completed", events[0].Type)

	rr = serve(t, router, http.MethodGet, "/events?limit=-2", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	router := buildRouter(newTestEnv(t), nil)

	serve(t, router, http.MethodPost, "/ingest", `{"name": "Camping"}`)
	rr := serve(t, router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "migration_ingest_runs_total")
}

func TestCORSPreflight(t *testing.T) {
	router := buildRouter(newTestEnv(t), []string{"https://admin.example"})

	req := httptest.NewRequest(http.MethodOptions, "/ingest", nil)
	req.Header.Set("Origin", "https://admin.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, "https://admin.example", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestStartServer_GracefulShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	router := buildRouter(newTestEnv(t), nil)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()

	errCh := make(chan error, 1)
	go func() {
		errCh <- startServer(ctx, router, port)
	}()

	var ready bool
	for i := 0; i < 50; i++ {
		resp, err := http.Post(fmt.Sprintf("http://127.0.0.1:%d/ingest", port), "application/json",
			bytes.NewBufferString(`{"name": "Hotel"}`))
		if err == nil {
			resp.Body.Close()
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			ready = true
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.True(t, ready, "server did not become ready in time")

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
