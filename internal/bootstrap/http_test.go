package bootstrap

import (
	"context"
	"io"
	"net/http"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpx "github.com/target/ticketflow/internal/http"
)

func startTestServer(t *testing.T, mutate func(*HTTPServerConfig)) *Server {
	t.Helper()
	cfg := memoryConfig()
	b, err := NewBackends(context.Background(), BackendOptions{Config: cfg, Logger: discardLogger()})
	require.NoError(t, err)

	scfg := HTTPServerConfig{
		Config:    cfg,
		Backends:  b,
		Metrics:   NewMetrics(cfg.Observability),
		Templates: os.DirFS("../../frontend/templates"),
		Static:    os.DirFS("../../frontend/static"),
		Logger:    discardLogger(),
	}
	if mutate != nil {
		mutate(&scfg)
	}
	srv, err := NewHTTPServer(scfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, srv.Start(ctx))
	t.Cleanup(func() {
		assert.NoError(t, srv.Shutdown(context.Background()))
		cancel()
	})
	return srv
}

func TestHTTPServer_ServesFrontEnd(t *testing.T) {
	srv := startTestServer(t, nil)
	base := "http://" + srv.Addr()

	resp, err := http.Get(base + "/")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(httpx.RequestIDHeader))
	assert.Contains(t, string(body), `id="app"`)
	assert.Equal(t, 1, srv.Clients.Len())
}

func TestHTTPServer_Metrics(t *testing.T) {
	srv := startTestServer(t, nil)
	base := "http://" + srv.Addr()

	resp, err := http.Get(base + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()

	resp, err = http.Get(base + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `ticketflow_http_requests_total{route="GET /healthz",status="2xx"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestHTTPServer_MetricsDisabled(t *testing.T) {
	srv := startTestServer(t, func(c *HTTPServerConfig) { c.Metrics = Metrics{} })

	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHTTPServer_Compression(t *testing.T) {
	srv := startTestServer(t, func(c *HTTPServerConfig) {
		c.Config.HTTP.CompressionEnabled = true
	})

	req, err := http.NewRequest(http.MethodGet, "http://"+srv.Addr()+"/static/app.css", nil)
	require.NoError(t, err)
	// Setting the header by hand stops the transport from decoding for us.
	req.Header.Set("Accept-Encoding", "gzip")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, "gzip", resp.Header.Get("Content-Encoding"))
}

func TestNewHTTPServer_RequiresDependencies(t *testing.T) {
	_, err := NewHTTPServer(HTTPServerConfig{})
	assert.Error(t, err)
}
