package bootstrap

import (
	"context"
	stderrors "errors"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/target/ticketflow/config"
	httpx "github.com/target/ticketflow/internal/http"
)

// HTTPServerConfig contains what the web front end needs.
type HTTPServerConfig struct {
	Config   *config.AppConfig // Required
	Backends *Backends         // Required
	Metrics  Metrics

	// Templates and Static are the front end assets, rooted at their own
	// directories.
	Templates fs.FS // Required
	Static    fs.FS

	Logger *slog.Logger
}

// Server is the web front end: the HTTP server and the per-browser clients.
type Server struct {
	HTTP    *http.Server
	Clients *httpx.Registry

	shutdownTimeout time.Duration
	logger          *slog.Logger
	addr            net.Addr
}

// NewHTTPServer builds the router, middleware chain and client registry.
func NewHTTPServer(cfg HTTPServerConfig) (*Server, error) {
	if cfg.Config == nil || cfg.Backends == nil || cfg.Templates == nil {
		return nil, stderrors.New("bootstrap: HTTPServerConfig.Config, Backends and Templates are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	appCfg := cfg.Config

	renderer, err := httpx.NewTemplateRenderer(httpx.TemplateRendererConfig{
		TemplateFS: cfg.Templates,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	clients := httpx.NewRegistry(httpx.RegistryOptions{
		Open:         cfg.Backends.Open,
		IdleTTL:      appCfg.UI.ClientIdleTTL,
		CookieSecure: appCfg.HTTP.CookieSecure,
		Logger:       logger,
		Metrics:      cfg.Metrics.Collector,
	})

	handler := buildHTTPHandler(httpHandlerConfig{
		Logger: logger,
		HTTP:   appCfg.HTTP,
		Router: httpx.RouterServices{
			Clients:  clients,
			Renderer: renderer,
			Static:   cfg.Static,
			Metrics:  cfg.Metrics.Handler,
			Logger:   logger,
		},
		Metrics: cfg.Metrics,
	})

	addr := appCfg.HTTP.Addr
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	// Event streams end when their client closes; Shutdown would otherwise
	// wait on them until the timeout.
	srv.RegisterOnShutdown(clients.Close)

	shutdownTimeout := appCfg.HTTP.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &Server{
		HTTP:            srv,
		Clients:         clients,
		shutdownTimeout: shutdownTimeout,
		logger:          logger,
	}, nil
}

type httpHandlerConfig struct {
	Logger  *slog.Logger
	HTTP    config.HTTPConfig
	Router  httpx.RouterServices
	Metrics Metrics
}

// buildHTTPHandler applies middleware around the router.
// Order: Recover -> RequestID -> Logging -> CSRF -> Compression -> Router.
func buildHTTPHandler(cfg httpHandlerConfig) http.Handler {
	var h http.Handler = httpx.NewRouter(cfg.Router)

	if cfg.HTTP.CompressionEnabled {
		cfg.Logger.Info("HTTP compression enabled", "level", cfg.HTTP.CompressionLevel)
		h = httpx.Compression(httpx.CompressionConfig{Level: cfg.HTTP.CompressionLevel, Logger: cfg.Logger})(h)
	}
	h = httpx.CSRFProtection(httpx.CSRFConfig{Secure: cfg.HTTP.CookieSecure})(h)
	h = httpx.Logging(cfg.Logger, cfg.Metrics.Collector)(h)
	h = httpx.RequestID()(h)
	h = httpx.Recover(cfg.Logger)(h)
	return h
}

// Start listens on the configured address and sweeps idle clients until ctx
// ends. It returns once the listener is bound.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.HTTP.Addr)
	if err != nil {
		return err
	}
	s.addr = ln.Addr()
	go s.Clients.Run(ctx)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.addr.String())
		if err := s.HTTP.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server failed", "error", err)
		}
	}()
	return nil
}

// Addr is the bound listen address once Start has returned.
func (s *Server) Addr() string {
	if s.addr == nil {
		return s.HTTP.Addr
	}
	return s.addr.String()
}

// Shutdown stops accepting requests, waits for in-flight ones up to the
// configured timeout, and releases every client.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()

	err := s.HTTP.Shutdown(shutdownCtx)
	if stderrors.Is(err, context.DeadlineExceeded) {
		err = s.HTTP.Close()
	}
	s.Clients.Close()
	if err != nil {
		return err
	}
	s.logger.Info("HTTP server stopped")
	return nil
}
