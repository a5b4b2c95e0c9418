// Package api serves sentence ingestion over HTTP and WebSocket.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/FocuswithJustin/xmlinput/core/config"
	"github.com/FocuswithJustin/xmlinput/internal/corpus"
	"github.com/FocuswithJustin/xmlinput/internal/logging"
	"github.com/FocuswithJustin/xmlinput/internal/metrics"
)

// Server is the ingestion API. Create it with New and release it with
// Close, or use Start.
type Server struct {
	cfg     Config
	proc    *corpus.Processor
	metrics *metrics.Collector
	hub     *Hub
	limiter *RateLimiter
	handler http.Handler
	started time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

// New validates cfg and builds the server around proc. m may be nil, in
// which case /metrics is not served.
func New(cfg Config, proc *corpus.Processor, m *metrics.Collector) (*Server, error) {
	cfg.applyDefaults()

	if err := ValidateAuthConfig(cfg.Auth); err != nil {
		return nil, fmt.Errorf("invalid auth config: %w", err)
	}
	if cfg.TLS.Enabled {
		if cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "" {
			return nil, fmt.Errorf("TLS enabled but cert or key file not specified")
		}
		if _, err := os.Stat(cfg.TLS.CertFile); err != nil {
			return nil, fmt.Errorf("TLS cert file not found: %w", err)
		}
		if _, err := os.Stat(cfg.TLS.KeyFile); err != nil {
			return nil, fmt.Errorf("TLS key file not found: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:     cfg,
		proc:    proc,
		metrics: m,
		hub:     NewHub(),
		started: time.Now(),
		ctx:     ctx,
		cancel:  cancel,
	}
	go s.hub.Run(ctx)

	var handler http.Handler = SecurityHeaders(s.setupRoutes())
	handler = AuthMiddleware(cfg.Auth, handler)
	if cfg.RateLimitRequests > 0 {
		s.limiter = NewRateLimiter(RateLimiterConfig{
			RequestsPerMinute: cfg.RateLimitRequests,
			BurstSize:         cfg.RateLimitBurst,
		})
		handler = s.limiter.Middleware(handler)
	}
	handler = CORS(cfg.AllowedOrigins, handler)
	s.handler = logging.CombinedMiddleware(handler)
	return s, nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Close disconnects WebSocket clients and stops background work.
func (s *Server) Close() {
	s.cancel()
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

// Reload makes cfg the active ingestion configuration and tells the
// WebSocket clients about it.
func (s *Server) Reload(path string, cfg *config.Config) {
	s.proc.SetConfig(cfg)
	fp := cfg.Fingerprint()
	s.metrics.RecordConfigReload()
	logging.ConfigReloaded(path, fp)
	s.hub.Broadcast(Message{Type: MessageConfigReloaded, Fingerprint: fp})
}

// Run serves until ctx is cancelled, then shuts down gracefully. When
// ConfigPath is set the file is watched and reloaded on change.
func (s *Server) Run(ctx context.Context) error {
	defer s.Close()

	var watcher *config.Watcher
	if s.cfg.ConfigPath != "" {
		w, err := config.NewWatcher(s.cfg.ConfigPath, s.cfg.ReloadDebounce, logging.GetLogger())
		if err != nil {
			return fmt.Errorf("watch configuration: %w", err)
		}
		watcher = w
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	protocol, wsProtocol := "http", "ws"
	if s.cfg.TLS.Enabled {
		protocol, wsProtocol = "https", "wss"
		logging.Info("TLS enabled", "cert_file", s.cfg.TLS.CertFile)
	} else {
		logging.Warn("TLS disabled - using plain HTTP",
			"recommendation", "consider using TLS or reverse proxy for production")
	}
	logging.SecurityEvent("authentication_configured", "api", "enabled", s.cfg.Auth.Enabled)
	logging.ServerStartup("ingest_api", protocol, s.cfg.Port,
		"websocket_protocol", wsProtocol,
		"workers", s.cfg.Workers,
		"fingerprint", s.proc.Config().Fingerprint())

	g, gctx := errgroup.WithContext(ctx)

	if watcher != nil {
		g.Go(func() error {
			err := watcher.Watch(gctx, func(cfg *config.Config) {
				s.Reload(s.cfg.ConfigPath, cfg)
			})
			if err != nil {
				logging.Error("configuration watcher stopped", "error", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		var err error
		if s.cfg.TLS.Enabled {
			err = srv.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		s.cancel()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// Start builds a server and runs it until ctx is cancelled.
func Start(ctx context.Context, cfg Config, proc *corpus.Processor, m *metrics.Collector) error {
	s, err := New(cfg, proc, m)
	if err != nil {
		return err
	}
	return s.Run(ctx)
}
