// Package daemon hosts the executor endpoints: the task WebSocket, health,
// metrics and preview lookups.
package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/jmbish04/jbish-kit/internal/config"
	"github.com/jmbish04/jbish-kit/internal/executor"
	"github.com/jmbish04/jbish-kit/internal/gitops"
	"github.com/jmbish04/jbish-kit/internal/observability"
	"github.com/jmbish04/jbish-kit/internal/preview"
	"github.com/jmbish04/jbish-kit/internal/session"
)

// Server hosts the daemon's HTTP surface. Each /ws upgrade gets its own
// session; everything else is request/response.
type Server struct {
	cfg      *config.Config
	logger   *zap.Logger
	metrics  *observability.Metrics
	factory  session.Factory
	preview  *preview.Registry
	upgrader websocket.Upgrader
}

// NewServer wires the executor environment from configuration. With
// executor.mock set, git and GitHub side effects are replaced by in-process
// fakes so the daemon can run without credentials.
func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	metrics := observability.NewMetrics()

	previews, err := preview.NewRegistry(cfg.Executor.PreviewTTL,
		cfg.Executor.PreviewPortMin, cfg.Executor.PreviewPortMax)
	if err != nil {
		return nil, fmt.Errorf("build preview registry: %w", err)
	}

	env := &executor.Env{
		Logger:       logger,
		Workspace:    cfg.Executor.Workspace,
		StepDelay:    cfg.Executor.StepDelay,
		Preview:      previews,
		LintRequired: cfg.Lint.RequiredFiles,
		BaseBranch:   cfg.GitHub.BaseBranch,
	}

	if cfg.Executor.Mock {
		repo := &gitops.MockRepo{}
		prs := &gitops.MockPullRequests{}
		env.OpenRepo = func(string) (gitops.Repo, error) { return repo, nil }
		env.PullRequests = func(context.Context, string) (gitops.PullRequests, error) { return prs, nil }
	} else {
		workspace := cfg.Executor.Workspace
		env.OpenRepo = func(slug string) (gitops.Repo, error) {
			_, name, err := gitops.SplitSlug(slug)
			if err != nil {
				return nil, err
			}
			return gitops.Open(filepath.Join(workspace, name))
		}
		apiBase := cfg.GitHub.APIBaseURL
		env.PullRequests = func(ctx context.Context, token string) (gitops.PullRequests, error) {
			return gitops.NewGitHub(ctx, token, apiBase)
		}
	}

	return &Server{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		factory: executor.NewFactory(env),
		preview: previews,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// the CLI is not a browser; origin checks do not apply
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting jbish daemon", zap.String("addr", s.cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down jbish daemon")
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	s.preview.Close()
	return nil
}

// Handler exposes the daemon mux; tests mount it on httptest servers.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/metrics", s.metricsHandler)
	mux.HandleFunc("/ws", s.wsHandler)
	mux.HandleFunc("/preview/", s.previewHandler)
	return mux
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) metricsHandler(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.Server.MetricsEnabled {
		http.NotFound(w, r)
		return
	}

	promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}).ServeHTTP(w, r)
}

// wsHandler upgrades the connection and hands it to a session. The handler
// returns when the session ends; one connection carries exactly one task.
func (s *Server) wsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		s.metrics.RecordTransportError("upgrade")
		return
	}

	defer conn.Close()
	session.New(conn, s.factory, s.logger, s.metrics).Run(r.Context())
}

// previewHandler resolves a preview id to its allocated port.
func (s *Server) previewHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/preview/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}

	port, ok := s.preview.Lookup(id)
	if !ok {
		http.Error(w, `{"error":"preview not found or expired"}`, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"id": id, "port": port})
}
