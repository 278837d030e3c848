// Package health serves the liveness endpoint used by container orchestrators.
package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"

	pingTimeout     = 3 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Pinger checks a dependency, typically the store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler answers health checks.
type Handler struct {
	db      Pinger
	started time.Time
	logger  *slog.Logger
}

// NewHandler creates a health handler over db.
func NewHandler(db Pinger, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{db: db, started: time.Now(), logger: logger.With("component", "health")}
}

// HealthCheck reports 200 when the database answers and 503 otherwise.
func (h *Handler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
	defer cancel()

	code := http.StatusOK
	dbStatus := gin.H{"status": statusHealthy}
	if err := h.db.Ping(ctx); err != nil {
		h.logger.WarnContext(ctx, "Health check failed", "error", err)
		code = http.StatusServiceUnavailable
		dbStatus = gin.H{"status": statusUnhealthy, "error": err.Error()}
	}

	status := statusHealthy
	if code != http.StatusOK {
		status = statusUnhealthy
	}
	c.JSON(code, gin.H{
		"status":     status,
		"timestamp":  time.Now().Unix(),
		"uptime":     time.Since(h.started).Round(time.Second).String(),
		"goroutines": runtime.NumGoroutine(),
		"database":   dbStatus,
	})
}

// Router builds the gin engine serving /healthz.
func Router(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", h.HealthCheck)
	return r
}

// Server runs the health router until its context ends.
type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

// NewServer creates a server listening on addr.
func NewServer(addr string, h *Handler, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           Router(h),
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger.With("component", "health_server"),
	}
}

// Run serves until ctx is cancelled, then shuts the server down.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Health server listening", "address", s.srv.Addr)
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("health server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("health server shutdown: %w", err)
	}
	s.logger.Info("Health server stopped")
	return nil
}
