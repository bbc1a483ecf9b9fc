// Package ops serves the operational endpoints of the scheduler: liveness,
// readiness, Prometheus metrics and the latest run summary.
package ops

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/domain"
	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/middleware"
	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/repository"
)

// Pinger checks database reachability. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SummaryReader loads persisted run summaries.
type SummaryReader interface {
	GetLatestRunSummary(ctx context.Context) (repository.RunSummary, error)
}

// JobStatus reports whether a scheduled run is active.
type JobStatus interface {
	Running() bool
}

// Config holds ops server configuration
type Config struct {
	// Port to listen on
	Port int

	// ReadyTimeout bounds the database ping of /readyz (default 2s)
	ReadyTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown (default 5s)
	ShutdownTimeout time.Duration
}

// Server is the ops HTTP server.
type Server struct {
	config    Config
	db        Pinger
	summaries SummaryReader
	job       JobStatus
	echo      *echo.Echo
	logger    *slog.Logger
}

// NewServer builds the server and its routes. job may be nil when the
// process only consumes events.
func NewServer(
	config Config,
	db Pinger,
	summaries SummaryReader,
	job JobStatus,
	gatherer prometheus.Gatherer,
	metrics *middleware.Metrics,
	logger *slog.Logger,
) *Server {
	if config.ReadyTimeout == 0 {
		config.ReadyTimeout = 2 * time.Second
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:    config,
		db:        db,
		summaries: summaries,
		job:       job,
		logger:    logger.With("component", "ops_server"),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echo.WrapMiddleware(middleware.Recovery(s.logger)))
	e.Use(echo.WrapMiddleware(middleware.RequestID))
	if metrics != nil {
		e.Use(echo.WrapMiddleware(metrics.Middleware))
	}
	e.Use(echo.WrapMiddleware(middleware.WithRequestLogger(s.logger)))

	e.GET("/healthz", s.healthz)
	e.GET("/readyz", s.readyz)
	e.GET("/runs/latest", s.latestRun)
	if gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	s.echo = e
	return s
}

// Handler exposes the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("ops server listening", "address", addr)
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("ops server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down ops server: %w", err)
	}
	s.logger.Info("ops server stopped")
	return nil
}

type healthResponse struct {
	Status       string `json:"status"`
	RunInProgress bool   `json:"run_in_progress"`
}

func (s *Server) healthz(c echo.Context) error {
	resp := healthResponse{Status: "ok"}
	if s.job != nil {
		resp.RunInProgress = s.job.Running()
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) readyz(c echo.Context) error {
	if s.db == nil {
		return c.JSON(http.StatusOK, healthResponse{Status: "ok"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), s.config.ReadyTimeout)
	defer cancel()

	if err := s.db.Ping(ctx); err != nil {
		middleware.GetLogger(c.Request().Context(), s.logger).Warn("readiness check failed", "error", err)
		return c.JSON(http.StatusServiceUnavailable, errorResponse("unavailable", "database unreachable"))
	}
	return c.JSON(http.StatusOK, healthResponse{Status: "ok"})
}

// runSummaryResponse is the JSON view of a run summary. The error stack is
// left out; it lives in the database and Sentry.
type runSummaryResponse struct {
	ID               string          `json:"id"`
	Type             string          `json:"type"`
	Timestamp        time.Time       `json:"timestamp"`
	TotalProcessed   int32           `json:"total_processed"`
	TotalSuccessful  int32           `json:"total_successful"`
	TotalFailed      int32           `json:"total_failed"`
	TenantsProcessed int32           `json:"tenants_processed"`
	DurationMs       int64           `json:"duration_ms"`
	PerTenantResults json.RawMessage `json:"per_tenant_results,omitempty"`
	ErrorMessage     string          `json:"error_message,omitempty"`
}

func (s *Server) latestRun(c echo.Context) error {
	if s.summaries == nil {
		return s.respondError(c, domain.NotFound("ops.latestRun", "run summary", "latest"))
	}

	row, err := s.summaries.GetLatestRunSummary(c.Request().Context())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s.respondError(c, domain.NotFound("ops.latestRun", "run summary", "latest"))
		}
		return s.respondError(c, domain.Internal(err, "ops.latestRun", "Failed to load run summary"))
	}

	resp := runSummaryResponse{
		ID:               repository.ToUUID(row.ID).String(),
		Type:             row.Type,
		Timestamp:        row.RunAt.Time,
		TotalProcessed:   row.TotalProcessed,
		TotalSuccessful:  row.TotalSuccessful,
		TotalFailed:      row.TotalFailed,
		TenantsProcessed: row.TenantsProcessed,
		DurationMs:       row.DurationMs,
		ErrorMessage:     row.ErrorMessage.String,
	}
	if len(row.PerTenantResults) > 0 {
		resp.PerTenantResults = json.RawMessage(row.PerTenantResults)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) respondError(c echo.Context, err error) error {
	status := middleware.HTTPStatus(err)
	logger := middleware.GetLogger(c.Request().Context(), s.logger)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "error", err, "op", domain.ErrorOp(err))
		return c.JSON(status, errorResponse(domain.ErrorCode(err), "An unexpected error occurred"))
	}

	var derr *domain.Error
	message := err.Error()
	if errors.As(err, &derr) {
		message = derr.Message
	}
	return c.JSON(status, errorResponse(domain.ErrorCode(err), message))
}

func errorResponse(code, message string) map[string]interface{} {
	return map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	}
}
