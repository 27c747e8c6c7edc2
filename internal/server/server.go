// Package server exposes the label queue over HTTP (echo) and gRPC health.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/joseph-ayodele/router-ingest/internal/async"
	"github.com/joseph-ayodele/router-ingest/internal/common"
	"github.com/joseph-ayodele/router-ingest/internal/export"
	"github.com/joseph-ayodele/router-ingest/internal/queue"
	repo "github.com/joseph-ayodele/router-ingest/internal/repository"
)

// API wires the queue, its exports and the optional durable store to HTTP routes.
type API struct {
	queue   *queue.Orchestrator
	exports *export.Service
	records repo.RouterQueueRepository // nil when no store is configured
	db      *repo.DB
	runner  *async.BatchRunner
	logger  *slog.Logger
}

type APIOption func(*API)

// WithStore enables saving DONE items and listing persisted records.
func WithStore(db *repo.DB, records repo.RouterQueueRepository) APIOption {
	return func(a *API) {
		a.db = db
		a.records = records
	}
}

// WithBatchRunner lets POST /analyze?async=true hand the run to a background worker.
func WithBatchRunner(r *async.BatchRunner) APIOption {
	return func(a *API) {
		a.runner = r
	}
}

func NewAPI(q *queue.Orchestrator, logger *slog.Logger, opts ...APIOption) *API {
	if logger == nil {
		logger = slog.Default()
	}
	a := &API{
		queue:   q,
		exports: export.NewService(q, logger),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewEcho builds the echo instance with middleware and every route registered.
func (a *API) NewEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = a.errorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(a.requestContext)
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			l := common.LoggerFromContext(c.Request().Context(), a.logger)
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"elapsed_ms", v.Latency.Milliseconds(),
			}
			if v.Error != nil {
				l.Warn("http.request", append(attrs, "error", v.Error)...)
				return nil
			}
			l.Info("http.request", attrs...)
			return nil
		},
	}))

	e.GET("/health", a.Health)

	e.POST("/items", a.EnqueueItem)
	e.GET("/items", a.ListItems)
	e.GET("/items/:id", a.GetItem)
	e.DELETE("/items/:id", a.RemoveItem)
	e.PATCH("/items/:id/fields", a.UpdateField)
	e.POST("/items/:id/save", a.SaveItem)
	e.POST("/analyze", a.AnalyzeAll)
	e.GET("/analyze/last", a.LastRun)

	e.GET("/export.csv", a.ExportCSV)
	e.GET("/export.xlsx", a.ExportXLSX)

	e.GET("/records", a.ListRecords)
	return e
}

// requestContext stores the request id and a request-scoped logger on the context.
func (a *API) requestContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		reqID := c.Response().Header().Get(echo.HeaderXRequestID)
		ctx := common.WithRequestID(c.Request().Context(), reqID)
		ctx = common.WithLogger(ctx, a.logger.With("req_id", reqID))
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

func (a *API) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg, ok := he.Message.(string)
		if !ok {
			msg = http.StatusText(he.Code)
		}
		_ = c.JSON(he.Code, errorBody{Error: msg})
		return
	}
	code := common.HTTPStatus(err)
	if code >= http.StatusInternalServerError {
		common.LoggerFromContext(c.Request().Context(), a.logger).Error("http.error", "error", err)
	}
	_ = c.JSON(code, errorBody{Error: err.Error()})
}

type errorBody struct {
	Error string `json:"error"`
}

// Health reports liveness and, when a store is configured, its reachability.
func (a *API) Health(c echo.Context) error {
	body := map[string]any{"status": "ok", "queue_size": a.queue.Len()}
	if a.db != nil {
		if err := a.db.HealthCheck(c.Request().Context(), 2*time.Second); err != nil {
			body["status"] = "degraded"
			body["database"] = err.Error()
			return c.JSON(http.StatusServiceUnavailable, body)
		}
		body["database"] = "ok"
	}
	return c.JSON(http.StatusOK, body)
}

// Shutdown stops the HTTP server gracefully within timeout.
func Shutdown(e *echo.Echo, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return e.Shutdown(ctx)
}
