// Package api exposes the reflection engine over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"trade-memory/internal/adjustment"
	"trade-memory/internal/domain"
	"trade-memory/internal/observability"
	"trade-memory/internal/pipeline"
	"trade-memory/internal/storage"
)

// Server provides the HTTP endpoints.
type Server struct {
	echo      *echo.Echo
	svc       *pipeline.Service
	scheduler *pipeline.Scheduler
	metrics   *observability.Metrics
	logger    *zap.Logger
	addr      string
	now       func() time.Time
}

// NewServer creates a server for svc. m and sched may be nil.
func NewServer(svc *pipeline.Service, logger *zap.Logger, m *observability.Metrics, sched *pipeline.Scheduler, addr string) (*Server, error) {
	if svc == nil {
		return nil, errors.New("service cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger is required for request tracking")
	}
	if addr == "" {
		addr = ":8080"
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return nil
		}
	})

	s := &Server{
		echo:      e,
		svc:       svc,
		scheduler: sched,
		metrics:   m,
		logger:    logger,
		addr:      addr,
		now:       func() time.Time { return time.Now().UTC() },
	}
	s.registerRoutes()
	return s, nil
}

// WithClock sets the clock used for default periods.
func (s *Server) WithClock(now func() time.Time) *Server {
	s.now = now
	return s
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/status", s.handleStatus)
	s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/reflect/:kind", s.handleReflect)
	v1.GET("/reports/:kind", s.handleListReports)
	v1.GET("/reports/:kind/:ref", s.handleGetReport)

	v1.POST("/patterns/discover", s.handleDiscover)
	v1.GET("/patterns", s.handleLatestPatterns)

	v1.POST("/adjustments/generate", s.handleGenerateAdjustments)
	v1.GET("/adjustments", s.handleListAdjustments)
	v1.POST("/adjustments/:id/approve", s.handleTransition(s.svc.Approve))
	v1.POST("/adjustments/:id/reject", s.handleTransition(s.svc.Reject))
	v1.POST("/adjustments/:id/apply", s.handleTransition(s.svc.Apply))
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// StatusResponse is the response body for GET /status.
type StatusResponse struct {
	Status    string                    `json:"status"`
	Scheduler *pipeline.SchedulerStatus `json:"scheduler,omitempty"`
}

func (s *Server) handleStatus(c echo.Context) error {
	resp := StatusResponse{Status: "running"}
	if s.scheduler != nil {
		st := s.scheduler.Status()
		resp.Scheduler = &st
	}
	return c.JSON(http.StatusOK, resp)
}

// ReflectRequest is the optional body for POST /api/v1/reflect/:kind.
// Period is a date for daily and weekly runs (the week's last day) and
// YYYY-MM for monthly runs. Empty means the most recent complete period.
type ReflectRequest struct {
	Period string `json:"period"`
}

func (s *Server) handleReflect(c echo.Context) error {
	kind := domain.PeriodKind(c.Param("kind"))

	var req ReflectRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
	}

	p, err := s.resolvePeriod(kind, req.Period)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	res, err := s.svc.Reflect(c.Request().Context(), p)
	if err != nil {
		return s.httpError(err)
	}
	return c.JSON(http.StatusOK, ReflectionResponse{
		Report: NewReportResponse(res.Report),
		Files:  res.Files,
	})
}

// resolvePeriod parses ref, defaulting to the last complete period of kind.
func (s *Server) resolvePeriod(kind domain.PeriodKind, ref string) (domain.Period, error) {
	if ref != "" {
		return domain.ParsePeriod(kind, ref)
	}

	now := s.now()
	yesterday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	switch kind {
	case domain.PeriodDaily:
		return domain.DailyPeriod(yesterday), nil
	case domain.PeriodWeekly:
		return domain.WeeklyPeriod(yesterday), nil
	case domain.PeriodMonthly:
		prev := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
		return domain.MonthlyPeriod(prev.Year(), prev.Month()), nil
	default:
		return domain.Period{}, fmt.Errorf("unknown period kind %q", kind)
	}
}

func (s *Server) handleListReports(c echo.Context) error {
	kind := domain.PeriodKind(c.Param("kind"))
	if _, err := s.resolvePeriod(kind, ""); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	limit, err := queryLimit(c)
	if err != nil {
		return err
	}

	reports, err := s.svc.Reports(c.Request().Context(), kind, limit)
	if err != nil {
		return s.httpError(err)
	}
	resp := make([]ReportResponse, 0, len(reports))
	for _, r := range reports {
		resp = append(resp, NewReportResponse(r))
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleGetReport(c echo.Context) error {
	kind := domain.PeriodKind(c.Param("kind"))
	p, err := domain.ParsePeriod(kind, c.Param("ref"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	r, err := s.svc.Report(c.Request().Context(), kind, p.ID())
	if err != nil {
		return s.httpError(err)
	}
	return c.JSON(http.StatusOK, NewReportResponse(r))
}

// DiscoverRequest is the optional body for POST /api/v1/patterns/discover.
type DiscoverRequest struct {
	Dimensions []string `json:"dimensions"`
}

func (s *Server) handleDiscover(c echo.Context) error {
	var req DiscoverRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
	}

	dims := make([]domain.Dimension, 0, len(req.Dimensions))
	for _, name := range req.Dimensions {
		d, ok := domain.ParseDimension(name)
		if !ok {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown dimension %q", name))
		}
		dims = append(dims, d)
	}

	found, err := s.svc.DiscoverPatterns(c.Request().Context(), dims)
	if err != nil {
		return s.httpError(err)
	}
	return c.JSON(http.StatusOK, NewPatternResponses(found))
}

func (s *Server) handleLatestPatterns(c echo.Context) error {
	latest, err := s.svc.LatestPatterns(c.Request().Context())
	if err != nil {
		return s.httpError(err)
	}
	return c.JSON(http.StatusOK, NewPatternResponses(latest))
}

func (s *Server) handleGenerateAdjustments(c echo.Context) error {
	proposals, err := s.svc.GenerateAdjustments(c.Request().Context())
	if err != nil {
		return s.httpError(err)
	}
	return c.JSON(http.StatusOK, NewAdjustmentResponses(proposals))
}

func (s *Server) handleListAdjustments(c echo.Context) error {
	var f storage.AdjustmentFilter
	if v := c.QueryParam("status"); v != "" {
		st, ok := domain.ParseAdjustmentStatus(v)
		if !ok {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown status %q", v))
		}
		f.Status = st
	}
	if v := c.QueryParam("type"); v != "" {
		at, ok := domain.ParseAdjustmentType(v)
		if !ok {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown adjustment type %q", v))
		}
		f.Type = at
	}
	limit, err := queryLimit(c)
	if err != nil {
		return err
	}
	f.Limit = limit

	list, err := s.svc.Adjustments(c.Request().Context(), f)
	if err != nil {
		return s.httpError(err)
	}
	return c.JSON(http.StatusOK, NewAdjustmentResponses(list))
}

type transitionFunc func(ctx context.Context, id string) (*domain.StrategyAdjustment, error)

func (s *Server) handleTransition(fn transitionFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		a, err := fn(c.Request().Context(), c.Param("id"))
		if err != nil {
			return s.httpError(err)
		}
		return c.JSON(http.StatusOK, NewAdjustmentResponse(a))
	}
}

func queryLimit(c echo.Context) (int, error) {
	v := c.QueryParam("limit")
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "limit must be a non-negative integer")
	}
	return n, nil
}

// httpError maps service errors to HTTP status codes.
func (s *Server) httpError(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, adjustment.ErrInvalidTransition),
		errors.Is(err, storage.ErrConflict),
		errors.Is(err, storage.ErrDuplicateKey):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, pipeline.ErrNoPatterns):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, storage.ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("request failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting http server", zap.String("addr", s.addr))
	return s.echo.Start(s.addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
