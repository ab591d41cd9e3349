package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/tashifkhan/MOOC-utils/internal/catalog"
	"github.com/tashifkhan/MOOC-utils/internal/logger"
	"github.com/tashifkhan/MOOC-utils/internal/metrics"
	"github.com/tashifkhan/MOOC-utils/internal/scraper"
	"github.com/tashifkhan/MOOC-utils/internal/storage"
)

const shutdownTimeout = 10 * time.Second

// Server is the REST front end for a catalog
type Server struct {
	e       *echo.Echo
	catalog *catalog.Catalog
	now     func() time.Time
}

// New creates a server with every route registered. m may be nil, in which case
// /metrics is not served.
func New(cat *catalog.Catalog, m *metrics.Metrics) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = errorHandler

	s := &Server{e: e, catalog: cat, now: time.Now}

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}

	e.GET("/search", s.search)

	courses := e.Group("/courses")
	courses.GET("", s.listCourses)
	courses.GET("/:code", s.getCourse)
	courses.GET("/:code/announcements", s.announcements)
	courses.GET("/:code/calendar.ics", s.calendar)

	e.GET("/users/:id/notifications", s.notifications)
	e.POST("/notifications/:id/read", s.markRead)

	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.e
}

// Run listens on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("API listening", logger.Fields{"addr": addr})
		errCh <- s.e.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

// errorHandler renders every error as {"error": msg} with a status derived from it
func errorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	msg := err.Error()

	var (
		he     *echo.HTTPError
		status *scraper.StatusError
	)
	switch {
	case errors.As(err, &he):
		code = he.Code
		if he.Message != nil {
			msg = fmt.Sprint(he.Message)
		}
	case errors.Is(err, storage.ErrNotFound):
		code = http.StatusNotFound
	case errors.As(err, &status):
		code = http.StatusBadGateway
	}

	req := c.Request()
	fields := logger.Fields{"status": code, "method": req.Method, "path": req.URL.Path, "remote": c.RealIP()}
	if code >= http.StatusInternalServerError {
		logger.Error("Request failed", fields, err)
	} else {
		logger.Debug("Request rejected", fields)
	}

	if !c.Response().Committed {
		_ = c.JSON(code, map[string]string{"error": msg})
	}
}
