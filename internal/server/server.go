// Package server exposes research runs over HTTP and on a cron schedule.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mohammad-safakhou/webagent/internal/research"
	"github.com/mohammad-safakhou/webagent/internal/runner"
)

// Researcher runs one research kickoff. *runner.Runner satisfies it.
type Researcher interface {
	Run(ctx context.Context, k runner.Kickoff) (*runner.Report, error)
}

// ResearchRequest is the body of POST /api/research.
type ResearchRequest struct {
	Query            string `json:"query"`
	Days             int    `json:"days"`
	ShowIntermediate bool   `json:"show_intermediate"`
}

type IntermediateOutput struct {
	Task   string `json:"task"`
	Output string `json:"output"`
}

type ResearchResponse struct {
	RunID        string               `json:"run_id,omitempty"`
	Report       string               `json:"report"`
	Degraded     bool                 `json:"degraded"`
	Intermediate []IntermediateOutput `json:"intermediate,omitempty"`
}

type Server struct {
	echo           *echo.Echo
	research       Researcher
	requestTimeout time.Duration
	logger         *log.Logger
}

// Options configure New. Metrics is mounted on /metrics when set.
type Options struct {
	RequestTimeout time.Duration
	Metrics        http.Handler
	Logger         *log.Logger
}

func New(r Researcher, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	}
	s := &Server{echo: echo.New(), research: r, requestTimeout: opts.RequestTimeout, logger: logger}
	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = s.handleError

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	if opts.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(opts.Metrics))
	}
	e.POST("/api/research", s.runResearch)
	return s
}

// handleError renders every failure as {"error": "..."} and logs it.
func (s *Server) handleError(err error, c echo.Context) {
	code := http.StatusInternalServerError
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if he.Message != nil {
			msg = fmt.Sprint(he.Message)
		}
	}
	req := c.Request()
	s.logger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
	if !c.Response().Committed {
		_ = c.JSON(code, map[string]string{"error": msg})
	}
}

func (s *Server) runResearch(c echo.Context) error {
	var req ResearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()
	if s.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()
	}
	rep, err := s.research.Run(ctx, runner.Kickoff{Query: req.Query, Days: req.Days, ShowIntermediate: req.ShowIntermediate})
	if err != nil {
		if errors.Is(err, research.ErrEmptyQuery) || errors.Is(err, research.ErrInvalidDays) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return err
	}
	resp := ResearchResponse{RunID: rep.RunID, Report: rep.Markdown, Degraded: rep.Degraded}
	for _, o := range rep.Outputs {
		resp.Intermediate = append(resp.Intermediate, IntermediateOutput{Task: o.TaskID, Output: o.Output})
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) Handler() http.Handler { return s.echo }

// Start serves on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.logger.Printf("listening on %s", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error { return s.echo.Shutdown(ctx) }
