// Package web 对外暴露健康检查、指标与决策历史
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/KNICEX/decision-agent/internal/entity"
	"github.com/KNICEX/decision-agent/internal/repo"
	"github.com/KNICEX/decision-agent/internal/service/agent"
	"github.com/KNICEX/decision-agent/internal/service/pipeline"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"
)

const maxListLimit = 200

type Server struct {
	echo *echo.Echo
	addr string
	repo repo.DecisionRepo
}

// DecisionView 决策与落库时的状态、订单号
type DecisionView struct {
	agent.Decision
	Status  string `json:"status"`
	OrderId string `json:"order_id,omitempty"`
}

type response struct {
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

func NewServer(addr string, decisions repo.DecisionRepo, gatherer prometheus.Gatherer) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			slog.Debug("http request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))

	s := &Server{echo: e, addr: addr, repo: decisions}
	e.GET("/healthz", s.healthz)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	g := e.Group("/api")
	g.GET("/decisions", s.listDecisions)
	g.GET("/decisions/:id", s.getDecision)
	return s
}

// Start 阻塞直到服务关闭
func (s *Server) Start() error {
	slog.Info("http server listening", "addr", s.addr)
	if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, response{Data: map[string]string{"status": "ok"}})
}

func (s *Server) listDecisions(c echo.Context) error {
	limit := 20
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return c.JSON(http.StatusBadRequest, response{Error: "limit must be a positive integer"})
		}
		limit = min(n, maxListLimit)
	}
	records, err := s.repo.List(c.Request().Context(), limit)
	if err != nil {
		slog.Error("list decisions failed", "error", err)
		return c.JSON(http.StatusInternalServerError, response{Error: "failed to load decisions"})
	}
	return c.JSON(http.StatusOK, response{Data: lo.Map(records, func(r entity.DecisionRecord, _ int) DecisionView {
		return NewDecisionView(r)
	})})
}

func (s *Server) getDecision(c echo.Context) error {
	record, err := s.repo.FindByID(c.Request().Context(), c.Param("id"))
	if errors.Is(err, repo.ErrNotFound) {
		return c.JSON(http.StatusNotFound, response{Error: "decision not found"})
	}
	if err != nil {
		slog.Error("find decision failed", "id", c.Param("id"), "error", err)
		return c.JSON(http.StatusInternalServerError, response{Error: "failed to load decision"})
	}
	return c.JSON(http.StatusOK, response{Data: NewDecisionView(record)})
}

func NewDecisionView(r entity.DecisionRecord) DecisionView {
	return DecisionView{
		Decision: pipeline.FromRecord(r),
		Status:   r.Status,
		OrderId:  r.OrderId,
	}
}
