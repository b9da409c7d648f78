// Package http provides the HTTP server for the chat session service.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xiaot623/studyclub/internal/hub"
	"github.com/xiaot623/studyclub/internal/service"
	v1 "github.com/xiaot623/studyclub/internal/transport/http/v1"
	"github.com/xiaot623/studyclub/internal/transport/ws"
)

// NewServer creates and configures the HTTP server: the REST API, the
// WebSocket endpoint and the metrics endpoint.
func NewServer(svc *service.Service, h *hub.Hub, wsServer *ws.Server, gatherer prometheus.Gatherer) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	v1Handler := v1.NewHandler(svc, h)
	v1Handler.RegisterRoutes(e)

	if wsServer != nil {
		e.GET("/ws", wsServer.HandleWebSocket)
	}
	if gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	return e
}
