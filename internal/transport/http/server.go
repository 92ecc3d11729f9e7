// Package http provides the HTTP servers for the ensemble service.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/xiaot623/ensemble/internal/service"
	"github.com/xiaot623/ensemble/internal/transport/http/internalapi"
	v1 "github.com/xiaot623/ensemble/internal/transport/http/v1"
)

// NewExternalServer creates the public server: orchestration, the agent
// registry API and session inspection.
func NewExternalServer(svc *service.Service) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	v1.NewHandler(svc).RegisterRoutes(e)

	return e
}

// NewInternalServer creates the operator-facing server for maintenance tasks.
func NewInternalServer(svc *service.Service) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	internalapi.NewHandler(svc).RegisterRoutes(e)

	return e
}
