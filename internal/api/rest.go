package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/markusressel/boiler2go/internal/control"
)

const (
	urlParamId      = "id"
	indentationChar = "  "
)

type (
	Result struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	}
)

// ControlSource provides the control state exposed by the api
type ControlSource interface {
	Snapshot(now time.Time) control.Snapshot
}

type handlers struct {
	source ControlSource
	clock  func() time.Time
}

func CreateRestService(source ControlSource) *echo.Echo {
	echoRest := CreateWebserver()
	echoRest.Use(middleware.Logger())

	h := &handlers{
		source: source,
		clock:  time.Now,
	}

	echoRest.GET("/alive/", isAlive)

	registerControlEndpoints(echoRest, h)
	registerCycleEndpoints(echoRest, h)
	registerRegimeEndpoints(echoRest, h)
	registerSensorEndpoints(echoRest)

	return echoRest
}

func (h *handlers) snapshot() control.Snapshot {
	return h.source.Snapshot(h.clock())
}

// returns an empty "ok" answer
func isAlive(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

// return a "not found" message
func returnNotFound(c echo.Context, id string) (err error) {
	return c.JSONPretty(http.StatusNotFound, &Result{
		Name:    "Not found",
		Message: "No item with id '" + id + "' found",
	}, indentationChar)
}
