package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/markusressel/boiler2go/internal/control"
	"github.com/qdm12/reprint"
)

type regimesResponse struct {
	Active  *string                  `json:"active"`
	Regimes []control.RegimeSnapshot `json:"regimes"`
}

func registerRegimeEndpoints(rest *echo.Echo, h *handlers) {
	group := rest.Group("/regimes")

	group.GET("/", h.getRegimes)
	group.GET("/:"+urlParamId+"/", h.getRegime)
}

func (h *handlers) getRegimes(c echo.Context) error {
	snapshot := h.snapshot()
	data := reprint.This(regimesResponse{
		Active:  snapshot.ActiveRegime,
		Regimes: snapshot.Regimes,
	})
	return c.JSONPretty(http.StatusOK, data, indentationChar)
}

func (h *handlers) getRegime(c echo.Context) error {
	id := c.Param(urlParamId)
	for _, regime := range h.snapshot().Regimes {
		if regime.Key == id {
			data := reprint.This(regime)
			return c.JSONPretty(http.StatusOK, data, indentationChar)
		}
	}
	return returnNotFound(c, id)
}
