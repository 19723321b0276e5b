package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/qdm12/reprint"
)

func registerCycleEndpoints(rest *echo.Echo, h *handlers) {
	group := rest.Group("/cycles")

	group.GET("/", h.getCycleStatistics)
	group.GET("/last/", h.getLastCycle)
}

func (h *handlers) getCycleStatistics(c echo.Context) error {
	data := reprint.This(h.snapshot().Cycles)
	return c.JSONPretty(http.StatusOK, data, indentationChar)
}

func (h *handlers) getLastCycle(c echo.Context) error {
	last := h.snapshot().LastCycle
	if last == nil {
		return returnNotFound(c, "last")
	}
	return c.JSONPretty(http.StatusOK, last, indentationChar)
}
