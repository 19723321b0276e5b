package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/qdm12/reprint"
)

func registerControlEndpoints(rest *echo.Echo, h *handlers) {
	rest.GET("/control/", h.getControl)
	rest.GET("/pid/", h.getPid)
	rest.GET("/pwm/", h.getPwm)
}

func (h *handlers) getControl(c echo.Context) error {
	return c.JSONPretty(http.StatusOK, h.snapshot(), indentationChar)
}

func (h *handlers) getPid(c echo.Context) error {
	return c.JSONPretty(http.StatusOK, h.snapshot().Pid, indentationChar)
}

func (h *handlers) getPwm(c echo.Context) error {
	data := reprint.This(h.snapshot().Pwm)
	return c.JSONPretty(http.StatusOK, data, indentationChar)
}
