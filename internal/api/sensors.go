package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/markusressel/boiler2go/internal/configuration"
	"github.com/markusressel/boiler2go/internal/sensors"
	"github.com/markusressel/boiler2go/internal/util"
)

type sensorResponse struct {
	Id          string                     `json:"id"`
	Config      configuration.SensorConfig `json:"config"`
	Last        *float64                   `json:"last"`
	MovingAvg   *float64                   `json:"movingAvg"`
	LastUpdated *time.Time                 `json:"lastUpdated"`
}

func registerSensorEndpoints(rest *echo.Echo) {
	group := rest.Group("/sensors")

	group.GET("/", getSensors)
	group.GET("/:"+urlParamId+"/", getSensor)
}

func newSensorResponse(monitor *sensors.SensorMonitor) sensorResponse {
	response := sensorResponse{
		Id:        monitor.Sensor().GetId(),
		Config:    monitor.Sensor().GetConfig(),
		Last:      monitor.Last(),
		MovingAvg: monitor.MovingAvg(),
	}
	if lastUpdated := monitor.LastUpdated(); !lastUpdated.IsZero() {
		response.LastUpdated = &lastUpdated
	}
	return response
}

func getSensors(c echo.Context) error {
	monitors := sensors.MonitorMap.Items()

	var data []sensorResponse
	for _, id := range util.SortedKeys(monitors) {
		data = append(data, newSensorResponse(monitors[id]))
	}
	return c.JSONPretty(http.StatusOK, data, indentationChar)
}

func getSensor(c echo.Context) error {
	id := c.Param(urlParamId)

	monitor, exists := sensors.MonitorMap.Get(id)
	if !exists {
		return returnNotFound(c, id)
	}
	return c.JSONPretty(http.StatusOK, newSensorResponse(monitor), indentationChar)
}
