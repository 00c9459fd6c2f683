package handlers

import (
	"net/http"

	"adspot/utils"

	"github.com/gin-gonic/gin"
)

// HealthCheck reports the latest snapshot from the background monitor. It
// never touches Mongo or Redis directly, so it stays fast under load.
func HealthCheck(c *gin.Context) {
	status := utils.GetHealthStatus()

	code := http.StatusOK
	if !status.Mongo {
		code = http.StatusServiceUnavailable
	}
	for _, ok := range status.Redis {
		if !ok {
			code = http.StatusServiceUnavailable
		}
	}

	c.JSON(code, status)
}
