package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/customeros/lexsync/internal/utils"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Time    string `json:"time"`
}

func HealthCheck(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, HealthResponse{
			Status:  "ok",
			Service: serviceName,
			Time:    utils.Now().Format("2006-01-02T15:04:05Z07:00"),
		})
	}
}
