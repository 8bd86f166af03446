package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Health 存活探针
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
