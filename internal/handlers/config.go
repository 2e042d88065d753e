package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"sitesense-backend/internal/config"
)

// PublicConfig godoc
// @Summary     Browser configuration
// @Description Object-store endpoint and upload limits the browser needs to build URLs and validate input.
// @Tags        config
// @Produce     json
// @Success     200 {object} config.PublicConfig
// @Router      /api/config/public [get]
func PublicConfig(pub config.PublicConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, pub)
	}
}
