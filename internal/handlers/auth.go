package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"sitesense-backend/internal/middleware"
	"sitesense-backend/internal/models"
	"sitesense-backend/internal/session"
)

type AuthHandler struct {
	provider   session.Provider
	cookieName string
	log        *zap.Logger
}

func NewAuthHandler(provider session.Provider, cookieName string, log *zap.Logger) *AuthHandler {
	return &AuthHandler{provider: provider, cookieName: cookieName, log: log}
}

// SignOut godoc
// @Summary     Sign out
// @Description Invalidates the current session and clears the session cookie.
// @Tags        auth
// @Produce     json
// @Success     200 {object} models.SuccessResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /api/auth/signout [post]
func (h *AuthHandler) SignOut(c *gin.Context) {
	token := middleware.SessionToken(c, h.cookieName)
	if err := h.provider.Invalidate(c.Request.Context(), token); err != nil {
		middleware.Logger(c, h.log).Error("Failed to invalidate session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "sign out failed"})
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName, "", -1, "/", "", c.Request.TLS != nil, true)
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true})
}
