package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"sitesense-backend/internal/models"
	"sitesense-backend/internal/services"
)

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "bad request", Message: message})
}

// respondError maps ValidationError to 400 and everything else to a generic
// 500, logging the cause.
func respondError(c *gin.Context, log *zap.Logger, err error, generic string, fields ...zap.Field) {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "validation failed", Message: verr.Message})
		return
	}

	log.Error(generic, append(fields, zap.Error(err))...)
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: generic})
}

// itemErrors converts batch failures for the wire. Only validation messages
// are passed through.
func itemErrors(failed []*services.FileError, generic string) []models.ItemError {
	if len(failed) == 0 {
		return nil
	}
	out := make([]models.ItemError, 0, len(failed))
	for _, f := range failed {
		msg := generic
		var verr *services.ValidationError
		if errors.As(f, &verr) {
			msg = verr.Message
		} else if errors.Is(f, services.ErrUnknownFile) {
			msg = services.ErrUnknownFile.Error()
		}
		out = append(out, models.ItemError{FileName: f.FileName, Error: msg})
	}
	return out
}
