package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"sitesense-backend/internal/detection"
	"sitesense-backend/internal/models"
)

// ListCategories godoc
// @Summary     Detection categories
// @Tags        categories
// @Produce     json
// @Success     200 {object} models.CategoriesResponse
// @Failure     401 {object} models.ErrorResponse
// @Router      /api/categories [get]
func ListCategories(c *gin.Context) {
	c.JSON(http.StatusOK, models.CategoriesResponse{
		Categories: detection.Catalogue(),
		Exclusive:  detection.TrafficCars,
	})
}

// ToggleCategory godoc
// @Summary     Toggle a category in a selection
// @Description Selecting "Traffic Cars" clears every other category; selecting any other category clears "Traffic Cars".
// @Tags        categories
// @Accept      json
// @Produce     json
// @Param       request body models.ToggleCategoryRequest true "Current selection and category"
// @Success     200 {object} models.ToggleCategoryResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Router      /api/categories/toggle [post]
func ToggleCategory(c *gin.Context) {
	var req models.ToggleCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	if !detection.IsKnown(req.Category) {
		badRequest(c, "unknown category "+req.Category)
		return
	}

	c.JSON(http.StatusOK, models.ToggleCategoryResponse{
		Selected: detection.Toggle(req.Selected, req.Category),
	})
}
