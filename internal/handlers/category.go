package handlers

import (
	"inkwell/internal/db"
	"inkwell/internal/models"
	"net/http"

	"github.com/gin-gonic/gin"
)

type CategoryHandler struct{}

func NewCategoryHandler() *CategoryHandler {
	return &CategoryHandler{}
}

// List 所有分类 (GET /api/categories)
func (h *CategoryHandler) List(c *gin.Context) {
	var categories []models.Category
	db.DB.Order("id ASC").Find(&categories)

	respondOK(c, http.StatusOK, gin.H{"categories": categories})
}
