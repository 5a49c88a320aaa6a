package handlers

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/glavarch/gpzu/internal/models"
)

// CatalogHandler serves the static reference catalogs.
type CatalogHandler struct{}

// NewCatalogHandler creates a new CatalogHandler instance.
func NewCatalogHandler() *CatalogHandler {
	return &CatalogHandler{}
}

// RefusalReasons handles GET /api/v1/catalogs/refusal-reasons endpoint.
func (h *CatalogHandler) RefusalReasons(c *gin.Context) {
	items := make([]models.ReasonInfo, 0, len(models.RefusalReasons))
	for _, info := range models.RefusalReasons {
		items = append(items, info)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Code < items[j].Code })

	c.JSON(http.StatusOK, gin.H{"items": items})
}

// RSOTypes handles GET /api/v1/catalogs/rso endpoint.
func (h *CatalogHandler) RSOTypes(c *gin.Context) {
	items := make([]models.RSOInfo, 0, len(models.RSOTypes))
	for _, info := range models.RSOTypes {
		items = append(items, info)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Code < items[j].Code })

	c.JSON(http.StatusOK, gin.H{"items": items})
}
