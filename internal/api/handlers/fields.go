package handlers

import (
	"net/http"

	"competitive-intel/internal/api/models"
	"competitive-intel/internal/dataset"
	"competitive-intel/internal/form"

	"github.com/gin-gonic/gin"
)

// FieldHandler describes the company form
type FieldHandler struct {
	defaults form.Fields
}

// NewFieldHandler creates a new field handler
func NewFieldHandler(defaults form.Fields) *FieldHandler {
	return &FieldHandler{defaults: defaults}
}

// ListFields handles GET /api/v1/fields
func (h *FieldHandler) ListFields(c *gin.Context) {
	fields := []models.FieldInfo{
		{
			Name:        form.FieldRevenue,
			Type:        "float",
			Description: "Annual revenue in millions, greater than 0",
			Default:     h.defaults.Revenue,
		},
		{
			Name:        form.FieldNPS,
			Type:        "int",
			Description: "Net Promoter Score, -100 to 100",
			Default:     h.defaults.NPS,
		},
		{
			Name:        form.FieldRDSpend,
			Type:        "float",
			Description: "R&D spend in millions, 0 or more",
			Default:     h.defaults.RDSpend,
		},
		{
			Name:        form.FieldRegions,
			Type:        "int",
			Description: "Number of regions served, at least 1",
			Default:     h.defaults.Regions,
		},
		{
			Name:        form.FieldRetentionRate,
			Type:        "float",
			Description: "Customer retention rate in percent, 0 to 100",
			Default:     h.defaults.RetentionRate,
		},
		{
			Name:        form.FieldDataset,
			Type:        "file",
			Description: "Competitor dataset, uploaded as multipart field \"dataset\"",
		},
	}
	c.JSON(http.StatusOK, gin.H{"fields": fields})
}

// ListDatasetKinds handles GET /api/v1/dataset-kinds
func ListDatasetKinds(c *gin.Context) {
	kinds := []models.DatasetKindInfo{
		{Kind: string(dataset.KindCSV), Extensions: []string{".csv"}, Encoding: "text"},
		{Kind: string(dataset.KindSpreadsheet), Extensions: []string{".xlsx", ".xls"}, Encoding: "base64"},
	}
	c.JSON(http.StatusOK, gin.H{"dataset_kinds": kinds})
}
