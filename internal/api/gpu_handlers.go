package api

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/payperplay/hosting/internal/middleware"
)

type gpuTypeView struct {
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	PriceCentsPerHour int64    `json:"priceCentsPerHour"`
	Regions           []string `json:"regions"`
}

// ListGPUTypes handles GET /api/gpu-types.
func (h *Handler) ListGPUTypes(c *gin.Context) {
	types, err := h.Provider.ListInstanceTypes(c.Request.Context())
	if err != nil {
		middleware.RespondError(c, err)
		return
	}

	regionSet := make(map[string]bool)
	views := make([]gpuTypeView, 0, len(types))
	for _, t := range types {
		views = append(views, gpuTypeView{
			Name:              t.Name,
			Description:       t.Description,
			PriceCentsPerHour: t.PriceCentsPerHour,
			Regions:           t.AvailableRegions,
		})
		for _, r := range t.AvailableRegions {
			regionSet[r] = true
		}
	}

	allRegions := make([]string, 0, len(regionSet))
	for r := range regionSet {
		allRegions = append(allRegions, r)
	}
	sort.Strings(allRegions)

	c.JSON(http.StatusOK, gin.H{"types": views, "allRegions": allRegions})
}
