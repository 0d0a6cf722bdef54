package handler

import (
	"outreach_backend/internal/traits/service"
	"outreach_backend/internal/traits/transport"
	"outreach_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("/refresh", h.Refresh)
}

// List returns all trait criteria for the configuration view.
func (h *Handler) List(c *gin.Context) {
	criteria, err := h.svc.List(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.TraitListResponse{
		Items: make([]transport.TraitCriterionResponse, 0, len(criteria)),
	}
	for _, criterion := range criteria {
		if criterion.Enabled {
			resp.EnabledCount++
		}
		resp.Items = append(resp.Items, transport.TraitCriterionResponse{
			ID:        criterion.ID.String(),
			Text:      criterion.Text,
			Enabled:   criterion.Enabled,
			Position:  criterion.Position,
			UpdatedAt: criterion.UpdatedAt,
		})
	}

	httpkit.OK(c, resp)
}

// Refresh is the signal the dashboard emits after the operator edits
// criteria; it reloads the local enabled-criteria cache.
func (h *Handler) Refresh(c *gin.Context) {
	if err := h.svc.Refresh(c.Request.Context()); httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.RefreshResponse{EnabledCount: len(h.svc.Enabled())})
}
