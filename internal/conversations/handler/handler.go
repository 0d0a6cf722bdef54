package handler

import (
	"outreach_backend/internal/conversations/service"
	"outreach_backend/internal/conversations/transport"
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
}

// List returns the ranked conversation list: match points descending,
// most recently active first among ties.
func (h *Handler) List(c *gin.Context) {
	ranked, err := h.svc.Ranked(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.ConversationListResponse{
		Items: make([]transport.RankedConversationResponse, 0, len(ranked)),
		Total: len(ranked),
	}
	for _, conv := range ranked {
		item := transport.RankedConversationResponse{
			ContactID:    conv.ContactID,
			MatchPoints:  conv.MatchPoints,
			MetTraits:    conv.MetTraits,
			Confidence:   conv.Confidence,
			UnreadCount:  conv.UnreadCount,
			MessageCount: len(conv.Messages),
		}
		if conv.LastMessage != nil {
			item.LastMessage = &transport.LastMessageResponse{
				ID:         conv.LastMessage.ID.String(),
				Direction:  conv.LastMessage.Direction,
				Text:       conv.LastMessage.Text,
				OccurredAt: conv.LastMessage.OccurredAt,
			}
		}
		resp.Items = append(resp.Items, item)
	}

	httpkit.OK(c, resp)
}
