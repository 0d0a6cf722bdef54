package handler

import (
	"net/http"
	"time"

	"outreach_backend/internal/messages/repository"
	"outreach_backend/internal/messages/service"
	"outreach_backend/internal/messages/transport"
	"outreach_backend/platform/httpkit"
	"outreach_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Ingest)
	rg.GET("/:contactId", h.ListByContact)
}

// Ingest stores a message delivered by the external ingestion path and
// broadcasts the insert notification to every open session.
func (h *Handler) Ingest(c *gin.Context) {
	var req transport.IngestMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	occurredAt := time.Now()
	if req.OccurredAt != nil {
		occurredAt = *req.OccurredAt
	}

	msg, err := h.svc.Ingest(c.Request.Context(), repository.InsertMessageParams{
		ContactID:  req.ContactID,
		Direction:  req.Direction,
		Text:       req.Text,
		OccurredAt: occurredAt,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, toMessageResponse(msg))
}

// ListByContact returns a contact's message history.
func (h *Handler) ListByContact(c *gin.Context) {
	contactID := c.Param("contactId")

	msgs, err := h.svc.ListByContact(c.Request.Context(), contactID)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.MessageListResponse{
		Items: make([]transport.MessageResponse, 0, len(msgs)),
		Total: len(msgs),
	}
	for _, msg := range msgs {
		resp.Items = append(resp.Items, toMessageResponse(msg))
	}

	httpkit.OK(c, resp)
}

func toMessageResponse(msg repository.Message) transport.MessageResponse {
	return transport.MessageResponse{
		ID:         msg.ID.String(),
		ContactID:  msg.ContactID,
		Direction:  msg.Direction,
		Text:       msg.Text,
		OccurredAt: msg.OccurredAt,
	}
}
