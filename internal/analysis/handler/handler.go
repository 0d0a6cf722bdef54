package handler

import (
	"context"
	"net/http"

	"outreach_backend/internal/analysis/repository"
	"outreach_backend/internal/analysis/service"
	"outreach_backend/internal/analysis/transport"
	"outreach_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

const msgInvalidRequest = "invalid request"

// BackgroundEnqueuer hands a batch run to the worker queue.
type BackgroundEnqueuer interface {
	EnqueueReanalyzeAll(ctx context.Context, requestedBy string) error
}

type Handler struct {
	svc  *service.Service
	jobs BackgroundEnqueuer
}

func New(svc *service.Service, jobs BackgroundEnqueuer) *Handler {
	return &Handler{svc: svc, jobs: jobs}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/:contactId", h.Get)
	rg.POST("/:contactId/score", h.Score)
	rg.POST("/reanalyze", h.Reanalyze)
}

// Get returns the stored analysis for one contact.
func (h *Handler) Get(c *gin.Context) {
	result, err := h.svc.Get(c.Request.Context(), c.Param("contactId"))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, toAnalysisResponse(result))
}

// Score re-scores a single contact on operator request.
func (h *Handler) Score(c *gin.Context) {
	outcome, err := h.svc.ScoreContact(c.Request.Context(), c.Param("contactId"))
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.ScoreResponse{Status: string(outcome.Status)}
	if outcome.Result != nil {
		analysisResp := toAnalysisResponse(*outcome.Result)
		resp.Result = &analysisResp
	}

	httpkit.OK(c, resp)
}

// Reanalyze runs the operator-triggered batch over every open conversation.
// The default is synchronous: the report covers every conversation before
// this returns. With background=true the run is queued on the worker and
// the report arrives over SSE.
func (h *Handler) Reanalyze(c *gin.Context) {
	var req transport.ReanalyzeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
			return
		}
	}

	if req.Background && h.jobs != nil {
		identity := httpkit.MustGetIdentity(c)
		if identity == nil {
			return
		}
		if err := h.jobs.EnqueueReanalyzeAll(c.Request.Context(), identity.UserID().String()); httpkit.HandleError(c, err) {
			return
		}
		httpkit.JSON(c, http.StatusAccepted, transport.ReanalyzeAccepted{Status: "queued"})
		return
	}

	report, err := h.svc.ReanalyzeAll(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, report)
}

func toAnalysisResponse(result repository.AnalysisResult) transport.AnalysisResponse {
	return transport.AnalysisResponse{
		ContactID:              result.ContactID,
		MatchPoints:            result.MatchPoints,
		MetTraits:              result.MetTraits,
		MetTraitIndices:        result.MetTraitIndices,
		Confidence:             result.Confidence,
		AnalyzedAt:             result.AnalyzedAt,
		MessageCountAtAnalysis: result.MessageCountAtAnalysis,
	}
}
