package transport

import "time"

type AnalysisResponse struct {
	ContactID              string    `json:"contactId"`
	MatchPoints            int       `json:"matchPoints"`
	MetTraits              []string  `json:"metTraits"`
	MetTraitIndices        []int     `json:"metTraitIndices"`
	Confidence             float64   `json:"confidence"`
	AnalyzedAt             time.Time `json:"analyzedAt"`
	MessageCountAtAnalysis int       `json:"messageCountAtAnalysis"`
}

type ScoreResponse struct {
	Status string            `json:"status"`
	Result *AnalysisResponse `json:"result,omitempty"`
}

type ReanalyzeRequest struct {
	// Background moves the run to the worker queue; the report is then
	// delivered over SSE instead of this response.
	Background bool `json:"background"`
}

type ReanalyzeAccepted struct {
	Status string `json:"status"`
}
