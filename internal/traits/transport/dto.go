package transport

import "time"

type TraitCriterionResponse struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Enabled   bool      `json:"enabled"`
	Position  int       `json:"position"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type TraitListResponse struct {
	Items        []TraitCriterionResponse `json:"items"`
	EnabledCount int                      `json:"enabledCount"`
}

type RefreshResponse struct {
	EnabledCount int `json:"enabledCount"`
}
