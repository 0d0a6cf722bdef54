package transport

import "time"

type LastMessageResponse struct {
	ID         string    `json:"id"`
	Direction  string    `json:"direction"`
	Text       string    `json:"text"`
	OccurredAt time.Time `json:"occurredAt"`
}

type RankedConversationResponse struct {
	ContactID    string               `json:"contactId"`
	MatchPoints  int                  `json:"matchPoints"`
	MetTraits    []string             `json:"metTraits"`
	Confidence   float64              `json:"confidence"`
	UnreadCount  int                  `json:"unreadCount"`
	MessageCount int                  `json:"messageCount"`
	LastMessage  *LastMessageResponse `json:"lastMessage,omitempty"`
}

type ConversationListResponse struct {
	Items []RankedConversationResponse `json:"items"`
	Total int                          `json:"total"`
}
