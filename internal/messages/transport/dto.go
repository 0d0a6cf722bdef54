package transport

import "time"

type IngestMessageRequest struct {
	ContactID  string     `json:"contactId" validate:"required,min=1,max=128"`
	Direction  string     `json:"direction" validate:"required,oneof=inbound outbound"`
	Text       string     `json:"text" validate:"required"`
	OccurredAt *time.Time `json:"occurredAt" validate:"omitempty"`
}

type MessageResponse struct {
	ID         string    `json:"id"`
	ContactID  string    `json:"contactId"`
	Direction  string    `json:"direction"`
	Text       string    `json:"text"`
	OccurredAt time.Time `json:"occurredAt"`
}

type MessageListResponse struct {
	Items []MessageResponse `json:"items"`
	Total int               `json:"total"`
}
