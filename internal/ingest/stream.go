// Package ingest connects the account's inbound-message notification stream
// to the scoring pipeline. Inserted messages are broadcast as JSON events on
// a redis pub/sub channel shared by every open session of the account.
package ingest

import "time"

// Stream payload field values.
const (
	TableMessages = "messages"
	OpInsert      = "insert"

	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// MessageRow is the inserted message as carried on the stream.
type MessageRow struct {
	ID         string    `json:"id"`
	ContactID  string    `json:"contactId"`
	Direction  string    `json:"direction"`
	Text       string    `json:"text"`
	OccurredAt time.Time `json:"occurredAt"`
}

// StreamEvent is the wire shape of one notification.
type StreamEvent struct {
	Table string     `json:"table"`
	Op    string     `json:"op"`
	Row   MessageRow `json:"row"`
}

// ReportEvent is the wire shape of a finished batch reanalysis run. The
// worker broadcasts it so dashboard instances can push the report to their
// open sessions.
type ReportEvent struct {
	Attempted   int    `json:"attempted"`
	Scored      int    `json:"scored"`
	Skipped     int    `json:"skipped"`
	Failed      int    `json:"failed"`
	RequestedBy string `json:"requestedBy,omitempty"`
}

// StreamChannel returns the pub/sub channel for an account's message stream.
func StreamChannel(accountHandle string) string {
	return "outreach:" + accountHandle + ":messages"
}

// ReportChannel returns the pub/sub channel for an account's batch run
// reports.
func ReportChannel(accountHandle string) string {
	return "outreach:" + accountHandle + ":reports"
}
