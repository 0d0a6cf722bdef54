// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"outreach_backend/platform/events"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Analysis Domain Events
// =============================================================================

// AnalysisCompleted is published after a prospect's trait analysis is
// successfully persisted.
type AnalysisCompleted struct {
	BaseEvent
	ContactID   string  `json:"contactId"`
	MatchPoints int     `json:"matchPoints"`
	Confidence  float64 `json:"confidence"`
}

func (e AnalysisCompleted) EventName() string { return "analysis.completed" }

// ReanalysisCompleted is published when a batch reanalysis run finishes,
// whether triggered synchronously or through the background worker.
type ReanalysisCompleted struct {
	BaseEvent
	Attempted int `json:"attempted"`
	Scored    int `json:"scored"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

func (e ReanalysisCompleted) EventName() string { return "analysis.reanalysis.completed" }

// =============================================================================
// Conversation Domain Events
// =============================================================================

// ConversationsStale is published when the ranked conversation view needs a
// recompute (new message arrived, analysis changed). The next read reloads.
type ConversationsStale struct {
	BaseEvent
	Reason string `json:"reason"`
}

func (e ConversationsStale) EventName() string { return "conversations.stale" }

// =============================================================================
// Leadership Events
// =============================================================================

// LeadershipChanged is published when this instance's election state moves,
// so open sessions can surface who is actively processing.
type LeadershipChanged struct {
	BaseEvent
	State string `json:"state"`
}

func (e LeadershipChanged) EventName() string { return "leadership.changed" }

// =============================================================================
// Trait Configuration Events
// =============================================================================

// TraitCriteriaRefreshed is published after the operator edits trait
// criteria and the local enabled-criteria cache has been reloaded.
type TraitCriteriaRefreshed struct {
	BaseEvent
	EnabledCount int `json:"enabledCount"`
}

func (e TraitCriteriaRefreshed) EventName() string { return "traits.criteria.refreshed" }
