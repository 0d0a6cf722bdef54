package service

import (
	"testing"
	"time"

	analysisrepo "outreach_backend/internal/analysis/repository"
	messagerepo "outreach_backend/internal/messages/repository"

	"github.com/google/uuid"
)

func msgAt(contactID, direction string, offset time.Duration) messagerepo.Message {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	return messagerepo.Message{
		ID:         uuid.New(),
		ContactID:  contactID,
		Direction:  direction,
		Text:       "hoi",
		OccurredAt: base.Add(offset),
	}
}

func convWithLast(contactID string, offset time.Duration) Conversation {
	msg := msgAt(contactID, messagerepo.DirectionInbound, offset)
	return Conversation{
		ContactID:   contactID,
		Messages:    []messagerepo.Message{msg},
		LastMessage: &msg,
	}
}

func TestRankOrdersByMatchPointsThenRecency(t *testing.T) {
	conversations := []Conversation{
		convWithLast("low-recent", 3*time.Hour),
		convWithLast("high-old", time.Hour),
		convWithLast("high-recent", 2*time.Hour),
	}
	analyses := []analysisrepo.AnalysisResult{
		{ContactID: "low-recent", MatchPoints: 1},
		{ContactID: "high-old", MatchPoints: 4},
		{ContactID: "high-recent", MatchPoints: 4},
	}

	ranked := Rank(conversations, analyses)

	want := []string{"high-recent", "high-old", "low-recent"}
	for i, contactID := range want {
		if ranked[i].ContactID != contactID {
			t.Fatalf("position %d: expected %s, got %s", i, contactID, ranked[i].ContactID)
		}
	}
}

func TestRankMissingAnalysisScoresZero(t *testing.T) {
	conversations := []Conversation{
		convWithLast("analyzed", time.Hour),
		convWithLast("unanalyzed", 2*time.Hour),
	}
	analyses := []analysisrepo.AnalysisResult{
		{ContactID: "analyzed", MatchPoints: 2, MetTraits: []string{"asks about pricing"}},
	}

	ranked := Rank(conversations, analyses)

	if ranked[0].ContactID != "analyzed" {
		t.Fatalf("analyzed contact should rank first, got %s", ranked[0].ContactID)
	}
	if ranked[1].MatchPoints != 0 {
		t.Fatalf("unanalyzed contact must score zero, got %d", ranked[1].MatchPoints)
	}
	if ranked[1].MetTraits == nil || len(ranked[1].MetTraits) != 0 {
		t.Fatalf("unanalyzed contact must have an empty trait list, got %v", ranked[1].MetTraits)
	}
}

func TestRankIsStableForEqualKeys(t *testing.T) {
	// Same points, same last-activity instant: input order must hold.
	a := convWithLast("first", time.Hour)
	b := convWithLast("second", time.Hour)

	ranked := Rank([]Conversation{a, b}, nil)

	if ranked[0].ContactID != "first" || ranked[1].ContactID != "second" {
		t.Fatalf("equal keys must keep input order, got %s then %s", ranked[0].ContactID, ranked[1].ContactID)
	}
}

func TestBuildConversationsUnreadCount(t *testing.T) {
	msgs := []messagerepo.Message{
		msgAt("p1", messagerepo.DirectionInbound, 0),
		msgAt("p1", messagerepo.DirectionInbound, time.Minute),
		msgAt("p1", messagerepo.DirectionOutbound, 2*time.Minute),
		msgAt("p1", messagerepo.DirectionInbound, 3*time.Minute),
	}

	conversations := buildConversations(msgs)

	if len(conversations) != 1 {
		t.Fatalf("expected 1 conversation, got %d", len(conversations))
	}
	conv := conversations[0]
	if conv.UnreadCount != 1 {
		t.Fatalf("unread count must reset on outbound, got %d", conv.UnreadCount)
	}
	if conv.LastMessage == nil || conv.LastMessage.Direction != messagerepo.DirectionInbound {
		t.Fatal("last message must be the latest inbound message")
	}
	if len(conv.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(conv.Messages))
	}
}

func TestBuildConversationsGroupsByContact(t *testing.T) {
	msgs := []messagerepo.Message{
		msgAt("p1", messagerepo.DirectionInbound, 0),
		msgAt("p2", messagerepo.DirectionInbound, time.Minute),
		msgAt("p1", messagerepo.DirectionInbound, 2*time.Minute),
	}

	conversations := buildConversations(msgs)

	if len(conversations) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(conversations))
	}
	if conversations[0].ContactID != "p1" || conversations[1].ContactID != "p2" {
		t.Fatalf("conversations must keep first-seen order, got %s then %s",
			conversations[0].ContactID, conversations[1].ContactID)
	}
	if len(conversations[0].Messages) != 2 {
		t.Fatalf("expected 2 messages for p1, got %d", len(conversations[0].Messages))
	}
}
