package service

import (
	"sort"
	"time"

	analysisrepo "outreach_backend/internal/analysis/repository"
	messagerepo "outreach_backend/internal/messages/repository"
)

// Conversation is the derived aggregate for one contact. It is recomputed
// from the message set on every load and never persisted.
type Conversation struct {
	ContactID   string                `json:"contactId"`
	Messages    []messagerepo.Message `json:"-"`
	LastMessage *messagerepo.Message  `json:"lastMessage,omitempty"`
	UnreadCount int                   `json:"unreadCount"`
}

// RankedConversation joins a conversation with the contact's most recent
// analysis. Contacts without one rank with zero match points.
type RankedConversation struct {
	Conversation
	MatchPoints int      `json:"matchPoints"`
	MetTraits   []string `json:"metTraits"`
	Confidence  float64  `json:"confidence"`
}

// Rank merges conversations with cached analyses and sorts them:
// match points descending, ties broken by most recent last message.
// The sort is stable so equal keys keep their input order across re-renders.
func Rank(conversations []Conversation, analyses []analysisrepo.AnalysisResult) []RankedConversation {
	byContact := make(map[string]analysisrepo.AnalysisResult, len(analyses))
	for _, analysis := range analyses {
		byContact[analysis.ContactID] = analysis
	}

	ranked := make([]RankedConversation, 0, len(conversations))
	for _, conv := range conversations {
		item := RankedConversation{
			Conversation: conv,
			MetTraits:    []string{},
		}
		if analysis, ok := byContact[conv.ContactID]; ok {
			item.MatchPoints = analysis.MatchPoints
			item.Confidence = analysis.Confidence
			if analysis.MetTraits != nil {
				item.MetTraits = analysis.MetTraits
			}
		}
		ranked = append(ranked, item)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].MatchPoints != ranked[j].MatchPoints {
			return ranked[i].MatchPoints > ranked[j].MatchPoints
		}
		return lastActivity(ranked[i]).After(lastActivity(ranked[j]))
	})

	return ranked
}

func lastActivity(conv RankedConversation) time.Time {
	if conv.LastMessage != nil {
		return conv.LastMessage.OccurredAt
	}
	return time.Time{}
}
