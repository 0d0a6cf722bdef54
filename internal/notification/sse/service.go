// Package sse provides Server-Sent Events support for pushing live dashboard
// updates to connected operator sessions.
package sse

import (
	"encoding/json"
	"net/http"
	"sync"

	"outreach_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// EventType represents different types of SSE events
type EventType string

const (
	EventAnalysisComplete   EventType = "analysis_complete"
	EventConversationsStale EventType = "conversations_stale"
	EventReanalysisComplete EventType = "reanalysis_complete"
	EventLeadershipChanged  EventType = "leadership_changed"
	EventCriteriaRefreshed  EventType = "criteria_refreshed"
)

// Event represents an SSE event payload
type Event struct {
	Type      EventType   `json:"type"`
	ContactID string      `json:"contactId,omitempty"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

// client represents a connected SSE client
type client struct {
	userID uuid.UUID
	events chan Event
}

// Service manages SSE connections and event broadcasting
type Service struct {
	log *logger.Logger

	mu      sync.RWMutex
	clients map[uuid.UUID][]*client // userID -> connections
}

// New creates a new SSE service
func New(log *logger.Logger) *Service {
	return &Service{
		log:     log,
		clients: make(map[uuid.UUID][]*client),
	}
}

// addClient registers a new client connection
func (s *Service) addClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clients[c.userID] = append(s.clients[c.userID], c)
}

// removeClient unregisters a client connection
func (s *Service) removeClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clients := s.clients[c.userID]
	for i, cl := range clients {
		if cl == c {
			s.clients[c.userID] = append(clients[:i], clients[i+1:]...)
			break
		}
	}
	if len(s.clients[c.userID]) == 0 {
		delete(s.clients, c.userID)
	}

	close(c.events)
}

// Publish sends an event to a specific user. The send happens under the
// read lock: channels are only closed under the write lock, so a concurrent
// disconnect can never close a channel mid-send.
func (s *Service) Publish(userID uuid.UUID, event Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.clients[userID] {
		select {
		case c.events <- event:
		default:
			s.log.Warn("sse event buffer full", "user_id", userID.String())
		}
	}
}

// Broadcast sends an event to every connected session. The dashboard is a
// single-account tool, so all sessions see the same data.
func (s *Service) Broadcast(event Event) {
	s.mu.RLock()
	userIDs := make([]uuid.UUID, 0, len(s.clients))
	for userID := range s.clients {
		userIDs = append(userIDs, userID)
	}
	s.mu.RUnlock()

	for _, userID := range userIDs {
		s.Publish(userID, event)
	}
}

// Handler returns a Gin handler for SSE connections
func (s *Service) Handler(getUserID func(*gin.Context) (uuid.UUID, bool)) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := getUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		// Set SSE headers
		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")

		cl := &client{
			userID: userID,
			events: make(chan Event, 32),
		}
		s.addClient(cl)
		defer s.removeClient(cl)

		c.SSEvent("connected", gin.H{"userId": userID})
		c.Writer.Flush()

		s.log.Debug("sse client connected", "user_id", userID.String())

		clientGone := c.Request.Context().Done()
		for {
			select {
			case <-clientGone:
				s.log.Debug("sse client disconnected", "user_id", userID.String())
				return
			case event, ok := <-cl.events:
				if !ok {
					return
				}
				data, _ := json.Marshal(event)
				c.SSEvent(string(event.Type), string(data))
				c.Writer.Flush()
			}
		}
	}
}

// Close shuts down the SSE service
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, clients := range s.clients {
		for _, c := range clients {
			close(c.events)
		}
	}
	s.clients = make(map[uuid.UUID][]*client)
}
