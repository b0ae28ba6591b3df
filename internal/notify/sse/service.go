// Package sse provides Server-Sent Events push for the dashboard.
package sse

import (
	"encoding/json"
	"net/http"
	"sync"

	"leadsignal_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// EventType names the browser-visible event kinds.
type EventType string

const (
	EventLeadCreated      EventType = "lead_created"
	EventLeadAssigned     EventType = "lead_assigned"
	EventSignalDispatched EventType = "signal_dispatched"
)

// Event is one SSE payload.
type Event struct {
	Type    EventType   `json:"type"`
	LeadID  uuid.UUID   `json:"leadId,omitempty"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type client struct {
	userID uuid.UUID
	orgID  uuid.UUID
	events chan Event
}

// Service manages SSE connections and event broadcasting.
type Service struct {
	mu      sync.RWMutex
	clients map[uuid.UUID][]*client
	orgMap  map[uuid.UUID][]uuid.UUID
	log     *logger.Logger
}

func New(log *logger.Logger) *Service {
	return &Service{
		clients: make(map[uuid.UUID][]*client),
		orgMap:  make(map[uuid.UUID][]uuid.UUID),
		log:     log,
	}
}

func (s *Service) addClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clients[c.userID] = append(s.clients[c.userID], c)
	if c.orgID != uuid.Nil {
		s.orgMap[c.orgID] = append(s.orgMap[c.orgID], c.userID)
	}
}

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
	if c.orgID != uuid.Nil {
		users := s.orgMap[c.orgID]
		for i, id := range users {
			if id == c.userID {
				s.orgMap[c.orgID] = append(users[:i], users[i+1:]...)
				break
			}
		}
	}

	close(c.events)
}

// Publish sends an event to one user's open connections. A full buffer
// drops the event rather than blocking the publisher.
func (s *Service) Publish(userID uuid.UUID, event Event) {
	s.mu.RLock()
	clients := s.clients[userID]
	s.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.events <- event:
		default:
			s.log.Warn("sse buffer full, dropping event", "userId", userID, "type", event.Type)
		}
	}
}

// PublishToOrganization broadcasts an event to every connected member of
// the organization.
func (s *Service) PublishToOrganization(orgID uuid.UUID, event Event) {
	s.mu.RLock()
	userIDs := make([]uuid.UUID, len(s.orgMap[orgID]))
	copy(userIDs, s.orgMap[orgID])
	s.mu.RUnlock()

	seen := make(map[uuid.UUID]bool)
	for _, userID := range userIDs {
		if seen[userID] {
			continue
		}
		seen[userID] = true
		s.Publish(userID, event)
	}
}

// Handler returns the gin handler for SSE connections.
func (s *Service) Handler(getUserID func(*gin.Context) (uuid.UUID, bool), getOrgID func(*gin.Context) (uuid.UUID, bool)) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := getUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		orgID, _ := getOrgID(c)

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")

		cl := &client{
			userID: userID,
			orgID:  orgID,
			events: make(chan Event, 32),
		}
		s.addClient(cl)
		defer s.removeClient(cl)

		c.SSEvent("connected", gin.H{"userId": userID, "orgId": orgID})
		c.Writer.Flush()

		clientGone := c.Request.Context().Done()
		for {
			select {
			case <-clientGone:
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

// Close terminates all open connections.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, clients := range s.clients {
		for _, c := range clients {
			close(c.events)
		}
	}
	s.clients = make(map[uuid.UUID][]*client)
	s.orgMap = make(map[uuid.UUID][]uuid.UUID)
}
