// internal/lobby/matchmaker.go
package lobby

import (
	"context"
	"errors"
	"time"

	"github.com/jason-s-yu/tresillo/internal/cache"
	"github.com/jason-s-yu/tresillo/internal/game"
	"github.com/jason-s-yu/tresillo/internal/models"
	"github.com/sirupsen/logrus"
)

// MatchTTL is how long a match assignment stays readable.
const MatchTTL = 10 * time.Minute

var ErrBadMode = errors.New("mode must be tresillo or quadrille")

// RoomCreator makes the room a matched group is sent to.
type RoomCreator interface {
	Create(mode models.Mode, rules game.HouseRules) *game.Room
}

// QueueResult is the answer to a queue request.
type QueueResult struct {
	Queued  bool     `json:"queued"`
	Ready   bool     `json:"ready,omitempty"`
	Size    int64    `json:"size,omitempty"`
	Clients []string `json:"clients,omitempty"`
	RoomID  string   `json:"roomId,omitempty"`
	Note    string   `json:"note,omitempty"`
}

// Matchmaker groups queued clients per mode and opens a room for each full group.
type Matchmaker struct {
	queue *cache.Queue
	rooms RoomCreator
	log   *logrus.Logger
}

// NewMatchmaker returns a matchmaker. A nil queue disables matchmaking.
func NewMatchmaker(queue *cache.Queue, rooms RoomCreator, logger *logrus.Logger) *Matchmaker {
	return &Matchmaker{queue: queue, rooms: rooms, log: logger}
}

// Enabled reports whether a queue backs the matchmaker.
func (m *Matchmaker) Enabled() bool {
	return m.queue != nil
}

// JoinQueue adds clientID to the queue for mode. When the queue holds enough
// clients for the mode, they are popped, a room is created and every member's
// assignment is stored for MatchTTL.
func (m *Matchmaker) JoinQueue(ctx context.Context, clientID string, mode models.Mode) (QueueResult, error) {
	if !mode.Valid() {
		return QueueResult{}, ErrBadMode
	}
	if m.queue == nil {
		return QueueResult{Queued: false, Note: "redis not configured"}, nil
	}

	group, err := m.queue.Join(ctx, string(mode), clientID, mode.Players())
	if err != nil {
		m.log.Errorf("[lobby] queue operation failed: %v", err)
		return QueueResult{Queued: false, Note: "queue operation failed"}, nil
	}
	if group == nil {
		size, err := m.queue.Len(ctx, string(mode))
		if err != nil {
			m.log.Warnf("[lobby] %v", err)
		}
		return QueueResult{Queued: true, Size: size}, nil
	}

	room := m.rooms.Create(mode, game.HouseRules{})
	for _, id := range group {
		if err := m.queue.SetMatch(ctx, id, room.ID, MatchTTL); err != nil {
			m.log.Warnf("[lobby] %v", err)
		}
	}
	m.log.Infof("[lobby] matched %d clients for %s into room %s", len(group), mode, room.ID)
	return QueueResult{Queued: true, Ready: true, Clients: group, RoomID: room.ID}, nil
}

// LeaveQueue removes clientID from the queue for mode. Without a queue it is a no-op.
func (m *Matchmaker) LeaveQueue(ctx context.Context, clientID string, mode models.Mode) error {
	if !mode.Valid() {
		return ErrBadMode
	}
	if m.queue == nil {
		return nil
	}
	return m.queue.Leave(ctx, string(mode), clientID)
}

// Match returns the room assigned to clientID by a completed match.
func (m *Matchmaker) Match(ctx context.Context, clientID string) (string, bool, error) {
	if m.queue == nil {
		return "", false, nil
	}
	return m.queue.Match(ctx, clientID)
}
