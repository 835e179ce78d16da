// internal/game/conn.go
package game

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jason-s-yu/tresillo/internal/models"
)

// Sink receives the messages addressed to one connection. Implementations must not
// block: the room calls Send from its executor.
type Sink interface {
	Send(msg Message) error
	Close(reason string) error
}

// ConnKind tags a connection as a real client or a synthetic player.
type ConnKind int

const (
	Live ConnKind = iota
	Synthetic
)

func (k ConnKind) String() string {
	if k == Synthetic {
		return "synthetic"
	}
	return "live"
}

// Connection is one participant attached to a room. Seat is empty for spectators.
// Fields are owned by the room executor once attached.
type Connection struct {
	ID     string
	Handle string
	Seat   models.Seat
	Kind   ConnKind
	Sink   Sink
}

// Synthetic reports whether c is a bot.
func (c *Connection) Synthetic() bool {
	return c.Kind == Synthetic
}

// discardSink swallows everything sent to a synthetic player.
type discardSink struct{}

func (discardSink) Send(Message) error { return nil }
func (discardSink) Close(string) error { return nil }

func newBotConnection() *Connection {
	id := uuid.NewString()
	return &Connection{
		ID:     "bot-" + id[:8],
		Handle: fmt.Sprintf("Bot %s", id[:4]),
		Kind:   Synthetic,
		Sink:   discardSink{},
	}
}
