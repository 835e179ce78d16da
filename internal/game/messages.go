// internal/game/messages.go
package game

import (
	"encoding/json"

	"github.com/jason-s-yu/tresillo/internal/models"
)

// Outbound message types.
const (
	MsgWelcome = "WELCOME"
	MsgState   = "STATE"
	MsgEvent   = "EVENT"
	MsgError   = "ERROR"
	MsgPong    = "PONG"
)

// Event names carried by EVENT messages.
const (
	EventSeated            = "SEATED"
	EventAuctionWin        = "AUCTION_WIN"
	EventTrumpSet          = "TRUMP_SET"
	EventTrickTaken        = "TRICK_TAKEN"
	EventHandResult        = "HAND_RESULT"
	EventPenetroStart      = "PENETRO_START"
	EventPenetroResult     = "PENETRO_RESULT"
	EventGameEnd           = "GAME_END"
	EventPlayerLeft        = "PLAYER_LEFT"
	EventEspadaObligatoria = "ESPADA_OBLIGATORIA"
	EventAuctionPassOut    = "AUCTION_PASS_OUT"
	EventRoomClosing       = "ROOM_CLOSING"
)

// Message is the single outbound envelope; only the fields relevant to Type are set.
type Message struct {
	Type string `json:"type"`

	// WELCOME
	ClientID    string `json:"clientId,omitempty"`
	RoomID      string `json:"roomId,omitempty"`
	Resumed     bool   `json:"resumed,omitempty"`
	ResumeToken string `json:"resumeToken,omitempty"`

	// STATE. SelfHand is nil for unseated connections and empty, but sent, for a
	// seat holding no cards.
	Patch    *RoomState    `json:"patch,omitempty"`
	SelfHand []models.Card `json:"selfHand,omitempty"`

	// EVENT
	Name    string                 `json:"name,omitempty"`
	Payload map[string]interface{} `json:"payload,omitempty"`

	// ERROR
	Code string `json:"code,omitempty"`
	Why  string `json:"why,omitempty"`
}

// MarshalJSON omits selfHand only when it is nil.
func (m Message) MarshalJSON() ([]byte, error) {
	type wire Message
	out := struct {
		wire
		SelfHand *[]models.Card `json:"selfHand,omitempty"`
	}{wire: wire(m)}
	if m.SelfHand != nil {
		out.SelfHand = &m.SelfHand
	}
	return json.Marshal(out)
}

func welcomeMessage(clientID, roomID string, resumed bool, token string) Message {
	return Message{Type: MsgWelcome, ClientID: clientID, RoomID: roomID, Resumed: resumed, ResumeToken: token}
}

func stateMessage(patch *RoomState, hand []models.Card) Message {
	return Message{Type: MsgState, Patch: patch, SelfHand: hand}
}

func eventMessage(name string, payload map[string]interface{}) Message {
	return Message{Type: MsgEvent, Name: name, Payload: payload}
}

// ErrorMessage builds an ERROR message. The transport uses it for protocol errors.
func ErrorMessage(code, why string) Message {
	return Message{Type: MsgError, Code: code, Why: why}
}

// PongMessage answers a PING.
func PongMessage() Message {
	return Message{Type: MsgPong}
}
