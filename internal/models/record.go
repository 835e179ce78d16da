// internal/models/record.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// HandRecord is the persisted outcome of one finished hand.
type HandRecord struct {
	RoomID     string       `json:"room_id"`
	GameID     uuid.UUID    `json:"game_id"`
	HandID     uuid.UUID    `json:"hand_id"`
	HandNo     int          `json:"hand_no"`
	Mode       Mode         `json:"mode"`
	Contract   Contract     `json:"contract"`
	Ombre      Seat         `json:"ombre,omitempty"`
	Trump      Suit         `json:"trump,omitempty"`
	Result     string       `json:"result"`
	Points     int          `json:"points"`
	Award      []Seat       `json:"award"`
	Tricks     map[Seat]int `json:"tricks"`
	Scores     map[Seat]int `json:"scores"`
	FinishedAt time.Time    `json:"finished_at"`
}

// GameRecord is the persisted outcome of a game played to the target score.
type GameRecord struct {
	RoomID      string       `json:"room_id"`
	GameID      uuid.UUID    `json:"game_id"`
	Mode        Mode         `json:"mode"`
	Winner      Seat         `json:"winner"`
	FinalScores map[Seat]int `json:"final_scores"`
	Hands       int          `json:"hands"`
	FinishedAt  time.Time    `json:"finished_at"`
}

// ActionRecord is one accepted action, queued for the historian.
type ActionRecord struct {
	RoomID        string                 `json:"room_id"`
	HandID        uuid.UUID              `json:"hand_id"`
	ActionIndex   int                    `json:"action_index"`
	Seat          Seat                   `json:"seat,omitempty"`
	ActionType    string                 `json:"action_type"`
	ActionPayload map[string]interface{} `json:"action_payload"`
	Timestamp     int64                  `json:"timestamp"`
}
