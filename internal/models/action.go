// internal/models/action.go
package models

// ActionType discriminates inbound client messages.
type ActionType string

const (
	ActionJoin        ActionType = "JOIN"
	ActionBid         ActionType = "BID"
	ActionChooseTrump ActionType = "CHOOSE_TRUMP"
	ActionExchange    ActionType = "EXCHANGE"
	ActionPlay        ActionType = "PLAY"
	ActionPing        ActionType = "PING"
)

// Action is a validated inbound message. Only the fields relevant to Type are set.
type Action struct {
	Type       ActionType `json:"type"`
	Mode       Mode       `json:"mode,omitempty"`
	Value      Bid        `json:"value,omitempty"`
	Suit       Suit       `json:"suit,omitempty"`
	DiscardIDs []string   `json:"discardIds,omitempty"`
	CardID     string     `json:"cardId,omitempty"`
}
