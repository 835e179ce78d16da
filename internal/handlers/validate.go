// internal/handlers/validate.go
package handlers

import (
	"encoding/json"

	"github.com/jason-s-yu/tresillo/internal/game"
	"github.com/jason-s-yu/tresillo/internal/models"
)

var (
	errInvalidJSON    = &game.RuleError{Code: game.CodeInvalidJSON, Why: "message is not valid JSON"}
	errInvalidMessage = &game.RuleError{Code: game.CodeInvalidMessage}
)

// inboundMessage is the raw client frame. Pointer fields tell a missing key from
// an empty one.
type inboundMessage struct {
	Type       models.ActionType `json:"type"`
	Mode       *string           `json:"mode"`
	Value      *string           `json:"value"`
	Suit       *string           `json:"suit"`
	DiscardIDs []string          `json:"discardIds"`
	CardID     *string           `json:"cardId"`
}

func invalid(why string) *game.RuleError {
	return &game.RuleError{Code: errInvalidMessage.Code, Why: why}
}

// decodeAction parses and validates one client frame. Errors are *game.RuleError
// carrying INVALID_JSON or INVALID_MESSAGE.
func decodeAction(data []byte) (models.Action, error) {
	if !json.Valid(data) {
		return models.Action{}, errInvalidJSON
	}
	var in inboundMessage
	if err := json.Unmarshal(data, &in); err != nil {
		return models.Action{}, invalid(err.Error())
	}

	action := models.Action{Type: in.Type}
	switch in.Type {
	case models.ActionJoin:
		if in.Mode == nil || !models.Mode(*in.Mode).Valid() {
			return models.Action{}, invalid("JOIN needs mode tresillo or quadrille")
		}
		action.Mode = models.Mode(*in.Mode)
	case models.ActionBid:
		if in.Value == nil || !models.Bid(*in.Value).Valid() {
			return models.Action{}, invalid("BID needs a known bid value")
		}
		action.Value = models.Bid(*in.Value)
	case models.ActionChooseTrump:
		if in.Suit == nil || !models.Suit(*in.Suit).Valid() {
			return models.Action{}, invalid("CHOOSE_TRUMP needs one of oros, copas, espadas, bastos")
		}
		action.Suit = models.Suit(*in.Suit)
	case models.ActionExchange:
		action.DiscardIDs = in.DiscardIDs
	case models.ActionPlay:
		if in.CardID == nil || *in.CardID == "" {
			return models.Action{}, invalid("PLAY needs a cardId")
		}
		action.CardID = *in.CardID
	case models.ActionPing:
	default:
		return models.Action{}, invalid("unknown message type")
	}
	return action, nil
}
