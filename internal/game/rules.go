// internal/game/rules.go
package game

import (
	"fmt"
	"time"
)

// HouseRules holds the per-room rule switches and pacing.
type HouseRules struct {
	EspadaObligatoria bool `json:"espadaObligatoria"` // on a pass-out, the holder of spadille must play entrada
	PenetroEnabled    bool `json:"penetroEnabled"`    // on a pass-out in quadrille, play penetro with all four seats
	GameTarget        int  `json:"gameTarget"`        // score that ends the game
	TurnTimerSec      int  `json:"turnTimerSec"`      // seconds a human has to act before a bot acts for them; 0 disables
	BotDelayMinMs     int  `json:"botDelayMinMs"`     // lower bound of the synthetic player's thinking time
	BotDelayMaxMs     int  `json:"botDelayMaxMs"`     // upper bound of the synthetic player's thinking time
	GameEndPauseMs    int  `json:"gameEndPauseMs"`    // pause between a game's end and the next deal
}

// DefaultHouseRules returns the rules used when a room is created without overrides.
func DefaultHouseRules() HouseRules {
	return HouseRules{
		EspadaObligatoria: true,
		PenetroEnabled:    true,
		GameTarget:        12,
		TurnTimerSec:      25,
		BotDelayMinMs:     600,
		BotDelayMaxMs:     1200,
		GameEndPauseMs:    3000,
	}
}

// TurnTimeout is the human turn limit.
func (rules HouseRules) TurnTimeout() time.Duration {
	return time.Duration(rules.TurnTimerSec) * time.Second
}

// GameEndPause is the delay before a new game is dealt.
func (rules HouseRules) GameEndPause() time.Duration {
	return time.Duration(rules.GameEndPauseMs) * time.Millisecond
}

// Update will update the house rules with the new rules provided.
// If a rule is not set or defined, it will be ignored, and the old value will persist.
func (rules *HouseRules) Update(newRules map[string]interface{}) error {
	assignBool := func(field *bool, key string) error {
		if val, exists := newRules[key]; exists && val != nil {
			b, ok := val.(bool)
			if !ok {
				return fmt.Errorf("invalid type for %s", key)
			}
			*field = b
		}
		return nil
	}

	assignInt := func(field *int, key string, minVal int) error {
		val, exists := newRules[key]
		if !exists || val == nil {
			return nil
		}
		var n int
		switch v := val.(type) {
		case float64: // JSON numbers
			n = int(v)
		case int:
			n = v
		default:
			return fmt.Errorf("invalid type for %s", key)
		}
		if n < minVal {
			return fmt.Errorf("%s must be at least %d", key, minVal)
		}
		*field = n
		return nil
	}

	if err := assignBool(&rules.EspadaObligatoria, "espadaObligatoria"); err != nil {
		return err
	}
	if err := assignBool(&rules.PenetroEnabled, "penetroEnabled"); err != nil {
		return err
	}
	if err := assignInt(&rules.GameTarget, "gameTarget", 1); err != nil {
		return err
	}
	if err := assignInt(&rules.TurnTimerSec, "turnTimerSec", 0); err != nil {
		return err
	}
	if err := assignInt(&rules.BotDelayMinMs, "botDelayMinMs", 0); err != nil {
		return err
	}
	if err := assignInt(&rules.BotDelayMaxMs, "botDelayMaxMs", 0); err != nil {
		return err
	}
	if err := assignInt(&rules.GameEndPauseMs, "gameEndPauseMs", 0); err != nil {
		return err
	}
	if rules.BotDelayMaxMs < rules.BotDelayMinMs {
		return fmt.Errorf("botDelayMaxMs must not be below botDelayMinMs")
	}
	return nil
}

// ParseRules converts a map of rules to a HouseRules struct. It will ensure the types are valid.
func ParseRules(rules map[string]interface{}, current HouseRules) (HouseRules, error) {
	houseRules := current
	err := houseRules.Update(rules)
	return houseRules, err
}
