// internal/game/scoring.go
package game

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/tresillo/internal/models"
)

// Hand results.
const (
	ResultPenetro          = "penetro"
	ResultBolaMade         = "bola_made"
	ResultBolaFailed       = "bola_failed"
	ResultContrabolaMade   = "contrabola_made"
	ResultContrabolaFailed = "contrabola_failed"
	ResultSacada           = "sacada"
	ResultCodille          = "codille"
	ResultPuesta           = "puesta"
)

const tricksToWin = 5

// HandResult is the scoring outcome of a hand: every seat in Award gains Points.
type HandResult struct {
	Result string              `json:"result"`
	Points int                 `json:"points"`
	Award  []models.Seat       `json:"award"`
	Tricks map[models.Seat]int `json:"tricks"`
}

// ResolveHand scores a finished hand from the trick counts alone.
func ResolveHand(contract models.Contract, ombre models.Seat, active []models.Seat, tricks map[models.Seat]int) HandResult {
	res := HandResult{Tricks: copyCounts(tricks)}

	if contract == models.ContractPenetro {
		var top models.Seat
		for _, s := range models.Seats {
			if top == "" || tricks[s] > tricks[top] {
				top = s
			}
		}
		res.Result, res.Points, res.Award = ResultPenetro, 2, []models.Seat{top}
		return res
	}

	var defenders []models.Seat
	for _, s := range active {
		if s != ombre {
			defenders = append(defenders, s)
		}
	}
	won := tricks[ombre]

	switch contract {
	case models.ContractBola:
		if won == handSize {
			res.Result, res.Points, res.Award = ResultBolaMade, 6, []models.Seat{ombre}
		} else {
			res.Result, res.Points, res.Award = ResultBolaFailed, 2, defenders
		}
	case models.ContractContrabola:
		if won == 0 {
			res.Result, res.Points, res.Award = ResultContrabolaMade, 4, []models.Seat{ombre}
		} else {
			res.Result, res.Points, res.Award = ResultContrabolaFailed, 1, defenders
		}
	default:
		if won >= tricksToWin {
			points := 1
			switch {
			case won == handSize:
				points = 4
			case won >= 7:
				points = 2
			}
			if contract.RequiresOros() {
				points++
			}
			res.Result, res.Points, res.Award = ResultSacada, points, []models.Seat{ombre}
			return res
		}
		for _, d := range defenders {
			if tricks[d] >= tricksToWin {
				res.Result, res.Points, res.Award = ResultCodille, 2, []models.Seat{d}
				return res
			}
		}
		res.Result, res.Points, res.Award = ResultPuesta, 1, defenders
	}
	return res
}

// finishHand scores the hand and moves on.
func (r *Room) finishHand() {
	r.stopTimer()
	r.state.Phase = PhaseScoring
	r.state.Turn = ""

	res := ResolveHand(r.state.Contract, r.state.Ombre, r.activeSeats(), r.state.Tricks)
	for _, s := range res.Award {
		r.state.Scores[s] += res.Points
	}
	r.handsPlayed++
	r.logAction(r.state.Ombre, "hand_result", map[string]interface{}{"result": res.Result, "points": res.Points})

	if res.Result == ResultPenetro {
		r.event(EventPenetroResult, map[string]interface{}{"winner": res.Award[0], "tricks": res.Tricks})
	} else {
		r.event(EventHandResult, map[string]interface{}{
			"result": res.Result,
			"points": res.Points,
			"award":  res.Award,
			"tricks": res.Tricks,
		})
	}

	rec := models.HandRecord{
		RoomID:     r.ID,
		GameID:     r.gameID,
		HandID:     r.handID,
		HandNo:     r.state.HandNo,
		Mode:       r.state.Mode,
		Contract:   r.state.Contract,
		Ombre:      r.state.Ombre,
		Trump:      r.state.Trump,
		Result:     res.Result,
		Points:     res.Points,
		Award:      res.Award,
		Tricks:     res.Tricks,
		Scores:     copyCounts(r.state.Scores),
		FinishedAt: time.Now(),
	}
	r.persist("hand", func(ctx context.Context, hr HandRecorder) error { return hr.RecordHand(ctx, rec) })

	r.nextHand()
}

// gameWinner is the first seat, in seat order, at or past the target.
func (r *Room) gameWinner() models.Seat {
	for _, s := range models.Seats {
		if r.state.Scores[s] >= r.state.GameTarget {
			return s
		}
	}
	return ""
}

// nextHand deals again, or ends the game and schedules a fresh one after a pause.
func (r *Room) nextHand() {
	winner := r.gameWinner()
	if winner == "" {
		r.state.HandNo++
		r.newHand()
		return
	}

	r.state.Phase = PhaseEnd
	r.state.Turn = ""
	r.publish()
	final := copyCounts(r.state.Scores)
	r.event(EventGameEnd, map[string]interface{}{"winner": winner, "finalScores": final})
	r.log.Infof("game over, %s wins with %d", winner, final[winner])

	rec := models.GameRecord{
		RoomID:      r.ID,
		GameID:      r.gameID,
		Mode:        r.state.Mode,
		Winner:      winner,
		FinalScores: final,
		Hands:       r.handsPlayed,
		FinishedAt:  time.Now(),
	}
	r.persist("game", func(ctx context.Context, hr HandRecorder) error { return hr.RecordGame(ctx, rec) })

	r.armTimer(r.rules.GameEndPause(), func() {
		r.state.Scores = seatCounter()
		r.state.HandNo = 1
		r.gameID = uuid.New()
		r.handsPlayed = 0
		r.newHand()
	})
}
