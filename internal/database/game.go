// internal/database/game.go
package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/tresillo/internal/models"
)

// Store persists hand and game outcomes. It satisfies game.HandRecorder.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps pool. A nil pool yields a store whose methods return ErrNoPool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// RecordHand inserts a finished hand, creating the game row on its first hand.
func (s *Store) RecordHand(ctx context.Context, rec models.HandRecord) error {
	if s.pool == nil {
		return ErrNoPool
	}
	award, err := json.Marshal(rec.Award)
	if err != nil {
		return err
	}
	tricks, err := json.Marshal(rec.Tricks)
	if err != nil {
		return err
	}
	scores, err := json.Marshal(rec.Scores)
	if err != nil {
		return err
	}

	err = pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		upsertGame := `
			INSERT INTO games (id, room_id, mode, status, hands)
			VALUES ($1, $2, $3, 'in_progress', 1)
			ON CONFLICT (id) DO UPDATE SET hands = games.hands + 1
		`
		if _, e := tx.Exec(ctx, upsertGame, rec.GameID, rec.RoomID, rec.Mode); e != nil {
			return e
		}
		insertHand := `
			INSERT INTO hands (
				id, game_id, room_id, hand_no, mode, contract, ombre, trump,
				result, points, award, tricks, scores, finished_at
			) VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), $9, $10, $11, $12, $13, $14)
			ON CONFLICT (id) DO NOTHING
		`
		_, e := tx.Exec(ctx, insertHand,
			rec.HandID, rec.GameID, rec.RoomID, rec.HandNo, rec.Mode, rec.Contract,
			string(rec.Ombre), string(rec.Trump), rec.Result, rec.Points,
			award, tricks, scores, rec.FinishedAt,
		)
		return e
	})
	if err != nil {
		return fmt.Errorf("tx record hand %s: %w", rec.HandID, err)
	}
	return nil
}

// RecordGame marks a game completed with its winner and final scores.
func (s *Store) RecordGame(ctx context.Context, rec models.GameRecord) error {
	if s.pool == nil {
		return ErrNoPool
	}
	final, err := json.Marshal(rec.FinalScores)
	if err != nil {
		return err
	}
	err = pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			INSERT INTO games (id, room_id, mode, status, winner, final_scores, hands, finished_at)
			VALUES ($1, $2, $3, 'completed', $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE
			SET status = 'completed', winner = $4, final_scores = $5, hands = $6, finished_at = $7
		`
		_, e := tx.Exec(ctx, q, rec.GameID, rec.RoomID, rec.Mode, string(rec.Winner), final, rec.Hands, rec.FinishedAt)
		return e
	})
	if err != nil {
		return fmt.Errorf("tx record game %s: %w", rec.GameID, err)
	}
	return nil
}
