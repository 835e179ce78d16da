// internal/database/actions.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/tresillo/internal/models"
)

const insertActionQ = `
	INSERT INTO hand_actions (
		room_id, hand_id, action_index, seat, action_type, action_payload, created_at
	) VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7)
	ON CONFLICT (hand_id, action_index) DO NOTHING
`

// actionBatch queues one insert per record.
func actionBatch(recs []models.ActionRecord) (*pgx.Batch, error) {
	batch := &pgx.Batch{}
	for _, rec := range recs {
		payload := rec.ActionPayload
		if payload == nil {
			payload = map[string]interface{}{}
		}
		jsonPayload, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload of action %d: %w", rec.ActionIndex, err)
		}
		batch.Queue(insertActionQ,
			rec.RoomID, rec.HandID, rec.ActionIndex, string(rec.Seat), rec.ActionType,
			jsonPayload, time.UnixMilli(rec.Timestamp),
		)
	}
	return batch, nil
}

// InsertActions writes a batch of action records in one transaction.
// Records already stored are skipped.
func (s *Store) InsertActions(ctx context.Context, recs []models.ActionRecord) error {
	if s.pool == nil {
		return ErrNoPool
	}
	if len(recs) == 0 {
		return nil
	}
	batch, err := actionBatch(recs)
	if err != nil {
		return err
	}
	err = pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("tx insert %d actions: %w", len(recs), err)
	}
	return nil
}
