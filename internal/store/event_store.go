package store

import (
	"context"
	"database/sql"
)

// AppendEvents writes a batch of sequenced events, and optionally a
// dedup record and snapshot, in one transaction.
func (s *Store) AppendEvents(ctx context.Context, roomID string, events []StoredEvent, dedup *DedupRecord, snap *Snapshot) error {
	if s.MemoryMode {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.events[roomID] = append(s.events[roomID], events...)
		if dedup != nil {
			s.dedups[dedupKey(dedup.RoomID, dedup.ActorUserID, dedup.IdempotencyKey, dedup.CommandType)] = *dedup
		}
		if snap != nil {
			s.snapshots[roomID] = *snap
		}
		return nil
	}
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		for _, e := range events {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO room_events (room_id, seq, event_id, event_type, payload_json, server_time) VALUES (?, ?, ?, ?, ?, ?)`,
				e.RoomID, e.Seq, e.EventID, e.EventType, e.PayloadJSON, e.ServerTime); err != nil {
				return err
			}
		}
		if dedup != nil {
			if _, err := tx.ExecContext(ctx,
				`INSERT IGNORE INTO command_dedup (room_id, actor_user_id, idempotency_key, command_type, command_id, status, result_json, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				dedup.RoomID, dedup.ActorUserID, dedup.IdempotencyKey, dedup.CommandType, dedup.CommandID, dedup.Status, dedup.ResultJSON, dedup.CreatedAt); err != nil {
				return err
			}
		}
		if snap != nil {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO room_snapshots (room_id, last_seq, state_json, created_at) VALUES (?, ?, ?, ?)`,
				snap.RoomID, snap.LastSeq, snap.StateJSON, snap.CreatedAt); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) LoadEventsAfter(ctx context.Context, roomID string, afterSeq int64, limit int) ([]StoredEvent, error) {
	if s.MemoryMode {
		s.mu.RLock()
		defer s.mu.RUnlock()
		var out []StoredEvent
		for _, e := range s.events[roomID] {
			if e.Seq > afterSeq {
				out = append(out, e)
				if limit > 0 && len(out) >= limit {
					break
				}
			}
		}
		return out, nil
	}
	query := `SELECT room_id, seq, event_id, event_type, payload_json, server_time FROM room_events WHERE room_id = ? AND seq > ? ORDER BY seq`
	args := []any{roomID, afterSeq}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StoredEvent
	for rows.Next() {
		var e StoredEvent
		if err := rows.Scan(&e.RoomID, &e.Seq, &e.EventID, &e.EventType, &e.PayloadJSON, &e.ServerTime); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) GetLatestSnapshot(ctx context.Context, roomID string) (*Snapshot, error) {
	if s.MemoryMode {
		s.mu.RLock()
		defer s.mu.RUnlock()
		if snap, ok := s.snapshots[roomID]; ok {
			return &snap, nil
		}
		return nil, nil
	}
	var snap Snapshot
	err := s.DB.QueryRowContext(ctx,
		`SELECT room_id, last_seq, state_json, created_at FROM room_snapshots WHERE room_id = ? ORDER BY last_seq DESC LIMIT 1`, roomID).
		Scan(&snap.RoomID, &snap.LastSeq, &snap.StateJSON, &snap.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *Store) SaveSnapshot(ctx context.Context, snap *Snapshot) error {
	if s.MemoryMode {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.snapshots[snap.RoomID] = *snap
		return nil
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO room_snapshots (room_id, last_seq, state_json, created_at) VALUES (?, ?, ?, ?)`,
		snap.RoomID, snap.LastSeq, snap.StateJSON, snap.CreatedAt)
	return err
}

func (s *Store) GetDedupRecord(ctx context.Context, roomID, actorUserID, idempotencyKey, commandType string) (*DedupRecord, error) {
	if idempotencyKey == "" {
		return nil, nil
	}
	if s.MemoryMode {
		s.mu.RLock()
		defer s.mu.RUnlock()
		if rec, ok := s.dedups[dedupKey(roomID, actorUserID, idempotencyKey, commandType)]; ok {
			return &rec, nil
		}
		return nil, nil
	}
	var rec DedupRecord
	err := s.DB.QueryRowContext(ctx,
		`SELECT room_id, actor_user_id, idempotency_key, command_type, command_id, status, result_json, created_at FROM command_dedup WHERE room_id = ? AND actor_user_id = ? AND idempotency_key = ? AND command_type = ?`,
		roomID, actorUserID, idempotencyKey, commandType).
		Scan(&rec.RoomID, &rec.ActorUserID, &rec.IdempotencyKey, &rec.CommandType, &rec.CommandID, &rec.Status, &rec.ResultJSON, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) SaveDedupRecord(ctx context.Context, rec DedupRecord) error {
	if rec.IdempotencyKey == "" {
		return nil
	}
	if s.MemoryMode {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.dedups[dedupKey(rec.RoomID, rec.ActorUserID, rec.IdempotencyKey, rec.CommandType)] = rec
		return nil
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT IGNORE INTO command_dedup (room_id, actor_user_id, idempotency_key, command_type, command_id, status, result_json, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RoomID, rec.ActorUserID, rec.IdempotencyKey, rec.CommandType, rec.CommandID, rec.Status, rec.ResultJSON, rec.CreatedAt)
	return err
}

func dedupKey(roomID, actor, key, cmdType string) string {
	return roomID + "|" + actor + "|" + key + "|" + cmdType
}
