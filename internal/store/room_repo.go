package store

import (
	"context"
	"database/sql"
)

func (s *Store) CreateRoom(ctx context.Context, r Room) error {
	if s.MemoryMode {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.rooms[r.ID] = r
		return nil
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO rooms (id, created_by, host_user_id, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.CreatedBy, r.HostUserID, r.Status, r.CreatedAt)
	return err
}

func (s *Store) GetRoom(ctx context.Context, roomID string) (*Room, error) {
	if s.MemoryMode {
		s.mu.RLock()
		defer s.mu.RUnlock()
		if r, ok := s.rooms[roomID]; ok {
			return &r, nil
		}
		return nil, nil
	}
	var r Room
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, created_by, host_user_id, status, created_at FROM rooms WHERE id = ?`, roomID).
		Scan(&r.ID, &r.CreatedBy, &r.HostUserID, &r.Status, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) AddRoomMember(ctx context.Context, m RoomMember) error {
	if s.MemoryMode {
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, existing := range s.members[m.RoomID] {
			if existing.UserID == m.UserID {
				return nil
			}
		}
		s.members[m.RoomID] = append(s.members[m.RoomID], m)
		return nil
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT IGNORE INTO room_members (room_id, user_id, display_name, role, joined) VALUES (?, ?, ?, ?, ?)`,
		m.RoomID, m.UserID, m.DisplayName, m.Role, m.Joined)
	return err
}

// ListRoomMembers returns members in join order; seat assignment
// depends on it.
func (s *Store) ListRoomMembers(ctx context.Context, roomID string) ([]RoomMember, error) {
	if s.MemoryMode {
		s.mu.RLock()
		defer s.mu.RUnlock()
		out := make([]RoomMember, len(s.members[roomID]))
		copy(out, s.members[roomID])
		return out, nil
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT room_id, user_id, display_name, role, joined FROM room_members WHERE room_id = ? ORDER BY joined, user_id`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RoomMember
	for rows.Next() {
		var m RoomMember
		if err := rows.Scan(&m.RoomID, &m.UserID, &m.DisplayName, &m.Role, &m.Joined); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) IsMember(ctx context.Context, roomID, userID string) (bool, string, error) {
	if s.MemoryMode {
		s.mu.RLock()
		defer s.mu.RUnlock()
		for _, m := range s.members[roomID] {
			if m.UserID == userID {
				return true, m.Role, nil
			}
		}
		return false, "", nil
	}
	var role string
	err := s.DB.QueryRowContext(ctx,
		`SELECT role FROM room_members WHERE room_id = ? AND user_id = ?`, roomID, userID).
		Scan(&role)
	if err == sql.ErrNoRows {
		return false, "", nil
	}
	if err != nil {
		return false, "", err
	}
	return true, role, nil
}
