package store

import "time"

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type Room struct {
	ID         string    `json:"id"`
	CreatedBy  string    `json:"created_by"`
	HostUserID string    `json:"host_user_id"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// RoomMember is one user's membership. Members map to seats in join
// order when the game starts, so the insertion order is load-bearing.
type RoomMember struct {
	RoomID      string    `json:"room_id"`
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	Joined      time.Time `json:"joined"`
}

// StoredEvent is one persisted outbound packet, sequenced per room.
type StoredEvent struct {
	RoomID      string    `json:"room_id"`
	Seq         int64     `json:"seq"`
	EventID     string    `json:"event_id"`
	EventType   string    `json:"event_type"`
	PayloadJSON string    `json:"payload_json"`
	ServerTime  time.Time `json:"server_time"`
}

// Snapshot is one persisted game state image.
type Snapshot struct {
	RoomID    string    `json:"room_id"`
	LastSeq   int64     `json:"last_seq"`
	StateJSON string    `json:"state_json"`
	CreatedAt time.Time `json:"created_at"`
}

// DedupRecord remembers a processed command so retries return the
// original result instead of re-applying.
type DedupRecord struct {
	RoomID         string    `json:"room_id"`
	ActorUserID    string    `json:"actor_user_id"`
	IdempotencyKey string    `json:"idempotency_key"`
	CommandType    string    `json:"command_type"`
	CommandID      string    `json:"command_id"`
	Status         string    `json:"status"`
	ResultJSON     string    `json:"result_json"`
	CreatedAt      time.Time `json:"created_at"`
}
