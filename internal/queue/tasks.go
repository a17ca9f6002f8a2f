package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/duskcourt/server/internal/store"
)

// Task types the persistence workers understand.
const (
	TaskPersistEvents   = "persist_events"
	TaskPersistSnapshot = "persist_snapshot"
)

// EventBatch is the payload of a persist_events task.
type EventBatch struct {
	RoomID string              `json:"room_id"`
	Events []store.StoredEvent `json:"events"`
}

// SnapshotPayload is the payload of a persist_snapshot task.
type SnapshotPayload struct {
	Snapshot store.Snapshot `json:"snapshot"`
}

// NewEventBatchTask wraps a sequenced event batch for publication.
func NewEventBatchTask(roomID string, events []store.StoredEvent) (Task, error) {
	b, err := json.Marshal(EventBatch{RoomID: roomID, Events: events})
	if err != nil {
		return Task{}, err
	}
	return Task{
		ID:        uuid.NewString(),
		Type:      TaskPersistEvents,
		RoomID:    roomID,
		Data:      map[string]interface{}{"batch": string(b)},
		Priority:  7,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// NewSnapshotTask wraps a snapshot for publication. Snapshots ride at
// lower priority than event batches: losing one only lengthens the
// next replay.
func NewSnapshotTask(snap store.Snapshot) (Task, error) {
	b, err := json.Marshal(SnapshotPayload{Snapshot: snap})
	if err != nil {
		return Task{}, err
	}
	return Task{
		ID:        uuid.NewString(),
		Type:      TaskPersistSnapshot,
		RoomID:    snap.RoomID,
		Data:      map[string]interface{}{"snapshot": string(b)},
		Priority:  3,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// RegisterPersistenceHandlers wires the write-behind workers onto the
// queue.
func RegisterPersistenceHandlers(q *Queue, st *store.Store) {
	q.RegisterHandler(TaskPersistEvents, func(ctx context.Context, task Task) error {
		raw, ok := task.Data["batch"].(string)
		if !ok {
			return fmt.Errorf("persist_events task missing batch")
		}
		var batch EventBatch
		if err := json.Unmarshal([]byte(raw), &batch); err != nil {
			return err
		}
		return st.AppendEvents(ctx, batch.RoomID, batch.Events, nil, nil)
	})
	q.RegisterHandler(TaskPersistSnapshot, func(ctx context.Context, task Task) error {
		raw, ok := task.Data["snapshot"].(string)
		if !ok {
			return fmt.Errorf("persist_snapshot task missing snapshot")
		}
		var payload SnapshotPayload
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return err
		}
		return st.SaveSnapshot(ctx, &payload.Snapshot)
	})
}
