package store

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreEventLog(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	events := []StoredEvent{
		{RoomID: "r1", Seq: 1, EventID: "e1", EventType: "phase", PayloadJSON: "{}", ServerTime: time.Now()},
		{RoomID: "r1", Seq: 2, EventID: "e2", EventType: "chat.message", PayloadJSON: "{}", ServerTime: time.Now()},
	}
	if err := st.AppendEvents(ctx, "r1", events, nil, nil); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := st.LoadEventsAfter(ctx, "r1", 1, 0)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 || got[0].Seq != 2 {
		t.Fatalf("events after seq 1 = %+v", got)
	}

	got, _ = st.LoadEventsAfter(ctx, "r1", 0, 1)
	if len(got) != 1 || got[0].Seq != 1 {
		t.Fatalf("limit ignored: %+v", got)
	}
}

func TestMemoryStoreDedup(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	rec, err := st.GetDedupRecord(ctx, "r1", "u1", "k1", "controller_input")
	if err != nil || rec != nil {
		t.Fatalf("empty store returned %+v, %v", rec, err)
	}
	if err := st.SaveDedupRecord(ctx, DedupRecord{
		RoomID: "r1", ActorUserID: "u1", IdempotencyKey: "k1",
		CommandType: "controller_input", CommandID: "c1", Status: "accepted",
		CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("save: %v", err)
	}
	rec, err = st.GetDedupRecord(ctx, "r1", "u1", "k1", "controller_input")
	if err != nil || rec == nil || rec.CommandID != "c1" {
		t.Fatalf("dedup lookup = %+v, %v", rec, err)
	}
	// A blank idempotency key never dedupes.
	if rec, _ := st.GetDedupRecord(ctx, "r1", "u1", "", "controller_input"); rec != nil {
		t.Fatalf("blank key matched a record")
	}
}

func TestMemoryStoreSnapshots(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	snap, err := st.GetLatestSnapshot(ctx, "r1")
	if err != nil || snap != nil {
		t.Fatalf("empty store returned %+v, %v", snap, err)
	}
	if err := st.SaveSnapshot(ctx, &Snapshot{RoomID: "r1", LastSeq: 5, StateJSON: "{}", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := st.SaveSnapshot(ctx, &Snapshot{RoomID: "r1", LastSeq: 9, StateJSON: "{}", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("save: %v", err)
	}
	snap, err = st.GetLatestSnapshot(ctx, "r1")
	if err != nil || snap == nil || snap.LastSeq != 9 {
		t.Fatalf("latest snapshot = %+v, %v", snap, err)
	}
}

func TestMemoryStoreMembership(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	if err := st.CreateRoom(ctx, Room{ID: "r1", CreatedBy: "u1", HostUserID: "u1", Status: "lobby", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("create room: %v", err)
	}
	for i, uid := range []string{"u1", "u2", "u3"} {
		role := "player"
		if i == 0 {
			role = "host"
		}
		if err := st.AddRoomMember(ctx, RoomMember{RoomID: "r1", UserID: uid, DisplayName: uid, Role: role, Joined: time.Now()}); err != nil {
			t.Fatalf("add member: %v", err)
		}
	}
	// Double-join is idempotent.
	_ = st.AddRoomMember(ctx, RoomMember{RoomID: "r1", UserID: "u2", DisplayName: "u2", Role: "player", Joined: time.Now()})

	members, err := st.ListRoomMembers(ctx, "r1")
	if err != nil || len(members) != 3 {
		t.Fatalf("members = %+v, %v", members, err)
	}
	if members[0].UserID != "u1" {
		t.Fatalf("join order lost: %+v", members)
	}
	ok, role, _ := st.IsMember(ctx, "r1", "u1")
	if !ok || role != "host" {
		t.Fatalf("host lookup = %v %s", ok, role)
	}
	if ok, _, _ := st.IsMember(ctx, "r1", "nobody"); ok {
		t.Fatalf("stranger counted as member")
	}
}
