// Package room hosts one goroutine per match. The actor owns its
// engine.Game exclusively: commands and ticks are serialized by one
// select loop, outbound packets are sequenced, persisted and fanned out to
// subscribers through the projection rules. Nothing outside this
// package touches a Game directly.
package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/duskcourt/server/internal/engine"
	"github.com/duskcourt/server/internal/game"
	"github.com/duskcourt/server/internal/observability"
	"github.com/duskcourt/server/internal/projection"
	"github.com/duskcourt/server/internal/queue"
	"github.com/duskcourt/server/internal/store"
	"github.com/duskcourt/server/internal/types"
)

type CommandRequest struct {
	Cmd      types.CommandEnvelope
	Response chan CommandResponse
}

type CommandResponse struct {
	Result *types.CommandResult
	Err    error
}

// Subscriber is one attached client. Send must not block; the session
// drops packets it cannot buffer.
type Subscriber struct {
	UserID string
	IsHost bool
	Send   func(types.ProjectedEvent)
}

// RoomActor owns one room: the member roster before the game starts
// and the engine.Game afterwards.
type RoomActor struct {
	RoomID  string
	ctx     context.Context
	onCrash func(roomID string)

	subsMu  sync.RWMutex
	stateMu sync.RWMutex

	game  *engine.Game
	seats map[string]game.PlayerRef
	host  string

	store   *store.Store
	tasks   *queue.Queue
	logger  *zap.Logger
	metrics *observability.Metrics
	cmdCh   chan CommandRequest
	subs    map[string]*Subscriber
	opts    Options
	seq     int64
}

// Options are the room defaults fixed at process start.
type Options struct {
	SnapshotInterval int64
	DisconnectGrace  int
	Budgets          engine.PhaseBudgets
	// SeedOverride pins every new game's PRNG seed when nonzero, for
	// replays and deterministic deployments.
	SeedOverride int64
}

func NewRoomActor(loadCtx, loopCtx context.Context, roomID string, st *store.Store, tasks *queue.Queue, logger *zap.Logger, metrics *observability.Metrics, opts Options, onCrash func(roomID string)) (*RoomActor, error) {
	if loopCtx == nil {
		loopCtx = context.Background()
	}
	if loadCtx == nil {
		loadCtx = context.Background()
	}
	ra := &RoomActor{
		RoomID:  roomID,
		ctx:     loopCtx,
		onCrash: onCrash,
		store:   st,
		tasks:   tasks,
		logger:  logger,
		metrics: metrics,
		cmdCh:   make(chan CommandRequest, 256),
		subs:    make(map[string]*Subscriber),
		opts:    opts,
		seats:   make(map[string]game.PlayerRef),
	}
	if err := ra.loadState(loadCtx); err != nil {
		return nil, err
	}

	go ra.loop(loopCtx)
	return ra, nil
}

func (ra *RoomActor) loadState(ctx context.Context) error {
	ra.stateMu.Lock()
	defer ra.stateMu.Unlock()

	if rm, err := ra.store.GetRoom(ctx, ra.RoomID); err == nil && rm != nil {
		ra.host = rm.HostUserID
	}
	snap, err := ra.store.GetLatestSnapshot(ctx, ra.RoomID)
	if err != nil {
		return err
	}
	if snap == nil {
		return nil
	}
	g, err := engine.RestoreSnapshot(snap.StateJSON)
	if err != nil {
		return err
	}
	ra.game = g
	ra.seq = snap.LastSeq
	members, err := ra.store.ListRoomMembers(ctx, ra.RoomID)
	if err != nil {
		return err
	}
	for i, m := range members {
		if i >= g.NumPlayers() {
			break
		}
		ra.seats[m.UserID] = game.PlayerRef(i)
	}
	return nil
}

func (ra *RoomActor) loop(ctx context.Context) {
	defer func() {
		if recovered := recover(); recovered != nil {
			ra.logger.Error("room actor crashed",
				zap.String("room_id", ra.RoomID),
				zap.Any("panic", recovered),
				zap.ByteString("stack", debug.Stack()))
			if ra.onCrash != nil {
				go ra.onCrash(ra.RoomID)
			}
		}
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		ra.metrics.RoomQueueLen.WithLabelValues(ra.RoomID).Set(float64(len(ra.cmdCh)))
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ra.handleTick(ctx)
		case req := <-ra.cmdCh:
			result, err, fatal := ra.executeCommand(ctx, req.Cmd)
			req.Response <- CommandResponse{Result: result, Err: err}
			if fatal {
				panic(err)
			}
		}
	}
}

func (ra *RoomActor) handleTick(ctx context.Context) {
	ra.stateMu.Lock()
	if ra.game == nil || ra.game.Finished() {
		ra.stateMu.Unlock()
		return
	}
	start := time.Now()
	ra.game.Tick()
	packets := ra.game.DrainPackets()
	ra.stateMu.Unlock()
	ra.metrics.TickLatency.Observe(float64(time.Since(start).Milliseconds()))
	ra.flush(ctx, packets)
}

func (ra *RoomActor) executeCommand(ctx context.Context, cmd types.CommandEnvelope) (result *types.CommandResult, err error, fatal bool) {
	defer func() {
		if recovered := recover(); recovered != nil {
			ra.logger.Error("room actor command panic",
				zap.String("room_id", ra.RoomID),
				zap.String("command_type", cmd.Type),
				zap.Any("panic", recovered),
				zap.ByteString("stack", debug.Stack()))
			err = fmt.Errorf("room actor panic: %v", recovered)
			fatal = true
		}
	}()
	result, err = ra.handleCommand(ctx, cmd)
	return result, err, false
}

func (ra *RoomActor) handleCommand(ctx context.Context, cmd types.CommandEnvelope) (*types.CommandResult, error) {
	if cmd.RoomID != ra.RoomID {
		return nil, types.NewError(types.ErrBadRequest, "room mismatch")
	}

	dedup, err := ra.store.GetDedupRecord(ctx, cmd.RoomID, cmd.ActorUserID, cmd.IdempotencyKey, cmd.Type)
	if err != nil {
		return nil, err
	}
	if dedup != nil {
		ra.metrics.DedupHitTotal.Inc()
		var result types.CommandResult
		_ = json.Unmarshal([]byte(dedup.ResultJSON), &result)
		return &result, nil
	}

	start := time.Now()
	ra.stateMu.Lock()
	var result *types.CommandResult
	var packets []engine.Packet
	switch {
	case cmd.Type == "start_game":
		result, err = ra.startGame(ctx, cmd)
		if ra.game != nil {
			packets = ra.game.DrainPackets()
		}
	case ra.game == nil:
		err = types.NewError(types.ErrConflict, "game not started")
	default:
		seat, ok := ra.seats[cmd.ActorUserID]
		if !ok {
			err = types.NewError(types.ErrForbidden, "no seat in this game")
			break
		}
		result = ra.game.HandleCommand(cmd, seat)
		packets = ra.game.DrainPackets()
	}
	ra.stateMu.Unlock()
	if err != nil {
		var app *types.AppError
		reason := string(types.ErrInternal)
		if errors.As(err, &app) {
			reason = string(app.Code)
		}
		ra.metrics.CommandReject.WithLabelValues(reason).Inc()
		return nil, err
	}
	ra.metrics.CommandLatency.WithLabelValues(cmd.Type).Observe(float64(time.Since(start).Milliseconds()))

	stored := ra.flush(ctx, packets)
	if len(stored) > 0 {
		result.AppliedSeqFrom = stored[0].Seq
		result.AppliedSeqTo = stored[len(stored)-1].Seq
	}
	rj, _ := json.Marshal(result)
	dedupRec := store.DedupRecord{
		RoomID:         cmd.RoomID,
		ActorUserID:    cmd.ActorUserID,
		IdempotencyKey: cmd.IdempotencyKey,
		CommandType:    cmd.Type,
		CommandID:      cmd.CommandID,
		Status:         result.Status,
		ResultJSON:     string(rj),
		CreatedAt:      time.Now().UTC(),
	}
	if err := ra.store.SaveDedupRecord(ctx, dedupRec); err != nil {
		ra.logger.Warn("dedup record save failed", zap.Error(err))
	}
	return result, nil
}

// startGamePayload is what the host sends to deal a game.
type startGamePayload struct {
	Roles     []game.Role       `json:"roles"`
	Modifiers []game.Modifier   `json:"modifiers"`
	Gravity   game.GravityLevel `json:"gravity,omitempty"`
	Seed      *int64            `json:"seed,omitempty"`
	Budgets   map[string]int    `json:"budgets,omitempty"`
}

func (ra *RoomActor) startGame(ctx context.Context, cmd types.CommandEnvelope) (*types.CommandResult, error) {
	if ra.game != nil {
		return nil, types.NewError(types.ErrConflict, "game already started")
	}
	if cmd.ActorUserID != ra.host {
		return nil, types.NewError(types.ErrForbidden, "only the host starts the game")
	}
	var payload startGamePayload
	_ = json.Unmarshal(cmd.Payload, &payload)

	members, err := ra.store.ListRoomMembers(ctx, ra.RoomID)
	if err != nil {
		return nil, err
	}
	if len(members) < 3 {
		return nil, types.NewError(types.ErrConflict, "need at least 3 players")
	}
	names := make([]string, 0, len(members))
	for _, m := range members {
		names = append(names, m.DisplayName)
	}

	seed := time.Now().UnixNano()
	if ra.opts.SeedOverride != 0 {
		seed = ra.opts.SeedOverride
	}
	if payload.Seed != nil {
		seed = *payload.Seed
	}
	mods := game.NewModifierSettings(payload.Modifiers...)
	mods.Gravity = payload.Gravity

	budgets := engine.DefaultPhaseBudgets()
	for k, v := range ra.opts.Budgets {
		budgets[k] = v
	}
	for k, v := range payload.Budgets {
		budgets[game.PhaseKind(k)] = v
	}

	ra.game = engine.NewGame(ra.RoomID, engine.Settings{
		PlayerNames: names,
		Roles:       payload.Roles,
		Modifiers:   mods,
		Budgets:     budgets,
		Seed:        seed,
	})
	for i, m := range members {
		ra.seats[m.UserID] = game.PlayerRef(i)
	}
	ra.persistSnapshot(ctx)
	return &types.CommandResult{CommandID: cmd.CommandID, Status: "accepted"}, nil
}

// flush sequences, persists and broadcasts a batch of packets. With a
// task queue attached, persistence is write-behind; otherwise it is a
// direct store write.
func (ra *RoomActor) flush(ctx context.Context, packets []engine.Packet) []store.StoredEvent {
	if len(packets) == 0 {
		return nil
	}
	stored := make([]store.StoredEvent, len(packets))
	for i, p := range packets {
		ra.seq++
		b, _ := json.Marshal(p)
		stored[i] = store.StoredEvent{
			RoomID:      ra.RoomID,
			Seq:         ra.seq,
			EventID:     uuid.NewString(),
			EventType:   p.Type,
			PayloadJSON: string(b),
			ServerTime:  time.Now().UTC(),
		}
	}
	ra.persistEvents(ctx, stored)
	if ra.opts.SnapshotInterval > 0 && ra.seq%ra.opts.SnapshotInterval < int64(len(stored)) {
		ra.persistSnapshot(ctx)
	}
	ra.broadcast(packets, stored)
	return stored
}

func (ra *RoomActor) persistEvents(ctx context.Context, stored []store.StoredEvent) {
	if ra.tasks != nil {
		task, err := queue.NewEventBatchTask(ra.RoomID, stored)
		if err == nil {
			if err := ra.tasks.Publish(ctx, task); err == nil {
				return
			}
		}
		// fall through to the direct write if the queue is unhappy
	}
	if err := ra.store.AppendEvents(ctx, ra.RoomID, stored, nil, nil); err != nil {
		ra.metrics.PersistErrors.Inc()
		ra.logger.Error("persist events failed", zap.String("room_id", ra.RoomID), zap.Error(err))
	}
}

func (ra *RoomActor) persistSnapshot(ctx context.Context) {
	if ra.game == nil {
		return
	}
	stateJSON, err := ra.game.MarshalSnapshot()
	if err != nil {
		ra.logger.Error("snapshot marshal failed", zap.Error(err))
		return
	}
	snap := store.Snapshot{
		RoomID:    ra.RoomID,
		LastSeq:   ra.seq,
		StateJSON: stateJSON,
		CreatedAt: time.Now().UTC(),
	}
	if ra.tasks != nil {
		if task, err := queue.NewSnapshotTask(snap); err == nil {
			if err := ra.tasks.Publish(ctx, task); err == nil {
				return
			}
		}
	}
	if err := ra.store.SaveSnapshot(ctx, &snap); err != nil {
		ra.metrics.PersistErrors.Inc()
		ra.logger.Error("snapshot persist failed", zap.Error(err))
	}
}

func (ra *RoomActor) broadcast(packets []engine.Packet, stored []store.StoredEvent) {
	ra.subsMu.RLock()
	defer ra.subsMu.RUnlock()

	start := time.Now()
	for i, p := range packets {
		for _, sub := range ra.subs {
			projected := projection.Project(p, stored[i].Seq, ra.viewerFor(sub))
			if projected != nil {
				projected.ServerTS = stored[i].ServerTime.UnixMilli()
				sub.Send(*projected)
			}
		}
	}
	ra.metrics.BroadcastLatency.Observe(float64(time.Since(start).Milliseconds()))
}

func (ra *RoomActor) viewerFor(sub *Subscriber) projection.Viewer {
	viewer := projection.Viewer{IsHost: sub.IsHost}
	if seat, ok := ra.seats[sub.UserID]; ok {
		s := seat
		viewer.Seat = &s
	}
	return viewer
}

func (ra *RoomActor) Subscribe(id string, s *Subscriber) {
	ra.subsMu.Lock()
	ra.subs[id] = s
	ra.subsMu.Unlock()

	ra.stateMu.Lock()
	if ra.game != nil {
		if seat, ok := ra.seats[s.UserID]; ok {
			ra.game.SetConnection(seat, engine.Connection{Kind: engine.ConnConnected})
		}
	}
	ra.stateMu.Unlock()
}

// Unsubscribe detaches a client. Their seat drops to the reconnect
// countdown; the game plays on without them.
func (ra *RoomActor) Unsubscribe(id string) {
	ra.subsMu.Lock()
	sub := ra.subs[id]
	delete(ra.subs, id)
	ra.subsMu.Unlock()

	if sub == nil {
		return
	}
	ra.stateMu.Lock()
	if ra.game != nil {
		if seat, ok := ra.seats[sub.UserID]; ok {
			ra.game.SetConnection(seat, engine.Connection{
				Kind:            engine.ConnCouldReconnect,
				DisconnectTimer: ra.opts.DisconnectGrace,
			})
		}
	}
	ra.stateMu.Unlock()
}

func (ra *RoomActor) Dispatch(cmd types.CommandEnvelope) CommandResponse {
	ch := make(chan CommandResponse, 1)
	select {
	case ra.cmdCh <- CommandRequest{Cmd: cmd, Response: ch}:
	case <-ra.ctx.Done():
		return CommandResponse{Err: fmt.Errorf("room actor stopped")}
	}

	select {
	case resp := <-ch:
		return resp
	case <-ra.ctx.Done():
		return CommandResponse{Err: fmt.Errorf("room actor stopped")}
	}
}

// ReplayEvent re-projects one persisted packet for a resyncing viewer.
func (ra *RoomActor) ReplayEvent(e store.StoredEvent, userID string) (types.ProjectedEvent, bool) {
	var p engine.Packet
	if err := json.Unmarshal([]byte(e.PayloadJSON), &p); err != nil {
		return types.ProjectedEvent{}, false
	}
	ra.subsMu.RLock()
	sub := (*Subscriber)(nil)
	for _, s := range ra.subs {
		if s.UserID == userID {
			sub = s
			break
		}
	}
	ra.subsMu.RUnlock()
	viewer := projection.Viewer{}
	if sub != nil {
		viewer = ra.viewerFor(sub)
	} else if seat, ok := ra.seats[userID]; ok {
		s := seat
		viewer.Seat = &s
	}
	projected := projection.Project(p, e.Seq, viewer)
	if projected == nil {
		return types.ProjectedEvent{}, false
	}
	projected.ServerTS = e.ServerTime.UnixMilli()
	return *projected, true
}

// StateFor builds the redacted state view for one user, or nil before
// the game starts.
func (ra *RoomActor) StateFor(userID string, isHost bool) *projection.StateView {
	ra.stateMu.RLock()
	defer ra.stateMu.RUnlock()
	if ra.game == nil {
		return nil
	}
	viewer := projection.Viewer{IsHost: isHost}
	if seat, ok := ra.seats[userID]; ok {
		s := seat
		viewer.Seat = &s
	}
	view := projection.ProjectedState(ra.game, viewer)
	return &view
}

type RoomManager struct {
	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	actors   map[string]*RoomActor
	store   *store.Store
	tasks   *queue.Queue
	logger  *zap.Logger
	metrics *observability.Metrics
	opts    Options
}

func NewRoomManager(ctx context.Context, st *store.Store, tasks *queue.Queue, logger *zap.Logger, metrics *observability.Metrics, opts Options) *RoomManager {
	if ctx == nil {
		ctx = context.Background()
	}
	actorCtx, cancel := context.WithCancel(ctx)
	return &RoomManager{
		ctx:     actorCtx,
		cancel:  cancel,
		actors:  make(map[string]*RoomActor),
		store:   st,
		tasks:   tasks,
		logger:  logger,
		metrics: metrics,
		opts:    opts,
	}
}

func (m *RoomManager) Close() {
	m.cancel()
}

func (m *RoomManager) GetOrCreate(ctx context.Context, roomID string) (*RoomActor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ra, ok := m.actors[roomID]; ok {
		return ra, nil
	}
	ra, err := NewRoomActor(ctx, m.ctx, roomID, m.store, m.tasks, m.logger, m.metrics, m.opts, m.handleActorCrash)
	if err != nil {
		return nil, err
	}
	m.actors[roomID] = ra
	m.metrics.ActiveGames.Inc()
	return ra, nil
}

func (m *RoomManager) handleActorCrash(roomID string) {
	reloadCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ra, err := NewRoomActor(reloadCtx, m.ctx, roomID, m.store, m.tasks, m.logger, m.metrics, m.opts, m.handleActorCrash)
	if err != nil {
		m.logger.Error("failed to restart room actor", zap.String("room_id", roomID), zap.Error(err))
		return
	}

	m.mu.Lock()
	m.actors[roomID] = ra
	m.mu.Unlock()

	m.logger.Warn("room actor restarted", zap.String("room_id", roomID))
}
