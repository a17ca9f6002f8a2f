package engine

import (
	"encoding/json"

	"github.com/duskcourt/server/internal/game"
)

// Packet is one outbound message. To is nil for a broadcast, otherwise
// the single recipient seat. The room layer owns delivery; the engine
// only enqueues.
type Packet struct {
	To      *game.PlayerRef `json:"to,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Outbound packet types.
const (
	PacketPhase           = "phase"
	PacketPhaseTimeLeft   = "phase.time_left"
	PacketAddGrave        = "grave.added"
	PacketYourRoleState   = "your.role_state"
	PacketYourRoleLabels  = "your.role_labels"
	PacketYourChatGroups  = "your.send_chat_groups"
	PacketChatMessage     = "chat.message"
	PacketGameOver        = "game.over"
	PacketControllerState = "controller.state"
)

// DrainPackets hands the queued outbound packets to the caller and
// clears the queue.
func (g *Game) DrainPackets() []Packet {
	out := g.out
	g.out = nil
	return out
}

func (g *Game) enqueue(to *game.PlayerRef, typ string, payload any) {
	b, _ := json.Marshal(payload)
	g.out = append(g.out, Packet{To: to, Type: typ, Payload: b})
}

func (g *Game) broadcastPacket(typ string, payload any) {
	g.enqueue(nil, typ, payload)
}

func (g *Game) sendPacket(ref game.PlayerRef, typ string, payload any) {
	to := ref
	g.enqueue(&to, typ, payload)
}

// broadcastChat appends one line to the global chat.
func (g *Game) broadcastChat(msg game.ChatMessage) {
	g.broadcastPacket(PacketChatMessage, msg)
}

// sendChat delivers a private chat line to one seat.
func (g *Game) sendChat(ref game.PlayerRef, msg game.ChatMessage) {
	g.sendPacket(ref, PacketChatMessage, msg)
}

func (g *Game) announcePhase() {
	g.broadcastPacket(PacketPhase, map[string]any{
		"phase":      g.phase.Kind,
		"on_trial":   g.phase.OnTrial,
		"day_number": g.day,
	})
	g.broadcastPacket(PacketPhaseTimeLeft, map[string]any{
		"seconds_left": g.timeRemaining,
	})
}

// sendRoleState tells one seat what it currently is. The drunk sees
// its perceived role, not its true one.
func (g *Game) sendRoleState(ref game.PlayerRef) {
	p := g.Player(ref)
	if p == nil {
		return
	}
	shown := p.Role
	if d, ok := g.roleState(ref).(*DrunkState); ok && d.Appears != "" {
		shown = d.Appears
	}
	g.sendPacket(ref, PacketYourRoleState, map[string]any{"role": shown})
}

// sendRoleLabels tells one seat which other players' roles it knows.
func (g *Game) sendRoleLabels(ref game.PlayerRef) {
	p := g.Player(ref)
	if p == nil {
		return
	}
	labels := make(map[string]game.Role)
	for _, other := range g.AllPlayers() {
		if p.KnowsRoleOf[other] {
			labels[itoa(int(other))] = g.Player(other).Role
		}
	}
	g.sendPacket(ref, PacketYourRoleLabels, map[string]any{"labels": labels})
}

// sendChatGroups tells one seat which chat audiences it may currently
// write to.
func (g *Game) sendChatGroups(ref game.PlayerRef) {
	g.sendPacket(ref, PacketYourChatGroups, map[string]any{
		"groups": g.sendableChatGroups(ref),
	})
}
