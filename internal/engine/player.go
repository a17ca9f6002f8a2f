package engine

import (
	"github.com/duskcourt/server/internal/game"
)

// ConnectionKind discriminates how a seat is currently occupied.
type ConnectionKind string

const (
	ConnConnected      ConnectionKind = "connected"
	ConnBot            ConnectionKind = "bot"
	ConnCouldReconnect ConnectionKind = "could_reconnect"
	ConnDisconnected   ConnectionKind = "disconnected"
)

// Connection is the per-player transport variant. Only Connected and
// Bot seats receive packets; CouldReconnect counts down DisconnectTimer
// ticks before collapsing to Disconnected. The player keeps
// participating in game logic in every state.
type Connection struct {
	Kind            ConnectionKind `json:"kind"`
	DisconnectTimer int            `json:"disconnect_timer,omitempty"`
}

// CanReceive reports whether packets should be delivered to this seat.
func (c Connection) CanReceive() bool {
	return c.Kind == ConnConnected || c.Kind == ConnBot
}

// Player is one seat at the table. Ref is the stable index; everything
// else is mutable over the game's life except the index itself.
type Player struct {
	Ref       game.PlayerRef    `json:"ref"`
	Name      string            `json:"name"`
	Conn      Connection        `json:"conn"`
	Role      game.Role         `json:"role"`
	Alive     bool              `json:"alive"`
	Notes     string            `json:"notes"`
	DeathNote string            `json:"death_note"`
	WinCond   game.WinCondition `json:"win_condition"`
	// KnowsRoleOf is the set of players whose true role this player has
	// learned. Entries are removed whenever a tracked player's role
	// changes or the player dies.
	KnowsRoleOf map[game.PlayerRef]bool `json:"knows_role_of"`
}

func newPlayer(ref game.PlayerRef, name string) *Player {
	return &Player{
		Ref:         ref,
		Name:        name,
		Conn:        Connection{Kind: ConnConnected},
		Alive:       true,
		KnowsRoleOf: make(map[game.PlayerRef]bool),
	}
}

// roleState returns the mutable role data for a player's current role.
// The ability table is the single owner of role states; the player
// record only carries the tag.
func (g *Game) roleState(ref game.PlayerRef) AbilityState {
	p := g.Player(ref)
	if p == nil || p.Role == "" {
		return nil
	}
	return g.abilities.Get(RoleAbilityID(p.Role, ref))
}

// Player returns the player record for ref, or nil when out of range.
// In-range refs always resolve: exactly one record exists per index
// for the life of the game.
func (g *Game) Player(ref game.PlayerRef) *Player {
	if int(ref) < 0 || int(ref) >= len(g.players) {
		return nil
	}
	return g.players[ref]
}

// NumPlayers returns the fixed seat count.
func (g *Game) NumPlayers() int { return len(g.players) }

// AllPlayers returns every ref in index order.
func (g *Game) AllPlayers() []game.PlayerRef {
	out := make([]game.PlayerRef, len(g.players))
	for i := range g.players {
		out[i] = game.PlayerRef(i)
	}
	return out
}

// LivingPlayers returns the refs of players still alive, in index order.
func (g *Game) LivingPlayers() []game.PlayerRef {
	var out []game.PlayerRef
	for i, p := range g.players {
		if p.Alive {
			out = append(out, game.PlayerRef(i))
		}
	}
	return out
}

// Alive reports liveness for a ref; out-of-range refs are dead.
func (g *Game) Alive(ref game.PlayerRef) bool {
	p := g.Player(ref)
	return p != nil && p.Alive
}

func (g *Game) tickConnections() {
	for _, p := range g.players {
		if p.Conn.Kind != ConnCouldReconnect {
			continue
		}
		p.Conn.DisconnectTimer--
		if p.Conn.DisconnectTimer <= 0 {
			p.Conn = Connection{Kind: ConnDisconnected}
		}
	}
}

// SetConnection replaces a seat's connection variant. Used by the room
// layer on attach, detach and reconnect.
func (g *Game) SetConnection(ref game.PlayerRef, c Connection) {
	if p := g.Player(ref); p != nil {
		p.Conn = c
	}
}
