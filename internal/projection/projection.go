// Package projection decides what each viewer is allowed to see. The
// engine emits packets addressed to a seat or to everyone; projection
// routes them and builds per-viewer state snapshots with hidden
// information scrubbed out.
package projection

import (
	"encoding/json"

	"github.com/duskcourt/server/internal/engine"
	"github.com/duskcourt/server/internal/game"
	"github.com/duskcourt/server/internal/types"
)

// Viewer identifies who is looking. Spectator viewers have no seat and
// see only broadcasts; host viewers see everything.
type Viewer struct {
	Seat   *game.PlayerRef
	IsHost bool
}

// Project converts one engine packet into a projected event for the
// viewer, or nil when the viewer may not see it.
func Project(p engine.Packet, seq int64, viewer Viewer) *types.ProjectedEvent {
	if !allowed(p, viewer) {
		return nil
	}
	return &types.ProjectedEvent{
		Seq:       seq,
		EventType: p.Type,
		Data:      p.Payload,
	}
}

func allowed(p engine.Packet, viewer Viewer) bool {
	if viewer.IsHost {
		return true
	}
	if p.To == nil {
		return true
	}
	return viewer.Seat != nil && *viewer.Seat == *p.To
}

// SeatView is one seat as a particular viewer sees it.
type SeatView struct {
	Ref   game.PlayerRef `json:"ref"`
	Name  string         `json:"name"`
	Alive bool           `json:"alive"`
	// Role is empty unless the viewer is this seat, has learned the
	// role, or is the host.
	Role         game.Role `json:"role,omitempty"`
	Enfranchised bool      `json:"enfranchised"`
}

// StateView is the redacted per-viewer game state used by the REST
// state and replay endpoints.
type StateView struct {
	Phase      engine.PhaseState `json:"phase"`
	DayNumber  int               `json:"day_number"`
	Seats      []SeatView        `json:"seats"`
	Graves     []game.Grave      `json:"graves"`
	Finished   bool              `json:"finished"`
	Conclusion game.Conclusion   `json:"conclusion,omitempty"`
	// YourSeat and YourRole are only set for seated viewers.
	YourSeat *game.PlayerRef `json:"your_seat,omitempty"`
	YourRole game.Role       `json:"your_role,omitempty"`
}

// ProjectedState builds the state snapshot one viewer may see.
func ProjectedState(g *engine.Game, viewer Viewer) StateView {
	view := StateView{
		Phase:      g.Phase(),
		DayNumber:  g.DayNumber(),
		Graves:     g.Graves(),
		Finished:   g.Finished(),
		Conclusion: g.Conclusion(),
	}
	if !g.Finished() {
		view.Conclusion = ""
	}
	var self *engine.Player
	if viewer.Seat != nil {
		self = g.Player(*viewer.Seat)
	}
	for _, ref := range g.AllPlayers() {
		p := g.Player(ref)
		seat := SeatView{
			Ref:          ref,
			Name:         p.Name,
			Alive:        p.Alive,
			Enfranchised: g.Enfranchised(ref),
		}
		switch {
		case viewer.IsHost:
			seat.Role = p.Role
		case self != nil && self.Ref == ref:
			seat.Role = p.Role
		case self != nil && self.KnowsRoleOf[ref]:
			seat.Role = p.Role
		}
		view.Seats = append(view.Seats, seat)
	}
	if self != nil {
		view.YourSeat = viewer.Seat
		view.YourRole = self.Role
	}
	return view
}

// MarshalStateView renders the view for an HTTP response.
func MarshalStateView(v StateView) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}
