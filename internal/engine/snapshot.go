package engine

import (
	"encoding/json"

	"github.com/duskcourt/server/internal/controller"
	"github.com/duskcourt/server/internal/game"
)

// Snapshot is the JSON-serializable image of a game: player records,
// graves, phase state, modifier settings and the controller map —
// everything a host needs to resume or replay. Exact replays re-run
// the event log from game start against the stored seed; a snapshot
// restore alone re-seeds the PRNG.
type Snapshot struct {
	ID             string                                 `json:"id"`
	Seed           int64                                  `json:"seed"`
	Day            int                                    `json:"day"`
	Phase          PhaseState                             `json:"phase"`
	TimeRemaining  int                                    `json:"time_remaining"`
	Modifiers      game.ModifierSettings                  `json:"modifiers"`
	Players        []PlayerSnapshot                       `json:"players"`
	Graves         []game.Grave                           `json:"graves"`
	Insiders       map[game.InsiderGroup][]game.PlayerRef `json:"insiders"`
	CultSacrifices int                                    `json:"cult_sacrifices"`
	Enfranchised   map[game.PlayerRef]int                 `json:"enfranchised"`
	Silenced       []game.PlayerRef                       `json:"silenced"`
	Pitchfork      []game.PlayerRef                       `json:"pitchfork"`
	Confused       []game.PlayerRef                       `json:"confused"`
	Controllers    []ControllerSnapshot                   `json:"controllers"`
	Finished       bool                                   `json:"finished"`
	Conclusion     game.Conclusion                        `json:"conclusion,omitempty"`
}

// PlayerSnapshot flattens one seat including its role state blob.
type PlayerSnapshot struct {
	Player
	RoleStateJSON json.RawMessage  `json:"role_state,omitempty"`
	KnownRoles    []game.PlayerRef `json:"known_roles"`
}

// ControllerSnapshot keeps one controller's identity and selection.
// Parameters are derived state and rebuilt on restore.
type ControllerSnapshot struct {
	ID        controller.ID        `json:"id"`
	Selection controller.Selection `json:"selection"`
}

// MarshalSnapshot captures the current game state as JSON.
func (g *Game) MarshalSnapshot() (string, error) {
	snap := Snapshot{
		ID:             g.ID,
		Seed:           g.seed,
		Day:            g.day,
		Phase:          g.phase,
		TimeRemaining:  g.timeRemaining,
		Modifiers:      g.modifiers,
		Graves:         g.graves,
		Insiders:       make(map[game.InsiderGroup][]game.PlayerRef),
		CultSacrifices: g.cultSacrifices,
		Enfranchised:   g.enfranchised,
		Finished:       g.finished,
		Conclusion:     g.ending,
	}
	for _, p := range g.players {
		ps := PlayerSnapshot{Player: *p}
		if state := g.roleState(p.Ref); state != nil {
			b, err := json.Marshal(state)
			if err == nil {
				ps.RoleStateJSON = b
			}
		}
		for _, other := range g.AllPlayers() {
			if p.KnowsRoleOf[other] {
				ps.KnownRoles = append(ps.KnownRoles, other)
			}
		}
		snap.Players = append(snap.Players, ps)
	}
	for _, group := range game.InsiderGroups {
		snap.Insiders[group] = g.InsiderGroupMembers(group)
	}
	for _, ref := range g.AllPlayers() {
		if g.silenced[ref] {
			snap.Silenced = append(snap.Silenced, ref)
		}
		if g.pitchfork[ref] {
			snap.Pitchfork = append(snap.Pitchfork, ref)
		}
		if g.confused[ref] {
			snap.Confused = append(snap.Confused, ref)
		}
	}
	for _, id := range g.controllers.IDs() {
		snap.Controllers = append(snap.Controllers, ControllerSnapshot{
			ID:        id,
			Selection: g.controllers.Selection(id),
		})
	}
	b, err := json.Marshal(snap)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// RestoreSnapshot rebuilds a game from a snapshot. Role states are
// re-created by tag and overlaid with their saved JSON; controllers
// are rebuilt from parameters and then overlaid with their saved
// selections.
func RestoreSnapshot(raw string) (*Game, error) {
	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, err
	}
	names := make([]string, len(snap.Players))
	roles := make([]game.Role, len(snap.Players))
	for i, ps := range snap.Players {
		names[i] = ps.Name
		roles[i] = ps.Role
	}
	g := NewGame(snap.ID, Settings{
		PlayerNames: names,
		Roles:       roles,
		Modifiers:   snap.Modifiers,
		Seed:        snap.Seed,
	})
	g.out = nil

	for i, ps := range snap.Players {
		p := g.players[i]
		p.Conn = ps.Conn
		p.Alive = ps.Alive
		p.Notes = ps.Notes
		p.DeathNote = ps.DeathNote
		p.WinCond = ps.WinCond
		p.KnowsRoleOf = make(map[game.PlayerRef]bool)
		for _, other := range ps.KnownRoles {
			p.KnowsRoleOf[other] = true
		}
		if state := g.roleState(p.Ref); len(ps.RoleStateJSON) > 0 && state != nil {
			_ = json.Unmarshal(ps.RoleStateJSON, state)
		}
	}
	for _, group := range game.InsiderGroups {
		g.insiders[group] = make(map[game.PlayerRef]bool)
		for _, ref := range snap.Insiders[group] {
			g.insiders[group][ref] = true
		}
	}
	g.day = snap.Day
	g.phase = snap.Phase
	g.timeRemaining = snap.TimeRemaining
	g.graves = snap.Graves
	g.cultSacrifices = snap.CultSacrifices
	if snap.Enfranchised != nil {
		g.enfranchised = snap.Enfranchised
	}
	for _, ref := range snap.Silenced {
		g.silenced[ref] = true
	}
	for _, ref := range snap.Pitchfork {
		g.givePitchfork(ref)
	}
	for _, ref := range snap.Confused {
		g.confused[ref] = true
	}
	g.finished = snap.Finished
	g.ending = snap.Conclusion
	g.rebuildControllers()
	for _, cs := range snap.Controllers {
		g.controllers.SetSelection(cs.ID, cs.Selection, nil, true)
	}
	g.out = nil
	return g, nil
}
