package engine

import (
	"github.com/duskcourt/server/internal/controller"
	"github.com/duskcourt/server/internal/game"
)

// AbilityKind discriminates ability IDs.
type AbilityKind string

const (
	AbilityRole         AbilityKind = "role"
	AbilityPitchfork    AbilityKind = "pitchfork"
	AbilitySyndicateGun AbilityKind = "syndicate_gun"
)

// AbilityID keys one entry in the ability table. Role abilities carry
// the owning player; the global abilities (pitchfork, syndicate gun)
// are singletons whose holder lives in their state.
type AbilityID struct {
	Kind   AbilityKind    `json:"kind"`
	Role   game.Role      `json:"role,omitempty"`
	Player game.PlayerRef `json:"player,omitempty"`
}

func RoleAbilityID(r game.Role, p game.PlayerRef) AbilityID {
	return AbilityID{Kind: AbilityRole, Role: r, Player: p}
}

func PitchforkID() AbilityID    { return AbilityID{Kind: AbilityPitchfork} }
func SyndicateGunID() AbilityID { return AbilityID{Kind: AbilitySyndicateGun} }

// IsPlayersRole reports whether the ID is the role ability of player p
// holding role r.
func (id AbilityID) IsPlayersRole(p game.PlayerRef, r game.Role) bool {
	return id.Kind == AbilityRole && id.Player == p && id.Role == r
}

// AbilityState is the per-ability mutable data. States opt into events
// by implementing the listener interfaces below; a state that does not
// care for an event is inert for it.
type AbilityState interface{}

// Listener capability set. Dispatch is by type assertion against the
// snapshot of table entries taken when the event starts.
type midnightListener interface {
	onMidnight(g *Game, id AbilityID, n *NightState, priority MidnightPriority)
}

type visitProducer interface {
	selectionVisits(g *Game, id AbilityID) []game.Visit
}

type controllerContributor interface {
	controllerParameters(g *Game, id AbilityID, m *controller.ParametersMap)
}

type creationListener interface {
	onAbilityCreation(g *Game, id AbilityID, created AbilityID, fold *CreationFold, priority CreationPriority)
}

type deletionListener interface {
	onAbilityDeletion(g *Game, id AbilityID, deleted AbilityID, priority DeletionPriority)
}

type whisperListener interface {
	onWhisper(g *Game, id AbilityID, ev *WhisperEvent, fold *WhisperFold, priority WhisperPriority)
}

type phaseStartListener interface {
	onPhaseStart(g *Game, id AbilityID, phase PhaseState)
}

type anyDeathListener interface {
	onAnyDeath(g *Game, id AbilityID, dead game.PlayerRef)
}

type validatedInputListener interface {
	onValidatedControllerInput(g *Game, id AbilityID, actor game.PlayerRef, cid controller.ID)
}

type abilityEntry struct {
	id    AbilityID
	state AbilityState
}

// AbilityTable is the ordered ID→state mapping. Insertion order is the
// dispatch order within one event priority, so it never reorders.
type AbilityTable struct {
	entries []abilityEntry
	present map[AbilityID]int
}

func newAbilityTable() *AbilityTable {
	return &AbilityTable{present: make(map[AbilityID]int)}
}

// Get returns the state for id, or nil when absent. Absent IDs are
// inert, never an error.
func (t *AbilityTable) Get(id AbilityID) AbilityState {
	if i, ok := t.present[id]; ok {
		return t.entries[i].state
	}
	return nil
}

func (t *AbilityTable) has(id AbilityID) bool {
	_, ok := t.present[id]
	return ok
}

func (t *AbilityTable) insert(id AbilityID, state AbilityState) {
	if i, ok := t.present[id]; ok {
		t.entries[i].state = state
		return
	}
	t.present[id] = len(t.entries)
	t.entries = append(t.entries, abilityEntry{id: id, state: state})
}

func (t *AbilityTable) remove(id AbilityID) {
	i, ok := t.present[id]
	if !ok {
		return
	}
	t.entries = append(t.entries[:i], t.entries[i+1:]...)
	delete(t.present, id)
	for j := i; j < len(t.entries); j++ {
		t.present[t.entries[j].id] = j
	}
}

// snapshot captures the current ID list so listeners added mid-event
// are not invoked for the remainder of the pass and removed ones are
// skipped via the presence check.
func (t *AbilityTable) snapshot() []AbilityID {
	ids := make([]AbilityID, len(t.entries))
	for i, e := range t.entries {
		ids[i] = e.id
	}
	return ids
}

// createAbility runs the creation ladder: listeners may cancel or swap
// the state, then the entry is inserted, then side effects run.
func (g *Game) createAbility(id AbilityID, state AbilityState) {
	fold := &CreationFold{State: state}
	ids := g.abilities.snapshot()
	g.dispatchCreation(ids, id, fold, CreationCancelOrEdit)
	if fold.Cancelled {
		return
	}
	g.abilities.insert(id, fold.State)
	g.dispatchCreation(g.abilities.snapshot(), id, fold, CreationSideEffect)
	g.rebuildControllers()
}

func (g *Game) dispatchCreation(ids []AbilityID, created AbilityID, fold *CreationFold, priority CreationPriority) {
	for _, id := range ids {
		state := g.abilities.Get(id)
		if state == nil {
			continue
		}
		if l, ok := state.(creationListener); ok {
			l.onAbilityCreation(g, id, created, fold, priority)
		}
	}
}

// deleteAbility runs the deletion ladder: resource-return side effects
// first, then removal from the table.
func (g *Game) deleteAbility(id AbilityID) {
	if !g.abilities.has(id) {
		return
	}
	ids := g.abilities.snapshot()
	for _, lid := range ids {
		state := g.abilities.Get(lid)
		if state == nil {
			continue
		}
		if l, ok := state.(deletionListener); ok {
			l.onAbilityDeletion(g, lid, id, DeletionBeforeSideEffect)
		}
	}
	g.abilities.remove(id)
	g.rebuildControllers()
}

// setRole switches a player to a new role: the old role ability is
// deleted, the tag swapped, the new ability created, and everyone who
// had learned the old role forgets it.
func (g *Game) setRole(ref game.PlayerRef, r game.Role) {
	p := g.Player(ref)
	if p == nil || p.Role == r {
		return
	}
	old := p.Role
	if old != "" {
		g.deleteAbility(RoleAbilityID(old, ref))
	}
	p.Role = r
	if data := game.GetRole(r); data != nil {
		p.WinCond = game.WinConditionFor(data.Team)
		for _, group := range data.Insiders {
			g.AddInsider(ref, group)
		}
	}
	g.concealRole(ref)
	g.createAbility(RoleAbilityID(r, ref), newRoleState(r))
	g.sendRoleState(ref)
	g.rebuildControllers()
}

// StripRole removes a player's role ability without assigning a new
// role, then reverts the seat to a plain villager so it is never
// role-less.
func (g *Game) StripRole(ref game.PlayerRef) {
	p := g.Player(ref)
	if p == nil {
		return
	}
	if p.Role != "" {
		g.deleteAbility(RoleAbilityID(p.Role, ref))
		p.Role = ""
	}
	g.setRole(ref, game.RoleVillager)
}
