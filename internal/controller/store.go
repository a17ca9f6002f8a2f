package controller

import "github.com/duskcourt/server/internal/game"

// IDKind discriminates controller IDs.
type IDKind string

const (
	IDRole          IDKind = "role"
	IDNominate      IDKind = "nominate"
	IDJudge         IDKind = "judge"
	IDAlibi         IDKind = "alibi"
	IDForfeitVote   IDKind = "forfeit_vote"
	IDCallWitness   IDKind = "call_witness"
	IDPitchforkVote IDKind = "pitchfork_vote"
	IDSyndicateGun  IDKind = "syndicate_gun"
)

// ID names one controller. The struct is comparable so it can key the
// store directly.
type ID struct {
	Kind   IDKind         `json:"kind"`
	Player game.PlayerRef `json:"player"`
	Role   game.Role      `json:"role,omitempty"`
	Slot   int            `json:"slot,omitempty"`
}

func RoleID(p game.PlayerRef, r game.Role, slot int) ID {
	return ID{Kind: IDRole, Player: p, Role: r, Slot: slot}
}
func NominateID(p game.PlayerRef) ID    { return ID{Kind: IDNominate, Player: p} }
func JudgeID(p game.PlayerRef) ID       { return ID{Kind: IDJudge, Player: p} }
func AlibiID(p game.PlayerRef) ID       { return ID{Kind: IDAlibi, Player: p} }
func ForfeitVoteID(p game.PlayerRef) ID { return ID{Kind: IDForfeitVote, Player: p} }
func CallWitnessID(p game.PlayerRef) ID { return ID{Kind: IDCallWitness, Player: p} }
func PitchforkVoteID(p game.PlayerRef) ID {
	return ID{Kind: IDPitchforkVote, Player: p}
}
func SyndicateGunVoteID() ID { return ID{Kind: IDSyndicateGun} }

// Parameters describe what one controller currently accepts.
type Parameters struct {
	Available    Available        `json:"available"`
	Grayed       bool             `json:"grayed"`
	ResetOnPhase game.PhaseKind   `json:"reset_on_phase,omitempty"`
	DontSave     bool             `json:"dont_save"`
	Default      Selection        `json:"default"`
	Allowed      []game.PlayerRef `json:"allowed"`
}

// AllowsActor reports whether the given actor may write this
// controller. An empty allowed set admits nobody; forced writes from
// the engine bypass this check.
func (p Parameters) AllowsActor(actor game.PlayerRef) bool {
	return containsRef(p.Allowed, actor)
}

// Entry is one live controller: its parameters plus current selection.
type Entry struct {
	Params    Parameters `json:"params"`
	Selection Selection  `json:"selection"`
}

// ParametersMap is the contribution one ability or component makes to
// the rebuilt controller set. Insertion order is preserved so the
// rebuilt store iterates deterministically.
type ParametersMap struct {
	order   []ID
	entries map[ID]Parameters
}

func NewParametersMap() *ParametersMap {
	return &ParametersMap{entries: make(map[ID]Parameters)}
}

// Insert adds or replaces one controller's parameters.
func (m *ParametersMap) Insert(id ID, p Parameters) *ParametersMap {
	if _, ok := m.entries[id]; !ok {
		m.order = append(m.order, id)
	}
	m.entries[id] = p
	return m
}

// Combine folds another map into this one. Later contributions win on
// ID collision, matching listener registration order.
func (m *ParametersMap) Combine(o *ParametersMap) *ParametersMap {
	if o == nil {
		return m
	}
	for _, id := range o.order {
		m.Insert(id, o.entries[id])
	}
	return m
}

// Store holds every live controller for one game. Iteration order is
// insertion order; the engine rebuilds the store through Rebuild so
// that order is the canonical ability-then-component order.
type Store struct {
	order   []ID
	entries map[ID]*Entry
}

func NewStore() *Store {
	return &Store{entries: make(map[ID]*Entry)}
}

// Get returns the entry for id, or nil if absent.
func (s *Store) Get(id ID) *Entry {
	return s.entries[id]
}

// Selection returns the current selection for id, defaulting to the
// unit selection when the controller does not exist.
func (s *Store) Selection(id ID) Selection {
	if e := s.entries[id]; e != nil {
		return e.Selection
	}
	return Unit()
}

// IDs returns the controller IDs in deterministic order.
func (s *Store) IDs() []ID {
	out := make([]ID, len(s.order))
	copy(out, s.order)
	return out
}

// SetSelection validates and applies a selection. It returns the old
// selection and whether anything was written. Unknown IDs, failed
// validation, grayed controllers and disallowed actors are all silent
// rejections: the input is untrusted and the store never errors.
// Forced writes skip the grayed and actor checks but never the
// validity check.
func (s *Store) SetSelection(id ID, sel Selection, actor *game.PlayerRef, force bool) (old Selection, ok bool) {
	e := s.entries[id]
	if e == nil {
		return Selection{}, false
	}
	if !e.Params.Available.Validate(sel) {
		return Selection{}, false
	}
	if !force {
		if e.Params.Grayed {
			return Selection{}, false
		}
		if actor == nil || !e.Params.AllowsActor(*actor) {
			return Selection{}, false
		}
	}
	old = e.Selection
	e.Selection = sel
	return old, true
}

// ResetOnPhaseStart restores the default selection of every controller
// declaring the given phase as its reset point.
func (s *Store) ResetOnPhaseStart(phase game.PhaseKind) {
	for _, id := range s.order {
		e := s.entries[id]
		if e.Params.ResetOnPhase == phase {
			e.Selection = e.Params.Default
		}
	}
}

// Rebuild replaces the whole controller set from the union of every
// contributor's ParametersMap. A surviving controller keeps its prior
// selection if it still validates, otherwise it falls back to the new
// default. Controllers flagged DontSave always fall back.
func (s *Store) Rebuild(m *ParametersMap) {
	next := NewStore()
	for _, id := range m.order {
		params := m.entries[id]
		sel := params.Default
		if prev := s.entries[id]; prev != nil && !params.DontSave && params.Available.Validate(prev.Selection) {
			sel = prev.Selection
		}
		next.order = append(next.order, id)
		next.entries[id] = &Entry{Params: params, Selection: sel}
	}
	s.order = next.order
	s.entries = next.entries
}
