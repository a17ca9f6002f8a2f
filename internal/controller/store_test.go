package controller

import (
	"testing"

	"github.com/duskcourt/server/internal/game"
)

func onePlayerParams(players []game.PlayerRef, allowed game.PlayerRef) Parameters {
	avail := AvailableOnePlayer(players, true)
	return Parameters{
		Available:    avail,
		ResetOnPhase: game.PhaseObituary,
		Default:      avail.DefaultSelection(),
		Allowed:      []game.PlayerRef{allowed},
	}
}

func buildStore(params map[ID]Parameters, order []ID) *Store {
	m := NewParametersMap()
	for _, id := range order {
		m.Insert(id, params[id])
	}
	s := NewStore()
	s.Rebuild(m)
	return s
}

func TestSetSelectionValidatesAndGates(t *testing.T) {
	id := RoleID(0, game.RoleEscort, 0)
	s := buildStore(map[ID]Parameters{
		id: onePlayerParams([]game.PlayerRef{1, 2}, 0),
	}, []ID{id})

	actor := game.PlayerRef(0)
	stranger := game.PlayerRef(3)

	if _, ok := s.SetSelection(id, OnePlayer(3), &actor, false); ok {
		t.Fatalf("out-of-set selection accepted")
	}
	if _, ok := s.SetSelection(id, OnePlayer(1), &stranger, false); ok {
		t.Fatalf("disallowed actor accepted")
	}
	if _, ok := s.SetSelection(RoleID(9, game.RoleEscort, 0), OnePlayer(1), &actor, false); ok {
		t.Fatalf("unknown id accepted")
	}
	old, ok := s.SetSelection(id, OnePlayer(1), &actor, false)
	if !ok {
		t.Fatalf("valid selection rejected")
	}
	if old.Player != nil {
		t.Fatalf("old selection = %+v, want none", old)
	}
	// The stored selection always satisfies the availability.
	if sel := s.Selection(id); sel.Player == nil || *sel.Player != 1 {
		t.Fatalf("selection = %+v", sel)
	}
}

func TestGrayedControllerRejectsUnlessForced(t *testing.T) {
	id := NominateID(0)
	params := onePlayerParams([]game.PlayerRef{1}, 0)
	params.Grayed = true
	s := buildStore(map[ID]Parameters{id: params}, []ID{id})

	actor := game.PlayerRef(0)
	if _, ok := s.SetSelection(id, OnePlayer(1), &actor, false); ok {
		t.Fatalf("grayed controller accepted player input")
	}
	if _, ok := s.SetSelection(id, OnePlayer(1), nil, true); !ok {
		t.Fatalf("forced write rejected")
	}
	// Forced writes still validate.
	if _, ok := s.SetSelection(id, OnePlayer(9), nil, true); ok {
		t.Fatalf("forced write skipped validation")
	}
}

func TestResetOnPhaseStart(t *testing.T) {
	id := RoleID(1, game.RoleDoctor, 0)
	s := buildStore(map[ID]Parameters{
		id: onePlayerParams([]game.PlayerRef{0, 2}, 1),
	}, []ID{id})

	actor := game.PlayerRef(1)
	s.SetSelection(id, OnePlayer(2), &actor, false)
	s.ResetOnPhaseStart(game.PhaseDusk)
	if sel := s.Selection(id); sel.Player == nil {
		t.Fatalf("unrelated phase reset the selection")
	}
	s.ResetOnPhaseStart(game.PhaseObituary)
	if sel := s.Selection(id); sel.Player != nil {
		t.Fatalf("reset did not restore the default")
	}
}

func TestRebuildPreservesValidSelections(t *testing.T) {
	id := RoleID(0, game.RoleBlackmailer, 0)
	s := buildStore(map[ID]Parameters{
		id: onePlayerParams([]game.PlayerRef{1, 2}, 0),
	}, []ID{id})
	actor := game.PlayerRef(0)
	s.SetSelection(id, OnePlayer(2), &actor, false)

	// Target 2 stays available: the selection survives the rebuild.
	m := NewParametersMap()
	m.Insert(id, onePlayerParams([]game.PlayerRef{1, 2}, 0))
	s.Rebuild(m)
	if sel := s.Selection(id); sel.Player == nil || *sel.Player != 2 {
		t.Fatalf("valid selection lost on rebuild: %+v", sel)
	}

	// Target 2 drops out of the set: the selection falls back to the
	// default.
	m = NewParametersMap()
	m.Insert(id, onePlayerParams([]game.PlayerRef{1}, 0))
	s.Rebuild(m)
	if sel := s.Selection(id); sel.Player != nil {
		t.Fatalf("stale selection survived rebuild: %+v", sel)
	}
}

func TestRebuildDropsAbsentControllers(t *testing.T) {
	a := NominateID(0)
	b := NominateID(1)
	s := buildStore(map[ID]Parameters{
		a: onePlayerParams([]game.PlayerRef{1}, 0),
		b: onePlayerParams([]game.PlayerRef{0}, 1),
	}, []ID{a, b})

	m := NewParametersMap()
	m.Insert(a, onePlayerParams([]game.PlayerRef{1}, 0))
	s.Rebuild(m)
	if s.Get(b) != nil {
		t.Fatalf("dropped controller still present")
	}
	if got := s.IDs(); len(got) != 1 || got[0] != a {
		t.Fatalf("ids = %+v", got)
	}
}

func TestTwoPlayerValidation(t *testing.T) {
	avail := AvailableTwoPlayers([]game.PlayerRef{1, 2, 3}, []game.PlayerRef{1, 2, 3}, false, true)
	if !avail.Validate(NoPlayers()) {
		t.Fatalf("none rejected despite can_choose_none")
	}
	if avail.Validate(TwoPlayers(1, 1)) {
		t.Fatalf("duplicate pair accepted")
	}
	if !avail.Validate(TwoPlayers(1, 3)) {
		t.Fatalf("legal pair rejected")
	}
	if avail.Validate(TwoPlayers(1, 9)) {
		t.Fatalf("out-of-set second player accepted")
	}
	if avail.Validate(OnePlayer(1)) {
		t.Fatalf("kind mismatch accepted")
	}
}

func TestPlayerListValidation(t *testing.T) {
	avail := AvailablePlayerList([]game.PlayerRef{0, 1, 2}, 2, false)
	if !avail.Validate(PlayerList(0, 2)) {
		t.Fatalf("legal list rejected")
	}
	if avail.Validate(PlayerList(0, 1, 2)) {
		t.Fatalf("over-cap list accepted")
	}
	if avail.Validate(PlayerList(1, 1)) {
		t.Fatalf("duplicates accepted against policy")
	}
}

func TestIntegerRangeValidation(t *testing.T) {
	avail := AvailableInteger(-1, 1)
	for v, want := range map[int]bool{-2: false, -1: true, 0: true, 1: true, 2: false} {
		if got := avail.Validate(Integer(v)); got != want {
			t.Errorf("validate(%d) = %v, want %v", v, got, want)
		}
	}
	if def := avail.DefaultSelection(); def.Integer != -1 {
		t.Errorf("default = %d, want range minimum", def.Integer)
	}
}
