package engine

import (
	"encoding/json"
	"testing"

	"github.com/duskcourt/server/internal/controller"
	"github.com/duskcourt/server/internal/game"
	"github.com/duskcourt/server/internal/types"
)

func envelope(t *testing.T, cmdType string, payload any) types.CommandEnvelope {
	t.Helper()
	b, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return types.CommandEnvelope{
		CommandID: "cmd-1",
		RoomID:    "test-room",
		Type:      cmdType,
		Payload:   b,
	}
}

func TestHandleCommandControllerInput(t *testing.T) {
	roles := []game.Role{game.RoleEscort, game.RoleMafioso, game.RoleVillager}
	g := newTestGame(t, roles, game.ModifierSettings{})
	advanceTo(t, g, game.PhaseNight, 2)

	target := game.PlayerRef(1)
	result := g.HandleCommand(envelope(t, "controller_input", map[string]any{
		"id": controller.RoleID(0, game.RoleEscort, 0),
		"selection": controller.Selection{
			Kind:   controller.SelectOnePlayer,
			Player: &target,
		},
	}), 0)
	if result.Status != "accepted" {
		t.Fatalf("status = %s", result.Status)
	}
	sel := g.Controllers().Selection(controller.RoleID(0, game.RoleEscort, 0))
	if sel.Player == nil || *sel.Player != 1 {
		t.Fatalf("selection = %+v", sel)
	}
}

func TestHandleCommandMalformedPayloadIsSilentlyDropped(t *testing.T) {
	roles := []game.Role{game.RoleEscort, game.RoleMafioso, game.RoleVillager}
	g := newTestGame(t, roles, game.ModifierSettings{})
	advanceTo(t, g, game.PhaseNight, 2)

	cmd := types.CommandEnvelope{CommandID: "cmd-2", RoomID: "test-room", Type: "controller_input", Payload: []byte(`{not json`)}
	result := g.HandleCommand(cmd, 0)
	if result.Status != "accepted" {
		t.Fatalf("malformed input should ack without applying, status = %s", result.Status)
	}
	if sel := g.Controllers().Selection(controller.RoleID(0, game.RoleEscort, 0)); sel.Player != nil {
		t.Fatalf("malformed input mutated state")
	}
}

func TestHandleCommandWhisperAndNotes(t *testing.T) {
	roles := []game.Role{game.RoleVillager, game.RoleVillager, game.RoleMafioso}
	g := newTestGame(t, roles, game.ModifierSettings{})
	advanceTo(t, g, game.PhaseDiscussion, 2)
	g.DrainPackets()

	g.HandleCommand(envelope(t, "whisper", map[string]any{"to": 1, "message": "meet me at dusk"}), 0)
	packets := g.DrainPackets()
	if !containsChatVariant(packets, 1, game.VariantWhisper) {
		t.Fatalf("whisper not delivered")
	}

	g.HandleCommand(envelope(t, "set_notes", map[string]any{"text": "trust nobody"}), 0)
	if g.Player(0).Notes != "trust nobody" {
		t.Fatalf("notes = %q", g.Player(0).Notes)
	}
	g.HandleCommand(envelope(t, "set_death_note", map[string]any{"text": "told you"}), 2)
	if g.Player(2).DeathNote != "told you" {
		t.Fatalf("death note = %q", g.Player(2).DeathNote)
	}

	// Whispering to yourself or to nobody goes nowhere.
	g.DrainPackets()
	g.HandleCommand(envelope(t, "whisper", map[string]any{"to": 0, "message": "hi"}), 0)
	g.HandleCommand(envelope(t, "whisper", map[string]any{"to": 99, "message": "hi"}), 0)
	if packets := g.DrainPackets(); len(packets) != 0 {
		t.Fatalf("invalid whispers produced %d packets", len(packets))
	}
}

func TestFastForwardVotesAdvancePhase(t *testing.T) {
	roles := []game.Role{game.RoleVillager, game.RoleVillager, game.RoleMafioso}
	g := newTestGame(t, roles, game.ModifierSettings{})
	advanceTo(t, g, game.PhaseDiscussion, 2)

	g.HandleCommand(envelope(t, "fast_forward", nil), 0)
	if g.Phase().Kind != game.PhaseDiscussion {
		t.Fatalf("one vote fast-forwarded the phase")
	}
	g.HandleCommand(envelope(t, "fast_forward", nil), 1)
	g.HandleCommand(envelope(t, "fast_forward", nil), 2)
	if g.Phase().Kind != game.PhaseNomination {
		t.Fatalf("unanimous fast-forward did not advance, phase = %s", g.Phase().Kind)
	}
}
