package engine

import (
	"encoding/json"

	"github.com/duskcourt/server/internal/controller"
	"github.com/duskcourt/server/internal/game"
	"github.com/duskcourt/server/internal/types"
)

// Command payload shapes. The envelope's data field decodes into one
// of these depending on the command type.

type controllerInputPayload struct {
	ID        controller.ID        `json:"id"`
	Selection controller.Selection `json:"selection"`
}

type whisperPayload struct {
	To      int    `json:"to"`
	Message string `json:"message"`
}

type textPayload struct {
	Text string `json:"text"`
}

// HandleCommand is the single entry point for validated client input.
// The actor is the seat the transport authenticated; the payload is
// still untrusted. Per the error design, malformed or stale input is
// dropped without a reply — the result is always accepted so the
// transport acks receipt, and the game either applied the input or
// silently did not.
func (g *Game) HandleCommand(cmd types.CommandEnvelope, actor game.PlayerRef) *types.CommandResult {
	result := &types.CommandResult{CommandID: cmd.CommandID, Status: "accepted"}
	if g.finished || g.Player(actor) == nil {
		return result
	}

	switch cmd.Type {
	case "controller_input":
		var p controllerInputPayload
		if err := json.Unmarshal(cmd.Payload, &p); err != nil {
			return result
		}
		g.HandleControllerInput(actor, ControllerInput{ID: p.ID, Selection: p.Selection})

	case "whisper":
		var p whisperPayload
		if err := json.Unmarshal(cmd.Payload, &p); err != nil {
			return result
		}
		receiver := game.PlayerRef(p.To)
		if g.Player(receiver) == nil || receiver == actor || p.Message == "" {
			return result
		}
		g.fireWhisper(WhisperEvent{Sender: actor, Receiver: receiver, Message: p.Message})

	case "chat":
		var p textPayload
		if err := json.Unmarshal(cmd.Payload, &p); err != nil {
			return result
		}
		g.HandleChat(actor, p.Text)

	case "set_notes":
		var p textPayload
		if err := json.Unmarshal(cmd.Payload, &p); err != nil {
			return result
		}
		g.Player(actor).Notes = p.Text

	case "set_death_note":
		var p textPayload
		if err := json.Unmarshal(cmd.Payload, &p); err != nil {
			return result
		}
		g.Player(actor).DeathNote = p.Text

	case "set_name":
		var p textPayload
		if err := json.Unmarshal(cmd.Payload, &p); err != nil {
			return result
		}
		if p.Text != "" && !g.modifiers.IsEnabled(game.ModRandomPlayerNames) {
			g.Player(actor).Name = p.Text
		}

	case "fast_forward":
		g.FastForwardVote(actor)
	}
	return result
}
