package engine

import (
	"strconv"

	"github.com/duskcourt/server/internal/controller"
	"github.com/duskcourt/server/internal/game"
)

// maxEventDepth caps listener-triggered event recursion. A listener
// firing events is legal; unbounded recursion is a bug and gets cut
// here instead of overflowing the stack.
const maxEventDepth = 16

func (g *Game) enter() bool {
	if g.depth >= maxEventDepth {
		return false
	}
	g.depth++
	return true
}

func (g *Game) exit() { g.depth-- }

// MidnightPriority orders the passes of night resolution. Lower values
// run first; every listener at one priority completes before any
// listener at the next.
type MidnightPriority int

const (
	PriorityTop MidnightPriority = iota
	PriorityWard
	PriorityRoleblock
	PriorityDeception
	PriorityTransporter
	PriorityWarper
	PriorityPossess
	PriorityLateRoleblock
	PriorityInvestigative
	PriorityHeal
	PriorityKill
	PriorityConvert
	PriorityCleanup
	PriorityFinalizeNight
)

var midnightLadder = []MidnightPriority{
	PriorityTop, PriorityWard, PriorityRoleblock, PriorityDeception,
	PriorityTransporter, PriorityWarper, PriorityPossess, PriorityLateRoleblock,
	PriorityInvestigative, PriorityHeal, PriorityKill, PriorityConvert,
	PriorityCleanup, PriorityFinalizeNight,
}

// CreationPriority orders the ability-creation ladder.
type CreationPriority int

const (
	CreationCancelOrEdit CreationPriority = iota
	CreationSetAbility
	CreationSideEffect
)

// CreationFold is the accumulator for one ability-creation event.
type CreationFold struct {
	Cancelled bool
	State     AbilityState
}

// DeletionPriority orders the ability-deletion ladder.
type DeletionPriority int

const (
	DeletionBeforeSideEffect DeletionPriority = iota
	DeletionDeleteAbility
)

// WhisperPriority orders whisper handling.
type WhisperPriority int

const (
	WhisperCancel WhisperPriority = iota
	WhisperBroadcast
	WhisperSend
)

// WhisperEvent is one attempted whisper.
type WhisperEvent struct {
	Sender   game.PlayerRef
	Receiver game.PlayerRef
	Message  string
}

// WhisperFold is the accumulator threaded through a whisper dispatch.
// Cancelled suppresses the send; HideBroadcast suppresses only the
// public "X whispers to Y" notice.
type WhisperFold struct {
	Cancelled     bool
	HideBroadcast bool
}

// fireWhisper runs the Cancel → Broadcast → Send ladder over the
// ability table, then the built-in modifier and delivery listeners.
func (g *Game) fireWhisper(ev WhisperEvent) {
	if !g.enter() {
		return
	}
	defer g.exit()

	fold := &WhisperFold{}
	for _, priority := range []WhisperPriority{WhisperCancel, WhisperBroadcast, WhisperSend} {
		ids := g.abilities.snapshot()
		for _, id := range ids {
			state := g.abilities.Get(id)
			if state == nil {
				continue
			}
			if l, ok := state.(whisperListener); ok {
				l.onWhisper(g, id, &ev, fold, priority)
			}
		}
		g.whisperModifiers(&ev, fold, priority)
		if priority == WhisperBroadcast && !fold.Cancelled && !fold.HideBroadcast {
			g.broadcastChat(game.ChatMessage{
				Variant: game.VariantBroadcastWhisper,
				Data: map[string]string{
					"sender":   itoa(int(ev.Sender)),
					"receiver": itoa(int(ev.Receiver)),
				},
			})
		}
		if priority == WhisperSend && !fold.Cancelled {
			msg := game.ChatMessage{
				Variant: game.VariantWhisper,
				Text:    ev.Message,
				Data:    map[string]string{"sender": itoa(int(ev.Sender))},
			}
			g.sendChat(ev.Receiver, msg)
			g.sendChat(ev.Sender, msg)
		}
	}
}

func (g *Game) whisperModifiers(ev *WhisperEvent, fold *WhisperFold, priority WhisperPriority) {
	switch priority {
	case WhisperCancel:
		if g.modifiers.IsEnabled(game.ModNoWhispers) {
			fold.Cancelled = true
		}
		if !g.Alive(ev.Sender) && !g.modifiers.IsEnabled(game.ModDeadCanChat) {
			fold.Cancelled = true
		}
		if g.silenced[ev.Sender] {
			fold.Cancelled = true
		}
	case WhisperBroadcast:
		if g.modifiers.IsEnabled(game.ModHiddenWhispers) {
			fold.HideBroadcast = true
		}
	}
}

// ControllerInput is one already-decoded client input.
type ControllerInput struct {
	ID        controller.ID
	Selection controller.Selection
}

// HandleControllerInput applies one untrusted input: raw-input
// bookkeeping, validated write, change events, controller rebuild and
// the phase machine's reaction, in that order. Invalid inputs mutate
// nothing and fire nothing past the raw-input event.
func (g *Game) HandleControllerInput(actor game.PlayerRef, in ControllerInput) {
	if g.finished {
		return
	}
	g.fireControllerInputReceived(actor, in)

	old, ok := g.controllers.SetSelection(in.ID, in.Selection, &actor, false)
	if !ok {
		return
	}
	g.fireControllerChanged(in.ID, old, in.Selection)
	if !old.Equal(in.Selection) {
		g.fireControllerSelectionChanged(in.ID)
	}
	g.fireValidatedControllerInputReceived(actor, in)
}

// SetSelectionForced is the engine-internal write path: components use
// it to overwrite a selection regardless of actor permission. It still
// validates and still fires the change events.
func (g *Game) SetSelectionForced(id controller.ID, sel controller.Selection) {
	old, ok := g.controllers.SetSelection(id, sel, nil, true)
	if !ok {
		return
	}
	g.fireControllerChanged(id, old, sel)
	if !old.Equal(sel) {
		g.fireControllerSelectionChanged(id)
	}
}

// fireControllerInputReceived is raw-input bookkeeping only. Game
// state listeners subscribe to the validated event instead; keeping
// the two audiences disjoint avoids double-applied inputs.
func (g *Game) fireControllerInputReceived(actor game.PlayerRef, in ControllerInput) {
	g.inputsSeen++
}

// InputsSeen counts every raw controller input this game received,
// valid or not.
func (g *Game) InputsSeen() int64 { return g.inputsSeen }

func (g *Game) fireValidatedControllerInputReceived(actor game.PlayerRef, in ControllerInput) {
	if !g.enter() {
		return
	}
	defer g.exit()
	ids := g.abilities.snapshot()
	for _, id := range ids {
		state := g.abilities.Get(id)
		if state == nil {
			continue
		}
		if l, ok := state.(validatedInputListener); ok {
			l.onValidatedControllerInput(g, id, actor, in.ID)
		}
	}
}

// fireControllerChanged reflects a write back to the players who may
// use the controller, so their clients stay in sync.
func (g *Game) fireControllerChanged(id controller.ID, old, new controller.Selection) {
	e := g.controllers.Get(id)
	if e == nil {
		return
	}
	for _, ref := range e.Params.Allowed {
		g.sendPacket(ref, PacketControllerState, map[string]any{
			"id":        id,
			"selection": new,
		})
	}
}

// fireControllerSelectionChanged recomputes everything derived from
// selections: the controller set itself and the nomination tally.
func (g *Game) fireControllerSelectionChanged(id controller.ID) {
	if !g.enter() {
		return
	}
	defer g.exit()
	g.rebuildControllers()
	if id.Kind == controller.IDNominate {
		g.announceVote(id)
		g.countNominations()
	}
}

// announceVote broadcasts who voted for whom. HiddenNominationVotes
// suppresses the broadcast without touching the tally.
func (g *Game) announceVote(id controller.ID) {
	if g.modifiers.IsEnabled(game.ModHiddenNominationVotes) {
		return
	}
	sel := g.controllers.Selection(id)
	if sel.Kind != controller.SelectOnePlayer {
		return
	}
	if sel.Player == nil {
		g.broadcastChat(game.ChatMessage{
			Variant: game.VariantVoteRetracted,
			Data:    map[string]string{"voter": itoa(int(id.Player))},
		})
		return
	}
	g.broadcastChat(game.ChatMessage{
		Variant: game.VariantVoted,
		Data: map[string]string{
			"voter": itoa(int(id.Player)),
			"votee": itoa(int(*sel.Player)),
		},
	})
}

// fireAnyDeath notifies components and abilities after a player died
// and their grave exists.
func (g *Game) fireAnyDeath(dead game.PlayerRef) {
	if !g.enter() {
		return
	}
	defer g.exit()
	g.cultSacrifices++
	g.syndicateGunOnDeath(dead)
	ids := g.abilities.snapshot()
	for _, id := range ids {
		state := g.abilities.Get(id)
		if state == nil {
			continue
		}
		if l, ok := state.(anyDeathListener); ok {
			l.onAnyDeath(g, id, dead)
		}
	}
}

func itoa(i int) string { return strconv.Itoa(i) }
