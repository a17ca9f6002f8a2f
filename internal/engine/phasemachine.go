package engine

import (
	"github.com/duskcourt/server/internal/controller"
	"github.com/duskcourt/server/internal/game"
)

// PhaseState is the current phase plus its per-variant data. OnTrial
// is only meaningful for Testimony, Judgement and FinalWords.
type PhaseState struct {
	Kind    game.PhaseKind  `json:"kind"`
	OnTrial *game.PlayerRef `json:"on_trial,omitempty"`
}

func trialPhase(kind game.PhaseKind, onTrial game.PlayerRef) PhaseState {
	return PhaseState{Kind: kind, OnTrial: &onTrial}
}

// nextPhase returns the canonical successor of the current phase, the
// one taken when the time budget runs out.
func (g *Game) nextPhase() PhaseState {
	switch g.phase.Kind {
	case game.PhaseBriefing:
		return PhaseState{Kind: game.PhaseDusk}
	case game.PhaseDusk:
		return PhaseState{Kind: game.PhaseNight}
	case game.PhaseNight:
		return PhaseState{Kind: game.PhaseObituary}
	case game.PhaseObituary:
		return PhaseState{Kind: game.PhaseDiscussion}
	case game.PhaseDiscussion:
		return PhaseState{Kind: game.PhaseNomination}
	case game.PhaseNomination:
		return PhaseState{Kind: game.PhaseDusk}
	case game.PhaseTestimony:
		return trialPhase(game.PhaseJudgement, *g.phase.OnTrial)
	case game.PhaseJudgement:
		// The verdict count picks the successor here; beforePhaseEnd
		// only records the guilty votes.
		return g.judgementSuccessor()
	case game.PhaseFinalWords:
		return PhaseState{Kind: game.PhaseDusk}
	default:
		return PhaseState{Kind: game.PhaseRecess}
	}
}

// advancePhase replaces the phase: BeforePhaseEnd fires on the old
// phase, the phase swaps, then OnPhaseStart fires on the new one.
func (g *Game) advancePhase(next PhaseState) {
	if g.finished {
		return
	}
	g.beforePhaseEnd(g.phase)
	if g.finished {
		return
	}
	if g.phase.Kind == game.PhaseNight {
		g.resolveMidnight()
		if g.finished {
			return
		}
	}
	g.phase = next
	g.timeRemaining = g.budgets[next.Kind]
	if next.Kind == game.PhaseObituary {
		g.day++
	}
	g.firePhaseStart(next)
}

func (g *Game) beforePhaseEnd(old PhaseState) {
	if !g.enter() {
		return
	}
	defer g.exit()
	switch old.Kind {
	case game.PhaseJudgement:
		g.commitVerdicts(old)
	case game.PhaseFinalWords:
		if old.OnTrial != nil {
			g.executePlayer(*old.OnTrial)
		}
	}
}

// firePhaseStart runs phase-start bookkeeping in the canonical order:
// controller resets first, then components, then abilities, then the
// controller rebuild and the phase announcement, then modifier
// short-circuits. Modifiers acting here run before the default
// transition can double-advance.
func (g *Game) firePhaseStart(phase PhaseState) {
	if !g.enter() {
		return
	}
	defer g.exit()

	g.controllers.ResetOnPhaseStart(phase.Kind)
	g.componentsOnPhaseStart(phase)

	ids := g.abilities.snapshot()
	for _, id := range ids {
		state := g.abilities.Get(id)
		if state == nil {
			continue
		}
		if l, ok := state.(phaseStartListener); ok {
			l.onPhaseStart(g, id, phase)
		}
	}

	for _, ref := range g.AllPlayers() {
		g.fastForward[ref] = false
	}
	g.rebuildControllers()
	g.componentsAfterControllersRebuilt(phase)
	g.announcePhase()

	g.modifierPhaseStart(phase)
}

// modifierPhaseStart applies phase short-circuit modifiers after the
// phase is announced so clients see the skipped phase flash by in
// order.
func (g *Game) modifierPhaseStart(phase PhaseState) {
	switch phase.Kind {
	case game.PhaseDiscussion:
		if g.modifiers.IsEnabled(game.ModSkipDay1) && g.day == 1 {
			g.advancePhase(PhaseState{Kind: game.PhaseDusk})
		}
	case game.PhaseTestimony:
		if g.modifiers.IsEnabled(game.ModNoTrialPhases) && phase.OnTrial != nil {
			g.executePlayer(*phase.OnTrial)
			if !g.finished {
				g.advancePhase(PhaseState{Kind: game.PhaseDusk})
			}
		}
	case game.PhaseJudgement:
		if g.modifiers.IsEnabled(game.ModAutoGuilty) && phase.OnTrial != nil {
			g.advancePhase(trialPhase(game.PhaseFinalWords, *phase.OnTrial))
		}
	}
}

// FastForwardVote records one player's wish to skip the rest of the
// phase. When every living connected player agrees, the phase advances
// immediately.
func (g *Game) FastForwardVote(ref game.PlayerRef) {
	if g.finished || !g.Alive(ref) {
		return
	}
	g.fastForward[ref] = true
	for _, p := range g.LivingPlayers() {
		if !g.fastForward[p] && g.Player(p).Conn.CanReceive() {
			return
		}
	}
	g.OnFastForward()
}

// OnFastForward forces the phase to its canonical end immediately.
func (g *Game) OnFastForward() {
	if g.finished {
		return
	}
	g.advancePhase(g.nextPhase())
}

// votingPower computes one player's nomination weight: zero when dead
// or forfeited, otherwise one plus any enfranchisement.
func (g *Game) votingPower(ref game.PlayerRef) int {
	if !g.Alive(ref) || g.forfeited[ref] {
		return 0
	}
	return 1 + g.enfranchised[ref]
}

func (g *Game) livingVotingPower() int {
	total := 0
	for _, ref := range g.LivingPlayers() {
		total += g.votingPower(ref)
	}
	return total
}

// nominationThreshold returns the weight needed to open a trial:
// strict majority by default, two-thirds (rounded up) under the
// TwoThirdsMajority modifier.
func (g *Game) nominationThreshold() int {
	lv := g.livingVotingPower()
	if g.modifiers.IsEnabled(game.ModTwoThirdsMajority) {
		return (2*lv + 2) / 3
	}
	return lv/2 + 1
}

// countNominations tallies every living player's Nominate selection
// and opens a trial when a candidate reaches the threshold.
func (g *Game) countNominations() {
	if g.phase.Kind != game.PhaseNomination && !g.modifiers.IsEnabled(game.ModUnscheduledNominations) {
		return
	}
	if g.modifiers.IsEnabled(game.ModNoMajority) {
		return
	}
	tally := make(map[game.PlayerRef]int)
	for _, voter := range g.LivingPlayers() {
		sel := g.controllers.Selection(controller.NominateID(voter))
		if sel.Kind != controller.SelectOnePlayer || sel.Player == nil {
			continue
		}
		tally[*sel.Player] += g.votingPower(voter)
	}
	threshold := g.nominationThreshold()
	for _, candidate := range g.AllPlayers() {
		if tally[candidate] >= threshold && g.Alive(candidate) {
			g.beginTrial(candidate)
			return
		}
	}
}

func (g *Game) beginTrial(candidate game.PlayerRef) {
	g.broadcastChat(game.ChatMessage{
		Variant: game.VariantTrialBegin,
		Text:    g.Player(candidate).Name + " 被送上了审判席",
		Data:    map[string]string{"player": itoa(int(candidate))},
	})
	g.advancePhase(trialPhase(game.PhaseTestimony, candidate))
}

// Verdict values stored in the Judge controller's integer selection.
const (
	VerdictInnocent = -1
	VerdictAbstain  = 0
	VerdictGuilty   = 1
)

// judgementSuccessor counts verdicts and picks FinalWords on a guilty
// majority, Dusk otherwise.
func (g *Game) judgementSuccessor() PhaseState {
	if g.phase.OnTrial == nil {
		return PhaseState{Kind: game.PhaseDusk}
	}
	guilty, innocent := g.countVerdicts()
	if guilty > innocent {
		return trialPhase(game.PhaseFinalWords, *g.phase.OnTrial)
	}
	return PhaseState{Kind: game.PhaseDusk}
}

func (g *Game) countVerdicts() (guilty, innocent int) {
	for _, voter := range g.LivingPlayers() {
		if g.phase.OnTrial != nil && voter == *g.phase.OnTrial {
			continue
		}
		sel := g.controllers.Selection(controller.JudgeID(voter))
		if sel.Kind != controller.SelectInteger {
			continue
		}
		switch sel.Integer {
		case VerdictGuilty:
			guilty += g.votingPower(voter)
		case VerdictInnocent:
			innocent += g.votingPower(voter)
		}
	}
	return guilty, innocent
}

// commitVerdicts records who voted guilty during this trial; the
// verdicts-today component keeps them until Obituary clears it.
func (g *Game) commitVerdicts(old PhaseState) {
	if old.OnTrial == nil {
		return
	}
	onTrial := *old.OnTrial
	var guilties []game.PlayerRef
	for _, voter := range g.LivingPlayers() {
		sel := g.controllers.Selection(controller.JudgeID(voter))
		if sel.Kind == controller.SelectInteger && sel.Integer == VerdictGuilty {
			guilties = append(guilties, voter)
		}
	}
	g.verdictsToday[onTrial] = guilties
	if !g.modifiers.IsEnabled(game.ModHiddenVerdictVotes) {
		for _, voter := range guilties {
			g.broadcastChat(game.ChatMessage{
				Variant: game.VariantVerdict,
				Data:    map[string]string{"voter": itoa(int(voter)), "verdict": "guilty"},
			})
		}
	}
}

// executePlayer carries out a conviction: an execution grave, death,
// and the death events.
func (g *Game) executePlayer(ref game.PlayerRef) {
	p := g.Player(ref)
	if p == nil || !p.Alive {
		return
	}
	g.lastExecuted = &ref
	cause := game.DeathCause{Kind: game.DeathCauseExecution}
	if g.modifiers.IsEnabled(game.ModNoDeathCause) {
		cause = game.DeathCause{Kind: game.DeathCauseNone}
	}
	g.addGrave(game.Grave{
		Player:    ref,
		DiedPhase: string(g.phase.Kind),
		DayNumber: g.day,
		Information: game.GraveInformation{
			Role:       p.Role,
			Will:       g.alibiOf(ref),
			DeathCause: cause,
			DeathNotes: nil,
		},
	})
	p.Alive = false
	g.fireAnyDeath(ref)
	g.checkGameOver()
}
