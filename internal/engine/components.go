package engine

import (
	"github.com/duskcourt/server/internal/controller"
	"github.com/duskcourt/server/internal/game"
)

// --- Insider groups ---

// InSameGroup reports whether two players share any insider group, the
// predicate evil controllers use to exclude allies as targets.
func (g *Game) InSameGroup(a, b game.PlayerRef) bool {
	for _, group := range game.InsiderGroups {
		if g.insiders[group][a] && g.insiders[group][b] {
			return true
		}
	}
	return false
}

// InsiderGroupMembers returns group membership in index order.
func (g *Game) InsiderGroupMembers(group game.InsiderGroup) []game.PlayerRef {
	var out []game.PlayerRef
	for _, ref := range g.AllPlayers() {
		if g.insiders[group][ref] {
			out = append(out, ref)
		}
	}
	return out
}

func (g *Game) AddInsider(ref game.PlayerRef, group game.InsiderGroup) {
	if g.insiders[group][ref] {
		return
	}
	g.insiders[group][ref] = true
	// New insiders learn their fellows and vice versa.
	for _, member := range g.InsiderGroupMembers(group) {
		if member == ref {
			continue
		}
		g.Player(member).KnowsRoleOf[ref] = true
		g.Player(ref).KnowsRoleOf[member] = true
	}
	g.sendChatGroups(ref)
}

func (g *Game) RemoveInsider(ref game.PlayerRef, group game.InsiderGroup) {
	if !g.insiders[group][ref] {
		return
	}
	delete(g.insiders[group], ref)
	g.sendChatGroups(ref)
}

// --- Graves ---

// Graves returns the append-only grave list.
func (g *Game) Graves() []game.Grave { return g.graves }

// Grave resolves a reference; out-of-range refs return nil.
func (g *Game) Grave(ref game.GraveRef) *game.Grave {
	if int(ref) < 0 || int(ref) >= len(g.graves) {
		return nil
	}
	return &g.graves[ref]
}

// addGrave appends a grave, applies the grave-rewriting modifiers,
// broadcasts it, and conceals the deceased's role from everyone who
// had learned it.
func (g *Game) addGrave(grave game.Grave) {
	if g.modifiers.IsEnabled(game.ModRoleSetGraveKillers) && grave.Information.DeathCause.Kind == game.DeathCauseKillers {
		killers := grave.Information.DeathCause.Killers
		for i, k := range killers {
			if k.Kind == game.GraveKillerRole {
				killers[i] = game.KillerRoleSet(game.RoleSetOf(k.Role))
			}
		}
	}
	if g.modifiers.IsEnabled(game.ModNoDeathCause) {
		grave.Information.DeathCause = game.DeathCause{Kind: game.DeathCauseNone}
	}
	if g.modifiers.IsEnabled(game.ModObscuredGraves) {
		grave.Information = game.GraveInformation{Obscured: true}
	}
	g.graves = append(g.graves, grave)
	ref := game.GraveRef(len(g.graves) - 1)

	g.broadcastPacket(PacketAddGrave, map[string]any{
		"grave":     grave,
		"grave_ref": ref,
	})
	g.broadcastChat(game.ChatMessage{
		Variant: game.VariantPlayerDied,
		Text:    g.Player(grave.Player).Name + " 死了",
		Data:    map[string]string{"player": itoa(int(grave.Player))},
	})
	g.concealRole(grave.Player)
}

// concealRole removes a player from everyone's learned-role sets and
// refreshes the affected viewers' labels.
func (g *Game) concealRole(ref game.PlayerRef) {
	for _, viewer := range g.AllPlayers() {
		p := g.Player(viewer)
		if p.KnowsRoleOf[ref] {
			delete(p.KnowsRoleOf, ref)
			g.sendRoleLabels(viewer)
		}
	}
}

// RevealRole teaches the viewer the target's current role, e.g. after
// an investigative reveal.
func (g *Game) RevealRole(viewer, target game.PlayerRef) {
	g.Player(viewer).KnowsRoleOf[target] = true
	g.sendRoleLabels(viewer)
}

// --- Enfranchise ---

func (g *Game) enfranchise(ref game.PlayerRef, additionalVotes int) {
	g.enfranchised[ref] = additionalVotes
	g.broadcastChat(game.ChatMessage{
		Variant: game.VariantPlayerEnfranchised,
		Text:    g.Player(ref).Name + " 的选票变重了",
		Data:    map[string]string{"player": itoa(int(ref))},
	})
	g.countNominations()
}

func (g *Game) unenfranchise(ref game.PlayerRef) {
	delete(g.enfranchised, ref)
}

// Enfranchised reports whether the player carries extra votes; the
// flag is always public.
func (g *Game) Enfranchised(ref game.PlayerRef) bool {
	_, ok := g.enfranchised[ref]
	return ok
}

// --- Pitchfork item ---

func (g *Game) givePitchfork(ref game.PlayerRef) {
	g.pitchfork[ref] = true
	if !g.abilities.has(PitchforkID()) {
		g.createAbility(PitchforkID(), &PitchforkState{})
	}
}

func (g *Game) removePitchfork(ref game.PlayerRef) {
	delete(g.pitchfork, ref)
	for _, other := range g.AllPlayers() {
		if g.pitchfork[other] {
			return
		}
	}
	g.deleteAbility(PitchforkID())
}

// pitchforkHolders lists living, unblocked item holders in index
// order.
func (g *Game) pitchforkHolders(n *NightState) []game.PlayerRef {
	var out []game.PlayerRef
	for _, ref := range g.AllPlayers() {
		if g.pitchfork[ref] && g.Alive(ref) && (n == nil || !n.Roleblocked(ref)) {
			out = append(out, ref)
		}
	}
	return out
}

// PitchforkState is the global mob-kill ability: every holder votes a
// target; a unanimous mob attacks with armor-piercing force.
type PitchforkState struct{}

func (s *PitchforkState) controllerParameters(g *Game, id AbilityID, m *controller.ParametersMap) {
	for _, holder := range g.AllPlayers() {
		if !g.pitchfork[holder] {
			continue
		}
		m.Insert(controller.PitchforkVoteID(holder),
			nightTypical(g, holder, controller.AvailableOnePlayer(g.livingExcept(holder), true), false))
	}
}

func (s *PitchforkState) onMidnight(g *Game, id AbilityID, n *NightState, priority MidnightPriority) {
	if priority != PriorityKill {
		return
	}
	holders := g.pitchforkHolders(n)
	if len(holders) == 0 {
		return
	}
	var target *game.PlayerRef
	for _, holder := range holders {
		sel := g.controllers.Selection(controller.PitchforkVoteID(holder))
		if sel.Kind != controller.SelectOnePlayer || sel.Player == nil {
			return
		}
		if target == nil {
			target = sel.Player
		} else if *target != *sel.Player {
			return
		}
	}
	if target == nil || n.Died(*target) {
		return
	}
	g.nightAttack(n, *target, holders, game.AttackArmorPiercing, false, game.KillerRoleSet(game.RoleSetTown), true)
}

// --- Syndicate gun ---

// SyndicateGunState arms one mafia insider with the family's kill
// after the Mafioso falls.
type SyndicateGunState struct {
	Holder game.PlayerRef `json:"holder"`
}

func (s *SyndicateGunState) controllerParameters(g *Game, id AbilityID, m *controller.ParametersMap) {
	m.Insert(controller.SyndicateGunVoteID(),
		nightTypical(g, s.Holder, controller.AvailableOnePlayer(g.livingOutsideGroup(s.Holder), true), g.day <= 1))
}

func (s *SyndicateGunState) selectionVisits(g *Game, id AbilityID) []game.Visit {
	sel := g.controllers.Selection(controller.SyndicateGunVoteID())
	if sel.Kind != controller.SelectOnePlayer || sel.Player == nil {
		return nil
	}
	return []game.Visit{{Visitor: s.Holder, Target: *sel.Player, Attack: true, Tag: game.VisitTag{Role: game.RoleMafioso, Slot: 1}}}
}

func (s *SyndicateGunState) onMidnight(g *Game, id AbilityID, n *NightState, priority MidnightPriority) {
	if priority != PriorityKill || g.day <= 1 || n.Roleblocked(s.Holder) {
		return
	}
	v := n.DefaultVisit(s.Holder, game.RoleMafioso)
	if v == nil {
		return
	}
	g.nightAttack(n, v.Target, []game.PlayerRef{s.Holder}, game.AttackBasic, true, game.KillerRoleSet(game.RoleSetMafia), true)
}

// syndicateGunOnDeath hands the gun to the first living mafia insider
// when the Mafioso dies and nobody holds it yet.
func (g *Game) syndicateGunOnDeath(dead game.PlayerRef) {
	if g.Player(dead).Role != game.RoleMafioso || g.abilities.has(SyndicateGunID()) {
		return
	}
	for _, ref := range g.InsiderGroupMembers(game.InsiderMafia) {
		if ref != dead && g.Alive(ref) {
			g.createAbility(SyndicateGunID(), &SyndicateGunState{Holder: ref})
			return
		}
	}
}

// --- Silenced ---

func (g *Game) silenceNight(n *NightState, ref game.PlayerRef) {
	g.silenced[ref] = true
	n.PushMessage(ref, game.MsgSilenced())
	g.sendChatGroups(ref)
}

// Silenced reports whether the player is currently silenced.
func (g *Game) Silenced(ref game.PlayerRef) bool { return g.silenced[ref] }

// --- Poison ---

type poisonEntry struct {
	Player game.PlayerRef   `json:"player"`
	Power  game.AttackPower `json:"power"`
	Killer game.GraveKiller `json:"killer"`
}

// PoisonPlayer queues a pending poison attack that fires at the next
// Kill pass. Unlike a direct attack it carries no visit, so heals
// raised after the poisoning still count at resolution time.
func (g *Game) PoisonPlayer(ref game.PlayerRef, power game.AttackPower, killer game.GraveKiller, alert bool) {
	g.poison = append(g.poison, poisonEntry{Player: ref, Power: power, Killer: killer})
	if alert {
		g.sendChat(ref, game.MsgPoisoned())
	}
}

func (g *Game) poisonOnMidnight(n *NightState) {
	pending := g.poison
	g.poison = nil
	for _, entry := range pending {
		if !g.Alive(entry.Player) {
			continue
		}
		g.nightAttack(n, entry.Player, nil, entry.Power, false, entry.Killer, true)
	}
}

// --- Cult sacrifices ---

func (g *Game) enoughSacrifices() bool { return g.cultSacrifices >= 2 }

func (g *Game) useSacrifices() {
	g.cultSacrifices -= 2
	if g.cultSacrifices < 0 {
		g.cultSacrifices = 0
	}
}

// cultCanKillTonight gates the zealot: the cult only kills after a day
// without an execution.
func (g *Game) cultCanKillTonight() bool { return g.lastExecuted == nil }

// --- Alibi ---

// alibiOf reads the player's standing alibi text; it becomes the grave
// will when they die at night.
func (g *Game) alibiOf(ref game.PlayerRef) string {
	sel := g.controllers.Selection(controller.AlibiID(ref))
	if sel.Kind == controller.SelectString {
		return sel.String
	}
	return ""
}

// --- Chat gating ---

// sendableChatGroups computes which audiences a player may write to
// right now.
func (g *Game) sendableChatGroups(ref game.PlayerRef) []game.ChatGroup {
	if g.modifiers.IsEnabled(game.ModNoChat) || g.silenced[ref] {
		return nil
	}
	p := g.Player(ref)
	if !p.Alive {
		if g.modifiers.IsEnabled(game.ModDeadCanChat) {
			return []game.ChatGroup{game.ChatDead}
		}
		return nil
	}
	var groups []game.ChatGroup
	if g.phase.Kind.IsDay() {
		groups = append(groups, game.ChatAll)
	}
	if g.phase.Kind == game.PhaseNight && !g.modifiers.IsEnabled(game.ModNoNightChat) {
		if g.insiders[game.InsiderMafia][ref] {
			groups = append(groups, game.ChatMafia)
		}
		if g.insiders[game.InsiderCult][ref] {
			groups = append(groups, game.ChatCult)
		}
	}
	return groups
}

// HandleChat routes a free-text chat line, honoring silence, phase and
// modifier gates. Dead players chatting for the first time under
// DeadCanChat get the one-time reminder.
func (g *Game) HandleChat(ref game.PlayerRef, message string) {
	if g.finished || message == "" {
		return
	}
	groups := g.sendableChatGroups(ref)
	if len(groups) == 0 {
		return
	}
	p := g.Player(ref)
	if !p.Alive && !g.deadPlayNotice[ref] {
		g.deadPlayNotice[ref] = true
		g.sendChat(ref, game.MsgDeadCanStillPlay())
	}
	msg := game.ChatMessage{
		Variant: game.VariantPlayerChat,
		Text:    message,
		Data:    map[string]string{"sender": itoa(int(ref)), "group": string(groups[0])},
	}
	switch groups[0] {
	case game.ChatAll:
		g.broadcastChat(msg)
	case game.ChatDead:
		for _, other := range g.AllPlayers() {
			if !g.Alive(other) {
				g.sendChat(other, msg)
			}
		}
	case game.ChatMafia, game.ChatCult:
		group := game.InsiderMafia
		if groups[0] == game.ChatCult {
			group = game.InsiderCult
		}
		for _, member := range g.InsiderGroupMembers(group) {
			g.sendChat(member, msg)
		}
	}
}

// --- Phase-start component hooks ---

// componentsOnPhaseStart runs before ability listeners, one case per
// phase: Obituary clears the day's verdicts and last execution, Night
// lifts silences, Nomination locks forfeited votes, Dusk clears them.
// Trial witness handling runs later, in componentsAfterControllersRebuilt.
func (g *Game) componentsOnPhaseStart(phase PhaseState) {
	switch phase.Kind {
	case game.PhaseObituary:
		g.verdictsToday = make(map[game.PlayerRef][]game.PlayerRef)
		g.lastExecuted = nil
	case game.PhaseNight:
		for _, ref := range g.AllPlayers() {
			if g.silenced[ref] {
				delete(g.silenced, ref)
				g.sendChatGroups(ref)
			}
		}
	case game.PhaseNomination:
		if g.modifiers.IsEnabled(game.ModForfeitNominationVote) {
			for _, ref := range g.LivingPlayers() {
				sel := g.controllers.Selection(controller.ForfeitVoteID(ref))
				if sel.Kind == controller.SelectBoolean && sel.Boolean {
					g.forfeited[ref] = true
				}
			}
		}
	case game.PhaseDusk:
		g.forfeited = make(map[game.PlayerRef]bool)
	}
}

// componentsAfterControllersRebuilt runs phase-start hooks that write
// into controllers and therefore need the rebuilt set.
func (g *Game) componentsAfterControllersRebuilt(phase PhaseState) {
	if phase.Kind == game.PhaseTestimony && phase.OnTrial != nil && g.silenced[*phase.OnTrial] {
		// A silenced defendant cannot speak for themselves; every living
		// player is called as a witness instead.
		g.SetSelectionForced(controller.CallWitnessID(*phase.OnTrial), controller.PlayerList(g.LivingPlayers()...))
	}
}

// --- Controller rebuild ---

// rebuildControllers recomputes the full controller set: every live
// ability contributes first in table order, then the game-level day
// controllers in a fixed order. Surviving selections are preserved
// when they still validate.
func (g *Game) rebuildControllers() {
	m := controller.NewParametersMap()
	for _, id := range g.abilities.snapshot() {
		state := g.abilities.Get(id)
		if state == nil {
			continue
		}
		if c, ok := state.(controllerContributor); ok {
			c.controllerParameters(g, id, m)
		}
	}
	g.nominationControllerParameters(m)
	g.judgementControllerParameters(m)
	g.alibiControllerParameters(m)
	g.forfeitControllerParameters(m)
	g.callWitnessControllerParameters(m)
	g.controllers.Rebuild(m)
}

func (g *Game) nominationControllerParameters(m *controller.ParametersMap) {
	open := g.phase.Kind == game.PhaseNomination ||
		(g.modifiers.IsEnabled(game.ModUnscheduledNominations) && g.phase.Kind.IsDay())
	for _, ref := range g.AllPlayers() {
		grayed := !open || !g.Alive(ref) || g.forfeited[ref]
		m.Insert(controller.NominateID(ref), controller.Parameters{
			Available:    controller.AvailableOnePlayer(g.LivingPlayers(), true),
			Grayed:       grayed,
			ResetOnPhase: game.PhaseDusk,
			Default:      controller.NoPlayer(),
			Allowed:      []game.PlayerRef{ref},
		})
	}
}

func (g *Game) judgementControllerParameters(m *controller.ParametersMap) {
	// Abstaining keeps the default verdict neutral; otherwise a player
	// who never touches the controller counts as innocent.
	def := controller.Integer(VerdictInnocent)
	if g.modifiers.IsEnabled(game.ModAbstaining) {
		def = controller.Integer(VerdictAbstain)
	}
	for _, ref := range g.AllPlayers() {
		onTrial := g.phase.OnTrial != nil && *g.phase.OnTrial == ref
		grayed := g.phase.Kind != game.PhaseJudgement || !g.Alive(ref) || onTrial
		m.Insert(controller.JudgeID(ref), controller.Parameters{
			Available:    controller.AvailableInteger(VerdictInnocent, VerdictGuilty),
			Grayed:       grayed,
			ResetOnPhase: game.PhaseObituary,
			Default:      def,
			Allowed:      []game.PlayerRef{ref},
		})
	}
}

func (g *Game) alibiControllerParameters(m *controller.ParametersMap) {
	for _, ref := range g.AllPlayers() {
		m.Insert(controller.AlibiID(ref), controller.Parameters{
			Available: controller.AvailableString(),
			Grayed:    !g.Alive(ref),
			Default:   controller.String(""),
			Allowed:   []game.PlayerRef{ref},
		})
	}
}

func (g *Game) forfeitControllerParameters(m *controller.ParametersMap) {
	if !g.modifiers.IsEnabled(game.ModForfeitNominationVote) {
		return
	}
	for _, ref := range g.AllPlayers() {
		m.Insert(controller.ForfeitVoteID(ref), controller.Parameters{
			Available:    controller.AvailableBoolean(),
			Grayed:       !g.Alive(ref) || g.phase.Kind != game.PhaseDiscussion,
			ResetOnPhase: game.PhaseObituary,
			Default:      controller.Boolean(false),
			Allowed:      []game.PlayerRef{ref},
		})
	}
}

func (g *Game) callWitnessControllerParameters(m *controller.ParametersMap) {
	if g.phase.OnTrial == nil {
		return
	}
	onTrial := *g.phase.OnTrial
	m.Insert(controller.CallWitnessID(onTrial), controller.Parameters{
		Available: controller.AvailablePlayerList(g.LivingPlayers(), 0, false),
		Grayed:    g.phase.Kind != game.PhaseTestimony,
		Default:   controller.PlayerList(),
		Allowed:   []game.PlayerRef{onTrial},
	})
}

// --- Game over ---

// checkGameOver ends the game once every living player is friends with
// every other: the shared acceptable conclusion wins.
func (g *Game) checkGameOver() {
	if g.finished {
		return
	}
	living := g.LivingPlayers()
	for i := 0; i < len(living); i++ {
		for j := i + 1; j < len(living); j++ {
			if !g.Player(living[i]).WinCond.FriendsWith(g.Player(living[j]).WinCond) {
				return
			}
		}
	}
	conclusion := game.ConclusionDraw
	for _, c := range []game.Conclusion{game.ConclusionTown, game.ConclusionMafia, game.ConclusionCult} {
		all := len(living) > 0
		for _, ref := range living {
			if !g.Player(ref).WinCond.FriendsWithConclusion(c) {
				all = false
				break
			}
		}
		if all {
			conclusion = c
			break
		}
	}
	g.finished = true
	g.ending = conclusion
	g.phase = PhaseState{Kind: game.PhaseRecess}
	g.timeRemaining = 0
	g.broadcastPacket(PacketGameOver, map[string]any{"reason": conclusion})
}
