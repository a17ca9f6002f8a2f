package engine

import (
	"github.com/duskcourt/server/internal/game"
)

// NightState is the fold threaded through one midnight dispatch: the
// visit multiset plus every per-player night variable. It is built
// fresh each night and discarded at dawn.
type NightState struct {
	visits []game.Visit

	died        []bool
	attacked    []bool
	defense     []game.DefensePower
	roleblocked []bool
	framed      []bool
	guardedBy   []*game.PlayerRef

	convertTo []*game.Role

	graveKillers [][]game.GraveKiller
	deathNotes   [][]string
	graveWill    []string
	messages     [][]game.ChatMessage
}

func newNightState(g *Game) *NightState {
	n := len(g.players)
	ns := &NightState{
		died:         make([]bool, n),
		attacked:     make([]bool, n),
		defense:      make([]game.DefensePower, n),
		roleblocked:  make([]bool, n),
		framed:       make([]bool, n),
		guardedBy:    make([]*game.PlayerRef, n),
		convertTo:    make([]*game.Role, n),
		graveKillers: make([][]game.GraveKiller, n),
		deathNotes:   make([][]string, n),
		graveWill:    make([]string, n),
		messages:     make([][]game.ChatMessage, n),
	}
	for i, p := range g.players {
		if data := game.GetRole(p.Role); data != nil {
			ns.defense[i] = data.Defense
		}
		ns.graveWill[i] = g.alibiOf(game.PlayerRef(i))
	}
	return ns
}

// Visits returns the live multiset.
func (n *NightState) Visits() []game.Visit { return n.visits }

// AddVisit appends one visit.
func (n *NightState) AddVisit(v game.Visit) { n.visits = append(n.visits, v) }

// DefaultVisit returns the first visit the actor's role produced this
// night, or nil when the actor stayed home.
func (n *NightState) DefaultVisit(actor game.PlayerRef, role game.Role) *game.Visit {
	for i := range n.visits {
		v := &n.visits[i]
		if v.Visitor == actor && v.Tag.Role == role {
			return v
		}
	}
	return nil
}

// DefaultTargets returns every target the actor's role selected, in
// visit order.
func (n *NightState) DefaultTargets(actor game.PlayerRef, role game.Role) []game.PlayerRef {
	var out []game.PlayerRef
	for _, v := range n.visits {
		if v.Visitor == actor && v.Tag.Role == role {
			out = append(out, v.Target)
		}
	}
	return out
}

// Roleblocked reports whether the actor was blocked this night.
func (n *NightState) Roleblocked(actor game.PlayerRef) bool {
	return n.roleblocked[actor]
}

// Died reports the night-death flag.
func (n *NightState) Died(ref game.PlayerRef) bool { return n.died[ref] }

// Defense returns the player's current night defense.
func (n *NightState) Defense(ref game.PlayerRef) game.DefensePower { return n.defense[ref] }

// PushMessage queues a private message delivered when the night
// finalizes.
func (n *NightState) PushMessage(ref game.PlayerRef, msg game.ChatMessage) {
	n.messages[ref] = append(n.messages[ref], msg)
}

// roleblock suppresses a player's remaining night action: the flag
// gates their later passes and their visits leave the graph so
// watchers see them stay home. Wardblock-immune visits survive.
func (g *Game) roleblock(n *NightState, target game.PlayerRef, sendMessage bool) {
	n.roleblocked[target] = true
	kept := n.visits[:0]
	for _, v := range n.visits {
		if v.Visitor == target && !v.WardblockImmune {
			continue
		}
		kept = append(kept, v)
	}
	n.visits = kept
	if sendMessage {
		n.PushMessage(target, game.MsgRoleBlocked())
	}
}

// guardPlayer raises the target's night defense to Protected, the
// doctor-style heal.
func (g *Game) guardPlayer(n *NightState, guardian, target game.PlayerRef) {
	n.defense[target] = game.MaxDefense(n.defense[target], game.DefenseProtected)
	n.guardedBy[target] = &guardian
}

// Transport applies a target mapping over the visit graph: every visit
// whose target appears in the mapping is retargeted once. The
// predicate filters which visits may move.
func Transport(n *NightState, mapping map[game.PlayerRef]game.PlayerRef, pred func(game.Visit) bool) {
	for i := range n.visits {
		v := &n.visits[i]
		if !pred(*v) {
			continue
		}
		if to, ok := mapping[v.Target]; ok {
			v.Target = to
		}
	}
}

// nightAttack resolves one attack against one defender. Returns true
// when the attack got through the defense check.
func (g *Game) nightAttack(n *NightState, defender game.PlayerRef, attackers []game.PlayerRef, power game.AttackPower, leaveDeathNote bool, killer game.GraveKiller, sendMessages bool) bool {
	n.attacked[defender] = true
	if n.defense[defender].CanBlock(power) {
		if sendMessages {
			n.PushMessage(defender, game.MsgYouSurvivedAttack())
			for _, a := range attackers {
				n.PushMessage(a, game.MsgSomeoneSurvivedYourAttack())
			}
		}
		return false
	}
	n.graveKillers[defender] = append(n.graveKillers[defender], killer)
	if leaveDeathNote {
		for _, a := range attackers {
			if note := g.Player(a).DeathNote; note != "" {
				n.deathNotes[defender] = append(n.deathNotes[defender], note)
			}
		}
	}
	if sendMessages {
		n.PushMessage(defender, game.MsgYouWereAttacked())
		for _, a := range attackers {
			n.PushMessage(a, game.MsgYouAttackedSomeone())
		}
	}
	if g.Alive(defender) {
		n.died[defender] = true
	}
	return true
}

// resolveMidnight runs the full priority ladder over a fresh night
// state. Determinism: priorities in ladder order, abilities in table
// order within a priority, components after abilities at each
// priority, always.
func (g *Game) resolveMidnight() {
	if !g.enter() {
		return
	}
	defer g.exit()

	n := newNightState(g)
	g.collectVisits(n)

	for _, priority := range midnightLadder {
		ids := g.abilities.snapshot()
		for _, id := range ids {
			state := g.abilities.Get(id)
			if state == nil {
				continue
			}
			if l, ok := state.(midnightListener); ok {
				l.onMidnight(g, id, n, priority)
			}
		}
		g.componentsOnMidnight(n, priority)
	}
}

// collectVisits asks every ability to turn its current selections into
// visits, in table order.
func (g *Game) collectVisits(n *NightState) {
	ids := g.abilities.snapshot()
	for _, id := range ids {
		state := g.abilities.Get(id)
		if state == nil {
			continue
		}
		if vp, ok := state.(visitProducer); ok {
			for _, v := range vp.selectionVisits(g, id) {
				if g.Alive(v.Visitor) {
					n.AddVisit(v)
				}
			}
		}
	}
}

// componentsOnMidnight runs the non-ability midnight listeners at each
// priority: pending poison and the gravity modifier at Kill, the
// finalization pass at FinalizeNight.
func (g *Game) componentsOnMidnight(n *NightState, priority MidnightPriority) {
	switch priority {
	case PriorityKill:
		g.poisonOnMidnight(n)
		g.gravityOnMidnight(n)
	case PriorityFinalizeNight:
		g.finalizeNight(n)
	}
}

// gravityOnMidnight implements the AntiGravity modifier: every direct
// visitor floats away and dies, defense notwithstanding.
func (g *Game) gravityOnMidnight(n *NightState) {
	if !g.modifiers.IsAntiGravity() {
		return
	}
	seen := make(map[game.PlayerRef]bool)
	var visitors []game.PlayerRef
	for _, v := range n.visits {
		if v.Indirect || seen[v.Visitor] {
			continue
		}
		seen[v.Visitor] = true
		visitors = append(visitors, v.Visitor)
	}
	for _, visitor := range visitors {
		if n.died[visitor] {
			continue
		}
		n.PushMessage(visitor, game.MsgGravityFloatedAway())
		g.nightAttack(n, visitor, nil, game.AttackProtectionPiercing, false, game.KillerSuicide(), false)
	}
}

// finalizeNight applies conversions, turns night deaths into graves,
// and delivers the queued night messages.
func (g *Game) finalizeNight(n *NightState) {
	for _, ref := range g.AllPlayers() {
		if to := n.convertTo[ref]; to != nil && g.Alive(ref) && !n.died[ref] {
			g.setRole(ref, *to)
		}
	}
	for _, ref := range g.AllPlayers() {
		if !n.died[ref] {
			continue
		}
		p := g.Player(ref)
		cause := game.DeathCause{Kind: game.DeathCauseKillers, Killers: n.graveKillers[ref]}
		g.addGrave(game.Grave{
			Player:    ref,
			DiedPhase: string(game.PhaseNight),
			DayNumber: g.day,
			Information: game.GraveInformation{
				Role:       p.Role,
				Will:       n.graveWill[ref],
				DeathCause: cause,
				DeathNotes: n.deathNotes[ref],
			},
		})
		p.Alive = false
		g.fireAnyDeath(ref)
	}
	for _, ref := range g.AllPlayers() {
		if n.attacked[ref] && !n.died[ref] && n.guardedBy[ref] != nil {
			n.PushMessage(ref, game.ChatMessage{Variant: game.VariantYouWereGuarded, Text: "有人昨晚守护了你"})
			n.PushMessage(*n.guardedBy[ref], game.ChatMessage{Variant: game.VariantYouGuardedSomeone, Text: "你守护的人昨晚遭到了袭击"})
		}
	}
	for _, ref := range g.AllPlayers() {
		for _, msg := range n.messages[ref] {
			g.sendChat(ref, msg)
		}
	}
	g.checkGameOver()
}
