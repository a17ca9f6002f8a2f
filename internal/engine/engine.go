// Package engine implements the game simulation core: the phase state
// machine, the ability table, the priority-ordered event dispatch, the
// night resolver and the cross-cutting components (graves, insider
// groups, enfranchisement, silence, poison, verdicts). One Game value
// is owned by exactly one goroutine; nothing in here locks.
package engine

import (
	"math/rand"

	"github.com/duskcourt/server/internal/controller"
	"github.com/duskcourt/server/internal/game"
)

// PhaseBudgets maps each phase kind to its time budget in seconds.
// Zero means the phase is untimed and only advances by force.
type PhaseBudgets map[game.PhaseKind]int

// DefaultPhaseBudgets mirrors the pacing of a casual lobby.
func DefaultPhaseBudgets() PhaseBudgets {
	return PhaseBudgets{
		game.PhaseBriefing:   20,
		game.PhaseObituary:   10,
		game.PhaseDiscussion: 120,
		game.PhaseNomination: 60,
		game.PhaseTestimony:  30,
		game.PhaseJudgement:  30,
		game.PhaseFinalWords: 10,
		game.PhaseDusk:       10,
		game.PhaseNight:      60,
	}
}

// Settings carries everything a lobby decides before the first tick.
// Roles must be the same length as PlayerNames; an empty Roles slice
// asks the engine to deal a random assignment from the catalog.
type Settings struct {
	PlayerNames []string              `json:"player_names"`
	Roles       []game.Role           `json:"roles"`
	Modifiers   game.ModifierSettings `json:"modifiers"`
	Budgets     PhaseBudgets          `json:"budgets"`
	Seed        int64                 `json:"seed"`
}

// Game is one isolated match: the single-threaded state machine that
// owns all players, controllers, abilities and components. All
// mutation happens on the goroutine that owns the Game; the transport
// communicates through HandleCommand/Tick in and DrainPackets out.
type Game struct {
	ID string

	players []*Player
	phase   PhaseState
	day     int
	// timeRemaining counts down in ticks; 0 on a timed phase advances
	// to the canonical next phase.
	timeRemaining int
	budgets       PhaseBudgets
	modifiers     game.ModifierSettings

	controllers *controller.Store
	abilities   *AbilityTable
	graves      []game.Grave

	rng  *rand.Rand
	seed int64

	// Component state. Maps are only ever iterated through
	// player-index order so resolution stays deterministic.
	insiders       map[game.InsiderGroup]map[game.PlayerRef]bool
	cultSacrifices int
	lastExecuted   *game.PlayerRef
	enfranchised   map[game.PlayerRef]int
	forfeited      map[game.PlayerRef]bool
	silenced       map[game.PlayerRef]bool
	pitchfork      map[game.PlayerRef]bool
	confused       map[game.PlayerRef]bool
	poison         []poisonEntry
	verdictsToday  map[game.PlayerRef][]game.PlayerRef
	deadPlayNotice map[game.PlayerRef]bool
	fastForward    map[game.PlayerRef]bool

	out        []Packet
	depth      int
	inputsSeen int64
	finished   bool
	ending     game.Conclusion
}

// NewGame builds a ready-to-run match in the Briefing phase. The PRNG
// is seeded once here; every random draw in the game goes through it
// so a replay with the same settings is exact.
func NewGame(id string, s Settings) *Game {
	if s.Budgets == nil {
		s.Budgets = DefaultPhaseBudgets()
	}
	g := &Game{
		ID:             id,
		budgets:        s.Budgets,
		modifiers:      s.Modifiers,
		controllers:    controller.NewStore(),
		abilities:      newAbilityTable(),
		rng:            rand.New(rand.NewSource(s.Seed)),
		seed:           s.Seed,
		insiders:       make(map[game.InsiderGroup]map[game.PlayerRef]bool),
		enfranchised:   make(map[game.PlayerRef]int),
		forfeited:      make(map[game.PlayerRef]bool),
		silenced:       make(map[game.PlayerRef]bool),
		pitchfork:      make(map[game.PlayerRef]bool),
		confused:       make(map[game.PlayerRef]bool),
		verdictsToday:  make(map[game.PlayerRef][]game.PlayerRef),
		deadPlayNotice: make(map[game.PlayerRef]bool),
		fastForward:    make(map[game.PlayerRef]bool),
		day:            1,
	}
	for _, group := range game.InsiderGroups {
		g.insiders[group] = make(map[game.PlayerRef]bool)
	}

	names := s.PlayerNames
	if s.Modifiers.IsEnabled(game.ModRandomPlayerNames) {
		names = g.randomNames(len(names))
	}
	for i, name := range names {
		g.players = append(g.players, newPlayer(game.PlayerRef(i), name))
	}

	roles := s.Roles
	if len(roles) != len(g.players) {
		roles = g.dealRoles(len(g.players))
	}
	roles = g.clampRoleLimits(roles)
	for i, r := range roles {
		g.assignInitialRole(game.PlayerRef(i), r)
	}
	g.ensureCultLeadership()

	g.phase = PhaseState{Kind: game.PhaseBriefing}
	g.timeRemaining = g.budgets[game.PhaseBriefing]
	g.rebuildControllers()
	g.firePhaseStart(g.phase)
	return g
}

// Seed returns the PRNG seed the game was created with.
func (g *Game) Seed() int64 { return g.seed }

// Phase returns the current phase state.
func (g *Game) Phase() PhaseState { return g.phase }

// DayNumber returns the current day, starting at 1.
func (g *Game) DayNumber() int { return g.day }

// Finished reports whether the game reached Recess.
func (g *Game) Finished() bool { return g.finished }

// Conclusion returns the ending once the game is finished.
func (g *Game) Conclusion() game.Conclusion { return g.ending }

// Modifiers returns the immutable modifier settings.
func (g *Game) Modifiers() game.ModifierSettings { return g.modifiers }

// Controllers exposes the controller store to tests and the room
// layer's state snapshots. Writes still have to go through
// HandleCommand so events fire.
func (g *Game) Controllers() *controller.Store { return g.controllers }

// Tick advances wall-clock driven state by one second: reconnect
// countdowns, the phase budget, and the resulting phase transition if
// the budget hits zero. The tick driver lives outside the core.
func (g *Game) Tick() {
	if g.finished {
		return
	}
	g.tickConnections()
	if g.budgets[g.phase.Kind] == 0 {
		return
	}
	if g.timeRemaining > 0 {
		g.timeRemaining--
	}
	if g.timeRemaining == 0 {
		g.advancePhase(g.nextPhase())
	}
}

// dealRoles produces a random assignment. Roughly a third of the table
// lands evil, the rest town, matching the usual mafia spread. With the
// CustomRoleSets modifier the deal draws from the lobby's pool
// instead.
func (g *Game) dealRoles(n int) []game.Role {
	if g.modifiers.IsEnabled(game.ModCustomRoleSets) && len(g.modifiers.CustomRoleSets) > 0 {
		pool := make([]game.Role, n)
		for i := range pool {
			pool[i] = g.modifiers.CustomRoleSets[g.rng.Intn(len(g.modifiers.CustomRoleSets))]
		}
		return pool
	}
	evil := n / 3
	if evil < 1 {
		evil = 1
	}
	pool := make([]game.Role, 0, n)
	evilPool := []game.Role{game.RoleMafioso, game.RoleBlackmailer, game.RoleFramer, game.RoleApostle, game.RoleZealot}
	for i := 0; i < evil && i < len(evilPool); i++ {
		pool = append(pool, evilPool[i])
	}
	townPool := []game.Role{game.RoleDoctor, game.RoleDetective, game.RoleEscort, game.RoleTransporter, game.RoleMayor, game.RoleRabblerouser}
	for i := 0; len(pool) < n; i++ {
		if i < len(townPool) {
			pool = append(pool, townPool[i])
		} else {
			pool = append(pool, game.RoleVillager)
		}
	}
	g.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool
}

// clampRoleLimits enforces per-role instance limits over an
// assignment; excess copies become villagers.
func (g *Game) clampRoleLimits(roles []game.Role) []game.Role {
	counts := make(map[game.Role]int, len(roles))
	out := make([]game.Role, len(roles))
	for i, r := range roles {
		if !r.Valid() {
			r = game.RoleVillager
		}
		limit := g.modifiers.RoleLimit(r)
		if limit > 0 && counts[r] >= limit {
			r = game.RoleVillager
		}
		counts[r]++
		out[i] = r
	}
	return out
}

var defaultNames = []string{
	"Ash", "Birch", "Cedar", "Dahlia", "Elm", "Fern", "Hazel", "Iris",
	"Juniper", "Laurel", "Maple", "Nettle", "Oak", "Poppy", "Rowan",
	"Sage", "Thistle", "Willow", "Yarrow", "Zinnia",
}

func (g *Game) randomNames(n int) []string {
	pool := make([]string, len(defaultNames))
	copy(pool, defaultNames)
	g.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	out := make([]string, n)
	for i := range out {
		out[i] = pool[i%len(pool)]
	}
	return out
}

// assignInitialRole wires one seat's starting role without firing the
// full role-switch ladder: initial creation still goes through the
// ability-creation event so side effects (pitchfork grants, drunk
// confusion) apply.
func (g *Game) assignInitialRole(ref game.PlayerRef, r game.Role) {
	p := g.Player(ref)
	p.Role = r
	data := game.GetRole(r)
	if data != nil {
		p.WinCond = game.WinConditionFor(data.Team)
		for _, group := range data.Insiders {
			g.AddInsider(ref, group)
		}
	}
	g.createAbility(RoleAbilityID(r, ref), newRoleState(r))
}

// ensureCultLeadership promotes a cult insider to Apostle when the
// dealt list contains cultists but no Apostle, so conversion is never
// dead on arrival.
func (g *Game) ensureCultLeadership() {
	var cultists []game.PlayerRef
	hasApostle := false
	for _, ref := range g.AllPlayers() {
		if !g.insiders[game.InsiderCult][ref] {
			continue
		}
		cultists = append(cultists, ref)
		if g.Player(ref).Role == game.RoleApostle {
			hasApostle = true
		}
	}
	if hasApostle || len(cultists) == 0 {
		return
	}
	g.setRole(cultists[g.rng.Intn(len(cultists))], game.RoleApostle)
}
