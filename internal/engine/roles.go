package engine

import (
	"github.com/duskcourt/server/internal/controller"
	"github.com/duskcourt/server/internal/game"
)

// newRoleState builds the starting mutable state for a role. Roles
// with no night data share the zero-size villager state shape.
func newRoleState(r game.Role) AbilityState {
	switch r {
	case game.RoleDoctor:
		return &DoctorState{SelfHealsRemaining: 1}
	case game.RoleDetective:
		return &DetectiveState{}
	case game.RoleEscort:
		return &EscortState{}
	case game.RoleTransporter:
		return &TransporterState{}
	case game.RoleMayor:
		return &MayorState{}
	case game.RoleRabblerouser:
		return &RabblerouserState{}
	case game.RoleMafioso:
		return &MafiosoState{}
	case game.RoleBlackmailer:
		return &BlackmailerState{}
	case game.RoleFramer:
		return &FramerState{}
	case game.RoleApostle:
		return &ApostleState{}
	case game.RoleZealot:
		return &ZealotState{}
	case game.RoleDisciple:
		return &DiscipleState{}
	case game.RoleDrunk:
		return &DrunkState{}
	default:
		return &VillagerState{}
	}
}

// livingExcept lists living players minus the given refs, in index
// order.
func (g *Game) livingExcept(except ...game.PlayerRef) []game.PlayerRef {
	skip := make(map[game.PlayerRef]bool, len(except))
	for _, e := range except {
		skip[e] = true
	}
	var out []game.PlayerRef
	for _, ref := range g.LivingPlayers() {
		if !skip[ref] {
			out = append(out, ref)
		}
	}
	return out
}

// livingOutsideGroup lists living players who do not share an insider
// group with the actor, the usual target set for evil night actions.
func (g *Game) livingOutsideGroup(actor game.PlayerRef) []game.PlayerRef {
	var out []game.PlayerRef
	for _, ref := range g.LivingPlayers() {
		if ref != actor && !g.InSameGroup(actor, ref) {
			out = append(out, ref)
		}
	}
	return out
}

// nightTypical are the parameters shared by most night controllers:
// usable by the living actor only, reset when the next day's Obituary
// opens.
func nightTypical(g *Game, actor game.PlayerRef, available controller.Available, grayed bool) controller.Parameters {
	return controller.Parameters{
		Available:    available,
		Grayed:       grayed || !g.Alive(actor),
		ResetOnPhase: game.PhaseObituary,
		Default:      available.DefaultSelection(),
		Allowed:      []game.PlayerRef{actor},
	}
}

// onePlayerVisits converts a role's single-target selection into a
// visit, the common case.
func onePlayerVisits(g *Game, id AbilityID, attack bool) []game.Visit {
	sel := g.controllers.Selection(controller.RoleID(id.Player, id.Role, 0))
	if sel.Kind != controller.SelectOnePlayer || sel.Player == nil {
		return nil
	}
	return []game.Visit{game.NewVisit(id.Player, *sel.Player, attack, id.Role)}
}

// VillagerState is the empty role state: no night action, no
// listeners.
type VillagerState struct{}

// DoctorState tracks the single self-heal.
type DoctorState struct {
	SelfHealsRemaining int `json:"self_heals_remaining"`
}

func (s *DoctorState) controllerParameters(g *Game, id AbilityID, m *controller.ParametersMap) {
	targets := g.livingExcept()
	if s.SelfHealsRemaining <= 0 {
		targets = g.livingExcept(id.Player)
	}
	m.Insert(controller.RoleID(id.Player, id.Role, 0),
		nightTypical(g, id.Player, controller.AvailableOnePlayer(targets, true), false))
}

func (s *DoctorState) selectionVisits(g *Game, id AbilityID) []game.Visit {
	return onePlayerVisits(g, id, false)
}

func (s *DoctorState) onMidnight(g *Game, id AbilityID, n *NightState, priority MidnightPriority) {
	if priority != PriorityHeal {
		return
	}
	v := n.DefaultVisit(id.Player, id.Role)
	if v == nil {
		return
	}
	g.guardPlayer(n, id.Player, v.Target)
	if v.Target == id.Player {
		s.SelfHealsRemaining--
	}
}

// DetectiveState has no night data; confusion lives on the game.
type DetectiveState struct{}

func (s *DetectiveState) controllerParameters(g *Game, id AbilityID, m *controller.ParametersMap) {
	m.Insert(controller.RoleID(id.Player, id.Role, 0),
		nightTypical(g, id.Player, controller.AvailableOnePlayer(g.livingExcept(id.Player), true), false))
}

func (s *DetectiveState) selectionVisits(g *Game, id AbilityID) []game.Visit {
	return onePlayerVisits(g, id, false)
}

func (s *DetectiveState) onMidnight(g *Game, id AbilityID, n *NightState, priority MidnightPriority) {
	if priority != PriorityInvestigative {
		return
	}
	v := n.DefaultVisit(id.Player, id.Role)
	if v == nil {
		return
	}
	suspicious := false
	if !g.confused[id.Player] {
		suspicious = g.playerIsSuspicious(n, v.Target)
	}
	n.PushMessage(id.Player, game.MsgDetectiveResult(suspicious))
}

// playerIsSuspicious is the canonical investigation result: framing
// wins, then the target's win condition.
func (g *Game) playerIsSuspicious(n *NightState, target game.PlayerRef) bool {
	if n.framed[target] {
		return true
	}
	return !g.Player(target).WinCond.FriendsWithConclusion(game.ConclusionTown)
}

// EscortState blocks its target's night action.
type EscortState struct{}

func (s *EscortState) controllerParameters(g *Game, id AbilityID, m *controller.ParametersMap) {
	m.Insert(controller.RoleID(id.Player, id.Role, 0),
		nightTypical(g, id.Player, controller.AvailableOnePlayer(g.livingExcept(id.Player), true), false))
}

func (s *EscortState) selectionVisits(g *Game, id AbilityID) []game.Visit {
	return onePlayerVisits(g, id, false)
}

func (s *EscortState) onMidnight(g *Game, id AbilityID, n *NightState, priority MidnightPriority) {
	if priority != PriorityRoleblock {
		return
	}
	v := n.DefaultVisit(id.Player, id.Role)
	if v == nil {
		return
	}
	g.roleblock(n, v.Target, true)
}

// TransporterState swaps every visit between its two targets.
type TransporterState struct{}

func (s *TransporterState) controllerParameters(g *Game, id AbilityID, m *controller.ParametersMap) {
	living := g.livingExcept()
	m.Insert(controller.RoleID(id.Player, id.Role, 0),
		nightTypical(g, id.Player, controller.AvailableTwoPlayers(living, living, false, true), false))
}

func (s *TransporterState) selectionVisits(g *Game, id AbilityID) []game.Visit {
	sel := g.controllers.Selection(controller.RoleID(id.Player, id.Role, 0))
	if sel.Kind != controller.SelectTwoPlayers || sel.Player == nil || sel.PlayerB == nil {
		return nil
	}
	return []game.Visit{
		game.NewVisit(id.Player, *sel.Player, false, id.Role),
		game.NewVisit(id.Player, *sel.PlayerB, false, id.Role),
	}
}

func (s *TransporterState) onMidnight(g *Game, id AbilityID, n *NightState, priority MidnightPriority) {
	if priority != PriorityTransporter {
		return
	}
	targets := n.DefaultTargets(id.Player, id.Role)
	if len(targets) < 2 {
		return
	}
	a, b := targets[0], targets[1]
	Transport(n, map[game.PlayerRef]game.PlayerRef{a: b, b: a}, func(v game.Visit) bool {
		return !(v.Visitor == id.Player && v.Tag.Role == id.Role)
	})
	n.PushMessage(a, game.MsgTransported())
	n.PushMessage(b, game.MsgTransported())
}

// MayorState reveals for extra votes. The controller is a unit button:
// pressing it enfranchises the mayor permanently.
type MayorState struct {
	Revealed bool `json:"revealed"`
}

func (s *MayorState) controllerParameters(g *Game, id AbilityID, m *controller.ParametersMap) {
	grayed := s.Revealed ||
		!g.Alive(id.Player) ||
		g.phase.Kind == game.PhaseNight ||
		g.phase.Kind == game.PhaseBriefing
	m.Insert(controller.RoleID(id.Player, id.Role, 0), controller.Parameters{
		Available: controller.AvailableUnit(),
		Grayed:    grayed,
		DontSave:  true,
		Default:   controller.Unit(),
		Allowed:   []game.PlayerRef{id.Player},
	})
}

func (s *MayorState) onValidatedControllerInput(g *Game, id AbilityID, actor game.PlayerRef, cid controller.ID) {
	if actor != id.Player || cid != controller.RoleID(id.Player, id.Role, 0) {
		return
	}
	if s.Revealed {
		return
	}
	s.Revealed = true
	g.enfranchise(id.Player, 3)
}

func (s *MayorState) onAbilityDeletion(g *Game, id AbilityID, deleted AbilityID, priority DeletionPriority) {
	if priority != DeletionBeforeSideEffect || !deleted.IsPlayersRole(id.Player, game.RoleMayor) {
		return
	}
	g.unenfranchise(id.Player)
}

// An enfranchised mayor whispers in public only: whispers touching the
// mayor are cancelled outright.
func (s *MayorState) onWhisper(g *Game, id AbilityID, ev *WhisperEvent, fold *WhisperFold, priority WhisperPriority) {
	if priority != WhisperCancel || !s.Revealed {
		return
	}
	if ev.Sender == id.Player || ev.Receiver == id.Player {
		fold.Cancelled = true
		fold.HideBroadcast = true
	}
}

// RabblerouserState grants its holder a pitchfork on creation and
// takes it back when the role goes away.
type RabblerouserState struct{}

func (s *RabblerouserState) onAbilityCreation(g *Game, id AbilityID, created AbilityID, fold *CreationFold, priority CreationPriority) {
	if priority != CreationSideEffect || !created.IsPlayersRole(id.Player, game.RoleRabblerouser) || id != created {
		return
	}
	g.givePitchfork(id.Player)
}

func (s *RabblerouserState) onAbilityDeletion(g *Game, id AbilityID, deleted AbilityID, priority DeletionPriority) {
	if priority != DeletionBeforeSideEffect || !deleted.IsPlayersRole(id.Player, game.RoleRabblerouser) {
		return
	}
	g.removePitchfork(id.Player)
}

// MafiosoState is the mafia's nightly kill.
type MafiosoState struct{}

func (s *MafiosoState) controllerParameters(g *Game, id AbilityID, m *controller.ParametersMap) {
	m.Insert(controller.RoleID(id.Player, id.Role, 0),
		nightTypical(g, id.Player, controller.AvailableOnePlayer(g.livingOutsideGroup(id.Player), true), g.day <= 1))
}

func (s *MafiosoState) selectionVisits(g *Game, id AbilityID) []game.Visit {
	return onePlayerVisits(g, id, true)
}

func (s *MafiosoState) onMidnight(g *Game, id AbilityID, n *NightState, priority MidnightPriority) {
	if priority != PriorityKill || g.day <= 1 {
		return
	}
	v := n.DefaultVisit(id.Player, id.Role)
	if v == nil {
		return
	}
	g.nightAttack(n, v.Target, []game.PlayerRef{id.Player}, game.AttackBasic, true, game.KillerRole(game.RoleMafioso), true)
}

// BlackmailerState silences one target per night, never the same one
// twice in a row.
type BlackmailerState struct {
	Previous *game.PlayerRef `json:"previous,omitempty"`
}

func (s *BlackmailerState) controllerParameters(g *Game, id AbilityID, m *controller.ParametersMap) {
	var targets []game.PlayerRef
	for _, ref := range g.livingOutsideGroup(id.Player) {
		if s.Previous != nil && *s.Previous == ref {
			continue
		}
		targets = append(targets, ref)
	}
	m.Insert(controller.RoleID(id.Player, id.Role, 0),
		nightTypical(g, id.Player, controller.AvailableOnePlayer(targets, true), false))
}

func (s *BlackmailerState) selectionVisits(g *Game, id AbilityID) []game.Visit {
	return onePlayerVisits(g, id, false)
}

func (s *BlackmailerState) onMidnight(g *Game, id AbilityID, n *NightState, priority MidnightPriority) {
	if priority != PriorityDeception {
		return
	}
	v := n.DefaultVisit(id.Player, id.Role)
	if v == nil {
		s.Previous = nil
		return
	}
	target := v.Target
	g.silenceNight(n, target)
	s.Previous = &target
}

// FramerState makes one target look suspicious tonight.
type FramerState struct{}

func (s *FramerState) controllerParameters(g *Game, id AbilityID, m *controller.ParametersMap) {
	m.Insert(controller.RoleID(id.Player, id.Role, 0),
		nightTypical(g, id.Player, controller.AvailableOnePlayer(g.livingOutsideGroup(id.Player), true), false))
}

func (s *FramerState) selectionVisits(g *Game, id AbilityID) []game.Visit {
	return onePlayerVisits(g, id, false)
}

func (s *FramerState) onMidnight(g *Game, id AbilityID, n *NightState, priority MidnightPriority) {
	if priority != PriorityDeception {
		return
	}
	v := n.DefaultVisit(id.Player, id.Role)
	if v == nil {
		return
	}
	n.framed[v.Target] = true
}

// ApostleState converts once enough sacrifices have accrued.
type ApostleState struct{}

func (s *ApostleState) controllerParameters(g *Game, id AbilityID, m *controller.ParametersMap) {
	grayed := g.day <= 1 || !g.enoughSacrifices()
	m.Insert(controller.RoleID(id.Player, id.Role, 0),
		nightTypical(g, id.Player, controller.AvailableOnePlayer(g.livingOutsideGroup(id.Player), true), grayed))
}

func (s *ApostleState) selectionVisits(g *Game, id AbilityID) []game.Visit {
	return onePlayerVisits(g, id, true)
}

func (s *ApostleState) onMidnight(g *Game, id AbilityID, n *NightState, priority MidnightPriority) {
	if priority != PriorityConvert {
		return
	}
	v := n.DefaultVisit(id.Player, id.Role)
	if v == nil {
		return
	}
	if !g.enoughSacrifices() {
		return
	}
	if !game.AttackBasic.CanPierce(n.Defense(v.Target)) {
		n.PushMessage(id.Player, game.MsgYourConvertFailed())
		return
	}
	g.useSacrifices()
	// Standing zealots step down to disciples; the convert becomes the
	// new zealot.
	for _, ref := range g.AllPlayers() {
		if g.insiders[game.InsiderCult][ref] && g.Player(ref).Role == game.RoleZealot {
			role := game.RoleDisciple
			n.convertTo[ref] = &role
		}
	}
	zealot := game.RoleZealot
	n.convertTo[v.Target] = &zealot
}

// ZealotState kills for the cult on nights after a quiet day.
type ZealotState struct{}

func (s *ZealotState) controllerParameters(g *Game, id AbilityID, m *controller.ParametersMap) {
	grayed := g.day <= 1 || !g.cultCanKillTonight()
	m.Insert(controller.RoleID(id.Player, id.Role, 0),
		nightTypical(g, id.Player, controller.AvailableOnePlayer(g.livingOutsideGroup(id.Player), true), grayed))
}

func (s *ZealotState) selectionVisits(g *Game, id AbilityID) []game.Visit {
	return onePlayerVisits(g, id, true)
}

func (s *ZealotState) onMidnight(g *Game, id AbilityID, n *NightState, priority MidnightPriority) {
	if priority != PriorityKill || !g.cultCanKillTonight() {
		return
	}
	v := n.DefaultVisit(id.Player, id.Role)
	if v == nil {
		return
	}
	g.nightAttack(n, v.Target, []game.PlayerRef{id.Player}, game.AttackBasic, true, game.KillerRole(game.RoleZealot), true)
}

// DiscipleState has no action; the role exists to fill cult benches
// after a conversion.
type DiscipleState struct{}

// DrunkState thinks it is some other town role. Confusion is applied
// as a creation side effect so investigative results lie.
type DrunkState struct {
	Appears game.Role `json:"appears"`
}

var drunkAppearances = []game.Role{
	game.RoleDoctor, game.RoleDetective, game.RoleEscort, game.RoleTransporter, game.RoleVillager,
}

func (s *DrunkState) onAbilityCreation(g *Game, id AbilityID, created AbilityID, fold *CreationFold, priority CreationPriority) {
	if priority != CreationSideEffect || !created.IsPlayersRole(id.Player, game.RoleDrunk) || id != created {
		return
	}
	g.confused[id.Player] = true
	s.Appears = drunkAppearances[g.rng.Intn(len(drunkAppearances))]
}

func (s *DrunkState) onAbilityDeletion(g *Game, id AbilityID, deleted AbilityID, priority DeletionPriority) {
	if priority != DeletionBeforeSideEffect || !deleted.IsPlayersRole(id.Player, game.RoleDrunk) {
		return
	}
	delete(g.confused, id.Player)
}
