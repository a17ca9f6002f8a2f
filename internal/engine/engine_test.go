package engine

import (
	"testing"

	"github.com/duskcourt/server/internal/controller"
	"github.com/duskcourt/server/internal/game"
)

func newTestGame(t *testing.T, roles []game.Role, mods game.ModifierSettings) *Game {
	t.Helper()
	names := make([]string, len(roles))
	for i := range names {
		names[i] = "p" + string(rune('0'+i))
	}
	if mods.Enabled == nil {
		mods = game.NewModifierSettings()
	}
	g := NewGame("test-room", Settings{
		PlayerNames: names,
		Roles:       roles,
		Modifiers:   mods,
		Seed:        42,
	})
	g.DrainPackets()
	return g
}

// advanceTo pushes the game through canonical transitions until it
// sits in the wanted phase on at least the wanted day.
func advanceTo(t *testing.T, g *Game, kind game.PhaseKind, day int) {
	t.Helper()
	for i := 0; i < 64; i++ {
		if g.Phase().Kind == kind && g.DayNumber() >= day {
			return
		}
		if g.Finished() {
			t.Fatalf("game finished (%s) before reaching %s day %d", g.Conclusion(), kind, day)
		}
		g.OnFastForward()
	}
	t.Fatalf("never reached phase %s day %d (at %s day %d)", kind, day, g.Phase().Kind, g.DayNumber())
}

func selectOne(t *testing.T, g *Game, actor game.PlayerRef, role game.Role, target game.PlayerRef) {
	t.Helper()
	g.HandleControllerInput(actor, ControllerInput{
		ID:        controller.RoleID(actor, role, 0),
		Selection: controller.OnePlayer(target),
	})
	sel := g.Controllers().Selection(controller.RoleID(actor, role, 0))
	if sel.Player == nil || *sel.Player != target {
		t.Fatalf("selection for %s of player %d did not stick", role, actor)
	}
}

func packetsTo(packets []Packet, ref game.PlayerRef, typ string) []Packet {
	var out []Packet
	for _, p := range packets {
		if p.Type != typ {
			continue
		}
		if p.To != nil && *p.To == ref {
			out = append(out, p)
		}
	}
	return out
}

func containsChatVariant(packets []Packet, ref game.PlayerRef, variant string) bool {
	for _, p := range packetsTo(packets, ref, PacketChatMessage) {
		if containsVariant(p, variant) {
			return true
		}
	}
	return false
}

func broadcastHasVariant(packets []Packet, variant string) bool {
	for _, p := range packets {
		if p.Type == PacketChatMessage && p.To == nil && containsVariant(p, variant) {
			return true
		}
	}
	return false
}

func containsVariant(p Packet, variant string) bool {
	return stringContains(string(p.Payload), `"variant":"`+variant+`"`)
}

func stringContains(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}

func TestPhaseCycleFollowsTransitionTable(t *testing.T) {
	g := newTestGame(t, []game.Role{game.RoleVillager, game.RoleVillager, game.RoleMafioso, game.RoleVillager, game.RoleDoctor}, game.ModifierSettings{})

	want := []game.PhaseKind{
		game.PhaseBriefing,
		game.PhaseDusk,
		game.PhaseNight,
		game.PhaseObituary,
		game.PhaseDiscussion,
		game.PhaseNomination,
		game.PhaseDusk,
		game.PhaseNight,
	}
	for i, kind := range want {
		if g.Phase().Kind != kind {
			t.Fatalf("step %d: phase = %s, want %s", i, g.Phase().Kind, kind)
		}
		g.OnFastForward()
	}
	if g.DayNumber() != 3 {
		t.Fatalf("day = %d, want 3", g.DayNumber())
	}
}

func TestTickCountsDownAndAdvances(t *testing.T) {
	g := NewGame("tick", Settings{
		PlayerNames: []string{"a", "b", "c", "d", "e"},
		Roles:       []game.Role{game.RoleVillager, game.RoleVillager, game.RoleMafioso, game.RoleVillager, game.RoleDoctor},
		Budgets:     PhaseBudgets{game.PhaseBriefing: 2, game.PhaseDusk: 1, game.PhaseNight: 1, game.PhaseObituary: 1, game.PhaseDiscussion: 1, game.PhaseNomination: 1},
		Seed:        7,
	})
	if g.Phase().Kind != game.PhaseBriefing {
		t.Fatalf("phase = %s", g.Phase().Kind)
	}
	g.Tick()
	if g.Phase().Kind != game.PhaseBriefing {
		t.Fatalf("briefing ended a tick early")
	}
	g.Tick()
	if g.Phase().Kind != game.PhaseDusk {
		t.Fatalf("phase after briefing budget = %s, want dusk", g.Phase().Kind)
	}
}

func TestReconnectTimerExpires(t *testing.T) {
	g := newTestGame(t, []game.Role{game.RoleVillager, game.RoleVillager, game.RoleMafioso}, game.ModifierSettings{})
	g.SetConnection(0, Connection{Kind: ConnCouldReconnect, DisconnectTimer: 2})
	g.Tick()
	if g.Player(0).Conn.Kind != ConnCouldReconnect {
		t.Fatalf("timer expired a tick early")
	}
	g.Tick()
	if g.Player(0).Conn.Kind != ConnDisconnected {
		t.Fatalf("conn = %s, want disconnected", g.Player(0).Conn.Kind)
	}
	if !g.Player(0).Alive {
		t.Fatalf("disconnected player must keep participating")
	}
}

func TestRoleblockSuppressesKill(t *testing.T) {
	g := newTestGame(t, []game.Role{
		game.RoleEscort, game.RoleMafioso, game.RoleVillager, game.RoleVillager, game.RoleVillager,
	}, game.ModifierSettings{})

	advanceTo(t, g, game.PhaseNight, 2)
	g.DrainPackets()
	selectOne(t, g, 0, game.RoleEscort, 1)
	selectOne(t, g, 1, game.RoleMafioso, 2)

	g.OnFastForward()
	packets := g.DrainPackets()

	if !g.Alive(2) {
		t.Fatalf("victim died through a roleblocked killer")
	}
	if len(g.Graves()) != 0 {
		t.Fatalf("graves = %d, want 0", len(g.Graves()))
	}
	if !containsChatVariant(packets, 1, game.VariantRoleBlocked) {
		t.Fatalf("killer never learned about the roleblock")
	}
	if g.Phase().Kind != game.PhaseObituary {
		t.Fatalf("phase = %s, want obituary", g.Phase().Kind)
	}
}

func TestTransporterSwapRedirectsKill(t *testing.T) {
	g := newTestGame(t, []game.Role{
		game.RoleTransporter, game.RoleMafioso, game.RoleVillager, game.RoleVillager,
	}, game.ModifierSettings{})

	advanceTo(t, g, game.PhaseNight, 2)
	g.HandleControllerInput(0, ControllerInput{
		ID:        controller.RoleID(0, game.RoleTransporter, 0),
		Selection: controller.TwoPlayers(2, 3),
	})
	selectOne(t, g, 1, game.RoleMafioso, 2)

	g.OnFastForward()

	if g.Alive(3) {
		t.Fatalf("swap target survived; the kill was not redirected")
	}
	if !g.Alive(2) {
		t.Fatalf("original target died despite the swap")
	}
	graves := g.Graves()
	if len(graves) != 1 {
		t.Fatalf("graves = %d, want 1", len(graves))
	}
	cause := graves[0].Information.DeathCause
	if cause.Kind != game.DeathCauseKillers || len(cause.Killers) != 1 || cause.Killers[0].Role != game.RoleMafioso {
		t.Fatalf("grave killer = %+v, want mafioso", cause)
	}
}

func TestRoleSetGraveKillersModifier(t *testing.T) {
	g := newTestGame(t, []game.Role{
		game.RoleMafioso, game.RoleVillager, game.RoleVillager,
	}, game.NewModifierSettings(game.ModRoleSetGraveKillers))

	advanceTo(t, g, game.PhaseNight, 2)
	selectOne(t, g, 0, game.RoleMafioso, 1)
	g.OnFastForward()

	graves := g.Graves()
	if len(graves) != 1 {
		t.Fatalf("graves = %d, want 1", len(graves))
	}
	k := graves[0].Information.DeathCause.Killers[0]
	if k.Kind != game.GraveKillerRoleSet || k.RoleSet != game.RoleSetMafia {
		t.Fatalf("grave killer = %+v, want mafia role set", k)
	}
}

func TestDoctorSelfHealConsumedOnce(t *testing.T) {
	g := newTestGame(t, []game.Role{
		game.RoleDoctor, game.RoleMafioso, game.RoleVillager, game.RoleVillager,
	}, game.ModifierSettings{})

	advanceTo(t, g, game.PhaseNight, 2)
	selectOne(t, g, 0, game.RoleDoctor, 0)
	selectOne(t, g, 1, game.RoleMafioso, 0)
	g.OnFastForward()

	if !g.Alive(0) {
		t.Fatalf("self-heal did not block the attack")
	}

	advanceTo(t, g, game.PhaseNight, 3)
	// The self-heal is spent: the availability list excludes the doctor
	// and the input is silently rejected.
	g.HandleControllerInput(0, ControllerInput{
		ID:        controller.RoleID(0, game.RoleDoctor, 0),
		Selection: controller.OnePlayer(0),
	})
	sel := g.Controllers().Selection(controller.RoleID(0, game.RoleDoctor, 0))
	if sel.Player != nil {
		t.Fatalf("spent self-heal still selectable")
	}
	selectOne(t, g, 1, game.RoleMafioso, 0)
	g.OnFastForward()
	if g.Alive(0) {
		t.Fatalf("doctor survived a second unprotected night")
	}
}

func TestHiddenNominationVotes(t *testing.T) {
	roles := []game.Role{game.RoleVillager, game.RoleMafioso, game.RoleVillager, game.RoleVillager, game.RoleVillager}

	for _, hidden := range []bool{false, true} {
		mods := game.ModifierSettings{}
		if hidden {
			mods = game.NewModifierSettings(game.ModHiddenNominationVotes)
		}
		g := newTestGame(t, roles, mods)
		advanceTo(t, g, game.PhaseNomination, 2)
		g.DrainPackets()

		g.HandleControllerInput(0, ControllerInput{
			ID:        controller.NominateID(0),
			Selection: controller.OnePlayer(1),
		})
		packets := g.DrainPackets()
		got := broadcastHasVariant(packets, game.VariantVoted)
		if got == hidden {
			t.Fatalf("hidden=%v: vote broadcast=%v", hidden, got)
		}

		// The tally still counts; a majority opens the trial either way.
		for _, voter := range []game.PlayerRef{2, 3} {
			g.HandleControllerInput(voter, ControllerInput{
				ID:        controller.NominateID(voter),
				Selection: controller.OnePlayer(1),
			})
		}
		if g.Phase().Kind != game.PhaseTestimony {
			t.Fatalf("hidden=%v: phase = %s, want testimony", hidden, g.Phase().Kind)
		}
		if g.Phase().OnTrial == nil || *g.Phase().OnTrial != 1 {
			t.Fatalf("hidden=%v: wrong player on trial", hidden)
		}
	}
}

func TestNominationMajorityThresholds(t *testing.T) {
	tests := []struct {
		name        string
		mods        []game.Modifier
		votes       int
		expectTrial bool
	}{
		{"below strict majority", nil, 2, false},
		{"strict majority", nil, 3, true},
		{"two thirds short", []game.Modifier{game.ModTwoThirdsMajority}, 3, false},
		{"two thirds met", []game.Modifier{game.ModTwoThirdsMajority}, 4, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			roles := []game.Role{game.RoleVillager, game.RoleMafioso, game.RoleVillager, game.RoleVillager, game.RoleVillager}
			g := newTestGame(t, roles, game.NewModifierSettings(tc.mods...))
			advanceTo(t, g, game.PhaseNomination, 2)
			voters := []game.PlayerRef{0, 2, 3, 4}
			for i := 0; i < tc.votes; i++ {
				g.HandleControllerInput(voters[i], ControllerInput{
					ID:        controller.NominateID(voters[i]),
					Selection: controller.OnePlayer(1),
				})
			}
			gotTrial := g.Phase().Kind == game.PhaseTestimony
			if gotTrial != tc.expectTrial {
				t.Fatalf("votes=%d: trial=%v, want %v", tc.votes, gotTrial, tc.expectTrial)
			}
		})
	}
}

func TestEnfranchiseRaisesVotingPower(t *testing.T) {
	roles := []game.Role{game.RoleMayor, game.RoleMafioso, game.RoleVillager, game.RoleVillager, game.RoleVillager}
	g := newTestGame(t, roles, game.ModifierSettings{})
	advanceTo(t, g, game.PhaseDiscussion, 2)

	g.HandleControllerInput(0, ControllerInput{
		ID:        controller.RoleID(0, game.RoleMayor, 0),
		Selection: controller.Unit(),
	})
	if !g.Enfranchised(0) {
		t.Fatalf("mayor reveal did not enfranchise")
	}

	advanceTo(t, g, game.PhaseNomination, 2)
	// Living voting power is 8 (five seats + mayor's 3 extra); majority needs 5,
	// which the mayor (4) plus one villager (1) reaches.
	g.HandleControllerInput(0, ControllerInput{
		ID:        controller.NominateID(0),
		Selection: controller.OnePlayer(1),
	})
	if g.Phase().Kind == game.PhaseTestimony {
		t.Fatalf("mayor alone reached majority")
	}
	g.HandleControllerInput(2, ControllerInput{
		ID:        controller.NominateID(2),
		Selection: controller.OnePlayer(1),
	})
	if g.Phase().Kind != game.PhaseTestimony {
		t.Fatalf("mayor plus one vote should reach majority, phase = %s", g.Phase().Kind)
	}
}

func TestWhisperCancelledForEnfranchisedMayor(t *testing.T) {
	roles := []game.Role{game.RoleMayor, game.RoleVillager, game.RoleMafioso}
	g := newTestGame(t, roles, game.ModifierSettings{})
	advanceTo(t, g, game.PhaseDiscussion, 2)

	g.DrainPackets()
	g.fireWhisper(WhisperEvent{Sender: 1, Receiver: 0, Message: "hello"})
	packets := g.DrainPackets()
	if !containsChatVariant(packets, 0, game.VariantWhisper) {
		t.Fatalf("pre-reveal whisper should deliver")
	}

	g.HandleControllerInput(0, ControllerInput{
		ID:        controller.RoleID(0, game.RoleMayor, 0),
		Selection: controller.Unit(),
	})
	g.DrainPackets()
	g.fireWhisper(WhisperEvent{Sender: 1, Receiver: 0, Message: "psst"})
	packets = g.DrainPackets()
	if containsChatVariant(packets, 0, game.VariantWhisper) {
		t.Fatalf("cancel-priority listener did not stop the send")
	}
	if broadcastHasVariant(packets, game.VariantBroadcastWhisper) {
		t.Fatalf("cancelled whisper still broadcast a notice")
	}
}

func TestApostleConversionRequiresTwoSacrifices(t *testing.T) {
	roles := []game.Role{
		game.RoleApostle, game.RoleMafioso, game.RoleVillager, game.RoleVillager, game.RoleVillager, game.RoleVillager,
	}
	g := newTestGame(t, roles, game.ModifierSettings{})

	// Night 2: one mafia kill brings sacrifices to 1.
	advanceTo(t, g, game.PhaseNight, 2)
	selectOne(t, g, 1, game.RoleMafioso, 2)
	g.OnFastForward()
	if g.Alive(2) {
		t.Fatalf("setup kill failed")
	}

	advanceTo(t, g, game.PhaseNight, 3)
	// One sacrifice: the convert controller is grayed and input bounces.
	g.HandleControllerInput(0, ControllerInput{
		ID:        controller.RoleID(0, game.RoleApostle, 0),
		Selection: controller.OnePlayer(3),
	})
	if sel := g.Controllers().Selection(controller.RoleID(0, game.RoleApostle, 0)); sel.Player != nil {
		t.Fatalf("grayed convert controller accepted a selection")
	}
	selectOne(t, g, 1, game.RoleMafioso, 4)
	g.OnFastForward()
	if g.Alive(4) {
		t.Fatalf("second setup kill failed")
	}

	// Two sacrifices: conversion fires.
	advanceTo(t, g, game.PhaseNight, 4)
	selectOne(t, g, 0, game.RoleApostle, 3)
	g.OnFastForward()
	if got := g.Player(3).Role; got != game.RoleZealot {
		t.Fatalf("convert target role = %s, want zealot", got)
	}
	if !g.InSameGroup(0, 3) {
		t.Fatalf("convert did not join the cult")
	}
}

func TestAntiGravityKillsDirectVisitors(t *testing.T) {
	roles := []game.Role{game.RoleEscort, game.RoleDoctor, game.RoleVillager, game.RoleVillager, game.RoleMafioso}
	mods := game.NewModifierSettings(game.ModGravity)
	mods.Gravity = game.AntiGravity
	g := newTestGame(t, roles, mods)

	advanceTo(t, g, game.PhaseNight, 2)
	selectOne(t, g, 0, game.RoleEscort, 2)
	selectOne(t, g, 1, game.RoleDoctor, 2)
	g.OnFastForward()

	if !g.Alive(2) {
		t.Fatalf("stay-at-home target died")
	}
	if g.Alive(0) || g.Alive(1) {
		t.Fatalf("direct visitors survived anti-gravity")
	}
	for _, grave := range g.Graves() {
		killers := grave.Information.DeathCause.Killers
		if len(killers) != 1 || killers[0].Kind != game.GraveKillerSuicide {
			t.Fatalf("grave killer = %+v, want suicide", killers)
		}
	}
}

func TestGraveListIsAppendOnly(t *testing.T) {
	roles := []game.Role{game.RoleMafioso, game.RoleVillager, game.RoleVillager, game.RoleVillager}
	g := newTestGame(t, roles, game.ModifierSettings{})

	advanceTo(t, g, game.PhaseNight, 2)
	selectOne(t, g, 0, game.RoleMafioso, 1)
	g.OnFastForward()
	first := g.Graves()
	if len(first) != 1 || first[0].Player != 1 {
		t.Fatalf("graves after night 2 = %+v", first)
	}

	advanceTo(t, g, game.PhaseNight, 3)
	selectOne(t, g, 0, game.RoleMafioso, 2)
	g.OnFastForward()
	second := g.Graves()
	if len(second) != 2 {
		t.Fatalf("graves = %d, want 2", len(second))
	}
	if second[0].Player != 1 {
		t.Fatalf("existing grave moved: %+v", second[0])
	}
	if g.Grave(game.GraveRef(1)).Player != 2 {
		t.Fatalf("grave ref 1 = %+v", g.Grave(game.GraveRef(1)))
	}
	if g.Grave(game.GraveRef(5)) != nil {
		t.Fatalf("out-of-range grave ref resolved")
	}
}

func TestObscuredGravesModifier(t *testing.T) {
	roles := []game.Role{game.RoleMafioso, game.RoleVillager, game.RoleVillager, game.RoleVillager}
	g := newTestGame(t, roles, game.NewModifierSettings(game.ModObscuredGraves))

	advanceTo(t, g, game.PhaseNight, 2)
	selectOne(t, g, 0, game.RoleMafioso, 1)
	g.OnFastForward()

	grave := g.Graves()[0]
	if !grave.Information.Obscured {
		t.Fatalf("grave not obscured: %+v", grave.Information)
	}
	if grave.Information.Role != "" {
		t.Fatalf("obscured grave leaks the role")
	}
}

func TestNightResolutionIsDeterministic(t *testing.T) {
	run := func() (string, []Packet) {
		roles := []game.Role{
			game.RoleEscort, game.RoleMafioso, game.RoleDoctor, game.RoleDetective,
			game.RoleTransporter, game.RoleVillager, game.RoleVillager,
		}
		g := newTestGame(t, roles, game.ModifierSettings{})
		advanceTo(t, g, game.PhaseNight, 2)
		g.DrainPackets()
		selectOne(t, g, 1, game.RoleMafioso, 5)
		selectOne(t, g, 2, game.RoleDoctor, 5)
		selectOne(t, g, 3, game.RoleDetective, 1)
		g.HandleControllerInput(4, ControllerInput{
			ID:        controller.RoleID(4, game.RoleTransporter, 0),
			Selection: controller.TwoPlayers(5, 6),
		})
		g.OnFastForward()
		snap, err := g.MarshalSnapshot()
		if err != nil {
			t.Fatalf("snapshot: %v", err)
		}
		return snap, g.DrainPackets()
	}

	snapA, packetsA := run()
	snapB, packetsB := run()
	if snapA != snapB {
		t.Fatalf("same seed, same inputs, different post-night state")
	}
	if len(packetsA) != len(packetsB) {
		t.Fatalf("packet counts differ: %d vs %d", len(packetsA), len(packetsB))
	}
	for i := range packetsA {
		if packetsA[i].Type != packetsB[i].Type || string(packetsA[i].Payload) != string(packetsB[i].Payload) {
			t.Fatalf("packet %d differs between runs", i)
		}
	}
}

func TestDetectiveConfusionForcesFalseResult(t *testing.T) {
	roles := []game.Role{game.RoleDetective, game.RoleMafioso, game.RoleVillager}
	g := newTestGame(t, roles, game.ModifierSettings{})

	advanceTo(t, g, game.PhaseNight, 2)
	g.DrainPackets()
	selectOne(t, g, 0, game.RoleDetective, 1)
	g.OnFastForward()
	packets := g.DrainPackets()
	if !containsChatVariant(packets, 0, game.VariantDetectiveResult) {
		t.Fatalf("no investigation result delivered")
	}
	found := false
	for _, p := range packetsTo(packets, 0, PacketChatMessage) {
		if containsVariant(p, game.VariantDetectiveResult) {
			found = stringContains(string(p.Payload), `"suspicious":"true"`)
		}
	}
	if !found {
		t.Fatalf("mafioso should read suspicious to a clear-headed detective")
	}

	// A confused detective gets the canonical false result instead.
	g2 := newTestGame(t, roles, game.ModifierSettings{})
	g2.confused[0] = true
	advanceTo(t, g2, game.PhaseNight, 2)
	g2.DrainPackets()
	selectOne(t, g2, 0, game.RoleDetective, 1)
	g2.OnFastForward()
	for _, p := range packetsTo(g2.DrainPackets(), 0, PacketChatMessage) {
		if containsVariant(p, game.VariantDetectiveResult) {
			if stringContains(string(p.Payload), `"suspicious":"true"`) {
				t.Fatalf("confused detective saw the truthful result")
			}
			return
		}
	}
	t.Fatalf("confused detective got no result")
}

func TestWinByEliminatingMafia(t *testing.T) {
	roles := []game.Role{game.RoleVillager, game.RoleMafioso, game.RoleVillager, game.RoleVillager}
	g := newTestGame(t, roles, game.ModifierSettings{})

	advanceTo(t, g, game.PhaseNomination, 2)
	for _, voter := range []game.PlayerRef{0, 2, 3} {
		g.HandleControllerInput(voter, ControllerInput{
			ID:        controller.NominateID(voter),
			Selection: controller.OnePlayer(1),
		})
	}
	if g.Phase().Kind != game.PhaseTestimony {
		t.Fatalf("trial never opened")
	}
	g.OnFastForward() // testimony → judgement
	for _, voter := range []game.PlayerRef{0, 2, 3} {
		g.HandleControllerInput(voter, ControllerInput{
			ID:        controller.JudgeID(voter),
			Selection: controller.Integer(VerdictGuilty),
		})
	}
	g.OnFastForward() // judgement → final words
	if g.Phase().Kind != game.PhaseFinalWords {
		t.Fatalf("guilty majority did not reach final words, phase = %s", g.Phase().Kind)
	}
	g.OnFastForward() // execution
	if g.Alive(1) {
		t.Fatalf("convicted player survived final words")
	}
	if !g.Finished() {
		t.Fatalf("game did not end with the last mafioso dead")
	}
	if g.Conclusion() != game.ConclusionTown {
		t.Fatalf("conclusion = %s, want town", g.Conclusion())
	}
	if g.Phase().Kind != game.PhaseRecess {
		t.Fatalf("finished game not in recess")
	}
}

func TestRoleLimitsClampDuplicates(t *testing.T) {
	g := newTestGame(t, []game.Role{game.RoleMafioso, game.RoleMafioso, game.RoleVillager, game.RoleVillager}, game.ModifierSettings{})
	mafiosi := 0
	for _, ref := range g.AllPlayers() {
		if g.Player(ref).Role == game.RoleMafioso {
			mafiosi++
		}
	}
	if mafiosi != 1 {
		t.Fatalf("mafiosi = %d, want the catalog limit of 1", mafiosi)
	}

	mods := game.NewModifierSettings(game.ModCustomRoleLimits)
	mods.CustomRoleLimits = map[game.Role]int{game.RoleMafioso: 2}
	g = newTestGame(t, []game.Role{game.RoleMafioso, game.RoleMafioso, game.RoleVillager, game.RoleVillager}, mods)
	mafiosi = 0
	for _, ref := range g.AllPlayers() {
		if g.Player(ref).Role == game.RoleMafioso {
			mafiosi++
		}
	}
	if mafiosi != 2 {
		t.Fatalf("custom limit ignored: mafiosi = %d", mafiosi)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	roles := []game.Role{game.RoleDoctor, game.RoleMafioso, game.RoleVillager, game.RoleVillager}
	g := newTestGame(t, roles, game.ModifierSettings{})
	advanceTo(t, g, game.PhaseNight, 2)
	selectOne(t, g, 1, game.RoleMafioso, 2)
	g.OnFastForward()

	raw, err := g.MarshalSnapshot()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	restored, err := RestoreSnapshot(raw)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.DayNumber() != g.DayNumber() || restored.Phase().Kind != g.Phase().Kind {
		t.Fatalf("phase/day drifted: %s/%d vs %s/%d", restored.Phase().Kind, restored.DayNumber(), g.Phase().Kind, g.DayNumber())
	}
	if restored.Alive(2) {
		t.Fatalf("restored game resurrected the victim")
	}
	if len(restored.Graves()) != len(g.Graves()) {
		t.Fatalf("graves lost in round trip")
	}
	raw2, err := restored.MarshalSnapshot()
	if err != nil {
		t.Fatalf("re-marshal: %v", err)
	}
	if raw != raw2 {
		t.Fatalf("snapshot not stable across restore")
	}
}
