package game

// Modifier is a lobby-time rule switch. The set is fixed when the game
// starts and immutable afterwards.
type Modifier string

const (
	ModAbstaining            Modifier = "abstaining"
	ModDeadCanChat           Modifier = "dead_can_chat"
	ModNoDeathCause          Modifier = "no_death_cause"
	ModNoMajority            Modifier = "no_majority"
	ModNoTrialPhases         Modifier = "no_trial_phases"
	ModSkipDay1              Modifier = "skip_day_1"
	ModObscuredGraves        Modifier = "obscured_graves"
	ModHiddenNominationVotes Modifier = "hidden_nomination_votes"
	ModHiddenVerdictVotes    Modifier = "hidden_verdict_votes"
	ModHiddenWhispers        Modifier = "hidden_whispers"
	ModNoWhispers            Modifier = "no_whispers"
	ModNoChat                Modifier = "no_chat"
	ModNoNightChat           Modifier = "no_night_chat"
	ModTwoThirdsMajority     Modifier = "two_thirds_majority"
	ModUnscheduledNominations Modifier = "unscheduled_nominations"
	ModForfeitNominationVote Modifier = "forfeit_nomination_vote"
	ModCustomRoleLimits      Modifier = "custom_role_limits"
	ModCustomRoleSets        Modifier = "custom_role_sets"
	ModRandomPlayerNames     Modifier = "random_player_names"
	ModGravity               Modifier = "gravity"
	ModRoleSetGraveKillers   Modifier = "role_set_grave_killers"
	ModAutoGuilty            Modifier = "auto_guilty"
)

// GravityLevel selects which way the Gravity modifier misbehaves.
type GravityLevel string

const (
	ZeroGravity GravityLevel = "zero_gravity"
	AntiGravity GravityLevel = "anti_gravity"
)

// ModifierSettings is the immutable modifier set chosen at lobby time.
type ModifierSettings struct {
	Enabled map[Modifier]bool `json:"enabled"`
	Gravity GravityLevel      `json:"gravity,omitempty"`
	// CustomRoleLimits overrides Catalog max counts when the
	// CustomRoleLimits modifier is enabled.
	CustomRoleLimits map[Role]int `json:"custom_role_limits,omitempty"`
	// CustomRoleSets restricts the random deal to these roles when the
	// CustomRoleSets modifier is enabled.
	CustomRoleSets []Role `json:"custom_role_sets,omitempty"`
}

// RoleLimit returns the maximum instances of a role one game may hold:
// the catalog constant, overridden by CustomRoleLimits when that
// modifier is on. Zero means unlimited.
func (s ModifierSettings) RoleLimit(r Role) int {
	if s.IsEnabled(ModCustomRoleLimits) {
		if limit, ok := s.CustomRoleLimits[r]; ok {
			return limit
		}
	}
	if data := GetRole(r); data != nil {
		return data.MaxCount
	}
	return 0
}

func NewModifierSettings(mods ...Modifier) ModifierSettings {
	s := ModifierSettings{Enabled: make(map[Modifier]bool, len(mods))}
	for _, m := range mods {
		s.Enabled[m] = true
	}
	return s
}

func (s ModifierSettings) IsEnabled(m Modifier) bool {
	return s.Enabled[m]
}

func (s ModifierSettings) IsAntiGravity() bool {
	return s.IsEnabled(ModGravity) && s.Gravity == AntiGravity
}

func (s ModifierSettings) IsZeroGravity() bool {
	return s.IsEnabled(ModGravity) && s.Gravity == ZeroGravity
}
