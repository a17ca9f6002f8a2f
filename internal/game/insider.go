package game

// InsiderGroup names a hidden coalition whose members know each other
// and share a private chat.
type InsiderGroup string

const (
	InsiderMafia     InsiderGroup = "mafia"
	InsiderCult      InsiderGroup = "cult"
	InsiderPuppeteer InsiderGroup = "puppeteer"
)

// InsiderGroups lists every group in canonical order.
var InsiderGroups = []InsiderGroup{InsiderMafia, InsiderCult, InsiderPuppeteer}

// RoleSet is a named collection of roles, used mainly to blur grave
// killers ("killed by the Mafia" instead of "killed by the Mafioso").
type RoleSet string

const (
	RoleSetTown  RoleSet = "town"
	RoleSetMafia RoleSet = "mafia"
	RoleSetCult  RoleSet = "cult"
)

var roleSets = map[RoleSet][]Role{
	RoleSetTown:  {RoleVillager, RoleDoctor, RoleDetective, RoleEscort, RoleTransporter, RoleMayor, RoleRabblerouser, RoleDrunk},
	RoleSetMafia: {RoleMafioso, RoleBlackmailer, RoleFramer},
	RoleSetCult:  {RoleApostle, RoleZealot, RoleDisciple},
}

// Contains reports whether the set includes the role.
func (s RoleSet) Contains(r Role) bool {
	for _, m := range roleSets[s] {
		if m == r {
			return true
		}
	}
	return false
}

// RoleSetOf returns the smallest named set containing the role.
func RoleSetOf(r Role) RoleSet {
	for _, s := range []RoleSet{RoleSetMafia, RoleSetCult, RoleSetTown} {
		if s.Contains(r) {
			return s
		}
	}
	return RoleSetTown
}
