package game

// PlayerRef is a stable index into the game's player array. It never
// changes for the lifetime of a game, even after the player dies or
// disconnects, so every other structure holds these instead of
// pointers.
type PlayerRef int

// Role identifies a role in the closed catalog.
type Role string

const (
	RoleVillager     Role = "villager"
	RoleDoctor       Role = "doctor"
	RoleDetective    Role = "detective"
	RoleEscort       Role = "escort"
	RoleTransporter  Role = "transporter"
	RoleMayor        Role = "mayor"
	RoleRabblerouser Role = "rabblerouser"
	RoleMafioso      Role = "mafioso"
	RoleBlackmailer  Role = "blackmailer"
	RoleFramer       Role = "framer"
	RoleApostle      Role = "apostle"
	RoleZealot       Role = "zealot"
	RoleDisciple     Role = "disciple"
	RoleDrunk        Role = "drunk"
)

// RoleData holds the static constants of a role: display names, the
// maximum number of instances one game may contain (0 means no limit),
// the innate night defense, and the default team.
type RoleData struct {
	ID        Role         `json:"id"`
	Name      string       `json:"name"`
	NameCN    string       `json:"name_cn"`
	MaxCount  int          `json:"max_count"`
	Defense   DefensePower `json:"defense"`
	Team      Conclusion   `json:"team"`
	Insiders  []InsiderGroup
}

// Catalog lists every supported role in canonical order. Night
// resolution does not iterate it: the ability table and the midnight
// resolver follow ability-table insertion order.
var Catalog = []RoleData{
	{ID: RoleVillager, Name: "Villager", NameCN: "村民", Team: ConclusionTown},
	{ID: RoleDoctor, Name: "Doctor", NameCN: "医生", Team: ConclusionTown},
	{ID: RoleDetective, Name: "Detective", NameCN: "侦探", Team: ConclusionTown},
	{ID: RoleEscort, Name: "Escort", NameCN: "舞女", Team: ConclusionTown},
	{ID: RoleTransporter, Name: "Transporter", NameCN: "摆渡人", Team: ConclusionTown},
	{ID: RoleMayor, Name: "Mayor", NameCN: "市长", MaxCount: 1, Team: ConclusionTown},
	{ID: RoleRabblerouser, Name: "Rabblerouser", NameCN: "煽动者", Team: ConclusionTown},
	{ID: RoleDrunk, Name: "Drunk", NameCN: "酒鬼", Team: ConclusionTown},
	{ID: RoleMafioso, Name: "Mafioso", NameCN: "黑手党徒", MaxCount: 1, Team: ConclusionMafia, Insiders: []InsiderGroup{InsiderMafia}},
	{ID: RoleBlackmailer, Name: "Blackmailer", NameCN: "勒索者", MaxCount: 1, Team: ConclusionMafia, Insiders: []InsiderGroup{InsiderMafia}},
	{ID: RoleFramer, Name: "Framer", NameCN: "栽赃者", MaxCount: 1, Team: ConclusionMafia, Insiders: []InsiderGroup{InsiderMafia}},
	{ID: RoleApostle, Name: "Apostle", NameCN: "使徒", MaxCount: 1, Team: ConclusionCult, Insiders: []InsiderGroup{InsiderCult}},
	{ID: RoleZealot, Name: "Zealot", NameCN: "狂信者", MaxCount: 1, Team: ConclusionCult, Insiders: []InsiderGroup{InsiderCult}},
	{ID: RoleDisciple, Name: "Disciple", NameCN: "信徒", Team: ConclusionCult, Insiders: []InsiderGroup{InsiderCult}},
}

var roleMap map[Role]*RoleData

func init() {
	roleMap = make(map[Role]*RoleData, len(Catalog))
	for i := range Catalog {
		roleMap[Catalog[i].ID] = &Catalog[i]
	}
}

// GetRole returns the static data for a role, or nil for an unknown tag.
func GetRole(id Role) *RoleData {
	return roleMap[id]
}

// Valid reports whether the tag names a role in the catalog.
func (r Role) Valid() bool {
	_, ok := roleMap[r]
	return ok
}
