package controller

import "github.com/duskcourt/server/internal/game"

// Available describes the legal selection space for one controller and
// validates candidate selections against it. Each variant mirrors one
// Selection kind.
type Available struct {
	Kind SelectionKind `json:"kind"`

	// Integer range, inclusive.
	Min int `json:"min,omitempty"`
	Max int `json:"max,omitempty"`

	// Player choices. Players applies to one-player and list
	// selections and to the first slot of two-player selections;
	// SecondPlayers to the second slot.
	Players       []game.PlayerRef `json:"players,omitempty"`
	SecondPlayers []game.PlayerRef `json:"second_players,omitempty"`
	CanChooseNone bool             `json:"can_choose_none,omitempty"`
	CanDuplicate  bool             `json:"can_duplicate,omitempty"`
	MaxPlayers    int              `json:"max_players,omitempty"`

	Roles []game.Role `json:"roles,omitempty"`
}

func AvailableUnit() Available    { return Available{Kind: SelectUnit} }
func AvailableBoolean() Available { return Available{Kind: SelectBoolean} }
func AvailableString() Available  { return Available{Kind: SelectString} }
func AvailableChatMessage() Available {
	return Available{Kind: SelectChatMessage}
}

func AvailableInteger(min, max int) Available {
	return Available{Kind: SelectInteger, Min: min, Max: max}
}

func AvailableOnePlayer(players []game.PlayerRef, canChooseNone bool) Available {
	return Available{Kind: SelectOnePlayer, Players: players, CanChooseNone: canChooseNone}
}

func AvailableTwoPlayers(first, second []game.PlayerRef, canDuplicate, canChooseNone bool) Available {
	return Available{Kind: SelectTwoPlayers, Players: first, SecondPlayers: second, CanDuplicate: canDuplicate, CanChooseNone: canChooseNone}
}

func AvailablePlayerList(players []game.PlayerRef, maxPlayers int, canDuplicate bool) Available {
	return Available{Kind: SelectPlayerList, Players: players, MaxPlayers: maxPlayers, CanDuplicate: canDuplicate}
}

func AvailableOneRole(roles []game.Role) Available {
	return Available{Kind: SelectOneRole, Roles: roles}
}

// Validate reports whether the selection fits this availability. An
// invalid selection is rejected silently by the store; nothing here
// ever errors.
func (a Available) Validate(s Selection) bool {
	if s.Kind != a.Kind {
		return false
	}
	switch a.Kind {
	case SelectUnit, SelectBoolean, SelectString, SelectChatMessage:
		return true
	case SelectInteger:
		return s.Integer >= a.Min && s.Integer <= a.Max
	case SelectOnePlayer:
		if s.Player == nil {
			return a.CanChooseNone
		}
		return containsRef(a.Players, *s.Player)
	case SelectTwoPlayers:
		if s.Player == nil && s.PlayerB == nil {
			return a.CanChooseNone
		}
		if s.Player == nil || s.PlayerB == nil {
			return false
		}
		if !a.CanDuplicate && *s.Player == *s.PlayerB {
			return false
		}
		second := a.SecondPlayers
		if second == nil {
			second = a.Players
		}
		return containsRef(a.Players, *s.Player) && containsRef(second, *s.PlayerB)
	case SelectPlayerList:
		if a.MaxPlayers > 0 && len(s.Players) > a.MaxPlayers {
			return false
		}
		seen := make(map[game.PlayerRef]bool, len(s.Players))
		for _, p := range s.Players {
			if !containsRef(a.Players, p) {
				return false
			}
			if !a.CanDuplicate {
				if seen[p] {
					return false
				}
				seen[p] = true
			}
		}
		return true
	case SelectOneRole:
		return containsRole(a.Roles, s.Role)
	case SelectTwoRoles:
		return containsRole(a.Roles, s.Role) && containsRole(a.Roles, s.RoleB)
	default:
		return false
	}
}

// DefaultSelection returns the neutral selection for this availability.
func (a Available) DefaultSelection() Selection {
	switch a.Kind {
	case SelectBoolean:
		return Boolean(false)
	case SelectString:
		return String("")
	case SelectInteger:
		return Integer(a.Min)
	case SelectOnePlayer:
		return NoPlayer()
	case SelectTwoPlayers:
		return NoPlayers()
	case SelectPlayerList:
		return PlayerList()
	case SelectOneRole:
		var r game.Role
		if len(a.Roles) > 0 {
			r = a.Roles[0]
		}
		return OneRole(r)
	case SelectChatMessage:
		return ChatMessage("")
	default:
		return Unit()
	}
}

func containsRef(ps []game.PlayerRef, p game.PlayerRef) bool {
	for _, c := range ps {
		if c == p {
			return true
		}
	}
	return false
}

func containsRole(rs []game.Role, r game.Role) bool {
	for _, c := range rs {
		if c == r {
			return true
		}
	}
	return false
}
