// Package controller implements the typed input slots every ability
// and day mechanic reads player intent through. A controller holds a
// validated selection plus the parameters (available choices, allowed
// actors, reset rule) the engine rebuilds after every relevant change.
package controller

import (
	"github.com/duskcourt/server/internal/game"
)

// SelectionKind discriminates Selection.
type SelectionKind string

const (
	SelectUnit        SelectionKind = "unit"
	SelectBoolean     SelectionKind = "boolean"
	SelectString      SelectionKind = "string"
	SelectInteger     SelectionKind = "integer"
	SelectOnePlayer   SelectionKind = "one_player"
	SelectTwoPlayers  SelectionKind = "two_players"
	SelectPlayerList  SelectionKind = "player_list"
	SelectOneRole     SelectionKind = "one_role"
	SelectTwoRoles    SelectionKind = "two_roles"
	SelectChatMessage SelectionKind = "chat_message"
)

// Selection is the typed union of everything a controller can hold.
// One-player and two-player selections use nil to mean "no choice".
type Selection struct {
	Kind    SelectionKind    `json:"kind"`
	Boolean bool             `json:"boolean,omitempty"`
	String  string           `json:"string,omitempty"`
	Integer int              `json:"integer,omitempty"`
	Player  *game.PlayerRef  `json:"player,omitempty"`
	PlayerB *game.PlayerRef  `json:"player_b,omitempty"`
	Players []game.PlayerRef `json:"players,omitempty"`
	Role    game.Role        `json:"role,omitempty"`
	RoleB   game.Role        `json:"role_b,omitempty"`
	Message string           `json:"message,omitempty"`
}

func Unit() Selection             { return Selection{Kind: SelectUnit} }
func Boolean(b bool) Selection    { return Selection{Kind: SelectBoolean, Boolean: b} }
func String(s string) Selection   { return Selection{Kind: SelectString, String: s} }
func Integer(i int) Selection     { return Selection{Kind: SelectInteger, Integer: i} }
func NoPlayer() Selection         { return Selection{Kind: SelectOnePlayer} }
func ChatMessage(s string) Selection {
	return Selection{Kind: SelectChatMessage, Message: s}
}

func OnePlayer(p game.PlayerRef) Selection {
	return Selection{Kind: SelectOnePlayer, Player: &p}
}

func TwoPlayers(a, b game.PlayerRef) Selection {
	return Selection{Kind: SelectTwoPlayers, Player: &a, PlayerB: &b}
}

func NoPlayers() Selection { return Selection{Kind: SelectTwoPlayers} }

func PlayerList(ps ...game.PlayerRef) Selection {
	return Selection{Kind: SelectPlayerList, Players: ps}
}

func OneRole(r game.Role) Selection { return Selection{Kind: SelectOneRole, Role: r} }

// Equal compares two selections field by field.
func (s Selection) Equal(o Selection) bool {
	if s.Kind != o.Kind || s.Boolean != o.Boolean || s.String != o.String ||
		s.Integer != o.Integer || s.Role != o.Role || s.RoleB != o.RoleB || s.Message != o.Message {
		return false
	}
	if !refEqual(s.Player, o.Player) || !refEqual(s.PlayerB, o.PlayerB) {
		return false
	}
	if len(s.Players) != len(o.Players) {
		return false
	}
	for i := range s.Players {
		if s.Players[i] != o.Players[i] {
			return false
		}
	}
	return true
}

func refEqual(a, b *game.PlayerRef) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
