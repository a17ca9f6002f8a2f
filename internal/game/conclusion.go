package game

// Conclusion names a way the game can end.
type Conclusion string

const (
	ConclusionTown  Conclusion = "town"
	ConclusionMafia Conclusion = "mafia"
	ConclusionCult  Conclusion = "cult"
	ConclusionDraw  Conclusion = "draw"
)

// WinCondition describes which conclusions a player accepts as a win.
// An empty Friendly set means the player wins no matter how the game
// ends (a pure survivor).
type WinCondition struct {
	Friendly []Conclusion `json:"friendly"`
}

func WinConditionFor(c Conclusion) WinCondition {
	return WinCondition{Friendly: []Conclusion{c}}
}

// FriendsWithConclusion reports whether the given conclusion satisfies
// this win condition. A condition with no friendly conclusions is
// satisfied by all of them.
func (w WinCondition) FriendsWithConclusion(c Conclusion) bool {
	if len(w.Friendly) == 0 {
		return true
	}
	for _, f := range w.Friendly {
		if f == c {
			return true
		}
	}
	return false
}

// FriendsWith reports whether two win conditions share at least one
// acceptable conclusion. The relation is symmetric but not transitive:
// a survivor is friends with both town and mafia, who are not friends
// with each other.
func (w WinCondition) FriendsWith(o WinCondition) bool {
	if len(w.Friendly) == 0 || len(o.Friendly) == 0 {
		return true
	}
	for _, f := range w.Friendly {
		if o.FriendsWithConclusion(f) {
			return true
		}
	}
	return false
}
