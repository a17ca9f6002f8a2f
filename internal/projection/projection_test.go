package projection

import (
	"testing"

	"github.com/duskcourt/server/internal/engine"
	"github.com/duskcourt/server/internal/game"
)

func seatViewer(ref game.PlayerRef) Viewer {
	return Viewer{Seat: &ref}
}

func TestPrivatePacketsRouteToSeatOnly(t *testing.T) {
	to := game.PlayerRef(1)
	private := engine.Packet{To: &to, Type: engine.PacketChatMessage, Payload: []byte(`{}`)}
	broadcast := engine.Packet{Type: engine.PacketPhase, Payload: []byte(`{}`)}

	if Project(private, 1, seatViewer(0)) != nil {
		t.Fatalf("private packet leaked to another seat")
	}
	if Project(private, 1, Viewer{}) != nil {
		t.Fatalf("private packet leaked to a spectator")
	}
	if Project(private, 1, seatViewer(1)) == nil {
		t.Fatalf("recipient lost their packet")
	}
	if Project(private, 1, Viewer{IsHost: true}) == nil {
		t.Fatalf("host must see everything")
	}
	if Project(broadcast, 2, seatViewer(0)) == nil {
		t.Fatalf("broadcast withheld")
	}
}

func TestProjectedStateHidesUnknownRoles(t *testing.T) {
	g := engine.NewGame("proj", engine.Settings{
		PlayerNames: []string{"a", "b", "c", "d"},
		Roles:       []game.Role{game.RoleMafioso, game.RoleBlackmailer, game.RoleVillager, game.RoleDoctor},
		Seed:        1,
	})

	// Seat 2 (villager) sees its own role and nothing else.
	view := ProjectedState(g, seatViewer(2))
	for _, seat := range view.Seats {
		switch seat.Ref {
		case 2:
			if seat.Role != game.RoleVillager {
				t.Fatalf("own role hidden: %+v", seat)
			}
		default:
			if seat.Role != "" {
				t.Fatalf("leaked role of seat %d: %s", seat.Ref, seat.Role)
			}
		}
	}
	if view.YourRole != game.RoleVillager {
		t.Fatalf("your_role = %s", view.YourRole)
	}

	// Mafia insiders know each other.
	view = ProjectedState(g, seatViewer(0))
	for _, seat := range view.Seats {
		if seat.Ref == 1 && seat.Role != game.RoleBlackmailer {
			t.Fatalf("insider ally hidden: %+v", seat)
		}
		if seat.Ref == 2 && seat.Role != "" {
			t.Fatalf("outsider leaked to mafia viewer")
		}
	}

	// The host sees everything; a spectator sees no roles at all.
	view = ProjectedState(g, Viewer{IsHost: true})
	if view.Seats[3].Role != game.RoleDoctor {
		t.Fatalf("host view scrubbed")
	}
	view = ProjectedState(g, Viewer{})
	for _, seat := range view.Seats {
		if seat.Role != "" {
			t.Fatalf("spectator saw a role")
		}
	}
}
