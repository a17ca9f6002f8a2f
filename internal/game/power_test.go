package game

import "testing"

func TestAttackDefenseStrictInequality(t *testing.T) {
	tests := []struct {
		attack  AttackPower
		defense DefensePower
		pierces bool
	}{
		{AttackBasic, DefenseNone, true},
		{AttackBasic, DefenseArmored, false},
		{AttackBasic, DefenseProtected, false},
		{AttackArmorPiercing, DefenseArmored, true},
		{AttackArmorPiercing, DefenseProtected, false},
		{AttackProtectionPiercing, DefenseProtected, true},
		{AttackProtectionPiercing, DefenseInvincible, false},
	}
	for _, tc := range tests {
		if got := tc.attack.CanPierce(tc.defense); got != tc.pierces {
			t.Errorf("%s vs %s: pierce = %v, want %v", tc.attack, tc.defense, got, tc.pierces)
		}
		if got := tc.defense.CanBlock(tc.attack); got == tc.pierces {
			t.Errorf("%s vs %s: CanBlock must complement CanPierce", tc.attack, tc.defense)
		}
	}
}

func TestWinConditionFriendship(t *testing.T) {
	town := WinConditionFor(ConclusionTown)
	mafia := WinConditionFor(ConclusionMafia)
	survivor := WinCondition{}

	if town.FriendsWith(mafia) {
		t.Errorf("town and mafia must not be friends")
	}
	if !town.FriendsWith(town) {
		t.Errorf("town must be friends with itself")
	}
	// Symmetric but not transitive: the survivor bridges both camps.
	if !survivor.FriendsWith(town) || !town.FriendsWith(survivor) {
		t.Errorf("survivor friendship must be symmetric")
	}
	if !survivor.FriendsWith(mafia) {
		t.Errorf("survivor accepts any conclusion")
	}
}

func TestRoleSetOf(t *testing.T) {
	if got := RoleSetOf(RoleMafioso); got != RoleSetMafia {
		t.Errorf("mafioso set = %s", got)
	}
	if got := RoleSetOf(RoleZealot); got != RoleSetCult {
		t.Errorf("zealot set = %s", got)
	}
	if got := RoleSetOf(RoleVillager); got != RoleSetTown {
		t.Errorf("villager set = %s", got)
	}
}

func TestCatalogEntriesResolve(t *testing.T) {
	for _, r := range Catalog {
		if !r.ID.Valid() {
			t.Errorf("catalog entry %s not resolvable", r.ID)
		}
	}
	if GetRole(Role("nonesuch")) != nil {
		t.Errorf("unknown role resolved")
	}
}
