package roster

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/arcanetable/encounter-server/internal/combat"
	"github.com/arcanetable/encounter-server/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const npcSheet = `id,name,max_hp,ac,strength,dexterity,resistances,weapon,weapon_type,weapon_damage,weapon_bonus,armor,armor_ac
n2,Grey Ooze,22,8,12,6,Acid; cold,Pseudopod,melee,Acid,,,
n3,Goblin Archer,7,13,8,14,,Shortbow,ranged,piercing,1,Leather,12
`

func TestParseNPCSheet(t *testing.T) {
	npcs, err := ParseNPCSheet(strings.NewReader(npcSheet))
	require.NoError(t, err)
	require.Len(t, npcs, 2)

	ooze := npcs[0]
	assert.Equal(t, ID("n2"), ooze.ID)
	assert.Equal(t, 22, ooze.MaxHitPoints())
	assert.Equal(t, 8, ooze.ArmorClass())
	assert.Equal(t, combat.DamageTypes{"acid", "cold"}, ooze.Resistances)
	weapon, ok := ooze.EquippedWeapon()
	require.True(t, ok)
	assert.Equal(t, Weapon{Name: "Pseudopod", DamageType: "acid", AttackBonus: 1}, weapon)

	archer := npcs[1]
	assert.Nil(t, archer.Resistances)
	assert.Equal(t, 12, archer.ArmorClass())
	weapon, ok = archer.EquippedWeapon()
	require.True(t, ok)
	assert.Equal(t, 3, weapon.AttackBonus, "bow +1 and DEX +2")
}

func TestParseNPCSheetErrors(t *testing.T) {
	tests := []struct {
		name  string
		sheet string
		want  string
	}{
		{name: "empty", sheet: "", want: "empty"},
		{name: "missing column", sheet: "id,hp\nn1,4\n", want: `"name"`},
		{name: "missing name", sheet: "id,name\nn1,\n", want: "row 2"},
		{name: "bad number", sheet: "id,name,ac\nn1,Rat,high\n", want: `ac "high"`},
		{name: "duplicate", sheet: "id,name\nn1,Rat\nn1,Bat\n", want: "row 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseNPCSheet(strings.NewReader(tt.sheet))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestImportNPCs(t *testing.T) {
	ctx := context.Background()
	collections := repository.NewMemoryStore()
	require.NoError(t, collections.Save(ctx, repository.CollectionNPCs, []byte(`[
  {"id": "n1", "name": "Bandit Captain", "maxHp": 30, "notes": "ransoms nobles"},
  {"id": "n2", "name": "Ooze"}
]`)))
	store := NewStore(collections)

	npcs, err := ParseNPCSheet(strings.NewReader(npcSheet))
	require.NoError(t, err)
	result, err := store.ImportNPCs(ctx, npcs)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Added: 1, Updated: 1}, result)

	ooze, err := store.NPC(ctx, "n2")
	require.NoError(t, err)
	assert.Equal(t, "Grey Ooze", ooze.Name)

	archer, err := store.NPC(ctx, "n3")
	require.NoError(t, err)
	assert.Equal(t, 13, archer.AC)

	raw, err := collections.Load(ctx, repository.CollectionNPCs)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "ransoms nobles")

	result, err = store.ImportNPCs(ctx, npcs)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Updated: 2}, result)
}

func TestImportNPCsMatchesNumericIDs(t *testing.T) {
	ctx := context.Background()
	collections := repository.NewMemoryStore()
	require.NoError(t, collections.Save(ctx, repository.CollectionNPCs, []byte(`[
  {"id": 1, "name": "Wolf", "notes": "pack leader"},
  {"id": 2, "name": "Troll"}
]`)))
	store := NewStore(collections)

	npcs, err := ParseNPCSheet(strings.NewReader("id,name,max_hp\n2,Cave Troll,84\n3,Ogre,59\n"))
	require.NoError(t, err)
	result, err := store.ImportNPCs(ctx, npcs)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Added: 1, Updated: 1}, result)

	raw, err := collections.Load(ctx, repository.CollectionNPCs)
	require.NoError(t, err)
	var stored []map[string]any
	require.NoError(t, json.Unmarshal(raw, &stored))
	require.Len(t, stored, 3)
	assert.Equal(t, float64(1), stored[0]["id"])
	assert.Equal(t, "pack leader", stored[0]["notes"])
	assert.Equal(t, float64(2), stored[1]["id"], "ids keep the numeric form")
	assert.Equal(t, "Cave Troll", stored[1]["name"])
	assert.Equal(t, float64(3), stored[2]["id"])

	troll, err := store.NPC(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, 84, troll.MaxHP)
}
