package combat

import (
	"errors"
	"testing"
	"time"

	"github.com/arcanetable/encounter-server/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 1, 1, 12, 5, 0, 0, time.UTC)

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

// fireScenario builds player P (init 15, 20 HP) and fire-resistant NPC N
// (init 8, 10 HP).
func fireScenario(t *testing.T) (*Encounter, Actor, Actor, Defenses) {
	t.Helper()
	enc := newTestEncounter()
	_, err := enc.SubmitInitiative("p", 12, 3, 15, 20, testNow)
	require.NoError(t, err)
	_, err = enc.AddNPC("n", 8, 10, false)
	require.NoError(t, err)
	return enc, playerActor("p", "Pell"), npcActor("n", "Newt"), Defenses{Resistances: DamageTypes{"fire"}}
}

func fireAttack(p, n Actor, defenses Defenses, damage int) AttackInput {
	return AttackInput{
		Actor:          p,
		Target:         n,
		TargetAC:       12,
		TargetDefenses: defenses,
		AttackRoll:     15,
		AttackBonus:    4,
		Damage:         damage,
		DamageType:     "fire",
		ActionType:     ActionFree,
	}
}

func TestFireResistantNPCScenario(t *testing.T) {
	enc, p, n, defenses := fireScenario(t)
	require.Equal(t, []string{"p", "n"}, ids(enc))
	npc := enc.Find(n.Ref())

	entry, err := enc.Attack(fireAttack(p, n, defenses, 12), testNow)
	require.NoError(t, err)
	assert.True(t, entry.Attack.Hit)
	assert.Equal(t, 6, entry.Attack.Damage)
	assert.Equal(t, 12, entry.Attack.RawDamage)
	require.Len(t, entry.Attack.Adjustments, 1)
	assert.True(t, entry.Attack.Adjustments[0].Resisted)
	assert.Equal(t, 4, npc.CurrentHP)
	assert.Empty(t, enc.CombatLog.OfKind(EntryDefeat))

	_, err = enc.Attack(fireAttack(p, n, defenses, 6), testNow)
	require.NoError(t, err)
	assert.Equal(t, 1, npc.CurrentHP)
	assert.False(t, npc.Defeated)
	assert.Empty(t, enc.CombatLog.OfKind(EntryDefeat))

	// Rest the turn pointer on N before the killing blow.
	enc.Scheduler().Advance()
	require.Equal(t, "n", enc.Current().ID)

	_, err = enc.Attack(fireAttack(p, n, defenses, 2), testNow)
	require.NoError(t, err)
	assert.Equal(t, 0, npc.CurrentHP)
	assert.True(t, npc.Defeated)

	defeats := enc.CombatLog.OfKind(EntryDefeat)
	require.Len(t, defeats, 1)
	assert.Equal(t, "p", defeats[0].Actor.ID)
	assert.Equal(t, "n", defeats[0].Defeat.Target.ID)
	assert.Equal(t, "Pell defeats Newt!", defeats[0].Defeat.Message)

	assert.Equal(t, "p", enc.Current().ID, "pointer moved off the defeated NPC")
	assert.Equal(t, 2, enc.Round)
}

func TestDefeatHandlerIsIdempotent(t *testing.T) {
	enc, p, n, _ := fireScenario(t)
	npc := enc.Find(n.Ref())
	handler := NewDefeatHandler(enc, testNow)

	npc.CurrentHP = 0
	assert.True(t, handler.OnHPChanged(npc, 3, p, "Newt"))
	assert.False(t, handler.OnHPChanged(npc, 3, p, "Newt"))
	assert.False(t, handler.Defeat(npc, p, "Newt"))
	assert.Len(t, enc.CombatLog.OfKind(EntryDefeat), 1)
}

func TestDefeatHandlerIgnoresPlayersAndNonCrossings(t *testing.T) {
	enc, p, n, _ := fireScenario(t)
	handler := NewDefeatHandler(enc, testNow)

	player := enc.Find(p.Ref())
	player.CurrentHP = 0
	assert.False(t, handler.OnHPChanged(player, 5, n, "Pell"))
	assert.False(t, player.Defeated)

	npc := enc.Find(n.Ref())
	npc.CurrentHP = 0
	assert.False(t, handler.OnHPChanged(npc, 0, p, "Newt"), "already at zero is not a crossing")
	assert.Empty(t, enc.CombatLog)
}

func TestAttackMissLogsWithoutDamage(t *testing.T) {
	enc, p, n, defenses := fireScenario(t)
	in := fireAttack(p, n, defenses, 12)
	in.AttackRoll = 2

	entry, err := enc.Attack(in, testNow)
	require.NoError(t, err)
	assert.False(t, entry.Attack.Hit)
	assert.Equal(t, 0, entry.Attack.Damage)
	assert.Equal(t, 10, enc.Find(n.Ref()).CurrentHP)
}

func TestAttackCritAlwaysHitsAndUntypedIsPhysical(t *testing.T) {
	enc, p, n, _ := fireScenario(t)
	in := fireAttack(p, n, Defenses{Resistances: DamageTypes{TagPhysical}}, 4)
	in.AttackRoll = 1
	in.TargetAC = 30
	in.Crit = true
	in.DamageType = ""
	in.RageBonus = 2

	entry, err := enc.Attack(in, testNow)
	require.NoError(t, err)
	assert.True(t, entry.Attack.Hit)
	assert.Equal(t, TagPhysical, entry.Attack.DamageType)
	assert.Equal(t, 6, entry.Attack.RawDamage)
	assert.Equal(t, 3, entry.Attack.Damage)
	require.Len(t, entry.Attack.Adjustments, 1)
	assert.True(t, entry.Attack.Adjustments[0].Resisted)
}

func TestEconomyViolationLeavesStateUntouched(t *testing.T) {
	enc, p, n, defenses := fireScenario(t)
	in := fireAttack(p, n, defenses, 4)
	in.ActionType = ActionStandard

	_, err := enc.Attack(in, testNow)
	require.NoError(t, err)
	hpAfterFirst := enc.Find(n.Ref()).CurrentHP
	logLen := enc.CombatLog.Len()

	_, err = enc.Attack(in, testNow)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrEconomyViolation))
	assert.Equal(t, hpAfterFirst, enc.Find(n.Ref()).CurrentHP)
	assert.Equal(t, logLen, enc.CombatLog.Len())

	in.ActionType = ActionBonus
	_, err = enc.Attack(in, testNow)
	require.NoError(t, err)
	_, err = enc.Attack(in, testNow)
	assert.True(t, errors.Is(err, apperr.ErrEconomyViolation))
}

func TestUnresolvedTargetDoesNotSpendAction(t *testing.T) {
	enc, p, _, defenses := fireScenario(t)
	in := fireAttack(p, npcActor("missing", "Ghost"), defenses, 4)
	in.ActionType = ActionStandard

	_, err := enc.Attack(in, testNow)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.False(t, enc.Find(p.Ref()).ActionUsed)
	assert.Empty(t, enc.CombatLog)
}

func TestCastSpellPerTargetDamageAndHealing(t *testing.T) {
	enc, p, n, defenses := fireScenario(t)
	_, err := enc.AddNPC("m", 5, 10, false)
	require.NoError(t, err)
	m := npcActor("m", "Mote")
	enc.Find(p.Ref()).CurrentHP = 15

	entry, err := enc.CastSpell(SpellInput{
		Actor: p,
		Targets: []SpellTarget{
			{Target: n, Defenses: defenses},
			{Target: m, Defenses: Defenses{Vulnerabilities: DamageTypes{"fire"}}},
			{Target: p},
		},
		SpellName:  "Fireball",
		SpellLevel: 3,
		Damage:     []int{7, 6},
		Healing:    []int{0, 0, 10},
		DamageType: "Fire",
		ActionType: ActionStandard,
	}, testNow)
	require.NoError(t, err)

	assert.Equal(t, []int{3, 12, 0}, entry.Spell.Damage)
	assert.Equal(t, []int{7, 6, 0}, entry.Spell.RawDamage)
	assert.Equal(t, []int{0, 0, 10}, entry.Spell.Healing)
	assert.Len(t, entry.Spell.Adjustments, 2)

	assert.Equal(t, 7, enc.Find(n.Ref()).CurrentHP)
	assert.Equal(t, 0, enc.Find(m.Ref()).CurrentHP)
	assert.True(t, enc.Find(m.Ref()).Defeated)
	assert.Equal(t, 20, enc.Find(p.Ref()).CurrentHP, "healing clamps to max HP")

	require.Len(t, enc.CombatLog, 2)
	assert.Equal(t, EntrySpell, enc.CombatLog[0].Kind)
	assert.Equal(t, EntryDefeat, enc.CombatLog[1].Kind)
}

func TestCastSpellValidatesBeforeMutating(t *testing.T) {
	enc, p, n, _ := fireScenario(t)
	_, err := enc.CastSpell(SpellInput{
		Actor:      p,
		Targets:    []SpellTarget{{Target: n}, {Target: npcActor("nope", "")}},
		Damage:     []int{5, 5},
		ActionType: ActionStandard,
	}, testNow)
	require.Error(t, err)
	assert.Equal(t, 10, enc.Find(n.Ref()).CurrentHP)
	assert.False(t, enc.Find(p.Ref()).ActionUsed)

	_, err = enc.CastSpell(SpellInput{Actor: p, Targets: []SpellTarget{{Target: n}}, Damage: []int{1, 2}}, testNow)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestUseItemHealingAndDamage(t *testing.T) {
	enc, p, n, defenses := fireScenario(t)
	enc.Find(p.Ref()).CurrentHP = 5

	entry, err := enc.UseItem(ItemInput{
		Actor:      p,
		Target:     &p,
		ItemName:   "Potion of Healing",
		Effect:     ItemHealing,
		HealAmount: 30,
		ActionType: ActionBonus,
	}, testNow)
	require.NoError(t, err)
	assert.Equal(t, 20, enc.Find(p.Ref()).CurrentHP)
	assert.Equal(t, 30, entry.Item.HealAmount)

	entry, err = enc.UseItem(ItemInput{
		Actor:            p,
		Target:           &n,
		TargetDefenses:   defenses,
		ItemName:         "Alchemist's Fire",
		Effect:           ItemDamage,
		EffectDamageType: "fire",
		DamageAmount:     5,
		ActionType:       ActionStandard,
	}, testNow)
	require.NoError(t, err)
	assert.Equal(t, 2, entry.Item.DamageAmount)
	assert.Equal(t, 5, entry.Item.RawDamageAmount)
	assert.Equal(t, 8, enc.Find(n.Ref()).CurrentHP)
	require.Len(t, entry.Item.Adjustments, 1)
}

func TestUseItemRequiresTargetForEffects(t *testing.T) {
	enc, p, _, _ := fireScenario(t)
	_, err := enc.UseItem(ItemInput{Actor: p, Effect: ItemDamage, DamageAmount: 3, ActionType: ActionStandard}, testNow)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	assert.False(t, enc.Find(p.Ref()).ActionUsed)

	entry, err := enc.UseItem(ItemInput{Actor: p, ItemName: "Rope", ActionType: ActionStandard}, testNow)
	require.NoError(t, err)
	assert.Equal(t, ItemOther, entry.Item.Effect)
}

func TestOtherActionSpendsSlotOnly(t *testing.T) {
	enc, p, _, _ := fireScenario(t)
	entry, err := enc.OtherAction(OtherInput{Actor: p, ActionName: "Dash", ActionType: ActionStandard}, testNow)
	require.NoError(t, err)
	assert.Equal(t, EntryOther, entry.Kind)
	assert.True(t, enc.Find(p.Ref()).ActionUsed)

	_, err = enc.OtherAction(OtherInput{Actor: p, ActionName: "Dodge", ActionType: ActionStandard}, testNow)
	assert.True(t, errors.Is(err, apperr.ErrEconomyViolation))
}

func TestSetHPClampsAndDefeatsNPC(t *testing.T) {
	enc, _, n, _ := fireScenario(t)
	npc := enc.Find(n.Ref())

	_, err := enc.SetHP(HPUpdate{Target: n.Ref(), HP: 99}, testNow)
	require.NoError(t, err)
	assert.Equal(t, 10, npc.CurrentHP)

	_, err = enc.SetHP(HPUpdate{Target: n.Ref(), TargetName: "Newt", HP: -4}, testNow)
	require.NoError(t, err)
	assert.Equal(t, 0, npc.CurrentHP)
	assert.True(t, npc.Defeated)
	defeats := enc.CombatLog.OfKind(EntryDefeat)
	require.Len(t, defeats, 1)
	assert.Equal(t, "Game Master", defeats[0].Actor.Name)

	_, err = enc.SetHP(HPUpdate{Target: n.Ref(), HP: 3}, testNow)
	require.NoError(t, err)
	assert.False(t, npc.Defeated)
}

func TestPlayerDeathSaves(t *testing.T) {
	enc, p, _, _ := fireScenario(t)
	player := enc.Find(p.Ref())

	_, err := enc.SetHP(HPUpdate{Target: p.Ref(), HP: 0, DeathFailures: intPtr(2)}, testNow)
	require.NoError(t, err)
	assert.Equal(t, 0, player.CurrentHP)
	assert.Equal(t, 2, player.DeathSaveFailures())
	assert.False(t, player.Defeated, "0 HP alone never defeats a player")
	assert.True(t, player.IsAlive())

	_, err = enc.SetHP(HPUpdate{Target: p.Ref(), HP: 0, DeathFailures: intPtr(3)}, testNow)
	require.NoError(t, err)
	assert.Equal(t, 3, player.DeathSaveFailures())
	assert.True(t, player.Defeated)
	assert.Empty(t, enc.CombatLog.OfKind(EntryDefeat))

	_, err = enc.SetHP(HPUpdate{Target: p.Ref(), HP: 0, DeathFailures: intPtr(9), DeathSuccesses: intPtr(-1)}, testNow)
	require.NoError(t, err)
	assert.Equal(t, 3, player.Player.DeathSaveFailures)
	assert.Equal(t, 0, player.Player.DeathSaveSuccesses)

	_, err = enc.SetHP(HPUpdate{Target: p.Ref(), HP: 4}, testNow)
	require.NoError(t, err)
	assert.False(t, player.Defeated)

	_, err = enc.SetHP(HPUpdate{Target: p.Ref(), HP: 4, Defeated: boolPtr(true)}, testNow)
	require.NoError(t, err)
	assert.True(t, player.Defeated)
}

func TestSubmitInitiativeUpdatesExistingPlayer(t *testing.T) {
	enc, _, _, _ := fireScenario(t)
	_, err := enc.SubmitInitiative("p", 1, 0, 1, 20, testNow)
	require.NoError(t, err)
	assert.Equal(t, []string{"n", "p"}, ids(enc))
	assert.Len(t, enc.Participants, 2)
	assert.Equal(t, 1, enc.InitiativeRolls["p"].Total)
}

func TestAddNPCRejectsDuplicates(t *testing.T) {
	enc, _, _, _ := fireScenario(t)
	_, err := enc.AddNPC("n", 3, 10, true)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestHPAlwaysWithinBounds(t *testing.T) {
	enc, p, n, _ := fireScenario(t)
	for _, dmg := range []int{0, 3, 50, 1} {
		_, err := enc.Attack(AttackInput{Actor: p, Target: n, AttackRoll: 20, Damage: dmg, ActionType: ActionFree}, testNow)
		require.NoError(t, err)
		for _, part := range enc.Participants {
			assert.GreaterOrEqual(t, part.CurrentHP, 0)
			assert.LessOrEqual(t, part.CurrentHP, part.MaxHP)
		}
	}
}

func TestEndFreezesSummary(t *testing.T) {
	enc, p, n, defenses := fireScenario(t)
	_, err := enc.Attack(fireAttack(p, n, defenses, 12), testNow)
	require.NoError(t, err)

	first := enc.End(map[string]string{"p": "Pell"}, testNow.Add(time.Minute))
	assert.Equal(t, StatusCompleted, enc.Status)
	assert.Equal(t, 6, first.TotalPlayerDamage)

	second := enc.End(nil, testNow.Add(time.Hour))
	assert.Equal(t, first, second)

	_, err = enc.Attack(fireAttack(p, n, defenses, 1), testNow)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}
