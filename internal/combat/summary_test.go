package combat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func playerActor(id, name string) Actor {
	return Actor{ID: id, Kind: KindPlayer, Name: name}
}

func npcActor(id, name string) Actor {
	return Actor{ID: id, Kind: KindNPC, Name: name}
}

func attackEntry(actor Actor, hit bool, damage int) LogEntry {
	return LogEntry{Kind: EntryAttack, Actor: actor, Attack: &AttackDetail{Hit: hit, Damage: damage}}
}

func TestSummarizeAccumulatesPerPlayer(t *testing.T) {
	enc := newTestEncounter()
	ara := playerActor("u1", "Ara (log)")
	bram := playerActor("u2", "Bram")
	gob := npcActor("n1", "Goblin")

	enc.CombatLog = CombatLog{
		attackEntry(ara, true, 7),
		attackEntry(ara, false, 0),
		attackEntry(gob, true, 4),
		{Kind: EntrySpell, Actor: bram, Spell: &SpellDetail{Damage: []int{3, 5}, Healing: []int{0, 4}}},
		{Kind: EntryItem, Actor: bram, Item: &ItemDetail{Effect: ItemHealing, HealAmount: 6}},
		{Kind: EntryItem, Actor: ara, Item: &ItemDetail{Effect: ItemDamage, DamageAmount: 2}},
		{Kind: EntryItem, Actor: ara, Item: &ItemDetail{Effect: ItemOther, DamageAmount: 50}},
		{Kind: EntryDefeat, Actor: ara, Defeat: &DefeatDetail{Target: gob}},
		{Kind: EntryDefeat, Actor: GameMaster("gm-1"), Defeat: &DefeatDetail{Target: npcActor("n2", "Orc")}},
		{Kind: EntryOther, Actor: ara, Other: &OtherDetail{ActionName: "Dash"}},
	}

	now := enc.CreatedAt.Add(90*time.Second + 400*time.Millisecond)
	summary := Summarize(enc, map[string]string{"u1": "Ara"}, now)

	require.Len(t, summary.PlayerStats, 2)
	first, second := summary.PlayerStats[0], summary.PlayerStats[1]

	assert.Equal(t, "u1", first.ActorID)
	assert.Equal(t, "Ara", first.Name, "roster name wins over snapshot")
	assert.Equal(t, 9, first.TotalDamage)
	assert.Equal(t, 2, first.Attacks)
	assert.Equal(t, 1, first.Hits)
	assert.Equal(t, 1, first.Misses)
	assert.Equal(t, 1, first.Defeats)
	require.NotNil(t, first.Accuracy)
	assert.InDelta(t, 0.5, *first.Accuracy, 1e-9)

	assert.Equal(t, "Bram", second.Name)
	assert.Equal(t, 8, second.TotalDamage)
	assert.Equal(t, 10, second.TotalHealing)
	assert.Equal(t, 1, second.SpellsCast)
	assert.Nil(t, second.Accuracy)

	assert.Equal(t, 2, summary.EnemiesDefeated)
	assert.Equal(t, 17, summary.TotalPlayerDamage)
	assert.Equal(t, 10, summary.TotalPlayerHealing)
	require.NotNil(t, summary.DurationSeconds)
	assert.Equal(t, int64(90), *summary.DurationSeconds)
}

func TestSummarizeTotalDamageMatchesRows(t *testing.T) {
	enc := newTestEncounter()
	for i := 0; i < 5; i++ {
		enc.CombatLog = append(enc.CombatLog, attackEntry(playerActor("u1", "A"), true, i+1))
		enc.CombatLog = append(enc.CombatLog, attackEntry(playerActor("u2", "B"), i%2 == 0, 2*i))
	}
	summary := Summarize(enc, nil, enc.CreatedAt)

	total := 0
	for _, row := range summary.PlayerStats {
		total += row.TotalDamage
	}
	assert.Equal(t, summary.TotalPlayerDamage, total)
}

func TestSummarizeTopPerformers(t *testing.T) {
	enc := newTestEncounter()
	careful := playerActor("u1", "Careful")
	wild := playerActor("u2", "Wild")
	healer := playerActor("u3", "Healer")

	enc.CombatLog = CombatLog{
		attackEntry(careful, true, 5),
		attackEntry(wild, true, 5),
		attackEntry(wild, false, 0),
		attackEntry(wild, false, 0),
		{Kind: EntrySpell, Actor: healer, Spell: &SpellDetail{Healing: []int{9}}},
	}
	summary := Summarize(enc, nil, enc.CreatedAt)
	top := summary.TopPerformers

	require.NotNil(t, top.MostDamage)
	assert.Equal(t, "u1", top.MostDamage.ActorID, "tie goes to first encountered")
	assert.Equal(t, 5.0, top.MostDamage.Value)

	require.NotNil(t, top.MostHealing)
	assert.Equal(t, "u3", top.MostHealing.ActorID)

	assert.Nil(t, top.MostDefeats)

	require.NotNil(t, top.MostHits)
	assert.Equal(t, "u1", top.MostHits.ActorID)

	require.NotNil(t, top.LeastMisses)
	assert.Equal(t, "u1", top.LeastMisses.ActorID)
	assert.Equal(t, 0.0, top.LeastMisses.Value)

	require.NotNil(t, top.BestAccuracy)
	assert.Equal(t, "u1", top.BestAccuracy.ActorID)
	assert.Equal(t, 1.0, top.BestAccuracy.Value)
}

func TestSummarizeLeastMissesIgnoresPlayersWithoutAttempts(t *testing.T) {
	enc := newTestEncounter()
	enc.CombatLog = CombatLog{
		{Kind: EntrySpell, Actor: playerActor("caster", "Caster"), Spell: &SpellDetail{Damage: []int{4}}},
		attackEntry(playerActor("archer", "Archer"), false, 0),
	}
	summary := Summarize(enc, nil, enc.CreatedAt)
	require.NotNil(t, summary.TopPerformers.LeastMisses)
	assert.Equal(t, "archer", summary.TopPerformers.LeastMisses.ActorID)
	assert.Equal(t, 1.0, summary.TopPerformers.LeastMisses.Value)
	assert.Nil(t, summary.TopPerformers.BestAccuracy, "zero accuracy is not a best")
}

func TestSummarizeEmptyLog(t *testing.T) {
	enc := newTestEncounter()
	summary := Summarize(enc, nil, enc.CreatedAt.Add(time.Minute))
	assert.Empty(t, summary.PlayerStats)
	assert.Equal(t, TopPerformers{}, summary.TopPerformers)
	assert.Equal(t, 1, summary.Rounds)
}

func TestSummarizeDurationNullWithoutStart(t *testing.T) {
	enc := newTestEncounter()
	enc.CreatedAt = time.Time{}
	summary := Summarize(enc, nil, time.Now())
	assert.Nil(t, summary.DurationSeconds)
	assert.Nil(t, summary.StartedAt)
}

func TestSummarizeRowsSortedByDamageStable(t *testing.T) {
	enc := newTestEncounter()
	enc.CombatLog = CombatLog{
		attackEntry(playerActor("a", "A"), true, 3),
		attackEntry(playerActor("b", "B"), true, 9),
		attackEntry(playerActor("c", "C"), true, 3),
	}
	summary := Summarize(enc, nil, enc.CreatedAt)
	got := []string{}
	for _, row := range summary.PlayerStats {
		got = append(got, row.ActorID)
	}
	assert.Equal(t, []string{"b", "a", "c"}, got)
}
