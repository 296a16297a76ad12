package combat

import (
	"math"
	"sort"
	"time"
)

// PlayerStats is one per-player row of a combat summary.
type PlayerStats struct {
	ActorID      string   `json:"actorId"`
	Name         string   `json:"name"`
	TotalDamage  int      `json:"totalDamage"`
	TotalHealing int      `json:"totalHealing"`
	Hits         int      `json:"hits"`
	Misses       int      `json:"misses"`
	Attacks      int      `json:"attacks"`
	SpellsCast   int      `json:"spellsCast"`
	Defeats      int      `json:"defeats"`
	Accuracy     *float64 `json:"accuracy"`
}

// Attempts is the number of resolved attack rolls.
func (s PlayerStats) Attempts() int {
	return s.Hits + s.Misses
}

// TopPerformer names the winner of one summary category.
type TopPerformer struct {
	ActorID string  `json:"actorId"`
	Name    string  `json:"name"`
	Value   float64 `json:"value"`
}

// TopPerformers holds the fixed set of summary categories. A nil category
// had no eligible winner.
type TopPerformers struct {
	MostDamage   *TopPerformer `json:"mostDamage"`
	MostHealing  *TopPerformer `json:"mostHealing"`
	MostDefeats  *TopPerformer `json:"mostDefeats"`
	MostHits     *TopPerformer `json:"mostHits"`
	LeastMisses  *TopPerformer `json:"leastMisses"`
	BestAccuracy *TopPerformer `json:"bestAccuracy"`
}

// Summary is the frozen end-of-encounter statistics.
type Summary struct {
	EncounterID        string        `json:"encounterId"`
	CampaignID         string        `json:"campaignId"`
	Rounds             int           `json:"rounds"`
	TotalParticipants  int           `json:"totalParticipants"`
	StartedAt          *time.Time    `json:"startedAt"`
	EndedAt            *time.Time    `json:"endedAt"`
	GeneratedAt        time.Time     `json:"generatedAt"`
	DurationSeconds    *int64        `json:"durationSeconds"`
	EnemiesDefeated    int           `json:"enemiesDefeated"`
	TotalPlayerDamage  int           `json:"totalPlayerDamage"`
	TotalPlayerHealing int           `json:"totalPlayerHealing"`
	PlayerStats        []PlayerStats `json:"playerStats"`
	TopPerformers      TopPerformers `json:"topPerformers"`
}

const unknownHero = "Unknown Hero"

type summaryBuilder struct {
	summary *Summary
	names   map[string]string
	rows    map[string]*PlayerStats
	order   []string
}

func (b *summaryBuilder) row(actor Actor) *PlayerStats {
	if stats, ok := b.rows[actor.ID]; ok {
		return stats
	}
	name := b.names[actor.ID]
	if name == "" {
		name = actor.Name
	}
	if name == "" {
		name = unknownHero
	}
	stats := &PlayerStats{ActorID: actor.ID, Name: name}
	b.rows[actor.ID] = stats
	b.order = append(b.order, actor.ID)
	return stats
}

func (b *summaryBuilder) addDamage(stats *PlayerStats, amount int) {
	if amount <= 0 {
		return
	}
	stats.TotalDamage += amount
	b.summary.TotalPlayerDamage += amount
}

func (b *summaryBuilder) addHealing(stats *PlayerStats, amount int) {
	if amount <= 0 {
		return
	}
	stats.TotalHealing += amount
	b.summary.TotalPlayerHealing += amount
}

// Summarize builds the combat summary in a single pass over the log.
// playerNames maps player ids to roster names; missing names fall back to
// the actor name captured in the log.
func Summarize(enc *Encounter, playerNames map[string]string, now time.Time) Summary {
	summary := Summary{
		EncounterID:       enc.ID,
		CampaignID:        enc.CampaignID,
		Rounds:            enc.Round,
		TotalParticipants: len(enc.Participants),
		GeneratedAt:       now.UTC(),
	}
	if summary.Rounds < 1 {
		summary.Rounds = 1
	}
	if !enc.CreatedAt.IsZero() {
		started := enc.CreatedAt
		summary.StartedAt = &started
	}
	ended := now.UTC()
	if enc.EndedAt != nil && !enc.EndedAt.IsZero() {
		ended = *enc.EndedAt
	}
	summary.EndedAt = &ended
	if summary.StartedAt != nil {
		seconds := int64(math.Round(ended.Sub(*summary.StartedAt).Seconds()))
		if seconds < 0 {
			seconds = 0
		}
		summary.DurationSeconds = &seconds
	}

	b := &summaryBuilder{
		summary: &summary,
		names:   playerNames,
		rows:    make(map[string]*PlayerStats),
	}

	for _, entry := range enc.CombatLog {
		playerActor := entry.Actor.Kind == KindPlayer
		switch entry.Kind {
		case EntryAttack:
			if !playerActor || entry.Attack == nil {
				continue
			}
			stats := b.row(entry.Actor)
			stats.Attacks++
			if entry.Attack.Hit {
				stats.Hits++
				b.addDamage(stats, entry.Attack.Damage)
			} else {
				stats.Misses++
			}
		case EntrySpell:
			if !playerActor || entry.Spell == nil {
				continue
			}
			stats := b.row(entry.Actor)
			stats.SpellsCast++
			b.addDamage(stats, sum(entry.Spell.Damage))
			b.addHealing(stats, sum(entry.Spell.Healing))
		case EntryItem:
			if !playerActor || entry.Item == nil {
				continue
			}
			stats := b.row(entry.Actor)
			switch entry.Item.Effect {
			case ItemDamage:
				b.addDamage(stats, entry.Item.DamageAmount)
			case ItemHealing:
				b.addHealing(stats, entry.Item.HealAmount)
			}
		case EntryDefeat:
			if entry.Defeat == nil {
				continue
			}
			if playerActor {
				b.row(entry.Actor).Defeats++
			}
			if entry.Defeat.Target.Kind == KindNPC {
				summary.EnemiesDefeated++
			}
		}
	}

	rows := make([]PlayerStats, 0, len(b.order))
	for _, id := range b.order {
		stats := *b.rows[id]
		if attempts := stats.Attempts(); attempts > 0 {
			accuracy := math.Round(float64(stats.Hits)/float64(attempts)*100) / 100
			stats.Accuracy = &accuracy
		}
		rows = append(rows, stats)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].TotalDamage > rows[j].TotalDamage
	})

	summary.PlayerStats = rows
	summary.TopPerformers = TopPerformers{
		MostDamage:   pickMax(rows, byDamage),
		MostHealing:  pickMax(rows, byHealing),
		MostDefeats:  pickMax(rows, byDefeats),
		MostHits:     pickMax(rows, byHits),
		LeastMisses:  pickMin(rows, byMissesWithAttempts),
		BestAccuracy: pickMax(rows, byAccuracy),
	}
	return summary
}

// metric extracts a category value and reports whether the row is eligible.
type metric func(PlayerStats) (float64, bool)

func byDamage(s PlayerStats) (float64, bool)  { return float64(s.TotalDamage), true }
func byHealing(s PlayerStats) (float64, bool) { return float64(s.TotalHealing), true }
func byDefeats(s PlayerStats) (float64, bool) { return float64(s.Defeats), true }
func byHits(s PlayerStats) (float64, bool)    { return float64(s.Hits), true }

func byMissesWithAttempts(s PlayerStats) (float64, bool) {
	return float64(s.Misses), s.Attempts() > 0
}

func byAccuracy(s PlayerStats) (float64, bool) {
	if s.Accuracy == nil {
		return 0, false
	}
	return *s.Accuracy, true
}

// pickMax returns the first eligible row with the highest positive value.
func pickMax(rows []PlayerStats, value metric) *TopPerformer {
	var best *PlayerStats
	bestValue := 0.0
	for i := range rows {
		v, ok := value(rows[i])
		if !ok {
			continue
		}
		if best == nil || v > bestValue {
			best = &rows[i]
			bestValue = v
		}
	}
	if best == nil || bestValue <= 0 {
		return nil
	}
	return &TopPerformer{ActorID: best.ActorID, Name: best.Name, Value: bestValue}
}

// pickMin returns the first eligible row with the lowest value. Zero is a
// valid winning value.
func pickMin(rows []PlayerStats, value metric) *TopPerformer {
	var best *PlayerStats
	bestValue := 0.0
	for i := range rows {
		v, ok := value(rows[i])
		if !ok {
			continue
		}
		if best == nil || v < bestValue {
			best = &rows[i]
			bestValue = v
		}
	}
	if best == nil {
		return nil
	}
	return &TopPerformer{ActorID: best.ActorID, Name: best.Name, Value: bestValue}
}

func sum(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}
