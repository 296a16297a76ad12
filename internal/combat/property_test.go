package combat

import (
	"fmt"
	"testing"

	"pgregory.net/rapid"
)

var damageTypeGen = rapid.SampledFrom([]string{"fire", "cold", "slashing", "piercing", "bludgeoning", "psychic", ""})

func defensesGen() *rapid.Generator[Defenses] {
	tags := rapid.SliceOfN(rapid.SampledFrom([]string{"fire", "cold", "slashing", TagPhysical, TagNonmagical, TagAll}), 0, 3)
	return rapid.Custom(func(t *rapid.T) Defenses {
		return Defenses{
			Resistances:     DamageTypes(tags.Draw(t, "resistances")),
			Immunities:      DamageTypes(tags.Draw(t, "immunities")),
			Vulnerabilities: DamageTypes(tags.Draw(t, "vulnerabilities")),
		}
	})
}

func TestResolveProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		raw := rapid.IntRange(0, 200).Draw(t, "raw")
		damageType := damageTypeGen.Draw(t, "damageType")
		defenses := defensesGen().Draw(t, "defenses")

		result := Resolve(raw, damageType, defenses)

		if result.Adjusted < 0 {
			t.Fatalf("adjusted damage %d is negative", result.Adjusted)
		}
		if result.Immune && result.Adjusted != 0 {
			t.Fatalf("immune target took %d", result.Adjusted)
		}
		if result.Immune && (result.Vulnerable || result.Resisted) {
			t.Fatalf("immunity must short-circuit: %+v", result)
		}
		if !result.Modified() && result.Adjusted != raw {
			t.Fatalf("unmodified damage changed from %d to %d", raw, result.Adjusted)
		}
		if result.Vulnerable && result.Resisted && result.Adjusted != raw {
			t.Fatalf("vulnerable and resisted should cancel: raw %d adjusted %d", raw, result.Adjusted)
		}
		if result.Vulnerable && !result.Resisted && result.Adjusted != raw*2 {
			t.Fatalf("vulnerable damage %d, want %d", result.Adjusted, raw*2)
		}
		if result.Resisted && !result.Vulnerable && result.Adjusted != raw/2 {
			t.Fatalf("resisted damage %d, want %d", result.Adjusted, raw/2)
		}
	})
}

func TestSchedulerProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		enc := newTestEncounter()
		s := enc.Scheduler()

		count := rapid.IntRange(1, 8).Draw(t, "count")
		for i := 0; i < count; i++ {
			initiative := rapid.IntRange(-2, 25).Draw(t, fmt.Sprintf("initiative%d", i))
			if rapid.Bool().Draw(t, fmt.Sprintf("player%d", i)) {
				s.AddParticipant(NewPlayer(fmt.Sprintf("p%d", i), initiative, 10))
			} else {
				s.AddParticipant(NewNPC(fmt.Sprintf("n%d", i), initiative, 10, false))
			}
		}
		for i := 1; i < len(enc.Participants); i++ {
			if enc.Participants[i-1].Initiative < enc.Participants[i].Initiative {
				t.Fatalf("participants out of order at %d", i)
			}
		}

		steps := rapid.IntRange(1, 30).Draw(t, "steps")
		for step := 0; step < steps; step++ {
			if rapid.Bool().Draw(t, fmt.Sprintf("defeat%d", step)) {
				victim := enc.Participants[rapid.IntRange(0, len(enc.Participants)-1).Draw(t, fmt.Sprintf("victim%d", step))]
				if victim.Kind == KindNPC {
					victim.SetHP(0)
				} else {
					victim.Defeated = true
				}
				s.EnsureCurrentAlive()
			}

			round := enc.Round
			s.Advance()
			if enc.Round < round {
				t.Fatalf("round went backwards from %d to %d", round, enc.Round)
			}
			if enc.CurrentTurnIndex < 0 || enc.CurrentTurnIndex >= len(enc.Participants) {
				t.Fatalf("turn index %d out of range", enc.CurrentTurnIndex)
			}

			anyAlive := false
			for _, p := range enc.Participants {
				anyAlive = anyAlive || p.IsAlive()
			}
			current := enc.Current()
			if anyAlive && !current.IsAlive() {
				t.Fatalf("turn landed on %s which is not alive", current.ID)
			}
			if !anyAlive && (enc.CurrentTurnIndex != 0 || enc.Round != round) {
				t.Fatalf("no one alive: index %d round %d, want 0 and %d", enc.CurrentTurnIndex, enc.Round, round)
			}
		}
	})
}
