package combat

import (
	"fmt"
	"time"
)

// DefeatHandler marks NPCs defeated when their HP reaches zero and keeps the
// turn pointer off defeated participants.
type DefeatHandler struct {
	enc *Encounter
	now time.Time
}

// NewDefeatHandler binds a handler to an encounter. now stamps defeat entries.
func NewDefeatHandler(enc *Encounter, now time.Time) *DefeatHandler {
	return &DefeatHandler{enc: enc, now: now}
}

// OnHPChanged fires for NPCs whose HP crossed from above zero to zero or
// below. Players never auto-defeat from HP. It reports whether a defeat was
// recorded.
func (h *DefeatHandler) OnHPChanged(p *Participant, previousHP int, cause Actor, victimName string) bool {
	if p == nil || p.Kind != KindNPC {
		return false
	}
	if previousHP <= 0 || p.CurrentHP > 0 {
		return false
	}
	return h.Defeat(p, cause, victimName)
}

// Defeat marks an NPC defeated, logs it and revalidates the turn pointer. A
// second call on an already defeated participant is a no-op.
func (h *DefeatHandler) Defeat(p *Participant, cause Actor, victimName string) bool {
	if p == nil || p.Kind != KindNPC || p.Defeated {
		return false
	}

	p.CurrentHP = 0
	p.Defeated = true

	if cause.Name == "" {
		cause.Name = "Unknown hero"
	}
	if victimName == "" {
		victimName = "an enemy"
	}
	h.enc.CombatLog.Append(LogEntry{
		Kind:      EntryDefeat,
		Round:     h.enc.Round,
		Actor:     cause,
		Timestamp: h.now,
		Defeat: &DefeatDetail{
			Target:  Actor{ID: p.ID, Kind: p.Kind, Name: victimName},
			Message: fmt.Sprintf("%s defeats %s!", cause.Name, victimName),
		},
	})

	h.enc.Scheduler().EnsureCurrentAlive()
	return true
}
