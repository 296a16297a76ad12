// Package archive writes finished encounters to compressed replay files and
// steps through their combat logs.
package archive

import (
	"sync"
	"time"

	"github.com/arcanetable/encounter-server/internal/combat"
)

// Archive is a recorded encounter with a playback cursor over its log.
type Archive struct {
	EncounterID  string
	CampaignID   string
	Rounds       int
	EndedAt      time.Time
	Entries      []combat.LogEntry
	Summary      *combat.Summary
	CurrentIndex int
	mu           sync.RWMutex
}

// New snapshots enc's combat log and summary.
func New(enc *combat.Encounter) *Archive {
	a := &Archive{
		EncounterID: enc.ID,
		CampaignID:  enc.CampaignID,
		Rounds:      enc.Round,
		Entries:     append([]combat.LogEntry(nil), enc.CombatLog...),
	}
	if enc.EndedAt != nil {
		a.EndedAt = *enc.EndedAt
	}
	if enc.LastSummary != nil {
		summary := *enc.LastSummary
		a.Summary = &summary
	}
	return a
}

// Start rewinds the cursor to the first entry.
func (a *Archive) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.CurrentIndex = 0
}

// Next returns the entry under the cursor and advances past it.
func (a *Archive) Next() *combat.LogEntry {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.CurrentIndex < len(a.Entries) {
		entry := a.Entries[a.CurrentIndex]
		a.CurrentIndex++
		return &entry
	}
	return nil
}

// Previous steps the cursor back and returns that entry.
func (a *Archive) Previous() *combat.LogEntry {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.CurrentIndex > 0 {
		a.CurrentIndex--
		entry := a.Entries[a.CurrentIndex]
		return &entry
	}
	return nil
}

// Skip moves the cursor by count entries, clamped to the log.
func (a *Archive) Skip(count int) *combat.LogEntry {
	a.mu.Lock()
	defer a.mu.Unlock()

	newIndex := a.CurrentIndex + count
	if newIndex >= len(a.Entries) {
		newIndex = len(a.Entries) - 1
	}
	if newIndex < 0 {
		newIndex = 0
	}

	a.CurrentIndex = newIndex
	if a.CurrentIndex < len(a.Entries) {
		entry := a.Entries[a.CurrentIndex]
		return &entry
	}
	return nil
}

// Size returns the number of logged entries.
func (a *Archive) Size() int {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return len(a.Entries)
}

// At returns the entry at index, or nil.
func (a *Archive) At(index int) *combat.LogEntry {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if index >= 0 && index < len(a.Entries) {
		entry := a.Entries[index]
		return &entry
	}
	return nil
}

// Round returns the entries logged during round.
func (a *Archive) Round(round int) []combat.LogEntry {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var out []combat.LogEntry
	for _, e := range a.Entries {
		if e.Round == round {
			out = append(out, e)
		}
	}
	return out
}

// Log returns a copy of every entry.
func (a *Archive) Log() []combat.LogEntry {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return append([]combat.LogEntry(nil), a.Entries...)
}
