// Package combat implements the turn-based encounter state machine: turn
// order, action economy, damage modifiers, defeat handling, the combat log
// and the end-of-encounter summary.
package combat

import (
	"time"

	"github.com/arcanetable/encounter-server/internal/apperr"
)

// Status is the lifecycle state of an encounter.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// InitiativeRoll records the roll a player submitted.
type InitiativeRoll struct {
	Roll      int       `json:"roll"`
	Modifier  int       `json:"modifier"`
	Total     int       `json:"total"`
	Timestamp time.Time `json:"timestamp"`
}

// Encounter is one combat session scoped to a campaign.
type Encounter struct {
	ID               string                    `json:"id"`
	CampaignID       string                    `json:"campaignId"`
	OwnerID          string                    `json:"ownerId"`
	Status           Status                    `json:"status"`
	Round            int                       `json:"round"`
	CurrentTurnIndex int                       `json:"currentTurn"`
	Participants     []*Participant            `json:"participants"`
	InitiativeRolls  map[string]InitiativeRoll `json:"initiativeRolls"`
	CombatLog        CombatLog                 `json:"combatLog"`
	LastSummary      *Summary                  `json:"lastSummary,omitempty"`
	CreatedAt        time.Time                 `json:"created"`
	EndedAt          *time.Time                `json:"endedAt,omitempty"`
	Version          int64                     `json:"version"`
}

// NewEncounter creates an active encounter at round 1.
func NewEncounter(id, campaignID, ownerID string, now time.Time) *Encounter {
	return &Encounter{
		ID:               id,
		CampaignID:       campaignID,
		OwnerID:          ownerID,
		Status:           StatusActive,
		Round:            1,
		CurrentTurnIndex: 0,
		Participants:     make([]*Participant, 0),
		InitiativeRolls:  make(map[string]InitiativeRoll),
		CombatLog:        make(CombatLog, 0),
		CreatedAt:        now.UTC(),
	}
}

// IsActive reports whether the encounter still accepts actions.
func (e *Encounter) IsActive() bool {
	return e.Status == StatusActive
}

// Find returns the participant with the given ref, or nil.
func (e *Encounter) Find(ref Ref) *Participant {
	for _, p := range e.Participants {
		if p.Kind == ref.Kind && p.ID == ref.ID {
			return p
		}
	}
	return nil
}

// Current returns the participant whose turn it is, or nil.
func (e *Encounter) Current() *Participant {
	if e.CurrentTurnIndex < 0 || e.CurrentTurnIndex >= len(e.Participants) {
		return nil
	}
	return e.Participants[e.CurrentTurnIndex]
}

// Scheduler returns the turn scheduler bound to this encounter.
func (e *Encounter) Scheduler() *TurnScheduler {
	return &TurnScheduler{enc: e}
}

func (e *Encounter) requireActive() error {
	if !e.IsActive() {
		return apperr.Validation("encounter %s is %s", e.ID, e.Status)
	}
	return nil
}

func (e *Encounter) require(ref Ref, role string) (*Participant, error) {
	if ref.ID == "" {
		return nil, apperr.Validation("%s id is required", role)
	}
	if ref.Kind != KindPlayer && ref.Kind != KindNPC {
		return nil, apperr.Validation("%s kind %q is invalid", role, ref.Kind)
	}
	p := e.Find(ref)
	if p == nil {
		return nil, apperr.NotFound("%s %s not found in encounter", role, ref)
	}
	return p, nil
}
