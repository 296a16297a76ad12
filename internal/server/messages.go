package server

import (
	"time"

	"github.com/arcanetable/encounter-server/internal/apperr"
	"github.com/arcanetable/encounter-server/internal/combat"
)

// ParticipantRef names a participant on the wire. Type is "player" or "npc".
type ParticipantRef struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

func (r ParticipantRef) toRef(role string) (combat.Ref, error) {
	kind, err := combat.ParseKind(r.Type)
	if err != nil {
		return combat.Ref{}, apperr.Validation("%s: %v", role, err)
	}
	return combat.Ref{Kind: kind, ID: r.ID}, nil
}

type StartEncounterRequest struct {
	CampaignID string `json:"campaignId"`
	OwnerID    string `json:"ownerId"`
}

type EncounterRequest struct {
	EncounterID string `json:"encounterId"`
}

type CampaignRequest struct {
	CampaignID string `json:"campaignId"`
}

type AddNPCRequest struct {
	EncounterID string `json:"encounterId"`
	NPCID       string `json:"npcId"`
	Initiative  *int   `json:"initiative,omitempty"`
	Hidden      bool   `json:"hidden"`
}

type SubmitInitiativeRequest struct {
	EncounterID string `json:"encounterId"`
	PlayerID    string `json:"playerId"`
	Roll        int    `json:"roll"`
	Modifier    int    `json:"modifier"`
	Total       *int   `json:"total,omitempty"`
}

// SetHPRequest edits a participant's hit points. HP is required.
type SetHPRequest struct {
	EncounterID        string         `json:"encounterId"`
	Participant        ParticipantRef `json:"participant"`
	HP                 *int           `json:"hp"`
	Defeated           *bool          `json:"defeated,omitempty"`
	DeathSaveFailures  *int           `json:"deathSaveFailures,omitempty"`
	DeathSaveSuccesses *int           `json:"deathSaveSuccesses,omitempty"`
}

type AttackRequest struct {
	EncounterID string         `json:"encounterId"`
	Actor       ParticipantRef `json:"actor"`
	Target      ParticipantRef `json:"target"`
	AttackRoll  int            `json:"attackRoll"`
	AttackBonus int            `json:"attackBonus"`
	Damage      int            `json:"damage"`
	DamageType  string         `json:"damageType,omitempty"`
	WeaponName  string         `json:"weaponName,omitempty"`
	RageBonus   int            `json:"rageBonus,omitempty"`
	IsCrit      bool           `json:"isCrit"`
	ActionType  string         `json:"actionType"`
}

type SpellRequest struct {
	EncounterID string           `json:"encounterId"`
	Actor       ParticipantRef   `json:"actor"`
	Targets     []ParticipantRef `json:"targets"`
	SpellName   string           `json:"spellName"`
	SpellLevel  int              `json:"spellLevel"`
	Damage      []int            `json:"damage,omitempty"`
	Healing     []int            `json:"healing,omitempty"`
	DamageType  string           `json:"damageType,omitempty"`
	SaveDC      int              `json:"saveDc,omitempty"`
	SaveType    string           `json:"saveType,omitempty"`
	ActionType  string           `json:"actionType"`
}

type ItemRequest struct {
	EncounterID       string          `json:"encounterId"`
	Actor             ParticipantRef  `json:"actor"`
	Target            *ParticipantRef `json:"target,omitempty"`
	ItemName          string          `json:"itemName"`
	ItemType          string          `json:"itemType,omitempty"`
	ItemEffect        string          `json:"itemEffect"`
	EffectDescription string          `json:"effectDescription,omitempty"`
	EffectDice        string          `json:"effectDice,omitempty"`
	EffectDamageType  string          `json:"effectDamageType,omitempty"`
	HealAmount        int             `json:"healAmount,omitempty"`
	HealBreakdown     string          `json:"healBreakdown,omitempty"`
	DamageAmount      int             `json:"damageAmount,omitempty"`
	ActionType        string          `json:"actionType"`
}

type OtherRequest struct {
	EncounterID string         `json:"encounterId"`
	Actor       ParticipantRef `json:"actor"`
	ActionName  string         `json:"actionName"`
	Description string         `json:"description,omitempty"`
	ActionType  string         `json:"actionType"`
}

// ReplayRequest reads an archived log. A positive Round limits the entries
// to that round.
type ReplayRequest struct {
	EncounterID string `json:"encounterId"`
	Round       int    `json:"round,omitempty"`
}

type EncounterResponse struct {
	Encounter *combat.Encounter `json:"encounter"`
}

type SummaryResponse struct {
	Summary combat.Summary `json:"summary"`
}

// CampaignResponse holds the active encounter or, when none is running, the
// last completed summary.
type CampaignResponse struct {
	Encounter *combat.Encounter `json:"encounter,omitempty"`
	Summary   *combat.Summary   `json:"summary,omitempty"`
}

type DeleteResponse struct {
	EncounterID string `json:"encounterId"`
	Deleted     bool   `json:"deleted"`
}

type ReplayResponse struct {
	EncounterID string            `json:"encounterId"`
	CampaignID  string            `json:"campaignId"`
	Rounds      int               `json:"rounds"`
	EndedAt     time.Time         `json:"endedAt"`
	Entries     []combat.LogEntry `json:"entries"`
	Summary     *combat.Summary   `json:"summary,omitempty"`
}
