package combat

import (
	"strings"

	"github.com/arcanetable/encounter-server/internal/apperr"
)

// ActionType names the economy slot an action request spends. Only action
// and bonus are gated; anything else passes through.
type ActionType string

const (
	ActionStandard ActionType = "action"
	ActionBonus    ActionType = "bonus"
	ActionReaction ActionType = "reaction"
	ActionFree     ActionType = "free"
)

// ParseActionType normalizes a client-supplied slot name.
func ParseActionType(value string) ActionType {
	return ActionType(strings.ToLower(strings.TrimSpace(value)))
}

// CheckEconomy returns an economy violation when the slot is already spent
// this turn. It never mutates p.
func CheckEconomy(p *Participant, actionType ActionType) error {
	switch actionType {
	case ActionStandard:
		if p.ActionUsed {
			return apperr.Economy("action already used this turn")
		}
	case ActionBonus:
		if p.BonusActionUsed {
			return apperr.Economy("bonus action already used this turn")
		}
	}
	return nil
}

// ConsumeEconomy marks the slot as spent. Call it only after every other
// validation for the request has passed.
func ConsumeEconomy(p *Participant, actionType ActionType) {
	switch actionType {
	case ActionStandard:
		p.ActionUsed = true
	case ActionBonus:
		p.BonusActionUsed = true
	}
}
