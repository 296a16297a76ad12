package combat

import (
	"fmt"
	"strings"
)

// Kind distinguishes the two participant variants.
type Kind string

const (
	KindPlayer Kind = "player"
	KindNPC    Kind = "npc"
)

// ParseKind validates a participant kind.
func ParseKind(value string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(value))) {
	case KindPlayer:
		return KindPlayer, nil
	case KindNPC:
		return KindNPC, nil
	default:
		return "", fmt.Errorf("unknown participant kind %q", value)
	}
}

// Ref identifies a participant inside an encounter. Player and NPC ids live
// in separate roster collections, so the kind is part of the identity.
type Ref struct {
	Kind Kind   `json:"kind"`
	ID   string `json:"id"`
}

func (r Ref) String() string {
	return string(r.Kind) + ":" + r.ID
}

// MaxDeathSaves caps both death save counters.
const MaxDeathSaves = 3

// NPCState is the NPC-only payload.
type NPCState struct {
	Hidden bool `json:"hidden"`
}

// PlayerState is the player-only payload.
type PlayerState struct {
	DeathSaveSuccesses int `json:"deathSaveSuccesses"`
	DeathSaveFailures  int `json:"deathSaveFailures"`
}

// Participant is a combatant inside one encounter. Exactly one of NPC or
// Player is set, matching Kind.
type Participant struct {
	Kind            Kind         `json:"kind"`
	ID              string       `json:"id"`
	Initiative      int          `json:"initiative"`
	CurrentHP       int          `json:"currentHp"`
	MaxHP           int          `json:"maxHp"`
	ActionUsed      bool         `json:"actionUsed"`
	BonusActionUsed bool         `json:"bonusActionUsed"`
	ReactionUsed    bool         `json:"reactionUsed"`
	MovementUsed    int          `json:"movementUsed"`
	Defeated        bool         `json:"defeated"`
	NPC             *NPCState    `json:"npc,omitempty"`
	Player          *PlayerState `json:"player,omitempty"`
}

// NewNPC creates an NPC participant at full HP.
func NewNPC(id string, initiative, maxHP int, hidden bool) *Participant {
	return &Participant{
		Kind:       KindNPC,
		ID:         id,
		Initiative: initiative,
		CurrentHP:  maxHP,
		MaxHP:      maxHP,
		NPC:        &NPCState{Hidden: hidden},
	}
}

// NewPlayer creates a player participant at full HP.
func NewPlayer(id string, initiative, maxHP int) *Participant {
	return &Participant{
		Kind:       KindPlayer,
		ID:         id,
		Initiative: initiative,
		CurrentHP:  maxHP,
		MaxHP:      maxHP,
		Player:     &PlayerState{},
	}
}

// Ref returns the participant's identity.
func (p *Participant) Ref() Ref {
	return Ref{Kind: p.Kind, ID: p.ID}
}

// IsAlive reports whether the participant keeps its place in the turn
// rotation. Players at 0 HP stay in rotation until explicitly defeated so
// they can roll death saves.
func (p *Participant) IsAlive() bool {
	if p == nil {
		return false
	}
	switch p.Kind {
	case KindPlayer:
		return !p.Defeated
	case KindNPC:
		return p.CurrentHP > 0 && !p.Defeated
	default:
		return false
	}
}

// Hidden reports whether an NPC is concealed from players.
func (p *Participant) Hidden() bool {
	return p.NPC != nil && p.NPC.Hidden
}

// SetHP sets current HP clamped to [0, MaxHP] and returns the previous value.
func (p *Participant) SetHP(hp int) int {
	previous := p.CurrentHP
	p.CurrentHP = clampHP(hp, p.MaxHP)
	return previous
}

// TakeDamage subtracts amount, never dropping below 0, and returns the
// previous HP.
func (p *Participant) TakeDamage(amount int) int {
	if amount < 0 {
		amount = 0
	}
	return p.SetHP(p.CurrentHP - amount)
}

// Heal adds amount, never exceeding MaxHP, and returns the previous HP.
func (p *Participant) Heal(amount int) int {
	if amount < 0 {
		amount = 0
	}
	return p.SetHP(p.CurrentHP + amount)
}

// SetDeathSaves updates the player death save counters, clamped to 0..3.
// Nil arguments leave the counter untouched. NPCs ignore the call.
func (p *Participant) SetDeathSaves(failures, successes *int) {
	if p.Kind != KindPlayer {
		return
	}
	if p.Player == nil {
		p.Player = &PlayerState{}
	}
	if failures != nil {
		p.Player.DeathSaveFailures = clamp(*failures, 0, MaxDeathSaves)
	}
	if successes != nil {
		p.Player.DeathSaveSuccesses = clamp(*successes, 0, MaxDeathSaves)
	}
}

// DeathSaveFailures returns the failure counter, 0 for NPCs.
func (p *Participant) DeathSaveFailures() int {
	if p.Player == nil {
		return 0
	}
	return p.Player.DeathSaveFailures
}

func (p *Participant) resetTurnEconomy() {
	p.ActionUsed = false
	p.BonusActionUsed = false
	p.MovementUsed = 0
}

func clampHP(hp, maxHP int) int {
	if hp < 0 {
		return 0
	}
	if maxHP > 0 && hp > maxHP {
		return maxHP
	}
	return hp
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
