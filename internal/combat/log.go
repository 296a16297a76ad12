package combat

import (
	"time"

	"github.com/google/uuid"
)

// EntryKind tags the variant carried by a LogEntry.
type EntryKind string

const (
	EntryAttack EntryKind = "attack"
	EntrySpell  EntryKind = "spell"
	EntryItem   EntryKind = "item"
	EntryOther  EntryKind = "other"
	EntryDefeat EntryKind = "defeat"
)

// Actor is a name snapshot of whoever caused or received an effect. Kind is
// empty when the game master acts directly (for example setting HP by hand).
type Actor struct {
	ID   string `json:"id"`
	Kind Kind   `json:"kind,omitempty"`
	Name string `json:"name"`
}

// Ref returns the participant reference for the actor.
func (a Actor) Ref() Ref {
	return Ref{Kind: a.Kind, ID: a.ID}
}

// GameMaster is the actor used for manual HP edits.
func GameMaster(ownerID string) Actor {
	return Actor{ID: ownerID, Name: "Game Master"}
}

// DamageAdjustment records a damage modifier that fired against one target.
type DamageAdjustment struct {
	TargetName string `json:"targetName"`
	Raw        int    `json:"raw"`
	Adjusted   int    `json:"adjusted"`
	DamageType string `json:"damageType"`
	Immune     bool   `json:"immune"`
	Vulnerable bool   `json:"vulnerable"`
	Resisted   bool   `json:"resisted"`
}

// AttackDetail is the payload of an attack entry.
type AttackDetail struct {
	Target      Actor              `json:"target"`
	WeaponName  string             `json:"weaponName,omitempty"`
	AttackRoll  int                `json:"attackRoll"`
	AttackBonus int                `json:"attackBonus"`
	TotalAttack int                `json:"totalAttack"`
	TargetAC    int                `json:"targetAc"`
	Hit         bool               `json:"isHit"`
	Crit        bool               `json:"isCrit"`
	Damage      int                `json:"damage"`
	RawDamage   int                `json:"rawDamage"`
	DamageType  string             `json:"damageType"`
	Adjustments []DamageAdjustment `json:"damageAdjustments,omitempty"`
}

// SpellDetail is the payload of a spell entry. Damage, RawDamage and Healing
// are parallel to Targets.
type SpellDetail struct {
	SpellName   string             `json:"spellName"`
	SpellLevel  int                `json:"spellLevel"`
	Targets     []Actor            `json:"targets"`
	Damage      []int              `json:"damage"`
	RawDamage   []int              `json:"rawDamage"`
	Healing     []int              `json:"healing"`
	DamageType  string             `json:"damageType,omitempty"`
	SaveDC      int                `json:"saveDc,omitempty"`
	SaveType    string             `json:"saveType,omitempty"`
	Adjustments []DamageAdjustment `json:"damageAdjustments,omitempty"`
}

// ItemEffect is the declared effect kind of a consumable.
type ItemEffect string

const (
	ItemHealing ItemEffect = "healing"
	ItemDamage  ItemEffect = "damage"
	ItemOther   ItemEffect = "other"
)

// ItemDetail is the payload of an item entry.
type ItemDetail struct {
	ItemName          string             `json:"itemName"`
	ItemType          string             `json:"itemType,omitempty"`
	Effect            ItemEffect         `json:"itemEffect"`
	EffectDescription string             `json:"effectDescription,omitempty"`
	EffectDice        string             `json:"effectDice,omitempty"`
	EffectDamageType  string             `json:"effectDamageType,omitempty"`
	HealAmount        int                `json:"healAmount"`
	HealBreakdown     string             `json:"healBreakdown,omitempty"`
	DamageAmount      int                `json:"damageAmount"`
	RawDamageAmount   int                `json:"rawDamageAmount"`
	Target            *Actor             `json:"target,omitempty"`
	Adjustments       []DamageAdjustment `json:"damageAdjustments,omitempty"`
}

// OtherDetail is the payload of a log-only action such as Dash or Hide.
type OtherDetail struct {
	ActionName  string `json:"actionName"`
	Description string `json:"description,omitempty"`
}

// DefeatDetail is the payload of a defeat entry.
type DefeatDetail struct {
	Target  Actor  `json:"target"`
	Message string `json:"message"`
}

// LogEntry is one immutable record of the combat log. Exactly one payload
// pointer is set, matching Kind.
type LogEntry struct {
	ID        string        `json:"id"`
	Kind      EntryKind     `json:"type"`
	Round     int           `json:"round"`
	Actor     Actor         `json:"actor"`
	Timestamp time.Time     `json:"timestamp"`
	Attack    *AttackDetail `json:"attack,omitempty"`
	Spell     *SpellDetail  `json:"spell,omitempty"`
	Item      *ItemDetail   `json:"item,omitempty"`
	Other     *OtherDetail  `json:"other,omitempty"`
	Defeat    *DefeatDetail `json:"defeat,omitempty"`
}

// CombatLog is the append-only, insertion-ordered record of an encounter.
type CombatLog []LogEntry

// Append assigns an id when missing and adds entry to the end of the log.
func (l *CombatLog) Append(entry LogEntry) LogEntry {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	*l = append(*l, entry)
	return entry
}

// Len returns the number of entries.
func (l CombatLog) Len() int {
	return len(l)
}

// Last returns the most recent entry.
func (l CombatLog) Last() (LogEntry, bool) {
	if len(l) == 0 {
		return LogEntry{}, false
	}
	return l[len(l)-1], true
}

// OfKind returns the entries of one variant, in log order.
func (l CombatLog) OfKind(kind EntryKind) []LogEntry {
	var out []LogEntry
	for _, e := range l {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
