// Package roster reads the campaign's player characters and NPCs. Combat
// never writes back to the roster; encounter HP is tracked separately. The
// NPC importer is the only writer.
package roster

import (
	"context"
	"math"
	"strings"

	"github.com/arcanetable/encounter-server/internal/combat"
)

// Defaults applied when a roster record leaves a field unset.
const (
	DefaultHP           = 10
	DefaultAC           = 10
	DefaultAbility      = 10
	DefaultWeaponType   = "melee"
	DefaultWeaponDamage = "bludgeoning"
)

// Item types and weapon categories that affect combat.
const (
	ItemWeapon = "weapon"
	ItemArmor  = "armor"

	WeaponFinesse = "finesse"
	WeaponRanged  = "ranged"
	WeaponThrown  = "thrown"
)

// Stats are the ability scores combat reads.
type Stats struct {
	Strength  int `json:"strength"`
	Dexterity int `json:"dexterity"`
}

// Item is one inventory entry.
type Item struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Equipped    bool   `json:"equipped"`
	DamageType  string `json:"damageType,omitempty"`
	WeaponType  string `json:"weaponType,omitempty"`
	AttackBonus int    `json:"attackBonus,omitempty"`
	ACBonus     int    `json:"acBonus,omitempty"`
}

// Player is a player character record, keyed by its user id.
type Player struct {
	UserID     ID     `json:"userId"`
	CampaignID string `json:"campaignId,omitempty"`
	Name       string `json:"name"`
	HP         int    `json:"hp,omitempty"`
	MaxHP      int    `json:"maxHp,omitempty"`
	AC         int    `json:"ac,omitempty"`
	Stats      Stats  `json:"stats"`
	Inventory  []Item `json:"inventory,omitempty"`
	combat.Defenses
}

// NPC is a game-master controlled record.
type NPC struct {
	ID         ID     `json:"id"`
	CampaignID string `json:"campaignId,omitempty"`
	Name       string `json:"name"`
	HP         int    `json:"hp,omitempty"`
	MaxHP      int    `json:"maxHp,omitempty"`
	AC         int    `json:"ac,omitempty"`
	Stats      Stats  `json:"stats"`
	Inventory  []Item `json:"inventory,omitempty"`
	combat.Defenses
}

// Lookup resolves roster records. Missing records are NOT_FOUND errors.
type Lookup interface {
	Player(ctx context.Context, userID string) (Player, error)
	NPC(ctx context.Context, npcID string) (NPC, error)
}

// MaxHitPoints returns maxHp, then hp, then DefaultHP.
func (p Player) MaxHitPoints() int {
	return maxHitPoints(p.MaxHP, p.HP)
}

// ArmorClass returns the recorded AC or DefaultAC.
func (p Player) ArmorClass() int {
	if p.AC > 0 {
		return p.AC
	}
	return DefaultAC
}

// Actor snapshots the player for a log entry.
func (p Player) Actor() combat.Actor {
	return combat.Actor{ID: p.UserID.String(), Kind: combat.KindPlayer, Name: p.Name}
}

// MaxHitPoints returns maxHp, then hp, then DefaultHP.
func (n NPC) MaxHitPoints() int {
	return maxHitPoints(n.MaxHP, n.HP)
}

// ArmorClass returns the AC of the NPC's equipped armor when it has one
// with a bonus, otherwise the recorded AC or DefaultAC.
func (n NPC) ArmorClass() int {
	if armor, ok := equipped(n.Inventory, ItemArmor); ok && armor.ACBonus > 0 {
		return armor.ACBonus
	}
	if n.AC > 0 {
		return n.AC
	}
	return DefaultAC
}

// Actor snapshots the NPC for a log entry.
func (n NPC) Actor() combat.Actor {
	return combat.Actor{ID: n.ID.String(), Kind: combat.KindNPC, Name: n.Name}
}

// Weapon is the attack profile of an equipped weapon.
type Weapon struct {
	Name        string
	DamageType  string
	AttackBonus int
}

// EquippedWeapon derives the attack profile of the NPC's equipped weapon.
// The attack bonus adds the ability modifier chosen by weapon type.
func (n NPC) EquippedWeapon() (Weapon, bool) {
	item, ok := equipped(n.Inventory, ItemWeapon)
	if !ok {
		return Weapon{}, false
	}
	damageType := combat.NormalizeDamageType(item.DamageType)
	if damageType == "" {
		damageType = DefaultWeaponDamage
	}
	weaponType := item.WeaponType
	if weaponType == "" {
		weaponType = DefaultWeaponType
	}
	return Weapon{
		Name:        item.Name,
		DamageType:  damageType,
		AttackBonus: item.AttackBonus + WeaponModifier(weaponType, n.Stats),
	}, true
}

// AbilityModifier is floor((score - 10) / 2).
func AbilityModifier(score int) int {
	return int(math.Floor(float64(score-10) / 2))
}

// WeaponModifier picks the ability modifier a weapon type attacks with:
// finesse uses the better of STR and DEX, ranged uses DEX, everything else
// uses STR.
func WeaponModifier(weaponType string, stats Stats) int {
	strMod := AbilityModifier(orDefault(stats.Strength, DefaultAbility))
	dexMod := AbilityModifier(orDefault(stats.Dexterity, DefaultAbility))

	switch strings.ToLower(strings.TrimSpace(weaponType)) {
	case WeaponFinesse:
		return max(strMod, dexMod)
	case WeaponRanged:
		return dexMod
	default:
		return strMod
	}
}

func equipped(items []Item, itemType string) (Item, bool) {
	for _, it := range items {
		if it.Type == itemType && it.Equipped {
			return it, true
		}
	}
	return Item{}, false
}

func maxHitPoints(maxHP, hp int) int {
	if maxHP > 0 {
		return maxHP
	}
	if hp > 0 {
		return hp
	}
	return DefaultHP
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
