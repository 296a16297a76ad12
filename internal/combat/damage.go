package combat

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Synthetic damage-type tags understood by defender tag sets.
const (
	TagPhysical   = "physical"
	TagNonmagical = "nonmagical"
	TagAll        = "all"
)

var physicalDamageTypes = map[string]struct{}{
	"bludgeoning": {},
	"piercing":    {},
	"slashing":    {},
}

// NormalizeDamageType returns the canonical lowercase tag for a damage type.
func NormalizeDamageType(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// DamageTypes is a list of damage-type tags. It decodes from either a JSON
// array or a comma/semicolon separated string.
type DamageTypes []string

// UnmarshalJSON accepts `["fire","cold"]` as well as `"fire; cold"`.
func (d *DamageTypes) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = nil
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*d = normalizeList(list)
		return nil
	}

	var joined string
	if err := json.Unmarshal(data, &joined); err != nil {
		return fmt.Errorf("damage types must be a list or a string: %w", err)
	}
	*d = normalizeList(strings.FieldsFunc(joined, func(r rune) bool {
		return r == ',' || r == ';'
	}))
	return nil
}

func normalizeList(values []string) DamageTypes {
	out := make(DamageTypes, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		tag := NormalizeDamageType(v)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func (d DamageTypes) set() map[string]struct{} {
	s := make(map[string]struct{}, len(d))
	for _, v := range d {
		if tag := NormalizeDamageType(v); tag != "" {
			s[tag] = struct{}{}
		}
	}
	return s
}

// Defenses holds a defender's damage-type modifiers.
type Defenses struct {
	Resistances     DamageTypes `json:"resistances,omitempty"`
	Immunities      DamageTypes `json:"immunities,omitempty"`
	Vulnerabilities DamageTypes `json:"vulnerabilities,omitempty"`
}

// DamageModifierResult is the outcome of running raw damage through a
// defender's modifiers.
type DamageModifierResult struct {
	Raw        int
	Adjusted   int
	DamageType string
	Immune     bool
	Vulnerable bool
	Resisted   bool
}

// Modified reports whether any modifier fired.
func (r DamageModifierResult) Modified() bool {
	return r.Immune || r.Vulnerable || r.Resisted
}

// Adjustment builds the audit record attached to a log entry.
func (r DamageModifierResult) Adjustment(targetName string) DamageAdjustment {
	return DamageAdjustment{
		TargetName: targetName,
		Raw:        r.Raw,
		Adjusted:   r.Adjusted,
		DamageType: r.DamageType,
		Immune:     r.Immune,
		Vulnerable: r.Vulnerable,
		Resisted:   r.Resisted,
	}
}

// matchesTag reports whether damageType is covered by the tag set, either
// directly, through the physical group aliases, or through "all".
func matchesTag(tags map[string]struct{}, damageType string, physicalAliases ...string) bool {
	if len(tags) == 0 {
		return false
	}
	if _, ok := tags[damageType]; ok {
		return true
	}
	if _, physical := physicalDamageTypes[damageType]; physical {
		for _, alias := range physicalAliases {
			if _, ok := tags[alias]; ok {
				return true
			}
		}
	}
	_, all := tags[TagAll]
	return all
}

// Resolve applies immunity, vulnerability and resistance to raw damage.
//
// Immunity short-circuits. Vulnerability doubles, then resistance halves the
// doubled amount with floor division, so an odd raw amount that is both
// vulnerable and resisted comes back unchanged rather than rounded down.
func Resolve(raw int, damageType string, defender Defenses) DamageModifierResult {
	dt := NormalizeDamageType(damageType)
	result := DamageModifierResult{Raw: raw, Adjusted: raw, DamageType: dt}
	if dt == "" || raw <= 0 {
		return result
	}

	if matchesTag(defender.Immunities.set(), dt, TagPhysical) {
		result.Adjusted = 0
		result.Immune = true
		return result
	}
	if matchesTag(defender.Vulnerabilities.set(), dt, TagPhysical) {
		result.Adjusted = raw * 2
		result.Vulnerable = true
	}
	if matchesTag(defender.Resistances.set(), dt, TagPhysical, TagNonmagical) {
		result.Adjusted = result.Adjusted / 2
		result.Resisted = true
	}
	return result
}
