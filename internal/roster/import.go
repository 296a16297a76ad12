package roster

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/arcanetable/encounter-server/internal/apperr"
	"github.com/arcanetable/encounter-server/internal/combat"
	"github.com/arcanetable/encounter-server/internal/repository"
)

// NPC sheet columns. Only id and name are required; the header row decides
// the column order.
const (
	colID              = "id"
	colCampaignID      = "campaign_id"
	colName            = "name"
	colHP              = "hp"
	colMaxHP           = "max_hp"
	colAC              = "ac"
	colStrength        = "strength"
	colDexterity       = "dexterity"
	colResistances     = "resistances"
	colImmunities      = "immunities"
	colVulnerabilities = "vulnerabilities"
	colWeapon          = "weapon"
	colWeaponType      = "weapon_type"
	colWeaponDamage    = "weapon_damage"
	colWeaponBonus     = "weapon_bonus"
	colArmor           = "armor"
	colArmorAC         = "armor_ac"
)

// ParseNPCSheet reads NPC records from CSV. Damage type cells hold a
// semicolon separated list; a weapon or armor name adds an equipped item.
func ParseNPCSheet(r io.Reader) ([]NPC, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("npc sheet is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{colID, colName} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("npc sheet is missing the %q column", required)
		}
	}

	var npcs []NPC
	seen := make(map[ID]int)
	for row := 2; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		cell := func(name string) string {
			i, ok := columns[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}
		number := func(name string) (int, error) {
			v := cell(name)
			if v == "" {
				return 0, nil
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return 0, fmt.Errorf("row %d: %s %q is not a number", row, name, v)
			}
			return n, nil
		}

		npc := NPC{
			ID:         ID(cell(colID)),
			CampaignID: cell(colCampaignID),
			Name:       cell(colName),
			Defenses: combat.Defenses{
				Resistances:     splitDamageTypes(cell(colResistances)),
				Immunities:      splitDamageTypes(cell(colImmunities)),
				Vulnerabilities: splitDamageTypes(cell(colVulnerabilities)),
			},
		}
		if npc.ID == "" || npc.Name == "" {
			return nil, fmt.Errorf("row %d: id and name are required", row)
		}
		if first, dup := seen[npc.ID]; dup {
			return nil, fmt.Errorf("row %d: npc %s already defined on row %d", row, npc.ID, first)
		}
		seen[npc.ID] = row

		ints := []struct {
			column string
			dst    *int
		}{
			{colHP, &npc.HP},
			{colMaxHP, &npc.MaxHP},
			{colAC, &npc.AC},
			{colStrength, &npc.Stats.Strength},
			{colDexterity, &npc.Stats.Dexterity},
		}
		for _, f := range ints {
			if *f.dst, err = number(f.column); err != nil {
				return nil, err
			}
		}

		if weapon := cell(colWeapon); weapon != "" {
			bonus, err := number(colWeaponBonus)
			if err != nil {
				return nil, err
			}
			npc.Inventory = append(npc.Inventory, Item{
				Name:        weapon,
				Type:        ItemWeapon,
				Equipped:    true,
				WeaponType:  strings.ToLower(cell(colWeaponType)),
				DamageType:  combat.NormalizeDamageType(cell(colWeaponDamage)),
				AttackBonus: bonus,
			})
		}
		if armor := cell(colArmor); armor != "" {
			ac, err := number(colArmorAC)
			if err != nil {
				return nil, err
			}
			npc.Inventory = append(npc.Inventory, Item{
				Name:     armor,
				Type:     ItemArmor,
				Equipped: true,
				ACBonus:  ac,
			})
		}
		npcs = append(npcs, npc)
	}
	return npcs, nil
}

func splitDamageTypes(cell string) combat.DamageTypes {
	if cell == "" {
		return nil
	}
	var out combat.DamageTypes
	for _, part := range strings.Split(cell, ";") {
		if tag := combat.NormalizeDamageType(part); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

// ImportResult counts what ImportNPCs changed.
type ImportResult struct {
	Added   int
	Updated int
}

// ImportNPCs writes npcs into the npcs collection. A record with an existing
// id replaces the stored one; other stored records keep every field.
func (s *Store) ImportNPCs(ctx context.Context, npcs []NPC) (ImportResult, error) {
	var stored []json.RawMessage
	if err := s.load(ctx, repository.CollectionNPCs, &stored); err != nil {
		return ImportResult{}, err
	}

	index := make(map[ID]int, len(stored))
	for i, raw := range stored {
		var key struct {
			ID ID `json:"id"`
		}
		if err := json.Unmarshal(raw, &key); err == nil && key.ID != "" {
			index[key.ID] = i
		}
	}

	var result ImportResult
	for _, npc := range npcs {
		raw, err := json.Marshal(npc)
		if err != nil {
			return ImportResult{}, apperr.Wrap(apperr.CodeInternal, fmt.Sprintf("encode npc %s", npc.ID), err)
		}
		if i, ok := index[npc.ID]; ok {
			stored[i] = raw
			result.Updated++
			continue
		}
		index[npc.ID] = len(stored)
		stored = append(stored, raw)
		result.Added++
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return ImportResult{}, apperr.Wrap(apperr.CodeInternal, "encode npcs", err)
	}
	if err := s.collections.Save(ctx, repository.CollectionNPCs, data); err != nil {
		return ImportResult{}, apperr.Wrap(apperr.CodeInternal, "save npcs", err)
	}
	return result, nil
}
