package combat

import (
	"strings"
	"time"

	"github.com/arcanetable/encounter-server/internal/apperr"
)

// DefaultNPCInitiative is used when an NPC is added without an initiative.
const DefaultNPCInitiative = 10

// AddNPC places an NPC into the initiative order at full HP.
func (e *Encounter) AddNPC(npcID string, initiative, maxHP int, hidden bool) (*Participant, error) {
	if err := e.requireActive(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(npcID) == "" {
		return nil, apperr.Validation("npc id is required")
	}
	if maxHP <= 0 {
		return nil, apperr.Validation("npc max hp must be positive, got %d", maxHP)
	}
	if e.Find(Ref{Kind: KindNPC, ID: npcID}) != nil {
		return nil, apperr.Validation("npc %s is already in the encounter", npcID)
	}

	p := NewNPC(npcID, initiative, maxHP, hidden)
	e.Scheduler().AddParticipant(p)
	return p, nil
}

// SubmitInitiative records a player's initiative roll and creates or
// re-sorts that player's participant.
func (e *Encounter) SubmitInitiative(playerID string, roll, modifier, total, maxHP int, now time.Time) (*Participant, error) {
	if err := e.requireActive(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(playerID) == "" {
		return nil, apperr.Validation("player id is required")
	}
	if maxHP <= 0 {
		return nil, apperr.Validation("player max hp must be positive, got %d", maxHP)
	}

	if e.InitiativeRolls == nil {
		e.InitiativeRolls = make(map[string]InitiativeRoll)
	}
	e.InitiativeRolls[playerID] = InitiativeRoll{
		Roll:      roll,
		Modifier:  modifier,
		Total:     total,
		Timestamp: now,
	}

	scheduler := e.Scheduler()
	if existing := e.Find(Ref{Kind: KindPlayer, ID: playerID}); existing != nil {
		existing.Initiative = total
		if existing.MaxHP <= 0 {
			existing.MaxHP = maxHP
			existing.CurrentHP = maxHP
		}
		scheduler.Resort()
		return existing, nil
	}

	p := NewPlayer(playerID, total, maxHP)
	scheduler.AddParticipant(p)
	return p, nil
}

// HPUpdate is a manual hit point edit from the game master.
type HPUpdate struct {
	Target         Ref
	TargetName     string
	HP             int
	Defeated       *bool
	DeathFailures  *int
	DeathSuccesses *int
}

// SetHP applies a manual HP edit. NPCs at 0 are defeated through the defeat
// handler; players are defeated only by an explicit flag or by three failed
// death saves while at 0 HP.
func (e *Encounter) SetHP(update HPUpdate, now time.Time) (*Participant, error) {
	if err := e.requireActive(); err != nil {
		return nil, err
	}
	p, err := e.require(update.Target, "participant")
	if err != nil {
		return nil, err
	}

	p.SetHP(update.HP)

	switch p.Kind {
	case KindNPC:
		if p.CurrentHP <= 0 {
			NewDefeatHandler(e, now).Defeat(p, GameMaster(e.OwnerID), update.TargetName)
		} else {
			p.Defeated = false
		}
	case KindPlayer:
		p.SetDeathSaves(update.DeathFailures, update.DeathSuccesses)
		explicit := update.Defeated != nil && *update.Defeated
		switch {
		case explicit || (p.CurrentHP <= 0 && p.DeathSaveFailures() >= MaxDeathSaves):
			p.Defeated = true
		case p.CurrentHP > 0 || (update.Defeated != nil && !*update.Defeated):
			p.Defeated = false
		}
	}

	e.Scheduler().EnsureCurrentAlive()
	return p, nil
}

// AdvanceTurn moves to the next living participant.
func (e *Encounter) AdvanceTurn() (*Participant, error) {
	if err := e.requireActive(); err != nil {
		return nil, err
	}
	if len(e.Participants) == 0 {
		return nil, apperr.Validation("no participants in encounter")
	}
	scheduler := e.Scheduler()
	scheduler.Advance()
	return scheduler.Current(), nil
}

// AttackInput carries an attack request with roster data already resolved.
type AttackInput struct {
	Actor          Actor
	Target         Actor
	TargetAC       int
	TargetDefenses Defenses
	WeaponName     string
	AttackRoll     int
	AttackBonus    int
	Damage         int
	RageBonus      int
	DamageType     string
	Crit           bool
	ActionType     ActionType
}

// Attack resolves a single-target attack roll. A hit applies modified
// damage to the target and may defeat it.
func (e *Encounter) Attack(in AttackInput, now time.Time) (LogEntry, error) {
	if err := e.requireActive(); err != nil {
		return LogEntry{}, err
	}
	actor, err := e.require(in.Actor.Ref(), "actor")
	if err != nil {
		return LogEntry{}, err
	}
	target, err := e.require(in.Target.Ref(), "target")
	if err != nil {
		return LogEntry{}, err
	}
	if in.Damage < 0 || in.RageBonus < 0 {
		return LogEntry{}, apperr.Validation("damage must not be negative")
	}
	if err := CheckEconomy(actor, in.ActionType); err != nil {
		return LogEntry{}, err
	}

	ConsumeEconomy(actor, in.ActionType)

	totalAttack := in.AttackRoll + in.AttackBonus
	hit := totalAttack >= in.TargetAC || in.Crit
	rawDamage := in.Damage + in.RageBonus
	damageType := NormalizeDamageType(in.DamageType)
	if damageType == "" {
		damageType = TagPhysical
	}

	detail := &AttackDetail{
		Target:      in.Target,
		WeaponName:  in.WeaponName,
		AttackRoll:  in.AttackRoll,
		AttackBonus: in.AttackBonus,
		TotalAttack: totalAttack,
		TargetAC:    in.TargetAC,
		Hit:         hit,
		Crit:        in.Crit,
		RawDamage:   rawDamage,
		DamageType:  damageType,
	}

	previousHP := target.CurrentHP
	if hit && rawDamage > 0 {
		result := Resolve(rawDamage, damageType, in.TargetDefenses)
		if result.Modified() {
			detail.Adjustments = append(detail.Adjustments, result.Adjustment(in.Target.Name))
		}
		target.TakeDamage(result.Adjusted)
		detail.Damage = result.Adjusted
	}

	entry := e.CombatLog.Append(LogEntry{
		Kind:      EntryAttack,
		Round:     e.Round,
		Actor:     in.Actor,
		Timestamp: now,
		Attack:    detail,
	})
	NewDefeatHandler(e, now).OnHPChanged(target, previousHP, in.Actor, in.Target.Name)
	return entry, nil
}

// SpellTarget is one resolved target of a spell.
type SpellTarget struct {
	Target   Actor
	Defenses Defenses
}

// SpellInput carries a spell request. Damage and Healing are parallel to
// Targets; a missing index means no damage or healing for that target.
type SpellInput struct {
	Actor      Actor
	Targets    []SpellTarget
	SpellName  string
	SpellLevel int
	Damage     []int
	Healing    []int
	DamageType string
	SaveDC     int
	SaveType   string
	ActionType ActionType
}

// CastSpell applies per-target damage through the modifier pipeline and
// per-target healing clamped to max HP.
func (e *Encounter) CastSpell(in SpellInput, now time.Time) (LogEntry, error) {
	if err := e.requireActive(); err != nil {
		return LogEntry{}, err
	}
	actor, err := e.require(in.Actor.Ref(), "actor")
	if err != nil {
		return LogEntry{}, err
	}
	if len(in.Damage) > len(in.Targets) || len(in.Healing) > len(in.Targets) {
		return LogEntry{}, apperr.Validation("damage and healing arrays must not be longer than targets")
	}
	targets := make([]*Participant, len(in.Targets))
	for i, t := range in.Targets {
		p, err := e.require(t.Target.Ref(), "target")
		if err != nil {
			return LogEntry{}, err
		}
		targets[i] = p
	}
	for _, v := range append(append([]int(nil), in.Damage...), in.Healing...) {
		if v < 0 {
			return LogEntry{}, apperr.Validation("spell damage and healing must not be negative")
		}
	}
	if err := CheckEconomy(actor, in.ActionType); err != nil {
		return LogEntry{}, err
	}

	ConsumeEconomy(actor, in.ActionType)

	damageType := NormalizeDamageType(in.DamageType)
	detail := &SpellDetail{
		SpellName:  in.SpellName,
		SpellLevel: in.SpellLevel,
		Targets:    make([]Actor, len(in.Targets)),
		Damage:     make([]int, len(in.Targets)),
		RawDamage:  make([]int, len(in.Targets)),
		Healing:    make([]int, len(in.Targets)),
		DamageType: damageType,
		SaveDC:     in.SaveDC,
		SaveType:   in.SaveType,
	}

	type pendingDefeat struct {
		target     *Participant
		previousHP int
		name       string
	}
	var defeats []pendingDefeat

	for i, t := range in.Targets {
		target := targets[i]
		detail.Targets[i] = t.Target
		previousHP := target.CurrentHP

		raw := at(in.Damage, i)
		detail.RawDamage[i] = raw
		if raw > 0 {
			result := Resolve(raw, damageType, t.Defenses)
			if result.Modified() {
				detail.Adjustments = append(detail.Adjustments, result.Adjustment(t.Target.Name))
			}
			target.TakeDamage(result.Adjusted)
			detail.Damage[i] = result.Adjusted
		}
		if heal := at(in.Healing, i); heal > 0 {
			target.Heal(heal)
			detail.Healing[i] = heal
		}
		if raw > 0 {
			defeats = append(defeats, pendingDefeat{target: target, previousHP: previousHP, name: t.Target.Name})
		}
	}

	entry := e.CombatLog.Append(LogEntry{
		Kind:      EntrySpell,
		Round:     e.Round,
		Actor:     in.Actor,
		Timestamp: now,
		Spell:     detail,
	})
	handler := NewDefeatHandler(e, now)
	for _, d := range defeats {
		handler.OnHPChanged(d.target, d.previousHP, in.Actor, d.name)
	}
	return entry, nil
}

// ItemInput carries a consumable-use request.
type ItemInput struct {
	Actor             Actor
	Target            *Actor
	TargetDefenses    Defenses
	ItemName          string
	ItemType          string
	Effect            ItemEffect
	EffectDescription string
	EffectDice        string
	EffectDamageType  string
	HealAmount        int
	HealBreakdown     string
	DamageAmount      int
	ActionType        ActionType
}

// UseItem applies a consumable's healing or damage to its target. Items
// with any other effect are only logged.
func (e *Encounter) UseItem(in ItemInput, now time.Time) (LogEntry, error) {
	if err := e.requireActive(); err != nil {
		return LogEntry{}, err
	}
	actor, err := e.require(in.Actor.Ref(), "actor")
	if err != nil {
		return LogEntry{}, err
	}
	if in.HealAmount < 0 || in.DamageAmount < 0 {
		return LogEntry{}, apperr.Validation("item amounts must not be negative")
	}

	effect := ItemEffect(strings.ToLower(strings.TrimSpace(string(in.Effect))))
	if effect == "" {
		effect = ItemOther
	}

	var target *Participant
	if effect == ItemHealing || effect == ItemDamage {
		if in.Target == nil {
			return LogEntry{}, apperr.Validation("item with %s effect requires a target", effect)
		}
		target, err = e.require(in.Target.Ref(), "target")
		if err != nil {
			return LogEntry{}, err
		}
	}
	if err := CheckEconomy(actor, in.ActionType); err != nil {
		return LogEntry{}, err
	}

	ConsumeEconomy(actor, in.ActionType)

	damageType := NormalizeDamageType(in.EffectDamageType)
	detail := &ItemDetail{
		ItemName:          in.ItemName,
		ItemType:          in.ItemType,
		Effect:            effect,
		EffectDescription: in.EffectDescription,
		EffectDice:        in.EffectDice,
		EffectDamageType:  damageType,
		HealAmount:        in.HealAmount,
		HealBreakdown:     in.HealBreakdown,
		DamageAmount:      in.DamageAmount,
		RawDamageAmount:   in.DamageAmount,
		Target:            in.Target,
	}

	previousHP := 0
	switch {
	case target != nil && effect == ItemHealing:
		target.Heal(in.HealAmount)
	case target != nil && effect == ItemDamage:
		previousHP = target.CurrentHP
		result := Resolve(in.DamageAmount, damageType, in.TargetDefenses)
		if result.Modified() {
			detail.Adjustments = append(detail.Adjustments, result.Adjustment(in.Target.Name))
		}
		target.TakeDamage(result.Adjusted)
		detail.DamageAmount = result.Adjusted
	}

	entry := e.CombatLog.Append(LogEntry{
		Kind:      EntryItem,
		Round:     e.Round,
		Actor:     in.Actor,
		Timestamp: now,
		Item:      detail,
	})
	if target != nil && effect == ItemDamage {
		NewDefeatHandler(e, now).OnHPChanged(target, previousHP, in.Actor, in.Target.Name)
	}
	return entry, nil
}

// OtherInput carries a log-only action such as Dash, Dodge or Hide.
type OtherInput struct {
	Actor       Actor
	ActionName  string
	Description string
	ActionType  ActionType
}

// OtherAction spends the economy slot and logs the action.
func (e *Encounter) OtherAction(in OtherInput, now time.Time) (LogEntry, error) {
	if err := e.requireActive(); err != nil {
		return LogEntry{}, err
	}
	actor, err := e.require(in.Actor.Ref(), "actor")
	if err != nil {
		return LogEntry{}, err
	}
	if strings.TrimSpace(in.ActionName) == "" {
		return LogEntry{}, apperr.Validation("action name is required")
	}
	if err := CheckEconomy(actor, in.ActionType); err != nil {
		return LogEntry{}, err
	}

	ConsumeEconomy(actor, in.ActionType)

	return e.CombatLog.Append(LogEntry{
		Kind:      EntryOther,
		Round:     e.Round,
		Actor:     in.Actor,
		Timestamp: now,
		Other: &OtherDetail{
			ActionName:  in.ActionName,
			Description: in.Description,
		},
	}), nil
}

// End completes the encounter and freezes its summary. Ending an already
// completed encounter returns the stored summary unchanged.
func (e *Encounter) End(playerNames map[string]string, now time.Time) Summary {
	if e.Status == StatusCompleted && e.LastSummary != nil {
		return *e.LastSummary
	}
	ended := now.UTC()
	e.Status = StatusCompleted
	e.EndedAt = &ended
	summary := Summarize(e, playerNames, ended)
	e.LastSummary = &summary
	return summary
}

func at(values []int, i int) int {
	if i < len(values) {
		return values[i]
	}
	return 0
}
