package encounter

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/arcanetable/encounter-server/internal/apperr"
	"github.com/arcanetable/encounter-server/internal/combat"
	"github.com/arcanetable/encounter-server/internal/roster"
	"go.uber.org/zap"
)

// combatant is a participant reference joined with its roster record.
type combatant struct {
	actor    combat.Actor
	defenses combat.Defenses
	ac       int
	weapon   *roster.Weapon
}

// resolve looks up the roster record behind ref. A record missing from the
// roster still resolves, with placeholder name, no defenses and the default
// AC; the encounter itself decides whether the participant exists.
func (s *Service) resolve(ctx context.Context, ref combat.Ref, role string) (combatant, error) {
	if strings.TrimSpace(ref.ID) == "" {
		return combatant{}, apperr.Validation("%s id is required", role)
	}
	switch ref.Kind {
	case combat.KindPlayer:
		p, err := s.roster.Player(ctx, ref.ID)
		if errors.Is(err, apperr.ErrNotFound) {
			return combatant{actor: combat.Actor{ID: ref.ID, Kind: ref.Kind, Name: "Unknown Player"}, ac: roster.DefaultAC}, nil
		}
		if err != nil {
			return combatant{}, err
		}
		return combatant{actor: p.Actor(), defenses: p.Defenses, ac: p.ArmorClass()}, nil
	case combat.KindNPC:
		n, err := s.roster.NPC(ctx, ref.ID)
		if errors.Is(err, apperr.ErrNotFound) {
			return combatant{actor: combat.Actor{ID: ref.ID, Kind: ref.Kind, Name: "Unknown NPC"}, ac: roster.DefaultAC}, nil
		}
		if err != nil {
			return combatant{}, err
		}
		c := combatant{actor: n.Actor(), defenses: n.Defenses, ac: n.ArmorClass()}
		if w, ok := n.EquippedWeapon(); ok {
			c.weapon = &w
		}
		return c, nil
	default:
		return combatant{}, apperr.Validation("%s kind %q is invalid", role, ref.Kind)
	}
}

// AttackRequest is a single-target attack.
type AttackRequest struct {
	EncounterID string
	Actor       combat.Ref
	Target      combat.Ref
	AttackRoll  int
	AttackBonus int
	Damage      int
	DamageType  string
	WeaponName  string
	RageBonus   int
	Crit        bool
	ActionType  combat.ActionType
}

// AttackAction resolves an attack. NPC attackers with an equipped weapon use
// that weapon's name, damage type and attack bonus; the target's AC always
// comes from the roster.
func (s *Service) AttackAction(ctx context.Context, req AttackRequest) (*combat.Encounter, error) {
	actor, err := s.resolve(ctx, req.Actor, "actor")
	if err != nil {
		return nil, err
	}
	target, err := s.resolve(ctx, req.Target, "target")
	if err != nil {
		return nil, err
	}

	in := combat.AttackInput{
		Actor:          actor.actor,
		Target:         target.actor,
		TargetAC:       target.ac,
		TargetDefenses: target.defenses,
		WeaponName:     req.WeaponName,
		AttackRoll:     req.AttackRoll,
		AttackBonus:    req.AttackBonus,
		Damage:         req.Damage,
		RageBonus:      req.RageBonus,
		DamageType:     req.DamageType,
		Crit:           req.Crit,
		ActionType:     req.ActionType,
	}
	if actor.weapon != nil {
		in.WeaponName = actor.weapon.Name
		in.DamageType = actor.weapon.DamageType
		in.AttackBonus = actor.weapon.AttackBonus
	}

	var entry combat.LogEntry
	enc, err := s.mutate(ctx, req.EncounterID, func(enc *combat.Encounter, now time.Time) error {
		var err error
		entry, err = enc.Attack(in, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("attack resolved",
		zap.String("encounter_id", req.EncounterID),
		zap.Stringer("actor", req.Actor),
		zap.Stringer("target", req.Target),
		zap.Int("total_attack", entry.Attack.TotalAttack),
		zap.Int("target_ac", entry.Attack.TargetAC),
		zap.Bool("hit", entry.Attack.Hit),
		zap.Int("damage", entry.Attack.Damage),
	)
	s.notifyUpdated(ctx, enc, "attack")
	return enc, nil
}

// SpellRequest is a spell cast against any number of targets. Damage and
// Healing are parallel to Targets.
type SpellRequest struct {
	EncounterID string
	Actor       combat.Ref
	Targets     []combat.Ref
	SpellName   string
	SpellLevel  int
	Damage      []int
	Healing     []int
	DamageType  string
	SaveDC      int
	SaveType    string
	ActionType  combat.ActionType
}

// SpellAction applies a spell's per-target damage and healing.
func (s *Service) SpellAction(ctx context.Context, req SpellRequest) (*combat.Encounter, error) {
	actor, err := s.resolve(ctx, req.Actor, "actor")
	if err != nil {
		return nil, err
	}
	targets := make([]combat.SpellTarget, 0, len(req.Targets))
	for _, ref := range req.Targets {
		t, err := s.resolve(ctx, ref, "target")
		if err != nil {
			return nil, err
		}
		targets = append(targets, combat.SpellTarget{Target: t.actor, Defenses: t.defenses})
	}

	enc, err := s.mutate(ctx, req.EncounterID, func(enc *combat.Encounter, now time.Time) error {
		_, err := enc.CastSpell(combat.SpellInput{
			Actor:      actor.actor,
			Targets:    targets,
			SpellName:  req.SpellName,
			SpellLevel: req.SpellLevel,
			Damage:     req.Damage,
			Healing:    req.Healing,
			DamageType: req.DamageType,
			SaveDC:     req.SaveDC,
			SaveType:   req.SaveType,
			ActionType: req.ActionType,
		}, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("spell cast",
		zap.String("encounter_id", req.EncounterID),
		zap.Stringer("actor", req.Actor),
		zap.String("spell", req.SpellName),
		zap.Int("targets", len(targets)),
	)
	s.notifyUpdated(ctx, enc, "spell")
	return enc, nil
}

// ItemRequest is the use of a consumable.
type ItemRequest struct {
	EncounterID       string
	Actor             combat.Ref
	Target            *combat.Ref
	ItemName          string
	ItemType          string
	Effect            combat.ItemEffect
	EffectDescription string
	EffectDice        string
	EffectDamageType  string
	HealAmount        int
	HealBreakdown     string
	DamageAmount      int
	ActionType        combat.ActionType
}

// ItemAction applies a consumable's healing or damage.
func (s *Service) ItemAction(ctx context.Context, req ItemRequest) (*combat.Encounter, error) {
	actor, err := s.resolve(ctx, req.Actor, "actor")
	if err != nil {
		return nil, err
	}
	in := combat.ItemInput{
		Actor:             actor.actor,
		ItemName:          req.ItemName,
		ItemType:          req.ItemType,
		Effect:            req.Effect,
		EffectDescription: req.EffectDescription,
		EffectDice:        req.EffectDice,
		EffectDamageType:  req.EffectDamageType,
		HealAmount:        req.HealAmount,
		HealBreakdown:     req.HealBreakdown,
		DamageAmount:      req.DamageAmount,
		ActionType:        req.ActionType,
	}
	if req.Target != nil {
		target, err := s.resolve(ctx, *req.Target, "target")
		if err != nil {
			return nil, err
		}
		in.Target = &target.actor
		in.TargetDefenses = target.defenses
	}

	enc, err := s.mutate(ctx, req.EncounterID, func(enc *combat.Encounter, now time.Time) error {
		_, err := enc.UseItem(in, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("item used",
		zap.String("encounter_id", req.EncounterID),
		zap.Stringer("actor", req.Actor),
		zap.String("item", req.ItemName),
		zap.String("effect", string(req.Effect)),
	)
	s.notifyUpdated(ctx, enc, "item")
	return enc, nil
}

// OtherRequest is a log-only action such as Dash or Hide.
type OtherRequest struct {
	EncounterID string
	Actor       combat.Ref
	ActionName  string
	Description string
	ActionType  combat.ActionType
}

// OtherAction spends the economy slot and logs the action.
func (s *Service) OtherAction(ctx context.Context, req OtherRequest) (*combat.Encounter, error) {
	actor, err := s.resolve(ctx, req.Actor, "actor")
	if err != nil {
		return nil, err
	}

	enc, err := s.mutate(ctx, req.EncounterID, func(enc *combat.Encounter, now time.Time) error {
		_, err := enc.OtherAction(combat.OtherInput{
			Actor:       actor.actor,
			ActionName:  req.ActionName,
			Description: req.Description,
			ActionType:  req.ActionType,
		}, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("action logged",
		zap.String("encounter_id", req.EncounterID),
		zap.Stringer("actor", req.Actor),
		zap.String("action", req.ActionName),
	)
	s.notifyUpdated(ctx, enc, "other")
	return enc, nil
}
