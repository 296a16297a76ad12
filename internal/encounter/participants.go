package encounter

import (
	"context"
	"strings"
	"time"

	"github.com/arcanetable/encounter-server/internal/apperr"
	"github.com/arcanetable/encounter-server/internal/combat"
	"go.uber.org/zap"
)

// AddNPCParticipant adds a roster NPC to the initiative order at full HP.
// A nil initiative uses combat.DefaultNPCInitiative.
func (s *Service) AddNPCParticipant(ctx context.Context, encounterID, npcID string, initiative *int, hidden bool) (*combat.Encounter, error) {
	npcID = strings.TrimSpace(npcID)
	if npcID == "" {
		return nil, apperr.Validation("npc id is required")
	}
	npc, err := s.roster.NPC(ctx, npcID)
	if err != nil {
		return nil, err
	}
	order := combat.DefaultNPCInitiative
	if initiative != nil {
		order = *initiative
	}

	enc, err := s.mutate(ctx, encounterID, func(enc *combat.Encounter, _ time.Time) error {
		_, err := enc.AddNPC(npcID, order, npc.MaxHitPoints(), hidden)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("npc joined encounter",
		zap.String("encounter_id", encounterID),
		zap.String("npc_id", npcID),
		zap.Int("initiative", order),
		zap.Bool("hidden", hidden),
	)
	s.notifyUpdated(ctx, enc, "npc_added")
	return enc, nil
}

// InitiativeRequest is a player's initiative roll. A nil Total means
// Roll + Modifier.
type InitiativeRequest struct {
	EncounterID string
	PlayerID    string
	Roll        int
	Modifier    int
	Total       *int
}

// SubmitInitiative records a player's roll and creates or re-sorts that
// player's participant.
func (s *Service) SubmitInitiative(ctx context.Context, req InitiativeRequest) (*combat.Encounter, error) {
	playerID := strings.TrimSpace(req.PlayerID)
	if playerID == "" {
		return nil, apperr.Validation("player id is required")
	}
	player, err := s.roster.Player(ctx, playerID)
	if err != nil {
		return nil, err
	}
	total := req.Roll + req.Modifier
	if req.Total != nil {
		total = *req.Total
	}

	enc, err := s.mutate(ctx, req.EncounterID, func(enc *combat.Encounter, now time.Time) error {
		_, err := enc.SubmitInitiative(playerID, req.Roll, req.Modifier, total, player.MaxHitPoints(), now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("initiative submitted",
		zap.String("encounter_id", req.EncounterID),
		zap.String("player_id", playerID),
		zap.Int("total", total),
	)
	s.notifyUpdated(ctx, enc, "initiative")
	return enc, nil
}

// HPRequest is a manual hit point edit.
type HPRequest struct {
	EncounterID    string
	Participant    combat.Ref
	HP             int
	Defeated       *bool
	DeathFailures  *int
	DeathSuccesses *int
}

// SetParticipantHP overwrites a participant's current HP.
func (s *Service) SetParticipantHP(ctx context.Context, req HPRequest) (*combat.Encounter, error) {
	target, err := s.resolve(ctx, req.Participant, "participant")
	if err != nil {
		return nil, err
	}

	enc, err := s.mutate(ctx, req.EncounterID, func(enc *combat.Encounter, now time.Time) error {
		_, err := enc.SetHP(combat.HPUpdate{
			Target:         req.Participant,
			TargetName:     target.actor.Name,
			HP:             req.HP,
			Defeated:       req.Defeated,
			DeathFailures:  req.DeathFailures,
			DeathSuccesses: req.DeathSuccesses,
		}, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("participant hp set",
		zap.String("encounter_id", req.EncounterID),
		zap.Stringer("participant", req.Participant),
		zap.Int("hp", req.HP),
	)
	s.notifyUpdated(ctx, enc, "hp")
	return enc, nil
}

// AdvanceTurn moves the turn pointer to the next living participant.
func (s *Service) AdvanceTurn(ctx context.Context, encounterID string) (*combat.Encounter, error) {
	enc, err := s.mutate(ctx, encounterID, func(enc *combat.Encounter, _ time.Time) error {
		_, err := enc.AdvanceTurn()
		return err
	})
	if err != nil {
		return nil, err
	}

	fields := []zap.Field{
		zap.String("encounter_id", encounterID),
		zap.Int("round", enc.Round),
		zap.Int("current_turn", enc.CurrentTurnIndex),
	}
	if current := enc.Current(); current != nil {
		fields = append(fields, zap.Stringer("participant", current.Ref()))
	}
	s.logger.Debug("turn advanced", fields...)
	s.notifyUpdated(ctx, enc, "turn")
	return enc, nil
}

// EndTurn is AdvanceTurn under the name players use.
func (s *Service) EndTurn(ctx context.Context, encounterID string) (*combat.Encounter, error) {
	return s.AdvanceTurn(ctx, encounterID)
}
