package encounter

import (
	"context"
	"errors"
	"strings"

	"github.com/arcanetable/encounter-server/internal/apperr"
	"github.com/arcanetable/encounter-server/internal/archive"
	"github.com/arcanetable/encounter-server/internal/combat"
	"github.com/arcanetable/encounter-server/internal/events"
	"go.uber.org/zap"
)

// StartEncounter opens a new active encounter for a campaign.
func (s *Service) StartEncounter(ctx context.Context, campaignID, ownerID string) (*combat.Encounter, error) {
	campaignID = strings.TrimSpace(campaignID)
	ownerID = strings.TrimSpace(ownerID)
	if campaignID == "" {
		return nil, apperr.Validation("campaign id is required")
	}
	if ownerID == "" {
		return nil, apperr.Validation("owner id is required")
	}

	unlock := s.locks.Lock("campaign/" + campaignID)
	defer unlock()

	enc := combat.NewEncounter(s.newID(), campaignID, ownerID, s.now())
	if err := s.repo.Create(ctx, enc); err != nil {
		return nil, err
	}

	s.logger.Info("encounter started",
		zap.String("encounter_id", enc.ID),
		zap.String("campaign_id", campaignID),
		zap.String("owner_id", ownerID),
	)
	s.notify(ctx, campaignID, events.EncounterStarted, Update{EncounterID: enc.ID, Round: enc.Round, Reason: "started"})
	return enc, nil
}

// GetEncounter loads one encounter.
func (s *Service) GetEncounter(ctx context.Context, encounterID string) (*combat.Encounter, error) {
	if strings.TrimSpace(encounterID) == "" {
		return nil, apperr.Validation("encounter id is required")
	}
	return s.repo.Get(ctx, encounterID)
}

// CampaignView is either the active encounter of a campaign or, when none is
// running, the summary of the most recently completed one.
type CampaignView struct {
	Encounter *combat.Encounter `json:"encounter,omitempty"`
	Summary   *combat.Summary   `json:"summary,omitempty"`
}

// GetActiveEncounter returns the campaign's active encounter, falling back to
// the latest completed summary.
func (s *Service) GetActiveEncounter(ctx context.Context, campaignID string) (CampaignView, error) {
	if strings.TrimSpace(campaignID) == "" {
		return CampaignView{}, apperr.Validation("campaign id is required")
	}
	active, err := s.repo.ActiveByCampaign(ctx, campaignID)
	if err == nil {
		return CampaignView{Encounter: active}, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return CampaignView{}, err
	}

	latest, err := s.repo.LatestCompleted(ctx, campaignID)
	if err != nil {
		return CampaignView{}, err
	}
	return CampaignView{Summary: latest.LastSummary}, nil
}

// EndEncounter completes the encounter and returns its summary. Ending a
// completed encounter returns the stored summary without writing.
func (s *Service) EndEncounter(ctx context.Context, encounterID string) (combat.Summary, error) {
	unlock := s.locks.Lock(encounterID)
	defer unlock()

	enc, err := s.repo.Get(ctx, encounterID)
	if err != nil {
		return combat.Summary{}, err
	}
	if enc.Status == combat.StatusCompleted && enc.LastSummary != nil {
		return *enc.LastSummary, nil
	}

	names, err := s.playerNames(ctx, enc)
	if err != nil {
		return combat.Summary{}, err
	}
	summary := enc.End(names, s.now())
	if err := s.repo.Save(ctx, enc); err != nil {
		return combat.Summary{}, err
	}

	if s.archiver != nil {
		if err := s.archiver.Save(enc); err != nil {
			s.logger.Warn("failed to archive encounter",
				zap.String("encounter_id", enc.ID),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("encounter ended",
		zap.String("encounter_id", enc.ID),
		zap.String("campaign_id", enc.CampaignID),
		zap.Int("rounds", summary.Rounds),
		zap.Int("enemies_defeated", summary.EnemiesDefeated),
		zap.Int("log_entries", enc.CombatLog.Len()),
	)
	s.notify(ctx, enc.CampaignID, events.EncounterEnded, summary)
	return summary, nil
}

// DeleteEncounter removes an encounter and its archive.
func (s *Service) DeleteEncounter(ctx context.Context, encounterID string) error {
	unlock := s.locks.Lock(encounterID)
	defer unlock()

	enc, err := s.repo.Get(ctx, encounterID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, encounterID); err != nil {
		return err
	}
	if s.archiver != nil {
		if err := s.archiver.Delete(encounterID); err != nil {
			s.logger.Warn("failed to delete encounter archive",
				zap.String("encounter_id", encounterID),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("encounter deleted",
		zap.String("encounter_id", encounterID),
		zap.String("campaign_id", enc.CampaignID),
	)
	s.notify(ctx, enc.CampaignID, events.EncounterDeleted, Update{EncounterID: encounterID, Reason: "deleted"})
	return nil
}

// GetReplay returns the archived combat log of a finished encounter.
func (s *Service) GetReplay(ctx context.Context, encounterID string) (*archive.Archive, error) {
	if s.archiver == nil {
		return nil, apperr.Validation("encounter archives are disabled")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.archiver.Load(encounterID)
}

// playerNames resolves roster names for every player who appears in the
// encounter. Players missing from the roster fall back to their logged name.
func (s *Service) playerNames(ctx context.Context, enc *combat.Encounter) (map[string]string, error) {
	names := make(map[string]string)
	seen := make(map[string]bool)
	check := func(id string) error {
		if id == "" || seen[id] {
			return nil
		}
		seen[id] = true
		p, err := s.roster.Player(ctx, id)
		if errors.Is(err, apperr.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		names[id] = p.Name
		return nil
	}
	for _, p := range enc.Participants {
		if p.Kind == combat.KindPlayer {
			if err := check(p.ID); err != nil {
				return nil, err
			}
		}
	}
	for _, entry := range enc.CombatLog {
		if entry.Actor.Kind == combat.KindPlayer {
			if err := check(entry.Actor.ID); err != nil {
				return nil, err
			}
		}
	}
	return names, nil
}
