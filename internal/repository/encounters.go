package repository

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/arcanetable/encounter-server/internal/apperr"
	"github.com/arcanetable/encounter-server/internal/combat"
	"go.uber.org/zap"
)

// EncounterRepository stores encounters in the "encounters" collection.
// Every write is a whole-collection read-modify-write, so writes are
// serialized by mu and checked against the stored version.
type EncounterRepository struct {
	store  CollectionStore
	mu     sync.Mutex
	logger *zap.Logger
}

// NewEncounterRepository creates a repository over store.
func NewEncounterRepository(store CollectionStore, logger *zap.Logger) *EncounterRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EncounterRepository{store: store, logger: logger}
}

func (r *EncounterRepository) load(ctx context.Context) ([]*combat.Encounter, error) {
	data, err := r.store.Load(ctx, CollectionEncounters)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "load encounters", err)
	}
	var encounters []*combat.Encounter
	if err := json.Unmarshal(data, &encounters); err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "decode encounters", err)
	}
	return encounters, nil
}

func (r *EncounterRepository) save(ctx context.Context, encounters []*combat.Encounter) error {
	if encounters == nil {
		encounters = []*combat.Encounter{}
	}
	data, err := json.MarshalIndent(encounters, "", "  ")
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "encode encounters", err)
	}
	if err := r.store.Save(ctx, CollectionEncounters, data); err != nil {
		return apperr.Wrap(apperr.CodeInternal, "save encounters", err)
	}
	return nil
}

func indexOf(encounters []*combat.Encounter, id string) int {
	for i, e := range encounters {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// Get loads one encounter. The returned value is a private copy.
func (r *EncounterRepository) Get(ctx context.Context, id string) (*combat.Encounter, error) {
	encounters, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	if i := indexOf(encounters, id); i >= 0 {
		return encounters[i], nil
	}
	return nil, apperr.NotFound("encounter %s not found", id)
}

// Create stores a new encounter at version 1. A campaign may hold only one
// active encounter.
func (r *EncounterRepository) Create(ctx context.Context, enc *combat.Encounter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	encounters, err := r.load(ctx)
	if err != nil {
		return err
	}
	for _, e := range encounters {
		if e.ID == enc.ID {
			return apperr.Conflict("encounter %s already exists", enc.ID)
		}
		if e.CampaignID == enc.CampaignID && e.IsActive() {
			return apperr.Conflict("campaign %s already has an active encounter", enc.CampaignID)
		}
	}

	enc.Version = 1
	if err := r.save(ctx, append(encounters, enc)); err != nil {
		enc.Version = 0
		return err
	}
	r.logger.Debug("encounter created",
		zap.String("encounter_id", enc.ID),
		zap.String("campaign_id", enc.CampaignID),
	)
	return nil
}

// Save replaces a stored encounter. enc.Version must match the stored
// version; on success it is incremented.
func (r *EncounterRepository) Save(ctx context.Context, enc *combat.Encounter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	encounters, err := r.load(ctx)
	if err != nil {
		return err
	}
	i := indexOf(encounters, enc.ID)
	if i < 0 {
		return apperr.NotFound("encounter %s not found", enc.ID)
	}
	if stored := encounters[i].Version; stored != enc.Version {
		r.logger.Warn("stale encounter write rejected",
			zap.String("encounter_id", enc.ID),
			zap.Int64("stored_version", stored),
			zap.Int64("write_version", enc.Version),
		)
		return apperr.Conflict("encounter %s was modified concurrently (version %d, have %d)", enc.ID, stored, enc.Version)
	}

	enc.Version++
	encounters[i] = enc
	if err := r.save(ctx, encounters); err != nil {
		enc.Version--
		return err
	}
	return nil
}

// Delete removes an encounter.
func (r *EncounterRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	encounters, err := r.load(ctx)
	if err != nil {
		return err
	}
	i := indexOf(encounters, id)
	if i < 0 {
		return apperr.NotFound("encounter %s not found", id)
	}
	return r.save(ctx, append(encounters[:i], encounters[i+1:]...))
}

// ListByCampaign returns a campaign's encounters, oldest first.
func (r *EncounterRepository) ListByCampaign(ctx context.Context, campaignID string) ([]*combat.Encounter, error) {
	encounters, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	var out []*combat.Encounter
	for _, e := range encounters {
		if e.CampaignID == campaignID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// ActiveByCampaign returns the campaign's active encounter.
func (r *EncounterRepository) ActiveByCampaign(ctx context.Context, campaignID string) (*combat.Encounter, error) {
	encounters, err := r.ListByCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	for _, e := range encounters {
		if e.IsActive() {
			return e, nil
		}
	}
	return nil, apperr.NotFound("no active encounter for campaign %s", campaignID)
}

// LatestCompleted returns the campaign's most recently ended encounter.
func (r *EncounterRepository) LatestCompleted(ctx context.Context, campaignID string) (*combat.Encounter, error) {
	encounters, err := r.ListByCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	var latest *combat.Encounter
	for _, e := range encounters {
		if e.Status != combat.StatusCompleted {
			continue
		}
		if latest == nil || endedAt(e).After(endedAt(latest)) {
			latest = e
		}
	}
	if latest == nil {
		return nil, apperr.NotFound("no completed encounter for campaign %s", campaignID)
	}
	return latest, nil
}

func endedAt(e *combat.Encounter) time.Time {
	if e.EndedAt != nil {
		return *e.EndedAt
	}
	return e.CreatedAt
}
