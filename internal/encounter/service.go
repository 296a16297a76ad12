// Package encounter runs encounter requests: each call loads the encounter,
// applies one combat operation and persists the result.
package encounter

import (
	"context"
	"time"

	"github.com/arcanetable/encounter-server/internal/archive"
	"github.com/arcanetable/encounter-server/internal/combat"
	"github.com/arcanetable/encounter-server/internal/events"
	"github.com/arcanetable/encounter-server/internal/roster"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Repository persists encounters.
type Repository interface {
	Get(ctx context.Context, id string) (*combat.Encounter, error)
	Create(ctx context.Context, enc *combat.Encounter) error
	Save(ctx context.Context, enc *combat.Encounter) error
	Delete(ctx context.Context, id string) error
	ActiveByCampaign(ctx context.Context, campaignID string) (*combat.Encounter, error)
	LatestCompleted(ctx context.Context, campaignID string) (*combat.Encounter, error)
}

// Archiver stores combat logs of finished encounters.
type Archiver interface {
	Save(enc *combat.Encounter) error
	Load(encounterID string) (*archive.Archive, error)
	Delete(encounterID string) error
}

// Service implements the encounter operations.
type Service struct {
	repo     Repository
	roster   roster.Lookup
	notifier events.Notifier
	archiver Archiver
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
	locks    *keyedMutex
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier publishes encounter events through n.
func WithNotifier(n events.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithArchiver archives combat logs when encounters end.
func WithArchiver(a Archiver) Option {
	return func(s *Service) { s.archiver = a }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides encounter id generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// NewService creates the encounter service.
func NewService(repo Repository, lookup roster.Lookup, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		repo:   repo,
		roster: lookup,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
		locks:  newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// mutate runs fn on a freshly loaded copy of the encounter and saves it. The
// per-encounter lock keeps concurrent requests for one encounter in order.
// A failing fn leaves storage untouched.
func (s *Service) mutate(ctx context.Context, encounterID string, fn func(enc *combat.Encounter, now time.Time) error) (*combat.Encounter, error) {
	unlock := s.locks.Lock(encounterID)
	defer unlock()

	enc, err := s.repo.Get(ctx, encounterID)
	if err != nil {
		return nil, err
	}
	if err := fn(enc, s.now().UTC()); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, enc); err != nil {
		return nil, err
	}
	return enc, nil
}

// Update is the payload of encounter.updated events.
type Update struct {
	EncounterID string `json:"encounterId"`
	Round       int    `json:"round"`
	CurrentTurn int    `json:"currentTurn"`
	Reason      string `json:"reason"`
}

func (s *Service) notify(ctx context.Context, campaignID, event string, payload any) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, campaignID, event, payload); err != nil {
		s.logger.Warn("failed to publish encounter event",
			zap.String("campaign_id", campaignID),
			zap.String("event", event),
			zap.Error(err),
		)
	}
}

func (s *Service) notifyUpdated(ctx context.Context, enc *combat.Encounter, reason string) {
	s.notify(ctx, enc.CampaignID, events.EncounterUpdated, Update{
		EncounterID: enc.ID,
		Round:       enc.Round,
		CurrentTurn: enc.CurrentTurnIndex,
		Reason:      reason,
	})
}
