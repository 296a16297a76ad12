// Package server exposes the encounter service over gRPC. Messages travel
// as JSON; clients select the codec with grpc.CallContentSubtype(CodecName).
package server

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/arcanetable/encounter-server/internal/apperr"
	"github.com/arcanetable/encounter-server/internal/archive"
	"github.com/arcanetable/encounter-server/internal/combat"
	"github.com/arcanetable/encounter-server/internal/encounter"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully qualified RPC service name.
const ServiceName = "arcanetable.encounter.v1.EncounterService"

// Encounters is the domain service behind the RPC handlers.
type Encounters interface {
	StartEncounter(ctx context.Context, campaignID, ownerID string) (*combat.Encounter, error)
	GetEncounter(ctx context.Context, encounterID string) (*combat.Encounter, error)
	GetActiveEncounter(ctx context.Context, campaignID string) (encounter.CampaignView, error)
	AddNPCParticipant(ctx context.Context, encounterID, npcID string, initiative *int, hidden bool) (*combat.Encounter, error)
	SubmitInitiative(ctx context.Context, req encounter.InitiativeRequest) (*combat.Encounter, error)
	SetParticipantHP(ctx context.Context, req encounter.HPRequest) (*combat.Encounter, error)
	AdvanceTurn(ctx context.Context, encounterID string) (*combat.Encounter, error)
	EndTurn(ctx context.Context, encounterID string) (*combat.Encounter, error)
	AttackAction(ctx context.Context, req encounter.AttackRequest) (*combat.Encounter, error)
	SpellAction(ctx context.Context, req encounter.SpellRequest) (*combat.Encounter, error)
	ItemAction(ctx context.Context, req encounter.ItemRequest) (*combat.Encounter, error)
	OtherAction(ctx context.Context, req encounter.OtherRequest) (*combat.Encounter, error)
	EndEncounter(ctx context.Context, encounterID string) (combat.Summary, error)
	DeleteEncounter(ctx context.Context, encounterID string) error
	GetReplay(ctx context.Context, encounterID string) (*archive.Archive, error)
}

// EncounterAPI is the RPC surface registered with ServiceDesc.
type EncounterAPI interface {
	StartEncounter(context.Context, *StartEncounterRequest) (*EncounterResponse, error)
	GetEncounter(context.Context, *EncounterRequest) (*EncounterResponse, error)
	GetActiveEncounter(context.Context, *CampaignRequest) (*CampaignResponse, error)
	AddNpcParticipant(context.Context, *AddNPCRequest) (*EncounterResponse, error)
	SubmitInitiative(context.Context, *SubmitInitiativeRequest) (*EncounterResponse, error)
	SetParticipantHp(context.Context, *SetHPRequest) (*EncounterResponse, error)
	AdvanceTurn(context.Context, *EncounterRequest) (*EncounterResponse, error)
	EndTurn(context.Context, *EncounterRequest) (*EncounterResponse, error)
	AttackAction(context.Context, *AttackRequest) (*EncounterResponse, error)
	SpellAction(context.Context, *SpellRequest) (*EncounterResponse, error)
	ItemAction(context.Context, *ItemRequest) (*EncounterResponse, error)
	OtherAction(context.Context, *OtherRequest) (*EncounterResponse, error)
	EndEncounter(context.Context, *EncounterRequest) (*SummaryResponse, error)
	DeleteEncounter(context.Context, *EncounterRequest) (*DeleteResponse, error)
	GetReplay(context.Context, *ReplayRequest) (*ReplayResponse, error)
}

// EncounterServer adapts Encounters to EncounterAPI.
type EncounterServer struct {
	encounters Encounters
	logger     *zap.Logger
}

var _ EncounterAPI = (*EncounterServer)(nil)

// NewEncounterServer creates the RPC handler set.
func NewEncounterServer(encounters Encounters, logger *zap.Logger) *EncounterServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EncounterServer{encounters: encounters, logger: logger}
}

// Register attaches the encounter service to a gRPC server.
func Register(r grpc.ServiceRegistrar, srv EncounterAPI) {
	r.RegisterService(&ServiceDesc, srv)
}

// ==================== Lifecycle ====================

// StartEncounter opens an encounter for a campaign.
func (s *EncounterServer) StartEncounter(ctx context.Context, req *StartEncounterRequest) (*EncounterResponse, error) {
	enc, err := s.encounters.StartEncounter(ctx, req.CampaignID, req.OwnerID)
	return encounterResponse(enc, err)
}

// GetEncounter returns one encounter.
func (s *EncounterServer) GetEncounter(ctx context.Context, req *EncounterRequest) (*EncounterResponse, error) {
	enc, err := s.encounters.GetEncounter(ctx, req.EncounterID)
	return encounterResponse(enc, err)
}

// GetActiveEncounter returns a campaign's running encounter or its last summary.
func (s *EncounterServer) GetActiveEncounter(ctx context.Context, req *CampaignRequest) (*CampaignResponse, error) {
	view, err := s.encounters.GetActiveEncounter(ctx, req.CampaignID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &CampaignResponse{Encounter: view.Encounter, Summary: view.Summary}, nil
}

// EndEncounter completes an encounter and returns its summary.
func (s *EncounterServer) EndEncounter(ctx context.Context, req *EncounterRequest) (*SummaryResponse, error) {
	summary, err := s.encounters.EndEncounter(ctx, req.EncounterID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &SummaryResponse{Summary: summary}, nil
}

// DeleteEncounter removes an encounter.
func (s *EncounterServer) DeleteEncounter(ctx context.Context, req *EncounterRequest) (*DeleteResponse, error) {
	if err := s.encounters.DeleteEncounter(ctx, req.EncounterID); err != nil {
		return nil, toStatus(err)
	}
	return &DeleteResponse{EncounterID: req.EncounterID, Deleted: true}, nil
}

// GetReplay returns the archived log of a finished encounter.
func (s *EncounterServer) GetReplay(ctx context.Context, req *ReplayRequest) (*ReplayResponse, error) {
	a, err := s.encounters.GetReplay(ctx, req.EncounterID)
	if err != nil {
		return nil, toStatus(err)
	}
	entries := a.Log()
	if req.Round > 0 {
		entries = a.Round(req.Round)
	}
	return &ReplayResponse{
		EncounterID: a.EncounterID,
		CampaignID:  a.CampaignID,
		Rounds:      a.Rounds,
		EndedAt:     a.EndedAt,
		Entries:     entries,
		Summary:     a.Summary,
	}, nil
}

// ==================== Participants & Turns ====================

// AddNpcParticipant adds a roster NPC to the initiative order.
func (s *EncounterServer) AddNpcParticipant(ctx context.Context, req *AddNPCRequest) (*EncounterResponse, error) {
	enc, err := s.encounters.AddNPCParticipant(ctx, req.EncounterID, req.NPCID, req.Initiative, req.Hidden)
	return encounterResponse(enc, err)
}

// SubmitInitiative records a player's initiative roll.
func (s *EncounterServer) SubmitInitiative(ctx context.Context, req *SubmitInitiativeRequest) (*EncounterResponse, error) {
	enc, err := s.encounters.SubmitInitiative(ctx, encounter.InitiativeRequest{
		EncounterID: req.EncounterID,
		PlayerID:    req.PlayerID,
		Roll:        req.Roll,
		Modifier:    req.Modifier,
		Total:       req.Total,
	})
	return encounterResponse(enc, err)
}

// SetParticipantHp overwrites a participant's hit points.
func (s *EncounterServer) SetParticipantHp(ctx context.Context, req *SetHPRequest) (*EncounterResponse, error) {
	if req.HP == nil {
		return nil, toStatus(apperr.Validation("hp is required"))
	}
	ref, err := req.Participant.toRef("participant")
	if err != nil {
		return nil, toStatus(err)
	}
	enc, err := s.encounters.SetParticipantHP(ctx, encounter.HPRequest{
		EncounterID:    req.EncounterID,
		Participant:    ref,
		HP:             *req.HP,
		Defeated:       req.Defeated,
		DeathFailures:  req.DeathSaveFailures,
		DeathSuccesses: req.DeathSaveSuccesses,
	})
	return encounterResponse(enc, err)
}

// AdvanceTurn moves the turn pointer.
func (s *EncounterServer) AdvanceTurn(ctx context.Context, req *EncounterRequest) (*EncounterResponse, error) {
	enc, err := s.encounters.AdvanceTurn(ctx, req.EncounterID)
	return encounterResponse(enc, err)
}

// EndTurn ends the current participant's turn.
func (s *EncounterServer) EndTurn(ctx context.Context, req *EncounterRequest) (*EncounterResponse, error) {
	enc, err := s.encounters.EndTurn(ctx, req.EncounterID)
	return encounterResponse(enc, err)
}

// ==================== Actions ====================

// AttackAction resolves an attack roll.
func (s *EncounterServer) AttackAction(ctx context.Context, req *AttackRequest) (*EncounterResponse, error) {
	actor, err := req.Actor.toRef("actor")
	if err != nil {
		return nil, toStatus(err)
	}
	target, err := req.Target.toRef("target")
	if err != nil {
		return nil, toStatus(err)
	}
	enc, err := s.encounters.AttackAction(ctx, encounter.AttackRequest{
		EncounterID: req.EncounterID,
		Actor:       actor,
		Target:      target,
		AttackRoll:  req.AttackRoll,
		AttackBonus: req.AttackBonus,
		Damage:      req.Damage,
		DamageType:  req.DamageType,
		WeaponName:  req.WeaponName,
		RageBonus:   req.RageBonus,
		Crit:        req.IsCrit,
		ActionType:  combat.ParseActionType(req.ActionType),
	})
	return encounterResponse(enc, err)
}

// SpellAction applies a spell to its targets.
func (s *EncounterServer) SpellAction(ctx context.Context, req *SpellRequest) (*EncounterResponse, error) {
	actor, err := req.Actor.toRef("actor")
	if err != nil {
		return nil, toStatus(err)
	}
	targets := make([]combat.Ref, 0, len(req.Targets))
	for _, t := range req.Targets {
		ref, err := t.toRef("target")
		if err != nil {
			return nil, toStatus(err)
		}
		targets = append(targets, ref)
	}
	enc, err := s.encounters.SpellAction(ctx, encounter.SpellRequest{
		EncounterID: req.EncounterID,
		Actor:       actor,
		Targets:     targets,
		SpellName:   req.SpellName,
		SpellLevel:  req.SpellLevel,
		Damage:      req.Damage,
		Healing:     req.Healing,
		DamageType:  req.DamageType,
		SaveDC:      req.SaveDC,
		SaveType:    req.SaveType,
		ActionType:  combat.ParseActionType(req.ActionType),
	})
	return encounterResponse(enc, err)
}

// ItemAction applies a consumable.
func (s *EncounterServer) ItemAction(ctx context.Context, req *ItemRequest) (*EncounterResponse, error) {
	actor, err := req.Actor.toRef("actor")
	if err != nil {
		return nil, toStatus(err)
	}
	in := encounter.ItemRequest{
		EncounterID:       req.EncounterID,
		Actor:             actor,
		ItemName:          req.ItemName,
		ItemType:          req.ItemType,
		Effect:            combat.ItemEffect(req.ItemEffect),
		EffectDescription: req.EffectDescription,
		EffectDice:        req.EffectDice,
		EffectDamageType:  req.EffectDamageType,
		HealAmount:        req.HealAmount,
		HealBreakdown:     req.HealBreakdown,
		DamageAmount:      req.DamageAmount,
		ActionType:        combat.ParseActionType(req.ActionType),
	}
	if req.Target != nil && req.Target.ID != "" {
		target, err := req.Target.toRef("target")
		if err != nil {
			return nil, toStatus(err)
		}
		in.Target = &target
	}
	enc, err := s.encounters.ItemAction(ctx, in)
	return encounterResponse(enc, err)
}

// OtherAction logs a non-mechanical action.
func (s *EncounterServer) OtherAction(ctx context.Context, req *OtherRequest) (*EncounterResponse, error) {
	actor, err := req.Actor.toRef("actor")
	if err != nil {
		return nil, toStatus(err)
	}
	enc, err := s.encounters.OtherAction(ctx, encounter.OtherRequest{
		EncounterID: req.EncounterID,
		Actor:       actor,
		ActionName:  req.ActionName,
		Description: req.Description,
		ActionType:  combat.ParseActionType(req.ActionType),
	})
	return encounterResponse(enc, err)
}

// ==================== Helpers ====================

func encounterResponse(enc *combat.Encounter, err error) (*EncounterResponse, error) {
	if err != nil {
		return nil, toStatus(err)
	}
	return &EncounterResponse{Encounter: enc}, nil
}

// toStatus converts service errors into gRPC status errors.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return status.FromContextError(err).Err()
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr.GRPCStatus().Err()
	}
	if st, ok := status.FromError(err); ok {
		return st.Err()
	}
	return status.Error(codes.Internal, err.Error())
}

func peerHost(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		addr := p.Addr.String()
		if host, _, err := net.SplitHostPort(addr); err == nil {
			return host
		}
		if strings.TrimSpace(addr) != "" {
			return addr
		}
	}
	return "unknown"
}
