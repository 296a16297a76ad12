package server

import (
	"context"

	"google.golang.org/grpc"
)

// Client calls the encounter service over a gRPC connection using the JSON
// codec.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps a client connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Resp any](ctx context.Context, c *Client, method string, req any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, FullMethod(method), req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) StartEncounter(ctx context.Context, req *StartEncounterRequest, opts ...grpc.CallOption) (*EncounterResponse, error) {
	return invoke[EncounterResponse](ctx, c, "StartEncounter", req, opts)
}

func (c *Client) GetEncounter(ctx context.Context, req *EncounterRequest, opts ...grpc.CallOption) (*EncounterResponse, error) {
	return invoke[EncounterResponse](ctx, c, "GetEncounter", req, opts)
}

func (c *Client) GetActiveEncounter(ctx context.Context, req *CampaignRequest, opts ...grpc.CallOption) (*CampaignResponse, error) {
	return invoke[CampaignResponse](ctx, c, "GetActiveEncounter", req, opts)
}

func (c *Client) AddNpcParticipant(ctx context.Context, req *AddNPCRequest, opts ...grpc.CallOption) (*EncounterResponse, error) {
	return invoke[EncounterResponse](ctx, c, "AddNpcParticipant", req, opts)
}

func (c *Client) SubmitInitiative(ctx context.Context, req *SubmitInitiativeRequest, opts ...grpc.CallOption) (*EncounterResponse, error) {
	return invoke[EncounterResponse](ctx, c, "SubmitInitiative", req, opts)
}

func (c *Client) SetParticipantHp(ctx context.Context, req *SetHPRequest, opts ...grpc.CallOption) (*EncounterResponse, error) {
	return invoke[EncounterResponse](ctx, c, "SetParticipantHp", req, opts)
}

func (c *Client) AdvanceTurn(ctx context.Context, req *EncounterRequest, opts ...grpc.CallOption) (*EncounterResponse, error) {
	return invoke[EncounterResponse](ctx, c, "AdvanceTurn", req, opts)
}

func (c *Client) EndTurn(ctx context.Context, req *EncounterRequest, opts ...grpc.CallOption) (*EncounterResponse, error) {
	return invoke[EncounterResponse](ctx, c, "EndTurn", req, opts)
}

func (c *Client) AttackAction(ctx context.Context, req *AttackRequest, opts ...grpc.CallOption) (*EncounterResponse, error) {
	return invoke[EncounterResponse](ctx, c, "AttackAction", req, opts)
}

func (c *Client) SpellAction(ctx context.Context, req *SpellRequest, opts ...grpc.CallOption) (*EncounterResponse, error) {
	return invoke[EncounterResponse](ctx, c, "SpellAction", req, opts)
}

func (c *Client) ItemAction(ctx context.Context, req *ItemRequest, opts ...grpc.CallOption) (*EncounterResponse, error) {
	return invoke[EncounterResponse](ctx, c, "ItemAction", req, opts)
}

func (c *Client) OtherAction(ctx context.Context, req *OtherRequest, opts ...grpc.CallOption) (*EncounterResponse, error) {
	return invoke[EncounterResponse](ctx, c, "OtherAction", req, opts)
}

func (c *Client) EndEncounter(ctx context.Context, req *EncounterRequest, opts ...grpc.CallOption) (*SummaryResponse, error) {
	return invoke[SummaryResponse](ctx, c, "EndEncounter", req, opts)
}

func (c *Client) DeleteEncounter(ctx context.Context, req *EncounterRequest, opts ...grpc.CallOption) (*DeleteResponse, error) {
	return invoke[DeleteResponse](ctx, c, "DeleteEncounter", req, opts)
}

func (c *Client) GetReplay(ctx context.Context, req *ReplayRequest, opts ...grpc.CallOption) (*ReplayResponse, error) {
	return invoke[ReplayResponse](ctx, c, "GetReplay", req, opts)
}
