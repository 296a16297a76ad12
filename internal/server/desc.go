package server

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceDesc describes the encounter service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EncounterAPI)(nil),
	Methods: []grpc.MethodDesc{
		unary("StartEncounter", EncounterAPI.StartEncounter),
		unary("GetEncounter", EncounterAPI.GetEncounter),
		unary("GetActiveEncounter", EncounterAPI.GetActiveEncounter),
		unary("AddNpcParticipant", EncounterAPI.AddNpcParticipant),
		unary("SubmitInitiative", EncounterAPI.SubmitInitiative),
		unary("SetParticipantHp", EncounterAPI.SetParticipantHp),
		unary("AdvanceTurn", EncounterAPI.AdvanceTurn),
		unary("EndTurn", EncounterAPI.EndTurn),
		unary("AttackAction", EncounterAPI.AttackAction),
		unary("SpellAction", EncounterAPI.SpellAction),
		unary("ItemAction", EncounterAPI.ItemAction),
		unary("OtherAction", EncounterAPI.OtherAction),
		unary("EndEncounter", EncounterAPI.EndEncounter),
		unary("DeleteEncounter", EncounterAPI.DeleteEncounter),
		unary("GetReplay", EncounterAPI.GetReplay),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "arcanetable/encounter/v1/encounter.json",
}

// FullMethod returns the wire path of a method, e.g. "/arcanetable.encounter.v1.EncounterService/EndTurn".
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// unary builds a method descriptor that decodes Req, runs the interceptor
// chain and dispatches to call.
func unary[Req, Resp any](name string, call func(EncounterAPI, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			api := srv.(EncounterAPI)
			if interceptor == nil {
				return call(api, ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: FullMethod(name),
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(api, ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
