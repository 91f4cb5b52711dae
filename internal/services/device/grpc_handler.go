package device

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/LeonardoBeccarini/pump_simulator/internal/model"
	"github.com/LeonardoBeccarini/pump_simulator/internal/model/messages"
	pumpsim "github.com/LeonardoBeccarini/pump_simulator/internal/pump-simulator"
)

const defaultWatchInterval = time.Second

// GrpcHandler exposes the engine over gRPC. Commands share the
// messages.PumpCommand shape with the MQTT command topic.
type GrpcHandler struct {
	engine        *pumpsim.Engine
	watchInterval time.Duration
	log           *zap.Logger
}

func NewGrpcHandler(engine *pumpsim.Engine, logger *zap.Logger) *GrpcHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GrpcHandler{engine: engine, watchInterval: defaultWatchInterval, log: logger}
}

// SetWatchInterval sets the WatchState period; non-positive values are ignored.
func (h *GrpcHandler) SetWatchInterval(d time.Duration) {
	if d > 0 {
		h.watchInterval = d
	}
}

// ============== RPC: GetState ==============

func (h *GrpcHandler) GetState(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ref, err := motorFrom(req)
	if err != nil {
		return nil, err
	}
	snap, err := h.engine.State(ref)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(snap)
}

// ============== RPC: Execute ==============

func (h *GrpcHandler) Execute(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var cmd messages.PumpCommand
	if err := fromStruct(req, &cmd); err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid command")
	}
	snap, err := h.engine.Execute(cmd)
	if err != nil {
		h.log.Info("grpc command rejected", zap.String("cmd", cmd.Cmd), zap.Error(err))
		return nil, toStatus(err)
	}
	return toStruct(snap)
}

// ============== RPC: WatchState ==============

// WatchState streams a snapshot immediately and then once per interval
// until the client goes away.
func (h *GrpcHandler) WatchState(req *structpb.Struct, stream grpc.ServerStream) error {
	ref, err := motorFrom(req)
	if err != nil {
		return err
	}
	tick := time.NewTicker(h.watchInterval)
	defer tick.Stop()
	for {
		snap, err := h.engine.State(ref)
		if err != nil {
			return toStatus(err)
		}
		out, err := toStruct(snap)
		if err != nil {
			return err
		}
		if err := stream.SendMsg(out); err != nil {
			return err
		}
		select {
		case <-stream.Context().Done():
			return nil
		case <-tick.C:
		}
	}
}

// ============== Helpers ==============

func motorFrom(req *structpb.Struct) (messages.MotorID, error) {
	var in struct {
		MotorID messages.MotorID `json:"motorId"`
	}
	if err := fromStruct(req, &in); err != nil {
		return messages.MotorID{}, status.Error(codes.InvalidArgument, "invalid request")
	}
	return in.MotorID, nil
}

func fromStruct(s *structpb.Struct, dst any) error {
	if s == nil {
		return nil
	}
	raw, err := json.Marshal(s.AsMap())
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func toStatus(err error) error {
	switch {
	case model.IsValidation(err):
		return status.Error(codes.InvalidArgument, err.Error())
	case model.IsNotFound(err):
		return status.Error(codes.NotFound, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
