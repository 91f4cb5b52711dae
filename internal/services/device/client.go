package device

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/LeonardoBeccarini/pump_simulator/internal/model/messages"
)

// Client is a typed wrapper over a PumpService connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) GetState(ctx context.Context, motor messages.MotorID) (messages.Snapshot, error) {
	in, err := toStruct(map[string]any{"motorId": motor})
	if err != nil {
		return messages.Snapshot{}, err
	}
	return c.call(ctx, methodGetState, in)
}

func (c *Client) Execute(ctx context.Context, cmd messages.PumpCommand) (messages.Snapshot, error) {
	in, err := toStruct(cmd)
	if err != nil {
		return messages.Snapshot{}, err
	}
	return c.call(ctx, methodExecute, in)
}

// Watch opens a WatchState stream; recv blocks for the next snapshot.
func (c *Client) Watch(ctx context.Context, motor messages.MotorID) (recv func() (messages.Snapshot, error), err error) {
	desc := &pumpServiceDesc.Streams[0]
	stream, err := c.cc.NewStream(ctx, desc, methodWatchState)
	if err != nil {
		return nil, err
	}
	in, err := toStruct(map[string]any{"motorId": motor})
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return func() (messages.Snapshot, error) {
		out := new(structpb.Struct)
		if err := stream.RecvMsg(out); err != nil {
			return messages.Snapshot{}, err
		}
		var snap messages.Snapshot
		err := fromStruct(out, &snap)
		return snap, err
	}, nil
}

func (c *Client) call(ctx context.Context, method string, in *structpb.Struct) (messages.Snapshot, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out); err != nil {
		return messages.Snapshot{}, err
	}
	var snap messages.Snapshot
	err := fromStruct(out, &snap)
	return snap, err
}
