package device

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/LeonardoBeccarini/pump_simulator/internal/model/messages"
	pumpsim "github.com/LeonardoBeccarini/pump_simulator/internal/pump-simulator"
)

func newTestClient(t *testing.T, engine *pumpsim.Engine) *Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	h := NewGrpcHandler(engine, nil)
	h.SetWatchInterval(10 * time.Millisecond)
	RegisterPumpServiceServer(srv, h)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewClient(conn)
}

func f64(v float64) *float64 { return &v }

func TestGrpc_ExecuteAndGetState(t *testing.T) {
	engine := pumpsim.NewEngine(pumpsim.Config{})
	c := newTestClient(t, engine)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	snap, err := c.Execute(ctx, messages.PumpCommand{Cmd: messages.CmdFlow, LitersPerHour: f64(12), Reverse: true})
	require.NoError(t, err)
	assert.True(t, snap.Running)
	assert.InDelta(t, -12, snap.TargetFlowLph, 1e-6)

	snap, err = c.GetState(ctx, messages.MotorID{})
	require.NoError(t, err)
	assert.Equal(t, "reverse", snap.Direction)
	assert.Equal(t, pumpsim.FirmwareVersion, snap.Firmware)
}

func TestGrpc_ErrorCodes(t *testing.T) {
	c := newTestClient(t, pumpsim.NewEngine(pumpsim.Config{}))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := c.Execute(ctx, messages.PumpCommand{Cmd: messages.CmdFlow})
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Equal(t, "litersPerHour is required", status.Convert(err).Message())

	_, err = c.GetState(ctx, messages.Motor(3))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Equal(t, "invalid motorId", status.Convert(err).Message())

	_, err = c.Execute(ctx, messages.PumpCommand{Cmd: "reboot"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGrpc_WatchState(t *testing.T) {
	engine := pumpsim.NewEngine(pumpsim.Config{})
	c := newTestClient(t, engine)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	recv, err := c.Watch(ctx, messages.MotorID{})
	require.NoError(t, err)

	first, err := recv()
	require.NoError(t, err)
	assert.False(t, first.Running)

	_, err = engine.StartMotor(messages.MotorID{})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		snap, err := recv()
		return err == nil && snap.Running
	}, 3*time.Second, time.Millisecond)
}
