package labd

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

	"github.com/GoSim-25-26J-441/wireless-lab/pkg/models"
	"github.com/GoSim-25-26J-441/wireless-lab/pkg/utils"
)

func newTestClient(t *testing.T, svc *Services) *Client {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	NewGRPCServer(svc).Register(srv)
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewClient(conn)
}

func TestGRPCSimulate(t *testing.T) {
	svc := newTestServices(t)
	client := newTestClient(t, svc)
	ctx := context.Background()

	out, err := client.Simulate(ctx, models.Configuration{
		NetworkType: models.Network5G,
		Devices:     120,
		Environment: models.EnvironmentRural,
		Traffic:     models.TrafficVideo,
	})
	require.NoError(t, err)

	fields := out.GetFields()
	assert.Equal(t, "5G NR", fields["network_type"].GetStringValue())
	assert.Equal(t, 120.0, fields["devices"].GetNumberValue())
	assert.Equal(t, 203.65, fields["throughput_mbps"].GetNumberValue())
	assert.Equal(t, 30.24, fields["latency_ms"].GetNumberValue())
	assert.Equal(t, 4.0, fields["coverage_km"].GetNumberValue())
	assert.Contains(t, fields["report"].GetStringValue(), "===== NextGen Wireless Network Report =====")
	assert.Contains(t, fields["summary"].GetStringValue(), "Coverage Radius: 4.0 km")
}

func TestGRPCSimulateDefaultsAndErrors(t *testing.T) {
	svc := newTestServices(t)
	client := newTestClient(t, svc)
	ctx := context.Background()

	out, err := client.Simulate(ctx, models.Configuration{})
	require.NoError(t, err)
	assert.Equal(t, "4G LTE", out.GetFields()["network_type"].GetStringValue())
	assert.Equal(t, 55.0, out.GetFields()["throughput_mbps"].GetNumberValue())

	_, err = client.Simulate(ctx, models.Configuration{Devices: 201})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.Simulate(ctx, models.Configuration{NetworkType: "3G"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGRPCLookupQoS(t *testing.T) {
	svc := newTestServices(t)
	client := newTestClient(t, svc)
	ctx := context.Background()

	out, err := client.LookupQoS(ctx, "voice over ip (voip)")
	require.NoError(t, err)
	assert.Equal(t, "Conversational", out.GetFields()["class"].GetStringValue())
	assert.True(t, out.GetFields()["guaranteed"].GetBoolValue())
	assert.Equal(t, "Voice over IP (VoIP) -> QoS Class: Conversational | Delay: <150ms | Guaranteed Bitrate: Yes",
		out.GetFields()["line"].GetStringValue())

	_, err = client.LookupQoS(ctx, "Telegraph")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGRPCListProcedures(t *testing.T) {
	svc := newTestServices(t)
	client := newTestClient(t, svc)

	out, err := client.ListProcedures(context.Background())
	require.NoError(t, err)

	list := out.GetFields()["procedures"].GetListValue().GetValues()
	require.Len(t, list, 5)
	last := list[4].GetStructValue().GetFields()
	assert.Equal(t, "qos-mapper", last["id"].GetStringValue())
	assert.Equal(t, "lookup", last["kind"].GetStringValue())
}

func TestGRPCNarrate(t *testing.T) {
	svc := newTestServices(t)
	clock := &utils.InstantClock{Start: fixedNow}
	svc.Clock = func() utils.Clock { return clock }
	client := newTestClient(t, svc)

	var lines []string
	err := client.Narrate(context.Background(), "mobility-handoff", "", 300, func(index int, line string) error {
		assert.Equal(t, len(lines), index)
		lines = append(lines, line)
		return nil
	})
	require.NoError(t, err)

	proc, err := svc.Catalog.Get("mobility-handoff")
	require.NoError(t, err)
	assert.Equal(t, proc.Lines, lines)
	assert.Len(t, clock.Waits, len(proc.Lines)-1)
	for _, w := range clock.Waits {
		assert.Equal(t, 300*time.Millisecond, w)
	}
}

func TestGRPCNarrateErrors(t *testing.T) {
	svc := newTestServices(t)
	client := newTestClient(t, svc)
	ctx := context.Background()
	noop := func(int, string) error { return nil }

	tests := []struct {
		name      string
		procedure string
		app       string
		pauseMs   int64
		want      codes.Code
	}{
		{"missing procedure", "", "", -1, codes.InvalidArgument},
		{"unknown procedure", "teleport", "", -1, codes.NotFound},
		{"lookup without app", "qos-mapper", "", -1, codes.InvalidArgument},
		{"pause above max", "security", "", 60_000, codes.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.Narrate(ctx, tt.procedure, tt.app, tt.pauseMs, noop)
			assert.Equal(t, tt.want, status.Code(err))
		})
	}
}

func TestGRPCNarrateCancelled(t *testing.T) {
	svc := newTestServices(t)
	svc.Clock = func() utils.Clock { return blockingClock{} }
	client := newTestClient(t, svc)

	ctx, cancel := context.WithCancel(context.Background())
	var got int
	err := client.Narrate(ctx, "security", "", 1000, func(int, string) error {
		got++
		cancel()
		return nil
	})
	assert.Equal(t, codes.Canceled, status.Code(err))
	assert.Equal(t, 1, got)
}
