package proto

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"TreeDetServer/classes"
	iface "TreeDetServer/interface"
	"TreeDetServer/pipeline"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type MockBackend struct {
	dets []iface.Detection
	err  error
}

func (m *MockBackend) Detect(context.Context, gocv.Mat) ([]iface.Detection, error) {
	return m.dets, m.err
}

func (m *MockBackend) CheckConfig() iface.EngineConfig {
	return iface.EngineConfig{Backend: "mock", State: iface.IDLE}
}

func (m *MockBackend) Destroy() error { return nil }

func startBufServer(t *testing.T, backend iface.Backend) (*Server, *Client) {
	t.Helper()
	pool := pipeline.NewPool(pipeline.New(backend, nil), 1)
	srv := NewServer(pool)

	lis := bufconn.Listen(1 << 20)
	gs := NewGRPCServer(srv)
	go func() { _ = gs.Serve(lis) }()

	client, err := Dial("passthrough:///bufnet", grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close()
		gs.Stop()
		pool.Close()
	})
	return srv, client
}

func jpegImage(t *testing.T) []byte {
	t.Helper()
	img := gocv.NewMatWithSize(224, 224, gocv.MatTypeCV8UC3)
	defer img.Close()
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, img)
	require.NoError(t, err)
	defer buf.Close()
	return append([]byte(nil), buf.GetBytes()...)
}

func TestAnnotate(t *testing.T) {
	_, client := startBufServer(t, &MockBackend{dets: []iface.Detection{
		{Box: iface.NewBox(10, 10, 60, 60), Class: int(classes.Yellow), Conf: 0.75},
		{Box: iface.NewBox(100, 100, 150, 160), Class: int(classes.Small), Conf: 0.5},
		{Box: iface.NewBox(20, 120, 70, 170), Class: int(classes.Small), Conf: 0.5},
	}})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	out, err := client.Annotate(ctx, jpegImage(t))
	require.NoError(t, err)

	assert.NotEmpty(t, out.ID)
	assert.Equal(t, 224, out.Width)
	assert.Equal(t, 224, out.Height)
	assert.Equal(t, 3, out.Total)
	assert.Equal(t, 2, out.Counts[classes.Small].Count)
	assert.Equal(t, 1, out.Counts[classes.Yellow].Count)
	require.Len(t, out.Detections, 3)
	assert.Equal(t, pipeline.Detection{Label: "Yellow", Box: [4]float32{10, 10, 60, 60}, Confidence: 0.75}, out.Detections[0])
	assert.True(t, bytes.HasPrefix(out.Image, []byte("\x89PNG")))
}

func TestAnnotateErrors(t *testing.T) {
	tests := []struct {
		name    string
		backend *MockBackend
		image   []byte
		code    codes.Code
	}{
		{"empty", &MockBackend{}, nil, codes.InvalidArgument},
		{"garbage", &MockBackend{}, []byte("garbage"), codes.InvalidArgument},
		{"detector down", &MockBackend{err: errors.New("timeout")}, nil, codes.Unavailable},
		{"unknown class", &MockBackend{dets: []iface.Detection{{Class: -1}}}, nil, codes.FailedPrecondition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, client := startBufServer(t, tt.backend)
			image := tt.image
			if image == nil && tt.code != codes.InvalidArgument {
				image = jpegImage(t)
			}
			_, err := client.Annotate(context.Background(), image)
			assert.Equal(t, tt.code, status.Code(err), err)
		})
	}
}

func TestListClasses(t *testing.T) {
	_, client := startBufServer(t, &MockBackend{})
	res, err := client.ListClasses(context.Background())
	require.NoError(t, err)

	assert.Equal(t, classes.Tag(), res.Fields["tag"].GetStringValue())
	list := res.Fields["classes"].GetListValue().GetValues()
	require.Len(t, list, classes.Count)
	first := list[0].GetStructValue().AsMap()
	assert.Equal(t, "Dead", first["name"])
	assert.Equal(t, "#ff0000", first["color"])
	assert.Equal(t, float64(0), first["index"])
}

func TestShutdown(t *testing.T) {
	srv, client := startBufServer(t, &MockBackend{})
	require.NoError(t, client.Shutdown(context.Background()))
	require.NoError(t, client.Shutdown(context.Background()))

	select {
	case <-srv.Done():
	case <-time.After(time.Second):
		t.Fatal("Done was not closed")
	}
}
