package proto

import (
	"context"
	"encoding/json"

	"TreeDetServer/pipeline"

	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type Client struct {
	cc   grpc.ClientConnInterface
	conn *grpc.ClientConn
}

// Dial connects to an Annotator server without transport security.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(64 * 1024 * 1024)),
	}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", addr)
	}
	return &Client{cc: conn, conn: conn}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) Annotate(ctx context.Context, image []byte) (*pipeline.Output, error) {
	res := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, annotateMethod, wrapperspb.Bytes(image), res); err != nil {
		return nil, err
	}
	raw, err := res.MarshalJSON()
	if err != nil {
		return nil, errors.Wrap(err, "marshal reply")
	}
	out := new(pipeline.Output)
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, errors.Wrap(err, "decode reply")
	}
	return out, nil
}

func (c *Client) ListClasses(ctx context.Context) (*structpb.Struct, error) {
	res := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, listClassesMethod, &emptypb.Empty{}, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) Shutdown(ctx context.Context) error {
	return c.cc.Invoke(ctx, shutdownMethod, &emptypb.Empty{}, new(emptypb.Empty))
}
