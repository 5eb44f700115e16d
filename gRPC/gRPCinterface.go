package proto

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"TreeDetServer/classes"
	"TreeDetServer/logger"
	"TreeDetServer/pipeline"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type Server struct {
	pool      *pipeline.Pool
	closeOnce sync.Once
	closed    chan struct{}
}

func NewServer(pool *pipeline.Pool) *Server {
	return &Server{pool: pool, closed: make(chan struct{})}
}

// Done is closed once a Shutdown call has been received.
func (s *Server) Done() <-chan struct{} {
	return s.closed
}

// toStatus maps the error taxonomy onto gRPC codes.
func toStatus(err error) error {
	code := codes.Internal
	switch pipeline.Kind(err) {
	case "input":
		code = codes.InvalidArgument
	case "upstream":
		code = codes.Unavailable
	case "config":
		code = codes.FailedPrecondition
	case "canceled":
		code = codes.Canceled
	}
	return status.Error(code, err.Error())
}

func outputToStruct(out *pipeline.Output) (*structpb.Struct, error) {
	counts := make([]interface{}, 0, len(out.Counts))
	for _, e := range out.Counts {
		counts = append(counts, map[string]interface{}{"label": e.Label, "count": e.Count})
	}
	dets := make([]interface{}, 0, len(out.Detections))
	for _, d := range out.Detections {
		dets = append(dets, map[string]interface{}{
			"label":      d.Label,
			"box":        []interface{}{d.Box[0], d.Box[1], d.Box[2], d.Box[3]},
			"confidence": d.Confidence,
		})
	}
	return structpb.NewStruct(map[string]interface{}{
		"id":         out.ID,
		"width":      out.Width,
		"height":     out.Height,
		"total":      out.Total,
		"counts":     counts,
		"detections": dets,
		"image":      out.Image,
	})
}

func (s *Server) Annotate(ctx context.Context, req *wrapperspb.BytesValue) (*structpb.Struct, error) {
	out, err := s.pool.Submit(ctx, "grpc", req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	res, err := outputToStruct(out)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return res, nil
}

func (s *Server) ListClasses(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error) {
	infos := make([]interface{}, 0, classes.Count)
	for _, l := range classes.All() {
		infos = append(infos, map[string]interface{}{
			"index": int(l),
			"name":  l.String(),
			"color": l.Hex(),
		})
	}
	res, err := structpb.NewStruct(map[string]interface{}{
		"tag":     classes.Tag(),
		"classes": infos,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return res, nil
}

func (s *Server) Shutdown(ctx context.Context, req *emptypb.Empty) (*emptypb.Empty, error) {
	logger.Log().Warn("shutdown requested over gRPC")
	s.closeOnce.Do(func() { close(s.closed) })
	return &emptypb.Empty{}, nil
}

func loggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	logger.Named(logger.GRPC).Info("call",
		zap.String("method", info.FullMethod),
		zap.String("code", status.Code(err).String()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return resp, err
}

func NewGRPCServer(srv AnnotatorServer) *grpc.Server {
	s := grpc.NewServer(
		grpc.UnaryInterceptor(loggingInterceptor),
		grpc.MaxRecvMsgSize(32*1024*1024),
		grpc.MaxSendMsgSize(64*1024*1024),
	)
	RegisterAnnotatorServer(s, srv)
	return s
}

// StartGRPCServer listens on port and serves srv in the background.
func StartGRPCServer(port int, srv AnnotatorServer) (*grpc.Server, error) {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, errors.Wrapf(err, "listen on port %d", port)
	}
	s := NewGRPCServer(srv)
	go func() {
		logger.Log().Info("gRPC server listening", zap.Int("port", port))
		if err := s.Serve(lis); err != nil {
			logger.Log().Error("gRPC server stopped", zap.Error(err))
		}
	}()
	return s, nil
}
