package agentapplication

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ERRORIK404/custom_calc/pkg/evaluator"
	locerr "github.com/ERRORIK404/custom_calc/pkg/local_errors"
)

const (
	ServiceName    = "customcalc.Evaluator"
	evaluateMethod = "/" + ServiceName + "/Evaluate"
)

// Агент вычисляет выражения по gRPC. Запрос {"expression": ...}, ответ {"result": ...}.
type EvaluatorServer interface {
	Evaluate(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EvaluatorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Evaluate", Handler: evaluateHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "evaluator.proto",
}

func evaluateHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EvaluatorServer).Evaluate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: evaluateMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(EvaluatorServer).Evaluate(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func Register(s *grpc.Server, srv EvaluatorServer) {
	s.RegisterService(&serviceDesc, srv)
}

type Server struct {
	evaluator evaluator.Evaluator
	log       *slog.Logger
}

func NewServer(ev evaluator.Evaluator, log *slog.Logger) *Server {
	return &Server{evaluator: ev, log: log}
}

func (s *Server) Evaluate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	expression := in.GetFields()["expression"].GetStringValue()
	result, err := s.evaluator.Evaluate(ctx, expression)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, status.FromContextError(err).Err()
		}
		s.log.Debug("evaluation failed", "expression", expression, "error", err)
		return nil, status.Errorf(codes.InvalidArgument, "evaluation failed: %v", err)
	}
	return structpb.NewStruct(map[string]interface{}{"result": result})
}

// Run поднимает gRPC сервер агента и останавливает его по отмене контекста
func Run(ctx context.Context, addr string, srv EvaluatorServer, log *slog.Logger) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	grpcServer := grpc.NewServer()
	Register(grpcServer, srv)

	go func() {
		<-ctx.Done()
		grpcServer.GracefulStop()
	}()
	log.Info("evaluation agent listening", "addr", addr)
	if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

// Client реализует evaluator.Evaluator поверх агента
type Client struct {
	conn *grpc.ClientConn
}

func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("did not connect: %w", err)
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Evaluate(ctx context.Context, expression string) (string, error) {
	in, err := structpb.NewStruct(map[string]interface{}{"expression": expression})
	if err != nil {
		return "", err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, evaluateMethod, in, out); err != nil {
		if status.Code(err) == codes.InvalidArgument {
			return "", fmt.Errorf("%w: %s", locerr.ErrEvaluation, status.Convert(err).Message())
		}
		return "", err
	}
	result, ok := out.GetFields()["result"]
	if !ok {
		return "", fmt.Errorf("%w: agent returned no result", locerr.ErrEvaluation)
	}
	return result.GetStringValue(), nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}
