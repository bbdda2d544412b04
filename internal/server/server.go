// Package server exposes the rewriter as a gRPC service.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/google/uuid"
	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/funvibe/expect/internal/diagnostics"
	"github.com/funvibe/expect/internal/lexer"
	"github.com/funvibe/expect/internal/pipeline"
	"github.com/funvibe/expect/internal/prettyprinter"
	"github.com/funvibe/expect/internal/rewrite"
)

// RewriteRequest is the decoded form of expect.v1.RewriteRequest.
type RewriteRequest struct {
	Source         string
	Filename       string
	Strict         bool
	SharedTempName bool
}

// RewriteResponse is the decoded form of expect.v1.RewriteResponse. Rewrite
// failures are reported in-band through ErrorKind and ErrorMessage.
type RewriteResponse struct {
	Source       string
	Changed      bool
	Sites        int
	ErrorKind    string
	ErrorMessage string
	ErrorRow     int
	ErrorCol     int
	RequestID    string
}

// Server serves expect.v1.Rewriter.
type Server struct {
	grpc    *grpc.Server
	service *desc.ServiceDescriptor
	health  *health.Server
	opts    []rewrite.Option
	verbose bool
	log     io.Writer
}

// Option configures a Server.
type Option func(*Server)

// WithRewriteOptions sets the options every request starts from. Request
// flags are applied on top.
func WithRewriteOptions(opts ...rewrite.Option) Option {
	return func(s *Server) { s.opts = append(s.opts, opts...) }
}

// WithVerbose logs one line per request.
func WithVerbose(v bool) Option {
	return func(s *Server) { s.verbose = v }
}

// WithLog sets where verbose output goes. Defaults to stderr.
func WithLog(w io.Writer) Option {
	return func(s *Server) { s.log = w }
}

func New(opts ...Option) (*Server, error) {
	sd, err := loadService()
	if err != nil {
		return nil, err
	}
	s := &Server{
		grpc:    grpc.NewServer(),
		service: sd,
		health:  health.NewServer(),
		log:     os.Stderr,
	}
	for _, opt := range opts {
		opt(s)
	}

	serviceDesc := &grpc.ServiceDesc{
		ServiceName: sd.GetFullyQualifiedName(),
		HandlerType: (*interface{})(nil),
		Metadata:    sd.GetFile().GetName(),
	}
	for _, md := range sd.GetMethods() {
		switch md.GetName() {
		case "Rewrite":
			serviceDesc.Methods = append(serviceDesc.Methods, s.unary(md, s.handleRewrite))
		case "Tokenize":
			serviceDesc.Methods = append(serviceDesc.Methods, s.unary(md, s.handleTokenize))
		default:
			return nil, fmt.Errorf("no handler for %s", md.GetFullyQualifiedName())
		}
	}
	s.grpc.RegisterService(serviceDesc, s)

	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return s, nil
}

// Descriptor returns the service definition.
func (s *Server) Descriptor() *desc.ServiceDescriptor {
	return s.service
}

// Serve accepts connections on lis until ctx is done, then stops
// gracefully.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-ctx.Done():
			s.health.Shutdown()
			s.grpc.GracefulStop()
		case <-stopped:
		}
	}()

	s.logf("listening on %s", lis.Addr())
	if err := s.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// Stop stops the server immediately.
func (s *Server) Stop() {
	s.grpc.Stop()
}

type handlerFunc func(ctx context.Context, in *dynamic.Message) (*dynamic.Message, error)

func (s *Server) unary(md *desc.MethodDescriptor, fn handlerFunc) grpc.MethodDesc {
	fullMethod := "/" + s.service.GetFullyQualifiedName() + "/" + md.GetName()
	return grpc.MethodDesc{
		MethodName: md.GetName(),
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := dynamic.NewMessage(md.GetInputType())
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return fn(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
				return fn(ctx, req.(*dynamic.Message))
			})
		},
	}
}

func (s *Server) handleRewrite(ctx context.Context, in *dynamic.Message) (*dynamic.Message, error) {
	resp := s.Rewrite(ctx, RewriteRequest{
		Source:         stringField(in, "source"),
		Filename:       stringField(in, "filename"),
		Strict:         boolField(in, "strict"),
		SharedTempName: boolField(in, "shared_temp_name"),
	})

	out := dynamic.NewMessage(s.service.FindMethodByName("Rewrite").GetOutputType())
	fields := []struct {
		name string
		v    interface{}
	}{
		{"source", resp.Source},
		{"changed", resp.Changed},
		{"sites", resp.Sites},
		{"error_kind", resp.ErrorKind},
		{"error_message", resp.ErrorMessage},
		{"error_row", resp.ErrorRow},
		{"error_col", resp.ErrorCol},
		{"request_id", resp.RequestID},
	}
	for _, f := range fields {
		if err := setField(out, f.name, f.v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Rewrite runs one request through the lexer, the engine and the printer.
func (s *Server) Rewrite(ctx context.Context, req RewriteRequest) RewriteResponse {
	resp := RewriteResponse{RequestID: uuid.NewString()}

	opts := append([]rewrite.Option{}, s.opts...)
	if req.Strict {
		opts = append(opts, rewrite.WithPolicy(rewrite.PolicyStrict))
	}
	if req.SharedTempName {
		opts = append(opts, rewrite.WithSharedTempName())
	}

	pctx := pipeline.NewPipelineContext(req.Source)
	pctx.FilePath = req.Filename
	pctx = pipeline.New(
		&lexer.LexerProcessor{},
		rewrite.NewProcessor(opts...),
		&prettyprinter.PrinterProcessor{},
	).Run(pctx)

	if pctx.HasErrors() {
		d := pctx.Errors[0]
		resp.ErrorKind = errorKind(d)
		resp.ErrorMessage = d.Message
		resp.ErrorRow, resp.ErrorCol = d.Row, d.Col
		s.logf("rewrite %s id=%s: %s", req.Filename, resp.RequestID, d)
		return resp
	}

	resp.Source = pctx.Output
	resp.Changed = pctx.Changed()
	resp.Sites = pctx.Sites
	s.logf("rewrite %s id=%s: %d site(s)", req.Filename, resp.RequestID, resp.Sites)
	return resp
}

func (s *Server) handleTokenize(ctx context.Context, in *dynamic.Message) (*dynamic.Message, error) {
	md := s.service.FindMethodByName("Tokenize")
	out := dynamic.NewMessage(md.GetOutputType())
	id := uuid.NewString()
	if err := setField(out, "request_id", id); err != nil {
		return nil, err
	}

	tokens, err := lexer.Tokenize(stringField(in, "source"))
	if err != nil {
		s.logf("tokenize id=%s: %v", id, err)
		return out, setField(out, "error_message", err.Error())
	}

	tokenType := md.GetOutputType().FindFieldByName("tokens").GetMessageType()
	for _, tok := range tokens {
		m := dynamic.NewMessage(tokenType)
		for name, v := range map[string]interface{}{
			"kind":      tok.Kind.String(),
			"text":      tok.Text,
			"start_row": tok.Start.Row,
			"start_col": tok.Start.Col,
			"end_row":   tok.End.Row,
			"end_col":   tok.End.Col,
		} {
			if err := setField(m, name, v); err != nil {
				return nil, err
			}
		}
		if err := out.TryAddRepeatedFieldByName("tokens", m); err != nil {
			return nil, err
		}
	}
	s.logf("tokenize id=%s: %d token(s)", id, len(tokens))
	return out, nil
}

// errorKind names the failure class of a diagnostic for the wire.
func errorKind(d *diagnostics.DiagnosticError) string {
	var re *rewrite.Error
	if errors.As(d, &re) {
		return re.Kind.String()
	}
	var le *lexer.Error
	if errors.As(d, &le) {
		return "TokenizeError"
	}
	return string(d.Code)
}

func (s *Server) logf(format string, args ...interface{}) {
	if s.verbose {
		fmt.Fprintf(s.log, "[expect] "+format+"\n", args...)
	}
}
