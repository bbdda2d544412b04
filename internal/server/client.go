package server

import (
	"context"
	"fmt"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client calls a remote Rewriter.
type Client struct {
	conn    *grpc.ClientConn
	service *desc.ServiceDescriptor
}

// Dial connects to target without transport security.
func Dial(target string) (*Client, error) {
	sd, err := loadService()
	if err != nil {
		return nil, err
	}
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", target, err)
	}
	return &Client{conn: conn, service: sd}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Conn exposes the connection, e.g. for health checks.
func (c *Client) Conn() *grpc.ClientConn {
	return c.conn
}

func (c *Client) Rewrite(ctx context.Context, req RewriteRequest) (*RewriteResponse, error) {
	md := c.service.FindMethodByName("Rewrite")
	in := dynamic.NewMessage(md.GetInputType())
	for name, v := range map[string]interface{}{
		"source":           req.Source,
		"filename":         req.Filename,
		"strict":           req.Strict,
		"shared_temp_name": req.SharedTempName,
	} {
		if err := setField(in, name, v); err != nil {
			return nil, err
		}
	}

	out := dynamic.NewMessage(md.GetOutputType())
	if err := c.conn.Invoke(ctx, c.method(md), in, out); err != nil {
		return nil, fmt.Errorf("rpc Rewrite: %w", err)
	}
	return &RewriteResponse{
		Source:       stringField(out, "source"),
		Changed:      boolField(out, "changed"),
		Sites:        intField(out, "sites"),
		ErrorKind:    stringField(out, "error_kind"),
		ErrorMessage: stringField(out, "error_message"),
		ErrorRow:     intField(out, "error_row"),
		ErrorCol:     intField(out, "error_col"),
		RequestID:    stringField(out, "request_id"),
	}, nil
}

// RemoteToken is one entry of a Tokenize response.
type RemoteToken struct {
	Kind     string
	Text     string
	StartRow int
	StartCol int
	EndRow   int
	EndCol   int
}

func (c *Client) Tokenize(ctx context.Context, source string) ([]RemoteToken, error) {
	md := c.service.FindMethodByName("Tokenize")
	in := dynamic.NewMessage(md.GetInputType())
	if err := setField(in, "source", source); err != nil {
		return nil, err
	}
	out := dynamic.NewMessage(md.GetOutputType())
	if err := c.conn.Invoke(ctx, c.method(md), in, out); err != nil {
		return nil, fmt.Errorf("rpc Tokenize: %w", err)
	}
	if msg := stringField(out, "error_message"); msg != "" {
		return nil, fmt.Errorf("tokenize: %s", msg)
	}

	var tokens []RemoteToken
	for _, v := range out.GetFieldByName("tokens").([]interface{}) {
		m := v.(*dynamic.Message)
		tokens = append(tokens, RemoteToken{
			Kind:     stringField(m, "kind"),
			Text:     stringField(m, "text"),
			StartRow: intField(m, "start_row"),
			StartCol: intField(m, "start_col"),
			EndRow:   intField(m, "end_row"),
			EndCol:   intField(m, "end_col"),
		})
	}
	return tokens, nil
}

func (c *Client) method(md *desc.MethodDescriptor) string {
	return "/" + c.service.GetFullyQualifiedName() + "/" + md.GetName()
}
