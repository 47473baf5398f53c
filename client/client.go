// Package client calls the evaluation service over gRPC. Messages travel
// in the service's CBOR codec, so no generated stubs are involved.
package client

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/chazu/clvm/api"
)

// Client is a connection to an evaluation server.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to the server at addr ("host:port") over cleartext
// HTTP/2. Extra dial options are appended to the defaults.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(api.Codec{})),
	}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

// Run evaluates a program on the server. A failed evaluation is reported
// in the response's Error field, not as an error.
func (c *Client) Run(ctx context.Context, req *api.RunRequest) (*api.RunResponse, error) {
	resp := new(api.RunResponse)
	if err := c.conn.Invoke(ctx, api.RunProcedure, req, resp); err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}
	return resp, nil
}

// Assemble converts assembly text to a serialized program.
func (c *Client) Assemble(ctx context.Context, text string) (*api.AssembleResponse, error) {
	resp := new(api.AssembleResponse)
	if err := c.conn.Invoke(ctx, api.AssembleProcedure, &api.AssembleRequest{Text: text}, resp); err != nil {
		return nil, fmt.Errorf("assemble: %w", err)
	}
	return resp, nil
}

// Disassemble converts a serialized program to assembly text.
func (c *Client) Disassemble(ctx context.Context, program []byte) (string, error) {
	resp := new(api.DisassembleResponse)
	if err := c.conn.Invoke(ctx, api.DisassembleProcedure, &api.DisassembleRequest{Program: program}, resp); err != nil {
		return "", fmt.Errorf("disassemble: %w", err)
	}
	return resp.Text, nil
}

// Close releases the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
