package rpc

import (
	"context"
	"fmt"
	"net"
	"net/rpc/jsonrpc"
	"net/url"
	"strings"
	"time"

	"github.com/xiaot623/ensemble/internal/domain"
)

// Client calls a remote Ensemble RPC server. Each call dials a fresh connection.
type Client struct {
	addr        string
	dialTimeout time.Duration
	callTimeout time.Duration
}

// NewClient creates a client for addr, which may be host:port or a URL.
// A zero callTimeout leaves calls bounded only by their context.
func NewClient(addr string, callTimeout time.Duration) *Client {
	return &Client{
		addr:        resolveRPCAddr(addr),
		dialTimeout: 5 * time.Second,
		callTimeout: callTimeout,
	}
}

// Orchestrate runs one orchestration call on the remote server.
func (c *Client) Orchestrate(ctx context.Context, req domain.OrchestrateRequest) (*domain.OrchestrateResponse, error) {
	var resp domain.OrchestrateResponse
	if err := c.call(ctx, "Ensemble.Orchestrate", &req, &resp); err != nil {
		return nil, fmt.Errorf("orchestrate rpc: %w", err)
	}
	return &resp, nil
}

// GetSession fetches a session from the remote server.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	var resp domain.Session
	if err := c.call(ctx, "Ensemble.GetSession", &SessionArgs{SessionID: sessionID}, &resp); err != nil {
		return nil, fmt.Errorf("get session rpc: %w", err)
	}
	return &resp, nil
}

func (c *Client) call(ctx context.Context, method string, args, reply interface{}) error {
	if c.addr == "" {
		return fmt.Errorf("rpc address is not configured")
	}
	conn, err := net.DialTimeout("tcp", c.addr, c.dialTimeout)
	if err != nil {
		return err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else if c.callTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(c.callTimeout))
	}

	client := jsonrpc.NewClient(conn)
	call := client.Go(method, args, reply, nil)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-call.Done:
		return call.Error
	}
}

func resolveRPCAddr(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.Contains(raw, "://") {
		parsed, err := url.Parse(raw)
		if err == nil && parsed.Host != "" {
			return parsed.Host
		}
	}
	return raw
}
