// Package rpc exposes the orchestration call over JSON-RPC for internal clients.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"strings"

	"goa.design/clue/log"

	"github.com/xiaot623/ensemble/internal/domain"
	"github.com/xiaot623/ensemble/internal/service"
)

// Server exposes internal RPC endpoints.
type Server struct {
	listener  net.Listener
	rpcServer *rpc.Server
	ctx       context.Context
	done      chan struct{}
}

// NewServer creates a new RPC server bound to the service. ctx carries the
// logger and is the parent of every call.
func NewServer(ctx context.Context, svc *service.Service) (*Server, error) {
	rpcServer := rpc.NewServer()
	handler := &Handler{service: svc, ctx: ctx}
	if err := rpcServer.RegisterName("Ensemble", handler); err != nil {
		return nil, fmt.Errorf("register rpc handler: %w", err)
	}

	return &Server{
		rpcServer: rpcServer,
		ctx:       ctx,
		done:      make(chan struct{}),
	}, nil
}

// Start begins accepting RPC connections on the given address.
func (s *Server) Start(addr string) error {
	if err := s.Listen(addr); err != nil {
		return err
	}
	return s.Serve()
}

// Listen binds the listener without accepting connections yet.
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = ln
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts RPC connections until the listener is closed.
func (s *Server) Serve() error {
	ln := s.listener
	if ln == nil {
		return errors.New("rpc server is not listening")
	}
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				close(s.done)
				return nil
			}
			log.Error(s.ctx, err, log.KV{K: "msg", V: "rpc accept error"})
			continue
		}

		go s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(conn))
	}
}

// Shutdown stops accepting new RPC connections.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.listener == nil {
		return nil
	}

	if err := s.listener.Close(); err != nil {
		return err
	}

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Handler implements the Ensemble RPC methods.
type Handler struct {
	service *service.Service
	ctx     context.Context
}

// SessionArgs identifies a session.
type SessionArgs struct {
	SessionID string `json:"session_id"`
}

// Orchestrate runs one orchestration call. When no agent can run at all the
// reply has success false and the reason in error; only malformed requests
// fail the call itself.
func (h *Handler) Orchestrate(req *domain.OrchestrateRequest, resp *domain.OrchestrateResponse) error {
	if req == nil {
		return errors.New("orchestrate request is required")
	}
	if strings.TrimSpace(req.Message) == "" {
		return errors.New("message is required")
	}

	result, err := h.service.Orchestrate(h.ctx, *req)
	if service.IsUnavailable(err) {
		result, err = service.FailedResponse(err), nil
	}
	if err != nil {
		return err
	}
	if resp != nil && result != nil {
		*resp = *result
	}
	return nil
}

// GetSession returns a session by id.
func (h *Handler) GetSession(req *SessionArgs, resp *domain.Session) error {
	if req == nil || req.SessionID == "" {
		return errors.New("session_id is required")
	}

	session, err := h.service.GetSession(h.ctx, req.SessionID)
	if err != nil {
		return err
	}
	if resp != nil {
		*resp = *session
	}
	return nil
}
