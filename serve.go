package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"goa.design/clue/log"

	handler "github.com/xiaot623/ensemble/internal/transport/http"
	"github.com/xiaot623/ensemble/internal/transport/rpc"
)

const sessionSweepInterval = time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and JSON-RPC servers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	ctx, a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.service.RunSessionMonitor(ctx, sessionSweepInterval)

	errc := make(chan error, 3)

	externalServer := handler.NewExternalServer(a.service)
	go startEcho(ctx, externalServer, a.cfg.HTTPPort, "external", errc)

	var internalServer *echo.Echo
	if a.cfg.InternalHTTPPort > 0 {
		internalServer = handler.NewInternalServer(a.service)
		go startEcho(ctx, internalServer, a.cfg.InternalHTTPPort, "internal", errc)
	}

	var rpcServer *rpc.Server
	if a.cfg.RPCPort > 0 {
		rpcServer, err = rpc.NewServer(ctx, a.service)
		if err != nil {
			return err
		}
		go func() {
			addr := fmt.Sprintf(":%d", a.cfg.RPCPort)
			log.Info(ctx, log.KV{K: "msg", V: "rpc server listening"}, log.KV{K: "addr", V: addr})
			if err := rpcServer.Start(addr); err != nil {
				errc <- fmt.Errorf("rpc server: %w", err)
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info(ctx, log.KV{K: "msg", V: "shutting down"}, log.KV{K: "signal", V: sig.String()})
	case err = <-errc:
		log.Error(ctx, err, log.KV{K: "msg", V: "server failed, shutting down"})
	}
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer stop()

	if err := externalServer.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, err, log.KV{K: "msg", V: "failed to shutdown external server gracefully"})
	}
	if internalServer != nil {
		if err := internalServer.Shutdown(shutdownCtx); err != nil {
			log.Error(ctx, err, log.KV{K: "msg", V: "failed to shutdown internal server gracefully"})
		}
	}
	if rpcServer != nil {
		if err := rpcServer.Shutdown(shutdownCtx); err != nil {
			log.Error(ctx, err, log.KV{K: "msg", V: "failed to shutdown rpc server gracefully"})
		}
	}

	log.Info(ctx, log.KV{K: "msg", V: "ensemble stopped"})
	return err
}

func startEcho(ctx context.Context, e *echo.Echo, port int, name string, errc chan<- error) {
	addr := fmt.Sprintf(":%d", port)
	log.Info(ctx, log.KV{K: "msg", V: name + " http server listening"}, log.KV{K: "addr", V: addr})
	if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errc <- fmt.Errorf("%s server: %w", name, err)
	}
}
