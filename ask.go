package main

import (
	"encoding/json"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/xiaot623/ensemble/internal/domain"
	"github.com/xiaot623/ensemble/internal/service"
	"github.com/xiaot623/ensemble/internal/transport/rpc"
)

var (
	askRoles   []string
	askSession string
	askAddr    string
)

var askCmd = &cobra.Command{
	Use:   "ask [message]",
	Short: "Run one orchestration and print the JSON response",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := domain.OrchestrateRequest{
			SessionID: askSession,
			Message:   strings.Join(args, " "),
		}
		for _, r := range askRoles {
			req.RequestedAgents = append(req.RequestedAgents, domain.NormalizeRole(r))
		}

		var resp *domain.OrchestrateResponse
		if askAddr != "" {
			var err error
			resp, err = rpc.NewClient(askAddr, 5*time.Minute).Orchestrate(cmd.Context(), req)
			if err != nil {
				return err
			}
		} else {
			ctx, a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			resp, err = a.service.Orchestrate(ctx, req)
			if service.IsUnavailable(err) {
				resp, err = service.FailedResponse(err), nil
			}
			if err != nil {
				return err
			}
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			return err
		}
		if !resp.Success {
			return errors.New(resp.Error)
		}
		return nil
	},
}

func init() {
	askCmd.Flags().StringSliceVar(&askRoles, "role", nil, "Ask only agents with this role (repeatable)")
	askCmd.Flags().StringVar(&askSession, "session", "", "Continue an existing session")
	askCmd.Flags().StringVar(&askAddr, "addr", "", "Send the request to a running server's JSON-RPC address instead of running locally")
}
