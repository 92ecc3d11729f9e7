// Command ensemble routes user requests to a team of role-based LLM agents
// and returns their combined answer.
package main

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"goa.design/clue/log"

	"github.com/xiaot623/ensemble/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "ensemble",
	Short: "Multi-agent orchestration service",
	Long: `Ensemble routes each request to the relevant specialist agents
(design, code, testing, legal, governance), runs them one after another so
every agent sees the answers before it, and records the collaboration.

With no subcommand, starts the service.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(askCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// logContext configures the clue logger from cfg.
func logContext(ctx context.Context, cfg *config.Config) context.Context {
	format := log.FormatJSON
	switch strings.ToLower(cfg.LogFormat) {
	case "terminal":
		format = log.FormatTerminal
	case "json":
	default:
		if log.IsTerminal() {
			format = log.FormatTerminal
		}
	}
	ctx = log.Context(ctx, log.WithFormat(format))
	if cfg.Debug() {
		ctx = log.Context(ctx, log.WithDebug())
		log.Debugf(ctx, "debug logs enabled")
	}
	return ctx
}
