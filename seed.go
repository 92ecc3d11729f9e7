package main

import (
	"github.com/spf13/cobra"
	"goa.design/clue/log"

	"github.com/xiaot623/ensemble/internal/config"
	"github.com/xiaot623/ensemble/internal/repository"
)

var (
	seedFile  string
	seedForce bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load agent definitions into the registry",
	Long: `Loads agents from a YAML catalog file (or the built-in catalog when
--file is omitted). By default agents are only written into an empty
registry; --force upserts them regardless.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		ctx := logContext(cmd.Context(), cfg)

		db, err := repository.NewSQLiteStore(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := seedCatalog(ctx, db, seedFile, seedForce); err != nil {
			return err
		}
		n, err := db.CountAgents(ctx)
		if err != nil {
			return err
		}
		log.Print(ctx, log.KV{K: "msg", V: "registry ready"}, log.KV{K: "agents", V: n})
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedFile, "file", "", "YAML agent catalog to load")
	seedCmd.Flags().BoolVar(&seedForce, "force", false, "Upsert agents even when the registry is not empty")
}
