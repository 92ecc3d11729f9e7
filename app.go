package main

import (
	"context"
	"errors"
	"fmt"

	"goa.design/clue/log"

	"github.com/xiaot623/ensemble/internal/adapter/llm"
	"github.com/xiaot623/ensemble/internal/catalog"
	"github.com/xiaot623/ensemble/internal/config"
	"github.com/xiaot623/ensemble/internal/repository"
	"github.com/xiaot623/ensemble/internal/service"
	"github.com/xiaot623/ensemble/policy"
)

// app holds the wired dependencies shared by the commands.
type app struct {
	cfg     *config.Config
	store   *repository.SQLiteStore
	service *service.Service
}

// newApp loads configuration and wires the store, catalog, policy engine,
// completion client and service. The returned context carries the logger.
func newApp(ctx context.Context) (context.Context, *app, error) {
	cfg, err := config.Load()
	if err != nil {
		return ctx, nil, fmt.Errorf("load config: %w", err)
	}
	ctx = logContext(ctx, cfg)

	log.Info(ctx,
		log.KV{K: "msg", V: "starting ensemble"},
		log.KV{K: "database", V: cfg.DatabaseURL},
		log.KV{K: "llm_provider", V: cfg.LLMProvider},
		log.KV{K: "llm_model", V: cfg.LLMModel})

	db, err := repository.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		return ctx, nil, fmt.Errorf("initialize store: %w", err)
	}

	if err := seedCatalog(ctx, db, cfg.AgentCatalogFile, false); err != nil {
		_ = db.Close()
		return ctx, nil, err
	}

	policyEngine, err := policy.NewEngineFromFile(ctx, cfg.PolicyFile)
	if err != nil {
		_ = db.Close()
		return ctx, nil, fmt.Errorf("initialize policy engine: %w", err)
	}

	completer, err := llm.NewCompleter(ctx, llm.Options{
		Provider: cfg.LLMProvider,
		BaseURL:  cfg.LLMBaseURL,
		APIKey:   cfg.LLMAPIKey,
		Model:    cfg.LLMModel,
		Timeout:  cfg.LLMTimeout,
		Mock:     cfg.MockMode(),
	})
	if err != nil {
		if !errors.Is(err, llm.ErrMissingCredential) {
			_ = db.Close()
			return ctx, nil, fmt.Errorf("initialize completion client: %w", err)
		}
		log.Warn(ctx,
			log.KV{K: "msg", V: "no completion credential configured, orchestration disabled"},
			log.KV{K: "llm_provider", V: cfg.LLMProvider})
		completer = nil
	}

	return ctx, &app{
		cfg:     cfg,
		store:   db,
		service: service.New(db, completer, cfg, policyEngine),
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// seedCatalog writes the file catalog, or the built-in one when path is
// empty, into an empty registry. force writes even when agents exist.
func seedCatalog(ctx context.Context, store repository.Store, path string, force bool) error {
	agents := catalog.Default()
	source := "builtin"
	if path != "" {
		var err error
		agents, err = catalog.LoadFile(path)
		if err != nil {
			return fmt.Errorf("load agent catalog: %w", err)
		}
		source = path
	}

	n, err := catalog.Seed(ctx, store, agents, force)
	if err != nil {
		return fmt.Errorf("seed agent catalog: %w", err)
	}
	if n > 0 {
		log.Info(ctx, log.KV{K: "msg", V: "agent catalog seeded"}, log.KV{K: "source", V: source}, log.KV{K: "agents", V: n})
	}
	return nil
}
