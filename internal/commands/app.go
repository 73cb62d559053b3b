package commands

import (
	"context"
	"fmt"

	"github.com/anuragm339/smart-expense-manager-sub000/internal/category"
	"github.com/anuragm339/smart-expense-manager-sub000/internal/config"
	"github.com/anuragm339/smart-expense-manager-sub000/internal/core"
	"github.com/anuragm339/smart-expense-manager-sub000/internal/dualwrite"
	"github.com/anuragm339/smart-expense-manager-sub000/internal/events"
	"github.com/anuragm339/smart-expense-manager-sub000/internal/grouping"
	"github.com/anuragm339/smart-expense-manager-sub000/internal/kvstore"
	"github.com/anuragm339/smart-expense-manager-sub000/internal/log"
	"github.com/anuragm339/smart-expense-manager-sub000/internal/merchant"
	"github.com/anuragm339/smart-expense-manager-sub000/internal/storage"
)

// app holds the wired components shared by the subcommands.
type app struct {
	cfg      *config.Config
	logger   *log.Logger
	repo     *storage.Repository
	kv       *kvstore.Store
	registry *category.Registry
	resolver *merchant.Resolver
	events   *events.Publisher
}

// openApp loads configuration, runs migrations and hydrates the in-memory
// registry and resolver. The AMQP publisher is optional: without AMQP_URL
// changes simply do not emit events.
func openApp(ctx context.Context) (*app, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, repo: repo}

	var aliasStore merchant.AliasStore = repo
	if cfg.DualWrite {
		kv, err := kvstore.Open(cfg.KVStorePath)
		if err != nil {
			repo.Close()
			return nil, fmt.Errorf("open kv store: %w", err)
		}
		a.kv = kv
		aliasStore = dualwrite.New(repo, kv)
	}

	var sink merchant.EventSink
	if cfg.AMQPURL != "" {
		pub, err := events.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			repo.Close()
			return nil, fmt.Errorf("connect AMQP: %w", err)
		}
		a.events = pub
		sink = pub
	}

	a.registry = category.NewRegistry(repo)
	if err := a.registry.Hydrate(ctx); err != nil {
		a.close()
		return nil, fmt.Errorf("hydrate categories: %w", err)
	}
	a.resolver = merchant.NewResolver(a.registry, aliasStore, sink)
	if err := a.resolver.Hydrate(ctx); err != nil {
		a.close()
		return nil, fmt.Errorf("hydrate aliases: %w", err)
	}
	a.registry.BindAliases(a.resolver)

	return a, nil
}

func (a *app) close() {
	if a.events != nil {
		_ = a.events.Close()
	}
	if a.repo != nil {
		_ = a.repo.Close()
	}
}

// resolvedTransactions loads every stored transaction and resolves its
// merchant identity through the alias layer.
func (a *app) resolvedTransactions(ctx context.Context) ([]grouping.Resolved, error) {
	txs, err := a.repo.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]grouping.Resolved, 0, len(txs))
	for _, tx := range txs {
		name, cat, color := a.resolver.Resolve(tx.MerchantRaw)
		out = append(out, grouping.Resolved{
			Transaction:   tx,
			DisplayName:   name,
			Category:      cat,
			CategoryColor: color,
		})
	}
	return out, nil
}

// includedTransactions returns the transactions that count toward totals,
// dropping any whose merchant group is excluded.
func (a *app) includedTransactions(ctx context.Context) ([]core.Transaction, error) {
	items, err := a.resolvedTransactions(ctx)
	if err != nil {
		return nil, err
	}
	excluded, err := a.repo.ExcludedGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("load exclusions: %w", err)
	}
	out := make([]core.Transaction, 0, len(items))
	for _, it := range items {
		if !excluded[it.DisplayName] {
			out = append(out, it.Transaction)
		}
	}
	return out, nil
}

// categoryOf resolves the category a transaction currently maps to, for
// budget evaluation.
func (a *app) categoryOf(tx core.Transaction) string {
	_, cat, _ := a.resolver.Resolve(tx.MerchantRaw)
	return cat
}
