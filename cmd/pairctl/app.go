package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pairsync/sync-server/internal/config"
	"github.com/pairsync/sync-server/internal/database"
	redisclient "github.com/pairsync/sync-server/internal/redis"
	"github.com/pairsync/sync-server/internal/repository"
	"github.com/pairsync/sync-server/internal/service"
	"github.com/pairsync/sync-server/internal/sse"
)

// app holds the connections a single pairctl invocation works with.
type app struct {
	redis     *redisclient.Client
	ledger    repository.LedgerRepository
	state     *service.StateService
	energy    *service.EnergyService
	blocklist *service.BlocklistService
	closers   []func() error
}

type connectFunc func(ctx context.Context) (*app, error)

func connect(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	client, err := redisclient.NewClient(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	var ledger repository.LedgerRepository = repository.NopLedger{}
	closers := []func() error{client.Close}
	if cfg.LedgerEnabled() {
		db, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("connect database: %w", err)
		}
		ledger = repository.NewLedgerRepository(db.DB)
		closers = append(closers, db.Close)
	}

	a := newApp(client, ledger, cfg.TTLs())
	a.closers = append(a.closers, closers...)
	return a, nil
}

func newApp(client *redisclient.Client, ledger repository.LedgerRepository, ttls config.TTLs) *app {
	broker := sse.NewBroker(client)
	return &app{
		redis:     client,
		ledger:    ledger,
		state:     service.NewStateService(client, broker, ttls.State),
		energy:    service.NewEnergyService(client),
		blocklist: service.NewBlocklistService(client, ledger, broker, ttls.Blocklist),
		closers:   []func() error{func() error { broker.Close(); return nil }},
	}
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
