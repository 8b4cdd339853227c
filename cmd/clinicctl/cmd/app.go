package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jrsteele09/go-clinic-client/clinic"
	"github.com/jrsteele09/go-clinic-client/internal/config"
	"github.com/jrsteele09/go-clinic-client/internal/logging"
	"github.com/jrsteele09/go-clinic-client/navigation"
	"github.com/jrsteele09/go-clinic-client/persist"
	"github.com/pterm/pterm"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// app is built once per process and shared by every command, including the
// ones run from the shell.
type app struct {
	cfg     config.Config
	client  *clinic.Client
	history *navigation.History
	closers []func() error
}

func (a *app) init(ctx context.Context) error {
	if a.client != nil {
		return nil
	}

	cfg, err := config.New()
	if err != nil {
		return err
	}
	logging.Stderr(cfg.GetEnv(), cfg.GetLogLevel())

	kv, err := a.openStore(cfg)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.history = navigation.NewHistory()
	nav := navigation.Func(func(path string, state navigation.State) {
		a.history.Navigate(path, state)
		printNavigation(path, state)
	})

	client, err := clinic.New(cfg, kv, nav)
	if err != nil {
		return err
	}
	if err := client.Start(ctx); err != nil {
		return fmt.Errorf("failed to restore session: %w", err)
	}
	a.client = client
	return nil
}

func (a *app) openStore(cfg config.PersistenceConfig) (persist.KV, error) {
	switch cfg.GetStoreType() {
	case config.StoreRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.GetRedisAddr(),
			Password: cfg.GetRedisPassword(),
			DB:       cfg.GetRedisDB(),
		})
		a.closers = append(a.closers, rdb.Close)
		log.Debug().Str("addr", cfg.GetRedisAddr()).Msg("session store: redis")
		return persist.NewRedisKV(rdb, cfg.GetRedisPrefix()), nil
	case config.StoreMemory:
		log.Debug().Msg("session store: memory")
		return persist.NewMemoryKV(), nil
	default:
		kv, err := persist.NewFileKV(cfg.GetStoreFile())
		if err != nil {
			return nil, err
		}
		log.Debug().Str("path", kv.Path()).Msg("session store: file")
		return kv, nil
	}
}

// close waits briefly for a pending logout notification before releasing
// the store.
func (a *app) close() {
	if a.client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.client.Wait(ctx); err != nil {
			log.Warn().Err(err).Msg("logout notification still pending")
		}
	}
	for _, c := range a.closers {
		_ = c()
	}
	a.closers = nil
}

func printNavigation(path string, state navigation.State) {
	if state.Reason != "" {
		pterm.Warning.Println(state.Reason)
	}
	if state.From != "" {
		pterm.Info.Printf("→ %s (will return to %s)\n", path, state.From)
		return
	}
	pterm.Info.Printf("→ %s\n", path)
}
