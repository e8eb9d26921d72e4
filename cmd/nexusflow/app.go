package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	badgerkv "github.com/nexusflow/nexusflow-client/internal/adapters/badger/kvstore"
	"github.com/nexusflow/nexusflow-client/internal/adapters/gemini"
	memkvstore "github.com/nexusflow/nexusflow-client/internal/adapters/memory/kvstore"
	"github.com/nexusflow/nexusflow-client/internal/adapters/pcmfile"
	postgres "github.com/nexusflow/nexusflow-client/internal/adapters/postgres"
	pgkv "github.com/nexusflow/nexusflow-client/internal/adapters/postgres/kvstore"
	rediskv "github.com/nexusflow/nexusflow-client/internal/adapters/redis/kvstore"
	sqlitekv "github.com/nexusflow/nexusflow-client/internal/adapters/sqlite/kvstore"
	"github.com/nexusflow/nexusflow-client/internal/app/gateway"
	"github.com/nexusflow/nexusflow-client/internal/app/localstore"
	"github.com/nexusflow/nexusflow-client/internal/app/navigation"
	"github.com/nexusflow/nexusflow-client/internal/app/oracle"
	platformclock "github.com/nexusflow/nexusflow-client/internal/platform/clock"
	"github.com/nexusflow/nexusflow-client/internal/platform/config"
	"github.com/nexusflow/nexusflow-client/internal/ports/out/clock"
	"github.com/nexusflow/nexusflow-client/internal/ports/out/kvstore"
	"github.com/nexusflow/nexusflow-client/internal/ports/out/model"
	"github.com/nexusflow/nexusflow-client/internal/ports/out/voice"
)

// app is the wired client: storage, session shell and AI gateway.
type app struct {
	cfg   *config.Config
	log   zerolog.Logger
	clk   clock.Clock
	store *localstore.Store
	shell *navigation.Shell
	gw    *gateway.Gateway

	cleanup []func() error
}

func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*app, error) {
	kv, closeKV, err := openStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log, clk: platformclock.NewSystemClock()}
	if closeKV != nil {
		a.cleanup = append(a.cleanup, closeKV)
	}
	a.store = localstore.NewStore(kv, log)
	a.shell = navigation.New(ctx, a.store, log)

	// Leave gen as a nil interface without a credential: the gateway then
	// serves its offline fallbacks.
	var gen model.Generator
	if cfg.HasCredential() {
		gen = gemini.NewClient(gemini.Options{
			BaseURL: cfg.ModelBaseURL,
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		})
	} else {
		log.Info().Msg("no model credential configured; using offline fallbacks")
	}
	a.gw = gateway.New(gen, log, gateway.Options{Timeout: cfg.Timeout})
	return a, nil
}

// dialer returns the live voice dialer, or nil without a credential.
func (a *app) dialer() voice.Dialer {
	if !a.cfg.HasCredential() {
		return nil
	}
	return &gemini.LiveDialer{URL: a.cfg.LiveURL, APIKey: a.cfg.APIKey, Log: a.log}
}

func (a *app) Close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		if err := a.cleanup[i](); err != nil {
			a.log.Warn().Err(err).Msg("close")
		}
	}
}

func openStorage(ctx context.Context, cfg *config.Config) (kvstore.Store, func() error, error) {
	switch cfg.StorageBackend {
	case config.BackendMemory:
		return memkvstore.NewStore(), nil, nil
	case config.BackendBadger:
		s, err := badgerkv.Open(cfg.BadgerDir())
		if err != nil {
			return nil, nil, fmt.Errorf("open badger store: %w", err)
		}
		return s, s.Close, nil
	case config.BackendSQLite:
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create data dir: %w", err)
		}
		s, err := sqlitekv.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return s, s.Close, nil
	case config.BackendPostgres:
		pool, err := postgres.NewPool(ctx, cfg.PostgresDSN, postgres.PoolOptions{})
		if err != nil {
			return nil, nil, fmt.Errorf("invalid postgres config: %w", err)
		}
		s := pgkv.NewStore(pool)
		if err := s.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate postgres store: %w", err)
		}
		return s, func() error { pool.Close(); return nil }, nil
	case config.BackendRedis:
		s, err := rediskv.Dial(ctx, cfg.RedisAddr, cfg.RedisPrefix)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis store: %w", err)
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported STORAGE_BACKEND: %s", cfg.StorageBackend)
	}
}

// voiceDeps wires the voice assistant to PCM16 files standing in for the
// microphone and speaker.
func (a *app) voiceDeps(inPath, outPath string, realtime bool) oracle.Deps {
	return oracle.Deps{
		Dialer:     a.dialer(),
		Microphone: &pcmfile.Microphone{Path: inPath, Realtime: realtime},
		NewSpeaker: func() (voice.Speaker, error) {
			if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
				return nil, fmt.Errorf("create playback dir: %w", err)
			}
			return pcmfile.NewSpeaker(outPath, a.clk), nil
		},
		Model: a.cfg.LiveModel,
		Log:   a.log,
	}
}
