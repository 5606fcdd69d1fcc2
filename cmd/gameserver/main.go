package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/growgo/internal/cache"
	"github.com/udisondev/growgo/internal/catalog"
	"github.com/udisondev/growgo/internal/cluster"
	"github.com/udisondev/growgo/internal/config"
	"github.com/udisondev/growgo/internal/db"
	"github.com/udisondev/growgo/internal/gameserver"
	"github.com/udisondev/growgo/internal/login"
	"github.com/udisondev/growgo/internal/transport"
	"github.com/udisondev/growgo/internal/transport/udp"
	"github.com/udisondev/growgo/internal/transport/websocket"
)

const GameConfigPath = "config/gameserver.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

// storage is the persistence backend the game server runs on.
type storage struct {
	players  gameserver.PlayerRepository
	worlds   gameserver.WorldRepository
	sessions login.SessionRepository
	close    func()
}

func openStorage(ctx context.Context, cfg config.DatabaseConfig) (storage, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		if err := db.RunMigrations(ctx, cfg.DSN); err != nil {
			return storage{}, fmt.Errorf("running migrations: %w", err)
		}
		database, err := db.New(ctx, cfg.DSN)
		if err != nil {
			return storage{}, fmt.Errorf("connecting to database: %w", err)
		}
		return storage{
			players:  db.NewPostgresPlayerRepository(database.Pool()),
			worlds:   db.NewPostgresWorldRepository(database.Pool()),
			sessions: db.NewPostgresSessionRepository(database.Pool()),
			close:    database.Close,
		}, nil
	default:
		lite, err := db.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return storage{}, err
		}
		return storage{
			players:  lite,
			worlds:   lite,
			sessions: lite,
			close: func() {
				if err := lite.Close(); err != nil {
					slog.Warn("closing sqlite", "err", err)
				}
			},
		}, nil
	}
}

func run(ctx context.Context) error {
	cfgPath := GameConfigPath
	if p := os.Getenv("GROWGO_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadGameServer(cfgPath)
	if err != nil {
		return fmt.Errorf("loading game config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid game config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel.Level(),
	})))
	slog.Info("growgo server starting", "instances", len(cfg.Instances), "database", cfg.Database.Driver)

	store, err := openStorage(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer store.close()
	slog.Info("database ready")

	catalogs, err := catalog.LoadSet(cfg.Catalog.Primary, cfg.Catalog.Alternate)
	if err != nil {
		return fmt.Errorf("loading item catalog: %w", err)
	}
	slog.Info("item catalog loaded",
		"items", catalogs.Primary.Len(),
		"version", catalogs.Version(),
		"hash", catalogs.Primary.Hash())

	var validator login.Validator = login.NewDBValidator(store.sessions)
	if cfg.Auth.Mode == "jwt" {
		validator = login.NewJWTValidator([]byte(cfg.Auth.JWTSecret))
	}

	g, gctx := errgroup.WithContext(ctx)

	busURL := cfg.Cluster.NatsURL
	if cfg.Cluster.EmbeddedNats {
		ns, err := cluster.NewServer(
			cluster.WithHost(cfg.Cluster.EmbeddedHost),
			cluster.WithPort(cfg.Cluster.EmbeddedPort),
		)
		if err != nil {
			return fmt.Errorf("creating embedded nats: %w", err)
		}
		if err := ns.Start(); err != nil {
			return err
		}
		g.Go(func() error {
			<-gctx.Done()
			ns.Shutdown()
			return nil
		})
		if busURL == "" {
			busURL = ns.ClientURL()
		}
	}

	hubCfg := gameserver.HubConfig{
		WorldTTL:      cfg.Cache.WorldTTL,
		WorldCapacity: cfg.Cache.WorldCapacity,
		Worlds:        store.worlds,
		Catalog:       catalogs.Primary,
	}
	var bus *cluster.Bus
	if busURL != "" {
		bus, err = cluster.Connect(busURL)
		if err != nil {
			return err
		}
		defer bus.Close()
		hubCfg.Bus = bus
	}
	hub := gameserver.NewHub(hubCfg)
	if bus != nil {
		unsubscribe, err := bus.Subscribe(hub.OnRemoteClaim)
		if err != nil {
			return fmt.Errorf("subscribing to claims: %w", err)
		}
		defer unsubscribe()
		slog.Info("cluster bus connected", "url", busURL, "origin", bus.ID())
	}

	cleaners := map[string]cache.Cleaner{"worlds": hub.Worlds()}
	for i, in := range cfg.Instances {
		addr := fmt.Sprintf(":%d", in.Port)
		var host transport.Host
		switch in.Transport {
		case config.TransportWebSocket:
			host = websocket.New(addr, cfg.SendQueueSize)
		default:
			host = udp.New(addr, udp.Options{
				SendQueueSize: cfg.SendQueueSize,
				IdleTimeout:   cfg.IdleTimeout,
			})
		}
		srv := gameserver.NewServer(cfg, i, gameserver.Deps{
			Host:      host,
			Hub:       hub,
			Players:   store.players,
			Validator: validator,
			Passwords: login.NewPasswordAuthenticator(store.players),
			Catalogs:  catalogs,
		})
		cleaners[fmt.Sprintf("peers-%d", i)] = srv.Peers()

		g.Go(func() error {
			return srv.Run(gctx)
		})
		slog.Info("instance configured", "instance", i, "transport", in.Transport, "addr", addr)
	}

	g.Go(func() error {
		return hub.RunSaver(gctx, cfg.WorldSaveInterval)
	})
	g.Go(func() error {
		cache.Sweep(gctx, cfg.Cache.SweepInterval, cleaners)
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	slog.Info("growgo server stopped")
	return nil
}
