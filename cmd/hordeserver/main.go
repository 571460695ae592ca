package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/udisondev/horde/internal/authority"
	"github.com/udisondev/horde/internal/config"
	"github.com/udisondev/horde/internal/db"
	"github.com/udisondev/horde/internal/genetic"
	"github.com/udisondev/horde/internal/model"
	"github.com/udisondev/horde/internal/players"
	"github.com/udisondev/horde/internal/replication"
	"github.com/udisondev/horde/internal/session"
	"github.com/udisondev/horde/internal/world"
)

const (
	ConfigPath = "config/horde.yaml"

	// localPlayerID is the player owned by an authoritative process itself.
	localPlayerID = "local"
)

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

func run(ctx context.Context) error {
	cfgPath := flag.String("config", config.Path(ConfigPath), "path to server config")
	modeFlag := flag.String("mode", "", "override mode: single, host or client")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if *modeFlag != "" {
		cfg.Mode = *modeFlag
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))

	mode, err := authority.ParseMode(cfg.Mode)
	if err != nil {
		return fmt.Errorf("parsing mode: %w", err)
	}

	slog.Info("horde server starting",
		"config", *cfgPath,
		"mode", mode.String(),
		"role", mode.Role().String(),
		"log_level", cfg.LogLevel)

	if !mode.IsAuthoritative() {
		return runObserver(ctx, cfg)
	}
	return runAuthoritative(ctx, cfg, mode)
}

func runAuthoritative(ctx context.Context, cfg config.Server, mode authority.Mode) error {
	content, err := config.LoadContent(cfg.WavesPath)
	if err != nil {
		if !errors.Is(err, config.ErrNoWaves) {
			return fmt.Errorf("loading content: %w", err)
		}
		slog.Warn("no waves configured, session will idle", "path", cfg.WavesPath)
	}

	geometry := content.Geometry(cfg.Spawn.GridCellSize)
	viewport := world.NewCameraViewport(
		cfg.Spawn.ViewportHalfWidth,
		cfg.Spawn.ViewportHalfDepth,
		cfg.Spawn.ViewportMargin,
	)
	viewport.SetCenter(model.Vec3{})

	registry := players.NewRegistry()
	registry.Upsert(localPlayerID, model.Vec3{}, false)

	sess, err := session.New(session.Options{
		Mode:       mode,
		Waves:      content.Waves,
		Archetypes: content.Archetypes,
		Players:    registry,
		Geometry:   geometry,
		Viewport:   viewport,
		Solver:     cfg.Spawn.SolverConfig(),
		Safety:     cfg.Spawn.SafetyConfig(),
		Balancer:   cfg.Spawn.BalancerConfig(),
		Despawn:    cfg.Despawn.DespawnConfig(),
		Evolution:  cfg.Evolution.EngineConfig(cfg.Seed),
		Ramp: session.RampConfig{
			HealthPerMinute: cfg.Difficulty.HealthPerMinute,
			DamagePerMinute: cfg.Difficulty.DamagePerMinute,
			Max:             cfg.Difficulty.Max,
		},
		QueueSize: cfg.Replication.CommandQueueSize,
		Seed:      cfg.Seed,
	})
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}

	sess.SetSpawnedFunc(func(handle model.EntityHandle, archetype model.Archetype, genes model.EnemyGenes) {
		slog.Debug("enemy spawned",
			"handle", handle,
			"archetype", archetype.ID,
			"health", genes.Health,
			"damage", genes.Damage,
			"speed", genes.Speed)
	})

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Persistence.Enabled {
		database, err := openPersistence(ctx, cfg, sess)
		if err != nil {
			return err
		}
		defer database.Close()

		recorder := genetic.NewRecorder(database.Generations(), cfg.Persistence.QueueSize)
		sess.SetEvolvedFunc(func(sessionID uuid.UUID, gen genetic.Generation) {
			recorder.Record(sessionID, gen)
		})
		g.Go(func() error {
			return recorder.Run(gctx)
		})
	}

	if mode.IsMultiplayerHost() {
		if err := serveReplication(gctx, g, cfg.Replication, sess, registry); err != nil {
			return err
		}
	}

	sess.RequestStart()
	g.Go(func() error {
		return sess.Run(gctx, cfg.TickRate)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("horde server stopped",
		"sessionID", sess.ID(),
		"generation", sess.Engine().Generation(),
		"wave", sess.Scheduler().Index())
	return nil
}

// openPersistence connects, migrates and optionally warm-starts the gene pool.
func openPersistence(ctx context.Context, cfg config.Server, sess *session.Session) (*db.DB, error) {
	dsn := cfg.Database.DSN()

	database, err := db.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	slog.Info("database connected")

	if err := db.RunMigrations(ctx, dsn); err != nil {
		database.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database migrations applied")

	if !cfg.Persistence.WarmStart {
		return database, nil
	}

	generation, members, found, err := database.Generations().LoadLatestPool(ctx)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("loading latest gene pool: %w", err)
	}
	if found {
		sess.Engine().Restore(generation, members)
	} else {
		slog.Info("no stored gene pool, starting fresh")
	}
	return database, nil
}

// serveReplication starts the hub with its TCP listener and websocket endpoint.
func serveReplication(ctx context.Context, g *errgroup.Group, cfg config.Replication, sess *session.Session, registry *players.Registry) error {
	cipher, err := replication.NewCipherHex(cfg.Key)
	if err != nil {
		return fmt.Errorf("replication key: %w", err)
	}

	hubCfg := replication.DefaultHubConfig()
	if cfg.SendQueueSize > 0 {
		hubCfg.SendQueueSize = cfg.SendQueueSize
	}
	hub, err := replication.NewHub(hubCfg, cipher, sess.Spawner(), registry, sess)
	if err != nil {
		return fmt.Errorf("creating replication hub: %w", err)
	}

	g.Go(func() error {
		return hub.Run(ctx)
	})

	if cfg.TCPAddress != "" {
		var lc net.ListenConfig
		ln, err := lc.Listen(ctx, "tcp", cfg.TCPAddress)
		if err != nil {
			return fmt.Errorf("listening on %s: %w", cfg.TCPAddress, err)
		}
		slog.Info("replication listening", "transport", "tcp", "address", ln.Addr())
		g.Go(func() error {
			return hub.ServeTCP(ctx, ln)
		})
	}

	if cfg.WSAddress != "" {
		srv := &http.Server{
			Addr:              cfg.WSAddress,
			Handler:           hub,
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			slog.Info("replication listening", "transport", "websocket", "address", cfg.WSAddress)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("websocket server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return nil
}

// runObserver mirrors the host's enemies until the connection or ctx ends.
func runObserver(ctx context.Context, cfg config.Server) error {
	cipher, err := replication.NewCipherHex(cfg.Replication.Key)
	if err != nil {
		return fmt.Errorf("replication key: %w", err)
	}

	mirror := authority.NewMirror()
	addr := cfg.Replication.HostAddress

	var client *replication.Client
	if strings.HasPrefix(addr, "ws://") || strings.HasPrefix(addr, "wss://") {
		client, err = replication.DialWS(ctx, addr, cipher, mirror)
	} else {
		client, err = replication.Dial(ctx, addr, cipher, mirror)
	}
	if err != nil {
		return fmt.Errorf("connecting to host: %w", err)
	}
	defer client.Close()

	slog.Info("connected to host", "address", addr)

	client.SetAppliedFunc(func(cmd authority.Command) {
		slog.Debug("command applied",
			"command", fmt.Sprintf("%T", cmd),
			"enemies", mirror.Len(),
			"wave", mirror.WaveIndex())
	})

	if err := client.Send(replication.PlayerStateMsg{PlayerID: localPlayerID + "-observer"}); err != nil {
		return fmt.Errorf("reporting player state: %w", err)
	}

	if err := client.Run(ctx); err != nil {
		return fmt.Errorf("observer: %w", err)
	}

	slog.Info("observer stopped", "enemies", mirror.Len(), "wave", mirror.WaveIndex())
	return nil
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
