// Package main provides the arena server binary: it loads the world and
// event type content, recovers persisted events, and runs the event
// scheduler until terminated.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/config"
	"github.com/cory-johannsen/arena/internal/game/actor"
	"github.com/cory-johannsen/arena/internal/game/arena"
	"github.com/cory-johannsen/arena/internal/game/betting"
	"github.com/cory-johannsen/arena/internal/game/dice"
	"github.com/cory-johannsen/arena/internal/game/finance"
	"github.com/cory-johannsen/arena/internal/game/inventory"
	"github.com/cory-johannsen/arena/internal/game/npc"
	"github.com/cory-johannsen/arena/internal/game/observe"
	"github.com/cory-johannsen/arena/internal/game/ratings"
	"github.com/cory-johannsen/arena/internal/game/world"
	"github.com/cory-johannsen/arena/internal/observability"
	"github.com/cory-johannsen/arena/internal/scripting"
	"github.com/cory-johannsen/arena/internal/server"
	"github.com/cory-johannsen/arena/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	arenasDir := flag.String("arenas", "content/arenas", "path to arena YAML files directory")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	rng := dice.NewCryptoSource()

	// Load world content
	worldStart := time.Now()
	arenas, err := world.LoadArenasFromDir(*arenasDir)
	if err != nil {
		logger.Fatal("loading arenas", zap.Error(err))
	}
	worldMgr, err := world.NewManager(arenas)
	if err != nil {
		logger.Fatal("creating world manager", zap.Error(err))
	}
	logger.Info("world loaded",
		zap.Int("arenas", len(arenas)),
		zap.Int("cells", worldMgr.CellCount()),
		zap.Duration("elapsed", time.Since(worldStart)),
	)

	types, err := arena.LoadEventTypesFromDir(cfg.Arena.EventTypeDir)
	if err != nil {
		logger.Fatal("loading event types", zap.Error(err))
	}
	registry, err := arena.NewRegistry(types)
	if err != nil {
		logger.Fatal("creating event registry", zap.Error(err))
	}
	logger.Info("loaded event types", zap.Int("count", len(types)))

	npcTemplates, err := npc.LoadTemplates(cfg.Arena.NpcTemplateDir)
	if err != nil {
		logger.Fatal("loading npc templates", zap.Error(err))
	}
	npcMgr, err := npc.NewManager(npcTemplates)
	if err != nil {
		logger.Fatal("creating npc manager", zap.Error(err))
	}
	logger.Info("loaded npc templates", zap.Int("count", len(npcTemplates)))

	// Connect to PostgreSQL for event and bet persistence
	dbStart := time.Now()
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("connecting to database", zap.Error(err))
	}
	logger.Info("database connected",
		zap.String("host", cfg.Database.Host),
		zap.Duration("elapsed", time.Since(dbStart)),
	)
	eventRepo := postgres.NewEventRepository(pool.DB())
	betRepo := postgres.NewBetRepository(pool.DB())

	// Lua hook VMs: one global set, plus one per arena subdirectory.
	scripts := scripting.NewManager(rng, logger)
	if cfg.Scripting.ScriptDir != "" {
		if err := scripts.LoadGlobal(cfg.Scripting.ScriptDir, cfg.Scripting.InstructionLimit); err != nil {
			logger.Fatal("loading hook scripts", zap.Error(err))
		}
		for _, a := range arenas {
			arenaDir := filepath.Join(cfg.Scripting.ScriptDir, a.ID)
			if info, err := os.Stat(arenaDir); err == nil && info.IsDir() {
				if err := scripts.LoadArena(a.ID, arenaDir, cfg.Scripting.InstructionLimit); err != nil {
					logger.Fatal("loading arena scripts",
						zap.String("arena", a.ID),
						zap.Error(err),
					)
				}
			}
		}
	}

	// Core managers and services
	actors := actor.NewManager()
	items := inventory.NewManager()

	accounts := make([]*finance.Account, 0, len(arenas))
	for _, a := range arenas {
		accounts = append(accounts, &finance.Account{ID: a.AccountID})
	}
	ledger := finance.NewService(accounts, logger)

	rules := arena.DefaultRules()
	timers := arena.NewTimerRegistry(logger)
	scheduler := arena.NewScheduler(timers, registry, rules, cfg.Arena, logger)
	scheduler.ArenaReady = func(arenaID string) bool {
		_, ok := worldMgr.GetArena(arenaID)
		return ok
	}

	observeSvc := observe.NewService(actors, worldMgr, rng, logger)
	scripts.Broadcast = observeSvc.Broadcast
	bettingSvc := betting.NewService(registry, worldMgr, ledger, betRepo, cfg.Arena, logger)
	npcSvc := npc.NewService(npcMgr, actors, worldMgr, items, scripts, registry, logger)
	ratingsSvc := ratings.NewService(actors, logger)

	lifecycle := arena.NewLifecycle(
		registry, rules, scheduler, eventRepo, worldMgr, actors,
		bettingSvc, npcSvc, observeSvc, ratingsSvc, observeSvc,
		ledger, logger,
	)

	if err := lifecycle.RebootRecovery(ctx); err != nil {
		logger.Fatal("reboot recovery", zap.Error(err))
	}

	logger.Info("arena server ready", zap.Duration("startup", time.Since(start)))

	done := make(chan struct{})
	lc := server.NewLifecycle(logger)
	lc.Add("scheduler", &server.FuncService{
		StartFn: func() error {
			<-done
			return nil
		},
		StopFn: func() {
			close(done)
			timers.Stop()
		},
	})
	lc.Add("scripting", &server.FuncService{
		StartFn: func() error { return nil },
		StopFn:  scripts.Close,
	})
	lc.Add("database", &server.FuncService{
		StartFn: func() error { return nil },
		StopFn:  pool.Close,
	})

	if err := lc.Run(ctx); err != nil {
		logger.Fatal("server lifecycle", zap.Error(err))
	}
}
