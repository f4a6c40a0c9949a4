package main // Entry point package

import (
    "context"
    "encoding/json"
    "log" // Logging library
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4" // Echo web framework
    "go.uber.org/zap"

    "github.com/iliyamo/restaurant-table-reservation/internal/commit"
    "github.com/iliyamo/restaurant-table-reservation/internal/config" // Internal config loader
    "github.com/iliyamo/restaurant-table-reservation/internal/database"
    "github.com/iliyamo/restaurant-table-reservation/internal/engine"
    "github.com/iliyamo/restaurant-table-reservation/internal/handler"
    "github.com/iliyamo/restaurant-table-reservation/internal/hold"
    appmiddleware "github.com/iliyamo/restaurant-table-reservation/internal/middleware"
    "github.com/iliyamo/restaurant-table-reservation/internal/model"
    "github.com/iliyamo/restaurant-table-reservation/internal/outbox"
    "github.com/iliyamo/restaurant-table-reservation/internal/queue"
    "github.com/iliyamo/restaurant-table-reservation/internal/repository"
    "github.com/iliyamo/restaurant-table-reservation/internal/router" // Internal router setup
    "github.com/iliyamo/restaurant-table-reservation/internal/scarcity"
    "github.com/iliyamo/restaurant-table-reservation/internal/selector"
    queuepublisher "github.com/iliyamo/restaurant-table-reservation/internal/service"
    "github.com/iliyamo/restaurant-table-reservation/internal/session"
)

func main() {
    // Load .env when present; real deployments set the environment directly.
    _ = godotenv.Load()

    cfg := config.Load() // Load environment config

    logger, err := zap.NewProduction()
    if cfg.Env == "dev" {
        logger, err = zap.NewDevelopment()
    }
    if err != nil {
        log.Fatalf("init logger: %v", err)
    }
    defer func() { _ = logger.Sync() }()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("open database: %v", err)
    }
    defer db.Close()

    // Redis is optional: scarcity snapshots and rate limiting degrade
    // gracefully without it.
    rdb := config.NewRedisClient()

    // Repositories
    engineStore := repository.NewEngineStore(db)
    holdRepo := repository.NewHoldRepo(db)
    allocationRepo := repository.NewAllocationRepo(db)
    sessionRepo := repository.NewSessionRepo(db)
    outboxRepo := repository.NewOutboxRepo(db)
    scarcityRepo := repository.NewScarcityRepo(db)
    tableRepo := repository.NewTableRepo(db)
    restaurantRepo := repository.NewRestaurantRepo(db)
    userRepo := repository.NewUserRepo(db)

    // Scarcity service with the Redis backed snapshot cache.
    scarcitySvc := scarcity.NewService(scarcityRepo, tableRepo, rdb,
        time.Duration(cfg.ScarcityCacheTTLMin)*time.Minute, logger.Named("scarcity"))

    // Assignment engine with the deployment's search bounds and weights.
    engCfg := engine.DefaultConfig()
    engCfg.Limits = selector.Limits{
        KMax:            cfg.SelectorKMax,
        MaxWaste:        cfg.SelectorMaxWaste,
        MaxPlansPerTier: cfg.SelectorMaxPlansPerTier,
        MaxEvaluations:  cfg.SelectorMaxEvaluations,
    }
    engCfg.Weights = selector.Weights{
        Waste:         cfg.SelectorWeightWaste,
        TableCount:    cfg.SelectorWeightTableCount,
        Scarcity:      cfg.SelectorWeightScarcity,
        Fragmentation: cfg.SelectorWeightFragmentation,
        ZoneBalance:   cfg.SelectorWeightZoneBalance,
        Adjacency:     cfg.SelectorWeightAdjacency,
    }
    eng := engine.New(engineStore, scarcitySvc, engCfg, logger.Named("engine"))

    // Outbox queue with its event handlers.
    outboxQueue := outbox.NewQueue(outboxRepo, outbox.Config{
        BatchSize:   cfg.OutboxBatchSize,
        MaxAttempts: cfg.OutboxMaxAttempts,
        BaseDelay:   250 * time.Millisecond,
        MaxDelay:    30 * time.Second,
    }, logger.Named("outbox"))
    registerOutboxHandlers(outboxQueue, logger)

    // Commit strategies.  The atomic procedure is the default; the
    // orchestrator downgrades to direct insert once if the procedure
    // turns out to be missing.  ASSIGN_STRATEGY=direct skips the
    // procedure entirely.
    atomic := commit.NewAtomicProcedure(db, logger.Named("commit"))
    direct := commit.NewDirectInsert(allocationRepo, eng, logger.Named("commit"))
    var active commit.Strategy = atomic
    if cfg.AssignStrategy == config.StrategyDirect {
        active = direct
    }
    orchestrator := commit.NewOrchestrator(active, direct, outboxQueue, logger.Named("commit"))

    // Hold manager and session manager.
    holdMgr := hold.NewManager(holdRepo, time.Duration(cfg.HoldTTLMin)*time.Minute, logger.Named("hold"))
    sessionMgr := session.NewManager(sessionRepo, eng, holdMgr, orchestrator, session.Config{
        Enabled:    cfg.SessionsEnabled,
        SessionTTL: time.Duration(cfg.SessionTTLMin) * time.Minute,
        HoldTTL:    time.Duration(cfg.HoldTTLMin) * time.Minute,
    }, logger.Named("session"))

    // Background workers stop when the root context is cancelled.
    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    go outboxQueue.Run(ctx, time.Duration(cfg.OutboxPollIntervalSec)*time.Second)
    go runHoldSweeper(ctx, holdMgr, time.Duration(cfg.HoldSweepIntervalSec)*time.Second, logger)
    go runScarcityRecompute(ctx, scarcitySvc, restaurantRepo, time.Duration(cfg.ScarcityRecomputeMin)*time.Minute, logger)
    go func() {
        if err := queue.StartAssignmentConsumer(); err != nil {
            logger.Error("assignment consumer stopped", zap.Error(err))
        }
    }()

    // HTTP surface
    e := echo.New()
    e.HideBanner = true
    // Redis backed token bucket; a nil client turns it into a no-op.
    e.Use(appmiddleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
    router.RegisterRoutes(e) // health check
    router.RegisterAuth(e, handler.NewAuthHandler(cfg, userRepo))
    router.RegisterAssignment(e, handler.NewAssignmentHandler(eng, sessionMgr), cfg.JWTSecret)

    addr := ":" + cfg.Port                                // Address string with port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

    go func() {
        if err := e.Start(addr); err != nil {
            logger.Info("http server stopped", zap.Error(err))
        }
    }()

    <-ctx.Done()
    shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    if err := e.Shutdown(shutdownCtx); err != nil {
        logger.Error("shutdown", zap.Error(err))
    }
}

// registerOutboxHandlers binds the event types the commit path emits.
// Committed assignments are forwarded to the broker; fallback usage is
// only logged, it exists for reconciliation.
func registerOutboxHandlers(q *outbox.Queue, logger *zap.Logger) {
    q.Register(model.EventAssignmentCommitted, func(ctx context.Context, e *model.OutboxEvent) error {
        var p struct {
            BookingID    uint64   `json:"booking_id"`
            RestaurantID uint64   `json:"restaurant_id"`
            TableIDs     []uint64 `json:"table_ids"`
            MergeGroupID *string  `json:"merge_group_id"`
            Window       struct {
                Start time.Time `json:"start"`
                End   time.Time `json:"end"`
            } `json:"window"`
            Strategy string `json:"strategy"`
        }
        if err := json.Unmarshal(e.Payload, &p); err != nil {
            return err
        }
        ev := queue.AssignmentCommittedEvent{
            BookingID:    p.BookingID,
            RestaurantID: p.RestaurantID,
            TableIDs:     p.TableIDs,
            StartsAt:     p.Window.Start.UTC().Format(time.RFC3339),
            EndsAt:       p.Window.End.UTC().Format(time.RFC3339),
            Strategy:     p.Strategy,
            CommittedAt:  e.CreatedAt.UTC().Format(time.RFC3339),
        }
        if p.MergeGroupID != nil {
            ev.MergeGroupID = *p.MergeGroupID
        }
        return queuepublisher.PublishAssignmentCommitted(ctx, ev)
    })
    q.Register(model.EventAssignmentFallback, func(ctx context.Context, e *model.OutboxEvent) error {
        logger.Warn("assignment committed through fallback strategy",
            zap.Uint64("booking_id", e.BookingID),
            zap.Uint64("restaurant_id", e.RestaurantID))
        return nil
    })
}

// runHoldSweeper deletes expired holds on a fixed cadence so the live
// hold queries stay cheap.
func runHoldSweeper(ctx context.Context, mgr *hold.Manager, interval time.Duration, logger *zap.Logger) {
    t := time.NewTicker(interval)
    defer t.Stop()
    for {
        select {
        case <-ctx.Done():
            return
        case <-t.C:
            n, err := mgr.SweepExpired(ctx, 100)
            if err != nil {
                logger.Warn("hold sweep failed", zap.Error(err))
                continue
            }
            if n > 0 {
                logger.Info("swept expired holds", zap.Int64("count", n))
            }
        }
    }
}

// runScarcityRecompute refreshes the per-restaurant scarcity metrics.
func runScarcityRecompute(ctx context.Context, svc *scarcity.Service, restaurants *repository.RestaurantRepo, interval time.Duration, logger *zap.Logger) {
    t := time.NewTicker(interval)
    defer t.Stop()
    for {
        select {
        case <-ctx.Done():
            return
        case <-t.C:
            ids, err := restaurants.ListIDs(ctx)
            if err != nil {
                logger.Warn("list restaurants failed", zap.Error(err))
                continue
            }
            for _, id := range ids {
                if err := svc.Recompute(ctx, id); err != nil {
                    logger.Warn("scarcity recompute failed", zap.Uint64("restaurant_id", id), zap.Error(err))
                }
            }
        }
    }
}
