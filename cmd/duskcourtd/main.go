package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/duskcourt/server/internal/api"
	"github.com/duskcourt/server/internal/auth"
	"github.com/duskcourt/server/internal/config"
	"github.com/duskcourt/server/internal/engine"
	"github.com/duskcourt/server/internal/game"
	"github.com/duskcourt/server/internal/observability"
	"github.com/duskcourt/server/internal/queue"
	"github.com/duskcourt/server/internal/realtime"
	"github.com/duskcourt/server/internal/room"
	"github.com/duskcourt/server/internal/store"

	_ "github.com/duskcourt/server/docs"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("warning: .env file not found")
	}

	cfg := config.Load()
	logger, err := observability.SetupLogger()
	if err != nil {
		log.Fatalf("cannot init logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.ConnectMySQL(cfg.DBDSN)
	var st *store.Store
	if err != nil {
		logger.Warn("cannot connect db, falling back to in-memory mode", zap.Error(err))
		st = store.NewMemoryStore()
	} else {
		defer db.Close()
		st = store.New(db)
	}

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer.(*prometheus.Registry))
	jwtMgr := auth.NewJWTManager(cfg.JWTSecret, 24*time.Hour)

	// Write-behind persistence rides RabbitMQ when configured; without
	// it the room actors write to the store directly.
	var taskQueue *queue.Queue
	if cfg.RabbitMQURL != "" {
		taskQueue, err = queue.New(queue.Config{
			URL:       cfg.RabbitMQURL,
			QueueName: "duskcourt_persist",
			Prefetch:  10,
			Logger:    observability.ZapToSlog(logger),
		})
		if err != nil {
			logger.Warn("cannot connect to RabbitMQ, persisting inline", zap.Error(err))
			taskQueue = nil
		} else {
			queue.RegisterPersistenceHandlers(taskQueue, st)
			if err := taskQueue.Start(ctx); err != nil {
				logger.Error("cannot start task queue", zap.Error(err))
			}
			defer taskQueue.Close()
		}
	}

	roomMgr := room.NewRoomManager(ctx, st, taskQueue, logger, metrics, room.Options{
		SnapshotInterval: cfg.SnapshotInterval,
		DisconnectGrace:  cfg.DisconnectGraceSec,
		Budgets:          phaseBudgets(cfg),
		SeedOverride:     cfg.SeedOverride,
	})
	defer roomMgr.Close()

	wsServer := realtime.NewWSServer(jwtMgr, st, roomMgr, logger, metrics)
	server := api.NewServer(st, jwtMgr, roomMgr, wsServer, logger)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: server.Router}
	go func() {
		logger.Info("starting server", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	waitForShutdown(srv, logger)
}

func phaseBudgets(cfg config.Config) engine.PhaseBudgets {
	return engine.PhaseBudgets{
		game.PhaseBriefing:   cfg.BriefingSec,
		game.PhaseObituary:   cfg.ObituarySec,
		game.PhaseDiscussion: cfg.DiscussionSec,
		game.PhaseNomination: cfg.NominationSec,
		game.PhaseTestimony:  cfg.TestimonySec,
		game.PhaseJudgement:  cfg.JudgementSec,
		game.PhaseFinalWords: cfg.FinalWordsSec,
		game.PhaseDusk:       cfg.DuskSec,
		game.PhaseNight:      cfg.NightSec,
	}
}

func waitForShutdown(srv *http.Server, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)
}
