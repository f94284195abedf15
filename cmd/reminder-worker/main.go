package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/agroconnect/farm-scheduling/internal/config"
	"github.com/agroconnect/farm-scheduling/internal/db"
	"github.com/agroconnect/farm-scheduling/internal/logger"
	"github.com/agroconnect/farm-scheduling/internal/notify"
	"github.com/agroconnect/farm-scheduling/internal/qr"
	redisclient "github.com/agroconnect/farm-scheduling/internal/redis"
	"github.com/agroconnect/farm-scheduling/internal/scheduling"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config load error: " + err.Error())
	}

	log := logger.New(cfg.Env)
	defer func() { _ = log.Sync() }()

	log.Info("reminder-worker starting up",
		zap.String("env", cfg.Env), zap.Duration("interval", cfg.WorkerInterval))

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	log.Info("connected to Postgres")

	var notifier notify.Notifier
	if cfg.SMSGatewayURL != "" {
		notifier = notify.NewHTTPGateway(cfg.SMSGatewayURL, cfg.SMSAPIKey, cfg.SMSSender)
	} else {
		notifier = notify.NewLogNotifier(log)
	}

	repo := scheduling.NewPgRepository(pgPool)
	qrSvc := qr.NewService(cfg.FrontendBaseURL, cfg.QRRenderBaseURL)
	svc := scheduling.NewService(repo, redisclient.NewLocalLocker(), qrSvc, notifier, log)

	// Run once at startup
	runOnce(rootCtx, svc, log)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info("shutdown signal received, stopping reminder worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, log)
		}
	}
}

func runOnce(ctx context.Context, svc *scheduling.Service, log *zap.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	start := time.Now()
	n, err := svc.SendDailyReminders(runCtx)
	if err != nil {
		log.Error("reminder run error", zap.Error(err))
		return
	}
	log.Info("reminder run complete",
		zap.Int("reminders", n), zap.Duration("took", time.Since(start)))
}
