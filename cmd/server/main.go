package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AndresDiezT/alto-vivo-sub000/internal/config"
	"github.com/AndresDiezT/alto-vivo-sub000/internal/infra"
	"github.com/AndresDiezT/alto-vivo-sub000/internal/middleware"
	"github.com/AndresDiezT/alto-vivo-sub000/internal/repository"
	"github.com/AndresDiezT/alto-vivo-sub000/internal/router"
	"github.com/AndresDiezT/alto-vivo-sub000/internal/worker"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: dev pretty, prod JSON
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.Env != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	infra.RegisterMetrics(prometheus.DefaultRegisterer)
	middleware.RegisterMetrics(prometheus.DefaultRegisterer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mailer := infra.NewMailer(cfg)
	dispatcher := worker.NewDispatcher(rdb)
	svcs := router.NewServices(cfg, db, infra.NewLocker(rdb), dispatcher)

	// Worker handlers are wired here (composition root) so the pool gets the
	// infrastructure without the worker package importing the services.
	fuente := worker.NewFuenteCierre(repository.NewCajaRepository(db), repository.NewVentaRepository(db))
	pool := worker.NewPool(rdb, map[string]worker.Handler{
		worker.JobCierreCaja: worker.NewCierreCajaWorker(fuente, infra.GenerateCierreCajaPDF, dispatcher, cfg.PDFStoragePath, cfg.ReporteCierreEmail),
		worker.JobEmail:      worker.NewEmailWorker(mailer),
	}, worker.QueueCierreCaja, worker.QueueEmail)
	pool.Start(ctx, cfg.WorkerPoolSize)

	worker.StartRetryCron(ctx, worker.RetryCronConfig{RDB: rdb, Breaker: mailer})

	scheduler, err := worker.StartScheduler(worker.SchedulerConfig{
		HoraVencidos:  cfg.CronVencidos,
		HoraMorosidad: cfg.CronMorosidad,
		Vencidos:      svcs.Inventario,
		Morosidad:     svcs.Cartera,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}

	r := router.New(cfg, db, rdb, mailer, svcs)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("alto-vivo backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	scheduler.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	if err := rdb.Close(); err != nil {
		log.Warn().Err(err).Msg("redis close")
	}
	log.Info().Msg("server exited")
}
