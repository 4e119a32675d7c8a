package worker

// retry_cron.go
// Background goroutine that periodically re-drives email jobs parked in the
// DLQ while the SMTP relay was down. Skips ticks while the breaker is open to
// avoid hammering a dead relay.

import (
	"context"
	"time"

	"github.com/AndresDiezT/alto-vivo-sub000/internal/infra"

	"github.com/rs/zerolog/log"
)

const (
	retryTickInterval = 30 * time.Second
	retryBatchSize    = 10
)

// EstadoCircuito reports the SMTP breaker state. Implemented by infra.Mailer.
type EstadoCircuito interface {
	State() infra.CBState
}

// RetryCronConfig holds all dependencies for the retry goroutine.
type RetryCronConfig struct {
	RDB     Cola
	Breaker EstadoCircuito
}

// StartRetryCron launches a background goroutine that ticks every 30s and
// moves a batch of DLQ email jobs back to QueueEmail. It respects the context
// for graceful shutdown.
func StartRetryCron(ctx context.Context, cfg RetryCronConfig) {
	go func() {
		ticker := time.NewTicker(retryTickInterval)
		defer ticker.Stop()

		log.Info().Msg("retry_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("retry_cron: shutting down")
				return
			case <-ticker.C:
				processRetries(ctx, cfg)
			}
		}
	}()
}

func processRetries(ctx context.Context, cfg RetryCronConfig) int {
	if cfg.Breaker != nil && cfg.Breaker.State() == infra.CBOpen {
		log.Debug().Msg("retry_cron: circuit breaker is open, skipping tick")
		return 0
	}
	moved, err := RequeueFromDLQ(ctx, cfg.RDB, QueueEmail, retryBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("retry_cron: requeue failed")
	}
	if moved > 0 {
		log.Info().Int("moved", moved).Msg("retry_cron: email jobs re-enqueued from DLQ")
	}
	return moved
}
