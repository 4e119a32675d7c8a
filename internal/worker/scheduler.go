package worker

// scheduler.go
// Daily jobs on gocron: expired-lot write-off and the delinquency refresh.
// Every instance schedules them; the expired-lot batch takes a Redis lock so
// only one instance does the work.

import (
	"context"
	"errors"
	"time"

	"github.com/AndresDiezT/alto-vivo-sub000/internal/apierror"
	"github.com/AndresDiezT/alto-vivo-sub000/internal/infra"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog/log"
)

const scheduledJobTimeout = 10 * time.Minute

// ProcesadorVencidos is satisfied by service.InventarioService.
type ProcesadorVencidos interface {
	ProcesarVencidosTodos(ctx context.Context, now time.Time) (int, error)
}

// RefrescadorMorosidad is satisfied by service.CarteraService.
type RefrescadorMorosidad interface {
	RefrescarMorosidad(ctx context.Context, now time.Time) (int, error)
}

// SchedulerConfig holds the daily run times ("HH:MM") and the jobs.
type SchedulerConfig struct {
	Location      *time.Location
	HoraVencidos  string
	HoraMorosidad string
	Vencidos      ProcesadorVencidos
	Morosidad     RefrescadorMorosidad
}

// StartScheduler registers the daily jobs and starts the scheduler in the
// background. Call Stop on the returned scheduler during shutdown.
func StartScheduler(cfg SchedulerConfig) (*gocron.Scheduler, error) {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	s := gocron.NewScheduler(loc)
	s.SingletonModeAll()

	if _, err := s.Every(1).Day().At(cfg.HoraVencidos).Do(func() {
		ejecutarVencidos(cfg.Vencidos)
	}); err != nil {
		return nil, err
	}
	if _, err := s.Every(1).Day().At(cfg.HoraMorosidad).Do(func() {
		ejecutarMorosidad(cfg.Morosidad)
	}); err != nil {
		return nil, err
	}

	s.StartAsync()
	log.Info().
		Str("vencidos", cfg.HoraVencidos).
		Str("morosidad", cfg.HoraMorosidad).
		Msg("scheduler started")
	return s, nil
}

func ejecutarVencidos(p ProcesadorVencidos) {
	ctx, cancel := context.WithTimeout(context.Background(), scheduledJobTimeout)
	defer cancel()

	n, err := p.ProcesarVencidosTodos(ctx, time.Now())
	switch {
	case errors.Is(err, apierror.ErrConcurrencyConflict):
		// another instance holds the lock
		infra.JobsTotal.WithLabelValues("vencidos", "skipped").Inc()
		log.Info().Msg("scheduler: vencidos already running elsewhere")
	case err != nil:
		infra.JobsTotal.WithLabelValues("vencidos", "error").Inc()
		log.Error().Err(err).Int("procesados", n).Msg("scheduler: vencidos failed")
	default:
		infra.JobsTotal.WithLabelValues("vencidos", "ok").Inc()
	}
}

func ejecutarMorosidad(r RefrescadorMorosidad) {
	ctx, cancel := context.WithTimeout(context.Background(), scheduledJobTimeout)
	defer cancel()

	if _, err := r.RefrescarMorosidad(ctx, time.Now()); err != nil {
		infra.JobsTotal.WithLabelValues("morosidad", "error").Inc()
		log.Error().Err(err).Msg("scheduler: morosidad failed")
		return
	}
	infra.JobsTotal.WithLabelValues("morosidad", "ok").Inc()
}
