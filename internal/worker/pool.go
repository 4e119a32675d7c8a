package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AndresDiezT/alto-vivo-sub000/internal/infra"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueCierreCaja = "jobs:cierre_caja"
	QueueEmail      = "jobs:email"

	JobCierreCaja = "cierre_caja"
	JobEmail      = "email"

	// maxAttempts is how many times a job runs before it goes to the DLQ.
	maxAttempts = 3
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// Cola is the subset of the Redis client the queue needs.
type Cola interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	BRPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
	RPop(ctx context.Context, key string) *redis.StringCmd
	LLen(ctx context.Context, key string) *redis.IntCmd
}

// Handler processes one job payload. A returned error schedules a retry.
type Handler interface {
	Process(ctx context.Context, raw json.RawMessage) error
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb Cola
}

func NewDispatcher(rdb Cola) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// CierreCajaPayload asks for the closing report of a session.
type CierreCajaPayload struct {
	SesionCajaID string `json:"sesion_caja_id"`
}

// EncolarCierreCaja pushes a closing-report job to Redis.
func (d *Dispatcher) EncolarCierreCaja(ctx context.Context, sesionID uuid.UUID) error {
	return d.enqueue(ctx, QueueCierreCaja, JobCierreCaja, CierreCajaPayload{SesionCajaID: sesionID.String()})
}

// EnqueueEmail pushes an email job to Redis.
func (d *Dispatcher) EnqueueEmail(ctx context.Context, payload EmailJobPayload) error {
	return d.enqueue(ctx, QueueEmail, JobEmail, payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return d.push(ctx, queue, Job{Type: jobType, Payload: data})
}

func (d *Dispatcher) push(ctx context.Context, queue string, job Job) error {
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// Pool consumes the job queues with a fixed number of goroutines.
type Pool struct {
	rdb        Cola
	dispatcher *Dispatcher
	handlers   map[string]Handler
	queues     []string
}

// NewPool routes each job type to its handler. Queues are consumed in the
// order given, so earlier queues take priority.
func NewPool(rdb Cola, handlers map[string]Handler, queues ...string) *Pool {
	return &Pool{rdb: rdb, dispatcher: NewDispatcher(rdb), handlers: handlers, queues: queues}
}

// Start launches numWorkers goroutines. Each blocks on BRPOP, zero CPU when idle.
func (p *Pool) Start(ctx context.Context, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		go p.runWorker(ctx, i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func (p *Pool) runWorker(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop: waits up to 5s then loops to check ctx
			result, err := p.rdb.BRPop(ctx, 5*time.Second, p.queues...).Result()
			if err != nil {
				continue // timeout or context cancelled
			}
			if len(result) < 2 {
				continue
			}
			p.processJob(ctx, result[0], result[1])
		}
	}
}

// processJob runs one job. Failures are re-enqueued until maxAttempts, then
// moved to the dead letter queue. Panics in handlers are contained.
func (p *Pool) processJob(ctx context.Context, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		SendToDLQ(ctx, p.rdb, queue, "desconocido", json.RawMessage(raw), "payload ilegible: "+err.Error(), 0)
		return
	}
	handler, ok := p.handlers[job.Type]
	if !ok {
		log.Error().Str("type", job.Type).Str("queue", queue).Msg("no handler for job type")
		SendToDLQ(ctx, p.rdb, queue, job.Type, job.Payload, "tipo de job sin handler", job.Attempts)
		return
	}

	job.Attempts++
	err := runHandler(ctx, handler, job.Payload)
	if err == nil {
		infra.JobsTotal.WithLabelValues(job.Type, "ok").Inc()
		log.Info().Str("type", job.Type).Int("attempt", job.Attempts).Msg("job processed")
		return
	}

	if job.Attempts >= maxAttempts {
		infra.JobsTotal.WithLabelValues(job.Type, "dlq").Inc()
		SendToDLQ(ctx, p.rdb, queue, job.Type, job.Payload, err.Error(), job.Attempts)
		return
	}
	infra.JobsTotal.WithLabelValues(job.Type, "retry").Inc()
	log.Warn().Err(err).Str("type", job.Type).Int("attempt", job.Attempts).Msg("job failed, re-enqueued")
	if pushErr := p.dispatcher.push(ctx, queue, job); pushErr != nil {
		log.Error().Err(pushErr).Str("type", job.Type).Msg("failed to re-enqueue job")
	}
}

func runHandler(ctx context.Context, h Handler, payload json.RawMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h.Process(ctx, payload)
}
