package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/AndresDiezT/alto-vivo-sub000/internal/apierror"
	"github.com/AndresDiezT/alto-vivo-sub000/internal/infra"
	"github.com/AndresDiezT/alto-vivo-sub000/internal/model"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memCola keeps Redis lists in memory. Index 0 is the head (LPUSH side).
type memCola struct {
	lists map[string][]string
}

func newMemCola() *memCola { return &memCola{lists: map[string][]string{}} }

func (m *memCola) LPush(_ context.Context, key string, values ...interface{}) *redis.IntCmd {
	for _, v := range values {
		var s string
		switch x := v.(type) {
		case []byte:
			s = string(x)
		case string:
			s = x
		}
		m.lists[key] = append([]string{s}, m.lists[key]...)
	}
	return redis.NewIntResult(int64(len(m.lists[key])), nil)
}

func (m *memCola) BRPop(ctx context.Context, _ time.Duration, keys ...string) *redis.StringSliceCmd {
	for _, k := range keys {
		if v, err := m.RPop(ctx, k).Result(); err == nil {
			return redis.NewStringSliceResult([]string{k, v}, nil)
		}
	}
	return redis.NewStringSliceResult(nil, redis.Nil)
}

func (m *memCola) RPop(_ context.Context, key string) *redis.StringCmd {
	l := m.lists[key]
	if len(l) == 0 {
		return redis.NewStringResult("", redis.Nil)
	}
	v := l[len(l)-1]
	m.lists[key] = l[:len(l)-1]
	return redis.NewStringResult(v, nil)
}

func (m *memCola) LLen(_ context.Context, key string) *redis.IntCmd {
	return redis.NewIntResult(int64(len(m.lists[key])), nil)
}

func (m *memCola) pop(t *testing.T, key string) Job {
	t.Helper()
	raw, err := m.RPop(context.Background(), key).Result()
	require.NoError(t, err)
	var job Job
	require.NoError(t, json.Unmarshal([]byte(raw), &job))
	return job
}

func (m *memCola) dlq(t *testing.T, queue string) []DLQEntry {
	t.Helper()
	var out []DLQEntry
	for _, raw := range m.lists[DLQPrefix+queue] {
		var e DLQEntry
		require.NoError(t, json.Unmarshal([]byte(raw), &e))
		out = append(out, e)
	}
	return out
}

type handlerFunc func(ctx context.Context, raw json.RawMessage) error

func (f handlerFunc) Process(ctx context.Context, raw json.RawMessage) error { return f(ctx, raw) }

// ── Dispatcher / Pool ─────────────────────────────────────────────────────────

func TestEncolarCierreCaja(t *testing.T) {
	cola := newMemCola()
	sesionID := uuid.New()

	require.NoError(t, NewDispatcher(cola).EncolarCierreCaja(context.Background(), sesionID))

	job := cola.pop(t, QueueCierreCaja)
	assert.Equal(t, JobCierreCaja, job.Type)
	assert.Zero(t, job.Attempts)
	var p CierreCajaPayload
	require.NoError(t, json.Unmarshal(job.Payload, &p))
	assert.Equal(t, sesionID.String(), p.SesionCajaID)
}

func TestProcessJob_Exito(t *testing.T) {
	cola := newMemCola()
	var recibido EmailJobPayload
	pool := NewPool(cola, map[string]Handler{
		JobEmail: handlerFunc(func(_ context.Context, raw json.RawMessage) error {
			return json.Unmarshal(raw, &recibido)
		}),
	}, QueueEmail)

	require.NoError(t, pool.dispatcher.EnqueueEmail(context.Background(), EmailJobPayload{ToEmail: "caja@example.com"}))
	res, err := cola.BRPop(context.Background(), time.Second, QueueEmail).Result()
	require.NoError(t, err)
	pool.processJob(context.Background(), res[0], res[1])

	assert.Equal(t, "caja@example.com", recibido.ToEmail)
	assert.Empty(t, cola.lists[QueueEmail])
	assert.Empty(t, cola.lists[DLQPrefix+QueueEmail])
}

func TestProcessJob_ReintentosYDLQ(t *testing.T) {
	cola := newMemCola()
	llamadas := 0
	pool := NewPool(cola, map[string]Handler{
		JobCierreCaja: handlerFunc(func(context.Context, json.RawMessage) error {
			llamadas++
			return errors.New("pdf: disco lleno")
		}),
	}, QueueCierreCaja)
	ctx := context.Background()

	require.NoError(t, pool.dispatcher.EncolarCierreCaja(ctx, uuid.New()))
	for i := 1; i < maxAttempts; i++ {
		raw, err := cola.RPop(ctx, QueueCierreCaja).Result()
		require.NoError(t, err)
		pool.processJob(ctx, QueueCierreCaja, raw)

		require.Len(t, cola.lists[QueueCierreCaja], 1, "re-enqueued after attempt %d", i)
		var job Job
		require.NoError(t, json.Unmarshal([]byte(cola.lists[QueueCierreCaja][0]), &job))
		assert.Equal(t, i, job.Attempts)
	}

	raw, err := cola.RPop(ctx, QueueCierreCaja).Result()
	require.NoError(t, err)
	pool.processJob(ctx, QueueCierreCaja, raw)

	assert.Equal(t, maxAttempts, llamadas)
	assert.Empty(t, cola.lists[QueueCierreCaja])
	dlq := cola.dlq(t, QueueCierreCaja)
	require.Len(t, dlq, 1)
	assert.Equal(t, JobCierreCaja, dlq[0].JobType)
	assert.Equal(t, maxAttempts, dlq[0].Attempts)
	assert.Equal(t, "pdf: disco lleno", dlq[0].Reason)
}

func TestProcessJob_PanicSeReintenta(t *testing.T) {
	cola := newMemCola()
	pool := NewPool(cola, map[string]Handler{
		JobEmail: handlerFunc(func(context.Context, json.RawMessage) error { panic("nil mailer") }),
	}, QueueEmail)
	ctx := context.Background()

	require.NoError(t, pool.dispatcher.EnqueueEmail(ctx, EmailJobPayload{ToEmail: "x@example.com"}))
	raw, _ := cola.RPop(ctx, QueueEmail).Result()
	assert.NotPanics(t, func() { pool.processJob(ctx, QueueEmail, raw) })

	job := cola.pop(t, QueueEmail)
	assert.Equal(t, 1, job.Attempts)
}

func TestProcessJob_SinHandlerOIlegible(t *testing.T) {
	cola := newMemCola()
	pool := NewPool(cola, map[string]Handler{}, QueueEmail)
	ctx := context.Background()

	pool.processJob(ctx, QueueEmail, `{"type":"factura","payload":{}}`)
	pool.processJob(ctx, QueueEmail, `no es json`)

	dlq := cola.dlq(t, QueueEmail)
	require.Len(t, dlq, 2)
	assert.Equal(t, "desconocido", dlq[0].JobType)
	assert.Equal(t, "factura", dlq[1].JobType)
}

// ── DLQ / retry cron ──────────────────────────────────────────────────────────

func TestRequeueFromDLQ(t *testing.T) {
	cola := newMemCola()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		SendToDLQ(ctx, cola, QueueEmail, JobEmail, json.RawMessage(`{"to_email":"a@example.com"}`), "smtp caído", maxAttempts)
	}
	require.NoError(t, cola.LPush(ctx, DLQPrefix+QueueEmail, "basura").Err())

	n, err := DLQLength(ctx, cola, QueueEmail)
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)

	moved, err := RequeueFromDLQ(ctx, cola, QueueEmail, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, moved)
	assert.Len(t, cola.lists[QueueEmail], 2)
	assert.Zero(t, cola.pop(t, QueueEmail).Attempts, "requeued jobs start over")

	moved, err = RequeueFromDLQ(ctx, cola, QueueEmail, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, moved, "unreadable entries are dropped")
	assert.Empty(t, cola.lists[DLQPrefix+QueueEmail])
}

type breakerFijo infra.CBState

func (b breakerFijo) State() infra.CBState { return infra.CBState(b) }

func TestProcessRetries(t *testing.T) {
	cola := newMemCola()
	ctx := context.Background()
	SendToDLQ(ctx, cola, QueueEmail, JobEmail, json.RawMessage(`{}`), "smtp caído", maxAttempts)

	assert.Zero(t, processRetries(ctx, RetryCronConfig{RDB: cola, Breaker: breakerFijo(infra.CBOpen)}))
	assert.Len(t, cola.lists[DLQPrefix+QueueEmail], 1)

	assert.Equal(t, 1, processRetries(ctx, RetryCronConfig{RDB: cola, Breaker: breakerFijo(infra.CBClosed)}))
	assert.Len(t, cola.lists[QueueEmail], 1)
}

// ── EmailWorker ───────────────────────────────────────────────────────────────

type enviadorFake struct {
	err      error
	enviados []EmailJobPayload
}

func (e *enviadorFake) SendReporte(to, subject, body, pdfPath string) error {
	if e.err != nil {
		return e.err
	}
	e.enviados = append(e.enviados, EmailJobPayload{ToEmail: to, Subject: subject, Body: body, PDFPath: pdfPath})
	return nil
}

func TestEmailWorker(t *testing.T) {
	mailer := &enviadorFake{}
	w := NewEmailWorker(mailer)
	ctx := context.Background()

	raw, _ := json.Marshal(EmailJobPayload{ToEmail: "dueño@example.com", Subject: "Cierre", PDFPath: "/tmp/z.pdf"})
	require.NoError(t, w.Process(ctx, raw))
	require.Len(t, mailer.enviados, 1)
	assert.Equal(t, "/tmp/z.pdf", mailer.enviados[0].PDFPath)

	require.NoError(t, w.Process(ctx, json.RawMessage(`{"subject":"sin destinatario"}`)))
	assert.Len(t, mailer.enviados, 1)

	assert.Error(t, w.Process(ctx, json.RawMessage(`[`)))

	mailer.err = infra.ErrCircuitOpen
	err := w.Process(ctx, raw)
	assert.ErrorIs(t, err, infra.ErrCircuitOpen)
}

// ── CierreCajaWorker ──────────────────────────────────────────────────────────

type fuenteFake map[uuid.UUID]*model.SesionCaja

func (f fuenteFake) SesionCerrada(_ context.Context, id uuid.UUID) (*model.SesionCaja, int64, error) {
	s, ok := f[id]
	if !ok {
		return nil, 0, apierror.NotFound("sesión de caja no encontrada")
	}
	return s, 3, nil
}

func TestCierreCajaWorker(t *testing.T) {
	d := func(s string) *decimal.Decimal { v := decimal.RequireFromString(s); return &v }
	cerrada := &model.SesionCaja{
		ID: uuid.New(), CajaID: uuid.New(), Estado: model.SesionCerrada,
		MontoEsperado: d("7700"), MontoCierre: d("7650"), Diferencia: d("-50"),
		Caja: &model.Caja{Nombre: "Caja 1"},
	}
	abierta := &model.SesionCaja{ID: uuid.New(), CajaID: uuid.New(), Estado: model.SesionAbierta}
	fuente := fuenteFake{cerrada.ID: cerrada, abierta.ID: abierta}

	var generados []uuid.UUID
	generar := func(s *model.SesionCaja, cant int64, dir string) (string, error) {
		assert.EqualValues(t, 3, cant)
		generados = append(generados, s.ID)
		return dir + "/cierre_" + s.ID.String() + ".pdf", nil
	}
	cola := newMemCola()
	w := NewCierreCajaWorker(fuente, generar, NewDispatcher(cola), "/tmp/reportes", "dueño@example.com")
	ctx := context.Background()
	payload := func(id string) json.RawMessage {
		raw, _ := json.Marshal(CierreCajaPayload{SesionCajaID: id})
		return raw
	}

	require.NoError(t, w.Process(ctx, payload(cerrada.ID.String())))
	assert.Equal(t, []uuid.UUID{cerrada.ID}, generados)
	job := cola.pop(t, QueueEmail)
	assert.Equal(t, JobEmail, job.Type)
	var email EmailJobPayload
	require.NoError(t, json.Unmarshal(job.Payload, &email))
	assert.Equal(t, "Cierre de caja Caja 1", email.Subject)
	assert.Contains(t, email.Body, "Diferencia: $-50.00")
	assert.Equal(t, "/tmp/reportes/cierre_"+cerrada.ID.String()+".pdf", email.PDFPath)

	// open sessions and malformed ids are dropped without retry
	require.NoError(t, w.Process(ctx, payload(abierta.ID.String())))
	require.NoError(t, w.Process(ctx, payload("no-uuid")))
	assert.Len(t, generados, 1)

	// a missing session is retried
	assert.ErrorIs(t, w.Process(ctx, payload(uuid.NewString())), apierror.ErrNotFound)
}

func TestCierreCajaWorker_SinDestinatario(t *testing.T) {
	s := &model.SesionCaja{ID: uuid.New(), Estado: model.SesionCerrada}
	cola := newMemCola()
	w := NewCierreCajaWorker(fuenteFake{s.ID: s}, func(*model.SesionCaja, int64, string) (string, error) {
		return "/tmp/z.pdf", nil
	}, NewDispatcher(cola), "/tmp", "")

	raw, _ := json.Marshal(CierreCajaPayload{SesionCajaID: s.ID.String()})
	require.NoError(t, w.Process(context.Background(), raw))
	assert.Empty(t, cola.lists[QueueEmail])
}

// ── Scheduler ─────────────────────────────────────────────────────────────────

type vencidosFake struct {
	err     error
	llamado bool
}

func (v *vencidosFake) ProcesarVencidosTodos(_ context.Context, _ time.Time) (int, error) {
	v.llamado = true
	return 2, v.err
}

func TestEjecutarVencidos(t *testing.T) {
	for _, err := range []error{nil, apierror.ConcurrencyConflict("lock ocupado"), errors.New("db caída")} {
		v := &vencidosFake{err: err}
		assert.NotPanics(t, func() { ejecutarVencidos(v) })
		assert.True(t, v.llamado)
	}
}

func TestStartScheduler_HoraInvalida(t *testing.T) {
	_, err := StartScheduler(SchedulerConfig{HoraVencidos: "25:99", HoraMorosidad: "03:00", Vencidos: &vencidosFake{}})
	assert.Error(t, err)
}
