package service

import (
	"bytes"
	"context"
	"maps"
	"slices"
	"sort"
	"testing"
	"time"

	"github.com/AndresDiezT/alto-vivo-sub000/internal/apierror"
	"github.com/AndresDiezT/alto-vivo-sub000/internal/model"
	"github.com/AndresDiezT/alto-vivo-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// memStore is an in-memory stand-in for PostgreSQL. RunInTx snapshots every
// table and restores the snapshot when fn fails, which is all the services
// rely on from a real transaction in single-goroutine tests.
type memStore struct {
	presentaciones map[uuid.UUID]model.Presentacion
	almacenes      map[uuid.UUID]model.Almacen
	metodos        map[uuid.UUID]model.MetodoPago
	cajas          map[uuid.UUID]model.Caja
	sesiones       map[uuid.UUID]model.SesionCaja
	movsCaja       []model.MovimientoCaja
	clientes       map[uuid.UUID]model.Cliente
	proveedores    map[uuid.UUID]model.Proveedor
	movsCredito    []model.MovimientoCredito
	stock          map[parStock]model.StockPresentacion
	movsStock      []model.MovimientoStock
	lotes          map[uuid.UUID]model.Lote
	ventas         map[uuid.UUID]model.Venta
	ticket         int
	seq            int

	// failNextTx makes the next RunInTx fail after fn succeeded, like a
	// serialization failure at COMMIT.
	failNextTx error
}

type parStock struct{ presentacion, almacen uuid.UUID }

var baseTime = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newMemStore() *memStore {
	return &memStore{
		presentaciones: map[uuid.UUID]model.Presentacion{},
		almacenes:      map[uuid.UUID]model.Almacen{},
		metodos:        map[uuid.UUID]model.MetodoPago{},
		cajas:          map[uuid.UUID]model.Caja{},
		sesiones:       map[uuid.UUID]model.SesionCaja{},
		clientes:       map[uuid.UUID]model.Cliente{},
		proveedores:    map[uuid.UUID]model.Proveedor{},
		stock:          map[parStock]model.StockPresentacion{},
		lotes:          map[uuid.UUID]model.Lote{},
		ventas:         map[uuid.UUID]model.Venta{},
	}
}

// tick returns a strictly increasing timestamp used as created_at.
func (m *memStore) tick() time.Time {
	m.seq++
	return baseTime.Add(time.Duration(m.seq) * time.Second)
}

func (m *memStore) snapshot() *memStore {
	c := *m
	c.presentaciones = maps.Clone(m.presentaciones)
	c.almacenes = maps.Clone(m.almacenes)
	c.metodos = maps.Clone(m.metodos)
	c.cajas = maps.Clone(m.cajas)
	c.sesiones = maps.Clone(m.sesiones)
	c.movsCaja = slices.Clone(m.movsCaja)
	c.clientes = maps.Clone(m.clientes)
	c.proveedores = maps.Clone(m.proveedores)
	c.movsCredito = slices.Clone(m.movsCredito)
	c.stock = maps.Clone(m.stock)
	c.movsStock = slices.Clone(m.movsStock)
	c.lotes = maps.Clone(m.lotes)
	c.ventas = maps.Clone(m.ventas)
	return &c
}

func (m *memStore) restore(s *memStore) {
	fail := m.failNextTx
	*m = *s
	m.failNextTx = fail
}

// ── Transactor ────────────────────────────────────────────────────────────────

type memTx struct{ m *memStore }

func (t memTx) RunInTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	snap := t.m.snapshot()
	err := fn(nil)
	if err == nil && t.m.failNextTx != nil {
		err, t.m.failNextTx = t.m.failNextTx, nil
	}
	if err != nil {
		t.m.restore(snap)
	}
	return err
}

// ── Catalogo ──────────────────────────────────────────────────────────────────

type memCatalogo struct{ m *memStore }

func (r memCatalogo) FindPresentaciones(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]model.Presentacion, error) {
	out := map[uuid.UUID]model.Presentacion{}
	for _, id := range ids {
		if p, ok := r.m.presentaciones[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (r memCatalogo) FindPresentacionPorCodigo(_ context.Context, negocioID uuid.UUID, codigo string) (*model.Presentacion, error) {
	for _, p := range r.m.presentaciones {
		if p.NegocioID == negocioID && p.CodigoBarras != nil && *p.CodigoBarras == codigo && p.Activo {
			return &p, nil
		}
	}
	return nil, apierror.NotFound("presentación no encontrada")
}

func (r memCatalogo) FindAlmacen(_ context.Context, id uuid.UUID) (*model.Almacen, error) {
	a, ok := r.m.almacenes[id]
	if !ok {
		return nil, apierror.NotFound("almacén no encontrado")
	}
	return &a, nil
}

func (r memCatalogo) FindAlmacenPorDefecto(_ context.Context, negocioID uuid.UUID) (*model.Almacen, error) {
	for _, a := range r.m.almacenes {
		if a.NegocioID == negocioID && a.PorDefecto && a.Activo {
			return &a, nil
		}
	}
	return nil, apierror.NotFound("el negocio no tiene almacén por defecto")
}

func (r memCatalogo) FindMetodosPago(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]model.MetodoPago, error) {
	out := map[uuid.UUID]model.MetodoPago{}
	for _, id := range ids {
		if mp, ok := r.m.metodos[id]; ok {
			out[id] = mp
		}
	}
	return out, nil
}

// ── Caja ──────────────────────────────────────────────────────────────────────

type memCaja struct{ m *memStore }

func (r memCaja) FindCaja(_ context.Context, id uuid.UUID) (*model.Caja, error) {
	c, ok := r.m.cajas[id]
	if !ok {
		return nil, apierror.NotFound("caja no encontrada")
	}
	return &c, nil
}

// CreateSesionTx mirrors idx_sesiones_caja_abierta as translated by ClassifyError.
func (r memCaja) CreateSesionTx(_ context.Context, _ *gorm.DB, s *model.SesionCaja) error {
	for _, o := range r.m.sesiones {
		if o.CajaID == s.CajaID && o.Estado == model.SesionAbierta {
			return apierror.SessionAlreadyOpen(s.CajaID)
		}
	}
	r.m.sesiones[s.ID] = *s
	return nil
}

func (r memCaja) FindSesionAbiertaPorCajaTx(_ context.Context, _ *gorm.DB, cajaID uuid.UUID) (*model.SesionCaja, error) {
	for _, s := range r.m.sesiones {
		if s.CajaID == cajaID && s.Estado == model.SesionAbierta {
			return &s, nil
		}
	}
	return nil, nil
}

func (r memCaja) ListSesionesAbiertasPorAlmacenTx(_ context.Context, _ *gorm.DB, almacenID uuid.UUID) ([]model.SesionCaja, error) {
	var out []model.SesionCaja
	for _, s := range r.m.sesiones {
		if s.Estado == model.SesionAbierta && r.m.cajas[s.CajaID].AlmacenID == almacenID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0 })
	return out, nil
}

func (r memCaja) FindSesionByID(_ context.Context, id uuid.UUID) (*model.SesionCaja, error) {
	s, ok := r.m.sesiones[id]
	if !ok {
		return nil, apierror.NotFound("sesión de caja no encontrada")
	}
	return &s, nil
}

func (r memCaja) FindSesionForUpdateTx(ctx context.Context, _ *gorm.DB, id uuid.UUID) (*model.SesionCaja, error) {
	return r.FindSesionByID(ctx, id)
}

func (r memCaja) UpdateSesionTx(_ context.Context, _ *gorm.DB, s *model.SesionCaja) error {
	c := *s
	c.Movimientos = nil
	r.m.sesiones[s.ID] = c
	return nil
}

func (r memCaja) ListSesiones(_ context.Context, cajaID uuid.UUID, page, limit int) ([]model.SesionCaja, int64, error) {
	var all []model.SesionCaja
	for _, s := range r.m.sesiones {
		if s.CajaID == cajaID {
			all = append(all, s)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].AbiertaAt.After(all[j].AbiertaAt) })
	return paginar(all, page, limit), int64(len(all)), nil
}

func (r memCaja) CreateMovimientoTx(_ context.Context, _ *gorm.DB, mov *model.MovimientoCaja) error {
	mov.CreatedAt = r.m.tick()
	r.m.movsCaja = append(r.m.movsCaja, *mov)
	return nil
}

func (r memCaja) ListMovimientos(_ context.Context, sesionCajaID uuid.UUID) ([]model.MovimientoCaja, error) {
	var out []model.MovimientoCaja
	for _, mov := range r.m.movsCaja {
		if mov.SesionCajaID == sesionCajaID {
			out = append(out, mov)
		}
	}
	return out, nil
}

func (r memCaja) SumMovimientosTx(_ context.Context, _ *gorm.DB, sesionCajaID uuid.UUID) (decimal.Decimal, decimal.Decimal, error) {
	ingresos, egresos := decimal.Zero, decimal.Zero
	for _, mov := range r.m.movsCaja {
		if mov.SesionCajaID != sesionCajaID {
			continue
		}
		if mov.Tipo == model.MovCajaIngreso {
			ingresos = ingresos.Add(mov.Monto)
		} else {
			egresos = egresos.Add(mov.Monto)
		}
	}
	return ingresos, egresos, nil
}

// ── Cartera ───────────────────────────────────────────────────────────────────

type memCartera struct{ m *memStore }

func (r memCartera) FindCliente(_ context.Context, id uuid.UUID) (*model.Cliente, error) {
	c, ok := r.m.clientes[id]
	if !ok {
		return nil, apierror.NotFound("cliente no encontrado")
	}
	return &c, nil
}

func (r memCartera) FindClienteForUpdateTx(ctx context.Context, _ *gorm.DB, id uuid.UUID) (*model.Cliente, error) {
	return r.FindCliente(ctx, id)
}

func (r memCartera) UpdateClienteTx(_ context.Context, _ *gorm.DB, c *model.Cliente) error {
	r.m.clientes[c.ID] = *c
	return nil
}

func (r memCartera) ListClientesConSaldo(_ context.Context) ([]model.Cliente, error) {
	var out []model.Cliente
	for _, c := range r.m.clientes {
		if !c.SaldoActual.IsZero() || c.Estado == model.ClienteMoroso {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r memCartera) FindProveedor(_ context.Context, id uuid.UUID) (*model.Proveedor, error) {
	p, ok := r.m.proveedores[id]
	if !ok {
		return nil, apierror.NotFound("proveedor no encontrado")
	}
	return &p, nil
}

func (r memCartera) FindProveedorForUpdateTx(ctx context.Context, _ *gorm.DB, id uuid.UUID) (*model.Proveedor, error) {
	return r.FindProveedor(ctx, id)
}

func (r memCartera) UpdateProveedorTx(_ context.Context, _ *gorm.DB, p *model.Proveedor) error {
	r.m.proveedores[p.ID] = *p
	return nil
}

// CreateMovimientoTx mirrors the unique index on revierte_id.
func (r memCartera) CreateMovimientoTx(_ context.Context, _ *gorm.DB, mov *model.MovimientoCredito) error {
	if mov.RevierteID != nil {
		for _, o := range r.m.movsCredito {
			if o.RevierteID != nil && *o.RevierteID == *mov.RevierteID {
				return apierror.ConcurrencyConflict("")
			}
		}
	}
	mov.CreatedAt = r.m.tick()
	r.m.movsCredito = append(r.m.movsCredito, *mov)
	return nil
}

func (r memCartera) FindMovimientoTx(_ context.Context, _ *gorm.DB, id uuid.UUID) (*model.MovimientoCredito, error) {
	for _, mov := range r.m.movsCredito {
		if mov.ID == id {
			return &mov, nil
		}
	}
	return nil, apierror.NotFound("movimiento de crédito no encontrado")
}

func (r memCartera) ExisteReversionTx(_ context.Context, _ *gorm.DB, movimientoID uuid.UUID) (bool, error) {
	for _, mov := range r.m.movsCredito {
		if mov.RevierteID != nil && *mov.RevierteID == movimientoID {
			return true, nil
		}
	}
	return false, nil
}

func (r memCartera) ListMovimientos(_ context.Context, tipo model.CuentaTipo, cuentaID uuid.UUID, page, limit int) ([]model.MovimientoCredito, int64, error) {
	var all []model.MovimientoCredito
	for _, mov := range r.m.movsCredito {
		if mov.CuentaTipo == tipo && mov.CuentaID == cuentaID {
			all = append(all, mov)
		}
	}
	slices.Reverse(all)
	return paginar(all, page, limit), int64(len(all)), nil
}

func (r memCartera) SumMovimientos(_ context.Context, tipo model.CuentaTipo, cuentaID uuid.UUID) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, mov := range r.m.movsCredito {
		if mov.CuentaTipo == tipo && mov.CuentaID == cuentaID {
			total = total.Add(mov.Importe())
		}
	}
	return total, nil
}

// ── Stock ─────────────────────────────────────────────────────────────────────

type memStock struct{ m *memStore }

func (r memStock) LockStockTx(_ context.Context, _ *gorm.DB, almacenID uuid.UUID, presentacionIDs []uuid.UUID) (map[uuid.UUID]*model.StockPresentacion, error) {
	out := make(map[uuid.UUID]*model.StockPresentacion, len(presentacionIDs))
	for _, id := range repository.SortIDs(presentacionIDs) {
		k := parStock{id, almacenID}
		row, ok := r.m.stock[k]
		if !ok {
			row = model.StockPresentacion{PresentacionID: id, AlmacenID: almacenID, Cantidad: decimal.Zero}
			r.m.stock[k] = row
		}
		out[id] = &row
	}
	return out, nil
}

func (r memStock) SaveStockTx(_ context.Context, _ *gorm.DB, s *model.StockPresentacion) error {
	r.m.stock[parStock{s.PresentacionID, s.AlmacenID}] = *s
	return nil
}

func (r memStock) CreateMovimientoTx(_ context.Context, _ *gorm.DB, mov *model.MovimientoStock) error {
	mov.CreatedAt = r.m.tick()
	r.m.movsStock = append(r.m.movsStock, *mov)
	return nil
}

func (r memStock) SumMovimientosTx(_ context.Context, _ *gorm.DB, presentacionID, almacenID uuid.UUID) (decimal.Decimal, error) {
	return r.m.sumaMovimientos(presentacionID, almacenID), nil
}

func (r memStock) LotesDisponiblesTx(_ context.Context, _ *gorm.DB, presentacionID, almacenID uuid.UUID, now time.Time) ([]model.Lote, error) {
	var out []model.Lote
	for _, l := range r.m.lotes {
		if l.PresentacionID != presentacionID || l.AlmacenID != almacenID || !l.CantidadRestante.IsPositive() {
			continue
		}
		if l.VenceAt != nil && l.VenceAt.Before(now) {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.VenceAt != nil && b.VenceAt == nil:
			return true
		case a.VenceAt == nil && b.VenceAt != nil:
			return false
		case a.VenceAt != nil && !a.VenceAt.Equal(*b.VenceAt):
			return a.VenceAt.Before(*b.VenceAt)
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return out, nil
}

func (r memStock) FindLoteTx(_ context.Context, _ *gorm.DB, id uuid.UUID) (*model.Lote, error) {
	l, ok := r.m.lotes[id]
	if !ok {
		return nil, apierror.NotFound("lote no encontrado")
	}
	return &l, nil
}

func (r memStock) CreateLoteTx(_ context.Context, _ *gorm.DB, l *model.Lote) error {
	l.CreatedAt = r.m.tick()
	r.m.lotes[l.ID] = *l
	return nil
}

func (r memStock) SaveLoteTx(_ context.Context, _ *gorm.DB, l *model.Lote) error {
	r.m.lotes[l.ID] = *l
	return nil
}

func (r memStock) LotesVencidos(_ context.Context, filtro repository.FiltroVencidos, now time.Time) ([]model.Lote, error) {
	var out []model.Lote
	for _, l := range r.m.lotes {
		if filtro.NegocioID != nil && r.m.almacenes[l.AlmacenID].NegocioID != *filtro.NegocioID {
			continue
		}
		if filtro.AlmacenID != nil && l.AlmacenID != *filtro.AlmacenID {
			continue
		}
		if l.Vencido(now) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VenceAt.Before(*out[j].VenceAt) })
	return out, nil
}

func (r memStock) ListStock(_ context.Context, filter repository.StockFilter) ([]model.StockPresentacion, error) {
	var out []model.StockPresentacion
	for _, s := range r.m.stock {
		if r.m.almacenes[s.AlmacenID].NegocioID != filter.NegocioID {
			continue
		}
		if filter.PresentacionID != nil && s.PresentacionID != *filter.PresentacionID {
			continue
		}
		if filter.AlmacenID != nil && s.AlmacenID != *filter.AlmacenID {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (r memStock) ListMovimientos(_ context.Context, filter repository.MovimientoStockFilter) ([]model.MovimientoStock, int64, error) {
	var all []model.MovimientoStock
	for _, mov := range r.m.movsStock {
		if r.m.almacenes[mov.AlmacenID].NegocioID != filter.NegocioID {
			continue
		}
		if filter.PresentacionID != nil && mov.PresentacionID != *filter.PresentacionID {
			continue
		}
		if filter.AlmacenID != nil && mov.AlmacenID != *filter.AlmacenID {
			continue
		}
		if filter.Tipo != "" && string(mov.Tipo) != filter.Tipo {
			continue
		}
		all = append(all, mov)
	}
	slices.Reverse(all)
	return paginar(all, filter.Page, filter.Limit), int64(len(all)), nil
}

// ── Venta ─────────────────────────────────────────────────────────────────────

type memVenta struct{ m *memStore }

// CreateTx mirrors the unique index on offline_id, which ClassifyError turns
// into a concurrency conflict.
func (r memVenta) CreateTx(_ context.Context, _ *gorm.DB, v *model.Venta) error {
	if v.OfflineID != nil {
		for _, o := range r.m.ventas {
			if o.OfflineID != nil && *o.OfflineID == *v.OfflineID {
				return apierror.ConcurrencyConflict("")
			}
		}
	}
	v.CreatedAt = r.m.tick()
	c := *v
	c.Items = slices.Clone(v.Items)
	c.Pagos = slices.Clone(v.Pagos)
	r.m.ventas[v.ID] = c
	return nil
}

func (r memVenta) FindByID(_ context.Context, id uuid.UUID) (*model.Venta, error) {
	v, ok := r.m.ventas[id]
	if !ok {
		return nil, apierror.NotFound("venta no encontrada")
	}
	v.Items = slices.Clone(v.Items)
	v.Pagos = slices.Clone(v.Pagos)
	return &v, nil
}

func (r memVenta) FindForUpdateTx(ctx context.Context, _ *gorm.DB, id uuid.UUID) (*model.Venta, error) {
	return r.FindByID(ctx, id)
}

func (r memVenta) FindByOfflineID(_ context.Context, offlineID string) (*model.Venta, error) {
	for _, v := range r.m.ventas {
		if v.OfflineID != nil && *v.OfflineID == offlineID {
			return &v, nil
		}
	}
	return nil, nil
}

func (r memVenta) MarcarAnuladaTx(_ context.Context, _ *gorm.DB, v *model.Venta) error {
	r.m.ventas[v.ID] = *v
	return nil
}

func (r memVenta) NextTicketNumber(_ context.Context, _ *gorm.DB) (int, error) {
	r.m.ticket++
	return r.m.ticket, nil
}

func (r memVenta) TotalesPorSesionTx(_ context.Context, _ *gorm.DB, sesionID uuid.UUID) (repository.TotalesVentas, error) {
	t := repository.TotalesVentas{Contado: decimal.Zero, Credito: decimal.Zero}
	for _, v := range r.m.ventas {
		if v.SesionCajaID == nil || *v.SesionCajaID != sesionID || v.Estado != model.VentaCompletada {
			continue
		}
		t.Cantidad++
		t.Contado = t.Contado.Add(v.MontoPagado)
		t.Credito = t.Credito.Add(v.MontoCredito)
	}
	return t, nil
}

func (r memVenta) List(_ context.Context, filter repository.VentaFilter) ([]model.Venta, int64, error) {
	var all []model.Venta
	for _, v := range r.m.ventas {
		if v.NegocioID != filter.NegocioID {
			continue
		}
		if filter.Estado != "" && filter.Estado != "all" && string(v.Estado) != filter.Estado {
			continue
		}
		if filter.SesionCajaID != nil && (v.SesionCajaID == nil || *v.SesionCajaID != *filter.SesionCajaID) {
			continue
		}
		if filter.ClienteID != nil && (v.ClienteID == nil || *v.ClienteID != *filter.ClienteID) {
			continue
		}
		all = append(all, v)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].NumeroTicket > all[j].NumeroTicket })
	return paginar(all, filter.Page, filter.Limit), int64(len(all)), nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func paginar[T any](all []T, page, limit int) []T {
	if page < 1 || limit < 1 {
		return all
	}
	from := (page - 1) * limit
	if from >= len(all) {
		return nil
	}
	return all[from:min(from+limit, len(all))]
}

func (m *memStore) sumaMovimientos(presentacionID, almacenID uuid.UUID) decimal.Decimal {
	total := decimal.Zero
	for _, mov := range m.movsStock {
		if mov.PresentacionID == presentacionID && mov.AlmacenID == almacenID {
			total = total.Add(mov.Cantidad)
		}
	}
	return total
}

func (m *memStore) cantidadStock(presentacionID, almacenID uuid.UUID) decimal.Decimal {
	return m.stock[parStock{presentacionID, almacenID}].Cantidad
}

type fakeLocker struct {
	err  error
	keys []string
}

func (l *fakeLocker) Obtain(_ context.Context, key string, _ time.Duration) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	l.keys = append(l.keys, key)
	return func() {}, nil
}

type fakeEncolador struct {
	sesiones []uuid.UUID
	err      error
}

func (e *fakeEncolador) EncolarCierreCaja(_ context.Context, sesionID uuid.UUID) error {
	e.sesiones = append(e.sesiones, sesionID)
	return e.err
}

// ── Fixture ───────────────────────────────────────────────────────────────────

// fixture wires every service over one memStore seeded with a business that
// has two warehouses, a register, a client and the usual payment methods.
type fixture struct {
	store *memStore
	op    Operador

	almacen, almacen2  uuid.UUID
	caja               uuid.UUID
	gaseosa, yogur     uuid.UUID
	efectivo, tarjeta  uuid.UUID
	cuentaCorriente    uuid.UUID
	cliente, proveedor uuid.UUID

	locker    *fakeLocker
	encolador *fakeEncolador

	inventario InventarioService
	cartera    CarteraService
	cajas      CajaService
	ventas     VentaService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	m := newMemStore()
	f := &fixture{
		store:           m,
		op:              Operador{UsuarioID: uuid.New(), NegocioID: uuid.New()},
		almacen:         uuid.New(),
		almacen2:        uuid.New(),
		caja:            uuid.New(),
		gaseosa:         uuid.New(),
		yogur:           uuid.New(),
		efectivo:        uuid.New(),
		tarjeta:         uuid.New(),
		cuentaCorriente: uuid.New(),
		cliente:         uuid.New(),
		proveedor:       uuid.New(),
		locker:          &fakeLocker{},
		encolador:       &fakeEncolador{},
	}
	neg := f.op.NegocioID

	m.almacenes[f.almacen] = model.Almacen{ID: f.almacen, NegocioID: neg, Nombre: "Salón", PorDefecto: true, Activo: true}
	m.almacenes[f.almacen2] = model.Almacen{ID: f.almacen2, NegocioID: neg, Nombre: "Depósito", Activo: true}
	m.cajas[f.caja] = model.Caja{ID: f.caja, NegocioID: neg, AlmacenID: f.almacen, Nombre: "Caja 1", Activa: true}

	codigo := "7790000000017"
	m.presentaciones[f.gaseosa] = model.Presentacion{ID: f.gaseosa, NegocioID: neg, CodigoBarras: &codigo, Nombre: "Gaseosa 500ml", PrecioVenta: dec("1000"), Activo: true}
	m.presentaciones[f.yogur] = model.Presentacion{ID: f.yogur, NegocioID: neg, Nombre: "Yogur 1L", PrecioVenta: dec("1500"), Perecedero: true, Activo: true}

	m.metodos[f.efectivo] = model.MetodoPago{ID: f.efectivo, NegocioID: neg, Nombre: "Efectivo", Activo: true}
	m.metodos[f.tarjeta] = model.MetodoPago{ID: f.tarjeta, NegocioID: neg, Nombre: "Tarjeta", Activo: true}
	m.metodos[f.cuentaCorriente] = model.MetodoPago{ID: f.cuentaCorriente, NegocioID: neg, Nombre: "Cuenta corriente", EsCredito: true, Activo: true}

	m.clientes[f.cliente] = model.Cliente{ID: f.cliente, NegocioID: neg, Nombre: "Cliente Demo", LimiteCredito: dec("50000"), Estado: model.ClienteActivo, CreatedAt: baseTime}
	m.proveedores[f.proveedor] = model.Proveedor{ID: f.proveedor, NegocioID: neg, RazonSocial: "Distribuidora Norte", Activo: true}

	tx := memTx{m}
	catalogo := memCatalogo{m}
	inv := NewInventarioService(tx, memStock{m}, catalogo, f.locker)
	inv.(*inventarioService).now = func() time.Time { return baseTime }
	cart := NewCarteraService(tx, memCartera{m}, OpcionesCartera{DiasGracia: 30, PermitirSobrepago: true})
	cart.(*carteraService).now = func() time.Time { return baseTime }
	cj := NewCajaService(tx, memCaja{m}, memVenta{m}, f.encolador)
	cj.(*cajaService).now = func() time.Time { return baseTime }
	vs := NewVentaService(tx, memVenta{m}, catalogo, memCaja{m}, memCartera{m}, inv, cart, cj)
	vs.(*ventaService).now = func() time.Time { return baseTime }

	f.inventario, f.cartera, f.cajas, f.ventas = inv, cart, cj, vs
	return f
}

// cargarStock posts an entrada so the counter and the log agree from the start.
func (f *fixture) cargarStock(t *testing.T, presentacionID, almacenID uuid.UUID, cantidad string) {
	t.Helper()
	_, err := f.inventario.RegistrarEntrada(context.Background(), f.op, entrada(presentacionID, almacenID, cantidad))
	if err != nil {
		t.Fatalf("cargar stock: %v", err)
	}
}
