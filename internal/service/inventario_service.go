package service

import (
	"context"
	"fmt"
	"time"

	"github.com/AndresDiezT/alto-vivo-sub000/internal/apierror"
	"github.com/AndresDiezT/alto-vivo-sub000/internal/dto"
	"github.com/AndresDiezT/alto-vivo-sub000/internal/infra"
	"github.com/AndresDiezT/alto-vivo-sub000/internal/model"
	"github.com/AndresDiezT/alto-vivo-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ItemStock is one presentation quantity taken from or returned to a warehouse.
type ItemStock struct {
	PresentacionID uuid.UUID
	Cantidad       decimal.Decimal
}

// RefMovimiento ties the movements posted for a sale to that sale.
type RefMovimiento struct {
	ReferenciaID uuid.UUID
	Motivo       string
	UsuarioID    *uuid.UUID
}

const (
	lockVencidos = "lock:vencidos"
	ttlVencidos  = 5 * time.Minute
)

// InventarioService owns the stock ledger: every change to a stock counter is
// posted together with the movement that explains it.
type InventarioService interface {
	// ReservarParaVentaTx and LiberarTx run inside the caller's transaction.
	ReservarParaVentaTx(ctx context.Context, tx *gorm.DB, almacenID uuid.UUID, items []ItemStock, ref RefMovimiento) error
	LiberarTx(ctx context.Context, tx *gorm.DB, almacenID uuid.UUID, items []ItemStock, ref RefMovimiento) error

	RegistrarEntrada(ctx context.Context, op Operador, req dto.EntradaStockRequest) (*dto.MovimientoStockResponse, error)
	RegistrarAjuste(ctx context.Context, op Operador, req dto.AjusteStockRequest) (*dto.MovimientoStockResponse, error)
	RegistrarTransferencia(ctx context.Context, op Operador, req dto.TransferenciaStockRequest) ([]dto.MovimientoStockResponse, error)
	RegistrarMerma(ctx context.Context, op Operador, req dto.MermaRequest) (*dto.MovimientoStockResponse, error)
	ProcesarVencidos(ctx context.Context, op Operador, almacenID *uuid.UUID, now time.Time) (int, error)
	// ProcesarVencidosTodos scans every business. Only the scheduler calls it.
	ProcesarVencidosTodos(ctx context.Context, now time.Time) (int, error)

	ObtenerStock(ctx context.Context, op Operador, filter dto.StockFilter) ([]dto.StockResponse, error)
	ListarMovimientos(ctx context.Context, op Operador, filter dto.MovimientoStockFilter) (*dto.MovimientoStockListResponse, error)
	ReconstruirStock(ctx context.Context, op Operador, presentacionID, almacenID uuid.UUID) (*dto.ReconstruirStockResponse, error)
}

type inventarioService struct {
	tx       repository.Transactor
	repo     repository.StockRepository
	catalogo repository.CatalogoRepository
	locker   Bloqueador
	now      func() time.Time
}

func NewInventarioService(
	tx repository.Transactor,
	repo repository.StockRepository,
	catalogo repository.CatalogoRepository,
	locker Bloqueador,
) InventarioService {
	return &inventarioService{tx: tx, repo: repo, catalogo: catalogo, locker: locker, now: time.Now}
}

// ── Sale side ─────────────────────────────────────────────────────────────────

// ReservarParaVentaTx checks every item against the locked counters before
// writing anything, so a shortage on the last item leaves no partial movements.
func (s *inventarioService) ReservarParaVentaTx(ctx context.Context, tx *gorm.DB, almacenID uuid.UUID, items []ItemStock, ref RefMovimiento) error {
	ids, cantidades, err := agruparItems(items)
	if err != nil {
		return err
	}

	stock, err := s.repo.LockStockTx(ctx, tx, almacenID, ids)
	if err != nil {
		return err
	}
	for _, id := range ids {
		disponible := stock[id].Cantidad
		if disponible.LessThan(cantidades[id]) {
			return apierror.InsufficientStock(id, disponible, cantidades[id])
		}
	}

	now := s.now()
	for _, id := range ids {
		mov := &model.MovimientoStock{
			PresentacionID: id,
			AlmacenID:      almacenID,
			Tipo:           model.MovStockVenta,
			Cantidad:       cantidades[id].Neg(),
			Motivo:         ref.Motivo,
			ReferenciaID:   &ref.ReferenciaID,
			UsuarioID:      ref.UsuarioID,
		}
		if err := s.aplicarMovimiento(ctx, tx, stock[id], mov); err != nil {
			return err
		}
		if err := s.consumirLotes(ctx, tx, id, almacenID, cantidades[id], now); err != nil {
			return err
		}
	}
	return nil
}

// LiberarTx posts the inverse of a sale. Lots are not refilled: the returned
// units are counted but no longer attributed to a batch.
func (s *inventarioService) LiberarTx(ctx context.Context, tx *gorm.DB, almacenID uuid.UUID, items []ItemStock, ref RefMovimiento) error {
	ids, cantidades, err := agruparItems(items)
	if err != nil {
		return err
	}

	stock, err := s.repo.LockStockTx(ctx, tx, almacenID, ids)
	if err != nil {
		return err
	}
	for _, id := range ids {
		mov := &model.MovimientoStock{
			PresentacionID: id,
			AlmacenID:      almacenID,
			Tipo:           model.MovStockAnulacionVenta,
			Cantidad:       cantidades[id],
			Motivo:         ref.Motivo,
			ReferenciaID:   &ref.ReferenciaID,
			UsuarioID:      ref.UsuarioID,
		}
		if err := s.aplicarMovimiento(ctx, tx, stock[id], mov); err != nil {
			return err
		}
	}
	return nil
}

// agruparItems sums quantities per presentation and returns the ids in lock order.
func agruparItems(items []ItemStock) ([]uuid.UUID, map[uuid.UUID]decimal.Decimal, error) {
	if len(items) == 0 {
		return nil, nil, apierror.ValidationField("items", "se requiere al menos un ítem")
	}
	cantidades := make(map[uuid.UUID]decimal.Decimal, len(items))
	ids := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		if err := validarCantidad(it.Cantidad, "cantidad"); err != nil {
			return nil, nil, err
		}
		if _, ok := cantidades[it.PresentacionID]; !ok {
			ids = append(ids, it.PresentacionID)
			cantidades[it.PresentacionID] = decimal.Zero
		}
		cantidades[it.PresentacionID] = cantidades[it.PresentacionID].Add(it.Cantidad)
	}
	return repository.SortIDs(ids), cantidades, nil
}

// ── Manual operations ────────────────────────────────────────────────────────

func (s *inventarioService) RegistrarEntrada(ctx context.Context, op Operador, req dto.EntradaStockRequest) (*dto.MovimientoStockResponse, error) {
	presID, almID, err := s.resolverPar(ctx, op, req.PresentacionID, req.AlmacenID)
	if err != nil {
		return nil, err
	}
	if err := validarCantidad(req.Cantidad, "cantidad"); err != nil {
		return nil, err
	}

	var mov *model.MovimientoStock
	err = s.tx.RunInTx(ctx, func(tx *gorm.DB) error {
		stock, err := s.lockUno(ctx, tx, almID, presID)
		if err != nil {
			return err
		}

		mov = &model.MovimientoStock{
			PresentacionID: presID,
			AlmacenID:      almID,
			Tipo:           model.MovStockEntrada,
			Cantidad:       req.Cantidad,
			Motivo:         motivoOr(req.Motivo, "Entrada de mercadería"),
			UsuarioID:      &op.UsuarioID,
		}

		if req.LoteCodigo != nil || req.VenceAt != nil {
			lote := &model.Lote{
				ID:               uuid.New(),
				PresentacionID:   presID,
				AlmacenID:        almID,
				VenceAt:          req.VenceAt,
				CantidadInicial:  req.Cantidad,
				CantidadRestante: req.Cantidad,
			}
			if req.LoteCodigo != nil {
				lote.Codigo = *req.LoteCodigo
			}
			if err := s.repo.CreateLoteTx(ctx, tx, lote); err != nil {
				return err
			}
			mov.LoteID = &lote.ID
		}
		return s.aplicarMovimiento(ctx, tx, stock, mov)
	})
	if err != nil {
		return nil, err
	}

	infra.StockMovimientosTotal.WithLabelValues(string(mov.Tipo)).Inc()
	return movimientoToResponse(mov), nil
}

// RegistrarAjuste corrects a counter. In delta mode Cantidad is the signed
// change; in conteo mode it is the counted quantity and the difference is posted.
func (s *inventarioService) RegistrarAjuste(ctx context.Context, op Operador, req dto.AjusteStockRequest) (*dto.MovimientoStockResponse, error) {
	presID, almID, err := s.resolverPar(ctx, op, req.PresentacionID, req.AlmacenID)
	if err != nil {
		return nil, err
	}
	switch req.Modo {
	case "delta":
		if req.Cantidad.IsZero() {
			return nil, apierror.ValidationField("cantidad", "el ajuste no puede ser cero")
		}
	case "conteo":
		if req.Cantidad.IsNegative() {
			return nil, apierror.ValidationField("cantidad", "el conteo no puede ser negativo")
		}
	default:
		return nil, apierror.ValidationField("modo", "modo de ajuste desconocido: %q", req.Modo)
	}
	if err := validarEscala(req.Cantidad, escalaCantidad, "cantidad"); err != nil {
		return nil, err
	}

	var mov *model.MovimientoStock
	err = s.tx.RunInTx(ctx, func(tx *gorm.DB) error {
		stock, err := s.lockUno(ctx, tx, almID, presID)
		if err != nil {
			return err
		}

		delta := req.Cantidad
		if req.Modo == "conteo" {
			delta = req.Cantidad.Sub(stock.Cantidad)
			if delta.IsZero() {
				return apierror.ValidationField("cantidad", "el conteo coincide con el stock actual")
			}
		}

		mov = &model.MovimientoStock{
			PresentacionID: presID,
			AlmacenID:      almID,
			Tipo:           model.MovStockAjuste,
			Cantidad:       delta,
			Motivo:         req.Motivo,
			UsuarioID:      &op.UsuarioID,
		}
		if err := s.aplicarMovimiento(ctx, tx, stock, mov); err != nil {
			return err
		}
		if delta.IsNegative() {
			return s.consumirLotes(ctx, tx, presID, almID, delta.Neg(), s.now())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	infra.StockMovimientosTotal.WithLabelValues(string(mov.Tipo)).Inc()
	return movimientoToResponse(mov), nil
}

func (s *inventarioService) RegistrarTransferencia(ctx context.Context, op Operador, req dto.TransferenciaStockRequest) ([]dto.MovimientoStockResponse, error) {
	presID, origenID, err := s.resolverPar(ctx, op, req.PresentacionID, req.AlmacenOrigenID)
	if err != nil {
		return nil, err
	}
	destinoID, err := parseUUID(req.AlmacenDestinoID, "almacen_destino_id")
	if err != nil {
		return nil, err
	}
	if destinoID == origenID {
		return nil, apierror.ValidationField("almacen_destino_id", "el almacén destino debe ser distinto del origen")
	}
	if _, err := s.almacenDelNegocio(ctx, op, destinoID); err != nil {
		return nil, err
	}
	if err := validarCantidad(req.Cantidad, "cantidad"); err != nil {
		return nil, err
	}

	transferenciaID := uuid.New()
	motivo := motivoOr(req.Motivo, "Transferencia entre almacenes")
	var salida, entrada *model.MovimientoStock

	err = s.tx.RunInTx(ctx, func(tx *gorm.DB) error {
		// Both warehouses are locked in id order, same as LockStockTx does for presentations.
		filas := make(map[uuid.UUID]*model.StockPresentacion, 2)
		for _, alm := range repository.SortIDs([]uuid.UUID{origenID, destinoID}) {
			row, err := s.lockUno(ctx, tx, alm, presID)
			if err != nil {
				return err
			}
			filas[alm] = row
		}

		if filas[origenID].Cantidad.LessThan(req.Cantidad) {
			return apierror.InsufficientStock(presID, filas[origenID].Cantidad, req.Cantidad)
		}

		salida = &model.MovimientoStock{
			PresentacionID:  presID,
			AlmacenID:       origenID,
			Tipo:            model.MovStockTransferenciaSalida,
			Cantidad:        req.Cantidad.Neg(),
			Motivo:          motivo,
			TransferenciaID: &transferenciaID,
			UsuarioID:       &op.UsuarioID,
		}
		if err := s.aplicarMovimiento(ctx, tx, filas[origenID], salida); err != nil {
			return err
		}
		entrada = &model.MovimientoStock{
			PresentacionID:  presID,
			AlmacenID:       destinoID,
			Tipo:            model.MovStockTransferenciaEntrada,
			Cantidad:        req.Cantidad,
			Motivo:          motivo,
			TransferenciaID: &transferenciaID,
			UsuarioID:       &op.UsuarioID,
		}
		return s.aplicarMovimiento(ctx, tx, filas[destinoID], entrada)
	})
	if err != nil {
		return nil, err
	}

	infra.StockMovimientosTotal.WithLabelValues(string(salida.Tipo)).Inc()
	infra.StockMovimientosTotal.WithLabelValues(string(entrada.Tipo)).Inc()
	return []dto.MovimientoStockResponse{*movimientoToResponse(salida), *movimientoToResponse(entrada)}, nil
}

// RegistrarMerma writes off units. With a lote_id the units come from that lot;
// otherwise lots are drained FEFO like a sale.
func (s *inventarioService) RegistrarMerma(ctx context.Context, op Operador, req dto.MermaRequest) (*dto.MovimientoStockResponse, error) {
	presID, almID, err := s.resolverPar(ctx, op, req.PresentacionID, req.AlmacenID)
	if err != nil {
		return nil, err
	}
	causa := model.CausaMerma(req.Causa)
	if !causa.Valida() {
		return nil, apierror.ValidationField("causa", "causa de merma desconocida: %q", req.Causa)
	}
	if err := validarCantidad(req.Cantidad, "cantidad"); err != nil {
		return nil, err
	}
	loteID, err := parseOptionalUUID(req.LoteID, "lote_id")
	if err != nil {
		return nil, err
	}

	var mov *model.MovimientoStock
	err = s.tx.RunInTx(ctx, func(tx *gorm.DB) error {
		stock, err := s.lockUno(ctx, tx, almID, presID)
		if err != nil {
			return err
		}
		if stock.Cantidad.LessThan(req.Cantidad) {
			return apierror.InsufficientStock(presID, stock.Cantidad, req.Cantidad)
		}

		mov = &model.MovimientoStock{
			PresentacionID: presID,
			AlmacenID:      almID,
			Tipo:           model.MovStockMerma,
			Cantidad:       req.Cantidad.Neg(),
			Motivo:         motivoOr(req.Motivo, fmt.Sprintf("Merma por %s", causa)),
			Causa:          &causa,
			LoteID:         loteID,
			UsuarioID:      &op.UsuarioID,
		}

		if loteID == nil {
			if err := s.aplicarMovimiento(ctx, tx, stock, mov); err != nil {
				return err
			}
			return s.consumirLotes(ctx, tx, presID, almID, req.Cantidad, s.now())
		}

		lote, err := s.repo.FindLoteTx(ctx, tx, *loteID)
		if err != nil {
			return err
		}
		if lote.PresentacionID != presID || lote.AlmacenID != almID {
			return apierror.ValidationField("lote_id", "el lote no corresponde a la presentación y almacén indicados")
		}
		if lote.CantidadRestante.LessThan(req.Cantidad) {
			return apierror.InsufficientStock(presID, lote.CantidadRestante, req.Cantidad)
		}
		lote.CantidadRestante = lote.CantidadRestante.Sub(req.Cantidad)
		if err := s.repo.SaveLoteTx(ctx, tx, lote); err != nil {
			return err
		}
		return s.aplicarMovimiento(ctx, tx, stock, mov)
	})
	if err != nil {
		return nil, err
	}

	infra.StockMovimientosTotal.WithLabelValues(string(mov.Tipo)).Inc()
	return movimientoToResponse(mov), nil
}

// ProcesarVencidos writes off the expired lots of the operator's business,
// optionally limited to one of its warehouses.
func (s *inventarioService) ProcesarVencidos(ctx context.Context, op Operador, almacenID *uuid.UUID, now time.Time) (int, error) {
	if almacenID != nil {
		if _, err := s.almacenDelNegocio(ctx, op, *almacenID); err != nil {
			return 0, err
		}
	}
	negocioID := op.NegocioID
	return s.procesarVencidos(ctx, repository.FiltroVencidos{NegocioID: &negocioID, AlmacenID: almacenID}, now)
}

func (s *inventarioService) ProcesarVencidosTodos(ctx context.Context, now time.Time) (int, error) {
	return s.procesarVencidos(ctx, repository.FiltroVencidos{}, now)
}

// procesarVencidos writes off every matching expired lot that still holds
// units. Each lot is handled in its own transaction; the batch is serialized
// across instances.
func (s *inventarioService) procesarVencidos(ctx context.Context, filtro repository.FiltroVencidos, now time.Time) (int, error) {
	release, err := s.locker.Obtain(ctx, lockVencidos, ttlVencidos)
	if err != nil {
		return 0, err
	}
	defer release()

	lotes, err := s.repo.LotesVencidos(ctx, filtro, now)
	if err != nil {
		return 0, fmt.Errorf("listar lotes vencidos: %w", err)
	}

	causa := model.CausaVencimiento
	procesados := 0
	for _, candidato := range lotes {
		posted := false
		err := s.tx.RunInTx(ctx, func(tx *gorm.DB) error {
			stock, err := s.lockUno(ctx, tx, candidato.AlmacenID, candidato.PresentacionID)
			if err != nil {
				return err
			}
			lote, err := s.repo.FindLoteTx(ctx, tx, candidato.ID)
			if err != nil {
				return err
			}
			if !lote.Vencido(now) {
				return nil // drained by a sale since it was listed
			}

			cantidad := decimal.Min(stock.Cantidad, lote.CantidadRestante)
			if cantidad.IsPositive() {
				mov := &model.MovimientoStock{
					PresentacionID: lote.PresentacionID,
					AlmacenID:      lote.AlmacenID,
					Tipo:           model.MovStockMerma,
					Cantidad:       cantidad.Neg(),
					Motivo:         fmt.Sprintf("Vencimiento lote %s", lote.Codigo),
					Causa:          &causa,
					LoteID:         &lote.ID,
				}
				if err := s.aplicarMovimiento(ctx, tx, stock, mov); err != nil {
					return err
				}
				posted = true
			}
			lote.CantidadRestante = decimal.Zero
			return s.repo.SaveLoteTx(ctx, tx, lote)
		})
		if err != nil {
			return procesados, fmt.Errorf("procesar lote %s: %w", candidato.ID, err)
		}
		if posted {
			procesados++
			infra.StockMovimientosTotal.WithLabelValues(string(model.MovStockMerma)).Inc()
		}
	}

	log.Info().Int("procesados", procesados).Int("candidatos", len(lotes)).Msg("lotes vencidos procesados")
	return procesados, nil
}

// ── Read model ───────────────────────────────────────────────────────────────

func (s *inventarioService) ObtenerStock(ctx context.Context, op Operador, filter dto.StockFilter) ([]dto.StockResponse, error) {
	presID, err := parseOptionalUUID(&filter.PresentacionID, "presentacion_id")
	if err != nil {
		return nil, err
	}
	almID, err := parseOptionalUUID(&filter.AlmacenID, "almacen_id")
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.ListStock(ctx, repository.StockFilter{NegocioID: op.NegocioID, PresentacionID: presID, AlmacenID: almID})
	if err != nil {
		return nil, err
	}
	out := make([]dto.StockResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, dto.StockResponse{
			PresentacionID: r.PresentacionID.String(),
			AlmacenID:      r.AlmacenID.String(),
			Cantidad:       r.Cantidad,
		})
	}
	return out, nil
}

func (s *inventarioService) ListarMovimientos(ctx context.Context, op Operador, filter dto.MovimientoStockFilter) (*dto.MovimientoStockListResponse, error) {
	presID, err := parseOptionalUUID(&filter.PresentacionID, "presentacion_id")
	if err != nil {
		return nil, err
	}
	almID, err := parseOptionalUUID(&filter.AlmacenID, "almacen_id")
	if err != nil {
		return nil, err
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 500 {
		filter.Limit = 100
	}

	movs, total, err := s.repo.ListMovimientos(ctx, repository.MovimientoStockFilter{
		NegocioID:      op.NegocioID,
		PresentacionID: presID,
		AlmacenID:      almID,
		Tipo:           filter.Tipo,
		Page:           filter.Page,
		Limit:          filter.Limit,
	})
	if err != nil {
		return nil, err
	}
	data := make([]dto.MovimientoStockResponse, 0, len(movs))
	for i := range movs {
		data = append(data, *movimientoToResponse(&movs[i]))
	}
	return &dto.MovimientoStockListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// ReconstruirStock recomputes a counter from the movement log and overwrites it
// when they drifted apart.
func (s *inventarioService) ReconstruirStock(ctx context.Context, op Operador, presentacionID, almacenID uuid.UUID) (*dto.ReconstruirStockResponse, error) {
	if _, _, err := s.resolverPar(ctx, op, presentacionID.String(), almacenID.String()); err != nil {
		return nil, err
	}
	resp := &dto.ReconstruirStockResponse{
		PresentacionID: presentacionID.String(),
		AlmacenID:      almacenID.String(),
	}
	err := s.tx.RunInTx(ctx, func(tx *gorm.DB) error {
		stock, err := s.lockUno(ctx, tx, almacenID, presentacionID)
		if err != nil {
			return err
		}
		calculado, err := s.repo.SumMovimientosTx(ctx, tx, presentacionID, almacenID)
		if err != nil {
			return err
		}
		resp.Anterior = stock.Cantidad
		resp.Calculado = calculado
		if stock.Cantidad.Equal(calculado) {
			return nil
		}
		stock.Cantidad = calculado
		resp.Corregido = true
		return s.repo.SaveStockTx(ctx, tx, stock)
	})
	if err != nil {
		return nil, err
	}
	if resp.Corregido {
		log.Warn().
			Str("presentacion_id", resp.PresentacionID).
			Str("almacen_id", resp.AlmacenID).
			Str("anterior", resp.Anterior.String()).
			Str("calculado", resp.Calculado.String()).
			Msg("stock materializado corregido desde el historial de movimientos")
	}
	return resp, nil
}

// ── Helpers ──────────────────────────────────────────────────────────────────

// aplicarMovimiento posts mov against the locked counter. The counter never
// goes below zero.
func (s *inventarioService) aplicarMovimiento(ctx context.Context, tx *gorm.DB, stock *model.StockPresentacion, mov *model.MovimientoStock) error {
	nuevo := stock.Cantidad.Add(mov.Cantidad)
	if nuevo.IsNegative() {
		return apierror.InsufficientStock(stock.PresentacionID, stock.Cantidad, mov.Cantidad.Neg())
	}
	if mov.ID == uuid.Nil {
		mov.ID = uuid.New()
	}
	mov.StockAnterior = stock.Cantidad
	mov.StockNuevo = nuevo
	stock.Cantidad = nuevo

	if err := s.repo.SaveStockTx(ctx, tx, stock); err != nil {
		return err
	}
	return s.repo.CreateMovimientoTx(ctx, tx, mov)
}

// consumirLotes drains non-expired lots first-expired-first-out. Units beyond
// what the lots hold were never received under a lot and need no tracking.
func (s *inventarioService) consumirLotes(ctx context.Context, tx *gorm.DB, presentacionID, almacenID uuid.UUID, cantidad decimal.Decimal, now time.Time) error {
	lotes, err := s.repo.LotesDisponiblesTx(ctx, tx, presentacionID, almacenID, now)
	if err != nil {
		return err
	}
	pendiente := cantidad
	for i := range lotes {
		if !pendiente.IsPositive() {
			break
		}
		tomado := decimal.Min(pendiente, lotes[i].CantidadRestante)
		lotes[i].CantidadRestante = lotes[i].CantidadRestante.Sub(tomado)
		if err := s.repo.SaveLoteTx(ctx, tx, &lotes[i]); err != nil {
			return err
		}
		pendiente = pendiente.Sub(tomado)
	}
	return nil
}

func (s *inventarioService) lockUno(ctx context.Context, tx *gorm.DB, almacenID, presentacionID uuid.UUID) (*model.StockPresentacion, error) {
	rows, err := s.repo.LockStockTx(ctx, tx, almacenID, []uuid.UUID{presentacionID})
	if err != nil {
		return nil, err
	}
	row, ok := rows[presentacionID]
	if !ok {
		return nil, fmt.Errorf("fila de stock %s/%s no disponible", presentacionID, almacenID)
	}
	return row, nil
}

// resolverPar parses and checks a (presentación, almacén) pair against the
// operator's business.
func (s *inventarioService) resolverPar(ctx context.Context, op Operador, presentacionID, almacenID string) (uuid.UUID, uuid.UUID, error) {
	presID, err := parseUUID(presentacionID, "presentacion_id")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	almID, err := parseUUID(almacenID, "almacen_id")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}

	pres, err := s.catalogo.FindPresentaciones(ctx, []uuid.UUID{presID})
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	p, ok := pres[presID]
	if !ok || p.NegocioID != op.NegocioID {
		return uuid.Nil, uuid.Nil, apierror.NotFound("presentación no encontrada")
	}
	if _, err := s.almacenDelNegocio(ctx, op, almID); err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return presID, almID, nil
}

func (s *inventarioService) almacenDelNegocio(ctx context.Context, op Operador, id uuid.UUID) (*model.Almacen, error) {
	alm, err := s.catalogo.FindAlmacen(ctx, id)
	if err != nil {
		return nil, err
	}
	if alm.NegocioID != op.NegocioID || !alm.Activo {
		return nil, apierror.NotFound("almacén no encontrado")
	}
	return alm, nil
}

func motivoOr(motivo, def string) string {
	if motivo == "" {
		return def
	}
	return motivo
}

func movimientoToResponse(m *model.MovimientoStock) *dto.MovimientoStockResponse {
	var causa *string
	if m.Causa != nil {
		c := string(*m.Causa)
		causa = &c
	}
	return &dto.MovimientoStockResponse{
		ID:              m.ID.String(),
		PresentacionID:  m.PresentacionID.String(),
		AlmacenID:       m.AlmacenID.String(),
		Tipo:            string(m.Tipo),
		Cantidad:        m.Cantidad,
		StockAnterior:   m.StockAnterior,
		StockNuevo:      m.StockNuevo,
		Motivo:          m.Motivo,
		Causa:           causa,
		LoteID:          uuidPtrString(m.LoteID),
		ReferenciaID:    uuidPtrString(m.ReferenciaID),
		TransferenciaID: uuidPtrString(m.TransferenciaID),
		CreatedAt:       m.CreatedAt.Format(time.RFC3339),
	}
}
