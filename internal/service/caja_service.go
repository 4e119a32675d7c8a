package service

import (
	"context"
	"strings"
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

type CajaService interface {
	Abrir(ctx context.Context, op Operador, cajaID uuid.UUID, req dto.AbrirCajaRequest) (*dto.ReporteCajaResponse, error)
	RegistrarMovimiento(ctx context.Context, op Operador, sesionID uuid.UUID, req dto.MovimientoCajaRequest) (*dto.MovimientoCajaResponse, error)
	Cerrar(ctx context.Context, op Operador, sesionID uuid.UUID, req dto.CerrarCajaRequest) (*dto.ReporteCajaResponse, error)
	ObtenerReporte(ctx context.Context, op Operador, sesionID uuid.UUID) (*dto.ReporteCajaResponse, error)
	Historial(ctx context.Context, op Operador, cajaID uuid.UUID, page, limit int) (*dto.SesionListResponse, error)

	// SesionAbiertaDeCajaTx and SesionAbiertaDeAlmacenTx are called by VentaService
	// inside the sale transaction. They return (nil, nil) when there is nothing to
	// tag; a returned session is locked so it cannot close under the sale.
	SesionAbiertaDeCajaTx(ctx context.Context, tx *gorm.DB, cajaID uuid.UUID) (*model.SesionCaja, error)
	SesionAbiertaDeAlmacenTx(ctx context.Context, tx *gorm.DB, almacenID uuid.UUID) (*model.SesionCaja, error)
}

type cajaService struct {
	tx        repository.Transactor
	repo      repository.CajaRepository
	ventaRepo repository.VentaRepository
	encolador Encolador
	now       func() time.Time
}

func NewCajaService(
	tx repository.Transactor,
	repo repository.CajaRepository,
	ventaRepo repository.VentaRepository,
	encolador Encolador,
) CajaService {
	return &cajaService{tx: tx, repo: repo, ventaRepo: ventaRepo, encolador: encolador, now: time.Now}
}

// ── Abrir ─────────────────────────────────────────────────────────────────────

func (s *cajaService) Abrir(ctx context.Context, op Operador, cajaID uuid.UUID, req dto.AbrirCajaRequest) (*dto.ReporteCajaResponse, error) {
	caja, err := s.cajaDelNegocio(ctx, op, cajaID)
	if err != nil {
		return nil, err
	}
	if !caja.Activa {
		return nil, apierror.ValidationField("caja_id", "la caja %s está desactivada", caja.Nombre)
	}
	if req.MontoApertura.IsNegative() {
		return nil, apierror.ValidationField("monto_apertura", "el monto de apertura no puede ser negativo")
	}
	if err := validarEscala(req.MontoApertura, escalaMonto, "monto_apertura"); err != nil {
		return nil, err
	}

	sesion := &model.SesionCaja{
		ID:            uuid.New(),
		CajaID:        cajaID,
		Estado:        model.SesionAbierta,
		AbiertaPor:    op.UsuarioID,
		AbiertaAt:     s.now(),
		MontoApertura: req.MontoApertura,
		NotasApertura: req.Notas,
	}
	err = s.tx.RunInTx(ctx, func(tx *gorm.DB) error {
		existente, err := s.repo.FindSesionAbiertaPorCajaTx(ctx, tx, cajaID)
		if err != nil {
			return err
		}
		if existente != nil {
			return apierror.SessionAlreadyOpen(cajaID)
		}
		// A concurrent opener that slips past the check hits idx_sesiones_caja_abierta.
		return s.repo.CreateSesionTx(ctx, tx, sesion)
	})
	if err != nil {
		return nil, err
	}

	infra.SesionesCajaTotal.WithLabelValues("apertura").Inc()
	log.Info().
		Str("sesion_caja_id", sesion.ID.String()).
		Str("caja_id", cajaID.String()).
		Str("monto_apertura", sesion.MontoApertura.StringFixed(2)).
		Msg("caja abierta")

	return s.reporte(sesion, repository.TotalesVentas{}, decimal.Zero, decimal.Zero), nil
}

// ── RegistrarMovimiento ───────────────────────────────────────────────────────
// Manual ingreso / egreso. Movements are immutable.

func (s *cajaService) RegistrarMovimiento(ctx context.Context, op Operador, sesionID uuid.UUID, req dto.MovimientoCajaRequest) (*dto.MovimientoCajaResponse, error) {
	tipo := model.TipoMovimientoCaja(req.Tipo)
	switch tipo {
	case model.MovCajaIngreso, model.MovCajaEgreso:
	default:
		return nil, apierror.ValidationField("tipo", "tipo de movimiento desconocido: %q", req.Tipo)
	}
	if !req.Monto.IsPositive() {
		return nil, apierror.ValidationField("monto", "el monto debe ser mayor a cero")
	}
	if err := validarEscala(req.Monto, escalaMonto, "monto"); err != nil {
		return nil, err
	}
	descripcion := strings.TrimSpace(req.Descripcion)
	if descripcion == "" {
		return nil, apierror.ValidationField("descripcion", "la descripción es obligatoria")
	}
	if _, err := s.sesionDelNegocio(ctx, op, sesionID); err != nil {
		return nil, err
	}

	mov := &model.MovimientoCaja{
		ID:           uuid.New(),
		SesionCajaID: sesionID,
		Tipo:         tipo,
		Monto:        req.Monto,
		Descripcion:  descripcion,
		UsuarioID:    op.UsuarioID,
	}
	err := s.tx.RunInTx(ctx, func(tx *gorm.DB) error {
		sesion, err := s.repo.FindSesionForUpdateTx(ctx, tx, sesionID)
		if err != nil {
			return err
		}
		if sesion.Estado != model.SesionAbierta {
			return apierror.SessionNotOpen(sesionID)
		}
		return s.repo.CreateMovimientoTx(ctx, tx, mov)
	})
	if err != nil {
		return nil, err
	}
	return movimientoCajaToResponse(mov), nil
}

// ── Cerrar ────────────────────────────────────────────────────────────────────
// Computes the session totals, reconciles them against the declared cash and
// freezes everything. Later cancellations do not alter a closed session.

func (s *cajaService) Cerrar(ctx context.Context, op Operador, sesionID uuid.UUID, req dto.CerrarCajaRequest) (*dto.ReporteCajaResponse, error) {
	if req.MontoCierre.IsNegative() {
		return nil, apierror.ValidationField("monto_cierre", "el monto de cierre no puede ser negativo")
	}
	if err := validarEscala(req.MontoCierre, escalaMonto, "monto_cierre"); err != nil {
		return nil, err
	}
	if _, err := s.sesionDelNegocio(ctx, op, sesionID); err != nil {
		return nil, err
	}

	var (
		sesion            *model.SesionCaja
		totales           repository.TotalesVentas
		ingresos, egresos decimal.Decimal
	)
	err := s.tx.RunInTx(ctx, func(tx *gorm.DB) error {
		var err error
		sesion, err = s.repo.FindSesionForUpdateTx(ctx, tx, sesionID)
		if err != nil {
			return err
		}
		if sesion.Estado != model.SesionAbierta {
			return apierror.SessionNotOpen(sesionID)
		}

		totales, err = s.ventaRepo.TotalesPorSesionTx(ctx, tx, sesionID)
		if err != nil {
			return err
		}
		ingresos, egresos, err = s.repo.SumMovimientosTx(ctx, tx, sesionID)
		if err != nil {
			return err
		}

		res := CalcularArqueo(EntradaArqueo{
			MontoApertura: sesion.MontoApertura,
			VentasContado: totales.Contado,
			Ingresos:      ingresos,
			Egresos:       egresos,
			MontoCierre:   req.MontoCierre,
		})
		clasificacion := clasificarDesvio(res.Diferencia, res.MontoEsperado)

		now := s.now()
		montoCierre := req.MontoCierre
		sesion.Estado = model.SesionCerrada
		sesion.MontoCierre = &montoCierre
		sesion.NotasCierre = req.Notas
		sesion.CerradaPor = &op.UsuarioID
		sesion.CerradaAt = &now
		sesion.TotalVentas = &totales.Contado
		sesion.CantVentas = &totales.Cantidad
		sesion.TotalCredito = &totales.Credito
		sesion.TotalIngreso = &ingresos
		sesion.TotalEgreso = &egresos
		sesion.MontoEsperado = &res.MontoEsperado
		sesion.Diferencia = &res.Diferencia
		sesion.ClasificacionDesvio = &clasificacion
		return s.repo.UpdateSesionTx(ctx, tx, sesion)
	})
	if err != nil {
		return nil, err
	}

	infra.SesionesCajaTotal.WithLabelValues("cierre_" + *sesion.ClasificacionDesvio).Inc()
	ev := log.Info()
	if *sesion.ClasificacionDesvio == DesvioCritico {
		ev = log.Warn()
	}
	ev.Str("sesion_caja_id", sesionID.String()).
		Str("esperado", sesion.MontoEsperado.StringFixed(2)).
		Str("cierre", sesion.MontoCierre.StringFixed(2)).
		Str("diferencia", sesion.Diferencia.StringFixed(2)).
		Str("clasificacion", *sesion.ClasificacionDesvio).
		Msg("caja cerrada")

	if s.encolador != nil {
		if err := s.encolador.EncolarCierreCaja(ctx, sesionID); err != nil {
			log.Error().Err(err).Str("sesion_caja_id", sesionID.String()).Msg("no se pudo encolar el reporte de cierre")
		}
	}

	if movs, err := s.repo.ListMovimientos(ctx, sesionID); err == nil {
		sesion.Movimientos = movs
	}
	return s.reporte(sesion, totales, ingresos, egresos), nil
}

// ── Lookups used by VentaService ──────────────────────────────────────────────

func (s *cajaService) SesionAbiertaDeCajaTx(ctx context.Context, tx *gorm.DB, cajaID uuid.UUID) (*model.SesionCaja, error) {
	sesion, err := s.repo.FindSesionAbiertaPorCajaTx(ctx, tx, cajaID)
	if err != nil || sesion == nil {
		return nil, err
	}
	return s.lockAbierta(ctx, tx, sesion.ID)
}

// SesionAbiertaDeAlmacenTx only tags when exactly one register of the
// warehouse is open; with several the sale cannot be attributed.
func (s *cajaService) SesionAbiertaDeAlmacenTx(ctx context.Context, tx *gorm.DB, almacenID uuid.UUID) (*model.SesionCaja, error) {
	sesiones, err := s.repo.ListSesionesAbiertasPorAlmacenTx(ctx, tx, almacenID)
	if err != nil {
		return nil, err
	}
	if len(sesiones) != 1 {
		return nil, nil
	}
	return s.lockAbierta(ctx, tx, sesiones[0].ID)
}

func (s *cajaService) lockAbierta(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.SesionCaja, error) {
	sesion, err := s.repo.FindSesionForUpdateTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if sesion.Estado != model.SesionAbierta {
		return nil, nil // closed between the lookup and the lock
	}
	return sesion, nil
}

// ── Reportes ──────────────────────────────────────────────────────────────────

// ObtenerReporte returns live figures for an open session and the frozen ones
// for a closed session.
func (s *cajaService) ObtenerReporte(ctx context.Context, op Operador, sesionID uuid.UUID) (*dto.ReporteCajaResponse, error) {
	sesion, err := s.sesionDelNegocio(ctx, op, sesionID)
	if err != nil {
		return nil, err
	}

	var totales repository.TotalesVentas
	if sesion.Estado == model.SesionAbierta || sesion.CantVentas == nil {
		totales, err = s.ventaRepo.TotalesPorSesionTx(ctx, nil, sesionID)
		if err != nil {
			return nil, err
		}
	}
	ingresos, egresos := decimal.Zero, decimal.Zero
	if sesion.Estado == model.SesionAbierta {
		ingresos, egresos, err = s.repo.SumMovimientosTx(ctx, nil, sesionID)
		if err != nil {
			return nil, err
		}
	}
	return s.reporte(sesion, totales, ingresos, egresos), nil
}

func (s *cajaService) Historial(ctx context.Context, op Operador, cajaID uuid.UUID, page, limit int) (*dto.SesionListResponse, error) {
	if _, err := s.cajaDelNegocio(ctx, op, cajaID); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	sesiones, total, err := s.repo.ListSesiones(ctx, cajaID, page, limit)
	if err != nil {
		return nil, err
	}
	data := make([]dto.ReporteCajaResponse, 0, len(sesiones))
	for i := range sesiones {
		data = append(data, *s.reporte(&sesiones[i], repository.TotalesVentas{}, decimal.Zero, decimal.Zero))
	}
	return &dto.SesionListResponse{Data: data, Total: total, Page: page, Limit: limit}, nil
}

// reporte builds the response. Closed sessions always use their stored totals;
// the live figures are only used while the session is open.
func (s *cajaService) reporte(sesion *model.SesionCaja, totales repository.TotalesVentas, ingresos, egresos decimal.Decimal) *dto.ReporteCajaResponse {
	resp := &dto.ReporteCajaResponse{
		SesionCajaID:  sesion.ID.String(),
		CajaID:        sesion.CajaID.String(),
		Estado:        string(sesion.Estado),
		AbiertaPor:    sesion.AbiertaPor.String(),
		AbiertaAt:     sesion.AbiertaAt.Format(time.RFC3339),
		NotasApertura: sesion.NotasApertura,
		CerradaPor:    uuidPtrString(sesion.CerradaPor),
		CerradaAt:     timePtrString(sesion.CerradaAt),
		NotasCierre:   sesion.NotasCierre,
		CantVentas:    totales.Cantidad,
		Movimientos:   make([]dto.MovimientoCajaResponse, 0, len(sesion.Movimientos)),
	}
	for i := range sesion.Movimientos {
		resp.Movimientos = append(resp.Movimientos, *movimientoCajaToResponse(&sesion.Movimientos[i]))
	}

	if sesion.Estado == model.SesionCerrada {
		if sesion.CantVentas != nil {
			resp.CantVentas = *sesion.CantVentas
		}
		resp.Arqueo = dto.ArqueoResponse{
			MontoApertura: sesion.MontoApertura,
			TotalVentas:   derefDecimal(sesion.TotalVentas),
			TotalCredito:  derefDecimal(sesion.TotalCredito),
			TotalIngreso:  derefDecimal(sesion.TotalIngreso),
			TotalEgreso:   derefDecimal(sesion.TotalEgreso),
			MontoEsperado: derefDecimal(sesion.MontoEsperado),
			MontoCierre:   sesion.MontoCierre,
			Diferencia:    sesion.Diferencia,
			Clasificacion: sesion.ClasificacionDesvio,
		}
		return resp
	}

	res := CalcularArqueo(EntradaArqueo{
		MontoApertura: sesion.MontoApertura,
		VentasContado: totales.Contado,
		Ingresos:      ingresos,
		Egresos:       egresos,
	})
	resp.Arqueo = dto.ArqueoResponse{
		MontoApertura: sesion.MontoApertura,
		TotalVentas:   totales.Contado,
		TotalCredito:  totales.Credito,
		TotalIngreso:  ingresos,
		TotalEgreso:   egresos,
		MontoEsperado: res.MontoEsperado,
	}
	return resp
}

func (s *cajaService) cajaDelNegocio(ctx context.Context, op Operador, cajaID uuid.UUID) (*model.Caja, error) {
	caja, err := s.repo.FindCaja(ctx, cajaID)
	if err != nil {
		return nil, err
	}
	if caja.NegocioID != op.NegocioID {
		return nil, apierror.NotFound("caja no encontrada")
	}
	return caja, nil
}

func (s *cajaService) sesionDelNegocio(ctx context.Context, op Operador, sesionID uuid.UUID) (*model.SesionCaja, error) {
	sesion, err := s.repo.FindSesionByID(ctx, sesionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.cajaDelNegocio(ctx, op, sesion.CajaID); err != nil {
		return nil, apierror.NotFound("sesión de caja no encontrada")
	}
	return sesion, nil
}

func derefDecimal(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

func movimientoCajaToResponse(m *model.MovimientoCaja) *dto.MovimientoCajaResponse {
	return &dto.MovimientoCajaResponse{
		ID:          m.ID.String(),
		Tipo:        string(m.Tipo),
		Monto:       m.Monto,
		Descripcion: m.Descripcion,
		UsuarioID:   m.UsuarioID.String(),
		CreatedAt:   m.CreatedAt.Format(time.RFC3339),
	}
}
