package service

import (
	"context"
	"fmt"
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

type VentaService interface {
	RegistrarVenta(ctx context.Context, op Operador, req dto.RegistrarVentaRequest) (*dto.VentaResponse, error)
	AnularVenta(ctx context.Context, op Operador, id uuid.UUID, motivo string) (*dto.VentaResponse, error)
	ObtenerVenta(ctx context.Context, op Operador, id uuid.UUID) (*dto.VentaResponse, error)
	ListarVentas(ctx context.Context, op Operador, filter dto.VentaFilter) (*dto.VentaListResponse, error)
}

type ventaService struct {
	tx          repository.Transactor
	repo        repository.VentaRepository
	catalogo    repository.CatalogoRepository
	cajaRepo    repository.CajaRepository
	carteraRepo repository.CarteraRepository
	inventario  InventarioService
	cartera     CarteraService
	caja        CajaService
	now         func() time.Time
}

func NewVentaService(
	tx repository.Transactor,
	repo repository.VentaRepository,
	catalogo repository.CatalogoRepository,
	cajaRepo repository.CajaRepository,
	carteraRepo repository.CarteraRepository,
	inventario InventarioService,
	cartera CarteraService,
	caja CajaService,
) VentaService {
	return &ventaService{
		tx:          tx,
		repo:        repo,
		catalogo:    catalogo,
		cajaRepo:    cajaRepo,
		carteraRepo: carteraRepo,
		inventario:  inventario,
		cartera:     cartera,
		caja:        caja,
		now:         time.Now,
	}
}

// ventaPreparada is a validated cart, ready to be committed.
type ventaPreparada struct {
	venta          *model.Venta
	stock          []ItemStock
	pagos          *PagosAsignados
	cajaID         *uuid.UUID
	presentaciones map[uuid.UUID]model.Presentacion
	metodos        map[uuid.UUID]model.MetodoPago
}

// ── RegistrarVenta ────────────────────────────────────────────────────────────
// Everything is validated before the transaction; inside it, in order:
//  1. ticket number from the sequence
//  2. stock reservation (locks stock rows, then lots)
//  3. credit charge and last purchase date (locks the client)
//  4. open session lookup (locks the session)
//  5. venta + items + pagos
//
// Any failure rolls back all of it.

func (s *ventaService) RegistrarVenta(ctx context.Context, op Operador, req dto.RegistrarVentaRequest) (*dto.VentaResponse, error) {
	prep, err := s.preparar(ctx, op, req)
	if err != nil {
		return nil, err
	}

	if req.OfflineID != nil && *req.OfflineID != "" {
		existente, err := s.repo.FindByOfflineID(ctx, *req.OfflineID)
		if err != nil {
			return nil, err
		}
		if existente != nil && existente.NegocioID == op.NegocioID {
			log.Info().Str("offline_id", *req.OfflineID).Str("venta_id", existente.ID.String()).Msg("venta offline ya registrada")
			return ventaToResponse(existente), nil
		}
	}

	v := prep.venta
	err = s.tx.RunInTx(ctx, func(tx *gorm.DB) error {
		ticket, err := s.repo.NextTicketNumber(ctx, tx)
		if err != nil {
			return fmt.Errorf("numero de ticket: %w", err)
		}
		v.NumeroTicket = ticket
		motivo := fmt.Sprintf("Venta #%d", ticket)

		ref := RefMovimiento{ReferenciaID: v.ID, Motivo: motivo, UsuarioID: &op.UsuarioID}
		if err := s.inventario.ReservarParaVentaTx(ctx, tx, v.AlmacenID, prep.stock, ref); err != nil {
			return err
		}

		if v.ClienteID != nil {
			if prep.pagos.TieneCredito() {
				mov, err := s.cartera.CargarTx(ctx, tx, CuentaDeCliente(*v.ClienteID), prep.pagos.MontoCredito, motivo, &v.ID, &op.UsuarioID)
				if err != nil {
					return err
				}
				v.MovimientoCreditoID = &mov.ID
			}
			if err := s.cartera.RegistrarCompraTx(ctx, tx, *v.ClienteID, s.now()); err != nil {
				return err
			}
		}

		var sesion *model.SesionCaja
		if prep.cajaID != nil {
			sesion, err = s.caja.SesionAbiertaDeCajaTx(ctx, tx, *prep.cajaID)
		} else {
			sesion, err = s.caja.SesionAbiertaDeAlmacenTx(ctx, tx, v.AlmacenID)
		}
		if err != nil {
			return err
		}
		if sesion != nil {
			v.SesionCajaID = &sesion.ID
		}

		return s.repo.CreateTx(ctx, tx, v)
	})
	if err != nil {
		infra.VentasTotal.WithLabelValues("rechazada").Inc()
		return nil, err
	}

	infra.VentasTotal.WithLabelValues("registrada").Inc()
	infra.VentasMonto.Add(v.Total.InexactFloat64())
	log.Info().
		Str("venta_id", v.ID.String()).
		Int("ticket", v.NumeroTicket).
		Str("total", v.Total.StringFixed(2)).
		Str("monto_credito", v.MontoCredito.StringFixed(2)).
		Bool("con_sesion", v.SesionCajaID != nil).
		Msg("venta registrada")

	for i := range v.Items {
		if p, ok := prep.presentaciones[v.Items[i].PresentacionID]; ok {
			v.Items[i].Presentacion = &p
		}
	}
	for i := range v.Pagos {
		if m, ok := prep.metodos[v.Pagos[i].MetodoPagoID]; ok {
			v.Pagos[i].MetodoPago = &m
		}
	}
	return ventaToResponse(v), nil
}

// preparar validates the request against the catalog and builds the sale
// without touching any lockable row.
func (s *ventaService) preparar(ctx context.Context, op Operador, req dto.RegistrarVentaRequest) (*ventaPreparada, error) {
	if len(req.Items) == 0 {
		return nil, apierror.ValidationField("items", "la venta requiere al menos un ítem")
	}

	ids := make([]uuid.UUID, 0, len(req.Items))
	for i, it := range req.Items {
		id, err := parseUUID(it.PresentacionID, fmt.Sprintf("items[%d].presentacion_id", i))
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	presentaciones, err := s.catalogo.FindPresentaciones(ctx, ids)
	if err != nil {
		return nil, err
	}

	v := &model.Venta{
		ID:        uuid.New(),
		NegocioID: op.NegocioID,
		UsuarioID: op.UsuarioID,
		Estado:    model.VentaCompletada,
		OfflineID: req.OfflineID,
		Notas:     req.Notas,
	}
	stock := make([]ItemStock, 0, len(req.Items))
	subtotal := decimal.Zero

	for i, it := range req.Items {
		campo := fmt.Sprintf("items[%d]", i)
		p, ok := presentaciones[ids[i]]
		if !ok || p.NegocioID != op.NegocioID {
			return nil, apierror.NotFound(fmt.Sprintf("presentación %s no encontrada", ids[i]))
		}
		if !p.Activo {
			return nil, apierror.ValidationField(campo, "la presentación %s está inactiva y no puede venderse", p.Nombre)
		}
		if err := validarCantidad(it.Cantidad, campo+".cantidad"); err != nil {
			return nil, err
		}
		precio := p.PrecioVenta
		if it.PrecioUnitario != nil {
			precio = *it.PrecioUnitario
		}
		if precio.IsNegative() {
			return nil, apierror.ValidationField(campo+".precio_unitario", "el precio no puede ser negativo")
		}
		if err := validarEscala(precio, escalaMonto, campo+".precio_unitario"); err != nil {
			return nil, err
		}
		if err := validarEscala(it.Descuento, escalaMonto, campo+".descuento"); err != nil {
			return nil, err
		}
		bruto := precio.Mul(it.Cantidad).Round(2)
		if it.Descuento.IsNegative() || it.Descuento.GreaterThan(bruto) {
			return nil, apierror.ValidationField(campo+".descuento", "el descuento debe estar entre 0 y %s", bruto.StringFixed(2))
		}
		linea := bruto.Sub(it.Descuento)
		subtotal = subtotal.Add(linea)

		v.Items = append(v.Items, model.VentaItem{
			ID:             uuid.New(),
			VentaID:        v.ID,
			PresentacionID: ids[i],
			Cantidad:       it.Cantidad,
			PrecioUnitario: precio,
			Descuento:      it.Descuento,
			Subtotal:       linea,
		})
		stock = append(stock, ItemStock{PresentacionID: ids[i], Cantidad: it.Cantidad})
	}

	if err := validarEscala(req.Descuento, escalaMonto, "descuento"); err != nil {
		return nil, err
	}
	if req.Descuento.IsNegative() || req.Descuento.GreaterThan(subtotal) {
		return nil, apierror.ValidationField("descuento", "el descuento debe estar entre 0 y %s", subtotal.StringFixed(2))
	}
	v.Subtotal = subtotal
	v.Descuento = req.Descuento
	v.Total = subtotal.Sub(req.Descuento)

	cajaID, err := parseOptionalUUID(req.CajaID, "caja_id")
	if err != nil {
		return nil, err
	}
	almacen, err := s.resolverAlmacen(ctx, op, req.AlmacenID, cajaID)
	if err != nil {
		return nil, err
	}
	v.AlmacenID = almacen.ID

	clienteID, err := parseOptionalUUID(req.ClienteID, "cliente_id")
	if err != nil {
		return nil, err
	}
	if clienteID != nil {
		c, err := s.carteraRepo.FindCliente(ctx, *clienteID)
		if err != nil {
			return nil, err
		}
		if c.NegocioID != op.NegocioID {
			return nil, apierror.NotFound("cliente no encontrado")
		}
		v.ClienteID = clienteID
	}

	pagos, metodos, err := s.asignarPagos(ctx, op, v.Total, req.Pagos, clienteID != nil)
	if err != nil {
		return nil, err
	}
	v.MontoPagado = pagos.MontoPagado
	v.MontoCredito = pagos.MontoCredito
	for _, p := range pagos.Pagos {
		v.Pagos = append(v.Pagos, model.VentaPago{
			ID:           uuid.New(),
			VentaID:      v.ID,
			MetodoPagoID: p.MetodoPagoID,
			Monto:        p.Monto,
			EsCredito:    p.EsCredito,
		})
	}

	return &ventaPreparada{
		venta:          v,
		stock:          stock,
		pagos:          pagos,
		cajaID:         cajaID,
		presentaciones: presentaciones,
		metodos:        metodos,
	}, nil
}

// resolverAlmacen picks the warehouse: explicit, else the register's, else the
// business default.
func (s *ventaService) resolverAlmacen(ctx context.Context, op Operador, almacenID *string, cajaID *uuid.UUID) (*model.Almacen, error) {
	var cajaAlmacen *uuid.UUID
	if cajaID != nil {
		caja, err := s.cajaRepo.FindCaja(ctx, *cajaID)
		if err != nil {
			return nil, err
		}
		if caja.NegocioID != op.NegocioID {
			return nil, apierror.NotFound("caja no encontrada")
		}
		cajaAlmacen = &caja.AlmacenID
	}

	id, err := parseOptionalUUID(almacenID, "almacen_id")
	if err != nil {
		return nil, err
	}
	switch {
	case id != nil:
		if cajaAlmacen != nil && *cajaAlmacen != *id {
			return nil, apierror.ValidationField("caja_id", "la caja no pertenece al almacén indicado")
		}
	case cajaAlmacen != nil:
		id = cajaAlmacen
	default:
		return s.catalogo.FindAlmacenPorDefecto(ctx, op.NegocioID)
	}

	alm, err := s.catalogo.FindAlmacen(ctx, *id)
	if err != nil {
		return nil, err
	}
	if alm.NegocioID != op.NegocioID || !alm.Activo {
		return nil, apierror.NotFound("almacén no encontrado")
	}
	return alm, nil
}

// asignarPagos resolves each payment method against the registry and hands the
// split to AsignarPagos.
func (s *ventaService) asignarPagos(ctx context.Context, op Operador, total decimal.Decimal, req []dto.PagoRequest, hayCliente bool) (*PagosAsignados, map[uuid.UUID]model.MetodoPago, error) {
	if len(req) == 0 {
		asignados, err := AsignarPagos(total, nil, hayCliente)
		if err != nil {
			return nil, nil, err
		}
		return asignados, map[uuid.UUID]model.MetodoPago{}, nil
	}
	ids := make([]uuid.UUID, 0, len(req))
	for i, p := range req {
		id, err := parseUUID(p.MetodoPagoID, fmt.Sprintf("pagos[%d].metodo_pago_id", i))
		if err != nil {
			return nil, nil, err
		}
		ids = append(ids, id)
	}
	metodos, err := s.catalogo.FindMetodosPago(ctx, ids)
	if err != nil {
		return nil, nil, err
	}

	propuestos := make([]PagoPropuesto, 0, len(req))
	for i, p := range req {
		m, ok := metodos[ids[i]]
		if !ok || m.NegocioID != op.NegocioID {
			return nil, nil, apierror.NotFound(fmt.Sprintf("método de pago %s no encontrado", ids[i]))
		}
		if !m.Activo {
			return nil, nil, apierror.ValidationField(fmt.Sprintf("pagos[%d]", i), "el método de pago %s está inactivo", m.Nombre)
		}
		propuestos = append(propuestos, PagoPropuesto{MetodoPagoID: m.ID, Monto: p.Monto, EsCredito: m.EsCredito})
	}

	asignados, err := AsignarPagos(total, propuestos, hayCliente)
	if err != nil {
		return nil, nil, err
	}
	return asignados, metodos, nil
}

// ── AnularVenta ───────────────────────────────────────────────────────────────
// completada → anulada. Stock comes back and the credit charge is reversed in
// the same transaction that flips the state.

func (s *ventaService) AnularVenta(ctx context.Context, op Operador, id uuid.UUID, motivo string) (*dto.VentaResponse, error) {
	motivo = strings.TrimSpace(motivo)
	if motivo == "" {
		return nil, apierror.ValidationField("motivo", "el motivo de anulación es obligatorio")
	}

	var ticket int
	err := s.tx.RunInTx(ctx, func(tx *gorm.DB) error {
		v, err := s.repo.FindForUpdateTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if v.NegocioID != op.NegocioID {
			return apierror.NotFound("venta no encontrada")
		}
		switch v.Estado {
		case model.VentaCompletada:
		case model.VentaAnulada:
			return apierror.AlreadyCancelled(id)
		default:
			return apierror.Validation("estado de venta desconocido: %q", v.Estado)
		}
		ticket = v.NumeroTicket
		descripcion := fmt.Sprintf("Anulación venta #%d: %s", v.NumeroTicket, motivo)

		items := make([]ItemStock, 0, len(v.Items))
		for _, it := range v.Items {
			items = append(items, ItemStock{PresentacionID: it.PresentacionID, Cantidad: it.Cantidad})
		}
		ref := RefMovimiento{ReferenciaID: v.ID, Motivo: descripcion, UsuarioID: &op.UsuarioID}
		if err := s.inventario.LiberarTx(ctx, tx, v.AlmacenID, items, ref); err != nil {
			return err
		}

		if v.MovimientoCreditoID != nil {
			if _, err := s.cartera.RevertirTx(ctx, tx, *v.MovimientoCreditoID, descripcion, &op.UsuarioID); err != nil {
				return err
			}
		}

		now := s.now()
		v.Estado = model.VentaAnulada
		v.MotivoAnulacion = &motivo
		v.AnuladaPor = &op.UsuarioID
		v.AnuladaAt = &now
		return s.repo.MarcarAnuladaTx(ctx, tx, v)
	})
	if err != nil {
		return nil, err
	}

	infra.VentasTotal.WithLabelValues("anulada").Inc()
	log.Info().
		Str("venta_id", id.String()).
		Int("ticket", ticket).
		Str("motivo", motivo).
		Msg("venta anulada")

	return s.ObtenerVenta(ctx, op, id)
}

// ── Consultas ─────────────────────────────────────────────────────────────────

func (s *ventaService) ObtenerVenta(ctx context.Context, op Operador, id uuid.UUID) (*dto.VentaResponse, error) {
	v, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if v.NegocioID != op.NegocioID {
		return nil, apierror.NotFound("venta no encontrada")
	}
	return ventaToResponse(v), nil
}

// ListarVentas defaults to today's completed sales.
func (s *ventaService) ListarVentas(ctx context.Context, op Operador, filter dto.VentaFilter) (*dto.VentaListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 200 {
		filter.Limit = 50
	}
	if filter.Estado == "" {
		filter.Estado = string(model.VentaCompletada)
	}
	sesionID, err := parseOptionalUUID(&filter.SesionCajaID, "sesion_caja_id")
	if err != nil {
		return nil, err
	}
	clienteID, err := parseOptionalUUID(&filter.ClienteID, "cliente_id")
	if err != nil {
		return nil, err
	}

	ventas, total, err := s.repo.List(ctx, repository.VentaFilter{
		NegocioID:    op.NegocioID,
		Fecha:        filter.Fecha,
		Estado:       filter.Estado,
		SesionCajaID: sesionID,
		ClienteID:    clienteID,
		Page:         filter.Page,
		Limit:        filter.Limit,
	})
	if err != nil {
		return nil, err
	}
	data := make([]dto.VentaResponse, 0, len(ventas))
	for i := range ventas {
		data = append(data, *ventaToResponse(&ventas[i]))
	}
	return &dto.VentaListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func ventaToResponse(v *model.Venta) *dto.VentaResponse {
	items := make([]dto.ItemVentaResponse, 0, len(v.Items))
	for _, it := range v.Items {
		nombre := ""
		if it.Presentacion != nil {
			nombre = it.Presentacion.Nombre
		}
		items = append(items, dto.ItemVentaResponse{
			PresentacionID: it.PresentacionID.String(),
			Presentacion:   nombre,
			Cantidad:       it.Cantidad,
			PrecioUnitario: it.PrecioUnitario,
			Descuento:      it.Descuento,
			Subtotal:       it.Subtotal,
		})
	}
	pagos := make([]dto.PagoResponse, 0, len(v.Pagos))
	for _, p := range v.Pagos {
		metodo := ""
		if p.MetodoPago != nil {
			metodo = p.MetodoPago.Nombre
		}
		pagos = append(pagos, dto.PagoResponse{
			MetodoPagoID: p.MetodoPagoID.String(),
			Metodo:       metodo,
			Monto:        p.Monto,
			EsCredito:    p.EsCredito,
		})
	}
	return &dto.VentaResponse{
		ID:                  v.ID.String(),
		NumeroTicket:        v.NumeroTicket,
		ClienteID:           uuidPtrString(v.ClienteID),
		AlmacenID:           v.AlmacenID.String(),
		SesionCajaID:        uuidPtrString(v.SesionCajaID),
		Items:               items,
		Pagos:               pagos,
		Subtotal:            v.Subtotal,
		Descuento:           v.Descuento,
		Total:               v.Total,
		MontoPagado:         v.MontoPagado,
		MontoCredito:        v.MontoCredito,
		EstadoPago:          v.EstadoPago(),
		MovimientoCreditoID: uuidPtrString(v.MovimientoCreditoID),
		Estado:              string(v.Estado),
		MotivoAnulacion:     v.MotivoAnulacion,
		AnuladaAt:           timePtrString(v.AnuladaAt),
		CreatedAt:           v.CreatedAt.Format(time.RFC3339),
	}
}
