package service

import (
	"context"
	"fmt"
	"time"

	"github.com/AndresDiezT/alto-vivo-sub000/internal/apierror"
	"github.com/AndresDiezT/alto-vivo-sub000/internal/dto"
	"github.com/AndresDiezT/alto-vivo-sub000/internal/model"
	"github.com/AndresDiezT/alto-vivo-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Cuenta addresses one balance of the credit ledger.
type Cuenta struct {
	Tipo model.CuentaTipo
	ID   uuid.UUID
}

func CuentaDeCliente(id uuid.UUID) Cuenta   { return Cuenta{Tipo: model.CuentaCliente, ID: id} }
func CuentaDeProveedor(id uuid.UUID) Cuenta { return Cuenta{Tipo: model.CuentaProveedor, ID: id} }

// OpcionesCartera are the credit policy knobs loaded from config.
type OpcionesCartera struct {
	DiasGracia        int
	PermitirSobrepago bool
}

// CarteraService keeps client and supplier balances. A balance only changes
// together with the MovimientoCredito that explains it.
type CarteraService interface {
	// CargarTx increases a balance. For clients it enforces status and credit limit.
	CargarTx(ctx context.Context, tx *gorm.DB, cuenta Cuenta, monto decimal.Decimal, descripcion string, ref *uuid.UUID, usuarioID *uuid.UUID) (*model.MovimientoCredito, error)
	// RevertirTx posts the equal-and-opposite movement. A movement is reversed at most once.
	RevertirTx(ctx context.Context, tx *gorm.DB, movimientoID uuid.UUID, motivo string, usuarioID *uuid.UUID) (*model.MovimientoCredito, error)
	// RegistrarCompraTx stamps the client's last purchase date.
	RegistrarCompraTx(ctx context.Context, tx *gorm.DB, clienteID uuid.UUID, at time.Time) error

	Abonar(ctx context.Context, op Operador, cuenta Cuenta, req dto.AbonoRequest) (*dto.MovimientoCreditoResponse, error)
	CargarProveedor(ctx context.Context, op Operador, proveedorID uuid.UUID, req dto.CargoProveedorRequest) (*dto.MovimientoCreditoResponse, error)
	CambiarEstadoCliente(ctx context.Context, op Operador, clienteID uuid.UUID, req dto.EstadoClienteRequest) (*dto.EstadoCuentaResponse, error)

	EstadoCliente(c *model.Cliente, now time.Time) model.EstadoCliente
	RefrescarMorosidad(ctx context.Context, now time.Time) (int, error)
	EstadoCuenta(ctx context.Context, op Operador, cuenta Cuenta, page, limit int) (*dto.EstadoCuentaResponse, error)
	Reconciliar(ctx context.Context, op Operador, cuenta Cuenta) (*dto.ReconciliacionCuentaResponse, error)
}

type carteraService struct {
	tx   repository.Transactor
	repo repository.CarteraRepository
	opts OpcionesCartera
	now  func() time.Time
}

func NewCarteraService(tx repository.Transactor, repo repository.CarteraRepository, opts OpcionesCartera) CarteraService {
	if opts.DiasGracia <= 0 {
		opts.DiasGracia = 30
	}
	return &carteraService{tx: tx, repo: repo, opts: opts, now: time.Now}
}

// cuentaBloqueada is an account row locked inside a transaction.
type cuentaBloqueada struct {
	cuenta    Cuenta
	cliente   *model.Cliente
	proveedor *model.Proveedor
}

func (c *cuentaBloqueada) saldo() decimal.Decimal {
	if c.cliente != nil {
		return c.cliente.SaldoActual
	}
	return c.proveedor.SaldoActual
}

func (s *carteraService) lockCuenta(ctx context.Context, tx *gorm.DB, cuenta Cuenta) (*cuentaBloqueada, error) {
	switch cuenta.Tipo {
	case model.CuentaCliente:
		c, err := s.repo.FindClienteForUpdateTx(ctx, tx, cuenta.ID)
		if err != nil {
			return nil, err
		}
		return &cuentaBloqueada{cuenta: cuenta, cliente: c}, nil
	case model.CuentaProveedor:
		p, err := s.repo.FindProveedorForUpdateTx(ctx, tx, cuenta.ID)
		if err != nil {
			return nil, err
		}
		return &cuentaBloqueada{cuenta: cuenta, proveedor: p}, nil
	default:
		return nil, apierror.Validation("tipo de cuenta desconocido: %q", cuenta.Tipo)
	}
}

// postear applies one movement to a locked account and persists both.
func (s *carteraService) postear(ctx context.Context, tx *gorm.DB, cb *cuentaBloqueada, mov *model.MovimientoCredito) error {
	nuevo := cb.saldo().Add(mov.Importe())
	mov.ID = uuid.New()
	mov.CuentaTipo = cb.cuenta.Tipo
	mov.CuentaID = cb.cuenta.ID
	mov.SaldoResultante = nuevo

	if err := s.repo.CreateMovimientoTx(ctx, tx, mov); err != nil {
		return err
	}
	if cb.cliente != nil {
		cb.cliente.SaldoActual = nuevo
		cb.cliente.Estado = s.EstadoCliente(cb.cliente, s.now())
		return s.repo.UpdateClienteTx(ctx, tx, cb.cliente)
	}
	cb.proveedor.SaldoActual = nuevo
	return s.repo.UpdateProveedorTx(ctx, tx, cb.proveedor)
}

func (s *carteraService) CargarTx(ctx context.Context, tx *gorm.DB, cuenta Cuenta, monto decimal.Decimal, descripcion string, ref *uuid.UUID, usuarioID *uuid.UUID) (*model.MovimientoCredito, error) {
	if !monto.IsPositive() {
		return nil, apierror.ValidationField("monto", "el monto del cargo debe ser mayor a cero")
	}
	if err := validarEscala(monto, escalaMonto, "monto"); err != nil {
		return nil, err
	}
	cb, err := s.lockCuenta(ctx, tx, cuenta)
	if err != nil {
		return nil, err
	}

	if c := cb.cliente; c != nil {
		switch estado := s.EstadoCliente(c, s.now()); estado {
		case model.ClienteBloqueado, model.ClienteInactivo:
			return nil, apierror.ValidationField("cliente_id", "el cliente %s no puede operar a crédito (estado %s)", c.Nombre, estado)
		}
		if c.LimiteCredito.IsPositive() && c.SaldoActual.Add(monto).GreaterThan(c.LimiteCredito) {
			return nil, apierror.ValidationField("monto",
				"el cargo excede el límite de crédito del cliente (saldo %s, límite %s)",
				c.SaldoActual.StringFixed(2), c.LimiteCredito.StringFixed(2))
		}
	}

	mov := &model.MovimientoCredito{
		Tipo:         model.MovCreditoCargo,
		Monto:        monto,
		Descripcion:  descripcion,
		ReferenciaID: ref,
		UsuarioID:    usuarioID,
	}
	if err := s.postear(ctx, tx, cb, mov); err != nil {
		return nil, err
	}
	return mov, nil
}

// RevertirTx bypasses limit, status and overpayment rules: undoing a movement
// must always be possible.
func (s *carteraService) RevertirTx(ctx context.Context, tx *gorm.DB, movimientoID uuid.UUID, motivo string, usuarioID *uuid.UUID) (*model.MovimientoCredito, error) {
	orig, err := s.repo.FindMovimientoTx(ctx, tx, movimientoID)
	if err != nil {
		return nil, err
	}
	if orig.RevierteID != nil {
		return nil, apierror.Validation("un movimiento de reversión no puede revertirse")
	}

	cb, err := s.lockCuenta(ctx, tx, Cuenta{Tipo: orig.CuentaTipo, ID: orig.CuentaID})
	if err != nil {
		return nil, err
	}
	revertido, err := s.repo.ExisteReversionTx(ctx, tx, orig.ID)
	if err != nil {
		return nil, err
	}
	if revertido {
		return nil, apierror.Validation("el movimiento %s ya fue revertido", orig.ID)
	}

	mov := &model.MovimientoCredito{
		Tipo:         orig.Tipo.Inverso(),
		Monto:        orig.Monto,
		Descripcion:  motivo,
		ReferenciaID: orig.ReferenciaID,
		RevierteID:   &orig.ID,
		UsuarioID:    usuarioID,
	}
	if err := s.postear(ctx, tx, cb, mov); err != nil {
		return nil, err
	}
	log.Info().
		Str("movimiento_id", orig.ID.String()).
		Str("reversion_id", mov.ID.String()).
		Str("cuenta_id", orig.CuentaID.String()).
		Msg("movimiento de crédito revertido")
	return mov, nil
}

func (s *carteraService) RegistrarCompraTx(ctx context.Context, tx *gorm.DB, clienteID uuid.UUID, at time.Time) error {
	c, err := s.repo.FindClienteForUpdateTx(ctx, tx, clienteID)
	if err != nil {
		return err
	}
	c.UltimaCompraAt = &at
	c.Estado = s.EstadoCliente(c, at)
	return s.repo.UpdateClienteTx(ctx, tx, c)
}

func (s *carteraService) Abonar(ctx context.Context, op Operador, cuenta Cuenta, req dto.AbonoRequest) (*dto.MovimientoCreditoResponse, error) {
	if !req.Monto.IsPositive() {
		return nil, apierror.ValidationField("monto", "el monto del abono debe ser mayor a cero")
	}
	if err := validarEscala(req.Monto, escalaMonto, "monto"); err != nil {
		return nil, err
	}
	if err := s.verificarNegocio(ctx, op, cuenta); err != nil {
		return nil, err
	}
	descripcion := req.Descripcion
	if descripcion == "" {
		descripcion = "Abono a cuenta"
	}

	var mov *model.MovimientoCredito
	err := s.tx.RunInTx(ctx, func(tx *gorm.DB) error {
		cb, err := s.lockCuenta(ctx, tx, cuenta)
		if err != nil {
			return err
		}
		if !s.opts.PermitirSobrepago && req.Monto.GreaterThan(cb.saldo()) {
			return apierror.ValidationField("monto",
				"el abono (%s) supera el saldo adeudado (%s)", req.Monto.StringFixed(2), cb.saldo().StringFixed(2))
		}
		mov = &model.MovimientoCredito{
			Tipo:        model.MovCreditoAbono,
			Monto:       req.Monto,
			Descripcion: descripcion,
			UsuarioID:   &op.UsuarioID,
		}
		return s.postear(ctx, tx, cb, mov)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("cuenta_tipo", string(cuenta.Tipo)).
		Str("cuenta_id", cuenta.ID.String()).
		Str("monto", req.Monto.StringFixed(2)).
		Str("saldo", mov.SaldoResultante.StringFixed(2)).
		Msg("abono registrado")
	return movimientoCreditoToResponse(mov), nil
}

func (s *carteraService) CargarProveedor(ctx context.Context, op Operador, proveedorID uuid.UUID, req dto.CargoProveedorRequest) (*dto.MovimientoCreditoResponse, error) {
	cuenta := CuentaDeProveedor(proveedorID)
	if err := s.verificarNegocio(ctx, op, cuenta); err != nil {
		return nil, err
	}

	var mov *model.MovimientoCredito
	err := s.tx.RunInTx(ctx, func(tx *gorm.DB) error {
		var err error
		mov, err = s.CargarTx(ctx, tx, cuenta, req.Monto, req.Descripcion, nil, &op.UsuarioID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return movimientoCreditoToResponse(mov), nil
}

func (s *carteraService) CambiarEstadoCliente(ctx context.Context, op Operador, clienteID uuid.UUID, req dto.EstadoClienteRequest) (*dto.EstadoCuentaResponse, error) {
	var manual *model.EstadoCliente
	switch model.EstadoCliente(req.Estado) {
	case "":
	case model.ClienteBloqueado, model.ClienteInactivo:
		e := model.EstadoCliente(req.Estado)
		manual = &e
	default:
		return nil, apierror.ValidationField("estado", "estado manual inválido: %q", req.Estado)
	}
	cuenta := CuentaDeCliente(clienteID)
	if err := s.verificarNegocio(ctx, op, cuenta); err != nil {
		return nil, err
	}

	err := s.tx.RunInTx(ctx, func(tx *gorm.DB) error {
		c, err := s.repo.FindClienteForUpdateTx(ctx, tx, clienteID)
		if err != nil {
			return err
		}
		c.EstadoManual = manual
		c.Estado = s.EstadoCliente(c, s.now())
		return s.repo.UpdateClienteTx(ctx, tx, c)
	})
	if err != nil {
		return nil, err
	}
	return s.EstadoCuenta(ctx, op, cuenta, 1, 20)
}

// EstadoCliente derives the credit status. A manual bloqueado/inactivo wins;
// otherwise a client with debt and no purchase within the grace period is moroso.
func (s *carteraService) EstadoCliente(c *model.Cliente, now time.Time) model.EstadoCliente {
	if c.EstadoManual != nil {
		switch *c.EstadoManual {
		case model.ClienteBloqueado, model.ClienteInactivo:
			return *c.EstadoManual
		}
	}
	if !c.SaldoActual.IsPositive() {
		return model.ClienteActivo
	}
	gracia := time.Duration(s.opts.DiasGracia) * 24 * time.Hour
	desde := c.CreatedAt
	if c.UltimaCompraAt != nil {
		desde = *c.UltimaCompraAt
	}
	if now.Sub(desde) > gracia {
		return model.ClienteMoroso
	}
	return model.ClienteActivo
}

// RefrescarMorosidad recomputes the cached status of every client that has a
// balance or is currently flagged moroso. Returns how many changed.
func (s *carteraService) RefrescarMorosidad(ctx context.Context, now time.Time) (int, error) {
	clientes, err := s.repo.ListClientesConSaldo(ctx)
	if err != nil {
		return 0, fmt.Errorf("listar clientes con saldo: %w", err)
	}

	cambiados := 0
	for i := range clientes {
		if s.EstadoCliente(&clientes[i], now) == clientes[i].Estado {
			continue
		}
		changed := false
		err := s.tx.RunInTx(ctx, func(tx *gorm.DB) error {
			c, err := s.repo.FindClienteForUpdateTx(ctx, tx, clientes[i].ID)
			if err != nil {
				return err
			}
			nuevo := s.EstadoCliente(c, now)
			if nuevo == c.Estado {
				return nil
			}
			c.Estado = nuevo
			changed = true
			return s.repo.UpdateClienteTx(ctx, tx, c)
		})
		if err != nil {
			return cambiados, fmt.Errorf("refrescar cliente %s: %w", clientes[i].ID, err)
		}
		if changed {
			cambiados++
		}
	}

	log.Info().Int("revisados", len(clientes)).Int("cambiados", cambiados).Msg("morosidad actualizada")
	return cambiados, nil
}

func (s *carteraService) EstadoCuenta(ctx context.Context, op Operador, cuenta Cuenta, page, limit int) (*dto.EstadoCuentaResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}
	resp := &dto.EstadoCuentaResponse{
		CuentaTipo: string(cuenta.Tipo),
		CuentaID:   cuenta.ID.String(),
		Page:       page,
		Limit:      limit,
	}

	switch cuenta.Tipo {
	case model.CuentaCliente:
		c, err := s.repo.FindCliente(ctx, cuenta.ID)
		if err != nil {
			return nil, err
		}
		if c.NegocioID != op.NegocioID {
			return nil, apierror.NotFound("cliente no encontrado")
		}
		resp.Nombre = c.Nombre
		resp.Saldo = c.SaldoActual
		limite := c.LimiteCredito
		resp.LimiteCredito = &limite
		resp.Estado = string(s.EstadoCliente(c, s.now()))
	case model.CuentaProveedor:
		p, err := s.repo.FindProveedor(ctx, cuenta.ID)
		if err != nil {
			return nil, err
		}
		if p.NegocioID != op.NegocioID {
			return nil, apierror.NotFound("proveedor no encontrado")
		}
		resp.Nombre = p.RazonSocial
		resp.Saldo = p.SaldoActual
	default:
		return nil, apierror.Validation("tipo de cuenta desconocido: %q", cuenta.Tipo)
	}

	movs, total, err := s.repo.ListMovimientos(ctx, cuenta.Tipo, cuenta.ID, page, limit)
	if err != nil {
		return nil, err
	}
	resp.Total = total
	resp.Movimientos = make([]dto.MovimientoCreditoResponse, 0, len(movs))
	for i := range movs {
		resp.Movimientos = append(resp.Movimientos, *movimientoCreditoToResponse(&movs[i]))
	}
	return resp, nil
}

// Reconciliar compares the stored balance with the sum of its movements.
func (s *carteraService) Reconciliar(ctx context.Context, op Operador, cuenta Cuenta) (*dto.ReconciliacionCuentaResponse, error) {
	var saldo decimal.Decimal
	switch cuenta.Tipo {
	case model.CuentaCliente:
		c, err := s.repo.FindCliente(ctx, cuenta.ID)
		if err != nil {
			return nil, err
		}
		if c.NegocioID != op.NegocioID {
			return nil, apierror.NotFound("cliente no encontrado")
		}
		saldo = c.SaldoActual
	case model.CuentaProveedor:
		p, err := s.repo.FindProveedor(ctx, cuenta.ID)
		if err != nil {
			return nil, err
		}
		if p.NegocioID != op.NegocioID {
			return nil, apierror.NotFound("proveedor no encontrado")
		}
		saldo = p.SaldoActual
	default:
		return nil, apierror.Validation("tipo de cuenta desconocido: %q", cuenta.Tipo)
	}

	calculado, err := s.repo.SumMovimientos(ctx, cuenta.Tipo, cuenta.ID)
	if err != nil {
		return nil, err
	}
	resp := &dto.ReconciliacionCuentaResponse{
		CuentaTipo:  string(cuenta.Tipo),
		CuentaID:    cuenta.ID.String(),
		Saldo:       saldo,
		Calculado:   calculado,
		Consistente: saldo.Equal(calculado),
	}
	if !resp.Consistente {
		log.Warn().
			Str("cuenta_tipo", resp.CuentaTipo).
			Str("cuenta_id", resp.CuentaID).
			Str("saldo", saldo.String()).
			Str("calculado", calculado.String()).
			Msg("saldo inconsistente con el historial de movimientos")
	}
	return resp, nil
}

func (s *carteraService) verificarNegocio(ctx context.Context, op Operador, cuenta Cuenta) error {
	switch cuenta.Tipo {
	case model.CuentaCliente:
		c, err := s.repo.FindCliente(ctx, cuenta.ID)
		if err != nil {
			return err
		}
		if c.NegocioID != op.NegocioID {
			return apierror.NotFound("cliente no encontrado")
		}
	case model.CuentaProveedor:
		p, err := s.repo.FindProveedor(ctx, cuenta.ID)
		if err != nil {
			return err
		}
		if p.NegocioID != op.NegocioID || !p.Activo {
			return apierror.NotFound("proveedor no encontrado")
		}
	default:
		return apierror.Validation("tipo de cuenta desconocido: %q", cuenta.Tipo)
	}
	return nil
}

func movimientoCreditoToResponse(m *model.MovimientoCredito) *dto.MovimientoCreditoResponse {
	return &dto.MovimientoCreditoResponse{
		ID:              m.ID.String(),
		Tipo:            string(m.Tipo),
		Monto:           m.Monto,
		SaldoResultante: m.SaldoResultante,
		Descripcion:     m.Descripcion,
		ReferenciaID:    uuidPtrString(m.ReferenciaID),
		RevierteID:      uuidPtrString(m.RevierteID),
		CreatedAt:       m.CreatedAt.Format(time.RFC3339),
	}
}
