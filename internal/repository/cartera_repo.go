package repository

import (
	"context"

	"github.com/AndresDiezT/alto-vivo-sub000/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CarteraRepository persists client and supplier balances and the credit
// ledger that explains them.
type CarteraRepository interface {
	FindCliente(ctx context.Context, id uuid.UUID) (*model.Cliente, error)
	FindClienteForUpdateTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Cliente, error)
	UpdateClienteTx(ctx context.Context, tx *gorm.DB, c *model.Cliente) error
	ListClientesConSaldo(ctx context.Context) ([]model.Cliente, error)

	FindProveedor(ctx context.Context, id uuid.UUID) (*model.Proveedor, error)
	FindProveedorForUpdateTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Proveedor, error)
	UpdateProveedorTx(ctx context.Context, tx *gorm.DB, p *model.Proveedor) error

	CreateMovimientoTx(ctx context.Context, tx *gorm.DB, m *model.MovimientoCredito) error
	FindMovimientoTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.MovimientoCredito, error)
	// ExisteReversionTx reports whether a movement already has a reversal.
	ExisteReversionTx(ctx context.Context, tx *gorm.DB, movimientoID uuid.UUID) (bool, error)
	ListMovimientos(ctx context.Context, tipo model.CuentaTipo, cuentaID uuid.UUID, page, limit int) ([]model.MovimientoCredito, int64, error)
	// SumMovimientos returns Σ signed movements for an account.
	SumMovimientos(ctx context.Context, tipo model.CuentaTipo, cuentaID uuid.UUID) (decimal.Decimal, error)
}

type carteraRepo struct{ db *gorm.DB }

func NewCarteraRepository(db *gorm.DB) CarteraRepository { return &carteraRepo{db: db} }

func (r *carteraRepo) FindCliente(ctx context.Context, id uuid.UUID) (*model.Cliente, error) {
	var c model.Cliente
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "cliente no encontrado")
	}
	return &c, nil
}

func (r *carteraRepo) FindClienteForUpdateTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Cliente, error) {
	var c model.Cliente
	err := conn(r.db, tx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&c, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, "cliente no encontrado")
	}
	return &c, nil
}

func (r *carteraRepo) UpdateClienteTx(ctx context.Context, tx *gorm.DB, c *model.Cliente) error {
	return conn(r.db, tx).WithContext(ctx).Model(&model.Cliente{}).
		Where("id = ?", c.ID).
		Updates(map[string]interface{}{
			"saldo_actual":     c.SaldoActual,
			"estado_manual":    c.EstadoManual,
			"estado":           c.Estado,
			"ultima_compra_at": c.UltimaCompraAt,
			"updated_at":       gorm.Expr("NOW()"),
		}).Error
}

func (r *carteraRepo) ListClientesConSaldo(ctx context.Context) ([]model.Cliente, error) {
	var clientes []model.Cliente
	err := r.db.WithContext(ctx).
		Where("saldo_actual > 0 OR estado = ?", model.ClienteMoroso).
		Find(&clientes).Error
	return clientes, err
}

func (r *carteraRepo) FindProveedor(ctx context.Context, id uuid.UUID) (*model.Proveedor, error) {
	var p model.Proveedor
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "proveedor no encontrado")
	}
	return &p, nil
}

func (r *carteraRepo) FindProveedorForUpdateTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Proveedor, error) {
	var p model.Proveedor
	err := conn(r.db, tx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&p, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, "proveedor no encontrado")
	}
	return &p, nil
}

func (r *carteraRepo) UpdateProveedorTx(ctx context.Context, tx *gorm.DB, p *model.Proveedor) error {
	return conn(r.db, tx).WithContext(ctx).Model(&model.Proveedor{}).
		Where("id = ?", p.ID).
		Updates(map[string]interface{}{"saldo_actual": p.SaldoActual, "updated_at": gorm.Expr("NOW()")}).Error
}

func (r *carteraRepo) CreateMovimientoTx(ctx context.Context, tx *gorm.DB, m *model.MovimientoCredito) error {
	return conn(r.db, tx).WithContext(ctx).Create(m).Error
}

func (r *carteraRepo) FindMovimientoTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.MovimientoCredito, error) {
	var m model.MovimientoCredito
	if err := conn(r.db, tx).WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "movimiento de crédito no encontrado")
	}
	return &m, nil
}

func (r *carteraRepo) ExisteReversionTx(ctx context.Context, tx *gorm.DB, movimientoID uuid.UUID) (bool, error) {
	var n int64
	err := conn(r.db, tx).WithContext(ctx).Model(&model.MovimientoCredito{}).
		Where("revierte_id = ?", movimientoID).
		Count(&n).Error
	return n > 0, err
}

func (r *carteraRepo) ListMovimientos(ctx context.Context, tipo model.CuentaTipo, cuentaID uuid.UUID, page, limit int) ([]model.MovimientoCredito, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.MovimientoCredito{}).
		Where("cuenta_tipo = ? AND cuenta_id = ?", tipo, cuentaID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit = normalizePage(page, limit, 50, 200)
	var movs []model.MovimientoCredito
	err := q.Order("created_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&movs).Error
	return movs, total, err
}

func (r *carteraRepo) SumMovimientos(ctx context.Context, tipo model.CuentaTipo, cuentaID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.db.WithContext(ctx).Model(&model.MovimientoCredito{}).
		Select("COALESCE(SUM(CASE WHEN tipo = ? THEN monto ELSE -monto END), 0)", model.MovCreditoCargo).
		Where("cuenta_tipo = ? AND cuenta_id = ?", tipo, cuentaID).
		Row().Scan(&sum)
	return sum, err
}
