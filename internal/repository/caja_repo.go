package repository

import (
	"context"
	"errors"

	"github.com/AndresDiezT/alto-vivo-sub000/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CajaRepository interface {
	FindCaja(ctx context.Context, id uuid.UUID) (*model.Caja, error)
	CreateSesionTx(ctx context.Context, tx *gorm.DB, s *model.SesionCaja) error
	// FindSesionAbiertaPorCajaTx returns (nil, nil) when the register has no open session.
	FindSesionAbiertaPorCajaTx(ctx context.Context, tx *gorm.DB, cajaID uuid.UUID) (*model.SesionCaja, error)
	// ListSesionesAbiertasPorAlmacenTx returns the open sessions of every register in a warehouse.
	ListSesionesAbiertasPorAlmacenTx(ctx context.Context, tx *gorm.DB, almacenID uuid.UUID) ([]model.SesionCaja, error)
	FindSesionByID(ctx context.Context, id uuid.UUID) (*model.SesionCaja, error)
	FindSesionForUpdateTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.SesionCaja, error)
	UpdateSesionTx(ctx context.Context, tx *gorm.DB, s *model.SesionCaja) error
	ListSesiones(ctx context.Context, cajaID uuid.UUID, page, limit int) ([]model.SesionCaja, int64, error)
	CreateMovimientoTx(ctx context.Context, tx *gorm.DB, m *model.MovimientoCaja) error
	ListMovimientos(ctx context.Context, sesionCajaID uuid.UUID) ([]model.MovimientoCaja, error)
	// SumMovimientosTx returns Σ ingresos and Σ egresos of a session.
	SumMovimientosTx(ctx context.Context, tx *gorm.DB, sesionCajaID uuid.UUID) (ingresos, egresos decimal.Decimal, err error)
}

type cajaRepo struct{ db *gorm.DB }

func NewCajaRepository(db *gorm.DB) CajaRepository { return &cajaRepo{db: db} }

func (r *cajaRepo) FindCaja(ctx context.Context, id uuid.UUID) (*model.Caja, error) {
	var c model.Caja
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "caja no encontrada")
	}
	return &c, nil
}

func (r *cajaRepo) CreateSesionTx(ctx context.Context, tx *gorm.DB, s *model.SesionCaja) error {
	return conn(r.db, tx).WithContext(ctx).Create(s).Error
}

func (r *cajaRepo) FindSesionAbiertaPorCajaTx(ctx context.Context, tx *gorm.DB, cajaID uuid.UUID) (*model.SesionCaja, error) {
	var s model.SesionCaja
	err := conn(r.db, tx).WithContext(ctx).
		Where("caja_id = ? AND estado = ?", cajaID, model.SesionAbierta).
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *cajaRepo) ListSesionesAbiertasPorAlmacenTx(ctx context.Context, tx *gorm.DB, almacenID uuid.UUID) ([]model.SesionCaja, error) {
	var sesiones []model.SesionCaja
	err := conn(r.db, tx).WithContext(ctx).
		Joins("JOIN cajas ON cajas.id = sesiones_caja.caja_id").
		Where("cajas.almacen_id = ? AND sesiones_caja.estado = ?", almacenID, model.SesionAbierta).
		Find(&sesiones).Error
	return sesiones, err
}

func (r *cajaRepo) FindSesionByID(ctx context.Context, id uuid.UUID) (*model.SesionCaja, error) {
	var s model.SesionCaja
	err := r.db.WithContext(ctx).
		Preload("Movimientos", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&s, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, "sesión de caja no encontrada")
	}
	return &s, nil
}

func (r *cajaRepo) FindSesionForUpdateTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.SesionCaja, error) {
	var s model.SesionCaja
	err := conn(r.db, tx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&s, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, "sesión de caja no encontrada")
	}
	return &s, nil
}

func (r *cajaRepo) UpdateSesionTx(ctx context.Context, tx *gorm.DB, s *model.SesionCaja) error {
	return conn(r.db, tx).WithContext(ctx).Omit(clause.Associations).Save(s).Error
}

func (r *cajaRepo) ListSesiones(ctx context.Context, cajaID uuid.UUID, page, limit int) ([]model.SesionCaja, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.SesionCaja{}).Where("caja_id = ?", cajaID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit = normalizePage(page, limit, 20, 100)
	var sesiones []model.SesionCaja
	err := q.Order("abierta_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&sesiones).Error
	return sesiones, total, err
}

func (r *cajaRepo) CreateMovimientoTx(ctx context.Context, tx *gorm.DB, m *model.MovimientoCaja) error {
	return conn(r.db, tx).WithContext(ctx).Create(m).Error
}

func (r *cajaRepo) ListMovimientos(ctx context.Context, sesionCajaID uuid.UUID) ([]model.MovimientoCaja, error) {
	var movs []model.MovimientoCaja
	err := r.db.WithContext(ctx).Where("sesion_caja_id = ?", sesionCajaID).Order("created_at ASC").Find(&movs).Error
	return movs, err
}

func (r *cajaRepo) SumMovimientosTx(ctx context.Context, tx *gorm.DB, sesionCajaID uuid.UUID) (decimal.Decimal, decimal.Decimal, error) {
	var ingresos, egresos decimal.Decimal
	err := conn(r.db, tx).WithContext(ctx).Model(&model.MovimientoCaja{}).
		Select(
			"COALESCE(SUM(CASE WHEN tipo = ? THEN monto ELSE 0 END), 0), "+
				"COALESCE(SUM(CASE WHEN tipo = ? THEN monto ELSE 0 END), 0)",
			model.MovCajaIngreso, model.MovCajaEgreso,
		).
		Where("sesion_caja_id = ?", sesionCajaID).
		Row().Scan(&ingresos, &egresos)
	return ingresos, egresos, err
}
