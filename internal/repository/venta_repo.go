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

// VentaFilter narrows GET /v1/ventas.
type VentaFilter struct {
	NegocioID    uuid.UUID
	Fecha        string // YYYY-MM-DD; empty = today
	Estado       string // completada | anulada | all
	SesionCajaID *uuid.UUID
	ClienteID    *uuid.UUID
	Page         int
	Limit        int
}

// TotalesVentas aggregates the completed sales tagged with a cash session.
type TotalesVentas struct {
	Cantidad int64
	Contado  decimal.Decimal // Σ non-credit payments
	Credito  decimal.Decimal // Σ credit portion
}

type VentaRepository interface {
	CreateTx(ctx context.Context, tx *gorm.DB, v *model.Venta) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Venta, error)
	// FindForUpdateTx loads the sale with items and payments, locking its row.
	FindForUpdateTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Venta, error)
	FindByOfflineID(ctx context.Context, offlineID string) (*model.Venta, error)
	MarcarAnuladaTx(ctx context.Context, tx *gorm.DB, v *model.Venta) error
	NextTicketNumber(ctx context.Context, tx *gorm.DB) (int, error)
	TotalesPorSesionTx(ctx context.Context, tx *gorm.DB, sesionID uuid.UUID) (TotalesVentas, error)
	List(ctx context.Context, filter VentaFilter) ([]model.Venta, int64, error)
}

type ventaRepo struct{ db *gorm.DB }

func NewVentaRepository(db *gorm.DB) VentaRepository { return &ventaRepo{db: db} }

func (r *ventaRepo) CreateTx(ctx context.Context, tx *gorm.DB, v *model.Venta) error {
	return conn(r.db, tx).WithContext(ctx).Create(v).Error
}

func (r *ventaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Venta, error) {
	var v model.Venta
	err := r.db.WithContext(ctx).
		Preload("Items.Presentacion").Preload("Pagos.MetodoPago").
		First(&v, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, "venta no encontrada")
	}
	return &v, nil
}

func (r *ventaRepo) FindForUpdateTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Venta, error) {
	db := conn(r.db, tx).WithContext(ctx)
	var v model.Venta
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&v, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "venta no encontrada")
	}
	if err := db.Where("venta_id = ?", id).Find(&v.Items).Error; err != nil {
		return nil, err
	}
	if err := db.Where("venta_id = ?", id).Find(&v.Pagos).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

// FindByOfflineID returns (nil, nil) when no sale carries the offline id.
func (r *ventaRepo) FindByOfflineID(ctx context.Context, offlineID string) (*model.Venta, error) {
	var v model.Venta
	err := r.db.WithContext(ctx).
		Preload("Items.Presentacion").Preload("Pagos.MetodoPago").
		Where("offline_id = ?", offlineID).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *ventaRepo) MarcarAnuladaTx(ctx context.Context, tx *gorm.DB, v *model.Venta) error {
	return conn(r.db, tx).WithContext(ctx).Model(&model.Venta{}).
		Where("id = ?", v.ID).
		Updates(map[string]interface{}{
			"estado":           v.Estado,
			"motivo_anulacion": v.MotivoAnulacion,
			"anulada_por":      v.AnuladaPor,
			"anulada_at":       v.AnuladaAt,
		}).Error
}

func (r *ventaRepo) NextTicketNumber(ctx context.Context, tx *gorm.DB) (int, error) {
	// Uses a PostgreSQL sequence for atomic ticket number generation
	var num int
	err := conn(r.db, tx).WithContext(ctx).Raw("SELECT nextval('ventas_numero_ticket_seq')").Scan(&num).Error
	return num, err
}

func (r *ventaRepo) TotalesPorSesionTx(ctx context.Context, tx *gorm.DB, sesionID uuid.UUID) (TotalesVentas, error) {
	var t TotalesVentas
	err := conn(r.db, tx).WithContext(ctx).Model(&model.Venta{}).
		Select("COUNT(*), COALESCE(SUM(monto_pagado), 0), COALESCE(SUM(monto_credito), 0)").
		Where("sesion_caja_id = ? AND estado = ?", sesionID, model.VentaCompletada).
		Row().Scan(&t.Cantidad, &t.Contado, &t.Credito)
	return t, err
}

func (r *ventaRepo) List(ctx context.Context, filter VentaFilter) ([]model.Venta, int64, error) {
	var ventas []model.Venta
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Venta{}).Where("negocio_id = ?", filter.NegocioID)

	if filter.Estado != "" && filter.Estado != "all" {
		q = q.Where("estado = ?", filter.Estado)
	}
	if filter.SesionCajaID != nil {
		q = q.Where("sesion_caja_id = ?", *filter.SesionCajaID)
	}
	if filter.ClienteID != nil {
		q = q.Where("cliente_id = ?", *filter.ClienteID)
	}
	if filter.Fecha != "" {
		q = q.Where("DATE(created_at) = ?", filter.Fecha)
	} else if filter.SesionCajaID == nil && filter.ClienteID == nil {
		// Default: today
		q = q.Where("DATE(created_at) = CURRENT_DATE")
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit := normalizePage(filter.Page, filter.Limit, 50, 200)
	err := q.Preload("Items.Presentacion").Preload("Pagos.MetodoPago").
		Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&ventas).Error

	return ventas, total, err
}
