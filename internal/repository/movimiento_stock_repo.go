package repository

import (
	"bytes"
	"context"
	"slices"
	"time"

	"github.com/AndresDiezT/alto-vivo-sub000/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MovimientoStockFilter defines filters for listing stock movements.
type MovimientoStockFilter struct {
	NegocioID      uuid.UUID
	PresentacionID *uuid.UUID
	AlmacenID      *uuid.UUID
	Tipo           string
	Page           int
	Limit          int
}

// FiltroVencidos scopes the expired-lot scan. A nil NegocioID scans every
// business and is reserved for the scheduled job.
type FiltroVencidos struct {
	NegocioID *uuid.UUID
	AlmacenID *uuid.UUID
}

// StockFilter narrows the materialized stock listing.
type StockFilter struct {
	NegocioID      uuid.UUID
	PresentacionID *uuid.UUID
	AlmacenID      *uuid.UUID
}

type StockRepository interface {
	// LockStockTx returns the stock rows of the given presentations in one
	// warehouse, locked FOR UPDATE in presentation-id order. Missing rows are
	// created with zero quantity so they can be locked too.
	LockStockTx(ctx context.Context, tx *gorm.DB, almacenID uuid.UUID, presentacionIDs []uuid.UUID) (map[uuid.UUID]*model.StockPresentacion, error)
	SaveStockTx(ctx context.Context, tx *gorm.DB, s *model.StockPresentacion) error
	CreateMovimientoTx(ctx context.Context, tx *gorm.DB, m *model.MovimientoStock) error
	SumMovimientosTx(ctx context.Context, tx *gorm.DB, presentacionID, almacenID uuid.UUID) (decimal.Decimal, error)

	// LotesDisponiblesTx returns non-expired lots with units left, locked, in FEFO order.
	LotesDisponiblesTx(ctx context.Context, tx *gorm.DB, presentacionID, almacenID uuid.UUID, now time.Time) ([]model.Lote, error)
	FindLoteTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Lote, error)
	CreateLoteTx(ctx context.Context, tx *gorm.DB, l *model.Lote) error
	SaveLoteTx(ctx context.Context, tx *gorm.DB, l *model.Lote) error
	LotesVencidos(ctx context.Context, filtro FiltroVencidos, now time.Time) ([]model.Lote, error)

	ListStock(ctx context.Context, filter StockFilter) ([]model.StockPresentacion, error)
	ListMovimientos(ctx context.Context, filter MovimientoStockFilter) ([]model.MovimientoStock, int64, error)
}

type stockRepo struct{ db *gorm.DB }

func NewStockRepository(db *gorm.DB) StockRepository {
	return &stockRepo{db: db}
}

// SortIDs orders ids the same way PostgreSQL orders uuid columns. Locks are
// always taken in this order so two transactions never wait on each other in a cycle.
func SortIDs(ids []uuid.UUID) []uuid.UUID {
	out := slices.Clone(ids)
	slices.SortFunc(out, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
	return slices.Compact(out)
}

func (r *stockRepo) LockStockTx(ctx context.Context, tx *gorm.DB, almacenID uuid.UUID, presentacionIDs []uuid.UUID) (map[uuid.UUID]*model.StockPresentacion, error) {
	ids := SortIDs(presentacionIDs)
	db := conn(r.db, tx).WithContext(ctx)

	for _, id := range ids {
		row := model.StockPresentacion{PresentacionID: id, AlmacenID: almacenID, Cantidad: decimal.Zero}
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
			return nil, err
		}
	}

	var rows []model.StockPresentacion
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("almacen_id = ? AND presentacion_id IN ?", almacenID, ids).
		Order("presentacion_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[uuid.UUID]*model.StockPresentacion, len(rows))
	for i := range rows {
		out[rows[i].PresentacionID] = &rows[i]
	}
	return out, nil
}

func (r *stockRepo) SaveStockTx(ctx context.Context, tx *gorm.DB, s *model.StockPresentacion) error {
	return conn(r.db, tx).WithContext(ctx).Model(&model.StockPresentacion{}).
		Where("presentacion_id = ? AND almacen_id = ?", s.PresentacionID, s.AlmacenID).
		Updates(map[string]interface{}{"cantidad": s.Cantidad, "updated_at": time.Now()}).Error
}

func (r *stockRepo) CreateMovimientoTx(ctx context.Context, tx *gorm.DB, m *model.MovimientoStock) error {
	return conn(r.db, tx).WithContext(ctx).Create(m).Error
}

func (r *stockRepo) SumMovimientosTx(ctx context.Context, tx *gorm.DB, presentacionID, almacenID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := conn(r.db, tx).WithContext(ctx).Model(&model.MovimientoStock{}).
		Select("COALESCE(SUM(cantidad), 0)").
		Where("presentacion_id = ? AND almacen_id = ?", presentacionID, almacenID).
		Row().Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

func (r *stockRepo) LotesDisponiblesTx(ctx context.Context, tx *gorm.DB, presentacionID, almacenID uuid.UUID, now time.Time) ([]model.Lote, error) {
	var lotes []model.Lote
	err := conn(r.db, tx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("presentacion_id = ? AND almacen_id = ? AND cantidad_restante > 0", presentacionID, almacenID).
		Where("vence_at IS NULL OR vence_at >= ?", now).
		Order("vence_at ASC NULLS LAST").Order("created_at ASC").
		Find(&lotes).Error
	return lotes, err
}

func (r *stockRepo) FindLoteTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Lote, error) {
	var l model.Lote
	err := conn(r.db, tx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&l, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, "lote no encontrado")
	}
	return &l, nil
}

func (r *stockRepo) CreateLoteTx(ctx context.Context, tx *gorm.DB, l *model.Lote) error {
	return conn(r.db, tx).WithContext(ctx).Create(l).Error
}

func (r *stockRepo) SaveLoteTx(ctx context.Context, tx *gorm.DB, l *model.Lote) error {
	return conn(r.db, tx).WithContext(ctx).Model(&model.Lote{}).
		Where("id = ?", l.ID).
		Update("cantidad_restante", l.CantidadRestante).Error
}

func (r *stockRepo) LotesVencidos(ctx context.Context, filtro FiltroVencidos, now time.Time) ([]model.Lote, error) {
	q := r.db.WithContext(ctx).
		Where("vence_at IS NOT NULL AND vence_at < ? AND cantidad_restante > 0", now)
	if filtro.NegocioID != nil {
		q = q.Where("almacen_id IN (?)", almacenesDelNegocio(r.db, *filtro.NegocioID))
	}
	if filtro.AlmacenID != nil {
		q = q.Where("almacen_id = ?", *filtro.AlmacenID)
	}
	var lotes []model.Lote
	err := q.Order("vence_at ASC").Find(&lotes).Error
	return lotes, err
}

func (r *stockRepo) ListStock(ctx context.Context, filter StockFilter) ([]model.StockPresentacion, error) {
	q := r.db.WithContext(ctx).Model(&model.StockPresentacion{}).
		Where("almacen_id IN (?)", almacenesDelNegocio(r.db, filter.NegocioID))
	if filter.PresentacionID != nil {
		q = q.Where("presentacion_id = ?", *filter.PresentacionID)
	}
	if filter.AlmacenID != nil {
		q = q.Where("almacen_id = ?", *filter.AlmacenID)
	}
	var rows []model.StockPresentacion
	err := q.Order("almacen_id, presentacion_id").Find(&rows).Error
	return rows, err
}

func (r *stockRepo) ListMovimientos(ctx context.Context, filter MovimientoStockFilter) ([]model.MovimientoStock, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.MovimientoStock{}).
		Where("almacen_id IN (?)", almacenesDelNegocio(r.db, filter.NegocioID))
	if filter.PresentacionID != nil {
		q = q.Where("presentacion_id = ?", *filter.PresentacionID)
	}
	if filter.AlmacenID != nil {
		q = q.Where("almacen_id = ?", *filter.AlmacenID)
	}
	if filter.Tipo != "" {
		q = q.Where("tipo = ?", filter.Tipo)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit := normalizePage(filter.Page, filter.Limit, 100, 500)
	offset := (page - 1) * limit

	var movimientos []model.MovimientoStock
	err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&movimientos).Error
	return movimientos, total, err
}

// normalizePage clamps pagination parameters.
func normalizePage(page, limit, def, maxLimit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > maxLimit {
		limit = def
	}
	return page, limit
}

func almacenesDelNegocio(db *gorm.DB, negocioID uuid.UUID) *gorm.DB {
	return db.Model(&model.Almacen{}).Select("id").Where("negocio_id = ?", negocioID)
}
