package repository

import (
	"context"

	"github.com/AndresDiezT/alto-vivo-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CatalogoRepository is the read-only view of the catalog the engine needs:
// presentations, warehouses and the payment method registry.
type CatalogoRepository interface {
	FindPresentaciones(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.Presentacion, error)
	FindPresentacionPorCodigo(ctx context.Context, negocioID uuid.UUID, codigo string) (*model.Presentacion, error)
	FindAlmacen(ctx context.Context, id uuid.UUID) (*model.Almacen, error)
	FindAlmacenPorDefecto(ctx context.Context, negocioID uuid.UUID) (*model.Almacen, error)
	FindMetodosPago(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.MetodoPago, error)
}

type catalogoRepo struct{ db *gorm.DB }

func NewCatalogoRepository(db *gorm.DB) CatalogoRepository { return &catalogoRepo{db: db} }

func (r *catalogoRepo) FindPresentaciones(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.Presentacion, error) {
	var rows []model.Presentacion
	if err := r.db.WithContext(ctx).Where("id IN ?", SortIDs(ids)).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]model.Presentacion, len(rows))
	for _, p := range rows {
		out[p.ID] = p
	}
	return out, nil
}

func (r *catalogoRepo) FindPresentacionPorCodigo(ctx context.Context, negocioID uuid.UUID, codigo string) (*model.Presentacion, error) {
	var p model.Presentacion
	err := r.db.WithContext(ctx).
		Where("negocio_id = ? AND codigo_barras = ? AND activo = true", negocioID, codigo).
		First(&p).Error
	if err != nil {
		return nil, notFound(err, "presentación no encontrada")
	}
	return &p, nil
}

func (r *catalogoRepo) FindAlmacen(ctx context.Context, id uuid.UUID) (*model.Almacen, error) {
	var a model.Almacen
	if err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "almacén no encontrado")
	}
	return &a, nil
}

func (r *catalogoRepo) FindAlmacenPorDefecto(ctx context.Context, negocioID uuid.UUID) (*model.Almacen, error) {
	var a model.Almacen
	err := r.db.WithContext(ctx).
		Where("negocio_id = ? AND por_defecto = true AND activo = true", negocioID).
		First(&a).Error
	if err != nil {
		return nil, notFound(err, "el negocio no tiene almacén por defecto")
	}
	return &a, nil
}

func (r *catalogoRepo) FindMetodosPago(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.MetodoPago, error) {
	var rows []model.MetodoPago
	if err := r.db.WithContext(ctx).Where("id IN ?", SortIDs(ids)).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]model.MetodoPago, len(rows))
	for _, m := range rows {
		out[m.ID] = m
	}
	return out, nil
}
