package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Presentacion is the sellable unit of a product (e.g. "Gaseosa 500ml x6").
// Catalog CRUD lives elsewhere; this backend only reads it.
type Presentacion struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	NegocioID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	CodigoBarras *string         `gorm:"index"`
	Nombre       string          `gorm:"not null"`
	PrecioVenta  decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	Perecedero   bool            `gorm:"not null;default:false"`
	Activo       bool            `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (Presentacion) TableName() string { return "presentaciones" }

// Almacen is a stock location. Each business has one default warehouse.
type Almacen struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	NegocioID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Nombre     string    `gorm:"not null"`
	PorDefecto bool      `gorm:"not null;default:false"`
	Activo     bool      `gorm:"not null;default:true"`
	CreatedAt  time.Time
}

func (Almacen) TableName() string { return "almacenes" }
