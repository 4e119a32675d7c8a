package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Proveedor represents a supplier. SaldoActual is what the business owes the
// supplier, kept by the same credit ledger used for clients.
type Proveedor struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	NegocioID     uuid.UUID `gorm:"type:uuid;not null;index"`
	RazonSocial   string    `gorm:"not null"`
	CUIT          string    `gorm:"column:cuit;index"`
	Telefono      *string
	Email         *string
	CondicionPago *string
	SaldoActual   decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	Activo        bool            `gorm:"not null;default:true"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (Proveedor) TableName() string { return "proveedores" }
