package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EstadoVenta: a sale is only ever persisted as completada; anulada is terminal.
type EstadoVenta string

const (
	VentaCompletada EstadoVenta = "completada"
	VentaAnulada    EstadoVenta = "anulada"
)

// Venta is a completed sale. Monetary invariants:
//   - Total = Subtotal - Descuento
//   - MontoPagado + MontoCredito = Total = Σ Pagos.Monto
type Venta struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	NegocioID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	NumeroTicket int        `gorm:"not null;uniqueIndex"`
	ClienteID    *uuid.UUID `gorm:"type:uuid;index"`
	AlmacenID    uuid.UUID  `gorm:"type:uuid;not null"`
	// SesionCajaID is nil when no session was open for the register
	SesionCajaID        *uuid.UUID      `gorm:"type:uuid;index"`
	UsuarioID           uuid.UUID       `gorm:"type:uuid;not null"`
	Subtotal            decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	Descuento           decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	Total               decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	MontoPagado         decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	MontoCredito        decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	MovimientoCreditoID *uuid.UUID      `gorm:"type:uuid"`
	Estado              EstadoVenta     `gorm:"type:varchar(20);not null;default:'completada'"`
	MotivoAnulacion     *string
	AnuladaPor          *uuid.UUID `gorm:"type:uuid"`
	AnuladaAt           *time.Time
	OfflineID           *string `gorm:"uniqueIndex"`
	Notas               *string
	CreatedAt           time.Time

	Items []VentaItem `gorm:"foreignKey:VentaID"`
	Pagos []VentaPago `gorm:"foreignKey:VentaID"`
}

// EstadoPago is derived, never stored: a sale with a credit portion is "parcial".
func (v Venta) EstadoPago() string {
	if v.MontoCredito.IsPositive() {
		return "parcial"
	}
	return "pagada"
}

type VentaItem struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	VentaID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	PresentacionID uuid.UUID       `gorm:"type:uuid;not null"`
	Cantidad       decimal.Decimal `gorm:"type:decimal(14,3);not null"`
	PrecioUnitario decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	Descuento      decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(14,2);not null"`

	Presentacion *Presentacion `gorm:"foreignKey:PresentacionID"`
}

type VentaPago struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	VentaID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	MetodoPagoID uuid.UUID       `gorm:"type:uuid;not null"`
	Monto        decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	EsCredito    bool            `gorm:"not null;default:false"`

	MetodoPago *MetodoPago `gorm:"foreignKey:MetodoPagoID"`
}

// MetodoPago is the per-business payment method registry. At most one active
// credit method per business (partial unique index idx_metodos_pago_credito).
type MetodoPago struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	NegocioID uuid.UUID `gorm:"type:uuid;not null;index"`
	Nombre    string    `gorm:"not null"`
	EsCredito bool      `gorm:"not null;default:false"`
	Activo    bool      `gorm:"not null;default:true"`
	CreatedAt time.Time
}

func (MetodoPago) TableName() string { return "metodos_pago" }
