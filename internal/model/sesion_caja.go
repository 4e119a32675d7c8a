package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Caja is a physical register attached to a warehouse.
type Caja struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	NegocioID uuid.UUID `gorm:"type:uuid;not null;index"`
	AlmacenID uuid.UUID `gorm:"type:uuid;not null;index"`
	Nombre    string    `gorm:"not null"`
	Activa    bool      `gorm:"not null;default:true"`
	CreatedAt time.Time
}

// EstadoSesion: abierta → cerrada, never back.
type EstadoSesion string

const (
	SesionAbierta EstadoSesion = "abierta"
	SesionCerrada EstadoSesion = "cerrada"
)

// SesionCaja represents the lifecycle of a cash register session.
// At most one abierta per caja (partial unique index idx_sesiones_caja_abierta).
// Totals and reconciliation figures are frozen when the session closes.
type SesionCaja struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CajaID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	Estado        EstadoSesion    `gorm:"type:varchar(20);not null;default:'abierta'"`
	AbiertaPor    uuid.UUID       `gorm:"type:uuid;not null"`
	AbiertaAt     time.Time       `gorm:"not null"`
	MontoApertura decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	NotasApertura *string

	MontoCierre  *decimal.Decimal `gorm:"type:decimal(14,2)"`
	NotasCierre  *string
	CerradaPor   *uuid.UUID `gorm:"type:uuid"`
	CerradaAt    *time.Time
	TotalVentas  *decimal.Decimal `gorm:"type:decimal(14,2)"` // non-credit payments of the session's sales
	CantVentas   *int64
	TotalCredito *decimal.Decimal `gorm:"type:decimal(14,2)"`
	TotalIngreso *decimal.Decimal `gorm:"type:decimal(14,2)"`
	TotalEgreso  *decimal.Decimal `gorm:"type:decimal(14,2)"`
	// MontoEsperado = apertura + ventas + ingresos - egresos
	MontoEsperado *decimal.Decimal `gorm:"type:decimal(14,2)"`
	Diferencia    *decimal.Decimal `gorm:"type:decimal(14,2)"`
	// ClasificacionDesvio: "normal" | "advertencia" | "critico"
	ClasificacionDesvio *string `gorm:"type:varchar(20)"`

	Caja        *Caja            `gorm:"foreignKey:CajaID"`
	Movimientos []MovimientoCaja `gorm:"foreignKey:SesionCajaID"`
}

func (SesionCaja) TableName() string { return "sesiones_caja" }

// TipoMovimientoCaja: manual cash income or expense.
type TipoMovimientoCaja string

const (
	MovCajaIngreso TipoMovimientoCaja = "ingreso"
	MovCajaEgreso  TipoMovimientoCaja = "egreso"
)

// MovimientoCaja is an immutable event in the cash register ledger.
// Movements are NEVER modified or deleted and only accepted while the session is open.
type MovimientoCaja struct {
	ID           uuid.UUID          `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SesionCajaID uuid.UUID          `gorm:"type:uuid;index;not null"`
	Tipo         TipoMovimientoCaja `gorm:"type:varchar(20);not null"`
	Monto        decimal.Decimal    `gorm:"type:decimal(14,2);not null"` // always > 0
	Descripcion  string             `gorm:"not null"`
	UsuarioID    uuid.UUID          `gorm:"type:uuid;not null"`
	CreatedAt    time.Time
}

func (MovimientoCaja) TableName() string { return "movimientos_caja" }
