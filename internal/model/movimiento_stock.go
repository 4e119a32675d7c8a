package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TipoMovimientoStock classifies every entry of the stock log.
type TipoMovimientoStock string

const (
	MovStockVenta                TipoMovimientoStock = "venta"
	MovStockAnulacionVenta       TipoMovimientoStock = "anulacion_venta"
	MovStockEntrada              TipoMovimientoStock = "entrada"
	MovStockAjuste               TipoMovimientoStock = "ajuste"
	MovStockTransferenciaEntrada TipoMovimientoStock = "transferencia_entrada"
	MovStockTransferenciaSalida  TipoMovimientoStock = "transferencia_salida"
	MovStockMerma                TipoMovimientoStock = "merma"
)

// CausaMerma is the reason code carried by waste movements.
type CausaMerma string

const (
	CausaVencimiento    CausaMerma = "vencimiento"
	CausaDanio          CausaMerma = "danio"
	CausaRobo           CausaMerma = "robo"
	CausaConsumoInterno CausaMerma = "consumo_interno"
	CausaOtro           CausaMerma = "otro"
)

// Valida reports whether c is one of the known cause codes.
func (c CausaMerma) Valida() bool {
	switch c {
	case CausaVencimiento, CausaDanio, CausaRobo, CausaConsumoInterno, CausaOtro:
		return true
	default:
		return false
	}
}

// MovimientoStock registra cada cambio de stock de una presentación en un almacén.
// Append-only: el stock materializado siempre es igual a la suma de Cantidad
// para el par (presentación, almacén).
type MovimientoStock struct {
	ID             uuid.UUID           `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	PresentacionID uuid.UUID           `gorm:"type:uuid;not null;index:idx_mov_stock_par"`
	AlmacenID      uuid.UUID           `gorm:"type:uuid;not null;index:idx_mov_stock_par"`
	Tipo           TipoMovimientoStock `gorm:"type:varchar(30);not null"`
	// Cantidad is signed: positive = entrada, negative = salida
	Cantidad      decimal.Decimal `gorm:"type:decimal(14,3);not null"`
	StockAnterior decimal.Decimal `gorm:"type:decimal(14,3);not null"`
	StockNuevo    decimal.Decimal `gorm:"type:decimal(14,3);not null"`
	Motivo        string
	Causa         *CausaMerma `gorm:"type:varchar(30)"`
	LoteID        *uuid.UUID  `gorm:"type:uuid"`
	// ReferenciaID links to the originating venta when applicable
	ReferenciaID    *uuid.UUID `gorm:"type:uuid;index"`
	TransferenciaID *uuid.UUID `gorm:"type:uuid"`
	UsuarioID       *uuid.UUID `gorm:"type:uuid"`
	CreatedAt       time.Time

	Presentacion *Presentacion `gorm:"foreignKey:PresentacionID"`
}

// TableName overrides GORM's default pluralization (movimiento_stocks → movimientos_stock).
func (MovimientoStock) TableName() string { return "movimientos_stock" }

// StockPresentacion is the materialized stock counter for one presentation in
// one warehouse. It is only written in the same transaction that inserts the
// MovimientoStock explaining the change.
type StockPresentacion struct {
	PresentacionID uuid.UUID       `gorm:"type:uuid;primaryKey"`
	AlmacenID      uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Cantidad       decimal.Decimal `gorm:"type:decimal(14,3);not null;default:0"`
	UpdatedAt      time.Time
}

func (StockPresentacion) TableName() string { return "stock_presentaciones" }

// Lote tracks a received batch with an optional expiry date. Sales consume
// lots first-expired-first-out; CantidadRestante never goes below zero.
type Lote struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	PresentacionID   uuid.UUID       `gorm:"type:uuid;not null;index:idx_lotes_par"`
	AlmacenID        uuid.UUID       `gorm:"type:uuid;not null;index:idx_lotes_par"`
	Codigo           string          `gorm:"type:varchar(60)"`
	VenceAt          *time.Time      `gorm:"index"`
	CantidadInicial  decimal.Decimal `gorm:"type:decimal(14,3);not null"`
	CantidadRestante decimal.Decimal `gorm:"type:decimal(14,3);not null"`
	CreatedAt        time.Time
}

// Vencido reports whether the lot still holds units past its expiry date.
func (l Lote) Vencido(now time.Time) bool {
	return l.VenceAt != nil && l.VenceAt.Before(now) && l.CantidadRestante.IsPositive()
}
