package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EstadoCliente is the credit status of a client. Bloqueado and inactivo are
// set manually; moroso is derived from balance and last purchase date.
type EstadoCliente string

const (
	ClienteActivo    EstadoCliente = "activo"
	ClienteMoroso    EstadoCliente = "moroso"
	ClienteBloqueado EstadoCliente = "bloqueado"
	ClienteInactivo  EstadoCliente = "inactivo"
)

// Cliente is a credit-holding customer. SaldoActual is signed: positive means
// the client owes money, negative means the client paid ahead.
type Cliente struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	NegocioID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	Nombre        string          `gorm:"not null"`
	Documento     *string         `gorm:"index"`
	Email         *string
	SaldoActual   decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	LimiteCredito decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"` // 0 = sin límite
	// EstadoManual only holds bloqueado/inactivo; nil means "derive it"
	EstadoManual   *EstadoCliente `gorm:"type:varchar(20)"`
	Estado         EstadoCliente  `gorm:"type:varchar(20);not null;default:'activo'"` // cached derived status
	UltimaCompraAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CuentaTipo selects which ledger (client or supplier) a movement belongs to.
type CuentaTipo string

const (
	CuentaCliente   CuentaTipo = "cliente"
	CuentaProveedor CuentaTipo = "proveedor"
)

// TipoMovimientoCredito: cargo increases the balance, abono decreases it.
type TipoMovimientoCredito string

const (
	MovCreditoCargo TipoMovimientoCredito = "cargo"
	MovCreditoAbono TipoMovimientoCredito = "abono"
)

// Signo returns +1 for cargo and -1 for abono.
func (t TipoMovimientoCredito) Signo() decimal.Decimal {
	switch t {
	case MovCreditoCargo:
		return decimal.NewFromInt(1)
	case MovCreditoAbono:
		return decimal.NewFromInt(-1)
	default:
		return decimal.Zero
	}
}

// Inverso returns the movement type that cancels t.
func (t TipoMovimientoCredito) Inverso() TipoMovimientoCredito {
	if t == MovCreditoCargo {
		return MovCreditoAbono
	}
	return MovCreditoCargo
}

// MovimientoCredito is an append-only entry of the credit ledger. Corrections
// are new movements pointing at the reversed one through RevierteID.
type MovimientoCredito struct {
	ID              uuid.UUID             `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CuentaTipo      CuentaTipo            `gorm:"type:varchar(20);not null;index:idx_mov_credito_cuenta"`
	CuentaID        uuid.UUID             `gorm:"type:uuid;not null;index:idx_mov_credito_cuenta"`
	Tipo            TipoMovimientoCredito `gorm:"type:varchar(20);not null"`
	Monto           decimal.Decimal       `gorm:"type:decimal(14,2);not null"` // always > 0
	SaldoResultante decimal.Decimal       `gorm:"type:decimal(14,2);not null"`
	Descripcion     string                `gorm:"not null"`
	ReferenciaID    *uuid.UUID            `gorm:"type:uuid;index"`
	RevierteID      *uuid.UUID            `gorm:"type:uuid;uniqueIndex"`
	UsuarioID       *uuid.UUID            `gorm:"type:uuid"`
	CreatedAt       time.Time
}

func (MovimientoCredito) TableName() string { return "movimientos_credito" }

// Importe returns the signed effect of the movement on the balance.
func (m MovimientoCredito) Importe() decimal.Decimal {
	return m.Monto.Mul(m.Tipo.Signo())
}
