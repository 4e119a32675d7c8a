package dto

import "github.com/shopspring/decimal"

type AbonoRequest struct {
	Monto       decimal.Decimal `json:"monto"       validate:"required,gt=0"`
	Descripcion string          `json:"descripcion" validate:"omitempty,max=200"`
}

// CargoProveedorRequest records a purchase on account with a supplier.
type CargoProveedorRequest struct {
	Monto       decimal.Decimal `json:"monto"       validate:"required,gt=0"`
	Descripcion string          `json:"descripcion" validate:"required,min=3"`
}

type EstadoClienteRequest struct {
	// Estado "" clears the manual status
	Estado string `json:"estado" validate:"omitempty,oneof=bloqueado inactivo"`
}

type MovimientoCreditoResponse struct {
	ID              string          `json:"id"`
	Tipo            string          `json:"tipo"`
	Monto           decimal.Decimal `json:"monto"`
	SaldoResultante decimal.Decimal `json:"saldo_resultante"`
	Descripcion     string          `json:"descripcion"`
	ReferenciaID    *string         `json:"referencia_id"`
	RevierteID      *string         `json:"revierte_id"`
	CreatedAt       string          `json:"created_at"`
}

type EstadoCuentaResponse struct {
	CuentaTipo    string                      `json:"cuenta_tipo"`
	CuentaID      string                      `json:"cuenta_id"`
	Nombre        string                      `json:"nombre"`
	Saldo         decimal.Decimal             `json:"saldo"`
	LimiteCredito *decimal.Decimal            `json:"limite_credito,omitempty"`
	Estado        string                      `json:"estado,omitempty"`
	Movimientos   []MovimientoCreditoResponse `json:"movimientos"`
	Total         int64                       `json:"total"`
	Page          int                         `json:"page"`
	Limit         int                         `json:"limit"`
}

type ReconciliacionCuentaResponse struct {
	CuentaTipo  string          `json:"cuenta_tipo"`
	CuentaID    string          `json:"cuenta_id"`
	Saldo       decimal.Decimal `json:"saldo"`
	Calculado   decimal.Decimal `json:"calculado"`
	Consistente bool            `json:"consistente"`
}
