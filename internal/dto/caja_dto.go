package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type AbrirCajaRequest struct {
	MontoApertura decimal.Decimal `json:"monto_apertura" validate:"min=0"`
	Notas         *string         `json:"notas"          validate:"omitempty,max=500"`
}

type MovimientoCajaRequest struct {
	Tipo        string          `json:"tipo"        validate:"required,oneof=ingreso egreso"`
	Monto       decimal.Decimal `json:"monto"       validate:"required,gt=0"`
	Descripcion string          `json:"descripcion" validate:"required,min=3"`
}

type CerrarCajaRequest struct {
	MontoCierre decimal.Decimal `json:"monto_cierre" validate:"min=0"`
	Notas       *string         `json:"notas"        validate:"omitempty,max=500"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type MovimientoCajaResponse struct {
	ID          string          `json:"id"`
	Tipo        string          `json:"tipo"`
	Monto       decimal.Decimal `json:"monto"`
	Descripcion string          `json:"descripcion"`
	UsuarioID   string          `json:"usuario_id"`
	CreatedAt   string          `json:"created_at"`
}

type ArqueoResponse struct {
	MontoApertura decimal.Decimal  `json:"monto_apertura"`
	TotalVentas   decimal.Decimal  `json:"total_ventas"`
	TotalCredito  decimal.Decimal  `json:"total_credito"`
	TotalIngreso  decimal.Decimal  `json:"total_ingreso"`
	TotalEgreso   decimal.Decimal  `json:"total_egreso"`
	MontoEsperado decimal.Decimal  `json:"monto_esperado"`
	MontoCierre   *decimal.Decimal `json:"monto_cierre"`
	Diferencia    *decimal.Decimal `json:"diferencia"`
	// Clasificacion: normal | advertencia | critico
	Clasificacion *string `json:"clasificacion"`
}

type ReporteCajaResponse struct {
	SesionCajaID  string                   `json:"sesion_caja_id"`
	CajaID        string                   `json:"caja_id"`
	Estado        string                   `json:"estado"`
	AbiertaPor    string                   `json:"abierta_por"`
	AbiertaAt     string                   `json:"abierta_at"`
	NotasApertura *string                  `json:"notas_apertura"`
	CerradaPor    *string                  `json:"cerrada_por"`
	CerradaAt     *string                  `json:"cerrada_at"`
	NotasCierre   *string                  `json:"notas_cierre"`
	CantVentas    int64                    `json:"cant_ventas"`
	Arqueo        ArqueoResponse           `json:"arqueo"`
	Movimientos   []MovimientoCajaResponse `json:"movimientos"`
}

type SesionListResponse struct {
	Data  []ReporteCajaResponse `json:"data"`
	Total int64                 `json:"total"`
	Page  int                   `json:"page"`
	Limit int                   `json:"limit"`
}
