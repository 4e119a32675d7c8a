package dto

import "github.com/shopspring/decimal"

// ─── Filter / List ──────────────────────────────────────────────────────────

// VentaFilter is bound from query string of GET /v1/ventas.
type VentaFilter struct {
	Fecha        string `form:"fecha"`                     // YYYY-MM-DD; empty = today
	Estado       string `form:"estado,default=completada"` // completada | anulada | all
	SesionCajaID string `form:"sesion_caja_id"`
	ClienteID    string `form:"cliente_id"`
	Page         int    `form:"page,default=1"   validate:"min=1"`
	Limit        int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type VentaListResponse struct {
	Data  []VentaResponse `json:"data"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

type ItemVentaRequest struct {
	PresentacionID string          `json:"presentacion_id" validate:"required,uuid"`
	Cantidad       decimal.Decimal `json:"cantidad"        validate:"required,gt=0"`
	// PrecioUnitario overrides the catalog price when present
	PrecioUnitario *decimal.Decimal `json:"precio_unitario" validate:"omitempty,min=0"`
	Descuento      decimal.Decimal  `json:"descuento"       validate:"min=0"`
}

type PagoRequest struct {
	MetodoPagoID string          `json:"metodo_pago_id" validate:"required,uuid"`
	Monto        decimal.Decimal `json:"monto"          validate:"min=0"`
}

type RegistrarVentaRequest struct {
	Items     []ItemVentaRequest `json:"items"      validate:"required,min=1,dive"`
	Pagos     []PagoRequest      `json:"pagos"      validate:"omitempty,dive"`
	Descuento decimal.Decimal    `json:"descuento"  validate:"min=0"`
	ClienteID *string            `json:"cliente_id" validate:"omitempty,uuid"`
	// AlmacenID defaults to the business' default warehouse
	AlmacenID *string `json:"almacen_id" validate:"omitempty,uuid"`
	// CajaID tags the sale with that register's open session
	CajaID *string `json:"caja_id"    validate:"omitempty,uuid"`
	// OfflineID is set by the PWA when registering a sale created offline
	OfflineID *string `json:"offline_id" validate:"omitempty,uuid"`
	Notas     *string `json:"notas"      validate:"omitempty,max=500"`
}

type AnularVentaRequest struct {
	Motivo string `json:"motivo" validate:"required,min=3"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ItemVentaResponse struct {
	PresentacionID string          `json:"presentacion_id"`
	Presentacion   string          `json:"presentacion"`
	Cantidad       decimal.Decimal `json:"cantidad"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario"`
	Descuento      decimal.Decimal `json:"descuento"`
	Subtotal       decimal.Decimal `json:"subtotal"`
}

type PagoResponse struct {
	MetodoPagoID string          `json:"metodo_pago_id"`
	Metodo       string          `json:"metodo"`
	Monto        decimal.Decimal `json:"monto"`
	EsCredito    bool            `json:"es_credito"`
}

type VentaResponse struct {
	ID                  string              `json:"id"`
	NumeroTicket        int                 `json:"numero_ticket"`
	ClienteID           *string             `json:"cliente_id"`
	AlmacenID           string              `json:"almacen_id"`
	SesionCajaID        *string             `json:"sesion_caja_id"`
	Items               []ItemVentaResponse `json:"items"`
	Pagos               []PagoResponse      `json:"pagos"`
	Subtotal            decimal.Decimal     `json:"subtotal"`
	Descuento           decimal.Decimal     `json:"descuento"`
	Total               decimal.Decimal     `json:"total"`
	MontoPagado         decimal.Decimal     `json:"monto_pagado"`
	MontoCredito        decimal.Decimal     `json:"monto_credito"`
	EstadoPago          string              `json:"estado_pago"` // pagada | parcial
	MovimientoCreditoID *string             `json:"movimiento_credito_id"`
	Estado              string              `json:"estado"`
	MotivoAnulacion     *string             `json:"motivo_anulacion"`
	AnuladaAt           *string             `json:"anulada_at"`
	CreatedAt           string              `json:"created_at"`
}
