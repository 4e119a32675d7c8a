package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type EntradaStockRequest struct {
	PresentacionID string          `json:"presentacion_id" validate:"required,uuid"`
	AlmacenID      string          `json:"almacen_id"      validate:"required,uuid"`
	Cantidad       decimal.Decimal `json:"cantidad"        validate:"required,gt=0"`
	Motivo         string          `json:"motivo"          validate:"omitempty,max=200"`
	// Optional lot information for perishable goods
	LoteCodigo *string    `json:"lote_codigo" validate:"omitempty,max=60"`
	VenceAt    *time.Time `json:"vence_at"`
}

// AjusteStockRequest supports two modes:
//   - delta: Cantidad is a signed non-zero change
//   - conteo: Cantidad is the physically counted quantity that overrides the stock
type AjusteStockRequest struct {
	PresentacionID string          `json:"presentacion_id" validate:"required,uuid"`
	AlmacenID      string          `json:"almacen_id"      validate:"required,uuid"`
	Modo           string          `json:"modo"            validate:"required,oneof=delta conteo"`
	Cantidad       decimal.Decimal `json:"cantidad"`
	Motivo         string          `json:"motivo"          validate:"required,min=3"`
}

type TransferenciaStockRequest struct {
	PresentacionID   string          `json:"presentacion_id"    validate:"required,uuid"`
	AlmacenOrigenID  string          `json:"almacen_origen_id"  validate:"required,uuid"`
	AlmacenDestinoID string          `json:"almacen_destino_id" validate:"required,uuid,nefield=AlmacenOrigenID"`
	Cantidad         decimal.Decimal `json:"cantidad"           validate:"required,gt=0"`
	Motivo           string          `json:"motivo"             validate:"omitempty,max=200"`
}

type MermaRequest struct {
	PresentacionID string          `json:"presentacion_id" validate:"required,uuid"`
	AlmacenID      string          `json:"almacen_id"      validate:"required,uuid"`
	Cantidad       decimal.Decimal `json:"cantidad"        validate:"required,gt=0"`
	Causa          string          `json:"causa"           validate:"required,oneof=vencimiento danio robo consumo_interno otro"`
	LoteID         *string         `json:"lote_id"         validate:"omitempty,uuid"`
	Motivo         string          `json:"motivo"          validate:"omitempty,max=200"`
}

type ProcesarVencidosRequest struct {
	AlmacenID *string `json:"almacen_id" validate:"omitempty,uuid"`
}

type ReconstruirStockRequest struct {
	PresentacionID string `json:"presentacion_id" validate:"required,uuid"`
	AlmacenID      string `json:"almacen_id"      validate:"required,uuid"`
}

// StockFilter is bound from query string of GET /v1/inventario/stock.
type StockFilter struct {
	AlmacenID      string `form:"almacen_id"`
	PresentacionID string `form:"presentacion_id"`
}

// MovimientoStockFilter is bound from query string of GET /v1/inventario/movimientos.
type MovimientoStockFilter struct {
	PresentacionID string `form:"presentacion_id"`
	AlmacenID      string `form:"almacen_id"`
	Tipo           string `form:"tipo"`
	Page           int    `form:"page,default=1"`
	Limit          int    `form:"limit,default=100"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type MovimientoStockResponse struct {
	ID              string          `json:"id"`
	PresentacionID  string          `json:"presentacion_id"`
	AlmacenID       string          `json:"almacen_id"`
	Tipo            string          `json:"tipo"`
	Cantidad        decimal.Decimal `json:"cantidad"`
	StockAnterior   decimal.Decimal `json:"stock_anterior"`
	StockNuevo      decimal.Decimal `json:"stock_nuevo"`
	Motivo          string          `json:"motivo"`
	Causa           *string         `json:"causa"`
	LoteID          *string         `json:"lote_id"`
	ReferenciaID    *string         `json:"referencia_id"`
	TransferenciaID *string         `json:"transferencia_id"`
	CreatedAt       string          `json:"created_at"`
}

type MovimientoStockListResponse struct {
	Data  []MovimientoStockResponse `json:"data"`
	Total int64                     `json:"total"`
	Page  int                       `json:"page"`
	Limit int                       `json:"limit"`
}

type StockResponse struct {
	PresentacionID string          `json:"presentacion_id"`
	AlmacenID      string          `json:"almacen_id"`
	Cantidad       decimal.Decimal `json:"cantidad"`
}

type ProcesarVencidosResponse struct {
	Procesados int `json:"procesados"`
}

type ReconstruirStockResponse struct {
	PresentacionID string          `json:"presentacion_id"`
	AlmacenID      string          `json:"almacen_id"`
	Anterior       decimal.Decimal `json:"anterior"`
	Calculado      decimal.Decimal `json:"calculado"`
	Corregido      bool            `json:"corregido"`
}
