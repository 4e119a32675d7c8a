package dto

import "github.com/shopspring/decimal"

// ConsultaPrecioResponse is the price check answer for a scanned barcode.
type ConsultaPrecioResponse struct {
	PresentacionID string          `json:"presentacion_id"`
	Nombre         string          `json:"nombre"`
	PrecioVenta    decimal.Decimal `json:"precio_venta"`
	Stock          []StockResponse `json:"stock"`
}
