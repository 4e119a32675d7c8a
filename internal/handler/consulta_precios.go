package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/AndresDiezT/alto-vivo-sub000/internal/dto"
	"github.com/AndresDiezT/alto-vivo-sub000/internal/model"
	"github.com/AndresDiezT/alto-vivo-sub000/internal/repository"
	"github.com/AndresDiezT/alto-vivo-sub000/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const precioCacheTTL = 4 * time.Hour

// PrecioCache is the subset of the Redis client the price check uses.
type PrecioCache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// ConsultaPreciosHandler serves the barcode price check used by the scanner
// stations. No side effects.
type ConsultaPreciosHandler struct {
	catalogo   repository.CatalogoRepository
	inventario service.InventarioService
	cache      PrecioCache
}

func NewConsultaPreciosHandler(catalogo repository.CatalogoRepository, inventario service.InventarioService, cache PrecioCache) *ConsultaPreciosHandler {
	return &ConsultaPreciosHandler{catalogo: catalogo, inventario: inventario, cache: cache}
}

// GetPrecioPorBarcode godoc
// @Summary Consulta de precio y stock por codigo de barras
// @Tags precio
// @Produce json
// @Security BearerAuth
// @Param barcode path string true "Codigo de barras"
// @Success 200 {object} dto.ConsultaPrecioResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/precio/{barcode} [get]
func (h *ConsultaPreciosHandler) GetPrecioPorBarcode(c *gin.Context) {
	op, ok := operador(c)
	if !ok {
		return
	}
	barcode := c.Param("barcode")
	ctx := c.Request.Context()
	cacheKey := "precio:" + op.NegocioID.String() + ":" + barcode

	// 1. Presentation from the Redis cache; stock is always read live
	var pres *model.Presentacion
	if cached, err := h.cache.Get(ctx, cacheKey).Bytes(); err == nil {
		var p model.Presentacion
		if json.Unmarshal(cached, &p) == nil {
			pres = &p
		}
	}

	// 2. Cache miss, query DB
	if pres == nil {
		p, err := h.catalogo.FindPresentacionPorCodigo(ctx, op.NegocioID, barcode)
		if err != nil {
			respondError(c, err)
			return
		}
		pres = p
		// best effort
		if b, err := json.Marshal(pres); err == nil {
			_ = h.cache.Set(context.Background(), cacheKey, b, precioCacheTTL).Err()
		}
	}

	stock, err := h.inventario.ObtenerStock(ctx, op, dto.StockFilter{PresentacionID: pres.ID.String()})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ConsultaPrecioResponse{
		PresentacionID: pres.ID.String(),
		Nombre:         pres.Nombre,
		PrecioVenta:    pres.PrecioVenta,
		Stock:          stock,
	})
}
