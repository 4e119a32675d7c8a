package handler

import (
	"net/http"
	"time"

	"github.com/AndresDiezT/alto-vivo-sub000/internal/dto"
	"github.com/AndresDiezT/alto-vivo-sub000/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type InventarioHandler struct {
	svc service.InventarioService
	now func() time.Time
}

func NewInventarioHandler(svc service.InventarioService) *InventarioHandler {
	return &InventarioHandler{svc: svc, now: time.Now}
}

// RegistrarEntrada godoc
// @Summary Registra una entrada de mercadería
// @Tags inventario
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.EntradaStockRequest true "Entrada"
// @Success 201 {object} dto.MovimientoStockResponse
// @Failure 404 {object} apierror.APIError
// @Failure 422 {object} apierror.ValidationError
// @Router /v1/inventario/entradas [post]
func (h *InventarioHandler) RegistrarEntrada(c *gin.Context) {
	var req dto.EntradaStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	op, ok := operador(c)
	if !ok {
		return
	}
	resp, err := h.svc.RegistrarEntrada(c.Request.Context(), op, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// RegistrarAjuste godoc
// @Summary Ajusta el stock por diferencia o por conteo físico
// @Tags inventario
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.AjusteStockRequest true "Ajuste"
// @Success 201 {object} dto.MovimientoStockResponse
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.ValidationError
// @Router /v1/inventario/ajustes [post]
func (h *InventarioHandler) RegistrarAjuste(c *gin.Context) {
	var req dto.AjusteStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	op, ok := operador(c)
	if !ok {
		return
	}
	resp, err := h.svc.RegistrarAjuste(c.Request.Context(), op, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// RegistrarTransferencia godoc
// @Summary Transfiere stock entre almacenes
// @Tags inventario
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.TransferenciaStockRequest true "Transferencia"
// @Success 201 {array} dto.MovimientoStockResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/inventario/transferencias [post]
func (h *InventarioHandler) RegistrarTransferencia(c *gin.Context) {
	var req dto.TransferenciaStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	op, ok := operador(c)
	if !ok {
		return
	}
	resp, err := h.svc.RegistrarTransferencia(c.Request.Context(), op, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// RegistrarMerma godoc
// @Summary Registra una merma
// @Tags inventario
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.MermaRequest true "Merma"
// @Success 201 {object} dto.MovimientoStockResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/inventario/mermas [post]
func (h *InventarioHandler) RegistrarMerma(c *gin.Context) {
	var req dto.MermaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	op, ok := operador(c)
	if !ok {
		return
	}
	resp, err := h.svc.RegistrarMerma(c.Request.Context(), op, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ProcesarVencidos godoc
// @Summary Da de baja los lotes vencidos
// @Description Ejecuta a demanda el mismo proceso que corre el scheduler diario.
// @Tags inventario
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.ProcesarVencidosRequest false "Almacén opcional"
// @Success 200 {object} dto.ProcesarVencidosResponse
// @Failure 404 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/inventario/mermas/vencidos [post]
func (h *InventarioHandler) ProcesarVencidos(c *gin.Context) {
	var req dto.ProcesarVencidosRequest
	if c.Request.ContentLength != 0 && !bindAndValidate(c, &req) {
		return
	}
	op, ok := operador(c)
	if !ok {
		return
	}
	var almacenID *uuid.UUID
	if req.AlmacenID != nil && *req.AlmacenID != "" {
		id, _ := uuid.Parse(*req.AlmacenID) // validated by the uuid tag
		almacenID = &id
	}
	n, err := h.svc.ProcesarVencidos(c.Request.Context(), op, almacenID, h.now())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ProcesarVencidosResponse{Procesados: n})
}

// ObtenerStock godoc
// @Summary Consulta el stock materializado
// @Tags inventario
// @Produce json
// @Security BearerAuth
// @Param almacen_id      query string false "UUID del almacén"
// @Param presentacion_id query string false "UUID de la presentación"
// @Success 200 {array} dto.StockResponse
// @Router /v1/inventario/stock [get]
func (h *InventarioHandler) ObtenerStock(c *gin.Context) {
	var filter dto.StockFilter
	if !bindQuery(c, &filter) {
		return
	}
	op, ok := operador(c)
	if !ok {
		return
	}
	resp, err := h.svc.ObtenerStock(c.Request.Context(), op, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListarMovimientos returns the stock movement log, newest first.
func (h *InventarioHandler) ListarMovimientos(c *gin.Context) {
	var filter dto.MovimientoStockFilter
	if !bindQuery(c, &filter) {
		return
	}
	op, ok := operador(c)
	if !ok {
		return
	}
	resp, err := h.svc.ListarMovimientos(c.Request.Context(), op, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ReconstruirStock recomputes one stock counter from its movements.
func (h *InventarioHandler) ReconstruirStock(c *gin.Context) {
	var req dto.ReconstruirStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	op, ok := operador(c)
	if !ok {
		return
	}
	presID, _ := uuid.Parse(req.PresentacionID)
	almID, _ := uuid.Parse(req.AlmacenID)
	resp, err := h.svc.ReconstruirStock(c.Request.Context(), op, presID, almID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
