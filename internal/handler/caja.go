package handler

import (
	"net/http"

	"github.com/AndresDiezT/alto-vivo-sub000/internal/dto"
	"github.com/AndresDiezT/alto-vivo-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

type CajaHandler struct{ svc service.CajaService }

func NewCajaHandler(svc service.CajaService) *CajaHandler { return &CajaHandler{svc: svc} }

// Abrir godoc
// @Summary Abre una nueva sesion de caja
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id   path string               true "ID de caja"
// @Param body body dto.AbrirCajaRequest true "Datos de apertura"
// @Success 201 {object} dto.ReporteCajaResponse
// @Failure 404 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/cajas/{id}/abrir [post]
func (h *CajaHandler) Abrir(c *gin.Context) {
	cajaID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.AbrirCajaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	op, ok := operador(c)
	if !ok {
		return
	}

	resp, err := h.svc.Abrir(c.Request.Context(), op, cajaID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// RegistrarMovimiento godoc
// @Summary Registra un ingreso o egreso manual en la sesion
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id   path string                    true "ID de sesion"
// @Param body body dto.MovimientoCajaRequest true "Movimiento manual"
// @Success 201 {object} dto.MovimientoCajaResponse
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.ValidationError
// @Router /v1/sesiones/{id}/movimientos [post]
func (h *CajaHandler) RegistrarMovimiento(c *gin.Context) {
	sesionID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.MovimientoCajaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	op, ok := operador(c)
	if !ok {
		return
	}
	resp, err := h.svc.RegistrarMovimiento(c.Request.Context(), op, sesionID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Cerrar godoc
// @Summary Cierra la sesion con el arqueo declarado
// @Description Congela los totales, calcula la diferencia contra el monto esperado y encola el reporte Z.
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id   path string                true "ID de sesion"
// @Param body body dto.CerrarCajaRequest true "Monto contado"
// @Success 200 {object} dto.ReporteCajaResponse
// @Failure 404 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/sesiones/{id}/cerrar [post]
func (h *CajaHandler) Cerrar(c *gin.Context) {
	sesionID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.CerrarCajaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	op, ok := operador(c)
	if !ok {
		return
	}
	resp, err := h.svc.Cerrar(c.Request.Context(), op, sesionID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ObtenerReporte godoc
// @Summary Obtiene el reporte de una sesion de caja
// @Tags caja
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de sesion"
// @Success 200 {object} dto.ReporteCajaResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/sesiones/{id}/reporte [get]
func (h *CajaHandler) ObtenerReporte(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	op, ok := operador(c)
	if !ok {
		return
	}
	resp, err := h.svc.ObtenerReporte(c.Request.Context(), op, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Historial returns a paginated list of a register's sessions, newest first.
func (h *CajaHandler) Historial(c *gin.Context) {
	cajaID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	op, ok := operador(c)
	if !ok {
		return
	}
	page, limit := pagination(c, 20)
	resp, err := h.svc.Historial(c.Request.Context(), op, cajaID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
