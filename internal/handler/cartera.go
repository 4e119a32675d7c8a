package handler

import (
	"net/http"

	"github.com/AndresDiezT/alto-vivo-sub000/internal/dto"
	"github.com/AndresDiezT/alto-vivo-sub000/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CarteraHandler exposes client and supplier running balances.
type CarteraHandler struct{ svc service.CarteraService }

func NewCarteraHandler(svc service.CarteraService) *CarteraHandler {
	return &CarteraHandler{svc: svc}
}

// AbonarCliente godoc
// @Summary Registra un pago de un cliente a su cuenta corriente
// @Tags cartera
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id   path string           true "ID del cliente"
// @Param body body dto.AbonoRequest true "Abono"
// @Success 201 {object} dto.MovimientoCreditoResponse
// @Failure 404 {object} apierror.APIError
// @Failure 422 {object} apierror.ValidationError
// @Router /v1/cartera/clientes/{id}/abonos [post]
func (h *CarteraHandler) AbonarCliente(c *gin.Context) {
	h.abonar(c, service.CuentaDeCliente)
}

// AbonarProveedor godoc
// @Summary Registra un pago al proveedor
// @Tags cartera
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id   path string           true "ID del proveedor"
// @Param body body dto.AbonoRequest true "Abono"
// @Success 201 {object} dto.MovimientoCreditoResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/cartera/proveedores/{id}/abonos [post]
func (h *CarteraHandler) AbonarProveedor(c *gin.Context) {
	h.abonar(c, service.CuentaDeProveedor)
}

func (h *CarteraHandler) abonar(c *gin.Context, cuentaDe func(uuid.UUID) service.Cuenta) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.AbonoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	op, ok := operador(c)
	if !ok {
		return
	}
	resp, err := h.svc.Abonar(c.Request.Context(), op, cuentaDe(id), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// CargarProveedor godoc
// @Summary Registra una compra a cuenta con un proveedor
// @Tags cartera
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id   path string                    true "ID del proveedor"
// @Param body body dto.CargoProveedorRequest true "Cargo"
// @Success 201 {object} dto.MovimientoCreditoResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/cartera/proveedores/{id}/cargos [post]
func (h *CarteraHandler) CargarProveedor(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.CargoProveedorRequest
	if !bindAndValidate(c, &req) {
		return
	}
	op, ok := operador(c)
	if !ok {
		return
	}
	resp, err := h.svc.CargarProveedor(c.Request.Context(), op, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// EstadoCuentaCliente godoc
// @Summary Estado de cuenta del cliente con sus movimientos
// @Tags cartera
// @Produce json
// @Security BearerAuth
// @Param id    path  string true  "ID del cliente"
// @Param page  query int    false "Página (default 1)"
// @Param limit query int    false "Registros por página (default 50)"
// @Success 200 {object} dto.EstadoCuentaResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/cartera/clientes/{id} [get]
func (h *CarteraHandler) EstadoCuentaCliente(c *gin.Context) {
	h.estadoCuenta(c, service.CuentaDeCliente)
}

// EstadoCuentaProveedor godoc
// @Summary Estado de cuenta del proveedor con sus movimientos
// @Tags cartera
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID del proveedor"
// @Success 200 {object} dto.EstadoCuentaResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/cartera/proveedores/{id} [get]
func (h *CarteraHandler) EstadoCuentaProveedor(c *gin.Context) {
	h.estadoCuenta(c, service.CuentaDeProveedor)
}

func (h *CarteraHandler) estadoCuenta(c *gin.Context, cuentaDe func(uuid.UUID) service.Cuenta) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	op, ok := operador(c)
	if !ok {
		return
	}
	page, limit := pagination(c, 50)
	resp, err := h.svc.EstadoCuenta(c.Request.Context(), op, cuentaDe(id), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CambiarEstadoCliente sets or clears the manual bloqueado/inactivo status.
func (h *CarteraHandler) CambiarEstadoCliente(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.EstadoClienteRequest
	if !bindAndValidate(c, &req) {
		return
	}
	op, ok := operador(c)
	if !ok {
		return
	}
	resp, err := h.svc.CambiarEstadoCliente(c.Request.Context(), op, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ReconciliarCliente compares the stored balance with its movement log.
func (h *CarteraHandler) ReconciliarCliente(c *gin.Context) {
	h.reconciliar(c, service.CuentaDeCliente)
}

// ReconciliarProveedor is ReconciliarCliente for suppliers.
func (h *CarteraHandler) ReconciliarProveedor(c *gin.Context) {
	h.reconciliar(c, service.CuentaDeProveedor)
}

func (h *CarteraHandler) reconciliar(c *gin.Context, cuentaDe func(uuid.UUID) service.Cuenta) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	op, ok := operador(c)
	if !ok {
		return
	}
	resp, err := h.svc.Reconciliar(c.Request.Context(), op, cuentaDe(id))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
