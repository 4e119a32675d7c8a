package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AndresDiezT/alto-vivo-sub000/internal/apierror"
	"github.com/AndresDiezT/alto-vivo-sub000/internal/dto"
	"github.com/AndresDiezT/alto-vivo-sub000/internal/middleware"
	"github.com/AndresDiezT/alto-vivo-sub000/internal/model"
	"github.com/AndresDiezT/alto-vivo-sub000/internal/repository"
	"github.com/AndresDiezT/alto-vivo-sub000/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

var (
	testUsuario = uuid.New()
	testNegocio = uuid.New()
)

// withClaims stands in for JWTAuth.
func withClaims(c *gin.Context) {
	c.Set(middleware.ClaimsKey, &middleware.JWTClaims{
		UserID:    testUsuario.String(),
		NegocioID: testNegocio.String(),
		Rol:       "cajero",
	})
	c.Next()
}

func doJSON(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ── respondError ──────────────────────────────────────────────────────────────

func TestRespondError(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		status    int
		code      string
		retryable bool
	}{
		{"validacion", apierror.ValidationField("monto", "inválido"), http.StatusUnprocessableEntity, "validation_error", false},
		{"desbalance", apierror.UnbalancedPayments(decimal.NewFromInt(10), decimal.NewFromInt(1)), http.StatusUnprocessableEntity, "unbalanced_payments", false},
		{"no encontrado", apierror.NotFound("venta no encontrada"), http.StatusNotFound, "not_found", false},
		{"stock", apierror.InsufficientStock(uuid.New(), decimal.Zero, decimal.NewFromInt(1)), http.StatusConflict, "insufficient_stock", false},
		{"sesion abierta", apierror.SessionAlreadyOpen(uuid.New()), http.StatusConflict, "session_already_open", false},
		{"sesion cerrada", apierror.SessionNotOpen(uuid.New()), http.StatusConflict, "session_not_open", false},
		{"ya anulada", apierror.AlreadyCancelled(uuid.New()), http.StatusConflict, "already_cancelled", false},
		{"conflicto", apierror.ConcurrencyConflict(""), http.StatusConflict, "concurrency_conflict", true},
		{"envuelto", errors.Join(errors.New("tx"), apierror.NotFound("x")), http.StatusNotFound, "not_found", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			respondError(c, tc.err)

			assert.Equal(t, tc.status, w.Code)
			var body struct {
				Code      string            `json:"code"`
				Retryable bool              `json:"retryable"`
				Fields    map[string]string `json:"fields"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.code, body.Code)
			assert.Equal(t, tc.retryable, body.Retryable)
		})
	}
}

func TestRespondError_ErrorInternoNoSeFiltra(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondError(c, errors.New(`pq: relation "ventas" does not exist`))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "relation")
	require.Len(t, c.Errors, 1, "the cause is kept for ErrorHandler")
}

// ── VentasHandler ─────────────────────────────────────────────────────────────

type ventaStub struct {
	service.VentaService
	registrar func(op service.Operador, req dto.RegistrarVentaRequest) (*dto.VentaResponse, error)
	anular    func(id uuid.UUID, motivo string) (*dto.VentaResponse, error)
}

func (s *ventaStub) RegistrarVenta(_ context.Context, op service.Operador, req dto.RegistrarVentaRequest) (*dto.VentaResponse, error) {
	return s.registrar(op, req)
}

func (s *ventaStub) AnularVenta(_ context.Context, _ service.Operador, id uuid.UUID, motivo string) (*dto.VentaResponse, error) {
	return s.anular(id, motivo)
}

func ventasEngine(stub *ventaStub) *gin.Engine {
	h := NewVentasHandler(stub)
	r := gin.New()
	r.POST("/v1/ventas", withClaims, h.RegistrarVenta)
	r.POST("/v1/ventas/:id/anular", withClaims, h.AnularVenta)
	return r
}

func ventaValida() map[string]any {
	return map[string]any{
		"items": []map[string]any{{"presentacion_id": uuid.NewString(), "cantidad": "5"}},
		"pagos": []map[string]any{{"metodo_pago_id": uuid.NewString(), "monto": "4500"}},
	}
}

func TestRegistrarVenta_Handler(t *testing.T) {
	var recibido service.Operador
	stub := &ventaStub{registrar: func(op service.Operador, req dto.RegistrarVentaRequest) (*dto.VentaResponse, error) {
		recibido = op
		return &dto.VentaResponse{ID: uuid.NewString(), NumeroTicket: 7, Total: decimal.NewFromInt(4500)}, nil
	}}
	r := ventasEngine(stub)

	w := doJSON(r, http.MethodPost, "/v1/ventas", ventaValida())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, service.Operador{UsuarioID: testUsuario, NegocioID: testNegocio}, recibido)

	var resp dto.VentaResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 7, resp.NumeroTicket)
}

func TestRegistrarVenta_HandlerErrores(t *testing.T) {
	stub := &ventaStub{registrar: func(service.Operador, dto.RegistrarVentaRequest) (*dto.VentaResponse, error) {
		return nil, apierror.UnbalancedPayments(decimal.NewFromInt(4500), decimal.NewFromInt(4000))
	}}
	r := ventasEngine(stub)

	w := doJSON(r, http.MethodPost, "/v1/ventas", "{no es json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPost, "/v1/ventas", map[string]any{"items": []any{}, "pagos": []any{}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = doJSON(r, http.MethodPost, "/v1/ventas", ventaValida())
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var body apierror.ValidationError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "unbalanced_payments", body.Code)
	assert.Equal(t, "4500.00", body.Fields["total"])
	assert.Equal(t, "4000.00", body.Fields["pagado"])
}

func TestRegistrarVenta_SinClaims(t *testing.T) {
	h := NewVentasHandler(&ventaStub{})
	r := gin.New()
	r.POST("/v1/ventas", h.RegistrarVenta)

	w := doJSON(r, http.MethodPost, "/v1/ventas", ventaValida())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAnularVenta_Handler(t *testing.T) {
	id := uuid.New()
	stub := &ventaStub{anular: func(got uuid.UUID, motivo string) (*dto.VentaResponse, error) {
		if got != id {
			return nil, apierror.NotFound("venta no encontrada")
		}
		return nil, apierror.AlreadyCancelled(got)
	}}
	r := ventasEngine(stub)

	w := doJSON(r, http.MethodPost, "/v1/ventas/no-uuid/anular", map[string]string{"motivo": "error"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPost, "/v1/ventas/"+id.String()+"/anular", map[string]string{"motivo": "x"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "motivo shorter than 3")

	w = doJSON(r, http.MethodPost, "/v1/ventas/"+id.String()+"/anular", map[string]string{"motivo": "error de carga"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "already_cancelled")

	w = doJSON(r, http.MethodPost, "/v1/ventas/"+uuid.NewString()+"/anular", map[string]string{"motivo": "error de carga"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// ── ConsultaPreciosHandler ────────────────────────────────────────────────────

type memCache struct {
	data map[string][]byte
	sets int
}

func (m *memCache) Get(_ context.Context, key string) *redis.StringCmd {
	b, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(string(b), nil)
}

func (m *memCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	b, _ := value.([]byte)
	m.data[key] = b
	m.sets++
	return redis.NewStatusResult("OK", nil)
}

type catalogoStub struct {
	repository.CatalogoRepository
	pres    *model.Presentacion
	lookups int
}

func (s *catalogoStub) FindPresentacionPorCodigo(_ context.Context, negocioID uuid.UUID, codigo string) (*model.Presentacion, error) {
	s.lookups++
	if s.pres == nil || negocioID != s.pres.NegocioID || codigo != *s.pres.CodigoBarras {
		return nil, apierror.NotFound("presentación no encontrada")
	}
	p := *s.pres
	return &p, nil
}

type inventarioStub struct {
	service.InventarioService
	stock []dto.StockResponse
}

func (s *inventarioStub) ObtenerStock(_ context.Context, _ service.Operador, filter dto.StockFilter) ([]dto.StockResponse, error) {
	out := []dto.StockResponse{}
	for _, r := range s.stock {
		if r.PresentacionID == filter.PresentacionID {
			out = append(out, r)
		}
	}
	return out, nil
}

func TestConsultaPrecios(t *testing.T) {
	codigo := "7790000000017"
	pres := &model.Presentacion{ID: uuid.New(), NegocioID: testNegocio, CodigoBarras: &codigo, Nombre: "Gaseosa 500ml", PrecioVenta: decimal.NewFromInt(1000), Activo: true}
	catalogo := &catalogoStub{pres: pres}
	inv := &inventarioStub{stock: []dto.StockResponse{{PresentacionID: pres.ID.String(), AlmacenID: uuid.NewString(), Cantidad: decimal.NewFromInt(12)}}}
	cache := &memCache{data: map[string][]byte{}}

	h := NewConsultaPreciosHandler(catalogo, inv, cache)
	r := gin.New()
	r.GET("/v1/precio/:barcode", withClaims, h.GetPrecioPorBarcode)

	w := doJSON(r, http.MethodGet, "/v1/precio/"+codigo, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp dto.ConsultaPrecioResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Gaseosa 500ml", resp.Nombre)
	assert.True(t, resp.PrecioVenta.Equal(decimal.NewFromInt(1000)))
	require.Len(t, resp.Stock, 1)
	assert.True(t, resp.Stock[0].Cantidad.Equal(decimal.NewFromInt(12)))
	assert.Equal(t, 1, cache.sets)

	// second scan is served from the cache; stock is still read live
	inv.stock[0].Cantidad = decimal.NewFromInt(11)
	w = doJSON(r, http.MethodGet, "/v1/precio/"+codigo, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, catalogo.lookups)
	assert.True(t, resp.Stock[0].Cantidad.Equal(decimal.NewFromInt(11)))

	w = doJSON(r, http.MethodGet, "/v1/precio/0000", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
