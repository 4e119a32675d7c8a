package service

import (
	"errors"
	"testing"

	"github.com/AndresDiezT/alto-vivo-sub000/internal/apierror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestAsignarPagos_ContadoExacto(t *testing.T) {
	efectivo := uuid.New()
	out, err := AsignarPagos(dec("4500"), []PagoPropuesto{{MetodoPagoID: efectivo, Monto: dec("4500")}}, false)
	require.NoError(t, err)
	assert.True(t, out.MontoPagado.Equal(dec("4500")))
	assert.True(t, out.MontoCredito.IsZero())
	assert.False(t, out.TieneCredito())
	assert.Len(t, out.Pagos, 1)
}

func TestAsignarPagos_MixtoConCredito(t *testing.T) {
	efectivo, cuenta := uuid.New(), uuid.New()
	out, err := AsignarPagos(dec("4500"), []PagoPropuesto{
		{MetodoPagoID: efectivo, Monto: dec("2000")},
		{MetodoPagoID: cuenta, Monto: dec("2500"), EsCredito: true},
	}, true)
	require.NoError(t, err)
	assert.Equal(t, "2000", out.MontoPagado.String())
	assert.Equal(t, "2500", out.MontoCredito.String())
	require.NotNil(t, out.MetodoCreditoID)
	assert.Equal(t, cuenta, *out.MetodoCreditoID)
}

func TestAsignarPagos_CreditoEnCero(t *testing.T) {
	efectivo, cuenta := uuid.New(), uuid.New()
	out, err := AsignarPagos(dec("4500"), []PagoPropuesto{
		{MetodoPagoID: efectivo, Monto: dec("4500")},
		{MetodoPagoID: cuenta, Monto: dec("0"), EsCredito: true},
	}, true)
	require.NoError(t, err)
	assert.False(t, out.TieneCredito(), "a zero credit line extends nothing")
	assert.True(t, out.MontoCredito.IsZero())
	assert.Len(t, out.Pagos, 2)
}

func TestAsignarPagos_TotalCeroSinPagos(t *testing.T) {
	out, err := AsignarPagos(decimal.Zero, nil, false)
	require.NoError(t, err)
	assert.Empty(t, out.Pagos)
	assert.True(t, out.MontoPagado.IsZero())
}

func TestAsignarPagos_ToleranciaDeUnCentavo(t *testing.T) {
	_, err := AsignarPagos(dec("100.00"), []PagoPropuesto{{MetodoPagoID: uuid.New(), Monto: dec("99.99")}}, false)
	assert.NoError(t, err)

	_, err = AsignarPagos(dec("100.00"), []PagoPropuesto{{MetodoPagoID: uuid.New(), Monto: dec("99.98")}}, false)
	assert.ErrorIs(t, err, apierror.ErrUnbalancedPayments)
}

func TestAsignarPagos_Rechazos(t *testing.T) {
	tests := []struct {
		name       string
		total      string
		pagos      []PagoPropuesto
		hayCliente bool
		want       error
	}{
		{
			name:  "pago insuficiente",
			total: "4500",
			pagos: []PagoPropuesto{{MetodoPagoID: uuid.New(), Monto: dec("4000")}},
			want:  apierror.ErrUnbalancedPayments,
		},
		{
			name:  "pago excedente",
			total: "4500",
			pagos: []PagoPropuesto{{MetodoPagoID: uuid.New(), Monto: dec("5000")}},
			want:  apierror.ErrUnbalancedPayments,
		},
		{
			name:  "monto negativo",
			total: "0",
			pagos: []PagoPropuesto{{MetodoPagoID: uuid.New(), Monto: dec("-10")}, {MetodoPagoID: uuid.New(), Monto: dec("10")}},
			want:  apierror.ErrValidation,
		},
		{
			name:  "credito sin cliente",
			total: "100",
			pagos: []PagoPropuesto{{MetodoPagoID: uuid.New(), Monto: dec("100"), EsCredito: true}},
			want:  apierror.ErrValidation,
		},
		{
			name:  "dos pagos a credito",
			total: "100",
			pagos: []PagoPropuesto{
				{MetodoPagoID: uuid.New(), Monto: dec("50"), EsCredito: true},
				{MetodoPagoID: uuid.New(), Monto: dec("50"), EsCredito: true},
			},
			hayCliente: true,
			want:       apierror.ErrValidation,
		},
		{
			name:  "monto con tres decimales",
			total: "100",
			pagos: []PagoPropuesto{{MetodoPagoID: uuid.New(), Monto: dec("100.001")}},
			want:  apierror.ErrValidation,
		},
		{
			name:  "sin pagos",
			total: "100",
			want:  apierror.ErrValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := AsignarPagos(dec(tt.total), tt.pagos, tt.hayCliente)
			assert.Nil(t, out)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestAsignarPagos_DesbalanceEsValidacion(t *testing.T) {
	_, err := AsignarPagos(dec("10"), []PagoPropuesto{{MetodoPagoID: uuid.New(), Monto: dec("1")}}, false)
	assert.ErrorIs(t, err, apierror.ErrValidation)
	de, ok := apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, "10.00", de.Fields["total"])
	assert.Equal(t, "1.00", de.Fields["pagado"])
}
