package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCalcularArqueo_SinDiferencia(t *testing.T) {
	res := CalcularArqueo(EntradaArqueo{
		MontoApertura: dec("100000"),
		VentasContado: dec("250000"),
		Ingresos:      dec("20000"),
		Egresos:       dec("5000"),
		MontoCierre:   dec("365000"),
	})
	assert.Equal(t, "365000", res.MontoEsperado.String())
	assert.True(t, res.Diferencia.IsZero())
}

func TestCalcularArqueo_Faltante(t *testing.T) {
	res := CalcularArqueo(EntradaArqueo{
		MontoApertura: dec("100000"),
		VentasContado: dec("250000"),
		Ingresos:      dec("20000"),
		Egresos:       dec("5000"),
		MontoCierre:   dec("360000"),
	})
	assert.Equal(t, "-5000", res.Diferencia.String())
}

func TestCalcularArqueo_Determinista(t *testing.T) {
	in := EntradaArqueo{
		MontoApertura: dec("1000.50"),
		VentasContado: dec("0.25"),
		Ingresos:      decimal.Zero,
		Egresos:       dec("0.75"),
		MontoCierre:   dec("1000"),
	}
	a, b := CalcularArqueo(in), CalcularArqueo(in)
	assert.True(t, a.MontoEsperado.Equal(b.MontoEsperado))
	assert.True(t, a.Diferencia.Equal(b.Diferencia))
	assert.Equal(t, "1000", a.MontoEsperado.String())
}

func TestClasificarDesvio(t *testing.T) {
	tests := []struct {
		diferencia, esperado string
		want                 string
	}{
		{"0", "0", DesvioNormal},
		{"0", "1000", DesvioNormal},
		{"10", "1000", DesvioNormal},
		{"-10", "1000", DesvioNormal},
		{"50", "1000", DesvioAdvertencia},
		{"-50", "1000", DesvioAdvertencia},
		{"51", "1000", DesvioCritico},
		{"1", "0", DesvioCritico},
	}
	for _, tt := range tests {
		got := clasificarDesvio(dec(tt.diferencia), dec(tt.esperado))
		assert.Equal(t, tt.want, got, "diferencia=%s esperado=%s", tt.diferencia, tt.esperado)
	}
}
