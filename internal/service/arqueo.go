package service

import "github.com/shopspring/decimal"

// EntradaArqueo holds the figures of a cash session needed to reconcile it.
type EntradaArqueo struct {
	MontoApertura decimal.Decimal
	VentasContado decimal.Decimal // non-credit payments of the session's completed sales
	Ingresos      decimal.Decimal
	Egresos       decimal.Decimal
	MontoCierre   decimal.Decimal
}

type ResultadoArqueo struct {
	MontoEsperado decimal.Decimal
	Diferencia    decimal.Decimal // positive = sobrante, negative = faltante
}

// CalcularArqueo is the reconciliation formula:
//
//	esperado   = apertura + ventas contado + ingresos − egresos
//	diferencia = cierre − esperado
func CalcularArqueo(in EntradaArqueo) ResultadoArqueo {
	esperado := in.MontoApertura.
		Add(in.VentasContado).
		Add(in.Ingresos).
		Sub(in.Egresos)
	return ResultadoArqueo{
		MontoEsperado: esperado,
		Diferencia:    in.MontoCierre.Sub(esperado),
	}
}

// Deviation classes reported on close. Informational only: a critical
// deviation does not block closing.
const (
	DesvioNormal      = "normal"
	DesvioAdvertencia = "advertencia"
	DesvioCritico     = "critico"
)

// clasificarDesvio returns "normal" | "advertencia" | "critico"
// normal: |desvio| <= 1%, advertencia: <= 5%, critico: > 5%
// With nothing expected, any difference is critical.
func clasificarDesvio(diferencia, esperado decimal.Decimal) string {
	if diferencia.IsZero() {
		return DesvioNormal
	}
	if esperado.IsZero() {
		return DesvioCritico
	}
	pct := diferencia.Div(esperado).Mul(decimal.NewFromInt(100)).Abs()
	switch {
	case pct.LessThanOrEqual(decimal.NewFromInt(1)):
		return DesvioNormal
	case pct.LessThanOrEqual(decimal.NewFromInt(5)):
		return DesvioAdvertencia
	default:
		return DesvioCritico
	}
}
