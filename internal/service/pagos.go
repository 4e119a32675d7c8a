package service

import (
	"github.com/AndresDiezT/alto-vivo-sub000/internal/apierror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// toleranciaPagos is the largest |Σ pagos − total| accepted as balanced.
var toleranciaPagos = decimal.RequireFromString("0.01")

// PagoPropuesto is one payment line already resolved against the payment
// method registry (EsCredito comes from the method, not from the client).
type PagoPropuesto struct {
	MetodoPagoID uuid.UUID
	Monto        decimal.Decimal
	EsCredito    bool
}

// PagosAsignados is the validated split of a sale total.
type PagosAsignados struct {
	Pagos        []PagoPropuesto
	MontoPagado  decimal.Decimal // Σ non-credit payments
	MontoCredito decimal.Decimal // credit portion, zero when no credit line
	// MetodoCreditoID is set only when a credit payment with a positive
	// amount is present. A zero credit line is recorded but extends nothing.
	MetodoCreditoID *uuid.UUID
}

// TieneCredito reports whether the split extends credit to the client.
func (p PagosAsignados) TieneCredito() bool { return p.MetodoCreditoID != nil }

// AsignarPagos validates a proposed payment split against a sale total. It is
// pure: no I/O and no side effects.
//
//   - no payments for a non-zero total → ValidationError
//   - any negative amount, or one with more than 2 decimals → ValidationError
//   - more than one credit payment → ValidationError
//   - a credit payment without a client → ValidationError
//   - |Σ montos − total| > 0.01 → UnbalancedPayments
func AsignarPagos(total decimal.Decimal, propuestos []PagoPropuesto, hayCliente bool) (*PagosAsignados, error) {
	if len(propuestos) == 0 && !total.IsZero() {
		return nil, apierror.ValidationField("pagos", "la venta requiere al menos un pago")
	}

	out := &PagosAsignados{
		Pagos:        make([]PagoPropuesto, 0, len(propuestos)),
		MontoPagado:  decimal.Zero,
		MontoCredito: decimal.Zero,
	}
	suma := decimal.Zero
	creditos := 0

	for _, p := range propuestos {
		if p.Monto.IsNegative() {
			return nil, apierror.ValidationField("pagos", "el monto de un pago no puede ser negativo")
		}
		if err := validarEscala(p.Monto, escalaMonto, "pagos"); err != nil {
			return nil, err
		}
		monto := p.Monto
		suma = suma.Add(monto)

		if p.EsCredito {
			creditos++
			if creditos > 1 {
				return nil, apierror.ValidationField("pagos", "solo se admite un pago a crédito por venta")
			}
			if monto.IsPositive() {
				id := p.MetodoPagoID
				out.MetodoCreditoID = &id
				out.MontoCredito = monto
			}
		} else {
			out.MontoPagado = out.MontoPagado.Add(monto)
		}
		out.Pagos = append(out.Pagos, PagoPropuesto{MetodoPagoID: p.MetodoPagoID, Monto: monto, EsCredito: p.EsCredito})
	}

	if creditos > 0 && !hayCliente {
		return nil, apierror.ValidationField("cliente_id", "un pago a crédito requiere un cliente")
	}

	if suma.Sub(total).Abs().GreaterThan(toleranciaPagos) {
		return nil, apierror.UnbalancedPayments(total, suma)
	}
	return out, nil
}
