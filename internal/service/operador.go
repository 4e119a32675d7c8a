package service

import (
	"context"
	"time"

	"github.com/AndresDiezT/alto-vivo-sub000/internal/apierror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Column scales: quantities are decimal(14,3), money is decimal(14,2).
const (
	escalaCantidad int32 = 3
	escalaMonto    int32 = 2
)

// Operador identifies who performs an operation and on behalf of which business.
// Handlers build it from the JWT claims.
type Operador struct {
	UsuarioID uuid.UUID
	NegocioID uuid.UUID
}

// Bloqueador obtains a distributed lock. release must be called once the
// critical section ends. Implemented by infra.Locker over Redis.
type Bloqueador interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// Encolador enqueues background jobs. Implemented by worker.Dispatcher.
type Encolador interface {
	EncolarCierreCaja(ctx context.Context, sesionID uuid.UUID) error
}

func uuidPtrString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func timePtrString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func parseOptionalUUID(s *string, field string) (*uuid.UUID, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, invalidUUID(field)
	}
	return &id, nil
}

func parseUUID(s, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, invalidUUID(field)
	}
	return id, nil
}

func invalidUUID(field string) error {
	return apierror.ValidationField(field, "%s inválido", field)
}

// validarEscala rejects values carrying more decimals than the column keeps,
// since PostgreSQL would round them on insert.
func validarEscala(d decimal.Decimal, escala int32, field string) error {
	if !d.Equal(d.Truncate(escala)) {
		return apierror.ValidationField(field, "%s admite como máximo %d decimales", field, escala)
	}
	return nil
}

func validarCantidad(d decimal.Decimal, field string) error {
	if !d.IsPositive() {
		return apierror.ValidationField(field, "la cantidad debe ser mayor a cero")
	}
	return validarEscala(d, escalaCantidad, field)
}
