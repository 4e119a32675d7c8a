package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/AndresDiezT/alto-vivo-sub000/internal/apierror"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Transactor runs fn inside a single database transaction. Every repository
// method suffixed with Tx accepts the tx handed to fn; a nil tx means "use the
// plain connection".
type Transactor interface {
	RunInTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type gormTransactor struct{ db *gorm.DB }

func NewTransactor(db *gorm.DB) Transactor { return &gormTransactor{db: db} }

// RunInTx commits when fn returns nil and rolls back otherwise. Driver errors
// that signal lock contention are translated to ConcurrencyConflict so callers
// can retry the whole operation.
func (t *gormTransactor) RunInTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	err := t.db.WithContext(ctx).Transaction(fn)
	return ClassifyError(err)
}

// PostgreSQL SQLSTATEs the engine cares about.
const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
)

// Unique index guarding "one open session per register".
const idxSesionAbierta = "idx_sesiones_caja_abierta"

// ClassifyError maps PostgreSQL failures to domain errors. Errors that are
// already domain errors, or that carry no SQLSTATE, are returned unchanged.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apierror.As(err); ok {
		return err
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
		return apierror.ConcurrencyConflict("")
	case pgUniqueViolation:
		if strings.Contains(pgErr.ConstraintName, idxSesionAbierta) {
			return &apierror.Error{Code: apierror.CodeSessionAlreadyOpen, Detail: apierror.ErrSessionAlreadyOpen.Detail}
		}
		return apierror.ConcurrencyConflict("el registro fue modificado por otra operación")
	default:
		return err
	}
}

// conn returns tx when present, otherwise the repository's own connection.
func conn(db, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return db
}

// notFound turns gorm.ErrRecordNotFound into a domain NotFound error.
func notFound(err error, detail string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apierror.NotFound(detail)
	}
	return err
}
