package infra

import (
	"fmt"

	"github.com/AndresDiezT/alto-vivo-sub000/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx and brings the schema
// up to date: AutoMigrate for tables and columns, then the idempotent SQL
// patches GORM cannot express (partial indexes, sequences).
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations migrates every model and applies the schema patches. Also used
// by the integration tests against a throwaway container.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Almacen{},
		&model.Presentacion{},
		&model.MetodoPago{},
		&model.Cliente{},
		&model.Proveedor{},
		&model.Caja{},
		&model.SesionCaja{},
		&model.MovimientoCaja{},
		&model.StockPresentacion{},
		&model.Lote{},
		&model.MovimientoStock{},
		&model.MovimientoCredito{},
		&model.Venta{},
		&model.VentaItem{},
		&model.VentaPago{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	if err := applySchemaPatches(db); err != nil {
		return fmt.Errorf("schema patches: %w", err)
	}
	return nil
}

// applySchemaPatches runs idempotent DDL statements that GORM AutoMigrate cannot
// handle on its own. Each statement uses IF NOT EXISTS semantics so re-running
// on an already-patched DB is safe.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		// Ticket numbers come from a sequence so concurrent sales never collide
		`CREATE SEQUENCE IF NOT EXISTS ventas_numero_ticket_seq START 1`,
		// At most one open session per register. The name is matched by
		// repository.ClassifyError to report SessionAlreadyOpen.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_sesiones_caja_abierta
		    ON sesiones_caja (caja_id)
		    WHERE estado = 'abierta'`,
		// At most one active credit method per business
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_metodos_pago_credito
		    ON metodos_pago (negocio_id)
		    WHERE es_credito AND activo`,
		// The materialized counters and lot balances can never go negative
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_stock_no_negativo') THEN
		    ALTER TABLE stock_presentaciones
		      ADD CONSTRAINT chk_stock_no_negativo CHECK (cantidad >= 0);
		  END IF;
		  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_lote_no_negativo') THEN
		    ALTER TABLE lotes
		      ADD CONSTRAINT chk_lote_no_negativo CHECK (cantidad_restante >= 0);
		  END IF;
		END $$`,
		// Expired-lot batch scans by expiry date
		`CREATE INDEX IF NOT EXISTS idx_lotes_vencimiento
		    ON lotes (vence_at)
		    WHERE vence_at IS NOT NULL AND cantidad_restante > 0`,
	}

	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", sql[:min(len(sql), 60)], err)
		}
	}
	return nil
}
