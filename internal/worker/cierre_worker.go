package worker

// cierre_worker.go
// Processes closing-report jobs from QueueCierreCaja:
//  1. load the closed session with its register and manual movements
//  2. render the Z report PDF
//  3. enqueue an email with the PDF when a report address is configured

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/AndresDiezT/alto-vivo-sub000/internal/model"
	"github.com/AndresDiezT/alto-vivo-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// FuenteCierre loads what the report needs.
type FuenteCierre interface {
	SesionCerrada(ctx context.Context, sesionID uuid.UUID) (*model.SesionCaja, int64, error)
}

// GeneradorPDF renders the report to disk and returns its path.
type GeneradorPDF func(sesion *model.SesionCaja, cantVentas int64, storagePath string) (string, error)

type fuenteCierre struct {
	cajaRepo  repository.CajaRepository
	ventaRepo repository.VentaRepository
}

// NewFuenteCierre reads sessions through the repositories.
func NewFuenteCierre(cajaRepo repository.CajaRepository, ventaRepo repository.VentaRepository) FuenteCierre {
	return &fuenteCierre{cajaRepo: cajaRepo, ventaRepo: ventaRepo}
}

func (f *fuenteCierre) SesionCerrada(ctx context.Context, sesionID uuid.UUID) (*model.SesionCaja, int64, error) {
	sesion, err := f.cajaRepo.FindSesionByID(ctx, sesionID)
	if err != nil {
		return nil, 0, err
	}
	caja, err := f.cajaRepo.FindCaja(ctx, sesion.CajaID)
	if err != nil {
		return nil, 0, err
	}
	sesion.Caja = caja
	if sesion.CantVentas != nil {
		return sesion, *sesion.CantVentas, nil
	}
	totales, err := f.ventaRepo.TotalesPorSesionTx(ctx, nil, sesionID)
	if err != nil {
		return nil, 0, err
	}
	return sesion, totales.Cantidad, nil
}

// CierreCajaWorker turns a closed session into a PDF report.
type CierreCajaWorker struct {
	fuente       FuenteCierre
	generar      GeneradorPDF
	dispatcher   *Dispatcher
	storagePath  string
	destinatario string
}

func NewCierreCajaWorker(fuente FuenteCierre, generar GeneradorPDF, dispatcher *Dispatcher, storagePath, destinatario string) *CierreCajaWorker {
	return &CierreCajaWorker{
		fuente:       fuente,
		generar:      generar,
		dispatcher:   dispatcher,
		storagePath:  storagePath,
		destinatario: destinatario,
	}
}

func (w *CierreCajaWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload CierreCajaPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("cierre_worker: invalid payload: %w", err)
	}
	sesionID, err := uuid.Parse(payload.SesionCajaID)
	if err != nil {
		log.Error().Str("sesion_caja_id", payload.SesionCajaID).Msg("cierre_worker: invalid sesion_caja_id, dropping job")
		return nil
	}

	sesion, cantVentas, err := w.fuente.SesionCerrada(ctx, sesionID)
	if err != nil {
		return fmt.Errorf("cierre_worker: load session %s: %w", sesionID, err)
	}
	if sesion.Estado != model.SesionCerrada {
		log.Warn().Str("sesion_caja_id", sesionID.String()).Msg("cierre_worker: session is still open, dropping job")
		return nil
	}

	path, err := w.generar(sesion, cantVentas, w.storagePath)
	if err != nil {
		return fmt.Errorf("cierre_worker: %w", err)
	}
	log.Info().Str("sesion_caja_id", sesionID.String()).Str("pdf", path).Msg("cierre_worker: report generated")

	if w.destinatario == "" || w.dispatcher == nil {
		return nil
	}
	nombre := sesion.CajaID.String()
	if sesion.Caja != nil {
		nombre = sesion.Caja.Nombre
	}
	body := fmt.Sprintf("Cierre de %s.\nEsperado: $%s\nDeclarado: $%s\nDiferencia: $%s",
		nombre,
		fixed(sesion.MontoEsperado), fixed(sesion.MontoCierre), fixed(sesion.Diferencia))
	return w.dispatcher.EnqueueEmail(ctx, EmailJobPayload{
		ToEmail: w.destinatario,
		Subject: "Cierre de caja " + nombre,
		Body:    body,
		PDFPath: path,
	})
}

func fixed(d *decimal.Decimal) string {
	if d == nil {
		return "0.00"
	}
	return d.StringFixed(2)
}
