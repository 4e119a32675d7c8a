package infra

// pdf.go: closing report ("reporte Z") of a cash session using go-pdf/fpdf.
// Receipt-width page with:
//   - register name and session window
//   - reconciliation block (apertura, ventas, ingresos, egresos, esperado, declarado)
//   - bold difference with its deviation class
//   - manual movements list
//
// The output file is saved to storagePath/cierre_{sesion_id}.pdf.

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/AndresDiezT/alto-vivo-sub000/internal/model"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// GenerateCierreCajaPDF renders the closing report of a closed session.
// storagePath is created if needed. Returns the path of the generated file.
func GenerateCierreCajaPDF(sesion *model.SesionCaja, cantVentas int64, storagePath string) (string, error) {
	if sesion.Estado != model.SesionCerrada {
		return "", fmt.Errorf("pdf: la sesión %s no está cerrada", sesion.ID)
	}
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}

	filePath := filepath.Join(storagePath, fmt.Sprintf("cierre_%s.pdf", sesion.ID))

	// 80mm thermal paper; height grows with the movement list
	alto := 140.0 + 5*float64(len(sesion.Movimientos))
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: 80, Ht: alto},
	})
	pdf.SetMargins(4, 4, 4)
	pdf.SetAutoPageBreak(false, 4)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 8
	labelW := contentW * 0.62
	valueW := contentW - labelW

	separador := func() {
		pdf.Ln(1)
		pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
		pdf.Ln(2)
	}
	fila := func(label string, v decimal.Decimal) {
		pdf.CellFormat(labelW, 5, tr(label), "", 0, "L", false, 0, "")
		pdf.CellFormat(valueW, 5, "$"+v.StringFixed(2), "", 1, "R", false, 0, "")
	}

	// ── Header ───────────────────────────────────────────────────────────────
	nombreCaja := sesion.CajaID.String()
	if sesion.Caja != nil {
		nombreCaja = sesion.Caja.Nombre
	}
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(contentW, 7, "Cierre de caja", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentW, 5, tr(nombreCaja), "", 1, "C", false, 0, "")
	pdf.CellFormat(contentW, 4, "Apertura: "+sesion.AbiertaAt.Format("02/01/2006 15:04"), "", 1, "L", false, 0, "")
	if sesion.CerradaAt != nil {
		pdf.CellFormat(contentW, 4, "Cierre:   "+sesion.CerradaAt.Format("02/01/2006 15:04"), "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(contentW, 4, fmt.Sprintf("Ventas registradas: %d", cantVentas), "", 1, "L", false, 0, "")
	separador()

	// ── Arqueo ────────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "", 8)
	fila("Monto de apertura", sesion.MontoApertura)
	fila("Ventas en efectivo", deref(sesion.TotalVentas))
	fila("Ventas a crédito (no suman)", deref(sesion.TotalCredito))
	fila("Ingresos manuales", deref(sesion.TotalIngreso))
	fila("Egresos manuales", deref(sesion.TotalEgreso).Neg())
	separador()
	pdf.SetFont("Helvetica", "B", 8)
	fila("Esperado en caja", deref(sesion.MontoEsperado))
	fila("Declarado", deref(sesion.MontoCierre))

	pdf.SetFont("Helvetica", "B", 10)
	diferencia := deref(sesion.Diferencia)
	etiqueta := "Diferencia"
	switch {
	case diferencia.IsPositive():
		etiqueta = "Sobrante"
	case diferencia.IsNegative():
		etiqueta = "Faltante"
	}
	fila(etiqueta, diferencia)
	if sesion.ClasificacionDesvio != nil {
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(contentW, 5, tr("Desvío: "+*sesion.ClasificacionDesvio), "", 1, "R", false, 0, "")
	}

	// ── Movimientos ───────────────────────────────────────────────────────────
	if len(sesion.Movimientos) > 0 {
		separador()
		pdf.SetFont("Helvetica", "B", 8)
		pdf.CellFormat(contentW, 5, "Movimientos manuales", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 7)
		for _, m := range sesion.Movimientos {
			desc := m.Descripcion
			if len([]rune(desc)) > 30 {
				desc = string([]rune(desc)[:29]) + "…"
			}
			monto := m.Monto
			if m.Tipo == model.MovCajaEgreso {
				monto = monto.Neg()
			}
			pdf.CellFormat(labelW, 4, tr(m.CreatedAt.Format("15:04")+" "+desc), "", 0, "L", false, 0, "")
			pdf.CellFormat(valueW, 4, "$"+monto.StringFixed(2), "", 1, "R", false, 0, "")
		}
	}

	if sesion.NotasCierre != nil && *sesion.NotasCierre != "" {
		separador()
		pdf.SetFont("Helvetica", "I", 7)
		pdf.MultiCell(contentW, 4, tr(*sesion.NotasCierre), "", "L", false)
	}

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	return filePath, nil
}

func deref(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
