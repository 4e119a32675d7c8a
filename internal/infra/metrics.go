package infra

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Domain metrics. HTTP metrics live in middleware/metrics.go.
var (
	VentasTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "altovivo_ventas_total",
			Help: "Ventas procesadas por resultado",
		},
		[]string{"resultado"}, // registrada | anulada | rechazada
	)

	VentasMonto = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "altovivo_ventas_monto_total",
			Help: "Importe acumulado de ventas registradas",
		},
	)

	StockMovimientosTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "altovivo_stock_movimientos_total",
			Help: "Movimientos de stock registrados por tipo",
		},
		[]string{"tipo"},
	)

	SesionesCajaTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "altovivo_sesiones_caja_total",
			Help: "Aperturas y cierres de caja, cierres por clasificación de desvío",
		},
		[]string{"evento"},
	)

	ConflictosConcurrencia = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "altovivo_conflictos_concurrencia_total",
			Help: "Transacciones abortadas por contención de locks",
		},
	)

	JobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "altovivo_jobs_total",
			Help: "Jobs del worker pool por tipo y resultado",
		},
		[]string{"tipo", "resultado"},
	)
)

// RegisterMetrics registers the domain collectors with reg.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(VentasTotal, VentasMonto, StockMovimientosTotal, SesionesCajaTotal, ConflictosConcurrencia, JobsTotal)
}
