package record

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tablesComputed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "records_tables_computed_total",
		Help: "The total number of record tables computed",
	})
	formulaCells = promauto.NewCounter(prometheus.CounterOpts{
		Name: "records_formula_cells_total",
		Help: "The total number of formula cells evaluated",
	})
	nonFiniteCells = promauto.NewCounter(prometheus.CounterOpts{
		Name: "records_formula_non_finite_cells_total",
		Help: "The total number of formula cells evaluated to ±Inf or NaN (e.g. division by zero)",
	})
	tableDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "records_table_compute_seconds",
		Help:    "Time spent computing record tables",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
	})
)

func observeTable(rec Record, table Table, elapsed time.Duration) {
	tablesComputed.Inc()
	tableDuration.Observe(elapsed.Seconds())

	var cells, nonFinite int
	for _, f := range rec.Fields {
		if f.Type() != TypeFormula {
			continue
		}
		id := f.Base().ID
		for _, row := range table.Rows {
			cells++
			if v, ok := row[id].(float64); ok && !IsFinite(v) {
				nonFinite++
			}
		}
	}
	formulaCells.Add(float64(cells))
	nonFiniteCells.Add(float64(nonFinite))
}
