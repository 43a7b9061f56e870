package record

import "math"

// Stat is the aggregate value computed for one Field.
type Stat struct {
	FieldID string  `json:"field_id"`
	Title   string  `json:"title"`
	Value   float64 `json:"value"`
}

// ComputeAggregate computes the aggregate of f over rows.
//  - sum: total of the field's values ("Total <name>").
//  - avg: total / number of rows rounded to 2 decimal places, 0 without rows ("Average <name>").
// ok is false when f has no aggregate.
// Values are read by field ID; missing values are 0.
func ComputeAggregate(f Field, rows []Row) (stat Stat, ok bool) {
	b := f.Base()

	var total float64
	for _, row := range rows {
		total += row.Number(b.ID)
	}

	switch b.Aggregate {
	case AggregateSum:
		return Stat{FieldID: b.ID, Title: "Total " + b.Name, Value: total}, true
	case AggregateAvg:
		var avg float64
		if len(rows) > 0 {
			avg = round2(total / float64(len(rows)))
		}
		return Stat{FieldID: b.ID, Title: "Average " + b.Name, Value: avg}, true
	default:
		return Stat{}, false
	}
}

// ComputeStats returns the aggregates of rec's fields over rows, in field order.
// Formula fields are evaluated first: their aggregates use the computed values, not the stored ones.
func ComputeStats(rec Record, rows []Row) []Stat {
	return computeStats(rec, EvaluateRows(rec, rows))
}

func computeStats(rec Record, evaluated []Row) []Stat {
	stats := make([]Stat, 0)
	for _, f := range rec.Fields {
		if stat, ok := ComputeAggregate(f, evaluated); ok {
			stats = append(stats, stat)
		}
	}
	return stats
}

// Table is a Record's rows with formula columns evaluated, plus its aggregates.
type Table struct {
	Columns []FieldSpec `json:"columns"`
	Rows    []Row       `json:"rows"`
	Stats   []Stat      `json:"stats"`
}

// ComputeTable evaluates rows against rec.
func ComputeTable(rec Record, rows []Row) Table {
	evaluated := EvaluateRows(rec, rows)
	return Table{
		Columns: SpecsOf(rec.Fields),
		Rows:    evaluated,
		Stats:   computeStats(rec, evaluated),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
