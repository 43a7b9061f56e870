package record

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Row maps field IDs to cell values (float64, numeric strings or plain strings).
// Rows are supplied by a RowSource and are never mutated by the engine.
type Row map[string]interface{}

// Number returns the numeric value of the cell keyed by key.
// Missing, empty and non numeric values are 0.
func (r Row) Number(key string) float64 {
	switch v := r[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return 0
}

func (r Row) clone() Row {
	c := make(Row, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// Lookup resolves the row key a formula term's field ID is read from.
type Lookup func(fieldID string) string

// ByID reads cells keyed by field ID.
func ByID(fieldID string) string { return fieldID }

// ByName returns a Lookup reading cells keyed by field name (legacy rows).
// Duplicate field names make such lookups ambiguous: the last field wins.
func ByName(rec Record) Lookup {
	names := make(map[string]string, len(rec.Fields))
	for _, f := range rec.Fields {
		b := f.Base()
		names[b.ID] = b.Name
	}
	return func(fieldID string) string {
		return names[fieldID]
	}
}

// Evaluate folds the term chain over row strictly from left to right:
// ((seed op1 v1) op2 v2) ... with no operator precedence.
// The first term is the seed, its operator is ignored.
// Values are read through lookup (ByID when nil); missing values are 0.
// An unset operator adds. Division by zero follows IEEE 754 (±Inf or NaN).
func Evaluate(terms []Term, row Row, lookup Lookup) float64 {
	if lookup == nil {
		lookup = ByID
	}

	var acc float64
	for i, term := range terms {
		val := row.Number(lookup(term.FieldID))
		if i == 0 {
			acc = val
			continue
		}
		acc = apply(acc, term.Operator, val)
	}
	return acc
}

func apply(acc float64, op Operator, val float64) float64 {
	switch op {
	case OpSub:
		return acc - val
	case OpMul:
		return acc * val
	case OpDiv:
		return acc / val
	default:
		return acc + val
	}
}

// IsFinite reports whether v is neither infinite nor NaN.
func IsFinite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}

// EvaluateRows returns copies of rows with every formula field of rec evaluated.
// A formula referencing another formula reads the evaluated value. Formulas
// caught in a reference cycle read the value already present in the row.
func EvaluateRows(rec Record, rows []Row) []Row {
	order := formulaOrder(rec)
	evaluated := make([]Row, 0, len(rows))
	for _, row := range rows {
		r := row.clone()
		for _, f := range order {
			r[f.ID] = Evaluate(f.Terms, r, ByID)
		}
		evaluated = append(evaluated, r)
	}
	return evaluated
}

// formulaOrder sorts the formula fields of rec so that every formula comes after the formulas it references.
func formulaOrder(rec Record) []FormulaField {
	formulas := make(map[string]FormulaField)
	for _, f := range rec.Fields {
		if ff, ok := f.(FormulaField); ok {
			formulas[ff.ID] = ff
		}
	}

	const (
		visiting = 1
		done     = 2
	)
	state := make(map[string]int, len(formulas))
	order := make([]FormulaField, 0, len(formulas))

	var visit func(ff FormulaField)
	visit = func(ff FormulaField) {
		state[ff.ID] = visiting
		for _, term := range ff.Terms {
			dep, ok := formulas[term.FieldID]
			if !ok || state[dep.ID] != 0 {
				continue // plain field, cycle or already sorted
			}
			visit(dep)
		}
		state[ff.ID] = done
		order = append(order, ff)
	}

	for _, f := range rec.Fields {
		if ff, ok := f.(FormulaField); ok && state[ff.ID] == 0 {
			visit(ff)
		}
	}
	return order
}
