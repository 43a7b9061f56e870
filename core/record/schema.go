package record

import (
	"fmt"
	"strings"

	"github.com/trezcool/masomo/core"
)

// Schema edits never mutate their inputs: they return updated copies.

// AddField returns a copy of r with f appended.
func (r Record) AddField(f Field) Record {
	r = r.Clone()
	r.Fields = append(r.Fields, cloneField(f))
	return r
}

// ReplaceField returns a copy of r where the field with f's ID is replaced by f.
func (r Record) ReplaceField(f Field) (Record, error) {
	_, idx, err := r.Field(f.Base().ID)
	if err != nil {
		return Record{}, err
	}
	r = r.Clone()
	r.Fields[idx] = cloneField(f)
	return r, nil
}

// RemoveField returns a copy of r without the field identified by id.
// Formula terms referencing it are kept but unset: they read 0 from then on.
func (r Record) RemoveField(id string) (Record, error) {
	_, idx, err := r.Field(id)
	if err != nil {
		return Record{}, err
	}
	r = r.Clone()
	r.Fields = append(r.Fields[:idx], r.Fields[idx+1:]...)
	for i, f := range r.Fields {
		ff, ok := f.(FormulaField)
		if !ok {
			continue
		}
		for j := range ff.Terms {
			if ff.Terms[j].FieldID == id {
				ff.Terms[j].FieldID = ""
			}
		}
		r.Fields[i] = ff
	}
	return r, nil
}

// MoveField returns a copy of r with the field identified by id moved to position to.
func (r Record) MoveField(id string, to int) (Record, error) {
	f, idx, err := r.Field(id)
	if err != nil {
		return Record{}, err
	}
	if to < 0 || to >= len(r.Fields) {
		return Record{}, core.NewArgumentError(fmt.Sprintf("position %d out of range", to))
	}
	r = r.Clone()
	fields := append(r.Fields[:idx:idx], r.Fields[idx+1:]...)
	fields = append(fields[:to], append([]Field{cloneField(f)}, fields[to:]...)...)
	r.Fields = fields
	return r, nil
}

// CandidateFields returns the fields a term of the formula field identified by fieldID may reference:
// every field of r but the formula itself.
func (r Record) CandidateFields(fieldID string) []Field {
	candidates := make([]Field, 0, len(r.Fields))
	for _, f := range r.Fields {
		if f.Base().ID != fieldID {
			candidates = append(candidates, f)
		}
	}
	return candidates
}

func asFormula(f Field) (FormulaField, error) {
	ff, ok := f.(FormulaField)
	if !ok {
		return FormulaField{}, core.NewArgumentError(fmt.Sprintf("%q is not a formula field", f.Base().Name))
	}
	return ff.withBase(ff.FieldBase).(FormulaField), nil
}

// AddFormulaTerm returns a copy of f with an unset term appended.
// The term adds by default; its field must be set before it contributes to the result.
func AddFormulaTerm(f Field) (FormulaField, error) {
	ff, err := asFormula(f)
	if err != nil {
		return FormulaField{}, err
	}
	ff.Terms = append(ff.Terms, Term{Operator: OpAdd})
	return ff, nil
}

// UpdateFormulaTerm returns a copy of f where key (TermKeyOperator | TermKeyFieldID) of term index is set to value.
// The value is not checked: references are validated before the record is saved.
func UpdateFormulaTerm(f Field, index int, key, value string) (FormulaField, error) {
	ff, err := asFormula(f)
	if err != nil {
		return FormulaField{}, err
	}
	if index < 0 || index >= len(ff.Terms) {
		return FormulaField{}, core.NewArgumentError(fmt.Sprintf("term %d out of range", index))
	}

	switch key {
	case TermKeyOperator:
		ff.Terms[index].Operator = Operator(value)
	case TermKeyFieldID:
		ff.Terms[index].FieldID = value
	default:
		return FormulaField{}, core.NewArgumentError(fmt.Sprintf("unknown term key %q", key))
	}
	return ff, nil
}

// RemoveFormulaTerm returns a copy of f without term index. A formula keeps at least one term.
func RemoveFormulaTerm(f Field, index int) (FormulaField, error) {
	ff, err := asFormula(f)
	if err != nil {
		return FormulaField{}, err
	}
	if index < 0 || index >= len(ff.Terms) {
		return FormulaField{}, core.NewArgumentError(fmt.Sprintf("term %d out of range", index))
	}
	if len(ff.Terms) == 1 {
		return FormulaField{}, core.NewArgumentError("a formula requires at least one term")
	}
	ff.Terms = append(ff.Terms[:index], ff.Terms[index+1:]...)
	return ff, nil
}

// ResolveTermNames returns a copy of r where formula terms naming a field of r (case-insensitive)
// reference it by ID instead. Terms already holding a field ID are kept.
// It lets a record be created with formulas over fields whose IDs are not known yet.
func (r Record) ResolveTermNames() Record {
	ids := make(map[string]bool, len(r.Fields))
	byName := make(map[string]string, len(r.Fields))
	for _, f := range r.Fields {
		b := f.Base()
		ids[b.ID] = true
		byName[strings.ToLower(b.Name)] = b.ID
	}

	r = r.Clone()
	for i, f := range r.Fields {
		ff, ok := f.(FormulaField)
		if !ok {
			continue
		}
		for j, term := range ff.Terms {
			if term.FieldID == "" || ids[term.FieldID] {
				continue
			}
			if id, ok := byName[strings.ToLower(strings.TrimSpace(term.FieldID))]; ok {
				ff.Terms[j].FieldID = id
			}
		}
		r.Fields[i] = ff
	}
	return r
}

// ValidateFormulas checks the formula fields of r before it is saved:
// terms may only reference other existing fields and formulas may not reference each other in a cycle.
// Unset references are allowed (they read 0).
func ValidateFormulas(r Record) error {
	ids := make(map[string]bool, len(r.Fields))
	for _, f := range r.Fields {
		ids[f.Base().ID] = true
	}

	for _, f := range r.Fields {
		ff, ok := f.(FormulaField)
		if !ok {
			continue
		}
		for i, term := range ff.Terms {
			switch {
			case term.FieldID == "":
				continue
			case term.FieldID == ff.ID:
				return formulaError(ff, fmt.Sprintf("term %d references the formula itself", i))
			case !ids[term.FieldID]:
				return formulaError(ff, fmt.Sprintf("term %d references an unknown field", i))
			}
			if i > 0 && term.Operator != "" && !term.Operator.Valid() {
				return formulaError(ff, fmt.Sprintf("term %d has an invalid operator %q", i, term.Operator))
			}
		}
	}

	if cycle := findCycle(r); cycle != nil {
		return formulaError(cycle[0], "formulas reference each other in a cycle")
	}
	return nil
}

func formulaError(ff FormulaField, msg string) error {
	return core.NewValidationError(nil, core.FieldError{Field: "terms", Error: fmt.Sprintf("%s: %s", ff.Name, msg)})
}

// findCycle returns the formula fields of a reference cycle, if any.
func findCycle(r Record) []FormulaField {
	formulas := make(map[string]FormulaField)
	for _, f := range r.Fields {
		if ff, ok := f.(FormulaField); ok {
			formulas[ff.ID] = ff
		}
	}

	const (
		visiting = 1
		done     = 2
	)
	state := make(map[string]int, len(formulas))
	var stack []FormulaField

	var visit func(ff FormulaField) []FormulaField
	visit = func(ff FormulaField) []FormulaField {
		state[ff.ID] = visiting
		stack = append(stack, ff)
		for _, term := range ff.Terms {
			dep, ok := formulas[term.FieldID]
			if !ok {
				continue
			}
			switch state[dep.ID] {
			case visiting:
				for i, s := range stack {
					if s.ID == dep.ID {
						return append([]FormulaField(nil), stack[i:]...)
					}
				}
			case 0:
				if cycle := visit(dep); cycle != nil {
					return cycle
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[ff.ID] = done
		return nil
	}

	for _, f := range r.Fields {
		if ff, ok := f.(FormulaField); ok && state[ff.ID] == 0 {
			if cycle := visit(ff); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}
