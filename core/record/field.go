package record

import (
	"fmt"

	"github.com/trezcool/masomo/core"
)

// FieldType is the kind of value a Field holds.
type FieldType string

// Field types
const (
	TypeText     FieldType = "text"
	TypeNumber   FieldType = "number"
	TypeDate     FieldType = "date"
	TypeDropdown FieldType = "dropdown"
	TypeFormula  FieldType = "formula"
)

var FieldTypes = []FieldType{TypeText, TypeNumber, TypeDate, TypeDropdown, TypeFormula}

func (t FieldType) Valid() bool {
	for _, ft := range FieldTypes {
		if t == ft {
			return true
		}
	}
	return false
}

// Aggregate is the summary statistic computed over all rows for a Field.
type Aggregate string

// Aggregates
const (
	AggregateNone Aggregate = "none"
	AggregateSum  Aggregate = "sum"
	AggregateAvg  Aggregate = "avg"
)

var Aggregates = []Aggregate{AggregateNone, AggregateSum, AggregateAvg}

func (a Aggregate) Valid() bool {
	for _, agg := range Aggregates {
		if a == agg {
			return true
		}
	}
	return false
}

// normalize maps the zero value to AggregateNone.
func (a Aggregate) normalize() Aggregate {
	if a == "" {
		return AggregateNone
	}
	return a
}

// Operator is an arithmetic operator applied by a formula Term.
type Operator string

// Operators
const (
	OpAdd Operator = "+"
	OpSub Operator = "-"
	OpMul Operator = "*"
	OpDiv Operator = "/"
)

var Operators = []Operator{OpAdd, OpSub, OpMul, OpDiv}

func (op Operator) Valid() bool {
	for _, o := range Operators {
		if op == o {
			return true
		}
	}
	return false
}

// Term is one step of a formula chain.
// The first Term of a chain is the seed value: its Operator is ignored.
type Term struct {
	Operator Operator `json:"operator,omitempty" validate:"omitempty,operator"`
	FieldID  string   `json:"field_id"`
}

// Field is a typed column of a Record.
// It is implemented by TextField, NumberField, DateField, DropdownField and FormulaField only.
type Field interface {
	Base() FieldBase
	Type() FieldType
	withBase(b FieldBase) Field
}

// FieldBase holds the attributes shared by every Field variant.
type FieldBase struct {
	ID        string
	Name      string
	Aggregate Aggregate
}

func (b FieldBase) Base() FieldBase { return b }

type (
	TextField struct {
		FieldBase
	}

	NumberField struct {
		FieldBase
	}

	DateField struct {
		FieldBase
	}

	DropdownField struct {
		FieldBase
		Options []string
	}

	FormulaField struct {
		FieldBase
		Terms []Term
	}
)

var (
	_ Field = TextField{}
	_ Field = NumberField{}
	_ Field = DateField{}
	_ Field = DropdownField{}
	_ Field = FormulaField{}
)

func (TextField) Type() FieldType     { return TypeText }
func (NumberField) Type() FieldType   { return TypeNumber }
func (DateField) Type() FieldType     { return TypeDate }
func (DropdownField) Type() FieldType { return TypeDropdown }
func (FormulaField) Type() FieldType  { return TypeFormula }

func (f TextField) withBase(b FieldBase) Field   { f.FieldBase = b; return f }
func (f NumberField) withBase(b FieldBase) Field { f.FieldBase = b; return f }
func (f DateField) withBase(b FieldBase) Field   { f.FieldBase = b; return f }

func (f DropdownField) withBase(b FieldBase) Field {
	f.FieldBase = b
	f.Options = append([]string(nil), f.Options...)
	return f
}

func (f FormulaField) withBase(b FieldBase) Field {
	f.FieldBase = b
	f.Terms = append([]Term(nil), f.Terms...)
	return f
}

// Rename returns a copy of f with a new name.
func Rename(f Field, name string) Field {
	b := f.Base()
	b.Name = name
	return f.withBase(b)
}

// SetAggregate returns a copy of f with a new aggregate.
func SetAggregate(f Field, agg Aggregate) Field {
	b := f.Base()
	b.Aggregate = agg.normalize()
	return f.withBase(b)
}

// cloneField returns a deep copy of f.
func cloneField(f Field) Field {
	return f.withBase(f.Base())
}

// ChangeType converts f into a Field of type t.
//  - into formula: the chain is initialized with a single unset term and the aggregate is reset.
//  - out of formula: the chain is dropped, it cannot be recovered.
//  - out of dropdown: the options are dropped.
// Any other transition only relabels the field.
func ChangeType(f Field, t FieldType) (Field, error) {
	if !t.Valid() {
		return nil, core.NewArgumentError(fmt.Sprintf("invalid field type %q", t))
	}
	if f.Type() == t {
		return cloneField(f), nil
	}

	b := f.Base()
	switch t {
	case TypeText:
		return TextField{FieldBase: b}, nil
	case TypeNumber:
		return NumberField{FieldBase: b}, nil
	case TypeDate:
		return DateField{FieldBase: b}, nil
	case TypeDropdown:
		return DropdownField{FieldBase: b, Options: []string{}}, nil
	default: // formula
		b.Aggregate = AggregateNone
		return FormulaField{FieldBase: b, Terms: []Term{{}}}, nil
	}
}

// FieldSpec is the flat (wire & storage) representation of a Field.
type FieldSpec struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      FieldType `json:"type"`
	Options   []string  `json:"options,omitempty"`
	Terms     []Term    `json:"terms,omitempty"`
	Aggregate Aggregate `json:"aggregate"`
}

// SpecOf returns the FieldSpec of f.
func SpecOf(f Field) FieldSpec {
	b := f.Base()
	spec := FieldSpec{
		ID:        b.ID,
		Name:      b.Name,
		Type:      f.Type(),
		Aggregate: b.Aggregate.normalize(),
	}
	switch fld := f.(type) {
	case DropdownField:
		spec.Options = append([]string{}, fld.Options...)
	case FormulaField:
		spec.Terms = append([]Term{}, fld.Terms...)
	}
	return spec
}

// Field converts the spec into its Field variant.
// Options are only accepted for dropdowns and terms for formulas.
// A formula without terms gets a single unset term.
func (spec FieldSpec) Field() (Field, error) {
	agg := spec.Aggregate.normalize()
	if !agg.Valid() {
		return nil, core.NewArgumentError(fmt.Sprintf("invalid aggregate %q", spec.Aggregate))
	}
	if len(spec.Options) > 0 && spec.Type != TypeDropdown {
		return nil, core.NewArgumentError(fmt.Sprintf("options are not allowed on %s fields", spec.Type))
	}
	if len(spec.Terms) > 0 && spec.Type != TypeFormula {
		return nil, core.NewArgumentError(fmt.Sprintf("terms are not allowed on %s fields", spec.Type))
	}

	b := FieldBase{ID: spec.ID, Name: spec.Name, Aggregate: agg}
	switch spec.Type {
	case TypeText:
		return TextField{FieldBase: b}, nil
	case TypeNumber:
		return NumberField{FieldBase: b}, nil
	case TypeDate:
		return DateField{FieldBase: b}, nil
	case TypeDropdown:
		return DropdownField{FieldBase: b, Options: append([]string{}, spec.Options...)}, nil
	case TypeFormula:
		terms := append([]Term{}, spec.Terms...)
		if len(terms) == 0 {
			terms = []Term{{}}
		}
		return FormulaField{FieldBase: b, Terms: terms}, nil
	default:
		return nil, core.NewArgumentError(fmt.Sprintf("invalid field type %q", spec.Type))
	}
}

// SpecsOf returns the FieldSpecs of fields, in order.
func SpecsOf(fields []Field) []FieldSpec {
	specs := make([]FieldSpec, 0, len(fields))
	for _, f := range fields {
		specs = append(specs, SpecOf(f))
	}
	return specs
}

// FieldsOf converts specs into Fields, in order.
func FieldsOf(specs []FieldSpec) ([]Field, error) {
	fields := make([]Field, 0, len(specs))
	for i, spec := range specs {
		f, err := spec.Field()
		if err != nil {
			return nil, core.NewArgumentError(fmt.Sprintf("fields[%d]: %v", i, err))
		}
		fields = append(fields, f)
	}
	return fields, nil
}
