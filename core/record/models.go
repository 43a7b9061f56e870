package record

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo/core"
)

// Folder is a named container grouping zero or more Records.
type Folder struct {
	ID          string    `json:"id"`
	Label       string    `json:"label"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// Record is a user-defined schema: an ordered list of Fields (insertion order is display order).
type Record struct {
	ID          string
	FolderID    string
	Label       string
	Description string
	Fields      []Field
	CreatedAt   time.Time // UTC
	UpdatedAt   time.Time // UTC
}

type recordJSON struct {
	ID          string      `json:"id"`
	FolderID    string      `json:"folder_id"`
	Label       string      `json:"label"`
	Description string      `json:"description"`
	Fields      []FieldSpec `json:"fields"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{
		ID:          r.ID,
		FolderID:    r.FolderID,
		Label:       r.Label,
		Description: r.Description,
		Fields:      SpecsOf(r.Fields),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	})
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var rj recordJSON
	if err := json.Unmarshal(data, &rj); err != nil {
		return err
	}
	fields, err := FieldsOf(rj.Fields)
	if err != nil {
		return err
	}
	*r = Record{
		ID:          rj.ID,
		FolderID:    rj.FolderID,
		Label:       rj.Label,
		Description: rj.Description,
		Fields:      fields,
		CreatedAt:   rj.CreatedAt,
		UpdatedAt:   rj.UpdatedAt,
	}
	return nil
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	fields := make([]Field, 0, len(r.Fields))
	for _, f := range r.Fields {
		fields = append(fields, cloneField(f))
	}
	r.Fields = fields
	return r
}

// Field returns the field identified by id and its position.
func (r Record) Field(id string) (Field, int, error) {
	for i, f := range r.Fields {
		if f.Base().ID == id {
			return f, i, nil
		}
	}
	return nil, -1, ErrFieldNotFound
}

// FieldByName returns the first field named name.
func (r Record) FieldByName(name string) (Field, error) {
	for _, f := range r.Fields {
		if f.Base().Name == name {
			return f, nil
		}
	}
	return nil, ErrFieldNotFound
}

// NewFolder contains information needed to create a new Folder.
type NewFolder struct {
	Label       string `json:"label" validate:"required,notblank,max=120"`
	Description string `json:"description" validate:"max=500"`
}

func (nf *NewFolder) Validate(validate *validator.Validate) error {
	nf.Label = core.CleanString(nf.Label)
	nf.Description = core.CleanString(nf.Description)
	return validate.Struct(nf)
}

// UpdateFolder defines what information may be provided to modify an existing Folder.
type UpdateFolder struct {
	Label       string  `json:"label" validate:"omitempty,max=120"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

func (uf *UpdateFolder) Validate(origFolder Folder, validate *validator.Validate) error {
	if label := core.CleanString(uf.Label); label != "" {
		uf.Label = label
	} else {
		uf.Label = origFolder.Label
	}
	if uf.Description != nil {
		desc := core.CleanString(*uf.Description)
		uf.Description = &desc
	}
	return validate.Struct(uf)
}

// NewField contains information needed to add a Field to a Record.
type NewField struct {
	Name      string    `json:"name" validate:"required,notblank,max=120"`
	Type      FieldType `json:"type" validate:"required,fieldtype"`
	Options   []string  `json:"options" validate:"omitempty,dive,required"`
	Terms     []Term    `json:"terms" validate:"omitempty,dive"`
	Aggregate Aggregate `json:"aggregate" validate:"omitempty,aggregate"`
}

func (nf *NewField) Validate(validate *validator.Validate) error {
	nf.Name = core.CleanString(nf.Name)
	for i := range nf.Options {
		nf.Options[i] = core.CleanString(nf.Options[i])
	}
	return validate.Struct(nf)
}

func (nf NewField) spec(id string) FieldSpec {
	return FieldSpec{
		ID:        id,
		Name:      nf.Name,
		Type:      nf.Type,
		Options:   nf.Options,
		Terms:     nf.Terms,
		Aggregate: nf.Aggregate,
	}
}

// UpdateField defines what may be changed on an existing Field.
// The type is changed through ChangeFieldType.
type UpdateField struct {
	Name      string    `json:"name" validate:"omitempty,max=120"`
	Options   []string  `json:"options" validate:"omitempty,dive,required"`
	Terms     []Term    `json:"terms" validate:"omitempty,dive"`
	Aggregate Aggregate `json:"aggregate" validate:"omitempty,aggregate"`
}

func (uf *UpdateField) Validate(validate *validator.Validate) error {
	uf.Name = core.CleanString(uf.Name)
	for i := range uf.Options {
		uf.Options[i] = core.CleanString(uf.Options[i])
	}
	return validate.Struct(uf)
}

// NewRecord contains information needed to create a new Record.
// Field IDs are generated on creation: formula terms reference their sibling fields by name.
type NewRecord struct {
	FolderID    string     `json:"-"`
	Label       string     `json:"label" validate:"required,notblank,max=120"`
	Description string     `json:"description" validate:"max=500"`
	Fields      []NewField `json:"fields" validate:"omitempty,dive"`
}

func (nr *NewRecord) Validate(validate *validator.Validate) error {
	nr.Label = core.CleanString(nr.Label)
	nr.Description = core.CleanString(nr.Description)
	for i := range nr.Fields {
		nr.Fields[i].Name = core.CleanString(nr.Fields[i].Name)
	}
	return validate.Struct(nr)
}

// UpdateRecord defines what information may be provided to modify an existing Record.
type UpdateRecord struct {
	Label       string  `json:"label" validate:"omitempty,max=120"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

func (ur *UpdateRecord) Validate(origRec Record, validate *validator.Validate) error {
	if label := core.CleanString(ur.Label); label != "" {
		ur.Label = label
	} else {
		ur.Label = origRec.Label
	}
	if ur.Description != nil {
		desc := core.CleanString(*ur.Description)
		ur.Description = &desc
	}
	return validate.Struct(ur)
}

// Term update keys
const (
	TermKeyOperator = "operator"
	TermKeyFieldID  = "field_id"
)

// TermUpdate sets one key of a formula Term.
type TermUpdate struct {
	Key   string `json:"key" validate:"required,oneof=operator field_id"`
	Value string `json:"value"`
}

func (tu *TermUpdate) Validate(validate *validator.Validate) error {
	tu.Key = core.CleanString(tu.Key, true /* lower */)
	tu.Value = core.CleanString(tu.Value)
	if err := validate.Struct(tu); err != nil {
		return err
	}
	if tu.Key == TermKeyOperator && !Operator(tu.Value).Valid() {
		return core.NewValidationError(nil, core.FieldError{
			Field: "value",
			Error: fmt.Sprintf("invalid operator %q", tu.Value),
		})
	}
	return nil
}

type QueryFilter struct {
	Search   string `query:"search"`
	FolderID string `query:"-"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.FolderID == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
