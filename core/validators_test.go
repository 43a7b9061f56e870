package core

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitValidators(t *testing.T) {
	validate := validator.New()
	translator := NewTranslator()
	InitValidators(validate, translator)

	type data struct {
		Name  string `json:"name" validate:"required,notblank"`
		Unit  string `json:"unit"`
		Scale string `json:"scale" validate:"required_with=Unit"`
		Skip  string `json:"-" validate:"omitempty,max=1"`
	}

	tests := []struct {
		name string
		data data
		want map[string]string
	}{
		{name: "valid", data: data{Name: "Class sizes", Unit: "pupils", Scale: "1"}},
		{name: "required", data: data{}, want: map[string]string{"name": "this field is required"}},
		{name: "blank", data: data{Name: "   "}, want: map[string]string{"name": "this field cannot be blank"}},
		{
			name: "required_with", data: data{Name: "x", Unit: "pupils"},
			want: map[string]string{"scale": "this field is required"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.data)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			var vErrs validator.ValidationErrors
			require.ErrorAs(t, err, &vErrs)
			got := make(map[string]string, len(vErrs))
			for _, fe := range vErrs {
				got[fe.Field()] = fe.Translate(translator)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
