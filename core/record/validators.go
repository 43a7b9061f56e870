package record

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo/core"
)

var (
	fieldTypeTag  = "fieldtype"
	fieldTypeText = "invalid field type (text, number, date, dropdown or formula)"

	aggregateTag  = "aggregate"
	aggregateText = "invalid aggregate (none, sum or avg)"

	operatorTag  = "operator"
	operatorText = "invalid operator (+, -, * or /)"
)

// InitValidators registers the records custom validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(fieldTypeTag, fieldTypeValidation)
	core.RegisterCustomTranslation(validate, translator, fieldTypeTag, fieldTypeText)

	_ = validate.RegisterValidation(aggregateTag, aggregateValidation)
	core.RegisterCustomTranslation(validate, translator, aggregateTag, aggregateText)

	_ = validate.RegisterValidation(operatorTag, operatorValidation)
	core.RegisterCustomTranslation(validate, translator, operatorTag, operatorText)
}

// Custom Validators

func fieldTypeValidation(fl validator.FieldLevel) bool {
	return FieldType(fl.Field().String()).Valid()
}

func aggregateValidation(fl validator.FieldLevel) bool {
	return Aggregate(fl.Field().String()).Valid()
}

func operatorValidation(fl validator.FieldLevel) bool {
	return Operator(fl.Field().String()).Valid()
}
