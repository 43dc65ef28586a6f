package validator

import (
	"github.com/go-playground/validator/v10"

	api "github.com/data-validator/data-validator/api/v1alpha1"
	"github.com/data-validator/data-validator/internal/catalog"
)

func registerFn(tag string, fn func(fl validator.FieldLevel) bool) func(v *validator.Validate) {
	return func(v *validator.Validate) {
		_ = v.RegisterValidation(tag, fn)
	}
}

func NewCheckValidationRules() []ValidationRule {
	return []ValidationRule{
		{
			Rule: registerFn("dataset_kind", datasetKindValidator),
		},
		{
			Rule: registerFn("check_type", checkTypeValidator),
		},
	}
}

func datasetKindValidator(fl validator.FieldLevel) bool {
	kind, ok := fl.Field().Interface().(api.DatasetKind)
	if !ok {
		return false
	}
	return kind == api.DatasetKindCSV || kind == api.DatasetKindPostgres
}

func checkTypeValidator(fl validator.FieldLevel) bool {
	checkType, ok := fl.Field().Interface().(api.CheckType)
	if !ok {
		return false
	}
	return catalog.Known(checkType)
}
