package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	api "github.com/data-validator/data-validator/api/v1alpha1"
	"github.com/data-validator/data-validator/internal/catalog"
)

type ValidationRule struct {
	Rule func(v *validator.Validate)
}

// Validator is a wrapper around the actual validator
// It sets up the validator and extract the rule error message from the underlying error
type Validator struct {
	validator *validator.Validate
	rules     []ValidationRule
}

func NewValidator() *Validator {
	v := validator.New()
	return &Validator{validator: v}
}

func (v *Validator) Register(rules ...ValidationRule) {
	for _, validationRule := range rules {
		validationRule.Rule(v.validator)
	}
	v.rules = append(v.rules, rules...)
}

func (v *Validator) Struct(s any) error {
	return v.validator.Struct(s)
}

// NewCheckValidator returns a validator with the check rules registered.
func NewCheckValidator() *Validator {
	v := NewValidator()
	v.Register(NewCheckValidationRules()...)
	return v
}

// ValidateNewCheck validates the struct tags of c, then that its check type
// is offered for its dataset kind and that the type's parameters are set.
func (v *Validator) ValidateNewCheck(c api.NewValidationCheck) error {
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return NewErrInvalidCheck("%s", describe(verrs))
		}
		return NewErrInvalidCheck("%s", err)
	}

	checkType, ok := catalog.Lookup(c.DatasetType, c.CheckType)
	if !ok {
		return NewErrInvalidCheck("check type %q is not available for %s datasets", c.CheckType, c.DatasetType)
	}

	var missing []string
	for _, p := range checkType.Parameters {
		if isBlank(c.Parameters[p]) {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return NewErrInvalidCheck("check type %q requires parameters: %s", c.CheckType, strings.Join(missing, ", "))
	}
	return nil
}

func isBlank(v any) bool {
	switch value := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(value) == ""
	default:
		return false
	}
}

func describe(verrs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "dataset_kind":
			msgs = append(msgs, fmt.Sprintf("%s %q is not a dataset kind", fe.Field(), fe.Value()))
		case "check_type":
			msgs = append(msgs, fmt.Sprintf("%s %q is not a known check type", fe.Field(), fe.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
