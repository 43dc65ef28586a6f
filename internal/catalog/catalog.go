// Package catalog lists the validation check types applicable to each
// dataset kind.
package catalog

import (
	"slices"

	api "github.com/data-validator/data-validator/api/v1alpha1"
)

// CheckType describes one selectable check.
type CheckType struct {
	Value       api.CheckType
	Label       string
	Description string
	// Parameters lists the keys the check needs in its parameter bag.
	Parameters []string
}

var (
	missingValues = CheckType{
		Value:       api.CheckTypeMissingValues,
		Label:       "Missing Values",
		Description: "Fails when the column contains empty or null values",
	}
	uniqueValues = CheckType{
		Value:       api.CheckTypeUniqueValues,
		Label:       "Unique Values",
		Description: "Fails when the column contains duplicated values",
	}
	valueRange = CheckType{
		Value:       api.CheckTypeValueRange,
		Label:       "Value Range",
		Description: "Fails when numeric values fall outside [min, max]",
		Parameters:  []string{"min", "max"},
	}
	pattern = CheckType{
		Value:       api.CheckTypePattern,
		Label:       "Pattern Match",
		Description: "Fails when values do not match a regular expression",
		Parameters:  []string{"regex"},
	}
	dataType = CheckType{
		Value:       api.CheckTypeDataType,
		Label:       "Data Type",
		Description: "Fails when values cannot be read as the expected type",
		Parameters:  []string{"expectedType"},
	}
	schema = CheckType{
		Value:       api.CheckTypeSchema,
		Label:       "Schema",
		Description: "Fails when the table schema differs from the expected columns and types",
		Parameters:  []string{"expectedSchema"},
	}
	customSQL = CheckType{
		Value:       api.CheckTypeCustomSQL,
		Label:       "Custom SQL",
		Description: "Fails when a custom SQL query returns rows",
		Parameters:  []string{"query"},
	}
)

var (
	common           = []CheckType{missingValues, uniqueValues, valueRange}
	csvSpecific      = []CheckType{pattern, dataType}
	postgresSpecific = []CheckType{pattern, dataType, schema, customSQL}
)

// AvailableCheckTypes returns the check types for a dataset kind, common
// types first. Unknown kinds only get the common types. The returned entries
// are deep copies.
func AvailableCheckTypes(kind api.DatasetKind) []CheckType {
	out := make([]CheckType, 0, len(common)+len(postgresSpecific))
	out = append(out, common...)
	switch kind {
	case api.DatasetKindCSV:
		out = append(out, csvSpecific...)
	case api.DatasetKindPostgres:
		out = append(out, postgresSpecific...)
	}
	for i := range out {
		out[i].Parameters = slices.Clone(out[i].Parameters)
	}
	return out
}

// Lookup finds a check type applicable to kind.
func Lookup(kind api.DatasetKind, value api.CheckType) (CheckType, bool) {
	for _, t := range AvailableCheckTypes(kind) {
		if t.Value == value {
			return t, true
		}
	}
	return CheckType{}, false
}

func Supports(kind api.DatasetKind, value api.CheckType) bool {
	_, ok := Lookup(kind, value)
	return ok
}

// Known reports whether value is a check type of any dataset kind.
func Known(value api.CheckType) bool {
	return Supports(api.DatasetKindPostgres, value)
}
