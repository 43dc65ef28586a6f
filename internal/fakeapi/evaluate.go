package fakeapi

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	api "github.com/data-validator/data-validator/api/v1alpha1"
	"github.com/data-validator/data-validator/internal/store/model"
)

var dateLayouts = []string{time.DateOnly, time.RFC3339, "2006-01-02 15:04:05", "01/02/2006"}

// evaluate runs check against the rows of t and returns the result metrics.
// A check passes when no record fails.
func evaluate(check api.ValidationCheck, t model.Table) (api.ResultMetrics, error) {
	values, ok := t.Column(check.Column)
	if !ok {
		return api.ResultMetrics{}, fmt.Errorf("column %q not found in dataset", check.Column)
	}

	var (
		failed int
		err    error
	)
	switch check.CheckType {
	case api.CheckTypeMissingValues:
		failed = countFailing(values, isMissing)
	case api.CheckTypeUniqueValues:
		failed = countDuplicates(values)
	case api.CheckTypeValueRange:
		failed, err = countOutOfRange(values, check.Parameters)
	case api.CheckTypePattern:
		failed, err = countPatternMismatches(values, check.Parameters)
	case api.CheckTypeDataType:
		failed, err = countTypeMismatches(values, check.Parameters)
	default:
		err = fmt.Errorf("check type %q is not supported for csv datasets", check.CheckType)
	}
	if err != nil {
		return api.ResultMetrics{}, err
	}

	return api.ResultMetrics{
		FailedRecords: failed,
		TotalRecords:  len(values),
		Extra: map[string]any{
			"column":   check.Column,
			"passRate": passRate(failed, len(values)),
		},
	}, nil
}

func passRate(failed, total int) float64 {
	if total == 0 {
		return 100
	}
	return float64(total-failed) / float64(total) * 100
}

func isMissing(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "null", "nan", "none":
		return true
	}
	return false
}

func countFailing(values []string, fails func(string) bool) int {
	n := 0
	for _, v := range values {
		if fails(v) {
			n++
		}
	}
	return n
}

// countDuplicates counts every occurrence of a value after its first one.
// Missing values are not compared.
func countDuplicates(values []string) int {
	seen := make(map[string]struct{}, len(values))
	n := 0
	for _, v := range values {
		if isMissing(v) {
			continue
		}
		if _, ok := seen[v]; ok {
			n++
			continue
		}
		seen[v] = struct{}{}
	}
	return n
}

func countOutOfRange(values []string, params map[string]any) (int, error) {
	minValue, hasMin := toFloat(params["min"])
	maxValue, hasMax := toFloat(params["max"])
	if !hasMin && !hasMax {
		return 0, fmt.Errorf("value_range needs a numeric min or max")
	}
	return countFailing(values, func(v string) bool {
		if isMissing(v) {
			return false
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return true
		}
		return (hasMin && f < minValue) || (hasMax && f > maxValue)
	}), nil
}

func countPatternMismatches(values []string, params map[string]any) (int, error) {
	expr, _ := params["regex"].(string)
	if expr == "" {
		return 0, fmt.Errorf("pattern needs a regex")
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return 0, fmt.Errorf("invalid regex %q: %w", expr, err)
	}
	return countFailing(values, func(v string) bool {
		return !isMissing(v) && !re.MatchString(v)
	}), nil
}

func countTypeMismatches(values []string, params map[string]any) (int, error) {
	expected, _ := params["expectedType"].(string)
	parses, err := typeParser(expected)
	if err != nil {
		return 0, err
	}
	return countFailing(values, func(v string) bool {
		return !isMissing(v) && !parses(strings.TrimSpace(v))
	}), nil
}

func typeParser(expected string) (func(string) bool, error) {
	switch strings.ToLower(expected) {
	case "integer", "int":
		return func(v string) bool {
			_, err := strconv.ParseInt(v, 10, 64)
			return err == nil
		}, nil
	case "float", "number", "numeric", "decimal":
		return func(v string) bool {
			_, err := strconv.ParseFloat(v, 64)
			return err == nil
		}, nil
	case "boolean", "bool":
		return func(v string) bool {
			_, err := strconv.ParseBool(v)
			return err == nil
		}, nil
	case "date", "datetime":
		return func(v string) bool {
			for _, layout := range dateLayouts {
				if _, err := time.Parse(layout, v); err == nil {
					return true
				}
			}
			return false
		}, nil
	case "string", "text":
		return func(string) bool { return true }, nil
	default:
		return nil, fmt.Errorf("unknown expected type %q", expected)
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
