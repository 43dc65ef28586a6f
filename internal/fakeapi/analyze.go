package fakeapi

import (
	"fmt"
	"strconv"
	"strings"

	api "github.com/data-validator/data-validator/api/v1alpha1"
	"github.com/data-validator/data-validator/internal/store/model"
)

const maxSampleValues = 5

func analyze(t model.Table) api.DatasetAnalysis {
	analysis := api.DatasetAnalysis{
		Columns:         make(map[string]api.ColumnAnalysis, len(t.Header)),
		Recommendations: []api.Recommendation{},
	}
	for _, name := range t.Header {
		values, _ := t.Column(name)
		col := analyzeColumn(values)
		analysis.Columns[name] = col
		analysis.Recommendations = append(analysis.Recommendations, recommend(name, col)...)
	}
	return analysis
}

func analyzeColumn(values []string) api.ColumnAnalysis {
	var (
		present []string
		numbers []float64
		allInts = true
		unique  = make(map[string]struct{})
	)
	for _, v := range values {
		if isMissing(v) {
			continue
		}
		present = append(present, v)
		unique[v] = struct{}{}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			continue
		}
		numbers = append(numbers, f)
		if _, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err != nil {
			allInts = false
		}
	}

	missing := len(values) - len(present)
	col := api.ColumnAnalysis{
		UniqueValues:      len(unique),
		MissingValues:     missing,
		MissingPercentage: percentage(missing, len(values)),
	}

	if len(present) > 0 && len(numbers) == len(present) {
		col.DataType = "float64"
		if allInts {
			col.DataType = "int64"
		}
		lo, hi, sum := numbers[0], numbers[0], 0.0
		for _, n := range numbers {
			lo = min(lo, n)
			hi = max(hi, n)
			sum += n
		}
		mean := sum / float64(len(numbers))
		col.Min, col.Max, col.Mean = &lo, &hi, &mean
		return col
	}

	col.DataType = "string"
	seen := make(map[string]struct{})
	for _, v := range present {
		if len(col.SampleValues) == maxSampleValues {
			break
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		col.SampleValues = append(col.SampleValues, v)
	}
	return col
}

func recommend(name string, col api.ColumnAnalysis) []api.Recommendation {
	var out []api.Recommendation
	if col.MissingPercentage > 0 {
		out = append(out, api.Recommendation{
			Type:    api.CheckTypeMissingValues,
			Column:  name,
			Message: fmt.Sprintf("Column '%s' has %.1f%% missing values", name, col.MissingPercentage),
		})
	}
	if col.UniqueValues == 1 {
		out = append(out, api.Recommendation{
			Type:    api.CheckTypeUniqueValues,
			Column:  name,
			Message: fmt.Sprintf("Column '%s' has only one unique value", name),
		})
	}
	if col.Min != nil && col.Max != nil {
		out = append(out, api.Recommendation{
			Type:    api.CheckTypeValueRange,
			Column:  name,
			Message: fmt.Sprintf("Column '%s' has values between %v and %v", name, *col.Min, *col.Max),
		})
	}
	return out
}

func percentage(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}
