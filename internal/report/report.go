// Package report exports validation results joined with their checks.
package report

import (
	"fmt"
	"sort"
	"time"

	api "github.com/data-validator/data-validator/api/v1alpha1"
	"github.com/data-validator/data-validator/internal/report/csv"
	"github.com/data-validator/data-validator/internal/report/types"
	"github.com/data-validator/data-validator/internal/report/xlsx"
)

// Build joins results with checks, newest result first.
func Build(checks []api.ValidationCheck, results []api.ValidationResult, opts types.ReportOptions, now time.Time) *types.ReportData {
	byID := make(map[string]api.ValidationCheck, len(checks))
	for _, c := range checks {
		byID[c.Id] = c
	}

	if opts.LatestOnly {
		results = latestPerCheck(results)
	}

	data := &types.ReportData{
		Options:   opts,
		Generated: now.UTC(),
		Rows:      make([]types.ResultRow, 0, len(results)),
	}
	seenChecks := make(map[string]struct{})
	for _, r := range results {
		c := byID[r.CheckId]
		data.Rows = append(data.Rows, types.ResultRow{
			ResultID:      r.Id,
			CheckID:       r.CheckId,
			CheckName:     c.Name,
			Dataset:       c.DatasetName,
			DatasetType:   c.DatasetType,
			Column:        c.Column,
			CheckType:     c.CheckType,
			Status:        r.Status,
			FailedRecords: r.Metrics.FailedRecords,
			TotalRecords:  r.Metrics.TotalRecords,
			CreatedAt:     r.CreatedAt.Time,
		})
		seenChecks[r.CheckId] = struct{}{}
		if r.Status == api.ResultStatusPassed {
			data.Summary.Passed++
		} else {
			data.Summary.Failed++
		}
	}
	data.Summary.Results = len(data.Rows)
	data.Summary.Checks = len(seenChecks)

	sort.SliceStable(data.Rows, func(i, j int) bool {
		return data.Rows[i].CreatedAt.After(data.Rows[j].CreatedAt)
	})
	return data
}

// latestPerCheck keeps the newest result of each check, the last one in
// list order on equal timestamps.
func latestPerCheck(results []api.ValidationResult) []api.ValidationResult {
	latest := make(map[string]int)
	for i, r := range results {
		j, ok := latest[r.CheckId]
		if !ok || !r.CreatedAt.Before(results[j].CreatedAt.Time) {
			latest[r.CheckId] = i
		}
	}
	out := make([]api.ValidationResult, 0, len(latest))
	for i, r := range results {
		if latest[r.CheckId] == i {
			out = append(out, r)
		}
	}
	return out
}

func NewRenderer(format types.ReportFormat) (types.ReportRenderer, error) {
	switch format {
	case types.ReportFormatCSV:
		return csv.NewRenderer(), nil
	case types.ReportFormatXLSX:
		return xlsx.NewRenderer(), nil
	default:
		return nil, fmt.Errorf("unsupported report format %q", format)
	}
}
