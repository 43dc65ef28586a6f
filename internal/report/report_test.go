package report_test

import (
	"bytes"
	stdcsv "encoding/csv"
	"time"

	"github.com/xuri/excelize/v2"

	api "github.com/data-validator/data-validator/api/v1alpha1"
	"github.com/data-validator/data-validator/internal/report"
	"github.com/data-validator/data-validator/internal/report/types"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func ts(s string) api.Timestamp {
	t, err := api.ParseTimestamp(s)
	Expect(err).To(BeNil())
	return t
}

var _ = Describe("report", func() {
	var (
		checks  []api.ValidationCheck
		results []api.ValidationResult
		now     = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	)

	BeforeEach(func() {
		checks = []api.ValidationCheck{
			{Id: "c1", Name: "emails present", DatasetName: "customers", DatasetType: api.DatasetKindCSV, Column: "email", CheckType: api.CheckTypeMissingValues},
			{Id: "c2", Name: "ids unique", DatasetName: "customers", DatasetType: api.DatasetKindCSV, Column: "id", CheckType: api.CheckTypeUniqueValues},
		}
		results = []api.ValidationResult{
			{Id: "r1", CheckId: "c1", Status: api.ResultStatusFailed, Metrics: api.ResultMetrics{FailedRecords: 4, TotalRecords: 10}, CreatedAt: ts("2024-05-01T10:00:00Z")},
			{Id: "r2", CheckId: "c2", Status: api.ResultStatusPassed, Metrics: api.ResultMetrics{TotalRecords: 10}, CreatedAt: ts("2024-05-02T10:00:00Z")},
			{Id: "r3", CheckId: "c1", Status: api.ResultStatusPassed, Metrics: api.ResultMetrics{TotalRecords: 10}, CreatedAt: ts("2024-05-03T10:00:00Z")},
			{Id: "r4", CheckId: "gone", Status: api.ResultStatusFailed, CreatedAt: ts("2024-04-01T10:00:00Z")},
		}
	})

	Context("build", func() {
		It("joins results with checks, newest first", func() {
			data := report.Build(checks, results, types.ReportOptions{}, now)

			Expect(data.Rows).To(HaveLen(4))
			Expect(data.Rows[0].ResultID).To(Equal("r3"))
			Expect(data.Rows[0].CheckName).To(Equal("emails present"))
			Expect(data.Rows[3].ResultID).To(Equal("r4"))
			Expect(data.Rows[3].CheckName).To(BeEmpty())
			Expect(data.Summary).To(Equal(types.Summary{Checks: 3, Results: 4, Passed: 2, Failed: 2}))
			Expect(data.Generated).To(Equal(now))
		})

		It("keeps the latest result per check", func() {
			data := report.Build(checks, results, types.ReportOptions{LatestOnly: true}, now)

			ids := []string{}
			for _, r := range data.Rows {
				ids = append(ids, r.ResultID)
			}
			Expect(ids).To(Equal([]string{"r3", "r2", "r4"}))
		})
	})

	Context("renderers", func() {
		It("rejects unknown formats", func() {
			_, err := report.NewRenderer("pdf")
			Expect(err).NotTo(BeNil())
		})

		It("renders csv", func() {
			r, err := report.NewRenderer(types.ReportFormatCSV)
			Expect(err).To(BeNil())
			Expect(r.SupportedFormat()).To(Equal(types.ReportFormatCSV))

			out, err := r.Render(report.Build(checks, results, types.ReportOptions{}, now))
			Expect(err).To(BeNil())

			records, err := stdcsv.NewReader(bytes.NewReader(out)).ReadAll()
			Expect(err).To(BeNil())
			Expect(records).To(HaveLen(5))
			Expect(records[0]).To(Equal(types.Columns))
			Expect(records[1]).To(Equal([]string{
				"r3", "c1", "emails present", "customers", "csv", "email",
				"missing_values", "passed", "0", "10", "2024-05-03T10:00:00Z",
			}))
		})

		It("renders xlsx", func() {
			r, err := report.NewRenderer(types.ReportFormatXLSX)
			Expect(err).To(BeNil())

			out, err := r.Render(report.Build(checks, results, types.ReportOptions{}, now))
			Expect(err).To(BeNil())

			f, err := excelize.OpenReader(bytes.NewReader(out))
			Expect(err).To(BeNil())
			defer f.Close()

			Expect(f.GetSheetList()).To(Equal([]string{"Results", "Summary"}))
			rows, err := f.GetRows("Results")
			Expect(err).To(BeNil())
			Expect(rows).To(HaveLen(5))
			Expect(rows[0][0]).To(Equal("Result ID"))
			Expect(rows[2][0]).To(Equal("r2"))
			Expect(rows[4][8]).To(Equal("0"))

			failed, err := f.GetCellValue("Summary", "B6")
			Expect(err).To(BeNil())
			Expect(failed).To(Equal("2"))
		})
	})
})
