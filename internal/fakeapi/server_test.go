package fakeapi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	api "github.com/data-validator/data-validator/api/v1alpha1"
	"github.com/data-validator/data-validator/internal/auth"
	"github.com/data-validator/data-validator/internal/client"
	"github.com/data-validator/data-validator/internal/fakeapi"
	"github.com/data-validator/data-validator/internal/service"
	"github.com/data-validator/data-validator/internal/store"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const ordersCSV = `id,email,total,status
1,a@example.com,10.5,paid
2,,20,paid
3,c@example.com,-4,refunded
4,c@example.com,abc,paid
`

var _ = Describe("fake api", func() {
	var (
		server *fakeapi.Server
		srv    *httptest.Server
		cs     *client.Clientset
		ctx    context.Context
	)

	start := func(opts ...fakeapi.Option) {
		var err error
		server, err = fakeapi.New(opts...)
		Expect(err).To(BeNil())
		srv = httptest.NewServer(server)
		cs = client.NewClientset(client.NewTransport(srv.URL + fakeapi.APIPrefix))
	}

	upload := func() api.CsvDataset {
		res := cs.Datasets.UploadCSV(ctx, "orders.csv", strings.NewReader(ordersCSV))
		d, ok := res.Value()
		Expect(ok).To(BeTrue(), res.Message())
		return d
	}

	createCheck := func(d api.CsvDataset, checkType api.CheckType, column string, params map[string]any) api.ValidationCheck {
		res := cs.Validation.CreateCheck(ctx, api.NewValidationCheck{
			Name:        string(checkType) + " on " + column,
			DatasetId:   d.Id,
			DatasetName: d.Name,
			DatasetType: api.DatasetKindCSV,
			Column:      column,
			CheckType:   checkType,
			Parameters:  params,
		})
		c, ok := res.Value()
		Expect(ok).To(BeTrue(), res.Message())
		return c
	}

	BeforeEach(func() {
		ctx = context.TODO()
	})

	AfterEach(func() {
		srv.Close()
		server.Close()
	})

	Context("datasets", func() {
		BeforeEach(func() {
			start()
		})

		It("reports healthy", func() {
			Expect(cs.Health.Check(ctx).MustValue().Status).To(Equal("healthy"))
		})

		It("parses an uploaded csv", func() {
			d := upload()
			Expect(d.Id).To(HavePrefix("csv_"))
			Expect(d.Name).To(Equal("orders"))
			Expect(d.Columns).To(Equal([]string{"id", "email", "total", "status"}))
			Expect(d.RowCount).To(Equal(4))
			Expect(d.PreviewData).To(HaveLen(3))
			Expect(d.PreviewData[1]["email"]).To(BeNil())

			Expect(cs.Datasets.ListCSV(ctx).MustValue()).To(HaveLen(1))
			Expect(cs.Datasets.GetCSV(ctx, d.Id).MustValue().FileName).To(Equal("orders.csv"))
		})

		It("rejects files without the csv extension", func() {
			res := cs.Datasets.UploadCSV(ctx, "orders.txt", strings.NewReader(ordersCSV))
			Expect(res.IsOk()).To(BeFalse())
			Expect(res.Message()).To(Equal("Upload failed: File must be a CSV"))
		})

		It("returns an empty list rather than no data", func() {
			list, ok := cs.Datasets.ListCSV(ctx).Value()
			Expect(ok).To(BeTrue())
			Expect(list).NotTo(BeNil())
			Expect(list).To(BeEmpty())
		})

		It("reports unknown datasets", func() {
			res := cs.Datasets.GetCSV(ctx, "nope")
			Expect(res.Message()).To(Equal("Dataset not found"))
		})

		It("analyzes columns", func() {
			d := upload()
			analysis := cs.Datasets.AnalyzeCSV(ctx, d.Id).MustValue()

			Expect(analysis.Columns["id"].DataType).To(Equal("int64"))
			Expect(*analysis.Columns["id"].Max).To(Equal(4.0))
			Expect(analysis.Columns["email"].DataType).To(Equal("string"))
			Expect(analysis.Columns["email"].MissingValues).To(Equal(1))
			Expect(analysis.Columns["total"].DataType).To(Equal("string"))
			Expect(analysis.Recommendations).To(ContainElement(api.Recommendation{
				Type:    api.CheckTypeMissingValues,
				Column:  "email",
				Message: "Column 'email' has 25.0% missing values",
			}))
		})
	})

	Context("request validation", func() {
		BeforeEach(func() {
			start()
		})

		It("rejects unknown check types before routing", func() {
			d := upload()
			res := cs.Validation.CreateCheck(ctx, api.NewValidationCheck{
				Name:        "bad",
				DatasetId:   d.Id,
				DatasetType: api.DatasetKindCSV,
				Column:      "id",
				CheckType:   "entropy",
			})
			Expect(res.IsOk()).To(BeFalse())
			Expect(res.Message()).To(HavePrefix("API Error:"))
		})

		It("rejects checks not offered for the dataset kind", func() {
			d := upload()
			res := cs.Validation.CreateCheck(ctx, api.NewValidationCheck{
				Name:        "sql",
				DatasetId:   d.Id,
				DatasetType: api.DatasetKindCSV,
				Column:      "id",
				CheckType:   api.CheckTypeCustomSQL,
				Parameters:  map[string]any{"query": "select 1"},
			})
			Expect(res.Message()).To(ContainSubstring("not available for csv datasets"))
		})

		It("rejects checks on unknown datasets", func() {
			res := cs.Validation.CreateCheck(ctx, api.NewValidationCheck{
				Name:        "ghost",
				DatasetId:   "csv_missing",
				DatasetType: api.DatasetKindCSV,
				Column:      "id",
				CheckType:   api.CheckTypeUniqueValues,
			})
			Expect(res.Message()).To(Equal("Dataset not found"))
		})

		It("serves paths without the api prefix", func() {
			resp, err := http.Get(srv.URL + "/health")
			Expect(err).To(BeNil())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("X-Request-Id")).NotTo(BeEmpty())
		})
	})

	Context("runs", func() {
		var svc *service.ValidationService

		poll := service.PollOptions{Initial: 10 * time.Millisecond, MaxInterval: 50 * time.Millisecond, Timeout: 2 * time.Second}

		BeforeEach(func() {
			start(fakeapi.WithRunDelay(100 * time.Millisecond))
			svc = service.NewValidationService(cs.Validation, poll)
		})

		DescribeTable("evaluates csv checks",
			func(checkType api.CheckType, column string, params map[string]any, status api.ResultStatus, failed int) {
				d := upload()
				check := createCheck(d, checkType, column, params)

				res := svc.Run(ctx, check.Id)
				r, ok := res.Value()
				Expect(ok).To(BeTrue(), res.Message())
				Expect(r.CheckId).To(Equal(check.Id))
				Expect(r.Status).To(Equal(status))
				Expect(r.Metrics.FailedRecords).To(Equal(failed))
				Expect(r.Metrics.TotalRecords).To(Equal(4))
			},
			Entry("missing values", api.CheckTypeMissingValues, "email", nil, api.ResultStatusFailed, 1),
			Entry("missing values on a full column", api.CheckTypeMissingValues, "status", nil, api.ResultStatusPassed, 0),
			Entry("unique values", api.CheckTypeUniqueValues, "email", nil, api.ResultStatusFailed, 1),
			Entry("unique ids", api.CheckTypeUniqueValues, "id", nil, api.ResultStatusPassed, 0),
			Entry("value range", api.CheckTypeValueRange, "total", map[string]any{"min": 0, "max": 100}, api.ResultStatusFailed, 2),
			Entry("pattern", api.CheckTypePattern, "status", map[string]any{"regex": "^(paid|refunded)$"}, api.ResultStatusPassed, 0),
			Entry("data type", api.CheckTypeDataType, "total", map[string]any{"expectedType": "number"}, api.ResultStatusFailed, 1),
		)

		It("returns the newest of several runs", func() {
			d := upload()
			check := createCheck(d, api.CheckTypeMissingValues, "email", nil)

			first := svc.Run(ctx, check.Id).MustValue()
			second := svc.Run(ctx, check.Id).MustValue()
			Expect(second.Id).NotTo(Equal(first.Id))
			Expect(cs.Validation.ListResults(ctx).MustValue()).To(HaveLen(2))
			Expect(svc.Latest(ctx, check.Id).MustValue().Id).To(Equal(second.Id))
		})

		It("reports an unknown check without polling", func() {
			res := svc.Run(ctx, "nope")
			Expect(res.IsOk()).To(BeFalse())
			Expect(res.Message()).To(Equal("Check not found"))
		})

		It("times out when the result is slower than the poll budget", func() {
			server.Close()
			srv.Close()
			start(fakeapi.WithRunDelay(time.Hour))
			slow := service.NewValidationService(cs.Validation, service.PollOptions{
				Initial: 10 * time.Millisecond, MaxInterval: 20 * time.Millisecond, Timeout: 150 * time.Millisecond,
			})
			check := createCheck(upload(), api.CheckTypeMissingValues, "email", nil)

			res := slow.Run(ctx, check.Id)
			Expect(res.Message()).To(Equal("Validation result not found"))
		})

		It("waits for the acknowledged result", func() {
			server.Close()
			srv.Close()
			start(fakeapi.WithRunDelay(50*time.Millisecond), fakeapi.WithResultIDInAck())
			svc = service.NewValidationService(cs.Validation, poll)
			check := createCheck(upload(), api.CheckTypeMissingValues, "email", nil)

			ack := cs.Validation.StartRun(ctx, check.Id).MustValue()
			Expect(ack.ResultId).NotTo(BeEmpty())

			r := svc.Run(ctx, check.Id).MustValue()
			Expect(r.Id).NotTo(Equal(ack.ResultId))
		})

		It("creates and runs in one call", func() {
			d := upload()
			res := svc.CreateAndRun(ctx, api.NewValidationCheck{
				Name:        "status pattern",
				DatasetId:   d.Id,
				DatasetName: d.Name,
				DatasetType: api.DatasetKindCSV,
				Column:      "status",
				CheckType:   api.CheckTypePattern,
				Parameters:  map[string]any{"regex": "^paid$"},
			})
			run := res.MustValue()
			Expect(run.Check.Id).NotTo(BeEmpty())
			Expect(run.Result.MustValue().Metrics.FailedRecords).To(Equal(1))
		})
	})

	Context("authentication", func() {
		secret := []byte("dev-secret")

		BeforeEach(func() {
			start(fakeapi.WithAuthenticator(auth.NewSecretAuthenticator(secret)))
		})

		It("keeps health public and guards the rest", func() {
			Expect(cs.Health.Check(ctx).IsOk()).To(BeTrue())

			res := cs.Datasets.ListCSV(ctx)
			Expect(res.IsOk()).To(BeFalse())
			Expect(res.Message()).To(Equal("Not authenticated"))
		})

		It("accepts a signed token", func() {
			token, err := auth.SignToken(secret, "dev", time.Hour)
			Expect(err).To(BeNil())

			authed := client.NewClientset(client.NewTransport(srv.URL+fakeapi.APIPrefix, client.WithToken(token)))
			Expect(authed.Datasets.ListCSV(ctx).MustValue()).To(BeEmpty())
		})
	})

	Context("shared store", func() {
		It("keeps resources across servers and does not duplicate seeded connections", func() {
			st := store.NewMemoryStore()
			conn := api.PostgresConnection{Id: "pg1", Name: "warehouse", Host: "db", Port: 5432, Database: "dw", Username: "etl"}

			start(fakeapi.WithStore(st), fakeapi.WithConnections(conn))
			d := upload()
			srv.Close()
			server.Close()

			start(fakeapi.WithConnections(conn), fakeapi.WithStore(st))
			Expect(cs.Datasets.GetCSV(ctx, d.Id).MustValue().FileName).To(Equal("orders.csv"))
			Expect(cs.Datasets.ListPostgresConnections(ctx).MustValue()).To(HaveLen(1))
		})
	})

	Context("postgres connections", func() {
		BeforeEach(func() {
			start(fakeapi.WithConnections(api.PostgresConnection{Id: "pg1", Name: "warehouse", Host: "db", Port: 5432, Database: "dw", Username: "etl"}))
		})

		It("lists seeded connections", func() {
			Expect(cs.Datasets.GetPostgresConnection(ctx, "pg1").MustValue().Name).To(Equal("warehouse"))
		})

		It("accepts postgres checks against a seeded connection", func() {
			res := cs.Validation.CreateCheck(ctx, api.NewValidationCheck{
				Name:        "orders schema",
				DatasetId:   "pg1",
				DatasetName: "warehouse",
				DatasetType: api.DatasetKindPostgres,
				Column:      "orders",
				CheckType:   api.CheckTypeSchema,
				Parameters:  map[string]any{"expectedSchema": "id:int,total:numeric"},
			})
			Expect(res.IsOk()).To(BeTrue(), res.Message())
		})
	})
})
