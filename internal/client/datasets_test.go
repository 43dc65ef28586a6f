package client_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	api "github.com/data-validator/data-validator/api/v1alpha1"
	"github.com/data-validator/data-validator/internal/client"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func writeEnvelope(w http.ResponseWriter, data any) {
	env, err := api.SuccessEnvelope(data)
	Expect(err).To(BeNil())
	w.Header().Set("Content-Type", "application/json")
	Expect(json.NewEncoder(w).Encode(env)).To(Succeed())
}

var _ = Describe("dataset client", func() {
	var (
		srv      *httptest.Server
		mux      *http.ServeMux
		notifier *recordingNotifier
		datasets *client.DatasetClient
	)

	BeforeEach(func() {
		mux = http.NewServeMux()
		notifier = &recordingNotifier{}
		srv = httptest.NewServer(mux)
		datasets = client.NewDatasetClient(client.NewTransport(srv.URL, client.WithNotifier(notifier.notify)))
	})

	AfterEach(func() {
		srv.Close()
	})

	Context("csv datasets", func() {
		It("lists datasets", func() {
			mux.HandleFunc("GET /datasets/csv", func(w http.ResponseWriter, r *http.Request) {
				writeEnvelope(w, []api.CsvDataset{{Id: "d1", Name: "orders", Columns: []string{"id", "total"}, RowCount: 2}})
			})

			res := datasets.ListCSV(context.TODO())
			list, ok := res.Value()
			Expect(ok).To(BeTrue())
			Expect(list).To(HaveLen(1))
			Expect(list[0].Columns).To(Equal([]string{"id", "total"}))
		})

		It("gets a dataset by id", func() {
			mux.HandleFunc("GET /datasets/csv/{id}", func(w http.ResponseWriter, r *http.Request) {
				if r.PathValue("id") != "d1" {
					w.WriteHeader(http.StatusNotFound)
					_, _ = w.Write([]byte(`{"detail":"Dataset not found"}`))
					return
				}
				writeEnvelope(w, api.CsvDataset{Id: "d1", Name: "orders"})
			})

			Expect(datasets.GetCSV(context.TODO(), "d1").MustValue().Name).To(Equal("orders"))

			res := datasets.GetCSV(context.TODO(), "missing")
			Expect(res.IsOk()).To(BeFalse())
			Expect(res.Message()).To(Equal("Dataset not found"))
		})

		It("analyzes a dataset", func() {
			mux.HandleFunc("POST /datasets/csv/{id}/analyze", func(w http.ResponseWriter, r *http.Request) {
				writeEnvelope(w, api.DatasetAnalysis{
					Columns: map[string]api.ColumnAnalysis{"email": {DataType: "text", MissingValues: 1}},
				})
			})

			analysis := datasets.AnalyzeCSV(context.TODO(), "d1").MustValue()
			Expect(analysis.Columns).To(HaveKey("email"))
			Expect(analysis.Columns["email"].MissingValues).To(Equal(1))
		})
	})

	Context("upload", func() {
		It("sends the file as multipart", func() {
			var (
				contentType string
				fileName    string
				content     string
			)
			mux.HandleFunc("POST /datasets/csv/upload", func(w http.ResponseWriter, r *http.Request) {
				contentType = r.Header.Get("Content-Type")
				file, header, err := r.FormFile("file")
				Expect(err).To(BeNil())
				defer file.Close()
				data, err := io.ReadAll(file)
				Expect(err).To(BeNil())
				fileName = header.Filename
				content = string(data)
				writeEnvelope(w, api.CsvDataset{Id: "d9", FileName: header.Filename})
			})

			res := datasets.UploadCSV(context.TODO(), "orders.csv", strings.NewReader("id,total\n1,10\n"))
			Expect(res.IsOk()).To(BeTrue())
			Expect(res.MustValue().Id).To(Equal("d9"))
			Expect(contentType).To(HavePrefix("multipart/form-data; boundary="))
			Expect(contentType).NotTo(ContainSubstring("application/json"))
			Expect(fileName).To(Equal("orders.csv"))
			Expect(content).To(Equal("id,total\n1,10\n"))
		})

		It("prefixes server errors", func() {
			mux.HandleFunc("POST /datasets/csv/upload", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"detail":"Only CSV files are allowed"}`))
			})

			res := datasets.UploadCSV(context.TODO(), "orders.txt", strings.NewReader("x"))
			Expect(res.IsOk()).To(BeFalse())
			Expect(res.Message()).To(Equal("Upload failed: Only CSV files are allowed"))
			Expect(notifier.all()).To(BeEmpty())
		})

		It("prefixes a rejection carried by the envelope", func() {
			mux.HandleFunc("POST /datasets/csv/upload", func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"success":false,"error":"File must be a CSV"}`))
			})

			res := datasets.UploadCSV(context.TODO(), "orders.txt", strings.NewReader("x"))
			Expect(res.IsOk()).To(BeFalse())
			Expect(res.Message()).To(Equal("Upload failed: File must be a CSV"))
			Expect(notifier.all()).To(BeEmpty())
		})

		It("falls back to the status text", func() {
			mux.HandleFunc("POST /datasets/csv/upload", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusRequestEntityTooLarge)
			})

			res := datasets.UploadCSV(context.TODO(), "big.csv", strings.NewReader("x"))
			Expect(res.Message()).To(Equal("Upload failed: Request Entity Too Large"))
		})

		It("prefixes network errors and notifies", func() {
			srv.Close()

			res := datasets.UploadCSV(context.TODO(), "orders.csv", strings.NewReader("x"))
			Expect(res.IsOk()).To(BeFalse())
			Expect(res.Message()).To(HavePrefix("Upload failed: "))
			Expect(notifier.all()).To(HaveLen(1))
		})
	})

	Context("postgres connections", func() {
		BeforeEach(func() {
			mux.HandleFunc("GET /postgres/connections", func(w http.ResponseWriter, r *http.Request) {
				writeEnvelope(w, []api.PostgresConnection{
					{Id: "p1", Name: "warehouse", Host: "db", Port: 5432, Database: "dw", Username: "etl"},
					{Id: "p2", Name: "crm", Host: "crm-db", Port: 5433, Database: "crm", Username: "app"},
				})
			})
		})

		It("lists connections", func() {
			Expect(datasets.ListPostgresConnections(context.TODO()).MustValue()).To(HaveLen(2))
		})

		It("finds a connection by id", func() {
			conn := datasets.GetPostgresConnection(context.TODO(), "p2").MustValue()
			Expect(conn.Name).To(Equal("crm"))
			Expect(conn.Port).To(Equal(5433))
		})

		It("reports a missing connection", func() {
			res := datasets.GetPostgresConnection(context.TODO(), "p3")
			Expect(res.IsOk()).To(BeFalse())
			Expect(res.Message()).To(Equal(client.ConnectionNotFound))
		})
	})
})
