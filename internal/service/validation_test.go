package service_test

import (
	"context"
	"sync"
	"time"

	api "github.com/data-validator/data-validator/api/v1alpha1"
	"github.com/data-validator/data-validator/internal/service"
	"github.com/data-validator/data-validator/pkg/result"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// fakeValidationAPI serves scripted responses. listResults is called with
// the 1-based fetch number.
type fakeValidationAPI struct {
	mu          sync.Mutex
	runResult   result.Result[api.RunAck]
	listResults func(n int) result.Result[[]api.ValidationResult]
	created     []api.NewValidationCheck
	runs        int
	fetches     int
}

func (f *fakeValidationAPI) CreateCheck(_ context.Context, check api.NewValidationCheck) result.Result[api.ValidationCheck] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, check)
	return result.Ok(check.Check("c-new", api.NewTimestamp(time.Now())))
}

func (f *fakeValidationAPI) StartRun(_ context.Context, _ string) result.Result[api.RunAck] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs++
	return f.runResult
}

func (f *fakeValidationAPI) ListResults(_ context.Context) result.Result[[]api.ValidationResult] {
	f.mu.Lock()
	f.fetches++
	n := f.fetches
	f.mu.Unlock()
	return f.listResults(n)
}

func (f *fakeValidationAPI) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

func at(s string) api.Timestamp {
	ts, err := api.ParseTimestamp(s)
	Expect(err).To(BeNil())
	return ts
}

func staticResults(results ...api.ValidationResult) func(int) result.Result[[]api.ValidationResult] {
	if results == nil {
		results = []api.ValidationResult{}
	}
	return func(int) result.Result[[]api.ValidationResult] {
		return result.Ok(results)
	}
}

// afterTrigger lists nothing on the first fetch, taken before the run is
// triggered, and results from then on.
func afterTrigger(results ...api.ValidationResult) func(int) result.Result[[]api.ValidationResult] {
	return func(n int) result.Result[[]api.ValidationResult] {
		if n == 1 {
			return result.Ok([]api.ValidationResult{})
		}
		return result.Ok(results)
	}
}

var fastPoll = service.PollOptions{
	Initial:     5 * time.Millisecond,
	MaxInterval: 20 * time.Millisecond,
	Timeout:     200 * time.Millisecond,
}

var _ = Describe("validation service", func() {
	var (
		fake *fakeValidationAPI
		svc  *service.ValidationService
	)

	BeforeEach(func() {
		fake = &fakeValidationAPI{
			runResult: result.Ok(api.RunAck{Message: "Validation started"}),
		}
		svc = service.NewValidationService(fake, fastPoll)
	})

	Context("run", func() {
		It("returns the latest result of the check", func() {
			fake.listResults = afterTrigger(
				api.ValidationResult{Id: "r1", CheckId: "X", Status: api.ResultStatusFailed, CreatedAt: at("2024-01-01T10:00:00Z")},
				api.ValidationResult{Id: "r2", CheckId: "X", Status: api.ResultStatusPassed, CreatedAt: at("2024-01-01T12:00:00Z")},
				api.ValidationResult{Id: "r3", CheckId: "Y", Status: api.ResultStatusFailed, CreatedAt: at("2024-01-02T00:00:00Z")},
			)

			res := svc.Run(context.TODO(), "X")
			r, ok := res.Value()
			Expect(ok).To(BeTrue())
			Expect(r.Id).To(Equal("r2"))
			Expect(r.Status).To(Equal(api.ResultStatusPassed))
		})

		It("returns a failed trigger unchanged without polling", func() {
			fake.runResult = result.Fail[api.RunAck]("Check not found")
			fake.listResults = staticResults()

			start := time.Now()
			res := svc.Run(context.TODO(), "X")
			Expect(res.IsOk()).To(BeFalse())
			Expect(res.Message()).To(Equal("Check not found"))
			Expect(time.Since(start)).To(BeNumerically("<", fastPoll.Initial))
			Expect(fake.fetchCount()).To(Equal(1))
		})

		It("ignores results recorded before the run", func() {
			old := api.ValidationResult{Id: "old", CheckId: "X", Status: api.ResultStatusFailed, CreatedAt: api.NewTimestamp(time.Now().Add(-time.Hour))}
			fake.listResults = func(n int) result.Result[[]api.ValidationResult] {
				if n < 4 {
					return result.Ok([]api.ValidationResult{old})
				}
				return result.Ok([]api.ValidationResult{old, {Id: "new", CheckId: "X", Status: api.ResultStatusPassed, CreatedAt: api.NewTimestamp(time.Now())}})
			}

			r := svc.Run(context.TODO(), "X").MustValue()
			Expect(r.Id).To(Equal("new"))
			Expect(r.Status).To(Equal(api.ResultStatusPassed))
			Expect(fake.fetchCount()).To(Equal(4))
		})

		It("does not return the previous result when no new one appears", func() {
			fake.listResults = staticResults(
				api.ValidationResult{Id: "old", CheckId: "X", CreatedAt: api.NewTimestamp(time.Now().Add(-time.Hour))},
			)

			res := svc.Run(context.TODO(), "X")
			Expect(res.Message()).To(Equal("Validation result not found"))
		})

		It("falls back to the trigger time when the first listing fails", func() {
			old := api.ValidationResult{Id: "old", CheckId: "X", CreatedAt: api.NewTimestamp(time.Now().Add(-time.Hour))}
			fake.listResults = func(n int) result.Result[[]api.ValidationResult] {
				switch n {
				case 1:
					return result.Fail[[]api.ValidationResult]("Database unavailable")
				case 2:
					return result.Ok([]api.ValidationResult{old})
				}
				return result.Ok([]api.ValidationResult{old, {Id: "new", CheckId: "X", CreatedAt: api.NewTimestamp(time.Now())}})
			}

			Expect(svc.Run(context.TODO(), "X").MustValue().Id).To(Equal("new"))
			Expect(fake.fetchCount()).To(Equal(3))
		})

		It("reports a missing result after the timeout", func() {
			fake.listResults = staticResults(
				api.ValidationResult{Id: "r3", CheckId: "Y", CreatedAt: at("2024-01-02T00:00:00Z")},
			)

			start := time.Now()
			res := svc.Run(context.TODO(), "X")
			Expect(res.IsOk()).To(BeFalse())
			Expect(res.Message()).To(Equal("Validation result not found"))
			Expect(time.Since(start)).To(BeNumerically(">=", fastPoll.Timeout))
			Expect(fake.fetchCount()).To(BeNumerically(">", 1))
		})

		It("returns the fetch failure message without retrying", func() {
			fake.listResults = func(int) result.Result[[]api.ValidationResult] {
				return result.Fail[[]api.ValidationResult]("Database unavailable")
			}

			res := svc.Run(context.TODO(), "X")
			Expect(res.Message()).To(Equal("Database unavailable"))
			// the listing before the trigger, then a single poll
			Expect(fake.fetchCount()).To(Equal(2))
		})

		It("falls back to a generic message when the fetch has no data", func() {
			fake.listResults = func(int) result.Result[[]api.ValidationResult] {
				return result.Ok[[]api.ValidationResult](nil)
			}

			res := svc.Run(context.TODO(), "X")
			Expect(res.Message()).To(Equal("Failed to fetch results"))
		})

		It("treats an empty fetch message as missing", func() {
			fake.listResults = func(int) result.Result[[]api.ValidationResult] {
				return result.Fail[[]api.ValidationResult]("")
			}

			res := svc.Run(context.TODO(), "X")
			Expect(res.Message()).To(Equal("Failed to fetch results"))
		})

		It("finds a result that appears after a few polls", func() {
			fake.listResults = func(n int) result.Result[[]api.ValidationResult] {
				if n < 4 {
					return result.Ok([]api.ValidationResult{})
				}
				return result.Ok([]api.ValidationResult{
					{Id: "late", CheckId: "X", Status: api.ResultStatusPassed, CreatedAt: at("2024-01-01T00:00:00Z")},
				})
			}

			res := svc.Run(context.TODO(), "X")
			Expect(res.MustValue().Id).To(Equal("late"))
			Expect(fake.fetchCount()).To(Equal(4))
		})

		It("waits for the acknowledged result id", func() {
			fake.runResult = result.Ok(api.RunAck{ResultId: "new"})
			old := api.ValidationResult{Id: "old", CheckId: "X", CreatedAt: at("2024-01-01T00:00:00Z")}
			fake.listResults = func(n int) result.Result[[]api.ValidationResult] {
				if n < 3 {
					return result.Ok([]api.ValidationResult{old})
				}
				return result.Ok([]api.ValidationResult{old, {Id: "new", CheckId: "X", CreatedAt: at("2024-01-01T00:00:01Z")}})
			}

			Expect(svc.Run(context.TODO(), "X").MustValue().Id).To(Equal("new"))
			Expect(fake.fetchCount()).To(Equal(3))
		})

		It("stops waiting when the context is cancelled", func() {
			fake.listResults = staticResults()
			ctx, cancel := context.WithCancel(context.TODO())
			cancel()

			res := svc.Run(ctx, "X")
			Expect(res.IsOk()).To(BeFalse())
			Expect(res.Message()).To(Equal(context.Canceled.Error()))
		})
	})

	Context("create and run", func() {
		newCheck := api.NewValidationCheck{
			Name:        "emails present",
			DatasetId:   "d1",
			DatasetName: "customers",
			DatasetType: api.DatasetKindCSV,
			Column:      "email",
			CheckType:   api.CheckTypeMissingValues,
			Parameters:  map[string]any{},
		}

		It("creates the check and runs it", func() {
			fake.listResults = afterTrigger(
				api.ValidationResult{Id: "r1", CheckId: "c-new", Status: api.ResultStatusPassed, CreatedAt: at("2024-01-01T00:00:00Z")},
			)

			res := svc.CreateAndRun(context.TODO(), newCheck)
			run, ok := res.Value()
			Expect(ok).To(BeTrue())
			Expect(run.Check.Id).To(Equal("c-new"))
			Expect(run.Result.MustValue().Id).To(Equal("r1"))
			Expect(fake.created).To(HaveLen(1))
		})

		It("rejects an invalid check before calling the API", func() {
			invalid := newCheck
			invalid.CheckType = api.CheckTypeCustomSQL

			res := svc.CreateAndRun(context.TODO(), invalid)
			Expect(res.IsOk()).To(BeFalse())
			Expect(res.Message()).To(ContainSubstring("custom_sql"))
			Expect(fake.created).To(BeEmpty())
			Expect(fake.runs).To(Equal(0))
		})
	})

	Context("latest", func() {
		It("does not trigger a run", func() {
			fake.listResults = staticResults(
				api.ValidationResult{Id: "r1", CheckId: "X", CreatedAt: at("2024-01-01T00:00:00Z")},
			)

			Expect(svc.Latest(context.TODO(), "X").MustValue().Id).To(Equal("r1"))
			Expect(fake.runs).To(Equal(0))
		})

		It("reports a check without results", func() {
			fake.listResults = staticResults()

			Expect(svc.Latest(context.TODO(), "X").Message()).To(Equal("Validation result not found"))
		})
	})
})

var _ = Describe("latest result selection", func() {
	It("picks the last of equal timestamps", func() {
		ts := at("2024-03-01T08:00:00Z")
		results := []api.ValidationResult{
			{Id: "a", CheckId: "X", CreatedAt: ts},
			{Id: "b", CheckId: "X", CreatedAt: ts},
			{Id: "c", CheckId: "X", CreatedAt: at("2024-02-01T08:00:00Z")},
		}

		r, ok := service.LatestFor(results, "X", "")
		Expect(ok).To(BeTrue())
		Expect(r.Id).To(Equal("b"))
	})

	It("compares timestamps with and without offsets", func() {
		results := []api.ValidationResult{
			{Id: "utc", CheckId: "X", CreatedAt: at("2024-03-01T09:00:00Z")},
			{Id: "naive", CheckId: "X", CreatedAt: at("2024-03-01T08:30:00")},
			{Id: "offset", CheckId: "X", CreatedAt: at("2024-03-01T10:30:00+02:00")},
		}

		r, _ := service.LatestFor(results, "X", "")
		Expect(r.Id).To(Equal("utc"))
	})

	It("finds nothing for an unknown check", func() {
		_, ok := service.LatestFor([]api.ValidationResult{{Id: "a", CheckId: "Y"}}, "X", "")
		Expect(ok).To(BeFalse())
	})
})
