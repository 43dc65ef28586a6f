package fakeapi

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"go.uber.org/zap"

	api "github.com/data-validator/data-validator/api/v1alpha1"
	"github.com/data-validator/data-validator/internal/store"
	"github.com/data-validator/data-validator/internal/store/model"
)

const (
	maxUploadSize = 32 << 20
	previewRows   = 3

	datasetNotFound = "Dataset not found"
	checkNotFound   = "Check not found"
)

func respond(w http.ResponseWriter, r *http.Request, data any) {
	env, err := api.SuccessEnvelope(data)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	render.JSON(w, r, env)
}

func respondError(w http.ResponseWriter, r *http.Request, msg string) {
	render.JSON(w, r, api.ErrorEnvelope(msg))
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	respond(w, r, api.HealthStatus{Status: "healthy"})
}

func (s *Server) listDatasets(w http.ResponseWriter, r *http.Request) {
	datasets, err := s.store.Dataset().List(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	respond(w, r, datasets)
}

func (s *Server) getDataset(w http.ResponseWriter, r *http.Request) {
	d, _, err := s.store.Dataset().Get(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, store.ErrRecordNotFound):
		respondError(w, r, datasetNotFound)
	case err != nil:
		writeStoreError(w, err)
	default:
		respond(w, r, d)
	}
}

func (s *Server) uploadDataset(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("invalid multipart body: %s", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	if !strings.HasSuffix(header.Filename, ".csv") {
		respondError(w, r, "File must be a CSV")
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		respondError(w, r, fmt.Sprintf("Error processing CSV file: %s", err))
		return
	}
	t, err := parseTable(content)
	if err != nil {
		respondError(w, r, fmt.Sprintf("Error processing CSV file: %s", err))
		return
	}

	id := fmt.Sprintf("csv_%s", uuid.New())
	d := api.CsvDataset{
		Id:          id,
		Name:        strings.TrimSuffix(header.Filename, ".csv"),
		FileName:    header.Filename,
		FilePath:    fmt.Sprintf("uploads/%s_%s", id, header.Filename),
		UploadedAt:  api.NewTimestamp(s.now()),
		Columns:     t.Header,
		RowCount:    len(t.Rows),
		PreviewData: preview(t),
	}
	if err := s.store.Dataset().Create(r.Context(), d, t); err != nil {
		writeStoreError(w, err)
		return
	}
	zap.S().Named("fake_api").Infow("dataset uploaded", "dataset_id", id, "rows", d.RowCount)

	respond(w, r, d)
}

func parseTable(content []byte) (model.Table, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return model.Table{}, err
	}
	if len(records) == 0 {
		return model.Table{}, errors.New("No columns to parse from file")
	}
	return model.Table{Header: records[0], Rows: records[1:]}, nil
}

func preview(t model.Table) []map[string]any {
	n := min(previewRows, len(t.Rows))
	out := make([]map[string]any, 0, n)
	for _, row := range t.Rows[:n] {
		record := make(map[string]any, len(t.Header))
		for i, col := range t.Header {
			if i < len(row) && !isMissing(row[i]) {
				record[col] = row[i]
			} else {
				record[col] = nil
			}
		}
		out = append(out, record)
	}
	return out
}

func (s *Server) analyzeDataset(w http.ResponseWriter, r *http.Request) {
	_, t, err := s.store.Dataset().Get(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, store.ErrRecordNotFound):
		respondError(w, r, datasetNotFound)
	case err != nil:
		writeStoreError(w, err)
	default:
		respond(w, r, analyze(t))
	}
}

func (s *Server) listConnections(w http.ResponseWriter, r *http.Request) {
	conns, err := s.store.Connection().List(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	respond(w, r, conns)
}

func (s *Server) listChecks(w http.ResponseWriter, r *http.Request) {
	checks, err := s.store.Check().List(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	respond(w, r, checks)
}

func (s *Server) createCheck(w http.ResponseWriter, r *http.Request) {
	var in api.NewValidationCheck
	if err := render.DecodeJSON(r.Body, &in); err != nil {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("invalid body: %s", err))
		return
	}
	if err := s.validator.ValidateNewCheck(in); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	exists, err := s.datasetExists(r.Context(), in.DatasetType, in.DatasetId)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if !exists {
		writeDetail(w, http.StatusNotFound, datasetNotFound)
		return
	}
	if in.Parameters == nil {
		in.Parameters = map[string]any{}
	}

	check := in.Check(uuid.NewString(), api.NewTimestamp(s.now()))
	if err := s.store.Check().Create(r.Context(), check); err != nil {
		writeStoreError(w, err)
		return
	}
	zap.S().Named("fake_api").Infow("check created", "check_id", check.Id, "check_type", check.CheckType)

	respond(w, r, check)
}

func (s *Server) datasetExists(ctx context.Context, kind api.DatasetKind, id string) (bool, error) {
	var err error
	if kind == api.DatasetKindPostgres {
		_, err = s.store.Connection().Get(ctx, id)
	} else {
		_, _, err = s.store.Dataset().Get(ctx, id)
	}
	if errors.Is(err, store.ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *Server) runCheck(w http.ResponseWriter, r *http.Request) {
	check, err := s.store.Check().Get(r.Context(), chi.URLParam(r, "checkId"))
	switch {
	case errors.Is(err, store.ErrRecordNotFound):
		writeDetail(w, http.StatusNotFound, checkNotFound)
		return
	case err != nil:
		writeStoreError(w, err)
		return
	}

	resultID := uuid.NewString()
	s.schedule(func() {
		ctx := context.Background()
		if err := s.store.Result().Create(ctx, s.execute(ctx, check, resultID)); err != nil {
			zap.S().Named("fake_api").Errorw("failed to record result", "check_id", check.Id, "error", err)
		}
	})

	ack := api.RunAck{CheckId: check.Id, Message: "Validation started"}
	if s.ackResultID {
		ack.ResultId = resultID
	}
	respond(w, r, ack)
}

// execute evaluates check and builds its result. Evaluation errors produce
// a failed result carrying the error in its metrics.
func (s *Server) execute(ctx context.Context, check api.ValidationCheck, resultID string) api.ValidationResult {
	res := api.ValidationResult{
		Id:        resultID,
		CheckId:   check.Id,
		CreatedAt: api.NewTimestamp(s.now()),
	}

	if check.DatasetType != api.DatasetKindCSV {
		res.Status = api.ResultStatusFailed
		res.Metrics.Extra = map[string]any{"error": "postgres checks are not evaluated in memory"}
		return res
	}

	_, t, err := s.store.Dataset().Get(ctx, check.DatasetId)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, store.ErrRecordNotFound) {
			msg = datasetNotFound
		}
		res.Status = api.ResultStatusFailed
		res.Metrics.Extra = map[string]any{"error": msg}
		return res
	}

	m, err := evaluate(check, t)
	if err != nil {
		zap.S().Named("fake_api").Warnw("check evaluation failed", "check_id", check.Id, "error", err)
		res.Status = api.ResultStatusFailed
		res.Metrics.Extra = map[string]any{"error": err.Error()}
		return res
	}
	res.Metrics = m
	res.Status = api.ResultStatusPassed
	if m.FailedRecords > 0 {
		res.Status = api.ResultStatusFailed
	}
	return res
}

func (s *Server) listResults(w http.ResponseWriter, r *http.Request) {
	results, err := s.store.Result().List(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	respond(w, r, results)
}
