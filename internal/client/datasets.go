package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	api "github.com/data-validator/data-validator/api/v1alpha1"
	"github.com/data-validator/data-validator/pkg/requestid"
	"github.com/data-validator/data-validator/pkg/result"
)

const (
	uploadFormField    = "file"
	uploadFailedFormat = "Upload failed: %s"

	ConnectionNotFound = "Connection not found"
)

// DatasetClient reads CSV datasets and PostgreSQL connections.
type DatasetClient struct {
	t *Transport
}

func NewDatasetClient(t *Transport) *DatasetClient {
	return &DatasetClient{t: t}
}

func (c *DatasetClient) ListCSV(ctx context.Context) result.Result[[]api.CsvDataset] {
	return Do[[]api.CsvDataset](ctx, c.t, Request{Method: http.MethodGet, Path: "/datasets/csv"})
}

func (c *DatasetClient) GetCSV(ctx context.Context, id string) result.Result[api.CsvDataset] {
	return Do[api.CsvDataset](ctx, c.t, Request{
		Method: http.MethodGet,
		Path:   "/datasets/csv/" + url.PathEscape(id),
		Route:  "/datasets/csv/{id}",
	})
}

func (c *DatasetClient) AnalyzeCSV(ctx context.Context, id string) result.Result[api.DatasetAnalysis] {
	return Do[api.DatasetAnalysis](ctx, c.t, Request{
		Method: http.MethodPost,
		Path:   "/datasets/csv/" + url.PathEscape(id) + "/analyze",
		Route:  "/datasets/csv/{id}/analyze",
	})
}

// UploadCSV sends content as the multipart field "file". The Content-Type
// is the multipart one carrying the boundary, never application/json.
// Failures are prefixed with "Upload failed: ".
func (c *DatasetClient) UploadCSV(ctx context.Context, fileName string, content io.Reader) result.Result[api.CsvDataset] {
	ctx, _ = requestid.Ensure(ctx)
	req := Request{Method: http.MethodPost, Path: "/datasets/csv/upload"}

	body, contentType, err := multipartBody(fileName, content)
	if err != nil {
		return uploadFailed(err.Error())
	}
	req.Body = body
	req.Header = http.Header{"Content-Type": []string{contentType}}

	ex, err := c.t.exchange(ctx, req)
	if err != nil {
		return uploadFailed(c.t.networkFailure(ctx, req, err))
	}
	if !ex.ok() {
		return uploadFailed(errorMessage(ex))
	}
	res := decodeEnvelope[api.CsvDataset](ctx, c.t, req, ex.body)
	if !res.IsOk() {
		return uploadFailed(res.Message())
	}
	return res
}

func uploadFailed(msg string) result.Result[api.CsvDataset] {
	return result.Failf[api.CsvDataset](uploadFailedFormat, msg)
}

func multipartBody(fileName string, content io.Reader) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile(uploadFormField, fileName)
	if err != nil {
		return nil, "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, "", fmt.Errorf("copying file into multipart: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart writer: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

func (c *DatasetClient) ListPostgresConnections(ctx context.Context) result.Result[[]api.PostgresConnection] {
	return Do[[]api.PostgresConnection](ctx, c.t, Request{Method: http.MethodGet, Path: "/postgres/connections"})
}

// GetPostgresConnection filters the connection list; the API has no per-id
// endpoint for connections.
func (c *DatasetClient) GetPostgresConnection(ctx context.Context, id string) result.Result[api.PostgresConnection] {
	res := c.ListPostgresConnections(ctx)
	conns, ok := res.Value()
	if !ok {
		return result.Forward[api.PostgresConnection](res)
	}
	for _, conn := range conns {
		if conn.Id == id {
			return result.Ok(conn)
		}
	}
	return result.Fail[api.PostgresConnection](ConnectionNotFound)
}
