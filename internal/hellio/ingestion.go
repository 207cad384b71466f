package hellio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

const ingestionPath = "/api/ingestion/upload"

// ErrIngestionRejected means the pipeline processed the upload but could not
// extract a usable entity. Terminal for this attempt; the message stays
// unprocessed and will be retried on a later cycle.
var ErrIngestionRejected = errors.New("ingestion pipeline returned no entity reference")

type cvUploadResponse struct {
	CandidateID      string `mapstructure:"candidateId"`
	CandidateName    string `mapstructure:"candidateName"`
	CandidateSummary string `mapstructure:"candidateSummary"`
	Status           string `mapstructure:"status"`
}

type jobUploadResponse struct {
	PositionID      string `mapstructure:"positionId"`
	Title           string `mapstructure:"title"`
	PositionSummary string `mapstructure:"positionSummary"`
	Status          string `mapstructure:"status"`
}

// IngestCV submits a CV document to the backend pipeline and returns the
// created candidate reference.
func (c *Client) IngestCV(ctx context.Context, fileBytes []byte, filename string) (*IngestionResult, error) {
	raw, err := c.upload(ctx, "cv", fileBytes, filename)
	if err != nil {
		return nil, fmt.Errorf("ingest cv %q: %w", filename, err)
	}

	var resp cvUploadResponse
	if err := mapstructure.Decode(raw, &resp); err != nil {
		return nil, fmt.Errorf("ingest cv %q: decoding response: %w", filename, err)
	}

	if resp.CandidateID == "" {
		return nil, fmt.Errorf("ingest cv %q (status %q): %w", filename, resp.Status, ErrIngestionRejected)
	}

	return &IngestionResult{
		EntityID:   resp.CandidateID,
		EntityName: resp.CandidateName,
		Summary:    resp.CandidateSummary,
		Status:     resp.Status,
	}, nil
}

// IngestJob submits a job-posting text to the backend pipeline and returns
// the created position reference.
func (c *Client) IngestJob(ctx context.Context, textBytes []byte, filename string) (*IngestionResult, error) {
	raw, err := c.upload(ctx, "job", textBytes, filename)
	if err != nil {
		return nil, fmt.Errorf("ingest job %q: %w", filename, err)
	}

	var resp jobUploadResponse
	if err := mapstructure.Decode(raw, &resp); err != nil {
		return nil, fmt.Errorf("ingest job %q: decoding response: %w", filename, err)
	}

	if resp.PositionID == "" {
		return nil, fmt.Errorf("ingest job %q (status %q): %w", filename, resp.Status, ErrIngestionRejected)
	}

	return &IngestionResult{
		EntityID:   resp.PositionID,
		EntityName: resp.Title,
		Summary:    resp.PositionSummary,
		Status:     resp.Status,
	}, nil
}

// upload follows the same single-relogin-on-401 contract as doJSON; the
// multipart body is built once and replayed on the retry.
func (c *Client) upload(ctx context.Context, docType string, fileBytes []byte, filename string) (map[string]any, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	field, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := field.Write(fileBytes); err != nil {
		return nil, err
	}
	w.Close()
	body := b.Bytes()

	c.logger.Debug("uploading document",
		zap.String("type", docType),
		zap.String("filename", filename),
		zap.Int("size_bytes", len(fileBytes)),
	)

	relogin := false
	for {
		var token string
		var err error
		if relogin {
			token, err = c.forceLogin(ctx)
		} else {
			token, err = c.authToken(ctx)
		}
		if err != nil {
			return nil, fmt.Errorf("authenticating with backend: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIURL+ingestionPath, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", w.FormDataContentType())

		q := url.Values{}
		q.Set("type", docType)
		req.URL.RawQuery = q.Encode()

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return nil, err
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}

		if resp.StatusCode == http.StatusUnauthorized && !relogin {
			relogin = true
			continue
		}

		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
		}

		var raw map[string]any
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decoding upload response: %w", err)
		}

		return raw, nil
	}
}
