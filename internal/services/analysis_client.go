package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rahul4469/resume-optimizer/internal/metrics"
	"github.com/rahul4469/resume-optimizer/internal/models"
)

const (
	// DefaultBaseURL is where the analysis backend listens in local development.
	DefaultBaseURL = "http://127.0.0.1:5000"
	// DefaultMaxDownloadBytes caps the size of a downloaded file.
	DefaultMaxDownloadBytes = 20 << 20

	maxErrorBodyBytes  = 64 << 10
	maxResultBodyBytes = 4 << 20
)

// AnalysisClient talks to the external analysis service
type AnalysisClient struct {
	BaseURL          string
	MaxDownloadBytes int64
	Client           *http.Client

	validator *ResponseValidator
}

// NewAnalysisClient creates a client for the service at baseURL.
func NewAnalysisClient(baseURL string, timeout time.Duration) (*AnalysisClient, error) {
	validator, err := NewResponseValidator()
	if err != nil {
		return nil, err
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &AnalysisClient{
		BaseURL:          strings.TrimRight(baseURL, "/"),
		MaxDownloadBytes: DefaultMaxDownloadBytes,
		Client: &http.Client{
			Timeout: timeout,
		},
		validator: validator,
	}, nil
}

// errorBody is the optional failure shape of the service.
type errorBody struct {
	Error string `json:"error"`
}

// Analyze sends req to POST /analyze and returns the jobFitAnalysis object.
func (ac *AnalysisClient) Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error) {
	const endpoint = "/analyze"

	resp, err := ac.post(ctx, endpoint, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, ac.statusError(endpoint, resp)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResultBodyBytes))
	if err != nil {
		return nil, &ServiceError{Kind: KindTransport, Endpoint: endpoint, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if err := ac.validator.Validate(body); err != nil {
		return nil, &ServiceError{Kind: KindMalformedResponse, Endpoint: endpoint, StatusCode: resp.StatusCode, Err: err}
	}

	var out models.AnalysisResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &ServiceError{Kind: KindMalformedResponse, Endpoint: endpoint, StatusCode: resp.StatusCode, Err: err}
	}
	return out.JobFitAnalysis, nil
}

// Download sends text to POST /download/{format} and returns the raw file.
func (ac *AnalysisClient) Download(ctx context.Context, format models.Format, text string) (*models.DownloadedFile, error) {
	endpoint := "/download/" + string(format)

	resp, err := ac.post(ctx, endpoint, models.DownloadRequest{Text: text})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, ac.statusError(endpoint, resp)
	}

	limit := ac.MaxDownloadBytes
	if limit <= 0 {
		limit = DefaultMaxDownloadBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, &ServiceError{Kind: KindTransport, Endpoint: endpoint, Err: fmt.Errorf("failed to read file: %w", err)}
	}
	if int64(len(data)) > limit {
		return nil, &ServiceError{Kind: KindMalformedResponse, Endpoint: endpoint, StatusCode: resp.StatusCode,
			Err: fmt.Errorf("file exceeds %d bytes", limit)}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = format.ContentType()
	}
	return &models.DownloadedFile{
		Filename:    format.Filename(),
		ContentType: contentType,
		Data:        data,
	}, nil
}

// post marshals payload as JSON and sends it. Only transport failures are
// returned as errors; status handling is left to the caller.
func (ac *AnalysisClient) post(ctx context.Context, endpoint string, payload any) (*http.Response, error) {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ac.BaseURL+endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, &ServiceError{Kind: KindTransport, Endpoint: endpoint, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	timer := time.Now()
	resp, err := ac.Client.Do(req)
	metrics.UpstreamDuration.WithLabelValues(metricEndpoint(endpoint)).Observe(time.Since(timer).Seconds())
	if err != nil {
		return nil, &ServiceError{Kind: KindTransport, Endpoint: endpoint, Err: err}
	}
	return resp, nil
}

// statusError turns a non-2xx response into a ServiceError, using the
// {"error": "..."} body when there is one.
func (ac *AnalysisClient) statusError(endpoint string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && strings.TrimSpace(eb.Error) != "" {
		return &ServiceError{
			Kind:       KindServerMessage,
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Message:    eb.Error,
		}
	}
	return &ServiceError{
		Kind:       KindServerStatus,
		Endpoint:   endpoint,
		StatusCode: resp.StatusCode,
		Message:    http.StatusText(resp.StatusCode),
	}
}

func metricEndpoint(endpoint string) string {
	if strings.HasPrefix(endpoint, "/download/") {
		return "download"
	}
	return strings.TrimPrefix(endpoint, "/")
}
