package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/enterprise/fraud-dashboard/configs"
	"github.com/enterprise/fraud-dashboard/internal/models"
)

// Upstream routes
const (
	casesPath   = "/fraud_cases"
	summaryPath = "/generate_summary"
	reportPath  = "/generate_report"
)

// ErrUnexpectedStatus is returned for non-2xx responses that carry no
// structured error body
var ErrUnexpectedStatus = errors.New("unexpected upstream status")

// maxErrorBody bounds how much of a failed response is kept for logging
const maxErrorBody = 512

// SummaryResponse is the raw body of a summary call. Error is set when the
// upstream could not produce a summary.
type SummaryResponse struct {
	ClientID  string           `json:"client_id"`
	RiskLevel models.RiskLevel `json:"risk_level"`
	Reason    string           `json:"reason"`
	Error     string           `json:"error,omitempty"`
}

// ReportRequest is the body of a report call. Dates are YYYY-MM-DD.
type ReportRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// Client talks to the fraud-scoring service
type Client struct {
	baseURL    string
	httpClient *http.Client
	config     configs.UpstreamConfig
}

// NewClient creates a new upstream client
func NewClient(config configs.UpstreamConfig) *Client {
	return NewClientWithHTTP(config, &http.Client{})
}

// NewClientWithHTTP creates an upstream client on top of httpClient
func NewClientWithHTTP(config configs.UpstreamConfig, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		httpClient: httpClient,
		config:     config,
	}
}

// ListCases fetches the full case list in the order the scoring service serves it
func (c *Client) ListCases(ctx context.Context) ([]models.Transaction, error) {
	ctx, cancel := withTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+casesPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build cases request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return nil, statusError(resp)
	}

	var cases []models.Transaction
	if err := json.NewDecoder(resp.Body).Decode(&cases); err != nil {
		return nil, fmt.Errorf("failed to decode cases: %w", err)
	}
	if cases == nil {
		cases = []models.Transaction{}
	}

	return cases, nil
}

// GenerateSummary asks the upstream for a narrative summary of clientID.
// A structured error body is returned as a response, not as an error.
func (c *Client) GenerateSummary(ctx context.Context, clientID string) (*SummaryResponse, error) {
	ctx, cancel := withTimeout(ctx, c.config.SummaryTimeout)
	defer cancel()

	req, err := newJSONRequest(ctx, c.baseURL+summaryPath, map[string]string{"client_id": clientID})
	if err != nil {
		return nil, err
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read summary response: %w", err)
	}

	var summary SummaryResponse
	decodeErr := json.Unmarshal(body, &summary)

	if !isSuccess(resp.StatusCode) {
		if decodeErr == nil && summary.Error != "" {
			return &summary, nil
		}
		return nil, fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, resp.StatusCode, truncate(body))
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode summary: %w", decodeErr)
	}

	return &summary, nil
}

// GenerateReport asks the upstream to render a report for the date range.
// It returns the document bytes and their content type.
func (c *Client) GenerateReport(ctx context.Context, request ReportRequest) ([]byte, string, error) {
	ctx, cancel := withTimeout(ctx, c.config.ReportTimeout)
	defer cancel()

	req, err := newJSONRequest(ctx, c.baseURL+reportPath, request)
	if err != nil {
		return nil, "", err
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return nil, "", statusError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read report: %w", err)
	}

	return data, resp.Header.Get("Content-Type"), nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s failed: %w", req.Method, req.URL.Path, err)
	}

	log.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("Upstream call")

	return resp, nil
}

func newJSONRequest(ctx context.Context, url string, body interface{}) (*http.Request, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return req, nil
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, resp.StatusCode, truncate(body))
}

func truncate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody]
	}
	return s
}
