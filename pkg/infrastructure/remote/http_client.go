package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vsinha/shopfloor/pkg/domain/entities"
	"github.com/vsinha/shopfloor/pkg/domain/repositories"
	"github.com/vsinha/shopfloor/pkg/infrastructure/logging"
)

// HTTPClient implements JobUpdateService against the shopfloor REST API
type HTTPClient struct {
	baseURL *url.URL
	client  *http.Client
	logger  *zap.Logger
}

// ClientOption configures an HTTPClient
type ClientOption func(*HTTPClient)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) { c.client = client }
}

// WithClientLogger sets the client logger
func WithClientLogger(logger *zap.Logger) ClientOption {
	return func(c *HTTPClient) { c.logger = logging.OrNop(logger) }
}

// NewHTTPClient creates a client for the API rooted at baseURL
func NewHTTPClient(baseURL string, timeout time.Duration, opts ...ClientOption) (*HTTPClient, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base URL %q must use http or https", baseURL)
	}
	c := &HTTPClient{
		baseURL: u,
		client:  &http.Client{Timeout: timeout},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

var (
	_ repositories.JobUpdateService = (*HTTPClient)(nil)
	_ repositories.ShopFloorService = (*HTTPClient)(nil)
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
	Code  string          `json:"code"`
}

// ListJobs fetches the jobs matching filter
func (c *HTTPClient) ListJobs(ctx context.Context, filter repositories.JobFilter) ([]entities.JobSnapshot, error) {
	query := url.Values{}
	if filter.Status != "" {
		query.Set("status", string(filter.Status))
	}
	if filter.WorkCenterID != "" {
		query.Set("workCenterId", filter.WorkCenterID)
	}
	if filter.LocationID != "" {
		query.Set("locationId", filter.LocationID)
	}
	var jobs []entities.JobSnapshot
	if err := c.do(ctx, "list jobs", http.MethodGet, "/api/v1/jobs", query, nil, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// UpdateStatus asks the backend to move a job
func (c *HTTPClient) UpdateStatus(ctx context.Context, jobID string, update repositories.StatusUpdate) (*entities.JobSnapshot, error) {
	var job entities.JobSnapshot
	if err := c.do(ctx, "update status", http.MethodPut, jobPath(jobID, "status"), nil, update, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// AttachPlan attaches or replaces a routing plan
func (c *HTTPClient) AttachPlan(ctx context.Context, jobID string, plan entities.RoutingPlan) (*repositories.PlanAttachment, error) {
	var attachment repositories.PlanAttachment
	if err := c.do(ctx, "attach plan", http.MethodPut, jobPath(jobID, "plan"), nil, plan, &attachment); err != nil {
		return nil, err
	}
	return &attachment, nil
}

// CreateJob creates a job in ORDERED
func (c *HTTPClient) CreateJob(ctx context.Context, req repositories.CreateJobRequest) (*entities.JobSnapshot, error) {
	var job entities.JobSnapshot
	if err := c.do(ctx, "create job", http.MethodPost, "/api/v1/jobs", nil, req, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// UpdateJob applies a partial update
func (c *HTTPClient) UpdateJob(ctx context.Context, jobID string, patch repositories.JobPatch) (*entities.JobSnapshot, error) {
	var job entities.JobSnapshot
	if err := c.do(ctx, "update job", http.MethodPatch, jobPath(jobID, ""), nil, patch, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// GetJob fetches one job
func (c *HTTPClient) GetJob(ctx context.Context, jobID string) (*entities.JobSnapshot, error) {
	var job entities.JobSnapshot
	if err := c.do(ctx, "get job", http.MethodGet, jobPath(jobID, ""), nil, nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// Track posts a shop-floor action
func (c *HTTPClient) Track(ctx context.Context, jobID string, req repositories.TrackRequest) (*entities.JobSnapshot, error) {
	var job entities.JobSnapshot
	if err := c.do(ctx, "track "+req.Action, http.MethodPost, jobPath(jobID, "actions"), nil, req, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func jobPath(jobID, action string) string {
	path := "/api/v1/jobs/" + url.PathEscape(jobID)
	if action != "" {
		path += "/" + action
	}
	return path
}

func (c *HTTPClient) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	u.RawQuery = query.Encode()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: failed to encode request: %w", op, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return &repositories.RemoteError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("job service unreachable", zap.String("op", op), zap.Error(err))
		return &repositories.RemoteError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	var env envelope
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, 8<<20)).Decode(&env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := env.Error
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		c.logger.Warn("job service refused request",
			zap.String("op", op), zap.Int("status", resp.StatusCode), zap.String("error", message))
		return &repositories.RemoteError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    message,
			Err:        sentinelFor(resp.StatusCode, env.Code),
		}
	}
	if decodeErr != nil {
		return &repositories.RemoteError{Op: op, StatusCode: resp.StatusCode, Message: "malformed response", Err: decodeErr}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &repositories.RemoteError{Op: op, StatusCode: resp.StatusCode, Message: "malformed response", Err: err}
		}
	}
	return nil
}

// sentinelFor maps an API error back to the domain error the server started from.
// The error code names the exact sentinel; the status code alone gives its class.
func sentinelFor(status int, code string) error {
	class := statusSentinel(status)
	exact := repositories.ErrorForCode(code)
	switch {
	case exact == nil:
		return class
	case class == nil || status == http.StatusConflict || errors.Is(exact, class):
		return exact
	default:
		return errors.Join(exact, class)
	}
}

func statusSentinel(status int) error {
	switch status {
	case http.StatusNotFound:
		return entities.ErrJobNotFound
	case http.StatusConflict:
		return entities.ErrIllegalTransition
	case http.StatusUnprocessableEntity:
		return entities.ErrInvalidPlan
	case http.StatusBadRequest:
		return repositories.ErrInvalidRequest
	default:
		return nil
	}
}
