// Package client provides a programmatic client for the alcyone API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"

	routes "github.com/alcyonehq/alcyone/internal/api/v1/routes"
	"github.com/alcyonehq/alcyone/internal/job"
	"github.com/alcyonehq/alcyone/internal/services"
)

// DefaultTimeout is the default timeout for API requests
const DefaultTimeout = 30 * time.Second

// Client defines the interface for interacting with the alcyone API
type Client interface {
	// SubmitJob submits a job manifest and returns the registered job
	SubmitJob(ctx context.Context, m *job.Manifest) (*services.JobView, error)
	// GetJob retrieves one job's lifecycle snapshot
	GetJob(ctx context.Context, id string) (*services.JobView, error)
	// ListJobs retrieves job snapshots, optionally filtered by state
	ListJobs(ctx context.Context, state string) ([]services.JobView, error)
	// GetJobOutput downloads a completed job's output artifact
	GetJobOutput(ctx context.Context, id string) ([]byte, error)

	// Health check
	HealthCheck(ctx context.Context) (map[string]string, error)
}

// Options contains configuration options for the API client
type Options struct {
	// BaseURL is the base URL of the API
	BaseURL string

	// Timeout is the request timeout
	Timeout time.Duration
}

// DefaultOptions returns the default client options
func DefaultOptions() *Options {
	return &Options{
		BaseURL: routes.DefaultBaseURL,
		Timeout: DefaultTimeout,
	}
}

// APIClient implements the Client interface
type APIClient struct {
	baseURL string
	timeout time.Duration
}

// NewClient creates a new API client with the given options
func NewClient(opts *Options) (Client, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}

	return &APIClient{
		baseURL: opts.BaseURL,
		timeout: opts.Timeout,
	}, nil
}

// apiResponse is the server's response envelope.
type apiResponse struct {
	Slug  string          `json:"slug"`
	Error string          `json:"error"`
	Data  json.RawMessage `json:"data"`
}

// createAgent creates a new Fiber Agent for the given method and endpoint
func (c *APIClient) createAgent(ctx context.Context, method, endpoint string, body interface{}) (*fiber.Agent, error) {
	fullURL := c.baseURL + endpoint

	var agent *fiber.Agent
	switch method {
	case http.MethodGet:
		agent = fiber.Get(fullURL)
	case http.MethodPost:
		agent = fiber.Post(fullURL)
	default:
		return nil, fmt.Errorf("unsupported HTTP method: %s", method)
	}

	// Set timeout from context or client default
	if deadline, ok := ctx.Deadline(); ok {
		agent.Timeout(time.Until(deadline))
	} else {
		agent.Timeout(c.timeout)
	}

	agent.Set("Accept", "application/json")
	if body != nil {
		agent.Set("Content-Type", "application/json")
		agent.JSON(body)
	}

	return agent, nil
}

// send executes the request and returns the raw body for 2xx responses.
// Error responses are surfaced as fiber.Error with the server's message.
func (c *APIClient) send(agent *fiber.Agent) ([]byte, error) {
	statusCode, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("error sending request: %w", errs[0])
	}

	if statusCode < 200 || statusCode >= 300 {
		var resp apiResponse
		if err := json.Unmarshal(body, &resp); err == nil && resp.Error != "" {
			return nil, &fiber.Error{
				Code:    statusCode,
				Message: resp.Error,
			}
		}
		return nil, &fiber.Error{
			Code:    statusCode,
			Message: "unknown error",
		}
	}

	return body, nil
}

// executeRequest sends the request and decodes the envelope's data field
// into v.
func (c *APIClient) executeRequest(ctx context.Context, method, endpoint string, body, v interface{}) error {
	agent, err := c.createAgent(ctx, method, endpoint, body)
	if err != nil {
		return err
	}

	raw, err := c.send(agent)
	if err != nil {
		return err
	}

	var resp apiResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return fmt.Errorf("error decoding response: %w", err)
	}
	if v != nil && len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, v); err != nil {
			return fmt.Errorf("error decoding response data: %w", err)
		}
	}
	return nil
}

// SubmitJob submits a job manifest for asynchronous execution
func (c *APIClient) SubmitJob(ctx context.Context, m *job.Manifest) (*services.JobView, error) {
	var view services.JobView
	if err := c.executeRequest(ctx, http.MethodPost, routes.JobsPath, m, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// GetJob retrieves a job snapshot by ID
func (c *APIClient) GetJob(ctx context.Context, id string) (*services.JobView, error) {
	var view services.JobView
	if err := c.executeRequest(ctx, http.MethodGet, routes.JobURL(id), nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// ListJobs retrieves job snapshots, optionally filtered by state
func (c *APIClient) ListJobs(ctx context.Context, state string) ([]services.JobView, error) {
	endpoint := routes.JobsPath
	if state != "" {
		endpoint += "?state=" + url.QueryEscape(state)
	}
	var views []services.JobView
	if err := c.executeRequest(ctx, http.MethodGet, endpoint, nil, &views); err != nil {
		return nil, err
	}
	return views, nil
}

// GetJobOutput downloads the output artifact of a completed job
func (c *APIClient) GetJobOutput(ctx context.Context, id string) ([]byte, error) {
	agent, err := c.createAgent(ctx, http.MethodGet, routes.JobOutputURL(id), nil)
	if err != nil {
		return nil, err
	}
	return c.send(agent)
}

// HealthCheck checks the health of the API server
func (c *APIClient) HealthCheck(ctx context.Context) (map[string]string, error) {
	agent, err := c.createAgent(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return nil, err
	}
	raw, err := c.send(agent)
	if err != nil {
		return nil, err
	}
	var health map[string]string
	if err := json.Unmarshal(raw, &health); err != nil {
		return nil, fmt.Errorf("error decoding response: %w", err)
	}
	return health, nil
}
