package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/nogal/internal/config"
	"github.com/mamadbah2/nogal/internal/repository"
)

// APIError is a non-2xx answer of the farm API.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("farm api %s %s: status %d", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("farm api %s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message)
}

// Unwrap maps well-known statuses onto the repository sentinels.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return repository.ErrNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return repository.ErrInvalidInput
	}
	return nil
}

// errorBody is the error payload of the farm API. Both keys are seen in the wild.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Client is a resty-backed client of the farm REST API.
type Client struct {
	http *resty.Client
}

// NewClient builds a farm API client from configuration.
func NewClient(cfg config.RemoteAPIConfig) *Client {
	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.Token != "" {
		restyClient.SetAuthToken(cfg.Token)
	}
	if cfg.Timeout > 0 {
		restyClient.SetTimeout(cfg.Timeout)
	}

	return &Client{http: restyClient}
}

// do sends one request. body and result may be nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, result any) error {
	apiErr := new(errorBody)
	req := c.http.R().
		SetContext(ctx).
		SetError(apiErr)
	if query != nil {
		req.SetQueryParamsFromValues(query)
	}
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("farm api %s %s: %w", method, path, err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		message := apiErr.Error
		if message == "" {
			message = apiErr.Message
		}
		return &APIError{Method: method, Path: path, Status: resp.StatusCode(), Message: message}
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, result any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, result)
}

func (c *Client) post(ctx context.Context, path string, body, result any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, result)
}

func (c *Client) put(ctx context.Context, path string, body, result any) error {
	return c.do(ctx, http.MethodPut, path, nil, body, result)
}

func (c *Client) delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// pathf formats a path, escaping every argument as one segment.
func pathf(format string, ids ...string) string {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = url.PathEscape(id)
	}
	return fmt.Sprintf(format, args...)
}

// Open returns a Store backed by the farm API.
func Open(cfg config.RemoteAPIConfig) (*repository.Store, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("remote store: base url is required")
	}
	client := NewClient(cfg)

	return repository.NewStore(repository.Store{
		Projects:    &ProjectRepository{c: client},
		Montes:      &MonteRepository{c: client},
		Campaigns:   &CampaignRepository{c: client},
		Costs:       &CostRepository{c: client},
		Investments: &InvestmentRepository{c: client},
		Productions: &ProductionRepository{c: client},
		YieldModels: &YieldModelRepository{c: client},
	}, nil), nil
}
