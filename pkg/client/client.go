// Package client provides a typed HTTP client for the ReqDB REST API.
//
// Every ReqDB response is wrapped in an envelope. Successful responses carry
// {"status": <code>, "data": <payload>}; failures carry
// {"error": <code>, "message": <detail>}. The client unwraps the payload into
// model types and converts failures into *APIError.
//
//	c := client.NewClient("https://reqdb.example.com/api", client.WithToken(tok))
//	cat, err := c.GetCatalogue(ctx, 3)
//
// Client instances are safe for concurrent use by multiple goroutines.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/reqdb/pkg/debug"
	"github.com/vanderheijden86/reqdb/pkg/model"
)

// DefaultTimeout bounds every request unless overridden.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of a non-JSON error body is kept.
const maxErrorBody = 4 << 10

// Client talks to one ReqDB backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	authToken  string
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.authToken = token
	}
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a client for the API rooted at baseURL
// (e.g. "https://reqdb.example.com/api"). A trailing slash is ignored.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetAuthToken sets the authentication token for the client.
func (c *Client) SetAuthToken(token string) {
	c.authToken = token
}

type envelope struct {
	Status  int             `json:"status"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message json.RawMessage `json:"message"`
}

func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	target := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	debug.Logw("api request", "method", method, "url", target)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

// decodeResponse unwraps the envelope into target. target may be nil.
func decodeResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return newAPIError(resp.StatusCode, raw)
	}
	if resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if env.Error != "" {
		return &APIError{Status: resp.StatusCode, Code: env.Error, Message: messageText(env.Message)}
	}
	if target == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, target); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, target any) error {
	resp, err := c.doRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	return decodeResponse(resp, target)
}

// ListCatalogues returns all catalogues without their topic trees.
func (c *Client) ListCatalogues(ctx context.Context) ([]model.Catalogue, error) {
	var result []model.Catalogue
	if err := c.get(ctx, "catalogues", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// GetCatalogue returns the catalogue with its nested topics, requirements,
// tags and extras expanded.
func (c *Client) GetCatalogue(ctx context.Context, id int) (*model.Catalogue, error) {
	q := url.Values{}
	q.Set("expandTopics", "true")

	var result model.Catalogue
	if err := c.get(ctx, "catalogues/"+strconv.Itoa(id), q, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListTopics returns every topic (flat, with parentId set).
func (c *Client) ListTopics(ctx context.Context) ([]*model.Topic, error) {
	var result []*model.Topic
	if err := c.get(ctx, "topics", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// GetTopic returns one topic.
func (c *Client) GetTopic(ctx context.Context, id int) (*model.Topic, error) {
	var result model.Topic
	if err := c.get(ctx, "topics/"+strconv.Itoa(id), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListRequirements returns every requirement.
func (c *Client) ListRequirements(ctx context.Context) ([]*model.Requirement, error) {
	var result []*model.Requirement
	if err := c.get(ctx, "requirements", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// GetRequirement returns one requirement.
func (c *Client) GetRequirement(ctx context.Context, id int) (*model.Requirement, error) {
	var result model.Requirement
	if err := c.get(ctx, "requirements/"+strconv.Itoa(id), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListTags returns every tag.
func (c *Client) ListTags(ctx context.Context) ([]model.Tag, error) {
	var result []model.Tag
	if err := c.get(ctx, "tags", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// ListExtraTypes returns every extra type.
func (c *Client) ListExtraTypes(ctx context.Context) ([]model.ExtraType, error) {
	var result []model.ExtraType
	if err := c.get(ctx, "extraTypes", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// GetComments returns the comments attached to a requirement.
func (c *Client) GetComments(ctx context.Context, requirementID int) ([]model.Comment, error) {
	var result []model.Comment
	if err := c.get(ctx, "comments/"+strconv.Itoa(requirementID), nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// GetUserConfig returns the per-user configuration stored by the backend.
func (c *Client) GetUserConfig(ctx context.Context) (map[string]any, error) {
	var result map[string]any
	if err := c.get(ctx, "config/user", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Save creates the entity when its id is zero and updates it otherwise. The
// stored representation returned by the backend is decoded back into e.
func (c *Client) Save(ctx context.Context, e model.Entity) error {
	if e == nil {
		return errors.New("save: nil entity")
	}
	path := e.Kind().Path()
	if path == "" {
		return fmt.Errorf("save: %w: %v", model.ErrUnknownKind, e.Kind())
	}

	method := http.MethodPost
	if e.EntityID() != 0 {
		method = http.MethodPut
		path += "/" + strconv.Itoa(e.EntityID())
	}

	resp, err := c.doRequest(ctx, method, path, nil, e)
	if err != nil {
		return err
	}
	return decodeResponse(resp, e)
}

// Update sends a partial update for the entity of the given kind.
func (c *Client) Update(ctx context.Context, kind model.EntityKind, id int, fields map[string]any) error {
	if kind.Path() == "" {
		return fmt.Errorf("update: %w: %v", model.ErrUnknownKind, kind)
	}
	resp, err := c.doRequest(ctx, http.MethodPut, kind.Path()+"/"+strconv.Itoa(id), nil, fields)
	if err != nil {
		return err
	}
	return decodeResponse(resp, nil)
}

// Delete removes the entity of the given kind. When force is set the backend
// also removes dependent rows (e.g. a topic's requirements).
func (c *Client) Delete(ctx context.Context, kind model.EntityKind, id int, force bool) error {
	if kind.Path() == "" {
		return fmt.Errorf("delete: %w: %v", model.ErrUnknownKind, kind)
	}
	var q url.Values
	if force {
		q = url.Values{"force": {"true"}}
	}
	resp, err := c.doRequest(ctx, http.MethodDelete, kind.Path()+"/"+strconv.Itoa(id), q, nil)
	if err != nil {
		return err
	}
	return decodeResponse(resp, nil)
}
