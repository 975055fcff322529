// Package client provides an HTTP client for the p5.js web editor API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/sketchsync/sketchsync/pkg/models"
	"github.com/sketchsync/sketchsync/pkg/protocol"
	"github.com/sketchsync/sketchsync/pkg/retry"
)

// DefaultBaseURL is the public editor.
const DefaultBaseURL = "https://editor.p5js.org"

// ErrEmptyID is returned when the editor answers successfully but the
// returned entity carries no id.
var ErrEmptyID = errors.New("response has no id")

// Client talks to the editor API. The session cookie set by Login is kept in
// the client's jar and sent with every later request.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	retryConfig retry.Config
}

// Config holds client configuration.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	RetryConfig retry.Config
	// Transport wraps the default transport when set, e.g. for request logging.
	Transport func(http.RoundTripper) http.RoundTripper
}

// New creates a new client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryConfig.MaxAttempts == 0 {
		cfg.RetryConfig = retry.DefaultConfig()
	}

	var transport http.RoundTripper = &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	if cfg.Transport != nil {
		transport = cfg.Transport(transport)
	}

	// cookiejar.New never returns a non-nil error.
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
			Jar:       jar,
		},
		retryConfig: cfg.RetryConfig,
	}
}

// BaseURL returns the editor base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListCollections returns the logged-in user's collections.
func (c *Client) ListCollections(ctx context.Context) ([]models.Collection, error) {
	var collections []models.Collection
	if err := c.do(ctx, "list collections", http.MethodGet, protocol.PathCollections, nil, &collections); err != nil {
		return nil, err
	}
	return collections, nil
}

// CreateCollection creates a collection with the given name.
func (c *Client) CreateCollection(ctx context.Context, name string) (*models.Collection, error) {
	var collection models.Collection
	body := protocol.CollectionRequest{Name: name}
	if err := c.do(ctx, "create collection", http.MethodPost, protocol.PathCollections, body, &collection); err != nil {
		return nil, err
	}
	if collection.ID == "" {
		return nil, fmt.Errorf("create collection %q: %w", name, ErrEmptyID)
	}
	return &collection, nil
}

// ResolveCollection returns the id of the first collection named name,
// creating it when none exists. created reports whether a new collection
// was made. Two concurrent callers may both create one.
func (c *Client) ResolveCollection(ctx context.Context, name string) (id string, created bool, err error) {
	collections, err := c.ListCollections(ctx)
	if err != nil {
		return "", false, err
	}
	for _, col := range collections {
		if col.Name == name {
			if col.ID == "" {
				return "", false, fmt.Errorf("collection %q: %w", name, ErrEmptyID)
			}
			return col.ID, false, nil
		}
	}

	col, err := c.CreateCollection(ctx, name)
	if err != nil {
		return "", false, err
	}
	return col.ID, true, nil
}

// CreateProject creates a project from a file tree.
func (c *Client) CreateProject(ctx context.Context, name string, files []models.FileNode) (*models.Project, error) {
	var project models.Project
	body := protocol.ProjectRequest{Name: name, Files: files}
	if err := c.do(ctx, "create project", http.MethodPost, protocol.PathProjects, body, &project); err != nil {
		return nil, err
	}
	if project.ID == "" {
		return nil, fmt.Errorf("create project %q: %w", name, ErrEmptyID)
	}
	return &project, nil
}

// UpdateProject replaces the name and whole file tree of project id.
func (c *Client) UpdateProject(ctx context.Context, id, name string, files []models.FileNode) (*models.Project, error) {
	var project models.Project
	body := protocol.ProjectRequest{Name: name, Files: files}
	path := protocol.PathProjects + "/" + url.PathEscape(id)
	if err := c.do(ctx, "update project", http.MethodPut, path, body, &project); err != nil {
		return nil, err
	}
	if project.ID == "" {
		project.ID = id
	}
	return &project, nil
}

// AddToCollection adds project projectID to collection collectionID.
func (c *Client) AddToCollection(ctx context.Context, collectionID, projectID string) error {
	path := protocol.PathCollections + "/" + url.PathEscape(collectionID) + "/" + url.PathEscape(projectID)
	return c.do(ctx, "add to collection", http.MethodPost, path, struct{}{}, nil)
}

// do sends a JSON request and decodes a JSON response into out (when non-nil).
// Transport errors and 5xx responses are retryable; everything else is not.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		payload = data
	}

	return retry.Do(ctx, c.retryConfig, func() error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.Retryable(fmt.Errorf("%s request failed: %w", op, err))
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			apiErr := newAPIError(op, resp)
			if resp.StatusCode >= 500 {
				return retry.Retryable(apiErr)
			}
			return apiErr
		}

		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("parse %s response: %w", op, err)
		}
		return nil
	})
}
