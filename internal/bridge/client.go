package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Commander is the command channel into the native launcher daemon: one
// request, one response or failure. It is implemented by *Client and faked
// in tests.
type Commander interface {
	LoadConfig(ctx context.Context) (*AppConfig, error)
	SaveConfig(ctx context.Context, cfg *AppConfig) error
	InstanceMetrics(ctx context.Context, instanceID string) (*Metrics, error)
	SearchProjects(ctx context.Context, req SearchRequest) ([]ProjectHit, error)
	InstallProject(ctx context.Context, req InstallRequest) (*InstallResult, error)
	UninstallProject(ctx context.Context, req UninstallRequest) error
	ListInstalled(ctx context.Context, instanceID, projectType, worldID string) ([]string, error)
	ListWorlds(ctx context.Context, instanceID string) ([]World, error)
	ExchangeLoginCode(ctx context.Context, code string) (*Account, error)
}

// Ensure Client implements Commander at compile time.
var _ Commander = (*Client)(nil)

// Client talks to the launcher daemon's HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
}

const (
	defaultAPIBind   = "127.0.0.1:7733"
	defaultUserAgent = "bastion/0.1"
	requestTimeout   = 30 * time.Second
)

// NewClient builds a Client using the provided apiBind host:port value.
func NewClient(apiBind string) (*Client, error) {
	base, err := parseBaseURL(apiBind)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		userAgent: defaultUserAgent,
	}, nil
}

// LoadConfig retrieves the shared launcher configuration snapshot.
func (c *Client) LoadConfig(ctx context.Context) (*AppConfig, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload AppConfig
	if err := c.do(ctx, http.MethodGet, "/api/config", nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// SaveConfig persists the shared launcher configuration snapshot.
func (c *Client) SaveConfig(ctx context.Context, cfg *AppConfig) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	return c.do(ctx, http.MethodPut, "/api/config", cfg, nil)
}

// InstanceMetrics retrieves a one-shot resource reading for an instance.
// A nil Metrics with nil error means the instance has no running process.
func (c *Client) InstanceMetrics(ctx context.Context, instanceID string) (*Metrics, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(instanceID) == "" {
		return nil, fmt.Errorf("instance id required")
	}
	var payload struct {
		Metrics *Metrics `json:"metrics"`
	}
	path := "/api/instances/" + url.PathEscape(instanceID) + "/metrics"
	if err := c.do(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Metrics, nil
}

// SearchProjects runs a remote catalog search through the daemon.
func (c *Client) SearchProjects(ctx context.Context, req SearchRequest) ([]ProjectHit, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	values := url.Values{}
	values.Set("query", req.Query)
	values.Set("project_type", req.ProjectType)
	if req.GameVersion != "" {
		values.Set("game_version", req.GameVersion)
	}
	if req.Limit > 0 {
		values.Set("limit", strconv.Itoa(req.Limit))
	}
	if req.Sort != "" {
		values.Set("index", req.Sort)
	}
	if len(req.Facets) > 0 {
		encoded, err := json.Marshal(req.Facets)
		if err != nil {
			return nil, fmt.Errorf("encode facets: %w", err)
		}
		values.Set("facets", string(encoded))
	}
	rel := &url.URL{Path: "/api/catalog/search", RawQuery: values.Encode()}
	var payload searchResponse
	if err := c.doURL(ctx, http.MethodGet, rel, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Hits, nil
}

// InstallProject installs a catalog project into an instance.
func (c *Client) InstallProject(ctx context.Context, req InstallRequest) (*InstallResult, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload InstallResult
	if err := c.do(ctx, http.MethodPost, "/api/catalog/install", req, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// UninstallProject removes an installed catalog project.
func (c *Client) UninstallProject(ctx context.Context, req UninstallRequest) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	return c.do(ctx, http.MethodPost, "/api/catalog/uninstall", req, nil)
}

// ListInstalled returns the project ids installed for one content type.
// worldID scopes the listing for datapacks and is ignored otherwise.
func (c *Client) ListInstalled(ctx context.Context, instanceID, projectType, worldID string) ([]string, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	values := url.Values{}
	values.Set("instance", instanceID)
	values.Set("project_type", projectType)
	if worldID != "" {
		values.Set("world", worldID)
	}
	rel := &url.URL{Path: "/api/catalog/installed", RawQuery: values.Encode()}
	var payload installedResponse
	if err := c.doURL(ctx, http.MethodGet, rel, nil, &payload); err != nil {
		return nil, err
	}
	return payload.ProjectIDs, nil
}

// ListWorlds returns an instance's savegames.
func (c *Client) ListWorlds(ctx context.Context, instanceID string) ([]World, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	path := "/api/instances/" + url.PathEscape(instanceID) + "/worlds"
	var payload worldsResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Worlds, nil
}

// ExchangeLoginCode trades an OAuth callback code for a signed-in account.
func (c *Client) ExchangeLoginCode(ctx context.Context, code string) (*Account, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	body := struct {
		Code string `json:"code"`
	}{Code: code}
	var payload Account
	if err := c.do(ctx, http.MethodPost, "/api/login/exchange", body, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// FetchEvents retrieves feed events with seq greater than since. waitMS asks
// the daemon to hold the request open until events arrive or the wait
// expires.
func (c *Client) FetchEvents(ctx context.Context, since uint64, waitMS int) ([]Envelope, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	values := url.Values{}
	values.Set("since", strconv.FormatUint(since, 10))
	if waitMS > 0 {
		values.Set("wait_ms", strconv.Itoa(waitMS))
	}
	rel := &url.URL{Path: "/api/events", RawQuery: values.Encode()}
	var payload eventsResponse
	if err := c.doURL(ctx, http.MethodGet, rel, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Events, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	rel := &url.URL{Path: path}
	return c.doURL(ctx, method, rel, body, dest)
}

func (c *Client) doURL(ctx context.Context, method string, rel *url.URL, body, dest any) error {
	reqURL := c.baseURL.ResolveReference(rel)

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		if msg := decodeErrorBody(resp); msg != "" {
			return fmt.Errorf("api %s failed with status code %d: %s", rel.Path, resp.StatusCode, msg)
		}
		return fmt.Errorf("api %s failed with status code %d", rel.Path, resp.StatusCode)
	}
	if dest == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeErrorBody(resp *http.Response) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return ""
	}
	return strings.TrimSpace(payload.Error)
}

func parseBaseURL(apiBind string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiBind)
	if trimmed == "" {
		trimmed = defaultAPIBind
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api_bind %q: %w", apiBind, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
