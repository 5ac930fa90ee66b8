// Package analytics is a REST client for the analytics server API: cards,
// dashboards, collections, databases and sessions.
package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/BartekS5/cardsync/pkg/logger"
	"github.com/BartekS5/cardsync/pkg/models"
	"github.com/go-resty/resty/v2"
)

// DefaultSessionHeader carries the session token on every request.
const DefaultSessionHeader = "X-Metabase-Session"

// Client talks to one analytics server.
type Client struct {
	host          string
	sessionHeader string
	http          *resty.Client
}

type Option func(*Client)

// WithSessionHeader overrides the header used for the session token.
func WithSessionHeader(name string) Option {
	return func(c *Client) {
		c.sessionHeader = name
	}
}

// WithTimeout bounds every request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.SetTimeout(d)
	}
}

// New returns a client for host (scheme included, no trailing slash needed).
func New(host, sessionToken string, opts ...Option) *Client {
	c := &Client{
		host:          strings.TrimRight(host, "/"),
		sessionHeader: DefaultSessionHeader,
		http:          resty.New().SetHeader("Content-Type", "application/json"),
	}
	for _, o := range opts {
		o(c)
	}
	c.SetSessionToken(sessionToken)
	return c
}

func (c *Client) Host() string { return c.host }

func (c *Client) SetSessionToken(token string) {
	if token != "" {
		c.http.SetHeader(c.sessionHeader, token)
	}
}

// Login exchanges credentials for a session token and starts using it.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	body := map[string]string{"username": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/session", body, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("login to %s returned no session", c.host)
	}
	c.SetSessionToken(out.ID)
	return out.ID, nil
}

// CollectionTree returns the non-archived collection hierarchy under a
// synthetic root node.
func (c *Client) CollectionTree(ctx context.Context) (*models.Collection, error) {
	var children []*models.Collection
	path := "/api/collection/tree?tree=true&exclude-other-user-collections=true&exclude-archived=true"
	if err := c.do(ctx, http.MethodGet, path, nil, &children); err != nil {
		return nil, err
	}
	return models.NewRootCollection(children), nil
}

func (c *Client) CreateCollection(ctx context.Context, name string, parentID int) (*models.Collection, error) {
	body := map[string]any{
		"parent_id":       models.CollectionRef(parentID),
		"authority_level": nil,
		"description":     nil,
		"color":           "#509EE3",
		"name":            name,
	}
	var out models.Collection
	if err := c.do(ctx, http.MethodPost, "/api/collection", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListCards(ctx context.Context) ([]models.Card, error) {
	var out []models.Card
	if err := c.do(ctx, http.MethodGet, "/api/card", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetCard(ctx context.Context, id int) (*models.Card, error) {
	var out models.Card
	if err := c.do(ctx, http.MethodGet, "/api/card/"+strconv.Itoa(id), nil, &out); err != nil {
		return nil, notFoundAs(err, "card", id)
	}
	return &out, nil
}

func (c *Client) CreateCard(ctx context.Context, body any) (*models.Card, error) {
	var out models.Card
	if err := c.do(ctx, http.MethodPost, "/api/card", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateCard(ctx context.Context, id int, body any) (*models.Card, error) {
	var out models.Card
	if err := c.do(ctx, http.MethodPut, "/api/card/"+strconv.Itoa(id), body, &out); err != nil {
		return nil, notFoundAs(err, "card", id)
	}
	return &out, nil
}

func (c *Client) ListDashboards(ctx context.Context) ([]models.Dashboard, error) {
	var out []models.Dashboard
	if err := c.do(ctx, http.MethodGet, "/api/dashboard", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetDashboard returns the dashboard with its full tile layout.
func (c *Client) GetDashboard(ctx context.Context, id int) (*models.Dashboard, error) {
	var out models.Dashboard
	if err := c.do(ctx, http.MethodGet, "/api/dashboard/"+strconv.Itoa(id), nil, &out); err != nil {
		return nil, notFoundAs(err, "dashboard", id)
	}
	return &out, nil
}

func (c *Client) CreateDashboard(ctx context.Context, body any) (*models.Dashboard, error) {
	var out models.Dashboard
	if err := c.do(ctx, http.MethodPost, "/api/dashboard", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateDashboard(ctx context.Context, id int, body any) (*models.Dashboard, error) {
	var out models.Dashboard
	if err := c.do(ctx, http.MethodPut, "/api/dashboard/"+strconv.Itoa(id), body, &out); err != nil {
		return nil, notFoundAs(err, "dashboard", id)
	}
	return &out, nil
}

// ReplaceDashboardCards swaps the whole tile layout in one request. Tiles
// with a negative id are created; existing tiles left out are removed.
func (c *Client) ReplaceDashboardCards(ctx context.Context, id int, cards []map[string]any) error {
	if cards == nil {
		cards = []map[string]any{}
	}
	body := map[string]any{"cards": cards}
	if err := c.do(ctx, http.MethodPut, "/api/dashboard/"+strconv.Itoa(id)+"/cards", body, nil); err != nil {
		return notFoundAs(err, "dashboard", id)
	}
	return nil
}

// ListDatabases accepts both the bare array and the {"data": [...]} envelope.
func (c *Client) ListDatabases(ctx context.Context) ([]models.Database, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/api/database", nil, &raw); err != nil {
		return nil, err
	}
	var out []models.Database
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '{' {
		var env struct {
			Data []models.Database `json:"data"`
		}
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("failed to decode database list: %w", err)
		}
		return env.Data, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode database list: %w", err)
	}
	return out, nil
}

func (c *Client) DatabaseMetadata(ctx context.Context, id int) (*models.DatabaseMeta, error) {
	var out models.DatabaseMeta
	if err := c.do(ctx, http.MethodGet, "/api/database/"+strconv.Itoa(id)+"/metadata", nil, &out); err != nil {
		return nil, notFoundAs(err, "database", id)
	}
	return &out, nil
}

// ConvertToNative asks the server to compile a structured query to SQL.
func (c *Client) ConvertToNative(ctx context.Context, q models.DatasetQuery) (string, error) {
	var database any
	if q.Database > 0 {
		database = q.Database
	}
	body := map[string]any{
		"database": database,
		"pretty":   true,
		"query":    q.Query,
		"type":     q.Type,
	}
	var out struct {
		Query string `json:"query"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/dataset/native", body, &out); err != nil {
		return "", err
	}
	return out.Query, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}
	url := c.host + path
	resp, err := req.Execute(method, url)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, url, err)
	}

	// The body is decoded here rather than through SetResult: servers report
	// cause/errors with a 2xx status too, and that payload rarely fits out.
	raw := resp.Body()
	if resp.StatusCode() == http.StatusNotFound {
		return &models.NotFoundError{Kind: "resource", ID: path}
	}
	cause := causeOf(raw)
	if cause == "" && resp.IsError() {
		cause = resp.Status()
	}
	if cause != "" {
		apiErr := &models.RemoteAPIError{
			Method:       method,
			URL:          url,
			Status:       resp.StatusCode(),
			RequestBody:  requestBody(path, body),
			ResponseBody: string(raw),
			Cause:        cause,
		}
		logger.Errorf("%s | %s\nrequest: %s\nresponse: %s", method, url, apiErr.RequestBody, apiErr.ResponseBody)
		return apiErr
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %s %s: %w", method, url, err)
	}
	return nil
}

// causeOf extracts the cause or errors member of an error payload.
func causeOf(raw []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	for _, key := range []string{"cause", "errors"} {
		switch v := payload[key].(type) {
		case nil:
		case string:
			return v
		default:
			b, _ := json.Marshal(v)
			return string(b)
		}
	}
	return ""
}

func requestBody(path string, body any) string {
	if body == nil {
		return ""
	}
	if path == "/api/session" {
		return `{"username":"-redacted-","password":"-redacted-"}`
	}
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Sprintf("%v", body)
	}
	return string(b)
}

func notFoundAs(err error, kind string, id int) error {
	var nf *models.NotFoundError
	if errors.As(err, &nf) {
		return &models.NotFoundError{Kind: kind, ID: strconv.Itoa(id)}
	}
	return err
}
