// Package firestore is a hand-rolled client for the Firestore REST
// surface: service-account token minting, the tagged-value wire codec,
// a structured-query compiler and document CRUD. The vendor SDK is
// deliberately not used; the deployment targets an edge runtime where
// only plain HTTP is available.
package firestore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kspirits/hub/internal/metrics"
)

const defaultBaseURL = "https://firestore.googleapis.com/v1"

// tokens is the consumer interface for bearer token supply (ISP).
type tokens interface {
	Token(ctx context.Context) (string, error)
}

// Document is a stored document: its full resource name plus the field
// map. Identity is the path; there is no separate primary key.
type Document struct {
	Name   string
	Fields map[string]Value
}

// ID returns the last path segment of the document name.
func (d Document) ID() string {
	idx := strings.LastIndexByte(d.Name, '/')
	return d.Name[idx+1:]
}

// Client performs document CRUD and query execution over HTTP.
type Client struct {
	baseURL   string
	projectID string
	tokens    tokens
	httpc     *http.Client
	logger    *zap.Logger
}

// Config holds the document client settings.
type Config struct {
	ProjectID string
	BaseURL   string // defaults to the public endpoint
	Tokens    *TokenSource
	Timeout   time.Duration
	Logger    *zap.Logger
}

// NewClient creates a document client.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		projectID: cfg.ProjectID,
		tokens:    cfg.Tokens,
		httpc:     &http.Client{Timeout: timeout},
		logger:    logger,
	}
}

// databasePath is the resource prefix for every document in the project.
func (c *Client) databasePath() string {
	return fmt.Sprintf("projects/%s/databases/(default)/documents", c.projectID)
}

func (c *Client) docURL(path string) string {
	return fmt.Sprintf("%s/%s/%s", c.baseURL, c.databasePath(), path)
}

// Get fetches a single document. A 404 decodes to ErrNotFound, not a
// transport error.
func (c *Client) Get(ctx context.Context, path string) (Document, error) {
	body, err := c.do(ctx, http.MethodGet, c.docURL(path), nil, "get")
	if err != nil {
		return Document{}, err
	}

	var doc wireDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return Document{}, fmt.Errorf("decode document %s: %w", path, err)
	}
	return doc.toDocument(), nil
}

// Create adds a document to a collection. documentID may be empty, in
// which case the store assigns one.
func (c *Client) Create(ctx context.Context, collection, documentID string, fields map[string]Value) (Document, error) {
	u := c.docURL(collection)
	if documentID != "" {
		u += "?documentId=" + url.QueryEscape(documentID)
	}

	payload, err := json.Marshal(wireDocument{Fields: fields})
	if err != nil {
		return Document{}, fmt.Errorf("encode create payload: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, u, payload, "create")
	if err != nil {
		return Document{}, err
	}

	var doc wireDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return Document{}, fmt.Errorf("decode created document: %w", err)
	}
	return doc.toDocument(), nil
}

// Patch merges fields into a document. The update mask lists exactly
// the top-level keys present in the payload, so omitted fields are left
// untouched server-side: a true partial update, not a replace. The
// document is created if absent.
func (c *Client) Patch(ctx context.Context, path string, fields map[string]Value) error {
	q := url.Values{}
	for key := range fields {
		q.Add("updateMask.fieldPaths", key)
	}
	u := c.docURL(path) + "?" + q.Encode()

	payload, err := json.Marshal(wireDocument{Fields: fields})
	if err != nil {
		return fmt.Errorf("encode patch payload: %w", err)
	}

	if _, err := c.do(ctx, http.MethodPatch, u, payload, "patch"); err != nil {
		return fmt.Errorf("patch %s: %w", path, err)
	}
	return nil
}

// Delete removes a single document. Deleting an absent document is not
// an error on the wire.
func (c *Client) Delete(ctx context.Context, path string) error {
	if _, err := c.do(ctx, http.MethodDelete, c.docURL(path), nil, "delete"); err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

// RunQuery executes a compiled structured query. parentPath scopes the
// query below a document ("" queries root collections).
func (c *Client) RunQuery(ctx context.Context, parentPath string, q Query) ([]Document, error) {
	parent := c.databasePath()
	if parentPath != "" {
		parent += "/" + parentPath
	}

	body := q.Compile()
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	u := fmt.Sprintf("%s/%s:runQuery", c.baseURL, parent)
	respBody, err := c.do(ctx, http.MethodPost, u, payload, "runQuery")
	if err != nil {
		return nil, fmt.Errorf("run query on %s: %w", q.Collection, err)
	}

	// runQuery streams one result object per matched document, plus
	// bare readTime entries that carry no document.
	var results []struct {
		Document *wireDocument `json:"document"`
	}
	if err := json.Unmarshal(respBody, &results); err != nil {
		return nil, fmt.Errorf("decode query results: %w", err)
	}

	docs := make([]Document, 0, len(results))
	for _, r := range results {
		if r.Document == nil {
			continue
		}
		docs = append(docs, r.Document.toDocument())
	}
	return docs, nil
}

// Increment atomically adds deltas to integer fields of one document
// via a commit with field transforms. This is the store's own increment
// primitive; concurrent increments do not lose updates.
func (c *Client) Increment(ctx context.Context, path string, deltas map[string]int64) error {
	transforms := make([]map[string]any, 0, len(deltas))
	for field, delta := range deltas {
		transforms = append(transforms, map[string]any{
			"fieldPath": field,
			"increment": Integer(delta),
		})
	}

	body := map[string]any{
		"writes": []map[string]any{{
			"transform": map[string]any{
				"document":        c.databasePath() + "/" + path,
				"fieldTransforms": transforms,
			},
		}},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode commit: %w", err)
	}

	u := fmt.Sprintf("%s/%s:commit", c.baseURL, c.databasePath())
	if _, err := c.do(ctx, http.MethodPost, u, payload, "commit"); err != nil {
		return fmt.Errorf("increment %s: %w", path, err)
	}
	return nil
}

// do performs one authenticated round trip. Non-2xx responses are
// classified (ErrNotFound, IndexError, StatusError) with the raw body
// preserved; missing-index errors additionally log the remediation URL.
func (c *Client) do(ctx context.Context, method, u string, payload []byte, op string) ([]byte, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire token: %w", err)
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		metrics.FirestoreRequestsTotal.WithLabelValues(op, "transport_error").Inc()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.FirestoreRequestsTotal.WithLabelValues(op, "read_error").Inc()
		return nil, fmt.Errorf("%s: read response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.FirestoreRequestsTotal.WithLabelValues(op, statusClass(resp.StatusCode)).Inc()
		clsErr := classifyStatus(resp.StatusCode, string(body))
		if ie, ok := AsIndexError(clsErr); ok {
			c.logger.Error("missing composite index",
				zap.String("op", op),
				zap.String("create_index_url", ie.AdminURL),
			)
		}
		return nil, clsErr
	}

	metrics.FirestoreRequestsTotal.WithLabelValues(op, "ok").Inc()
	return body, nil
}

func statusClass(code int) string {
	switch {
	case code == 404:
		return "not_found"
	case code >= 400 && code < 500:
		return "client_error"
	default:
		return "server_error"
	}
}

// wireDocument is the JSON document envelope.
type wireDocument struct {
	Name   string           `json:"name,omitempty"`
	Fields map[string]Value `json:"fields,omitempty"`
}

func (w wireDocument) toDocument() Document {
	fields := w.Fields
	if fields == nil {
		fields = map[string]Value{}
	}
	return Document{Name: w.Name, Fields: fields}
}
