// Package backend is the REST client for the remote SOS backend: patient
// lookup, case persistence and case history.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"SOSDesk/internal/logger"
	"SOSDesk/internal/models"
)

var ErrNotFound = errors.New("not found")

// StatusError is a failure reported by the backend, either as the HTTP status
// or as the status embedded in the response body.
type StatusError struct {
	Op      string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: backend status %d: %s", e.Op, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: backend status %d", e.Op, e.Code)
}

type Paths struct {
	History  string
	SaveCase string
	UserInfo string
}

type Config struct {
	BaseURL string
	Paths   Paths
	Token   string
	Timeout time.Duration
}

type Client struct {
	baseURL    string
	paths      Paths
	token      string
	httpClient *http.Client
	log        *logger.Logger
}

type Option func(*Client)

// WithHTTPClient swaps the transport, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(cfg Config, log *logger.Logger, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		paths:      cfg.Paths,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
		log:        log.With("backend"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope is the common response body. History rows arrive under "data"
// or, on older deployments, "sasData".
type envelope struct {
	Status   int                   `json:"status"`
	Message  string                `json:"message"`
	Data     []models.HistoryEntry `json:"data"`
	SASData  []models.HistoryEntry `json:"sasData"`
	UserInfo *models.Patient       `json:"userInfo"`
}

// GetPatient fetches the patient record for a sender id.
func (c *Client) GetPatient(ctx context.Context, userID string) (*models.Patient, error) {
	q := url.Values{"userId": {userID}}
	env, err := c.do(ctx, "get patient", http.MethodGet, c.paths.UserInfo, q, nil, "")
	if err != nil {
		return nil, err
	}
	if env.UserInfo == nil {
		return nil, fmt.Errorf("get patient %s: %w", userID, ErrNotFound)
	}
	return env.UserInfo, nil
}

// SaveCase records an accepted alert in the backend's durable history.
func (c *Client) SaveCase(ctx context.Context, userID, hospitalID string) error {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := w.WriteField("userId", userID); err != nil {
		return fmt.Errorf("save case: %w", err)
	}
	if err := w.WriteField("hospitalId", hospitalID); err != nil {
		return fmt.Errorf("save case: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("save case: %w", err)
	}

	env, err := c.do(ctx, "save case", http.MethodPost, c.paths.SaveCase, nil, &body, w.FormDataContentType())
	if err != nil {
		return err
	}
	// Only an explicit 200 confirms the case was stored.
	if env.Status != http.StatusOK {
		return &StatusError{Op: "save case", Code: env.Status, Message: env.Message}
	}
	return nil
}

// GetHistory returns the hospital's persisted cases. A 404 means no history
// and yields an empty slice.
func (c *Client) GetHistory(ctx context.Context, hospitalID string) ([]models.HistoryEntry, error) {
	q := url.Values{"hospital_id": {hospitalID}}
	env, err := c.do(ctx, "get history", http.MethodGet, c.paths.History, q, nil, "")
	if errors.Is(err, ErrNotFound) {
		return []models.HistoryEntry{}, nil
	}
	if err != nil {
		return nil, err
	}
	if env.Data != nil {
		return env.Data, nil
	}
	if env.SASData != nil {
		return env.SASData, nil
	}
	return []models.HistoryEntry{}, nil
}

// Ping checks that the backend answers at all.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body io.Reader, contentType string) (*envelope, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	c.log.Debug("%s %s -> %d (%v)", method, path, resp.StatusCode, time.Since(start))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", op, err)
	}

	var env envelope
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && resp.StatusCode < 300 {
			return nil, fmt.Errorf("%s: decode: %w", op, err)
		}
	}

	code := env.Status
	if resp.StatusCode >= 300 {
		code = resp.StatusCode
	}
	switch {
	case code == 0 || (code >= 200 && code < 300):
		return &env, nil
	case code == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	default:
		return nil, &StatusError{Op: op, Code: code, Message: env.Message}
	}
}
