package task

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ServerError carries the server-provided detail text for a failed request.
// The detail is surfaced to the user verbatim.
type ServerError struct {
	StatusCode int
	Detail     string
}

func (e *ServerError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("server returned status %d", e.StatusCode)
}

// SubmitRequest starts an extraction job. Types is positionally aligned
// with Columns.
type SubmitRequest struct {
	Query   string   `json:"query"`
	Columns []string `json:"columns"`
	Types   []string `json:"types"`
}

// SubmitResponse is the success response to a submission: either a task
// handle with the initial item inventory, or an immediate completion for a
// trivial/empty result.
type SubmitResponse struct {
	TaskID  string          `json:"task_id,omitempty"`
	Status  string          `json:"status,omitempty"`
	Message string          `json:"message,omitempty"`
	Items   map[string]Item `json:"items,omitempty"`
}

// TriviallyComplete reports whether the submission already finished with
// nothing to poll.
func (r *SubmitResponse) TriviallyComplete() bool {
	return r.TaskID == "" && r.Status == "completed"
}

// Client speaks the extraction service's JSON protocol.
type Client struct {
	baseURL string
	httpc   *http.Client
	logger  *slog.Logger
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

// Submit starts a job. Non-2xx responses are returned as *ServerError with
// the server's detail text.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (*SubmitResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/extract", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeServerError(resp)
	}

	var out SubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode submit response: %w", err)
	}
	fillItemUIDs(out.Items)
	return &out, nil
}

// Poll fetches the full progress snapshot for a task handle. A handle the
// server no longer knows yields a snapshot with StatusNotFound, not an
// error.
func (c *Client) Poll(ctx context.Context, taskID string) (*Snapshot, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.statusURL(taskID), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return &Snapshot{Status: StatusNotFound}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeServerError(resp)
	}

	var snap Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	fillItemUIDs(snap.Items)
	return &snap, nil
}

// FetchResult downloads the raw result artifact, byte-identical to the
// server response.
func (c *Client) FetchResult(ctx context.Context, taskID string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/result/"+url.PathEscape(taskID), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeServerError(resp)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) statusURL(taskID string) string {
	return c.baseURL + "/api/status/" + url.PathEscape(taskID)
}

// decodeServerError extracts the {detail} payload from an error response.
func decodeServerError(resp *http.Response) error {
	serverErr := &ServerError{StatusCode: resp.StatusCode}
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
		serverErr.Detail = payload.Detail
	}
	return serverErr
}

// fillItemUIDs copies each map key into its item's UID field; the wire
// format keys items by uid instead of repeating it in the value.
func fillItemUIDs(items map[string]Item) {
	for uid, item := range items {
		item.UID = uid
		items[uid] = item
	}
}
