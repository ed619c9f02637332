package ticketapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/roeyazroel/ticket-tui/internal/logger"
)

const (
	// DefaultBaseURL is the default backend API root.
	DefaultBaseURL = "http://localhost:8000/api"
	// RequestIDHeader carries a per-request correlation id.
	RequestIDHeader = "X-Request-ID"

	jsonContentType = "application/json"
)

// ClientConfig contains configuration for creating a new ticket API client.
type ClientConfig struct {
	// BaseURL is the API root, e.g. http://localhost:8000/api.
	BaseURL string
	// HTTPClient is an optional custom HTTP client (useful for testing).
	HTTPClient *http.Client
	// Timeout is the HTTP request timeout (defaults to 15s).
	Timeout time.Duration
	// PageSize is sent as page_size on list requests when positive.
	PageSize int
	// UserAgent overrides the default User-Agent header.
	UserAgent string
}

// Client talks to the support ticket REST backend.
type Client struct {
	rest     *resty.Client
	baseURL  string
	pageSize int
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	// Detail is the backend's "detail" message, if any.
	Detail string
	// FieldErrors maps request fields to validation messages.
	FieldErrors map[string][]string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if summary := e.FieldSummary(); summary != "" {
		msg += ": " + summary
	}
	return msg
}

// FieldSummary joins field validation messages as "field: msg; field: msg",
// known ticket fields first, then the rest sorted.
func (e *APIError) FieldSummary() string {
	if len(e.FieldErrors) == 0 {
		return ""
	}
	parts := make([]string, 0, len(e.FieldErrors))
	seen := make(map[string]bool, len(e.FieldErrors))
	for _, field := range knownFields {
		if msgs, ok := e.FieldErrors[field]; ok {
			parts = append(parts, field+": "+strings.Join(msgs, " "))
			seen[field] = true
		}
	}
	rest := make([]string, 0)
	for field := range e.FieldErrors {
		if !seen[field] {
			rest = append(rest, field)
		}
	}
	sort.Strings(rest)
	for _, field := range rest {
		parts = append(parts, field+": "+strings.Join(e.FieldErrors[field], " "))
	}
	return strings.Join(parts, "; ")
}

var knownFields = []string{"title", "description", "category", "priority", "status", "non_field_errors"}

// NewClient creates a new ticket API client with the provided configuration.
func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "ticket-tui"
	}

	var rc *resty.Client
	if cfg.HTTPClient != nil {
		// Work on a copy so the caller's client is left untouched.
		hc := *cfg.HTTPClient
		rc = resty.NewWithClient(&hc)
	} else {
		rc = resty.New()
	}
	rc.SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", jsonContentType)

	rc.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		if req.Header.Get(RequestIDHeader) == "" {
			req.SetHeader(RequestIDHeader, uuid.NewString())
		}
		return nil
	})
	rc.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		logger.Debug("API: %s %s status=%d duration=%s",
			resp.Request.Method, resp.Request.URL, resp.StatusCode(), resp.Time())
		if resp.IsSuccess() {
			return nil
		}
		return newAPIError(resp)
	})

	return &Client{
		rest:     rc,
		baseURL:  baseURL,
		pageSize: cfg.PageSize,
	}
}

// BaseURL returns the API root being used.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListTickets fetches one page of tickets. A bare JSON array response is
// treated as a single unpaginated page.
func (c *Client) ListTickets(ctx context.Context, params ListParams) (TicketPage, error) {
	req := c.rest.R().
		SetContext(ctx).
		SetQueryParamsFromValues(params.Values())
	if c.pageSize > 0 {
		req.SetQueryParam("page_size", strconv.Itoa(c.pageSize))
	}

	// The body is either a bare array or an envelope, so it is decoded by hand.
	resp, err := req.Get("/tickets/")
	if err != nil {
		logger.ErrorWithErr(err, "API: ListTickets failed page=%d", params.Page)
		return TicketPage{}, fmt.Errorf("list tickets: %w", err)
	}

	page, err := decodeTicketPage(resp.Body())
	if err != nil {
		logger.ErrorWithErr(err, "API: ListTickets returned malformed body")
		return TicketPage{}, fmt.Errorf("list tickets: %w", err)
	}
	return page, nil
}

// decodeTicketPage normalizes a bare array or a paginated envelope.
func decodeTicketPage(raw json.RawMessage) (TicketPage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return TicketPage{}, errors.New("empty response body")
	}

	if trimmed[0] == '[' {
		var tickets []Ticket
		if err := json.Unmarshal(trimmed, &tickets); err != nil {
			return TicketPage{}, fmt.Errorf("decode ticket array: %w", err)
		}
		return TicketPage{Tickets: tickets, Count: len(tickets)}, nil
	}

	var envelope struct {
		Results  []Ticket `json:"results"`
		Next     *string  `json:"next"`
		Previous *string  `json:"previous"`
		Count    *int     `json:"count"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return TicketPage{}, fmt.Errorf("decode ticket page: %w", err)
	}

	page := TicketPage{Tickets: envelope.Results}
	if envelope.Next != nil {
		page.Next = *envelope.Next
	}
	if envelope.Previous != nil {
		page.Previous = *envelope.Previous
	}
	if envelope.Count != nil {
		page.Count = *envelope.Count
	}
	return page, nil
}

// CreateTicket creates a new ticket.
func (c *Client) CreateTicket(ctx context.Context, input CreateTicketInput) (Ticket, error) {
	var ticket Ticket
	if err := c.send(ctx, resty.MethodPost, "/tickets/", input, &ticket); err != nil {
		logger.ErrorWithErr(err, "API: CreateTicket failed")
		return Ticket{}, fmt.Errorf("create ticket: %w", err)
	}
	return ticket, nil
}

// UpdateTicketStatus sets a single ticket's status.
func (c *Client) UpdateTicketStatus(ctx context.Context, id TicketID, status Status) (Ticket, error) {
	body := map[string]Status{"status": status}
	path := "/tickets/" + url.PathEscape(string(id)) + "/"

	var ticket Ticket
	if err := c.send(ctx, resty.MethodPatch, path, body, &ticket); err != nil {
		logger.ErrorWithErr(err, "API: UpdateTicketStatus failed id=%s status=%s", id, status)
		return Ticket{}, fmt.Errorf("update ticket %s: %w", id, err)
	}
	return ticket, nil
}

// Classify asks the backend to suggest a category and priority for a
// description. Values outside the known enums are dropped.
func (c *Client) Classify(ctx context.Context, description string) (Suggestion, error) {
	body := map[string]string{"description": description}

	var resp struct {
		SuggestedCategory *string `json:"suggested_category"`
		SuggestedPriority *string `json:"suggested_priority"`
	}
	if err := c.send(ctx, resty.MethodPost, "/tickets/classify/", body, &resp); err != nil {
		return Suggestion{}, fmt.Errorf("classify: %w", err)
	}

	var s Suggestion
	if resp.SuggestedCategory != nil {
		if cat := Category(*resp.SuggestedCategory); cat.Valid() {
			s.Category = &cat
		}
	}
	if resp.SuggestedPriority != nil {
		if pr := Priority(*resp.SuggestedPriority); pr.Valid() {
			s.Priority = &pr
		}
	}
	return s, nil
}

// Stats fetches the aggregate ticket summary.
func (c *Client) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	if err := c.send(ctx, resty.MethodGet, "/tickets/stats/", nil, &stats); err != nil {
		logger.ErrorWithErr(err, "API: Stats failed")
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	return stats, nil
}

// Health checks that the backend is reachable.
func (c *Client) Health(ctx context.Context) error {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.send(ctx, resty.MethodGet, "/health/", nil, &resp); err != nil {
		return fmt.Errorf("health: %w", err)
	}
	if resp.Status != "ok" {
		return fmt.Errorf("health: unexpected status %q", resp.Status)
	}
	return nil
}

// send issues a JSON request and decodes a 2xx response into out.
// Non-2xx responses surface as *APIError from the response hook.
func (c *Client) send(ctx context.Context, method, path string, body, out any) error {
	req := c.rest.R().
		SetContext(ctx).
		SetResult(out).
		ForceContentType(jsonContentType)
	if body != nil {
		req.SetHeader("Content-Type", jsonContentType).SetBody(body)
	}
	if _, err := req.Execute(method, path); err != nil {
		return err
	}
	return nil
}

// newAPIError builds an APIError, parsing DRF-style error bodies when present.
func newAPIError(resp *resty.Response) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode(),
		Method:     resp.Request.Method,
		Path:       requestPath(resp.Request.URL),
	}

	data := bytes.TrimSpace(resp.Body())
	if len(data) == 0 {
		return apiErr
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return apiErr
	}
	for key, value := range fields {
		if key == "detail" {
			var detail string
			if json.Unmarshal(value, &detail) == nil {
				apiErr.Detail = detail
			}
			continue
		}
		var msgs []string
		if json.Unmarshal(value, &msgs) == nil {
			if apiErr.FieldErrors == nil {
				apiErr.FieldErrors = make(map[string][]string)
			}
			apiErr.FieldErrors[key] = msgs
			continue
		}
		var msg string
		if json.Unmarshal(value, &msg) == nil {
			if apiErr.FieldErrors == nil {
				apiErr.FieldErrors = make(map[string][]string)
			}
			apiErr.FieldErrors[key] = []string{msg}
		}
	}
	return apiErr
}

// requestPath strips scheme and host from a resolved request URL.
func requestPath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" {
		return raw
	}
	return u.Path
}
