package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"assistant-inbox/internal/models"
)

const searchEmailsPath = "/api/search/emails"

// ErrInvalidResponse is returned when the search response has no emails array
var ErrInvalidResponse = errors.New("invalid search response: emails array not found")

// Client talks to the assistant backend over HTTP
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client for the backend at baseURL with the given request timeout
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type searchResponse struct {
	Emails *[]models.RawEmail `json:"emails"`
}

// SearchEmails calls GET /api/search/emails with the query filters and returns the raw records
func (c *Client) SearchEmails(ctx context.Context, q models.SearchQuery) ([]models.RawEmail, error) {
	endpoint := c.baseURL + searchEmailsPath + "?" + searchParams(q).Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("error building search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error calling email search: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("email search returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("error decoding email search response: %w", err)
	}
	if payload.Emails == nil {
		return nil, ErrInvalidResponse
	}

	return *payload.Emails, nil
}

// FetchRaw lets the client act as an email source
func (c *Client) FetchRaw(ctx context.Context, q models.SearchQuery) ([]models.RawEmail, error) {
	return c.SearchEmails(ctx, q)
}

func searchParams(q models.SearchQuery) url.Values {
	params := url.Values{}
	params.Set("query", q.Text)
	params.Set("days", strconv.Itoa(q.Days))
	params.Set("limit", strconv.Itoa(q.Limit))
	params.Set("sort", q.Sort)
	if q.UnreadOnly {
		params.Set("unread", "true")
	}
	if q.From != "" {
		params.Set("from_email", q.From)
	}
	if q.To != "" {
		params.Set("to", q.To)
	}
	return params
}
