// Package pvoutput submits generation data to the PVOutput service API.
//
// Every request carries the account API key and system id as the
// X-Pvoutput-Apikey and X-Pvoutput-SystemId headers. Parameters travel as a
// form body for POST and as a query string for GET.
package pvoutput

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tejusbharadwaj/pvrelay/internal/apperrors"
)

const (
	DefaultBaseURL = "https://pvoutput.org"
	AddStatusPath  = "/service/r2/addstatus.jsp"

	headerAPIKey   = "X-Pvoutput-Apikey"
	headerSystemID = "X-Pvoutput-SystemId"

	defaultTimeout = 30 * time.Second
)

// Config configures a Client.
type Config struct {
	BaseURL    string
	APIKey     string
	SystemID   string
	HTTPClient *http.Client
}

// Client talks to the PVOutput API for a single system.
type Client struct {
	baseURL    string
	apiKey     string
	systemID   string
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		systemID:   cfg.SystemID,
		httpClient: httpClient,
	}
}

// AddStatus posts a live status to addstatus.jsp.
func (c *Client) AddStatus(ctx context.Context, status *Status) error {
	_, err := c.Send(ctx, AddStatusPath, http.MethodPost, status.Values())
	return err
}

// Send performs one API call and returns the response body. method must be
// GET or POST; anything else fails before a request is made.
func (c *Client) Send(ctx context.Context, path, method string, fields url.Values) (string, error) {
	if method != http.MethodGet && method != http.MethodPost {
		return "", apperrors.NewConfigError("method", "invalid method %q", method)
	}

	endpoint := c.baseURL + path
	var body io.Reader
	if len(fields) > 0 {
		if method == http.MethodPost {
			body = strings.NewReader(fields.Encode())
		} else {
			endpoint += "?" + fields.Encode()
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return "", apperrors.NewConfigError("url", "failed to create request for %s: %v", endpoint, err)
	}
	req.Header.Set(headerAPIKey, c.apiKey)
	req.Header.Set(headerSystemID, c.systemID)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &apperrors.HTTPError{Op: "pvoutput " + method, URL: c.baseURL + path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &apperrors.HTTPError{Op: "pvoutput " + method, URL: c.baseURL + path, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &apperrors.HTTPError{
			Op:         "pvoutput " + method,
			URL:        c.baseURL + path,
			StatusCode: resp.StatusCode,
			Body:       string(payload),
		}
	}

	return string(payload), nil
}
