// Package inverter reads generation figures from the status page of an
// Omnik style solar inverter.
//
// The inverter's embedded web server publishes /js/status.js behind HTTP
// Basic auth. The script contains a JavaScript array assignment whose
// comma separated payload holds the current power and the daily and total
// energy counters. Which element means what depends on the firmware, so the
// layout is described by an ordered table of Profiles.
//
// Example usage:
//
//	client, err := inverter.NewClient(inverter.Config{
//	    IP:       "192.168.1.50",
//	    Username: "admin",
//	    Password: "admin",
//	})
//	if err != nil {
//	    return err
//	}
//	status, err := client.RetrieveStatus(ctx)
package inverter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tejusbharadwaj/pvrelay/internal/apperrors"
	"github.com/tejusbharadwaj/pvrelay/internal/models"
)

// StatusPath is the inverter page holding the device array.
const StatusPath = "/js/status.js"

const defaultTimeout = 30 * time.Second

// Config configures a Client. Profiles defaults to DefaultProfiles, and
// HTTPClient to a client with a fixed timeout.
type Config struct {
	IP         string
	Username   string
	Password   string
	Profiles   []Profile
	HTTPClient *http.Client
	Logger     *logrus.Logger
}

// Client polls a single inverter.
type Client struct {
	statusURL  string
	username   string
	password   string
	profiles   []Profile
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient validates cfg and returns a Client. It fails with a ConfigError
// when IP is not an IPv4 or IPv6 address literal.
func NewClient(cfg Config) (*Client, error) {
	host, err := hostFromIP(cfg.IP)
	if err != nil {
		return nil, err
	}

	profiles := cfg.Profiles
	if len(profiles) == 0 {
		profiles = DefaultProfiles()
	}
	for _, p := range profiles {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	return &Client{
		statusURL:  "http://" + host + StatusPath,
		username:   cfg.Username,
		password:   cfg.Password,
		profiles:   profiles,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

func hostFromIP(ip string) (string, error) {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "", apperrors.NewConfigError("INVERTER_IP", "invalid ip address %q", ip)
	}
	if addr.Zone() != "" {
		return "", apperrors.NewConfigError("INVERTER_IP", "zoned ip address %q is not supported", ip)
	}
	if addr.Is6() {
		return "[" + addr.String() + "]", nil
	}
	return addr.String(), nil
}

// StatusURL is the URL RetrieveStatus requests.
func (c *Client) StatusURL() string { return c.statusURL }

// RetrieveStatus fetches the status page and parses it with the first
// matching profile.
func (c *Client) RetrieveStatus(ctx context.Context) (models.InverterStatus, error) {
	body, err := c.fetch(ctx)
	if err != nil {
		return models.InverterStatus{}, err
	}
	return c.Parse(body)
}

// Parse extracts a status from a status page body. Profiles are tried in
// order; a profile whose marker is absent is skipped, while a profile whose
// marker is present but whose values are missing or malformed fails the
// parse.
func (c *Client) Parse(body string) (models.InverterStatus, error) {
	for _, p := range c.profiles {
		status, ok, err := p.parse(body)
		if err != nil {
			return models.InverterStatus{}, err
		}
		if !ok {
			c.logger.WithField("profile", p.Name).Debug("Profile marker not found")
			continue
		}

		c.logger.WithFields(logrus.Fields{
			"profile":      p.Name,
			"current_watt": status.CurrentWatt(),
			"today_kwh":    status.TodayKWh(),
			"total_kwh":    status.TotalKWh(),
		}).Debug("Parsed inverter status")
		return status, nil
	}

	return models.InverterStatus{}, &apperrors.ParseError{
		Msg: fmt.Sprintf("no profile matched the status response (tried %d)", len(c.profiles)),
	}
}

func (c *Client) fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.statusURL, nil)
	if err != nil {
		return "", &apperrors.HTTPError{Op: "inverter status", URL: c.statusURL, Err: err}
	}
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &apperrors.HTTPError{Op: "inverter status", URL: c.statusURL, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &apperrors.HTTPError{Op: "inverter status", URL: c.statusURL, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &apperrors.HTTPError{
			Op:         "inverter status",
			URL:        c.statusURL,
			StatusCode: resp.StatusCode,
			Body:       string(payload),
		}
	}

	return string(payload), nil
}
