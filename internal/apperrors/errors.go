// Package apperrors defines the error kinds that flow from the inverter and
// PVOutput clients up to the command boundary.
//
// Every error produced by pvrelay belongs to one of three kinds:
//   - config: missing or invalid input (environment, IP address, method, flag value)
//   - http:   a request failed or returned a non-200 status
//   - parse:  the inverter response did not contain the expected data
//
// Callers match kinds with errors.Is against the sentinels, or extract the
// typed error with errors.As when they need the details (status code, body).
package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfig = errors.New("configuration error")
	ErrHTTP   = errors.New("http error")
	ErrParse  = errors.New("parse error")
)

// Process exit codes per error kind.
const (
	ExitOK      = 0
	ExitUnknown = 1
	ExitConfig  = 2
	ExitHTTP    = 3
	ExitParse   = 4
)

// ConfigError reports bad or missing input.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "invalid configuration: " + e.Msg
	}
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Msg)
}

func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

// NewConfigError builds a ConfigError for field.
func NewConfigError(field, format string, args ...any) error {
	return &ConfigError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// HTTPError reports a failed request. StatusCode is zero when no response
// was received at all.
type HTTPError struct {
	Op         string
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *HTTPError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": unexpected status code %d from %s", e.StatusCode, e.URL)
		if body := strings.TrimSpace(e.Body); body != "" {
			fmt.Fprintf(&b, ", body: %s", body)
		}
	} else {
		fmt.Fprintf(&b, ": request %s failed", e.URL)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *HTTPError) Is(target error) bool { return target == ErrHTTP }

func (e *HTTPError) Unwrap() error { return e.Err }

// ParseError reports missing or malformed data in an inverter response.
type ParseError struct {
	Profile string
	Msg     string
}

func (e *ParseError) Error() string {
	if e.Profile == "" {
		return "parse inverter status: " + e.Msg
	}
	return fmt.Sprintf("parse inverter status (profile %s): %s", e.Profile, e.Msg)
}

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// Kind names the error kind of err for logging.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfig):
		return "config"
	case errors.Is(err, ErrHTTP):
		return "http"
	case errors.Is(err, ErrParse):
		return "parse"
	default:
		return "unknown"
	}
}

// ExitCode maps err to the process exit code.
func ExitCode(err error) int {
	switch Kind(err) {
	case "":
		return ExitOK
	case "config":
		return ExitConfig
	case "http":
		return ExitHTTP
	case "parse":
		return ExitParse
	default:
		return ExitUnknown
	}
}
