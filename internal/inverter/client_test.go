package inverter

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejusbharadwaj/pvrelay/internal/apperrors"
)

const statusJS = `var version="V5.04Build230";
var m2mMid="602000000";
myDeviceArray[0]="NLDN2020123456,V5.04,V4.11,omnik2000tl,2000,123,4567,89012,,1,";
var webData="NLDN2020123456,V5.04,V4.11,omnik2000tl,2000,123,4567,89012,,1,";
`

// MockRoundTripper is a mock implementation of http.RoundTripper.
type MockRoundTripper struct {
	Handler func(req *http.Request) (*http.Response, error)
}

func (m *MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.Handler(req)
}

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
		Header:     make(http.Header),
	}
}

func newTestClient(t *testing.T, handler func(req *http.Request) (*http.Response, error), profiles ...Profile) *Client {
	t.Helper()
	client, err := NewClient(Config{
		IP:         "192.168.1.50",
		Username:   "admin",
		Password:   "secret",
		Profiles:   profiles,
		HTTPClient: &http.Client{Transport: &MockRoundTripper{Handler: handler}},
	})
	require.NoError(t, err)
	return client
}

func TestNewClientIPValidation(t *testing.T) {
	tests := []struct {
		name    string
		ip      string
		wantURL string
		wantErr bool
	}{
		{name: "ipv4", ip: "192.168.1.50", wantURL: "http://192.168.1.50/js/status.js"},
		{name: "ipv4 zero", ip: "0.0.0.0", wantURL: "http://0.0.0.0/js/status.js"},
		{name: "ipv6", ip: "fd00::10", wantURL: "http://[fd00::10]/js/status.js"},
		{name: "ipv6 loopback", ip: "::1", wantURL: "http://[::1]/js/status.js"},
		{name: "ipv6 full", ip: "2001:0db8:0000:0000:0000:0000:0000:0001", wantURL: "http://[2001:db8::1]/js/status.js"},
		{name: "out of range octet", ip: "999.1.1.1", wantErr: true},
		{name: "hostname", ip: "not-an-ip", wantErr: true},
		{name: "empty", ip: "", wantErr: true},
		{name: "with port", ip: "192.168.1.50:80", wantErr: true},
		{name: "zoned", ip: "fe80::1%eth0", wantErr: true},
		{name: "short ipv4", ip: "10.1.1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(Config{IP: tt.ip, Username: "admin", Password: "admin"})
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, client)
				assert.True(t, errors.Is(err, apperrors.ErrConfig), "want config error, got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, client.StatusURL())
		})
	}
}

func TestNewClientRejectsInvalidProfile(t *testing.T) {
	_, err := NewClient(Config{
		IP:       "192.168.1.50",
		Profiles: []Profile{{Name: "broken", Marker: "x=\"", CurrentPower: Field{Index: 1, Divisor: 0}}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConfig))
}

func TestRetrieveStatus(t *testing.T) {
	var gotReq *http.Request
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		gotReq = req
		return response(http.StatusOK, statusJS), nil
	})

	status, err := client.RetrieveStatus(context.Background())
	require.NoError(t, err)

	require.NotNil(t, gotReq)
	assert.Equal(t, http.MethodGet, gotReq.Method)
	assert.Equal(t, "http://192.168.1.50/js/status.js", gotReq.URL.String())
	user, pass, ok := gotReq.BasicAuth()
	require.True(t, ok, "expected basic auth")
	assert.Equal(t, "admin", user)
	assert.Equal(t, "secret", pass)

	assert.Equal(t, 123, status.CurrentWatt())
	assert.InDelta(t, 45.67, status.TodayKWh(), 1e-9)
	assert.InDelta(t, 8901.2, status.TotalKWh(), 1e-9)
}

func TestRetrieveStatusHTTPErrors(t *testing.T) {
	t.Run("non 200 status", func(t *testing.T) {
		client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
			return response(http.StatusUnauthorized, "401 Unauthorized"), nil
		})

		_, err := client.RetrieveStatus(context.Background())
		require.Error(t, err)

		var httpErr *apperrors.HTTPError
		require.True(t, errors.As(err, &httpErr))
		assert.Equal(t, http.StatusUnauthorized, httpErr.StatusCode)
		assert.Equal(t, "401 Unauthorized", httpErr.Body)
	})

	t.Run("transport failure", func(t *testing.T) {
		client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
			return nil, errors.New("no route to host")
		})

		_, err := client.RetrieveStatus(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrHTTP))
		assert.Contains(t, err.Error(), "no route to host")
	})
}

func TestParse(t *testing.T) {
	client := newTestClient(t, nil)

	tests := []struct {
		name        string
		body        string
		wantWatt    int
		wantToday   float64
		wantTotal   float64
		wantErr     bool
		errContains string
	}{
		{
			name:      "marker present",
			body:      `...myDeviceArray[0]="0,0,0,0,0,123,4567,89012,0"...`,
			wantWatt:  123,
			wantToday: 45.67,
			wantTotal: 8901.2,
		},
		{
			name:      "surrounding whitespace",
			body:      `myDeviceArray[0]="a,b,c,d,e, 50 , 10 ,7"`,
			wantWatt:  50,
			wantToday: 0.1,
			wantTotal: 0.7,
		},
		{
			name:        "marker absent",
			body:        `var webData="0,0,0,0,0,123,4567,89012,0";`,
			wantErr:     true,
			errContains: "no profile matched",
		},
		{
			name:        "closing quote absent",
			body:        `myDeviceArray[0]="0,0,0,0,0,123,4567,89012,0`,
			wantErr:     true,
			errContains: "no profile matched",
		},
		{
			name:        "too few values",
			body:        `myDeviceArray[0]="0,0,0,0,0,123,4567"`,
			wantErr:     true,
			errContains: "total energy not found at index 7 (7 values)",
		},
		{
			name:        "non numeric value",
			body:        `myDeviceArray[0]="0,0,0,0,0,abc,4567,89012"`,
			wantErr:     true,
			errContains: `current power value "abc" is not a number`,
		},
		{
			name:        "empty value",
			body:        `myDeviceArray[0]="0,0,0,0,0,123,,89012"`,
			wantErr:     true,
			errContains: `daily energy value "" is not a number`,
		},
		{
			name:        "negative value",
			body:        `myDeviceArray[0]="0,0,0,0,0,-5,4567,89012"`,
			wantErr:     true,
			errContains: `current power value "-5" is negative`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, err := client.Parse(tt.body)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, apperrors.ErrParse), "want parse error, got %v", err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantWatt, status.CurrentWatt())
			assert.InDelta(t, tt.wantToday, status.TodayKWh(), 1e-9)
			assert.InDelta(t, tt.wantTotal, status.TotalKWh(), 1e-9)
		})
	}
}

func TestParseFallsThroughProfiles(t *testing.T) {
	webData := Profile{
		Name:         "webdata",
		Marker:       `webData="`,
		CurrentPower: Field{Index: 5, Divisor: 1},
		DailyEnergy:  Field{Index: 6, Divisor: 100},
		TotalEnergy:  Field{Index: 7, Divisor: 10},
	}
	profiles := append(DefaultProfiles(), webData)
	client := newTestClient(t, nil, profiles...)

	status, err := client.Parse(`var webData="x,x,x,x,x,900,1200,55555,,";`)
	require.NoError(t, err)
	assert.Equal(t, 900, status.CurrentWatt())
	assert.InDelta(t, 12.0, status.TodayKWh(), 1e-9)
	assert.InDelta(t, 5555.5, status.TotalKWh(), 1e-9)

	// A matched profile with a missing index does not fall through.
	_, err = client.Parse(`myDeviceArray[0]="1,2";var webData="x,x,x,x,x,900,1200,55555";`)
	require.Error(t, err)
	var parseErr *apperrors.ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "omnik", parseErr.Profile)
}

func TestLoadProfiles(t *testing.T) {
	dir := t.TempDir()

	valid := filepath.Join(dir, "profiles.yaml")
	require.NoError(t, os.WriteFile(valid, []byte(`
profiles:
  - name: omnik-webdata
    marker: 'webData="'
    current_power: {index: 5, divisor: 1}
    daily_energy: {index: 6, divisor: 100}
    total_energy: {index: 7, divisor: 10}
`), 0644))

	profiles, err := LoadProfiles(valid)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, Profile{
		Name:         "omnik-webdata",
		Marker:       `webData="`,
		CurrentPower: Field{Index: 5, Divisor: 1},
		DailyEnergy:  Field{Index: 6, Divisor: 100},
		TotalEnergy:  Field{Index: 7, Divisor: 10},
	}, profiles[0])

	tests := []struct {
		name       string
		content    string
		errMessage string
	}{
		{
			name:       "empty list",
			content:    "profiles: []\n",
			errMessage: "no profiles defined",
		},
		{
			name: "missing marker",
			content: `profiles:
  - name: nomarker
    current_power: {index: 5, divisor: 1}
    daily_energy: {index: 6, divisor: 100}
    total_energy: {index: 7, divisor: 10}
`,
			errMessage: "invalid configuration: profile nomarker: marker is required",
		},
		{
			name: "zero divisor",
			content: `profiles:
  - name: nodivisor
    marker: 'x="'
    current_power: {index: 5}
    daily_energy: {index: 6, divisor: 100}
    total_energy: {index: 7, divisor: 10}
`,
			errMessage: "invalid configuration: profile nodivisor: current_power divisor must be positive",
		},
		{
			name:       "not yaml",
			content:    "profiles: [",
			errMessage: "failed to unmarshal profiles",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "profiles.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			_, err := LoadProfiles(path)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrConfig))
			assert.Contains(t, err.Error(), tt.errMessage)
		})
	}

	_, err = LoadProfiles(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConfig))
}
