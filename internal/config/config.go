package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/tejusbharadwaj/pvrelay/internal/apperrors"
)

// EnvFileVar names the environment variable that overrides the .env path.
const EnvFileVar = "PVRELAY_ENV_FILE"

// DefaultEnvFile is read from the working directory when present.
const DefaultEnvFile = ".env"

// Config holds all configuration for one relay run
type Config struct {
	Inverter InverterConfig
	PVOutput PVOutputConfig
	Logging  LoggingConfig
	Metrics  MetricsConfig
	HTTP     HTTPConfig
}

type InverterConfig struct {
	IP           string
	Username     string
	Password     string
	ProfilesFile string
}

type PVOutputConfig struct {
	BaseURL   string
	APIKey    string
	SystemID  string
	SendPower bool
}

type LoggingConfig struct {
	Level  string
	Format string
}

type MetricsConfig struct {
	PushgatewayURL string
	Job            string
	TextfilePath   string
}

type HTTPConfig struct {
	Timeout time.Duration
}

var requiredKeys = []string{
	"INVERTER_IP",
	"INVERTER_USERNAME",
	"INVERTER_PASSWORD",
	"PVOUTPUT_API_KEY",
	"PVOUTPUT_SYSTEM_ID",
}

// EnvFilePath returns the .env path to load.
func EnvFilePath() string {
	if p := os.Getenv(EnvFileVar); p != "" {
		return p
	}
	return DefaultEnvFile
}

// Load reads configuration from an optional dotenv file and the process
// environment. Environment variables take precedence over the file. A
// missing file is not an error; a missing required key is.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return nil, apperrors.NewConfigError(path, "failed to read env file: %v", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.NewConfigError(path, "failed to stat env file: %v", err)
		}
	}

	var missing []string
	for _, key := range requiredKeys {
		if strings.TrimSpace(v.GetString(key)) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.NewConfigError(strings.Join(missing, ", "), "required variable not set")
	}

	timeout, err := parseDuration(v.GetString("HTTP_TIMEOUT"))
	if err != nil {
		return nil, apperrors.NewConfigError("HTTP_TIMEOUT", "%v", err)
	}

	sendPower, err := parseBool(v.GetString("PVOUTPUT_SEND_POWER"))
	if err != nil {
		return nil, apperrors.NewConfigError("PVOUTPUT_SEND_POWER", "%v", err)
	}

	cfg := &Config{
		Inverter: InverterConfig{
			IP:           strings.TrimSpace(v.GetString("INVERTER_IP")),
			Username:     v.GetString("INVERTER_USERNAME"),
			Password:     v.GetString("INVERTER_PASSWORD"),
			ProfilesFile: v.GetString("INVERTER_PROFILES_FILE"),
		},
		PVOutput: PVOutputConfig{
			BaseURL:   strings.TrimRight(v.GetString("PVOUTPUT_BASE_URL"), "/"),
			APIKey:    v.GetString("PVOUTPUT_API_KEY"),
			SystemID:  v.GetString("PVOUTPUT_SYSTEM_ID"),
			SendPower: sendPower,
		},
		Logging: LoggingConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Metrics: MetricsConfig{
			PushgatewayURL: v.GetString("METRICS_PUSHGATEWAY_URL"),
			Job:            v.GetString("METRICS_JOB"),
			TextfilePath:   v.GetString("METRICS_TEXTFILE_PATH"),
		},
		HTTP: HTTPConfig{
			Timeout: timeout,
		},
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PVOUTPUT_BASE_URL", "https://pvoutput.org")
	v.SetDefault("PVOUTPUT_SEND_POWER", "false")

	v.SetDefault("HTTP_TIMEOUT", "30s")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("METRICS_JOB", "pvrelay")
}

func parseDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", d)
	}
	return d, nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "0", "false", "no", "off":
		return false, nil
	case "1", "true", "yes", "on":
		return true, nil
	default:
		return false, fmt.Errorf("invalid boolean %q", s)
	}
}
