package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tejusbharadwaj/pvrelay/internal/apperrors"
	"github.com/tejusbharadwaj/pvrelay/internal/config"
	"github.com/tejusbharadwaj/pvrelay/internal/inverter"
	"github.com/tejusbharadwaj/pvrelay/internal/logging"
	"github.com/tejusbharadwaj/pvrelay/internal/metrics"
	"github.com/tejusbharadwaj/pvrelay/internal/pvoutput"
	"github.com/tejusbharadwaj/pvrelay/internal/relay"
)

// Command pvrelay reads the generation counters of a solar inverter and
// submits them to PVOutput.
//
// Each invocation performs a single poll-and-forward cycle and is meant to
// be run periodically by cron or a systemd timer. Configuration comes from
// the environment, optionally seeded from a .env file (see PVRELAY_ENV_FILE):
//
//	INVERTER_IP             inverter address (IPv4 or IPv6 literal)
//	INVERTER_USERNAME       status page user
//	INVERTER_PASSWORD       status page password
//	PVOUTPUT_API_KEY        PVOutput API key
//	PVOUTPUT_SYSTEM_ID      PVOutput system id
//
// One line is written to stdout describing the outcome. The exit status is
// 0 on success, 2 for configuration errors, 3 for HTTP errors, 4 when the
// inverter response could not be parsed and 1 otherwise.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Stdout)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, stdout io.Writer) int {
	err := relayOnce(ctx)
	fmt.Fprintln(stdout, resultLine(time.Now(), err))
	return apperrors.ExitCode(err)
}

func resultLine(now time.Time, err error) string {
	stamp := now.Format("2006-01-02 15:04:05")
	if err != nil {
		return fmt.Sprintf("%s: Error sending energy generation to PVoutput; %v", stamp, err)
	}
	return fmt.Sprintf("%s: Successfully sent energy generation to PVoutput", stamp)
}

func relayOnce(ctx context.Context) error {
	// Load configuration
	appConfig, err := config.Load(config.EnvFilePath())
	if err != nil {
		return err
	}

	// Initialize structured logger
	logger, err := logging.New(appConfig.Logging)
	if err != nil {
		return err
	}

	profiles, err := loadProfiles(appConfig.Inverter.ProfilesFile)
	if err != nil {
		return err
	}

	httpClient := &http.Client{Timeout: appConfig.HTTP.Timeout}

	inverterClient, err := inverter.NewClient(inverter.Config{
		IP:         appConfig.Inverter.IP,
		Username:   appConfig.Inverter.Username,
		Password:   appConfig.Inverter.Password,
		Profiles:   profiles,
		HTTPClient: httpClient,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	pvClient := pvoutput.NewClient(pvoutput.Config{
		BaseURL:    appConfig.PVOutput.BaseURL,
		APIKey:     appConfig.PVOutput.APIKey,
		SystemID:   appConfig.PVOutput.SystemID,
		HTTPClient: httpClient,
	})

	logger.WithFields(logrus.Fields{
		"inverter_url": inverterClient.StatusURL(),
		"system_id":    appConfig.PVOutput.SystemID,
		"profiles":     len(profiles),
	}).Debug("Starting relay run")

	recorder := metrics.NewRecorder()
	r := relay.New(inverterClient, pvClient, logger, recorder, relay.Options{
		SendPower: appConfig.PVOutput.SendPower,
	})

	_, runErr := r.Run(ctx)

	if err := recorder.Export(ctx, appConfig.Metrics); err != nil {
		logger.WithError(err).Warn("Failed to export metrics")
	}

	return runErr
}

// loadProfiles returns the profiles from path followed by the built-in
// ones. An empty path yields nil, which selects the built-in table.
func loadProfiles(path string) ([]inverter.Profile, error) {
	if path == "" {
		return nil, nil
	}
	loaded, err := inverter.LoadProfiles(path)
	if err != nil {
		return nil, err
	}
	return append(loaded, inverter.DefaultProfiles()...), nil
}
