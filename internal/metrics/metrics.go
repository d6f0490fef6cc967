// Package metrics records the outcome of a relay run as Prometheus metrics.
//
// pvrelay exits after one cycle, so there is nothing to scrape. The
// recorded registry is exported either by pushing it to a Pushgateway or by
// writing it to a node_exporter textfile collector directory, whichever is
// configured.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/tejusbharadwaj/pvrelay/internal/config"
	"github.com/tejusbharadwaj/pvrelay/internal/models"
)

const namespace = "pvrelay"

// Recorder holds the metrics of one run.
type Recorder struct {
	registry *prometheus.Registry

	runSuccess   prometheus.Gauge
	runTimestamp prometheus.Gauge
	runDuration  prometheus.Gauge
	runError     *prometheus.GaugeVec
	lastSuccess  prometheus.Gauge

	totalEnergy prometheus.Gauge
	todayEnergy prometheus.Gauge
	power       prometheus.Gauge
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		runSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "Whether the last relay run succeeded (1) or failed (0)",
		}),
		runTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last relay run started",
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Duration of the last relay run",
		}),
		runError: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_error",
			Help:      "Set to 1 for the error kind that failed the last run",
		}, []string{"kind"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful relay run",
		}),
		totalEnergy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "inverter",
			Name:      "total_energy_kwh",
			Help:      "Lifetime energy generated as reported by the inverter",
		}),
		todayEnergy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "inverter",
			Name:      "today_energy_kwh",
			Help:      "Energy generated today as reported by the inverter",
		}),
		power: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "inverter",
			Name:      "power_watts",
			Help:      "Current output power as reported by the inverter",
		}),
	}

	r.registry.MustRegister(r.runSuccess, r.runTimestamp, r.runDuration, r.runError)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// ObserveStatus records the figures read from the inverter. The inverter
// gauges are only exported once a status has been observed.
func (r *Recorder) ObserveStatus(status models.InverterStatus) {
	r.registerOnce(r.totalEnergy, r.todayEnergy, r.power)
	r.totalEnergy.Set(status.TotalKWh())
	r.todayEnergy.Set(status.TodayKWh())
	r.power.Set(float64(status.CurrentWatt()))
}

// ObserveRun records the outcome of a run that started at start. errKind is
// empty on success.
func (r *Recorder) ObserveRun(start time.Time, duration time.Duration, errKind string) {
	r.runTimestamp.Set(float64(start.UnixNano()) / 1e9)
	r.runDuration.Set(duration.Seconds())

	if errKind == "" {
		r.runSuccess.Set(1)
		r.registerOnce(r.lastSuccess)
		r.lastSuccess.Set(float64(start.Add(duration).UnixNano()) / 1e9)
		return
	}

	r.runSuccess.Set(0)
	r.runError.WithLabelValues(errKind).Set(1)
}

func (r *Recorder) registerOnce(collectors ...prometheus.Collector) {
	for _, c := range collectors {
		if err := r.registry.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				panic(err)
			}
		}
	}
}

// Export pushes and/or writes the registry as configured. It is a no-op
// when neither a Pushgateway URL nor a textfile path is set.
func (r *Recorder) Export(ctx context.Context, cfg config.MetricsConfig) error {
	if cfg.PushgatewayURL != "" {
		if err := r.Push(ctx, cfg.PushgatewayURL, cfg.Job); err != nil {
			return err
		}
	}
	if cfg.TextfilePath != "" {
		if err := r.WriteTextfile(cfg.TextfilePath); err != nil {
			return err
		}
	}
	return nil
}

// Push adds the registry to a Pushgateway group for job. Metrics missing
// from this run, such as the last success time after a failure, keep their
// previous values on the gateway.
func (r *Recorder) Push(ctx context.Context, url, job string) error {
	if job == "" {
		job = namespace
	}
	if err := push.New(url, job).Gatherer(r.registry).AddContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}

// WriteTextfile writes the registry in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
