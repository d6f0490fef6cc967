// Package relay runs one poll-and-forward cycle: read the inverter, map the
// reading onto a PVOutput status and submit it.
package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tejusbharadwaj/pvrelay/internal/apperrors"
	"github.com/tejusbharadwaj/pvrelay/internal/metrics"
	"github.com/tejusbharadwaj/pvrelay/internal/models"
	"github.com/tejusbharadwaj/pvrelay/internal/pvoutput"
)

// StatusReader reads the current inverter status.
type StatusReader interface {
	RetrieveStatus(ctx context.Context) (models.InverterStatus, error)
}

// StatusSender submits a status to PVOutput.
type StatusSender interface {
	AddStatus(ctx context.Context, status *pvoutput.Status) error
}

type Options struct {
	// SendPower also submits the inverter's current power as v2.
	SendPower bool
	// Now defaults to time.Now.
	Now func() time.Time
}

// Result describes a completed run.
type Result struct {
	RunID    string
	Inverter models.InverterStatus
	Output   *pvoutput.Status
	Duration time.Duration
}

type Relay struct {
	reader   StatusReader
	sender   StatusSender
	logger   *logrus.Logger
	recorder *metrics.Recorder
	opts     Options
}

// New returns a Relay. recorder may be nil.
func New(reader StatusReader, sender StatusSender, logger *logrus.Logger, recorder *metrics.Recorder, opts Options) *Relay {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Relay{
		reader:   reader,
		sender:   sender,
		logger:   logger,
		recorder: recorder,
		opts:     opts,
	}
}

// Run performs one cycle. Any error aborts the cycle and is returned
// unchanged in kind.
func (r *Relay) Run(ctx context.Context) (Result, error) {
	ctx, runID := WithRunID(ctx)
	start := r.opts.Now()
	log := r.logger.WithField("run_id", runID)

	result, err := r.run(ctx, log, start)
	result.RunID = runID
	result.Duration = r.opts.Now().Sub(start)

	if r.recorder != nil {
		r.recorder.ObserveRun(start, result.Duration, apperrors.Kind(err))
	}

	if err != nil {
		log.WithFields(logrus.Fields{
			"error_kind": apperrors.Kind(err),
			"duration":   result.Duration.String(),
		}).WithError(err).Error("Relay run failed")
		return result, err
	}

	log.WithFields(logrus.Fields{
		"energy_generation_wh": result.Output.EnergyGeneration(),
		"duration":             result.Duration.String(),
	}).Info("Relay run completed")
	return result, nil
}

func (r *Relay) run(ctx context.Context, log *logrus.Entry, start time.Time) (Result, error) {
	log.Debug("Retrieving inverter status")
	status, err := r.reader.RetrieveStatus(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("retrieve inverter status: %w", err)
	}
	if r.recorder != nil {
		r.recorder.ObserveStatus(status)
	}

	log.WithFields(logrus.Fields{
		"total_kwh":    status.TotalKWh(),
		"today_kwh":    status.TodayKWh(),
		"current_watt": status.CurrentWatt(),
	}).Info("Retrieved inverter status")

	output, err := MapStatus(status, start, r.opts.SendPower)
	if err != nil {
		return Result{Inverter: status}, err
	}

	if err := r.sender.AddStatus(ctx, output); err != nil {
		return Result{Inverter: status, Output: output}, fmt.Errorf("add pvoutput status: %w", err)
	}

	return Result{Inverter: status, Output: output}, nil
}

// MapStatus converts an inverter reading taken at `at` into a PVOutput
// status: the lifetime total in whole Wh, flagged as a lifetime value.
func MapStatus(status models.InverterStatus, at time.Time, sendPower bool) (*pvoutput.Status, error) {
	output := pvoutput.NewStatus(at)
	output.SetEnergyGeneration(status.TotalWh())
	if err := output.SetCumulativeFlag(pvoutput.CumulativeLifetime); err != nil {
		return nil, err
	}
	if sendPower {
		output.SetPowerGeneration(status.CurrentWatt())
	}
	return output, nil
}
