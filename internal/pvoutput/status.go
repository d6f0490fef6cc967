package pvoutput

import (
	"net/url"
	"strconv"
	"time"

	"github.com/tejusbharadwaj/pvrelay/internal/apperrors"
	"github.com/tejusbharadwaj/pvrelay/internal/models"
)

// CumulativeFlag tells PVOutput how to interpret the energy values.
type CumulativeFlag int

const (
	// CumulativeLifetime marks both generation and consumption as lifetime totals.
	CumulativeLifetime CumulativeFlag = 1
	// CumulativeGenerationLifetime marks only generation as a lifetime total.
	CumulativeGenerationLifetime CumulativeFlag = 2
	// CumulativeConsumptionLifetime marks only consumption as a lifetime total.
	CumulativeConsumptionLifetime CumulativeFlag = 3
)

func (f CumulativeFlag) Valid() bool {
	return f >= CumulativeLifetime && f <= CumulativeConsumptionLifetime
}

// Status is one addstatus submission. Only DateTime is required; every other
// field is sent only when set.
type Status struct {
	dateTime         time.Time
	energyGeneration models.Optional[int]
	powerGeneration  models.Optional[int]
	temperature      models.Optional[float64]
	voltage          models.Optional[float64]
	cumulativeFlag   models.Optional[CumulativeFlag]
}

// NewStatus returns a status for dateTime with no optional fields set.
func NewStatus(dateTime time.Time) *Status {
	return &Status{dateTime: dateTime}
}

func (s *Status) DateTime() time.Time { return s.dateTime }

// SetEnergyGeneration sets the energy generated, in Wh.
func (s *Status) SetEnergyGeneration(wattHours int) {
	s.energyGeneration = models.Some(wattHours)
}

// EnergyGeneration returns the energy generated in Wh. It panics when unset.
func (s *Status) EnergyGeneration() int { return s.energyGeneration.MustGet() }

func (s *Status) HasEnergyGeneration() bool { return s.energyGeneration.IsSet() }

// SetPowerGeneration sets the generation power, in W.
func (s *Status) SetPowerGeneration(watts int) {
	s.powerGeneration = models.Some(watts)
}

// PowerGeneration returns the generation power in W. It panics when unset.
func (s *Status) PowerGeneration() int { return s.powerGeneration.MustGet() }

func (s *Status) HasPowerGeneration() bool { return s.powerGeneration.IsSet() }

// SetTemperature sets the temperature, in degrees Celsius.
func (s *Status) SetTemperature(celsius float64) {
	s.temperature = models.Some(celsius)
}

// Temperature returns the temperature in °C. It panics when unset.
func (s *Status) Temperature() float64 { return s.temperature.MustGet() }

func (s *Status) HasTemperature() bool { return s.temperature.IsSet() }

// SetVoltage sets the voltage, in V.
func (s *Status) SetVoltage(volts float64) {
	s.voltage = models.Some(volts)
}

// Voltage returns the voltage in V. It panics when unset.
func (s *Status) Voltage() float64 { return s.voltage.MustGet() }

func (s *Status) HasVoltage() bool { return s.voltage.IsSet() }

// SetCumulativeFlag sets the cumulative flag. Values outside 1-3 are rejected.
func (s *Status) SetCumulativeFlag(flag CumulativeFlag) error {
	if !flag.Valid() {
		return apperrors.NewConfigError("cumulative flag", "invalid flag %d", int(flag))
	}
	s.cumulativeFlag = models.Some(flag)
	return nil
}

// ClearCumulativeFlag removes the cumulative flag.
func (s *Status) ClearCumulativeFlag() {
	s.cumulativeFlag = models.None[CumulativeFlag]()
}

// CumulativeFlag returns the cumulative flag. It panics when unset.
func (s *Status) CumulativeFlag() CumulativeFlag { return s.cumulativeFlag.MustGet() }

func (s *Status) HasCumulativeFlag() bool { return s.cumulativeFlag.IsSet() }

// Values encodes the status with PVOutput's parameter names. Unset fields
// are omitted.
func (s *Status) Values() url.Values {
	values := url.Values{
		"d": {s.dateTime.Format("20060102")},
		"t": {s.dateTime.Format("15:04")},
	}

	if v, ok := s.energyGeneration.Get(); ok {
		values.Set("v1", strconv.Itoa(v))
	}
	if v, ok := s.powerGeneration.Get(); ok {
		values.Set("v2", strconv.Itoa(v))
	}
	if v, ok := s.temperature.Get(); ok {
		values.Set("v5", strconv.FormatFloat(v, 'f', -1, 64))
	}
	if v, ok := s.voltage.Get(); ok {
		values.Set("v6", strconv.FormatFloat(v, 'f', -1, 64))
	}
	if v, ok := s.cumulativeFlag.Get(); ok {
		values.Set("c1", strconv.Itoa(int(v)))
	}

	return values
}
