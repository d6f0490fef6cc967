package inverter

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tejusbharadwaj/pvrelay/internal/apperrors"
	"github.com/tejusbharadwaj/pvrelay/internal/models"
)

// Field locates one value in the comma separated device array and scales
// it to physical units.
type Field struct {
	Index   int     `yaml:"index"`
	Divisor float64 `yaml:"divisor"`
}

// Profile is the parsing rule set for one inverter firmware variant.
//
// The status page assigns a JavaScript string literal such as
//
//	myDeviceArray[0]="NLDN...,V5.04,V4.11,omnik2000tl,2000,123,4567,89012,,1,"
//
// Marker is the text up to and including the opening quote; the value runs
// to the next double quote.
type Profile struct {
	Name         string `yaml:"name"`
	Marker       string `yaml:"marker"`
	CurrentPower Field  `yaml:"current_power"`
	DailyEnergy  Field  `yaml:"daily_energy"`
	TotalEnergy  Field  `yaml:"total_energy"`
}

// DefaultProfiles returns the built-in profile table.
func DefaultProfiles() []Profile {
	return []Profile{
		{
			Name:         "omnik",
			Marker:       `myDeviceArray[0]="`,
			CurrentPower: Field{Index: 5, Divisor: 1},
			DailyEnergy:  Field{Index: 6, Divisor: 100},
			TotalEnergy:  Field{Index: 7, Divisor: 10},
		},
	}
}

// Validate checks that p can be used for parsing.
func (p Profile) Validate() error {
	if p.Name == "" {
		return apperrors.NewConfigError("profile", "name is required")
	}
	if p.Marker == "" {
		return apperrors.NewConfigError("profile "+p.Name, "marker is required")
	}
	fields := []struct {
		name string
		f    Field
	}{
		{"current_power", p.CurrentPower},
		{"daily_energy", p.DailyEnergy},
		{"total_energy", p.TotalEnergy},
	}
	for _, field := range fields {
		if field.f.Index < 0 {
			return apperrors.NewConfigError("profile "+p.Name, "%s index must not be negative", field.name)
		}
		if field.f.Divisor <= 0 {
			return apperrors.NewConfigError("profile "+p.Name, "%s divisor must be positive", field.name)
		}
	}
	return nil
}

type profileFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// LoadProfiles reads additional profiles from a YAML file:
//
//	profiles:
//	  - name: omnik-v2
//	    marker: 'webData="'
//	    current_power: {index: 5, divisor: 1}
//	    daily_energy: {index: 6, divisor: 100}
//	    total_energy: {index: 7, divisor: 10}
func LoadProfiles(path string) ([]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewConfigError(path, "failed to read profiles file: %v", err)
	}

	var file profileFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, apperrors.NewConfigError(path, "failed to unmarshal profiles: %v", err)
	}
	if len(file.Profiles) == 0 {
		return nil, apperrors.NewConfigError(path, "no profiles defined")
	}

	for _, p := range file.Profiles {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}

	return file.Profiles, nil
}

// parse applies p to body. ok is false when the marker or its closing quote
// is absent, so the next profile should be tried. Any other failure is a
// ParseError.
func (p Profile) parse(body string) (status models.InverterStatus, ok bool, err error) {
	pos := strings.Index(body, p.Marker)
	if pos < 0 {
		return models.InverterStatus{}, false, nil
	}
	start := pos + len(p.Marker)
	end := strings.IndexByte(body[start:], '"')
	if end < 0 {
		return models.InverterStatus{}, false, nil
	}

	values := strings.Split(body[start:start+end], ",")

	power, err := p.value(values, "current power", p.CurrentPower)
	if err != nil {
		return models.InverterStatus{}, true, err
	}
	total, err := p.value(values, "total energy", p.TotalEnergy)
	if err != nil {
		return models.InverterStatus{}, true, err
	}
	daily, err := p.value(values, "daily energy", p.DailyEnergy)
	if err != nil {
		return models.InverterStatus{}, true, err
	}

	return models.NewInverterStatus(total, daily, int(power)), true, nil
}

func (p Profile) value(values []string, name string, f Field) (float64, error) {
	if f.Index < 0 || f.Index >= len(values) {
		return 0, &apperrors.ParseError{
			Profile: p.Name,
			Msg:     fmt.Sprintf("%s not found at index %d (%d values)", name, f.Index, len(values)),
		}
	}
	raw := strings.TrimSpace(values[f.Index])
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &apperrors.ParseError{
			Profile: p.Name,
			Msg:     fmt.Sprintf("%s value %q is not a number", name, raw),
		}
	}
	if v < 0 {
		return 0, &apperrors.ParseError{
			Profile: p.Name,
			Msg:     fmt.Sprintf("%s value %q is negative", name, raw),
		}
	}
	return v / f.Divisor, nil
}
