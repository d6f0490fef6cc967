package models

// InverterStatus holds the generation figures read from one inverter poll.
// It is built once through NewInverterStatus and never modified.
type InverterStatus struct {
	totalKWh    float64
	todayKWh    float64
	currentWatt int
}

// NewInverterStatus returns the status of a single poll.
func NewInverterStatus(totalKWh, todayKWh float64, currentWatt int) InverterStatus {
	return InverterStatus{
		totalKWh:    totalKWh,
		todayKWh:    todayKWh,
		currentWatt: currentWatt,
	}
}

// TotalKWh is the lifetime energy generated, in kWh.
func (s InverterStatus) TotalKWh() float64 { return s.totalKWh }

// TodayKWh is the energy generated since midnight, in kWh.
func (s InverterStatus) TodayKWh() float64 { return s.todayKWh }

// CurrentWatt is the instantaneous output power, in W.
func (s InverterStatus) CurrentWatt() int { return s.currentWatt }

// TotalWh converts the lifetime total to whole watt hours, truncating.
func (s InverterStatus) TotalWh() int { return int(s.totalKWh * 1000) }
