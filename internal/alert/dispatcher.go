package alert

import (
	"github.com/searchlight-sar/scanner/pkg/types"
)

// Dispatcher fans one detection event out to every alert side effect.
// Either component may be nil when its hardware is absent.
type Dispatcher struct {
	sounder *Sounder
	led     *LED
}

// NewDispatcher bundles the configured alert outputs.
func NewDispatcher(sounder *Sounder, led *LED) *Dispatcher {
	return &Dispatcher{sounder: sounder, led: led}
}

// Start brings up the alert workers.
func (d *Dispatcher) Start() {
	if d.sounder != nil {
		d.sounder.Start()
	}
	if d.led != nil {
		d.led.Start()
	}
}

// Stop tears the alert workers down, joining each.
func (d *Dispatcher) Stop() {
	if d.sounder != nil {
		d.sounder.Stop()
	}
	if d.led != nil {
		d.led.Stop()
	}
}

// Notify fires all alert outputs for a detection event. Fire-and-forget:
// returns immediately, no result.
func (d *Dispatcher) Notify(detections []types.Detection) {
	if len(detections) == 0 {
		return
	}
	if d.sounder != nil {
		d.sounder.Notify(detections)
	}
	if d.led != nil {
		d.led.Flash()
	}
}
