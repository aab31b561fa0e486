// Package gps maintains the best available estimate of position, altitude,
// ground speed, and bearing from a serial NMEA receiver that may be absent
// or intermittent.
package gps

import (
	"errors"
	"sync"
	"time"

	"github.com/searchlight-sar/scanner/internal/logger"
	"github.com/searchlight-sar/scanner/internal/metrics"
	"github.com/searchlight-sar/scanner/pkg/types"
)

// ErrNoFix is returned by Coordinates before any valid fix has been seen.
var ErrNoFix = errors.New("gps: no valid fix obtained yet")

// DefaultPollInterval is how often the engine reads the device.
const DefaultPollInterval = time.Second

// Engine owns the background polling loop and the latest derived readings.
// All getters are non-blocking snapshot reads.
type Engine struct {
	device   Device // nil when no hardware was found
	interval time.Duration
	metrics  *metrics.Metrics
	now      func() time.Time

	mu         sync.Mutex
	running    bool
	stopCh     chan struct{}
	wg         sync.WaitGroup
	current    *types.GpsFix
	previous   *types.GpsFix
	altitude   *float64
	speed      *float64
	bearing    *float64
	lastUpdate time.Time // zero until the first successful update
}

// NewEngine creates an engine polling device at interval. A nil device is
// allowed: the engine runs disconnected and every getter reports absence.
// interval <= 0 selects DefaultPollInterval; m may be nil.
func NewEngine(device Device, interval time.Duration, m *metrics.Metrics) *Engine {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if device == nil {
		logger.Warn("GPS", "No GPS device connected, running without position data")
	}
	return &Engine{
		device:   device,
		interval: interval,
		metrics:  m,
		now:      time.Now,
	}
}

// Start begins the background polling loop. Calling Start on a running
// engine is a no-op.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return
	}
	e.running = true
	e.stopCh = make(chan struct{})
	e.wg.Add(1)
	go e.loop(e.stopCh)
	logger.Info("GPS", "Engine started (poll interval %s)", e.interval)
}

// Stop signals the loop to exit and blocks until the worker goroutine has
// fully terminated, then closes the device. No reads occur after return.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	close(e.stopCh)
	e.mu.Unlock()

	e.wg.Wait()

	if e.device != nil {
		if err := e.device.Close(); err != nil {
			logger.Warn("GPS", "Closing device: %v", err)
		}
	}
	logger.Info("GPS", "Engine stopped")
}

func (e *Engine) loop(stop <-chan struct{}) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			e.pollOnce()
		}
	}
}

// pollOnce reads and applies one sentence. A fault here must never take the
// loop down, so panics are contained to the cycle.
func (e *Engine) pollOnce() {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("GPS", "Recovered from poll fault: %v", r)
		}
	}()

	if e.device == nil {
		return
	}

	raw, err := e.device.ReadSentence()
	if err != nil {
		logger.Debug("GPS", "Read: %v", err)
		return
	}

	reading, err := parseGGA(raw)
	if err != nil {
		if e.metrics != nil {
			e.metrics.GPSParseErrors.Add(1)
		}
		logger.Warn("GPS", "Skipping sentence: %v", err)
		return
	}
	if reading == nil {
		return // not a GGA sentence
	}

	e.applyReading(reading, e.now())
}

// applyReading folds one valid reading into the engine state: position is
// rounded and stored, bearing and speed are derived against the previous fix.
func (e *Engine) applyReading(reading *ggaReading, at time.Time) {
	fix := &types.GpsFix{
		Latitude:  roundTo(reading.Latitude, 4),
		Longitude: roundTo(reading.Longitude, 4),
		At:        at,
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.previous = e.current
	e.current = fix

	if reading.Altitude != nil {
		alt := roundTo(*reading.Altitude, 2)
		e.altitude = &alt
	}

	if e.previous != nil {
		b := roundTo(initialBearing(
			e.previous.Latitude, e.previous.Longitude,
			fix.Latitude, fix.Longitude), 2)
		e.bearing = &b

		if !e.lastUpdate.IsZero() {
			elapsed := at.Sub(e.lastUpdate).Seconds()
			if elapsed > 0 {
				dist := haversineMeters(
					e.previous.Latitude, e.previous.Longitude,
					fix.Latitude, fix.Longitude)
				sp := roundTo(dist/elapsed, 2)
				e.speed = &sp
			}
		}
	}

	e.lastUpdate = at
	if e.metrics != nil {
		e.metrics.GPSFixes.Add(1)
	}
	logger.Debug("GPS", "Fix %.4f %.4f", fix.Latitude, fix.Longitude)
}

// Coordinates returns the latest valid position, or ErrNoFix when no fix has
// ever been obtained. Does not block.
func (e *Engine) Coordinates() (lat, lon float64, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return 0, 0, ErrNoFix
	}
	return e.current.Latitude, e.current.Longitude, nil
}

// Altitude returns the latest altitude in meters, if one has been seen.
func (e *Engine) Altitude() (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.altitude == nil {
		return 0, false
	}
	return *e.altitude, true
}

// Speed returns the latest derived ground speed in meters per second.
// Absent until two successful updates exist.
func (e *Engine) Speed() (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.speed == nil {
		return 0, false
	}
	return *e.speed, true
}

// Bearing returns the latest derived course in degrees true north, [0,360).
// Absent until two fixes exist.
func (e *Engine) Bearing() (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.bearing == nil {
		return 0, false
	}
	return *e.bearing, true
}

// Snapshot returns a consistent copy of all current readings, or nil when no
// fix has ever been obtained. Derived fields may be nil independently.
func (e *Engine) Snapshot() *types.GpsSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return nil
	}
	snap := &types.GpsSnapshot{
		Latitude:  e.current.Latitude,
		Longitude: e.current.Longitude,
	}
	if e.altitude != nil {
		v := *e.altitude
		snap.Altitude = &v
	}
	if e.speed != nil {
		v := *e.speed
		snap.Speed = &v
	}
	if e.bearing != nil {
		v := *e.bearing
		snap.Bearing = &v
	}
	return snap
}
