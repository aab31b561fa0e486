package gps

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/searchlight-sar/scanner/internal/metrics"
)

// fakeDevice replays a fixed list of sentences, then reports EOF.
type fakeDevice struct {
	mu        sync.Mutex
	sentences []string
	closed    bool
}

func (d *fakeDevice) ReadSentence() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.sentences) == 0 {
		return "", io.EOF
	}
	s := d.sentences[0]
	d.sentences = d.sentences[1:]
	return s, nil
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func reading(lat, lon float64, alt *float64) *ggaReading {
	return &ggaReading{Latitude: lat, Longitude: lon, Altitude: alt}
}

func TestEngineNoFix(t *testing.T) {
	e := NewEngine(nil, time.Second, nil)
	if _, _, err := e.Coordinates(); !errors.Is(err, ErrNoFix) {
		t.Fatalf("Coordinates before any fix: err = %v, want ErrNoFix", err)
	}
	if snap := e.Snapshot(); snap != nil {
		t.Fatalf("Snapshot before any fix = %+v, want nil", snap)
	}
}

func TestEngineSingleFix(t *testing.T) {
	e := NewEngine(nil, time.Second, nil)
	e.applyReading(reading(48.11730, 11.51666, nil), time.Now())

	lat, lon, err := e.Coordinates()
	if err != nil {
		t.Fatalf("Coordinates: %v", err)
	}
	// Position is rounded to 4 decimals before storing.
	if lat != 48.1173 || lon != 11.5167 {
		t.Fatalf("coords = %v, %v, want 48.1173, 11.5167", lat, lon)
	}

	if _, ok := e.Bearing(); ok {
		t.Fatal("bearing known after a single fix, want unknown")
	}
	if _, ok := e.Speed(); ok {
		t.Fatal("speed known after a single fix, want unknown")
	}
	if _, ok := e.Altitude(); ok {
		t.Fatal("altitude known without an altitude field, want unknown")
	}
}

func TestEngineDerivesBearingAndSpeed(t *testing.T) {
	e := NewEngine(nil, time.Second, nil)
	t0 := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	e.applyReading(reading(48.0, 11.0, nil), t0)
	e.applyReading(reading(48.0, 11.001, nil), t0.Add(10*time.Second))

	b, ok := e.Bearing()
	if !ok {
		t.Fatal("bearing unknown after two fixes")
	}
	if b < 0 || b >= 360 {
		t.Fatalf("bearing = %v, want [0,360)", b)
	}

	sp, ok := e.Speed()
	if !ok {
		t.Fatal("speed unknown after two timed updates")
	}
	if sp < 0 {
		t.Fatalf("speed = %v, want >= 0", sp)
	}
}

func TestEngineNoSpeedForNonPositiveInterval(t *testing.T) {
	e := NewEngine(nil, time.Second, nil)
	t0 := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	e.applyReading(reading(48.0, 11.0, nil), t0)
	e.applyReading(reading(48.0, 11.001, nil), t0) // same wall-clock instant

	if _, ok := e.Speed(); ok {
		t.Fatal("speed emitted for a zero interval")
	}
	if _, ok := e.Bearing(); !ok {
		t.Fatal("bearing should still derive from two fixes")
	}
}

func TestEngineAltitudeRounding(t *testing.T) {
	alt := 545.456
	e := NewEngine(nil, time.Second, nil)
	e.applyReading(reading(48.0, 11.0, &alt), time.Now())

	got, ok := e.Altitude()
	if !ok {
		t.Fatal("altitude unknown after an altitude reading")
	}
	if got != 545.46 {
		t.Fatalf("altitude = %v, want 545.46", got)
	}
}

func TestEngineSnapshotIndependentCopies(t *testing.T) {
	alt := 100.0
	e := NewEngine(nil, time.Second, nil)
	e.applyReading(reading(48.0, 11.0, &alt), time.Now())

	snap := e.Snapshot()
	if snap == nil {
		t.Fatal("Snapshot = nil after a fix")
	}
	*snap.Altitude = -1

	if got, _ := e.Altitude(); got != 100.0 {
		t.Fatalf("engine altitude mutated through snapshot: %v", got)
	}
}

func TestEngineStartStopJoins(t *testing.T) {
	dev := &fakeDevice{sentences: []string{
		"$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47",
	}}
	m := metrics.New()
	e := NewEngine(dev, 5*time.Millisecond, m)

	e.Start()
	e.Start() // idempotent

	deadline := time.After(time.Second)
	for {
		if _, _, err := e.Coordinates(); err == nil {
			break
		}
		select {
		case <-deadline:
			t.Fatal("no fix obtained from fake device within 1s")
		case <-time.After(5 * time.Millisecond):
		}
	}

	e.Stop()
	e.Stop() // idempotent

	dev.mu.Lock()
	closed := dev.closed
	dev.mu.Unlock()
	if !closed {
		t.Fatal("device not closed after Stop")
	}
	if m.GPSFixes.Load() == 0 {
		t.Fatal("fix counter not incremented")
	}
}

func TestEngineSkipsMalformedSentences(t *testing.T) {
	dev := &fakeDevice{sentences: []string{
		"$GPGGA,garbage",
		"$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47",
	}}
	m := metrics.New()
	e := NewEngine(dev, 5*time.Millisecond, m)
	e.Start()
	defer e.Stop()

	deadline := time.After(time.Second)
	for {
		if _, _, err := e.Coordinates(); err == nil {
			break
		}
		select {
		case <-deadline:
			t.Fatal("loop did not survive a malformed sentence")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if m.GPSParseErrors.Load() == 0 {
		t.Fatal("parse error counter not incremented")
	}
}
