package alert

import (
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/searchlight-sar/scanner/internal/logger"
)

// LED channel commands understood by the relay board.
var (
	ledOnCmd  = []byte("AT+CH1=1")
	ledOffCmd = []byte("AT+CH1=0")
)

// LED flashes a serial-attached light bar when detections occur. A missing
// device is non-fatal: Flash becomes a no-op.
type LED struct {
	port     io.WriteCloser // nil when no hardware was found
	duration time.Duration

	trigger chan time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// OpenLED connects to the LED controller on the given serial port. The
// returned LED is usable even on connection failure; err then reports the
// degraded state for logging.
func OpenLED(portName string, baudRate int, duration time.Duration) (*LED, error) {
	l := &LED{
		duration: duration,
		trigger:  make(chan time.Duration, 1),
	}
	port, err := serial.Open(portName, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return l, fmt.Errorf("open LED port %s: %w", portName, err)
	}
	l.port = port
	return l, nil
}

// NewLED wraps an already-open port, for tests and alternate transports.
func NewLED(port io.WriteCloser, duration time.Duration) *LED {
	return &LED{
		port:     port,
		duration: duration,
		trigger:  make(chan time.Duration, 1),
	}
}

// Start launches the flash worker. No-op without hardware or when running.
func (l *LED) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running || l.port == nil {
		return
	}
	l.running = true
	l.stopCh = make(chan struct{})
	l.wg.Add(1)
	go l.run(l.stopCh)
}

// Stop terminates the worker, waits for it, and closes the port.
func (l *LED) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		if l.port != nil {
			l.port.Close()
		}
		return
	}
	l.running = false
	close(l.stopCh)
	l.mu.Unlock()

	l.wg.Wait()
	l.port.Close()
}

func (l *LED) run(stop <-chan struct{}) {
	defer l.wg.Done()
	for {
		select {
		case <-stop:
			return
		case duration := <-l.trigger:
			l.flashOnce(duration, stop)
		}
	}
}

// flashOnce holds the LED on for duration, then switches it off. Stop during
// the hold still switches the LED off before the worker exits.
func (l *LED) flashOnce(duration time.Duration, stop <-chan struct{}) {
	if _, err := l.port.Write(ledOnCmd); err != nil {
		logger.Warn("Alert", "LED on failed: %v", err)
		return
	}
	select {
	case <-time.After(duration):
	case <-stop:
	}
	if _, err := l.port.Write(ledOffCmd); err != nil {
		logger.Warn("Alert", "LED off failed: %v", err)
	}
}

// Flash triggers one flash of the default duration. Non-blocking; a flash
// already in progress absorbs the request.
func (l *LED) Flash() {
	if l.port == nil {
		return
	}
	select {
	case l.trigger <- l.duration:
	default:
	}
}
