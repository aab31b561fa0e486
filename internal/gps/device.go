package gps

import (
	"bufio"
	"fmt"
	"strings"

	"go.bug.st/serial"

	"github.com/searchlight-sar/scanner/internal/logger"
)

// Device is one line-oriented positioning data source. The engine reads one
// sentence per poll cycle; implementations must bound reads with a timeout so
// Stop is never held up by a silent device.
type Device interface {
	// ReadSentence returns the next raw sentence, without line terminator.
	ReadSentence() (string, error)
	Close() error
}

// fallbackPorts are tried in order after the configured port. Receivers show
// up on different device nodes depending on the carrier board and adapter.
var fallbackPorts = []string{
	"/dev/ttyACM0",
	"/dev/ttyACM1",
	"/dev/ttyUSB0",
	"/dev/ttyUSB1",
	"/dev/serial0",
	"/dev/serial1",
}

type serialDevice struct {
	port   serial.Port
	reader *bufio.Reader
}

// OpenSerial connects to a serial GPS receiver, trying the preferred port
// first and then the usual device nodes. Returns an error only when no port
// opens at all; callers treat that as a degraded, not fatal, condition.
func OpenSerial(preferred string, baudRate int) (Device, error) {
	ports := make([]string, 0, len(fallbackPorts)+1)
	if preferred != "" {
		ports = append(ports, preferred)
	}
	for _, p := range fallbackPorts {
		if p != preferred {
			ports = append(ports, p)
		}
	}

	mode := &serial.Mode{BaudRate: baudRate}
	for _, name := range ports {
		port, err := serial.Open(name, mode)
		if err != nil {
			logger.Debug("GPS", "Port %s not available: %v", name, err)
			continue
		}
		logger.Info("GPS", "Connected to GPS on %s at %d baud", name, baudRate)
		return &serialDevice{
			port:   port,
			reader: bufio.NewReader(port),
		}, nil
	}
	return nil, fmt.Errorf("no GPS device found (tried %s)", strings.Join(ports, ", "))
}

func (d *serialDevice) ReadSentence() (string, error) {
	line, err := d.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (d *serialDevice) Close() error {
	return d.port.Close()
}
