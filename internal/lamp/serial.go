package lamp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.bug.st/serial"

	"MoonLamp/internal/model"
)

// Port is the subset of a serial port the lamp needs.
type Port interface {
	io.ReadWriteCloser
}

// OpenFunc opens a port by name at the given baud rate.
type OpenFunc func(name string, baudRate int) (Port, error)

// OpenSerial opens a real serial device.
func OpenSerial(name string, baudRate int) (Port, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
	}
	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, err
	}
	return port, nil
}

// SerialLamp writes frames to an ESP32 over USB serial. The port is opened
// lazily and reopened after a write failure.
type SerialLamp struct {
	logger   zerolog.Logger
	portName string
	baudRate int
	settle   time.Duration
	open     OpenFunc

	mu   sync.Mutex
	port Port
	wg   sync.WaitGroup
}

// NewSerialLamp creates a lamp on portName. settle is how long to wait after
// opening before the first write, the board resets when the port opens.
func NewSerialLamp(logger zerolog.Logger, portName string, baudRate int, settle time.Duration, open OpenFunc) *SerialLamp {
	if open == nil {
		open = OpenSerial
	}
	return &SerialLamp{
		logger:   logger.With().Str("port", portName).Logger(),
		portName: portName,
		baudRate: baudRate,
		settle:   settle,
		open:     open,
	}
}

func (l *SerialLamp) Name() string { return "serial:" + l.portName }

// Connect opens the port if it is not open yet.
func (l *SerialLamp) Connect(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connectLocked(ctx)
}

func (l *SerialLamp) connectLocked(ctx context.Context) error {
	if l.port != nil {
		return nil
	}
	port, err := l.open(l.portName, l.baudRate)
	if err != nil {
		return fmt.Errorf("open %s: %w", l.portName, err)
	}

	if l.settle > 0 {
		select {
		case <-ctx.Done():
			port.Close()
			return ctx.Err()
		case <-time.After(l.settle):
		}
	}

	l.port = port
	l.wg.Add(1)
	go l.reader(port)
	l.logger.Info().Int("baud", l.baudRate).Msg("connected to lamp")
	return nil
}

// Send writes one frame, connecting first when needed.
func (l *SerialLamp) Send(ctx context.Context, msg model.LampMessage) error {
	frame, err := Encode(msg)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.connectLocked(ctx); err != nil {
		return err
	}
	if _, err := l.port.Write(frame); err != nil {
		l.logger.Warn().Err(err).Msg("write failed, closing port")
		l.closeLocked()
		return fmt.Errorf("write %s: %w", l.portName, err)
	}
	l.logger.Trace().Bytes("frame", frame).Msg("wrote frame")
	return nil
}

// reader logs what the firmware prints until the port is closed.
func (l *SerialLamp) reader(port Port) {
	defer l.wg.Done()
	scanner := bufio.NewScanner(port)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			l.logger.Debug().Str("device", line).Msg("lamp output")
		}
	}
	if err := scanner.Err(); err != nil {
		l.logger.Debug().Err(err).Msg("reader done")
	}
}

func (l *SerialLamp) closeLocked() error {
	if l.port == nil {
		return nil
	}
	err := l.port.Close()
	l.port = nil
	return err
}

// Close closes the port and waits for the reader to exit.
func (l *SerialLamp) Close() error {
	l.mu.Lock()
	err := l.closeLocked()
	l.mu.Unlock()
	l.wg.Wait()
	return err
}

// Connected reports whether the port is currently open.
func (l *SerialLamp) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.port != nil
}

// Troubleshoot returns hints for common serial open failures.
func Troubleshoot(err error) []string {
	var pe *serial.PortError
	if !errors.As(err, &pe) {
		return nil
	}
	switch pe.Code() {
	case serial.PortNotFound:
		return []string{
			"Make sure the ESP32 is connected via USB",
			"Check the port name in Device Manager (Windows) or ls /dev/tty* (Linux/macOS)",
			"Update serial.port (or SERIAL_PORT) to match the ESP32's port",
		}
	case serial.PortBusy:
		return []string{"Close any serial monitor (e.g. the Arduino IDE) that holds the port"}
	case serial.PermissionDenied:
		return []string{"Add your user to the dialout (Linux) or uucp group, or run with access to the device"}
	}
	return nil
}
