package transport

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"go.bug.st/serial"
)

const (
	BaudRate                 = 9600
	defaultSerialReadTimeout = 20 * time.Millisecond
)

// SerialLine drives an SB9600 bus through a serial adapter. DTR is our bus
// reservation, CTS reflects the radio holding the bus.
type SerialLine struct {
	portName string
	logger   *slog.Logger

	mu   sync.Mutex
	port serial.Port
}

// portsList is replaced in tests.
var portsList = serial.GetPortsList

// OpenSerial checks that the port exists and opens it at the bus rate.
func OpenSerial(ctx context.Context, portName string, logger *slog.Logger) (*SerialLine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if portName == "" {
		return nil, fmt.Errorf("%w: empty port name", ErrPortMissing)
	}
	if err := checkPortExists(portName); err != nil {
		return nil, err
	}

	log := lineLogger(logger, portName)
	port, err := serial.Open(portName, &serial.Mode{
		BaudRate: BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %q: %w", portName, err)
	}
	if err := port.SetReadTimeout(defaultSerialReadTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("set serial read timeout: %w", err)
	}
	if err := port.SetDTR(false); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("release bus on open: %w", err)
	}
	if err := port.ResetInputBuffer(); err != nil {
		log.Warn("flush input on open failed", "error", err)
	}
	if err := port.ResetOutputBuffer(); err != nil {
		log.Warn("flush output on open failed", "error", err)
	}
	log.Info("serial line opened", "baud", BaudRate)

	return &SerialLine{portName: portName, logger: log, port: port}, nil
}

func checkPortExists(portName string) error {
	ports, err := portsList()
	if err != nil {
		return fmt.Errorf("list serial ports: %w", err)
	}
	if !slices.Contains(ports, portName) {
		return fmt.Errorf("%w: %q (available: %v)", ErrPortMissing, portName, ports)
	}
	return nil
}

func (l *SerialLine) PortName() string {
	return l.portName
}

func (l *SerialLine) Read(p []byte) (int, error) {
	port, err := l.currentPort()
	if err != nil {
		return 0, err
	}
	return port.Read(p)
}

func (l *SerialLine) Write(p []byte) (int, error) {
	port, err := l.currentPort()
	if err != nil {
		return 0, err
	}
	return port.Write(p)
}

func (l *SerialLine) SetBusy(busy bool) error {
	port, err := l.currentPort()
	if err != nil {
		return err
	}
	if err := port.SetDTR(busy); err != nil {
		return fmt.Errorf("set DTR: %w", err)
	}
	return nil
}

func (l *SerialLine) Busy() (bool, error) {
	port, err := l.currentPort()
	if err != nil {
		return false, err
	}
	bits, err := port.GetModemStatusBits()
	if err != nil {
		return false, fmt.Errorf("read modem status: %w", err)
	}
	return bits.CTS, nil
}

func (l *SerialLine) ResetInput() error {
	port, err := l.currentPort()
	if err != nil {
		return err
	}
	return port.ResetInputBuffer()
}

// Close releases the bus and the port. Calling it again is a no-op.
func (l *SerialLine) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.port == nil {
		return nil
	}
	if err := l.port.SetDTR(false); err != nil {
		l.logger.Debug("release bus on close failed", "error", err)
	}
	err := l.port.Close()
	l.port = nil
	l.logger.Info("serial line closed")
	return err
}

func (l *SerialLine) currentPort() (serial.Port, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.port == nil {
		return nil, ErrNotOpen
	}
	return l.port, nil
}
