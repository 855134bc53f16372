package asyncserial

import (
	"fmt"

	"go.bug.st/serial"
)

// serialOpener is the default Opener, backed by go.bug.st/serial.
type serialOpener struct{}

// OpenPort opens and configures the device with go.bug.st/serial.
//
// The underlying library exposes no flow-control mode, so any discipline
// other than FlowControlNone is rejected as an open failure. Callers that
// need hardware or software flow control supply their own Opener.
func (serialOpener) OpenPort(cfg *Config) (Port, error) {
	if cfg.FlowControl() != FlowControlNone {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFlowControl, cfg.FlowControl())
	}

	mode := &serial.Mode{
		BaudRate: cfg.BaudRate(),
		DataBits: cfg.CharacterSize(),
		Parity:   toSerialParity(cfg.Parity()),
		StopBits: toSerialStopBits(cfg.StopBits()),
	}

	port, err := serial.Open(cfg.Device(), mode)
	if err != nil {
		return nil, err
	}

	return port, nil
}

func toSerialParity(p Parity) serial.Parity {
	switch p {
	case ParityOdd:
		return serial.OddParity
	case ParityEven:
		return serial.EvenParity
	case ParityMark:
		return serial.MarkParity
	case ParitySpace:
		return serial.SpaceParity
	default:
		return serial.NoParity
	}
}

func toSerialStopBits(s StopBits) serial.StopBits {
	switch s {
	case StopBitsOnePointFive:
		return serial.OnePointFiveStopBits
	case StopBitsTwo:
		return serial.TwoStopBits
	default:
		return serial.OneStopBit
	}
}

// ListPorts returns the device paths of the serial ports detected on the
// system.
func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}
