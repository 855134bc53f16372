package asyncserial

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-asyncserial/logger"
)

// Parity is the parity bit discipline applied to each character frame.
type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
	ParityMark
	ParitySpace
)

func (p Parity) String() string {
	switch p {
	case ParityNone:
		return "none"
	case ParityOdd:
		return "odd"
	case ParityEven:
		return "even"
	case ParityMark:
		return "mark"
	case ParitySpace:
		return "space"
	default:
		return fmt.Sprintf("parity(%d)", int(p))
	}
}

// StopBits is the number of stop bits terminating each character frame.
type StopBits int

const (
	StopBitsOne StopBits = iota
	StopBitsOnePointFive
	StopBitsTwo
)

func (s StopBits) String() string {
	switch s {
	case StopBitsOne:
		return "1"
	case StopBitsOnePointFive:
		return "1.5"
	case StopBitsTwo:
		return "2"
	default:
		return fmt.Sprintf("stopbits(%d)", int(s))
	}
}

// FlowControl is the line flow-control discipline.
type FlowControl int

const (
	FlowControlNone FlowControl = iota
	FlowControlSoftware
	FlowControlHardware
)

func (f FlowControl) String() string {
	switch f {
	case FlowControlNone:
		return "none"
	case FlowControlSoftware:
		return "software"
	case FlowControlHardware:
		return "hardware"
	default:
		return fmt.Sprintf("flowcontrol(%d)", int(f))
	}
}

// ExecutionModel selects the background execution context that performs the
// device I/O.
type ExecutionModel int

const (
	// ModelReactor runs a single-goroutine event loop that dispatches read
	// and write completions.
	ModelReactor ExecutionModel = iota
	// ModelBlockingWorker runs a background goroutine performing blocking
	// reads; writes happen synchronously on the calling goroutine.
	ModelBlockingWorker
)

func (m ExecutionModel) String() string {
	switch m {
	case ModelReactor:
		return "reactor"
	case ModelBlockingWorker:
		return "blockingWorker"
	default:
		return fmt.Sprintf("model(%d)", int(m))
	}
}

// Defaults.
const (
	// DefaultReadBufferSize is the size of the engine-owned read buffer.
	DefaultReadBufferSize = 512

	// DefaultPollTimeout is the reactor's read poll timeout. It trades off
	// between CPU usage and close/drain latency.
	DefaultPollTimeout = 50 * time.Millisecond

	// DefaultCloseTimeout bounds how long Close waits for the background
	// goroutine to terminate.
	DefaultCloseTimeout = 3 * time.Second

	// MinCharacterSize and MaxCharacterSize bound the data bits per frame.
	MinCharacterSize = 5
	MaxCharacterSize = 8
)

// Config holds all configuration for a serial engine.
type Config struct {
	device   string
	baudRate int

	// Line parameters applied by the opener.
	parity        Parity
	characterSize int
	flowControl   FlowControl
	stopBits      StopBits

	readBufferSize int
	pollTimeout    time.Duration
	closeTimeout   time.Duration

	model ExecutionModel

	// retryableErrors lists error codes treated as transient: the read is
	// retried with no other state change.
	retryableErrors []error

	opener Opener
	logger logger.Logger
}

// NewConfig creates a serial engine configuration for the given device path
// and baud rate.
//
// Line parameters default to 8 data bits, no parity, one stop bit, no flow
// control. opts are functional options applied in order; see With* functions.
func NewConfig(device string, baudRate int, opts ...Option) (*Config, error) {
	if device == "" {
		return nil, errors.New("asyncserial: device path is empty")
	}
	if baudRate <= 0 {
		return nil, fmt.Errorf("asyncserial: invalid baud rate %d", baudRate)
	}

	cfg := &Config{
		device:          device,
		baudRate:        baudRate,
		parity:          ParityNone,
		characterSize:   8,
		flowControl:     FlowControlNone,
		stopBits:        StopBitsOne,
		readBufferSize:  DefaultReadBufferSize,
		pollTimeout:     DefaultPollTimeout,
		closeTimeout:    DefaultCloseTimeout,
		model:           defaultExecutionModel,
		retryableErrors: defaultRetryableErrors(),
		opener:          serialOpener{},
		logger:          logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// --- Getters ---

// Device returns the configured device path.
func (cfg *Config) Device() string { return cfg.device }

// BaudRate returns the configured baud rate.
func (cfg *Config) BaudRate() int { return cfg.baudRate }

// Parity returns the configured parity discipline.
func (cfg *Config) Parity() Parity { return cfg.parity }

// CharacterSize returns the configured data bits per character frame.
func (cfg *Config) CharacterSize() int { return cfg.characterSize }

// FlowControl returns the configured flow-control discipline.
func (cfg *Config) FlowControl() FlowControl { return cfg.flowControl }

// StopBits returns the configured stop bits.
func (cfg *Config) StopBits() StopBits { return cfg.stopBits }

// ReadBufferSize returns the size of the engine-owned read buffer.
func (cfg *Config) ReadBufferSize() int { return cfg.readBufferSize }

// PollTimeout returns the reactor's read poll timeout.
func (cfg *Config) PollTimeout() time.Duration { return cfg.pollTimeout }

// CloseTimeout returns the bound on waiting for background termination.
func (cfg *Config) CloseTimeout() time.Duration { return cfg.closeTimeout }

// Model returns the configured execution model.
func (cfg *Config) Model() ExecutionModel { return cfg.model }

// RetryableErrors returns the transient-error allow-list.
func (cfg *Config) RetryableErrors() []error { return cfg.retryableErrors }

// GetLogger returns the configured logger.
func (cfg *Config) GetLogger() logger.Logger { return cfg.logger }

// --- Option ---

// Option is a functional option for configuring a Config.
type Option interface {
	apply(*Config) error
}

type optFunc func(*Config) error

func (f optFunc) apply(cfg *Config) error { return f(cfg) }

// WithParity sets the parity discipline.
func WithParity(p Parity) Option {
	return optFunc(func(cfg *Config) error {
		if p < ParityNone || p > ParitySpace {
			return fmt.Errorf("asyncserial: invalid parity %d", int(p))
		}
		cfg.parity = p

		return nil
	})
}

// WithCharacterSize sets the data bits per character frame. Must be in
// [MinCharacterSize, MaxCharacterSize].
func WithCharacterSize(bits int) Option {
	return optFunc(func(cfg *Config) error {
		if bits < MinCharacterSize || bits > MaxCharacterSize {
			return fmt.Errorf("asyncserial: character size %d out of range [%d, %d]",
				bits, MinCharacterSize, MaxCharacterSize)
		}
		cfg.characterSize = bits

		return nil
	})
}

// WithFlowControl sets the flow-control discipline. Whether a given
// discipline is supported is decided by the opener at Open time.
func WithFlowControl(f FlowControl) Option {
	return optFunc(func(cfg *Config) error {
		if f < FlowControlNone || f > FlowControlHardware {
			return fmt.Errorf("asyncserial: invalid flow control %d", int(f))
		}
		cfg.flowControl = f

		return nil
	})
}

// WithStopBits sets the stop bits.
func WithStopBits(s StopBits) Option {
	return optFunc(func(cfg *Config) error {
		if s < StopBitsOne || s > StopBitsTwo {
			return fmt.Errorf("asyncserial: invalid stop bits %d", int(s))
		}
		cfg.stopBits = s

		return nil
	})
}

// WithReadBufferSize sets the size of the engine-owned read buffer.
func WithReadBufferSize(size int) Option {
	return optFunc(func(cfg *Config) error {
		if size < 1 {
			return errors.New("asyncserial: read buffer size must be >= 1")
		}
		cfg.readBufferSize = size

		return nil
	})
}

// WithPollTimeout sets the reactor's read poll timeout.
func WithPollTimeout(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d <= 0 {
			return errors.New("asyncserial: poll timeout must be positive")
		}
		cfg.pollTimeout = d

		return nil
	})
}

// WithCloseTimeout sets the bound on waiting for background termination
// during Close.
func WithCloseTimeout(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d <= 0 {
			return errors.New("asyncserial: close timeout must be positive")
		}
		cfg.closeTimeout = d

		return nil
	})
}

// WithExecutionModel overrides the platform-default execution model.
func WithExecutionModel(m ExecutionModel) Option {
	return optFunc(func(cfg *Config) error {
		if m != ModelReactor && m != ModelBlockingWorker {
			return fmt.Errorf("asyncserial: invalid execution model %d", int(m))
		}
		cfg.model = m

		return nil
	})
}

// WithRetryableErrors replaces the transient-error allow-list. A read
// failing with one of these errors is retried with no other state change.
func WithRetryableErrors(errs ...error) Option {
	return optFunc(func(cfg *Config) error {
		cfg.retryableErrors = errs

		return nil
	})
}

// WithOpener sets the Opener used to acquire the device.
func WithOpener(o Opener) Option {
	return optFunc(func(cfg *Config) error {
		if o == nil {
			return errors.New("asyncserial: opener must not be nil")
		}
		cfg.opener = o

		return nil
	})
}

// WithLogger sets the logger for the engine.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *Config) error {
		if l == nil {
			return errors.New("asyncserial: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}
