// Package comport defines the capability contract a serial port must
// satisfy to be driven by the bridge package (spec §4.3/§6.3), plus the
// RFC 2217 wire-value mappings for framing parameters, and a concrete
// adapter over go.bug.st/serial for talking to a real OS serial device.
//
// Port is consumed, not implemented, by the protocol engine: opening the
// device, platform IOCTLs for modem lines, and break control are the host
// environment's responsibility.
package comport

import "time"

// DataBits is the number of data bits per character.
type DataBits byte

const (
	DataBits5 DataBits = 5
	DataBits6 DataBits = 6
	DataBits7 DataBits = 7
	DataBits8 DataBits = 8
)

// Parity is the serial line's parity mode.
type Parity byte

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
)

// StopBits is the number of stop bits per character.
type StopBits byte

const (
	StopBitsOne StopBits = iota
	StopBitsTwo
)

// FlowControl is the serial line's flow-control discipline.
type FlowControl byte

const (
	FlowControlNone FlowControl = iota
	FlowControlSoftware
	FlowControlHardware
)

// ClearDirection selects which buffered-byte direction Clear discards.
type ClearDirection byte

const (
	ClearInput ClearDirection = iota
	ClearOutput
)

// DataBitsToWire and the following tables are the RFC 2217 server-side
// symbolic-to-wire mappings of spec §4.3. They are pure lookup tables: the
// wire value for an unrecognized symbolic value, or vice versa, is left to
// the caller to detect via the ok return.

func DataBitsToWire(d DataBits) byte { return byte(d) }

func WireToDataBits(v byte) (DataBits, bool) {
	switch v {
	case 5, 6, 7, 8:
		return DataBits(v), true
	default:
		return 0, false
	}
}

func ParityToWire(p Parity) byte {
	switch p {
	case ParityNone:
		return 1
	case ParityOdd:
		return 2
	case ParityEven:
		return 3
	default:
		return 0
	}
}

func WireToParity(v byte) (Parity, bool) {
	switch v {
	case 1:
		return ParityNone, true
	case 2:
		return ParityOdd, true
	case 3:
		return ParityEven, true
	default:
		return 0, false
	}
}

func StopBitsToWire(s StopBits) byte {
	switch s {
	case StopBitsOne:
		return 1
	case StopBitsTwo:
		return 2
	default:
		return 0
	}
}

func WireToStopBits(v byte) (StopBits, bool) {
	switch v {
	case 1:
		return StopBitsOne, true
	case 2:
		return StopBitsTwo, true
	default:
		return 0, false
	}
}

func FlowControlToWire(f FlowControl) byte {
	switch f {
	case FlowControlNone:
		return 1
	case FlowControlSoftware:
		return 2
	case FlowControlHardware:
		return 3
	default:
		return 0
	}
}

func WireToFlowControl(v byte) (FlowControl, bool) {
	switch v {
	case 1:
		return FlowControlNone, true
	case 2:
		return FlowControlSoftware, true
	case 3:
		return FlowControlHardware, true
	default:
		return 0, false
	}
}

// Port is the capability contract the bridge engine requires of a serial
// line (spec §4.3). Read/Write follow the io.Reader/io.Writer contract in
// spirit but surface the non-fatal conditions the engine must treat
// specially: a read that would block returns ErrWouldBlock, one that timed
// out (the serial driver's own read timeout, not a Go deadline) returns
// ErrTimedOut.
type Port interface {
	Read(dst []byte) (n int, err error)
	Write(src []byte) (n int, err error)

	BaudRate() (uint32, error)
	SetBaudRate(baud uint32) error

	DataBits() (DataBits, error)
	SetDataBits(d DataBits) error

	Parity() (Parity, error)
	SetParity(p Parity) error

	StopBits() (StopBits, error)
	SetStopBits(s StopBits) error

	FlowControl() (FlowControl, error)
	SetFlowControl(f FlowControl) error

	SetBreak() error
	ClearBreak() error

	ReadDataSetReady() (bool, error)
	WriteDataTerminalReady(assert bool) error

	ReadClearToSend() (bool, error)
	WriteRequestToSend(assert bool) error

	Clear(dir ClearDirection) error

	Close() error
}

// Config is the set of parameters used to open a Port. BaudRate follows
// the original implementation's hardcoded default of 9600 (spec.md has no
// opinion on a startup baud rate; see SPEC_FULL.md "Supplemented features").
type Config struct {
	Name     string
	BaudRate uint32

	// ReadTimeout bounds how long a Read call blocks before returning
	// ErrTimedOut, letting the bridge engine's per-tick poll stay
	// non-blocking (spec §5, "Suspension points").
	ReadTimeout time.Duration
}

// DefaultConfig returns the original implementation's startup defaults.
func DefaultConfig(name string) Config {
	return Config{
		Name:        name,
		BaudRate:    9600,
		ReadTimeout: 100 * time.Millisecond,
	}
}
