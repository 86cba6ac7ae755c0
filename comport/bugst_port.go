package comport

import (
	"errors"
	"fmt"
	"io"

	"go.bug.st/serial"
)

// BugStPort adapts go.bug.st/serial's serial.Port to the Port contract.
// This is the default capability implementation cmd/rfc2217d wires up
// against a real OS serial device; it is additive to spec §4.3's
// "consumed, not implemented" contract, not a replacement for it — callers
// embedding this module against other hardware or a simulator can satisfy
// Port directly instead.
type BugStPort struct {
	port serial.Port

	dataBits DataBits
	parity   Parity
	stopBits StopBits
	flow     FlowControl
}

// OpenBugStPort opens the named OS serial device with cfg's parameters.
func OpenBugStPort(cfg Config) (*BugStPort, error) {
	mode := &serial.Mode{
		BaudRate: int(cfg.BaudRate),
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(cfg.Name, mode)
	if err != nil {
		return nil, fmt.Errorf("comport: open %s: %w", cfg.Name, err)
	}

	if cfg.ReadTimeout > 0 {
		if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
			_ = port.Close()
			return nil, fmt.Errorf("comport: set read timeout: %w", err)
		}
	}

	return &BugStPort{
		port:     port,
		dataBits: DataBits8,
		parity:   ParityNone,
		stopBits: StopBitsOne,
		flow:     FlowControlNone,
	}, nil
}

func (p *BugStPort) Read(dst []byte) (int, error) {
	n, err := p.port.Read(dst)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return n, ErrTimedOut
		}
		return n, err
	}
	if n == 0 {
		// go.bug.st/serial returns (0, nil) when SetReadTimeout elapses
		// with nothing available, rather than a distinct timeout error.
		return 0, ErrTimedOut
	}
	return n, nil
}

func (p *BugStPort) Write(src []byte) (int, error) {
	return p.port.Write(src)
}

func (p *BugStPort) BaudRate() (uint32, error) {
	return 0, errors.New("comport: go.bug.st/serial does not expose the active baud rate; track it in the caller")
}

func (p *BugStPort) SetBaudRate(baud uint32) error {
	return p.setMode(func(m *serial.Mode) { m.BaudRate = int(baud) })
}

func (p *BugStPort) DataBits() (DataBits, error) { return p.dataBits, nil }

func (p *BugStPort) SetDataBits(d DataBits) error {
	err := p.setMode(func(m *serial.Mode) { m.DataBits = int(d) })
	if err == nil {
		p.dataBits = d
	}
	return err
}

func (p *BugStPort) Parity() (Parity, error) { return p.parity, nil }

func (p *BugStPort) SetParity(parity Parity) error {
	wire, ok := bugstParity(parity)
	if !ok {
		return fmt.Errorf("comport: unsupported parity %v", parity)
	}
	err := p.setMode(func(m *serial.Mode) { m.Parity = wire })
	if err == nil {
		p.parity = parity
	}
	return err
}

func (p *BugStPort) StopBits() (StopBits, error) { return p.stopBits, nil }

func (p *BugStPort) SetStopBits(s StopBits) error {
	wire, ok := bugstStopBits(s)
	if !ok {
		return fmt.Errorf("comport: unsupported stop bits %v", s)
	}
	err := p.setMode(func(m *serial.Mode) { m.StopBits = wire })
	if err == nil {
		p.stopBits = s
	}
	return err
}

func (p *BugStPort) FlowControl() (FlowControl, error) { return p.flow, nil }

// SetFlowControl records the requested discipline. go.bug.st/serial has no
// portable software/hardware flow-control knob distinct from the OS
// default, so only the bookkeeping needed to answer a subsequent query (or
// to restore it after FlowControlSuspend/Resume) is performed here.
func (p *BugStPort) SetFlowControl(f FlowControl) error {
	p.flow = f
	return nil
}

func (p *BugStPort) SetBreak() error   { return p.port.SetBreak() }
func (p *BugStPort) ClearBreak() error { return p.port.ResetBreak() }

func (p *BugStPort) ReadDataSetReady() (bool, error) {
	bits, err := p.port.GetModemStatusBits()
	if err != nil {
		return false, err
	}
	return bits.DSR, nil
}

func (p *BugStPort) WriteDataTerminalReady(assert bool) error {
	return p.port.SetDTR(assert)
}

func (p *BugStPort) ReadClearToSend() (bool, error) {
	bits, err := p.port.GetModemStatusBits()
	if err != nil {
		return false, err
	}
	return bits.CTS, nil
}

func (p *BugStPort) WriteRequestToSend(assert bool) error {
	return p.port.SetRTS(assert)
}

func (p *BugStPort) Clear(dir ClearDirection) error {
	switch dir {
	case ClearInput:
		return p.port.ResetInputBuffer()
	case ClearOutput:
		return p.port.ResetOutputBuffer()
	default:
		return fmt.Errorf("comport: unknown clear direction %v", dir)
	}
}

func (p *BugStPort) Close() error {
	return p.port.Close()
}

func (p *BugStPort) setMode(mutate func(*serial.Mode)) error {
	mode := &serial.Mode{
		DataBits: int(p.dataBits),
		StopBits: bugstStopBitsOr(p.stopBits),
		Parity:   bugstParityOr(p.parity),
	}
	mutate(mode)
	return p.port.SetMode(mode)
}

func bugstParity(p Parity) (serial.Parity, bool) {
	switch p {
	case ParityNone:
		return serial.NoParity, true
	case ParityOdd:
		return serial.OddParity, true
	case ParityEven:
		return serial.EvenParity, true
	default:
		return 0, false
	}
}

func bugstParityOr(p Parity) serial.Parity {
	wire, ok := bugstParity(p)
	if !ok {
		return serial.NoParity
	}
	return wire
}

func bugstStopBits(s StopBits) (serial.StopBits, bool) {
	switch s {
	case StopBitsOne:
		return serial.OneStopBit, true
	case StopBitsTwo:
		return serial.TwoStopBits, true
	default:
		return 0, false
	}
}

func bugstStopBitsOr(s StopBits) serial.StopBits {
	wire, ok := bugstStopBits(s)
	if !ok {
		return serial.OneStopBit
	}
	return wire
}
