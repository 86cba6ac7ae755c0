package bridge_test

import (
	"github.com/moodclient/rfc2217/comport"
)

// fakePort is an in-memory comport.Port test double: no OS serial device,
// just enough state to exercise Engine's subnegotiation reaction table.
type fakePort struct {
	readBuf  []byte
	writeBuf []byte

	baud     uint32
	dataBits comport.DataBits
	parity   comport.Parity
	stopBits comport.StopBits
	flow     comport.FlowControl

	breakOn   bool
	dtr, rts  bool
	dsr, cts  bool
	clearedIn bool
	clearedOut bool
}

func newFakePort() *fakePort {
	return &fakePort{
		baud:     9600,
		dataBits: comport.DataBits8,
		parity:   comport.ParityNone,
		stopBits: comport.StopBitsOne,
		flow:     comport.FlowControlNone,
	}
}

func (p *fakePort) Read(dst []byte) (int, error) {
	if len(p.readBuf) == 0 {
		return 0, comport.ErrTimedOut
	}
	n := copy(dst, p.readBuf)
	p.readBuf = p.readBuf[n:]
	return n, nil
}

func (p *fakePort) Write(src []byte) (int, error) {
	p.writeBuf = append(p.writeBuf, src...)
	return len(src), nil
}

func (p *fakePort) BaudRate() (uint32, error)        { return p.baud, nil }
func (p *fakePort) SetBaudRate(baud uint32) error    { p.baud = baud; return nil }
func (p *fakePort) DataBits() (comport.DataBits, error) { return p.dataBits, nil }
func (p *fakePort) SetDataBits(d comport.DataBits) error { p.dataBits = d; return nil }
func (p *fakePort) Parity() (comport.Parity, error)      { return p.parity, nil }
func (p *fakePort) SetParity(v comport.Parity) error     { p.parity = v; return nil }
func (p *fakePort) StopBits() (comport.StopBits, error)  { return p.stopBits, nil }
func (p *fakePort) SetStopBits(v comport.StopBits) error { p.stopBits = v; return nil }
func (p *fakePort) FlowControl() (comport.FlowControl, error) { return p.flow, nil }
func (p *fakePort) SetFlowControl(v comport.FlowControl) error { p.flow = v; return nil }

func (p *fakePort) SetBreak() error   { p.breakOn = true; return nil }
func (p *fakePort) ClearBreak() error { p.breakOn = false; return nil }

func (p *fakePort) ReadDataSetReady() (bool, error)         { return p.dsr, nil }
func (p *fakePort) WriteDataTerminalReady(assert bool) error { p.dtr = assert; return nil }
func (p *fakePort) ReadClearToSend() (bool, error)          { return p.cts, nil }
func (p *fakePort) WriteRequestToSend(assert bool) error    { p.rts = assert; return nil }

func (p *fakePort) Clear(dir comport.ClearDirection) error {
	switch dir {
	case comport.ClearInput:
		p.clearedIn = true
	case comport.ClearOutput:
		p.clearedOut = true
	}
	return nil
}

func (p *fakePort) Close() error { return nil }

var _ comport.Port = (*fakePort)(nil)
