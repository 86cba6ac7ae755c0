package bridge

import (
	"github.com/moodclient/rfc2217/comport"
	"github.com/moodclient/rfc2217/telnet"
)

// processSubnegotiation applies a decoded Com-Port subnegotiation to the
// serial port and returns the length of a server-to-client reply written
// into e.answerBuf, or 0 if the subnegotiation calls for no reply.
func (e *Engine) processSubnegotiation(sub telnet.Subnegotiation) (int, error) {
	answer, err := e.applySubnegotiation(sub)
	if err != nil {
		return 0, err
	}

	e.onSubnegotiation.Fire(e, SubnegotiationEvent{Direction: "client-to-server", Kind: sub.Kind.String()})

	if answer == nil {
		return 0, nil
	}
	n := answer.SerializeServer(e.answerBuf[:])
	e.onSubnegotiation.Fire(e, SubnegotiationEvent{Direction: "server-to-client", Kind: answer.Kind.String()})
	return n, nil
}

func (e *Engine) applySubnegotiation(sub telnet.Subnegotiation) (*telnet.Subnegotiation, error) {
	switch sub.Kind {
	case telnet.KindSetSignature:
		return e.applySignature(sub)
	case telnet.KindSetBaudRate:
		return e.applyBaudRate(sub)
	case telnet.KindSetDataSize:
		return e.applyDataSize(sub)
	case telnet.KindSetParity:
		return e.applyParity(sub)
	case telnet.KindSetStopSize:
		return e.applyStopSize(sub)
	case telnet.KindSetControl:
		val, _ := sub.Control()
		return e.handleSetControl(val)
	case telnet.KindFlowControlSuspend:
		return e.applyFlowControlSuspend()
	case telnet.KindFlowControlResume:
		return e.applyFlowControlResume()
	case telnet.KindPurgeData:
		val, _ := sub.PurgeData()
		return e.handlePurgeData(val)
	default:
		return nil, nil
	}
}

// An empty signature is a query; its reply, like the SetControl break-state
// query's, comes from state the bridge keeps itself rather than from the
// serial port, since the signature is a bridge-level identity string rather
// than a port setting (spec Design Notes).
func (e *Engine) applySignature(sub telnet.Subnegotiation) (*telnet.Subnegotiation, error) {
	data, _ := sub.Signature()
	if len(data) == 0 {
		answer := telnet.NewSetSignature(e.signature)
		return &answer, nil
	}
	e.signature = append([]byte(nil), data...)
	return &sub, nil
}

func (e *Engine) applyBaudRate(sub telnet.Subnegotiation) (*telnet.Subnegotiation, error) {
	val, _ := sub.BaudRate()
	if val == 0 {
		current, err := e.port.BaudRate()
		if err != nil {
			return nil, err
		}
		answer := telnet.NewSetBaudRate(current)
		return &answer, nil
	}
	if err := e.port.SetBaudRate(val); err != nil {
		return nil, err
	}
	return &sub, nil
}

func (e *Engine) applyDataSize(sub telnet.Subnegotiation) (*telnet.Subnegotiation, error) {
	val, _ := sub.DataSize()
	if bits, ok := comport.WireToDataBits(val); ok {
		if err := e.port.SetDataBits(bits); err != nil {
			return nil, err
		}
		return &sub, nil
	}
	current, err := e.port.DataBits()
	if err != nil {
		return nil, err
	}
	answer := telnet.NewSetDataSize(comport.DataBitsToWire(current))
	return &answer, nil
}

func (e *Engine) applyParity(sub telnet.Subnegotiation) (*telnet.Subnegotiation, error) {
	val, _ := sub.Parity()
	if parity, ok := comport.WireToParity(val); ok {
		if err := e.port.SetParity(parity); err != nil {
			return nil, err
		}
		return &sub, nil
	}
	current, err := e.port.Parity()
	if err != nil {
		return nil, err
	}
	answer := telnet.NewSetParity(comport.ParityToWire(current))
	return &answer, nil
}

func (e *Engine) applyStopSize(sub telnet.Subnegotiation) (*telnet.Subnegotiation, error) {
	val, _ := sub.StopSize()
	if stop, ok := comport.WireToStopBits(val); ok {
		if err := e.port.SetStopBits(stop); err != nil {
			return nil, err
		}
		return &sub, nil
	}
	current, err := e.port.StopBits()
	if err != nil {
		return nil, err
	}
	answer := telnet.NewSetStopSize(comport.StopBitsToWire(current))
	return &answer, nil
}

func (e *Engine) applyFlowControlSuspend() (*telnet.Subnegotiation, error) {
	current, err := e.port.FlowControl()
	if err != nil {
		return nil, err
	}
	e.suspendedFlowControl = current
	if err := e.port.SetFlowControl(comport.FlowControlNone); err != nil {
		return nil, err
	}
	answer := telnet.NewFlowControlSuspend()
	return &answer, nil
}

func (e *Engine) applyFlowControlResume() (*telnet.Subnegotiation, error) {
	if err := e.port.SetFlowControl(e.suspendedFlowControl); err != nil {
		return nil, err
	}
	answer := telnet.NewFlowControlResume()
	return &answer, nil
}

// Control sub-opcode values, per RFC 2217 section on "Set Control".
const (
	ctlQueryFlowControl   = 0
	ctlFlowControlNone    = 1
	ctlFlowControlXonXoff = 2
	ctlFlowControlHw      = 3
	ctlQueryBreak         = 4
	ctlBreakOn            = 5
	ctlBreakOff           = 6
	ctlQueryDTR           = 7
	ctlDTROn              = 8
	ctlDTROff             = 9
	ctlQueryRTS           = 10
	ctlRTSOn              = 11
	ctlRTSOff             = 12
)

func (e *Engine) handleSetControl(val byte) (*telnet.Subnegotiation, error) {
	reply := func(v byte) (*telnet.Subnegotiation, error) {
		answer := telnet.NewSetControl(v)
		return &answer, nil
	}

	switch val {
	case ctlQueryFlowControl:
		current, err := e.port.FlowControl()
		if err != nil {
			return nil, err
		}
		return reply(comport.FlowControlToWire(current))
	case ctlFlowControlNone, ctlFlowControlXonXoff, ctlFlowControlHw:
		fc, _ := comport.WireToFlowControl(val)
		if err := e.port.SetFlowControl(fc); err != nil {
			return nil, err
		}
		return reply(val)
	case ctlQueryBreak:
		if e.breakState {
			return reply(ctlBreakOn)
		}
		return reply(ctlBreakOff)
	case ctlBreakOn:
		if err := e.port.SetBreak(); err != nil {
			return nil, err
		}
		e.breakState = true
		return reply(val)
	case ctlBreakOff:
		if err := e.port.ClearBreak(); err != nil {
			return nil, err
		}
		e.breakState = false
		return reply(val)
	case ctlQueryDTR:
		dsr, err := e.port.ReadDataSetReady()
		if err != nil {
			return nil, err
		}
		if dsr {
			return reply(ctlDTROn)
		}
		return reply(ctlDTROff)
	case ctlDTROn:
		if err := e.port.WriteDataTerminalReady(true); err != nil {
			return nil, err
		}
		return reply(val)
	case ctlDTROff:
		if err := e.port.WriteDataTerminalReady(false); err != nil {
			return nil, err
		}
		return reply(val)
	case ctlQueryRTS:
		cts, err := e.port.ReadClearToSend()
		if err != nil {
			return nil, err
		}
		if cts {
			return reply(ctlRTSOn)
		}
		return reply(ctlRTSOff)
	case ctlRTSOn:
		if err := e.port.WriteRequestToSend(true); err != nil {
			return nil, err
		}
		return reply(val)
	case ctlRTSOff:
		if err := e.port.WriteRequestToSend(false); err != nil {
			return nil, err
		}
		return reply(val)
	default:
		return nil, nil
	}
}

const (
	purgeInput  = 1
	purgeOutput = 2
	purgeBoth   = 3
)

func (e *Engine) handlePurgeData(val byte) (*telnet.Subnegotiation, error) {
	var err error
	switch val {
	case purgeInput:
		err = e.port.Clear(comport.ClearInput)
	case purgeOutput:
		err = e.port.Clear(comport.ClearOutput)
	case purgeBoth:
		if err = e.port.Clear(comport.ClearInput); err == nil {
			err = e.port.Clear(comport.ClearOutput)
		}
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	answer := telnet.NewPurgeData(val)
	return &answer, nil
}
