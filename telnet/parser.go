package telnet

import "fmt"

// Event is what the parser emits in reaction to a byte. Exactly one
// variant field is meaningful per event; which one is indicated by Kind.
type Event struct {
	Kind EventKind

	Data           byte
	Command        Command
	Negotiation    Negotiation
	Subnegotiation Subnegotiation
}

// EventKind discriminates the Event union.
type EventKind uint8

const (
	EventData EventKind = iota
	EventCommand
	EventNegotiation
	EventSubnegotiation
)

// ParseError is the parser's error taxonomy: ill-formed subnegotiation
// framing, or a subnegotiation frame that exceeds MaxSize. Both are
// non-recoverable for the current frame — the caller must Reset the
// parser before feeding it further input.
type ParseError struct {
	kind parseErrorKind
}

type parseErrorKind uint8

const (
	errSubnegotiationParsing parseErrorKind = iota
	errBufferOverflow
)

func (e ParseError) Error() string {
	switch e.kind {
	case errBufferOverflow:
		return "telnet: subnegotiation exceeded MAX_SIZE"
	default:
		return "telnet: invalid byte following IAC in a subnegotiation frame"
	}
}

// ErrSubnegotiationParsing reports an invalid byte arriving immediately
// after IAC while inside an SB...IAC SE frame (the Parser's
// stateSubnegotiationEnd state, spec §4.2).
var ErrSubnegotiationParsing = ParseError{errSubnegotiationParsing}

// ErrBufferOverflow reports a subnegotiation frame whose payload plus
// framing would exceed MaxSize bytes.
var ErrBufferOverflow = ParseError{errBufferOverflow}

type parserState uint8

const (
	stateData parserState = iota
	stateCommand
	stateNegotiation
	stateSubnegotiationOption
	stateSubnegotiationSubOption
	stateSubnegotiationData
	stateSubnegotiationEnd
)

// Parser is a single-threaded, byte-at-a-time Telnet/RFC 2217 state
// machine. It demultiplexes IAC-escaped commands, option negotiations, and
// Com-Port subnegotiations from raw user data. It performs no I/O and
// allocates no heap memory: state, a fixed MaxSize buffer, and a write
// cursor are the entire footprint (Design Notes §9).
type Parser struct {
	state  parserState
	buf    [MaxSize]byte
	bufLen int
}

// NewParser returns a Parser ready to consume bytes, starting in the Data
// state.
func NewParser() *Parser {
	return &Parser{state: stateData}
}

// Reset returns the parser to the same state as a freshly constructed one
// (Law 4: idempotent regardless of what prefix of bytes it had consumed).
func (p *Parser) Reset() {
	p.state = stateData
	p.buf = [MaxSize]byte{}
	p.bufLen = 0
}

func (p *Parser) writeByte(b byte) error {
	if p.bufLen == len(p.buf) {
		return ErrBufferOverflow
	}
	p.buf[p.bufLen] = b
	p.bufLen++
	return nil
}

// ProcessByte feeds a single byte to the parser. It returns (event, true,
// nil) when byte completes an event, (zero, false, nil) when the byte was
// consumed with no event yet, or (zero, false, err) on a parse error — in
// which case the caller must call Reset before feeding further bytes.
func (p *Parser) ProcessByte(b byte) (Event, bool, error) {
	switch p.state {
	case stateData:
		if b == IAC {
			p.state = stateCommand
			return Event{}, false, nil
		}
		return Event{Kind: EventData, Data: b}, true, nil

	case stateCommand:
		if b == IAC {
			// IAC IAC in the data stream is a literal 0xFF.
			p.state = stateData
			return Event{Kind: EventData, Data: IAC}, true, nil
		}

		p.bufLen = 0
		if err := p.writeByte(IAC); err != nil {
			return Event{}, false, err
		}
		if err := p.writeByte(b); err != nil {
			return Event{}, false, err
		}
		return p.dispatchCommandByte(b)

	case stateNegotiation:
		if err := p.writeByte(b); err != nil {
			return Event{}, false, err
		}
		p.state = stateData
		n, err := deserializeNegotiation(p.buf[:NegotiationSize])
		if err != nil {
			return Event{}, false, err
		}
		return Event{Kind: EventNegotiation, Negotiation: n}, true, nil

	case stateSubnegotiationOption:
		if err := p.writeByte(b); err != nil {
			return Event{}, false, err
		}
		p.state = stateSubnegotiationSubOption
		return Event{}, false, nil

	case stateSubnegotiationSubOption:
		if err := p.writeByte(b); err != nil {
			return Event{}, false, err
		}
		p.state = stateSubnegotiationData
		return Event{}, false, nil

	case stateSubnegotiationData:
		if err := p.writeByte(b); err != nil {
			return Event{}, false, err
		}
		if b == IAC {
			p.state = stateSubnegotiationEnd
		}
		return Event{}, false, nil

	case stateSubnegotiationEnd:
		switch b {
		case IAC:
			// Doubled IAC: still inside the data, keep both escape bytes
			// in the buffer for deserializeSubnegotiation to un-escape.
			if err := p.writeByte(b); err != nil {
				return Event{}, false, err
			}
			p.state = stateSubnegotiationData
			return Event{}, false, nil
		case SE:
			if err := p.writeByte(b); err != nil {
				return Event{}, false, err
			}
			p.state = stateData
			sub, err := deserializeSubnegotiation(p.buf[:p.bufLen])
			if err != nil {
				return Event{}, false, err
			}
			return Event{Kind: EventSubnegotiation, Subnegotiation: sub}, true, nil
		default:
			return Event{}, false, ErrSubnegotiationParsing
		}

	default:
		return Event{}, false, fmt.Errorf("telnet: parser in unknown state %d", p.state)
	}
}

func (p *Parser) dispatchCommandByte(code byte) (Event, bool, error) {
	switch code {
	case WILL, WONT, DO, DONT:
		p.state = stateNegotiation
		return Event{}, false, nil
	case SB:
		p.state = stateSubnegotiationOption
		return Event{}, false, nil
	default:
		p.state = stateData
		cmd, err := deserializeCommand(p.buf[:CommandSize])
		if err != nil {
			return Event{}, false, err
		}
		return Event{Kind: EventCommand, Command: cmd}, true, nil
	}
}
