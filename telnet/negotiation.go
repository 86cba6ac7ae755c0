package telnet

import "fmt"

// NegotiationSize is the wire size of a Negotiation: IAC, intent, option.
const NegotiationSize = 3

// Intent is one of the four Telnet option-negotiation verbs.
type Intent byte

const (
	IntentWill Intent = iota
	IntentWont
	IntentDo
	IntentDont
)

func (i Intent) String() string {
	switch i {
	case IntentWill:
		return "Will"
	case IntentWont:
		return "Wont"
	case IntentDo:
		return "Do"
	case IntentDont:
		return "Dont"
	default:
		return "Unknown"
	}
}

func (i Intent) toByte() byte {
	switch i {
	case IntentWill:
		return WILL
	case IntentWont:
		return WONT
	case IntentDo:
		return DO
	case IntentDont:
		return DONT
	default:
		panic("telnet: invalid Intent")
	}
}

func intentFromByte(b byte) (Intent, error) {
	switch b {
	case WILL:
		return IntentWill, nil
	case WONT:
		return IntentWont, nil
	case DO:
		return IntentDo, nil
	case DONT:
		return IntentDont, nil
	default:
		return 0, fmt.Errorf("telnet: %d is not a negotiation intent code", b)
	}
}

// Option identifies a Telnet option under negotiation.
type Option struct {
	code byte
}

var (
	OptionBinary          = Option{0}
	OptionEcho            = Option{1}
	OptionSuppressGoAhead = Option{3}
	OptionComPort         = Option{ComPortOption}
)

// UnsupportedOption preserves an option code this package has no named
// constant for.
func UnsupportedOption(code byte) Option {
	return Option{code}
}

// Code returns the raw wire option code.
func (o Option) Code() byte {
	return o.code
}

func (o Option) String() string {
	switch o.code {
	case 0:
		return "Binary"
	case 1:
		return "Echo"
	case 3:
		return "SuppressGoAhead"
	case ComPortOption:
		return "ComPort"
	default:
		return fmt.Sprintf("Unsupported(%d)", o.code)
	}
}

// Negotiation is a (Intent, Option) pair: IAC WILL|WONT|DO|DONT <option>.
type Negotiation struct {
	Intent Intent
	Option Option
}

// Serialize writes the three-byte wire form of n into dst, which must have
// length >= NegotiationSize.
func (n Negotiation) Serialize(dst []byte) {
	dst[0] = IAC
	dst[1] = n.Intent.toByte()
	dst[2] = n.Option.code
}

// deserializeNegotiation decodes a three-byte IAC-prefixed negotiation.
// buf[0] must be IAC; guaranteed by the parser before calling.
func deserializeNegotiation(buf []byte) (Negotiation, error) {
	if len(buf) < NegotiationSize {
		return Negotiation{}, fmt.Errorf("telnet: negotiation buffer too short: %d bytes", len(buf))
	}
	if buf[0] != IAC {
		return Negotiation{}, fmt.Errorf("telnet: negotiation did not begin with IAC")
	}
	intent, err := intentFromByte(buf[1])
	if err != nil {
		return Negotiation{}, err
	}
	return Negotiation{Intent: intent, Option: Option{buf[2]}}, nil
}

// Answer computes the response this server should send in reaction to a
// peer's negotiation request, per the accepted-option policy of RFC 2217
// §4.4: Binary, ComPort, and SuppressGoAhead are accepted when offered
// (WILL -> DO) and never re-requested once already agreed (DO -> no
// response); anything else is refused. WONT/DONT never generate an answer.
//
// Answer is total over (Will|Do, any Option); applying Answer to its own
// result for an accepted option always yields no further response, so the
// negotiation cannot ping-pong indefinitely.
func (n Negotiation) Answer() (Negotiation, bool) {
	accepted := n.Option == OptionBinary || n.Option == OptionComPort || n.Option == OptionSuppressGoAhead

	switch n.Intent {
	case IntentWill:
		if accepted {
			return Negotiation{Intent: IntentDo, Option: n.Option}, true
		}
		return Negotiation{Intent: IntentDont, Option: n.Option}, true
	case IntentDo:
		if accepted {
			return Negotiation{}, false
		}
		return Negotiation{Intent: IntentWont, Option: n.Option}, true
	default: // IntentWont, IntentDont
		return Negotiation{}, false
	}
}
