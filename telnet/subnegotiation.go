package telnet

import "fmt"

// MaxDataSize is the largest subnegotiation payload this package will
// carry inline (Design Notes §9: fixed-capacity, no heap allocation).
const MaxDataSize = 256

// NondataSize is the fixed framing overhead of a subnegotiation frame:
// IAC SB <base> <option> ... IAC SE, excluding the payload.
const NondataSize = 6

// MaxSize is the largest a complete subnegotiation frame may be.
const MaxSize = MaxDataSize + NondataSize

// SubnegotiationKind identifies which RFC 2217 Com-Port subnegotiation (or
// the Unsupported catch-all) a Subnegotiation value carries.
type SubnegotiationKind uint8

const (
	KindSetSignature SubnegotiationKind = iota
	KindSetBaudRate
	KindSetDataSize
	KindSetParity
	KindSetStopSize
	KindSetControl
	KindNotifyLineState
	KindNotifyModemState
	KindFlowControlSuspend
	KindFlowControlResume
	KindSetLinestateMask
	KindSetModemStateMask
	KindPurgeData
	KindUnsupported
)

func (k SubnegotiationKind) String() string {
	switch k {
	case KindSetSignature:
		return "SetSignature"
	case KindSetBaudRate:
		return "SetBaudRate"
	case KindSetDataSize:
		return "SetDataSize"
	case KindSetParity:
		return "SetParity"
	case KindSetStopSize:
		return "SetStopSize"
	case KindSetControl:
		return "SetControl"
	case KindNotifyLineState:
		return "NotifyLineState"
	case KindNotifyModemState:
		return "NotifyModemState"
	case KindFlowControlSuspend:
		return "FlowControlSuspend"
	case KindFlowControlResume:
		return "FlowControlResume"
	case KindSetLinestateMask:
		return "SetLinestateMask"
	case KindSetModemStateMask:
		return "SetModemStateMask"
	case KindPurgeData:
		return "PurgeData"
	default:
		return "Unsupported"
	}
}

// comPortBaseOpcodes maps the Com-Port subnegotiation kinds to their base
// (client-to-server) opcode, per RFC 2217. The server-to-client opcode is
// always base+100.
var comPortBaseOpcodes = map[SubnegotiationKind]byte{
	KindSetSignature:       0,
	KindSetBaudRate:        1,
	KindSetDataSize:        2,
	KindSetParity:          3,
	KindSetStopSize:        4,
	KindSetControl:         5,
	KindNotifyLineState:    6,
	KindNotifyModemState:   7,
	KindFlowControlSuspend: 8,
	KindFlowControlResume:  9,
	KindSetLinestateMask:   10,
	KindSetModemStateMask:  11,
	KindPurgeData:          12,
}

var comPortKindByBaseOpcode = func() map[byte]SubnegotiationKind {
	m := make(map[byte]SubnegotiationKind, len(comPortBaseOpcodes))
	for kind, code := range comPortBaseOpcodes {
		m[code] = kind
	}
	return m
}()

// lookupComPortKind maps an on-the-wire option code to its logical kind,
// accepting only the literal base opcode and its server-to-client base+100
// pair — e.g. 1 and 101 both mean SetBaudRate, but 201 means neither and
// falls through to Unsupported, matching the explicit `0 | 100`, `1 | 101`,
// ... match arms of the original deserializer.
func lookupComPortKind(optionCode byte) (SubnegotiationKind, bool) {
	if kind, ok := comPortKindByBaseOpcode[optionCode]; ok {
		return kind, true
	}
	if optionCode < 100 {
		return 0, false
	}
	kind, ok := comPortKindByBaseOpcode[optionCode-100]
	return kind, ok
}

// Subnegotiation is a decoded RFC 2217 Com-Port subnegotiation, or an
// Unsupported catch-all for any other option's subnegotiation. The payload
// is carried in a fixed [MaxDataSize]byte array with a used-length
// alongside it (Design Notes §9): the type stays comparable and copyable,
// and the parser never allocates to produce one.
type Subnegotiation struct {
	Kind SubnegotiationKind

	data    [MaxDataSize]byte
	dataLen uint16

	baud uint32
	b    byte

	baseOptionCode byte
	optionCode     byte
}

// NewSetSignature builds a SetSignature subnegotiation. data longer than
// MaxDataSize is truncated at construction time (Design Notes §9 /
// DESIGN.md open-question #1) so no later reply path can overflow a
// fixed-size reply buffer.
func NewSetSignature(data []byte) Subnegotiation {
	s := Subnegotiation{Kind: KindSetSignature}
	n := copy(s.data[:], data)
	s.dataLen = uint16(n)
	return s
}

// Signature returns the payload of a SetSignature subnegotiation.
func (s Subnegotiation) Signature() ([]byte, bool) {
	if s.Kind != KindSetSignature {
		return nil, false
	}
	return s.data[:s.dataLen], true
}

// NewSetBaudRate builds a SetBaudRate subnegotiation. baud == 0 is the
// RFC 2217 query-by-zero idiom.
func NewSetBaudRate(baud uint32) Subnegotiation {
	return Subnegotiation{Kind: KindSetBaudRate, baud: baud}
}

// BaudRate returns the value of a SetBaudRate subnegotiation.
func (s Subnegotiation) BaudRate() (uint32, bool) {
	if s.Kind != KindSetBaudRate {
		return 0, false
	}
	return s.baud, true
}

func newByteSubnegotiation(kind SubnegotiationKind, v byte) Subnegotiation {
	return Subnegotiation{Kind: kind, b: v}
}

func (s Subnegotiation) byteValue(kind SubnegotiationKind) (byte, bool) {
	if s.Kind != kind {
		return 0, false
	}
	return s.b, true
}

func NewSetDataSize(v byte) Subnegotiation { return newByteSubnegotiation(KindSetDataSize, v) }
func (s Subnegotiation) DataSize() (byte, bool) { return s.byteValue(KindSetDataSize) }

func NewSetParity(v byte) Subnegotiation { return newByteSubnegotiation(KindSetParity, v) }
func (s Subnegotiation) Parity() (byte, bool) { return s.byteValue(KindSetParity) }

func NewSetStopSize(v byte) Subnegotiation { return newByteSubnegotiation(KindSetStopSize, v) }
func (s Subnegotiation) StopSize() (byte, bool) { return s.byteValue(KindSetStopSize) }

func NewSetControl(v byte) Subnegotiation { return newByteSubnegotiation(KindSetControl, v) }
func (s Subnegotiation) Control() (byte, bool) { return s.byteValue(KindSetControl) }

func NewNotifyLineState(v byte) Subnegotiation {
	return newByteSubnegotiation(KindNotifyLineState, v)
}
func (s Subnegotiation) LineState() (byte, bool) { return s.byteValue(KindNotifyLineState) }

func NewNotifyModemState(v byte) Subnegotiation {
	return newByteSubnegotiation(KindNotifyModemState, v)
}
func (s Subnegotiation) ModemState() (byte, bool) { return s.byteValue(KindNotifyModemState) }

func NewSetLinestateMask(v byte) Subnegotiation {
	return newByteSubnegotiation(KindSetLinestateMask, v)
}
func (s Subnegotiation) LinestateMask() (byte, bool) { return s.byteValue(KindSetLinestateMask) }

func NewSetModemStateMask(v byte) Subnegotiation {
	return newByteSubnegotiation(KindSetModemStateMask, v)
}
func (s Subnegotiation) ModemStateMask() (byte, bool) { return s.byteValue(KindSetModemStateMask) }

func NewPurgeData(v byte) Subnegotiation { return newByteSubnegotiation(KindPurgeData, v) }
func (s Subnegotiation) PurgeData() (byte, bool) { return s.byteValue(KindPurgeData) }

// NewFlowControlSuspend builds a FlowControlSuspend subnegotiation (no payload).
func NewFlowControlSuspend() Subnegotiation {
	return Subnegotiation{Kind: KindFlowControlSuspend}
}

// NewFlowControlResume builds a FlowControlResume subnegotiation (no payload).
func NewFlowControlResume() Subnegotiation {
	return Subnegotiation{Kind: KindFlowControlResume}
}

// NewUnsupportedSubnegotiation preserves a subnegotiation whose base option
// code isn't the Com-Port option, or whose Com-Port sub-opcode this package
// doesn't recognize. base_option_code and option_code are emitted verbatim
// on the wire with no client/server +100 offset logic.
func NewUnsupportedSubnegotiation(baseOptionCode, optionCode byte, data []byte) Subnegotiation {
	s := Subnegotiation{
		Kind:           KindUnsupported,
		baseOptionCode: baseOptionCode,
		optionCode:     optionCode,
	}
	n := copy(s.data[:], data)
	s.dataLen = uint16(n)
	return s
}

// Unsupported returns the fields of an Unsupported subnegotiation.
func (s Subnegotiation) Unsupported() (baseOptionCode, optionCode byte, data []byte, ok bool) {
	if s.Kind != KindUnsupported {
		return 0, 0, nil, false
	}
	return s.baseOptionCode, s.optionCode, s.data[:s.dataLen], true
}

// Direction selects which Com-Port opcode offset to serialize with: the
// option code differs by a fixed +100 between the two directions.
type Direction uint8

const (
	ClientToServer Direction = iota
	ServerToClient
)

// writeEscaped appends data to dst starting at offset n, doubling every
// literal 0xFF byte. Every subnegotiation payload is escaped this way on
// emission, not just SetSignature's — the conformance requirement from
// Design Notes §9 (a literal 0xFF in any field, e.g. a baud rate, would
// otherwise be read by the receiver's parser as the subnegotiation
// terminator).
func writeEscaped(dst []byte, n int, data []byte) int {
	for _, b := range data {
		dst[n] = b
		n++
		if b == IAC {
			dst[n] = b
			n++
		}
	}
	return n
}

// Serialize writes the wire form of s into dst (which must be at least
// MaxSize bytes) using the Com-Port opcode appropriate for dir, and returns
// the number of bytes written.
func (s Subnegotiation) Serialize(dst []byte, dir Direction) int {
	if s.Kind == KindUnsupported {
		dst[0], dst[1], dst[2], dst[3] = IAC, SB, s.baseOptionCode, s.optionCode
		n := writeEscaped(dst, 4, s.data[:s.dataLen])
		dst[n], dst[n+1] = IAC, SE
		return n + 2
	}

	base := comPortBaseOpcodes[s.Kind]
	opcode := base
	if dir == ServerToClient {
		opcode += 100
	}

	dst[0], dst[1], dst[2], dst[3] = IAC, SB, ComPortOption, opcode

	var n int
	switch s.Kind {
	case KindSetSignature:
		n = writeEscaped(dst, 4, s.data[:s.dataLen])
	case KindSetBaudRate:
		n = writeEscaped(dst, 4, []byte{byte(s.baud >> 24), byte(s.baud >> 16), byte(s.baud >> 8), byte(s.baud)})
	case KindFlowControlSuspend, KindFlowControlResume:
		n = 4
	default:
		n = writeEscaped(dst, 4, []byte{s.b})
	}

	dst[n], dst[n+1] = IAC, SE
	return n + 2
}

// SerializeClient writes s using client-to-server Com-Port opcodes.
func (s Subnegotiation) SerializeClient(dst []byte) int {
	return s.Serialize(dst, ClientToServer)
}

// SerializeServer writes s using server-to-client Com-Port opcodes.
func (s Subnegotiation) SerializeServer(dst []byte) int {
	return s.Serialize(dst, ServerToClient)
}

// unescapeIAC collapses every doubled-0xFF pair in data to a single literal
// 0xFF. The parser's SubnegotiationData/SubnegotiationEnd states preserve
// escape pairs verbatim in the frame buffer (they only recognize IAC SE as
// the frame terminator); deserialize un-escapes every field uniformly,
// matching the universal escaping Serialize performs.
func unescapeIAC(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		out = append(out, data[i])
		if data[i] == IAC && i+1 < len(data) && data[i+1] == IAC {
			i++
		}
	}
	return out
}

// deserializeSubnegotiation decodes a complete subnegotiation frame: buf[0]
// must be IAC, buf[1] SB, buf[len-2:len] IAC SE. These are structural
// contracts the parser guarantees before calling.
func deserializeSubnegotiation(buf []byte) (Subnegotiation, error) {
	if len(buf) < NondataSize {
		return Subnegotiation{}, fmt.Errorf("telnet: subnegotiation frame too short: %d bytes", len(buf))
	}
	if buf[0] != IAC || buf[1] != SB {
		return Subnegotiation{}, fmt.Errorf("telnet: subnegotiation did not begin with IAC SB")
	}
	if buf[len(buf)-2] != IAC || buf[len(buf)-1] != SE {
		return Subnegotiation{}, fmt.Errorf("telnet: subnegotiation did not end with IAC SE")
	}

	baseOptionCode := buf[2]
	optionCode := buf[3]
	rawData := buf[4 : len(buf)-2]

	if baseOptionCode != ComPortOption {
		data := unescapeIAC(rawData)
		return NewUnsupportedSubnegotiation(baseOptionCode, optionCode, data), nil
	}

	kind, known := lookupComPortKind(optionCode)
	if !known {
		data := unescapeIAC(rawData)
		return NewUnsupportedSubnegotiation(baseOptionCode, optionCode, data), nil
	}

	data := unescapeIAC(rawData)

	switch kind {
	case KindSetSignature:
		return NewSetSignature(data), nil
	case KindSetBaudRate:
		if len(data) < 4 {
			return Subnegotiation{}, fmt.Errorf("telnet: SetBaudRate payload too short: %d bytes", len(data))
		}
		baud := uint32(data[0])<<24 | uint32(data[1])<<16 | uint32(data[2])<<8 | uint32(data[3])
		return NewSetBaudRate(baud), nil
	case KindFlowControlSuspend:
		return NewFlowControlSuspend(), nil
	case KindFlowControlResume:
		return NewFlowControlResume(), nil
	default:
		if len(data) < 1 {
			return Subnegotiation{}, fmt.Errorf("telnet: %s payload too short: %d bytes", kind, len(data))
		}
		return newByteSubnegotiation(kind, data[0]), nil
	}
}
