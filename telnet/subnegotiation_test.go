package telnet

import "testing"

func feedSubnegotiation(t *testing.T, data []byte) (Subnegotiation, error) {
	t.Helper()
	p := NewParser()
	var last Event
	for _, b := range data {
		ev, done, err := p.ProcessByte(b)
		if err != nil {
			return Subnegotiation{}, err
		}
		if done {
			last = ev
		}
	}
	if last.Kind != EventSubnegotiation {
		t.Fatalf("expected a subnegotiation event, got %+v", last)
	}
	return last.Subnegotiation, nil
}

// S3: query baud rate (value 0) round-trips and the reply encodes the
// effective stored value using the server-direction (+100) opcode.
func TestScenarioQueryBaudRate(t *testing.T) {
	wire := []byte{IAC, SB, ComPortOption, 1, 0, 0, 0, 0, IAC, SE}
	sub, err := feedSubnegotiation(t, wire)
	if err != nil {
		t.Fatal(err)
	}
	baud, ok := sub.BaudRate()
	if !ok || baud != 0 {
		t.Fatalf("expected SetBaudRate(0), got %+v", sub)
	}

	reply := NewSetBaudRate(115200)
	buf := make([]byte, MaxSize)
	n := reply.SerializeServer(buf)
	want := []byte{IAC, SB, ComPortOption, 101, 0x00, 0x01, 0xC2, 0x00, IAC, SE}
	if !bytesEqual(buf[:n], want) {
		t.Fatalf("expected %v, got %v", want, buf[:n])
	}
}

// S4: set baud rate 9600.
func TestScenarioSetBaudRate9600(t *testing.T) {
	wire := []byte{IAC, SB, ComPortOption, 1, 0, 0, 0x25, 0x80, IAC, SE}
	sub, err := feedSubnegotiation(t, wire)
	if err != nil {
		t.Fatal(err)
	}
	baud, ok := sub.BaudRate()
	if !ok || baud != 9600 {
		t.Fatalf("expected SetBaudRate(9600), got %+v", sub)
	}

	buf := make([]byte, MaxSize)
	n := sub.SerializeServer(buf)
	want := []byte{IAC, SB, ComPortOption, 101, 0, 0, 0x25, 0x80, IAC, SE}
	if !bytesEqual(buf[:n], want) {
		t.Fatalf("expected echo %v, got %v", want, buf[:n])
	}
}

// S5: signature containing a literal 0xFF round-trips byte-exact (Law 3).
func TestScenarioSignatureContainingIAC(t *testing.T) {
	signature := []byte{0x63, 0x6F, 0x20, 0xFF, 0x0A, 0x2C}

	wire := []byte{IAC, SB, ComPortOption, 0, 0x63, 0x6F, 0x20, 0xFF, 0xFF, 0x0A, 0x2C, IAC, SE}
	sub, err := feedSubnegotiation(t, wire)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := sub.Signature()
	if !ok || !bytesEqual(got, signature) {
		t.Fatalf("expected signature %v, got %v (ok=%v)", signature, got, ok)
	}

	buf := make([]byte, MaxSize)
	n := NewSetSignature(signature).SerializeClient(buf)
	if !bytesEqual(buf[:n], wire) {
		t.Fatalf("expected wire form %v, got %v", wire, buf[:n])
	}
}

// S6: doubled IAC as literal data in the main data stream (not a
// subnegotiation) yields Data events, one per logical byte.
func TestScenarioDoubledIACLiteralData(t *testing.T) {
	p := NewParser()
	input := []byte{0x41, IAC, IAC, 0x42}
	var gotData []byte
	for _, b := range input {
		ev, done, err := p.ProcessByte(b)
		if err != nil {
			t.Fatal(err)
		}
		if done {
			if ev.Kind != EventData {
				t.Fatalf("expected Data event, got %+v", ev)
			}
			gotData = append(gotData, ev.Data)
		}
	}
	want := []byte{0x41, 0xFF, 0x42}
	if !bytesEqual(gotData, want) {
		t.Fatalf("expected %v, got %v", want, gotData)
	}
}

// Conformance requirement (Design Notes §9 / DESIGN.md decision #3): a
// baud rate whose encoding contains a literal 0xFF not part of an
// adjacent pair must still round-trip, because Serialize escapes every
// subnegotiation payload, not just SetSignature's.
func TestBaudRateEscapesLoneIAC(t *testing.T) {
	baud := uint32(0x0000FF01) // encodes to 00 00 FF 01 - a lone 0xFF, not a pair
	sub := NewSetBaudRate(baud)

	buf := make([]byte, MaxSize)
	n := sub.SerializeClient(buf)

	got, err := feedSubnegotiation(t, buf[:n])
	if err != nil {
		t.Fatal(err)
	}
	gotBaud, ok := got.BaudRate()
	if !ok || gotBaud != baud {
		t.Fatalf("expected SetBaudRate(%d), got %+v", baud, got)
	}
}

func TestParitySubnegotiation(t *testing.T) {
	sub := NewSetParity(1)
	buf := make([]byte, MaxSize)
	n := sub.SerializeClient(buf)

	got, err := feedSubnegotiation(t, buf[:n])
	if err != nil {
		t.Fatal(err)
	}
	val, ok := got.Parity()
	if !ok || val != 1 {
		t.Fatalf("expected SetParity(1), got %+v", got)
	}
}

func TestFlowControlSuspendRoundTrip(t *testing.T) {
	sub := NewFlowControlSuspend()
	buf := make([]byte, MaxSize)
	n := sub.SerializeClient(buf)

	got, err := feedSubnegotiation(t, buf[:n])
	if err != nil {
		t.Fatal(err)
	}
	if got.Kind != KindFlowControlSuspend {
		t.Fatalf("expected FlowControlSuspend, got %+v", got)
	}
}

func TestUnsupportedSubnegotiationRoundTrip(t *testing.T) {
	sub := NewUnsupportedSubnegotiation(31, 1, []byte{0x00, 0x50, 0x00, 0x18})
	buf := make([]byte, MaxSize)
	n := sub.SerializeClient(buf)

	got, err := feedSubnegotiation(t, buf[:n])
	if err != nil {
		t.Fatal(err)
	}
	base, opt, data, ok := got.Unsupported()
	if !ok || base != 31 || opt != 1 || !bytesEqual(data, []byte{0x00, 0x50, 0x00, 0x18}) {
		t.Fatalf("unexpected unsupported subnegotiation: %+v", got)
	}
}

// An option code beyond the valid base/base+100 pair (e.g. 201, which is
// congruent to 1 mod 100) must not fold onto SetBaudRate's kind - it falls
// through to Unsupported, same as any other unrecognized option code.
func TestOptionCodeBeyondBasePairFallsThroughToUnsupported(t *testing.T) {
	wire := []byte{IAC, SB, ComPortOption, 201, 0, 0, 0x25, 0x80, IAC, SE}
	sub, err := feedSubnegotiation(t, wire)
	if err != nil {
		t.Fatal(err)
	}
	base, opt, data, ok := sub.Unsupported()
	if !ok || base != ComPortOption || opt != 201 || !bytesEqual(data, []byte{0, 0, 0x25, 0x80}) {
		t.Fatalf("expected Unsupported(ComPortOption, 201, ...), got %+v (ok=%v)", sub, ok)
	}
	if _, baudOK := sub.BaudRate(); baudOK {
		t.Fatal("option code 201 must not be interpreted as SetBaudRate")
	}
}

func TestBufferOverflow(t *testing.T) {
	p := NewParser()
	feed := []byte{IAC, SB, ComPortOption, 0}
	for _, b := range feed {
		if _, _, err := p.ProcessByte(b); err != nil {
			t.Fatal(err)
		}
	}

	var lastErr error
	for i := 0; i < MaxSize+10; i++ {
		_, _, err := p.ProcessByte(0x41)
		if err != nil {
			lastErr = err
			break
		}
	}
	if lastErr != ErrBufferOverflow {
		t.Fatalf("expected ErrBufferOverflow, got %v", lastErr)
	}
}
