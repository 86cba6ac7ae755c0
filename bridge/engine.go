package bridge

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/moodclient/rfc2217/comport"
	"github.com/moodclient/rfc2217/telnet"
)

// pollTimeout bounds how long a single Tick blocks on the TCP side before
// moving on to poll the serial side. The original implementation achieves
// the same non-blocking poll by setting the socket itself non-blocking;
// net.Conn has no such mode, so a short read deadline stands in for it.
const pollTimeout = 20 * time.Millisecond

// Engine bridges one TCP peer to one serial port for the lifetime of a
// single RFC 2217 session. It owns no goroutines of its own: a caller
// drives it by calling Tick in a loop, which lets cmd/rfc2217d decide
// how (or whether) to run multiple sessions concurrently.
type Engine struct {
	ID uuid.UUID

	conn       net.Conn
	connWriter *bufio.Writer

	port       comport.Port
	portWriter *bufio.Writer

	parser    telnet.Parser
	answerBuf [telnet.MaxSize]byte

	signature            []byte
	suspendedFlowControl comport.FlowControl
	breakState           bool

	logger *slog.Logger

	onError          *EventPublisher[error]
	onSubnegotiation *EventPublisher[SubnegotiationEvent]
	onSession        *EventPublisher[SessionEvent]
}

// NewEngine constructs an Engine for one accepted connection over one open
// serial port. The caller retains ownership of both conn and port and must
// Close them once the Engine's session ends.
func NewEngine(conn net.Conn, port comport.Port, logger *slog.Logger, hooks EventHooks) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		ID:         uuid.New(),
		conn:       conn,
		connWriter: bufio.NewWriter(conn),
		port:       port,
		portWriter: bufio.NewWriter(port),
		parser:     *telnet.NewParser(),
		logger:     logger,

		onError:          NewPublisher[error](hooks.EncounteredError),
		onSubnegotiation: NewPublisher[SubnegotiationEvent](hooks.ComPortEvent),
		onSession:        NewPublisher[SessionEvent](hooks.SessionEvent),
	}

	e.onSession.Fire(e, SessionEvent{Phase: "opened"})
	return e
}

// RegisterErrorHook registers an additional error hook after construction.
func (e *Engine) RegisterErrorHook(hook ErrorHandler) { e.onError.Register(EventHook[error](hook)) }

// RegisterComPortHook registers an additional subnegotiation hook after construction.
func (e *Engine) RegisterComPortHook(hook SubnegotiationHandler) {
	e.onSubnegotiation.Register(EventHook[SubnegotiationEvent](hook))
}

// Run drives Tick in a loop until ctx is cancelled or Tick returns a fatal
// error. Non-fatal errors (ErrParsing, ErrSerial, ErrTcp I/O failures that
// aren't the connection closing) are logged and treated as session-ending;
// transient timeouts are swallowed inside Tick and never reach here.
func (e *Engine) Run(ctx context.Context) error {
	defer e.onSession.Fire(e, SessionEvent{Phase: "closed"})

	buf := make([]byte, 256)
	for ctx.Err() == nil {
		if err := e.Tick(buf); err != nil {
			e.onSession.Fire(e, SessionEvent{Phase: "closed", Err: err})
			return err
		}
	}
	return ctx.Err()
}

// Tick performs one poll iteration: drain what's waiting on the TCP side
// into the parser (answering negotiations and subnegotiations as it goes),
// drain what's waiting on the serial side back to TCP with IAC bytes
// escaped, then flush both buffered writers. A read that simply has
// nothing available is not an error.
func (e *Engine) Tick(tcpBuf []byte) error {
	if err := e.conn.SetReadDeadline(time.Now().Add(pollTimeout)); err != nil {
		return e.fail(ErrTcp, err)
	}

	n, err := e.conn.Read(tcpBuf)
	if n > 0 {
		if procErr := e.processTCPData(tcpBuf[:n]); procErr != nil {
			return e.fail(ErrParsing, procErr)
		}
	}
	if err != nil && !isTimeout(err) && !errors.Is(err, net.ErrClosed) {
		return e.fail(ErrTcp, err)
	}

	serialBuf := make([]byte, 256)
	sn, serr := e.port.Read(serialBuf)
	if sn > 0 {
		for _, b := range serialBuf[:sn] {
			if werr := e.writeConn([]byte{b}); werr != nil {
				return e.fail(ErrTcp, werr)
			}
			if b == telnet.IAC {
				if werr := e.writeConn([]byte{b}); werr != nil {
					return e.fail(ErrTcp, werr)
				}
			}
		}
	}
	if serr != nil && !errors.Is(serr, comport.ErrTimedOut) && !errors.Is(serr, comport.ErrWouldBlock) {
		return e.fail(ErrSerial, serr)
	}

	if ferr := e.portWriter.Flush(); ferr != nil {
		return e.fail(ErrSerial, ferr)
	}
	if ferr := e.connWriter.Flush(); ferr != nil {
		return e.fail(ErrTcp, ferr)
	}

	return nil
}

func (e *Engine) processTCPData(data []byte) error {
	for _, b := range data {
		ev, done, err := e.parser.ProcessByte(b)
		if err != nil {
			return err
		}
		if !done {
			continue
		}

		answerLen, err := e.processEvent(ev)
		if err != nil {
			return err
		}
		if answerLen > 0 {
			if werr := e.writeConn(e.answerBuf[:answerLen]); werr != nil {
				return werr
			}
		}
	}
	return nil
}

func (e *Engine) processEvent(ev telnet.Event) (int, error) {
	switch ev.Kind {
	case telnet.EventData:
		_, err := e.portWriter.Write([]byte{ev.Data})
		return 0, err
	case telnet.EventCommand:
		return 0, nil
	case telnet.EventNegotiation:
		return e.processNegotiation(ev.Negotiation), nil
	case telnet.EventSubnegotiation:
		return e.processSubnegotiation(ev.Subnegotiation)
	default:
		return 0, nil
	}
}

func (e *Engine) processNegotiation(n telnet.Negotiation) int {
	answer, ok := n.Answer()
	if !ok {
		return 0
	}
	answer.Serialize(e.answerBuf[:telnet.NegotiationSize])
	return telnet.NegotiationSize
}

func (e *Engine) writeConn(b []byte) error {
	_, err := e.connWriter.Write(b)
	var netErr net.Error
	if errors.As(err, &netErr) && isTemporary(netErr) {
		_, err = e.connWriter.Write(b)
	}
	return err
}

func (e *Engine) fail(kind ErrorKind, err error) error {
	wrapped := wrapErr(kind, err)
	e.onError.Fire(e, wrapped)
	e.logger.LogAttrs(context.Background(), slog.LevelError, "bridge session error",
		slog.String("session", e.ID.String()), slog.String("kind", kind.String()), slog.Any("error", err))
	return wrapped
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// isTemporary exists because net.Error.Temporary is deprecated without a
// direct replacement for the transient-retry idiom it used to express;
// this bridge reuses it only for the handful of errno-level hiccups
// (ECONNRESET-adjacent) that are still worth one immediate retry.
func isTemporary(err net.Error) bool {
	type temporary interface{ Temporary() bool }
	t, ok := any(err).(temporary)
	return ok && t.Temporary()
}
