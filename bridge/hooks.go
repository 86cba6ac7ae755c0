package bridge

import "sync"

// EventHook is a function pointer registered to receive events from an Engine.
type EventHook[T any] func(engine *Engine, data T)

// EventPublisher registers and fires arbitrary events for a single Engine.
type EventPublisher[U any] struct {
	lock sync.Mutex

	registeredHooks []EventHook[U]
}

// NewPublisher creates a new EventPublisher. A slice of hooks can be passed in to
// register them immediately, or nil for an empty publisher.
func NewPublisher[U any, T ~func(engine *Engine, data U)](hooks []T) *EventPublisher[U] {
	var converted []EventHook[U]
	for _, hook := range hooks {
		converted = append(converted, EventHook[U](hook))
	}

	return &EventPublisher[U]{registeredHooks: converted}
}

// Register adds a single hook to this publisher.
func (e *EventPublisher[U]) Register(hook EventHook[U]) {
	e.lock.Lock()
	defer e.lock.Unlock()

	e.registeredHooks = append(e.registeredHooks, hook)
}

// Fire invokes every registered hook with the given event data.
func (e *EventPublisher[U]) Fire(engine *Engine, data U) {
	e.lock.Lock()
	defer e.lock.Unlock()

	for _, hook := range e.registeredHooks {
		hook(engine, data)
	}
}

// ErrorHandler receives errors encountered while servicing a session.
type ErrorHandler func(e *Engine, err error)

// SubnegotiationHandler receives every com-port subnegotiation the engine
// processes, after it has been applied to the serial port.
type SubnegotiationHandler func(e *Engine, sub SubnegotiationEvent)

// SessionHandler receives lifecycle events for a session (opened/closed).
type SessionHandler func(e *Engine, event SessionEvent)

// EventHooks is a set of pre-registered hooks, passed to NewEngine.
type EventHooks struct {
	EncounteredError []ErrorHandler
	ComPortEvent     []SubnegotiationHandler
	SessionEvent     []SessionHandler
}

// SubnegotiationEvent describes a com-port subnegotiation the engine acted on.
type SubnegotiationEvent struct {
	Direction string
	Kind      string
}

// SessionEvent describes a bridge lifecycle transition.
type SessionEvent struct {
	Phase string // "opened" or "closed"
	Err   error
}
