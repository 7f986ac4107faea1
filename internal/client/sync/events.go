package sync

import "time"

// EventType тип события синхронизации
type EventType int

const (
	// EventCycleStarted цикл начался
	EventCycleStarted EventType = iota + 1
	// EventCycleEnded цикл завершился (успешно или нет)
	EventCycleEnded
)

func (t EventType) String() string {
	switch t {
	case EventCycleStarted:
		return "cycle_started"
	case EventCycleEnded:
		return "cycle_ended"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers at cycle boundaries.
// Result and Err are set only for EventCycleEnded.
type Event struct {
	At     time.Time
	Err    error
	Result *CycleResult
	Type   EventType
}

// Subscription is returned by Subscribe
type Subscription struct {
	e  *Engine
	id uint64
}

// Unsubscribe stops delivery. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.e.mu.Lock()
	delete(s.e.listeners, s.id)
	s.e.mu.Unlock()
}

// Subscribe registers fn for cycle events. fn is called synchronously from
// the goroutine running the cycle and must not block.
func (e *Engine) Subscribe(fn func(Event)) *Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	e.listeners[e.nextID] = fn
	return &Subscription{e: e, id: e.nextID}
}

func (e *Engine) emit(ev Event) {
	e.mu.Lock()
	listeners := make([]func(Event), 0, len(e.listeners))
	for _, fn := range e.listeners {
		listeners = append(listeners, fn)
	}
	e.mu.Unlock()

	for _, fn := range listeners {
		fn(ev)
	}
}
