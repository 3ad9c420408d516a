// Package audit provides an asynchronous audit trail of client-side
// authentication state changes and record deletions.
package audit

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Actions emitted by the pocketbase client.
const (
	ActionAuthWithPassword = "auth_with_password"
	ActionAuthRecordSync   = "auth_record_sync"
	ActionRecordDelete     = "record_delete"
)

// Results attached to events.
const (
	ResultSuccess = "success"
	ResultPartial = "partial"
	ResultFailure = "failure"
)

// Event represents an audit event.
type Event struct {
	Timestamp  time.Time `json:"timestamp"`
	Action     string    `json:"action"`
	Collection string    `json:"collection,omitempty"`
	RecordID   string    `json:"record_id,omitempty"`
	Identity   string    `json:"identity,omitempty"`
	Result     string    `json:"result"`
	Error      string    `json:"error,omitempty"`
}

// Handler processes audit events. Implementations should not block.
type Handler func(event Event)

// Logger emits audit events to configured handlers.
type Logger struct {
	handlers []Handler
	queue    chan Event
	done     chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// Option configures Logger behavior.
type Option func(*Logger)

// WithStdoutHandler adds a handler that writes JSON events to stdout.
func WithStdoutHandler() Option {
	return func(l *Logger) {
		l.AddHandler(func(e Event) {
			data, _ := json.Marshal(e)
			fmt.Fprintf(os.Stdout, "%s\n", data)
		})
	}
}

// WithSlogHandler adds a handler that logs events at Info level.
func WithSlogHandler(logger *slog.Logger) Option {
	return func(l *Logger) {
		l.AddHandler(func(e Event) {
			logger.Info("audit",
				"action", e.Action,
				"collection", e.Collection,
				"record_id", e.RecordID,
				"result", e.Result,
				"error", e.Error,
			)
		})
	}
}

// WithHandler adds a custom event handler.
func WithHandler(h Handler) Option {
	return func(l *Logger) {
		l.AddHandler(h)
	}
}

// New creates a new audit logger with buffered async emission.
// bufferSize: event queue buffer size (default: 1000).
func New(bufferSize int, opts ...Option) *Logger {
	if bufferSize <= 0 {
		bufferSize = 1000
	}

	logger := &Logger{
		handlers: make([]Handler, 0),
		queue:    make(chan Event, bufferSize),
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(logger)
	}

	logger.wg.Add(1)
	go logger.process()

	return logger
}

// AddHandler adds a handler to receive audit events. It must be called
// before the first Log.
func (l *Logger) AddHandler(h Handler) {
	l.handlers = append(l.handlers, h)
}

// Log emits an audit event asynchronously. A nil Logger discards the event.
func (l *Logger) Log(event Event) {
	if l == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case <-l.done:
		// Logger is shutting down, event is dropped
		return
	default:
	}

	select {
	case l.queue <- event:
	case <-l.done:
	}
}

func (l *Logger) process() {
	defer l.wg.Done()

	for {
		select {
		case event := <-l.queue:
			l.dispatch(event)
		case <-l.done:
			for {
				select {
				case event := <-l.queue:
					l.dispatch(event)
				default:
					return
				}
			}
		}
	}
}

func (l *Logger) dispatch(event Event) {
	for _, h := range l.handlers {
		h(event)
	}
}

// Close flushes pending events and stops the logger. It is safe to call
// more than once.
func (l *Logger) Close() error {
	l.once.Do(func() { close(l.done) })
	l.wg.Wait()
	return nil
}
