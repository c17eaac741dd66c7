// Package events dispatches domain events to registered handlers.
//
// Handlers are best-effort side-effect consumers. A handler failure, panic or
// timeout is logged and never reaches the code that dispatched the event.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/mtlprog/taskpulse/internal/domain"
)

const tracerName = "github.com/mtlprog/taskpulse/internal/events"

// Handler reacts to a domain event.
type Handler interface {
	Handle(ctx context.Context, event domain.Event) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, event domain.Event) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, event domain.Event) error {
	return f(ctx, event)
}

// Dispatcher maps event names to ordered handler lists.
// It is safe for concurrent registration and dispatch.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]Handler

	logger      *slog.Logger
	tracer      trace.Tracer
	timeout     time.Duration
	concurrency int
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger used for handler failures.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// WithTracerProvider sets the provider used for dispatch spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(d *Dispatcher) { d.tracer = tp.Tracer(tracerName) }
}

// WithHandlerTimeout bounds how long a single handler may run. Zero disables the bound.
func WithHandlerTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.timeout = timeout }
}

// WithConcurrency caps how many handlers of one event run at once. Zero or less means no cap.
func WithConcurrency(n int) Option {
	return func(d *Dispatcher) { d.concurrency = n }
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		handlers: make(map[string][]Handler),
		logger:   slog.Default(),
		tracer:   otel.GetTracerProvider().Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register appends handler to the list for eventName.
func (d *Dispatcher) Register(eventName string, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventName] = append(d.handlers[eventName], handler)
}

// RegisterFunc is Register for plain functions.
func (d *Dispatcher) RegisterFunc(eventName string, fn func(ctx context.Context, event domain.Event) error) {
	d.Register(eventName, HandlerFunc(fn))
}

// HandlerCount returns the number of handlers registered for eventName.
func (d *Dispatcher) HandlerCount(eventName string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers[eventName])
}

// Clear removes all handlers for eventName.
func (d *Dispatcher) Clear(eventName string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.handlers, eventName)
}

// ClearAll removes every registered handler.
func (d *Dispatcher) ClearAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = make(map[string][]Handler)
}

// Dispatch runs every handler registered for the event concurrently and waits for them.
// It returns immediately when nothing is registered.
func (d *Dispatcher) Dispatch(ctx context.Context, event domain.Event) {
	d.mu.RLock()
	handlers := append([]Handler(nil), d.handlers[event.EventName()]...)
	d.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	ctx, span := d.tracer.Start(ctx, "events.dispatch "+event.EventName(),
		trace.WithAttributes(
			attribute.String("event.name", event.EventName()),
			attribute.String("event.aggregate_id", event.AggregateID()),
			attribute.Int("event.handlers", len(handlers)),
		),
	)
	defer span.End()

	// Handlers never return errors to the group, so Wait only joins them.
	var g errgroup.Group
	if d.concurrency > 0 {
		g.SetLimit(d.concurrency)
	}
	for i, h := range handlers {
		g.Go(func() error {
			d.invoke(ctx, i, h, event)
			return nil
		})
	}
	_ = g.Wait()
}

// DispatchAll dispatches events one after another, in order.
// All handlers of an event finish before the next event starts.
func (d *Dispatcher) DispatchAll(ctx context.Context, events []domain.Event) {
	for _, e := range events {
		d.Dispatch(ctx, e)
	}
}

func (d *Dispatcher) invoke(ctx context.Context, index int, h Handler, event domain.Event) {
	ctx, span := d.tracer.Start(ctx, "events.handle "+event.EventName(),
		trace.WithAttributes(attribute.Int("event.handler_index", index)),
	)
	defer span.End()

	err := d.run(ctx, h, event)
	if err == nil {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	d.logger.Error("event handler failed",
		"event", event.EventName(),
		"aggregate_id", event.AggregateID(),
		"handler_index", index,
		"error", err,
	)
}

// run calls the handler, converting panics to errors and enforcing the timeout.
// A handler that outlives its timeout keeps running in the background; its result is dropped.
func (d *Dispatcher) run(ctx context.Context, h Handler, event domain.Event) error {
	if d.timeout <= 0 {
		return safeHandle(ctx, h, event)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- safeHandle(ctx, h, event)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("handler abandoned after %s: %w", d.timeout, ctx.Err())
	}
}

func safeHandle(ctx context.Context, h Handler, event domain.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return h.Handle(ctx, event)
}
