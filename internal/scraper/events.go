package scraper

import (
	"context"
	"fmt"

	"github.com/offerscout/offerscout/internal/models"
)

// Event is the tagged union emitted over a scrape session's channel.
// Consumers switch on the concrete type; within a session, ProductEvents
// arrive in extraction order and never repeat a product URL.
type Event interface {
	isEvent()
}

type LogEvent struct {
	Level   string
	Message string
	Data    map[string]any
}

type ProgressEvent struct {
	Current int
	Total   int
	Percent float64
	Message string
}

type ProductEvent struct {
	Product models.NormalizedProduct
}

type ErrorEvent struct {
	Type    string
	Message string
}

// CompleteEvent closes a successful session. Selectors carries the discovered
// selector set for diagnostics on the browser strategy; nil for the fetch one.
type CompleteEvent struct {
	Total     int
	Selectors map[string]string
}

func (LogEvent) isEvent()      {}
func (ProgressEvent) isEvent() {}
func (ProductEvent) isEvent()  {}
func (ErrorEvent) isEvent()    {}
func (CompleteEvent) isEvent() {}

// emitter sends events without outliving a cancelled session. A nil channel
// turns every emit into a no-op so strategies can run return-value-only.
type emitter struct {
	ch chan<- Event
}

func (e emitter) send(ctx context.Context, ev Event) {
	if e.ch == nil {
		return
	}
	select {
	case e.ch <- ev:
	case <-ctx.Done():
	}
}

func (e emitter) log(ctx context.Context, level, msg string, data map[string]any) {
	e.send(ctx, LogEvent{Level: level, Message: msg, Data: data})
}

func (e emitter) progress(ctx context.Context, current, total int, msg string) {
	percent := 0.0
	if total > 0 {
		percent = float64(current) / float64(total) * 100
	}
	e.send(ctx, ProgressEvent{Current: current, Total: total, Percent: percent, Message: msg})
}

func (e emitter) product(ctx context.Context, p models.NormalizedProduct) {
	e.send(ctx, ProductEvent{Product: p})
}

func (e emitter) errorf(ctx context.Context, errType, format string, args ...any) {
	e.send(ctx, ErrorEvent{Type: errType, Message: fmt.Sprintf(format, args...)})
}

func (e emitter) complete(ctx context.Context, total int, selectors map[string]string) {
	e.send(ctx, CompleteEvent{Total: total, Selectors: selectors})
}
