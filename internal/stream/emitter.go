package stream

import (
	"context"
	"fmt"
)

// DefaultMaxEventErrors is how many invalid events a single stream
// tolerates before aborting with a final error event.
const DefaultMaxEventErrors = 10

// Emitter validates and forwards Events onto a small channel whose buffer
// size the caller chooses, so a slow consumer naturally applies
// backpressure to the producer. Once more than maxErrors invalid events
// have been dropped, it emits one final error event and closes the
// channel.
type Emitter struct {
	ch            chan Event
	correlationID string
	maxErrors     int
	errorCount    int
	aborted       bool
}

// NewEmitter creates an Emitter that writes to a channel with the given
// buffer size (0 for unbuffered).
func NewEmitter(correlationID string, bufferSize, maxErrors int) *Emitter {
	if maxErrors <= 0 {
		maxErrors = DefaultMaxEventErrors
	}
	return &Emitter{
		ch:            make(chan Event, bufferSize),
		correlationID: correlationID,
		maxErrors:     maxErrors,
	}
}

// Events returns the read side of the emitter's channel.
func (e *Emitter) Events() <-chan Event { return e.ch }

// Send validates ev and writes it to the channel, blocking until the
// consumer is ready or ctx is cancelled. An invalid event is dropped and
// counted as an error instead of being sent; once the error count exceeds
// maxErrors, Send emits a terminating error event, closes the channel,
// and every subsequent call is a no-op.
func (e *Emitter) Send(ctx context.Context, ev Event) error {
	if e.aborted {
		return nil
	}
	if !ev.Validate() {
		e.errorCount++
		if e.errorCount > e.maxErrors {
			e.abort(ctx, fmt.Errorf("stream: exceeded %d invalid events", e.maxErrors))
			return nil
		}
		return nil
	}
	select {
	case e.ch <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Emitter) abort(ctx context.Context, cause error) {
	e.aborted = true
	final := New(EventError, e.correlationID, ErrorData{Message: cause.Error()})
	select {
	case e.ch <- final:
	case <-ctx.Done():
	}
	close(e.ch)
}

// Close finalizes the stream with a done event and closes the channel.
// No further Send calls should follow Close.
func (e *Emitter) Close(ctx context.Context, totalExecutionMS float64) {
	if e.aborted {
		return
	}
	e.aborted = true
	done := New(EventDone, e.correlationID, DoneData{TotalExecutionTimeMS: totalExecutionMS})
	select {
	case e.ch <- done:
	case <-ctx.Done():
	}
	close(e.ch)
}
