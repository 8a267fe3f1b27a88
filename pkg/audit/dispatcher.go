package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// DefaultBufferSize is the dispatcher's channel capacity.
const DefaultBufferSize = 256

// Dispatcher decouples audit appends from the request path. Entries are
// queued on a buffered channel and written by a single background worker;
// a full buffer drops the entry and counts it rather than blocking the
// caller, and a recorder failure is logged, never propagated.
type Dispatcher struct {
	recorder  Recorder
	ch        chan Entry
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closeOnce sync.Once
}

// NewDispatcher starts a dispatcher draining into the given recorder.
func NewDispatcher(recorder Recorder, bufferSize int) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	d := &Dispatcher{
		recorder: recorder,
		ch:       make(chan Entry, bufferSize),
		done:     make(chan struct{}),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case entry := <-d.ch:
			d.write(entry)
		case <-d.done:
			// Drain what is already queued, then stop.
			for {
				select {
				case entry := <-d.ch:
					d.write(entry)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) write(entry Entry) {
	if err := d.recorder.Append(context.Background(), entry); err != nil {
		slog.Error("Failed to append audit entry", "action", entry.Action, "err", err)
	}
}

// Record queues an entry. It never blocks and never returns an error.
func (d *Dispatcher) Record(entry Entry) {
	if d == nil {
		return
	}
	select {
	case d.ch <- entry:
	case <-d.done:
	default:
		d.dropped.Add(1)
	}
}

// Dropped reports how many entries were discarded because the buffer was full.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

// Close stops the worker after draining queued entries.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		close(d.done)
	})
	d.wg.Wait()
}
