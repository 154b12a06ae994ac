// Package worker implements the single-threaded engine loop that owns the
// order book exclusively: it drains the command queue, hands commands to
// the matching engine, and periodically steps the flow generator on the
// same goroutine.
package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Shagai/hft-sim/book"
	"github.com/Shagai/hft-sim/events"
	"github.com/Shagai/hft-sim/flow"
	"github.com/Shagai/hft-sim/matching"
	"github.com/Shagai/hft-sim/ringqueue"
)

// State is a lifecycle stage of a Worker.
type State int32

const (
	Created State = iota
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case Created:
		return "Created"
	case Running:
		return "Running"
	case Stopped:
		return "Stopped"
	default:
		return "unknown"
	}
}

// maxDrainPerIteration bounds how many commands the worker drains before
// stepping the flow generator, so an aggressive producer cannot starve
// street flow.
const maxDrainPerIteration = 256

// pollInterval is the pause between loop iterations once the command queue
// has been drained and the generator has stepped.
const pollInterval = 100 * time.Microsecond

// Worker owns a book exclusively and runs the drain-step-sleep loop on a
// dedicated goroutine.
type Worker struct {
	book      *book.Book
	engine    *matching.Engine
	generator *flow.Generator
	cmdQ      *ringqueue.RingQueue[events.Command]
	log       *zap.Logger

	state  atomic.Int32
	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a Worker in the Created state. now supplies the nanosecond
// clock used by the book and the matching engine.
func New(
	cmdQ *ringqueue.RingQueue[events.Command],
	execQ *ringqueue.RingQueue[events.ExecEvent],
	mdQ *ringqueue.RingQueue[events.MarketDataEvent],
	flowCfg flow.Config,
	now func() int64,
	log *zap.Logger,
) *Worker {
	b := book.New(now)
	w := &Worker{
		book:      b,
		generator: flow.New(flowCfg),
		cmdQ:      cmdQ,
		log:       log,
	}
	w.engine = matching.New(b, execQ, mdQ, now, log)
	return w
}

// State reports the worker's current lifecycle stage.
func (w *Worker) State() State {
	return State(w.state.Load())
}

// Start transitions Created -> Running and spawns the worker goroutine.
// Calling Start twice is a programmer error.
func (w *Worker) Start() error {
	if !w.state.CompareAndSwap(int32(Created), int32(Running)) {
		return fmt.Errorf("worker: Start called from state %s, want %s", w.State(), Created)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})

	go w.run(ctx)
	return nil
}

// Stop transitions Running -> Stopped, signals the loop to exit, and blocks
// until it has. Calling Stop twice, or before Start, is a programmer error.
func (w *Worker) Stop() error {
	if !w.state.CompareAndSwap(int32(Running), int32(Stopped)) {
		return fmt.Errorf("worker: Stop called from state %s, want %s", w.State(), Running)
	}
	w.cancel()
	<-w.done
	return nil
}

// TopSnapshot returns the current top of book. It is a test-only /
// inspection getter: safe to call only while the worker is idle (before
// Start or after Stop), since the book is otherwise touched exclusively by
// the worker goroutine.
func (w *Worker) TopSnapshot() events.TopOfBook {
	return w.book.Top()
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)

	if err := w.generator.SeedBook(w.book); err != nil {
		w.log.Fatal("worker: failed to seed book", zap.Error(err))
		return
	}
	w.engine.PublishTop()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		w.drainCommands()
		w.generator.Step(w.engine)

		select {
		case <-ctx.Done():
			return
		case <-time.After(pollInterval):
		}
	}
}

func (w *Worker) drainCommands() {
	for i := 0; i < maxDrainPerIteration; i++ {
		cmd, ok := w.cmdQ.Pop()
		if !ok {
			return
		}
		w.engine.OnCommand(cmd)
	}
}
