package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-jdb/jdb/pkg/jdi"
	"github.com/sirupsen/logrus"
)

// listener drains the native event stream of one attached session. It
// owns its event queue reference and publishes captured state through
// the session's slot and history; it runs until cancelled by detach or
// until the remote session disconnects.
type listener struct {
	queue      jdi.EventQueue
	session    *Session
	printAsync func(string)
	radius     int
	log        *logrus.Entry
}

// start runs the listener on its own goroutine, closing done on exit,
// and returns the cancellation function detach uses to stop it.
func (l *listener) start(done chan struct{}) context.CancelFunc {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer close(done)
		l.run(ctx)
	}()
	return cancel
}

func (l *listener) run(ctx context.Context) {
	for {
		es, err := l.queue.Remove(ctx)
		if err != nil {
			switch {
			case ctx.Err() != nil:
				// Cancelled by detach; the detaching caller performs
				// all cleanup after the join.
				return
			case errors.Is(err, jdi.ErrDisconnected):
				l.log.Info("remote session disconnected")
				go l.session.forceDetach()
				return
			default:
				l.log.Fatalf("event queue: %v", err)
			}
		}
		for _, ev := range es.Events() {
			if bp, ok := ev.(jdi.BreakpointEvent); ok {
				l.handleBreakpoint(bp, es)
			}
		}
	}
}

func (l *listener) handleBreakpoint(bp jdi.BreakpointEvent, es jdi.EventSet) {
	thread := bp.Thread()
	snap := FrameSnapshot{ThreadName: thread.Name(), Frames: l.captureFrames(thread)}
	l.session.appendSnapshot(snap)
	l.session.publishBreakpoint(bp, es)

	loc := bp.Location()
	l.printAsync(fmt.Sprintf("Hit breakpoint %s:%d", loc.SourceName(), loc.LineNumber()))

	code, err := l.session.Source().Lookup(loc.DeclaringTypeName(), loc.LineNumber(), l.radius)
	if err != nil {
		// A registered source path that cannot be read violates the
		// environment contract.
		l.log.Fatalf("source lookup: %v", err)
	}
	if code != "" {
		l.printAsync("Code context:")
		l.printAsync(code)
	}
}

// captureFrames walks the thread's call stack from the innermost frame
// until the native interface reports exhaustion. A frame that cannot be
// fetched because of the thread's state is skipped, not treated as the
// end of the stack.
func (l *listener) captureFrames(thread jdi.ThreadReference) []jdi.StackFrame {
	var frames []jdi.StackFrame
	for i := 0; ; i++ {
		frame, err := thread.Frame(i)
		if err != nil {
			if errors.Is(err, jdi.ErrIncompatibleThreadState) {
				l.log.Warnf("skipping frame %d: %v", i, err)
				continue
			}
			if errors.Is(err, jdi.ErrNoMoreFrames) {
				break
			}
			l.log.Fatalf("reading frame %d: %v", i, err)
		}
		frames = append(frames, frame)
	}
	return frames
}
