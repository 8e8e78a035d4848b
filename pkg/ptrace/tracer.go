// Package ptrace is the register access layer of tracectl: it wraps the
// kernel tracing syscalls used by the execution control engine.
//
// The kernel only accepts ptrace requests for a tracee from the thread that
// attached to it, so every request issued through a Tracer runs on one
// dedicated goroutine locked to its OS thread.
//
// issue: https://github.com/golang/go/issues/7699
package ptrace

import (
	"errors"
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"github.com/hitzhangjie/tracectl/pkg/logflags"
)

var (
	// ErrExtendedUnsupported is returned by extended register transfers when
	// the host CPU does not expose a usable extended state layout.
	ErrExtendedUnsupported = errors.New("extended register state not supported on this host")

	// ErrBadDebugSlot is returned when a hardware debug register slot lies
	// outside the register window of the host architecture.
	ErrBadDebugSlot = errors.New("hardware debug register slot out of range")

	// ErrTracerClosed is returned by requests issued after Close.
	ErrTracerClosed = errors.New("tracer closed")
)

// Tracer issues ptrace requests on behalf of one debugger session.
type Tracer struct {
	geo XstateGeometry

	once   sync.Once
	reqCh  chan func()
	doneCh chan struct{}
	stopCh chan struct{}
	closed *atomic.Bool

	log *logrus.Entry
}

// NewTracer creates a Tracer using the extended state geometry geo, usually
// obtained once at startup through ProbeXstate.
func NewTracer(geo XstateGeometry) *Tracer {
	return &Tracer{
		geo:    geo,
		reqCh:  make(chan func()),
		doneCh: make(chan struct{}),
		stopCh: make(chan struct{}),
		closed: atomic.NewBool(false),
		log:    logflags.PtraceLogger(),
	}
}

// Geometry returns the extended state geometry this tracer was built with.
func (t *Tracer) Geometry() XstateGeometry {
	return t.geo
}

// exec runs fn on the tracer thread and waits for it to return.
func (t *Tracer) exec(fn func()) error {
	if t.closed.Load() {
		return ErrTracerClosed
	}
	t.once.Do(func() {
		go func() {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()

			for {
				select {
				case reqFn := <-t.reqCh:
					reqFn()
					t.doneCh <- struct{}{}
				case <-t.stopCh:
					return
				}
			}
		}()
	})
	select {
	case t.reqCh <- fn:
	case <-t.stopCh:
		return ErrTracerClosed
	}
	<-t.doneCh
	return nil
}

// Run executes fn on the tracer thread. Processes started from fn (e.g.
// with SysProcAttr.Ptrace set) are traced by that thread.
func (t *Tracer) Run(fn func()) error {
	return t.exec(fn)
}

// Close stops the tracer thread. Tracees still attached are detached by
// the kernel once the thread exits.
func (t *Tracer) Close() {
	if t.closed.CAS(false, true) {
		close(t.stopCh)
	}
}
