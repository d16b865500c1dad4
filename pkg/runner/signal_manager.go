package runner

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// raceWindow is how long CheckRace waits for a pending cancellation before
// treating a read failure as a genuine input error. Some terminals deliver
// the broken read slightly ahead of the interrupt signal.
const raceWindow = 100 * time.Millisecond

// SignalManager turns SIGINT and SIGTERM into context cancellation so an
// interrupted exam is halted and persisted instead of dying mid-write. The
// runner re-arms it after recording the halt, so a second interrupt during
// the wind-down still cancels the current read.
type SignalManager struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewSignalManager returns a manager that is already listening.
func NewSignalManager() *SignalManager {
	sm := &SignalManager{}
	sm.Reset()
	return sm
}

// Context returns the context cancelled by the next interrupt.
func (sm *SignalManager) Context() context.Context {
	return sm.ctx
}

// Reset discards the current context and arms a fresh one. Call it once an
// interrupt has been handled; the old context stays cancelled for anyone
// still holding it.
func (sm *SignalManager) Reset() {
	if sm.cancel != nil {
		sm.cancel()
	}
	sm.ctx, sm.cancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// Stop cancels the context and stops listening.
func (sm *SignalManager) Stop() {
	if sm.cancel != nil {
		sm.cancel()
	}
}

// CheckRace gives a trailing interrupt up to raceWindow to land. On some
// platforms Ctrl+C surfaces as a stdin error before the signal context is
// cancelled; waiting here lets the caller tell the two apart.
func (sm *SignalManager) CheckRace() {
	if sm.ctx.Err() != nil {
		return
	}
	select {
	case <-sm.ctx.Done():
	case <-time.After(raceWindow):
	}
}
