package simfs

import "sync"

// IdleScheduler posts a function to run "when the event loop is otherwise
// idle" (spec §5). Exactly one posted function is ever pending per [Engine];
// its cancel func is invoked if the engine is torn down before it runs.
//
// Go has no built-in single-threaded event loop analogous to glib's
// g_idle_add, which the original SIM stack is built on (see DESIGN.md); an
// IdleScheduler is the seam that lets this port plug into whichever
// scheduling model the embedding program uses, while [SerialScheduler]
// supplies a default that preserves the "exactly one goroutine ever touches
// engine state" property the cooperative design depends on.
type IdleScheduler interface {
	// Post schedules fn to run later, serialized with every other function
	// posted to this scheduler. It returns a cancel func that prevents fn
	// from running if it hasn't started yet; calling cancel after fn has
	// already run is a no-op.
	Post(fn func()) (cancel func())
}

// SerialScheduler runs every posted function on a single dedicated
// goroutine, in post order. It is the production [IdleScheduler]: because
// exactly one goroutine ever executes engine callbacks, an [Engine] using a
// SerialScheduler needs no internal locking to satisfy invariant I1 ("at
// most one operation is active at a time").
type SerialScheduler struct {
	tasks chan func()
	once  sync.Once
	done  chan struct{}
}

// NewSerialScheduler starts the worker goroutine and returns a ready-to-use
// scheduler. Call [SerialScheduler.Stop] to shut the goroutine down; posted
// tasks that haven't run yet are discarded.
func NewSerialScheduler() *SerialScheduler {
	s := &SerialScheduler{
		tasks: make(chan func(), 64),
		done:  make(chan struct{}),
	}

	go s.run()

	return s
}

func (s *SerialScheduler) run() {
	for {
		select {
		case fn, ok := <-s.tasks:
			if !ok {
				return
			}

			select {
			case <-s.done:
				return
			default:
			}

			fn()
		case <-s.done:
			return
		}
	}
}

// Post implements [IdleScheduler].
func (s *SerialScheduler) Post(fn func()) (cancel func()) {
	cancelled := make(chan struct{})

	var once sync.Once

	wrapped := func() {
		select {
		case <-cancelled:
			return
		default:
		}

		fn()
	}

	select {
	case s.tasks <- wrapped:
	case <-s.done:
	}

	return func() {
		once.Do(func() { close(cancelled) })
	}
}

// Stop terminates the worker goroutine. Tasks already posted but not yet
// run are discarded, matching the engine teardown contract (spec §3
// "Lifecycle").
func (s *SerialScheduler) Stop() {
	s.once.Do(func() { close(s.done) })
}

// SyncScheduler runs every posted function synchronously, inline, on the
// caller's goroutine. It is intended for deterministic tests that want to
// drive ticks one at a time without a worker goroutine.
type SyncScheduler struct{}

// NewSyncScheduler returns a scheduler that runs tasks inline.
func NewSyncScheduler() *SyncScheduler {
	return &SyncScheduler{}
}

// Post implements [IdleScheduler] by running fn immediately.
func (*SyncScheduler) Post(fn func()) (cancel func()) {
	fn()

	return func() {}
}

var (
	_ IdleScheduler = (*SerialScheduler)(nil)
	_ IdleScheduler = (*SyncScheduler)(nil)
)
