package haptic

import "sync"

// stopWorker runs stop jobs one at a time on its own goroutine.
//
// The queue is a single slot: submitting while a job is already pending
// coalesces into that job. Jobs may block; they never run on the timer's
// goroutine.
type stopWorker struct {
	job func()

	kick    chan struct{}
	flushCh chan chan struct{}

	closeOnce sync.Once
	quit      chan struct{}
	done      chan struct{}
}

func newStopWorker(job func()) *stopWorker {
	w := &stopWorker{
		job:     job,
		kick:    make(chan struct{}, 1),
		flushCh: make(chan chan struct{}),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *stopWorker) run() {
	defer close(w.done)
	for {
		select {
		case <-w.quit:
			return
		case <-w.kick:
			w.job()
		case ack := <-w.flushCh:
			// Anything in flight already finished: this goroutine is the
			// only one running jobs. Drain the pending slot before acking.
			select {
			case <-w.kick:
				w.job()
			default:
			}
			close(ack)
		}
	}
}

// submit queues a stop job without blocking. It reports false when a job
// was already pending and the request was coalesced into it.
func (w *stopWorker) submit() bool {
	select {
	case w.kick <- struct{}{}:
		return true
	default:
		return false
	}
}

// flush waits until every job submitted before the call has completed.
// It returns immediately once the worker is closed.
func (w *stopWorker) flush() {
	ack := make(chan struct{})
	select {
	case w.flushCh <- ack:
	case <-w.done:
		return
	}
	select {
	case <-ack:
	case <-w.done:
	}
}

// close stops the goroutine after the job in progress, if any. Pending jobs
// are dropped; flush first to run them.
func (w *stopWorker) close() {
	w.closeOnce.Do(func() { close(w.quit) })
	<-w.done
}
