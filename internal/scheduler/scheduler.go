// Package scheduler implements C9: cooperative fibers multiplexed over a
// work queue. It follows the same worker-pool shape used elsewhere in this
// codebase for tracked concurrent units — a map of in-flight units guarded
// by a mutex, workers pulling from a queue, accounting kept alongside each
// unit — generalized from "workers running arbitrary jobs to completion"
// to "goroutines driving rt.Fiber values through short VM timeslices and
// re-queuing the ones that aren't done yet."
//
// A C/C++ scheduler hand-rolls cooperative stack-switching because its
// host language has no native coroutines. Go does: a goroutine already
// *is* a cheap, preemptible-at-blocking-points coroutine, and blocking on
// a channel receive parks it without tying up an OS thread. We keep the
// usual job bookkeeping (creation time, last-ran time, sleeping-for, run
// count, FIFO-ish fairness) as the diagnostic and fairness layer, but let
// each fiber live on its own goroutine rather than hand-threading a
// single-goroutine run queue: the channel package's blocking sends/
// receives (C10) can then park a fiber mid-rendezvous without any risk of
// wedging a shared worker thread that some other, unrelated fiber needed
// to make progress. See DESIGN.md for the fuller writeup of this tradeoff.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/cedar-lang/cedar/internal/rt"
	"github.com/cedar-lang/cedar/internal/vm"
)

// DefaultSlice is the per-run timeslice budget a fiber gets before the VM
// is asked to yield at its next back-edge (a typical value is 2ms).
const DefaultSlice = 2 * time.Millisecond

// Job wraps a fiber with the scheduling accounting a cooperative
// scheduler needs: creation time, last-ran time, sleeping-for duration,
// run count. The fiber itself carries RunCount/WaitTimeNanos/SleepRequest
// (rt.Fiber) so a native builtin can update them without importing this
// package; Job adds only the bookkeeping a caller outside the fiber needs
// (its id, whether it has finished, a way to wait for that).
type Job struct {
	ID        uuid.UUID
	Fiber     *rt.Fiber
	CreatedAt time.Time
	LastRan   time.Time

	done chan struct{}
}

// Wait blocks until the job's fiber has finished (returned from its root
// frame or terminated with an unhandled error).
func (j *Job) Wait() { <-j.done }

// Done reports whether the job has finished without blocking.
func (j *Job) Done() bool {
	select {
	case <-j.done:
		return true
	default:
		return false
	}
}

// Runtime is one logical scheduler (several could exist, one per OS
// thread); here a single Runtime value plays that role for the whole
// process. Its semaphore bounds how many fibers may be mid-timeslice at
// once, which is the closest Go analogue to "N scheduler OS threads" once
// each fiber runs on its own goroutine.
type Runtime struct {
	vm    *vm.VM
	sem   *semaphore.Weighted
	slice time.Duration

	mu      sync.RWMutex
	jobs    map[uuid.UUID]*Job
	byFiber map[*rt.Fiber]*Job

	group *errgroup.Group
	gctx  context.Context
}

// Option configures a Runtime constructed by New.
type Option func(*Runtime)

// WithSlice overrides DefaultSlice.
func WithSlice(d time.Duration) Option { return func(r *Runtime) { r.slice = d } }

// WithMaxParallel bounds how many fibers may be actively executing bytecode
// at once; it is sized generously by default (see New) since a fiber
// parked in a channel rendezvous still occupies a semaphore slot for that
// duration (a sleeping fiber does not: runJob sleeps before acquiring) —
// see the package doc comment.
func WithMaxParallel(n int64) Option {
	return func(r *Runtime) { r.sem = semaphore.NewWeighted(n) }
}

// New builds a Runtime bound to machine, ready to accept Spawn calls.
func New(machine *vm.VM, opts ...Option) *Runtime {
	ctx := context.Background()
	group, gctx := errgroup.WithContext(ctx)
	r := &Runtime{
		vm:    machine,
		sem:   semaphore.NewWeighted(4096),
		slice: DefaultSlice,
		jobs:    make(map[uuid.UUID]*Job),
		byFiber: make(map[*rt.Fiber]*Job),
		group: group,
		gctx:  gctx,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Spawn implements `go*`: lam is primed with args on a brand new fiber and
// admitted to the scheduler immediately; it returns the Job so the caller
// can block on completion (`join`) or simply let it run to be garbage
// collected once done.
func (r *Runtime) Spawn(lam *rt.Lambda, args []rt.Value) *Job {
	fiber := rt.NewFiber(r.vm.Registry())
	effective := lam.EffectiveArgs(args)
	fiber.PushFrame(lam, 0, rt.List(r.vm.Registry(), effective...))
	return r.adopt(fiber)
}

// Adopt registers an already-primed fiber (e.g. the program's root fiber,
// primed by the loader before main starts) and schedules it for
// execution, without requiring a *rt.Lambda at the call site.
func (r *Runtime) Adopt(fiber *rt.Fiber) *Job {
	return r.adopt(fiber)
}

func (r *Runtime) adopt(fiber *rt.Fiber) *Job {
	job := &Job{
		ID:        uuid.New(),
		Fiber:     fiber,
		CreatedAt: now(),
		done:      make(chan struct{}),
	}
	r.mu.Lock()
	r.jobs[job.ID] = job
	r.byFiber[fiber] = job
	r.mu.Unlock()

	r.group.Go(func() error {
		r.runJob(job)
		return nil
	})
	return job
}

// Join blocks until fiber's owning job has finished and returns its result
// (fiber.Result/fiber.Err once Done), the operation behind a `join`
// builtin applied to a `go*`-spawned fiber handle. ok is false if fiber
// was never spawned through this Runtime (e.g. a throwaway Apply fiber).
func (r *Runtime) Join(fiber *rt.Fiber) (result rt.Value, err error, ok bool) {
	r.mu.RLock()
	job, found := r.byFiber[fiber]
	r.mu.RUnlock()
	if !found {
		return rt.Nil, nil, false
	}
	job.Wait()
	return fiber.Result, fiber.Err, true
}

// runJob drives job's fiber in timeslices until it finishes, honoring
// sleep requests and the usual cooperative-scheduling loop steps (minus a
// literal FIFO work-queue data structure: one goroutine per job, parked
// between slices by time.Timer rather than re-enqueued and polled by a
// shared loop, is the Go-native way to get the same "don't busy-wait, and
// don't touch this fiber again before its nap is over" behavior).
func (r *Runtime) runJob(job *Job) {
	defer func() {
		r.mu.Lock()
		delete(r.jobs, job.ID)
		delete(r.byFiber, job.Fiber)
		r.mu.Unlock()
		close(job.done)
	}()

	fiber := job.Fiber
	for {
		if wait := time.Duration(fiber.SleepRequest); wait > 0 {
			fiber.WaitTimeNanos += int64(wait)
			fiber.SleepRequest = 0
			timer := time.NewTimer(wait)
			<-timer.C
		}

		if err := r.sem.Acquire(r.gctx, 1); err != nil {
			fiber.Finish(rt.Nil, err)
			return
		}
		start := now()
		deadline := start.Add(r.slice)
		err := r.vm.Run(fiber, func() bool { return now().After(deadline) })
		r.sem.Release(1)

		fiber.RunCount++
		job.LastRan = now()

		if err != nil {
			return
		}
		if fiber.Done {
			return
		}
		// Yielded mid-slice (back-edge budget expired, or a sleep was
		// requested and is handled at the top of the next iteration).
	}
}

// Wait blocks until every job spawned so far has finished. It does not
// prevent new jobs from being spawned concurrently with the wait.
func (r *Runtime) Wait() error { return r.group.Wait() }

// Jobs returns a snapshot of the currently live (not yet finished) jobs,
// for scheduler diagnostics builtins (`(scheduler/stats)`-style).
func (r *Runtime) Jobs() []*Job {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		out = append(out, j)
	}
	return out
}

// now is the scheduler's one time source, isolated so accounting logic
// stays readable without sprinkling time.Now() through runJob.
func now() time.Time { return time.Now() }
