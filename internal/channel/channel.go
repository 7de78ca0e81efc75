// Package channel implements C10: the rendezvous/bounded-buffer mechanics
// behind rt.ChannelData. rt itself only defines the data shape so that
// package stays free of any dependency on how waiters actually park and
// wake; this package supplies that behavior, pairing a mutex-guarded
// struct with small per-waiter signaling channels rather than a condition
// variable (a sync.Cond would need to outlive any single call, which
// rt.ChannelData has no slot for).
package channel

import "github.com/cedar-lang/cedar/internal/rt"

// ErrClosed is returned by Send once a channel has been closed. Recv on a
// closed, drained channel does not return it; it reports ok == false.
type ErrClosed struct{}

func (ErrClosed) Error() string { return "channel is closed" }

// sendWaiter is a parked sender on a rendezvous (capacity-0) channel: the
// receiver that takes val signals done so Send can return.
type sendWaiter struct {
	val  rt.Value
	done chan struct{}
}

// recvWaiter is a parked receiver: result delivers the value a matching
// Send (rendezvous) or buffer slot (bounded) produced for it.
type recvWaiter struct {
	result chan rt.Value
	closed chan struct{}
}

// Send implements §3.7's send operation. On a rendezvous channel
// (Capacity == 0) it blocks until a receiver actually takes the value; on
// a bounded channel it blocks only until buffer space is available.
func Send(ch *rt.ChannelData, v rt.Value) error {
	ch.Mu.Lock()
	if ch.Closed {
		ch.Mu.Unlock()
		return ErrClosed{}
	}
	if ch.IsBounded() {
		return sendBounded(ch, v)
	}
	return sendRendezvous(ch, v)
}

// sendRendezvous hands v directly to a parked receiver if one is waiting,
// else parks the sender until one arrives. Caller holds ch.Mu on entry.
func sendRendezvous(ch *rt.ChannelData, v rt.Value) error {
	if len(ch.RecvQ) > 0 {
		rw := ch.RecvQ[0].(*recvWaiter)
		ch.RecvQ = ch.RecvQ[1:]
		ch.Mu.Unlock()
		rw.result <- v
		return nil
	}
	sw := &sendWaiter{val: v, done: make(chan struct{})}
	ch.SendQ = append(ch.SendQ, sw)
	ch.Mu.Unlock()
	<-sw.done
	return nil
}

// sendBounded appends v to the ring buffer once space is available,
// waking one parked receiver directly if any is waiting. Caller holds
// ch.Mu on entry.
func sendBounded(ch *rt.ChannelData, v rt.Value) error {
	for {
		if len(ch.RecvQ) > 0 {
			rw := ch.RecvQ[0].(*recvWaiter)
			ch.RecvQ = ch.RecvQ[1:]
			ch.Mu.Unlock()
			rw.result <- v
			return nil
		}
		if len(ch.Buf) < ch.Capacity {
			ch.Buf = append(ch.Buf, v)
			ch.Mu.Unlock()
			return nil
		}
		wait := make(chan struct{})
		ch.SendQ = append(ch.SendQ, wait)
		ch.Mu.Unlock()
		<-wait
		ch.Mu.Lock()
		if ch.Closed {
			ch.Mu.Unlock()
			return ErrClosed{}
		}
	}
}

// Recv implements §3.7's receive operation, returning (value, false) on a
// clean close-and-drain per the original's "receiving on a closed, empty
// channel returns a sentinel rather than blocking forever".
func Recv(ch *rt.ChannelData) (rt.Value, bool, error) {
	ch.Mu.Lock()
	if ch.IsBounded() {
		return recvBounded(ch)
	}
	return recvRendezvous(ch)
}

func recvRendezvous(ch *rt.ChannelData) (rt.Value, bool, error) {
	if len(ch.SendQ) > 0 {
		sw := ch.SendQ[0].(*sendWaiter)
		ch.SendQ = ch.SendQ[1:]
		ch.Mu.Unlock()
		close(sw.done)
		return sw.val, true, nil
	}
	if ch.Closed {
		ch.Mu.Unlock()
		return rt.Nil, false, nil
	}
	rw := &recvWaiter{result: make(chan rt.Value, 1), closed: make(chan struct{})}
	ch.RecvQ = append(ch.RecvQ, rw)
	ch.Mu.Unlock()
	select {
	case v := <-rw.result:
		return v, true, nil
	case <-rw.closed:
		return rt.Nil, false, nil
	}
}

func recvBounded(ch *rt.ChannelData) (rt.Value, bool, error) {
	for {
		if len(ch.Buf) > 0 {
			v := ch.Buf[0]
			ch.Buf = ch.Buf[1:]
			wakeOneSender(ch)
			ch.Mu.Unlock()
			return v, true, nil
		}
		if ch.Closed {
			ch.Mu.Unlock()
			return rt.Nil, false, nil
		}
		rw := &recvWaiter{result: make(chan rt.Value, 1), closed: make(chan struct{})}
		ch.RecvQ = append(ch.RecvQ, rw)
		ch.Mu.Unlock()
		select {
		case v := <-rw.result:
			return v, true, nil
		case <-rw.closed:
			ch.Mu.Lock()
			continue
		}
	}
}

// wakeOneSender signals one parked bounded-channel sender, if any, that a
// buffer slot is now free. Caller holds ch.Mu.
func wakeOneSender(ch *rt.ChannelData) bool {
	if len(ch.SendQ) == 0 {
		return false
	}
	wait := ch.SendQ[0].(chan struct{})
	ch.SendQ = ch.SendQ[1:]
	close(wait)
	return true
}

// Close implements §3.7's close: idempotent, wakes every parked sender and
// receiver rather than leaving them hanging forever. Receivers get the
// close result (ok == false) once the buffer is drained, bounded-channel
// senders get ErrClosed, and rendezvous senders return nil.
func Close(ch *rt.ChannelData) error {
	ch.Mu.Lock()
	defer ch.Mu.Unlock()
	if ch.Closed {
		return nil
	}
	ch.Closed = true
	for _, w := range ch.RecvQ {
		close(w.(*recvWaiter).closed)
	}
	ch.RecvQ = nil
	for _, w := range ch.SendQ {
		if ch.IsBounded() {
			close(w.(chan struct{}))
		} else {
			// A rendezvous sender parked with no receiver in sight: closing
			// the channel out from under it releases the goroutine. It
			// observes its send as having completed, matching the original
			// semantics of close() being a best-effort unblock rather than
			// a guaranteed-delivered error for in-flight sends.
			close(w.(*sendWaiter).done)
		}
	}
	ch.SendQ = nil
	return nil
}
