package channel

import (
	"testing"
	"time"

	"github.com/cedar-lang/cedar/internal/intern"
	"github.com/cedar-lang/cedar/internal/rt"
)

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition never became true")
}

// P7: the sequence of values received over a rendezvous channel equals
// the sequence sent, for a single producer/single consumer.
func TestRendezvousPreservesSendOrder(t *testing.T) {
	reg := rt.NewRegistry(intern.New())
	ch := rt.NewChannelData(reg, 0)

	got := make(chan rt.Value, 3)
	go func() {
		for i := 0; i < 3; i++ {
			v, open, err := Recv(ch)
			if err != nil || !open {
				t.Errorf("unexpected recv result: open=%v err=%v", open, err)
				return
			}
			got <- v
		}
	}()

	for _, n := range []int64{1, 2, 3} {
		if err := Send(ch, rt.Int(n)); err != nil {
			t.Fatalf("send failed: %v", err)
		}
	}

	for _, want := range []int64{1, 2, 3} {
		v := <-got
		n, _ := v.AsInt()
		if n != want {
			t.Fatalf("expected %d, got %d", want, n)
		}
	}
}

// P8: two receivers parked on the same channel, the first parked strictly
// before the second, are woken in park order — the first never starves
// behind the second.
func TestParkedReceiversWakeInFIFOOrder(t *testing.T) {
	reg := rt.NewRegistry(intern.New())
	ch := rt.NewChannelData(reg, 0)

	firstResult := make(chan rt.Value, 1)
	secondResult := make(chan rt.Value, 1)

	go func() {
		v, _, _ := Recv(ch)
		firstResult <- v
	}()
	waitUntil(t, func() bool {
		ch.Mu.Lock()
		defer ch.Mu.Unlock()
		return len(ch.RecvQ) == 1
	})

	go func() {
		v, _, _ := Recv(ch)
		secondResult <- v
	}()
	waitUntil(t, func() bool {
		ch.Mu.Lock()
		defer ch.Mu.Unlock()
		return len(ch.RecvQ) == 2
	})

	if err := Send(ch, rt.Int(100)); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if err := Send(ch, rt.Int(200)); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	first := <-firstResult
	second := <-secondResult
	n1, _ := first.AsInt()
	n2, _ := second.AsInt()
	if n1 != 100 {
		t.Fatalf("expected the earlier-parked receiver to get the earlier send (100), got %d", n1)
	}
	if n2 != 200 {
		t.Fatalf("expected the later-parked receiver to get the later send (200), got %d", n2)
	}
}

// Close wakes every parked receiver with a clean (nil, false) result
// rather than hanging them forever.
func TestCloseWakesParkedReceivers(t *testing.T) {
	reg := rt.NewRegistry(intern.New())
	ch := rt.NewChannelData(reg, 0)

	result := make(chan bool, 1)
	go func() {
		_, open, _ := Recv(ch)
		result <- open
	}()
	waitUntil(t, func() bool {
		ch.Mu.Lock()
		defer ch.Mu.Unlock()
		return len(ch.RecvQ) == 1
	})

	if err := Close(ch); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if open := <-result; open {
		t.Fatalf("expected a parked receiver to see the channel as closed")
	}
}
