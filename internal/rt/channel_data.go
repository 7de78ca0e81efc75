package rt

import "sync"

// ChannelData is the value-level handle for a channel (§3.7/C10): the
// object a cedar program holds and passes around. The actual send/receive
// rendezvous mechanics (parking queues, the scheduler hookup) live in
// internal/channel, which operates on this struct's exported fields
// directly — keeping rt free of any dependency on the scheduler.
//
// A channel is either a rendezvous (Capacity == 0, every send blocks until
// a receiver is parked) or a bounded ring buffer (Capacity > 0).
type ChannelData struct {
	ObjHeader

	Mu       sync.Mutex
	Capacity int
	Buf      []Value
	Closed   bool

	// SendQ/RecvQ hold opaque parked-waiter tokens; internal/channel owns
	// their concrete type and wakes them by signaling Go channels held in
	// those tokens, so rt never imports the scheduler.
	SendQ []interface{}
	RecvQ []interface{}
}

func NewChannelData(reg *Registry, capacity int) *ChannelData {
	return &ChannelData{ObjHeader: ObjHeader{Type: reg.ChannelType}, Capacity: capacity}
}

func (c *ChannelData) IsBounded() bool { return c.Capacity > 0 }
