package engine

import "github.com/shadowsim/corengine/internal/simtime"

// Host is the external collaborator the engine drives. Implementations
// own a private, per-host event priority queue; the engine never reaches
// into it directly.
type Host interface {
	// ID returns the host's stable, process-wide unique identifier.
	ID() HostID

	// PushLocalEvent enqueues event onto the host's private queue. Called
	// by the engine when routing an event whose DstHostID matches this
	// host, and by the host's own event handlers when scheduling
	// same-host follow-up events.
	PushLocalEvent(event Event)

	// PeekNextDeliveryTime returns the delivery time of the earliest
	// pending event and true, or (0, false) if the queue is empty.
	PeekNextDeliveryTime() (simtime.Time, bool)

	// PopAndDeliver dequeues and delivers every event with delivery time
	// strictly less than until, in (DeliveryTime, SrcHostID, SequenceNumber)
	// order.
	// w is the calling worker's context; delivered events push follow-up
	// events through w.PushEvent so the lookahead check sees the right
	// (srcHostID, currentTime).
	PopAndDeliver(w *Worker, until simtime.Time)
}
