package engine

import "github.com/shadowsim/corengine/internal/simtime"

// HostID and AddressID are process-wide unique unsigned integers, stable
// for the lifetime of the host/address they name.
type HostID uint64

// AddressID identifies a virtual network address (e.g. an IP attachment).
type AddressID uint64

// NoHost is the zero value used for engine-level events that have no
// source or destination host.
const NoHost HostID = 0

// Event is an opaque timestamped message carrying a source host, an
// optional destination host, a delivery time, and a payload. Events are
// immutable after creation; ordering is by (DeliveryTime, SrcHostID,
// SequenceNumber). The sequence counter is partitioned per source host,
// so SrcHostID must be folded into the comparison to keep the combined
// key unique without a single globally-serialized counter.
type Event interface {
	DeliveryTime() simtime.Time
	SrcHostID() HostID
	DstHostID() (HostID, bool)
	SequenceNumber() uint64
	Payload() any

	// setSequenceNumber is called exactly once by the engine on ingress
	// (pushEvent), giving every accepted event a deterministic tie-breaker.
	setSequenceNumber(seq uint64)
}

// baseEvent is the common event envelope; concrete event types embed it.
type baseEvent struct {
	deliveryTime simtime.Time
	srcHostID    HostID
	dstHostID    HostID
	hasDst       bool
	seq          uint64
	payload      any
}

// NewEvent constructs an event bound for dstHostID.
func NewEvent(deliveryTime simtime.Time, srcHostID, dstHostID HostID, payload any) Event {
	return &baseEvent{
		deliveryTime: deliveryTime,
		srcHostID:    srcHostID,
		dstHostID:    dstHostID,
		hasDst:       true,
		payload:      payload,
	}
}

// NewEngineEvent constructs a host-less event for the master queue (e.g.
// host creation, application start).
func NewEngineEvent(deliveryTime simtime.Time, payload any) Event {
	return &baseEvent{
		deliveryTime: deliveryTime,
		srcHostID:    NoHost,
		hasDst:       false,
		payload:      payload,
	}
}

func (e *baseEvent) DeliveryTime() simtime.Time { return e.deliveryTime }
func (e *baseEvent) SrcHostID() HostID { return e.srcHostID }
func (e *baseEvent) Payload() any { return e.payload }
func (e *baseEvent) SequenceNumber() uint64 { return e.seq }

func (e *baseEvent) DstHostID() (HostID, bool) {
	return e.dstHostID, e.hasDst
}

func (e *baseEvent) setSequenceNumber(seq uint64) {
	e.seq = seq
}
