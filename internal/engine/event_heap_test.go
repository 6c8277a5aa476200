package engine

import "testing"

func TestEventHeap_DeliveryTimeOrdering(t *testing.T) {
	h := newEventHeap()

	e1 := NewEvent(100, 1, 2, "a")
	e2 := NewEvent(50, 1, 2, "b")
	e3 := NewEvent(150, 1, 2, "c")
	e1.setSequenceNumber(1)
	e2.setSequenceNumber(2)
	e3.setSequenceNumber(3)

	h.schedule(e1)
	h.schedule(e2)
	h.schedule(e3)

	if got := h.popNext().DeliveryTime(); got != 50 {
		t.Errorf("first popped delivery time = %d, want 50", got)
	}
	if got := h.popNext().DeliveryTime(); got != 100 {
		t.Errorf("second popped delivery time = %d, want 100", got)
	}
	if got := h.popNext().DeliveryTime(); got != 150 {
		t.Errorf("third popped delivery time = %d, want 150", got)
	}
	if h.Len() != 0 {
		t.Errorf("heap should be empty, len = %d", h.Len())
	}
}

func TestEventHeap_TieBreaksBySrcHostThenSequence(t *testing.T) {
	h := newEventHeap()

	eFromHost2 := NewEvent(100, 2, 9, "from-host-2")
	eFromHost1 := NewEvent(100, 1, 9, "from-host-1")
	eFromHost1.setSequenceNumber(5)
	eFromHost2.setSequenceNumber(1)

	h.schedule(eFromHost2)
	h.schedule(eFromHost1)

	first := h.popNext()
	if first.SrcHostID() != 1 {
		t.Errorf("first popped src host = %d, want 1 (lower src host wins tie)", first.SrcHostID())
	}
}

func TestEventHeap_PeekDoesNotRemove(t *testing.T) {
	h := newEventHeap()
	e := NewEvent(10, 1, 2, nil)
	h.schedule(e)

	if h.peek() == nil {
		t.Fatal("peek returned nil on non-empty heap")
	}
	if h.Len() != 1 {
		t.Errorf("peek should not remove, len = %d", h.Len())
	}
}

func TestMasterQueue_SchedulePopOrdering(t *testing.T) {
	q := newMasterQueue()

	late := NewEngineEvent(200, "late")
	early := NewEngineEvent(100, "early")
	late.setSequenceNumber(1)
	early.setSequenceNumber(2)

	q.schedule(late)
	q.schedule(early)

	if q.len() != 2 {
		t.Fatalf("queue len = %d, want 2", q.len())
	}
	if got := q.peek().Payload(); got != "early" {
		t.Errorf("peek payload = %v, want early", got)
	}
	if got := q.popNext().Payload(); got != "early" {
		t.Errorf("first popped payload = %v, want early", got)
	}
	if got := q.popNext().Payload(); got != "late" {
		t.Errorf("second popped payload = %v, want late", got)
	}
}

func TestEventHeap_EmptyHeapReturnsNil(t *testing.T) {
	h := newEventHeap()
	if h.popNext() != nil {
		t.Error("popNext on empty heap should return nil")
	}
	if h.peek() != nil {
		t.Error("peek on empty heap should return nil")
	}
}
