package metrics

import (
	"testing"
	"time"
)

func TestNewCollector_StartsEmpty(t *testing.T) {
	c := NewCollector()
	snap := c.Snapshot()
	if snap.TotalProcessed != 0 || snap.TotalFailed != 0 {
		t.Fatalf("expected zero counts, got %+v", snap)
	}
}

func TestRecordDispatch_TracksByClassAndQueue(t *testing.T) {
	c := NewCollector()
	c.RecordDispatch("SendEmail", "default", true, 10*time.Millisecond)
	c.RecordDispatch("SendEmail", "default", false, 20*time.Millisecond)

	snap := c.Snapshot()
	if snap.TotalProcessed != 1 || snap.TotalFailed != 1 {
		t.Fatalf("expected 1 processed and 1 failed, got %+v", snap)
	}
	if snap.ByClass["SendEmail"] != 2 {
		t.Fatalf("expected 2 dispatches for SendEmail, got %d", snap.ByClass["SendEmail"])
	}
	if snap.ByQueue["default"] != 2 {
		t.Fatalf("expected 2 dispatches for queue default, got %d", snap.ByQueue["default"])
	}
}

func TestSnapshot_ComputesErrorRate(t *testing.T) {
	c := NewCollector()
	c.RecordDispatch("A", "default", true, time.Millisecond)
	c.RecordDispatch("A", "default", true, time.Millisecond)
	c.RecordDispatch("A", "default", false, time.Millisecond)

	snap := c.Snapshot()
	if snap.ErrorRate < 33.0 || snap.ErrorRate > 34.0 {
		t.Fatalf("expected error rate ~33.3%%, got %v", snap.ErrorRate)
	}
}

func TestReset_ClearsCounters(t *testing.T) {
	c := NewCollector()
	c.RecordDispatch("A", "default", true, time.Millisecond)
	c.Reset()

	snap := c.Snapshot()
	if snap.TotalProcessed != 0 || len(snap.ByClass) != 0 {
		t.Fatalf("expected cleared state after reset, got %+v", snap)
	}
}
