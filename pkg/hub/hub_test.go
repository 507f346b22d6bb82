package hub

import (
	"testing"
	"time"
)

func TestHub_ClientCountStartsAtZero(t *testing.T) {
	h := New("test")
	if h.ClientCount() != 0 {
		t.Fatalf("ClientCount = %d, want 0", h.ClientCount())
	}
}

func TestHub_BroadcastNeverBlocks(t *testing.T) {
	h := New("test") // Run intentionally not started

	done := make(chan struct{})
	go func() {
		// Overfill the broadcast buffer; the overflow must be dropped,
		// not block the sender.
		for i := 0; i < 300; i++ {
			h.Broadcast(NewJSONMessage([]byte(`{}`)))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked with no consumer")
	}
}

func TestHub_BroadcastJSON(t *testing.T) {
	h := New("test")
	go h.Run()

	if err := h.BroadcastJSON(map[string]int{"active_streams": 2}); err != nil {
		t.Fatalf("BroadcastJSON: %v", err)
	}

	if err := h.BroadcastJSON(make(chan int)); err == nil {
		t.Fatal("expected marshal error for unencodable value")
	}
}
