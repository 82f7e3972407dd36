package observer

import "testing"

func TestProcessedSet(t *testing.T) {
	p := NewProcessedSet()

	if p.Seen("k1") {
		t.Error("Seen before MarkSeen: got true")
	}
	if p.MarkSeen("k1") {
		t.Error("first MarkSeen: got already-seen")
	}
	if !p.MarkSeen("k1") {
		t.Error("second MarkSeen: got not-seen")
	}
	if !p.Seen("k1") {
		t.Error("Seen after MarkSeen: got false")
	}

	p.MarkSeen("k2")
	if p.Len() != 2 {
		t.Errorf("Len: got %d, want 2", p.Len())
	}

	p.Reset()
	if p.Len() != 0 {
		t.Errorf("Len after Reset: got %d, want 0", p.Len())
	}
	if p.MarkSeen("k1") {
		t.Error("MarkSeen after Reset: got already-seen")
	}
}
