package collect

import "testing"

func TestDrainPriorityOrder(t *testing.T) {
	q := NewQueue()

	q.Register("s1", Fragment{ID: "a", Content: "notice", Source: "notice", Priority: 1})
	q.Register("s1", Fragment{ID: "b", Content: "recall", Source: "recall", Priority: 10})
	q.Register("s1", Fragment{ID: "c", Content: "inject", Source: "pre-compaction", Priority: 5})

	frags := q.Drain("s1")
	if len(frags) != 3 {
		t.Fatalf("len = %d, want 3", len(frags))
	}
	if frags[0].ID != "b" || frags[1].ID != "c" || frags[2].ID != "a" {
		t.Errorf("order = %s,%s,%s, want b,c,a", frags[0].ID, frags[1].ID, frags[2].ID)
	}

	// Drain clears.
	if got := q.Drain("s1"); len(got) != 0 {
		t.Errorf("second drain len = %d, want 0", len(got))
	}
}

func TestDrainSessionIsolation(t *testing.T) {
	q := NewQueue()
	q.Register("s1", Fragment{ID: "a"})
	q.Register("s2", Fragment{ID: "b"})

	frags := q.Drain("s1")
	if len(frags) != 1 || frags[0].ID != "a" {
		t.Fatalf("drain s1 = %v, want just a", frags)
	}
	if q.Pending("s2") != 1 {
		t.Errorf("s2 pending = %d, want 1", q.Pending("s2"))
	}
}

func TestCleanupDiscards(t *testing.T) {
	q := NewQueue()
	q.Register("s1", Fragment{ID: "a"})
	q.Cleanup("s1")

	if q.Pending("s1") != 0 {
		t.Errorf("pending = %d, want 0 after cleanup", q.Pending("s1"))
	}
}
