package cache

import "testing"

func TestMemo_PutGet(t *testing.T) {
	m := New[string, string]()

	// Miss before put
	if _, ok := m.Get("PHID-USER-1"); ok {
		t.Error("Expected miss before put")
	}

	m.Put("PHID-USER-1", "Alice (alice)")

	got, ok := m.Get("PHID-USER-1")
	if !ok {
		t.Fatal("Expected hit after put")
	}
	if got != "Alice (alice)" {
		t.Errorf("Got = %q, want %q", got, "Alice (alice)")
	}
}

func TestMemo_FirstPutWins(t *testing.T) {
	m := New[string, int]()
	if got := m.Put("k", 1); got != 1 {
		t.Errorf("first Put = %d, want 1", got)
	}
	if got := m.Put("k", 2); got != 1 {
		t.Errorf("second Put = %d, want 1 (memoized value is immutable)", got)
	}
	if v, _ := m.Get("k"); v != 1 {
		t.Errorf("Get = %d, want 1", v)
	}
}

func TestMemo_GetOrLoad(t *testing.T) {
	m := New[string, string]()
	calls := 0
	load := func() string {
		calls++
		return "value"
	}

	for i := 0; i < 3; i++ {
		if got := m.GetOrLoad("key", load); got != "value" {
			t.Errorf("GetOrLoad = %q, want %q", got, "value")
		}
	}
	if calls != 1 {
		t.Errorf("load called %d times, want 1", calls)
	}
}

func TestMemo_Stats(t *testing.T) {
	m := New[int, bool]()
	m.Get(1)
	m.Put(1, true)
	m.Get(1)
	m.Get(1)
	m.Put(2, false)

	stats := m.GetStats()
	if stats.Entries != 2 {
		t.Errorf("Entries = %d, want 2", stats.Entries)
	}
	if stats.Hits != 2 {
		t.Errorf("Hits = %d, want 2", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("Misses = %d, want 1", stats.Misses)
	}
	if m.Len() != 2 {
		t.Errorf("Len = %d, want 2", m.Len())
	}
}

func TestMemo_IsolatedInstances(t *testing.T) {
	a := New[string, string]()
	b := New[string, string]()
	a.Put("example.com", "x")
	if _, ok := b.Get("example.com"); ok {
		t.Error("memo instances must not share entries")
	}
}
