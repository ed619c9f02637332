package async

import "testing"

func TestRefreshSignal_BumpNotifiesSubscribers(t *testing.T) {
	s := NewRefreshSignal()
	var got []uint64
	unsubscribe := s.Subscribe(func(v uint64) { got = append(got, v) })

	s.Bump()
	s.Bump()
	unsubscribe()
	s.Bump()

	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("notifications = %v, want [1 2]", got)
	}
	if s.Value() != 3 {
		t.Errorf("Value() = %d, want 3", s.Value())
	}
}

func TestRefreshSignal_SubscriberOrder(t *testing.T) {
	s := NewRefreshSignal()
	var order []string
	s.Subscribe(func(uint64) { order = append(order, "list") })
	s.Subscribe(func(uint64) { order = append(order, "stats") })

	s.Bump()
	if len(order) != 2 || order[0] != "list" || order[1] != "stats" {
		t.Errorf("order = %v, want [list stats]", order)
	}
}

func TestRefreshSignal_SubscriberMayBump(t *testing.T) {
	s := NewRefreshSignal()
	calls := 0
	s.Subscribe(func(v uint64) {
		calls++
		if v == 1 {
			s.Bump()
		}
	})

	s.Bump()
	if calls != 2 || s.Value() != 2 {
		t.Errorf("calls=%d value=%d, want 2/2", calls, s.Value())
	}
}
