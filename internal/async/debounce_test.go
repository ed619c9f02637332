package async

import (
	"testing"
	"time"

	"github.com/roeyazroel/ticket-tui/internal/clock"
)

func newTestDebouncer(t *testing.T) (*Debouncer[string], *clock.Fake, *[]string) {
	t.Helper()
	clk := clock.NewFake(time.Unix(0, 0))
	var settled []string
	d := NewDebouncer(clk, 500*time.Millisecond, "", func(v string) {
		settled = append(settled, v)
	})
	t.Cleanup(d.Stop)
	return d, clk, &settled
}

func TestDebouncer_OnlyFinalValuePropagates(t *testing.T) {
	d, clk, settled := newTestDebouncer(t)

	for _, v := range []string{"r", "re", "ref", "refu", "refund"} {
		d.Set(v)
		clk.Advance(200 * time.Millisecond)
	}
	if len(*settled) != 0 {
		t.Fatalf("settled early: %v", *settled)
	}
	if d.Value() != "" {
		t.Errorf("Value() = %q before delay, want empty", d.Value())
	}

	clk.Advance(300 * time.Millisecond)
	if len(*settled) != 1 || (*settled)[0] != "refund" {
		t.Errorf("settled = %v, want [refund]", *settled)
	}
	if d.Value() != "refund" {
		t.Errorf("Value() = %q, want refund", d.Value())
	}
}

func TestDebouncer_ReturnToSettledCancels(t *testing.T) {
	d, clk, settled := newTestDebouncer(t)

	d.Set("a")
	clk.Advance(100 * time.Millisecond)
	d.Set("")
	clk.Advance(time.Second)

	if len(*settled) != 0 {
		t.Errorf("settled = %v, want none", *settled)
	}
	if clk.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", clk.Pending())
	}
}

func TestDebouncer_SameValueDoesNotRestart(t *testing.T) {
	d, clk, settled := newTestDebouncer(t)

	d.Set("x")
	clk.Advance(400 * time.Millisecond)
	d.Set("x")
	clk.Advance(100 * time.Millisecond)

	if len(*settled) != 1 {
		t.Errorf("settled = %v, want [x] after original delay", *settled)
	}
}

func TestDebouncer_Flush(t *testing.T) {
	d, clk, settled := newTestDebouncer(t)

	d.Set("now")
	d.Flush()
	if len(*settled) != 1 || (*settled)[0] != "now" {
		t.Fatalf("settled = %v, want [now]", *settled)
	}

	clk.Advance(time.Second)
	if len(*settled) != 1 {
		t.Errorf("timer fired after flush: %v", *settled)
	}

	d.Flush()
	if len(*settled) != 1 {
		t.Errorf("flush of unchanged value notified: %v", *settled)
	}
}

func TestDebouncer_StopCancelsPending(t *testing.T) {
	d, clk, settled := newTestDebouncer(t)

	d.Set("late")
	d.Stop()
	clk.Advance(time.Second)
	d.Set("ignored")
	clk.Advance(time.Second)

	if len(*settled) != 0 {
		t.Errorf("settled after Stop: %v", *settled)
	}
}

func TestDebouncer_ResetDoesNotNotify(t *testing.T) {
	d, clk, settled := newTestDebouncer(t)

	d.Set("draft")
	d.Reset("")
	clk.Advance(time.Second)

	if len(*settled) != 0 {
		t.Errorf("settled = %v, want none", *settled)
	}
	if d.Value() != "" || d.Pending() != "" {
		t.Errorf("Value()=%q Pending()=%q, want both empty", d.Value(), d.Pending())
	}
}
