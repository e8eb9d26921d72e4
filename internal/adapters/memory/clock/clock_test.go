package clock

import (
	"testing"
	"time"
)

func TestManualClock_FiresInDueOrder(t *testing.T) {
	t.Parallel()

	c := NewManualClock(time.Unix(100, 0).UTC())
	var got []string
	c.AfterFunc(2*time.Second, func() { got = append(got, "b") })
	c.AfterFunc(1*time.Second, func() { got = append(got, "a") })
	c.AfterFunc(5*time.Second, func() { got = append(got, "c") })

	c.Advance(2 * time.Second)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("fired=%v, want [a b]", got)
	}
	if c.Pending() != 1 {
		t.Fatalf("Pending()=%d, want 1", c.Pending())
	}
	if !c.Now().Equal(time.Unix(102, 0).UTC()) {
		t.Fatalf("Now()=%v", c.Now())
	}
}

func TestManualClock_StopPreventsFire(t *testing.T) {
	t.Parallel()

	c := NewManualClock(time.Unix(0, 0).UTC())
	fired := false
	tm := c.AfterFunc(time.Second, func() { fired = true })
	if !tm.Stop() {
		t.Fatalf("Stop()=false on pending timer")
	}
	if tm.Stop() {
		t.Fatalf("second Stop()=true")
	}
	c.Advance(time.Minute)
	if fired {
		t.Fatalf("stopped timer fired")
	}
}

func TestManualClock_CallbackSchedulesWithinWindow(t *testing.T) {
	t.Parallel()

	c := NewManualClock(time.Unix(0, 0).UTC())
	var at []time.Time
	c.AfterFunc(time.Second, func() {
		at = append(at, c.Now())
		c.AfterFunc(time.Second, func() { at = append(at, c.Now()) })
	})
	c.Advance(3 * time.Second)
	if len(at) != 2 {
		t.Fatalf("fired %d times, want 2", len(at))
	}
	if !at[0].Equal(time.Unix(1, 0).UTC()) || !at[1].Equal(time.Unix(2, 0).UTC()) {
		t.Fatalf("fire times=%v", at)
	}
}
