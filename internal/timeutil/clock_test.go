package timeutil

import (
	"testing"
	"time"
)

func TestMockClockSetAndAdvance(t *testing.T) {
	base := time.Unix(100, 0)
	c := NewMockClock(base)
	if !c.Now().Equal(base) {
		t.Errorf("Now = %v, want %v", c.Now(), base)
	}

	c.Advance(3 * time.Second)
	if !c.Now().Equal(base.Add(3 * time.Second)) {
		t.Errorf("Now after Advance = %v", c.Now())
	}

	later := time.Unix(999, 0)
	c.Set(later)
	if !c.Now().Equal(later) {
		t.Errorf("Now after Set = %v", c.Now())
	}
}

func TestMockTickerFiresOnAdvance(t *testing.T) {
	c := NewMockClock(time.Unix(0, 0))
	ticker := c.NewTicker(time.Second)
	defer ticker.Stop()

	select {
	case <-ticker.C():
		t.Fatal("ticker fired before its interval elapsed")
	default:
	}

	c.Advance(time.Second)
	select {
	case now := <-ticker.C():
		if !now.Equal(time.Unix(1, 0)) {
			t.Errorf("tick carried %v, want 1s", now)
		}
	default:
		t.Fatal("ticker did not fire after Advance")
	}
}

func TestMockTickerStopped(t *testing.T) {
	c := NewMockClock(time.Unix(0, 0))
	ticker := c.NewTicker(time.Second)
	ticker.Stop()

	c.Advance(5 * time.Second)
	select {
	case <-ticker.C():
		t.Fatal("stopped ticker fired")
	default:
	}
}

func TestRealClock(t *testing.T) {
	var c Clock = RealClock{}
	before := time.Now()
	got := c.Now()
	if got.Before(before.Add(-time.Second)) {
		t.Errorf("RealClock.Now = %v, too far before %v", got, before)
	}

	ticker := c.NewTicker(time.Millisecond)
	defer ticker.Stop()
	select {
	case <-ticker.C():
	case <-time.After(2 * time.Second):
		t.Fatal("real ticker never fired")
	}
}
