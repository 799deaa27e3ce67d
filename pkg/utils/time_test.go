package utils

import (
	"testing"
	"time"
)

func TestInstantClockRecordsWaits(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := &InstantClock{Start: start}

	<-c.After(time.Second)
	<-c.After(500 * time.Millisecond)

	if len(c.Waits) != 2 {
		t.Fatalf("expected 2 waits, got %d", len(c.Waits))
	}
	if got := c.Now(); !got.Equal(start.Add(1500 * time.Millisecond)) {
		t.Errorf("expected clock advanced by 1.5s, got %v", got.Sub(start))
	}
}

func TestRealClockAfter(t *testing.T) {
	var c Clock = RealClock{}
	select {
	case <-c.After(time.Millisecond):
	case <-time.After(time.Second):
		t.Fatal("RealClock.After did not fire")
	}
	if c.Now().IsZero() {
		t.Error("expected non-zero now")
	}
}

func TestMsToDuration(t *testing.T) {
	if got := MsToDuration(1500); got != 1500*time.Millisecond {
		t.Errorf("MsToDuration(1500) = %v", got)
	}
}
