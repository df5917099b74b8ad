package timeutil

import (
	"sync"
	"testing"
	"time"
)

func TestRealClock(t *testing.T) {
	c := RealClock{}
	before := time.Now()
	got := c.Now()
	if got.Before(before) {
		t.Errorf("Now() = %v, before %v", got, before)
	}
	if c.Since(before) < 0 {
		t.Error("Since() returned a negative duration")
	}
}

func TestOrReal(t *testing.T) {
	if _, ok := OrReal(nil).(RealClock); !ok {
		t.Error("OrReal(nil) should return RealClock")
	}
	m := NewMockClock(time.Unix(0, 0))
	if OrReal(m) != Clock(m) {
		t.Error("OrReal should return a non-nil clock unchanged")
	}
}

func TestMockClock(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewMockClock(start)

	if !m.Now().Equal(start) {
		t.Errorf("Now() = %v, want %v", m.Now(), start)
	}
	m.Advance(90 * time.Second)
	if got := m.Since(start); got != 90*time.Second {
		t.Errorf("Since() = %v, want 90s", got)
	}
	later := start.Add(time.Hour)
	m.Set(later)
	if !m.Now().Equal(later) {
		t.Errorf("after Set, Now() = %v, want %v", m.Now(), later)
	}
}

func TestMockClock_Concurrent(t *testing.T) {
	m := NewMockClock(time.Unix(0, 0))
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Advance(time.Millisecond)
			_ = m.Now()
		}()
	}
	wg.Wait()
	if got := m.Since(time.Unix(0, 0)); got != 50*time.Millisecond {
		t.Errorf("Since() = %v, want 50ms", got)
	}
}

func TestStepClock(t *testing.T) {
	start := time.Unix(100, 0)
	s := NewStepClock(start, time.Second)

	first := s.Now()
	second := s.Now()
	if !first.Equal(start) || second.Sub(first) != time.Second {
		t.Errorf("readings %v, %v; want %v then +1s", first, second, start)
	}
	if got := s.Since(start); got != 2*time.Second {
		t.Errorf("Since() = %v, want 2s", got)
	}
	// Since does not advance.
	if got := s.Since(start); got != 2*time.Second {
		t.Errorf("second Since() = %v, want 2s", got)
	}
}
