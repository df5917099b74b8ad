// Package timeutil provides a testable abstraction over wall-clock time.
package timeutil

import (
	"sync"
	"time"
)

// Clock reports the current time. Runs use it to stamp records and to
// measure their elapsed time.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Since returns the duration since t.
	Since(t time.Time) time.Duration
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// Since returns the time elapsed since t.
func (RealClock) Since(t time.Time) time.Duration {
	return time.Since(t)
}

// OrReal returns c, or RealClock when c is nil.
func OrReal(c Clock) Clock {
	if c == nil {
		return RealClock{}
	}
	return c
}

// MockClock is a Clock whose time only moves when told to.
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewMockClock creates a MockClock set to the given time.
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

// Now returns the mock's current time.
func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Since returns the mock time elapsed since t.
func (m *MockClock) Since(t time.Time) time.Duration {
	return m.Now().Sub(t)
}

// Set moves the clock to t.
func (m *MockClock) Set(t time.Time) {
	m.mu.Lock()
	m.now = t
	m.mu.Unlock()
}

// Advance moves the clock forward by d.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

// StepClock is a MockClock that advances by Step after every Now call,
// so consecutive readings are distinct and evenly spaced.
type StepClock struct {
	*MockClock
	Step time.Duration
}

// NewStepClock creates a StepClock starting at t.
func NewStepClock(t time.Time, step time.Duration) *StepClock {
	return &StepClock{MockClock: NewMockClock(t), Step: step}
}

// Now returns the current reading and then advances the clock.
func (s *StepClock) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.now
	s.now = s.now.Add(s.Step)
	return t
}

// Since returns the duration from t to the current reading without
// advancing the clock.
func (s *StepClock) Since(t time.Time) time.Duration {
	return s.MockClock.Now().Sub(t)
}
