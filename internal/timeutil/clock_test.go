package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRealClock_Now(t *testing.T) {
	clock := RealClock{}
	before := time.Now()
	now := clock.Now()
	after := time.Now()

	if now.Before(before) || now.After(after) {
		t.Errorf("Now() = %v, expected between %v and %v", now, before, after)
	}
}

func TestRealClock_AfterFunc(t *testing.T) {
	clock := RealClock{}
	fired := make(chan struct{})
	clock.AfterFunc(10*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Error("timer did not fire")
	}
}

func TestRealClock_AfterFuncStop(t *testing.T) {
	clock := RealClock{}
	fired := make(chan struct{}, 1)
	timer := clock.AfterFunc(50*time.Millisecond, func() { fired <- struct{}{} })

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())

	select {
	case <-fired:
		t.Error("stopped timer fired")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMockClock_Now(t *testing.T) {
	fixedTime := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	clock := NewMockClock(fixedTime)

	assert.True(t, clock.Now().Equal(fixedTime))

	clock.Advance(time.Minute)
	assert.True(t, clock.Now().Equal(fixedTime.Add(time.Minute)))
}

func TestMockClock_AfterFunc(t *testing.T) {
	clock := NewMockClock(time.Time{})
	calls := 0
	clock.AfterFunc(5*time.Second, func() { calls++ })

	assert.Equal(t, 1, clock.Pending())

	clock.Advance(4 * time.Second)
	assert.Equal(t, 0, calls)

	clock.Advance(time.Second)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, clock.Pending())

	clock.Advance(time.Hour)
	assert.Equal(t, 1, calls, "one-shot timer fired twice")
}

func TestMockTimer_Stop(t *testing.T) {
	clock := NewMockClock(time.Time{})
	calls := 0
	timer := clock.AfterFunc(time.Second, func() { calls++ })

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())
	assert.Equal(t, 0, clock.Pending())

	clock.Advance(2 * time.Second)
	assert.Equal(t, 0, calls)
}

func TestMockTimer_StopAfterFire(t *testing.T) {
	clock := NewMockClock(time.Time{})
	timer := clock.AfterFunc(time.Second, func() {})

	clock.Advance(time.Second)
	assert.False(t, timer.Stop())
}

func TestMockClock_CallbackMaySchedule(t *testing.T) {
	clock := NewMockClock(time.Time{})
	var order []string

	clock.AfterFunc(time.Second, func() {
		order = append(order, "first")
		clock.AfterFunc(time.Second, func() { order = append(order, "second") })
	})

	clock.Advance(time.Second)
	assert.Equal(t, []string{"first"}, order)
	assert.Equal(t, 1, clock.Pending())

	clock.Advance(time.Second)
	assert.Equal(t, []string{"first", "second"}, order)
}
