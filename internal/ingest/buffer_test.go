// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

package ingest

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/sensorflow/internal/models"
)

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func tick(i int) time.Time {
	return epoch.Add(time.Duration(i) * 10 * time.Millisecond)
}

// feedLockstep appends count samples axis by axis, starting at index start.
func feedLockstep(t *testing.T, b *Buffer, start, count int) {
	t.Helper()
	for i := start; i < start+count; i++ {
		for _, axis := range models.Axes {
			if err := b.Append(axis, float64(i), tick(i)); err != nil {
				t.Fatalf("Append(%v, %d): %v", axis, i, err)
			}
		}
	}
}

func TestBuffer_AppendAlignment(t *testing.T) {
	b := NewBuffer()

	if err := b.Append(models.AxisX, 1, tick(0)); err != nil {
		t.Fatal(err)
	}
	if got := b.AvailableCount(); got != 0 {
		t.Errorf("after x only: available = %d, want 0", got)
	}
	l := b.Lengths()
	if l.X != 1 || l.Y != 0 || l.Z != 0 || l.T != 1 {
		t.Errorf("lengths = %+v, want x=1 t=1", l)
	}

	_ = b.Append(models.AxisY, 2, tick(1))
	_ = b.Append(models.AxisZ, 3, tick(2))

	if got := b.AvailableCount(); got != 1 {
		t.Fatalf("available = %d, want 1", got)
	}

	ts, xs, ys, zs, err := b.DrainPrefix(1)
	if err != nil {
		t.Fatalf("DrainPrefix: %v", err)
	}
	if xs[0] != 1 || ys[0] != 2 || zs[0] != 3 {
		t.Errorf("drained %v %v %v", xs, ys, zs)
	}
	// Position 0 is stamped by the first axis that reached it.
	if !ts[0].Equal(tick(0)) {
		t.Errorf("timestamp = %v, want %v", ts[0], tick(0))
	}
}

func TestBuffer_AvailableIsMinimumWithLaggingAxis(t *testing.T) {
	b := NewBuffer()

	// x and z receive 20 values, y only 15.
	for i := 0; i < 20; i++ {
		_ = b.Append(models.AxisX, float64(i), tick(i))
		_ = b.Append(models.AxisZ, float64(i), tick(i))
		if i < 15 {
			_ = b.Append(models.AxisY, float64(i), tick(i))
		}
	}

	if got := b.AvailableCount(); got != 15 {
		t.Fatalf("available = %d, want 15", got)
	}

	_, _, _, _, err := b.DrainPrefix(16)
	var insufficient *InsufficientDataError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientDataError, got %v", err)
	}
	if insufficient.Requested != 16 || insufficient.Available != 15 {
		t.Errorf("error = %+v", insufficient)
	}
	if !errors.Is(err, ErrInsufficientData) {
		t.Error("errors.Is(err, ErrInsufficientData) = false")
	}

	// The failed drain must not have touched anything.
	l := b.Lengths()
	if l.X != 20 || l.Y != 15 || l.Z != 20 || l.T != 20 {
		t.Errorf("lengths after failed drain = %+v", l)
	}

	if _, _, _, _, err := b.DrainPrefix(15); err != nil {
		t.Fatalf("DrainPrefix(15): %v", err)
	}
	l = b.Lengths()
	if l.X != 5 || l.Y != 0 || l.Z != 5 || l.T != 5 {
		t.Errorf("lengths after drain = %+v, want x=5 y=0 z=5 t=5", l)
	}

	// The next y value lines up with x[15].
	_ = b.Append(models.AxisY, 15, tick(15))
	ts, xs, ys, _, err := b.DrainPrefix(1)
	if err != nil {
		t.Fatalf("DrainPrefix(1): %v", err)
	}
	if xs[0] != 15 || ys[0] != 15 || !ts[0].Equal(tick(15)) {
		t.Errorf("row = t:%v x:%v y:%v, want index 15", ts[0], xs[0], ys[0])
	}
}

func TestBuffer_DrainPrefixInvalidCount(t *testing.T) {
	b := NewBuffer()
	for _, n := range []int{0, -1} {
		if _, _, _, _, err := b.DrainPrefix(n); !errors.Is(err, ErrInvalidCount) {
			t.Errorf("DrainPrefix(%d) = %v, want ErrInvalidCount", n, err)
		}
	}
}

func TestBuffer_AppendInvalidAxis(t *testing.T) {
	b := NewBuffer()
	if err := b.Append(models.Axis(9), 1, epoch); !errors.Is(err, ErrInvalidAxis) {
		t.Errorf("expected ErrInvalidAxis, got %v", err)
	}
	if l := b.Lengths(); l != (AxisLengths{}) {
		t.Errorf("buffer changed: %+v", l)
	}
}

func TestBuffer_ZeroTimestampUsesClock(t *testing.T) {
	fixed := epoch.Add(time.Hour)
	b := NewBuffer(WithClock(func() time.Time { return fixed }))

	b.AppendSample(models.Sample{X: 1, Y: 2, Z: 3})
	ts, _, _, _, err := b.DrainPrefix(1)
	if err != nil {
		t.Fatal(err)
	}
	if !ts[0].Equal(fixed) {
		t.Errorf("timestamp = %v, want %v", ts[0], fixed)
	}
}

func TestBuffer_AppendSample(t *testing.T) {
	b := NewBuffer()
	for i := 0; i < 3; i++ {
		b.AppendSample(models.Sample{Timestamp: tick(i), X: float64(i), Y: 10 + float64(i), Z: 20 + float64(i)})
	}
	if got := b.AvailableCount(); got != 3 {
		t.Fatalf("available = %d, want 3", got)
	}
	ts, xs, ys, zs, err := b.DrainPrefix(3)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if xs[i] != float64(i) || ys[i] != 10+float64(i) || zs[i] != 20+float64(i) || !ts[i].Equal(tick(i)) {
			t.Errorf("row %d = %v %v %v %v", i, ts[i], xs[i], ys[i], zs[i])
		}
	}
}

func TestBuffer_FIFOAcrossDrains(t *testing.T) {
	b := NewBuffer()
	feedLockstep(t, b, 0, 10)

	_, first, _, _, _ := b.DrainPrefix(4)
	feedLockstep(t, b, 10, 5)
	_, second, _, _, _ := b.DrainPrefix(11)

	got := append(first, second...)
	for i, v := range got {
		if v != float64(i) {
			t.Fatalf("position %d = %v, want %d (order %v)", i, v, i, got)
		}
	}
}

func TestBuffer_ShrinksAfterLargeDrain(t *testing.T) {
	b := NewBuffer()
	total := minShrinkCap * 2
	for i := 0; i < total; i++ {
		b.AppendSample(models.Sample{Timestamp: tick(i), X: float64(i), Y: float64(i), Z: float64(i)})
	}

	if _, _, _, _, err := b.DrainPrefix(total - 10); err != nil {
		t.Fatal(err)
	}

	b.mu.Lock()
	capX := cap(b.x)
	b.mu.Unlock()
	if capX > minShrinkCap {
		t.Errorf("cap(x) = %d, expected backing array to be released", capX)
	}

	ts, xs, _, _, err := b.DrainPrefix(10)
	if err != nil {
		t.Fatal(err)
	}
	if xs[0] != float64(total-10) || !ts[9].Equal(tick(total-1)) {
		t.Errorf("tail after shrink = x0:%v t9:%v", xs[0], ts[9])
	}
}

func TestBuffer_HighWaterAlarm(t *testing.T) {
	b := NewBuffer(WithHighWaterMark(5))
	feedLockstep(t, b, 0, 4)

	select {
	case n := <-b.Alarms():
		t.Fatalf("unexpected alarm at %d", n)
	default:
	}

	feedLockstep(t, b, 4, 3)
	select {
	case n := <-b.Alarms():
		if n != 5 {
			t.Errorf("alarm backlog = %d, want 5", n)
		}
	default:
		t.Fatal("expected alarm after crossing high-water mark")
	}

	// Edge-triggered: no second alarm while still above the mark.
	feedLockstep(t, b, 7, 3)
	select {
	case n := <-b.Alarms():
		t.Fatalf("unexpected repeated alarm at %d", n)
	default:
	}

	// Draining below re-arms it.
	if _, _, _, _, err := b.DrainPrefix(8); err != nil {
		t.Fatal(err)
	}
	feedLockstep(t, b, 10, 3)
	select {
	case <-b.Alarms():
	default:
		t.Fatal("expected alarm after re-crossing")
	}
}

func TestBuffer_ConcurrentProducerConsumer(t *testing.T) {
	b := NewBuffer()
	const total = 5000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			for _, axis := range models.Axes {
				_ = b.Append(axis, float64(i), tick(i))
			}
		}
	}()

	var drained []float64
	deadline := time.Now().Add(10 * time.Second)
	for len(drained) < total && time.Now().Before(deadline) {
		_, xs, ys, zs, ok := b.TryDrain(100)
		if !ok {
			time.Sleep(time.Millisecond)
			continue
		}
		for i := range xs {
			if xs[i] != ys[i] || ys[i] != zs[i] {
				t.Fatalf("misaligned row: %v %v %v", xs[i], ys[i], zs[i])
			}
		}
		drained = append(drained, xs...)
	}
	wg.Wait()

	if len(drained) != total {
		t.Fatalf("drained %d samples, want %d", len(drained), total)
	}
	for i, v := range drained {
		if v != float64(i) {
			t.Fatalf("order broken at %d: %v", i, v)
		}
	}
}
