package engine

import (
	"testing"
	"time"
)

func TestRingBufferAdd(t *testing.T) {
	rb := NewRingBuffer[RateSample](5)
	for i := 0; i < 3; i++ {
		rb.Add(RateSample{Timestamp: time.Now(), MessageRate: float64(i)})
	}
	if n := len(rb.All()); n != 3 {
		t.Errorf("expected 3 samples, got %d", n)
	}
}

func TestRingBufferWrap(t *testing.T) {
	rb := NewRingBuffer[RateSample](3)
	for i := 0; i < 5; i++ {
		rb.Add(RateSample{MessageRate: float64(i)})
	}
	items := rb.All()
	if len(items) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(items))
	}
	if items[0].MessageRate != 2 {
		t.Errorf("expected oldest MessageRate=2, got %f", items[0].MessageRate)
	}
	if items[2].MessageRate != 4 {
		t.Errorf("expected newest MessageRate=4, got %f", items[2].MessageRate)
	}
}

func TestRingBufferEmpty(t *testing.T) {
	rb := NewRingBuffer[RateSample](10)
	if len(rb.All()) != 0 {
		t.Error("All() on empty buffer should return empty slice")
	}
	if _, ok := rb.Last(); ok {
		t.Error("Last() on empty buffer should report false")
	}
}

func TestRingBufferLast(t *testing.T) {
	tests := []struct {
		name string
		adds int
		want float64
	}{
		{"partial", 3, 3},
		{"exactly full", 5, 5},
		{"wrapped to slot zero", 6, 6},
		{"wrapped past slot zero", 8, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rb := NewRingBuffer[RateSample](5)
			for i := 1; i <= tt.adds; i++ {
				rb.Add(RateSample{AlertRate: float64(i)})
			}
			last, ok := rb.Last()
			if !ok {
				t.Fatal("Last() should return true for non-empty buffer")
			}
			if last.AlertRate != tt.want {
				t.Errorf("expected AlertRate=%v, got %v", tt.want, last.AlertRate)
			}
		})
	}
}

func TestRingBufferMinimumCapacity(t *testing.T) {
	rb := NewRingBuffer[int](0)
	rb.Add(1)
	rb.Add(2)
	if got := rb.All(); len(got) != 1 || got[0] != 2 {
		t.Errorf("expected [2], got %v", got)
	}
}
