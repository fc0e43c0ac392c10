package safe

import (
	"math"
	"testing"
)

func TestSafeAdd(t *testing.T) {
	if got := SafeAdd(2, 3); got != 5 {
		t.Errorf("expected 5, got %d", got)
	}
	if got := SafeAdd(-2, -3); got != -5 {
		t.Errorf("expected -5, got %d", got)
	}
}

func TestSafeAdd_Overflow(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("SafeAdd should have panicked on overflow")
		}
	}()
	SafeAdd(math.MaxInt64, 1)
}

func TestSafeSub_Overflow(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("SafeSub should have panicked on overflow")
		}
	}()
	SafeSub(math.MinInt64, 1)
}

func TestSafeMul(t *testing.T) {
	if got := SafeMul(6, 7); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
	if got := SafeMul(0, math.MaxInt64); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
}

func TestSafeMul_Overflow(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("SafeMul should have panicked on overflow")
		}
	}()
	SafeMul(math.MaxInt64, 2)
}
