package monitor

import "testing"

func TestDetectFirstObservation(t *testing.T) {
	sig := Detect(nil, 5_000_000_000)
	if sig.Kind != FirstObservation {
		t.Fatalf("expected FirstObservation, got %v", sig.Kind)
	}
	if sig.Delta != 0 {
		t.Fatalf("expected zero delta on first observation, got %d", sig.Delta)
	}
}

func TestDetectUnchanged(t *testing.T) {
	prev := uint64(1_000_000_000)
	sig := Detect(&prev, 1_000_000_000)
	if sig.Kind != Unchanged {
		t.Fatalf("expected Unchanged, got %v", sig.Kind)
	}
}

func TestDetectDecrease(t *testing.T) {
	prev := uint64(5_000_000_000)
	sig := Detect(&prev, 4_500_000_000)
	if sig.Kind != Changed {
		t.Fatalf("expected Changed, got %v", sig.Kind)
	}
	if sig.Delta != -500_000_000 {
		t.Fatalf("expected delta -500000000, got %d", sig.Delta)
	}
}

func TestDetectIncrease(t *testing.T) {
	prev := uint64(1_000_000_000)
	sig := Detect(&prev, 1_000_000_001)
	if sig.Kind != Changed {
		t.Fatalf("expected Changed, got %v", sig.Kind)
	}
	if sig.Delta != 1 {
		t.Fatalf("expected delta 1, got %d", sig.Delta)
	}
}

func TestDetectZeroBalanceIsValid(t *testing.T) {
	prev := uint64(0)
	sig := Detect(&prev, 0)
	if sig.Kind != Unchanged {
		t.Fatalf("zero balance must compare as a normal value, got %v", sig.Kind)
	}

	sig = Detect(&prev, 7)
	if sig.Kind != Changed || sig.Delta != 7 {
		t.Fatalf("expected Changed with delta 7, got %v delta %d", sig.Kind, sig.Delta)
	}
}
