package beeper

import "testing"

func TestTickEmitsSampleOncePerPeriod(t *testing.T) {
	b := New(4, 1, 1.0) // period = 4 ticks
	for i := 0; i < 3; i++ {
		if _, ready := b.Tick(); ready {
			t.Fatalf("tick %d: unexpected sample before period elapsed", i)
		}
	}
	if _, ready := b.Tick(); !ready {
		t.Fatal("expected a sample on the 4th tick")
	}
}

func TestSilentSpeakerEmitsZero(t *testing.T) {
	b := New(4, 1, 1.0)
	var last uint8 = 0xFF
	for i := 0; i < 4; i++ {
		if s, ready := b.Tick(); ready {
			last = s
		}
	}
	if last != 0 {
		t.Fatalf("expected 0 with speaker never toggled, got %d", last)
	}
}

func TestToggledSpeakerEmitsNonZeroSample(t *testing.T) {
	b := New(2, 1, 1.0)
	b.Toggle()
	b.Tick()
	b.Toggle()
	sample, ready := b.Tick()
	if !ready {
		t.Fatal("expected a sample")
	}
	if sample == 0 {
		t.Fatal("expected a non-zero sample with the speaker toggled every tick")
	}
}

func TestResetClearsAccumulatedState(t *testing.T) {
	b := New(4, 1, 1.0)
	b.Toggle()
	b.Tick()
	b.Reset()
	if b.state || b.counter != 0 || b.accum != 0 {
		t.Fatal("Reset should clear toggle state and accumulators")
	}
}
