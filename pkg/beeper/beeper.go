// Package beeper turns the one-bit speaker toggle driven by $C030-$C03F
// accesses into a stream of PWM-style audio samples, matching the shape
// of the chips_audio_callback_t sink referenced by original_source (the
// reference firmware's own beeper.h internals are not part of the
// retrieved pack, so the duty-cycle accumulator below is a clean-room
// reconstruction of the same external contract: toggle, tick, sample).
package beeper

// Beeper accumulates the fraction of each sample period the speaker spent
// "high" and emits one sample every period.
type Beeper struct {
	period  uint32
	volume  float32
	state   bool
	counter uint32
	accum   uint32
}

// New builds a Beeper that emits a sample every tickHz/sampleHz ticks.
func New(tickHz, sampleHz uint32, volume float32) *Beeper {
	period := tickHz / sampleHz
	if period == 0 {
		period = 1
	}
	return &Beeper{period: period, volume: volume}
}

// Toggle flips the speaker coil state; called on every access in
// $C030-$C03F regardless of read or write direction.
func (b *Beeper) Toggle() {
	b.state = !b.state
}

// Reset silences the beeper and restarts its sample accumulator.
func (b *Beeper) Reset() {
	b.state = false
	b.counter = 0
	b.accum = 0
}

// Tick advances one CPU clock. When a sample period completes it returns
// the emitted sample and true; otherwise it returns (0, false).
func (b *Beeper) Tick() (sample uint8, ready bool) {
	if b.state {
		b.accum++
	}
	b.counter++
	if b.counter < b.period {
		return 0, false
	}
	frac := float32(b.accum) / float32(b.period)
	sample = uint8(frac * b.volume * 255.0)
	b.counter = 0
	b.accum = 0
	return sample, true
}
