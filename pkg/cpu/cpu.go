// Package cpu defines the boundary between the Apple //e core and the
// WDC 65C02 instruction decoder that drives it.
//
// The decoder itself is an external collaborator: this package names the
// interface the core ticks against, but ships no opcode table. A host
// wires in a real 65C02 core (e.g. a cycle-stepped implementation of its
// own) that satisfies CPU.
package cpu

// CPU is the narrow surface the core drives once per system tick. It
// mirrors the wdc65C02cpu_* free functions of the reference firmware,
// turned into methods on an owned component instead of process-wide state.
type CPU interface {
	// Reset returns the CPU to its power-on vector fetch sequence.
	Reset()

	// Tick advances the CPU by one clock cycle and reports the address
	// bus and read/write direction for the bus transaction the core must
	// now service. write is true for a CPU write, false for a read.
	Tick() (addr uint16, write bool)

	// Data returns the byte the CPU last drove onto the data bus (valid
	// after a write-direction Tick).
	Data() uint8

	// SetData drives a byte onto the data bus for the CPU to latch
	// (used after a read-direction Tick).
	SetData(v uint8)

	// SetCxxxAccess informs the CPU whether the address just serviced
	// fell in $C000-$CFFF, so it can apply the I/O-page bus-float rules
	// on its next fetch.
	SetCxxxAccess(inCxxx bool)

	// SetSlotData informs the CPU that the byte it is about to latch
	// came from an unimplemented slot window and should float rather
	// than settle to a driven value.
	SetSlotData(floating bool)
}
