package machine

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/kris92/reload-emulator/pkg/disk2"
	"github.com/kris92/reload-emulator/pkg/membank"
	"github.com/kris92/reload-emulator/pkg/prodos"
)

// snapshotVersion guards LoadSnapshot against decoding a save produced by
// an incompatible layout, the same way Nitro-Core-DX's savestate.go
// version-checks before trusting a decoded state.
const snapshotVersion = 1

type snapshotState struct {
	Version uint16

	MMU membank.Snapshot
	FDC disk2.Snapshot
	HDC prodos.Snapshot

	LastKeyCode       uint8
	OpenApplePressed  bool
	SolidApplePressed bool

	SystemTicks      uint64
	FrameTickCounter uint32
	FlashCounter     uint32
}

// SaveSnapshot serializes every piece of machine-owned state needed to
// resume execution: the RAM planes, soft switches, peripheral registers,
// the keyboard latch, and the tick counters. Mounted disk images and the
// CPU collaborator's own internal state are the host's responsibility to
// restore separately, the same way a host re-attaches cartridges or ROM
// images rather than embedding them in a save state.
func (m *Machine) SaveSnapshot() ([]byte, error) {
	state := snapshotState{
		Version:           snapshotVersion,
		MMU:               m.MMU.Save(),
		FDC:               m.FDC.Save(),
		HDC:               m.HDC.Save(),
		LastKeyCode:       m.IO.LastKeyCode,
		OpenApplePressed:  m.IO.OpenApplePressed,
		SolidApplePressed: m.IO.SolidApplePressed,
		SystemTicks:       m.SystemTicks,
		FrameTickCounter:  m.frameTickCounter,
		FlashCounter:      m.flashCounter,
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(state); err != nil {
		return nil, fmt.Errorf("machine: SaveSnapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// LoadSnapshot restores state previously produced by SaveSnapshot.
func (m *Machine) LoadSnapshot(data []byte) error {
	var state snapshotState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&state); err != nil {
		return fmt.Errorf("machine: LoadSnapshot: %w", err)
	}
	if state.Version != snapshotVersion {
		return fmt.Errorf("machine: LoadSnapshot: unsupported snapshot version %d", state.Version)
	}

	m.MMU.Restore(state.MMU)
	m.FDC.Restore(state.FDC)
	m.HDC.Restore(state.HDC)
	m.IO.LastKeyCode = state.LastKeyCode
	m.IO.OpenApplePressed = state.OpenApplePressed
	m.IO.SolidApplePressed = state.SolidApplePressed
	m.SystemTicks = state.SystemTicks
	m.frameTickCounter = state.FrameTickCounter
	m.flashCounter = state.FlashCounter
	return nil
}
