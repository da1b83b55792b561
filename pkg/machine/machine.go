// Package machine is the composition root: it wires the MMU, I/O
// dispatcher, video renderer, beeper, and the FDC/HDC peripherals into one
// Apple //e core, and drives the fixed per-tick order described in
// spec.md §4.3. It mirrors the shape of the teacher's pkg/nes.NES
// composition root (CPU + bus + PPU + cartridge, Step/RunFrame/Reset/
// GetFrameBuffer), generalized to this system's component set.
package machine

import (
	"fmt"

	"github.com/kris92/reload-emulator/pkg/beeper"
	"github.com/kris92/reload-emulator/pkg/cpu"
	"github.com/kris92/reload-emulator/pkg/disk2"
	"github.com/kris92/reload-emulator/pkg/diskimage"
	"github.com/kris92/reload-emulator/pkg/ioport"
	"github.com/kris92/reload-emulator/pkg/membank"
	"github.com/kris92/reload-emulator/pkg/prodos"
	"github.com/kris92/reload-emulator/pkg/video"
)

const (
	// TickHz is the Apple //e's ~1.0218MHz NTSC clock rate.
	TickHz = 1021800

	// CyclesPerVisibleFrame and CyclesPerFrame bound the VBL window: the
	// core treats VBL as asserted once the current frame's tick counter
	// passes the visible-region boundary, clearing at frame wraparound.
	CyclesPerVisibleFrame = 12480
	CyclesPerFrame        = 17030

	// FlashPeriodTicks is the textual-inverse flash half-period: the
	// reference firmware reloads flash_timer_ticks to FREQ/2 ticks.
	FlashPeriodTicks = TickHz / 2

	// FDCTickInterval is how often (in system ticks) the Disk II
	// controller's rotation timer advances.
	FDCTickInterval = 128

	// audioRingSize bounds the staged-sample ring buffer.
	audioRingSize = 2048
)

// AudioCallback receives a full ring of drained samples.
type AudioCallback func([]uint8)

// Descriptor configures a new Machine.
type Descriptor struct {
	CPU           cpu.CPU
	ROM           []byte // 16KiB system ROM, $C000-$FFFF
	CharacterROM  []byte // 4KiB character generator ROM
	FDCROM        []byte // 256B Disk II boot ROM (optional)
	HDCROM        []byte // 256B ProDOS HDC boot ROM (optional)
	SampleHz      uint32
	Volume        float32
	AudioCallback AudioCallback
	// Images backs the F1-F9 disk-swap keys (see KeyDown). Optional; with
	// none attached, those keys are no-ops.
	Images *diskimage.Registry
}

// Machine is the full Apple //e core.
type Machine struct {
	CPU    cpu.CPU
	MMU    *membank.MMU
	IO     *ioport.Port
	Video  video.Renderer
	Audio  *beeper.Beeper
	FDC    *disk2.FDC
	HDC    *prodos.HDC
	Images *diskimage.Registry

	SystemTicks uint64

	frameTickCounter uint32
	flashCounter     uint32

	audioCallback AudioCallback
	audioRing     [audioRingSize]uint8
	audioCursor   int
}

// Init validates the descriptor and wires up a ready-to-run machine.
func Init(desc Descriptor) (*Machine, error) {
	if desc.CPU == nil {
		return nil, fmt.Errorf("machine: Init requires a CPU collaborator")
	}
	if desc.SampleHz == 0 {
		return nil, fmt.Errorf("machine: Init requires a non-zero SampleHz")
	}

	mm, err := membank.New(desc.ROM, desc.CharacterROM)
	if err != nil {
		return nil, fmt.Errorf("machine: Init: %w", err)
	}

	m := &Machine{
		CPU:           desc.CPU,
		MMU:           mm,
		IO:            &ioport.Port{},
		Audio:         beeper.New(TickHz, desc.SampleHz, desc.Volume),
		FDC:           disk2.New(),
		HDC:           prodos.New(),
		Images:        desc.Images,
		audioCallback: desc.AudioCallback,
	}
	m.IO.FDC = m.FDC
	m.IO.HDC = m.HDC
	m.IO.Beeper = m.Audio

	if len(desc.FDCROM) > 0 {
		if len(desc.FDCROM) != 0x100 {
			return nil, fmt.Errorf("machine: Init: FDC boot ROM must be 256 bytes, got %d", len(desc.FDCROM))
		}
		mm.FDCPresent = true
		mm.FDCROM = desc.FDCROM
	}
	if len(desc.HDCROM) > 0 {
		if len(desc.HDCROM) != 0x100 {
			return nil, fmt.Errorf("machine: Init: HDC boot ROM must be 256 bytes, got %d", len(desc.HDCROM))
		}
		mm.HDCPresent = true
		mm.HDCROM = desc.HDCROM
	}

	m.CPU.Reset()
	return m, nil
}

// Discard releases everything Init wired up. Nothing in this core holds
// OS resources directly, so Discard only exists to give hosts a single,
// symmetric teardown call.
func (m *Machine) Discard() {
	m.CPU = nil
	m.MMU = nil
	m.IO = nil
	m.Audio = nil
	m.FDC = nil
	m.HDC = nil
}

// Reset re-applies every power-on default: RAM pattern, soft-switch
// flags, the memory map, the beeper, and the attached CPU.
func (m *Machine) Reset() {
	m.MMU.Reset()
	m.IO.LastKeyCode = 0x8D
	m.IO.OpenApplePressed = false
	m.IO.SolidApplePressed = false
	m.Audio.Reset()
	m.FDC.Reset()
	m.HDC.Reset()
	m.frameTickCounter = 0
	m.flashCounter = 0
	m.CPU.Reset()
}

// Tick advances the machine by exactly one system clock cycle, in the
// fixed order spec.md §4.3 requires: the VBL window is updated first, the
// CPU is clocked and its bus transaction routed, the beeper is advanced,
// the FDC is ticked every 128 cycles, the flash timer is updated, and
// finally the system tick counter increments.
func (m *Machine) Tick() {
	m.updateVBL()

	addr, write := m.CPU.Tick()
	m.route(addr, write)

	if sample, ready := m.Audio.Tick(); ready {
		m.stageSample(sample)
	}

	if m.SystemTicks&(FDCTickInterval-1) == 0 {
		m.FDC.Tick()
		m.HDC.Tick()
	}

	m.updateFlash()

	m.SystemTicks++
}

func (m *Machine) route(addr uint16, write bool) {
	if addr >= 0xC000 && addr <= 0xC0FF {
		m.IO.Dispatch(m.MMU, m.CPU, addr, write)
		return
	}
	m.MMU.Access(m.CPU, addr, write)
}

func (m *Machine) updateVBL() {
	m.frameTickCounter++
	if m.frameTickCounter >= CyclesPerFrame {
		m.frameTickCounter = 0
	}
	m.MMU.Flags.VBL = m.frameTickCounter >= CyclesPerVisibleFrame
}

func (m *Machine) updateFlash() {
	m.flashCounter++
	if m.flashCounter >= FlashPeriodTicks {
		m.flashCounter = 0
		m.MMU.Flags.Flash = !m.MMU.Flags.Flash
	}
}

func (m *Machine) stageSample(sample uint8) {
	m.audioRing[m.audioCursor] = sample
	m.audioCursor++
	if m.audioCursor >= audioRingSize {
		if m.audioCallback != nil {
			m.audioCallback(m.audioRing[:])
		}
		m.audioCursor = 0
	}
}

// Exec advances the machine by the number of ticks corresponding to
// microSeconds of wall-clock time, and reports how many ticks actually
// ran.
func (m *Machine) Exec(microSeconds uint32) uint32 {
	ticks := uint32(uint64(microSeconds) * TickHz / 1000000)
	for i := uint32(0); i < ticks; i++ {
		m.Tick()
	}
	return ticks
}

// ScreenUpdate redraws whatever portion of the framebuffer the current
// soft switches and dirty flags call for.
func (m *Machine) ScreenUpdate() {
	m.Video.Update(m.MMU)
}

// Framebuffer returns the packed 560x192 4bpp framebuffer produced by the
// most recent ScreenUpdate.
func (m *Machine) Framebuffer() []byte {
	return m.Video.FB[:]
}

// Key codes a host passes to KeyDown/KeyUp that carry no ASCII value of
// their own: the arrow keys, the F-row, and the two Apple modifier keys.
// Values match the reference firmware's apple2e_key_down escape-code
// space so a host can forward its own keysym translation unchanged.
const (
	ArrowRightKeyCode = 0x14F
	ArrowLeftKeyCode  = 0x150
	ArrowDownKeyCode  = 0x151
	ArrowUpKeyCode    = 0x152

	F1KeyCode  = 0x13A
	F9KeyCode  = 0x142
	F12KeyCode = 0x145

	OpenAppleKeyCode  = 0x1E3
	SolidAppleKeyCode = 0x1E7
)

// KeyDown latches a key press into the keyboard strobe register, or
// dispatches one of the reserved escape codes: arrows remap to their
// ASCII control-code equivalents, F1-F9 swap the nibblized image at the
// matching index in Images into floppy drive 0, F12 resets the machine,
// and Open-/Solid-Apple set their modifier flags instead of touching the
// latch.
func (m *Machine) KeyDown(code uint16) {
	switch code {
	case ArrowRightKeyCode:
		code = 0x15
	case ArrowLeftKeyCode:
		code = 0x08
	case ArrowDownKeyCode:
		code = 0x0A
	case ArrowUpKeyCode:
		code = 0x0B
	}

	switch {
	case code >= F1KeyCode && code <= F9KeyCode:
		m.swapFloppy(int(code - F1KeyCode))
	case code == F12KeyCode:
		m.Reset()
	case code == OpenAppleKeyCode:
		m.IO.OpenApplePressed = true
	case code == SolidAppleKeyCode:
		m.IO.SolidApplePressed = true
	case code < 128:
		m.IO.LastKeyCode = uint8(code) | 0x80
	}
}

// KeyUp releases a key. Only the Open-/Solid-Apple modifiers have
// observable key-up behavior; the keyboard latch itself never clears on
// release, matching real hardware.
func (m *Machine) KeyUp(code uint16) {
	switch code {
	case OpenAppleKeyCode:
		m.IO.OpenApplePressed = false
	case SolidAppleKeyCode:
		m.IO.SolidApplePressed = false
	}
}

// swapFloppy mounts the nib image at index (F1KeyCode-relative) into
// drive 0, the same bounds-checked lookup the reference firmware
// performs against its embedded image table before inserting.
func (m *Machine) swapFloppy(index int) {
	if m.Images == nil {
		return
	}
	img, ok := m.Images.NibAt(index)
	if !ok {
		return
	}
	m.FDC.InsertDisk(0, img.Data, false)
}

// InsertFloppy mounts a nibblized image into the given Disk II drive bay.
func (m *Machine) InsertFloppy(drive int, nib []byte, writeProtect bool) {
	m.FDC.InsertDisk(drive, nib, writeProtect)
}

// InsertHardDisk mounts a ProDOS block image into the given HDC unit bay.
func (m *Machine) InsertHardDisk(unit int, po []byte, writeProtect bool) {
	m.HDC.InsertDisk(unit, po, writeProtect)
}
