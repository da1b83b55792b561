// Package membank implements the Memory Matrix and Bank Switcher: the RAM
// and aux-RAM planes, the ROM images, a 256-entry page table of read/write
// slices, the six bank-selector tables keyed by ramrd/ramwrt/altzp/80store,
// and the language-card pre-write latch.
//
// The page-table-of-slices design is grounded on the beevik apple2go MMU
// (other_examples/89ece6b4_beevik-apple2go__mmu.go.go): rather than a
// memcpy+pointer-offset-patch scheme, each 256-byte page holds a read slice
// and a write slice (nil meaning unmapped/read-only respectively) directly
// into the backing RAM/AuxRAM/ROM arrays.
package membank

import (
	"fmt"

	"github.com/kris92/reload-emulator/pkg/cpu"
)

const (
	ramSize          = 0x10000
	romSize          = 0x4000
	characterROMSize = 0x1000

	pageSize  = 0x100
	pageCount = ramSize / pageSize
)

type pageEntry struct {
	read  []byte
	write []byte
}

type bankSlot struct {
	read  []byte
	write []byte
}

// MMU owns every byte of addressable guest memory and the soft-switch
// flags that key how it is currently mapped.
type MMU struct {
	RAM    [ramSize]byte
	AuxRAM [ramSize]byte
	ROM    []byte // 16KiB, $C000-$FFFF image (rom[0]=$C000 ... rom[0x3FFF]=$FFFF)
	CharacterROM []byte // 4KiB character generator ROM

	Flags Flags

	FDCPresent bool
	FDCROM     []byte // 256B boot ROM shown at $C600-$C6FF when intcxrom is clear
	HDCPresent bool
	HDCROM     []byte // 256B boot ROM shown at $C700-$C7FF when intcxrom is clear

	TextPage1Dirty  bool
	TextPage2Dirty  bool
	HiresPage1Dirty bool
	HiresPage2Dirty bool

	pages [pageCount]pageEntry

	bank0000 [2]bankSlot
	bank0200 [4]bankSlot
	bank0400 [4]bankSlot
	bank0800 [4]bankSlot
	bank2000 [4]bankSlot
	bank4000 [4]bankSlot
}

// New validates the supplied ROM images and returns a freshly reset MMU.
func New(rom, characterROM []byte) (*MMU, error) {
	if len(rom) != romSize {
		return nil, fmt.Errorf("membank: system ROM must be %d bytes, got %d", romSize, len(rom))
	}
	if len(characterROM) != characterROMSize {
		return nil, fmt.Errorf("membank: character ROM must be %d bytes, got %d", characterROMSize, len(characterROM))
	}
	m := &MMU{ROM: rom, CharacterROM: characterROM}
	m.Reset()
	return m, nil
}

// Reset restores power-on RAM contents, power-on flag defaults, and
// rebuilds the full page table from scratch.
func (m *MMU) Reset() {
	for i := 0; i < ramSize; i += 2 {
		m.RAM[i] = 0x00
		m.RAM[i+1] = 0xFF
		m.AuxRAM[i] = 0x00
		m.AuxRAM[i+1] = 0xFF
	}

	m.Flags = Flags{
		LCBnk2:       true,
		WriteEnabled: true,
		IOUDis:       true,
	}

	m.buildBankTables()
	m.updateAltZP()
	m.updateAuxBanks()
	m.clearDirty()
}

func (m *MMU) clearDirty() {
	m.TextPage1Dirty = false
	m.TextPage2Dirty = false
	m.HiresPage1Dirty = false
	m.HiresPage2Dirty = false
}

func combos4(main, aux []byte) [4]bankSlot {
	return [4]bankSlot{
		{read: main, write: main},
		{read: aux, write: main},
		{read: main, write: aux},
		{read: aux, write: aux},
	}
}

func (m *MMU) buildBankTables() {
	m.bank0000 = [2]bankSlot{
		{read: m.RAM[0x0000:0x0200], write: m.RAM[0x0000:0x0200]},
		{read: m.AuxRAM[0x0000:0x0200], write: m.AuxRAM[0x0000:0x0200]},
	}
	m.bank0200 = combos4(m.RAM[0x0200:0x0400], m.AuxRAM[0x0200:0x0400])
	m.bank0400 = combos4(m.RAM[0x0400:0x0800], m.AuxRAM[0x0400:0x0800])
	m.bank0800 = combos4(m.RAM[0x0800:0x2000], m.AuxRAM[0x0800:0x2000])
	m.bank2000 = combos4(m.RAM[0x2000:0x4000], m.AuxRAM[0x2000:0x4000])
	m.bank4000 = combos4(m.RAM[0x4000:0xC000], m.AuxRAM[0x4000:0xC000])
}

func (m *MMU) mapRange(base uint16, size uint16, read, write []byte) {
	count := size / pageSize
	for i := uint16(0); i < count; i++ {
		var r, w []byte
		if read != nil {
			r = read[i*pageSize : i*pageSize+pageSize]
		}
		if write != nil {
			w = write[i*pageSize : i*pageSize+pageSize]
		}
		m.pages[base/pageSize+i] = pageEntry{read: r, write: w}
	}
}

func (m *MMU) ramwrIndex() int {
	idx := 0
	if m.Flags.RamRD {
		idx |= 1
	}
	if m.Flags.RamWRT {
		idx |= 2
	}
	return idx
}

func boolIndex(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (m *MMU) updateTextBank() {
	idx := m.ramwrIndex()
	if m.Flags.Store80 {
		idx = boolIndex(m.Flags.Page2) * 3
	}
	b := m.bank0400[idx]
	m.mapRange(0x0400, 0x0400, b.read, b.write)
}

func (m *MMU) updateHiresBank() {
	idx := m.ramwrIndex()
	if m.Flags.Store80 && m.Flags.Hires {
		idx = boolIndex(m.Flags.Page2) * 3
	}
	b := m.bank2000[idx]
	m.mapRange(0x2000, 0x2000, b.read, b.write)
}

func (m *MMU) updateAuxBanks() {
	idx := m.ramwrIndex()

	b0200 := m.bank0200[idx]
	m.mapRange(0x0200, 0x0200, b0200.read, b0200.write)

	if !m.Flags.Store80 {
		m.updateTextBank()
	}

	b0800 := m.bank0800[idx]
	m.mapRange(0x0800, 0x1800, b0800.read, b0800.write)

	if !(m.Flags.Store80 && m.Flags.Hires) {
		m.updateHiresBank()
	}

	b4000 := m.bank4000[idx]
	m.mapRange(0x4000, 0x8000, b4000.read, b4000.write)
}

func (m *MMU) updateAltZP() {
	b := m.bank0000[boolIndex(m.Flags.AltZP)]
	m.mapRange(0x0000, 0x0200, b.read, b.write)
	m.updateLanguageCard()
}

func (m *MMU) updateLanguageCard() {
	ramPlane := m.RAM[:]
	if m.Flags.AltZP {
		ramPlane = m.AuxRAM[:]
	}

	bankOffset := uint16(0xC000)
	if m.Flags.LCBnk2 {
		bankOffset = 0xD000
	}
	dBank := ramPlane[bankOffset : bankOffset+0x1000]
	eBank := ramPlane[0xE000:0x10000]

	switch {
	case m.Flags.LCRam && m.Flags.WriteEnabled:
		m.mapRange(0xD000, 0x1000, dBank, dBank)
		m.mapRange(0xE000, 0x2000, eBank, eBank)
	case m.Flags.LCRam && !m.Flags.WriteEnabled:
		m.mapRange(0xD000, 0x1000, dBank, nil)
		m.mapRange(0xE000, 0x2000, eBank, nil)
	case !m.Flags.LCRam && m.Flags.WriteEnabled:
		m.mapRange(0xD000, 0x1000, m.ROM[0x1000:0x2000], dBank)
		m.mapRange(0xE000, 0x2000, m.ROM[0x2000:0x4000], eBank)
	default:
		m.mapRange(0xD000, 0x3000, m.ROM[0x1000:0x4000], nil)
	}
}

// SetStore80 toggles the 80STORE switch, rewiring the text and hi-res
// display banks if the value actually changed.
func (m *MMU) SetStore80(on bool) {
	if m.Flags.Store80 == on {
		return
	}
	m.Flags.Store80 = on
	m.updateTextBank()
	m.updateHiresBank()
}

// SetRamRD toggles the RAMRD switch (which plane $0200-$BFFF reads from).
func (m *MMU) SetRamRD(on bool) {
	if m.Flags.RamRD == on {
		return
	}
	m.Flags.RamRD = on
	m.updateAuxBanks()
}

// SetRamWRT toggles the RAMWRT switch (which plane $0200-$BFFF writes to).
func (m *MMU) SetRamWRT(on bool) {
	if m.Flags.RamWRT == on {
		return
	}
	m.Flags.RamWRT = on
	m.updateAuxBanks()
}

// SetAltZP toggles ALTZP: zero page/stack plane plus the language-card bank.
func (m *MMU) SetAltZP(on bool) {
	if m.Flags.AltZP == on {
		return
	}
	m.Flags.AltZP = on
	m.updateAltZP()
}

// SetPage2 toggles PAGE2, rewiring the display banks when 80STORE overrides
// the normal ramrd/ramwrt selection.
func (m *MMU) SetPage2(on bool) {
	if m.Flags.Page2 == on {
		return
	}
	m.Flags.Page2 = on
	if m.Flags.Store80 {
		m.updateTextBank()
		if m.Flags.Hires {
			m.updateHiresBank()
		}
	}
}

// SetHires toggles HIRES, rewiring the hi-res bank when 80STORE is active.
func (m *MMU) SetHires(on bool) {
	if m.Flags.Hires == on {
		return
	}
	m.Flags.Hires = on
	if m.Flags.Store80 {
		m.updateHiresBank()
	}
}

// LCControl implements the language-card pre-write latch protocol for a
// $C080-$C08F access. offset is addr&0xF; isRead distinguishes a read
// access (which can arm or complete the two-step write-enable strobe)
// from a write access (which always disarms it).
func (m *MMU) LCControl(offset uint8, isRead bool) {
	if offset&1 == 0 {
		m.Flags.WriteEnabled = false
	}
	if !isRead {
		m.Flags.PreWrite = false
	} else if offset&1 == 1 {
		if !m.Flags.PreWrite {
			m.Flags.PreWrite = true
		} else {
			m.Flags.WriteEnabled = true
		}
	}

	switch offset & 3 {
	case 0, 3:
		m.Flags.LCRam = true
	case 1, 2:
		m.Flags.LCRam = false
	}
	m.Flags.LCBnk2 = offset&8 == 0

	m.updateLanguageCard()
}

func (m *MMU) markDirty(addr uint16) {
	switch {
	case addr >= 0x0400 && addr <= 0x07FF:
		m.TextPage1Dirty = true
	case addr >= 0x0800 && addr <= 0x0BFF:
		m.TextPage2Dirty = true
	case addr >= 0x2000 && addr <= 0x3FFF:
		m.HiresPage1Dirty = true
	case addr >= 0x4000 && addr <= 0x5FFF:
		m.HiresPage2Dirty = true
	}
}

// Snapshot is the gob-serializable subset of MMU state a save state
// needs: the two RAM planes and the soft-switch flags. ROM images and the
// page table itself are rebuilt from those on Restore, not serialized.
type Snapshot struct {
	RAM    [ramSize]byte
	AuxRAM [ramSize]byte
	Flags  Flags
}

// Save captures a Snapshot of the current RAM contents and flags.
func (m *MMU) Save() Snapshot {
	return Snapshot{RAM: m.RAM, AuxRAM: m.AuxRAM, Flags: m.Flags}
}

// Restore replaces RAM contents and flags from s and rebuilds the page
// table to match.
func (m *MMU) Restore(s Snapshot) {
	m.RAM = s.RAM
	m.AuxRAM = s.AuxRAM
	m.Flags = s.Flags
	m.buildBankTables()
	m.updateAltZP()
	m.updateAuxBanks()
	if m.Flags.Store80 {
		m.updateTextBank()
		m.updateHiresBank()
	}
}

// Read returns the byte mapped at addr, honoring the current page table.
// Addresses in $C100-$CFFF are serviced by the ROM/slot-window rules
// (see accessCxxx) rather than the plain page table.
func (m *MMU) Read(addr uint16) uint8 {
	if addr >= 0xC100 && addr <= 0xCFFF {
		return m.readCxxxPlain(addr)
	}
	p := m.pages[addr/pageSize]
	if p.read == nil {
		return 0
	}
	return p.read[addr%pageSize]
}

// Write stores v at addr if the currently-mapped page is writable, and
// marks the owning video window dirty if addr falls in one.
func (m *MMU) Write(addr uint16, v uint8) {
	if addr >= 0xC100 && addr <= 0xCFFF {
		return
	}
	p := m.pages[addr/pageSize]
	if p.write != nil {
		p.write[addr%pageSize] = v
	}
	m.markDirty(addr)
}

func (m *MMU) readCxxxPlain(addr uint16) uint8 {
	if m.Flags.IntCxROM {
		return m.ROM[addr-0xC000]
	}
	switch {
	case addr >= 0xC300 && addr <= 0xC3FF && !m.Flags.SlotC3ROM:
		return 0
	case addr >= 0xC600 && addr <= 0xC6FF:
		if m.FDCPresent {
			return m.FDCROM[addr&0xFF]
		}
		return 0
	case addr >= 0xC700 && addr <= 0xC7FF:
		if m.HDCPresent {
			return m.HDCROM[addr&0xFF]
		}
		return 0
	default:
		return m.ROM[addr-0xC000]
	}
}

// Access drives a single CPU bus transaction through the memory router.
// Addresses in $C000-$C0FF must be handled by the I/O dispatcher instead;
// callers route those there before reaching Access.
func (m *MMU) Access(c cpu.CPU, addr uint16, write bool) {
	if addr >= 0xC100 && addr <= 0xCFFF {
		c.SetCxxxAccess(true)
		m.accessCxxx(c, addr, write)
		return
	}
	c.SetCxxxAccess(false)
	c.SetSlotData(false)
	if write {
		m.Write(addr, c.Data())
	} else {
		c.SetData(m.Read(addr))
	}
}

func (m *MMU) accessCxxx(c cpu.CPU, addr uint16, write bool) {
	c.SetSlotData(false)
	if m.Flags.IntCxROM {
		if !write {
			c.SetData(m.ROM[addr-0xC000])
		}
		return
	}
	switch {
	case addr >= 0xC200 && addr <= 0xC2FF:
		c.SetSlotData(true)
	case addr >= 0xC300 && addr <= 0xC3FF:
		if !write {
			if !m.Flags.SlotC3ROM {
				c.SetData(0)
			} else {
				c.SetData(m.ROM[addr-0xC000])
			}
		}
	case addr >= 0xC400 && addr <= 0xC4FF:
		c.SetSlotData(true)
	case addr >= 0xC600 && addr <= 0xC6FF:
		if !write {
			if m.FDCPresent {
				c.SetData(m.FDCROM[addr&0xFF])
			} else {
				c.SetData(0)
			}
		}
	case addr >= 0xC700 && addr <= 0xC7FF:
		if !write {
			if m.HDCPresent {
				c.SetData(m.HDCROM[addr&0xFF])
			} else {
				c.SetData(0)
			}
		}
	default:
		if !write {
			c.SetData(m.ROM[addr-0xC000])
		}
	}
}
