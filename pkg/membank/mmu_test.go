package membank

import (
	"testing"

	"github.com/kris92/reload-emulator/pkg/cpu"
)

// fakeCPU is a minimal cpu.CPU stand-in for driving MMU.Access in tests.
type fakeCPU struct {
	data      uint8
	cxxx      bool
	slotData  bool
}

func (f *fakeCPU) Reset()                       {}
func (f *fakeCPU) Tick() (uint16, bool)         { return 0, false }
func (f *fakeCPU) Data() uint8                  { return f.data }
func (f *fakeCPU) SetData(v uint8)              { f.data = v }
func (f *fakeCPU) SetCxxxAccess(in bool)        { f.cxxx = in }
func (f *fakeCPU) SetSlotData(floating bool)    { f.slotData = floating }

var _ cpu.CPU = (*fakeCPU)(nil)

func newTestMMU(t *testing.T) *MMU {
	t.Helper()
	rom := make([]byte, romSize)
	charROM := make([]byte, characterROMSize)
	m, err := New(rom, charROM)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

func TestNewRejectsWrongSizedROM(t *testing.T) {
	if _, err := New(make([]byte, 100), make([]byte, characterROMSize)); err == nil {
		t.Fatal("expected error for undersized system ROM")
	}
	if _, err := New(make([]byte, romSize), make([]byte, 10)); err == nil {
		t.Fatal("expected error for undersized character ROM")
	}
}

func TestResetDefaults(t *testing.T) {
	m := newTestMMU(t)
	if !m.Flags.LCBnk2 || !m.Flags.WriteEnabled || !m.Flags.IOUDis {
		t.Fatalf("unexpected flag defaults: %+v", m.Flags)
	}
	if m.Flags.Text || m.Flags.Hires || m.Flags.Store80 || m.Flags.RamRD {
		t.Fatalf("expected all display/bank flags clear at reset: %+v", m.Flags)
	}
}

func TestResetRAMPattern(t *testing.T) {
	m := newTestMMU(t)
	if m.RAM[0] != 0x00 || m.RAM[1] != 0xFF {
		t.Fatalf("unexpected reset pattern at start of RAM: %02x %02x", m.RAM[0], m.RAM[1])
	}
	if m.AuxRAM[0x1000] != 0x00 || m.AuxRAM[0x1001] != 0xFF {
		t.Fatalf("unexpected reset pattern in aux RAM")
	}
}

func TestPlainReadWriteRoundTrip(t *testing.T) {
	m := newTestMMU(t)
	m.Write(0x1000, 0x42)
	if got := m.Read(0x1000); got != 0x42 {
		t.Fatalf("Read after Write = %#x, want 0x42", got)
	}
}

func TestRamRDSelectsAuxPlaneForReads(t *testing.T) {
	m := newTestMMU(t)
	m.AuxRAM[0x0600] = 0xAA
	m.RAM[0x0600] = 0x55

	if got := m.Read(0x0600); got != 0x55 {
		t.Fatalf("default (ramrd=false) read = %#x, want main-plane 0x55", got)
	}

	m.SetRamRD(true)
	if got := m.Read(0x0600); got != 0xAA {
		t.Fatalf("ramrd=true read = %#x, want aux-plane 0xAA", got)
	}
}

func TestRamWRTSelectsAuxPlaneForWrites(t *testing.T) {
	m := newTestMMU(t)
	m.SetRamWRT(true)
	m.Write(0x0900, 0x77)
	if m.AuxRAM[0x0900] != 0x77 {
		t.Fatalf("ramwrt=true write landed in main plane, not aux")
	}
	if m.RAM[0x0900] == 0x77 {
		t.Fatalf("ramwrt=true write incorrectly also touched main plane")
	}
}

func TestWriteMarksDirtyRegardlessOfPlane(t *testing.T) {
	m := newTestMMU(t)
	m.SetRamWRT(true)
	m.Write(0x0500, 0x01) // $0400-$07FF: text/lores page 1
	if !m.TextPage1Dirty {
		t.Fatal("expected TextPage1Dirty set even though write targeted aux plane")
	}
}

func TestLanguageCardTwoReadStrobeArmsWrite(t *testing.T) {
	m := newTestMMU(t)
	// Reset leaves writes enabled; an even strobe clears them so the arm sequence starts from off.
	m.LCControl(0x02, true)
	// $C083: LCRam on (offset&3==3), write-enable odd strobe, bank2 (bit3 clear -> bnk2 per spec formula).
	m.LCControl(0x03, true)
	if m.Flags.WriteEnabled {
		t.Fatal("single read strobe must not immediately enable writes")
	}
	m.LCControl(0x03, true)
	if !m.Flags.WriteEnabled {
		t.Fatal("second consecutive read strobe on an odd offset must arm write-enable")
	}
}

func TestLanguageCardWriteAccessDisarmsPrewrite(t *testing.T) {
	m := newTestMMU(t)
	m.LCControl(0x02, true) // even strobe: start with writes disabled
	m.LCControl(0x03, true)
	m.LCControl(0x03, false) // a write access in between must reset the arm sequence
	m.LCControl(0x03, true)
	if m.Flags.WriteEnabled {
		t.Fatal("write access between read strobes must not leave write-enable armed")
	}
}

func TestLanguageCardROMVsRAMRouting(t *testing.T) {
	m := newTestMMU(t)
	for i := range m.ROM {
		m.ROM[i] = 0xEE
	}
	m.RAM[0xD000] = 0x11
	// offset 0x01: LCRam off -> $D000 reads ROM.
	m.LCControl(0x01, false)
	if got := m.Read(0xD000); got != 0xEE {
		t.Fatalf("LCRam off should read ROM at $D000, got %#x", got)
	}
	// offset 0x00: LCRam on -> $D000 reads RAM bank (bank1 since bit3 set clears bnk2... offset 0 has bit3 clear so bnk2=true -> reads $D000 physical).
	m.LCControl(0x00, false)
	if got := m.Read(0xD000); got != 0x11 {
		t.Fatalf("LCRam on should read RAM at $D000, got %#x", got)
	}
}

func Test80StoreOverridesPage2ForTextBank(t *testing.T) {
	m := newTestMMU(t)
	m.RAM[0x0400] = 0x01
	m.AuxRAM[0x0400] = 0x02

	m.SetStore80(true)
	m.SetRamRD(true) // should have no effect on text bank while 80STORE is on
	if got := m.Read(0x0400); got != 0x01 {
		t.Fatalf("80STORE with page2=false should read main plane, got %#x", got)
	}

	m.SetPage2(true)
	if got := m.Read(0x0400); got != 0x02 {
		t.Fatalf("80STORE with page2=true should read aux plane, got %#x", got)
	}
}

func TestIntCxROMReadsSystemROMAcrossCxxxWindow(t *testing.T) {
	m := newTestMMU(t)
	m.ROM[0x0300] = 0x99 // $C300 offset within ROM image
	m.Flags.IntCxROM = true
	if got := m.Read(0xC300); got != 0x99 {
		t.Fatalf("intcxrom should read system ROM image, got %#x", got)
	}
}

func TestSlotC3SuppressionWhenIntCxROMClear(t *testing.T) {
	m := newTestMMU(t)
	m.ROM[0x0300] = 0x99
	m.Flags.IntCxROM = false
	m.Flags.SlotC3ROM = false
	if got := m.Read(0xC300); got != 0 {
		t.Fatalf("expected suppressed (0) read at $C300, got %#x", got)
	}
	m.Flags.SlotC3ROM = true
	if got := m.Read(0xC300); got != 0x99 {
		t.Fatalf("expected ROM passthrough once slotc3rom set, got %#x", got)
	}
}

func TestFDCWindowAbsentReturnsZero(t *testing.T) {
	m := newTestMMU(t)
	if got := m.Read(0xC650); got != 0 {
		t.Fatalf("expected 0 with no FDC present, got %#x", got)
	}
	m.FDCPresent = true
	m.FDCROM = make([]byte, 0x100)
	m.FDCROM[0x50] = 0x5A
	if got := m.Read(0xC650); got != 0x5A {
		t.Fatalf("expected FDC ROM byte, got %#x", got)
	}
}

func TestAccessSetsCxxxAndSlotDataSignals(t *testing.T) {
	m := newTestMMU(t)
	c := &fakeCPU{}
	m.Access(c, 0xC200, false)
	if !c.cxxx {
		t.Fatal("expected SetCxxxAccess(true) for a $C200 access")
	}
	if !c.slotData {
		t.Fatal("expected SetSlotData(true) for the unimplemented slot-2 window")
	}

	m.Access(c, 0x1000, false)
	if c.cxxx {
		t.Fatal("expected SetCxxxAccess(false) for a plain RAM access")
	}
}
